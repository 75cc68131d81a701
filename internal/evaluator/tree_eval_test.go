package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/evaluator"
	"github.com/LegoTypes/synthformula/internal/host"
	"github.com/LegoTypes/synthformula/internal/parser"
	"github.com/LegoTypes/synthformula/internal/registry"
	"github.com/LegoTypes/synthformula/internal/resolver"
	"github.com/LegoTypes/synthformula/internal/types"
)

type fakeCatalog struct {
	entities map[string]host.Entity
}

func (c fakeCatalog) Get(id string) (host.Entity, bool) {
	e, ok := c.entities[id]
	return e, ok
}
func (c fakeCatalog) Iter() []string {
	ids := make([]string, 0, len(c.entities))
	for id := range c.entities {
		ids = append(ids, id)
	}
	return ids
}

func planFor(names ...string) *types.BindingPlan {
	p := types.NewBindingPlan(len(names))
	for _, n := range names {
		p.Add(n, types.StrategyLiteral)
	}
	return p
}

func evalFormula(t *testing.T, text string, vars map[string]types.VariableBinding, cycle *resolver.Cycle) types.Scalar {
	t.Helper()
	expr, err := parser.Parse(text)
	require.NoError(t, err)
	names := types.FreeNames(expr.AST())
	plan := types.NewBindingPlan(len(names))
	for _, n := range names {
		strat := types.StrategyLiteral
		if n == "state" {
			strat = types.StrategyState
		} else if _, ok := vars[n]; !ok {
			strat = types.StrategyCrossSensor
		}
		plan.Add(n, strat)
	}
	cycle.Plan = plan
	cycle.Variables = vars
	ctx := evaluator.NewLazyContext(plan)
	ev := evaluator.NewEvaluator()
	v, err := ev.Eval(expr.AST(), ctx, cycle)
	require.NoError(t, err)
	return v
}

func TestEvalArithmetic(t *testing.T) {
	v := evalFormula(t, "2 + 3 * 4", nil, &resolver.Cycle{})
	require.Equal(t, types.Number(14), v)
}

func TestEvalComparison(t *testing.T) {
	v := evalFormula(t, "5 > 3", nil, &resolver.Cycle{})
	require.Equal(t, types.Bool(true), v)
}

func TestEvalConditionalBothSpellings(t *testing.T) {
	v1 := evalFormula(t, "1 if true else 2", nil, &resolver.Cycle{})
	v2 := evalFormula(t, "true ? 1 : 2", nil, &resolver.Cycle{})
	require.Equal(t, v1, v2)
	require.Equal(t, types.Number(1), v1)
}

func TestEvalShortCircuitAnd(t *testing.T) {
	v := evalFormula(t, "false and (1/0 > 0)", nil, &resolver.Cycle{})
	require.Equal(t, types.Bool(false), v, "right side must never evaluate once left is false")
}

func TestEvalShortCircuitOr(t *testing.T) {
	v := evalFormula(t, "true or (1/0 > 0)", nil, &resolver.Cycle{})
	require.Equal(t, types.Bool(true), v)
}

func TestEvalStateToken(t *testing.T) {
	cycle := &resolver.Cycle{StateValue: types.Number(50)}
	v := evalFormula(t, "state * 2", nil, cycle)
	require.Equal(t, types.Number(100), v)
}

func TestEvalUnknownPropagates(t *testing.T) {
	cycle := &resolver.Cycle{StateValue: types.Unknown}
	v := evalFormula(t, "state * 2", nil, cycle)
	require.True(t, v.IsUnknown())
}

func TestEvalUnavailableDominatesUnknown(t *testing.T) {
	cycle := &resolver.Cycle{StateValue: types.Unavailable}
	v := evalFormula(t, "state + 1", nil, cycle)
	require.True(t, v.IsUnavailable())
}

func TestEvalMathFunctions(t *testing.T) {
	require.Equal(t, types.Number(5), evalFormula(t, "abs(-5)", nil, &resolver.Cycle{}))
	require.Equal(t, types.Number(2), evalFormula(t, "clamp(10, 0, 2)", nil, &resolver.Cycle{}))
	require.Equal(t, types.Number(25), evalFormula(t, "percent(1, 4)", nil, &resolver.Cycle{}))
}

func TestEvalCrossSensorMemberAccess(t *testing.T) {
	reg := registry.New()
	reg.Register("base", "sensor.base")
	reg.SetAttributes("base", map[string]types.Scalar{"voltage": types.Number(3.3)})
	cycle := &resolver.Cycle{Registry: reg}
	v := evalFormula(t, "base.voltage", nil, cycle)
	require.Equal(t, types.Number(3.3), v)
}

func TestEvalCollectionAggregate(t *testing.T) {
	catalog := fakeCatalog{entities: map[string]host.Entity{
		"sensor.t1": {State: types.Number(10), DeviceClass: "temperature"},
		"sensor.t2": {State: types.Number(20), DeviceClass: "temperature"},
	}}
	cycle := &resolver.Cycle{Catalog: catalog}
	v := evalFormula(t, `avg("device_class:temperature")`, nil, cycle)
	require.Equal(t, types.Number(15), v)
}
