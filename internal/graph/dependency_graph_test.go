package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/graph"
	"github.com/LegoTypes/synthformula/internal/types"
)

func plan(strategies map[string]types.Strategy) *types.BindingPlan {
	p := types.NewBindingPlan(len(strategies))
	for name, s := range strategies {
		p.Add(name, s)
	}
	return p
}

func TestTopologicalOrderLinearChain(t *testing.T) {
	plans := map[string]*types.BindingPlan{
		"base":    plan(map[string]types.Strategy{"x.power": types.StrategyDataSource}),
		"derived": plan(map[string]types.Strategy{"base": types.StrategyCrossSensor}),
	}
	g := graph.BuildFromPlans(plans)
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"base", "derived"}, order)
}

func TestTopologicalOrderStableTieBreak(t *testing.T) {
	plans := map[string]*types.BindingPlan{
		"z": plan(nil),
		"a": plan(nil),
		"m": plan(nil),
	}
	g := graph.BuildFromPlans(plans)
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "m", "z"}, order)
}

func TestDetectCyclesSimple(t *testing.T) {
	plans := map[string]*types.BindingPlan{
		"x": plan(map[string]types.Strategy{"y": types.StrategyCrossSensor}),
		"y": plan(map[string]types.Strategy{"x": types.StrategyCrossSensor}),
	}
	g := graph.BuildFromPlans(plans)

	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)

	_, err := g.TopologicalOrder()
	require.Error(t, err)
	var cycleErr *graph.CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestStateSelfReferenceIsNotACycle(t *testing.T) {
	// A sensor's own formula binds `state` with StrategyState, which never
	// becomes a graph edge — so a sensor referencing its own `state` token
	// never creates a self-cycle (§4.5).
	plans := map[string]*types.BindingPlan{
		"x": plan(map[string]types.Strategy{"state": types.StrategyState}),
	}
	g := graph.BuildFromPlans(plans)
	require.Empty(t, g.DetectCycles())
	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, order)
}

func TestAffectedBy(t *testing.T) {
	plans := map[string]*types.BindingPlan{
		"base":    plan(map[string]types.Strategy{"x.power": types.StrategyDataSource}),
		"derived": plan(map[string]types.Strategy{"base": types.StrategyCrossSensor}),
		"other":   plan(map[string]types.Strategy{"x.other": types.StrategyDataSource}),
	}
	g := graph.BuildFromPlans(plans)

	affected := g.AffectedBy(map[string]struct{}{"x.power": {}})
	require.Contains(t, affected, "base")
	require.Contains(t, affected, "derived")
	require.NotContains(t, affected, "other")
}
