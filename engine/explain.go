package engine

import (
	"fmt"
	"sort"

	"github.com/LegoTypes/synthformula/internal/binding"
	"github.com/LegoTypes/synthformula/internal/config"
	"github.com/LegoTypes/synthformula/internal/parser"
)

// ResolvedName is one free name and the strategy the binding plan builder
// assigned it (§4.3 strategy selection order).
type ResolvedName struct {
	Name     string
	Strategy string
}

// FormulaExplanation is one formula's binding plan rendered for a human
// reader: every free name it references, the strategy used to resolve it,
// and any unresolvable names that would trip the sensor's circuit breaker
// at load.
type FormulaExplanation struct {
	Name       string // "main", or the attribute name
	Text       string
	Resolved   []ResolvedName
	Unresolved []string
}

// SensorExplanation is the full diagnostic report for one sensor (§7
// diagnostic payload rendered for `cmd/synthformula explain`).
type SensorExplanation struct {
	Key        string
	ExternalID string
	Main       FormulaExplanation
	Attributes []FormulaExplanation
}

// Explain derives and renders the binding plan for one sensor straight
// from the currently loaded SensorSet — it does not touch the running
// orchestrator's compiled programs or cycle state, so it is safe to call
// at any time, including for a sensor tripped at load by an unresolved
// name. A formula that does not parse makes Explain return the parse error.
func (e *Engine) Explain(key string) (SensorExplanation, error) {
	e.mu.RLock()
	set := e.set
	catalog := e.catalog
	dataSource := e.ds
	e.mu.RUnlock()

	sensor, ok := set.SensorByKey(key)
	if !ok {
		return SensorExplanation{}, fmt.Errorf("engine: no sensor with key %q", key)
	}

	vars, err := config.MergeVariables(set.GlobalVariables, sensor.Variables)
	if err != nil {
		return SensorExplanation{}, err
	}

	siblings := make(map[string]struct{}, len(set.Sensors))
	for _, s := range set.Sensors {
		if s.Key != sensor.Key {
			siblings[s.Key] = struct{}{}
		}
	}
	attrNames := make(map[string]struct{}, len(sensor.Attributes))
	for _, a := range sensor.Attributes {
		attrNames[a.Name] = struct{}{}
	}

	ctx := binding.Context{
		Variables:   vars,
		SiblingKeys: siblings,
		DataSourceRegistered: func(id string) bool {
			if dataSource == nil {
				return false
			}
			_, ok := dataSource.Lookup(id)
			return ok
		},
		HostEntityRegistered: func(id string) bool {
			if catalog == nil {
				return false
			}
			_, ok := catalog.Get(id)
			return ok
		},
	}
	builder := binding.NewBuilder()

	mainExp, err := explainFormula(builder, "main", sensor.Main.Text, ctx)
	if err != nil {
		return SensorExplanation{}, err
	}
	result := SensorExplanation{Key: sensor.Key, ExternalID: sensor.ExternalID, Main: mainExp}

	attrCtx := ctx
	attrCtx.AttributeKeys = attrNames
	for _, a := range sensor.Attributes {
		attrExp, err := explainFormula(builder, a.Name, a.Formula.Text, attrCtx)
		if err != nil {
			return SensorExplanation{}, err
		}
		result.Attributes = append(result.Attributes, attrExp)
	}

	return result, nil
}

func explainFormula(builder *binding.Builder, name, text string, ctx binding.Context) (FormulaExplanation, error) {
	expr, err := parser.Parse(text)
	if err != nil {
		return FormulaExplanation{}, fmt.Errorf("parsing %s formula: %w", name, err)
	}
	plan := builder.Build(expr.AST(), ctx)

	names := append([]string{}, plan.Names...)
	sort.Strings(names)

	exp := FormulaExplanation{Name: name, Text: text, Unresolved: plan.MissingNames}
	for _, n := range names {
		strat, _ := plan.StrategyOf(n)
		exp.Resolved = append(exp.Resolved, ResolvedName{Name: n, Strategy: strat.String()})
	}
	return exp, nil
}
