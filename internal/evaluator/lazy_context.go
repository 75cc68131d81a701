// Package evaluator implements the Lazy Context (C12) and the tree-walking
// expression evaluator (§4.10). The per-cycle Evaluation Orchestrator (C8)
// that drives a sensor set through begin_cycle / per-sensor evaluation /
// end_cycle lives in package orchestrator.
package evaluator

import "github.com/LegoTypes/synthformula/internal/types"

// LazyContext is the minimal per-cycle map of name -> ReferenceValue,
// populated lazily on first access via the Variable Resolver Pipeline
// (§3 Data model; §4.4). One LazyContext backs exactly one formula
// evaluation (main or one attribute) within one cycle.
type LazyContext struct {
	cells map[string]*types.ReferenceValue
}

// NewLazyContext creates empty ReferenceValue cells for every name in plan
// (§4.8b "Construct a Lazy Context containing empty ReferenceValues for
// every name in plan.names").
func NewLazyContext(plan *types.BindingPlan) *LazyContext {
	cells := make(map[string]*types.ReferenceValue, len(plan.Names))
	for _, name := range plan.Names {
		strat, _ := plan.StrategyOf(name)
		cells[name] = types.NewReferenceValue(name, strat)
	}
	return &LazyContext{cells: cells}
}

// Cell returns the ReferenceValue cell for name, if this context has one.
func (c *LazyContext) Cell(name string) (*types.ReferenceValue, bool) {
	cell, ok := c.cells[name]
	return cell, ok
}

// SeedState pre-populates the reserved `state` token's cell, when the plan
// declares one (§4.8c "pre-populate state with the backing value").
func (c *LazyContext) SeedState(value types.Scalar) {
	if cell, ok := c.cells["state"]; ok {
		cell.Set(value)
	}
}
