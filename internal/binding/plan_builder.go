// Package binding implements the Binding Plan Builder (C3): deriving, once
// per formula text plus sensor-level context, the set of free names an AST
// needs and the strategy used to resolve each one.
package binding

import (
	"strings"

	"github.com/LegoTypes/synthformula/internal/types"
)

// Context supplies everything the builder needs beyond the AST itself
// (§4.3 "Input: AST plus sensor-level configuration").
type Context struct {
	// Variables are the sensor's declared variables, already merged with
	// the sensor set's global variables (internal/config does the merge).
	Variables map[string]types.VariableBinding
	// SiblingKeys are the other sensor keys in the same SensorSet.
	SiblingKeys map[string]struct{}
	// AttributeKeys are the other attribute names declared on the same
	// sensor, set only when building the plan for one of that sensor's
	// attribute formulas (§4.5 attribute sub-DAG).
	AttributeKeys map[string]struct{}
	// DataSourceRegistered reports whether id is owned by the DataSource
	// collaborator (§4.3 step 4, §6 "Consumed: DataSource callback").
	DataSourceRegistered func(id string) bool
	// HostEntityRegistered reports whether id is present in the Host
	// entity catalog (§4.3 step 5, §6 "Consumed: Host entity catalog").
	HostEntityRegistered func(id string) bool
}

// Builder derives BindingPlans from an AST plus a Context (C3).
type Builder struct{}

// NewBuilder creates a Builder. It is stateless; a single instance may be
// shared across sensors and goroutines.
func NewBuilder() *Builder { return &Builder{} }

// Build derives the BindingPlan for root under ctx (§4.3 strategy selection
// order, steps 1–6).
func (b *Builder) Build(root *types.ASTNode, ctx Context) *types.BindingPlan {
	names := types.FreeNames(root)
	plan := types.NewBindingPlan(len(names))

	for _, name := range names {
		strat := b.classify(name, ctx)
		plan.Add(name, strat)
	}

	types.Walk(root, func(n *types.ASTNode) {
		switch n.Kind {
		case types.NodeMemberAccess:
			if n.Receiver != nil && n.Receiver.Kind == types.NodeName {
				plan.HasMetadata = true
				plan.MetadataCalls = append(plan.MetadataCalls, types.MetadataCall{
					Target: n.Receiver.Name,
					Field:  n.Name,
				})
			}
		case types.NodeCollectionQuery:
			plan.HasCollections = true
			plan.CollectionQueries = append(plan.CollectionQueries, n.Name)
		case types.NodeCall:
			// A collection-query literal nested as a call argument (the only
			// place the parser ever produces one) is already walked above;
			// nothing additional to record here.
		}
	})

	return plan
}

// classify implements the six-step strategy selection order (§4.3).
func (b *Builder) classify(name string, ctx Context) types.Strategy {
	// Step 1: the reserved `state` token.
	if name == "state" {
		return types.StrategyState
	}

	// Step 1.5: sibling attribute of the same sensor (attribute-formula
	// context only — ctx.AttributeKeys is nil when building a main formula's
	// plan). Checked before declared variables since an attribute name is
	// the more local binding.
	if ctx.AttributeKeys != nil {
		if _, ok := ctx.AttributeKeys[name]; ok {
			return types.StrategyAttribute
		}
	}

	// Step 2: declared sensor/global variable.
	if vb, ok := ctx.Variables[name]; ok {
		switch vb.Kind {
		case types.VarLiteral:
			return types.StrategyLiteral
		case types.VarCollectionPattern:
			return types.StrategyComputed
		case types.VarEntityRef:
			if ctx.DataSourceRegistered != nil && ctx.DataSourceRegistered(vb.EntityID) {
				return types.StrategyDataSource
			}
			if ctx.HostEntityRegistered != nil && ctx.HostEntityRegistered(vb.EntityID) {
				return types.StrategyHostEntity
			}
			return types.StrategyMissing
		}
	}

	// Step 3: sibling sensor key.
	if ctx.SiblingKeys != nil {
		if _, ok := ctx.SiblingKeys[name]; ok {
			return types.StrategyCrossSensor
		}
	}

	// Step 4: external identifier pattern, owned by DataSource.
	looksLikeExternalID := strings.Contains(name, ".")
	if looksLikeExternalID && ctx.DataSourceRegistered != nil && ctx.DataSourceRegistered(name) {
		return types.StrategyDataSource
	}

	// Step 5: external identifier pattern, present in host catalog.
	if looksLikeExternalID && ctx.HostEntityRegistered != nil && ctx.HostEntityRegistered(name) {
		return types.StrategyHostEntity
	}

	// Step 6: nothing matched — fatal MissingDependency at load time.
	return types.StrategyMissing
}
