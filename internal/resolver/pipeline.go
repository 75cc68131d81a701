// Package resolver implements the Variable Resolver Pipeline (C4): seven
// priority-ordered resolvers, dispatched lazily per free name and memoized
// for the lifetime of one evaluation cycle via types.ReferenceValue (§4.4).
package resolver

import (
	"github.com/LegoTypes/synthformula/internal/collection"
	"github.com/LegoTypes/synthformula/internal/compare"
	"github.com/LegoTypes/synthformula/internal/host"
	"github.com/LegoTypes/synthformula/internal/registry"
	"github.com/LegoTypes/synthformula/internal/types"
)

// Resolver is one strategy in the pipeline (§4.4 "Each resolver implements
// can_handle(name, plan) -> bool and resolve(name, ctx) -> Result<Scalar,
// ResolveError>").
type Resolver interface {
	Name() string
	Priority() int
	CanHandle(name string, plan *types.BindingPlan) bool
	Resolve(name string, cycle *Cycle) (types.Scalar, error)
}

// Cycle bundles everything a Resolver may consult. It is assembled fresh
// for each evaluation cycle by the orchestrator (C8) and is never mutated
// by the pipeline itself — only the Lazy Context's ReferenceValues are
// (§4.4 "Resolvers must never block; they perform synchronous lookups
// against preloaded structures").
type Cycle struct {
	Plan       *types.BindingPlan
	Variables  map[string]types.VariableBinding
	Registry   *registry.Registry
	DataSource host.DataSource
	Catalog    host.Catalog
	Compare    *compare.Registry

	// StateValue is the pre-populated value of the reserved `state` token
	// for this sensor/attribute evaluation (§4.8c/f).
	StateValue types.Scalar
	// StateAttributes holds the backing entity's attribute map for
	// `state.attr` member access, when the sensor has a backing entity
	// this cycle; nil when it does not (§4.10 MemberAccess on `state`).
	StateAttributes map[string]types.Scalar
	// LocalAttributes holds sibling attribute values already computed
	// earlier in this sensor's attribute evaluation order this cycle
	// (§4.5 attribute sub-DAG).
	LocalAttributes map[string]types.Scalar

	// SensorExternalID is the evaluating sensor's own external id, used to
	// label the `state` token in dependency-line diagnostics (§4.10
	// "Invalid-expression guard"). Empty when the sensor has no backing
	// entity.
	SensorExternalID string
	// Diagnostics, when non-nil, collects one dependency line per distinct
	// free name that resolved to a propagated state this evaluation (§4.10
	// "the result records a dependency line '<name> (<external_id>) is
	// <state>'"). Left nil by callers that don't need the diagnostic.
	Diagnostics *[]string
}

// RecordUnavailable appends a dependency-line diagnostic to cycle's
// Diagnostics collector when value is a propagated state, deduplicating by
// exact line text. A nil collector or a non-propagated value is a no-op.
func RecordUnavailable(cycle *Cycle, name string, value types.Scalar) {
	if cycle.Diagnostics == nil || !value.IsPropagated() {
		return
	}
	line := name + " (" + externalID(cycle, name) + ") is " + value.String()
	for _, existing := range *cycle.Diagnostics {
		if existing == line {
			return
		}
	}
	*cycle.Diagnostics = append(*cycle.Diagnostics, line)
}

// Pipeline runs the ordered resolver chain and memoizes results per name in
// a Lazy Context (C12).
type Pipeline struct {
	resolvers []Resolver
}

// NewPipeline builds the standard seven-resolver pipeline in priority order
// (§4.4 table).
func NewPipeline() *Pipeline {
	return &Pipeline{resolvers: []Resolver{
		stateTokenResolver{},
		crossSensorResolver{},
		attributeResolver{},
		collectionQueryResolver{},
		configVariableResolver{},
		dataSourceResolver{},
		hostEntityResolver{},
	}}
}

// Resolve returns name's value for this cycle, populating cell on first
// access and returning the memoized value on every subsequent access
// (§4.4 "Resolution is memoized per cycle").
func (p *Pipeline) Resolve(name string, cell *types.ReferenceValue, cycle *Cycle) (types.Scalar, error) {
	if v, ok := cell.Value(); ok {
		return v, nil
	}
	for _, r := range p.resolvers {
		if !r.CanHandle(name, cycle.Plan) {
			continue
		}
		v, err := r.Resolve(name, cycle)
		if err != nil {
			return types.Scalar{}, err
		}
		cell.Set(v)
		return v, nil
	}
	return types.Scalar{}, types.NewError(types.ErrMissingDependency, "no resolver claimed this name").WithName(name)
}

// stateTokenResolver handles the reserved `state` name (§4.4 priority 1).
type stateTokenResolver struct{}

func (stateTokenResolver) Name() string  { return "state_token" }
func (stateTokenResolver) Priority() int { return 1 }
func (stateTokenResolver) CanHandle(name string, plan *types.BindingPlan) bool {
	strat, ok := plan.StrategyOf(name)
	return ok && strat == types.StrategyState
}
func (stateTokenResolver) Resolve(name string, cycle *Cycle) (types.Scalar, error) {
	return cycle.StateValue, nil
}

// crossSensorResolver handles names bound to a sibling sensor key, reading
// the Cross-Sensor Registry (§4.4 priority 2).
type crossSensorResolver struct{}

func (crossSensorResolver) Name() string  { return "cross_sensor" }
func (crossSensorResolver) Priority() int { return 2 }
func (crossSensorResolver) CanHandle(name string, plan *types.BindingPlan) bool {
	strat, ok := plan.StrategyOf(name)
	return ok && strat == types.StrategyCrossSensor
}
func (crossSensorResolver) Resolve(name string, cycle *Cycle) (types.Scalar, error) {
	if cycle.Registry == nil {
		return types.Unknown, nil
	}
	return cycle.Registry.Get(name), nil
}

// attributeResolver handles names bound to a sibling attribute of the same
// sensor, already computed earlier in this cycle's attribute order (§4.5).
type attributeResolver struct{}

func (attributeResolver) Name() string  { return "attribute" }
func (attributeResolver) Priority() int { return 2 }
func (attributeResolver) CanHandle(name string, plan *types.BindingPlan) bool {
	strat, ok := plan.StrategyOf(name)
	return ok && strat == types.StrategyAttribute
}
func (attributeResolver) Resolve(name string, cycle *Cycle) (types.Scalar, error) {
	v, ok := cycle.LocalAttributes[name]
	if !ok {
		return types.Scalar{}, types.NewError(types.ErrMissingDependency, "sibling attribute not yet computed this cycle").WithName(name)
	}
	return v, nil
}

// collectionQueryResolver handles names bound to a CollectionPattern
// variable, delegating evaluation to the Collection Query Engine (C6)
// (§4.4 priority 3).
type collectionQueryResolver struct{}

func (collectionQueryResolver) Name() string  { return "collection_query" }
func (collectionQueryResolver) Priority() int { return 3 }
func (collectionQueryResolver) CanHandle(name string, plan *types.BindingPlan) bool {
	strat, ok := plan.StrategyOf(name)
	return ok && strat == types.StrategyComputed
}
func (collectionQueryResolver) Resolve(name string, cycle *Cycle) (types.Scalar, error) {
	vb, ok := cycle.Variables[name]
	if !ok || vb.Kind != types.VarCollectionPattern {
		return types.Scalar{}, types.NewError(types.ErrDataValidation, "collection variable missing its pattern").WithName(name)
	}
	q, err := collection.Parse(vb.Pattern)
	if err != nil {
		return types.Scalar{}, err
	}
	ids, err := collection.Evaluate(q, cycle.Catalog, cycle.Compare)
	if err != nil {
		return types.Scalar{}, err
	}
	// A bare collection reference (not wrapped in an aggregate call) yields
	// its match count; callers that need sum/avg/etc. invoke the aggregate
	// function directly against the same query string (§4.10 Call dispatch
	// "aggregates (dispatch to C6)").
	return types.Integer(int64(len(ids))), nil
}

// configVariableResolver handles literal bindings and explicit entity
// aliases that were classified as plain literals (§4.4 priority 4).
type configVariableResolver struct{}

func (configVariableResolver) Name() string  { return "config_variable" }
func (configVariableResolver) Priority() int { return 4 }
func (configVariableResolver) CanHandle(name string, plan *types.BindingPlan) bool {
	strat, ok := plan.StrategyOf(name)
	return ok && strat == types.StrategyLiteral
}
func (configVariableResolver) Resolve(name string, cycle *Cycle) (types.Scalar, error) {
	vb, ok := cycle.Variables[name]
	if !ok || vb.Kind != types.VarLiteral {
		return types.Scalar{}, types.NewError(types.ErrDataValidation, "literal variable missing its value").WithName(name)
	}
	return vb.Literal, nil
}

// dataSourceResolver handles names whose strategy is DataSource, calling
// the host DataSource collaborator (§4.4 priority 5).
type dataSourceResolver struct{}

func (dataSourceResolver) Name() string  { return "data_source" }
func (dataSourceResolver) Priority() int { return 5 }
func (dataSourceResolver) CanHandle(name string, plan *types.BindingPlan) bool {
	strat, ok := plan.StrategyOf(name)
	return ok && strat == types.StrategyDataSource
}
func (dataSourceResolver) Resolve(name string, cycle *Cycle) (types.Scalar, error) {
	id := externalID(cycle, name)
	if cycle.DataSource == nil {
		return types.Scalar{}, types.NewError(types.ErrMissingDependency, "no data source configured").WithName(id)
	}
	v, exists := cycle.DataSource.Lookup(id)
	if !exists {
		return types.Scalar{}, types.NewError(types.ErrMissingDependency, "identifier not owned by data source").WithName(id)
	}
	return v, nil
}

// hostEntityResolver handles names whose strategy is HostEntity, reading
// the host entity catalog (§4.4 priority 6).
type hostEntityResolver struct{}

func (hostEntityResolver) Name() string  { return "host_entity" }
func (hostEntityResolver) Priority() int { return 6 }
func (hostEntityResolver) CanHandle(name string, plan *types.BindingPlan) bool {
	strat, ok := plan.StrategyOf(name)
	return ok && strat == types.StrategyHostEntity
}
func (hostEntityResolver) Resolve(name string, cycle *Cycle) (types.Scalar, error) {
	id := externalID(cycle, name)
	if cycle.Catalog == nil {
		return types.Scalar{}, types.NewError(types.ErrMissingDependency, "no host entity catalog configured").WithName(id)
	}
	e, ok := cycle.Catalog.Get(id)
	if !ok {
		return types.Scalar{}, types.NewError(types.ErrMissingDependency, "entity not found in host catalog").WithName(id)
	}
	switch {
	case e.State.IsPropagated():
		return e.State, nil
	case e.State.IsNumeric(), e.State.Kind == types.KindString, e.State.Kind == types.KindBoolean, e.State.Kind == types.KindDateTime:
		return e.State, nil
	default:
		return types.Unknown, nil
	}
}

// externalID resolves the external identifier a name refers to: either the
// name itself (when it already looks like an external id) or the
// EntityRef id it was declared against.
func externalID(cycle *Cycle, name string) string {
	if name == "state" && cycle.SensorExternalID != "" {
		return cycle.SensorExternalID
	}
	if vb, ok := cycle.Variables[name]; ok && vb.Kind == types.VarEntityRef {
		return vb.EntityID
	}
	return name
}
