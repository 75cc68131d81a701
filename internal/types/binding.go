package types

// Strategy identifies how a free name in a formula resolves to a value
// (§4.3 Binding Plan Builder, strategy selection order).
type Strategy uint8

const (
	// StrategyState marks the reserved `state` token, resolved contextually
	// by phase rather than by any of the strategies below (§4.8c/f).
	StrategyState Strategy = iota
	StrategyDataSource
	StrategyHostEntity
	StrategyLiteral
	StrategyComputed
	StrategyCrossSensor
	// StrategyAttribute marks a name that refers to a sibling attribute of
	// the same sensor, already computed earlier this cycle (§4.5
	// "Attribute-to-attribute references within one sensor form a
	// sub-DAG").
	StrategyAttribute
	// StrategyMissing marks a free name that matched no resolution rule;
	// recorded so binding-plan construction can surface it as a fatal
	// MissingDependency without re-deriving the lookup at resolve time.
	StrategyMissing
)

// String returns a short tag name, used in logging and diagnostics.
func (s Strategy) String() string {
	switch s {
	case StrategyState:
		return "state"
	case StrategyDataSource:
		return "data_source"
	case StrategyHostEntity:
		return "host_entity"
	case StrategyLiteral:
		return "literal"
	case StrategyComputed:
		return "computed"
	case StrategyCrossSensor:
		return "cross_sensor"
	case StrategyAttribute:
		return "attribute"
	case StrategyMissing:
		return "missing"
	default:
		return "invalid"
	}
}

// MetadataCall records a MemberAccess(target, field) pair discovered while
// building a binding plan, used by the evaluator to fetch entity metadata
// instead of a plain attribute value (§4.10 MemberAccess semantics).
type MetadataCall struct {
	Target string
	Field  string
}

// BindingPlan is the frozen, once-per-formula-text description of what a
// formula needs and how to get it (§3 Data model: BindingPlan). It is
// derived by the Binding Plan Builder (C3) and cached alongside the AST.
type BindingPlan struct {
	Names             []string
	Strategies        map[string]Strategy
	HasMetadata       bool
	HasCollections    bool
	CollectionQueries []string
	MetadataCalls     []MetadataCall
	// MissingNames lists free names that resolved to StrategyMissing; a
	// non-empty slice means the plan is unusable and load must fail fatally
	// with ErrMissingDependency before any cycle runs.
	MissingNames []string
}

// NewBindingPlan creates an empty, mutable-during-construction plan with
// its maps pre-allocated for sz names.
func NewBindingPlan(sz int) *BindingPlan {
	return &BindingPlan{
		Names:      make([]string, 0, sz),
		Strategies: make(map[string]Strategy, sz),
	}
}

// Add records a resolved free name and its strategy.
func (p *BindingPlan) Add(name string, strat Strategy) {
	if _, exists := p.Strategies[name]; exists {
		return
	}
	p.Names = append(p.Names, name)
	p.Strategies[name] = strat
	if strat == StrategyMissing {
		p.MissingNames = append(p.MissingNames, name)
	}
}

// StrategyOf returns the resolution strategy for name, and whether the name
// is part of the plan at all.
func (p *BindingPlan) StrategyOf(name string) (Strategy, bool) {
	s, ok := p.Strategies[name]
	return s, ok
}

// ReferenceValue is a per-cycle, per-name lazy cell (§3 Data model;
// §9 design note on "lazy reference cells with interior mutation"). It is
// created empty by the Lazy Context (C12) and mutated exactly once, on
// first read, by the Variable Resolver Pipeline (C4). Its lifetime is a
// single evaluation cycle.
type ReferenceValue struct {
	Reference string
	Strategy  Strategy
	resolved  bool
	value     Scalar
}

// NewReferenceValue creates an empty cell for the given name.
func NewReferenceValue(name string, strat Strategy) *ReferenceValue {
	return &ReferenceValue{Reference: name, Strategy: strat}
}

// Resolved reports whether the cell has been populated this cycle.
func (r *ReferenceValue) Resolved() bool { return r.resolved }

// Value returns the cached value and whether it has been resolved.
func (r *ReferenceValue) Value() (Scalar, bool) { return r.value, r.resolved }

// Set populates the cell. Subsequent calls are no-ops: a ReferenceValue is
// written at most once per cycle (§4.4 "memoized per cycle").
func (r *ReferenceValue) Set(v Scalar) {
	if r.resolved {
		return
	}
	r.value = v
	r.resolved = true
}
