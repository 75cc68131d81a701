// Package orchestrator implements the Evaluation Orchestrator (C8): the
// per-cycle driver that walks a sensor set in dependency order, wiring the
// compilation cache, binding plan builder, dependency graph, variable
// resolver pipeline, tree-walking evaluator, cross-sensor registry, result
// cache, and error classifier into the begin_cycle / evaluate / end_cycle
// protocol (§4.8).
package orchestrator

import (
	"fmt"
	"log/slog"

	"github.com/LegoTypes/synthformula/internal/binding"
	"github.com/LegoTypes/synthformula/internal/classify"
	"github.com/LegoTypes/synthformula/internal/compilecache"
	"github.com/LegoTypes/synthformula/internal/config"
	"github.com/LegoTypes/synthformula/internal/evaluator"
	"github.com/LegoTypes/synthformula/internal/graph"
	"github.com/LegoTypes/synthformula/internal/host"
	"github.com/LegoTypes/synthformula/internal/parser"
	"github.com/LegoTypes/synthformula/internal/registry"
	"github.com/LegoTypes/synthformula/internal/resultcache"
	"github.com/LegoTypes/synthformula/internal/types"
)

// Options configures an Orchestrator, following the functional-options
// shape used throughout this codebase's ambient stack.
type Options struct {
	Logger       *slog.Logger
	CompileCache *compilecache.Cache
	// OnChange, when set, is invoked at end_cycle for every sensor whose
	// value changed during the cycle just finished (§4.8 step 4 "notify
	// Host of changed values").
	OnChange func(key string, value types.Scalar)
}

// Option mutates Options during New.
type Option func(*Options)

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithCompileCache supplies a compilation cache shared across sensor sets
// (§5 "the Compilation Cache's single-flight guarantees at-most-one parse
// per formula text across concurrent sensor sets sharing the cache").
func WithCompileCache(c *compilecache.Cache) Option {
	return func(o *Options) { o.CompileCache = c }
}

// WithOnChange registers a change-notification callback.
func WithOnChange(fn func(key string, value types.Scalar)) Option {
	return func(o *Options) { o.OnChange = fn }
}

// sensorProgram is everything derived once, at load time, for one sensor:
// its merged variables, its compiled main formula, its compiled attribute
// formulas, and the attribute sub-DAG's evaluation order.
type sensorProgram struct {
	config      types.SensorConfig
	variables   map[string]types.VariableBinding
	main        compilecache.Entry
	attrEntries map[string]compilecache.Entry
	attrOrder   []string
}

// Orchestrator drives one SensorSet through repeated evaluation cycles.
type Orchestrator struct {
	logger   *slog.Logger
	compile  *compilecache.Cache
	result   *resultcache.Cache
	registry *registry.Registry
	breaker  *classify.Breaker
	eval     *evaluator.Evaluator
	onChange func(key string, value types.Scalar)

	catalog    host.Catalog
	dataSource host.DataSource

	sensorGraph *graph.Graph
	order       []string
	programs    map[string]*sensorProgram

	// previous holds each sensor's last-computed main value, used to seed
	// `state` on sensors with no backing entity (§4.8c).
	previous map[string]types.Scalar
	cycleID  uint64
}

// siblingKeysExcluding returns a copy of all with self removed, so a
// sensor's own key is never classified as a cross-sensor reference to
// itself (§4.3 step 3 "another sensor's key" — self-reference runs
// through the `state` alias instead, per §3's DependencyGraph invariant).
func siblingKeysExcluding(all map[string]struct{}, self string) map[string]struct{} {
	out := make(map[string]struct{}, len(all))
	for k := range all {
		if k != self {
			out[k] = struct{}{}
		}
	}
	return out
}

// New validates set, merges variables, compiles every formula, builds the
// sensor dependency graph and every sensor's attribute sub-DAG, and
// registers each sensor with the cross-sensor registry — everything the
// spec's load-time steps require before the first cycle can run (§4.3,
// §4.5, §4.11).
func New(set types.SensorSet, catalog host.Catalog, dataSource host.DataSource, opts ...Option) (*Orchestrator, error) {
	if err := config.Validate(set); err != nil {
		return nil, err
	}

	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.CompileCache == nil {
		options.CompileCache = compilecache.New(0)
	}

	o := &Orchestrator{
		logger:     options.Logger,
		compile:    options.CompileCache,
		result:     resultcache.New(),
		registry:   registry.New(),
		breaker:    classify.NewBreaker(),
		eval:       evaluator.NewEvaluator(),
		onChange:   options.OnChange,
		catalog:    catalog,
		dataSource: dataSource,
		programs:   make(map[string]*sensorProgram, len(set.Sensors)),
		previous:   make(map[string]types.Scalar, len(set.Sensors)),
	}

	siblingKeys := make(map[string]struct{}, len(set.Sensors))
	for _, s := range set.Sensors {
		siblingKeys[s.Key] = struct{}{}
	}

	dsRegistered := func(id string) bool {
		if dataSource == nil {
			return false
		}
		_, ok := dataSource.Lookup(id)
		return ok
	}
	hostRegistered := func(id string) bool {
		if catalog == nil {
			return false
		}
		_, ok := catalog.Get(id)
		return ok
	}

	mainPlans := make(map[string]*types.BindingPlan, len(set.Sensors))
	builder := binding.NewBuilder()

	for _, s := range set.Sensors {
		vars, err := config.MergeVariables(set.GlobalVariables, s.Variables)
		if err != nil {
			return nil, fmt.Errorf("merging variables for sensor %q: %w", s.Key, err)
		}

		attrNames := make(map[string]struct{}, len(s.Attributes))
		for _, a := range s.Attributes {
			attrNames[a.Name] = struct{}{}
		}

		mainCtx := binding.Context{
			Variables:            vars,
			SiblingKeys:          siblingKeysExcluding(siblingKeys, s.Key),
			DataSourceRegistered: dsRegistered,
			HostEntityRegistered: hostRegistered,
		}
		mainEntry, err := o.compile.GetOrParse(s.Main.Text, func() (*types.Expression, *types.BindingPlan, error) {
			expr, err := parser.Parse(s.Main.Text)
			if err != nil {
				return nil, nil, err
			}
			return expr, builder.Build(expr.AST(), mainCtx), nil
		})
		if err != nil {
			return nil, fmt.Errorf("compiling main formula for sensor %q: %w", s.Key, err)
		}
		if len(mainEntry.Plan.MissingNames) > 0 {
			err := types.NewError(types.ErrMissingDependency, "main formula references an unresolvable name").
				WithName(mainEntry.Plan.MissingNames[0]).WithFormula("main")
			o.breaker.Trip(s.Key, err)
			o.logger.Warn("sensor tripped at load: undefined variable",
				"sensor", s.Key, "names", mainEntry.Plan.MissingNames)
		}
		mainPlans[s.Key] = mainEntry.Plan

		attrCtx := mainCtx
		attrCtx.AttributeKeys = attrNames
		attrPlans := make(map[string]*types.BindingPlan, len(s.Attributes))
		attrEntries := make(map[string]compilecache.Entry, len(s.Attributes))
		for _, a := range s.Attributes {
			entry, err := o.compile.GetOrParse(a.Formula.Text, func() (*types.Expression, *types.BindingPlan, error) {
				expr, err := parser.Parse(a.Formula.Text)
				if err != nil {
					return nil, nil, err
				}
				return expr, builder.Build(expr.AST(), attrCtx), nil
			})
			if err != nil {
				return nil, fmt.Errorf("compiling attribute %q of sensor %q: %w", a.Name, s.Key, err)
			}
			if len(entry.Plan.MissingNames) > 0 {
				err := types.NewError(types.ErrMissingDependency, "attribute formula references an unresolvable name").
					WithName(entry.Plan.MissingNames[0]).WithFormula(a.Name)
				o.breaker.Trip(s.Key, err)
				o.logger.Warn("sensor tripped at load: undefined variable in attribute",
					"sensor", s.Key, "attribute", a.Name, "names", entry.Plan.MissingNames)
			}
			attrPlans[a.Name] = entry.Plan
			attrEntries[a.Name] = entry
		}

		attrGraph := graph.BuildFromPlans(attrPlans)
		attrOrder, err := attrGraph.TopologicalOrder()
		if err != nil {
			cycleErr := types.NewError(types.ErrCircularDependency, err.Error()).WithName(s.Key)
			o.breaker.Trip(s.Key, cycleErr)
			o.logger.Warn("sensor tripped at load: attribute dependency cycle", "sensor", s.Key, "error", err)
		}

		o.programs[s.Key] = &sensorProgram{
			config:      s,
			variables:   vars,
			main:        mainEntry,
			attrEntries: attrEntries,
			attrOrder:   attrOrder,
		}

		o.registry.Register(s.Key, s.ExternalID)
	}

	o.sensorGraph = graph.BuildFromPlans(mainPlans)

	// A cycle among main-sensor formulas is fatal only for the sensors that
	// participate in it (§8 scenario 6: "both sensors in Error") — it must
	// not abort loading the rest of the set, the same localization already
	// applied to attribute-sub-DAG cycles above. Trip every cyclic sensor's
	// breaker, then clear its outgoing edges so it stays a node in the
	// topological order (still evaluated-then-skipped each cycle) without
	// forcing its former dependents to wait on an edge that can never
	// resolve.
	if cycles := o.sensorGraph.DetectCycles(); len(cycles) > 0 {
		tripped := make(map[string]struct{})
		for _, cycle := range cycles {
			for _, key := range cycle {
				if _, already := tripped[key]; already {
					continue
				}
				tripped[key] = struct{}{}
				cycleErr := types.NewError(types.ErrCircularDependency, (&graph.CycleError{Cycle: cycle}).Error()).WithName(key)
				o.breaker.Trip(key, cycleErr)
				o.logger.Warn("sensor tripped at load: circular dependency among main formulas",
					"sensor", key, "cycle", cycle)
			}
		}
		for key := range tripped {
			o.sensorGraph.BreakCycleEdges(key)
		}
	}

	order, err := o.sensorGraph.TopologicalOrder()
	if err != nil {
		return nil, types.NewError(types.ErrCircularDependency, err.Error()).WithName(set.Name)
	}
	o.order = order

	return o, nil
}

// Registry exposes the cross-sensor registry for callers that need a
// snapshot outside of a Read (e.g. config export rewriting, §4.11).
func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

// CompileCacheStats reports the shared compilation cache's statistics
// (§4.2 `stats()`).
func (o *Orchestrator) CompileCacheStats() compilecache.Stats { return o.compile.Stats() }

// BreakerCategory reports the circuit-breaker category tripped for key, if
// any (§4.12).
func (o *Orchestrator) BreakerCategory(key string) (classify.Category, bool) {
	return o.breaker.TrippedCategory(key)
}

// SensorError reports the diagnostic attribute for a tripped sensor — error
// kind, offending formula, position, and unresolved dependency names (§7
// "A sensor in Error surfaces ... with a diagnostic attribute"). ok is
// false when the sensor is not tripped.
func (o *Orchestrator) SensorError(key string) (types.SensorError, bool) {
	return o.breaker.TrippedError(key)
}

// Reload re-evaluates a new SensorSet from scratch against the same
// compilation cache, which it empties before compiling the new set,
// clearing the result cache and resetting every circuit
// breaker — the engine facade calls this on configuration reload (§8 "both
// caches are cleared before the first subsequent evaluation").
func Reload(set types.SensorSet, catalog host.Catalog, dataSource host.DataSource, opts ...Option) (*Orchestrator, error) {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	if options.CompileCache != nil {
		options.CompileCache.ClearAll()
	}
	o, err := New(set, catalog, dataSource, opts...)
	if err != nil {
		return nil, err
	}
	o.result.Clear()
	return o, nil
}
