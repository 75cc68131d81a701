package orchestrator

import (
	"context"

	"github.com/LegoTypes/synthformula/internal/classify"
	"github.com/LegoTypes/synthformula/internal/evaluator"
	"github.com/LegoTypes/synthformula/internal/resolver"
	"github.com/LegoTypes/synthformula/internal/types"
)

// SensorResult is one sensor's outcome for a single cycle, returned from
// RunCycle for callers (telemetry, storage export) that need per-sensor
// detail beyond the registry's current-value view.
type SensorResult struct {
	Key        string
	Value      types.Scalar
	Attributes map[string]types.Scalar
	Skipped    bool // breaker tripped; sensor was not evaluated this cycle

	// UnavailableDependencies lists one dependency line per distinct free
	// name the main formula referenced that resolved to a propagated state
	// this cycle (§4.10 "Invalid-expression guard"; §8 scenario 4). Set
	// only when Value itself is propagated; nil otherwise.
	UnavailableDependencies []string
}

// BeginCycle disables the Result Cache and bumps the cycle id (§4.8 step 1
// "disable Result Cache; snapshot cross-sensor registry; record cycle-id").
// The registry itself needs no explicit snapshot here: Read() takes its own
// snapshot lazily between cycles, and within a cycle the registry is read
// live by design (§5 "cross-sensor reads always see the current-cycle
// value of dependencies").
func (o *Orchestrator) BeginCycle() {
	o.result.BeginCycle()
	o.cycleID++
}

// RunCycle evaluates every sensor in topological order: main formula, then
// that sensor's attribute sub-DAG in dependency order, writing results to
// the cross-sensor registry as it goes (§4.8 steps 2–3). Call BeginCycle
// before and EndCycle after.
func (o *Orchestrator) RunCycle() []SensorResult {
	results, _ := o.RunCycleContext(context.Background())
	return results
}

// RunCycleContext is RunCycle with a cancellation boundary at every sensor
// (§5 "A cycle is cancellable at sensor boundaries; partial results from a
// cancelled cycle are discarded"). On cancellation it returns (nil, err)
// before evaluating the sensor where the boundary was hit; passing that nil
// result to EndCycle re-enables the Result Cache and sends no change
// notifications.
func (o *Orchestrator) RunCycleContext(ctx context.Context) ([]SensorResult, error) {
	results := make([]SensorResult, 0, len(o.order))
	for _, key := range o.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, o.evalSensor(key))
	}
	return results, nil
}

func (o *Orchestrator) evalSensor(key string) SensorResult {
	if cat, ok := o.breaker.TrippedCategory(key); ok {
		o.logger.Debug("skipping tripped sensor", "sensor", key, "category", cat)
		return SensorResult{Key: key, Value: o.registry.Get(key), Skipped: true}
	}

	prog := o.programs[key]
	stateValue, stateAttrs := o.seedState(prog)

	var diagnostics []string
	lazy := evaluator.NewLazyContext(prog.main.Plan)
	lazy.SeedState(stateValue)
	cycle := &resolver.Cycle{
		Plan:             prog.main.Plan,
		Variables:        prog.variables,
		Registry:         o.registry,
		DataSource:       o.dataSource,
		Catalog:          o.catalog,
		Compare:          o.eval.Compare,
		StateValue:       stateValue,
		StateAttributes:  stateAttrs,
		SensorExternalID: prog.config.ExternalID,
		Diagnostics:      &diagnostics,
	}

	mainValue, err := o.eval.Eval(prog.main.Expr.AST(), lazy, cycle)
	if err != nil {
		return o.tripAndReport(key, err)
	}

	o.previous[key] = mainValue
	o.registry.Set(key, mainValue)

	result := SensorResult{Key: key, Value: mainValue}
	if mainValue.IsPropagated() {
		result.UnavailableDependencies = diagnostics
	}

	// §4.8d: skip attribute evaluation only when the main result is
	// Unavailable; Unknown still flows through to attributes, which will
	// themselves propagate it via `state`.
	if mainValue.IsUnavailable() {
		o.registry.SetAttributes(key, nil)
		return result
	}

	attrs := o.evalAttributes(prog, mainValue, stateAttrs)
	o.registry.SetAttributes(key, attrs)
	result.Attributes = attrs
	return result
}

// evalAttributes evaluates prog's attribute sub-DAG in dependency order,
// with `state` bound to the just-computed main value for every attribute
// (§4.8f "repeat with state bound to the just-computed main value").
func (o *Orchestrator) evalAttributes(prog *sensorProgram, mainValue types.Scalar, stateAttrs map[string]types.Scalar) map[string]types.Scalar {
	local := make(map[string]types.Scalar, len(prog.attrOrder))
	for _, name := range prog.attrOrder {
		entry, ok := prog.attrEntries[name]
		if !ok {
			continue
		}
		lazy := evaluator.NewLazyContext(entry.Plan)
		lazy.SeedState(mainValue)
		cycle := &resolver.Cycle{
			Plan:            entry.Plan,
			Variables:       prog.variables,
			Registry:        o.registry,
			DataSource:      o.dataSource,
			Catalog:         o.catalog,
			Compare:         o.eval.Compare,
			StateValue:      mainValue,
			StateAttributes: stateAttrs,
			LocalAttributes: local,
		}
		v, err := o.eval.Eval(entry.Expr.AST(), lazy, cycle)
		if err != nil {
			o.breaker.Trip(prog.config.Key, err)
			o.logger.Error("attribute evaluation failed",
				"sensor", prog.config.Key, "attribute", name, "error", err)
			v = types.Unavailable
		}
		local[name] = v
	}
	return local
}

// tripAndReport classifies a fatal evaluation error, trips the sensor's
// circuit breaker, writes Unavailable to the registry so dependents see a
// propagated value rather than a stale one, and returns the cycle result.
func (o *Orchestrator) tripAndReport(key string, err error) SensorResult {
	o.breaker.Trip(key, err)
	cat := classify.Classify(err)
	if se, ok := o.breaker.TrippedError(key); ok {
		o.logger.Error("sensor evaluation failed",
			"sensor", key, "category", cat, "kind", se.Kind, "formula", se.Formula,
			"position", se.Position, "unresolved", se.Unresolved, "error", err)
	} else {
		o.logger.Error("sensor evaluation failed", "sensor", key, "category", cat, "error", err)
	}
	o.registry.Set(key, types.Unavailable)
	o.registry.SetAttributes(key, nil)
	return SensorResult{Key: key, Value: types.Unavailable}
}

// EndCycle re-enables the Result Cache, committing buffered writes, and
// notifies the Host of every sensor whose value changed this cycle (§4.8
// step 4). before is the caller's snapshot of registry values taken prior
// to RunCycle (e.g. via Registry().Snapshot()); after is RunCycle's
// return value.
func (o *Orchestrator) EndCycle(before map[string]types.Scalar, after []SensorResult) {
	o.result.EndCycle()
	if o.onChange == nil {
		return
	}
	for _, r := range after {
		if r.Skipped {
			continue
		}
		prev, existed := before[r.Key]
		if !existed || !prev.Equal(r.Value) {
			o.onChange(r.Key, r.Value)
		}
	}
}
