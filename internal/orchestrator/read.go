package orchestrator

import (
	"github.com/LegoTypes/synthformula/internal/evaluator"
	"github.com/LegoTypes/synthformula/internal/registry"
	"github.com/LegoTypes/synthformula/internal/resolver"
	"github.com/LegoTypes/synthformula/internal/resultcache"
	"github.com/LegoTypes/synthformula/internal/types"
)

// Read serves a single-sensor value request between cycles: a Result Cache
// hit returns immediately, and a miss recomputes using the cross-sensor
// registry's current snapshot without touching the DataSource collaborator
// — "fresh data only flows during a cycle" (§4.8 "Between cycles, external
// readers ... without touching upstream data sources"). The Host entity
// catalog is still consulted: it is an in-memory, already-fetched view,
// not an upstream push source.
func (o *Orchestrator) Read(key string) (types.Scalar, error) {
	prog, ok := o.programs[key]
	if !ok {
		return types.Scalar{}, types.NewError(types.ErrMissingDependency, "unknown sensor key").WithName(key)
	}
	if o.breaker.IsTripped(key) {
		return o.registry.Get(key), nil
	}

	snap := o.registry.Snapshot()
	fp := fingerprintSnapshot(prog, snap)

	if v, ok := o.result.Get(prog.main.Expr.Source(), fp); ok {
		return v, nil
	}

	stateValue := types.Unknown
	var stateAttrs map[string]types.Scalar
	if prog.config.HasBackingEntity() {
		// Deliberately catalog-only, unlike seedState's cycle-time lookup:
		// the Host catalog is an in-memory, already-fetched view, but the
		// DataSource collaborator is the upstream push source itself, and
		// §4.8 requires between-cycle reads to never touch it.
		if o.catalog != nil {
			if entity, ok := o.catalog.Get(prog.config.ExternalID); ok {
				stateValue, stateAttrs = entity.State, entity.Attributes
			} else {
				stateValue = types.Unavailable
			}
		} else {
			stateValue = types.Unavailable
		}
	} else if v, ok := o.previous[key]; ok {
		stateValue = v
	}

	lazy := evaluator.NewLazyContext(prog.main.Plan)
	lazy.SeedState(stateValue)
	cycle := &resolver.Cycle{
		Plan:            prog.main.Plan,
		Variables:       prog.variables,
		Registry:        o.registry,
		DataSource:      nil, // deliberately not touching upstream data sources
		Catalog:         o.catalog,
		Compare:         o.eval.Compare,
		StateValue:      stateValue,
		StateAttributes: stateAttrs,
	}

	v, err := o.eval.Eval(prog.main.Expr.AST(), lazy, cycle)
	if err != nil {
		return types.Scalar{}, err
	}
	o.result.Put(prog.main.Expr.Source(), fp, v)
	return v, nil
}

// fingerprintSnapshot canonicalizes the context a between-cycle read
// depends on: the sensor's own merged literal variables plus every sibling
// value the registry currently holds (§4.9 Fingerprint).
func fingerprintSnapshot(prog *sensorProgram, snap registry.Snapshot) uint64 {
	ctx := make(map[string]types.Scalar, len(prog.main.Plan.Names))
	for _, name := range prog.main.Plan.Names {
		strat, _ := prog.main.Plan.StrategyOf(name)
		switch strat {
		case types.StrategyCrossSensor:
			ctx[name] = snap.Get(name)
		case types.StrategyLiteral:
			if vb, ok := prog.variables[name]; ok {
				ctx[name] = vb.Literal
			}
		}
	}
	return resultcache.Fingerprint(ctx)
}
