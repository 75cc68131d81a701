package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/LegoTypes/synthformula/internal/classify"
	"github.com/LegoTypes/synthformula/internal/orchestrator"
	"github.com/LegoTypes/synthformula/internal/telemetry"
	"github.com/LegoTypes/synthformula/internal/types"
)

// Update runs one full begin_cycle/evaluate/end_cycle pass (§6 "Consumed:
// Host update driver. Invokes begin_cycle, then update... then
// end_cycle"), recording telemetry around the whole cycle and each sensor
// it evaluates. It is cancellable at sensor boundaries: on cancellation
// the cycle's partial results are discarded and the change-notification
// pass is skipped (§5 "partial results from a cancelled cycle are
// discarded").
func (e *Engine) Update(ctx context.Context) ([]orchestrator.SensorResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	var cycleSpan oteltrace.Span
	if e.tracer != nil {
		ctx, cycleSpan = e.tracer.StartCycle(ctx, e.set.Name, e.cycles+1)
	}
	e.cycles++

	before := e.snapshotValues()
	e.orch.BeginCycle()
	results, err := e.orch.RunCycleContext(ctx)
	if err != nil {
		e.orch.EndCycle(before, nil)
		if cycleSpan != nil {
			cycleSpan.RecordError(err)
			cycleSpan.SetStatus(codes.Error, err.Error())
			cycleSpan.End()
		}
		return nil, err
	}
	e.orch.EndCycle(before, results)

	changed := 0
	for _, r := range results {
		if r.Skipped {
			continue
		}
		if prev, existed := before[r.Key]; !existed || !prev.Equal(r.Value) {
			changed++
		}
	}

	if e.metrics != nil {
		e.metrics.ObserveCycleDuration(time.Since(start).Seconds())
		for _, r := range results {
			if cat, tripped := e.orch.BreakerCategory(r.Key); tripped {
				e.metrics.RecordBreakerTrip(r.Key, cat)
			}
		}
	}
	if cycleSpan != nil {
		telemetry.EndCycle(cycleSpan, start, changed)
	}

	return results, nil
}

// Read serves a between-cycle single-sensor read (§4.8, §6).
func (e *Engine) Read(key string) (types.Scalar, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orch.Read(key)
}

// BreakerCategory reports the circuit-breaker category tripped for key, if
// any (§4.12).
func (e *Engine) BreakerCategory(key string) (classify.Category, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orch.BreakerCategory(key)
}

// SensorError reports the diagnostic attribute for a sensor currently in
// Error — error kind, offending formula, position, and unresolved
// dependency names (§7).
func (e *Engine) SensorError(key string) (types.SensorError, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orch.SensorError(key)
}

func (e *Engine) snapshotValues() map[string]types.Scalar {
	snap := e.orch.Registry().Snapshot()
	out := make(map[string]types.Scalar, len(e.set.Sensors))
	for _, s := range e.set.Sensors {
		out[s.Key] = snap.Get(s.Key)
	}
	return out
}
