// Package classify implements the Error Classifier (C11): partitioning
// evaluation failures into a reporting category, and tracking the circuit
// breaker that suppresses re-evaluation of a sensor after a fatal error
// until the next configuration reload (§4.12).
package classify

import (
	"sync"

	"github.com/LegoTypes/synthformula/internal/types"
)

// Category is the classifier's output taxonomy (§4.12 "Error kinds").
// Every category here is fatal by construction — transient states never
// reach the classifier because they are Scalar values, not errors (§4.12
// "TransientUnknown / TransientUnavailable — not errors; they propagate as
// result states").
type Category string

const (
	CategoryParse              Category = "parse_error"
	CategoryMissingDependency  Category = "missing_dependency"
	CategoryCircularDependency Category = "circular_dependency"
	CategoryHandler            Category = "handler_error"
	CategoryDataValidation     Category = "data_validation_error"
	CategoryUnknown            Category = "unknown_error"
)

// Classify maps a structured Error to its reporting category.
func Classify(err error) Category {
	e, ok := err.(*types.Error)
	if !ok {
		return CategoryUnknown
	}
	switch e.Code {
	case types.ErrSyntaxError, types.ErrExpectedToken, types.ErrParse:
		return CategoryParse
	case types.ErrMissingDependency, types.ErrMissingAttribute:
		return CategoryMissingDependency
	case types.ErrCircularDependency:
		return CategoryCircularDependency
	case types.ErrHandler:
		return CategoryHandler
	case types.ErrDataValidation:
		return CategoryDataValidation
	default:
		return CategoryUnknown
	}
}

// tripRecord is what a tripped sensor retains: its reporting category plus,
// when the triggering error carried one, the structured *types.Error behind
// it — the source for the sensor's diagnostic attribute (§7).
type tripRecord struct {
	category Category
	err      *types.Error
}

// Breaker is the per-sensor circuit breaker (§4.12 "Fatal errors trigger a
// circuit breaker for the offending sensor: subsequent cycles skip
// evaluation until configuration is reloaded").
type Breaker struct {
	mu      sync.RWMutex
	tripped map[string]tripRecord
}

// NewBreaker creates an empty circuit breaker.
func NewBreaker() *Breaker {
	return &Breaker{tripped: make(map[string]tripRecord)}
}

// Trip records that sensorKey failed fatally with err, suppressing further
// evaluation of that sensor.
func (b *Breaker) Trip(sensorKey string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	se, _ := err.(*types.Error)
	b.tripped[sensorKey] = tripRecord{category: Classify(err), err: se}
}

// IsTripped reports whether sensorKey's breaker is currently open.
func (b *Breaker) IsTripped(sensorKey string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.tripped[sensorKey]
	return ok
}

// TrippedCategory returns the category that tripped sensorKey's breaker, if
// any.
func (b *Breaker) TrippedCategory(sensorKey string) (Category, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.tripped[sensorKey]
	return r.category, ok
}

// TrippedError returns the diagnostic attribute for sensorKey's trip, if
// the triggering error was a structured *types.Error (§7 diagnostic
// attribute: error kind, formula location, unresolved dependency names).
func (b *Breaker) TrippedError(sensorKey string) (types.SensorError, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.tripped[sensorKey]
	if !ok || r.err == nil {
		return types.SensorError{}, false
	}
	return r.err.ToSensorError(), true
}

// Reset clears a single sensor's breaker (used when that sensor's
// configuration is specifically replaced).
func (b *Breaker) Reset(sensorKey string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tripped, sensorKey)
}

// ResetAll clears every tripped breaker (§4.12 "until configuration is
// reloaded").
func (b *Breaker) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tripped = make(map[string]tripRecord)
}
