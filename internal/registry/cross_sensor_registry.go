// Package registry implements the Cross-Sensor Registry (C10): the current
// post-evaluation values of sibling sensors, plus the rename-stable mapping
// between sensor keys and host-assigned external identifiers.
package registry

import (
	"sync"

	"github.com/LegoTypes/synthformula/internal/types"
)

// Registry holds current sensor values, mutated only by the orchestrator
// and read via an immutable Snapshot by everything else (§5 concurrency
// model: "mutated only by the orchestrator; external reads use a snapshot").
type Registry struct {
	mu         sync.RWMutex
	values     map[string]types.Scalar
	externalID map[string]string
	attributes map[string]map[string]types.Scalar
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		values:     make(map[string]types.Scalar),
		externalID: make(map[string]string),
		attributes: make(map[string]map[string]types.Scalar),
	}
}

// Register maps a sensor key to its host-assigned external id (§4.11
// "register(key, external_id)"), used for config export rewriting.
func (r *Registry) Register(key, externalID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.externalID[key] = externalID
	if _, ok := r.values[key]; !ok {
		r.values[key] = types.Unknown
	}
}

// Unregister removes a sensor's registry entry (§3 lifecycle: "removed on
// sensor removal").
func (r *Registry) Unregister(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	delete(r.externalID, key)
	delete(r.attributes, key)
}

// Set records a sensor's current-cycle value (§4.11 "set(key, value)"),
// called by the orchestrator immediately after evaluating that sensor.
func (r *Registry) Set(key string, value types.Scalar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

// SetAttributes records a sensor's current-cycle attribute values, read by
// MemberAccess on a sibling sensor (e.g. `sensor.voltage`) (§4.10
// "fetch from C10's attribute map").
func (r *Registry) SetAttributes(key string, attrs map[string]types.Scalar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attributes[key] = attrs
}

// Attribute returns a sibling sensor's named attribute value, and whether
// it is present.
func (r *Registry) Attribute(key, name string) (types.Scalar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	attrs, ok := r.attributes[key]
	if !ok {
		return types.Scalar{}, false
	}
	v, ok := attrs[name]
	return v, ok
}

// Get returns a sensor's current value, or Unknown if it has never been
// evaluated (§4.11 "get(key) -> Scalar"), called by the Variable Resolver
// Pipeline's CrossSensorResolver.
func (r *Registry) Get(key string) types.Scalar {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.values[key]; ok {
		return v
	}
	return types.Unknown
}

// ExternalID returns the host-assigned external id for key, if registered.
func (r *Registry) ExternalID(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.externalID[key]
	return id, ok
}

// Snapshot is an immutable point-in-time view of the registry, used for
// inter-cycle external reads (§4.11 "snapshot()").
type Snapshot struct {
	values     map[string]types.Scalar
	externalID map[string]string
	attributes map[string]map[string]types.Scalar
}

// Snapshot captures the registry's current state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	values := make(map[string]types.Scalar, len(r.values))
	for k, v := range r.values {
		values[k] = v
	}
	ext := make(map[string]string, len(r.externalID))
	for k, v := range r.externalID {
		ext[k] = v
	}
	attrs := make(map[string]map[string]types.Scalar, len(r.attributes))
	for k, m := range r.attributes {
		cp := make(map[string]types.Scalar, len(m))
		for name, v := range m {
			cp[name] = v
		}
		attrs[k] = cp
	}
	return Snapshot{values: values, externalID: ext, attributes: attrs}
}

// Get returns a sensor's value as of when the snapshot was taken.
func (s Snapshot) Get(key string) types.Scalar {
	if v, ok := s.values[key]; ok {
		return v
	}
	return types.Unknown
}

// ExternalID returns the host-assigned external id recorded at snapshot time.
func (s Snapshot) ExternalID(key string) (string, bool) {
	id, ok := s.externalID[key]
	return id, ok
}

// Attribute returns a sensor's named attribute value as of snapshot time.
func (s Snapshot) Attribute(key, name string) (types.Scalar, bool) {
	attrs, ok := s.attributes[key]
	if !ok {
		return types.Scalar{}, false
	}
	v, ok := attrs[name]
	return v, ok
}
