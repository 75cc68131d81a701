// Package host declares the collaborator contracts the engine expects from
// its embedder (§6 Host): the entity catalog backing HostEntity resolution
// and collection queries, and the DataSource callback backing DataSource
// resolution. Both are read-only, synchronous, and non-blocking from the
// engine's point of view (§5 "resolvers ... themselves expected to be
// non-blocking").
package host

import "github.com/LegoTypes/synthformula/internal/types"

// Entity is the read-only view of one host-catalog entity exposed to
// collection queries and HostEntity resolution (§4.6 "get(entity_id) ->
// {state, attributes, device_class, area, tags}").
type Entity struct {
	ID          string
	State       types.Scalar
	Attributes  map[string]types.Scalar
	DeviceClass string
	Area        string
	Tags        []string
	Label       string
}

// Attribute returns the named attribute value, if present.
func (e Entity) Attribute(name string) (types.Scalar, bool) {
	v, ok := e.Attributes[name]
	return v, ok
}

// Catalog is the host entity catalog collaborator (§4.6, §6 "Host entity
// catalog"). Implementations must be safe for concurrent read access; the
// engine never mutates a Catalog.
type Catalog interface {
	// Get returns the entity for id, and whether it is registered at all.
	Get(id string) (Entity, bool)
	// Iter returns every entity id currently in the catalog (§4.6
	// "iter_entities()"). Order is not significant to the engine.
	Iter() []string
}

// DataSource is the host data-source collaborator (§4.3 step 4, §4.4
// priority-5 resolver, §6 "DataSource callback"). A registered id always
// returns exists=true; value is types.Unknown when the id is owned but has
// no current reading ("present mapping with None value -> Unknown", §4.4).
type DataSource interface {
	// Lookup returns the current value for id and whether id is owned by
	// this data source at all. exists=false means the id is not mapped —
	// the caller must treat this as a fatal MissingDependency.
	Lookup(id string) (value types.Scalar, exists bool)
}
