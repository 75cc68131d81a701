package orchestrator

import "github.com/LegoTypes/synthformula/internal/types"

// seedState resolves the value `state` should carry into a sensor's main
// formula evaluation this cycle (§4.8c): the backing entity's current
// value when the sensor declares one, otherwise the sensor's own previous
// cycle value (Unknown on the very first cycle).
func (o *Orchestrator) seedState(prog *sensorProgram) (types.Scalar, map[string]types.Scalar) {
	if !prog.config.HasBackingEntity() {
		if v, ok := o.previous[prog.config.Key]; ok {
			return v, nil
		}
		return types.Unknown, nil
	}
	return o.lookupBackingEntity(prog.config.ExternalID)
}

// lookupBackingEntity resolves a sensor's backing external id, trying the
// DataSource collaborator before the Host entity catalog — the same
// precedence the Binding Plan Builder applies to ordinary free names (§4.3
// steps 4-5: DataSource registration beats Host catalog registration). A
// DataSource-registered id with no current reading seeds `state` with
// Unknown rather than Unavailable ("present mapping with None value ->
// Unknown", §4.4); an id owned by neither collaborator seeds Unavailable.
func (o *Orchestrator) lookupBackingEntity(externalID string) (types.Scalar, map[string]types.Scalar) {
	if o.dataSource != nil {
		if v, ok := o.dataSource.Lookup(externalID); ok {
			return v, nil
		}
	}
	if o.catalog != nil {
		if entity, ok := o.catalog.Get(externalID); ok {
			return entity.State, entity.Attributes
		}
	}
	return types.Unavailable, nil
}
