package config

import (
	"github.com/LegoTypes/synthformula/internal/types"
)

// Validate checks structural invariants of a SensorSet before any
// evaluation begins (§3 "Invariant: sensor keys are unique within a set";
// §4.12 fatal configuration error codes).
func Validate(set types.SensorSet) error {
	seen := make(map[string]struct{}, len(set.Sensors))
	for _, s := range set.Sensors {
		if s.Key == "" {
			return types.NewError(types.ErrDuplicateSensorKey, "sensor key must not be empty")
		}
		if _, ok := seen[s.Key]; ok {
			return types.NewError(types.ErrDuplicateSensorKey, "duplicate sensor key").WithName(s.Key)
		}
		seen[s.Key] = struct{}{}

		if err := validateEntityRefs(s); err != nil {
			return err
		}
	}
	return nil
}

// validateEntityRefs rejects an EntityRef variable bound to an empty
// identifier — a malformed DataSource registration rather than a genuine
// resolution failure (§4.12 CONFIG_EMPTY_DATASOURCE).
func validateEntityRefs(s types.SensorConfig) error {
	for name, vb := range s.Variables {
		if vb.Kind == types.VarEntityRef && vb.EntityID == "" {
			return types.NewError(types.ErrEmptyDataSource, "entity-ref variable has an empty identifier").
				WithName(name).WithFormula(s.Key)
		}
	}
	return nil
}
