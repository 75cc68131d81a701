// Package config validates a SensorSet and merges set-level global
// variables with each sensor's own declarations (§3 Data model: SensorSet;
// §4.3 step 2 "declared in sensor variables").
package config

import (
	"fmt"

	"dario.cat/mergo"

	"github.com/LegoTypes/synthformula/internal/types"
)

// MergeVariables combines a sensor set's global variables with one
// sensor's own declarations. Sensor-level bindings override global ones of
// the same name — mergo.Merge only fills keys absent from dst, so global
// variables are merged into a copy of the sensor's own map as the
// lower-priority source.
func MergeVariables(global, sensor map[string]types.VariableBinding) (map[string]types.VariableBinding, error) {
	merged := make(map[string]types.VariableBinding, len(sensor))
	for k, v := range sensor {
		merged[k] = v
	}
	if err := mergo.Merge(&merged, global); err != nil {
		return nil, fmt.Errorf("merging global variables: %w", err)
	}
	return merged, nil
}
