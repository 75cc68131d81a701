package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/config"
	"github.com/LegoTypes/synthformula/internal/types"
)

func TestMergeVariablesSensorOverridesGlobal(t *testing.T) {
	global := map[string]types.VariableBinding{
		"threshold": types.LiteralBinding(types.Number(10)),
		"shared":    types.LiteralBinding(types.Number(1)),
	}
	sensor := map[string]types.VariableBinding{
		"threshold": types.LiteralBinding(types.Number(99)),
	}
	merged, err := config.MergeVariables(global, sensor)
	require.NoError(t, err)
	require.Equal(t, types.Number(99), merged["threshold"].Literal)
	require.Equal(t, types.Number(1), merged["shared"].Literal)
}

func TestMergeVariablesEmptySensor(t *testing.T) {
	global := map[string]types.VariableBinding{"x": types.LiteralBinding(types.Number(1))}
	merged, err := config.MergeVariables(global, nil)
	require.NoError(t, err)
	require.Equal(t, types.Number(1), merged["x"].Literal)
}
