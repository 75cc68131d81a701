package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/config"
	"github.com/LegoTypes/synthformula/internal/types"
)

func TestValidateAcceptsWellFormedSet(t *testing.T) {
	set := types.SensorSet{
		Sensors: []types.SensorConfig{
			{Key: "panel", Main: types.Formula{Text: "watts"}},
			{Key: "battery", Main: types.Formula{Text: "panel * 2"}},
		},
	}
	require.NoError(t, config.Validate(set))
}

func TestValidateRejectsEmptyKey(t *testing.T) {
	set := types.SensorSet{Sensors: []types.SensorConfig{{Key: ""}}}
	err := config.Validate(set)
	require.Error(t, err)
	var synthErr *types.Error
	require.ErrorAs(t, err, &synthErr)
	require.Equal(t, types.ErrDuplicateSensorKey, synthErr.Code)
}

func TestValidateRejectsDuplicateKey(t *testing.T) {
	set := types.SensorSet{
		Sensors: []types.SensorConfig{
			{Key: "panel", Main: types.Formula{Text: "1"}},
			{Key: "panel", Main: types.Formula{Text: "2"}},
		},
	}
	err := config.Validate(set)
	require.Error(t, err)
	var synthErr *types.Error
	require.ErrorAs(t, err, &synthErr)
	require.Equal(t, types.ErrDuplicateSensorKey, synthErr.Code)
}

func TestValidateRejectsEmptyEntityRef(t *testing.T) {
	set := types.SensorSet{
		Sensors: []types.SensorConfig{
			{
				Key:       "panel",
				Main:      types.Formula{Text: "raw"},
				Variables: map[string]types.VariableBinding{"raw": types.EntityRef("")},
			},
		},
	}
	err := config.Validate(set)
	require.Error(t, err)
	var synthErr *types.Error
	require.ErrorAs(t, err, &synthErr)
	require.Equal(t, types.ErrEmptyDataSource, synthErr.Code)
}
