package binding_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/binding"
	"github.com/LegoTypes/synthformula/internal/parser"
	"github.com/LegoTypes/synthformula/internal/types"
)

func buildPlan(t *testing.T, formula string, ctx binding.Context) *types.BindingPlan {
	t.Helper()
	expr, err := parser.Parse(formula)
	require.NoError(t, err)
	return binding.NewBuilder().Build(expr.AST(), ctx)
}

func TestStateToken(t *testing.T) {
	plan := buildPlan(t, "state * 1.1", binding.Context{})
	strat, ok := plan.StrategyOf("state")
	require.True(t, ok)
	require.Equal(t, types.StrategyState, strat)
}

func TestDataSourceEntityRef(t *testing.T) {
	ctx := binding.Context{
		Variables: map[string]types.VariableBinding{
			"power": types.EntityRef("x.power"),
		},
		DataSourceRegistered: func(id string) bool { return id == "x.power" },
	}
	plan := buildPlan(t, "power * 2", ctx)
	strat, _ := plan.StrategyOf("power")
	require.Equal(t, types.StrategyDataSource, strat)
}

func TestHostEntityFallback(t *testing.T) {
	ctx := binding.Context{
		Variables: map[string]types.VariableBinding{
			"power": types.EntityRef("x.power"),
		},
		DataSourceRegistered: func(string) bool { return false },
		HostEntityRegistered: func(id string) bool { return id == "x.power" },
	}
	plan := buildPlan(t, "power * 2", ctx)
	strat, _ := plan.StrategyOf("power")
	require.Equal(t, types.StrategyHostEntity, strat)
}

func TestLiteralBinding(t *testing.T) {
	ctx := binding.Context{
		Variables: map[string]types.VariableBinding{
			"factor": types.LiteralBinding(types.Number(1.1)),
		},
	}
	plan := buildPlan(t, "state * factor", ctx)
	strat, _ := plan.StrategyOf("factor")
	require.Equal(t, types.StrategyLiteral, strat)
}

func TestCrossSensorReference(t *testing.T) {
	ctx := binding.Context{
		SiblingKeys: map[string]struct{}{"base": {}},
	}
	plan := buildPlan(t, "base * 1.1", ctx)
	strat, _ := plan.StrategyOf("base")
	require.Equal(t, types.StrategyCrossSensor, strat)
}

func TestUnregisteredExternalIDIsFatal(t *testing.T) {
	plan := buildPlan(t, "x.unknown + 1", binding.Context{})
	strat, _ := plan.StrategyOf("x.unknown")
	require.Equal(t, types.StrategyMissing, strat)
	require.Contains(t, plan.MissingNames, "x.unknown")
}

func TestMemberAccessRecordsMetadata(t *testing.T) {
	plan := buildPlan(t, "state.voltage", binding.Context{})
	require.True(t, plan.HasMetadata)
	require.Equal(t, []types.MetadataCall{{Target: "state", Field: "voltage"}}, plan.MetadataCalls)
}

func TestCollectionQueryRecorded(t *testing.T) {
	plan := buildPlan(t, `count("device_class:door|window")`, binding.Context{})
	require.True(t, plan.HasCollections)
	require.Equal(t, []string{"device_class:door|window"}, plan.CollectionQueries)
}
