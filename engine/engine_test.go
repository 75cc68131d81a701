package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/engine"
	"github.com/LegoTypes/synthformula/internal/types"
)

func formula(text string) types.Formula { return types.Formula{Text: text} }

func sensorSet() types.SensorSet {
	return types.SensorSet{
		Name: "demo",
		Sensors: []types.SensorConfig{
			{
				Key:       "base_power",
				Main:      formula("raw"),
				Variables: map[string]types.VariableBinding{"raw": types.LiteralBinding(types.Number(10))},
			},
			{
				Key:  "scaled_power",
				Main: formula("base_power * 3"),
			},
		},
	}
}

func TestEngineUpdateEvaluatesInDependencyOrder(t *testing.T) {
	e, err := engine.New(sensorSet(), nil, nil)
	require.NoError(t, err)

	results, err := e.Update(context.Background())
	require.NoError(t, err)

	byKey := map[string]types.Scalar{}
	for _, r := range results {
		byKey[r.Key] = r.Value
	}
	require.Equal(t, types.Number(10), byKey["base_power"])
	require.Equal(t, types.Number(30), byKey["scaled_power"])
}

func TestEngineUpdateReturnsErrorOnCancellation(t *testing.T) {
	e, err := engine.New(sensorSet(), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := e.Update(ctx)
	require.Error(t, err)
	require.Nil(t, results)
}

func TestEngineReadAfterUpdate(t *testing.T) {
	e, err := engine.New(sensorSet(), nil, nil)
	require.NoError(t, err)

	_, err = e.Update(context.Background())
	require.NoError(t, err)

	v, err := e.Read("scaled_power")
	require.NoError(t, err)
	require.Equal(t, types.Number(30), v)
}

func TestEngineOnChangeNotifiesOnlyChangedSensors(t *testing.T) {
	var notified []string
	e, err := engine.New(sensorSet(), nil, nil, engine.WithOnChange(func(key string, value types.Scalar) {
		notified = append(notified, key)
	}))
	require.NoError(t, err)

	_, err = e.Update(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"base_power", "scaled_power"}, notified)

	notified = nil
	_, err = e.Update(context.Background())
	require.NoError(t, err)
	require.Empty(t, notified, "second cycle over unchanged literals should notify nothing")
}

func TestEngineReloadResetsBreakerAndCache(t *testing.T) {
	e, err := engine.New(sensorSet(), nil, nil)
	require.NoError(t, err)

	broken := sensorSet()
	broken.Sensors[0].Main = formula("undefined_name")
	require.NoError(t, e.Reload(broken))

	_, tripped := e.BreakerCategory("base_power")
	require.True(t, tripped, "Reload must trip the breaker for a sensor whose formula references an unresolvable name")

	require.NoError(t, e.Reload(sensorSet()))
	_, tripped = e.BreakerCategory("base_power")
	require.False(t, tripped, "Reload must reset every circuit breaker")
}

func TestEngineExplainReportsResolutionStrategies(t *testing.T) {
	e, err := engine.New(sensorSet(), nil, nil)
	require.NoError(t, err)

	exp, err := e.Explain("scaled_power")
	require.NoError(t, err)
	require.Equal(t, "scaled_power", exp.Key)
	require.Len(t, exp.Main.Resolved, 1)
	require.Equal(t, "base_power", exp.Main.Resolved[0].Name)
	require.Equal(t, "cross_sensor", exp.Main.Resolved[0].Strategy)
	require.Empty(t, exp.Main.Unresolved)
}

func TestEngineExplainReportsUnresolvedName(t *testing.T) {
	broken := sensorSet()
	broken.Sensors[0].Main = formula("undefined_name")
	e, err := engine.New(broken, nil, nil)
	require.NoError(t, err, "a sensor with an unresolvable name trips its breaker at load, it doesn't fail New")

	exp, err := e.Explain("base_power")
	require.NoError(t, err)
	require.Equal(t, []string{"undefined_name"}, exp.Main.Unresolved)
}

func TestEngineExportRoundTripsThroughStorage(t *testing.T) {
	e, err := engine.New(sensorSet(), nil, nil)
	require.NoError(t, err)

	data, err := e.Export()
	require.NoError(t, err)
	require.Contains(t, string(data), "base_power")
}
