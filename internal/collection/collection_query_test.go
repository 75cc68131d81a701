package collection_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/collection"
	"github.com/LegoTypes/synthformula/internal/compare"
	"github.com/LegoTypes/synthformula/internal/host"
	"github.com/LegoTypes/synthformula/internal/types"
)

type fakeCatalog struct {
	entities map[string]host.Entity
}

func (c fakeCatalog) Get(id string) (host.Entity, bool) {
	e, ok := c.entities[id]
	return e, ok
}

func (c fakeCatalog) Iter() []string {
	ids := make([]string, 0, len(c.entities))
	for id := range c.entities {
		ids = append(ids, id)
	}
	return ids
}

func sampleCatalog() fakeCatalog {
	return fakeCatalog{entities: map[string]host.Entity{
		"sensor.door":   {ID: "sensor.door", State: types.String("on"), DeviceClass: "door", Area: "kitchen"},
		"sensor.window": {ID: "sensor.window", State: types.String("off"), DeviceClass: "window", Area: "kitchen"},
		"sensor.temp1":  {ID: "sensor.temp1", State: types.Number(21.5), DeviceClass: "temperature", Area: "kitchen"},
		"sensor.temp2":  {ID: "sensor.temp2", State: types.Number(18.5), DeviceClass: "temperature", Area: "garage"},
	}}
}

func TestParseDeviceClassOr(t *testing.T) {
	q, err := collection.Parse("device_class:door|window")
	require.NoError(t, err)
	require.Len(t, q.Clauses, 1)
	require.Equal(t, []string{"door", "window"}, q.Clauses[0].Tokens)
}

func TestEvaluateDeviceClassOr(t *testing.T) {
	q, err := collection.Parse("device_class:door|window")
	require.NoError(t, err)
	ids, err := collection.Evaluate(q, sampleCatalog(), compare.NewRegistry())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"sensor.door", "sensor.window"}, ids)
}

func TestEvaluateAndAcrossPatterns(t *testing.T) {
	q, err := collection.Parse("device_class:temperature area:kitchen")
	require.NoError(t, err)
	ids, err := collection.Evaluate(q, sampleCatalog(), compare.NewRegistry())
	require.NoError(t, err)
	require.Equal(t, []string{"sensor.temp1"}, ids)
}

func TestEvaluateAttributeComparison(t *testing.T) {
	q, err := collection.Parse("attribute:brightness>50")
	require.NoError(t, err)
	catalog := fakeCatalog{entities: map[string]host.Entity{
		"a": {Attributes: map[string]types.Scalar{"brightness": types.Number(80)}},
		"b": {Attributes: map[string]types.Scalar{"brightness": types.Number(10)}},
	}}
	ids, err := collection.Evaluate(q, catalog, compare.NewRegistry())
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids)
}

func TestEvaluateStateComparison(t *testing.T) {
	q, err := collection.Parse("state>20")
	require.NoError(t, err)
	ids, err := collection.Evaluate(q, sampleCatalog(), compare.NewRegistry())
	require.NoError(t, err)
	require.Equal(t, []string{"sensor.temp1"}, ids)
}

func TestAggregateSumAndAvg(t *testing.T) {
	c := sampleCatalog()
	require.Equal(t, types.Number(40.0), collection.Aggregate(collection.AggSum, []string{"sensor.temp1", "sensor.temp2"}, c))
	require.Equal(t, types.Number(20.0), collection.Aggregate(collection.AggAvg, []string{"sensor.temp1", "sensor.temp2"}, c))
}

func TestAggregateEmptyMatchIsZero(t *testing.T) {
	c := sampleCatalog()
	require.Equal(t, types.Number(0), collection.Aggregate(collection.AggSum, nil, c))
}

func TestAggregateIgnoresNonNumericStates(t *testing.T) {
	c := sampleCatalog()
	got := collection.Aggregate(collection.AggAvg, []string{"sensor.door", "sensor.temp1"}, c)
	require.Equal(t, types.Number(21.5), got, "non-numeric 'on' state must be skipped, not treated as 0")
}

func TestAggregateAllNonNumericIsZero(t *testing.T) {
	c := sampleCatalog()
	got := collection.Aggregate(collection.AggAvg, []string{"sensor.door", "sensor.window"}, c)
	require.Equal(t, types.Number(0), got)
}

func TestAggregateCount(t *testing.T) {
	c := sampleCatalog()
	require.Equal(t, types.Integer(2), collection.Aggregate(collection.AggCount, []string{"a", "b"}, c))
}

func TestParseUnknownDimensionErrors(t *testing.T) {
	_, err := collection.Parse("bogus:value")
	require.Error(t, err)
}
