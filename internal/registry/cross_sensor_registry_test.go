package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/registry"
	"github.com/LegoTypes/synthformula/internal/types"
)

func TestSetGet(t *testing.T) {
	r := registry.New()
	r.Register("base", "sensor.base")
	r.Set("base", types.Number(1000))
	require.Equal(t, types.Number(1000), r.Get("base"))
}

func TestGetUnevaluatedIsUnknown(t *testing.T) {
	r := registry.New()
	r.Register("base", "sensor.base")
	require.True(t, r.Get("base").IsUnknown())
}

func TestSnapshotIsImmutable(t *testing.T) {
	r := registry.New()
	r.Set("base", types.Number(1))
	snap := r.Snapshot()

	r.Set("base", types.Number(2))
	require.Equal(t, types.Number(1), snap.Get("base"))
	require.Equal(t, types.Number(2), r.Get("base"))
}

func TestSetAttributesAndAttribute(t *testing.T) {
	r := registry.New()
	r.SetAttributes("base", map[string]types.Scalar{"voltage": types.Number(3.3)})
	v, ok := r.Attribute("base", "voltage")
	require.True(t, ok)
	require.Equal(t, types.Number(3.3), v)

	_, ok = r.Attribute("base", "missing")
	require.False(t, ok)
}

func TestSnapshotCapturesAttributes(t *testing.T) {
	r := registry.New()
	r.SetAttributes("base", map[string]types.Scalar{"voltage": types.Number(1)})
	snap := r.Snapshot()
	r.SetAttributes("base", map[string]types.Scalar{"voltage": types.Number(2)})

	v, ok := snap.Attribute("base", "voltage")
	require.True(t, ok)
	require.Equal(t, types.Number(1), v)
}

func TestUnregisterRemovesEntry(t *testing.T) {
	r := registry.New()
	r.Register("base", "sensor.base")
	r.Set("base", types.Number(1))
	r.Unregister("base")
	require.True(t, r.Get("base").IsUnknown())
	_, ok := r.ExternalID("base")
	require.False(t, ok)
}
