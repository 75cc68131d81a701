package resultcache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/resultcache"
	"github.com/LegoTypes/synthformula/internal/types"
)

func TestEmptyAfterBeginCycle(t *testing.T) {
	c := resultcache.New()
	c.Put("state * 1.1", 1, types.Number(100))
	c.EndCycle()
	require.Equal(t, 1, c.Len())

	c.BeginCycle()
	_, ok := c.Get("state * 1.1", 1)
	require.False(t, ok, "reads must miss while the cache is disabled")
}

func TestNonEmptyAfterEndCycle(t *testing.T) {
	c := resultcache.New()
	c.BeginCycle()
	c.Put("state * 1.1", 1, types.Number(100))
	c.EndCycle()

	v, ok := c.Get("state * 1.1", 1)
	require.True(t, ok)
	require.Equal(t, types.Number(100), v)
}

func TestBeginEndCycleNoopWithoutWrites(t *testing.T) {
	c := resultcache.New()
	c.BeginCycle()
	c.EndCycle()
	require.Equal(t, 0, c.Len())
}

func TestClearEmptiesCache(t *testing.T) {
	c := resultcache.New()
	c.BeginCycle()
	c.Put("f", 1, types.Number(1))
	c.EndCycle()
	require.Equal(t, 1, c.Len())

	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestFingerprintOrderIndependent(t *testing.T) {
	a := map[string]types.Scalar{"x": types.Number(1), "y": types.String("z")}
	b := map[string]types.Scalar{"y": types.String("z"), "x": types.Number(1)}
	require.Equal(t, resultcache.Fingerprint(a), resultcache.Fingerprint(b))
}

func TestFingerprintDiffersOnValueChange(t *testing.T) {
	a := map[string]types.Scalar{"x": types.Number(1)}
	b := map[string]types.Scalar{"x": types.Number(2)}
	require.NotEqual(t, resultcache.Fingerprint(a), resultcache.Fingerprint(b))
}
