package compilecache_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/compilecache"
	"github.com/LegoTypes/synthformula/internal/parser"
	"github.com/LegoTypes/synthformula/internal/types"
)

func build(text string, calls *int64) func() (*types.Expression, *types.BindingPlan, error) {
	return func() (*types.Expression, *types.BindingPlan, error) {
		atomic.AddInt64(calls, 1)
		expr, err := parser.Parse(text)
		if err != nil {
			return nil, nil, err
		}
		return expr, types.NewBindingPlan(0), nil
	}
}

func TestGetOrParseCachesPointerEqualAST(t *testing.T) {
	c := compilecache.New(10)
	var calls int64

	e1, err := c.GetOrParse("state * 1.1", build("state * 1.1", &calls))
	require.NoError(t, err)
	e2, err := c.GetOrParse("state * 1.1", build("state * 1.1", &calls))
	require.NoError(t, err)

	require.Same(t, e1.Expr.AST(), e2.Expr.AST())
	require.EqualValues(t, 1, calls)
}

func TestGetOrParseSingleFlight(t *testing.T) {
	c := compilecache.New(10)
	var calls int64

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrParse("a + b", build("a + b", &calls))
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, calls)
}

func TestLRUEviction(t *testing.T) {
	c := compilecache.New(2)
	var calls int64

	_, _ = c.GetOrParse("a", build("1", &calls))
	_, _ = c.GetOrParse("b", build("2", &calls))
	_, _ = c.GetOrParse("c", build("3", &calls)) // evicts "a"

	require.Equal(t, 2, c.Stats().Entries)

	calls = 0
	_, _ = c.GetOrParse("a", build("1", &calls))
	require.EqualValues(t, 1, calls, "expected a re-parse: entry should have been evicted")
}

func TestStatsHitRateMonotonic(t *testing.T) {
	c := compilecache.New(10)
	var calls int64
	_, _ = c.GetOrParse("a", build("1", &calls))

	before := c.Stats().HitRate
	_, _ = c.GetOrParse("a", build("1", &calls))
	after := c.Stats().HitRate

	require.GreaterOrEqual(t, after, before)
}

func TestClearAll(t *testing.T) {
	c := compilecache.New(10)
	var calls int64
	_, _ = c.GetOrParse("a", build("1", &calls))
	require.Equal(t, 1, c.Stats().Entries)

	c.ClearAll()
	require.Equal(t, 0, c.Stats().Entries)
}

func TestDefaultCapacity(t *testing.T) {
	c := compilecache.New(0)
	require.Equal(t, 1000, c.Stats().Capacity)
}
