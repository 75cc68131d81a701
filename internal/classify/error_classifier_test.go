package classify_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/classify"
	"github.com/LegoTypes/synthformula/internal/types"
)

func TestClassifyEachCategory(t *testing.T) {
	require.Equal(t, classify.CategoryParse, classify.Classify(types.NewError(types.ErrSyntaxError, "x")))
	require.Equal(t, classify.CategoryMissingDependency, classify.Classify(types.NewError(types.ErrMissingDependency, "x")))
	require.Equal(t, classify.CategoryCircularDependency, classify.Classify(types.NewError(types.ErrCircularDependency, "x")))
	require.Equal(t, classify.CategoryHandler, classify.Classify(types.NewError(types.ErrHandler, "x")))
	require.Equal(t, classify.CategoryDataValidation, classify.Classify(types.NewError(types.ErrDataValidation, "x")))
}

func TestClassifyNonStructuredErrorIsUnknown(t *testing.T) {
	require.Equal(t, classify.CategoryUnknown, classify.Classify(errors.New("plain")))
}

func TestBreakerTripAndReset(t *testing.T) {
	b := classify.NewBreaker()
	require.False(t, b.IsTripped("sensor.a"))

	b.Trip("sensor.a", types.NewError(types.ErrHandler, "boom"))
	require.True(t, b.IsTripped("sensor.a"))
	cat, ok := b.TrippedCategory("sensor.a")
	require.True(t, ok)
	require.Equal(t, classify.CategoryHandler, cat)

	b.Reset("sensor.a")
	require.False(t, b.IsTripped("sensor.a"))
}

func TestBreakerResetAll(t *testing.T) {
	b := classify.NewBreaker()
	b.Trip("sensor.a", types.NewError(types.ErrHandler, "boom"))
	b.Trip("sensor.b", types.NewError(types.ErrParse, "boom"))
	b.ResetAll()
	require.False(t, b.IsTripped("sensor.a"))
	require.False(t, b.IsTripped("sensor.b"))
}
