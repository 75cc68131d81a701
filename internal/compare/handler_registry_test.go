package compare_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/compare"
	"github.com/LegoTypes/synthformula/internal/types"
)

func TestEqualityFallback(t *testing.T) {
	r := compare.NewRegistry()
	ok, err := r.Compare(types.Number(1), types.Number(1), compare.OpEqual)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNumericOrdering(t *testing.T) {
	r := compare.NewRegistry()
	ok, err := r.Compare(types.Number(1), types.Number(2), compare.OpLess)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.Compare(types.Integer(3), types.Number(2), compare.OpGreaterEqual)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStringOrdering(t *testing.T) {
	r := compare.NewRegistry()
	ok, err := r.Compare(types.String("abc"), types.String("abd"), compare.OpLess)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBooleanOrdering(t *testing.T) {
	r := compare.NewRegistry()
	ok, err := r.Compare(types.Bool(false), types.Bool(true), compare.OpLess)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDatetimeOrdering(t *testing.T) {
	r := compare.NewRegistry()
	early := types.DateTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	late := types.DateTime(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	ok, err := r.Compare(early, late, compare.OpLess)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVersionOrdering(t *testing.T) {
	r := compare.NewRegistry()
	ok, err := r.Compare(types.String("1.2.0"), types.String("1.10.0"), compare.OpLess)
	require.NoError(t, err)
	require.True(t, ok, "semantic version compare must not fall back to lexicographic string compare")
}

func TestMembershipIn(t *testing.T) {
	r := compare.NewRegistry()
	ok, err := r.Compare(types.String("door"), types.String("door|window"), compare.OpIn)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.Compare(types.String("light"), types.String("door|window"), compare.OpIn)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMembershipNotIn(t *testing.T) {
	r := compare.NewRegistry()
	ok, err := r.Compare(types.String("light"), types.String("door|window"), compare.OpNotIn)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMembershipPropagatedNeverMatches(t *testing.T) {
	r := compare.NewRegistry()
	ok, err := r.Compare(types.Unknown, types.String("door|window"), compare.OpIn)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUserHandlerPriorityOverridesBuiltin(t *testing.T) {
	r := compare.NewRegistry()
	r.Register(alwaysTrueHandler{})
	ok, err := r.Compare(types.Number(5), types.Number(1), compare.OpLess)
	require.NoError(t, err)
	require.True(t, ok, "a priority-1 handler must win over the priority-50 numeric handler")
}

func TestNoHandlerIsAnError(t *testing.T) {
	r := &compare.Registry{}
	_, err := r.Compare(types.Null, types.Null, compare.OpLess)
	require.Error(t, err)
}

type alwaysTrueHandler struct{}

func (alwaysTrueHandler) Name() string  { return "always-true" }
func (alwaysTrueHandler) Priority() int { return 1 }
func (alwaysTrueHandler) CanHandle(l, r types.Scalar, op compare.Op) bool {
	return op == compare.OpLess && l.IsNumeric() && r.IsNumeric()
}
func (alwaysTrueHandler) Compare(l, r types.Scalar, op compare.Op) (bool, error) {
	return true, nil
}
