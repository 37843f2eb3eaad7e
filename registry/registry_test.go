package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/optkit/optkit/registry"
)

type widget struct {
	name  string
	knobs int
}

func (w *widget) Clone() *widget { c := *w; return &c }

func TestFactory_GetClones(t *testing.T) {
	var f registry.Factory[*widget]
	require.NoError(t, f.Register("a", "widget a", &widget{name: "a", knobs: 2}))

	w1, err := f.Get("a")
	require.NoError(t, err)
	w2, err := f.Get("a")
	require.NoError(t, err)

	w1.knobs = 99
	require.Equal(t, 2, w2.knobs, "instances must not share state")
}

func TestFactory_NotFound(t *testing.T) {
	var f registry.Factory[*widget]
	_, err := f.Get("missing")
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestFactory_Duplicate(t *testing.T) {
	var f registry.Factory[*widget]
	require.NoError(t, f.Register("a", "", &widget{}))
	require.ErrorIs(t, f.Register("a", "", &widget{}), registry.ErrDuplicate)
}

func TestFactory_FreezeForbidsMutation(t *testing.T) {
	var f registry.Factory[*widget]
	require.NoError(t, f.Register("a", "", &widget{}))
	f.Freeze()
	require.ErrorIs(t, f.Register("b", "", &widget{}), registry.ErrFrozen)

	// reads still work
	_, err := f.Get("a")
	require.NoError(t, err)
}

func TestFactory_IDsPreserveOrder(t *testing.T) {
	var f registry.Factory[*widget]
	for _, id := range []string{"gd", "lbfgs", "ipm"} {
		require.NoError(t, f.Register(id, id, &widget{name: id}))
	}
	require.Equal(t, []string{"gd", "lbfgs", "ipm"}, f.IDs())
	require.Equal(t, "lbfgs", f.Description("lbfgs"))
}
