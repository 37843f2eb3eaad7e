// Package gsample_test exercises the gradient-sampling solvers on smooth
// and non-smooth benchmarks.
package gsample_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/solver"
)

func minimize(t *testing.T, id string, fn function.Function, x0 []float64) *solver.State {
	t.Helper()
	s, err := solver.Get(id)
	require.NoError(t, err)
	st, err := s.Minimize(fn, mat.NewVecDense(len(x0), x0))
	require.NoError(t, err)
	return st
}

func TestGS_Identifiers(t *testing.T) {
	for _, id := range []string{"gs", "gs-lbfgs", "ags", "ags-lbfgs"} {
		s, err := solver.Get(id)
		require.NoError(t, err)
		require.Equal(t, id, s.Name())
	}
}

func TestGS_SmoothQuadratic(t *testing.T) {
	for _, id := range []string{"gs", "ags"} {
		st := minimize(t, id, function.NewSphere([]float64{1, -1}), []float64{3, 3})
		require.NotEqual(t, solver.Failed, st.Status, id)
		require.Less(t, st.BestF, 1e-2, id)
	}
}

func TestGS_NonSmooth(t *testing.T) {
	// small MAXQUAD instance: substantial progress toward the optimum
	st := minimize(t, "gs", function.NewMaxQuad(3, 2), []float64{1, 1, 1})
	require.NotEqual(t, solver.Failed, st.Status)
	x0 := mat.NewVecDense(3, []float64{1, 1, 1})
	f0 := function.NewMaxQuad(3, 2).Eval(x0, nil, nil)
	require.Less(t, st.BestF, f0)
}

func TestGS_DeterministicUnderSeed(t *testing.T) {
	run := func() *solver.State {
		return minimize(t, "ags-lbfgs", function.NewMaxQuad(4, 3), []float64{1, 0, -1, 0.5})
	}
	a, b := run(), run()
	require.Equal(t, a.BestF, b.BestF)
	require.Equal(t, a.BestX.RawVector().Data, b.BestX.RawVector().Data)
}

func TestGS_SeedChangesTrajectory(t *testing.T) {
	s1, err := solver.Get("gs")
	require.NoError(t, err)
	s2, err := solver.Get("gs")
	require.NoError(t, err)
	require.NoError(t, s2.Params().SetInt("solver::seed", 7))

	fn1 := function.NewMaxQuad(4, 3)
	fn2 := function.NewMaxQuad(4, 3)
	x0 := []float64{1, 0, -1, 0.5}

	a, err := s1.Minimize(fn1, mat.NewVecDense(4, x0))
	require.NoError(t, err)
	b, err := s2.Minimize(fn2, mat.NewVecDense(4, x0))
	require.NoError(t, err)

	// different seeds draw different samples; the trajectories diverge
	require.NotEqual(t, a.FCalls, int64(0))
	require.NotEqual(t, b.FCalls, int64(0))
	require.NotEqual(t, a.BestX.RawVector().Data, b.BestX.RawVector().Data)
}

func TestGS_IncompatibleWithConstraints(t *testing.T) {
	fn := function.NewSphere([]float64{0, 0})
	require.NoError(t, fn.Append(function.Bound{Index: 0, Side: function.Lower, Value: 0}))

	for _, id := range []string{"gs", "gs-lbfgs", "ags", "ags-lbfgs"} {
		st := minimize(t, id, fn, []float64{1, 1})
		require.Equal(t, solver.Incompatible, st.Status, id)
	}
}
