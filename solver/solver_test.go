// Package solver_test exercises the registry, the shared termination logic
// and the line-search, ellipsoid and subgradient solver families.
package solver_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/solver"
)

func sphere3() *function.Quadratic { return function.NewSphere([]float64{1, 2, 3}) }

func minimize(t *testing.T, id string, fn function.Function, x0 []float64) *solver.State {
	t.Helper()
	s, err := solver.Get(id)
	require.NoError(t, err)
	st, err := s.Minimize(fn, mat.NewVecDense(len(x0), x0))
	require.NoError(t, err)
	return st
}

func TestRegistry_KnownIdentifiers(t *testing.T) {
	for _, id := range []string{
		"gd",
		"cgd-hs", "cgd-fr", "cgd-prp", "cgd-cd", "cgd-ls", "cgd-dy", "cgd-n", "cgd-dycd", "cgd-dyhs",
		"lbfgs",
		"quasi-sr1", "quasi-dfp", "quasi-bfgs", "quasi-hoshino", "quasi-fletcher",
		"ellipsoid", "sgm", "asgm", "cocob", "pgm", "dgm", "fgm", "osga",
	} {
		s, err := solver.Get(id)
		require.NoError(t, err, id)
		require.Equal(t, id, s.Name())
	}

	_, err := solver.Get("nope")
	require.Error(t, err)
}

func TestRegistry_GetReturnsClones(t *testing.T) {
	a, err := solver.Get("lbfgs")
	require.NoError(t, err)
	b, err := solver.Get("lbfgs")
	require.NoError(t, err)

	require.NoError(t, a.Params().SetInt("solver::lbfgs::history", 5))
	require.EqualValues(t, 20, b.Params().Int("solver::lbfgs::history"))
}

func TestLineSearchSolvers_Sphere(t *testing.T) {
	ids := []string{
		"gd", "lbfgs",
		"cgd-hs", "cgd-fr", "cgd-prp", "cgd-cd", "cgd-ls", "cgd-dy", "cgd-n", "cgd-dycd", "cgd-dyhs",
		"quasi-sr1", "quasi-dfp", "quasi-bfgs", "quasi-hoshino", "quasi-fletcher",
	}
	for _, id := range ids {
		st := minimize(t, id, sphere3(), []float64{0, 0, 0})
		require.Equal(t, solver.Converged, st.Status, id)
		require.Less(t, st.BestGradientTest(), 1e-8, id)
		for i, want := range []float64{1, 2, 3} {
			require.InDelta(t, want, st.BestX.AtVec(i), 1e-6, "%s x[%d]", id, i)
		}
	}
}

func TestLBFGS_SphereWithinBudget(t *testing.T) {
	st := minimize(t, "lbfgs", sphere3(), []float64{0, 0, 0})
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, 0, st.BestF, 1e-12)
	require.LessOrEqual(t, st.FCalls+st.GCalls, int64(30), "budget per the reference scenario")
}

func TestSolvers_StartingAtOptimum(t *testing.T) {
	for _, id := range []string{"gd", "lbfgs", "cgd-prp", "quasi-bfgs"} {
		st := minimize(t, id, sphere3(), []float64{1, 2, 3})
		require.Equal(t, solver.Converged, st.Status, id)
	}
}

func TestSolvers_IncompatibleWithConstraints(t *testing.T) {
	fn := sphere3()
	require.NoError(t, fn.Append(function.Bound{Index: 0, Side: function.Lower, Value: 0}))

	for _, id := range []string{"gd", "lbfgs", "cgd-fr", "quasi-sr1", "ellipsoid", "sgm", "cocob", "pgm", "osga"} {
		st := minimize(t, id, fn, []float64{0, 0, 0})
		require.Equal(t, solver.Incompatible, st.Status, id)
	}
}

func TestMinimize_RejectsBadInput(t *testing.T) {
	s, err := solver.Get("gd")
	require.NoError(t, err)

	_, err = s.Minimize(sphere3(), mat.NewVecDense(2, []float64{0, 0}))
	require.ErrorIs(t, err, solver.ErrBadInput)

	_, err = s.Minimize(sphere3(), mat.NewVecDense(3, []float64{0, math.NaN(), 0}))
	require.ErrorIs(t, err, solver.ErrBadInput)

	_, err = s.Minimize(nil, mat.NewVecDense(3, nil))
	require.ErrorIs(t, err, solver.ErrNilFunction)
}

func TestMinimize_Deterministic(t *testing.T) {
	run := func() *solver.State {
		return minimize(t, "lbfgs", sphere3(), []float64{-4, 7, 0.5})
	}
	a, b := run(), run()
	require.Equal(t, a.BestF, b.BestF)
	require.Equal(t, a.BestX.RawVector().Data, b.BestX.RawVector().Data)
	require.Equal(t, a.Iters, b.Iters)
	require.Equal(t, a.FCalls, b.FCalls)
}

func TestEllipsoid_Bisection1D(t *testing.T) {
	st := minimize(t, "ellipsoid", function.NewSphere([]float64{3}), []float64{0})
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, 3.0, st.BestX.AtVec(0), 1e-6)
}

func TestEllipsoid_DeepCut2D(t *testing.T) {
	st := minimize(t, "ellipsoid", function.NewSphere([]float64{1, -2}), []float64{5, 5})
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, 1.0, st.BestX.AtVec(0), 1e-5)
	require.InDelta(t, -2.0, st.BestX.AtVec(1), 1e-5)
}

func TestSubgradient_MaxQuad(t *testing.T) {
	// the classic 10-dim, 5-piece MAXQUAD instance, f★ ≈ −0.841408
	for _, id := range []string{"sgm", "asgm"} {
		fn := function.NewMaxQuad(10, 5)
		st := minimize(t, id, fn, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
		require.NotEqual(t, solver.Failed, st.Status, id)
		require.Less(t, st.BestF, 0.0, "%s should make substantial progress", id)
	}
}

func TestUniversal_Sphere(t *testing.T) {
	for _, id := range []string{"pgm", "dgm", "fgm", "cocob", "osga"} {
		st := minimize(t, id, function.NewSphere([]float64{1, -1}), []float64{4, 4})
		require.NotEqual(t, solver.Failed, st.Status, id)
		require.Less(t, st.BestF, 0.1, id)
	}
}

func TestValueTracker(t *testing.T) {
	s, err := solver.Get("sgm")
	require.NoError(t, err)
	require.NoError(t, s.Params().SetInt("solver::patience", 2))
	require.NoError(t, s.Params().SetFloat("solver::sgm::t0", 1e-12))

	// tiny steps on a sloped function neither move the iterate nor improve
	// the value by more than epsilon: the tracker must fire
	fn := function.NewQuadratic("slope", 2, make([]float64, 4), []float64{1, 1})
	st, err := s.Minimize(fn, mat.NewVecDense(2, []float64{1, 1}))
	require.NoError(t, err)
	require.Equal(t, solver.Converged, st.Status)
}

func TestUnboundedBelow(t *testing.T) {
	// f(x) = −x² descends past the floor along d = −g
	s, err := solver.Get("gd")
	require.NoError(t, err)
	require.NoError(t, s.Params().SetString("solver::lsearchk", "backtrack"))
	require.NoError(t, s.Params().SetFloat("solver::fmin", -1e3))

	fn := function.NewQuadratic("concave", 1, []float64{-2}, []float64{0})
	st, err := s.Minimize(fn, mat.NewVecDense(1, []float64{1}))
	require.NoError(t, err)
	require.Equal(t, solver.Unbounded, st.Status)
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "max_iters", solver.MaxIters.String())
	require.Equal(t, "converged", solver.Converged.String())
	require.Equal(t, "failed", solver.Failed.String())
	require.Equal(t, "unfeasible", solver.Unfeasible.String())
	require.Equal(t, "unbounded", solver.Unbounded.String())
	require.Equal(t, "incompatible", solver.Incompatible.String())
}

func TestConfigurable_Serialization(t *testing.T) {
	s, err := solver.Get("lbfgs")
	require.NoError(t, err)
	major, _, _ := s.Configurable().Version()
	require.EqualValues(t, 1, major)
}
