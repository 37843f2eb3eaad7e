// Package lsearch_test exercises the interpolants, the initial-step
// estimators and the acceptance algorithms on quadratic probes.
package lsearch_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/lsearch"
)

func TestInterpolants_Quadratic(t *testing.T) {
	// φ(t) = (t−2)²: u at t=0 (φ=4, φ′=−4), v at t=3 (φ=1, φ′=2)
	u := lsearch.Step{T: 0, F: 4, G: -4}
	v := lsearch.Step{T: 3, F: 1, G: 2}

	tq, convex := lsearch.Quadratic(u, v)
	require.True(t, convex)
	require.InDelta(t, 2.0, tq, 1e-12)

	require.InDelta(t, 2.0, lsearch.Secant(u, v), 1e-12)
	require.InDelta(t, 2.0, lsearch.Cubic(u, v), 1e-12)
	require.InDelta(t, 1.5, lsearch.Bisection(u, v), 1e-12)
}

func TestInterpolate_FallsBackToBisection(t *testing.T) {
	// degenerate steps: equal slopes break cubic and secant, equal values
	// break the quadratic — the fallback must stay inside the hull
	u := lsearch.Step{T: 1, F: 2, G: -1}
	v := lsearch.Step{T: 3, F: 2, G: -1}

	got := lsearch.Interpolate(u, v, lsearch.InterpCubic)
	require.GreaterOrEqual(t, got, 1.0)
	require.LessOrEqual(t, got, 3.0)
}

func TestQuadratic_ConcaveFlag(t *testing.T) {
	// φ(t) = −t²: u at 0 (0, 0−slope 0)… use u at 1: φ=−1, φ′=−2; v at 2: φ=−4
	u := lsearch.Step{T: 1, F: -1, G: -2}
	v := lsearch.Step{T: 2, F: -4, G: -4}
	_, convex := lsearch.Quadratic(u, v)
	require.False(t, convex)
}

func newProbe(t *testing.T, center []float64, x0 []float64) *lsearch.Probe {
	t.Helper()
	fn := function.NewSphere(center)
	n := fn.Size()
	x := mat.NewVecDense(n, x0)
	g := mat.NewVecDense(n, nil)
	f := fn.Eval(x, g, nil)
	d := mat.NewVecDense(n, nil)
	d.ScaleVec(-1, g)
	return lsearch.NewProbe(fn, x, f, g, d)
}

func TestSearches_AcceptOnQuadratic(t *testing.T) {
	for _, id := range []string{"backtrack", "fletcher", "lemarechal", "morethuente", "cgdescent"} {
		algo, err := lsearch.Searches().Get(id)
		require.NoError(t, err)

		p := newProbe(t, []float64{1, 2, 3}, []float64{0, 0, 0})
		require.True(t, algo.Get(p, 1), id)
		require.Greater(t, p.T, 0.0, id)
		require.Less(t, p.F, p.F0(), "accepted step must decrease the value: %s", id)
	}
}

func TestSearches_SmallInitialGuess(t *testing.T) {
	for _, id := range []string{"fletcher", "lemarechal", "morethuente", "cgdescent"} {
		algo, err := lsearch.Searches().Get(id)
		require.NoError(t, err)

		p := newProbe(t, []float64{5}, []float64{0})
		require.True(t, algo.Get(p, 1e-6), id)
		require.Less(t, p.F, p.F0(), id)
	}
}

func TestSearches_RejectAscent(t *testing.T) {
	fn := function.NewSphere([]float64{0, 0})
	x := mat.NewVecDense(2, []float64{1, 1})
	g := mat.NewVecDense(2, nil)
	f := fn.Eval(x, g, nil)
	d := mat.VecDenseCopyOf(g) // +g is an ascent direction

	for _, id := range []string{"backtrack", "fletcher", "lemarechal", "morethuente", "cgdescent"} {
		algo, err := lsearch.Searches().Get(id)
		require.NoError(t, err)
		p := lsearch.NewProbe(fn, x, f, g, d)
		require.False(t, algo.Get(p, 1), id)
	}
}

func TestSearches_CloneIsolatesParameters(t *testing.T) {
	a, err := lsearch.Searches().Get("fletcher")
	require.NoError(t, err)
	b, err := lsearch.Searches().Get("fletcher")
	require.NoError(t, err)

	require.NoError(t, a.Params().SetFloat("lsearchk::c2", 0.5))
	require.Equal(t, 0.9, b.Params().Float("lsearchk::c2"))
}

func TestInit_Constant(t *testing.T) {
	est, err := lsearch.Inits().Get("constant")
	require.NoError(t, err)
	require.Equal(t, 1.0, est.Get(lsearch.Iterate{}))

	require.NoError(t, est.Params().SetFloat("lsearch0::constant::t0", 0.25))
	require.Equal(t, 0.25, est.Get(lsearch.Iterate{}))
}

func TestInit_QuadraticFirstIteration(t *testing.T) {
	est, err := lsearch.Inits().Get("quadratic")
	require.NoError(t, err)

	g := mat.NewVecDense(2, []float64{3, 4}) // ‖g‖₂ = 5
	t0 := est.Get(lsearch.Iterate{Iter: 0, G: g, X: mat.NewVecDense(2, nil)})
	require.InDelta(t, 0.2, t0, 1e-12)
}

func TestInit_QuadraticDecreaseRule(t *testing.T) {
	est, err := lsearch.Inits().Get("quadratic")
	require.NoError(t, err)

	it := lsearch.Iterate{Iter: 3, F: 1, PrevF: 2, DG: -4, PrevT: 1}
	require.InDelta(t, 2*(1.0-2.0)/(-4.0), est.Get(it), 1e-12)
}

func TestInit_CGDescentFirstIteration(t *testing.T) {
	est, err := lsearch.Inits().Get("cgdescent")
	require.NoError(t, err)

	x := mat.NewVecDense(2, []float64{2, -8})
	g := mat.NewVecDense(2, []float64{1, -4})
	t0 := est.Get(lsearch.Iterate{Iter: 0, X: x, G: g, F: 10})
	require.InDelta(t, 0.01*8/4, t0, 1e-12) // ψ₀·‖x‖∞/‖g‖∞
}

func TestInit_CGDescentLaterIterations(t *testing.T) {
	est, err := lsearch.Inits().Get("cgdescent")
	require.NoError(t, err)

	// φ(t) = (t−1)²+1 from t=0: φ(0)=2, φ′(0)=−2; probing admits the
	// quadratic interpolation whose minimizer is 1
	phi := func(tt float64) float64 { return (tt-1)*(tt-1) + 1 }
	it := lsearch.Iterate{Iter: 2, F: 2, DG: -2, PrevT: 10, Phi: phi}
	require.InDelta(t, 1.0, est.Get(it), 1e-9)

	// without probing it falls back to ψ₂·t_prev
	it.Phi = nil
	require.InDelta(t, 20.0, est.Get(it), 1e-12)
}

func TestProbe_Conditions(t *testing.T) {
	p := newProbe(t, []float64{1}, []float64{0})
	// f(x)=½(x−1)², x0=0: f0=0.5, g0=−1, d=+1, φ′(0)=−1
	require.True(t, p.Descent())
	require.InDelta(t, -1, p.DG0(), 1e-12)

	require.True(t, p.Move(1)) // exact minimizer: φ(1)=0, φ′(1)=0
	require.True(t, p.HasArmijo(1e-4))
	require.True(t, p.HasStrongWolfe(0.9))
	require.True(t, p.HasWolfe(0.9))

	require.False(t, p.Move(math.Inf(1)))
}
