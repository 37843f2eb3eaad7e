// Package bundle_test exercises the cutting-plane model, the dual QP and
// the bundle solvers on smooth and non-smooth convex benchmarks.
package bundle_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/bundle"
	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/solver"
)

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func minimize(t *testing.T, id string, fn function.Function, x0 []float64) *solver.State {
	t.Helper()
	s, err := solver.Get(id)
	require.NoError(t, err)
	st, err := s.Minimize(fn, mat.NewVecDense(len(x0), x0))
	require.NoError(t, err)
	return st
}

func TestBundle_ModelUnderestimatesConvex(t *testing.T) {
	fn := function.NewMaxQuad(4, 3)
	x0 := mat.NewVecDense(4, []float64{1, -1, 0.5, 0})

	st, err := solver.NewState(fn, x0)
	require.NoError(t, err)

	b := bundle.New(st, 50)

	// enrich the model with a few cuts
	for _, v := range [][]float64{{0, 0, 0, 0}, {1, 1, 1, 1}, {-1, 0.5, 0, 2}} {
		y := mat.NewVecDense(4, v)
		g := mat.NewVecDense(4, nil)
		f := fn.Eval(y, g, nil)
		b.Append(y, g, f)
	}

	// each piece underestimates the convex function everywhere sampled
	for _, v := range [][]float64{{0.2, 0.1, -0.3, 0}, {2, 2, 2, 2}, {-0.5, 0, 0.25, 1}} {
		y := mat.NewVecDense(4, v)
		require.LessOrEqual(t, b.Model(y), fn.Eval(y, nil, nil)+1e-9)
	}
}

func TestBundle_SolveProducesDescentDirection(t *testing.T) {
	fn := function.NewSphere([]float64{1, 2})
	st, err := solver.NewState(fn, mat.NewVecDense(2, []float64{0, 0}))
	require.NoError(t, err)

	b := bundle.New(st, 50)
	tr, err := b.Solve(bundle.ScaledIdentity(1))
	require.NoError(t, err)

	// with a single (center) cut the aggregate is the center gradient
	require.InDelta(t, st.G.AtVec(0), tr.Ghat.AtVec(0), 1e-6)
	require.InDelta(t, st.G.AtVec(1), tr.Ghat.AtVec(1), 1e-6)
	require.Greater(t, tr.Delta, 0.0)
	require.False(t, tr.Converged(1e-8, 2))
}

func TestPBA_SmoothQuadratic(t *testing.T) {
	st := minimize(t, "pba", function.NewSphere([]float64{1, -2, 0.5}), []float64{5, 5, 5})
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, 0.0, st.BestF, 1e-5)
}

func TestBundleSolvers_MaxQuad(t *testing.T) {
	// the classic MAXQUAD instance: 10 dims, 5 pieces, f★ ≈ −0.8414083
	for _, id := range []string{"pba", "rqb"} {
		fn := function.NewMaxQuad(10, 5)
		st := minimize(t, id, fn, ones(10))

		require.Equal(t, solver.Converged, st.Status, id)
		require.InDelta(t, -0.8414083, st.BestF, 1e-5, id)
	}
}

func TestFPBA2_ChainedCB3(t *testing.T) {
	// chained CB3-II in 4 dims from 𝟙: f★ = 2·(n−1) = 6
	fn := function.NewChainedCB3II(4)
	st := minimize(t, "fpba2", fn, ones(4))

	require.Equal(t, solver.Converged, st.Status)
	require.Less(t, st.BestF, 2.0*3+1e-3)
}

func TestFPBA1_MaxQuad(t *testing.T) {
	fn := function.NewMaxQuad(10, 5)
	st := minimize(t, "fpba1", fn, ones(10))
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, -0.8414083, st.BestF, 1e-4)
}

func TestBundleSolvers_IncompatibleWithConstraints(t *testing.T) {
	fn := function.NewSphere([]float64{0, 0})
	require.NoError(t, fn.Append(function.Bound{Index: 0, Side: function.Lower, Value: 0}))

	for _, id := range []string{"pba", "fpba1", "fpba2", "rqb"} {
		st := minimize(t, id, fn, []float64{1, 1})
		require.Equal(t, solver.Incompatible, st.Status, id)
	}
}

func TestBundle_CapEvictsCuts(t *testing.T) {
	fn := function.NewMaxQuad(3, 3)
	st, err := solver.NewState(fn, mat.NewVecDense(3, []float64{1, 1, 1}))
	require.NoError(t, err)

	b := bundle.New(st, 4)
	g := mat.NewVecDense(3, nil)
	for i := 0; i < 10; i++ {
		y := mat.NewVecDense(3, []float64{float64(i), 1, -1})
		f := fn.Eval(y, g, nil)
		b.Append(y, g, f)
	}
	require.LessOrEqual(t, b.Size(), 5, "cap plus at most the in-flight cut")
}
