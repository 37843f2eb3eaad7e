// Package ipm_test validates the program bookkeeping and the primal-dual
// iteration on reference linear and quadratic programs.
package ipm_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/ipm"
	"github.com/optkit/optkit/solver"
)

func TestSolve_SimplexLP(t *testing.T) {
	// min cᵀx s.t. 𝟙ᵀx = 1, x >= 0 with c = [−1, −1, +2]: x★ = (½, ½, 0)
	p := ipm.NewLinearProgram([]float64{-1, -1, 2}).
		WithEquality(1, []float64{1, 1, 1}, []float64{1}).
		WithLower(0)

	st := ipm.Solve(p, nil, ipm.DefaultOptions())
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, -1.0, st.F, 1e-6)
	require.InDelta(t, 0.5, st.X.AtVec(0), 1e-6)
	require.InDelta(t, 0.5, st.X.AtVec(1), 1e-6)
	require.InDelta(t, 0.0, st.X.AtVec(2), 1e-6)
	require.Less(t, st.KKT, 1e-5)
}

func TestSolve_EqualityQP(t *testing.T) {
	// min ½‖x − x0‖² s.t. Ax = b has the closed form
	// x★ = x0 + Aᵀ(AAᵀ)⁻¹(b − A·x0)
	fn, err := function.NewRandomEqualityQP(8, 0.5, 99)
	require.NoError(t, err)
	xbest, fbest := fn.Optimum()

	lc, err := fn.LinearConstraints()
	require.NoError(t, err)

	n := fn.Size()
	q := make([]float64, n*n)
	c := make([]float64, n)
	x0c := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		q[i*n+i] = 1
		c[i] = fn.C().AtVec(i)
	}
	p := ipm.NewQuadraticProgram(n, q, c)
	p.A, p.B = lc.A, lc.B

	st := ipm.Solve(p, x0c, ipm.DefaultOptions())
	require.Equal(t, solver.Converged, st.Status)

	diff := mat.NewVecDense(n, nil)
	diff.SubVec(st.X, xbest)
	require.Less(t, mat.Norm(diff, 2)/(1+mat.Norm(xbest, 2)), 1e-9)
	require.InDelta(t, fbest, st.F, 1e-9)
}

func TestSolve_BoxQP(t *testing.T) {
	// min ½‖x − (2, −2)‖² s.t. −1 <= x <= 1: the box clips x★ to (1, −1)
	p := ipm.NewQuadraticProgram(2,
		[]float64{1, 0, 0, 1},
		[]float64{-2, 2}).
		WithLower(-1).
		WithUpper(1)

	st := ipm.Solve(p, nil, ipm.DefaultOptions())
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, 1.0, st.X.AtVec(0), 1e-7)
	require.InDelta(t, -1.0, st.X.AtVec(1), 1e-7)
}

func TestSolve_Unbounded(t *testing.T) {
	// min −x with only x >= 5: unbounded below
	p := ipm.NewLinearProgram([]float64{-1}).
		WithLower(5)
	st := ipm.Solve(p, nil, ipm.DefaultOptions())
	require.NotEqual(t, solver.Converged, st.Status)
}

func TestSolve_Unfeasible(t *testing.T) {
	// x <= −1 and x >= 1 cannot both hold
	p := ipm.NewLinearProgram([]float64{1}).
		WithUpper(-1).
		WithLower(1)
	st := ipm.Solve(p, nil, ipm.DefaultOptions())
	require.Equal(t, solver.Unfeasible, st.Status)
}

func TestProgram_Reduce(t *testing.T) {
	p := ipm.NewLinearProgram([]float64{1, 2}).
		WithEquality(3, []float64{
			1, 1,
			2, 2,
			0, 0,
		}, []float64{1, 2, 0})

	inconsistent := p.Reduce()
	require.Zero(t, inconsistent)

	_, eqs, _ := p.Dims()
	require.Equal(t, 1, eqs, "duplicate and zero rows must be reduced away")
}

func TestProgram_Validate(t *testing.T) {
	p := &ipm.Program{}
	require.ErrorIs(t, p.Validate(), ipm.ErrBadProgram)

	q := ipm.NewQuadraticProgram(2, []float64{1, 0, 0, 1}, []float64{0, 0})
	require.NoError(t, q.Validate())
}

func TestIPMSolver_RegisteredAdapter(t *testing.T) {
	s, err := solver.Get("ipm")
	require.NoError(t, err)

	// S3 through the function interface
	fn := function.NewQuadratic("lp", 3, make([]float64, 9), []float64{-1, -1, 2})
	require.NoError(t, fn.Append(function.NewEquality(1, 3, []float64{1, 1, 1}, []float64{1})))
	for i := 0; i < 3; i++ {
		require.NoError(t, fn.Append(function.Bound{Index: i, Side: function.Lower, Value: 0}))
	}

	st, err := s.Minimize(fn, mat.NewVecDense(3, []float64{0.3, 0.3, 0.4}))
	require.NoError(t, err)
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, -1.0, st.F, 1e-6)
}

func TestIPMSolver_IncompatibleNonSmooth(t *testing.T) {
	s, err := solver.Get("ipm")
	require.NoError(t, err)

	st, err := s.Minimize(function.NewMaxQuad(3, 2), mat.NewVecDense(3, nil))
	require.NoError(t, err)
	require.Equal(t, solver.Incompatible, st.Status)
}
