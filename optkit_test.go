// Package optkit_test runs the end-to-end reference scenarios across the
// registry: the solver identifiers, the closed-form quadratic programs and
// the non-smooth benchmarks.
package optkit_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit"
	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/solver"
)

func minimize(t *testing.T, id string, fn function.Function, x0 []float64) *solver.State {
	t.Helper()
	s, err := optkit.Get(id)
	require.NoError(t, err)
	st, err := s.Minimize(fn, mat.NewVecDense(len(x0), x0))
	require.NoError(t, err)
	return st
}

func TestRegistry_FullIdentifierSet(t *testing.T) {
	for _, id := range []string{
		"gd",
		"cgd-hs", "cgd-fr", "cgd-prp", "cgd-cd", "cgd-ls", "cgd-dy", "cgd-n", "cgd-dycd", "cgd-dyhs",
		"lbfgs",
		"quasi-sr1", "quasi-dfp", "quasi-bfgs", "quasi-hoshino", "quasi-fletcher",
		"ellipsoid", "ipm",
		"pba", "fpba1", "fpba2", "rqb",
		"gs", "gs-lbfgs", "ags", "ags-lbfgs",
		"sgm", "asgm", "cocob", "pgm", "dgm", "fgm", "osga",
		"linear-penalty", "quadratic-penalty", "augmented-lagrangian",
	} {
		s, err := optkit.Get(id)
		require.NoError(t, err, id)
		require.Equal(t, id, s.Name())
		require.NotEmpty(t, optkit.Describe(id), id)
	}
	require.GreaterOrEqual(t, len(optkit.IDs()), 36)
}

// S1: unconstrained QP f(x) = ½‖x − (1,2,3)‖² with lbfgs from the origin.
func TestScenario_S1_LBFGSSphere(t *testing.T) {
	st := minimize(t, "lbfgs", function.NewSphere([]float64{1, 2, 3}), []float64{0, 0, 0})

	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, 0.0, st.BestF, 1e-12)
	for i, want := range []float64{1, 2, 3} {
		require.InDelta(t, want, st.BestX.AtVec(i), 1e-6, "x[%d]", i)
	}
	require.LessOrEqual(t, st.FCalls+st.GCalls, int64(30))
}

// S2: the Boyd–Vandenberghe exercise 4.3 QP with −1 <= x_i <= 1 solved by
// the augmented Lagrangian wrapping lbfgs; x★ = (1, 0.5, −1).
func TestScenario_S2_AugmentedLagrangianBoxQP(t *testing.T) {
	p := []float64{
		13, 12, -2,
		12, 17, 6,
		-2, 6, 12,
	}
	q := []float64{-22, -14.5, 13}
	fn := function.NewQuadratic("cvx43", 3, p, q)
	for i := 0; i < 3; i++ {
		require.NoError(t, fn.Append(function.Bound{Index: i, Side: function.Lower, Value: -1}))
		require.NoError(t, fn.Append(function.Bound{Index: i, Side: function.Upper, Value: 1}))
	}

	st := minimize(t, "augmented-lagrangian", fn, []float64{0, 0, 0})
	require.Equal(t, solver.Converged, st.Status)

	want := []float64{1, 0.5, -1}
	for i := range want {
		require.InDelta(t, want[i], st.BestX.AtVec(i), 1e-6, "x[%d]", i)
	}
}

// S3: the simplex LP min cᵀx s.t. 𝟙ᵀx = 1, x >= 0 with c = (−1, −1, 2)
// through the ipm identifier; x★ = (½, ½, 0), f★ = −1.
func TestScenario_S3_SimplexLP(t *testing.T) {
	fn := function.NewQuadratic("cvx-lp", 3, make([]float64, 9), []float64{-1, -1, 2})
	require.NoError(t, fn.Append(function.NewEquality(1, 3, []float64{1, 1, 1}, []float64{1})))
	for i := 0; i < 3; i++ {
		require.NoError(t, fn.Append(function.Bound{Index: i, Side: function.Lower, Value: 0}))
	}

	st := minimize(t, "ipm", fn, []float64{0.3, 0.3, 0.4})
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, -1.0, st.F, 1e-6)
	require.InDelta(t, 0.5, st.X.AtVec(0), 1e-5)
	require.InDelta(t, 0.5, st.X.AtVec(1), 1e-5)
	require.InDelta(t, 0.0, st.X.AtVec(2), 1e-5)
}

// S4: the equality-constrained QP whose optimum has the closed form
// x0 + Aᵀ(AAᵀ)⁻¹(b − A·x0).
func TestScenario_S4_EqualityQP(t *testing.T) {
	fn, err := function.NewRandomEqualityQP(10, 0.4, 4242)
	require.NoError(t, err)
	xbest, _ := fn.Optimum()

	st := minimize(t, "ipm", fn, make([]float64, 10))
	require.Equal(t, solver.Converged, st.Status)

	diff := mat.NewVecDense(10, nil)
	diff.SubVec(st.X, xbest)
	require.Less(t, mat.Norm(diff, 2)/(1+mat.Norm(xbest, 2)), 1e-9)
}

// S5: the MAXQUAD benchmark (10 dims, 5 pieces) solved by rqb; the known
// optimum is ≈ −0.8414083 and the smeared criterion must fire.
func TestScenario_S5_RQBMaxQuad(t *testing.T) {
	fn := function.NewMaxQuad(10, 5)
	x0 := make([]float64, 10)
	for i := range x0 {
		x0[i] = 1
	}

	st := minimize(t, "rqb", fn, x0)
	require.Equal(t, solver.Converged, st.Status, "the smeared criterion terminates the run")
	require.InDelta(t, -0.8414083, st.BestF, 1e-5)
}

// S6: chained CB3-II in 4 dims from 𝟙 with fpba2; f★ = 2·(n−1) = 6.
func TestScenario_S6_FPBA2ChainedCB3(t *testing.T) {
	fn := function.NewChainedCB3II(4)
	st := minimize(t, "fpba2", fn, []float64{1, 1, 1, 1})

	require.Equal(t, solver.Converged, st.Status)
	require.Less(t, st.BestF, 2.0*3+1e-6)
}

// Property 3: on smooth unconstrained functions every converged state
// passes the relative gradient test.
func TestProperty_GradientTestOnConvergence(t *testing.T) {
	for _, id := range []string{"gd", "lbfgs", "cgd-prp", "cgd-dyhs", "quasi-bfgs"} {
		fn := function.NewSphere([]float64{-2, 1, 4})
		st := minimize(t, id, fn, []float64{3, 3, 3})
		if st.Status == solver.Converged {
			require.Less(t, st.GradientTest(), 1e-8+1e-12, id)
		}
	}
}

// Property 4: equal seeds give bit-identical states.
func TestProperty_Determinism(t *testing.T) {
	for _, id := range []string{"lbfgs", "gs", "ags-lbfgs", "pba"} {
		run := func() *solver.State {
			fn := function.NewMaxQuad(4, 3)
			return minimize(t, id, fn, []float64{1, 0, -1, 0.5})
		}
		a, b := run(), run()
		require.Equal(t, a.BestF, b.BestF, id)
		require.Equal(t, a.BestX.RawVector().Data, b.BestX.RawVector().Data, id)
		require.Equal(t, a.Status, b.Status, id)
	}
}

// Every solver returns exactly one of the six terminal statuses.
func TestProperty_TerminalStatus(t *testing.T) {
	statuses := map[solver.Status]bool{
		solver.MaxIters: true, solver.Converged: true, solver.Failed: true,
		solver.Unfeasible: true, solver.Unbounded: true, solver.Incompatible: true,
	}
	for _, id := range optkit.IDs() {
		s, err := optkit.Get(id)
		require.NoError(t, err)
		require.NoError(t, s.Params().SetInt("solver::max_evals", 500))

		fn := function.NewSphere([]float64{1, -1})
		st, err := s.Minimize(fn, mat.NewVecDense(2, []float64{2, 2}))
		require.NoError(t, err, id)
		require.True(t, statuses[st.Status], "%s returned %v", id, st.Status)
		require.False(t, math.IsNaN(st.BestF), id)
	}
}
