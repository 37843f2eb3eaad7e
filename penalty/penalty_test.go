// Package penalty_test exercises the exterior penalty outer loops on
// bound- and equality-constrained quadratics.
package penalty_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/solver"
)

func constrainedSphere(t *testing.T) *function.Quadratic {
	t.Helper()
	// min ½‖x − (2, 0)‖² s.t. x_0 <= 1: optimum at (1, 0)
	fn := function.NewSphere([]float64{2, 0})
	require.NoError(t, fn.Append(function.Bound{Index: 0, Side: function.Upper, Value: 1}))
	return fn
}

func run(t *testing.T, id string, fn function.Function, x0 []float64) *solver.State {
	t.Helper()
	s, err := solver.Get(id)
	require.NoError(t, err)
	st, err := s.Minimize(fn, mat.NewVecDense(len(x0), x0))
	require.NoError(t, err)
	return st
}

func TestQuadraticPenalty_BoundConstrained(t *testing.T) {
	st := run(t, "quadratic-penalty", constrainedSphere(t), []float64{0, 0})
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, 1.0, st.BestX.AtVec(0), 1e-4)
	require.InDelta(t, 0.0, st.BestX.AtVec(1), 1e-4)
}

func TestLinearPenalty_BoundConstrained(t *testing.T) {
	st := run(t, "linear-penalty", constrainedSphere(t), []float64{0, 0})
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, 1.0, st.BestX.AtVec(0), 1e-2)
}

func TestAugmentedLagrangian_EqualityConstrained(t *testing.T) {
	// min ½‖x‖² s.t. x_0 + x_1 = 2: optimum at (1, 1)
	fn := function.NewSphere([]float64{0, 0})
	require.NoError(t, fn.Append(function.NewEquality(1, 2, []float64{1, 1}, []float64{2})))

	st := run(t, "augmented-lagrangian", fn, []float64{0, 0})
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, 1.0, st.BestX.AtVec(0), 1e-5)
	require.InDelta(t, 1.0, st.BestX.AtVec(1), 1e-5)
}

func TestPenalty_UnconstrainedDelegates(t *testing.T) {
	st := run(t, "quadratic-penalty", function.NewSphere([]float64{1, 2}), []float64{0, 0})
	require.Equal(t, solver.Converged, st.Status)
	require.InDelta(t, 0.0, st.BestF, 1e-10)
}

func TestPenalty_InfeasibleSystem(t *testing.T) {
	// x_0 <= −1 and x_0 >= 1 cannot both hold
	fn := function.NewSphere([]float64{0, 0})
	require.NoError(t, fn.Append(function.Bound{Index: 0, Side: function.Upper, Value: -1}))
	require.NoError(t, fn.Append(function.Bound{Index: 0, Side: function.Lower, Value: 1}))

	st := run(t, "quadratic-penalty", fn, []float64{0, 0})
	require.NotEqual(t, solver.Converged, st.Status)
}
