// Package function_test validates the oracle contract, the constraint
// system normalization and the penalty transforms.
package function_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
)

func randVec(n int, rng *rand.Rand) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, 2*rng.Float64()-1)
	}
	return v
}

func TestQuadratic_GradAccuracy(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	fn := function.NewSphere([]float64{1, 2, 3})

	for trial := 0; trial < 20; trial++ {
		x := randVec(3, rng)
		require.Less(t, function.GradAccuracy(fn, x), 1e-7)
	}
}

func TestQuadratic_CountersAdvance(t *testing.T) {
	fn := function.NewSphere([]float64{0, 0})
	x := mat.NewVecDense(2, []float64{1, 1})

	fn.Eval(x, nil, nil)
	require.EqualValues(t, 1, fn.FCalls())
	require.EqualValues(t, 0, fn.GCalls())

	g := mat.NewVecDense(2, nil)
	fn.Eval(x, g, nil)
	require.EqualValues(t, 2, fn.FCalls())
	require.EqualValues(t, 1, fn.GCalls())
}

func TestQuadratic_HessianBuffer(t *testing.T) {
	fn := function.NewSphere([]float64{0, 0, 0})
	x := mat.NewVecDense(3, []float64{1, 2, 3})
	h := mat.NewDense(3, 3, nil)
	fn.Eval(x, nil, h)
	for i := 0; i < 3; i++ {
		require.Equal(t, 1.0, h.At(i, i))
	}
}

func TestNonSmooth_GradAccuracy(t *testing.T) {
	// subgradients of the active piece still match finite differences at
	// generic points
	rng := rand.New(rand.NewPCG(7, 7))
	for _, fn := range []function.Function{
		function.NewMaxQuad(5, 3),
		function.NewChainedCB3II(4),
	} {
		for trial := 0; trial < 10; trial++ {
			x := randVec(fn.Size(), rng)
			require.Less(t, function.GradAccuracy(fn, x), 1e-6, fn.Name())
		}
	}
}

func TestConvexAccuracy_ConvexFunctions(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	for _, fn := range []function.Function{
		function.NewSphere([]float64{1, -1, 2}),
		function.NewMaxQuad(3, 5),
		function.NewChainedCB3II(3),
	} {
		require.True(t, fn.Convex())
		for trial := 0; trial < 100; trial++ {
			x1 := randVec(fn.Size(), rng)
			x2 := randVec(fn.Size(), rng)
			require.LessOrEqual(t, function.ConvexAccuracy(fn, x1, x2, 20), 1e-10, fn.Name())
		}
	}
}

func TestStrongConvexity_Sphere(t *testing.T) {
	fn := function.NewSphere([]float64{0, 0})
	require.Equal(t, 1.0, fn.StrongConvexity())
	require.True(t, fn.Smooth())
}

func TestFeasible(t *testing.T) {
	fn := function.NewSphere([]float64{0, 0})
	require.NoError(t, fn.Append(function.Bound{Index: 0, Side: function.Lower, Value: 0}))
	require.NoError(t, fn.Append(function.Bound{Index: 1, Side: function.Upper, Value: 1}))

	require.True(t, fn.Feasible(mat.NewVecDense(2, []float64{0.5, 0.5}), 1e-12))
	require.False(t, fn.Feasible(mat.NewVecDense(2, []float64{-0.1, 0.5}), 1e-12))
	require.False(t, fn.Feasible(mat.NewVecDense(2, []float64{0.5, 1.1}), 1e-12))
	// within tolerance
	require.True(t, fn.Feasible(mat.NewVecDense(2, []float64{-1e-13, 0.5}), 1e-12))
}

func TestAppend_RejectsBadShapes(t *testing.T) {
	fn := function.NewSphere([]float64{0, 0})

	err := fn.Append(function.NewEquality(1, 3, []float64{1, 1, 1}, []float64{1}))
	require.ErrorIs(t, err, function.ErrBadConstraint)

	err = fn.Append(function.Bound{Index: 5, Side: function.Lower, Value: 0})
	require.ErrorIs(t, err, function.ErrBadConstraint)
}

func TestRemoveZeroRows_Inequality(t *testing.T) {
	a := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 0,
		0, 1,
	})
	b := mat.NewVecDense(3, []float64{1, -2, 3})

	ra, rb, stats := function.RemoveZeroRowsInequality(a, b)
	require.Equal(t, 1, stats.Removed)
	require.Equal(t, 1, stats.Inconsistent, "b_i < 0 on a zero row is inconsistent")

	m, _ := ra.Dims()
	require.Equal(t, 2, m)
	require.Equal(t, 1.0, rb.AtVec(0))
	require.Equal(t, 3.0, rb.AtVec(1))
}

func TestRemoveZeroRows_EqualityConsistent(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{0, 0, 1, 1})
	b := mat.NewVecDense(2, []float64{0, 1})

	_, _, stats := function.RemoveZeroRowsEquality(a, b)
	require.Equal(t, 1, stats.Removed)
	require.Equal(t, 0, stats.Inconsistent, "b_i = 0 on a zero row is consistent")
}

func TestMakeFullRank(t *testing.T) {
	// row 2 = 2 × row 0: rank 2 out of 3
	a := mat.NewDense(3, 3, []float64{
		1, 0, 1,
		0, 1, 0,
		2, 0, 2,
	})
	b := mat.NewVecDense(3, []float64{1, 2, 2})

	ra, rb, stats := function.MakeFullRank(a, b)
	require.True(t, stats.Changed)
	require.Equal(t, 2, stats.Rank)

	m, _ := ra.Dims()
	require.Equal(t, 2, m)

	// the reduced system keeps the original solution set
	x := mat.NewVecDense(3, []float64{1, 2, 0}) // solves the original
	r := mat.NewVecDense(2, nil)
	r.MulVec(ra, x)
	r.SubVec(r, rb)
	require.Less(t, mat.Norm(r, math.Inf(1)), 1e-12)

	// and it is full rank (property: rank == rows)
	_, _, again := function.MakeFullRank(ra, rb)
	require.False(t, again.Changed)
}

func TestLinearConstraints_CacheAndStacking(t *testing.T) {
	fn := function.NewSphere([]float64{0, 0, 0})
	require.NoError(t, fn.Append(function.NewEquality(1, 3, []float64{1, 1, 1}, []float64{1})))
	require.NoError(t, fn.Append(function.Bound{Index: 0, Side: function.Lower, Value: 0}))
	require.NoError(t, fn.Append(function.Bound{Index: 2, Side: function.Upper, Value: 5}))

	lc, err := fn.LinearConstraints()
	require.NoError(t, err)
	require.Equal(t, 1, lc.EqRows())
	require.Equal(t, 2, lc.IneqRows())

	// bounds become ±e_i rows of G x <= h
	require.Equal(t, -1.0, lc.G.At(0, 0))
	require.Equal(t, 0.0, lc.H.AtVec(0))
	require.Equal(t, +1.0, lc.G.At(1, 2))
	require.Equal(t, 5.0, lc.H.AtVec(1))

	// appending invalidates the cache
	require.NoError(t, fn.Append(function.Bound{Index: 1, Side: function.Upper, Value: 2}))
	lc2, err := fn.LinearConstraints()
	require.NoError(t, err)
	require.Equal(t, 3, lc2.IneqRows())
}

func TestLinearConstraints_NonLinear(t *testing.T) {
	fn := function.NewSphere([]float64{0, 0})
	require.NoError(t, fn.Append(function.Functional{
		Fn:       function.NewSphere([]float64{1, 1}),
		Relation: function.LessEqual,
	}))
	_, err := fn.LinearConstraints()
	require.ErrorIs(t, err, function.ErrNonLinear)
}

func TestPenalty_GradientsPropagate(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 11))

	base := function.NewSphere([]float64{1, 2})
	require.NoError(t, base.Append(function.NewInequality(1, 2, []float64{1, 1}, []float64{1})))
	require.NoError(t, base.Append(function.NewEquality(1, 2, []float64{1, -1}, []float64{0})))

	quad := function.NewQuadraticPenalty(base)
	quad.SetRho(7)
	require.True(t, quad.Smooth())

	aug := function.NewAugmentedLagrangian(base)
	aug.SetRho(3)

	for trial := 0; trial < 20; trial++ {
		x := randVec(2, rng)
		require.Less(t, function.GradAccuracy(quad, x), 1e-6)
		require.Less(t, function.GradAccuracy(aug, x), 1e-6)
	}
}

func TestLinearPenalty_ExactValue(t *testing.T) {
	base := function.NewSphere([]float64{0, 0})
	require.NoError(t, base.Append(function.NewInequality(1, 2, []float64{1, 0}, []float64{-1}))) // x_0 <= -1

	lin := function.NewLinearPenalty(base)
	lin.SetRho(10)
	require.False(t, lin.Smooth())

	x := mat.NewVecDense(2, []float64{0, 0}) // violation 1
	fx := lin.Eval(x, nil, nil)
	require.InDelta(t, 0+10*1, fx, 1e-14)

	feasible := mat.NewVecDense(2, []float64{-2, 0}) // violation 0
	require.InDelta(t, 2.0, lin.Eval(feasible, nil, nil), 1e-14)
}

func TestAugmentedLagrangian_MultiplierUpdate(t *testing.T) {
	base := function.NewSphere([]float64{0, 0})
	require.NoError(t, base.Append(function.NewEquality(1, 2, []float64{1, 0}, []float64{1}))) // x_0 = 1

	aug := function.NewAugmentedLagrangian(base)
	aug.SetRho(2)
	require.Equal(t, []float64{0}, aug.Multipliers())

	x := mat.NewVecDense(2, []float64{3, 0}) // c = 2
	aug.UpdateMultipliers(x)
	require.InDelta(t, 2*2*2.0, aug.Multipliers()[0], 1e-14) // λ += 2ρc = 8
}

func TestRandomEqualityQP_ClosedForm(t *testing.T) {
	fn, err := function.NewRandomEqualityQP(6, 0.5, 1234)
	require.NoError(t, err)

	xbest, _ := fn.Optimum()
	require.NotNil(t, xbest)

	// the optimum satisfies the constraint
	require.True(t, fn.Feasible(xbest, 1e-9))

	// determinism under the same seed
	fn2, err := function.NewRandomEqualityQP(6, 0.5, 1234)
	require.NoError(t, err)
	xbest2, _ := fn2.Optimum()
	require.Equal(t, xbest.RawVector().Data, xbest2.RawVector().Data)
}
