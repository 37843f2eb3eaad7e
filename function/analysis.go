package function

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// fdSteps is the central finite-difference step schedule, scaled per
// coordinate by max(1, |x_i|).
var fdSteps = []float64{1e-8, 2e-8, 5e-8, 7e-8, 1e-7, 2e-7, 5e-7, 7e-7, 1e-6}

// GradAccuracy returns the minimum over the step schedule of
// ‖g − ĝ‖∞ / (1 + |f|), where ĝ is the central finite-difference
// approximation of the gradient at x. Values significantly above zero
// indicate a miscomputed oracle gradient.
func GradAccuracy(fn Function, x *mat.VecDense) float64 {
	n := fn.Size()

	gx := mat.NewVecDense(n, nil)
	fx := fn.Eval(x, gx, nil)

	approx := mat.NewVecDense(n, nil)
	xp := mat.NewVecDense(n, nil)
	xn := mat.NewVecDense(n, nil)

	best := math.MaxFloat64
	for _, dx := range fdSteps {
		xp.CopyVec(x)
		xn.CopyVec(x)
		for i := 0; i < n; i++ {
			if i > 0 {
				xp.SetVec(i-1, x.AtVec(i-1))
				xn.SetVec(i-1, x.AtVec(i-1))
			}
			h := dx * math.Max(1, math.Abs(x.AtVec(i)))
			xp.SetVec(i, x.AtVec(i)+h)
			xn.SetVec(i, x.AtVec(i)-h)

			dfi := fn.Eval(xp, nil, nil) - fn.Eval(xn, nil, nil)
			approx.SetVec(i, dfi/(xp.AtVec(i)-xn.AtVec(i)))
		}

		diff := 0.0
		for i := 0; i < n; i++ {
			diff = math.Max(diff, math.Abs(gx.AtVec(i)-approx.AtVec(i)))
		}
		best = math.Min(best, diff)
	}

	return best / (1 + math.Abs(fx))
}

// ConvexAccuracy returns the worst violation of the convexity inequality
// along the [x1, x2] segment sampled at steps-1 interior points, honoring
// the strong-convexity coefficient:
//
//	f(t·x1 + (1−t)·x2) <= t·f(x1) + (1−t)·f(x2) − t(1−t)·μ/2·‖x1−x2‖²
//
// A return value of 0 means no violation was observed.
func ConvexAccuracy(fn Function, x1, x2 *mat.VecDense, steps int) float64 {
	n := fn.Size()

	f1 := fn.Eval(x1, nil, nil)
	f2 := fn.Eval(x2, nil, nil)

	d := mat.NewVecDense(n, nil)
	d.SubVec(x1, x2)
	dx := mat.Dot(d, d)

	xt := mat.NewVecDense(n, nil)
	worst := 0.0
	for step := 1; step < steps; step++ {
		t1 := float64(step) / float64(steps)
		t2 := 1 - t1

		xt.ScaleVec(t1, x1)
		xt.AddScaledVec(xt, t2, x2)

		bound := t1*f1 + t2*f2 - t1*t2*fn.StrongConvexity()*0.5*dx
		worst = math.Max(worst, fn.Eval(xt, nil, nil)-bound)
	}
	return worst
}

// ConvexAlong reports whether the convexity inequality holds along the
// [x1, x2] segment within epsilon.
func ConvexAlong(fn Function, x1, x2 *mat.VecDense, steps int, epsilon float64) bool {
	return ConvexAccuracy(fn, x1, x2, steps) <= epsilon
}

// IsConvexMatrix reports whether the symmetric quadratic term Q is positive
// semi-definite within tol.
func IsConvexMatrix(q *mat.Dense, tol float64) bool {
	return minEigenvalue(q) >= -tol
}

// StrongConvexityOf returns the smallest eigenvalue of the symmetric
// quadratic term Q if Q is convex, and 0 otherwise.
func StrongConvexityOf(q *mat.Dense) float64 {
	lo := minEigenvalue(q)
	if lo < 0 {
		return 0
	}
	return lo
}

func minEigenvalue(q *mat.Dense) float64 {
	n, _ := q.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(q.At(i, j)+q.At(j, i)))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return math.Inf(-1)
	}
	values := eig.Values(nil)
	lo := math.Inf(1)
	for _, v := range values {
		lo = math.Min(lo, v)
	}
	return lo
}
