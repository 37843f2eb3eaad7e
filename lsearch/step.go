package lsearch

import "math"

// Step is one point of the scalar restriction φ(t) = f(x + t·d): the step
// length, the function value and the directional derivative φ′(t) = g(t)·d.
type Step struct {
	T float64
	F float64
	G float64
}

// Interpolation selects the formula used to propose the next trial step
// from two known steps.
type Interpolation uint8

const (
	// InterpCubic fits a cubic through both steps' values and slopes.
	InterpCubic Interpolation = iota

	// InterpQuadratic fits a parabola through u's value/slope and v's value.
	InterpQuadratic

	// InterpSecant intersects the two slopes.
	InterpSecant

	// InterpBisection averages the two step lengths.
	InterpBisection
)

// Cubic returns the minimizer of the cubic Hermite interpolant of u and v.
// The result is NaN when the interpolant has no real minimizer.
func Cubic(u, v Step) float64 {
	d1 := u.G + v.G - 3*(u.F-v.F)/(u.T-v.T)
	sign := 1.0
	if v.T < u.T {
		sign = -1.0
	}
	d2 := sign * math.Sqrt(d1*d1-u.G*v.G)
	return v.T - (v.T-u.T)*(v.G+d2-d1)/(v.G-u.G+2*d2)
}

// Quadratic returns the minimizer of the parabola through (u.T, u.F) with
// slope u.G and (v.T, v.F), and whether that parabola is convex.
func Quadratic(u, v Step) (float64, bool) {
	dt := u.T - v.T
	df := u.F - v.F
	convex := dt*u.G-df > 0
	return u.T - 0.5*u.G*dt/(u.G-df/dt), convex
}

// Secant returns the zero crossing of the secant through both slopes.
func Secant(u, v Step) float64 {
	return (v.T*u.G - u.T*v.G) / (u.G - v.G)
}

// Bisection returns the midpoint of the two step lengths.
func Bisection(u, v Step) float64 {
	return 0.5 * (u.T + v.T)
}

// Interpolate proposes the next trial step using the requested method,
// falling back to quadratic and then bisection whenever the prior formula
// yields a non-finite value. Bisection always lies in the convex hull of
// {u.T, v.T}.
func Interpolate(u, v Step, method Interpolation) float64 {
	tc := Cubic(u, v)
	tq, _ := Quadratic(u, v)
	tb := Bisection(u, v)

	switch method {
	case InterpCubic:
		if isFinite(tc) {
			return tc
		}
		fallthrough
	case InterpQuadratic:
		if isFinite(tq) {
			return tq
		}
		fallthrough
	default:
		return tb
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clamp restricts t to [lo, hi].
func clamp(t, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, t))
}
