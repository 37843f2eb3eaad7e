package lsearch

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
)

// Step-length limits shared by every acceptance algorithm.
var (
	// StepMin is the smallest admissible step length, 10·machine-epsilon.
	StepMin = 10 * machineEpsilon

	// StepMax is the largest admissible step length, 1/(10·machine-epsilon).
	StepMax = 1 / (10 * machineEpsilon)
)

const machineEpsilon = 0x1p-52

// Probe is the mutable evaluation state of one line search: the frozen
// origin (x0, f0, φ′(0)) and the trial point at the current step length.
// Move evaluates the oracle; all buffers are owned by the probe.
type Probe struct {
	fn function.Function
	d  *mat.VecDense

	x0  *mat.VecDense
	f0  float64
	dg0 float64

	// trial state
	X *mat.VecDense
	G *mat.VecDense
	F float64
	T float64
}

// NewProbe builds a probe at the accepted state (x0, f0, g0) along the
// direction d. The inputs are copied; the probe never aliases solver
// buffers.
func NewProbe(fn function.Function, x0 *mat.VecDense, f0 float64, g0 *mat.VecDense, d *mat.VecDense) *Probe {
	n := fn.Size()
	p := &Probe{
		fn:  fn,
		d:   mat.VecDenseCopyOf(d),
		x0:  mat.VecDenseCopyOf(x0),
		f0:  f0,
		dg0: mat.Dot(g0, d),
		X:   mat.NewVecDense(n, nil),
		G:   mat.NewVecDense(n, nil),
	}
	p.X.CopyVec(x0)
	p.G.CopyVec(g0)
	p.F = f0
	return p
}

// Descent reports whether d is a descent direction at the origin.
func (p *Probe) Descent() bool { return p.dg0 < 0 }

// F0 returns f(x0).
func (p *Probe) F0() float64 { return p.f0 }

// DG0 returns φ′(0) = g(x0)·d.
func (p *Probe) DG0() float64 { return p.dg0 }

// DG returns φ′(t) = g(x0 + t·d)·d at the trial point.
func (p *Probe) DG() float64 { return mat.Dot(p.G, p.d) }

// Move evaluates the oracle at x0 + t·d and reports whether the step is
// admissible: t within [StepMin, StepMax] and a finite function value.
func (p *Probe) Move(t float64) bool {
	p.T = t
	p.X.AddScaledVec(p.x0, t, p.d)
	p.F = p.fn.Eval(p.X, p.G, nil)
	return t >= StepMin && t <= StepMax && isFinite(p.F)
}

// Step returns the trial point as a scalar step.
func (p *Probe) Step() Step { return Step{T: p.T, F: p.F, G: p.DG()} }

// Step0 returns the origin as a scalar step.
func (p *Probe) Step0() Step { return Step{T: 0, F: p.f0, G: p.dg0} }

// HasArmijo reports f(t) <= f(0) + c1·t·φ′(0).
func (p *Probe) HasArmijo(c1 float64) bool {
	return p.F <= p.f0+c1*p.T*p.dg0
}

// HasWolfe reports φ′(t) >= c2·φ′(0).
func (p *Probe) HasWolfe(c2 float64) bool {
	return p.DG() >= c2*p.dg0
}

// HasStrongWolfe reports |φ′(t)| <= c2·|φ′(0)|.
func (p *Probe) HasStrongWolfe(c2 float64) bool {
	return math.Abs(p.DG()) <= c2*math.Abs(p.dg0)
}

// HasApproxWolfe reports the CG-DESCENT approximate Wolfe conditions:
// (2c1−1)·φ′(0) >= φ′(t) >= c2·φ′(0) and φ(t) <= φ(0) + epsilonK.
func (p *Probe) HasApproxWolfe(c1, c2, epsilonK float64) bool {
	dg := p.DG()
	return (2*c1-1)*p.dg0 >= dg && dg >= c2*p.dg0 && p.F <= p.f0+epsilonK
}
