package lsearch

import "github.com/optkit/optkit/params"

// LeMarechal implements LeMarechal's bracketing line search for the regular
// Wolfe conditions: expand until the trial fails Armijo (upper bound) or
// satisfies both conditions, then interpolate inside the bracket keeping
// the function value monotone on the lower end.
type LeMarechal struct {
	tolerances
}

// NewLeMarechal returns the "lemarechal" algorithm with c1 = 1e-4, c2 = 0.9
// and extrapolation factor 9.
func NewLeMarechal() *LeMarechal {
	l := &LeMarechal{tolerances: newTolerances(1e-4, 0.9)}
	l.params.MustRegister(params.MustFloat("lsearchk::lemarechal::tau1", 1, params.LT, 9, params.LT, 1e6))
	return l
}

// Clone returns a fresh algorithm with the same parameters.
func (l *LeMarechal) Clone() Search { return &LeMarechal{tolerances: l.tolerances.clone()} }

// Name returns "lemarechal".
func (l *LeMarechal) Name() string { return "lemarechal" }

// Objective returns Wolfe.
func (l *LeMarechal) Objective() Objective { return Wolfe }

// Get runs the bracket-and-interpolate loop from t0.
func (l *LeMarechal) Get(p *Probe, t0 float64) bool {
	if !p.Descent() {
		return false
	}

	c1, c2 := l.c1(), l.c2()
	tau1 := l.params.Float("lsearchk::lemarechal::tau1")

	lo := p.Step0()
	hi := Step{}
	bracketed := false

	t := clamp(t0, StepMin, StepMax)
	for iter := 0; iter < l.maxIters(); iter++ {
		if !p.Move(t) {
			return false
		}

		switch {
		case !p.HasArmijo(c1):
			hi = p.Step()
			bracketed = true
		case p.HasWolfe(c2):
			return true
		default:
			// Armijo holds but the slope is still too negative: raise the
			// lower end, keeping the smallest function value seen there.
			lo = p.Step()
		}

		if bracketed {
			t = clamp(Interpolate(lo, hi, InterpCubic),
				lo.T+StepMin, hi.T-StepMin)
			if t <= lo.T || t >= hi.T {
				t = Bisection(lo, hi)
			}
		} else {
			t *= tau1
		}
	}
	return false
}
