package lsearch

import (
	"math"

	"github.com/optkit/optkit/params"
)

// Fletcher implements the two-stage strong-Wolfe line search of Fletcher:
// bracket a step interval by extrapolation, then zoom with safeguarded
// interpolation.
type Fletcher struct {
	tolerances
}

// NewFletcher returns the "fletcher" algorithm with c1 = 1e-4, c2 = 0.9 and
// the reference bracketing factors τ₁ = 9, τ₂ = 0.1, τ₃ = 0.5.
func NewFletcher() *Fletcher {
	f := &Fletcher{tolerances: newTolerances(1e-4, 0.9)}
	f.params.MustRegister(params.MustFloat("lsearchk::fletcher::tau1", 1, params.LT, 9, params.LT, 1e6))
	f.params.MustRegister(params.MustFloat("lsearchk::fletcher::tau2", 0, params.LT, 0.1, params.LT, 0.5))
	f.params.MustRegister(params.MustFloat("lsearchk::fletcher::tau3", 0, params.LT, 0.5, params.LE, 0.5))
	return f
}

// Clone returns a fresh algorithm with the same parameters.
func (f *Fletcher) Clone() Search { return &Fletcher{tolerances: f.tolerances.clone()} }

// Name returns "fletcher".
func (f *Fletcher) Name() string { return "fletcher" }

// Objective returns StrongWolfe.
func (f *Fletcher) Objective() Objective { return StrongWolfe }

// Get runs the bracketing stage from t0, delegating to zoom once an
// interval containing an acceptable step is known.
func (f *Fletcher) Get(p *Probe, t0 float64) bool {
	if !p.Descent() {
		return false
	}

	c1, c2 := f.c1(), f.c2()
	tau1 := f.params.Float("lsearchk::fletcher::tau1")

	if !p.Move(clamp(t0, StepMin, StepMax)) {
		return false
	}

	prev := p.Step0()
	curr := p.Step()
	for iter := 1; iter < f.maxIters(); iter++ {
		switch {
		case !p.HasArmijo(c1) || (curr.F >= prev.F && iter > 1):
			return f.zoom(p, prev, curr)
		case p.HasStrongWolfe(c2):
			return true
		case p.DG() >= 0:
			return f.zoom(p, curr, prev)
		}

		// extrapolate into [t + 2Δ, t + τ₁Δ]
		tmin := curr.T + 2*(curr.T-prev.T)
		tmax := curr.T + tau1*(curr.T-prev.T)
		next := clamp(Interpolate(prev, curr, InterpCubic), tmin, tmax)
		if !p.Move(next) {
			return false
		}
		prev = curr
		curr = p.Step()
	}
	return false
}

// zoom shrinks [lo, hi] with safeguarded cubic interpolation until the
// strong Wolfe set holds.
func (f *Fletcher) zoom(p *Probe, lo, hi Step) bool {
	c1, c2 := f.c1(), f.c2()
	tau2 := f.params.Float("lsearchk::fletcher::tau2")
	tau3 := f.params.Float("lsearchk::fletcher::tau3")

	for iter := 0; iter < f.maxIters() && math.Abs(lo.T-hi.T) > StepMin; iter++ {
		tmin := lo.T + math.Min(tau2, c2)*(hi.T-lo.T)
		tmax := hi.T - tau3*(hi.T-lo.T)
		next := clamp(Interpolate(lo, hi, InterpCubic), math.Min(tmin, tmax), math.Max(tmin, tmax))
		if !p.Move(next) {
			return false
		}

		if !p.HasArmijo(c1) || p.F >= lo.F {
			hi = p.Step()
			continue
		}
		if p.HasStrongWolfe(c2) {
			return true
		}
		if p.DG()*(hi.T-lo.T) >= 0 {
			hi = lo
		}
		lo = p.Step()
	}
	return false
}
