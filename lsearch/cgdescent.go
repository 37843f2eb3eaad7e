package lsearch

import (
	"math"

	"github.com/optkit/optkit/params"
)

// CGDescent implements the Hager-Zhang CG_DESCENT line search: interval
// updates with the bisection parameter θ, secant² steps, γ-guarded interval
// shrinkage and ρ expansion during bracketing. A step is accepted when it
// satisfies the original Wolfe conditions, or the approximate Wolfe
// conditions together with φ(t) <= φ(0) + εₖ.
type CGDescent struct {
	tolerances
}

// NewCGDescent returns the "cgdescent" algorithm with the reference
// defaults c1 = 0.1, c2 = 0.9, θ = 0.5, γ = 0.66, ρ = 5, ε = 1e-6.
func NewCGDescent() *CGDescent {
	c := &CGDescent{tolerances: newTolerances(0.1, 0.9)}
	c.params.MustRegister(params.MustFloat("lsearchk::cgdescent::theta", 0, params.LT, 0.5, params.LT, 1))
	c.params.MustRegister(params.MustFloat("lsearchk::cgdescent::gamma", 0, params.LT, 0.66, params.LT, 1))
	c.params.MustRegister(params.MustFloat("lsearchk::cgdescent::ro", 1, params.LT, 5, params.LT, 1e6))
	c.params.MustRegister(params.MustFloat("lsearchk::cgdescent::epsilon", 0, params.LT, 1e-6, params.LT, 1))
	return c
}

// Clone returns a fresh algorithm with the same parameters.
func (c *CGDescent) Clone() Search { return &CGDescent{tolerances: c.tolerances.clone()} }

// Name returns "cgdescent".
func (c *CGDescent) Name() string { return "cgdescent" }

// Objective returns WolfeApproxWolfe.
func (c *CGDescent) Objective() Objective { return WolfeApproxWolfe }

// cgdState carries the bracketing interval [a, b] around the probe.
type cgdState struct {
	p        *Probe
	a, b     Step
	epsilonK float64
	c1, c2   float64
	theta    float64
	evals    int
	budget   int
}

// done reports whether the current trial point is acceptable.
func (s *cgdState) done() bool {
	return (s.p.HasArmijo(s.c1) && s.p.HasWolfe(s.c2)) ||
		s.p.HasApproxWolfe(s.c1, s.c2, s.epsilonK)
}

// move evaluates φ at t; returns false on an inadmissible step or an
// exhausted budget.
func (s *cgdState) move(t float64) bool {
	s.evals++
	return s.evals <= s.budget && s.p.Move(t)
}

// Get runs bracketing followed by secant² iterations from t0.
func (c *CGDescent) Get(p *Probe, t0 float64) bool {
	if !p.Descent() {
		return false
	}

	s := &cgdState{
		p:        p,
		epsilonK: c.params.Float("lsearchk::cgdescent::epsilon") * math.Max(1, math.Abs(p.F0())),
		c1:       c.c1(),
		c2:       c.c2(),
		theta:    c.params.Float("lsearchk::cgdescent::theta"),
		budget:   c.maxIters(),
	}
	gamma := c.params.Float("lsearchk::cgdescent::gamma")
	ro := c.params.Float("lsearchk::cgdescent::ro")

	if !s.move(clamp(t0, StepMin, StepMax)) {
		return false
	}
	if s.done() {
		return true
	}

	// bracket [a, b] such that φ′(a) < 0, φ(a) <= φ(0)+εₖ and φ′(b) >= 0
	if accepted, ok := c.bracket(s, ro); accepted || !ok {
		return accepted
	}

	for s.evals < s.budget {
		width := s.b.T - s.a.T

		accepted, ok := c.secant2(s)
		if accepted || !ok {
			return accepted
		}

		// enforce γ-shrinkage with a bisection step
		if s.b.T-s.a.T > gamma*width {
			if !s.move(Bisection(s.a, s.b)) {
				return false
			}
			if s.done() {
				return true
			}
			if accepted, ok := c.update(s, s.p.Step()); accepted || !ok {
				return accepted
			}
		}
		if s.b.T-s.a.T < StepMin {
			return false
		}
	}
	return false
}

// bracket expands the trial step by ρ until an upper end with non-negative
// slope (or excessive value) is found. Returns (accepted, ok).
func (c *CGDescent) bracket(s *cgdState, ro float64) (bool, bool) {
	s.a = s.p.Step0()
	for s.evals < s.budget {
		curr := s.p.Step()
		switch {
		case curr.G >= 0:
			s.b = curr
			return false, true
		case s.p.F > s.p.F0()+s.epsilonK:
			// the value grew: locate the bracket inside [a, curr]
			s.b = curr
			return c.updateInward(s)
		default:
			s.a = curr
			if !s.move(ro * curr.T) {
				return false, false
			}
			if s.done() {
				return true, true
			}
		}
	}
	return false, false
}

// update refines [a, b] with the trial step curr (interval update rules
// U0–U3). Returns (accepted, ok).
func (c *CGDescent) update(s *cgdState, curr Step) (bool, bool) {
	switch {
	case curr.T <= s.a.T || curr.T >= s.b.T:
		return false, true // outside: no change
	case curr.G >= 0:
		s.b = curr
		return false, true
	case curr.F <= s.p.F0()+s.epsilonK:
		s.a = curr
		return false, true
	default:
		s.b = curr
		return c.updateInward(s)
	}
}

// updateInward shrinks [a, b] by θ-bisection until the lower end carries an
// admissible value and the upper end a non-negative slope.
func (c *CGDescent) updateInward(s *cgdState) (bool, bool) {
	for s.evals < s.budget && s.b.T-s.a.T > StepMin {
		if !s.move((1-s.theta)*s.a.T + s.theta*s.b.T) {
			return false, false
		}
		if s.done() {
			return true, true
		}
		d := s.p.Step()
		switch {
		case d.G >= 0:
			s.b = d
			return false, true
		case d.F <= s.p.F0()+s.epsilonK:
			s.a = d
		default:
			s.b = d
		}
	}
	return false, false
}

// secant2 performs the double-secant step of CG_DESCENT.
func (c *CGDescent) secant2(s *cgdState) (bool, bool) {
	a, b := s.a, s.b

	t := Secant(a, b)
	if !isFinite(t) || t <= a.T || t >= b.T {
		t = Bisection(a, b)
	}
	if !s.move(t) {
		return false, false
	}
	if s.done() {
		return true, true
	}
	curr := s.p.Step()
	if accepted, ok := c.update(s, curr); accepted || !ok {
		return accepted, ok
	}

	// second secant on the updated end
	var t2 float64
	switch {
	case curr.T == s.b.T:
		t2 = Secant(b, curr)
	case curr.T == s.a.T:
		t2 = Secant(a, curr)
	default:
		return false, true
	}
	if !isFinite(t2) || t2 <= s.a.T || t2 >= s.b.T {
		return false, true
	}
	if !s.move(t2) {
		return false, false
	}
	if s.done() {
		return true, true
	}
	return c.update(s, s.p.Step())
}
