package lsearch

// Backtrack shrinks the step by cubic interpolation between the origin and
// the current trial until the Armijo condition holds.
type Backtrack struct {
	tolerances
}

// NewBacktrack returns the "backtrack" algorithm with c1 = 1e-4, c2 = 0.9.
func NewBacktrack() *Backtrack {
	return &Backtrack{tolerances: newTolerances(1e-4, 0.9)}
}

// Clone returns a fresh algorithm with the same parameters.
func (b *Backtrack) Clone() Search { return &Backtrack{tolerances: b.tolerances.clone()} }

// Name returns "backtrack".
func (b *Backtrack) Name() string { return "backtrack" }

// Objective returns Armijo.
func (b *Backtrack) Objective() Objective { return Armijo }

// Get runs the backtracking loop from t0.
func (b *Backtrack) Get(p *Probe, t0 float64) bool {
	if !p.Descent() {
		return false
	}

	c1 := b.c1()
	t := clamp(t0, StepMin, StepMax)
	for iter := 0; iter < b.maxIters(); iter++ {
		if t < StepMin {
			return false
		}
		ok := p.Move(t)
		if ok && p.HasArmijo(c1) {
			return true
		}

		// cubic between the origin and the failed trial; the clamp keeps a
		// geometric shrink even when the interpolant degenerates
		next := Interpolate(p.Step0(), p.Step(), InterpCubic)
		t = clamp(next, 0.1*t, 0.9*t)
	}
	return false
}
