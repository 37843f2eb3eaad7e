package lsearch

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/params"
)

// Iterate is the solver history handed to an initial-step estimator.
type Iterate struct {
	// Iter is the major iteration index, 0 for the first line search.
	Iter int

	// X and G are the current iterate and its gradient.
	X *mat.VecDense
	G *mat.VecDense

	// F and PrevF are the current and previous function values.
	F     float64
	PrevF float64

	// DG is φ′(0) = g·d along the upcoming direction.
	DG float64

	// PrevT is the previously accepted step length (0 at iteration 0).
	PrevT float64

	// Phi evaluates φ(t) = f(x + t·d); used by estimators that probe the
	// function (one oracle call per invocation). Nil disables probing.
	Phi func(t float64) float64
}

// Init estimates the initial step length t0 of a line search from the
// solver history. Implementations may keep state across iterations and are
// therefore cloned per minimize call.
type Init interface {
	// Clone returns a fresh estimator with the same parameters and a clean
	// internal state.
	Clone() Init

	// Name returns the registry identifier.
	Name() string

	// Params returns the estimator's tunables.
	Params() *params.Set

	// Get returns the initial step length for the upcoming line search.
	Get(it Iterate) float64
}

// ConstantInit always proposes the configured step length.
type ConstantInit struct {
	params params.Set
}

// NewConstantInit returns the "constant" estimator with t0 = 1.
func NewConstantInit() *ConstantInit {
	c := &ConstantInit{}
	c.params.MustRegister(params.MustFloat("lsearch0::constant::t0", 0, params.LT, 1, params.LT, 1e6))
	return c
}

// Clone returns a fresh estimator with the same parameters.
func (c *ConstantInit) Clone() Init { return &ConstantInit{params: c.params.Clone()} }

// Name returns "constant".
func (c *ConstantInit) Name() string { return "constant" }

// Params returns the estimator's tunables.
func (c *ConstantInit) Params() *params.Set { return &c.params }

// Get returns the configured t0.
func (c *ConstantInit) Get(Iterate) float64 { return c.params.Float("lsearch0::constant::t0") }

// QuadraticInit proposes 1/‖g‖₂ at iteration 0 and the quadratic-decrease
// rule 2(f_k − f_{k−1})/φ′(0) afterwards, clamped to [1e-10, 1e10].
type QuadraticInit struct {
	params params.Set
}

// NewQuadraticInit returns the "quadratic" estimator.
func NewQuadraticInit() *QuadraticInit {
	q := &QuadraticInit{}
	q.params.MustRegister(params.MustFloat("lsearch0::quadratic::tmin", 0, params.LT, 1e-10, params.LT, 1))
	q.params.MustRegister(params.MustFloat("lsearch0::quadratic::tmax", 1, params.LE, 1e+10, params.LE, 1e+20))
	return q
}

// Clone returns a fresh estimator with the same parameters.
func (q *QuadraticInit) Clone() Init { return &QuadraticInit{params: q.params.Clone()} }

// Name returns "quadratic".
func (q *QuadraticInit) Name() string { return "quadratic" }

// Params returns the estimator's tunables.
func (q *QuadraticInit) Params() *params.Set { return &q.params }

// Get returns the history-based estimate.
func (q *QuadraticInit) Get(it Iterate) float64 {
	tmin := q.params.Float("lsearch0::quadratic::tmin")
	tmax := q.params.Float("lsearch0::quadratic::tmax")

	if it.Iter == 0 {
		gnorm := mat.Norm(it.G, 2)
		if gnorm > 0 {
			return clamp(1/gnorm, tmin, tmax)
		}
		return 1
	}
	t := 2 * (it.F - it.PrevF) / it.DG
	if !isFinite(t) || t <= 0 {
		return 1
	}
	return clamp(t, tmin, tmax)
}

// CGDescentInit implements the ψ-rules of CG-DESCENT: ψ₀‖x‖∞/‖g‖∞ at
// iteration 0, quadratic interpolation at ψ₁·t_prev when admissible, and
// ψ₂·t_prev otherwise.
type CGDescentInit struct {
	params params.Set
}

// NewCGDescentInit returns the "cgdescent" estimator with the reference
// defaults ψ₀ = 0.01, ψ₁ = 0.1, ψ₂ = 2.
func NewCGDescentInit() *CGDescentInit {
	c := &CGDescentInit{}
	c.params.MustRegister(params.MustFloat("lsearch0::cgdescent::psi0", 0, params.LT, 0.01, params.LT, 1))
	c.params.MustRegister(params.MustFloat("lsearch0::cgdescent::psi1", 0, params.LT, 0.1, params.LT, 1))
	c.params.MustRegister(params.MustFloat("lsearch0::cgdescent::psi2", 1, params.LT, 2.0, params.LT, 1e6))
	return c
}

// Clone returns a fresh estimator with the same parameters.
func (c *CGDescentInit) Clone() Init { return &CGDescentInit{params: c.params.Clone()} }

// Name returns "cgdescent".
func (c *CGDescentInit) Name() string { return "cgdescent" }

// Params returns the estimator's tunables.
func (c *CGDescentInit) Params() *params.Set { return &c.params }

// Get returns the ψ-rule estimate.
func (c *CGDescentInit) Get(it Iterate) float64 {
	psi0 := c.params.Float("lsearch0::cgdescent::psi0")
	psi1 := c.params.Float("lsearch0::cgdescent::psi1")
	psi2 := c.params.Float("lsearch0::cgdescent::psi2")

	if it.Iter == 0 {
		xinf := mat.Norm(it.X, math.Inf(1))
		ginf := mat.Norm(it.G, math.Inf(1))
		switch {
		case xinf > 0 && ginf > 0:
			return psi0 * xinf / ginf
		case it.F != 0:
			g2 := mat.Norm(it.G, 2)
			if g2 > 0 {
				return psi0 * math.Abs(it.F) / (g2 * g2)
			}
		}
		return 1
	}

	// quadratic interpolation through φ(0), φ′(0) and φ(ψ₁·t_prev)
	if it.Phi != nil {
		tp := psi1 * it.PrevT
		fp := it.Phi(tp)
		if fp <= it.F {
			u := Step{T: 0, F: it.F, G: it.DG}
			v := Step{T: tp, F: fp}
			if tq, convex := Quadratic(u, v); convex && isFinite(tq) && tq > 0 {
				return tq
			}
		}
	}
	return psi2 * it.PrevT
}
