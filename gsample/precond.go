package gsample

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/solver"
)

// precond applies the preconditioner W to sampled aggregate gradients.
type precond interface {
	// apply sets dst = W·v.
	apply(dst, v *mat.VecDense)

	// rebuild refreshes W from the current sample set.
	rebuild(s *sampler, st *solver.State, epsilon float64)

	// observe folds the last accepted step length into the scaling.
	observe(t float64)
}

// identityPrecond is W = I.
type identityPrecond struct{}

func (identityPrecond) apply(dst, v *mat.VecDense)               { dst.CopyVec(v) }
func (identityPrecond) rebuild(*sampler, *solver.State, float64) {}
func (identityPrecond) observe(float64)                          {}

// lbfgsPrecond rebuilds W = μ⁻¹·I and applies BFGS-style updates from the
// sample differences (d_i, y_i), accepting a pair only when dᵀy >= γ·ε and
// ‖y‖² <= σ·ε. Short steps double μ (cap 1e3), full steps halve it
// (floor 1e-2).
type lbfgsPrecond struct {
	w     *mat.Dense
	miu   float64
	gamma float64
	sigma float64
}

func newLBFGSPrecond() *lbfgsPrecond {
	return &lbfgsPrecond{miu: 1, gamma: 0.1, sigma: 100}
}

func (p *lbfgsPrecond) observe(t float64) {
	const miuMin, miuMax = 1e-2, 1e+3
	if t < 1 {
		p.miu = math.Min(2*p.miu, miuMax)
	} else {
		p.miu = math.Max(0.5*p.miu, miuMin)
	}
}

func (p *lbfgsPrecond) rebuild(s *sampler, st *solver.State, epsilon float64) {
	n := st.X.Len()
	if p.w == nil {
		p.w = mat.NewDense(n, n, nil)
	}
	p.w.Zero()
	for i := 0; i < n; i++ {
		p.w.Set(i, i, 1/p.miu)
	}

	d := mat.NewVecDense(n, nil)
	y := mat.NewVecDense(n, nil)
	q := mat.NewDense(n, n, nil)
	tmp := mat.NewDense(n, n, nil)

	for i := range s.xs {
		d.SubVec(s.xs[i], st.X)
		y.SubVec(s.gs[i], st.G)
		dy := mat.Dot(d, y)

		if dy < p.gamma*epsilon || mat.Dot(y, y) > p.sigma*epsilon {
			continue
		}

		// W ← (I − dyᵀ/dᵀy)·W·(I − ydᵀ/dᵀy) + ddᵀ/dᵀy
		q.Zero()
		for r := 0; r < n; r++ {
			q.Set(r, r, 1)
		}
		tmp.Outer(1/dy, y, d)
		q.Sub(q, tmp) // q = I − ydᵀ/dᵀy

		tmp.Mul(q.T(), p.w)
		p.w.Mul(tmp, q)
		tmp.Outer(1/dy, d, d)
		p.w.Add(p.w, tmp)
	}
}

func (p *lbfgsPrecond) apply(dst, v *mat.VecDense) {
	if p.w == nil {
		dst.CopyVec(v)
		return
	}
	dst.MulVec(p.w, v)
}
