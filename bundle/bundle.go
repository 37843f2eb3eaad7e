package bundle

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/ipm"
	"github.com/optkit/optkit/solver"
)

// ErrQP indicates that the inner dual QP could not be solved.
var ErrQP = errors.New("bundle: dual QP failed")

// Metric applies the inverse proximity metric W = (1/μ)·M⁻¹ used by the
// trial-step computation.
type Metric interface {
	// Apply sets dst = W·v.
	Apply(dst, v *mat.VecDense)
}

// ScaledIdentity returns the inverse metric W = τ·I.
func ScaledIdentity(tau float64) Metric { return scaledIdentity{tau: tau} }

// scaledIdentity is W = τ·I.
type scaledIdentity struct{ tau float64 }

func (w scaledIdentity) Apply(dst, v *mat.VecDense) { dst.ScaleVec(w.tau, v) }

// matrixMetric is W = M⁻¹ for a dense positive-definite M.
type matrixMetric struct{ lu *mat.LU }

func (w matrixMetric) Apply(dst, v *mat.VecDense) {
	if err := w.lu.SolveVecTo(dst, false, v); err != nil {
		dst.CopyVec(v)
	}
}

// Bundle holds the stability center and the active cuts.
type Bundle struct {
	xc *mat.VecDense
	fc float64
	gc *mat.VecDense

	gs []*mat.VecDense // cut gradients
	es []float64       // linearization errors at the center, >= 0
	ws []float64       // dual weights of the last QP solve

	maxSize int
	qpOpts  ipm.Options
}

// New builds a bundle seeded with the center cut of the given state.
func New(st *solver.State, maxSize int) *Bundle {
	b := &Bundle{
		xc:      mat.VecDenseCopyOf(st.X),
		fc:      st.F,
		gc:      mat.VecDenseCopyOf(st.G),
		maxSize: maxSize,
		qpOpts:  ipm.DefaultOptions(),
	}
	b.qpOpts.Epsilon = 1e-10
	b.gs = append(b.gs, mat.VecDenseCopyOf(st.G))
	b.es = append(b.es, 0)
	b.ws = append(b.ws, 1)
	return b
}

// X returns the stability center.
func (b *Bundle) X() *mat.VecDense { return b.xc }

// Fx returns the center value.
func (b *Bundle) Fx() float64 { return b.fc }

// Gx returns the center (sub-)gradient.
func (b *Bundle) Gx() *mat.VecDense { return b.gc }

// Size returns the number of active cuts.
func (b *Bundle) Size() int { return len(b.gs) }

// Append adds the cut ℓ(z) = fy + gyᵀ(z−y) without moving the center
// (a null step).
func (b *Bundle) Append(y *mat.VecDense, gy *mat.VecDense, fy float64) {
	n := b.xc.Len()
	diff := mat.NewVecDense(n, nil)
	diff.SubVec(b.xc, y)
	e := b.fc - (fy + mat.Dot(gy, diff))
	// convexity keeps e >= 0 up to rounding
	b.push(mat.VecDenseCopyOf(gy), math.Max(0, e))
}

// MoveTo makes (y, gy, fy) the new stability center, re-anchoring every
// linearization error, and appends the center cut.
func (b *Bundle) MoveTo(y *mat.VecDense, gy *mat.VecDense, fy float64) {
	n := b.xc.Len()
	delta := mat.NewVecDense(n, nil)
	delta.SubVec(y, b.xc)

	// e_i' = e_i + (f_c' − f_c) − g_iᵀ(x_c' − x_c)
	for i := range b.es {
		b.es[i] = math.Max(0, b.es[i]+(fy-b.fc)-mat.Dot(b.gs[i], delta))
	}

	b.xc.CopyVec(y)
	b.fc = fy
	b.gc.CopyVec(gy)
	b.push(mat.VecDenseCopyOf(gy), 0)
}

// push inserts a cut, evicting the smallest-weight non-center cut when the
// cap is exceeded.
func (b *Bundle) push(g *mat.VecDense, e float64) {
	b.gs = append(b.gs, g)
	b.es = append(b.es, e)
	b.ws = append(b.ws, 0)

	if len(b.gs) <= b.maxSize {
		return
	}
	evict := -1
	wmin := math.Inf(1)
	for i := range b.gs {
		if b.es[i] == 0 {
			continue // the center cut is always retained
		}
		if b.ws[i] < wmin {
			wmin, evict = b.ws[i], i
		}
	}
	if evict < 0 {
		evict = 0
	}
	b.gs = append(b.gs[:evict], b.gs[evict+1:]...)
	b.es = append(b.es[:evict], b.es[evict+1:]...)
	b.ws = append(b.ws[:evict], b.ws[evict+1:]...)
}

// Model evaluates m(y) = f_c + max_i (g_iᵀ(y−x_c) − e_i).
func (b *Bundle) Model(y *mat.VecDense) float64 {
	n := b.xc.Len()
	diff := mat.NewVecDense(n, nil)
	diff.SubVec(y, b.xc)

	best := math.Inf(-1)
	for i := range b.gs {
		best = math.Max(best, mat.Dot(b.gs[i], diff)-b.es[i])
	}
	return b.fc + best
}

// Trial is the solution of the proximal subproblem.
type Trial struct {
	// D is the descent direction W·ĝ, so the trial point is x_c − t·D.
	D *mat.VecDense

	// Ghat is the aggregate subgradient Σ w_i·g_i.
	Ghat *mat.VecDense

	// SmearedError is Σ w_i·e_i.
	SmearedError float64

	// SmearedGNorm is ‖Σ w_i·g_i‖₂.
	SmearedGNorm float64

	// Delta is the model decrease f_c − m(x_c − D) = ĝᵀWĝ + Σw_i·e_i.
	Delta float64
}

// Solve computes the proximal trial step for the metric W by solving the
// dual QP   min_w ½·wᵀ(GWGᵀ)w + eᵀw   over the simplex.
func (b *Bundle) Solve(w Metric) (*Trial, error) {
	n := b.xc.Len()
	k := len(b.gs)

	// precompute W·g_j
	wg := make([]*mat.VecDense, k)
	for j := 0; j < k; j++ {
		wg[j] = mat.NewVecDense(n, nil)
		w.Apply(wg[j], b.gs[j])
	}

	q := make([]float64, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			q[i*k+j] = mat.Dot(b.gs[i], wg[j])
		}
	}
	ones := make([]float64, k)
	for i := range ones {
		ones[i] = 1
	}

	program := ipm.NewQuadraticProgram(k, q, append([]float64(nil), b.es...)).
		WithEquality(1, ones, []float64{1}).
		WithLower(0)

	sol := ipm.Solve(program, uniformSimplex(k), b.qpOpts)
	if sol.Status != solver.Converged && sol.Status != solver.MaxIters {
		return nil, ErrQP
	}

	tr := &Trial{
		D:    mat.NewVecDense(n, nil),
		Ghat: mat.NewVecDense(n, nil),
	}
	for i := 0; i < k; i++ {
		wi := math.Max(0, sol.X.AtVec(i))
		b.ws[i] = wi
		tr.Ghat.AddScaledVec(tr.Ghat, wi, b.gs[i])
		tr.SmearedError += wi * b.es[i]
	}
	w.Apply(tr.D, tr.Ghat)
	tr.SmearedGNorm = mat.Norm(tr.Ghat, 2)
	tr.Delta = mat.Dot(tr.Ghat, tr.D) + tr.SmearedError
	return tr, nil
}

// Converged is the reliable non-smooth stopping criterion on the QP duals:
// both smeared quantities below ε·√n.
func (tr *Trial) Converged(epsilon float64, n int) bool {
	limit := epsilon * math.Sqrt(float64(n))
	return tr.SmearedError < limit && tr.SmearedGNorm < limit
}

func uniformSimplex(k int) *mat.VecDense {
	v := mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		v.SetVec(i, 1/float64(k))
	}
	return v
}
