package function

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Quadratic is f(x) = ½·xᵀQx + cᵀx with a symmetric quadratic term.
// Convexity and the strong-convexity coefficient are derived from the
// spectrum of Q.
type Quadratic struct {
	*Base
	q *mat.Dense
	c *mat.VecDense

	xbest *mat.VecDense
}

// NewQuadratic builds a quadratic function from the n×n term Q and the
// linear term c (both row-major flat slices for Q).
func NewQuadratic(name string, n int, q []float64, c []float64) *Quadratic {
	qm := mat.NewDense(n, n, q)
	convex := IsConvexMatrix(qm, 1e-10)
	mu := 0.0
	if convex {
		mu = StrongConvexityOf(qm)
	}
	return &Quadratic{
		Base: NewBase(name, n, WithSmooth(true), WithConvex(convex), WithStrongConvexity(mu)),
		q:    qm,
		c:    mat.NewVecDense(n, c),
	}
}

// Q returns the quadratic term.
func (f *Quadratic) Q() *mat.Dense { return f.q }

// C returns the linear term.
func (f *Quadratic) C() *mat.VecDense { return f.c }

// SetOptimum records the known minimizer for benchmarking.
func (f *Quadratic) SetOptimum(x *mat.VecDense) { f.xbest = mat.VecDenseCopyOf(x) }

// Optimum returns the recorded minimizer and its value, or (nil, 0).
func (f *Quadratic) Optimum() (*mat.VecDense, float64) {
	if f.xbest == nil {
		return nil, 0
	}
	n := f.Size()
	qx := mat.NewVecDense(n, nil)
	qx.MulVec(f.q, f.xbest)
	return f.xbest, 0.5*mat.Dot(f.xbest, qx) + mat.Dot(f.c, f.xbest)
}

// Eval computes ½·xᵀQx + cᵀx, with gradient Qx + c and Hessian Q.
func (f *Quadratic) Eval(x *mat.VecDense, gx *mat.VecDense, hx *mat.Dense) float64 {
	f.Tally(gx != nil)

	n := f.Size()
	qx := mat.NewVecDense(n, nil)
	qx.MulVec(f.q, x)

	if gx != nil {
		gx.AddVec(qx, f.c)
	}
	if hx != nil {
		hx.Copy(f.q)
	}
	return 0.5*mat.Dot(x, qx) + mat.Dot(f.c, x)
}

// NewSphere returns f(x) = ½‖x − center‖², the canonical strongly convex
// benchmark with optimum at center.
func NewSphere(center []float64) *Quadratic {
	n := len(center)
	q := make([]float64, n*n)
	c := make([]float64, n)
	for i := 0; i < n; i++ {
		q[i*n+i] = 1
		c[i] = -center[i]
	}
	f := NewQuadratic("sphere", n, q, c)
	f.SetOptimum(mat.NewVecDense(n, append([]float64(nil), center...)))
	return f
}

// NewRandomEqualityQP builds the equality-constrained benchmark
//
//	min ½‖x − x0‖²  s.t.  A x = b
//
// with p = max(1, neqs·n) random equality rows drawn from the seeded
// generator. A is made well conditioned by a unit-triangular LU product.
// The closed-form optimum x0 + Aᵀ(AAᵀ)⁻¹(b − A·x0) is recorded.
func NewRandomEqualityQP(n int, neqs float64, seed uint64) (*Quadratic, error) {
	rng := rand.New(rand.NewPCG(seed, seed))
	uniform := func() float64 { return 2*rng.Float64() - 1 }

	p := max(1, int(neqs*float64(n)))

	x0 := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x0.SetVec(i, uniform())
	}

	// A = L·U with unit diagonals keeps the rows independent.
	l := mat.NewDense(p, p, nil)
	u := mat.NewDense(p, n, nil)
	for i := 0; i < p; i++ {
		for j := 0; j < i; j++ {
			l.Set(i, j, uniform())
		}
		l.Set(i, i, 1)
		for j := i; j < n; j++ {
			u.Set(i, j, uniform())
		}
		if i < n {
			u.Set(i, i, 1)
		}
	}
	a := mat.NewDense(p, n, nil)
	a.Mul(l, u)

	b := mat.NewVecDense(p, nil)
	for i := 0; i < p; i++ {
		b.SetVec(i, uniform())
	}

	q := make([]float64, n*n)
	c := make([]float64, n)
	for i := 0; i < n; i++ {
		q[i*n+i] = 1
		c[i] = -x0.AtVec(i)
	}
	fn := NewQuadratic("randomeqqp", n, q, c)

	ab := make([]float64, p*n)
	copy(ab, a.RawMatrix().Data)
	bb := make([]float64, p)
	for i := 0; i < p; i++ {
		bb[i] = b.AtVec(i)
	}
	if err := fn.Append(NewEquality(p, n, ab, bb)); err != nil {
		return nil, err
	}

	// xbest = x0 + Aᵀ(AAᵀ)⁻¹(b − A·x0)
	var aat mat.Dense
	aat.Mul(a, a.T())
	ax0 := mat.NewVecDense(p, nil)
	ax0.MulVec(a, x0)
	rhs := mat.NewVecDense(p, nil)
	rhs.SubVec(b, ax0)

	var lu mat.LU
	lu.Factorize(&aat)
	w := mat.NewVecDense(p, nil)
	if err := lu.SolveVecTo(w, false, rhs); err != nil {
		return nil, err
	}
	xbest := mat.NewVecDense(n, nil)
	xbest.MulVec(a.T(), w)
	xbest.AddVec(x0, xbest)
	fn.SetOptimum(xbest)

	return fn, nil
}
