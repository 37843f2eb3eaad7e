package ipm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
)

// Sentinel errors for program construction.
var (
	// ErrBadProgram indicates inconsistent program shapes.
	ErrBadProgram = errors.New("ipm: malformed program")
)

// Program is the bookkeeping form of a linear or quadratic program. A nil Q
// denotes a linear program; nil constraint blocks denote their absence.
type Program struct {
	Q *mat.Dense    // n×n quadratic term, nil for LPs
	C *mat.VecDense // linear term

	A *mat.Dense    // equality rows
	B *mat.VecDense // equality right-hand side
	G *mat.Dense    // inequality rows
	H *mat.VecDense // inequality right-hand side
}

// NewQuadraticProgram builds min ½xᵀQx + cᵀx from a row-major flat Q.
func NewQuadraticProgram(n int, q []float64, c []float64) *Program {
	return &Program{Q: mat.NewDense(n, n, q), C: mat.NewVecDense(n, c)}
}

// NewLinearProgram builds min cᵀx.
func NewLinearProgram(c []float64) *Program {
	return &Program{C: mat.NewVecDense(len(c), c)}
}

// Dims returns (n, eqRows, ineqRows).
func (p *Program) Dims() (int, int, int) {
	n := p.C.Len()
	eqs, ineqs := 0, 0
	if p.A != nil {
		eqs, _ = p.A.Dims()
	}
	if p.G != nil {
		ineqs, _ = p.G.Dims()
	}
	return n, eqs, ineqs
}

// WithEquality appends equality rows A x = b.
func (p *Program) WithEquality(m int, a []float64, b []float64) *Program {
	n := p.C.Len()
	p.A, p.B = appendRows(p.A, p.B, mat.NewDense(m, n, a), mat.NewVecDense(m, b))
	return p
}

// WithInequality appends inequality rows G x <= h.
func (p *Program) WithInequality(m int, g []float64, h []float64) *Program {
	n := p.C.Len()
	p.G, p.H = appendRows(p.G, p.H, mat.NewDense(m, n, g), mat.NewVecDense(m, h))
	return p
}

// WithLower appends the elementwise bound x >= lower.
func (p *Program) WithLower(lower float64) *Program {
	n := p.C.Len()
	g := mat.NewDense(n, n, nil)
	h := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		g.Set(i, i, -1)
		h.SetVec(i, -lower)
	}
	p.G, p.H = appendRows(p.G, p.H, g, h)
	return p
}

// WithUpper appends the elementwise bound x <= upper.
func (p *Program) WithUpper(upper float64) *Program {
	n := p.C.Len()
	g := mat.NewDense(n, n, nil)
	h := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		g.Set(i, i, +1)
		h.SetVec(i, upper)
	}
	p.G, p.H = appendRows(p.G, p.H, g, h)
	return p
}

func appendRows(a *mat.Dense, b *mat.VecDense, ra *mat.Dense, rb *mat.VecDense) (*mat.Dense, *mat.VecDense) {
	if a == nil {
		return ra, rb
	}
	m0, n := a.Dims()
	m1, _ := ra.Dims()
	out := mat.NewDense(m0+m1, n, nil)
	outb := mat.NewVecDense(m0+m1, nil)
	for i := 0; i < m0; i++ {
		out.SetRow(i, a.RawRowView(i))
		outb.SetVec(i, b.AtVec(i))
	}
	for i := 0; i < m1; i++ {
		out.SetRow(m0+i, ra.RawRowView(i))
		outb.SetVec(m0+i, rb.AtVec(i))
	}
	return out, outb
}

// Validate checks the block shapes.
func (p *Program) Validate() error {
	if p.C == nil || p.C.Len() == 0 {
		return fmt.Errorf("ipm: missing linear term: %w", ErrBadProgram)
	}
	n := p.C.Len()
	if p.Q != nil {
		r, c := p.Q.Dims()
		if r != n || c != n {
			return fmt.Errorf("ipm: Q is %dx%d for %d variables: %w", r, c, n, ErrBadProgram)
		}
	}
	check := func(a *mat.Dense, b *mat.VecDense, kind string) error {
		if (a == nil) != (b == nil) {
			return fmt.Errorf("ipm: half-specified %s block: %w", kind, ErrBadProgram)
		}
		if a == nil {
			return nil
		}
		r, c := a.Dims()
		if c != n || b.Len() != r {
			return fmt.Errorf("ipm: %s block is %dx%d with %d rhs: %w", kind, r, c, b.Len(), ErrBadProgram)
		}
		return nil
	}
	if err := check(p.A, p.B, "equality"); err != nil {
		return err
	}
	return check(p.G, p.H, "inequality")
}

// Reduce prunes zero rows from both blocks and replaces the equality block
// by its full-row-rank reduction. It returns the number of inconsistent
// rows dropped.
func (p *Program) Reduce() int {
	inconsistent := 0
	var stats function.ZeroRowStats

	p.A, p.B, stats = function.RemoveZeroRowsEquality(p.A, p.B)
	inconsistent += stats.Inconsistent
	p.G, p.H, stats = function.RemoveZeroRowsInequality(p.G, p.H)
	inconsistent += stats.Inconsistent

	p.A, p.B, _ = function.MakeFullRank(p.A, p.B)
	return inconsistent
}

// Value returns the objective ½xᵀQx + cᵀx at x.
func (p *Program) Value(x *mat.VecDense) float64 {
	v := mat.Dot(p.C, x)
	if p.Q != nil {
		qx := mat.NewVecDense(x.Len(), nil)
		qx.MulVec(p.Q, x)
		v += 0.5 * mat.Dot(x, qx)
	}
	return v
}

// Feasible reports whether x satisfies every constraint within epsilon.
func (p *Program) Feasible(x *mat.VecDense, epsilon float64) bool {
	if p.A != nil {
		m, _ := p.A.Dims()
		r := mat.NewVecDense(m, nil)
		r.MulVec(p.A, x)
		r.SubVec(r, p.B)
		if mat.Norm(r, math.Inf(1)) > epsilon {
			return false
		}
	}
	if p.G != nil {
		m, _ := p.G.Dims()
		r := mat.NewVecDense(m, nil)
		r.MulVec(p.G, x)
		r.SubVec(r, p.H)
		for i := 0; i < m; i++ {
			if r.AtVec(i) > epsilon {
				return false
			}
		}
	}
	return true
}
