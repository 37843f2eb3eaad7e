package function

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// Relation selects the sense of a functional constraint.
type Relation uint8

const (
	// Equal constrains g(x) = 0.
	Equal Relation = iota

	// LessEqual constrains g(x) <= 0.
	LessEqual
)

// Side selects the sense of an elementwise bound.
type Side uint8

const (
	// Lower constrains x_i >= v.
	Lower Side = iota

	// Upper constrains x_i <= v.
	Upper
)

// Constraint is one tagged variant of the constraint system.
//
// Violation returns the scalar violation magnitude at x: the largest
// per-row deviation for matrix constraints, |g(x)| or max(0, g(x)) for
// functional constraints, and the one-sided overshoot for bounds. A
// feasible point has violation 0.
type Constraint interface {
	// Violation returns the violation magnitude at x (>= 0).
	Violation(x *mat.VecDense) float64

	// Smooth reports whether the constraint is continuously differentiable.
	Smooth() bool

	sealed()
}

// Equality is the linear constraint A x = b.
type Equality struct {
	A *mat.Dense
	B *mat.VecDense
}

// Inequality is the linear constraint A x <= b.
type Inequality struct {
	A *mat.Dense
	B *mat.VecDense
}

// Bound is the single-variable constraint x_i >= v (Lower) or x_i <= v (Upper).
type Bound struct {
	Index int
	Side  Side
	Value float64
}

// Functional wraps an arbitrary function g with the relation g(x) = 0 or
// g(x) <= 0.
type Functional struct {
	Fn       Function
	Relation Relation
}

// NewEquality builds A x = b from a row-major flat matrix.
func NewEquality(m, n int, a []float64, b []float64) Equality {
	return Equality{A: mat.NewDense(m, n, a), B: mat.NewVecDense(m, b)}
}

// NewInequality builds A x <= b from a row-major flat matrix.
func NewInequality(m, n int, a []float64, b []float64) Inequality {
	return Inequality{A: mat.NewDense(m, n, a), B: mat.NewVecDense(m, b)}
}

// Violation returns max_i |A_i x - b_i|.
func (c Equality) Violation(x *mat.VecDense) float64 {
	m, _ := c.A.Dims()
	r := mat.NewVecDense(m, nil)
	r.MulVec(c.A, x)
	r.SubVec(r, c.B)
	return mat.Norm(r, math.Inf(1))
}

// Smooth always holds for linear constraints.
func (c Equality) Smooth() bool { return true }

func (c Equality) sealed() {}

// Violation returns max_i max(0, A_i x - b_i).
func (c Inequality) Violation(x *mat.VecDense) float64 {
	m, _ := c.A.Dims()
	r := mat.NewVecDense(m, nil)
	r.MulVec(c.A, x)
	r.SubVec(r, c.B)
	v := 0.0
	for i := 0; i < m; i++ {
		v = math.Max(v, r.AtVec(i))
	}
	return v
}

// Smooth always holds for linear constraints.
func (c Inequality) Smooth() bool { return true }

func (c Inequality) sealed() {}

// Violation returns max(0, v - x_i) for Lower and max(0, x_i - v) for Upper.
func (c Bound) Violation(x *mat.VecDense) float64 {
	if c.Side == Lower {
		return math.Max(0, c.Value-x.AtVec(c.Index))
	}
	return math.Max(0, x.AtVec(c.Index)-c.Value)
}

// Smooth always holds for bounds.
func (c Bound) Smooth() bool { return true }

func (c Bound) sealed() {}

// Violation returns |g(x)| for Equal and max(0, g(x)) for LessEqual.
func (c Functional) Violation(x *mat.VecDense) float64 {
	v := c.Fn.Eval(x, nil, nil)
	if c.Relation == Equal {
		return math.Abs(v)
	}
	return math.Max(0, v)
}

// Smooth reports the wrapped function's smoothness; the Equal relation is
// non-smooth at the boundary regardless.
func (c Functional) Smooth() bool { return c.Relation == LessEqual && c.Fn.Smooth() }

func (c Functional) sealed() {}

// validate checks the shapes of a constraint against the owner's size,
// aggregating every defect found.
func validate(c Constraint, n int) error {
	var errs error
	switch v := c.(type) {
	case Equality:
		errs = validateLinear(v.A, v.B, n)
	case Inequality:
		errs = validateLinear(v.A, v.B, n)
	case Bound:
		if v.Index < 0 || v.Index >= n {
			errs = fmt.Errorf("function: bound index %d outside [0, %d): %w", v.Index, n, ErrBadConstraint)
		} else if math.IsNaN(v.Value) {
			errs = fmt.Errorf("function: NaN bound value: %w", ErrBadConstraint)
		}
	case Functional:
		if v.Fn == nil {
			errs = fmt.Errorf("function: nil functional constraint: %w", ErrBadConstraint)
		} else if v.Fn.Size() != n {
			errs = fmt.Errorf("function: functional constraint of size %d on a %d-dim function: %w",
				v.Fn.Size(), n, ErrBadConstraint)
		}
	default:
		errs = fmt.Errorf("function: unknown constraint variant %T: %w", c, ErrBadConstraint)
	}
	return errs
}

func validateLinear(a *mat.Dense, b *mat.VecDense, n int) error {
	var errs error
	if a == nil || b == nil {
		return fmt.Errorf("function: nil linear constraint: %w", ErrBadConstraint)
	}
	m, cols := a.Dims()
	if cols != n {
		errs = multierr.Append(errs,
			fmt.Errorf("function: constraint over %d variables on a %d-dim function: %w", cols, n, ErrBadConstraint))
	}
	if b.Len() != m {
		errs = multierr.Append(errs,
			fmt.Errorf("function: %d rows against %d right-hand sides: %w", m, b.Len(), ErrBadConstraint))
	}
	for i := 0; i < m && cols == n; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(a.At(i, j)) {
				errs = multierr.Append(errs,
					fmt.Errorf("function: NaN in constraint row %d: %w", i, ErrBadConstraint))
				break
			}
		}
	}
	return errs
}

// cterm is one scalar component c(x) of a constraint, with its gradient
// when requested. Penalty transforms consume these.
type cterm struct {
	value    float64
	equality bool
	grad     *mat.VecDense
}

// terms decomposes a constraint at x into scalar components. The component
// count and order depend only on the constraint, never on x.
func terms(c Constraint, x *mat.VecDense, withGrad bool) []cterm {
	n := x.Len()
	switch v := c.(type) {
	case Equality:
		return linearTerms(v.A, v.B, x, true, withGrad)
	case Inequality:
		return linearTerms(v.A, v.B, x, false, withGrad)
	case Bound:
		t := cterm{}
		if v.Side == Lower {
			t.value = v.Value - x.AtVec(v.Index)
		} else {
			t.value = x.AtVec(v.Index) - v.Value
		}
		if withGrad {
			t.grad = mat.NewVecDense(n, nil)
			if v.Side == Lower {
				t.grad.SetVec(v.Index, -1)
			} else {
				t.grad.SetVec(v.Index, +1)
			}
		}
		return []cterm{t}
	case Functional:
		t := cterm{equality: v.Relation == Equal}
		if withGrad {
			t.grad = mat.NewVecDense(n, nil)
			t.value = v.Fn.Eval(x, t.grad, nil)
		} else {
			t.value = v.Fn.Eval(x, nil, nil)
		}
		return []cterm{t}
	default:
		return nil
	}
}

func linearTerms(a *mat.Dense, b *mat.VecDense, x *mat.VecDense, equality, withGrad bool) []cterm {
	m, n := a.Dims()
	r := mat.NewVecDense(m, nil)
	r.MulVec(a, x)
	r.SubVec(r, b)

	out := make([]cterm, m)
	for i := 0; i < m; i++ {
		out[i] = cterm{value: r.AtVec(i), equality: equality}
		if withGrad {
			g := mat.NewVecDense(n, nil)
			for j := 0; j < n; j++ {
				g.SetVec(j, a.At(i, j))
			}
			out[i].grad = g
		}
	}
	return out
}
