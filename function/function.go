package function

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/params"
)

// Sentinel errors for function operations.
var (
	// ErrBadSize indicates a vector whose length does not match the function.
	ErrBadSize = errors.New("function: vector size mismatch")

	// ErrBadConstraint indicates a constraint with inconsistent shapes.
	ErrBadConstraint = errors.New("function: malformed constraint")

	// ErrNonLinear indicates a request for the compact linear form of a
	// constraint system that contains a nonlinear functional constraint.
	ErrNonLinear = errors.New("function: constraint system is not linear")
)

// Function is a multi-dimensional objective with a closed-form gradient and
// an optional Hessian oracle.
//
// Eval computes f(x); when gx (resp. hx) is non-nil it must be a buffer of
// matching shape and is filled with the gradient (resp. Hessian). An invalid
// evaluation is signaled by a NaN or non-finite return value.
type Function interface {
	// Name identifies the function in tests and benchmarks.
	Name() string

	// Size returns the dimensionality n >= 1.
	Size() int

	// Smooth reports whether the function is continuously differentiable.
	Smooth() bool

	// Convex reports whether the function is convex.
	Convex() bool

	// StrongConvexity returns the strong-convexity coefficient (0 if none).
	StrongConvexity() float64

	// Eval evaluates the oracle at x, filling gx and hx when provided.
	Eval(x *mat.VecDense, gx *mat.VecDense, hx *mat.Dense) float64

	// Constraints returns the ordered constraint list.
	Constraints() []Constraint

	// FCalls returns the number of oracle evaluations so far.
	FCalls() int64

	// GCalls returns the number of gradient evaluations so far.
	GCalls() int64
}

// Base carries the attributes, counters, constraints and parameters shared
// by every concrete function. Concrete types embed *Base and implement Eval.
type Base struct {
	name   string
	size   int
	smooth bool
	convex bool
	mu     float64

	fcalls int64
	gcalls int64

	constraints []Constraint
	linear      *LinearConstraints // cached stacked system, nil when stale

	// Params holds the function's own tunables (e.g. benchmark seeds).
	Params params.Set
}

// BaseOption configures a Base at construction.
type BaseOption func(*Base)

// WithSmooth marks the function as (non-)smooth.
func WithSmooth(smooth bool) BaseOption { return func(b *Base) { b.smooth = smooth } }

// WithConvex marks the function as (non-)convex.
func WithConvex(convex bool) BaseOption { return func(b *Base) { b.convex = convex } }

// WithStrongConvexity sets the strong-convexity coefficient mu >= 0.
func WithStrongConvexity(mu float64) BaseOption { return func(b *Base) { b.mu = mu } }

// NewBase returns a Base for an n-dimensional function; n < 1 panics.
func NewBase(name string, n int, opts ...BaseOption) *Base {
	if n < 1 {
		panic(fmt.Sprintf("function: %q: dimensionality %d < 1", name, n))
	}
	b := &Base{name: name, size: n}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the function identifier.
func (b *Base) Name() string { return b.name }

// Size returns the dimensionality.
func (b *Base) Size() int { return b.size }

// Smooth reports the smoothness attribute.
func (b *Base) Smooth() bool { return b.smooth }

// Convex reports the convexity attribute.
func (b *Base) Convex() bool { return b.convex }

// StrongConvexity returns the strong-convexity coefficient.
func (b *Base) StrongConvexity() float64 { return b.mu }

// FCalls returns the number of oracle evaluations.
func (b *Base) FCalls() int64 { return b.fcalls }

// GCalls returns the number of gradient evaluations.
func (b *Base) GCalls() int64 { return b.gcalls }

// ResetCalls zeroes both evaluation counters.
func (b *Base) ResetCalls() { b.fcalls, b.gcalls = 0, 0 }

// Tally advances the counters for one oracle call; concrete Eval
// implementations call it exactly once per evaluation.
func (b *Base) Tally(withGrad bool) {
	b.fcalls++
	if withGrad {
		b.gcalls++
	}
}

// Constraints returns the ordered constraint list.
func (b *Base) Constraints() []Constraint { return b.constraints }

// Append adds a constraint and invalidates the cached stacked system.
func (b *Base) Append(c Constraint) error {
	if err := validate(c, b.size); err != nil {
		return err
	}
	b.constraints = append(b.constraints, c)
	b.linear = nil
	return nil
}

// Feasible reports whether every constraint's violation magnitude at x is
// at most epsilon.
func (b *Base) Feasible(x *mat.VecDense, epsilon float64) bool {
	for _, c := range b.constraints {
		if c.Violation(x) > epsilon {
			return false
		}
	}
	return true
}

// Constrained reports whether the function carries any constraint.
func (b *Base) Constrained() bool { return len(b.constraints) > 0 }
