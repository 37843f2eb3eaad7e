// Package function defines the objective-function abstraction shared by all
// solvers, together with its constraint system, penalty transforms and
// analysis utilities.
//
// A Function exposes its dimensionality, smoothness/convexity attributes and
// a single oracle Eval(x, gx, hx) that computes f(x) and fills the gradient
// and/or Hessian buffers when they are provided. Every call advances the
// function-call counter; gradient calls advance the gradient counter as
// well. Concrete functions embed *Base, which owns the attributes, the
// evaluation counters, the ordered constraint list and the parameter set.
//
// Constraints are tagged variants: linear equalities Ax = b, linear
// inequalities Ax <= b, elementwise bounds on a single coordinate, and
// functional constraints wrapping an arbitrary Function with an =0 or <=0
// relation. The compact stacked form (A, b, G, h) of the linear constraints
// is cached on the Base and regenerated whenever the list changes; the
// cached system is zero-row-free and the equality block is reduced to full
// row rank.
//
// Penalty transforms wrap a constrained function into an unconstrained one:
// the linear transform sums plain violation magnitudes (exact but
// non-smooth), the quadratic transform sums squared violations (smooth iff
// the wrapped function is smooth), and the augmented-Lagrangian transform
// adds first-order multiplier estimates on top of the quadratic term.
//
// Analysis utilities: GradAccuracy compares the oracle gradient against a
// central finite-difference approximation over a fixed step schedule;
// ConvexAccuracy measures the worst violation of the convexity inequality
// along a segment, honoring the strong-convexity coefficient.
package function
