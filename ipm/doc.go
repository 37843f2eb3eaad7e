// Package ipm implements linear/quadratic program bookkeeping and the
// primal-dual interior-point method for
//
//	min ½·xᵀQx + cᵀx   s.t.   A x = b,  G x <= h.
//
// A Program stacks equality and inequality blocks (bounds included), prunes
// zero rows and reduces the equality block to full row rank. Solve runs the
// barrier iteration: residual assembly, one pivoted factorization of the
// augmented KKT system per step (with a reciprocal-condition guard), a
// two-phase line search that first preserves dual positivity and
// primal interiority and then backtracks on the residual norm, and the
// surrogate-duality-gap schedule t = μ·m/η.
//
// Degenerate programs short-circuit: with no inequalities the KKT system is
// solved directly; with no constraints at all the normal equations are.
//
// The package also registers the "ipm" identifier in the solver registry:
// the adapter extracts (Q, c) from any smooth function exposing a Hessian
// oracle together with its stacked linear constraints.
package ipm
