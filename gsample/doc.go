// Package gsample implements the gradient-sampling solvers for non-smooth,
// possibly non-convex problems: "gs" and "gs-lbfgs" with the fixed sampler
// (2n+1 points per iteration), "ags" and "ags-lbfgs" with the adaptive
// sampler that retains in-ball points and draws max(n/10, 1) fresh ones.
//
// Each outer iteration samples gradients inside the Euclidean ball of
// radius ε around the center, solves the simplex QP
// min_w ½·wᵀ(GWGᵀ)w over the sampled gradient matrix G through the
// interior-point package, takes the aggregate direction d = −W·Gᵀw, and
// runs the perturbed Armijo search with doubling/bisection steps. The
// preconditioner W is the identity or the rebuilt LBFGS inverse Hessian of
// the sample differences.
//
// Sampling is driven by the solver's seeded generator, so runs with equal
// seeds are bit-identical.
package gsample
