// Package solver defines the solver abstraction — shared parameters,
// iterate state, termination logic and the identifier registry — together
// with the line-search descent family (gradient descent, nine conjugate
// gradient variants, LBFGS, five quasi-Newton variants), the deep-cut
// ellipsoid method, the subgradient methods (sgm, asgm), the COCOB
// coin-betting solver, Nesterov's universal gradient methods (pgm, dgm,
// fgm) and the optimal subgradient algorithm (osga).
//
// A Solver minimizes a function.Function from a starting point and returns
// a State carrying the final iterate, the best point seen and a terminal
// Status. Algorithmic failures (a stalled line search, a lost
// factorization) never surface as errors: they set the status and return
// the best state found. Errors are reserved for hard misuse such as a
// wrong-sized or non-finite starting point.
//
// Solvers are retrieved by identifier from the package registry and are
// configured through their parameter set; every solver is cloneable and a
// clone never shares mutable state with its prototype. Packages
// implementing further solver families (bundle, gsample, penalty, ipm)
// register themselves into the same registry from their init functions, so
// importing the umbrella package makes the full identifier set available.
package solver
