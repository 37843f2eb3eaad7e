// Package lsearch implements the line-search engine: the scalar step
// abstraction with its interpolants, the initial-step estimators (lsearch0)
// and the acceptance algorithms (lsearchk) that enforce an Armijo/Wolfe
// condition set along a descent direction.
//
// A line search works on a Probe: the frozen origin state (x0, f0, g0·d)
// plus the mutable trial state (x, f, g) at the current step length t.
// Acceptance algorithms receive the probe and an initial guess t0 and
// return the first accepted t > 0 inside [StepMin, StepMax], or false when
// the direction is not a descent direction, the step collapses below
// StepMin, or the iteration budget runs out.
//
// Initial-step estimators predict t0 from the solver history: a constant
// guess, the quadratic-decrease rule, or the CG-DESCENT ψ-rules.
//
// Both families are registered in package-level factories keyed by
// identifier ("constant", "quadratic", "cgdescent" for estimators;
// "backtrack", "fletcher", "lemarechal", "morethuente", "cgdescent" for
// acceptance algorithms) and are retrieved as fresh clones.
package lsearch
