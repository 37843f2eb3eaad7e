package lsearch

import (
	"sync"

	"github.com/optkit/optkit/params"
	"github.com/optkit/optkit/registry"
)

// Objective names the condition set enforced by an acceptance algorithm.
type Objective uint8

const (
	// Armijo enforces sufficient decrease only.
	Armijo Objective = iota

	// Wolfe enforces Armijo plus the curvature condition.
	Wolfe

	// StrongWolfe enforces Armijo plus the two-sided curvature condition.
	StrongWolfe

	// WolfeApproxWolfe accepts Wolfe or the CG-DESCENT approximate set.
	WolfeApproxWolfe
)

// Search runs the line-search loop on a probe, enforcing its objective
// condition set. Get returns false when the direction is an ascent
// direction, the step collapses below StepMin, or the iteration budget is
// exhausted without acceptance; on success the probe holds the accepted
// trial state.
type Search interface {
	// Clone returns a fresh algorithm with the same parameters.
	Clone() Search

	// Name returns the registry identifier.
	Name() string

	// Params returns the algorithm's tunables, including "c1" and "c2".
	Params() *params.Set

	// Objective returns the enforced condition set.
	Objective() Objective

	// Get runs the search starting from the initial guess t0.
	Get(p *Probe, t0 float64) bool
}

// tolerances is the shared (c1, c2) pair plus the iteration budget,
// embedded by every acceptance algorithm.
type tolerances struct {
	params params.Set
}

func newTolerances(c1, c2 float64) tolerances {
	var t tolerances
	t.params.MustRegister(params.MustFloat("lsearchk::c1", 0, params.LT, c1, params.LT, 1))
	t.params.MustRegister(params.MustFloat("lsearchk::c2", 0, params.LT, c2, params.LT, 1))
	t.params.MustRegister(params.MustInteger("lsearchk::max_iters", 1, params.LE, 100, params.LE, 1000))
	return t
}

// Params returns the algorithm's tunables.
func (t *tolerances) Params() *params.Set { return &t.params }

func (t *tolerances) c1() float64       { return t.params.Float("lsearchk::c1") }
func (t *tolerances) c2() float64       { return t.params.Float("lsearchk::c2") }
func (t *tolerances) maxIters() int     { return int(t.params.Int("lsearchk::max_iters")) }
func (t *tolerances) clone() tolerances { return tolerances{params: t.params.Clone()} }

var (
	searchOnce    sync.Once
	searchFactory registry.Factory[Search]

	initOnce    sync.Once
	initFactory registry.Factory[Init]
)

// Searches returns the acceptance-algorithm registry, populated with the
// built-in implementations on first use.
func Searches() *registry.Factory[Search] {
	searchOnce.Do(func() {
		searchFactory.MustRegister("backtrack", "backtracking with cubic interpolation (Armijo)", NewBacktrack())
		searchFactory.MustRegister("fletcher", "Fletcher bracketing and zooming (strong Wolfe)", NewFletcher())
		searchFactory.MustRegister("lemarechal", "LeMarechal bracketing (regular Wolfe)", NewLeMarechal())
		searchFactory.MustRegister("morethuente", "More-Thuente safeguarded interpolation (strong Wolfe)", NewMoreThuente())
		searchFactory.MustRegister("cgdescent", "CG-DESCENT (regular and approximate Wolfe)", NewCGDescent())
	})
	return &searchFactory
}

// Inits returns the initial-step estimator registry, populated with the
// built-in implementations on first use.
func Inits() *registry.Factory[Init] {
	initOnce.Do(func() {
		initFactory.MustRegister("constant", "constant initial step length", NewConstantInit())
		initFactory.MustRegister("quadratic", "quadratic-decrease initial step length", NewQuadraticInit())
		initFactory.MustRegister("cgdescent", "CG-DESCENT psi-rules initial step length", NewCGDescentInit())
	})
	return &initFactory
}
