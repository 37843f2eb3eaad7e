package solver

import (
	"math"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/lsearch"
	"github.com/optkit/optkit/params"
	"github.com/optkit/optkit/registry"
)

// Solver minimizes an objective from a starting point.
type Solver interface {
	// Clone returns a fresh solver with the same parameters and a clean
	// internal state.
	Clone() Solver

	// Name returns the registry identifier.
	Name() string

	// Params returns the solver's tunables.
	Params() *params.Set

	// Configurable exposes the versioned parameter container for
	// serialization.
	Configurable() *params.Configurable

	// SetLogger installs a trace logger; nil restores the nop logger.
	SetLogger(*zap.SugaredLogger)

	// Minimize runs the solver on fn from x0 and returns the final state.
	// Algorithmic failures are reported through the state's Status; errors
	// are reserved for hard misuse.
	Minimize(fn function.Function, x0 *mat.VecDense) (*State, error)
}

// Base carries the shared parameters, logger and termination logic
// embedded by every solver.
type Base struct {
	name   string
	cfg    params.Configurable
	logger *zap.SugaredLogger
}

// NewBase returns a Base with the shared parameter set registered:
// max_evals, epsilon, the (c1, c2) tolerance pair, patience, the lsearch0
// and lsearchk identifiers and the RNG seed.
func NewBase(name string) Base {
	b := Base{name: name, cfg: params.NewConfigurable(), logger: zap.NewNop().Sugar()}

	p := &b.cfg.Params
	p.MustRegister(params.MustInteger("solver::max_evals", 10, params.LE, 10000, params.LE, 1_000_000_000))
	p.MustRegister(params.MustFloat("solver::epsilon", 0, params.LT, 1e-8, params.LT, 1))
	p.MustRegister(params.MustFloat("solver::c1", 0, params.LT, 1e-4, params.LT, 1))
	p.MustRegister(params.MustFloat("solver::c2", 0, params.LT, 9e-1, params.LT, 1))
	p.MustRegister(params.MustInteger("solver::patience", 1, params.LE, 32, params.LE, 1_000_000))
	p.MustRegister(params.MustFloat("solver::fmin", -math.MaxFloat64, params.LE, -1e18, params.LT, 0))
	p.MustRegister(params.MustInteger("solver::seed", 0, params.LE, 42, params.LE, math.MaxInt32))
	p.MustRegister(params.MustEnum("solver::lsearch0", "quadratic",
		params.EnumValue{Name: "constant", Value: 0},
		params.EnumValue{Name: "quadratic", Value: 1},
		params.EnumValue{Name: "cgdescent", Value: 2}))
	p.MustRegister(params.MustEnum("solver::lsearchk", "morethuente",
		params.EnumValue{Name: "backtrack", Value: 0},
		params.EnumValue{Name: "fletcher", Value: 1},
		params.EnumValue{Name: "lemarechal", Value: 2},
		params.EnumValue{Name: "morethuente", Value: 3},
		params.EnumValue{Name: "cgdescent", Value: 4}))
	return b
}

// CloneBase returns a deep copy of the base.
func (b *Base) CloneBase() Base {
	out := Base{name: b.name, cfg: params.NewConfigurable(), logger: b.logger}
	out.cfg.Params = b.cfg.Params.Clone()
	return out
}

// Name returns the solver identifier.
func (b *Base) Name() string { return b.name }

// Params returns the solver's tunables.
func (b *Base) Params() *params.Set { return &b.cfg.Params }

// Configurable exposes the versioned parameter container.
func (b *Base) Configurable() *params.Configurable { return &b.cfg }

// SetLogger installs a trace logger; nil restores the nop logger.
func (b *Base) SetLogger(l *zap.SugaredLogger) {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	b.logger = l
}

// Log returns the solver's trace logger.
func (b *Base) Log() *zap.SugaredLogger { return b.logger }

// MaxEvals returns the evaluation budget.
func (b *Base) MaxEvals() int64 { return b.cfg.Params.Int("solver::max_evals") }

// Epsilon returns the convergence tolerance.
func (b *Base) Epsilon() float64 { return b.cfg.Params.Float("solver::epsilon") }

// Patience returns the value-test window.
func (b *Base) Patience() int { return int(b.cfg.Params.Int("solver::patience")) }

// RNG returns a generator seeded by the solver's seed parameter, so two
// minimizations with the same seed are bit-identical.
func (b *Base) RNG() *rand.Rand {
	seed := uint64(b.cfg.Params.Int("solver::seed"))
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Evals returns the combined oracle call count of the bound function.
func (b *Base) Evals(fn function.Function) int64 { return fn.FCalls() + fn.GCalls() }

// Trace emits one per-iteration debug line.
func (b *Base) Trace(st *State) {
	b.logger.Debugw("iteration",
		"solver", b.name,
		"iters", st.Iters,
		"fcalls", st.fn.FCalls(),
		"fx", st.F,
		"gtest", st.GradientTest(),
	)
}

// done applies the shared budget/failure bookkeeping; converged must hold
// the outcome of the caller's convergence test.
func (b *Base) done(st *State, iterOK, converged bool) bool {
	b.Trace(st)
	switch {
	case converged:
		st.Status = Converged
		return true
	case !iterOK:
		st.Status = Failed
		return true
	case st.BestF < b.cfg.Params.Float("solver::fmin"):
		// recurrent descent past the floor: not bounded below
		st.Status = Unbounded
		return true
	case b.Evals(st.fn) >= b.MaxEvals():
		st.Status = MaxIters
		return true
	default:
		return false
	}
}

// DoneGradientTest terminates on ‖g‖∞/max(1,|f|) < epsilon; applicable to
// smooth unconstrained problems.
func (b *Base) DoneGradientTest(st *State, iterOK bool) bool {
	// the gradient test is meaningful even when the step failed (e.g. a
	// line search started at a stationary point)
	return b.done(st, iterOK, st.GradientTest() < b.Epsilon())
}

// DoneSpecificTest terminates on an algorithm-supplied predicate.
func (b *Base) DoneSpecificTest(st *State, iterOK, converged bool) bool {
	return b.done(st, iterOK, converged)
}

// ValueTracker implements the value test: convergence when the best value
// did not improve by more than epsilon across the last patience iterations
// and the iterate did not move by more than epsilon·max(1, ‖x‖∞).
type ValueTracker struct {
	epsilon  float64
	patience int

	bestF  float64
	since  int
	prevX  *mat.VecDense
	primed bool
}

// NewValueTracker builds a tracker from the solver's epsilon and patience.
func (b *Base) NewValueTracker() *ValueTracker {
	return &ValueTracker{epsilon: b.Epsilon(), patience: b.Patience()}
}

// Converged folds one iteration into the tracker and reports the test.
func (t *ValueTracker) Converged(st *State) bool {
	if !t.primed {
		t.bestF = st.BestF
		t.prevX = mat.VecDenseCopyOf(st.X)
		t.primed = true
		return false
	}

	moved := 0.0
	for i := 0; i < st.X.Len(); i++ {
		moved = math.Max(moved, math.Abs(st.X.AtVec(i)-t.prevX.AtVec(i)))
	}
	stalled := moved <= t.epsilon*math.Max(1, mat.Norm(st.X, math.Inf(1)))
	t.prevX.CopyVec(st.X)

	if t.bestF-st.BestF > t.epsilon {
		t.bestF = st.BestF
		t.since = 0
		return false
	}
	t.since++
	return stalled && t.since >= t.patience
}

// DoneValueTest terminates on the value test; applicable to every problem
// class.
func (b *Base) DoneValueTest(st *State, iterOK bool, tracker *ValueTracker) bool {
	return b.done(st, iterOK, iterOK && tracker.Converged(st))
}

// Incompatible stamps the state for a problem class the solver cannot
// handle and snapshots the counters.
func (b *Base) Incompatible(st *State) *State {
	st.Status = Incompatible
	st.Snapshot()
	return st
}

// Finish snapshots the counters and returns the state.
func (b *Base) Finish(st *State) *State {
	st.Snapshot()
	return st
}

// LsearchRunner pairs an initial-step estimator with an acceptance
// algorithm and keeps the cross-iteration history both need. One runner
// lives for the duration of one Minimize call.
type LsearchRunner struct {
	init   lsearch.Init
	search lsearch.Search

	iter  int
	prevF float64
	prevT float64
}

// MakeLsearch builds a runner from the solver's lsearch0/lsearchk
// identifiers, pushing the solver's (c1, c2) pair into the acceptance
// algorithm.
func (b *Base) MakeLsearch() (*LsearchRunner, error) {
	init, err := lsearch.Inits().Get(b.cfg.Params.Enum("solver::lsearch0"))
	if err != nil {
		return nil, err
	}
	search, err := lsearch.Searches().Get(b.cfg.Params.Enum("solver::lsearchk"))
	if err != nil {
		return nil, err
	}
	if err := search.Params().SetFloat("lsearchk::c1", b.cfg.Params.Float("solver::c1")); err != nil {
		return nil, err
	}
	if err := search.Params().SetFloat("lsearchk::c2", b.cfg.Params.Float("solver::c2")); err != nil {
		return nil, err
	}
	return &LsearchRunner{init: init, search: search}, nil
}

// Step runs one line search along d from the state's current iterate,
// installing the accepted point on success.
func (r *LsearchRunner) Step(st *State, d *mat.VecDense) bool {
	fn := st.Function()

	probe := lsearch.NewProbe(fn, st.X, st.F, st.G, d)
	it := lsearch.Iterate{
		Iter:  r.iter,
		X:     st.X,
		G:     st.G,
		F:     st.F,
		PrevF: r.prevF,
		DG:    probe.DG0(),
		PrevT: r.prevT,
		Phi: func(t float64) float64 {
			x := mat.NewVecDense(st.X.Len(), nil)
			x.AddScaledVec(st.X, t, d)
			return fn.Eval(x, nil, nil)
		},
	}
	t0 := r.init.Get(it)

	fPrev := st.F
	ok := r.search.Get(probe, t0)
	r.iter++
	if !ok {
		return false
	}
	r.prevF = fPrev
	r.prevT = probe.T
	st.SetCurrent(probe.X, probe.G, probe.F)
	return true
}

var (
	regOnce    sync.Once
	regFactory registry.Factory[Solver]
)

// Registry returns the solver registry, populated with this package's
// solvers on first use. Further solver families register themselves from
// their package init functions.
func Registry() *registry.Factory[Solver] {
	regOnce.Do(func() {
		regFactory.MustRegister("gd", "gradient descent", NewGD())
		for _, v := range cgdVariants() {
			regFactory.MustRegister("cgd-"+v.id, "conjugate gradient ("+v.desc+")", NewCGD(v.id))
		}
		regFactory.MustRegister("lbfgs", "limited-memory BFGS", NewLBFGS())
		for _, v := range quasiVariants() {
			regFactory.MustRegister("quasi-"+v.id, "quasi-Newton ("+v.desc+")", NewQuasi(v.id))
		}
		regFactory.MustRegister("ellipsoid", "deep-cut ellipsoid method", NewEllipsoid())
		regFactory.MustRegister("sgm", "subgradient method", NewSGM())
		regFactory.MustRegister("asgm", "adaptive subgradient method", NewASGM())
		regFactory.MustRegister("cocob", "continuous coin betting", NewCOCOB())
		regFactory.MustRegister("pgm", "universal primal gradient method", NewUniversal("pgm"))
		regFactory.MustRegister("dgm", "universal dual gradient method", NewUniversal("dgm"))
		regFactory.MustRegister("fgm", "universal fast gradient method", NewUniversal("fgm"))
		regFactory.MustRegister("osga", "optimal subgradient algorithm", NewOSGA())
	})
	return &regFactory
}

// Get returns a fresh clone of the solver registered under id.
func Get(id string) (Solver, error) { return Registry().Get(id) }

// MustRegister registers a solver built by another package; it panics on a
// duplicate identifier.
func MustRegister(id, description string, proto Solver) {
	Registry().MustRegister(id, description, proto)
}
