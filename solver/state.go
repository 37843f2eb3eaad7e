package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
)

// Sentinel errors for solver operations.
var (
	// ErrBadInput indicates a nil, wrong-sized or non-finite starting point.
	ErrBadInput = errors.New("solver: invalid starting point")

	// ErrNilFunction indicates a nil objective.
	ErrNilFunction = errors.New("solver: nil function")
)

// Status is the terminal condition reported by Minimize.
type Status uint8

const (
	// MaxIters: the evaluation budget was exhausted without convergence.
	MaxIters Status = iota

	// Converged: a convergence criterion fired.
	Converged

	// Failed: the inner iteration broke down (line search, factorization).
	Failed

	// Unfeasible: no feasible point could be produced.
	Unfeasible

	// Unbounded: the problem is not bounded below.
	Unbounded

	// Incompatible: the solver cannot handle the given problem class.
	Incompatible
)

// String returns the status identifier.
func (s Status) String() string {
	switch s {
	case MaxIters:
		return "max_iters"
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	case Unfeasible:
		return "unfeasible"
	case Unbounded:
		return "unbounded"
	case Incompatible:
		return "incompatible"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// State is the mutable iterate of one minimization: the current point, the
// best point seen so far and the terminal status. States are produced by
// Minimize and owned by the caller.
type State struct {
	// X, F, G are the current iterate, its value and its gradient.
	X *mat.VecDense
	F float64
	G *mat.VecDense

	// Hessian is filled only by solvers that maintain one.
	Hessian *mat.Dense

	// BestX, BestF, BestG track the minimum finite value encountered.
	BestX *mat.VecDense
	BestF float64
	BestG *mat.VecDense

	// Iters counts major iterations.
	Iters int

	// Status is the terminal condition.
	Status Status

	// FCalls and GCalls snapshot the oracle counters at return.
	FCalls int64
	GCalls int64

	fn function.Function
}

// NewState validates x0 against fn and evaluates the oracle there.
func NewState(fn function.Function, x0 *mat.VecDense) (*State, error) {
	if fn == nil {
		return nil, ErrNilFunction
	}
	if x0 == nil || x0.Len() != fn.Size() {
		return nil, fmt.Errorf("solver: starting point of size %d for %q (size %d): %w",
			vecLen(x0), fn.Name(), fn.Size(), ErrBadInput)
	}
	for i := 0; i < x0.Len(); i++ {
		if math.IsNaN(x0.AtVec(i)) || math.IsInf(x0.AtVec(i), 0) {
			return nil, fmt.Errorf("solver: non-finite coordinate %d: %w", i, ErrBadInput)
		}
	}

	n := fn.Size()
	st := &State{
		X:     mat.VecDenseCopyOf(x0),
		G:     mat.NewVecDense(n, nil),
		BestX: mat.NewVecDense(n, nil),
		BestG: mat.NewVecDense(n, nil),
		fn:    fn,
	}
	st.F = fn.Eval(st.X, st.G, nil)
	st.BestX.CopyVec(st.X)
	st.BestF = st.F
	st.BestG.CopyVec(st.G)
	return st, nil
}

func vecLen(v *mat.VecDense) int {
	if v == nil {
		return 0
	}
	return v.Len()
}

// Function returns the objective bound to the state.
func (st *State) Function() function.Function { return st.fn }

// Update evaluates the oracle at x, making it the current iterate and
// refreshing the best point. It returns whether the value is finite.
func (st *State) Update(x *mat.VecDense) bool {
	st.X.CopyVec(x)
	st.F = st.fn.Eval(st.X, st.G, nil)
	st.UpdateIfBetter(st.X, st.G, st.F)
	return isFinite(st.F)
}

// SetCurrent installs an already-evaluated iterate and refreshes the best
// point.
func (st *State) SetCurrent(x *mat.VecDense, g *mat.VecDense, f float64) {
	st.X.CopyVec(x)
	st.G.CopyVec(g)
	st.F = f
	st.UpdateIfBetter(x, g, f)
}

// UpdateIfBetter tracks the minimum finite value encountered; it reports
// whether the best point improved.
func (st *State) UpdateIfBetter(x *mat.VecDense, g *mat.VecDense, f float64) bool {
	if !isFinite(f) || f >= st.BestF {
		return false
	}
	st.BestX.CopyVec(x)
	st.BestF = f
	if g != nil {
		st.BestG.CopyVec(g)
	}
	return true
}

// GradientTest returns ‖g‖∞ / max(1, |f|) at the current iterate.
func (st *State) GradientTest() float64 {
	return mat.Norm(st.G, math.Inf(1)) / math.Max(1, math.Abs(st.F))
}

// BestGradientTest returns ‖g‖∞ / max(1, |f|) at the best iterate.
func (st *State) BestGradientTest() float64 {
	return mat.Norm(st.BestG, math.Inf(1)) / math.Max(1, math.Abs(st.BestF))
}

// HasDescent reports whether d is a descent direction at the current iterate.
func (st *State) HasDescent(d *mat.VecDense) bool {
	return mat.Dot(st.G, d) < 0
}

// Snapshot copies the oracle counters into the state; called on return.
func (st *State) Snapshot() {
	st.FCalls = st.fn.FCalls()
	st.GCalls = st.fn.GCalls()
}

// MoveToBest makes the best point the current iterate.
func (st *State) MoveToBest() {
	st.X.CopyVec(st.BestX)
	st.G.CopyVec(st.BestG)
	st.F = st.BestF
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
