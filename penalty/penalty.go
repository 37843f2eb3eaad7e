// Package penalty implements the exterior penalty solvers for constrained
// problems: "linear-penalty" (exact but non-smooth), "quadratic-penalty"
// (smooth, exact only as ρ → ∞) and "augmented-lagrangian" (quadratic
// penalty plus first-order multiplier estimates).
//
// The outer loop builds the penalty transform F_k(x) = f(x) + ρ_k·P(x),
// minimizes it with an inner solver obtained from the registry, multiplies
// ρ by the configured factor η > 1 until the iterate is feasible within
// epsilon, and reports Unfeasible when the outer budget runs out with a
// violated constraint set.
package penalty

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
	"github.com/optkit/optkit/solver"
)

// Kind selects the penalty transform of the outer loop.
type Kind uint8

const (
	// Linear uses the exact non-smooth transform.
	Linear Kind = iota

	// Quadratic uses the smooth squared transform.
	Quadratic

	// AugmentedLagrangian adds multiplier estimates on the quadratic term.
	AugmentedLagrangian
)

// Penalty is the outer-loop solver around an inner registry solver.
type Penalty struct {
	solver.Base
	kind Kind
}

// New returns the "linear-penalty", "quadratic-penalty" or
// "augmented-lagrangian" solver. The default inner solver is lbfgs; any of
// the identifiers listed by innerEnum can be configured instead.
func New(kind Kind) *Penalty {
	name := map[Kind]string{
		Linear:              "linear-penalty",
		Quadratic:           "quadratic-penalty",
		AugmentedLagrangian: "augmented-lagrangian",
	}[kind]

	s := &Penalty{Base: solver.NewBase(name), kind: kind}
	p := s.Params()
	p.MustRegister(params.MustFloat("solver::penalty::rho0", 0, params.LT, 1, params.LT, 1e12))
	p.MustRegister(params.MustFloat("solver::penalty::eta", 1, params.LT, 10, params.LT, 1e6))
	p.MustRegister(params.MustInteger("solver::penalty::max_outers", 1, params.LE, 20, params.LE, 1000))
	p.MustRegister(params.MustEnum("solver::penalty::inner", "lbfgs", innerEnum()...))
	return s
}

// innerEnum lists the inner solvers usable by the outer loop. The linear
// transform is non-smooth, so the non-smooth-capable identifiers are
// included alongside the line-search methods.
func innerEnum() []params.EnumValue {
	ids := []string{"lbfgs", "gd", "cgd-prp", "quasi-bfgs", "pba", "rqb", "osga"}
	out := make([]params.EnumValue, len(ids))
	for i, id := range ids {
		out[i] = params.EnumValue{Name: id, Value: int64(i)}
	}
	return out
}

// Clone returns a fresh solver with the same parameters.
func (s *Penalty) Clone() solver.Solver { return &Penalty{Base: s.CloneBase(), kind: s.kind} }

// Minimize runs the outer penalty loop from x0.
func (s *Penalty) Minimize(fn function.Function, x0 *mat.VecDense) (*solver.State, error) {
	st, err := solver.NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if !fn.Constrained() {
		// nothing to penalize: delegate directly
		return s.delegate(fn, x0)
	}

	inner, err := solver.Get(s.Params().Enum("solver::penalty::inner"))
	if err != nil {
		return nil, err
	}
	// the inner solver shares the evaluation budget and tolerance
	if err := inner.Params().SetInt("solver::max_evals", s.Params().Int("solver::max_evals")); err != nil {
		return nil, err
	}
	if err := inner.Params().SetFloat("solver::epsilon", s.Epsilon()); err != nil {
		return nil, err
	}

	rho := s.Params().Float("solver::penalty::rho0")
	eta := s.Params().Float("solver::penalty::eta")
	maxOuters := int(s.Params().Int("solver::penalty::max_outers"))
	epsilon := s.Epsilon()

	transform := s.makeTransform(fn)

	x := mat.VecDenseCopyOf(x0)
	feasible := false

	for outer := 0; outer < maxOuters; outer++ {
		st.Iters++
		transform.SetRho(rho)

		ist, err := inner.Minimize(transform, x)
		if err != nil {
			return nil, err
		}
		if ist.Status == solver.Failed && !isFinite(ist.BestF) {
			break
		}
		x.CopyVec(ist.BestX)

		// track the best feasible-enough iterate on the original objective
		fx := fn.Eval(x, nil, nil)
		viol := worstViolation(fn, x)
		if viol <= epsilon {
			st.UpdateIfBetter(x, nil, fx)
			feasible = true
			// the linear transform is exact: a feasible unconstrained
			// minimum is the constrained minimum
			if s.kind == Linear {
				break
			}
			if viol <= epsilon*1e-2 {
				break
			}
		}

		if al, ok := transform.(*function.AugmentedLagrangian); ok {
			al.UpdateMultipliers(x)
		}
		rho *= eta

		if s.Evals(fn) >= s.MaxEvals() {
			break
		}
	}

	// final state on the original objective
	g := mat.NewVecDense(fn.Size(), nil)
	f := fn.Eval(x, g, nil)
	st.SetCurrent(x, g, f)

	switch {
	case feasible:
		st.Status = solver.Converged
	case s.Evals(fn) >= s.MaxEvals():
		st.Status = solver.MaxIters
	default:
		st.Status = solver.Unfeasible
	}
	return s.Finish(st), nil
}

func (s *Penalty) makeTransform(fn function.Function) function.Penalty {
	switch s.kind {
	case Linear:
		return function.NewLinearPenalty(fn)
	case Quadratic:
		return function.NewQuadraticPenalty(fn)
	default:
		return function.NewAugmentedLagrangian(fn)
	}
}

// delegate runs the inner solver directly on an unconstrained function.
func (s *Penalty) delegate(fn function.Function, x0 *mat.VecDense) (*solver.State, error) {
	inner, err := solver.Get(s.Params().Enum("solver::penalty::inner"))
	if err != nil {
		return nil, err
	}
	return inner.Minimize(fn, x0)
}

func worstViolation(fn function.Function, x *mat.VecDense) float64 {
	worst := 0.0
	for _, c := range fn.Constraints() {
		worst = math.Max(worst, c.Violation(x))
	}
	return worst
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func init() {
	solver.MustRegister("linear-penalty", "exterior linear penalty method", New(Linear))
	solver.MustRegister("quadratic-penalty", "exterior quadratic penalty method", New(Quadratic))
	solver.MustRegister("augmented-lagrangian", "augmented Lagrangian method", New(AugmentedLagrangian))
}
