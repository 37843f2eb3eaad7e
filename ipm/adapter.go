package ipm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
	"github.com/optkit/optkit/solver"
)

// IPM adapts the interior-point method to the solver interface: it
// extracts the quadratic model (Q, c) from the function's Hessian oracle
// and the stacked linear constraints from its constraint list.
type IPM struct {
	solver.Base
}

// NewIPM returns the "ipm" solver.
func NewIPM() *IPM {
	s := &IPM{Base: solver.NewBase("ipm")}
	s.Params().MustRegister(params.MustFloat("solver::ipm::miu", 1, params.LT, 10, params.LE, 1e3))
	s.Params().MustRegister(params.MustFloat("solver::ipm::alpha", 0, params.LT, 0.01, params.LT, 1))
	s.Params().MustRegister(params.MustFloat("solver::ipm::beta", 0, params.LT, 0.5, params.LT, 1))
	s.Params().MustRegister(params.MustInteger("solver::ipm::max_iters", 1, params.LE, 100, params.LE, 10000))
	s.Params().MustRegister(params.MustFloat("solver::ipm::epsilon_feas", 0, params.LT, 1e-10, params.LT, 1))
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *IPM) Clone() solver.Solver { return &IPM{Base: s.CloneBase()} }

// Minimize extracts the quadratic program from fn and solves it. Functions
// that are non-smooth or carry nonlinear constraints terminate with status
// Incompatible.
func (s *IPM) Minimize(fn function.Function, x0 *mat.VecDense) (*solver.State, error) {
	st, err := solver.NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if !fn.Smooth() {
		return s.Incompatible(st), nil
	}

	type constrained interface {
		LinearConstraints() (*function.LinearConstraints, error)
	}
	cfn, ok := fn.(constrained)
	if !ok {
		return s.Incompatible(st), nil
	}
	lc, err := cfn.LinearConstraints()
	if err != nil {
		return s.Incompatible(st), nil
	}

	// quadratic model at x0: Q from the Hessian oracle, c = g − Q·x0
	n := fn.Size()
	q := mat.NewDense(n, n, nil)
	g := mat.NewVecDense(n, nil)
	fn.Eval(st.X, g, q)

	qx := mat.NewVecDense(n, nil)
	qx.MulVec(q, st.X)
	c := mat.NewVecDense(n, nil)
	c.SubVec(g, qx)

	program := &Program{Q: q, C: c, A: lc.A, B: lc.B, G: lc.G, H: lc.H}

	opts := Options{
		Epsilon:     s.Epsilon(),
		EpsilonFeas: s.Params().Float("solver::ipm::epsilon_feas"),
		Miu:         s.Params().Float("solver::ipm::miu"),
		Alpha:       s.Params().Float("solver::ipm::alpha"),
		Beta:        s.Params().Float("solver::ipm::beta"),
		MaxIters:    int(s.Params().Int("solver::ipm::max_iters")),
	}
	sol := Solve(program, st.X, opts)

	st.Iters = sol.Iters
	st.Status = sol.Status
	if sol.X != nil && sol.Status != solver.Unfeasible && sol.Status != solver.Failed {
		st.Update(sol.X)
	}
	return s.Finish(st), nil
}

func init() {
	solver.MustRegister("ipm", "primal-dual interior-point method for QPs/LPs", NewIPM())
}
