package solver

import (
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
)

// LBFGS is the limited-memory BFGS method: the two-loop recursion over a
// bounded history of (s, y) pairs, with the curvature safeguard sᵀy > 0 and
// the scaled initial Hessian H⁰ = (sᵀy)/(yᵀy)·I.
type LBFGS struct {
	Base
}

// NewLBFGS returns the "lbfgs" solver with history 20 and the CG-DESCENT
// line search.
func NewLBFGS() *LBFGS {
	s := &LBFGS{Base: NewBase("lbfgs")}
	s.Params().MustRegister(params.MustInteger("solver::lbfgs::history", 1, params.LE, 20, params.LE, 1000))
	if err := s.Params().SetString("solver::lsearchk", "cgdescent"); err != nil {
		panic(err)
	}
	if err := s.Params().SetFloat("solver::c1", 1e-4); err != nil {
		panic(err)
	}
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *LBFGS) Clone() Solver { return &LBFGS{Base: s.CloneBase()} }

// Minimize runs the LBFGS iteration from x0.
func (s *LBFGS) Minimize(fn function.Function, x0 *mat.VecDense) (*State, error) {
	st, err := NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if fn.Constrained() {
		return s.Incompatible(st), nil
	}

	ls, err := s.MakeLsearch()
	if err != nil {
		return nil, err
	}
	history := int(s.Params().Int("solver::lbfgs::history"))

	n := fn.Size()
	var ss, ys []*mat.VecDense
	alphas := make([]float64, 0, history)

	q := mat.NewVecDense(n, nil)
	d := mat.NewVecDense(n, nil)
	prevX := mat.NewVecDense(n, nil)
	prevG := mat.NewVecDense(n, nil)

	for {
		st.Iters++

		// two-loop recursion (Nocedal & Wright, p.178)
		q.CopyVec(st.G)
		m := len(ss)
		alphas = alphas[:0]
		for j := m - 1; j >= 0; j-- {
			alpha := mat.Dot(ss[j], q) / mat.Dot(ss[j], ys[j])
			q.AddScaledVec(q, -alpha, ys[j])
			alphas = append(alphas, alpha)
		}
		if m > 0 {
			gamma := mat.Dot(ss[m-1], ys[m-1]) / mat.Dot(ys[m-1], ys[m-1])
			q.ScaleVec(gamma, q)
		}
		for j := 0; j < m; j++ {
			alpha := alphas[m-1-j]
			beta := mat.Dot(ys[j], q) / mat.Dot(ss[j], ys[j])
			q.AddScaledVec(q, alpha-beta, ss[j])
		}
		d.ScaleVec(-1, q)

		hasDescent := st.HasDescent(d)
		if !hasDescent {
			d.ScaleVec(-1, st.G)
		}

		prevX.CopyVec(st.X)
		prevG.CopyVec(st.G)

		iterOK := ls.Step(st, d)
		if s.DoneGradientTest(st, iterOK) {
			break
		}

		if hasDescent {
			// store the pair only under positive curvature
			sVec := mat.NewVecDense(n, nil)
			sVec.SubVec(st.X, prevX)
			yVec := mat.NewVecDense(n, nil)
			yVec.SubVec(st.G, prevG)
			if mat.Dot(sVec, yVec) > 0 {
				ss = append(ss, sVec)
				ys = append(ys, yVec)
				if len(ss) > history {
					ss = ss[1:]
					ys = ys[1:]
				}
			} else {
				ss, ys = nil, nil
			}
		} else {
			// memory flush: the model stopped producing descent directions
			ss, ys = nil, nil
		}
	}
	return s.Finish(st), nil
}
