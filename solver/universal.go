package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
)

// Universal implements Nesterov's universal gradient methods, which adapt
// to the (possibly unknown) Hoelder smoothness of the objective through a
// doubling search on the local Lipschitz estimate:
//
//   - pgm: the universal primal gradient method;
//   - dgm: the universal dual gradient method (weighted dual averaging);
//   - fgm: the universal fast gradient method.
//
// The original stopping criterion depends on the unknown distance to the
// optimum, so the iterations stop through the value test instead.
type Universal struct {
	Base
	method string
}

// NewUniversal returns the "pgm", "dgm" or "fgm" solver.
func NewUniversal(method string) *Universal {
	switch method {
	case "pgm", "dgm", "fgm":
	default:
		panic("solver: unknown universal method " + method)
	}
	s := &Universal{Base: NewBase(method), method: method}
	s.Params().MustRegister(params.MustFloat("solver::universal::L0", 0, params.LT, 1, params.LE, 1e12))
	s.Params().MustRegister(params.MustInteger("solver::universal::lsearch_max_iters", 1, params.LE, 50, params.LE, 100))
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *Universal) Clone() Solver { return &Universal{Base: s.CloneBase(), method: s.method} }

// Minimize dispatches to the selected method.
func (s *Universal) Minimize(fn function.Function, x0 *mat.VecDense) (*State, error) {
	st, err := NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if fn.Constrained() {
		return s.Incompatible(st), nil
	}

	switch s.method {
	case "fgm":
		s.minimizeFGM(st, fn, x0)
	default:
		s.minimizePrimalDual(st, fn, x0)
	}

	st.MoveToBest()
	return s.Finish(st), nil
}

// minimizePrimalDual runs pgm (x ← y) or dgm (x ← dual average).
func (s *Universal) minimizePrimalDual(st *State, fn function.Function, x0 *mat.VecDense) {
	lsMax := int(s.Params().Int("solver::universal::lsearch_max_iters"))
	epsilon := s.Epsilon()
	tracker := s.NewValueTracker()
	dual := s.method == "dgm"

	n := fn.Size()
	l := s.Params().Float("solver::universal::L0")

	y := mat.NewVecDense(n, nil)
	gy := mat.NewVecDense(n, nil)
	diff := mat.NewVecDense(n, nil)
	sumg := mat.NewVecDense(n, nil) // Σ g_k/M_k for the dual average

	for {
		st.Iters++

		iterOK := false
		var m float64
		for j := 0; j < lsMax; j++ {
			m = math.Pow(2, float64(j)) * l

			// gradient-mapping trial y = x − g/M
			y.AddScaledVec(st.X, -1/m, st.G)
			fy := fn.Eval(y, gy, nil)

			diff.SubVec(y, st.X)
			bound := st.F + mat.Dot(st.G, diff) + 0.5*m*mat.Dot(diff, diff) + 0.5*epsilon
			if isFinite(fy) && fy <= bound {
				iterOK = true
				break
			}
		}
		if !iterOK {
			s.DoneSpecificTest(st, false, false)
			break
		}
		l = m / 2

		if dual {
			sumg.AddScaledVec(sumg, 1/m, st.G)
			y.SubVec(x0, sumg)
		}
		f := fn.Eval(y, gy, nil)
		st.SetCurrent(y, gy, f)

		if s.DoneValueTest(st, isFinite(f), tracker) {
			break
		}
	}
}

// minimizeFGM runs the universal fast gradient method with the accumulated
// weights A and the doubling line search on M.
func (s *Universal) minimizeFGM(st *State, fn function.Function, x0 *mat.VecDense) {
	lsMax := int(s.Params().Int("solver::universal::lsearch_max_iters"))
	tracker := s.NewValueTracker()

	n := fn.Size()
	l := s.Params().Float("solver::universal::L0")
	acc := 0.0 // A_k

	yk := mat.VecDenseCopyOf(x0)
	fyk := st.F

	v := mat.NewVecDense(n, nil)
	sumg := mat.NewVecDense(n, nil)
	xk1 := mat.NewVecDense(n, nil)
	gxk1 := mat.NewVecDense(n, nil)
	yk1 := mat.NewVecDense(n, nil)
	gy := mat.NewVecDense(n, nil)
	diff := mat.NewVecDense(n, nil)

	for {
		st.Iters++

		v.SubVec(x0, sumg)

		iterOK := false
		for k := 0; k < lsMax; k++ {
			m := math.Pow(2, float64(k)) * l
			a := 0.5 * (1/m + math.Sqrt(1/(m*m)+4*acc/m))
			tau := a / (acc + a)

			xk1.ScaleVec(tau, v)
			xk1.AddScaledVec(xk1, 1-tau, yk)
			fxk1 := fn.Eval(xk1, gxk1, nil)

			yk1.AddScaledVec(v, -a, gxk1)
			yk1.ScaleVec(tau, yk1)
			yk1.AddScaledVec(yk1, 1-tau, yk)
			fyk1 := fn.Eval(yk1, gy, nil)

			diff.SubVec(yk1, xk1)
			bound := fxk1 + mat.Dot(gxk1, diff) + 0.5*m*mat.Dot(diff, diff) + 0.5*machineEpsilon*tau
			if isFinite(fyk1) && fyk1 <= bound {
				iterOK = true
				yk.CopyVec(yk1)
				fyk = fyk1
				acc += a
				l = m / 2
				sumg.AddScaledVec(sumg, a, gxk1)
				break
			}
		}

		st.SetCurrent(yk, gy, fyk)
		if s.DoneValueTest(st, iterOK, tracker) {
			break
		}
	}
}
