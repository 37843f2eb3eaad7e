package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
)

// SGM is the projected-free subgradient method with the classic divergent
// step schedule t_k = t0/√(k+1) along the normalized subgradient.
type SGM struct {
	Base
}

// NewSGM returns the "sgm" solver.
func NewSGM() *SGM {
	s := &SGM{Base: NewBase("sgm")}
	s.Params().MustRegister(params.MustFloat("solver::sgm::t0", 0, params.LT, 1, params.LT, 1e6))
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *SGM) Clone() Solver { return &SGM{Base: s.CloneBase()} }

// Minimize runs the subgradient iteration from x0; progress is judged by
// the value test since the method is not monotone.
func (s *SGM) Minimize(fn function.Function, x0 *mat.VecDense) (*State, error) {
	st, err := NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if fn.Constrained() {
		return s.Incompatible(st), nil
	}

	t0 := s.Params().Float("solver::sgm::t0")
	tracker := s.NewValueTracker()

	n := fn.Size()
	x := mat.VecDenseCopyOf(st.X)
	g := mat.NewVecDense(n, nil)

	for {
		st.Iters++

		gnorm := mat.Norm(st.G, 2)
		if gnorm < machineEpsilon {
			s.DoneSpecificTest(st, true, true)
			break
		}

		tk := t0 / math.Sqrt(float64(st.Iters))
		x.AddScaledVec(st.X, -tk/gnorm, st.G)

		f := fn.Eval(x, g, nil)
		st.SetCurrent(x, g, f)

		if s.DoneValueTest(st, isFinite(f), tracker) {
			break
		}
	}

	st.MoveToBest()
	return s.Finish(st), nil
}

// ASGM is the adaptive subgradient method: a normalized subgradient step
// whose ratio h shrinks by gamma whenever patience iterations pass without
// significant improvement, restarting from the best point; the Lipschitz
// estimate L tracks the largest subgradient norm seen.
type ASGM struct {
	Base
}

// NewASGM returns the "asgm" solver with gamma = 5 and patience 3.
func NewASGM() *ASGM {
	s := &ASGM{Base: NewBase("asgm")}
	s.Params().MustRegister(params.MustFloat("solver::asgm::gamma", 1, params.LT, 5, params.LE, 100))
	s.Params().MustRegister(params.MustInteger("solver::asgm::patience", 2, params.LE, 3, params.LE, 100))
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *ASGM) Clone() Solver { return &ASGM{Base: s.CloneBase()} }

// Minimize runs the adaptive subgradient iteration from x0.
func (s *ASGM) Minimize(fn function.Function, x0 *mat.VecDense) (*State, error) {
	st, err := NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if fn.Constrained() {
		return s.Incompatible(st), nil
	}

	epsilon := s.Epsilon()
	gamma := s.Params().Float("solver::asgm::gamma")
	patience := int(s.Params().Int("solver::asgm::patience"))

	n := fn.Size()
	x := mat.NewVecDense(n, nil)
	g := mat.NewVecDense(n, nil)

	h := 1.0
	lipschitz := mat.Norm(st.G, 2)

	lastBest := 0
	for i := 0; ; i++ {
		st.Iters++

		gnorm := mat.Norm(st.G, 2)
		if gnorm < machineEpsilon {
			s.DoneSpecificTest(st, true, true)
			break
		}

		x.AddScaledVec(st.X, -h/(lipschitz*gnorm), st.G)
		f := fn.Eval(x, g, nil)

		df := math.Abs(f - st.BestF)
		improved := st.UpdateIfBetter(x, g, f)
		st.X.CopyVec(x)
		st.G.CopyVec(g)
		st.F = f

		if improved && df >= epsilon {
			lastBest = i
		} else if i >= patience+lastBest {
			// shrink the step ratio and restart from the best point
			h /= gamma
			lastBest = i
			st.MoveToBest()
		}

		converged := h <= lipschitz*epsilon && df < epsilon
		if s.DoneSpecificTest(st, isFinite(f), converged) {
			break
		}

		lipschitz = math.Max(lipschitz, mat.Norm(st.G, 2))
	}

	st.MoveToBest()
	return s.Finish(st), nil
}
