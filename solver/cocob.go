package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
)

// COCOB is the continuous coin-betting solver of Orabona and Pal: each
// coordinate bets a fraction of its accumulated reward against the
// negative gradient stream, with no step length to tune.
type COCOB struct {
	Base
}

// NewCOCOB returns the "cocob" solver with the per-class initial wealth
// L0 = 1e-16 (smooth) and 1e+3 (non-smooth).
func NewCOCOB() *COCOB {
	s := &COCOB{Base: NewBase("cocob")}
	s.Params().MustRegister(params.MustFloat("solver::cocob::L0-smooth", 0, params.LT, 1e-16, params.LE, math.MaxFloat64))
	s.Params().MustRegister(params.MustFloat("solver::cocob::L0-nonsmooth", 0, params.LT, 1e+3, params.LE, math.MaxFloat64))
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *COCOB) Clone() Solver { return &COCOB{Base: s.CloneBase()} }

// Minimize runs the coin-betting iteration from x0.
func (s *COCOB) Minimize(fn function.Function, x0 *mat.VecDense) (*State, error) {
	st, err := NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if fn.Constrained() {
		return s.Incompatible(st), nil
	}

	l0 := s.Params().Float("solver::cocob::L0-nonsmooth")
	if fn.Smooth() {
		l0 = s.Params().Float("solver::cocob::L0-smooth")
	}
	tracker := s.NewValueTracker()

	n := fn.Size()
	scale := make([]float64, n)  // per-coordinate gradient scale L
	sumAbs := make([]float64, n) // accumulated |g|
	theta := make([]float64, n)  // accumulated −g
	reward := make([]float64, n)

	for i := range scale {
		scale[i] = l0
	}

	x := mat.NewVecDense(n, nil)
	g := mat.NewVecDense(n, nil)

	for {
		st.Iters++

		for i := 0; i < n; i++ {
			gi := st.G.AtVec(i)
			scale[i] = math.Max(scale[i], math.Abs(gi))
			sumAbs[i] += math.Abs(gi)
			theta[i] -= gi
			reward[i] = math.Max(0, reward[i]-(st.X.AtVec(i)-x0.AtVec(i))*gi)

			beta := math.Tanh(theta[i]/(sumAbs[i]+scale[i])) / scale[i]
			x.SetVec(i, x0.AtVec(i)+beta*(scale[i]+reward[i]))
		}

		f := fn.Eval(x, g, nil)
		st.SetCurrent(x, g, f)

		if s.DoneValueTest(st, isFinite(f), tracker) {
			break
		}
	}

	st.MoveToBest()
	return s.Finish(st), nil
}
