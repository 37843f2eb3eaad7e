package solver

import (
	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
)

// GD is plain gradient descent: d = −g with a Wolfe line search.
type GD struct {
	Base
}

// NewGD returns the "gd" solver.
func NewGD() *GD { return &GD{Base: NewBase("gd")} }

// Clone returns a fresh solver with the same parameters.
func (s *GD) Clone() Solver { return &GD{Base: s.CloneBase()} }

// Minimize runs steepest descent from x0.
func (s *GD) Minimize(fn function.Function, x0 *mat.VecDense) (*State, error) {
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

	d := mat.NewVecDense(fn.Size(), nil)
	for {
		st.Iters++
		d.ScaleVec(-1, st.G)

		iterOK := ls.Step(st, d)
		if s.DoneGradientTest(st, iterOK) {
			break
		}
	}
	return s.Finish(st), nil
}
