package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
)

// Ellipsoid is the deep-cut ellipsoid method for convex (sub-)gradient
// problems: maintain E = {x : (x−c)ᵀH⁻¹(x−c) <= 1}, cut it through the
// current subgradient and re-center. In one dimension the method
// degenerates to bisection.
type Ellipsoid struct {
	Base
}

// NewEllipsoid returns the "ellipsoid" solver with initial radius R = 10.
func NewEllipsoid() *Ellipsoid {
	s := &Ellipsoid{Base: NewBase("ellipsoid")}
	s.Params().MustRegister(params.MustFloat("solver::ellipsoid::R", 0, params.LT, 10, params.LT, math.MaxFloat64))
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *Ellipsoid) Clone() Solver { return &Ellipsoid{Base: s.CloneBase()} }

// Minimize runs the ellipsoid iteration from x0.
func (s *Ellipsoid) Minimize(fn function.Function, x0 *mat.VecDense) (*State, error) {
	st, err := NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if fn.Constrained() {
		return s.Incompatible(st), nil
	}

	radius := s.Params().Float("solver::ellipsoid::R")
	epsilon := s.Epsilon()

	n := fn.Size()
	fsize := float64(n)

	// H = R²·I (R·I in one dimension, where H is the interval half-width)
	h := identity(n)
	if n == 1 {
		h.Scale(radius, identity(n))
	} else {
		h.Scale(radius*radius, identity(n))
	}

	x := mat.VecDenseCopyOf(st.X)
	g := mat.VecDenseCopyOf(st.G)
	f := st.F

	hg := mat.NewVecDense(n, nil)
	for {
		st.Iters++

		hg.MulVec(h, g)
		ghg := mat.Dot(g, hg)
		if ghg < machineEpsilon {
			s.DoneSpecificTest(st, true, true)
			break
		}

		if n == 1 {
			// bisection on the remaining interval
			step := h.At(0, 0)
			if g.AtVec(0) < 0 {
				x.SetVec(0, x.AtVec(0)+step)
			} else {
				x.SetVec(0, x.AtVec(0)-step)
			}
			h.Set(0, 0, step/2)
		} else {
			// deep cut: alpha > 0 once a better value is known
			alpha := (f - st.BestF) / math.Sqrt(ghg)

			x.AddScaledVec(x, -(1+fsize*alpha)/((fsize+1)*math.Sqrt(ghg)), hg)

			// H ← n²/(n²−1)·(1−α²)·(H − 2(1+nα)/((n+1)(1+α))·HggᵀH/gᵀHg)
			outer := mat.NewDense(n, n, nil)
			outer.Outer(2*(1+fsize*alpha)/((fsize+1)*(1+alpha))/ghg, hg, hg)
			h.Sub(h, outer)
			h.Scale(fsize*fsize/(fsize*fsize-1)*(1-alpha*alpha), h)
		}

		f = fn.Eval(x, g, nil)
		st.SetCurrent(x, g, f)

		iterOK := isFinite(f)
		converged := math.Sqrt(ghg) < epsilon
		if s.DoneSpecificTest(st, iterOK, converged) {
			break
		}
	}

	st.MoveToBest()
	return s.Finish(st), nil
}

const machineEpsilon = 0x1p-52
