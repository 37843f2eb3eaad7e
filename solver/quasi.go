package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
)

// quasiUpdate folds one (s, y) pair into the inverse Hessian approximation H.
type quasiUpdate func(h *mat.Dense, s, y *mat.VecDense, r float64)

type quasiVariant struct {
	id     string
	desc   string
	update quasiUpdate
}

// broyden applies the Broyden-family update with the given mixing factor:
// phi = 0 is DFP, phi = 1 is BFGS.
func broyden(h *mat.Dense, s, y *mat.VecDense, phi float64) {
	n := s.Len()
	hy := mat.NewVecDense(n, nil)
	hy.MulVec(h, y)

	sy := mat.Dot(s, y)
	yhy := mat.Dot(y, hy)
	if sy <= 0 || yhy <= 0 {
		return
	}

	tmp := mat.NewDense(n, n, nil)

	// DFP core: H − (Hy)(Hy)ᵀ/yᵀHy + ssᵀ/sᵀy
	tmp.Outer(-1/yhy, hy, hy)
	h.Add(h, tmp)
	tmp.Outer(1/sy, s, s)
	h.Add(h, tmp)

	if phi != 0 {
		// + phi·(yᵀHy)·vvᵀ with v = s/sᵀy − Hy/yᵀHy
		v := mat.NewVecDense(n, nil)
		v.AddScaledVec(v, 1/sy, s)
		v.AddScaledVec(v, -1/yhy, hy)
		tmp.Outer(phi*yhy, v, v)
		h.Add(h, tmp)
	}
}

func quasiVariants() []quasiVariant {
	return []quasiVariant{
		{"sr1", "symmetric rank one", func(h *mat.Dense, s, y *mat.VecDense, r float64) {
			n := s.Len()
			u := mat.NewVecDense(n, nil)
			u.MulVec(h, y)
			u.SubVec(s, u) // u = s − Hy

			den := mat.Dot(u, y)
			if math.Abs(den) < r*mat.Norm(u, 2)*mat.Norm(y, 2) {
				return // skip: the update is numerically unreliable
			}
			tmp := mat.NewDense(n, n, nil)
			tmp.Outer(1/den, u, u)
			h.Add(h, tmp)
		}},
		{"dfp", "Davidon-Fletcher-Powell", func(h *mat.Dense, s, y *mat.VecDense, _ float64) {
			broyden(h, s, y, 0)
		}},
		{"bfgs", "Broyden-Fletcher-Goldfarb-Shanno", func(h *mat.Dense, s, y *mat.VecDense, _ float64) {
			broyden(h, s, y, 1)
		}},
		{"hoshino", "Hoshino (Broyden family)", func(h *mat.Dense, s, y *mat.VecDense, _ float64) {
			n := s.Len()
			hy := mat.NewVecDense(n, nil)
			hy.MulVec(h, y)
			sy := mat.Dot(s, y)
			yhy := mat.Dot(y, hy)
			if sy+yhy == 0 {
				return
			}
			broyden(h, s, y, sy/(sy+yhy))
		}},
		{"fletcher", "Fletcher switch", func(h *mat.Dense, s, y *mat.VecDense, _ float64) {
			// the SR1 mixing factor truncated to the convex class [0, 1]
			n := s.Len()
			hy := mat.NewVecDense(n, nil)
			hy.MulVec(h, y)
			sy := mat.Dot(s, y)
			yhy := mat.Dot(y, hy)
			if sy == yhy {
				broyden(h, s, y, 1)
				return
			}
			broyden(h, s, y, math.Max(0, math.Min(1, sy/(sy-yhy))))
		}},
	}
}

// Quasi is the dense quasi-Newton family: d = −H·g where H approximates the
// inverse Hessian through one of the SR1, DFP, BFGS, Hoshino or
// Fletcher-switch updates.
type Quasi struct {
	Base
	variant quasiVariant
}

// NewQuasi returns the "quasi-<id>" solver for one of sr1, dfp, bfgs,
// hoshino, fletcher.
func NewQuasi(id string) *Quasi {
	var variant quasiVariant
	for _, v := range quasiVariants() {
		if v.id == id {
			variant = v
			break
		}
	}
	if variant.update == nil {
		panic("solver: unknown quasi-Newton variant " + id)
	}

	s := &Quasi{Base: NewBase("quasi-" + id), variant: variant}
	s.Params().MustRegister(params.MustFloat("solver::quasi::r", 0, params.LT, 1e-8, params.LT, 1))
	s.Params().MustRegister(params.MustEnum("solver::quasi::initialization", "identity",
		params.EnumValue{Name: "identity", Value: 0},
		params.EnumValue{Name: "scaled", Value: 1}))
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *Quasi) Clone() Solver { return &Quasi{Base: s.CloneBase(), variant: s.variant} }

// Minimize runs the quasi-Newton iteration from x0.
func (s *Quasi) Minimize(fn function.Function, x0 *mat.VecDense) (*State, error) {
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
	r := s.Params().Float("solver::quasi::r")
	scaled := s.Params().Enum("solver::quasi::initialization") == "scaled"

	n := fn.Size()
	h := identity(n)
	rescale := scaled

	d := mat.NewVecDense(n, nil)
	sVec := mat.NewVecDense(n, nil)
	yVec := mat.NewVecDense(n, nil)
	prevX := mat.NewVecDense(n, nil)
	prevG := mat.NewVecDense(n, nil)

	for {
		st.Iters++

		d.MulVec(h, st.G)
		d.ScaleVec(-1, d)
		if !st.HasDescent(d) {
			// reset the model: it stopped producing descent directions
			h = identity(n)
			rescale = scaled
			d.ScaleVec(-1, st.G)
		}

		prevX.CopyVec(st.X)
		prevG.CopyVec(st.G)

		iterOK := ls.Step(st, d)
		if s.DoneGradientTest(st, iterOK) {
			break
		}

		sVec.SubVec(st.X, prevX)
		yVec.SubVec(st.G, prevG)

		if rescale {
			// H0 = sᵀy/yᵀy·I before the first update
			if yy := mat.Dot(yVec, yVec); yy > 0 {
				if gamma := mat.Dot(sVec, yVec) / yy; gamma > 0 {
					h.Scale(gamma, identity(n))
				}
			}
			rescale = false
		}
		s.variant.update(h, sVec, yVec, r)
	}

	st.Hessian = h
	return s.Finish(st), nil
}

func identity(n int) *mat.Dense {
	h := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		h.Set(i, i, 1)
	}
	return h
}
