package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
)

// cgdBeta computes the variant-specific conjugation scalar β from the
// previous and current iterates.
type cgdBeta func(prevG, currG, prevD *mat.VecDense) float64

type cgdVariant struct {
	id   string
	desc string
	beta cgdBeta
}

func cgdVariants() []cgdVariant {
	dot := mat.Dot
	norm2 := func(v *mat.VecDense) float64 { return dot(v, v) }
	diff := func(a, b *mat.VecDense) *mat.VecDense {
		out := mat.NewVecDense(a.Len(), nil)
		out.SubVec(a, b)
		return out
	}

	return []cgdVariant{
		{"hs", "Hestenes-Stiefel", func(pg, cg, pd *mat.VecDense) float64 {
			y := diff(cg, pg)
			return dot(cg, y) / dot(pd, y)
		}},
		{"fr", "Fletcher-Reeves", func(pg, cg, pd *mat.VecDense) float64 {
			return norm2(cg) / norm2(pg)
		}},
		{"prp", "Polak-Ribiere-Polyak", func(pg, cg, pd *mat.VecDense) float64 {
			y := diff(cg, pg)
			return dot(cg, y) / norm2(pg)
		}},
		{"cd", "conjugate descent", func(pg, cg, pd *mat.VecDense) float64 {
			return -norm2(cg) / dot(pd, pg)
		}},
		{"ls", "Liu-Storey", func(pg, cg, pd *mat.VecDense) float64 {
			y := diff(cg, pg)
			return -dot(cg, y) / dot(pd, pg)
		}},
		{"dy", "Dai-Yuan", func(pg, cg, pd *mat.VecDense) float64 {
			y := diff(cg, pg)
			return norm2(cg) / dot(pd, y)
		}},
		{"n", "Hager-Zhang (N)", func(pg, cg, pd *mat.VecDense) float64 {
			y := diff(cg, pg)
			dy := dot(pd, y)
			// β_N = (y − 2d·‖y‖²/dᵀy)ᵀ g / dᵀy
			w := mat.NewVecDense(y.Len(), nil)
			w.AddScaledVec(y, -2*norm2(y)/dy, pd)
			// truncation keeps the direction gradient-related
			eta := -1 / (mat.Norm(pd, 2) * math.Min(0.01, mat.Norm(pg, 2)))
			return math.Max(dot(w, cg)/dy, eta)
		}},
		{"dycd", "hybrid Dai-Yuan / conjugate descent", func(pg, cg, pd *mat.VecDense) float64 {
			y := diff(cg, pg)
			return norm2(cg) / math.Max(dot(pd, y), -dot(pd, pg))
		}},
		{"dyhs", "hybrid Dai-Yuan / Hestenes-Stiefel", func(pg, cg, pd *mat.VecDense) float64 {
			y := diff(cg, pg)
			hs := dot(cg, y) / dot(pd, y)
			dy := norm2(cg) / dot(pd, y)
			return math.Max(0, math.Min(hs, dy))
		}},
	}
}

// CGD is the nonlinear conjugate gradient family: d = −g + β·d_prev with a
// strong Wolfe line search, restarting to steepest descent when β < 0, when
// consecutive gradients are far from orthogonal, or when conjugacy breaks
// the descent property.
type CGD struct {
	Base
	variant cgdVariant
}

// NewCGD returns the "cgd-<id>" solver for one of the nine variants:
// hs, fr, prp, cd, ls, dy, n, dycd, dyhs.
func NewCGD(id string) *CGD {
	var variant cgdVariant
	for _, v := range cgdVariants() {
		if v.id == id {
			variant = v
			break
		}
	}
	if variant.beta == nil {
		panic("solver: unknown cgd variant " + id)
	}

	s := &CGD{Base: NewBase("cgd-" + id), variant: variant}
	s.Params().MustRegister(params.MustFloat("solver::cgd::orthotest", 0, params.LT, 0.1, params.LT, 1))
	// strong Wolfe is required by the conjugacy analysis
	if err := s.Params().SetString("solver::lsearchk", "morethuente"); err != nil {
		panic(err)
	}
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *CGD) Clone() Solver { return &CGD{Base: s.CloneBase(), variant: s.variant} }

// Minimize runs the conjugate gradient iteration from x0.
func (s *CGD) Minimize(fn function.Function, x0 *mat.VecDense) (*State, error) {
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
	orthotest := s.Params().Float("solver::cgd::orthotest")

	n := fn.Size()
	d := mat.NewVecDense(n, nil)
	prevG := mat.NewVecDense(n, nil)
	prevD := mat.NewVecDense(n, nil)

	for {
		st.Iters++

		if st.Iters == 1 {
			d.ScaleVec(-1, st.G)
		} else {
			beta := s.variant.beta(prevG, st.G, prevD)
			d.ScaleVec(beta, prevD)
			d.AddScaledVec(d, -1, st.G)

			// restart to steepest descent when conjugacy degrades
			switch {
			case !isFinite(beta) || beta < 0:
				d.ScaleVec(-1, st.G)
			case math.Abs(mat.Dot(st.G, prevG)) >= orthotest*mat.Dot(st.G, st.G):
				d.ScaleVec(-1, st.G)
			case !st.HasDescent(d):
				d.ScaleVec(-1, st.G)
			}
		}

		prevG.CopyVec(st.G)
		prevD.CopyVec(d)

		iterOK := ls.Step(st, d)
		if s.DoneGradientTest(st, iterOK) {
			break
		}
	}
	return s.Finish(st), nil
}
