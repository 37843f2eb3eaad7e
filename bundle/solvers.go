package bundle

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
	"github.com/optkit/optkit/solver"
)

func configBundle(set *params.Set) {
	set.MustRegister(params.MustInteger("solver::bundle::max_size", 2, params.LE, 100, params.LE, 10000))
}

// nesterov is the momentum sequence layered by FPBA on the proximal
// iterate: λ_{k+1} = ½(1+√(1+4λ_k²)), α_k = (λ_k−1)/λ_{k+1} and β_k = 0
// (variant 1) or λ_k/λ_{k+1} (variant 2).
type nesterov struct {
	lambda  float64
	x, y    *mat.VecDense
	variant int
}

func newNesterov(st *solver.State, variant int) *nesterov {
	return &nesterov{
		lambda:  1,
		x:       mat.VecDenseCopyOf(st.X),
		y:       mat.VecDenseCopyOf(st.X),
		variant: variant,
	}
}

func (s *nesterov) reset() { s.lambda = 1 }

// next maps the accepted proximal point z to the accelerated center
// z + α(z−y) + β(z−x).
func (s *nesterov) next(z *mat.VecDense) *mat.VecDense {
	lambda := s.lambda
	s.lambda = 0.5 * (1 + math.Sqrt(1+4*lambda*lambda))

	alpha := (lambda - 1) / s.lambda
	beta := 0.0
	if s.variant == 2 {
		beta = lambda / s.lambda
	}

	out := mat.VecDenseCopyOf(z)
	out.AddScaledVec(out, alpha, z)
	out.AddScaledVec(out, -alpha, s.y)
	out.AddScaledVec(out, beta, z)
	out.AddScaledVec(out, -beta, s.x)

	s.x.CopyVec(out)
	s.y.CopyVec(z)
	return out
}

// PBA is the proximal bundle algorithm: scaled-identity metric with the
// PBM τ schedules. The fpba1/fpba2 variants add the Nesterov sequence on
// accepted centers; see NewFPBA.
type PBA struct {
	solver.Base
	accel int // 0: none, 1: fpba1, 2: fpba2
}

// NewPBA returns the "pba" solver.
func NewPBA() *PBA {
	s := &PBA{Base: solver.NewBase("pba")}
	configBundle(s.Params())
	ConfigCSearch(s.Params())
	ConfigProximal(s.Params())
	return s
}

// NewFPBA returns the "fpba1" or "fpba2" solver.
func NewFPBA(variant int) *PBA {
	name := "fpba1"
	if variant == 2 {
		name = "fpba2"
	}
	s := &PBA{Base: solver.NewBase(name), accel: variant}
	configBundle(s.Params())
	ConfigCSearch(s.Params())
	ConfigProximal(s.Params())
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *PBA) Clone() solver.Solver { return &PBA{Base: s.CloneBase(), accel: s.accel} }

// Minimize runs the proximal bundle iteration from x0.
func (s *PBA) Minimize(fn function.Function, x0 *mat.VecDense) (*solver.State, error) {
	st, err := solver.NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if fn.Constrained() {
		return s.Incompatible(st), nil
	}

	maxSize := int(s.Params().Int("solver::bundle::max_size"))
	epsilon := s.Epsilon()

	b := New(st, maxSize)
	csearch := NewCSearch(fn, s.Params())
	proximal := NewProximal(st, s.Params())

	var momentum *nesterov
	if s.accel > 0 {
		momentum = newNesterov(st, s.accel)
	}

	gx := mat.NewVecDense(fn.Size(), nil)

	// moveCenter recenters the bundle on the accepted point, through the
	// momentum sequence when acceleration is on.
	moveCenter := func(point *Point) {
		st.UpdateIfBetter(point.Y, point.Gy, point.Fy)
		if momentum == nil {
			b.MoveTo(point.Y, point.Gy, point.Fy)
			st.SetCurrent(point.Y, point.Gy, point.Fy)
			return
		}
		x := momentum.next(point.Y)
		fx := fn.Eval(x, gx, nil)
		if !isFinite(fx) {
			momentum.reset()
			b.MoveTo(point.Y, point.Gy, point.Fy)
			st.SetCurrent(point.Y, point.Gy, point.Fy)
			return
		}
		b.MoveTo(x, gx, fx)
		if !st.UpdateIfBetter(x, gx, fx) {
			momentum.reset()
		}
		st.SetCurrent(x, gx, fx)
	}

	for {
		st.Iters++

		point := csearch.Search(b, proximal.Metric(), epsilon, s.MaxEvals()-s.Evals(fn))

		iterOK := point.Status != CSearchFailed
		converged := point.Status == CSearchConverged
		if s.DoneSpecificTest(st, iterOK, converged) {
			break
		}

		switch point.Status {
		case CSearchDescentStep:
			proximal.Update(b, point)
			moveCenter(point)
		case CSearchCuttingPlaneStep:
			proximal.Update(b, point)
			moveCenter(point)
		default: // null step
			proximal.Update(b, point)
			b.Append(point.Y, point.Gy, point.Fy)
			st.UpdateIfBetter(point.Y, point.Gy, point.Fy)
		}
	}

	st.MoveToBest()
	return s.Finish(st), nil
}

// RQB is the reversal quasi-Newton bundle method: the scalar proximity
// parameter is replaced by the SR1 (or scaled-identity) matrix metric.
type RQB struct {
	solver.Base
}

// NewRQB returns the "rqb" solver.
func NewRQB() *RQB {
	s := &RQB{Base: solver.NewBase("rqb")}
	configBundle(s.Params())
	ConfigCSearch(s.Params())
	ConfigQuasi(s.Params())
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *RQB) Clone() solver.Solver { return &RQB{Base: s.CloneBase()} }

// Minimize runs the quasi-Newton bundle iteration from x0.
func (s *RQB) Minimize(fn function.Function, x0 *mat.VecDense) (*solver.State, error) {
	st, err := solver.NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if fn.Constrained() {
		return s.Incompatible(st), nil
	}

	maxSize := int(s.Params().Int("solver::bundle::max_size"))
	epsilon := s.Epsilon()

	b := New(st, maxSize)
	csearch := NewCSearch(fn, s.Params())
	quasi := NewQuasi(st, s.Params())

	for {
		st.Iters++

		point := csearch.Search(b, quasi.Metric(), epsilon, s.MaxEvals()-s.Evals(fn))

		iterOK := point.Status != CSearchFailed
		converged := point.Status == CSearchConverged
		if s.DoneSpecificTest(st, iterOK, converged) {
			break
		}

		switch point.Status {
		case CSearchDescentStep:
			quasi.Update(point.Y, point.Gy, point.Ghat, true)
			b.MoveTo(point.Y, point.Gy, point.Fy)
			st.SetCurrent(point.Y, point.Gy, point.Fy)
		case CSearchCuttingPlaneStep:
			quasi.Update(point.Y, point.Gy, point.Ghat, false)
			b.MoveTo(point.Y, point.Gy, point.Fy)
			st.SetCurrent(point.Y, point.Gy, point.Fy)
		default: // null step
			b.Append(point.Y, point.Gy, point.Fy)
			st.UpdateIfBetter(point.Y, point.Gy, point.Fy)
		}
	}

	st.MoveToBest()
	return s.Finish(st), nil
}

func init() {
	solver.MustRegister("pba", "proximal bundle algorithm", NewPBA())
	solver.MustRegister("fpba1", "fast proximal bundle algorithm (sequence 1)", NewFPBA(1))
	solver.MustRegister("fpba2", "fast proximal bundle algorithm (sequence 2)", NewFPBA(2))
	solver.MustRegister("rqb", "reversal quasi-Newton bundle method", NewRQB())
}
