package gsample

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
	"github.com/optkit/optkit/solver"
)

// GS is the gradient-sampling solver family; the sampler (fixed/adaptive)
// and the preconditioner (identity/LBFGS) are selected by the identifier.
type GS struct {
	solver.Base
	adaptive bool
	lbfgs    bool
}

// NewGS returns one of the "gs", "gs-lbfgs", "ags", "ags-lbfgs" solvers.
func NewGS(adaptive, lbfgs bool) *GS {
	name := "gs"
	if adaptive {
		name = "ags"
	}
	if lbfgs {
		name += "-lbfgs"
	}

	s := &GS{Base: solver.NewBase(name), adaptive: adaptive, lbfgs: lbfgs}
	p := s.Params()
	p.MustRegister(params.MustFloat("solver::gs::beta", 0, params.LT, 1e-8, params.LT, 1))
	p.MustRegister(params.MustFloat("solver::gs::gamma", 0, params.LT, 0.5, params.LT, 1))
	p.MustRegister(params.MustFloat("solver::gs::radius0", 0, params.LT, 0.1, params.LT, 1e6))
	p.MustRegister(params.MustFloat("solver::gs::theta", 0, params.LT, 0.5, params.LE, 1))
	p.MustRegister(params.MustFloat("solver::gs::perturb_c", 0, params.LE, 1e-10, params.LT, 1))
	p.MustRegister(params.MustInteger("solver::gs::lsearch_max_iters", 1, params.LE, 50, params.LE, 1000))
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *GS) Clone() solver.Solver {
	return &GS{Base: s.CloneBase(), adaptive: s.adaptive, lbfgs: s.lbfgs}
}

// Minimize runs the gradient-sampling iteration from x0.
func (s *GS) Minimize(fn function.Function, x0 *mat.VecDense) (*solver.State, error) {
	st, err := solver.NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if fn.Constrained() {
		return s.Incompatible(st), nil
	}

	beta := s.Params().Float("solver::gs::beta")
	gamma := s.Params().Float("solver::gs::gamma")
	radius := s.Params().Float("solver::gs::radius0")
	theta := s.Params().Float("solver::gs::theta")
	perturbC := s.Params().Float("solver::gs::perturb_c")
	lsMax := int(s.Params().Int("solver::gs::lsearch_max_iters"))
	epsilon := s.Epsilon()

	rng := s.RNG()
	smp := newSampler(s.adaptive, rng)

	var w precond = identityPrecond{}
	if s.lbfgs {
		w = newLBFGSPrecond()
	}

	n := fn.Size()
	x := mat.NewVecDense(n, nil)
	g := mat.NewVecDense(n, nil)
	step := mat.NewVecDense(n, nil)
	perturb := mat.NewVecDense(n, nil)

	for {
		st.Iters++

		smp.sample(fn, st, radius)
		w.rebuild(smp, st, radius)

		ghat, d, ok := smp.descent(w)
		if !ok {
			s.DoneSpecificTest(st, false, false)
			break
		}

		dnorm := mat.Norm(d, 2)
		if dnorm < epsilon {
			if radius <= epsilon {
				s.DoneSpecificTest(st, true, true)
				break
			}
			// shrink the sampling radius and resample
			radius *= theta
			if s.DoneSpecificTest(st, true, false) {
				break
			}
			continue
		}

		// perturbed Armijo target: φ(t) <= f_c − t·β·ĝᵀWĝ
		decrease := beta * mat.Dot(ghat, d) * -1

		// small centered random perturbation of the direction
		for i := 0; i < n; i++ {
			perturb.SetVec(i, perturbC*dnorm*(2*rng.Float64()-1))
		}
		step.AddVec(d, perturb)

		t := 1.0
		accepted := false
		x.AddScaledVec(st.X, t, step)
		f := fn.Eval(x, g, nil)

		if isFinite(f) && f < st.F-t*decrease {
			// doubling phase
			accepted = true
			for iter := 0; iter < lsMax; iter++ {
				tn := t / gamma
				x.AddScaledVec(st.X, tn, step)
				fnx := fn.Eval(x, g, nil)
				if !isFinite(fnx) || fnx >= st.F-tn*decrease {
					break
				}
				t, f = tn, fnx
			}
		} else {
			// bisection phase
			for iter := 0; iter < lsMax; iter++ {
				t *= gamma
				x.AddScaledVec(st.X, t, step)
				f = fn.Eval(x, g, nil)
				if isFinite(f) && f < st.F-t*decrease {
					accepted = true
					break
				}
			}
		}

		if accepted {
			x.AddScaledVec(st.X, t, step)
			f = fn.Eval(x, g, nil)
			st.SetCurrent(x, g, f)
			w.observe(t)
		} else {
			// no admissible step at this radius: sharpen the sampling
			radius *= theta
		}

		converged := radius <= epsilon && dnorm < epsilon
		if s.DoneSpecificTest(st, true, converged) {
			break
		}
	}

	st.MoveToBest()
	return s.Finish(st), nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func init() {
	solver.MustRegister("gs", "gradient sampling", NewGS(false, false))
	solver.MustRegister("gs-lbfgs", "gradient sampling with LBFGS preconditioner", NewGS(false, true))
	solver.MustRegister("ags", "adaptive gradient sampling", NewGS(true, false))
	solver.MustRegister("ags-lbfgs", "adaptive gradient sampling with LBFGS preconditioner", NewGS(true, true))
}
