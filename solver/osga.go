package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
)

// OSGA is the optimal subgradient algorithm of Ahookhosh and Neumaier: it
// maintains a linear lower bound γ + hᵀz aggregated from subgradients, the
// prox function Q(z) = Q0 + ½‖z−z0‖², and the error bound
//
//	η(γ, h) = −min_z (γ + hᵀz − f_b)/Q(z)
//
// which over-estimates the optimality gap f_b − f★. The step size α is
// driven by the parameter update scheme with factors δ, α_max, κ, κ'.
type OSGA struct {
	Base
}

// NewOSGA returns the "osga" solver with the reference parameters
// δ = 0.9, α_max = 0.7, κ = κ' = 0.5.
func NewOSGA() *OSGA {
	s := &OSGA{Base: NewBase("osga")}
	s.Params().MustRegister(params.MustFloat("solver::osga::delta", 0, params.LT, 0.9, params.LT, 1))
	s.Params().MustRegister(params.MustFloat("solver::osga::alpha_max", 0, params.LT, 0.7, params.LT, 1))
	s.Params().MustRegister(params.MustFloat("solver::osga::kappa", 0, params.LT, 0.5, params.LE, 10))
	return s
}

// Clone returns a fresh solver with the same parameters.
func (s *OSGA) Clone() Solver { return &OSGA{Base: s.CloneBase()} }

// osgaBound solves the auxiliary problem for the prox Q(z) = q0 + ½‖z−z0‖²:
// it returns η = E(γ, h) and the minimizer u = z0 − h/η.
func osgaBound(gammaBar float64, h *mat.VecDense, q0 float64, z0 *mat.VecDense, u *mat.VecDense) float64 {
	// E solves E·Q(u) = −(γ̄ + hᵀu) with u = z0 − h/E:
	// 2·q0·E² + 2·(γ̄ + hᵀz0)·E − ‖h‖² = 0
	beta := gammaBar + mat.Dot(h, z0)
	hh := mat.Dot(h, h)
	eta := (-beta + math.Sqrt(beta*beta+2*q0*hh)) / (2 * q0)
	if eta <= 0 || !isFinite(eta) {
		eta = math.Max(eta, machineEpsilon)
		u.CopyVec(z0)
		return eta
	}
	u.AddScaledVec(z0, -1/eta, h)
	return eta
}

// Minimize runs the OSGA iteration from x0.
func (s *OSGA) Minimize(fn function.Function, x0 *mat.VecDense) (*State, error) {
	st, err := NewState(fn, x0)
	if err != nil {
		return nil, err
	}
	if fn.Constrained() {
		return s.Incompatible(st), nil
	}

	delta := s.Params().Float("solver::osga::delta")
	alphaMax := s.Params().Float("solver::osga::alpha_max")
	kappa := s.Params().Float("solver::osga::kappa")
	epsilon := s.Epsilon()

	n := fn.Size()
	q0 := 1.0
	z0 := mat.VecDenseCopyOf(x0)

	// initial lower bound from the first subgradient
	h := mat.VecDenseCopyOf(st.G)
	gamma := st.F - mat.Dot(st.G, st.X)

	u := mat.NewVecDense(n, nil)
	x := mat.NewVecDense(n, nil)
	g := mat.NewVecDense(n, nil)
	hNew := mat.NewVecDense(n, nil)
	uNew := mat.NewVecDense(n, nil)

	alpha := alphaMax
	eta := osgaBound(gamma-st.BestF, h, q0, z0, u)

	for {
		st.Iters++

		// trial point between the best point and the bound minimizer
		x.AddScaledVec(st.BestX, alpha, u)
		x.AddScaledVec(x, -alpha, st.BestX)

		f := fn.Eval(x, g, nil)
		if !isFinite(f) {
			s.DoneSpecificTest(st, false, false)
			break
		}
		st.SetCurrent(x, g, f)

		// aggregate the new affine lower bound f(z) >= f + gᵀ(z−x)
		hNew.AddScaledVec(h, alpha, g)
		hNew.AddScaledVec(hNew, -alpha, h)
		gammaNew := gamma + alpha*((f-mat.Dot(g, x))-gamma)

		etaNew := osgaBound(gammaNew-st.BestF, hNew, q0, z0, uNew)

		// parameter update scheme
		ratio := (eta - etaNew) / (delta * alpha * eta)
		if ratio < 1 {
			alpha *= math.Exp(-kappa)
		} else {
			alpha = math.Min(alpha*math.Exp(kappa*(ratio-1)), alphaMax)
		}
		if alpha < machineEpsilon {
			alpha = machineEpsilon
		}

		h.CopyVec(hNew)
		gamma = gammaNew
		u.CopyVec(uNew)
		eta = etaNew

		// η bounds the optimality gap of the best point
		converged := eta < epsilon*math.Max(1, math.Abs(st.BestF))
		if s.DoneSpecificTest(st, true, converged) {
			break
		}
	}

	st.MoveToBest()
	return s.Finish(st), nil
}
