package bundle

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/params"
	"github.com/optkit/optkit/solver"
)

// ProximalStrategy selects the auxiliary τ update.
type ProximalStrategy uint8

const (
	// PBM1 scales τ by the value-ratio rule.
	PBM1 ProximalStrategy = iota

	// PBM2 scales τ by the curvature-ratio rule.
	PBM2
)

// Proximal manages the scalar proximity parameter τ (μ = 1/τ) with the
// PBM-1/PBM-2 schedules of Rey and Sagastizabal.
type Proximal struct {
	tau      float64
	tauMin   float64
	alpha    float64
	strategy ProximalStrategy

	descentStreak int
}

// ConfigProximal registers the proximity parameters on a solver set.
func ConfigProximal(set *params.Set) {
	set.MustRegister(params.MustFloat("solver::bundle::prox::tau_min", 0, params.LT, 1e-5, params.LT, 1e9))
	set.MustRegister(params.MustFloat("solver::bundle::prox::alpha", 1, params.LT, 2, params.LT, 1e3))
	set.MustRegister(params.MustEnum("solver::bundle::prox::strategy", "pbm1",
		params.EnumValue{Name: "pbm1", Value: 0},
		params.EnumValue{Name: "pbm2", Value: 1}))
}

// NewProximal seeds τ₀ = max(1, |f(x₀)|)/(5‖g(x₀)‖²) from the initial state.
func NewProximal(st *solver.State, set *params.Set) *Proximal {
	tauMin := set.Float("solver::bundle::prox::tau_min")

	g2 := mat.Dot(st.G, st.G)
	tau0 := math.Max(1, math.Abs(st.F)) / (5 * g2)
	if !isFinite(tau0) {
		tau0 = tauMin
	}

	strategy := PBM1
	if set.Enum("solver::bundle::prox::strategy") == "pbm2" {
		strategy = PBM2
	}
	return &Proximal{
		tau:      math.Max(tau0, tauMin),
		tauMin:   tauMin,
		alpha:    set.Float("solver::bundle::prox::alpha"),
		strategy: strategy,
	}
}

// Tau returns the current proximity parameter.
func (p *Proximal) Tau() float64 { return p.tau }

// Metric returns the scaled-identity inverse metric W = τ·I.
func (p *Proximal) Metric() Metric { return scaledIdentity{tau: p.tau} }

// Update folds one curve-search outcome into τ.
func (p *Proximal) Update(b *Bundle, point *Point) {
	// scale by the curve-search factor first
	if point.T > 0 {
		p.tau *= point.T
	}

	descent := point.Status == CSearchDescentStep || point.Status == CSearchCuttingPlaneStep
	if descent {
		p.descentStreak++
	} else {
		p.descentStreak = 0
	}

	var tauAux float64
	if p.strategy == PBM1 {
		mul := (b.fc - point.Fy) / (b.fc - point.Fhat)
		if !isFinite(mul) {
			mul = 0
		}
		tauAux = 2 * p.tau * (1 + mul)
	} else {
		n := b.xc.Len()
		dx := mat.NewVecDense(n, nil)
		dx.SubVec(point.Y, b.xc)
		dg := mat.NewVecDense(n, nil)
		dg.SubVec(point.Gy, b.gc)
		mul := mat.Dot(dg, dx) / mat.Dot(dg, dg)
		if !isFinite(mul) {
			mul = 0
		}
		tauAux = p.tau * (1 + mul)
	}

	switch {
	case !descent:
		p.tau = math.Min(p.tau, math.Max(tauAux, math.Max(p.tau/p.alpha, p.tauMin)))
	case p.descentStreak >= 5:
		p.tau = math.Min(p.alpha*tauAux, 10*p.tau)
	default:
		p.tau = math.Min(tauAux, 10*p.tau)
	}
	p.tau = math.Max(p.tau, p.tauMin)
}
