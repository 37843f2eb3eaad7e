package function

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Penalty is implemented by the unconstrained transforms of a constrained
// function. The penalty coefficient rho is adjusted by the outer solver
// between inner minimizations.
type Penalty interface {
	Function

	// SetRho sets the penalty coefficient rho > 0.
	SetRho(rho float64)

	// Rho returns the current penalty coefficient.
	Rho() float64

	// Wrapped returns the constrained function being transformed.
	Wrapped() Function
}

func constraintsSmooth(fn Function) bool {
	if !fn.Smooth() {
		return false
	}
	for _, c := range fn.Constraints() {
		if !c.Smooth() {
			return false
		}
	}
	return true
}

// LinearPenalty is F(x; ρ) = f(x) + ρ·Σ |violation_i(x)|. The transform is
// exact but always non-smooth.
type LinearPenalty struct {
	*Base
	fn  Function
	rho float64
}

// NewLinearPenalty wraps fn into its linear penalty transform.
func NewLinearPenalty(fn Function) *LinearPenalty {
	return &LinearPenalty{
		Base: NewBase("linear-penalty/"+fn.Name(), fn.Size()),
		fn:   fn,
		rho:  1,
	}
}

// SetRho sets the penalty coefficient.
func (p *LinearPenalty) SetRho(rho float64) { p.rho = rho }

// Rho returns the penalty coefficient.
func (p *LinearPenalty) Rho() float64 { return p.rho }

// Wrapped returns the constrained function.
func (p *LinearPenalty) Wrapped() Function { return p.fn }

// Eval evaluates f plus the linear penalty of every active violation.
// Equality violations contribute symmetrically through their sign.
func (p *LinearPenalty) Eval(x *mat.VecDense, gx *mat.VecDense, hx *mat.Dense) float64 {
	p.Tally(gx != nil)

	fx := p.fn.Eval(x, gx, nil)
	for _, c := range p.fn.Constraints() {
		for _, t := range terms(c, x, gx != nil) {
			switch {
			case t.equality && t.value != 0:
				s := 1.0
				if t.value < 0 {
					s = -1.0
				}
				fx += p.rho * s * t.value
				if gx != nil {
					gx.AddScaledVec(gx, p.rho*s, t.grad)
				}
			case !t.equality && t.value > 0:
				fx += p.rho * t.value
				if gx != nil {
					gx.AddScaledVec(gx, p.rho, t.grad)
				}
			}
		}
	}
	return fx
}

// QuadraticPenalty is F(x; ρ) = f(x) + ρ·Σ violation_i(x)². The transform
// is smooth iff the wrapped function and its constraints are smooth, but it
// is exact only in the limit ρ → ∞.
type QuadraticPenalty struct {
	*Base
	fn  Function
	rho float64
}

// NewQuadraticPenalty wraps fn into its quadratic penalty transform.
func NewQuadraticPenalty(fn Function) *QuadraticPenalty {
	return &QuadraticPenalty{
		Base: NewBase("quadratic-penalty/"+fn.Name(), fn.Size(), WithSmooth(constraintsSmooth(fn))),
		fn:   fn,
		rho:  1,
	}
}

// SetRho sets the penalty coefficient.
func (p *QuadraticPenalty) SetRho(rho float64) { p.rho = rho }

// Rho returns the penalty coefficient.
func (p *QuadraticPenalty) Rho() float64 { return p.rho }

// Wrapped returns the constrained function.
func (p *QuadraticPenalty) Wrapped() Function { return p.fn }

// Eval evaluates f plus the squared penalty of every active violation.
func (p *QuadraticPenalty) Eval(x *mat.VecDense, gx *mat.VecDense, hx *mat.Dense) float64 {
	p.Tally(gx != nil)

	fx := p.fn.Eval(x, gx, nil)
	for _, c := range p.fn.Constraints() {
		for _, t := range terms(c, x, gx != nil) {
			active := t.value
			if !t.equality {
				active = math.Max(0, t.value)
			}
			if active == 0 {
				continue
			}
			fx += p.rho * active * active
			if gx != nil {
				gx.AddScaledVec(gx, 2*p.rho*active, t.grad)
			}
		}
	}
	return fx
}

// AugmentedLagrangian is
//
//	F(x; ρ, λ) = f(x) + Σ_eq [λ_i·c_i + ρ·c_i²]
//	           + Σ_ineq [ρ·max(0, c_i + λ_i/(2ρ))² − λ_i²/(4ρ)]
//
// with first-order multiplier updates λ ← λ + 2ρ·c(x) (clipped at zero for
// inequalities) after each inner minimization.
type AugmentedLagrangian struct {
	*Base
	fn      Function
	rho     float64
	lambda  []float64
	counts  []int // terms per constraint, fixed at construction
	nlambda int
}

// NewAugmentedLagrangian wraps fn into its augmented-Lagrangian transform
// with zero-initialized multipliers.
func NewAugmentedLagrangian(fn Function) *AugmentedLagrangian {
	p := &AugmentedLagrangian{
		Base: NewBase("augmented-lagrangian/"+fn.Name(), fn.Size(), WithSmooth(constraintsSmooth(fn))),
		fn:   fn,
		rho:  1,
	}
	probe := mat.NewVecDense(fn.Size(), nil)
	for _, c := range fn.Constraints() {
		n := len(terms(c, probe, false))
		p.counts = append(p.counts, n)
		p.nlambda += n
	}
	p.lambda = make([]float64, p.nlambda)
	return p
}

// SetRho sets the penalty coefficient.
func (p *AugmentedLagrangian) SetRho(rho float64) { p.rho = rho }

// Rho returns the penalty coefficient.
func (p *AugmentedLagrangian) Rho() float64 { return p.rho }

// Wrapped returns the constrained function.
func (p *AugmentedLagrangian) Wrapped() Function { return p.fn }

// Multipliers returns the current Lagrange multiplier estimates, one per
// scalar constraint component in constraint order.
func (p *AugmentedLagrangian) Multipliers() []float64 { return p.lambda }

// Eval evaluates the augmented Lagrangian.
func (p *AugmentedLagrangian) Eval(x *mat.VecDense, gx *mat.VecDense, hx *mat.Dense) float64 {
	p.Tally(gx != nil)

	fx := p.fn.Eval(x, gx, nil)
	k := 0
	for _, c := range p.fn.Constraints() {
		for _, t := range terms(c, x, gx != nil) {
			lam := p.lambda[k]
			k++
			if t.equality {
				fx += lam*t.value + p.rho*t.value*t.value
				if gx != nil {
					gx.AddScaledVec(gx, lam+2*p.rho*t.value, t.grad)
				}
			} else {
				shifted := t.value + lam/(2*p.rho)
				if shifted > 0 {
					fx += p.rho*shifted*shifted - lam*lam/(4*p.rho)
					if gx != nil {
						gx.AddScaledVec(gx, 2*p.rho*shifted, t.grad)
					}
				} else {
					fx -= lam * lam / (4 * p.rho)
				}
			}
		}
	}
	return fx
}

// UpdateMultipliers performs the first-order update λ ← λ + 2ρ·c(x),
// clipping inequality multipliers at zero.
func (p *AugmentedLagrangian) UpdateMultipliers(x *mat.VecDense) {
	k := 0
	for _, c := range p.fn.Constraints() {
		for _, t := range terms(c, x, false) {
			if t.equality {
				p.lambda[k] += 2 * p.rho * t.value
			} else {
				p.lambda[k] = math.Max(0, p.lambda[k]+2*p.rho*t.value)
			}
			k++
		}
	}
}
