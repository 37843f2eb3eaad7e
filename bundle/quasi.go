package bundle

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/params"
	"github.com/optkit/optkit/solver"
)

// QuasiType selects the quasi-Newton metric update.
type QuasiType uint8

const (
	// QuasiSR1 is the symmetric-rank-one matrix update.
	QuasiSR1 QuasiType = iota

	// QuasiMiu is the scaled-identity update picking the minimum of four
	// candidate scalars.
	QuasiMiu
)

// Quasi maintains the proximity metric M of the reversal quasi-Newton
// bundle method, following the variable-metric updates of Lemarechal and
// Sagastizabal.
type Quasi struct {
	m  *mat.Dense
	lu *mat.LU

	xn, xn1 *mat.VecDense // consecutive centers
	gn, gn1 *mat.VecDense // their subgradients
	an, an1 *mat.VecDense // their aggregate subgradients

	typ QuasiType
	r   float64
}

// ConfigQuasi registers the quasi-Newton metric parameters on a solver set.
func ConfigQuasi(set *params.Set) {
	set.MustRegister(params.MustEnum("solver::bundle::quasi::type", "sr1",
		params.EnumValue{Name: "sr1", Value: 0},
		params.EnumValue{Name: "miu", Value: 1}))
	set.MustRegister(params.MustFloat("solver::bundle::quasi::r", 0, params.LT, 1e-8, params.LT, 1))
	set.MustRegister(params.MustFloat("solver::bundle::quasi::tau_min", 0, params.LT, 1e-5, params.LT, 1e9))
}

// NewQuasi seeds M = (1/τ₀)·I from the initial state.
func NewQuasi(st *solver.State, set *params.Set) *Quasi {
	n := st.X.Len()

	tauMin := set.Float("solver::bundle::quasi::tau_min")
	g2 := mat.Dot(st.G, st.G)
	tau0 := math.Max(1, math.Abs(st.F)) / (5 * g2)
	if !isFinite(tau0) || tau0 < tauMin {
		tau0 = tauMin
	}

	q := &Quasi{
		m:   mat.NewDense(n, n, nil),
		xn:  mat.VecDenseCopyOf(st.X),
		xn1: mat.VecDenseCopyOf(st.X),
		gn:  mat.VecDenseCopyOf(st.G),
		gn1: mat.VecDenseCopyOf(st.G),
		an:  mat.VecDenseCopyOf(st.G),
		an1: mat.VecDenseCopyOf(st.G),
		r:   set.Float("solver::bundle::quasi::r"),
	}
	if set.Enum("solver::bundle::quasi::type") == "miu" {
		q.typ = QuasiMiu
	}
	for i := 0; i < n; i++ {
		q.m.Set(i, i, 1/tau0)
	}
	q.refactor()
	return q
}

// Metric returns the inverse-metric view W = M⁻¹.
func (q *Quasi) Metric() Metric { return matrixMetric{lu: q.lu} }

// Update shifts the center history and, on a descent step, folds the new
// (center, subgradient, aggregate) triple into M.
func (q *Quasi) Update(x, g, aggregate *mat.VecDense, descent bool) {
	q.xn.CopyVec(q.xn1)
	q.gn.CopyVec(q.gn1)
	q.an.CopyVec(q.an1)

	q.xn1.CopyVec(x)
	q.gn1.CopyVec(g)
	if aggregate != nil {
		q.an1.CopyVec(aggregate)
	}

	if !descent {
		return
	}
	if q.typ == QuasiMiu {
		q.updateMiu()
	} else {
		q.updateSR1()
	}
	q.refactor()
}

// updateSR1 applies M ← M − (Me)(Me)ᵀ/eᵀ(Me+v) with the safeguard
// |eᵀ(Me+v)| >= r·‖e‖·‖Me+v‖.
func (q *Quasi) updateSR1() {
	n := q.xn.Len()

	e := mat.NewVecDense(n, nil)
	e.SubVec(q.xn1, q.xn)
	v := mat.NewVecDense(n, nil)
	v.SubVec(q.gn1, q.gn)

	me := mat.NewVecDense(n, nil)
	me.MulVec(q.m, e)

	mev := mat.NewVecDense(n, nil)
	mev.AddVec(me, v)

	den := mat.Dot(e, mev)
	if math.Abs(den) < q.r*mat.Norm(e, 2)*mat.Norm(mev, 2) {
		return
	}

	outer := mat.NewDense(n, n, nil)
	outer.Outer(1/den, me, me)
	q.m.Sub(q.m, outer)
}

// updateMiu selects the scaled-identity factor as the minimum finite value
// of the four candidate secant formulas.
func (q *Quasi) updateMiu() {
	n := q.xn.Len()

	e := mat.NewVecDense(n, nil)
	e.SubVec(q.xn1, q.xn)

	v1 := mat.NewVecDense(n, nil)
	v1.SubVec(q.an1, q.an)
	v2 := mat.NewVecDense(n, nil)
	v2.SubVec(q.an1, q.gn)
	v3 := mat.NewVecDense(n, nil)
	v3.SubVec(q.gn1, q.an)
	v4 := mat.NewVecDense(n, nil)
	v4.SubVec(q.gn1, q.gn)

	miuPrev := q.m.At(0, 0)
	candidate := func(num, den *mat.VecDense) float64 {
		miu := 1 / (mat.Dot(num, e)/mat.Dot(v1, den) + 1/miuPrev)
		if !isFinite(miu) || miu <= 0 {
			return math.MaxFloat64
		}
		return miu
	}

	miu := math.Min(
		math.Min(candidate(v1, v1), candidate(v2, v2)),
		math.Min(candidate(v3, v3), candidate(v4, v4)))
	if miu == math.MaxFloat64 {
		return
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				q.m.Set(i, j, miu)
			} else {
				q.m.Set(i, j, 0)
			}
		}
	}
}

func (q *Quasi) refactor() {
	q.lu = &mat.LU{}
	q.lu.Factorize(q.m)
}
