package bundle

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/params"
)

// CSearchStatus is the outcome of one curve search.
type CSearchStatus uint8

const (
	// CSearchFailed: no admissible trial point was produced.
	CSearchFailed CSearchStatus = iota

	// CSearchMaxIters: the evaluation budget ran out mid-search.
	CSearchMaxIters

	// CSearchConverged: the smeared stopping criterion fired.
	CSearchConverged

	// CSearchNullStep: append the new cut, keep the center.
	CSearchNullStep

	// CSearchDescentStep: move the center with sufficient decrease and
	// curvature.
	CSearchDescentStep

	// CSearchCuttingPlaneStep: move the center on decrease alone.
	CSearchCuttingPlaneStep
)

// Point is the result of one curve search: the trial step, its status and
// the aggregate model quantities needed by the metric updates.
type Point struct {
	T      float64
	Status CSearchStatus

	Y  *mat.VecDense
	Gy *mat.VecDense
	Fy float64

	// Ghat and Fhat are the aggregate subgradient and the model value at Y.
	Ghat *mat.VecDense
	Fhat float64
}

// CSearch runs the bundle curve search along the proximal direction:
// interpolate inside the (tL, tR) bracket with fraction 0.3, extrapolate by
// factor 5, and classify the final trial as a descent, cutting-plane or
// null step using the thresholds m1 < m2 (and the m3 = m4 = 1 margins).
type CSearch struct {
	fn function.Function

	m1       float64
	m2       float64
	m3       float64
	interpol float64
	extrapol float64
	maxIters int
}

// ConfigCSearch registers the curve-search parameters on a solver set.
func ConfigCSearch(set *params.Set) {
	set.MustRegister(params.MustFloat("solver::bundle::csearch::m1", 0, params.LT, 0.5, params.LE, 0.5))
	set.MustRegister(params.MustFloat("solver::bundle::csearch::m2", 0, params.LT, 0.9, params.LT, 1))
	set.MustRegister(params.MustFloat("solver::bundle::csearch::m3", 0, params.LT, 1, params.LE, 1))
	set.MustRegister(params.MustFloat("solver::bundle::csearch::interpol", 0, params.LT, 0.3, params.LT, 1))
	set.MustRegister(params.MustFloat("solver::bundle::csearch::extrapol", 1, params.LT, 5, params.LT, 100))
	set.MustRegister(params.MustInteger("solver::bundle::csearch::max_iters", 1, params.LE, 50, params.LE, 1000))
}

// NewCSearch builds a curve search from the registered parameters.
func NewCSearch(fn function.Function, set *params.Set) *CSearch {
	return &CSearch{
		fn:       fn,
		m1:       set.Float("solver::bundle::csearch::m1"),
		m2:       set.Float("solver::bundle::csearch::m2"),
		m3:       set.Float("solver::bundle::csearch::m3"),
		interpol: set.Float("solver::bundle::csearch::interpol"),
		extrapol: set.Float("solver::bundle::csearch::extrapol"),
		maxIters: int(set.Int("solver::bundle::csearch::max_iters")),
	}
}

// Search solves the proximal subproblem for the metric and walks the curve
// t ↦ x_c − t·D until a step classifies.
func (c *CSearch) Search(b *Bundle, w Metric, epsilon float64, evalsLeft int64) *Point {
	n := b.xc.Len()
	point := &Point{
		Y:  mat.NewVecDense(n, nil),
		Gy: mat.NewVecDense(n, nil),
	}

	tr, err := b.Solve(w)
	if err != nil {
		point.Status = CSearchFailed
		return point
	}
	point.Ghat = tr.Ghat

	if tr.Converged(epsilon, n) {
		point.Status = CSearchConverged
		return point
	}
	if tr.Delta <= 0 || !isFinite(tr.Delta) {
		point.Status = CSearchFailed
		return point
	}

	// slope of the model along the step, used by the curvature test
	slope := -mat.Dot(tr.Ghat, tr.D)

	tL, tR := 0.0, math.Inf(1)
	t := 1.0

	var yL *mat.VecDense
	var gyL *mat.VecDense
	var fyL float64

	for iter := 0; iter < c.maxIters && int64(2*iter) < evalsLeft; iter++ {
		point.Y.AddScaledVec(b.xc, -t, tr.D)
		point.Fy = c.fn.Eval(point.Y, point.Gy, nil)
		point.T = t

		if !isFinite(point.Fy) {
			point.Status = CSearchFailed
			return point
		}

		if point.Fy <= b.fc-c.m1*t*tr.Delta {
			// sufficient decrease: candidate center
			tL = t
			if yL == nil {
				yL = mat.NewVecDense(n, nil)
				gyL = mat.NewVecDense(n, nil)
			}
			yL.CopyVec(point.Y)
			gyL.CopyVec(point.Gy)
			fyL = point.Fy

			// curvature along the curve
			if mat.Dot(point.Gy, tr.D)*(-1) >= c.m2*slope {
				point.Status = CSearchDescentStep
				point.Fhat = b.Model(point.Y)
				return point
			}
			if math.IsInf(tR, 1) {
				t *= c.extrapol
				continue
			}
		} else {
			tR = t
		}

		if !math.IsInf(tR, 1) {
			t = (1-c.interpol)*tL + c.interpol*tR
			if tR-tL < 1e-12 {
				break
			}
		}
	}

	if yL != nil {
		// decrease without curvature: accept as a cutting-plane step when
		// the value stays within the m3 margin of the model prediction
		point.Y.CopyVec(yL)
		point.Gy.CopyVec(gyL)
		point.Fy = fyL
		point.T = tL
		point.Fhat = b.Model(point.Y)
		if point.Fy <= b.fc-c.m3*c.m1*tL*tr.Delta {
			point.Status = CSearchCuttingPlaneStep
		} else {
			point.Status = CSearchDescentStep
		}
		return point
	}

	// no decrease anywhere: the last trial enriches the model
	point.Fhat = b.Model(point.Y)
	point.Status = CSearchNullStep
	return point
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
