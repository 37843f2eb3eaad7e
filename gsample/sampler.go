package gsample

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/optkit/optkit/function"
	"github.com/optkit/optkit/ipm"
	"github.com/optkit/optkit/solver"
)

// sampler accumulates sample points and their gradients and produces the
// aggregate descent direction through the simplex QP.
type sampler struct {
	xs []*mat.VecDense // sample points
	gs []*mat.VecDense // sample gradients

	adaptive bool
	normal   distuv.Normal
	uniform  *rand.Rand
	qpOpts   ipm.Options
}

func newSampler(adaptive bool, rng *rand.Rand) *sampler {
	opts := ipm.DefaultOptions()
	opts.Epsilon = 1e-10
	return &sampler{
		adaptive: adaptive,
		normal:   distuv.Normal{Mu: 0, Sigma: 1, Src: rng},
		uniform:  rng,
		qpOpts:   opts,
	}
}

// sampleBall draws a point uniformly from the ball of radius epsilon
// around center, through the normalized-Gaussian construction.
func (s *sampler) sampleBall(center *mat.VecDense, epsilon float64, dst *mat.VecDense) {
	n := center.Len()
	norm := 0.0
	for i := 0; i < n; i++ {
		v := s.normal.Rand()
		dst.SetVec(i, v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		dst.CopyVec(center)
		return
	}
	radius := epsilon * math.Pow(s.uniform.Float64(), 1/float64(n))
	dst.ScaleVec(radius/norm, dst)
	dst.AddVec(dst, center)
}

// sample refreshes the sample set around the state's iterate. The fixed
// sampler redraws 2n points plus the center; the adaptive sampler keeps
// in-ball points (evicting the oldest beyond the cap) and draws
// max(n/10, 1) fresh ones.
func (s *sampler) sample(fn function.Function, st *solver.State, epsilon float64) {
	n := fn.Size()
	psize := 2*n + 1

	if !s.adaptive {
		s.xs = s.xs[:0]
		s.gs = s.gs[:0]
		for i := 0; i < psize-1; i++ {
			x := mat.NewVecDense(n, nil)
			s.sampleBall(st.X, epsilon, x)
			g := mat.NewVecDense(n, nil)
			fn.Eval(x, g, nil)
			s.xs = append(s.xs, x)
			s.gs = append(s.gs, g)
		}
		s.xs = append(s.xs, mat.VecDenseCopyOf(st.X))
		s.gs = append(s.gs, mat.VecDenseCopyOf(st.G))
		return
	}

	phat := max(n/10, 1)

	// keep previously drawn points still inside the current ball
	kept := 0
	diff := mat.NewVecDense(n, nil)
	for i := range s.xs {
		diff.SubVec(st.X, s.xs[i])
		if mat.Norm(diff, 2) <= epsilon {
			s.xs[kept] = s.xs[i]
			s.gs[kept] = s.gs[i]
			kept++
		}
	}
	s.xs = s.xs[:kept]
	s.gs = s.gs[:kept]

	// oldest-first eviction keeps room for the center and the fresh draws
	if drop := kept + 1 + phat - psize; drop > 0 {
		s.xs = s.xs[drop:]
		s.gs = s.gs[drop:]
	}

	s.xs = append(s.xs, mat.VecDenseCopyOf(st.X))
	s.gs = append(s.gs, mat.VecDenseCopyOf(st.G))

	for i := 0; i < phat; i++ {
		x := mat.NewVecDense(n, nil)
		s.sampleBall(st.X, epsilon, x)
		g := mat.NewVecDense(n, nil)
		fn.Eval(x, g, nil)
		s.xs = append(s.xs, x)
		s.gs = append(s.gs, g)
	}
}

// descent solves min_w ½·wᵀ(GWGᵀ)w over the simplex and returns the
// aggregate gradient ĝ = Gᵀw and the direction d = −W·ĝ.
func (s *sampler) descent(w precond) (*mat.VecDense, *mat.VecDense, bool) {
	k := len(s.gs)
	if k == 0 {
		return nil, nil, false
	}
	n := s.gs[0].Len()

	wg := make([]*mat.VecDense, k)
	for j := 0; j < k; j++ {
		wg[j] = mat.NewVecDense(n, nil)
		w.apply(wg[j], s.gs[j])
	}

	q := make([]float64, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			q[i*k+j] = mat.Dot(s.gs[i], wg[j])
		}
	}
	ones := make([]float64, k)
	for i := range ones {
		ones[i] = 1
	}

	program := ipm.NewQuadraticProgram(k, q, make([]float64, k)).
		WithEquality(1, ones, []float64{1}).
		WithLower(0)

	x0 := mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		x0.SetVec(i, 1/float64(k))
	}
	sol := ipm.Solve(program, x0, s.qpOpts)
	if sol.Status != solver.Converged && sol.Status != solver.MaxIters {
		return nil, nil, false
	}

	ghat := mat.NewVecDense(n, nil)
	for i := 0; i < k; i++ {
		ghat.AddScaledVec(ghat, math.Max(0, sol.X.AtVec(i)), s.gs[i])
	}
	d := mat.NewVecDense(n, nil)
	w.apply(d, ghat)
	d.ScaleVec(-1, d)
	return ghat, d, true
}
