package ipm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/optkit/optkit/solver"
)

// State is the primal-dual iterate returned by Solve.
type State struct {
	// X is the primal solution.
	X *mat.VecDense

	// U and V are the Lagrange multipliers of the inequality and equality
	// blocks.
	U *mat.VecDense
	V *mat.VecDense

	// F is the objective value at X.
	F float64

	// Eta is the surrogate duality gap −(Gx−h)ᵀu.
	Eta float64

	// RDual, RCent, RPrim are the residual norms at return.
	RDual float64
	RCent float64
	RPrim float64

	// KKT is the worst violation over the five KKT optimality tests.
	KKT float64

	// RCond is the reciprocal condition estimate of the last KKT system.
	RCond float64

	// Iters counts barrier iterations.
	Iters int

	// Status is the terminal condition.
	Status solver.Status
}

// Options carries the interior-point tunables.
type Options struct {
	// Epsilon is the optimality tolerance on the surrogate gap.
	Epsilon float64

	// EpsilonFeas is the feasibility tolerance on the residuals.
	EpsilonFeas float64

	// Miu is the barrier schedule factor: t = Miu·m/η.
	Miu float64

	// Alpha is the residual-decrease fraction of the backtracking search.
	Alpha float64

	// Beta is the backtracking shrink factor.
	Beta float64

	// MaxIters bounds the barrier iterations.
	MaxIters int
}

// DefaultOptions mirrors the reference parameters: μ = 10, α = 0.01,
// β = 0.5, ε = 1e-8, 100 iterations.
func DefaultOptions() Options {
	return Options{
		Epsilon:     1e-8,
		EpsilonFeas: 1e-10,
		Miu:         10,
		Alpha:       0.01,
		Beta:        0.5,
		MaxIters:    100,
	}
}

const rcondFloor = 1e-12

// Solve runs the primal-dual interior-point method on the program. The
// optional x0 seeds the strictly feasible initialization; pass nil to let
// the solver construct one.
func Solve(p *Program, x0 *mat.VecDense, opts Options) *State {
	st := &State{Status: solver.Failed}
	if err := p.Validate(); err != nil {
		return st
	}
	p.Reduce()

	n, meq, mineq := p.Dims()
	st.X = mat.NewVecDense(n, nil)
	if mineq > 0 {
		st.U = mat.NewVecDense(mineq, nil)
	}
	if meq > 0 {
		st.V = mat.NewVecDense(meq, nil)
	}

	if mineq == 0 {
		solveKKTDirect(p, st)
		return st
	}

	// strictly feasible start
	x := findStrictlyFeasible(p, x0)
	if x == nil {
		st.Status = solver.Unfeasible
		return st
	}
	st.X.CopyVec(x)
	for i := 0; i < mineq; i++ {
		st.U.SetVec(i, 1/float64(mineq))
	}

	rdual := mat.NewVecDense(n, nil)
	rcent := mat.NewVecDense(mineq, nil)
	var rprim *mat.VecDense
	if meq > 0 {
		rprim = mat.NewVecDense(meq, nil)
	}

	gxh := mat.NewVecDense(mineq, nil) // Gx − h
	badRCond := 0

	for st.Iters = 1; st.Iters <= opts.MaxIters; st.Iters++ {
		residualGxh(p, st.X, gxh)
		st.Eta = -mat.Dot(gxh, st.U)
		t := opts.Miu * float64(mineq) / math.Max(st.Eta, 1e-300)

		assembleResiduals(p, st, gxh, t, rdual, rcent, rprim)

		st.RDual = mat.Norm(rdual, 2)
		st.RCent = mat.Norm(rcent, 2)
		st.RPrim = 0
		if rprim != nil {
			st.RPrim = mat.Norm(rprim, 2)
		}

		if st.RPrim < opts.EpsilonFeas && st.RDual < opts.EpsilonFeas && st.Eta < opts.Epsilon {
			st.Status = solver.Converged
			break
		}
		if st.F = p.Value(st.X); st.F < -1e18 {
			st.Status = solver.Unbounded
			break
		}

		dx, du, dv, rcond := solveKKTStep(p, st, gxh, rdual, rcent, rprim)
		st.RCond = rcond
		if dx == nil || rcond < rcondFloor {
			badRCond++
			if dx == nil || badRCond >= 3 {
				st.Status = solver.Failed
				break
			}
		} else {
			badRCond = 0
		}

		if !lineSearch(p, st, gxh, dx, du, dv, opts) {
			// no admissible step: feasibility stalled
			if st.RPrim > opts.EpsilonFeas {
				st.Status = solver.Unfeasible
			} else {
				st.Status = solver.Failed
			}
			break
		}

		if st.Iters == opts.MaxIters {
			st.Status = solver.MaxIters
		}
	}

	st.F = p.Value(st.X)
	st.KKT = kktViolation(p, st)
	return st
}

// residualGxh fills dst with Gx − h.
func residualGxh(p *Program, x *mat.VecDense, dst *mat.VecDense) {
	dst.MulVec(p.G, x)
	dst.SubVec(dst, p.H)
}

// assembleResiduals fills the dual, central and primal residuals.
func assembleResiduals(p *Program, st *State, gxh *mat.VecDense, t float64,
	rdual, rcent, rprim *mat.VecDense) {
	n := st.X.Len()

	// r_dual = Qx + c + Aᵀv + Gᵀu
	rdual.CopyVec(p.C)
	if p.Q != nil {
		qx := mat.NewVecDense(n, nil)
		qx.MulVec(p.Q, st.X)
		rdual.AddVec(rdual, qx)
	}
	if p.A != nil {
		atv := mat.NewVecDense(n, nil)
		atv.MulVec(p.A.T(), st.V)
		rdual.AddVec(rdual, atv)
	}
	gtu := mat.NewVecDense(n, nil)
	gtu.MulVec(p.G.T(), st.U)
	rdual.AddVec(rdual, gtu)

	// r_cent = −diag(u)(Gx−h) − (1/t)·𝟙
	for i := 0; i < rcent.Len(); i++ {
		rcent.SetVec(i, -st.U.AtVec(i)*gxh.AtVec(i)-1/t)
	}

	// r_prim = Ax − b
	if rprim != nil {
		rprim.MulVec(p.A, st.X)
		rprim.SubVec(rprim, p.B)
	}
}

// solveKKTStep factors the augmented KKT system with a partial-pivot LU
// and returns the Newton direction, or nils when the factorization fails.
func solveKKTStep(p *Program, st *State, gxh *mat.VecDense,
	rdual, rcent, rprim *mat.VecDense) (*mat.VecDense, *mat.VecDense, *mat.VecDense, float64) {
	n, meq, mineq := p.Dims()
	dim := n + mineq + meq

	k := mat.NewDense(dim, dim, nil)
	rhs := mat.NewVecDense(dim, nil)

	// block row 1: Q Δx + Gᵀ Δu + Aᵀ Δv = −r_dual
	for i := 0; i < n; i++ {
		if p.Q != nil {
			for j := 0; j < n; j++ {
				k.Set(i, j, p.Q.At(i, j))
			}
		}
		for j := 0; j < mineq; j++ {
			k.Set(i, n+j, p.G.At(j, i))
		}
		for j := 0; j < meq; j++ {
			k.Set(i, n+mineq+j, p.A.At(j, i))
		}
		rhs.SetVec(i, -rdual.AtVec(i))
	}

	// block row 2: −diag(u)·G Δx − diag(Gx−h) Δu = −r_cent
	for i := 0; i < mineq; i++ {
		ui := st.U.AtVec(i)
		for j := 0; j < n; j++ {
			k.Set(n+i, j, -ui*p.G.At(i, j))
		}
		k.Set(n+i, n+i, -gxh.AtVec(i))
		rhs.SetVec(n+i, -rcent.AtVec(i))
	}

	// block row 3: A Δx = −r_prim
	for i := 0; i < meq; i++ {
		for j := 0; j < n; j++ {
			k.Set(n+mineq+i, j, p.A.At(i, j))
		}
		rhs.SetVec(n+mineq+i, -rprim.AtVec(i))
	}

	var lu mat.LU
	lu.Factorize(k)
	sol := mat.NewVecDense(dim, nil)
	if err := lu.SolveVecTo(sol, false, rhs); err != nil {
		return nil, nil, nil, 0
	}
	rcond := 1 / mat.Cond(k, 1)

	dx := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		dx.SetVec(i, sol.AtVec(i))
	}
	du := mat.NewVecDense(mineq, nil)
	for i := 0; i < mineq; i++ {
		du.SetVec(i, sol.AtVec(n+i))
	}
	var dv *mat.VecDense
	if meq > 0 {
		dv = mat.NewVecDense(meq, nil)
		for i := 0; i < meq; i++ {
			dv.SetVec(i, sol.AtVec(n+mineq+i))
		}
	}
	return dx, du, dv, rcond
}

// lineSearch first shrinks the step to keep u positive and x strictly
// interior, then backtracks until the residual norm decreases by the
// (1 − α·s) factor.
func lineSearch(p *Program, st *State, gxh *mat.VecDense,
	dx, du, dv *mat.VecDense, opts Options) bool {
	n, meq, mineq := p.Dims()

	// largest s with u + s·Δu >= 0
	s := 1.0
	for i := 0; i < mineq; i++ {
		if du.AtVec(i) < 0 {
			s = math.Min(s, -st.U.AtVec(i)/du.AtVec(i))
		}
	}
	s *= 0.99

	x := mat.NewVecDense(n, nil)
	u := mat.NewVecDense(mineq, nil)
	var v *mat.VecDense
	if meq > 0 {
		v = mat.NewVecDense(meq, nil)
	}
	trial := mat.NewVecDense(mineq, nil)

	// keep G(x+sΔx) < h strictly
	for iter := 0; iter < 64; iter++ {
		x.AddScaledVec(st.X, s, dx)
		residualGxh(p, x, trial)
		interior := true
		for i := 0; i < mineq; i++ {
			if trial.AtVec(i) >= 0 {
				interior = false
				break
			}
		}
		if interior {
			break
		}
		s *= opts.Beta
		if s < 1e-16 {
			return false
		}
	}

	norm0 := residualNorm(p, st.X, st.U, st.V, gxh, opts)

	for iter := 0; iter < 64; iter++ {
		x.AddScaledVec(st.X, s, dx)
		u.AddScaledVec(st.U, s, du)
		if v != nil {
			v.AddScaledVec(st.V, s, dv)
		}

		residualGxh(p, x, trial)
		if residualNorm(p, x, u, v, trial, opts) <= (1-opts.Alpha*s)*norm0 {
			st.X.CopyVec(x)
			st.U.CopyVec(u)
			if v != nil {
				st.V.CopyVec(v)
			}
			return true
		}
		s *= opts.Beta
		if s < 1e-16 {
			return false
		}
	}
	return false
}

// residualNorm evaluates ‖(r_dual, r_cent, r_prim)‖₂ at the trial point
// with the current barrier parameter.
func residualNorm(p *Program, x, u, v *mat.VecDense, gxh *mat.VecDense, opts Options) float64 {
	n, meq, mineq := p.Dims()

	eta := -mat.Dot(gxh, u)
	t := opts.Miu * float64(mineq) / math.Max(eta, 1e-300)

	rdual := mat.NewVecDense(n, nil)
	rcent := mat.NewVecDense(mineq, nil)
	var rprim *mat.VecDense
	if meq > 0 {
		rprim = mat.NewVecDense(meq, nil)
	}

	tmp := &State{X: x, U: u, V: v}
	assembleResiduals(p, tmp, gxh, t, rdual, rcent, rprim)

	total := mat.Dot(rdual, rdual) + mat.Dot(rcent, rcent)
	if rprim != nil {
		total += mat.Dot(rprim, rprim)
	}
	return math.Sqrt(total)
}

// findStrictlyFeasible returns a point with G x < h strictly (and no
// attention to the equality block, which the barrier iteration restores).
// The candidate x0 is used when already strictly interior; otherwise the
// least-squares probe min ‖Gx − (h − y𝟙)‖ is tried over the geometric
// schedule y, approaching the boundary from both sides.
func findStrictlyFeasible(p *Program, x0 *mat.VecDense) *mat.VecDense {
	n, _, mineq := p.Dims()

	interior := func(x *mat.VecDense) bool {
		r := mat.NewVecDense(mineq, nil)
		residualGxh(p, x, r)
		for i := 0; i < mineq; i++ {
			if r.AtVec(i) >= 0 {
				return false
			}
		}
		return true
	}

	if x0 != nil && x0.Len() == n && interior(x0) {
		return mat.VecDenseCopyOf(x0)
	}

	var gtg mat.Dense
	gtg.Mul(p.G.T(), p.G)
	var lu mat.LU
	lu.Factorize(&gtg)

	solve := func(y float64) *mat.VecDense {
		rhs := mat.NewVecDense(mineq, nil)
		for i := 0; i < mineq; i++ {
			rhs.SetVec(i, p.H.AtVec(i)-y)
		}
		gtr := mat.NewVecDense(n, nil)
		gtr.MulVec(p.G.T(), rhs)
		x := mat.NewVecDense(n, nil)
		if err := lu.SolveVecTo(x, false, gtr); err != nil {
			return nil
		}
		if interior(x) {
			return x
		}
		return nil
	}

	const gamma = 0.3
	ym, ybig := 1.0, 1/gamma
	for trial := 0; trial < 100; trial += 2 {
		if x := solve(ym); x != nil {
			return x
		}
		if x := solve(ybig); x != nil {
			return x
		}
		ym *= gamma
		ybig /= gamma
	}
	return nil
}

// solveKKTDirect handles programs without inequalities through one KKT (or
// normal-equation) solve.
func solveKKTDirect(p *Program, st *State) {
	n, meq, _ := p.Dims()
	dim := n + meq

	k := mat.NewDense(dim, dim, nil)
	rhs := mat.NewVecDense(dim, nil)
	for i := 0; i < n; i++ {
		if p.Q != nil {
			for j := 0; j < n; j++ {
				k.Set(i, j, p.Q.At(i, j))
			}
		}
		for j := 0; j < meq; j++ {
			k.Set(i, n+j, p.A.At(j, i))
			k.Set(n+j, i, p.A.At(j, i))
		}
		rhs.SetVec(i, -p.C.AtVec(i))
	}
	for i := 0; i < meq; i++ {
		rhs.SetVec(n+i, p.B.AtVec(i))
	}

	var lu mat.LU
	lu.Factorize(k)
	sol := mat.NewVecDense(dim, nil)
	if err := lu.SolveVecTo(sol, false, rhs); err != nil {
		st.Status = solver.Failed
		return
	}
	st.RCond = 1 / mat.Cond(k, 1)
	if st.RCond < rcondFloor {
		st.Status = solver.Failed
		return
	}

	for i := 0; i < n; i++ {
		st.X.SetVec(i, sol.AtVec(i))
	}
	for i := 0; i < meq; i++ {
		st.V.SetVec(i, sol.AtVec(n+i))
	}
	st.Iters = 1
	st.F = p.Value(st.X)
	st.KKT = kktViolation(p, st)
	st.Status = solver.Converged
}

// kktViolation evaluates the five KKT optimality tests at the state.
func kktViolation(p *Program, st *State) float64 {
	n, meq, mineq := p.Dims()
	kkt := 0.0

	var gxh *mat.VecDense
	if mineq > 0 {
		gxh = mat.NewVecDense(mineq, nil)
		residualGxh(p, st.X, gxh)
		for i := 0; i < mineq; i++ {
			kkt = math.Max(kkt, math.Max(0, gxh.AtVec(i)))       // primal inequality
			kkt = math.Max(kkt, math.Max(0, -st.U.AtVec(i)))     // dual positivity
			kkt = math.Max(kkt, math.Abs(st.U.AtVec(i)*gxh.AtVec(i))) // complementary slackness
		}
	}
	if meq > 0 {
		r := mat.NewVecDense(meq, nil)
		r.MulVec(p.A, st.X)
		r.SubVec(r, p.B)
		kkt = math.Max(kkt, mat.Norm(r, math.Inf(1)))
	}

	// stationarity of the Lagrangian
	lgrad := mat.NewVecDense(n, nil)
	lgrad.CopyVec(p.C)
	if p.Q != nil {
		qx := mat.NewVecDense(n, nil)
		qx.MulVec(p.Q, st.X)
		lgrad.AddVec(lgrad, qx)
	}
	if meq > 0 {
		atv := mat.NewVecDense(n, nil)
		atv.MulVec(p.A.T(), st.V)
		lgrad.AddVec(lgrad, atv)
	}
	if mineq > 0 {
		gtu := mat.NewVecDense(n, nil)
		gtu.MulVec(p.G.T(), st.U)
		lgrad.AddVec(lgrad, gtu)
	}
	return math.Max(kkt, mat.Norm(lgrad, math.Inf(1)))
}
