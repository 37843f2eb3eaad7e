package function

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ZeroRowStats reports the outcome of a zero-row sweep.
type ZeroRowStats struct {
	// Removed counts the all-zero rows dropped from (A, b).
	Removed int

	// Inconsistent counts removed rows whose right-hand side contradicts
	// the constraint sense (b_i != 0 for equalities, b_i < 0 for inequalities).
	Inconsistent int
}

// RemoveZeroRowsEquality drops all-zero rows of the equality system A x = b,
// returning the reduced system (nil matrices when no rows survive). A
// dropped row with b_i != 0 is counted as inconsistent.
func RemoveZeroRowsEquality(a *mat.Dense, b *mat.VecDense) (*mat.Dense, *mat.VecDense, ZeroRowStats) {
	return removeZeroRows(a, b, func(bi float64) bool { return bi != 0 })
}

// RemoveZeroRowsInequality drops all-zero rows of the inequality system
// A x <= b, returning the reduced system. A dropped row with b_i < 0 is
// counted as inconsistent.
func RemoveZeroRowsInequality(a *mat.Dense, b *mat.VecDense) (*mat.Dense, *mat.VecDense, ZeroRowStats) {
	return removeZeroRows(a, b, func(bi float64) bool { return bi < 0 })
}

func removeZeroRows(a *mat.Dense, b *mat.VecDense, inconsistent func(float64) bool) (*mat.Dense, *mat.VecDense, ZeroRowStats) {
	var stats ZeroRowStats
	if a == nil {
		return nil, nil, stats
	}
	m, n := a.Dims()

	keep := make([]int, 0, m)
	for i := 0; i < m; i++ {
		norm := 0.0
		for j := 0; j < n; j++ {
			norm = math.Hypot(norm, a.At(i, j))
		}
		if norm == 0 {
			stats.Removed++
			if inconsistent(b.AtVec(i)) {
				stats.Inconsistent++
			}
			continue
		}
		keep = append(keep, i)
	}
	switch {
	case stats.Removed == 0:
		return a, b, stats
	case len(keep) == 0:
		return nil, nil, stats
	}

	ra := mat.NewDense(len(keep), n, nil)
	rb := mat.NewVecDense(len(keep), nil)
	for dst, src := range keep {
		ra.SetRow(dst, a.RawRowView(src))
		rb.SetVec(dst, b.AtVec(src))
	}
	return ra, rb, stats
}

// FullRankStats reports the outcome of a rank reduction.
type FullRankStats struct {
	// Rank is the numerical row rank of the input system.
	Rank int

	// Changed reports whether the system was replaced by its reduction.
	Changed bool
}

// MakeFullRank replaces the equality system A x = b by an equivalent system
// with linearly independent rows. Rank is revealed by a singular value
// decomposition; the reduced system is (S_r V_rᵀ, U_rᵀ b), which preserves
// the solution set of the original.
func MakeFullRank(a *mat.Dense, b *mat.VecDense) (*mat.Dense, *mat.VecDense, FullRankStats) {
	if a == nil {
		return nil, nil, FullRankStats{}
	}
	m, n := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return a, b, FullRankStats{Rank: m}
	}
	values := svd.Values(nil)

	tol := float64(max(m, n)) * values[0] * 1e-14
	rank := 0
	for _, s := range values {
		if s > tol {
			rank++
		}
	}
	if rank >= m {
		return a, b, FullRankStats{Rank: m}
	}
	if rank == 0 {
		return nil, nil, FullRankStats{Rank: 0, Changed: true}
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// A' = S_r V_rᵀ, b' = U_rᵀ b
	ra := mat.NewDense(rank, n, nil)
	for i := 0; i < rank; i++ {
		for j := 0; j < n; j++ {
			ra.Set(i, j, values[i]*v.At(j, i))
		}
	}
	rb := mat.NewVecDense(rank, nil)
	for i := 0; i < rank; i++ {
		s := 0.0
		for k := 0; k < m; k++ {
			s += u.At(k, i) * b.AtVec(k)
		}
		rb.SetVec(i, s)
	}
	return ra, rb, FullRankStats{Rank: rank, Changed: true}
}

// LinearConstraints is the compact stacked form of a linear constraint
// system: A x = b gathers the equalities, G x <= h the inequalities.
// Empty blocks are nil.
type LinearConstraints struct {
	A *mat.Dense
	B *mat.VecDense
	G *mat.Dense
	H *mat.VecDense

	// Inconsistent counts dropped zero rows with contradictory right-hand sides.
	Inconsistent int
}

// EqRows returns the number of stacked equality rows.
func (lc *LinearConstraints) EqRows() int {
	if lc.A == nil {
		return 0
	}
	r, _ := lc.A.Dims()
	return r
}

// IneqRows returns the number of stacked inequality rows.
func (lc *LinearConstraints) IneqRows() int {
	if lc.G == nil {
		return 0
	}
	r, _ := lc.G.Dims()
	return r
}

// LinearConstraints returns the cached zero-row-free, full-rank stacked
// system of the function's linear constraints. It fails with ErrNonLinear
// when a functional constraint cannot be represented linearly. The cache is
// regenerated after every Append.
func (b *Base) LinearConstraints() (*LinearConstraints, error) {
	if b.linear != nil {
		return b.linear, nil
	}

	lc, err := stackConstraints(b.constraints, b.size)
	if err != nil {
		return nil, err
	}
	b.linear = lc
	return lc, nil
}

func stackConstraints(constraints []Constraint, n int) (*LinearConstraints, error) {
	type block struct {
		a *mat.Dense
		b *mat.VecDense
	}
	var eqs, ineqs []block

	for _, c := range constraints {
		switch v := c.(type) {
		case Equality:
			eqs = append(eqs, block{v.A, v.B})
		case Inequality:
			ineqs = append(ineqs, block{v.A, v.B})
		case Bound:
			row := mat.NewDense(1, n, nil)
			rhs := mat.NewVecDense(1, nil)
			if v.Side == Upper {
				row.Set(0, v.Index, +1)
				rhs.SetVec(0, v.Value)
			} else {
				row.Set(0, v.Index, -1)
				rhs.SetVec(0, -v.Value)
			}
			ineqs = append(ineqs, block{row, rhs})
		case Functional:
			return nil, ErrNonLinear
		}
	}

	stack := func(blocks []block) (*mat.Dense, *mat.VecDense) {
		rows := 0
		for _, bl := range blocks {
			r, _ := bl.a.Dims()
			rows += r
		}
		if rows == 0 {
			return nil, nil
		}
		a := mat.NewDense(rows, n, nil)
		v := mat.NewVecDense(rows, nil)
		at := 0
		for _, bl := range blocks {
			r, _ := bl.a.Dims()
			for i := 0; i < r; i++ {
				a.SetRow(at, bl.a.RawRowView(i))
				v.SetVec(at, bl.b.AtVec(i))
				at++
			}
		}
		return a, v
	}

	lc := &LinearConstraints{}
	lc.A, lc.B = stack(eqs)
	lc.G, lc.H = stack(ineqs)

	var stats ZeroRowStats
	lc.A, lc.B, stats = RemoveZeroRowsEquality(lc.A, lc.B)
	lc.Inconsistent += stats.Inconsistent
	lc.G, lc.H, stats = RemoveZeroRowsInequality(lc.G, lc.H)
	lc.Inconsistent += stats.Inconsistent

	lc.A, lc.B, _ = MakeFullRank(lc.A, lc.B)
	return lc, nil
}
