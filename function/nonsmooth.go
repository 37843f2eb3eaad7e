package function

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxQuad is the classic MAXQUAD benchmark of Lemarechal: the pointwise
// maximum of k quadratic pieces
//
//	f(x) = max_k xᵀA_k x − b_kᵀx
//
// convex and non-smooth. The standard instance has 10 dimensions and 5
// pieces with optimum f★ ≈ −0.841408.
type MaxQuad struct {
	*Base
	as []*mat.Dense
	bs []*mat.VecDense
}

// NewMaxQuad builds the MAXQUAD instance with the given dimensions and
// number of quadratic pieces.
func NewMaxQuad(dims, pieces int) *MaxQuad {
	f := &MaxQuad{
		Base: NewBase("maxquad", dims, WithConvex(true), WithSmooth(false)),
	}
	for k := 0; k < pieces; k++ {
		a := mat.NewDense(dims, dims, nil)
		b := mat.NewVecDense(dims, nil)
		fillMaxQuad(a, b, k)
		f.as = append(f.as, a)
		f.bs = append(f.bs, b)
	}
	return f
}

func fillMaxQuad(a *mat.Dense, b *mat.VecDense, k int) {
	dims, _ := a.Dims()
	sk := float64(k + 1)

	for i := 0; i < dims; i++ {
		si := float64(i + 1)
		for j := i + 1; j < dims; j++ {
			sj := float64(j + 1)
			v := math.Exp(si/sj) * math.Cos(si*sj) * math.Sin(sk)
			a.Set(i, j, v)
			a.Set(j, i, v)
		}
	}
	for i := 0; i < dims; i++ {
		si := float64(i + 1)
		sum := 0.0
		for j := 0; j < dims; j++ {
			if i != j {
				sum += math.Abs(a.At(i, j))
			}
		}
		a.Set(i, i, si*math.Abs(math.Sin(sk))/float64(dims)+sum)
		b.SetVec(i, math.Exp(si/sk)*math.Sin(si*sk))
	}
}

// Eval returns the active piece's value; the subgradient is the gradient of
// the active piece.
func (f *MaxQuad) Eval(x *mat.VecDense, gx *mat.VecDense, hx *mat.Dense) float64 {
	f.Tally(gx != nil)

	n := f.Size()
	ax := mat.NewVecDense(n, nil)

	kmax, fx := 0, math.Inf(-1)
	for k := range f.as {
		ax.MulVec(f.as[k], x)
		ax.SubVec(ax, f.bs[k])
		if kfx := mat.Dot(x, ax); kfx > fx {
			fx, kmax = kfx, k
		}
	}
	if gx != nil {
		ax.MulVec(f.as[kmax], x)
		gx.ScaleVec(2, ax)
		gx.SubVec(gx, f.bs[kmax])
	}
	return fx
}

// ChainedCB3II is the chained CB3 variant II benchmark:
//
//	f(x) = max{ Σ x_i⁴+x_{i+1}², Σ (2−x_i)²+(2−x_{i+1})², Σ 2e^{−x_i+x_{i+1}} }
//
// over consecutive pairs; convex and non-smooth with f★ = 2(n−1) at x = 𝟙.
type ChainedCB3II struct {
	*Base
}

// NewChainedCB3II builds the chained CB3-II instance in the given dimensions.
func NewChainedCB3II(dims int) *ChainedCB3II {
	return &ChainedCB3II{
		Base: NewBase("chained_cb3II", dims, WithConvex(true), WithSmooth(false)),
	}
}

// Eval returns the maximum of the three chained sums; the subgradient
// follows the active sum.
func (f *ChainedCB3II) Eval(x *mat.VecDense, gx *mat.VecDense, hx *mat.Dense) float64 {
	f.Tally(gx != nil)

	fx1, fx2, fx3 := 0.0, 0.0, 0.0
	n := f.Size()
	for i := 0; i+1 < n; i++ {
		xi, xi1 := x.AtVec(i), x.AtVec(i+1)
		fx1 += xi*xi*xi*xi + xi1*xi1
		fx2 += (2-xi)*(2-xi) + (2-xi1)*(2-xi1)
		fx3 += 2 * math.Exp(xi1-xi)
	}

	if gx != nil {
		gx.Zero()
		switch {
		case fx1 > math.Max(fx2, fx3):
			for i := 0; i+1 < n; i++ {
				xi, xi1 := x.AtVec(i), x.AtVec(i+1)
				gx.SetVec(i, gx.AtVec(i)+4*xi*xi*xi)
				gx.SetVec(i+1, gx.AtVec(i+1)+2*xi1)
			}
		case fx2 > math.Max(fx1, fx3):
			for i := 0; i+1 < n; i++ {
				xi, xi1 := x.AtVec(i), x.AtVec(i+1)
				gx.SetVec(i, gx.AtVec(i)+2*xi-4)
				gx.SetVec(i+1, gx.AtVec(i+1)+2*xi1-4)
			}
		default:
			for i := 0; i+1 < n; i++ {
				e := math.Exp(x.AtVec(i+1) - x.AtVec(i))
				gx.SetVec(i, gx.AtVec(i)-2*e)
				gx.SetVec(i+1, gx.AtVec(i+1)+2*e)
			}
		}
	}
	return math.Max(fx1, math.Max(fx2, fx3))
}
