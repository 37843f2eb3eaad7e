package lsearch

import "math"

// MoreThuente implements the More-Thuente line search: safeguarded cubic
// interpolation over a shrinking uncertainty interval, enforcing the strong
// Wolfe conditions. The trial update follows the MINPACK dcstep cases.
type MoreThuente struct {
	tolerances
}

// NewMoreThuente returns the "morethuente" algorithm with c1 = 1e-4, c2 = 0.9.
func NewMoreThuente() *MoreThuente {
	return &MoreThuente{tolerances: newTolerances(1e-4, 0.9)}
}

// Clone returns a fresh algorithm with the same parameters.
func (m *MoreThuente) Clone() Search { return &MoreThuente{tolerances: m.tolerances.clone()} }

// Name returns "morethuente".
func (m *MoreThuente) Name() string { return "morethuente" }

// Objective returns StrongWolfe.
func (m *MoreThuente) Objective() Objective { return StrongWolfe }

// Get runs the safeguarded interpolation loop from t0.
func (m *MoreThuente) Get(p *Probe, t0 float64) bool {
	if !p.Descent() {
		return false
	}

	c1, c2 := m.c1(), m.c2()
	f0, dg0 := p.F0(), p.DG0()

	const xtrapf = 4.0
	stage1 := true
	bracket := false

	// best step so far (stx) and the other interval end (sty)
	stx, fx, dx := 0.0, f0, dg0
	sty, fy, dy := 0.0, f0, dg0

	t := clamp(t0, StepMin, StepMax)
	width := StepMax - StepMin
	width1 := 2 * width

	for iter := 0; iter < m.maxIters(); iter++ {
		var stmin, stmax float64
		if bracket {
			stmin = math.Min(stx, sty)
			stmax = math.Max(stx, sty)
		} else {
			stmin = stx
			stmax = t + xtrapf*(t-stx)
		}

		t = clamp(t, StepMin, StepMax)
		if bracket && (t <= stmin || t >= stmax || stmax-stmin <= StepMin*stmax) {
			t = stx
		}
		if !p.Move(t) {
			return false
		}
		fp, dp := p.F, p.DG()

		ftest := f0 + t*c1*dg0
		if fp <= ftest && math.Abs(dp) <= c2*math.Abs(dg0) {
			return true
		}
		if t <= StepMin {
			return false
		}

		if stage1 && fp <= ftest && dp >= math.Min(c1, c2)*dg0 {
			stage1 = false
		}

		if stage1 && fp <= fx && fp > ftest {
			// work on the modified function ψ(t) = φ(t) − φ(0) − c1·t·φ′(0)
			fm := fp - t*c1*dg0
			fxm := fx - stx*c1*dg0
			fym := fy - sty*c1*dg0
			dm := dp - c1*dg0
			dxm := dx - c1*dg0
			dym := dy - c1*dg0

			t = dcstep(&stx, &fxm, &dxm, &sty, &fym, &dym, t, fm, dm, &bracket, stmin, stmax)

			fx = fxm + stx*c1*dg0
			fy = fym + sty*c1*dg0
			dx = dxm + c1*dg0
			dy = dym + c1*dg0
		} else {
			t = dcstep(&stx, &fx, &dx, &sty, &fy, &dy, t, fp, dp, &bracket, stmin, stmax)
		}

		if bracket {
			if math.Abs(sty-stx) >= 0.66*width1 {
				t = 0.5 * (stx + sty)
			}
			width1 = width
			width = math.Abs(sty - stx)
		}
	}
	return false
}

// dcstep computes a safeguarded trial step and updates the uncertainty
// interval; the four cases follow MINPACK.
func dcstep(stx, fx, dx, sty, fy, dy *float64, stp, fp, dp float64, bracket *bool, stmin, stmax float64) float64 {
	sgnd := dp * math.Copysign(1, *dx)

	var stpf float64
	switch {
	case fp > *fx:
		// higher value: the minimum is bracketed
		theta := 3*(*fx-fp)/(stp-*stx) + *dx + dp
		s := math.Max(math.Abs(theta), math.Max(math.Abs(*dx), math.Abs(dp)))
		gamma := s * math.Sqrt((theta/s)*(theta/s)-(*dx/s)*(dp/s))
		if stp < *stx {
			gamma = -gamma
		}
		p := (gamma - *dx) + theta
		q := ((gamma - *dx) + gamma) + dp
		r := p / q
		stpc := *stx + r*(stp-*stx)
		stpq := *stx + ((*dx/((*fx-fp)/(stp-*stx)+*dx))/2)*(stp-*stx)
		if math.Abs(stpc-*stx) < math.Abs(stpq-*stx) {
			stpf = stpc
		} else {
			stpf = stpc + (stpq-stpc)/2
		}
		*bracket = true

	case sgnd < 0:
		// opposite slopes: the minimum is bracketed
		theta := 3*(*fx-fp)/(stp-*stx) + *dx + dp
		s := math.Max(math.Abs(theta), math.Max(math.Abs(*dx), math.Abs(dp)))
		gamma := s * math.Sqrt((theta/s)*(theta/s)-(*dx/s)*(dp/s))
		if stp > *stx {
			gamma = -gamma
		}
		p := (gamma - dp) + theta
		q := ((gamma - dp) + gamma) + *dx
		r := p / q
		stpc := stp + r*(*stx-stp)
		stpq := stp + (dp/(dp-*dx))*(*stx-stp)
		if math.Abs(stpc-stp) > math.Abs(stpq-stp) {
			stpf = stpc
		} else {
			stpf = stpq
		}
		*bracket = true

	case math.Abs(dp) < math.Abs(*dx):
		// same sign, decreasing magnitude: cubic may not have a minimizer
		theta := 3*(*fx-fp)/(stp-*stx) + *dx + dp
		s := math.Max(math.Abs(theta), math.Max(math.Abs(*dx), math.Abs(dp)))
		gamma := s * math.Sqrt(math.Max(0, (theta/s)*(theta/s)-(*dx/s)*(dp/s)))
		if stp > *stx {
			gamma = -gamma
		}
		p := (gamma - dp) + theta
		q := (gamma + (*dx - dp)) + gamma
		r := p / q
		var stpc float64
		switch {
		case r < 0 && gamma != 0:
			stpc = stp + r*(*stx-stp)
		case stp > *stx:
			stpc = stmax
		default:
			stpc = stmin
		}
		stpq := stp + (dp/(dp-*dx))*(*stx-stp)
		if *bracket {
			if math.Abs(stp-stpc) < math.Abs(stp-stpq) {
				stpf = stpc
			} else {
				stpf = stpq
			}
			if stp > *stx {
				stpf = math.Min(stp+0.66*(*sty-stp), stpf)
			} else {
				stpf = math.Max(stp+0.66*(*sty-stp), stpf)
			}
		} else {
			if math.Abs(stp-stpc) > math.Abs(stp-stpq) {
				stpf = stpc
			} else {
				stpf = stpq
			}
			stpf = clamp(stpf, stmin, stmax)
		}

	default:
		// same sign, increasing magnitude
		if *bracket {
			theta := 3*(fp-*fy)/(*sty-stp) + *dy + dp
			s := math.Max(math.Abs(theta), math.Max(math.Abs(*dy), math.Abs(dp)))
			gamma := s * math.Sqrt((theta/s)*(theta/s)-(*dy/s)*(dp/s))
			if stp > *sty {
				gamma = -gamma
			}
			p := (gamma - dp) + theta
			q := ((gamma - dp) + gamma) + *dy
			r := p / q
			stpf = stp + r*(*sty-stp)
		} else if stp > *stx {
			stpf = stmax
		} else {
			stpf = stmin
		}
	}

	// update the interval
	if fp > *fx {
		*sty, *fy, *dy = stp, fp, dp
	} else {
		if sgnd < 0 {
			*sty, *fy, *dy = *stx, *fx, *dx
		}
		*stx, *fx, *dx = stp, fp, dp
	}
	return stpf
}
