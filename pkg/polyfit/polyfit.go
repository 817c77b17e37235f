// Package polyfit fits least-squares polynomials to RTD calibration data and
// evaluates them.
package polyfit

import (
	"errors"
	"math"

	pkgerrors "github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultDegree is the fit degree used when the caller does not choose one.
const DefaultDegree = 5

// MaxCondition is the largest condition number of the design matrix that is
// still accepted as a usable fit.
const MaxCondition = 1e12

var (
	// ErrUnderdetermined is returned when there are fewer points than
	// coefficients to solve for.
	ErrUnderdetermined = errors.New("underdetermined fit")

	// ErrIllConditioned is returned when the least-squares system is too
	// close to singular to trust its solution.
	ErrIllConditioned = errors.New("ill-conditioned fit")
)

// Point is a calibration pair.
type Point struct {
	// R is the resistance in Ohms.
	R float64 `json:"resistance"`
	// T is the measured temperature in °C.
	T float64 `json:"temperature"`
}

// Polynomial is a fitted model. Coefficients apply to the resistance mapped
// linearly from Domain onto [-1, 1].
type Polynomial struct {
	coeffs []float64
	domain [2]float64
	off    float64
	scl    float64
}

// Fit computes the least-squares polynomial of the given degree through
// points, solving the scaled Vandermonde system by QR decomposition.
func Fit(points []Point, degree int) (*Polynomial, error) {
	if degree < 0 {
		return nil, pkgerrors.Wrapf(ErrUnderdetermined, "negative degree %d", degree)
	}
	n, m := len(points), degree+1
	if n < m {
		return nil, pkgerrors.Wrapf(ErrUnderdetermined, "degree %d needs at least %d points, got %d", degree, m, n)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, p := range points {
		if !finite(p.R) || !finite(p.T) {
			return nil, pkgerrors.Wrapf(ErrIllConditioned, "point %d is not finite", i)
		}
		lo = math.Min(lo, p.R)
		hi = math.Max(hi, p.R)
	}

	poly := &Polynomial{domain: [2]float64{lo, hi}, scl: 1, off: -lo}
	if hi > lo {
		poly.scl = 2 / (hi - lo)
		poly.off = -(hi + lo) / (hi - lo)
	} else if degree > 0 {
		return nil, pkgerrors.Wrapf(ErrIllConditioned, "all %d points share resistance %g", n, lo)
	}

	a := mat.NewDense(n, m, nil)
	b := mat.NewVecDense(n, nil)
	for i, p := range points {
		x := poly.scale(p.R)
		v := 1.0
		for j := 0; j < m; j++ {
			a.Set(i, j, v)
			v *= x
		}
		b.SetVec(i, p.T)
	}

	var qr mat.QR
	qr.Factorize(a)
	if cond := qr.Cond(); math.IsNaN(cond) || cond > MaxCondition {
		return nil, pkgerrors.Wrapf(ErrIllConditioned, "condition number %g", cond)
	}

	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return nil, pkgerrors.Wrapf(ErrIllConditioned, "%v", err)
	}

	poly.coeffs = make([]float64, m)
	for j := range poly.coeffs {
		c := x.AtVec(j)
		if !finite(c) {
			return nil, pkgerrors.Wrapf(ErrIllConditioned, "coefficient %d is %g", j, c)
		}
		poly.coeffs[j] = c
	}

	return poly, nil
}

// Evaluate returns the fitted temperature at resistance r.
func (p *Polynomial) Evaluate(r float64) float64 {
	x := p.scale(r)
	y := 0.0
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		y = y*x + p.coeffs[i]
	}
	return y
}

// EvaluateAll evaluates the polynomial at every resistance, in order.
func (p *Polynomial) EvaluateAll(rs []float64) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = p.Evaluate(r)
	}
	return out
}

// Coefficients returns a copy of the coefficients, lowest power first.
func (p *Polynomial) Coefficients() []float64 {
	return append([]float64(nil), p.coeffs...)
}

// Domain returns the resistance range of the data the polynomial was fitted on.
func (p *Polynomial) Domain() (lo, hi float64) {
	return p.domain[0], p.domain[1]
}

func (p *Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

func (p *Polynomial) scale(r float64) float64 {
	return p.off + p.scl*r
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
