package rtd

import (
	"errors"
	"math"

	pkgerrors "github.com/pkg/errors"
)

// Callendar-Van Dusen coefficients for IEC 60751 platinum sensors.
const (
	A = 3.9083e-3
	B = -5.775e-7
	C = -4.183e-12

	// Alpha is the nominal temperature coefficient, used for the initial guess.
	Alpha = 0.00385
)

const (
	// DefaultR0 is the resistance of a Pt100 at 0 °C.
	DefaultR0 = 100.0

	Tolerance     = 1e-6
	MaxIterations = 100

	// minDerivative below which a Newton step is considered a blow-up.
	minDerivative = 1e-12
)

var (
	// ErrOutOfDomain is returned when no branch of the equation covers the reading.
	ErrOutOfDomain = errors.New("resistance out of domain")

	// ErrNonConvergent is returned when Newton-Raphson does not reach
	// Tolerance within MaxIterations.
	ErrNonConvergent = errors.New("did not converge")
)

// FindTemperature solves R(t) = rt for t in °C, where R is the
// Callendar-Van Dusen characteristic with reference resistance r0.
func FindTemperature(rt, r0 float64) (float64, error) {
	if finite(rt) && finite(r0) && r0 > 0 && math.Abs(rt-r0) < Tolerance {
		return 0.0, nil
	}

	branch := SelectBranch(rt, r0)
	if branch == BranchOutOfDomain {
		return 0, pkgerrors.Wrapf(ErrOutOfDomain, "no model defined for %g Ω (R0 %g Ω)", rt, r0)
	}

	f, fPrime := branch.model(rt, r0)
	t, err := newtonRaphson(f, fPrime, (rt-r0)/(r0*Alpha))
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "%s branch at %g Ω", branch, rt)
	}

	return t, nil
}

// Resistance is the forward model: the resistance of a sensor with
// reference resistance r0 at temperature t.
func Resistance(t, r0 float64) float64 {
	if t >= 0 {
		return r0 * (1 + A*t + B*t*t)
	}
	t2 := t * t
	return r0 * (1 + A*t + B*t2 - 100*C*t2*t + C*t2*t2)
}

func newtonRaphson(f, fPrime func(float64) float64, x0 float64) (float64, error) {
	x := x0
	for i := 0; i < MaxIterations; i++ {
		fx := f(x)
		if math.Abs(fx) < Tolerance {
			return x, nil
		}

		fpx := fPrime(x)
		if math.Abs(fpx) < minDerivative {
			return 0, pkgerrors.Wrapf(ErrNonConvergent, "derivative vanished at t=%g after %d iterations", x, i)
		}

		x -= fx / fpx
		if !finite(x) {
			return 0, pkgerrors.Wrapf(ErrNonConvergent, "iterate diverged after %d iterations", i+1)
		}
	}

	return 0, pkgerrors.Wrapf(ErrNonConvergent, "residual above %g after %d iterations", Tolerance, MaxIterations)
}
