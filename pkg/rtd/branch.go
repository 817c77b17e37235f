package rtd

import "math"

// Branch identifies which piece of the Callendar-Van Dusen equation models
// a resistance reading.
type Branch int

const (
	BranchOutOfDomain Branch = iota
	// BranchPositive covers t >= 0, i.e. readings above R0.
	BranchPositive
	// BranchNegative covers t < 0, i.e. readings in (MinResistance, R0].
	BranchNegative
)

// MinResistance is the floor of the sub-zero branch. Readings at or below it
// have no model.
const MinResistance = 9.0

func (b Branch) String() string {
	switch b {
	case BranchPositive:
		return "positive"
	case BranchNegative:
		return "negative"
	default:
		return "outOfDomain"
	}
}

// SelectBranch picks the branch for rt given the reference resistance r0.
func SelectBranch(rt, r0 float64) Branch {
	if !finite(rt) || !finite(r0) || r0 <= 0 {
		return BranchOutOfDomain
	}

	switch {
	case rt > r0:
		return BranchPositive
	case rt > MinResistance && rt <= r0:
		return BranchNegative
	default:
		return BranchOutOfDomain
	}
}

// model returns f(t) = R(t) - rt and f'(t) for the branch.
func (b Branch) model(rt, r0 float64) (f, fPrime func(t float64) float64) {
	switch b {
	case BranchPositive:
		f = func(t float64) float64 {
			return r0*(1+A*t+B*t*t) - rt
		}
		fPrime = func(t float64) float64 {
			return r0 * (A + 2*B*t)
		}
	case BranchNegative:
		f = func(t float64) float64 {
			t2 := t * t
			return r0*(1+A*t+B*t2-100*C*t2*t+C*t2*t2) - rt
		}
		fPrime = func(t float64) float64 {
			t2 := t * t
			return r0 * (A + 2*B*t - 300*C*t2 + 4*C*t2*t)
		}
	}
	return f, fPrime
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
