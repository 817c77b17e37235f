package conversion

import (
	"errors"
	"math"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/rtdconv/pkg/polyfit"
	"github.com/charlie0129/rtdconv/pkg/rtd"
)

// ErrLengthMismatch is returned when measured and calculated sequences differ
// in length.
var ErrLengthMismatch = errors.New("length mismatch")

// Error kinds reported over the API.
const (
	KindOutOfDomain     = "outOfDomain"
	KindNonConvergent   = "nonConvergent"
	KindUnderdetermined = "underdetermined"
	KindIllConditioned  = "illConditioned"
	KindLengthMismatch  = "lengthMismatch"
	KindUnknown         = "unknown"
)

// ComputeErrors returns |measured[i] - calculated[i]| for every i.
func ComputeErrors(measured, calculated []float64) ([]float64, error) {
	if len(measured) != len(calculated) {
		return nil, pkgerrors.Wrapf(ErrLengthMismatch, "%d measured vs %d calculated", len(measured), len(calculated))
	}

	errs := make([]float64, len(measured))
	for i := range measured {
		errs[i] = math.Abs(measured[i] - calculated[i])
	}
	return errs, nil
}

// Kind classifies an error from the numeric core. It returns "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, rtd.ErrOutOfDomain):
		return KindOutOfDomain
	case errors.Is(err, rtd.ErrNonConvergent):
		return KindNonConvergent
	case errors.Is(err, polyfit.ErrUnderdetermined):
		return KindUnderdetermined
	case errors.Is(err, polyfit.ErrIllConditioned):
		return KindIllConditioned
	case errors.Is(err, ErrLengthMismatch):
		return KindLengthMismatch
	default:
		return KindUnknown
	}
}
