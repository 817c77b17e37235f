package types

import (
	"time"

	"github.com/charlie0129/rtdconv/pkg/conversion"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	// Kind is set for failures of the numeric core, e.g. "outOfDomain".
	Kind string `json:"kind,omitempty"`
}

type ConvertRequest struct {
	Resistance float64 `json:"resistance"`
	// ReferenceResistance defaults to the server's configured R0.
	ReferenceResistance *float64 `json:"referenceResistance,omitempty"`
}

type ConvertResponse struct {
	Resistance          float64 `json:"resistance"`
	ReferenceResistance float64 `json:"referenceResistance"`
	Temperature         float64 `json:"temperature"`
}

type FitPoint struct {
	Resistance  float64 `json:"resistance"`
	Temperature float64 `json:"temperature"`
}

type FitRequest struct {
	Points []FitPoint `json:"points"`
	// Degree defaults to the server's configured degree.
	Degree *int `json:"degree,omitempty"`
	// Evaluate lists resistances to evaluate the fitted polynomial at.
	Evaluate []float64 `json:"evaluate,omitempty"`
}

type FitResponse struct {
	Degree int `json:"degree"`
	// Coefficients apply to the resistance mapped from Domain onto [-1, 1],
	// lowest power first.
	Coefficients []float64  `json:"coefficients"`
	Domain       [2]float64 `json:"domain"`
	Values       []float64  `json:"values,omitempty"`
}

// RowFailure describes one input row that could not be converted.
type RowFailure struct {
	// Row is the 1-based data row, not counting the header.
	Row        int     `json:"row"`
	Resistance float64 `json:"resistance"`
	Kind       string  `json:"kind"`
	Message    string  `json:"message"`
}

type BatchOutput struct {
	File string `json:"file"`
	// Output is the stored result name. Empty when the whole batch failed.
	Output   string            `json:"output,omitempty"`
	Error    string            `json:"error,omitempty"`
	Kind     string            `json:"kind,omitempty"`
	Summary  *conversion.Stats `json:"summary,omitempty"`
	Failures []RowFailure      `json:"failures,omitempty"`
}

type RejectedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

type BatchResponse struct {
	ID       string         `json:"id"`
	Method   string         `json:"method"`
	Outputs  []BatchOutput  `json:"outputs"`
	Rejected []RejectedFile `json:"rejected,omitempty"`
}

type ConcatenateRequest struct {
	Files []string `json:"files"`
}

type OutputInfo struct {
	Name    string    `json:"name"`
	ModTime time.Time `json:"modTime"`
}
