// Package conversion drives the numeric core over whole batches of readings.
// Failures are recorded per row so one bad reading never aborts a batch.
package conversion

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/charlie0129/rtdconv/pkg/polyfit"
	"github.com/charlie0129/rtdconv/pkg/rtd"
)

// Method selects how resistances are turned into temperatures.
type Method string

const (
	MethodNewtonRaphson Method = "newton_raphson"
	MethodPolyFit       Method = "poly_fit"
)

// Methods lists every supported method.
var Methods = []Method{MethodNewtonRaphson, MethodPolyFit}

func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown method %q, must be one of %v", s, Methods)
}

// Request carries the parameters shared by every batch of a conversion.
type Request struct {
	Method Method
	// ReferenceResistance is R0 for MethodNewtonRaphson.
	ReferenceResistance float64
	// Degree is the fit degree for MethodPolyFit.
	Degree int
}

func (r Request) withDefaults() Request {
	if r.Method == "" {
		r.Method = MethodNewtonRaphson
	}
	if r.ReferenceResistance == 0 {
		r.ReferenceResistance = rtd.DefaultR0
	}
	if r.Degree == 0 && r.Method == MethodPolyFit {
		r.Degree = polyfit.DefaultDegree
	}
	return r
}

// Row is the outcome for one reading.
type Row struct {
	Resistance float64
	Measured   float64
	// Calculated and Error are only meaningful when Err is nil.
	Calculated float64
	Error      float64
	Err        error
}

func (r Row) OK() bool {
	return r.Err == nil
}

// Convert converts one batch. The returned rows follow the order of points.
// MethodPolyFit fits once over the whole batch; if that fit fails, the error
// is returned and no rows are produced.
func Convert(points []polyfit.Point, req Request) ([]Row, error) {
	req = req.withDefaults()

	rows := make([]Row, len(points))
	for i, p := range points {
		rows[i] = Row{Resistance: p.R, Measured: p.T}
	}

	switch req.Method {
	case MethodNewtonRaphson:
		for i := range rows {
			rows[i].Calculated, rows[i].Err = rtd.FindTemperature(rows[i].Resistance, req.ReferenceResistance)
		}
	case MethodPolyFit:
		poly, err := polyfit.Fit(points, req.Degree)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			rows[i].Calculated = poly.Evaluate(rows[i].Resistance)
		}
	default:
		return nil, fmt.Errorf("unknown method %q", req.Method)
	}

	var (
		idx        []int
		measured   []float64
		calculated []float64
	)
	for i, r := range rows {
		if r.OK() {
			idx = append(idx, i)
			measured = append(measured, r.Measured)
			calculated = append(calculated, r.Calculated)
		}
	}
	errs, err := ComputeErrors(measured, calculated)
	if err != nil {
		return nil, err
	}
	for j, i := range idx {
		rows[i].Error = errs[j]
	}

	return rows, nil
}

// Batch is a named set of readings, typically one uploaded file.
type Batch struct {
	Name   string
	Points []polyfit.Point
}

// BatchResult is the outcome of one Batch. Err is set when the batch as a
// whole failed, e.g. an underdetermined fit.
type BatchResult struct {
	Name string
	Rows []Row
	Err  error
}

// ConvertAll converts independent batches concurrently. Results are in the
// same order as batches. The returned error is only non-nil when ctx is done.
func ConvertAll(ctx context.Context, batches []Batch, req Request) ([]BatchResult, error) {
	results := make([]BatchResult, len(batches))

	g, ctx := errgroup.WithContext(ctx)
	for i, b := range batches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rows, err := Convert(b.Points, req)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"batch":  b.Name,
					"method": req.Method,
					"kind":   Kind(err),
				}).Warnf("batch conversion failed: %v", err)
				err = pkgerrors.Wrapf(err, "batch %s", b.Name)
			}
			results[i] = BatchResult{Name: b.Name, Rows: rows, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Stats summarizes a converted batch.
type Stats struct {
	Total     int     `json:"total"`
	Converted int     `json:"converted"`
	Failed    int     `json:"failed"`
	MaxError  float64 `json:"maxError"`
	MeanError float64 `json:"meanError"`
}

func Summary(rows []Row) Stats {
	s := Stats{Total: len(rows)}
	sum := 0.0
	for _, r := range rows {
		if !r.OK() {
			s.Failed++
			continue
		}
		s.Converted++
		sum += r.Error
		if r.Error > s.MaxError {
			s.MaxError = r.Error
		}
	}
	if s.Converted > 0 {
		s.MeanError = sum / float64(s.Converted)
	}
	return s
}
