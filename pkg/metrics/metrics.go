// Package metrics holds the prometheus collectors of the conversion service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/charlie0129/rtdconv/pkg/conversion"
)

const namespace = "rtdconv"

type Metrics struct {
	Rows         *prometheus.CounterVec
	Batches      *prometheus.CounterVec
	AbsError     *prometheus.HistogramVec
	UploadsTotal prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Converted rows by method and outcome kind (empty kind is success).",
		}, []string{"method", "kind"}),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Converted batches by method and outcome kind.",
		}, []string{"method", "kind"}),
		AbsError: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "abs_error_celsius",
			Help:      "Absolute difference between measured and calculated temperature.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method"}),
		UploadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_files_total",
			Help:      "Files accepted for conversion.",
		}),
	}
	reg.MustRegister(m.Rows, m.Batches, m.AbsError, m.UploadsTotal)
	return m
}

// ObserveBatch records the outcome of one batch. A nil receiver is a no-op.
func (m *Metrics) ObserveBatch(method conversion.Method, res conversion.BatchResult) {
	if m == nil {
		return
	}

	m.UploadsTotal.Inc()
	m.Batches.WithLabelValues(string(method), conversion.Kind(res.Err)).Inc()
	for _, r := range res.Rows {
		m.Rows.WithLabelValues(string(method), conversion.Kind(r.Err)).Inc()
		if r.OK() {
			m.AbsError.WithLabelValues(string(method)).Observe(r.Error)
		}
	}
}

// ObserveSingle records a single-value conversion.
func (m *Metrics) ObserveSingle(err error) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(string(conversion.MethodNewtonRaphson), conversion.Kind(err)).Inc()
}
