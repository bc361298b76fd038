package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrorMetrics counts errors built through the errors package.
type ErrorMetrics struct {
	errorsTotal *prometheus.CounterVec
	registry    *prometheus.Registry
}

// NewErrorMetrics creates and registers error metrics.
func NewErrorMetrics(registry *prometheus.Registry) (*ErrorMetrics, error) {
	m := &ErrorMetrics{
		registry: registry,
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total errors by component and category",
			},
			[]string{"component", "category"},
		),
	}
	if err := registry.Register(m.errorsTotal); err != nil {
		return nil, fmt.Errorf("failed to register error metrics: %w", err)
	}
	return m, nil
}

// RecordError counts one error.
func (m *ErrorMetrics) RecordError(component, category string) {
	m.errorsTotal.WithLabelValues(component, category).Inc()
}
