package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks the API server. The path label is the route template,
// e.g. /api/v1/jobs/:id, never the raw URL.
type HTTPMetrics struct {
	collectorSet

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	serverFails *prometheus.CounterVec
	respSize    *prometheus.HistogramVec
	rateLimited *prometheus.CounterVec
}

// NewHTTPMetrics creates the API metrics and registers them on registry.
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "API requests by route and status",
		}, []string{"method", "path", "status_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "API request handling time",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		serverFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "API requests answered with a 5xx status",
		}, []string{"method", "path", "error_type"}),
		respSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "API response body size",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor4, BucketCount10),
		}, []string{"method", "path"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Ingest requests rejected by the rate limiter",
		}, []string{"path"}),
	}
	m.collectorSet = collectorSet{m.requests, m.duration, m.serverFails, m.respSize, m.rateLimited}

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	return m, nil
}

// ObserveRequest records one finished request.
func (m *HTTPMetrics) ObserveRequest(method, path string, status int, elapsed time.Duration, respBytes int64) {
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(method, path, code).Inc()
	m.duration.WithLabelValues(method, path).Observe(elapsed.Seconds())
	m.respSize.WithLabelValues(method, path).Observe(float64(respBytes))
	if status >= 500 {
		m.serverFails.WithLabelValues(method, path, code).Inc()
	}
}

// RecordRateLimited counts a request rejected by the rate limiter.
func (m *HTTPMetrics) RecordRateLimited(path string) {
	m.rateLimited.WithLabelValues(path).Inc()
}
