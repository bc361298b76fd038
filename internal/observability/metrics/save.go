package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// SaveMetrics tracks saves of the retained window.
type SaveMetrics struct {
	savesTotal         *prometheus.CounterVec
	saveDuration       *prometheus.HistogramVec
	saveErrors         *prometheus.CounterVec
	skippedFramesTotal prometheus.Counter
	bytesWritten       *prometheus.CounterVec
	jobsInFlight       prometheus.Gauge
	registry           *prometheus.Registry
}

// NewSaveMetrics creates and registers save metrics.
func NewSaveMetrics(registry *prometheus.Registry) (*SaveMetrics, error) {
	m := &SaveMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register save metrics: %w", err)
	}
	return m, nil
}

func (m *SaveMetrics) initMetrics() {
	m.savesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recorder_saves_total",
			Help: "Total saves by output kind and status",
		},
		[]string{"kind", "status"}, // kind: av, video, audio; status: success, error
	)

	m.saveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recorder_save_duration_seconds",
			Help:    "Wall time of a save including encode",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~40s
		},
		[]string{"kind"},
	)

	m.saveErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recorder_save_errors_total",
			Help: "Total failed saves by error category",
		},
		[]string{"category"},
	)

	m.skippedFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recorder_skipped_frames_total",
		Help: "Total malformed video frames skipped during encode",
	})

	m.bytesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recorder_bytes_written_total",
			Help: "Total bytes written to saved files by kind",
		},
		[]string{"kind"},
	)

	m.jobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recorder_jobs_in_flight",
		Help: "Asynchronous save jobs queued or running",
	})
}

// Describe implements the prometheus.Collector interface.
func (m *SaveMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.savesTotal.Describe(ch)
	m.saveDuration.Describe(ch)
	m.saveErrors.Describe(ch)
	m.skippedFramesTotal.Describe(ch)
	m.bytesWritten.Describe(ch)
	m.jobsInFlight.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *SaveMetrics) Collect(ch chan<- prometheus.Metric) {
	m.savesTotal.Collect(ch)
	m.saveDuration.Collect(ch)
	m.saveErrors.Collect(ch)
	m.skippedFramesTotal.Collect(ch)
	m.bytesWritten.Collect(ch)
	m.jobsInFlight.Collect(ch)
}

// RecordSave records a successful save.
func (m *SaveMetrics) RecordSave(kind string, seconds float64, sizeBytes int64, skippedFrames int) {
	m.savesTotal.WithLabelValues(kind, StatusSuccess).Inc()
	m.saveDuration.WithLabelValues(kind).Observe(seconds)
	m.bytesWritten.WithLabelValues(kind).Add(float64(sizeBytes))
	if skippedFrames > 0 {
		m.skippedFramesTotal.Add(float64(skippedFrames))
	}
}

// RecordSaveError records a failed save.
func (m *SaveMetrics) RecordSaveError(kind, category string, seconds float64) {
	m.savesTotal.WithLabelValues(kind, StatusError).Inc()
	m.saveDuration.WithLabelValues(kind).Observe(seconds)
	m.saveErrors.WithLabelValues(category).Inc()
}

// JobStarted increments the in-flight job gauge.
func (m *SaveMetrics) JobStarted() { m.jobsInFlight.Inc() }

// JobFinished decrements the in-flight job gauge.
func (m *SaveMetrics) JobFinished() { m.jobsInFlight.Dec() }
