package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/DA1F/RoAnalyzer/internal/logger"
)

// CaptureMetrics tracks the two capture rings.
type CaptureMetrics struct {
	bufferLength   *prometheus.GaugeVec
	pushesTotal    *prometheus.CounterVec
	evictionsTotal *prometheus.CounterVec
	ingestBytes    *prometheus.CounterVec
	registry       *prometheus.Registry
}

// NewCaptureMetrics creates and registers capture buffer metrics.
func NewCaptureMetrics(registry *prometheus.Registry) (*CaptureMetrics, error) {
	m := &CaptureMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register capture metrics: %w", err)
	}
	return m, nil
}

func (m *CaptureMetrics) initMetrics() {
	m.bufferLength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "capture_buffer_length",
			Help: "Records currently retained per stream",
		},
		[]string{"stream"}, // stream: video, audio
	)

	m.pushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_pushes_total",
			Help: "Total records pushed per stream",
		},
		[]string{"stream"},
	)

	m.evictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_evictions_total",
			Help: "Total records evicted to make room per stream",
		},
		[]string{"stream"},
	)

	m.ingestBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_ingest_bytes_total",
			Help: "Total payload bytes pushed per stream",
		},
		[]string{"stream"},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *CaptureMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.bufferLength.Describe(ch)
	m.pushesTotal.Describe(ch)
	m.evictionsTotal.Describe(ch)
	m.ingestBytes.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *CaptureMetrics) Collect(ch chan<- prometheus.Metric) {
	m.bufferLength.Collect(ch)
	m.pushesTotal.Collect(ch)
	m.evictionsTotal.Collect(ch)
	m.ingestBytes.Collect(ch)
}

// RecordPush records one push into stream's ring.
func (m *CaptureMetrics) RecordPush(stream string, evicted bool, length, payloadBytes int) {
	m.pushesTotal.WithLabelValues(stream).Inc()
	if evicted {
		m.evictionsTotal.WithLabelValues(stream).Inc()
	}
	m.bufferLength.WithLabelValues(stream).Set(float64(length))
	m.ingestBytes.WithLabelValues(stream).Add(float64(payloadBytes))
}

// TrackDeviceDrops exports dropped as capture_device_dropped_total. The
// function is read at scrape time.
func (m *CaptureMetrics) TrackDeviceDrops(dropped func() uint64) error {
	c := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "capture_device_dropped_total",
			Help: "Audio device chunks discarded because ingest fell behind",
		},
		func() float64 { return float64(dropped()) },
	)
	if err := m.registry.Register(c); err != nil {
		return fmt.Errorf("failed to register device drop counter: %w", err)
	}
	return nil
}

// BufferLength returns the last reported length for stream.
func (m *CaptureMetrics) BufferLength(stream string) float64 {
	metric := &dto.Metric{}
	if err := m.bufferLength.WithLabelValues(stream).Write(metric); err != nil {
		getLogger().Warn("failed to read buffer length metric", logger.String("stream", stream), logger.Error(err))
		return 0
	}
	return metric.GetGauge().GetValue()
}
