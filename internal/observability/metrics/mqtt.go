package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT error stages.
const (
	MQTTStageConnect        = "connect"
	MQTTStagePublish        = "publish"
	MQTTStageConnectionLost = "connection_lost"
)

// MQTTMetrics tracks the broker connection that announces recordings.
type MQTTMetrics struct {
	collectorSet

	connected   prometheus.Gauge
	lastConnect prometheus.Gauge
	published   prometheus.Counter
	errors      *prometheus.CounterVec
	reconnects  prometheus.Counter
	payload     prometheus.Histogram
	latency     prometheus.Histogram
}

// NewMQTTMetrics creates the MQTT metrics and registers them on registry.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_connected",
			Help: "1 while connected to the broker",
		}),
		lastConnect: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_last_connect_timestamp_seconds",
			Help: "Unix time of the last successful broker connection",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_events_published_total",
			Help: "Recording events accepted by the broker",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_errors_total",
			Help: "MQTT failures by stage",
		}, []string{"stage"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_reconnects_total",
			Help: "Automatic reconnection attempts",
		}),
		payload: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_payload_bytes",
			Help:    "Size of published event payloads",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_publish_duration_seconds",
			Help:    "Time until the broker acknowledged a publish",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	m.collectorSet = collectorSet{m.connected, m.lastConnect, m.published, m.errors, m.reconnects, m.payload, m.latency}

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// SetConnected updates the connection gauge. A connect also stamps the last
// connect time.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if !connected {
		m.connected.Set(0)
		return
	}
	m.connected.Set(1)
	m.lastConnect.SetToCurrentTime()
}

// RecordPublished counts an acknowledged publish.
func (m *MQTTMetrics) RecordPublished(payloadBytes int, elapsed time.Duration) {
	m.published.Inc()
	m.payload.Observe(float64(payloadBytes))
	m.latency.Observe(elapsed.Seconds())
}

// RecordError counts a failure at one of the MQTTStage values.
func (m *MQTTMetrics) RecordError(stage string) { m.errors.WithLabelValues(stage).Inc() }

// RecordReconnect counts an automatic reconnection attempt.
func (m *MQTTMetrics) RecordReconnect() { m.reconnects.Inc() }
