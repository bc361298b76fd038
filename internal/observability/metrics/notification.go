package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics tracks push notifications. Every series is labeled by
// provider name.
type NotificationMetrics struct {
	collectorSet

	DeliveriesTotal  *prometheus.CounterVec // provider, status
	DeliveryDuration *prometheus.HistogramVec
	ProviderTimeouts *prometheus.CounterVec
}

// NewNotificationMetrics creates the notification metrics and registers them
// on registry.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Notification delivery attempts by provider and outcome",
		}, []string{"provider", "status"}),
		DeliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_delivery_duration_seconds",
			Help:    "Time until a provider accepted or rejected a notification",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		}, []string{"provider"}),
		ProviderTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_provider_timeouts_total",
			Help: "Deliveries abandoned at their deadline",
		}, []string{"provider"}),
	}
	m.collectorSet = collectorSet{m.DeliveriesTotal, m.DeliveryDuration, m.ProviderTimeouts}

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

// ObserveDelivery records one attempt. A deadline error also counts as a
// timeout.
func (m *NotificationMetrics) ObserveDelivery(provider string, elapsed time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.DeliveriesTotal.WithLabelValues(provider, status).Inc()
	m.DeliveryDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	if errors.Is(err, context.DeadlineExceeded) {
		m.ProviderTimeouts.WithLabelValues(provider).Inc()
	}
}
