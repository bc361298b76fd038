// Package observability provides Prometheus metrics for the capture service.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry     *prometheus.Registry
	Capture      *metrics.CaptureMetrics
	Save         *metrics.SaveMetrics
	MQTT         *metrics.MQTTMetrics
	Datastore    *metrics.DatastoreMetrics
	DiskManager  *metrics.DiskManagerMetrics
	Notification *metrics.NotificationMetrics
	HTTP         *metrics.HTTPMetrics
	Errors       *metrics.ErrorMetrics
}

// NewMetrics creates a registry with every collector registered. Each call
// gets its own registry, so instances never conflict.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m := &Metrics{registry: registry}

	var err error
	if m.Capture, err = metrics.NewCaptureMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to create capture metrics: %w", err)
	}
	if m.Save, err = metrics.NewSaveMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to create save metrics: %w", err)
	}
	if m.MQTT, err = metrics.NewMQTTMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}
	if m.Datastore, err = metrics.NewDatastoreMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to create datastore metrics: %w", err)
	}
	if m.DiskManager, err = metrics.NewDiskManagerMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to create disk manager metrics: %w", err)
	}
	if m.Notification, err = metrics.NewNotificationMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to create notification metrics: %w", err)
	}
	if m.HTTP, err = metrics.NewHTTPMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	if m.Errors, err = metrics.NewErrorMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to create error metrics: %w", err)
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m, nil
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLog{log: getLogger()},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// InstallErrorHook counts every error built through the errors package.
func (m *Metrics) InstallErrorHook() {
	errors.AddErrorHook(func(ee *errors.EnhancedError) {
		m.Errors.RecordError(ee.GetComponent(), ee.GetCategory())
	})
}

// promErrorLog adapts the structured logger to promhttp.Logger.
type promErrorLog struct {
	log logger.Logger
}

func (p promErrorLog) Println(v ...any) {
	p.log.Error("metrics handler error", logger.String("detail", fmt.Sprint(v...)))
}
