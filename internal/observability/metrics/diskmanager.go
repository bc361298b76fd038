package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DiskManagerMetrics tracks the output directory guard and retention sweeps.
type DiskManagerMetrics struct {
	collectorSet

	usedBytes     prometheus.Gauge
	totalBytes    prometheus.Gauge
	usedPercent   prometheus.Gauge
	checkDuration prometheus.Histogram
	checkErrors   prometheus.Counter
	refusedSaves  prometheus.Counter
}

// NewDiskManagerMetrics creates the disk metrics and registers them on registry.
func NewDiskManagerMetrics(registry *prometheus.Registry) (*DiskManagerMetrics, error) {
	m := &DiskManagerMetrics{
		usedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "diskmanager_disk_usage_bytes",
			Help: "Bytes used on the output filesystem",
		}),
		totalBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "diskmanager_disk_total_bytes",
			Help: "Size of the output filesystem in bytes",
		}),
		usedPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "diskmanager_disk_utilization_percentage",
			Help: "Output filesystem usage in percent",
		}),
		checkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "diskmanager_disk_check_duration_seconds",
			Help:    "Time spent sampling filesystem usage",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
		checkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskmanager_disk_check_errors_total",
			Help: "Usage samples that failed",
		}),
		refusedSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diskmanager_saves_refused_total",
			Help: "Saves refused because the output disk was over the limit",
		}),
	}
	m.collectorSet = collectorSet{m.usedBytes, m.totalBytes, m.usedPercent, m.checkDuration, m.checkErrors, m.refusedSaves}

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register disk metrics: %w", err)
	}
	return m, nil
}

// ObserveCheck records one usage sample. On err only the duration and the
// error count change.
func (m *DiskManagerMetrics) ObserveCheck(elapsed time.Duration, used, total uint64, err error) {
	m.checkDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.checkErrors.Inc()
		return
	}
	m.usedBytes.Set(float64(used))
	m.totalBytes.Set(float64(total))
	if total == 0 {
		m.usedPercent.Set(0)
		return
	}
	m.usedPercent.Set(float64(used) / float64(total) * PercentageFactor)
}

// RecordSaveRefused counts a save refused by the usage limit.
func (m *DiskManagerMetrics) RecordSaveRefused() { m.refusedSaves.Inc() }
