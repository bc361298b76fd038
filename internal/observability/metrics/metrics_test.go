package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	h, ok := o.(prometheus.Histogram)
	require.True(t, ok)
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestCaptureMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewCaptureMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordPush("audio", false, 1, 100)
	m.RecordPush("audio", true, 1, 100)

	assert.InDelta(t, 2, counterValue(t, m.pushesTotal.WithLabelValues("audio")), 0)
	assert.InDelta(t, 1, counterValue(t, m.evictionsTotal.WithLabelValues("audio")), 0)
	assert.InDelta(t, 200, counterValue(t, m.ingestBytes.WithLabelValues("audio")), 0)
	assert.InDelta(t, 1, m.BufferLength("audio"), 0)
	assert.Zero(t, m.BufferLength("video"))
}

func TestCaptureMetricsDeviceDrops(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewCaptureMetrics(registry)
	require.NoError(t, err)

	var dropped uint64 = 3
	require.NoError(t, m.TrackDeviceDrops(func() uint64 { return dropped }))
	require.Error(t, m.TrackDeviceDrops(func() uint64 { return 0 }), "second registration")

	value := func() float64 {
		families, err := registry.Gather()
		require.NoError(t, err)
		for _, f := range families {
			if f.GetName() == "capture_device_dropped_total" {
				return f.GetMetric()[0].GetCounter().GetValue()
			}
		}
		t.Fatal("capture_device_dropped_total not gathered")
		return 0
	}
	assert.InDelta(t, 3, value(), 0)

	dropped = 7
	assert.InDelta(t, 7, value(), 0)
}

func TestSaveMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewSaveMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordSave("video", 0.5, 4096, 0)
	m.RecordSaveError("av", "disk-usage", 0.01)
	m.JobStarted()
	m.JobStarted()
	m.JobFinished()

	assert.InDelta(t, 1, counterValue(t, m.savesTotal.WithLabelValues("video", StatusSuccess)), 0)
	assert.InDelta(t, 1, counterValue(t, m.savesTotal.WithLabelValues("av", StatusError)), 0)
	assert.InDelta(t, 1, counterValue(t, m.saveErrors.WithLabelValues("disk-usage")), 0)
	assert.InDelta(t, 4096, counterValue(t, m.bytesWritten.WithLabelValues("video")), 0)
	assert.Zero(t, counterValue(t, m.skippedFramesTotal))
	assert.InDelta(t, 1, gaugeValue(t, m.jobsInFlight), 0)
	assert.Equal(t, uint64(1), histogramCount(t, m.saveDuration.WithLabelValues("av")))
}

func TestDiskManagerMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewDiskManagerMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveCheck(time.Millisecond, 25, 100, nil)
	assert.InDelta(t, 25, gaugeValue(t, m.usedPercent), 1e-9)

	m.ObserveCheck(time.Millisecond, 0, 0, assert.AnError)
	assert.InDelta(t, 25, gaugeValue(t, m.usedPercent), 1e-9)
	assert.InDelta(t, 1, counterValue(t, m.checkErrors), 0)

	m.ObserveCheck(time.Millisecond, 0, 0, nil)
	assert.Zero(t, gaugeValue(t, m.usedPercent))
	assert.Equal(t, uint64(3), histogramCount(t, m.checkDuration))
}

func TestMQTTMetricsConnectionStatus(t *testing.T) {
	t.Parallel()

	m, err := NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SetConnected(true)
	assert.InDelta(t, 1, gaugeValue(t, m.connected), 0)
	assert.Positive(t, gaugeValue(t, m.lastConnect))

	m.SetConnected(false)
	assert.Zero(t, gaugeValue(t, m.connected))

	m.RecordError(MQTTStagePublish)
	m.RecordError(MQTTStagePublish)
	m.RecordPublished(120, 5*time.Millisecond)
	assert.InDelta(t, 2, counterValue(t, m.errors.WithLabelValues(MQTTStagePublish)), 0)
	assert.InDelta(t, 1, counterValue(t, m.published), 0)
	assert.Equal(t, uint64(1), histogramCount(t, m.latency))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewDatastoreMetrics(reg)
	require.NoError(t, err)
	_, err = NewDatastoreMetrics(reg)
	assert.Error(t, err)
}

func TestTestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewTestRecorder()
	r.RecordOperation(OpSave, StatusSuccess)
	r.RecordOperation(OpSave, StatusSuccess)
	r.RecordDuration(OpSave, 0.25)
	r.RecordError(OpSave, "file-io")

	tr := r.(*TestRecorder)
	assert.Equal(t, 2, tr.OperationCount(OpSave, StatusSuccess))
	assert.Equal(t, []float64{0.25}, tr.Durations(OpSave))
	assert.Equal(t, 1, tr.ErrorCount(OpSave, "file-io"))
	assert.True(t, tr.HasRecordedMetrics())
	assert.False(t, NewTestRecorder().HasRecordedMetrics())
}
