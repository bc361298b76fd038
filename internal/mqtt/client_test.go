package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/observability/metrics"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(nil, logger.LogLevelError, nil)
}

func TestSplitBroker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		broker   string
		host     string
		hostPort string
		isIP     bool
	}{
		{"tcp://broker.local:1883", "broker.local", "broker.local:1883", false},
		{"mqtt://broker.local", "broker.local", "broker.local:1883", false},
		{"192.168.1.10:8883", "192.168.1.10", "192.168.1.10:8883", true},
		{"tcp://10.0.0.1", "10.0.0.1", "10.0.0.1:1883", true},
		{"tcp://[::1]:1884", "::1", "[::1]:1884", true},
		{"ssl://broker.example.com:8883/", "broker.example.com", "broker.example.com:8883", false},
		{"[2001:db8::1]", "2001:db8::1", "[2001:db8::1]:1883", true},
		{"2001:db8::1", "2001:db8::1", "[2001:db8::1]:1883", true},
	}

	for _, tt := range tests {
		t.Run(tt.broker, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.host, brokerHost(tt.broker))
			assert.Equal(t, tt.hostPort, brokerHostPort(tt.broker))
			assert.Equal(t, tt.isIP, brokerIsIP(tt.broker))
		})
	}
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	c := ConfigFromSettings(&conf.MQTTSettings{Broker: "tcp://b:1883", Username: "u"})
	assert.Equal(t, "tcp://b:1883", c.Broker)
	assert.Equal(t, "u", c.Username)
	assert.Equal(t, "streampuffer/recordings", c.Topic)
	assert.Regexp(t, `^streampuffer-[0-9a-f]{8}$`, c.ClientID)
	assert.Equal(t, DefaultConfig().PublishTimeout, c.PublishTimeout)

	c = ConfigFromSettings(&conf.MQTTSettings{Broker: "b", ClientID: "cam-1", Topic: "lab/cam"})
	assert.Equal(t, "cam-1", c.ClientID)
	assert.Equal(t, "lab/cam", c.Topic)
}

func TestNewClientRequiresBroker(t *testing.T) {
	t.Parallel()

	_, err := NewClient(DefaultConfig(), nil, quietLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestPublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Broker = "tcp://127.0.0.1:1883"
	c, err := NewClient(cfg, nil, quietLogger())
	require.NoError(t, err)

	assert.False(t, c.IsConnected())
	err = c.Publish(context.Background(), "t", "x")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))

	c.Disconnect()
}

func TestConnectCooldown(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Broker = "tcp://127.0.0.1:1"
	cfg.ConnectTimeout = 2 * time.Second
	cfg.ReconnectCooldown = time.Hour
	c, err := NewClient(cfg, m, quietLogger())
	require.NoError(t, err)
	defer c.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.Error(t, c.Connect(ctx))
	err = c.Connect(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too recent")
}

type recordingClient struct {
	mu       sync.Mutex
	topics   []string
	payloads []string
	err      error
}

func (r *recordingClient) Connect(context.Context) error { return nil }
func (r *recordingClient) IsConnected() bool             { return true }
func (r *recordingClient) Disconnect()                   {}

func (r *recordingClient) Publish(_ context.Context, topic, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.payloads = append(r.payloads, payload)
	return r.err
}

func TestPublisherTopic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "streampuffer/recordings", NewPublisher(&recordingClient{}, "").Topic())
	assert.Equal(t, "lab/cam", NewPublisher(&recordingClient{}, "/lab/cam/").Topic())
}

func TestPublishRecording(t *testing.T) {
	t.Parallel()

	rc := &recordingClient{}
	p := NewPublisher(rc, "lab/recordings")

	ev := RecordingEvent{
		ID:          "abc",
		Name:        "clip",
		Path:        "recordings/clip.mp4",
		Kind:        "av",
		StartMs:     100,
		EndMs:       900,
		DurationMs:  800,
		VideoFrames: 24,
		SavedAt:     time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishRecording(context.Background(), ev))

	require.Len(t, rc.payloads, 1)
	assert.Equal(t, "lab/recordings", rc.topics[0])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(rc.payloads[0]), &decoded))
	assert.Equal(t, "recordings/clip.mp4", decoded["path"])
	assert.InDelta(t, 800, decoded["durationMs"], 0)
	assert.Equal(t, "2026-10-19T12:00:00Z", decoded["savedAt"])
	assert.NotContains(t, decoded, "skippedFrames")
}
