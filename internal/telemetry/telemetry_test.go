package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/errors"
)

func TestGenerateSystemID(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 20 {
		id, err := GenerateSystemID()
		require.NoError(t, err)
		assert.True(t, isValidSystemID(id), id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestLoadOrCreateSystemID(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")
	first, err := LoadOrCreateSystemID(dir)
	require.NoError(t, err)

	second, err := LoadOrCreateSystemID(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".system_id"), []byte("garbage"), 0o600))
	third, err := LoadOrCreateSystemID(dir)
	require.NoError(t, err)
	assert.NotEqual(t, "garbage", third)
	assert.True(t, isValidSystemID(third))
}

func TestIsValidSystemID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{"ABCD-1234-EF56", true},
		{"abcd-1234-ef56", true},
		{"ABCD1234EF56", false},
		{"ABCD-1234-EF5G", false},
		{"ABCD_1234-EF56", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isValidSystemID(tt.id), tt.id)
	}
}

func TestInitSentryDisabled(t *testing.T) {
	require.NoError(t, InitSentry(&conf.SentrySettings{}, buildinfo.NewContext("1.0.0", "", "")))
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestScrubEvent(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "camera-host",
		User:       sentry.User{IPAddress: "192.168.1.2"},
		Request:    &sentry.Request{URL: "http://camera-host/api"},
		Contexts: map[string]sentry.Context{
			"device":      {"name": "cam"},
			"os":          {"name": "linux"},
			"application": {"name": "streampuffer"},
		},
		Message:   "publish to tcp://user:pw@broker.lan:1883 failed",
		Exception: []sentry.Exception{{Value: "dial rtsp://10.0.0.3:554/cam"}},
	}

	out := scrubEvent(event, nil)
	assert.Empty(t, out.ServerName)
	assert.Empty(t, out.User.IPAddress)
	assert.Nil(t, out.Request)
	assert.NotContains(t, out.Contexts, "device")
	assert.NotContains(t, out.Contexts, "os")
	assert.Contains(t, out.Contexts, "application")
	assert.NotContains(t, out.Message, "broker.lan")
	assert.NotContains(t, out.Message, "pw")
	assert.NotContains(t, out.Exception[0].Value, "10.0.0.3")
}
