package conf

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEnvBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		wantErr bool
	}{
		{"true", false},
		{"0", false},
		{" TRUE ", false},
		{"yes", true},
		{"", true},
		{"1.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := validateEnvBool(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid boolean value")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEnvValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		validate func(string) error
		value    string
		wantErr  bool
	}{
		{"fps ok", validateEnvPositiveInt, "30", false},
		{"fps zero", validateEnvPositiveInt, "0", true},
		{"fps text", validateEnvPositiveInt, "fast", true},
		{"mono", validateEnvChannels, "1", false},
		{"surround", validateEnvChannels, "6", true},
		{"source none", validateEnvSource, "none", false},
		{"source rtsp", validateEnvSource, "rtsp", true},
		{"listen", validateEnvListen, "0.0.0.0:8090", false},
		{"listen no port", validateEnvListen, "localhost", true},
		{"broker tcp", validateEnvBrokerURL, "tcp://broker:1883", false},
		{"broker no host", validateEnvBrokerURL, "tcp://", true},
		{"broker http", validateEnvBrokerURL, "http://broker", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigureEnvironmentVariables(t *testing.T) {
	t.Run("invalid values are reported by name", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		t.Setenv("STREAMPUFFER_DEBUG", "maybe")
		t.Setenv("STREAMPUFFER_AUDIO_CHANNELS", "")

		err := configureEnvironmentVariables()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STREAMPUFFER_DEBUG")
		assert.Contains(t, err.Error(), "STREAMPUFFER_AUDIO_CHANNELS")
	})

	t.Run("valid values bind", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		t.Setenv("STREAMPUFFER_VIDEO_WIDTH", "1280")

		require.NoError(t, configureEnvironmentVariables())
		assert.Equal(t, 1280, viper.GetInt("capture.video.width"))
	})
}
