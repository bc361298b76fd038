// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "STREAMPUFFER_DEBUG", validateEnvBool},
		{"capture.source", "STREAMPUFFER_SOURCE", validateEnvSource},

		{"capture.video.fps", "STREAMPUFFER_VIDEO_FPS", validateEnvPositiveInt},
		{"capture.video.width", "STREAMPUFFER_VIDEO_WIDTH", validateEnvPositiveInt},
		{"capture.video.height", "STREAMPUFFER_VIDEO_HEIGHT", validateEnvPositiveInt},
		{"capture.video.capacity", "STREAMPUFFER_VIDEO_CAPACITY", validateEnvPositiveInt},

		{"capture.audio.enabled", "STREAMPUFFER_AUDIO_ENABLED", validateEnvBool},
		{"capture.audio.samplerate", "STREAMPUFFER_AUDIO_SAMPLERATE", validateEnvPositiveInt},
		{"capture.audio.channels", "STREAMPUFFER_AUDIO_CHANNELS", validateEnvChannels},
		{"capture.audio.capacity", "STREAMPUFFER_AUDIO_CAPACITY", validateEnvPositiveInt},
		{"capture.audio.device", "STREAMPUFFER_AUDIO_DEVICE", nil},

		{"output.path", "STREAMPUFFER_OUTPUT_PATH", nil},
		{"webserver.listen", "STREAMPUFFER_LISTEN", validateEnvListen},
		{"database.path", "STREAMPUFFER_DATABASE_PATH", nil},

		{"mqtt.broker", "STREAMPUFFER_MQTT_BROKER", validateEnvBrokerURL},
		{"mqtt.username", "STREAMPUFFER_MQTT_USERNAME", nil},
		{"mqtt.password", "STREAMPUFFER_MQTT_PASSWORD", nil},
		{"mqtt.passwordfile", "STREAMPUFFER_MQTT_PASSWORD_FILE", nil},
		{"database.mysql.passwordfile", "STREAMPUFFER_MYSQL_PASSWORD_FILE", nil},

		{"sentry.dsn", "STREAMPUFFER_SENTRY_DSN", nil},
		{"sentry.dsnfile", "STREAMPUFFER_SENTRY_DSN_FILE", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		// present-but-empty values are validated too
		if binding.Validate != nil {
			if envValue, ok := os.LookupEnv(binding.EnvVar); ok {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// configureEnvironmentVariables binds STREAMPUFFER_* variables to config keys.
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}

func validateEnvChannels(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid channel count: %w", err)
	}
	if n != 1 && n != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", n)
	}
	return nil
}

func validateEnvSource(value string) error {
	if !isValidSource(strings.TrimSpace(value)) {
		return fmt.Errorf("source must be one of %s", strings.Join(validSources, ", "))
	}
	return nil
}

func validateEnvListen(value string) error {
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("listen address must be host:port: %w", err)
	}
	return nil
}

func validateEnvBrokerURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts":
	default:
		return fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("broker URL has no host")
	}
	return nil
}
