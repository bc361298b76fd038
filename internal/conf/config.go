// config.go: settings struct for the capture service and functions to load and save it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// VideoSettings describes the raw RGB24 frames pushed by the producer and
// the MPEG-4 stream they are encoded into.
type VideoSettings struct {
	Capacity int // frames retained in the video ring
	FPS      int // nominal frame rate written to the stream header
	Width    int // frame width in pixels
	Height   int // frame height in pixels
	Display  int // display index requested from the producer
	BitRate  int // encoder bit rate in bits per second
}

// AudioSettings describes the interleaved s16le PCM chunks and the AAC stream.
type AudioSettings struct {
	Enabled    bool   // false drops audio from saved windows
	Capacity   int    // chunks retained in the audio ring
	SampleRate int    // samples per second per channel
	Channels   int    // 1 (mono) or 2 (stereo)
	BitRate    int    // AAC bit rate in bits per second
	Device     string // capture device name for the device source, empty for default
}

// CaptureSettings groups producer and buffer settings.
type CaptureSettings struct {
	Source string // synthetic, device or none
	Video  VideoSettings
	Audio  AudioSettings
}

// RetentionSettings controls age-based cleanup of saved recordings.
type RetentionSettings struct {
	MaxAge   time.Duration // 0 keeps recordings forever
	MinFiles int           // newest recordings never removed
}

// OutputSettings controls where saved windows go.
type OutputSettings struct {
	Path          string        // directory for saved files
	Session       string        // value substituted for {session}
	Template      string        // file name template without extension
	Timeout       time.Duration // upper bound for one save
	MaxConcurrent int           // saves allowed to encode at once
	MaxDiskUsage  string        // refuse saves above this usage, e.g. "95%"
	Retention     RetentionSettings
}

// WebServerSettings contains settings for the HTTP API.
type WebServerSettings struct {
	Enabled        bool
	Listen         string  // host:port
	MaxConnections int     // concurrent connections accepted, 0 for no limit
	IngestRate     float64 // ingest requests per second, 0 for no limit
	IngestBurst    int     // ingest requests allowed above the rate
}

// MySQLSettings contains connection settings for a MySQL catalog.
type MySQLSettings struct {
	Host     string
	Port     string
	Username string
	Password string // may reference ${ENV} variables
	// PasswordFile is read instead of Password when set
	PasswordFile string
	Database     string
}

// DatabaseSettings contains settings for the recording catalog.
type DatabaseSettings struct {
	Enabled bool
	Type    string // sqlite or mysql
	Path    string // SQLite file
	MySQL   MySQLSettings
}

// NotifySettings contains settings for push notifications on saved recordings.
type NotifySettings struct {
	Enabled bool
	URLs    []string      // shoutrrr service URLs
	Timeout time.Duration // per-send timeout
}

// MQTTSettings contains settings for recording event notifications.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT
	Broker   string // MQTT (tcp://host:port)
	ClientID string // client identifier, generated when empty
	Topic    string // MQTT topic
	Username string // MQTT username
	Password string // MQTT password, may reference ${ENV} variables
	// PasswordFile is read instead of Password when set
	PasswordFile string
}

// SentrySettings contains settings for error telemetry.
type SentrySettings struct {
	Enabled bool
	DSN     string
	DSNFile string // read instead of DSN when set
}

// Settings is the root configuration.
type Settings struct {
	Debug bool

	Capture   CaptureSettings
	Output    OutputSettings
	WebServer WebServerSettings
	Database  DatabaseSettings
	MQTT      MQTTSettings
	Notify    NotifySettings
	Sentry    SentrySettings
	Logging   logger.LoggingConfig
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configFile, or the first config.yaml found in the default paths when
// configFile is empty, together with STREAMPUFFER_* environment variables.
// A default config file is written when none exists.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// resolveSecrets replaces credential fields with their file or environment
// values.
func resolveSecrets(settings *Settings) error {
	var err error
	if settings.MQTT.Password, err = secrets.Resolve(settings.MQTT.PasswordFile, settings.MQTT.Password); err != nil {
		return fmt.Errorf("mqtt.password: %w", err)
	}
	if settings.Database.MySQL.Password, err = secrets.Resolve(settings.Database.MySQL.PasswordFile, settings.Database.MySQL.Password); err != nil {
		return fmt.Errorf("database.mysql.password: %w", err)
	}
	if settings.Sentry.DSN, err = secrets.Resolve(settings.Sentry.DSNFile, settings.Sentry.DSN); err != nil {
		return fmt.Errorf("sentry.dsn: %w", err)
	}
	for i, u := range settings.Notify.URLs {
		if settings.Notify.URLs[i], err = secrets.ExpandString(u); err != nil {
			return fmt.Errorf("notify.urls[%d]: %w", i, err)
		}
	}
	return nil
}

// initViper sets defaults and environment bindings, then reads the configuration file.
func initViper(configFile string) error {
	viper.SetConfigType("yaml")

	setDefaultConfig()

	// Environment problems are reported but do not stop startup; the
	// validator rejects values that end up unusable.
	if err := configureEnvironmentVariables(); err != nil {
		GetLogger().Warn("environment variable configuration issues", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths)
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the user config directory.
func createDefaultConfig(configPaths []string) error {
	configPath := filepath.Join(configPaths[len(configPaths)-1], configFileName)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// embedded at build time
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return string(data)
}

// GetSettings returns the current settings instance, nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// temp file in the same directory so the rename stays on one filesystem
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer func() { _ = os.Remove(tempFileName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
