// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// validSources are the producers the record command can start.
var validSources = []string{"synthetic", "device", "none"}

func isValidSource(s string) bool {
	return slices.Contains(validSources, s)
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		func(s *Settings) error { return validateVideoSettings(&s.Capture.Video) },
		func(s *Settings) error { return validateAudioSettings(&s.Capture.Audio) },
		func(s *Settings) error { return validateCaptureSource(s.Capture.Source) },
		func(s *Settings) error { return validateOutputSettings(&s.Output) },
		func(s *Settings) error { return validateWebServerSettings(&s.WebServer) },
		func(s *Settings) error { return validateDatabaseSettings(&s.Database) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) error { return validateNotifySettings(&s.Notify) },
		func(s *Settings) error { return validateSentrySettings(&s.Sentry) },
		func(s *Settings) error { return validateLoggingLevels(s) },
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateVideoSettings(settings *VideoSettings) error {
	var errs []string

	if settings.Capacity < 1 {
		errs = append(errs, fmt.Sprintf("video capacity must be at least 1, got %d", settings.Capacity))
	}
	if settings.FPS < 1 {
		errs = append(errs, fmt.Sprintf("video fps must be positive, got %d", settings.FPS))
	}
	// YUV 4:2:0 subsampling needs even dimensions
	if settings.Width < 2 || settings.Width%2 != 0 {
		errs = append(errs, fmt.Sprintf("video width must be a positive even number, got %d", settings.Width))
	}
	if settings.Height < 2 || settings.Height%2 != 0 {
		errs = append(errs, fmt.Sprintf("video height must be a positive even number, got %d", settings.Height))
	}
	if settings.BitRate < 0 {
		errs = append(errs, fmt.Sprintf("video bitrate must be non-negative, got %d", settings.BitRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("video settings errors: %v", errs)
	}
	return nil
}

func validateAudioSettings(settings *AudioSettings) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string
	if settings.Capacity < 1 {
		errs = append(errs, fmt.Sprintf("audio capacity must be at least 1, got %d", settings.Capacity))
	}
	if settings.SampleRate < 1 {
		errs = append(errs, fmt.Sprintf("audio sample rate must be positive, got %d", settings.SampleRate))
	}
	if settings.Channels != 1 && settings.Channels != 2 {
		errs = append(errs, fmt.Sprintf("audio channels must be 1 or 2, got %d", settings.Channels))
	}
	if settings.BitRate < 0 {
		errs = append(errs, fmt.Sprintf("audio bitrate must be non-negative, got %d", settings.BitRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("audio settings errors: %v", errs)
	}
	return nil
}

func validateCaptureSource(source string) error {
	if !isValidSource(source) {
		return fmt.Errorf("capture source must be one of %s, got %q", strings.Join(validSources, ", "), source)
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	if settings.Path == "" {
		return errors.New("output path is required")
	}
	if settings.Template == "" {
		return errors.New("output template is required")
	}
	if strings.ContainsAny(settings.Template, `/\`) {
		return fmt.Errorf("output template must be a file name, got %q", settings.Template)
	}
	if settings.Timeout < 0 {
		return fmt.Errorf("output timeout must be non-negative, got %s", settings.Timeout)
	}
	if settings.MaxConcurrent < 1 {
		return fmt.Errorf("output maxconcurrent must be at least 1, got %d", settings.MaxConcurrent)
	}
	if settings.MaxDiskUsage != "" {
		usage, err := ParsePercentage(settings.MaxDiskUsage)
		if err != nil {
			return fmt.Errorf("invalid output maxdiskusage %q: %w", settings.MaxDiskUsage, err)
		}
		if usage <= 0 || usage > 100 {
			return fmt.Errorf("output maxdiskusage must be within (0, 100], got %g", usage)
		}
	}
	if settings.Retention.MaxAge < 0 || settings.Retention.MinFiles < 0 {
		return errors.New("output retention maxage and minfiles must not be negative")
	}
	return nil
}

// validateWebServerSettings validates the WebServer-specific settings
func validateWebServerSettings(settings *WebServerSettings) error {
	if settings.Enabled {
		if settings.Listen == "" {
			return errors.New("WebServer listen address is required when enabled")
		}
		if err := validateEnvListen(settings.Listen); err != nil {
			return fmt.Errorf("WebServer %w", err)
		}
	}
	if settings.MaxConnections < 0 {
		return errors.New("WebServer maxconnections must not be negative")
	}
	if settings.IngestRate < 0 || settings.IngestBurst < 0 {
		return errors.New("WebServer ingest rate and burst must not be negative")
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	if !settings.Enabled {
		return nil
	}
	switch settings.Type {
	case "", "sqlite":
		if settings.Path == "" {
			return errors.New("database path is required for sqlite")
		}
	case "mysql":
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			return errors.New("database mysql host and database are required for mysql")
		}
	default:
		return fmt.Errorf("database type %q is not one of sqlite, mysql", settings.Type)
	}
	return nil
}

func validateNotifySettings(settings *NotifySettings) error {
	if !settings.Enabled {
		return nil
	}
	if len(settings.URLs) == 0 {
		return errors.New("notify urls are required when enabled")
	}
	if settings.Timeout <= 0 {
		return errors.New("notify timeout must be positive")
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.Broker == "" {
		return errors.New("MQTT broker is required when enabled")
	}
	if err := validateEnvBrokerURL(settings.Broker); err != nil {
		return fmt.Errorf("MQTT %w", err)
	}
	if settings.Topic == "" {
		return errors.New("MQTT topic is required when enabled")
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return errors.New("sentry DSN is required when enabled")
	}
	return nil
}

func validateLoggingLevels(settings *Settings) error {
	check := func(name, level string) error {
		if level == "" || slices.Contains(validLogLevels, level) {
			return nil
		}
		return fmt.Errorf("logging %s level %q is not one of %s", name, level, strings.Join(validLogLevels, ", "))
	}

	cfg := &settings.Logging
	if err := check("default", cfg.DefaultLevel); err != nil {
		return err
	}
	if cfg.Console != nil {
		if err := check("console", cfg.Console.Level); err != nil {
			return err
		}
	}
	if cfg.FileOutput != nil {
		if err := check("file", cfg.FileOutput.Level); err != nil {
			return err
		}
	}
	for module, level := range cfg.ModuleLevels {
		if err := check(module, level); err != nil {
			return err
		}
	}
	return nil
}
