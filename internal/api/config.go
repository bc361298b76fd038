// Package api provides the HTTP server for the capture service. The JSON
// endpoints live in the v1 subpackage.
package api

import (
	"fmt"
	"net"
	"time"

	"github.com/labstack/gommon/bytes"

	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// minBodyLimit keeps JSON requests working when frames are tiny.
	minBodyLimit = 1 << 20
	// bodyHeadroom absorbs the rounding of the formatted limit.
	bodyHeadroom = 64 << 10
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen string // host:port

	AllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Limits
	BodyLimit      string  // e.g. "10M"
	MaxConnections int     // 0 for no limit
	IngestRate     float64 // requests per second per client, 0 for no limit
	IngestBurst    int

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       "10M",
	}
}

// ConfigFromSettings creates a Config from the application settings. The
// body limit is sized to hold two raw frames so an ingest request always
// fits.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	if settings.WebServer.Listen != "" {
		cfg.Listen = settings.WebServer.Listen
	}
	cfg.MaxConnections = settings.WebServer.MaxConnections
	cfg.IngestRate = settings.WebServer.IngestRate
	cfg.IngestBurst = settings.WebServer.IngestBurst
	cfg.BodyLimit = BodyLimitFor(settings.Capture.Video.Width, settings.Capture.Video.Height)
	cfg.Debug = settings.Debug

	return cfg
}

// BodyLimitFor returns the body limit for RGB24 frames of the given size.
func BodyLimitFor(width, height int) string {
	limit := max(int64(width)*int64(height)*3*2+bodyHeadroom, minBodyLimit)
	return bytes.Format(limit)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if _, err := bytes.Parse(c.BodyLimit); err != nil {
		return fmt.Errorf("invalid body limit %q: %w", c.BodyLimit, err)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("max connections must not be negative")
	}
	if c.IngestRate < 0 {
		return fmt.Errorf("ingest rate must not be negative")
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: address=%s, body_limit=%s, max_connections=%d, ingest_rate=%g",
		c.Listen, c.BodyLimit, c.MaxConnections, c.IngestRate)
}
