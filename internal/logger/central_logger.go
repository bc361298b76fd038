package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/DA1F/RoAnalyzer/internal/errors"
)

// traceLevelValue sits one step below slog.LevelDebug.
const traceLevelValue = slog.Level(-8)

var (
	global   *CentralLogger
	globalMu sync.Mutex
)

// SetGlobal installs cl as the process logger. main calls it once after the
// configuration is loaded.
func SetGlobal(cl *CentralLogger) {
	globalMu.Lock()
	global = cl
	globalMu.Unlock()
}

// Global returns the process logger. Before SetGlobal it is an info-level
// console logger, so packages can log during tests and early startup.
func Global() *CentralLogger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		cfg := &LoggingConfig{}
		applyConfigDefaults(cfg)
		global = &CentralLogger{
			config:   cfg,
			timezone: time.Local,
			routes:   map[string]io.WriteCloser{},
			levels:   map[string]slog.Level{},
			base:     newTextHandler(os.Stdout, slog.LevelInfo, time.Local),
		}
	}
	return global
}

type contextKey string

// TraceIDKey is the context key WithTraceID stores under.
var TraceIDKey = contextKey("trace_id")

// WithTraceID attaches a trace ID that WithContext will add to log entries.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func traceIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}

// CentralLogger owns the output sinks and hands out module loggers. A module
// listed under modules gets its own rotated file; every other module shares
// the console and main file sinks.
type CentralLogger struct {
	mu       sync.RWMutex
	config   *LoggingConfig
	timezone *time.Location
	base     slog.Handler
	mainFile io.WriteCloser
	routes   map[string]io.WriteCloser
	levels   map[string]slog.Level
}

// NewCentralLogger opens the configured sinks. On error nothing is left open.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{
		config:   cfg,
		timezone: tz,
		routes:   make(map[string]io.WriteCloser, len(cfg.ModuleOutputs)),
		levels:   make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, level := range cfg.ModuleLevels {
		cl.levels[module] = parseLogLevel(level)
	}

	if err := cl.openBaseSinks(); err != nil {
		return nil, fmt.Errorf("failed to create base handler: %w", err)
	}
	if err := cl.openModuleRoutes(); err != nil {
		_ = cl.closeLocked()
		return nil, err
	}
	return cl, nil
}

func loadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
	}
	return tz, nil
}

func (cl *CentralLogger) openBaseSinks() error {
	var sinks []slog.Handler
	if c := cl.config.Console; c != nil && c.Enabled {
		sinks = append(sinks, newTextHandler(os.Stdout, parseLogLevel(c.Level), cl.timezone))
	}
	if f := cl.config.FileOutput; f != nil && f.Enabled {
		w, err := newRotatingWriter(f.Path, f.rotation())
		if err != nil {
			return err
		}
		cl.mainFile = w
		sinks = append(sinks, newJSONHandler(w, parseLogLevel(f.Level), cl.timezone))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, newTextHandler(os.Stdout, parseLogLevel(cl.config.DefaultLevel), cl.timezone))
	}
	cl.base = newFanoutHandler(sinks...)
	return nil
}

func (cl *CentralLogger) openModuleRoutes() error {
	for module, out := range cl.config.ModuleOutputs {
		if !out.Enabled {
			continue
		}
		w, err := newRotatingWriter(out.FilePath, out.rotation(cl.config.FileOutput))
		if err != nil {
			return fmt.Errorf("failed to create log writer for module %s: %w", module, err)
		}
		cl.routes[module] = w
	}
	return nil
}

// newRotatingWriter creates the parent directory, which lumberjack leaves to
// the caller.
func newRotatingWriter(path string, rot rotationSettings) (io.WriteCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != path {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.maxSizeMB,
		MaxAge:     rot.maxAgeDays,
		MaxBackups: rot.maxBackups,
		Compress:   rot.compress,
	}, nil
}

// Module returns the logger for a top-level module such as "encode" or
// "recorder". Nested names come from calling Module on the result.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	level, ok := cl.levels[name]
	if !ok {
		level = parseLogLevel(cl.config.DefaultLevel)
	}

	handler := cl.base
	if w, routed := cl.routes[name]; routed {
		out := cl.config.ModuleOutputs[name]
		if out.Level != "" {
			level = parseLogLevel(out.Level)
		}
		sinks := []slog.Handler{newJSONHandler(w, level, cl.timezone)}
		if out.ConsoleAlso && cl.config.Console != nil && cl.config.Console.Enabled {
			sinks = append(sinks, newTextHandler(os.Stdout, level, cl.timezone))
		}
		handler = newFanoutHandler(sinks...)
	}

	return &moduleLogger{
		module:   name,
		logger:   slog.New(handler),
		level:    level,
		timezone: cl.timezone,
	}
}

// Close closes every file sink. Loggers handed out earlier must not be used
// afterwards.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.closeLocked()
}

func (cl *CentralLogger) closeLocked() error {
	var errs []error
	if cl.mainFile != nil {
		if err := cl.mainFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close main log writer: %w", err))
		}
		cl.mainFile = nil
	}
	for module, w := range cl.routes {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log writer for module %s: %w", module, err))
		}
	}
	cl.routes = nil
	return errors.Join(errs...)
}

// Flush does nothing; lumberjack writes through on every call.
func (cl *CentralLogger) Flush() error { return nil }

func parseLogLevel(level string) slog.Level {
	switch LogLevel(level) {
	case LogLevelTrace:
		return traceLevelValue
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
