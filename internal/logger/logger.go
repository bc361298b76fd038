// Package logger provides a structured, module-aware logging system built on log/slog.
//
// Components receive a Logger through their constructor and scope it with Module:
//
//	log := centralLogger.Module("encode")
//	log.Info("mp4 written",
//	    logger.String("path", path),
//	    logger.Int("frames", n),
//	    logger.Duration("elapsed", time.Since(start)))
//
// Module loggers nest ("recorder.jobs"), accumulate fields with With, and pick up
// trace IDs from a context with WithContext. Console output is human-readable text
// without timestamps; file output is JSON with RFC3339 timestamps and is rotated by
// size through lumberjack.
//
// Configure via YAML:
//
//	logging:
//	  default_level: "info"
//	  timezone: "UTC"
//	  console:
//	    enabled: true
//	    level: "info"
//	  file_output:
//	    enabled: true
//	    path: "logs/streampuffer.log"
//	    level: "debug"
//	    max_size: 50
//	  module_levels:
//	    encode: "debug"
//
// For tests use NewSlogLogger with a buffer or io.Discard.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
	"unique"
)

// LogLevel is a level name as written in the config file.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field is one key/value pair of a log entry. Keys are interned since the
// same few keys repeat on every push and save.
type Field struct {
	Key   string
	Value any
}

func internKey(key string) string {
	return unique.Make(key).Value()
}

var (
	errorKey   = internKey("error")
	moduleKey  = internKey("module")
	traceIDKey = internKey("trace_id")
)

// Logger is what components receive through their constructors.
type Logger interface {
	// Module returns a child logger; names nest as "parent.child".
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	With(fields ...Field) Logger
	// WithContext adds the trace ID stored by WithTraceID, if any.
	WithContext(ctx context.Context) Logger

	Log(level LogLevel, msg string, fields ...Field)
	Flush() error
}

func field(key string, value any) Field { return Field{Key: internKey(key), Value: value} }

// String, Int, Int64, Bool and Time build typed fields.
func String(key, value string) Field         { return field(key, value) }
func Int(key string, value int) Field        { return field(key, value) }
func Int64(key string, value int64) Field    { return field(key, value) }
func Bool(key string, value bool) Field      { return field(key, value) }
func Time(key string, value time.Time) Field { return field(key, value) }

// Uint64 is used for media timestamps and byte counts.
func Uint64(key string, value uint64) Field { return field(key, value) }

// Float64 values are rounded to three decimals on output.
func Float64(key string, value float64) Field { return field(key, value) }

// Duration values print as strings ("1.5s") in both text and JSON output.
func Duration(key string, value time.Duration) Field { return field(key, value) }

// Any takes values the handlers know how to render, typically JSON-friendly.
func Any(key string, value any) Field { return field(key, value) }

// Error stores err's message under "error". A nil error logs as null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// NewSlogLogger returns a module-less Logger writing text to w at the given level.
// A nil writer writes to stdout and a nil timezone uses time.Local.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if w == nil {
		w = os.Stdout
	}
	if tz == nil {
		tz = time.Local
	}
	slogLevel := parseLogLevel(string(level))
	return &moduleLogger{
		logger:   slog.New(newTextHandler(w, slogLevel, tz)),
		level:    slogLevel,
		timezone: tz,
	}
}
