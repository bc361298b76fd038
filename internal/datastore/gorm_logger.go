package datastore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DA1F/RoAnalyzer/internal/logger"
)

// maxLoggedSQL bounds the statement text attached to a log entry.
const maxLoggedSQL = 512

// gormLogger routes GORM's output through the module logger. Statements log
// at trace level, slow statements and failures at warn.
type gormLogger struct {
	log       logger.Logger
	slow      time.Duration
	threshold gormlogger.LogLevel
}

func newGormLogger(log logger.Logger, slow time.Duration) *gormLogger {
	return &gormLogger{log: log, slow: slow, threshold: gormlogger.Warn}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.threshold = level
	return &cp
}

func (g *gormLogger) Info(_ context.Context, msg string, args ...any) {
	if g.threshold >= gormlogger.Info {
		g.log.Info(msg, logger.Any("args", args))
	}
}

func (g *gormLogger) Warn(_ context.Context, msg string, args ...any) {
	if g.threshold >= gormlogger.Warn {
		g.log.Warn(msg, logger.Any("args", args))
	}
}

func (g *gormLogger) Error(_ context.Context, msg string, args ...any) {
	if g.threshold >= gormlogger.Error {
		g.log.Error(msg, logger.Any("args", args))
	}
}

func (g *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.threshold <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	if len(sql) > maxLoggedSQL {
		sql = sql[:maxLoggedSQL] + "..."
	}
	fields := []logger.Field{
		logger.String("sql", sql),
		logger.Int64("rows", rows),
		logger.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		g.log.Warn("query failed", append(fields, logger.Error(err))...)
	case g.slow > 0 && elapsed > g.slow:
		g.log.Warn("slow query", append(fields, logger.Duration("threshold", g.slow))...)
	default:
		g.log.Trace("query", fields...)
	}
}
