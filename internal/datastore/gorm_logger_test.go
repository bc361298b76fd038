package datastore

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
)

func TestGormLoggerTrace(t *testing.T) {
	t.Parallel()

	stmt := func(sql string) func() (string, int64) {
		return func() (string, int64) { return sql, 3 }
	}

	tests := []struct {
		name      string
		begin     time.Time
		err       error
		wantLevel string
		wantText  string
	}{
		{"fast query", time.Now(), nil, "level=TRACE", "msg=query"},
		{"slow query", time.Now().Add(-time.Second), nil, "level=WARN", `msg="slow query"`},
		{"failure", time.Now(), errors.NewStd("disk I/O error"), "level=WARN", `msg="query failed"`},
		{"not found is quiet", time.Now(), gorm.ErrRecordNotFound, "level=TRACE", "msg=query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			gl := newGormLogger(logger.NewSlogLogger(&buf, logger.LogLevelTrace, time.UTC), 100*time.Millisecond)
			gl.Trace(context.Background(), tt.begin, stmt("SELECT * FROM recordings"), tt.err)

			out := buf.String()
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, tt.wantText)
			assert.Contains(t, out, "rows=3")
		})
	}
}

func TestGormLoggerTruncatesSQL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gl := newGormLogger(logger.NewSlogLogger(&buf, logger.LogLevelTrace, time.UTC), 0)
	long := "INSERT INTO recordings VALUES (" + strings.Repeat("?,", 400) + "?)"
	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return long, 1 }, nil)

	assert.NotContains(t, buf.String(), long)
	assert.Contains(t, buf.String(), "...")
}

func TestGormLoggerSilent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gl := newGormLogger(logger.NewSlogLogger(&buf, logger.LogLevelTrace, time.UTC), 0).LogMode(gormlogger.Silent)
	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	gl.Error(context.Background(), "boom")

	assert.Empty(t, buf.String())
}
