package diskmanager

import (
	"time"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/observability/metrics"
)

// ErrDiskFull matches errors returned when usage is over the limit.
var ErrDiskFull = errors.New(nil).Component(componentName).Category(errors.CategoryDiskUsage).Build()

// UsageFunc reports disk usage for a path. GetDetailedDiskUsage is the
// default.
type UsageFunc func(path string) (DiskSpaceInfo, error)

// Guard refuses saves when the output filesystem is above a usage limit.
type Guard struct {
	dir          string
	limitPercent float64
	usage        UsageFunc
	metrics      *metrics.DiskManagerMetrics
	log          logger.Logger
}

// GuardOption customizes a Guard.
type GuardOption func(*Guard)

// WithUsageFunc replaces the disk usage lookup.
func WithUsageFunc(fn UsageFunc) GuardOption {
	return func(g *Guard) { g.usage = fn }
}

// WithMetrics reports usage samples and refusals.
func WithMetrics(m *metrics.DiskManagerMetrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) GuardOption {
	return func(g *Guard) { g.log = l }
}

// NewGuard creates a guard for dir. A limit of 0 or 100 never refuses.
func NewGuard(dir string, limitPercent float64, opts ...GuardOption) *Guard {
	g := &Guard{dir: dir, limitPercent: limitPercent, usage: GetDetailedDiskUsage}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Global().Module(componentName)
	}
	return g
}

// Check samples usage and returns a disk-usage error when it is at or above
// the limit. A failed usage lookup is logged and allows the save.
func (g *Guard) Check() error {
	if g.limitPercent <= 0 || g.limitPercent >= 100 {
		return nil
	}

	started := time.Now()
	info, err := g.usage(g.dir)
	if g.metrics != nil {
		g.metrics.ObserveCheck(time.Since(started), info.UsedBytes, info.TotalBytes, err)
	}
	if err != nil {
		g.log.Warn("disk usage check failed, allowing save",
			logger.String("dir", g.dir),
			logger.Error(err))
		return nil
	}
	if info.UsedPercent >= g.limitPercent {
		if g.metrics != nil {
			g.metrics.RecordSaveRefused()
		}
		return errors.Newf("disk usage %.1f%% is at or above the %.1f%% limit", info.UsedPercent, g.limitPercent).
			Component(componentName).
			Category(errors.CategoryDiskUsage).
			Context("dir", g.dir).
			Context("used_percent", info.UsedPercent).
			Context("limit_percent", g.limitPercent).
			Build()
	}
	return nil
}
