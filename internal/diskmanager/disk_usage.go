// Package diskmanager watches the output directory: it refuses saves once the
// filesystem is too full and prunes old recordings.
package diskmanager

import (
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/DA1F/RoAnalyzer/internal/errors"
)

const componentName = "diskmanager"

// DiskSpaceInfo holds detailed disk space information.
type DiskSpaceInfo struct {
	Path        string
	TotalBytes  uint64
	UsedBytes   uint64
	UsedPercent float64
}

// GetDetailedDiskUsage returns usage of the filesystem holding path. When
// path does not exist yet the nearest existing parent is measured.
func GetDetailedDiskUsage(path string) (DiskSpaceInfo, error) {
	startTime := time.Now()

	measured := existingAncestor(path)
	usage, err := disk.Usage(measured)
	if err != nil {
		return DiskSpaceInfo{}, errors.New(err).
			Component(componentName).
			Category(errors.CategoryDiskUsage).
			Context("path", path).
			Context("measured_path", measured).
			Context("operation", "disk_usage").
			Timing("disk_usage_check", time.Since(startTime)).
			Build()
	}

	return DiskSpaceInfo{
		Path:        usage.Path,
		TotalBytes:  usage.Total,
		UsedBytes:   usage.Used,
		UsedPercent: usage.UsedPercent,
	}, nil
}

func existingAncestor(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		p = filepath.Clean(path)
	}
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}
