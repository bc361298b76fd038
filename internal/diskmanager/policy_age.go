package diskmanager

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
)

// allowedFileTypes are the extensions cleanup may delete.
var allowedFileTypes = []string{".mp4", ".wav"}

// maxDeletions bounds one cleanup run.
const maxDeletions = 1000

// FileInfo describes a saved recording on disk.
type FileInfo struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// RetentionPolicy controls age-based cleanup. MaxAge 0 disables it.
type RetentionPolicy struct {
	MaxAge   time.Duration
	MinFiles int // newest files always kept
}

// GetRecordingFiles lists saved recordings under dir, newest first. Temp
// files from in-progress or failed saves are not listed.
func GetRecordingFiles(dir string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !slices.Contains(allowedFileTypes, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, FileInfo{Path: path, ModTime: info.ModTime(), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("dir", dir).
			Context("operation", "list_recordings").
			Build()
	}

	slices.SortFunc(files, func(a, b FileInfo) int { return b.ModTime.Compare(a.ModTime) })
	return files, nil
}

// AgeBasedCleanup deletes recordings under dir older than p.MaxAge, keeping
// at least p.MinFiles of the newest. It returns what was deleted.
func AgeBasedCleanup(ctx context.Context, dir string, p RetentionPolicy, now time.Time, log logger.Logger) ([]FileInfo, error) {
	if p.MaxAge <= 0 {
		return nil, nil
	}
	if log == nil {
		log = logger.Global().Module(componentName)
	}

	files, err := GetRecordingFiles(dir)
	if err != nil {
		return nil, err
	}

	expiration := now.Add(-p.MaxAge)
	var deleted []FileInfo
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			log.Info("cleanup interrupted", logger.Int("deleted", len(deleted)))
			return deleted, nil
		}
		if i < p.MinFiles || !f.ModTime.Before(expiration) {
			continue
		}
		if len(deleted) >= maxDeletions {
			log.Warn("cleanup deletion limit reached", logger.Int("limit", maxDeletions))
			break
		}
		if err := os.Remove(f.Path); err != nil {
			log.Warn("failed to remove expired recording", logger.String("path", f.Path), logger.Error(err))
			continue
		}
		deleted = append(deleted, f)
	}

	if len(deleted) > 0 {
		log.Info("expired recordings removed",
			logger.Int("count", len(deleted)),
			logger.Duration("max_age", p.MaxAge))
	}
	return deleted, nil
}
