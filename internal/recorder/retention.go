package recorder

import (
	"context"
	"time"

	"github.com/DA1F/RoAnalyzer/internal/diskmanager"
	"github.com/DA1F/RoAnalyzer/internal/logger"
)

// Cleanup removes expired recordings from the output directory and their
// catalog rows. It returns the number of files removed.
func (r *Recorder) Cleanup(ctx context.Context) (int, error) {
	policy := diskmanager.RetentionPolicy{
		MaxAge:   r.output.Retention.MaxAge,
		MinFiles: r.output.Retention.MinFiles,
	}
	deleted, err := diskmanager.AgeBasedCleanup(ctx, r.output.Path, policy, r.now(), r.log.Module("retention"))
	if err != nil {
		return 0, err
	}
	if len(deleted) == 0 || r.store == nil {
		return len(deleted), nil
	}

	paths := make([]string, len(deleted))
	for i, f := range deleted {
		paths[i] = f.Path
	}
	n, err := r.store.DeleteRecordingsByPath(context.WithoutCancel(ctx), paths)
	if err != nil {
		r.log.Warn("failed to remove expired recordings from catalog", logger.Error(err))
	} else {
		r.log.Debug("catalog rows removed", logger.Int64("rows", n))
	}
	return len(deleted), nil
}

// StartRetention runs Cleanup every interval until ctx ends or the recorder
// is closed. It does nothing when no maximum age is configured.
func (r *Recorder) StartRetention(ctx context.Context, interval time.Duration) {
	if r.output.Retention.MaxAge <= 0 || interval <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := r.Cleanup(ctx); err != nil {
				r.log.Warn("retention cleanup failed", logger.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-r.closing:
				return
			case <-ticker.C:
			}
		}
	})
}
