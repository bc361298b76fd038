package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/datastore"
	"github.com/DA1F/RoAnalyzer/internal/encode"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/media"
	"github.com/DA1F/RoAnalyzer/internal/recorder"
)

type stubEncoder struct{}

func (stubEncoder) Encode(_ context.Context, path string, w media.Window) (*encode.Result, error) {
	if err := os.WriteFile(path, []byte("mp4"), 0o600); err != nil {
		return nil, err
	}
	v := w.Video()
	return &encode.Result{
		Path:        path,
		Kind:        encode.KindFor(w),
		VideoFrames: len(v),
		AudioChunks: len(w.Audio()),
		StartMs:     v[0].TimestampMs,
		EndMs:       v[len(v)-1].TimestampMs,
		Size:        3,
	}, nil
}

func testSettings(t *testing.T, source string) *conf.Settings {
	t.Helper()
	dir := t.TempDir()
	return &conf.Settings{
		Capture: conf.CaptureSettings{
			Source: source,
			Video:  conf.VideoSettings{Capacity: 50, FPS: 50, Width: 4, Height: 2},
			Audio:  conf.AudioSettings{Enabled: true, Capacity: 100, SampleRate: 8000, Channels: 1},
		},
		Output: conf.OutputSettings{
			Path:          filepath.Join(dir, "out"),
			Session:       "test",
			Template:      "{session}_{name}",
			Timeout:       5 * time.Second,
			MaxConcurrent: 1,
		},
		Database: conf.DatabaseSettings{
			Enabled: true,
			Type:    "sqlite",
			Path:    filepath.Join(dir, "catalog.db"),
		},
	}
}

func run(t *testing.T, settings *conf.Settings, opts Options) error {
	t.Helper()
	opts.RecorderOptions = append(opts.RecorderOptions,
		recorder.WithEncoder(stubEncoder{}),
		recorder.WithLogger(logger.NewSlogLogger(nil, logger.LogLevelError, nil)))
	return Realtime(context.Background(), settings, buildinfo.NewContext("test", "", ""), opts)
}

func TestRealtimeSyntheticSavesOnExit(t *testing.T) {
	settings := testSettings(t, SourceSynthetic)

	err := run(t, settings, Options{Duration: 300 * time.Millisecond, SaveOnExit: true, SaveName: "final"})
	require.NoError(t, err)

	path := filepath.Join(settings.Output.Path, "test_final.mp4")
	assert.FileExists(t, path)

	store, err := datastore.New(&settings.Database)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	defer store.Close()

	recs, total, err := store.ListRecordings(context.Background(), datastore.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, path, recs[0].Path)
	assert.Equal(t, "final", recs[0].Name)
	assert.Positive(t, recs[0].VideoFrames)
}

func TestRealtimeNoSourceHasNothingToSave(t *testing.T) {
	settings := testSettings(t, SourceNone)
	settings.Database.Enabled = false

	err := run(t, settings, Options{Duration: 50 * time.Millisecond, SaveOnExit: true})
	assert.True(t, errors.IsCategory(err, errors.CategoryEmptyBuffer), "got %v", err)
}

func TestRealtimeStopsOnContext(t *testing.T) {
	settings := testSettings(t, SourceSynthetic)
	settings.Database.Enabled = false

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Realtime(ctx, settings, nil, Options{
			RecorderOptions: []recorder.Option{recorder.WithEncoder(stubEncoder{})},
		})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Realtime did not return after cancellation")
	}
}

func TestRealtimeRejectsBadDatabase(t *testing.T) {
	settings := testSettings(t, SourceNone)
	settings.Database.Type = "postgres"

	err := run(t, settings, Options{Duration: time.Millisecond})
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration), "got %v", err)
}
