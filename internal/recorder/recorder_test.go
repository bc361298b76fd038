package recorder

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/datastore"
	"github.com/DA1F/RoAnalyzer/internal/diskmanager"
	"github.com/DA1F/RoAnalyzer/internal/encode"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/media"
	"github.com/DA1F/RoAnalyzer/internal/mqtt"
	"github.com/DA1F/RoAnalyzer/internal/observability"
	"github.com/DA1F/RoAnalyzer/internal/streampuffer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

// fileEncoder writes a small placeholder file so naming sees it. With
// release set it waits for release or ctx first.
type fileEncoder struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *fileEncoder) Encode(ctx context.Context, path string, w media.Window) (*encode.Result, error) {
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
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
		Duration:    time.Duration(len(v)) * 100 * time.Millisecond,
		Size:        3,
	}, nil
}

type fakeMQTT struct {
	mu       sync.Mutex
	payloads []string
}

func (f *fakeMQTT) Connect(context.Context) error { return nil }
func (f *fakeMQTT) IsConnected() bool             { return true }
func (f *fakeMQTT) Disconnect()                   {}

func (f *fakeMQTT) Publish(_ context.Context, _ string, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		Capture: conf.CaptureSettings{
			Video: conf.VideoSettings{Capacity: 10, FPS: 10, Width: 4, Height: 2},
			Audio: conf.AudioSettings{Enabled: true, Capacity: 20, SampleRate: 8000, Channels: 1},
		},
		Output: conf.OutputSettings{
			Path:          filepath.Join(t.TempDir(), "out"),
			Session:       "lab",
			Template:      "{session}_{date}_{time}",
			Timeout:       5 * time.Second,
			MaxConcurrent: 1,
		},
	}
}

func quiet() logger.Logger {
	return logger.NewSlogLogger(nil, logger.LogLevelError, nil)
}

func newTestRecorder(t *testing.T, settings *conf.Settings, opts ...Option) *Recorder {
	t.Helper()
	opts = append([]Option{
		WithEncoder(&fileEncoder{}),
		WithLogger(quiet()),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	r, err := New(settings, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func openStore(t *testing.T) datastore.Interface {
	t.Helper()
	store, err := datastore.New(&conf.DatabaseSettings{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "catalog.db"),
	}, datastore.WithLogger(quiet()))
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func pushFrames(r *Recorder, from, to uint64) {
	for ts := from; ts <= to; ts += 100 {
		r.PushVideo(media.VideoFrame{TimestampMs: ts, Data: make([]byte, 24)})
	}
}

func gathered(t *testing.T, reg prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func TestSaveWindowCatalogsAndPublishes(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	store := openStore(t)
	broker := &fakeMQTT{}
	m, err := observability.NewMetrics()
	require.NoError(t, err)

	r := newTestRecorder(t, settings,
		WithStore(store),
		WithPublisher(mqtt.NewPublisher(broker, "lab/recordings")),
		WithMetrics(m))

	pushFrames(r, 0, 900)
	for ts := uint64(400); ts <= 1200; ts += 50 {
		r.PushAudio(media.AudioChunk{TimestampMs: ts, Data: make([]byte, 160)})
	}

	rec, err := r.Save(context.Background(), SaveRequest{Name: "crash"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(settings.Output.Path, "lab_2026-10-19_12-00-00.mp4"), rec.Path)
	assert.FileExists(t, rec.Path)
	assert.Equal(t, "av", rec.Kind)
	assert.Equal(t, "crash", rec.Name)
	assert.Equal(t, "lab", rec.Session)
	assert.Equal(t, 6, rec.VideoFrames) // 400..900

	got, err := store.GetRecording(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Path, got.Path)

	require.Len(t, broker.payloads, 1)
	var ev mqtt.RecordingEvent
	require.NoError(t, json.Unmarshal([]byte(broker.payloads[0]), &ev))
	assert.Equal(t, rec.ID, ev.ID)
	assert.Equal(t, "av", ev.Kind)

	reg := m.Registry()
	assert.InDelta(t, 1, gathered(t, reg, "recorder_saves_total", map[string]string{"kind": "av", "status": "success"}), 0)
	assert.InDelta(t, 10, gathered(t, reg, "capture_pushes_total", map[string]string{"stream": "video"}), 0)
	assert.InDelta(t, 17, gathered(t, reg, "capture_buffer_length", map[string]string{"stream": "audio"}), 0)
}

func TestSaveNamesDoNotCollide(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(t, testSettings(t))
	pushFrames(r, 0, 300)

	first, err := r.Save(context.Background(), SaveRequest{})
	require.NoError(t, err)
	second, err := r.Save(context.Background(), SaveRequest{})
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, "lab_2026-10-19_12-00-00_1.mp4", filepath.Base(second.Path))
	assert.Equal(t, "video", second.Kind)
}

func TestSaveAudioWritesWAV(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(t, testSettings(t))
	chunk := make([]byte, 8)
	for i := range 4 {
		binary.LittleEndian.PutUint16(chunk[2*i:], uint16(i*100))
	}
	r.PushAudio(media.AudioChunk{TimestampMs: 0, Data: chunk})
	r.PushAudio(media.AudioChunk{TimestampMs: 10, Data: chunk})

	rec, err := r.Save(context.Background(), SaveRequest{Kind: KindAudio})
	require.NoError(t, err)
	assert.Equal(t, ".wav", filepath.Ext(rec.Path))
	assert.Equal(t, "audio", rec.Kind)
	assert.Equal(t, int64(8), rec.AudioSamples)
	assert.FileExists(t, rec.Path)
}

func TestSaveFailures(t *testing.T) {
	t.Parallel()

	t.Run("empty buffer", func(t *testing.T) {
		t.Parallel()

		m, err := observability.NewMetrics()
		require.NoError(t, err)
		r := newTestRecorder(t, testSettings(t), WithMetrics(m))

		_, err = r.Save(context.Background(), SaveRequest{})
		assert.ErrorIs(t, err, streampuffer.ErrEmptyBuffer)
		assert.InDelta(t, 1, gathered(t, m.Registry(), "recorder_save_errors_total", map[string]string{"category": "empty-buffer"}), 0)
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()

		r := newTestRecorder(t, testSettings(t))
		_, err := r.Save(context.Background(), SaveRequest{Kind: "gif"})
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	})

	t.Run("disk full", func(t *testing.T) {
		t.Parallel()

		settings := testSettings(t)
		settings.Output.MaxDiskUsage = "90%"
		r := newTestRecorder(t, settings, WithGuardOptions(diskmanager.WithUsageFunc(
			func(string) (diskmanager.DiskSpaceInfo, error) {
				return diskmanager.DiskSpaceInfo{UsedPercent: 97}, nil
			})))
		pushFrames(r, 0, 300)

		_, err := r.Save(context.Background(), SaveRequest{})
		assert.True(t, errors.IsCategory(err, errors.CategoryDiskUsage))
		assert.NoDirExists(t, settings.Output.Path)
	})

	t.Run("bad disk limit", func(t *testing.T) {
		t.Parallel()

		settings := testSettings(t)
		settings.Output.MaxDiskUsage = "ninety"
		_, err := New(settings, WithEncoder(&fileEncoder{}), WithLogger(quiet()))
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})
}

func TestSaveSlotsAreBounded(t *testing.T) {
	t.Parallel()

	enc := &fileEncoder{started: make(chan struct{}), release: make(chan struct{})}
	r := newTestRecorder(t, testSettings(t), WithEncoder(enc))
	pushFrames(r, 0, 300)

	firstDone := make(chan error, 1)
	go func() {
		_, err := r.Save(context.Background(), SaveRequest{})
		firstDone <- err
	}()
	<-enc.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.Save(ctx, SaveRequest{})
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))

	close(enc.release)
	require.NoError(t, <-firstDone)
}

func TestSaveAsync(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(t, testSettings(t))
	pushFrames(r, 0, 500)

	job, err := r.SaveAsync(SaveRequest{Name: "async"})
	require.NoError(t, err)
	assert.Equal(t, JobQueued, job.State)
	assert.NotEmpty(t, job.ID)

	require.Eventually(t, func() bool {
		j, ok := r.Job(job.ID)
		return ok && j.State == JobDone
	}, 5*time.Second, 10*time.Millisecond)

	j, _ := r.Job(job.ID)
	require.NotNil(t, j.Recording)
	assert.Equal(t, "async", j.Recording.Name)
	assert.Equal(t, fixedNow, j.FinishedAt)

	_, ok := r.Job("missing")
	assert.False(t, ok)
}

func TestSaveAsyncFailureIsRecorded(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(t, testSettings(t))
	job, err := r.SaveAsync(SaveRequest{})
	require.NoError(t, err)
	require.NoError(t, r.Close(context.Background()))

	j, ok := r.Job(job.ID)
	require.True(t, ok)
	assert.Equal(t, JobFailed, j.State)
	assert.Contains(t, j.Error, "no video frames")
}

func TestCloseWaitsAndRefuses(t *testing.T) {
	t.Parallel()

	enc := &fileEncoder{started: make(chan struct{}), release: make(chan struct{})}
	r := newTestRecorder(t, testSettings(t), WithEncoder(enc))
	pushFrames(r, 0, 300)

	job, err := r.SaveAsync(SaveRequest{})
	require.NoError(t, err)
	<-enc.started

	closed := make(chan error, 1)
	go func() { closed <- r.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatal("Close returned while a save was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(enc.release)
	require.NoError(t, <-closed)

	j, _ := r.Job(job.ID)
	assert.Equal(t, JobDone, j.State)

	_, err = r.Save(context.Background(), SaveRequest{})
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
	_, err = r.SaveAsync(SaveRequest{})
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestCloseDeadlineAbortsSaves(t *testing.T) {
	t.Parallel()

	enc := &fileEncoder{started: make(chan struct{}), release: make(chan struct{})}
	r := newTestRecorder(t, testSettings(t), WithEncoder(enc))
	pushFrames(r, 0, 300)

	job, err := r.SaveAsync(SaveRequest{})
	require.NoError(t, err)
	<-enc.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = r.Close(ctx)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))

	j, _ := r.Job(job.ID)
	assert.Equal(t, JobFailed, j.State)
}

func TestAudioDisabledDropsChunks(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Capture.Audio.Enabled = false
	r := newTestRecorder(t, settings)

	r.PushAudio(media.AudioChunk{TimestampMs: 1, Data: make([]byte, 4)})
	assert.False(t, r.AudioEnabled())
	assert.Zero(t, r.Buffer().Stats().Audio.Len)
}

func TestCleanupRemovesExpiredRecordings(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Output.Retention = conf.RetentionSettings{MaxAge: 24 * time.Hour, MinFiles: 1}
	store := openStore(t)
	r := newTestRecorder(t, settings, WithStore(store))

	require.NoError(t, os.MkdirAll(settings.Output.Path, 0o755))
	ages := map[string]time.Duration{"old.mp4": 72 * time.Hour, "older.mp4": 96 * time.Hour, "new.mp4": time.Hour}
	for name, age := range ages {
		p := filepath.Join(settings.Output.Path, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
		mt := fixedNow.Add(-age)
		require.NoError(t, os.Chtimes(p, mt, mt))
		require.NoError(t, store.SaveRecording(context.Background(), &datastore.Recording{Path: p, Kind: "av"}))
	}

	n, err := r.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, filepath.Join(settings.Output.Path, "new.mp4"))
	assert.NoFileExists(t, filepath.Join(settings.Output.Path, "old.mp4"))

	rows, total, err := store.ListRecordings(context.Background(), datastore.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, filepath.Join(settings.Output.Path, "new.mp4"), rows[0].Path)
}

func TestStartRetentionStopsOnClose(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Output.Retention.MaxAge = time.Hour
	r, err := New(settings, WithEncoder(&fileEncoder{}), WithLogger(quiet()))
	require.NoError(t, err)

	r.StartRetention(context.Background(), time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.Close(context.Background()))
}
