// Package recorder runs the capture buffer as a service: it names output
// files, guards disk space, bounds concurrent saves, catalogs what was
// written and announces it.
package recorder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/datastore"
	"github.com/DA1F/RoAnalyzer/internal/diskmanager"
	"github.com/DA1F/RoAnalyzer/internal/encode"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/mqtt"
	"github.com/DA1F/RoAnalyzer/internal/notification"
	"github.com/DA1F/RoAnalyzer/internal/observability"
	"github.com/DA1F/RoAnalyzer/internal/streampuffer"
)

const componentName = "recorder"

// Recording is the catalog entry produced by a save.
type Recording = datastore.Recording

// Save kinds.
const (
	KindWindow = "window" // MP4 of the overlap window
	KindAudio  = "audio"  // WAV of the audio ring
)

// SaveRequest asks for one file.
type SaveRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // window (default) or audio
}

// Recorder owns the capture buffer and everything around a save.
type Recorder struct {
	output  conf.OutputSettings
	audioOn bool

	puffer    *streampuffer.StreamPuffer
	guard     *diskmanager.Guard
	sem       *semaphore.Weighted
	store     datastore.Interface
	publisher *mqtt.Publisher
	notifier  *notification.Service
	metrics   *observability.Metrics
	log       logger.Logger
	now       func() time.Time

	encoder    streampuffer.Encoder
	guardOpts  []diskmanager.GuardOption
	jobs       *jobTable
	wg         sync.WaitGroup
	mu         sync.Mutex // guards closed and wg.Add
	closed     bool
	closing    chan struct{} // closed by Close; stops background loops
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithEncoder replaces the MP4 encoder.
func WithEncoder(enc streampuffer.Encoder) Option {
	return func(r *Recorder) { r.encoder = enc }
}

// WithStore catalogs every save in s.
func WithStore(s datastore.Interface) Option {
	return func(r *Recorder) { r.store = s }
}

// WithPublisher announces every save over MQTT.
func WithPublisher(p *mqtt.Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

// WithNotifier pushes a notification for every save and every failure.
func WithNotifier(n *notification.Service) Option {
	return func(r *Recorder) { r.notifier = n }
}

// WithMetrics reports pushes, saves and disk checks.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

// WithClock replaces time.Now for file naming and timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithGuardOptions passes options to the disk guard.
func WithGuardOptions(opts ...diskmanager.GuardOption) Option {
	return func(r *Recorder) { r.guardOpts = append(r.guardOpts, opts...) }
}

// New builds the capture buffer and the save pipeline from settings.
func New(settings *conf.Settings, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		output:  settings.Output,
		audioOn: settings.Capture.Audio.Enabled,
		now:     time.Now,
		jobs:    newJobTable(),
		closing: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Global().Module(componentName)
	}

	limit := 0.0
	if settings.Output.MaxDiskUsage != "" {
		var err error
		if limit, err = conf.ParsePercentage(settings.Output.MaxDiskUsage); err != nil {
			return nil, errors.New(err).
				Component(componentName).
				Category(errors.CategoryConfiguration).
				Context("setting", "output.maxdiskusage").
				Build()
		}
	}
	guardOpts := []diskmanager.GuardOption{diskmanager.WithLogger(r.log.Module("disk"))}
	if r.metrics != nil {
		guardOpts = append(guardOpts, diskmanager.WithMetrics(r.metrics.DiskManager))
	}
	r.guard = diskmanager.NewGuard(settings.Output.Path, limit, append(guardOpts, r.guardOpts...)...)

	r.sem = semaphore.NewWeighted(int64(max(settings.Output.MaxConcurrent, 1)))

	pufferOpts := []streampuffer.Option{streampuffer.WithLogger(r.log.Module("buffer"))}
	if r.encoder != nil {
		pufferOpts = append(pufferOpts, streampuffer.WithEncoder(r.encoder))
	}
	if r.metrics != nil {
		pufferOpts = append(pufferOpts, streampuffer.WithObserver(captureObserver{m: r.metrics}))
	}
	p, err := streampuffer.New(pufferConfig(&settings.Capture), pufferOpts...)
	if err != nil {
		return nil, err
	}
	r.puffer = p

	r.baseCtx, r.cancelBase = context.WithCancel(context.Background())
	return r, nil
}

func pufferConfig(c *conf.CaptureSettings) streampuffer.Config {
	return streampuffer.Config{
		VideoCapacity: c.Video.Capacity,
		AudioCapacity: c.Audio.Capacity,
		FPS:           c.Video.FPS,
		SampleRate:    c.Audio.SampleRate,
		Channels:      c.Audio.Channels,
		Width:         c.Video.Width,
		Height:        c.Video.Height,
		VideoBitRate:  c.Video.BitRate,
		AudioBitRate:  c.Audio.BitRate,
	}
}

// Buffer exposes the capture buffer.
func (r *Recorder) Buffer() *streampuffer.StreamPuffer { return r.puffer }

// Save writes one file and waits for it. Catalog, MQTT and notification
// failures are logged and do not fail the save.
func (r *Recorder) Save(ctx context.Context, req SaveRequest) (*Recording, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	return r.save(ctx, req)
}

func (r *Recorder) save(ctx context.Context, req SaveRequest) (*Recording, error) {
	if req.Kind == "" {
		req.Kind = KindWindow
	}
	if req.Kind != KindWindow && req.Kind != KindAudio {
		return nil, errors.Newf("unknown save kind %q", req.Kind).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}

	if err := r.guard.Check(); err != nil {
		r.recordFailure(req, err, 0)
		return nil, err
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryCancellation).
			Context("operation", "wait_for_save_slot").
			Build()
	}
	defer r.sem.Release(1)

	if r.output.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.output.Timeout)
		defer cancel()
	}

	if r.metrics != nil {
		r.metrics.Save.JobStarted()
		defer r.metrics.Save.JobFinished()
	}

	started := r.now()
	path, err := r.outputPath(req, started)
	if err != nil {
		r.recordFailure(req, err, 0)
		return nil, err
	}

	var res *encode.Result
	if req.Kind == KindAudio {
		res, err = r.puffer.SaveAudio(ctx, path)
	} else {
		res, err = r.puffer.SaveWindow(ctx, path)
	}
	if err != nil {
		r.recordFailure(req, err, time.Since(started))
		return nil, err
	}

	rec := r.recordingFor(req, res, started)
	if r.metrics != nil {
		r.metrics.Save.RecordSave(string(res.Kind), res.Elapsed.Seconds(), res.Size, res.SkippedFrames)
	}
	r.log.Info("recording saved",
		logger.String("path", rec.Path),
		logger.String("kind", rec.Kind),
		logger.Int64("duration_ms", rec.DurationMs),
		logger.Int("video_frames", rec.VideoFrames),
		logger.Int("audio_chunks", rec.AudioChunks),
		logger.Int64("size", rec.SizeBytes),
		logger.Duration("elapsed", res.Elapsed))

	r.catalog(ctx, rec)
	r.announce(ctx, rec)
	return rec, nil
}

func (r *Recorder) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.Newf("recorder is closed").
			Component(componentName).
			Category(errors.CategoryState).
			Build()
	}
	return nil
}

func (r *Recorder) outputPath(req SaveRequest, at time.Time) (string, error) {
	if err := os.MkdirAll(r.output.Path, 0o755); err != nil {
		return "", errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			FileContext(r.output.Path, 0).
			Context("operation", "create_output_directory").
			Build()
	}

	ext := ".mp4"
	if req.Kind == KindAudio {
		ext = ".wav"
	}
	base := FileName(r.output.Template, r.output.Session, req.Name, at)
	return uniquePath(r.output.Path, base, ext), nil
}

func (r *Recorder) recordingFor(req SaveRequest, res *encode.Result, at time.Time) *Recording {
	name := req.Name
	if name == "" {
		name = filepath.Base(res.Path)
	}
	return &Recording{
		ID:            uuid.NewString(),
		Name:          name,
		Session:       r.output.Session,
		Path:          res.Path,
		Kind:          string(res.Kind),
		StartMs:       res.StartMs,
		EndMs:         res.EndMs,
		DurationMs:    res.Duration.Milliseconds(),
		VideoFrames:   res.VideoFrames,
		SkippedFrames: res.SkippedFrames,
		AudioChunks:   res.AudioChunks,
		AudioSamples:  res.AudioSamples,
		SizeBytes:     res.Size,
		CreatedAt:     at,
	}
}

func (r *Recorder) recordFailure(req SaveRequest, err error, elapsed time.Duration) {
	if r.metrics != nil {
		r.metrics.Save.RecordSaveError(req.Kind, string(errors.CategoryOf(err)), elapsed.Seconds())
	}
	r.log.Warn("save failed",
		logger.String("kind", req.Kind),
		logger.String("name", req.Name),
		logger.Error(err))

	if r.notifier != nil && !errors.IsCategory(err, errors.CategoryCancellation) {
		r.notifier.Dispatch(notification.NewNotification(notification.TypeError,
			"Recording failed", err.Error()).
			WithComponent(componentName).
			WithMetadata("kind", req.Kind))
	}
}

func (r *Recorder) catalog(ctx context.Context, rec *Recording) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRecording(context.WithoutCancel(ctx), rec); err != nil {
		r.log.Warn("failed to catalog recording", logger.String("path", rec.Path), logger.Error(err))
	}
}

func (r *Recorder) announce(ctx context.Context, rec *Recording) {
	if r.publisher != nil {
		err := r.publisher.PublishRecording(context.WithoutCancel(ctx), mqtt.RecordingEvent{
			ID:            rec.ID,
			Name:          rec.Name,
			Session:       rec.Session,
			Path:          rec.Path,
			Kind:          rec.Kind,
			StartMs:       rec.StartMs,
			EndMs:         rec.EndMs,
			DurationMs:    rec.DurationMs,
			VideoFrames:   rec.VideoFrames,
			SkippedFrames: rec.SkippedFrames,
			AudioChunks:   rec.AudioChunks,
			SizeBytes:     rec.SizeBytes,
			SavedAt:       rec.CreatedAt,
		})
		if err != nil {
			r.log.Warn("failed to publish recording event", logger.String("path", rec.Path), logger.Error(err))
		}
	}

	if r.notifier != nil {
		r.notifier.Dispatch(notification.NewNotification(notification.TypeRecording,
			"Recording saved", rec.Path).
			WithComponent(componentName).
			WithMetadata("id", rec.ID).
			WithMetadata("kind", rec.Kind).
			WithMetadata("duration_ms", rec.DurationMs))
	}
}

// SaveAsync queues a save and returns its job immediately.
func (r *Recorder) SaveAsync(req SaveRequest) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Job{}, errors.Newf("recorder is closed").
			Component(componentName).
			Category(errors.CategoryState).
			Build()
	}

	job := Job{ID: uuid.NewString(), Request: req, State: JobQueued, CreatedAt: r.now()}
	r.jobs.put(job)

	r.wg.Go(func() {
		r.jobs.update(job.ID, func(j *Job) { j.State = JobRunning })
		rec, err := r.save(r.baseCtx, req)
		r.jobs.update(job.ID, func(j *Job) {
			j.FinishedAt = r.now()
			if err != nil {
				j.State, j.Error = JobFailed, err.Error()
				return
			}
			j.State, j.Recording = JobDone, rec
		})
	})
	return job, nil
}

// Job looks up an asynchronous save. Finished jobs expire after an hour.
func (r *Recorder) Job(id string) (Job, bool) {
	return r.jobs.get(id)
}

// Close refuses new saves and waits for queued ones. Cancelling ctx aborts
// the saves still running.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.closing)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancelBase()
		return nil
	case <-ctx.Done():
		r.cancelBase()
		<-done
		return errors.New(ctx.Err()).
			Component(componentName).
			Category(errors.CategoryCancellation).
			Context("operation", "close").
			Build()
	}
}
