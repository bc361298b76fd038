// Package streampuffer keeps the most recent video frames and audio chunks of
// a live feed in two bounded rings and saves the retained window to disk on
// demand.
//
// Producers push into each ring under that ring's own lock, so video and
// audio never contend. A save copies both rings under read locks, releases
// them, and encodes the copies on a worker goroutine.
package streampuffer

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/DA1F/RoAnalyzer/internal/encode"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/media"
)

const componentName = "streampuffer"

// Sentinels for errors.Is; matching is by category.
var (
	ErrEmptyBuffer = errors.New(nil).Component(componentName).Category(errors.CategoryEmptyBuffer).Build()
	ErrWorkerJoin  = errors.New(nil).Component(componentName).Category(errors.CategoryWorkerJoin).Build()
	ErrCancelled   = errors.New(nil).Component(componentName).Category(errors.CategoryCancellation).Build()
)

// Encoder turns a synchronizer window into a file. *encode.MP4Encoder is the
// production implementation.
type Encoder interface {
	Encode(ctx context.Context, path string, w media.Window) (*encode.Result, error)
}

// Observer receives push events, typically for metrics. Calls happen on the
// producer goroutine after the ring lock is released.
type Observer interface {
	ObservePush(kind StreamKind, evicted bool, length, payloadBytes int)
}

// Config is fixed for the lifetime of a StreamPuffer.
type Config struct {
	VideoCapacity int // frames
	AudioCapacity int // chunks
	FPS           int
	SampleRate    int
	Channels      int
	Width         int
	Height        int
	VideoBitRate  int
	AudioBitRate  int
}

// EncoderOptions derives the MP4 encoder configuration.
func (c Config) EncoderOptions() encode.Options {
	return encode.Options{
		Width:        c.Width,
		Height:       c.Height,
		FPS:          c.FPS,
		SampleRate:   c.SampleRate,
		Channels:     c.Channels,
		VideoBitRate: c.VideoBitRate,
		AudioBitRate: c.AudioBitRate,
	}
}

// Option customizes a StreamPuffer.
type Option func(*StreamPuffer)

// WithEncoder replaces the default MP4 encoder.
func WithEncoder(enc Encoder) Option {
	return func(p *StreamPuffer) { p.enc = enc }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(p *StreamPuffer) { p.log = log }
}

// WithObserver registers a push observer.
func WithObserver(o Observer) Option {
	return func(p *StreamPuffer) { p.observer = o }
}

// StreamPuffer is the capture buffer: one ring per media kind and an encoder
// for saving the overlap window.
type StreamPuffer struct {
	cfg      Config
	video    *Ring[media.VideoFrame]
	audio    *Ring[media.AudioChunk]
	enc      Encoder
	log      logger.Logger
	observer Observer
}

// New allocates both rings. Unless WithEncoder is given, an MP4 encoder is
// built from cfg and its options are validated here.
func New(cfg Config, opts ...Option) (*StreamPuffer, error) {
	p := &StreamPuffer{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Global().Module(componentName)
	}

	var err error
	if p.video, err = NewRing[media.VideoFrame](cfg.VideoCapacity); err != nil {
		return nil, err
	}
	if p.audio, err = NewRing[media.AudioChunk](cfg.AudioCapacity); err != nil {
		return nil, err
	}

	if p.enc == nil {
		enc, err := encode.NewMP4Encoder(cfg.EncoderOptions(), p.log.Module("encode"))
		if err != nil {
			return nil, err
		}
		p.enc = enc
	}

	p.log.Debug("capture buffer created",
		logger.Int("video_capacity", cfg.VideoCapacity),
		logger.Int("audio_capacity", cfg.AudioCapacity),
		logger.Int("fps", cfg.FPS),
		logger.Int("sample_rate", cfg.SampleRate),
		logger.Int("channels", cfg.Channels))

	return p, nil
}

// Config returns the configuration the buffer was created with.
func (p *StreamPuffer) Config() Config { return p.cfg }

// PushVideo appends a frame, evicting the oldest when full. It never blocks
// on audio pushes or on a running save.
func (p *StreamPuffer) PushVideo(f media.VideoFrame) {
	evicted := p.video.Push(f)
	if p.observer != nil {
		p.observer.ObservePush(KindVideo, evicted, p.video.Len(), len(f.Data))
	}
}

// PushAudio appends a chunk, evicting the oldest when full.
func (p *StreamPuffer) PushAudio(c media.AudioChunk) {
	evicted := p.audio.Push(c)
	if p.observer != nil {
		p.observer.ObservePush(KindAudio, evicted, p.audio.Len(), len(c.Data))
	}
}

// SaveWindow encodes the current contents to path. Audio is included only
// for the span where both streams overlap; without overlap the file is video
// only. An empty video ring fails with an empty-buffer error and writes
// nothing.
func (p *StreamPuffer) SaveWindow(ctx context.Context, path string) (*encode.Result, error) {
	video := p.video.Snapshot()
	audio := p.audio.Snapshot()

	if len(video) == 0 {
		return nil, errors.Newf("no video frames buffered").
			Component(componentName).
			Category(errors.CategoryEmptyBuffer).
			Context("path", path).
			Context("audio_chunks", len(audio)).
			Build()
	}

	w := media.Synchronize(video, audio)
	p.log.Debug("saving window",
		logger.String("path", path),
		logger.String("window", w.Kind().String()),
		logger.Int("video_frames", len(w.Video())),
		logger.Int("audio_chunks", len(w.Audio())),
		logger.Uint64("overlap_start_ms", w.Overlap().StartMs),
		logger.Uint64("overlap_end_ms", w.Overlap().EndMs))

	return p.runWorker(ctx, "mp4", func(ctx context.Context) (*encode.Result, error) {
		return p.enc.Encode(ctx, path, w)
	})
}

// SaveAudio writes the buffered audio to a WAV file.
func (p *StreamPuffer) SaveAudio(ctx context.Context, path string) (*encode.Result, error) {
	audio := p.audio.Snapshot()
	if len(audio) == 0 {
		return nil, errors.Newf("no audio chunks buffered").
			Component(componentName).
			Category(errors.CategoryEmptyBuffer).
			Context("path", path).
			Build()
	}

	return p.runWorker(ctx, "wav", func(ctx context.Context) (*encode.Result, error) {
		return encode.WriteWAV(ctx, path, audio, p.cfg.SampleRate, p.cfg.Channels)
	})
}

type workerResult struct {
	res *encode.Result
	err error
}

// runWorker runs fn on its own goroutine. A panic becomes a worker-join
// error. If ctx ends first, runWorker returns immediately; fn sees the same
// ctx and stops at its next check.
func (p *StreamPuffer) runWorker(ctx context.Context, job string, fn func(context.Context) (*encode.Result, error)) (*encode.Result, error) {
	done := make(chan workerResult, 1)
	started := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("encode worker panicked",
					logger.String("job", job),
					logger.Any("panic", r),
					logger.String("stack", string(debug.Stack())))
				done <- workerResult{err: errors.Newf("encode worker panicked: %v", r).
					Component(componentName).
					Category(errors.CategoryWorkerJoin).
					Context("job", job).
					Build()}
			}
		}()
		res, err := fn(ctx)
		done <- workerResult{res: res, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil && !errors.IsCategory(r.err, errors.CategoryCancellation) {
			return nil, abandoned(ctx, job, started)
		}
		if r.err != nil {
			p.log.Warn("save failed",
				logger.String("job", job),
				logger.Error(r.err),
				logger.Duration("elapsed", time.Since(started)))
		}
		return r.res, r.err
	case <-ctx.Done():
		return nil, abandoned(ctx, job, started)
	}
}

func abandoned(ctx context.Context, job string, started time.Time) error {
	return errors.New(fmt.Errorf("save abandoned: %w", ctx.Err())).
		Component(componentName).
		Category(errors.CategoryCancellation).
		Context("job", job).
		Timing("save", time.Since(started)).
		Build()
}

// Reset drops everything buffered. Push counters keep counting.
func (p *StreamPuffer) Reset() {
	p.video.Reset()
	p.audio.Reset()
}
