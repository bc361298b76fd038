// Package ingest moves producer records into a capture sink. Producers
// deliver video and audio on independent streams stamped in microseconds.
package ingest

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/media"
)

const componentName = "ingest"

// ImageRecord is one RGB24 frame from a producer.
type ImageRecord struct {
	TimestampUs uint64
	Width       int
	Height      int
	Data        []byte
}

// AudioRecord is one chunk of interleaved s16le PCM from a producer.
type AudioRecord struct {
	TimestampUs uint64
	Data        []byte
}

// ImageStream yields frames until it returns io.EOF.
type ImageStream interface {
	Recv() (*ImageRecord, error)
}

// AudioStream yields audio chunks until it returns io.EOF.
type AudioStream interface {
	Recv() (*AudioRecord, error)
}

// Sink receives converted records. *recorder.Recorder is the production
// sink.
type Sink interface {
	PushVideo(f media.VideoFrame)
	PushAudio(c media.AudioChunk)
}

// Pump drains both streams into sink until each returns io.EOF, one fails,
// or ctx ends. Either stream may be nil. Recv is not interruptible, so
// streams should end on their own once ctx is done.
func Pump(ctx context.Context, sink Sink, video ImageStream, audio AudioStream, log logger.Logger) error {
	if log == nil {
		log = logger.Global().Module(componentName)
	}

	g, ctx := errgroup.WithContext(ctx)
	if video != nil {
		g.Go(func() error {
			return drain(ctx, "video", log, video.Recv, func(r *ImageRecord) {
				sink.PushVideo(media.FrameFromMicros(r.TimestampUs, r.Data))
			})
		})
	}
	if audio != nil {
		g.Go(func() error {
			return drain(ctx, "audio", log, audio.Recv, func(r *AudioRecord) {
				sink.PushAudio(media.ChunkFromMicros(r.TimestampUs, r.Data))
			})
		})
	}
	return g.Wait()
}

func drain[R any](ctx context.Context, stream string, log logger.Logger, recv func() (*R, error), push func(*R)) error {
	var n int
	for {
		if ctx.Err() != nil {
			log.Debug("stream stopped", logger.String("stream", stream), logger.Int("records", n))
			return nil
		}
		rec, err := recv()
		if errors.Is(err, io.EOF) {
			log.Debug("stream ended", logger.String("stream", stream), logger.Int("records", n))
			return nil
		}
		if err != nil {
			return errors.New(err).
				Component(componentName).
				Category(errors.CategoryIngest).
				Context("stream", stream).
				Context("records", n).
				Build()
		}
		push(rec)
		n++
	}
}
