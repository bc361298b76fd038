package encode

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/media"
)

// MP4Encoder writes synchronizer windows as MP4 files with an MPEG-4 Part 2
// video track and, for synchronized windows, an AAC audio track.
type MP4Encoder struct {
	opts Options
	log  logger.Logger
}

// NewMP4Encoder validates opts and returns an encoder. No FFmpeg state is
// allocated until Encode runs.
func NewMP4Encoder(opts Options, log logger.Logger) (*MP4Encoder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = GetLogger()
	}
	installLogBridge(log)
	return &MP4Encoder{opts: opts, log: log}, nil
}

// Options returns the encoder configuration.
func (e *MP4Encoder) Options() Options { return e.opts }

// Encode writes w to path. The file is written as path+".tmp" and renamed
// once the trailer is on disk; on failure the temp file is left in place and
// path is not created. ctx is checked between frames and once more before
// the rename.
func (e *MP4Encoder) Encode(ctx context.Context, path string, w media.Window) (*Result, error) {
	started := time.Now()

	if err := e.opts.Validate(); err != nil {
		return nil, err
	}
	frames := w.Video()
	if len(frames) == 0 {
		return nil, errors.Newf("no video frames to encode").
			Component(componentName).
			Category(errors.CategoryEmptyBuffer).
			Context("path", path).
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fileError(err, "create_output_directory", path)
	}

	tmpPath := path + ".tmp"
	withAudio := w.Kind() == media.Synchronized

	m, err := newMuxer(tmpPath, e.opts, withAudio, e.log)
	if err != nil {
		return nil, err
	}
	defer m.free()

	span := w.Overlap()
	if !withAudio {
		span = media.Overlap{StartMs: frames[0].TimestampMs, EndMs: frames[len(frames)-1].TimestampMs}
	}
	res := &Result{Path: path, Kind: KindFor(w), StartMs: span.StartMs, EndMs: span.EndMs}
	res.Duration = time.Duration(span.DurationMs()) * time.Millisecond

	if err := m.writeVideo(ctx, frames, res); err != nil {
		return nil, err
	}
	if withAudio {
		if err := m.writeAudio(ctx, w.Audio(), res); err != nil {
			return nil, err
		}
	}
	if err := m.finish(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err, "finalize")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("operation", "rename_output_file").
			Context("from", tmpPath).
			Context("to", path).
			Build()
	}
	if info, err := os.Stat(path); err == nil {
		res.Size = info.Size()
	}
	res.Elapsed = time.Since(started)

	e.log.Info("mp4 written",
		logger.String("path", path),
		logger.String("kind", string(res.Kind)),
		logger.Int("frames", res.VideoFrames),
		logger.Int("skipped_frames", res.SkippedFrames),
		logger.Int64("audio_samples", res.AudioSamples),
		logger.Int64("size", res.Size),
		logger.Duration("elapsed", res.Elapsed))

	return res, nil
}

func fileError(err error, op, path string) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryFileIO).
		Context("operation", op).
		FileContext(path, 0).
		Build()
}

func cancelled(err error, stage string) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryCancellation).
		Context("stage", stage).
		Build()
}

// muxer owns the output container and both encoders for one Encode call.
type muxer struct {
	path  string
	opts  Options
	log   logger.Logger
	oc    *astiav.FormatContext
	pb    *astiav.IOContext
	pkt   *astiav.Packet
	video *videoEncoder
	audio *audioEncoder
}

// newMuxer sets up the container and encoders and writes the header. Codec
// failures surface before the header, so nothing but an empty temp file exists.
func newMuxer(path string, opts Options, withAudio bool, log logger.Logger) (_ *muxer, err error) {
	m := &muxer{path: path, opts: opts, log: log}
	defer func() {
		if err != nil {
			m.free()
		}
	}()

	m.oc, err = astiav.AllocOutputFormatContext(nil, "mp4", path)
	if err != nil {
		return nil, codecError(errors.CategoryCodecUnavailable, "alloc_output_context", err)
	}
	if m.oc == nil {
		return nil, codecError(errors.CategoryCodecUnavailable, "alloc_output_context", nil)
	}

	if m.video, err = newVideoEncoder(m.oc, opts); err != nil {
		return nil, err
	}
	if withAudio {
		if m.audio, err = newAudioEncoder(m.oc, opts); err != nil {
			return nil, err
		}
	}

	m.pb, err = astiav.OpenIOContext(path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
	if err != nil {
		return nil, fileError(err, "open_output_file", path)
	}
	m.oc.SetPb(m.pb)

	if err = m.oc.WriteHeader(nil); err != nil {
		return nil, fileError(err, "write_header", path)
	}

	m.pkt = astiav.AllocPacket()
	return m, nil
}

// writeVideo submits every well-formed frame with its pts rebased to the
// first frame, then flushes the video encoder.
func (m *muxer) writeVideo(ctx context.Context, frames []media.VideoFrame, res *Result) error {
	want := m.opts.FrameBytes()
	first := frames[0].TimestampMs

	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return cancelled(err, "video")
		}
		if len(f.Data) != want {
			res.SkippedFrames++
			m.log.Warn("skipping malformed video frame",
				logger.Int("index", i),
				logger.Uint64("timestamp_ms", f.TimestampMs),
				logger.Int("bytes", len(f.Data)),
				logger.Int("expected_bytes", want))
			continue
		}

		// timestamps before the first frame would wrap; clamp them to zero
		var pts int64
		if f.TimestampMs > first {
			pts = int64(f.TimestampMs - first)
		}

		frame, err := m.video.prepare(f.Data, pts)
		if err != nil {
			return err
		}
		if err := m.send(m.video.streamEncoder, frame); err != nil {
			return err
		}
		res.VideoFrames++
	}

	return m.send(m.video.streamEncoder, nil)
}

// writeAudio pushes chunks through the accumulator, encodes every complete
// block, drops the trailing partial block and flushes the audio encoder.
func (m *muxer) writeAudio(ctx context.Context, chunks []media.AudioChunk, res *Result) error {
	emit := func(planar []byte) error {
		frame, err := m.audio.prepare(planar)
		if err != nil {
			return err
		}
		return m.send(m.audio.streamEncoder, frame)
	}

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return cancelled(err, "audio")
		}
		if err := m.audio.acc.push(c.Data, emit); err != nil {
			return err
		}
		res.AudioChunks++
	}

	if pending := m.audio.acc.pendingSamples(); pending > 0 {
		m.log.Debug("discarding partial audio frame", logger.Int("samples", pending))
	}
	res.AudioSamples = m.audio.samples

	return m.send(m.audio.streamEncoder, nil)
}

// send submits frame (nil flushes) and drains every packet the encoder yields
// into the container, rescaled from milliseconds to the stream time base.
func (m *muxer) send(se *streamEncoder, frame *astiav.Frame) error {
	if err := se.ctx.SendFrame(frame); err != nil {
		return codecError(errors.CategoryCodecConfig, "send_"+se.name+"_frame", err)
	}

	for {
		err := se.ctx.ReceivePacket(m.pkt)
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil
		}
		if err != nil {
			return codecError(errors.CategoryCodecConfig, "receive_"+se.name+"_packet", err)
		}

		m.pkt.SetStreamIndex(se.stream.Index())
		m.pkt.RescaleTs(msTimeBase, se.stream.TimeBase())

		err = m.oc.WriteInterleavedFrame(m.pkt)
		m.pkt.Unref()
		if err != nil {
			return fileError(err, "write_"+se.name+"_packet", m.path)
		}
	}
}

// finish writes the trailer and closes the output. Both encoders must have
// been flushed.
func (m *muxer) finish() error {
	if err := m.oc.WriteTrailer(); err != nil {
		return fileError(err, "write_trailer", m.path)
	}
	err := m.pb.Close()
	m.pb.Free()
	m.pb = nil
	if err != nil {
		return fileError(err, "close_output_file", m.path)
	}
	return nil
}

func (m *muxer) free() {
	if m.pkt != nil {
		m.pkt.Free()
		m.pkt = nil
	}
	if m.video != nil {
		m.video.free()
		m.video = nil
	}
	if m.audio != nil {
		m.audio.free()
		m.audio = nil
	}
	if m.pb != nil {
		_ = m.pb.Close()
		m.pb.Free()
		m.pb = nil
	}
	if m.oc != nil {
		m.oc.Free()
		m.oc = nil
	}
}
