package encode

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/media"
)

func requireCodecs(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping FFmpeg encode in short mode")
	}
	if astiav.FindEncoder(astiav.CodecIDMpeg4) == nil || astiav.FindEncoder(astiav.CodecIDAac) == nil {
		t.Skip("FFmpeg build lacks mpeg4 or aac encoder")
	}
}

func testEncoder(t *testing.T) *MP4Encoder {
	t.Helper()
	opts := Options{Width: 64, Height: 48, FPS: 25, SampleRate: 16000, Channels: 2, VideoBitRate: 200_000, AudioBitRate: 64_000}
	enc, err := NewMP4Encoder(opts, logger.NewSlogLogger(nil, logger.LogLevelError, nil))
	require.NoError(t, err)
	return enc
}

func gradientFrames(opts Options, count int, startMs uint64) []media.VideoFrame {
	interval := uint64(1000 / opts.FPS)
	frames := make([]media.VideoFrame, count)
	for i := range frames {
		data := make([]byte, opts.FrameBytes())
		for p := 0; p < len(data); p += 3 {
			data[p] = byte(i * 8)
			data[p+1] = byte(p)
			data[p+2] = 128
		}
		frames[i] = media.VideoFrame{TimestampMs: startMs + uint64(i)*interval, Data: data}
	}
	return frames
}

// toneChunks returns chunks of 20 ms each covering durationMs.
func toneChunks(opts Options, durationMs int, startMs uint64) []media.AudioChunk {
	const chunkMs = 20
	perChunk := opts.SampleRate * chunkMs / 1000
	var chunks []media.AudioChunk
	n := 0
	for ms := 0; ms < durationMs; ms += chunkMs {
		samples := make([]int16, 0, perChunk*opts.Channels)
		for range perChunk {
			v := int16(8000 * math.Sin(2*math.Pi*440*float64(n)/float64(opts.SampleRate)))
			for range opts.Channels {
				samples = append(samples, v)
			}
			n++
		}
		chunks = append(chunks, media.AudioChunk{TimestampMs: startMs + uint64(ms), Data: s16le(samples...)})
	}
	return chunks
}

type streamInfo struct {
	seconds float64
}

func readStreams(t *testing.T, path string) (video, audio *streamInfo) {
	t.Helper()

	fc := astiav.AllocFormatContext()
	require.NotNil(t, fc)
	defer fc.Free()

	require.NoError(t, fc.OpenInput(path, nil, nil))
	defer fc.CloseInput()
	require.NoError(t, fc.FindStreamInfo(nil))

	for _, s := range fc.Streams() {
		tb := s.TimeBase()
		ps := &streamInfo{seconds: float64(s.Duration()) * float64(tb.Num()) / float64(tb.Den())}
		switch s.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			video = ps
		case astiav.MediaTypeAudio:
			audio = ps
		}
	}
	return video, audio
}

func TestEncodeSynchronizedRoundTrip(t *testing.T) {
	requireCodecs(t)
	enc := testEncoder(t)
	opts := enc.Options()

	const frames = 50 // two seconds at 25 fps
	video := gradientFrames(opts, frames, 1000)
	audio := toneChunks(opts, 3000, 900)

	w := media.Synchronize(video, audio)
	require.Equal(t, media.Synchronized, w.Kind())

	path := filepath.Join(t.TempDir(), "av.mp4")
	res, err := enc.Encode(context.Background(), path, w)
	require.NoError(t, err)

	assert.Equal(t, KindAV, res.Kind)
	assert.Equal(t, frames, res.VideoFrames)
	assert.Zero(t, res.SkippedFrames)
	assert.Positive(t, res.AudioSamples)
	assert.FileExists(t, path)
	assert.NoFileExists(t, path+".tmp")

	v, a := readStreams(t, path)
	require.NotNil(t, v)
	require.NotNil(t, a)

	interval := 1.0 / float64(opts.FPS)
	assert.InDelta(t, float64(frames)/float64(opts.FPS), v.seconds, interval)
	assert.InDelta(t, float64(res.AudioSamples)/float64(opts.SampleRate), a.seconds, 0.1)
}

func TestEncodeVideoOnly(t *testing.T) {
	requireCodecs(t)
	enc := testEncoder(t)
	opts := enc.Options()

	video := gradientFrames(opts, 10, 0)
	audio := toneChunks(opts, 100, 5000) // no overlap

	w := media.Synchronize(video, audio)
	require.Equal(t, media.VideoOnly, w.Kind())

	path := filepath.Join(t.TempDir(), "v.mp4")
	res, err := enc.Encode(context.Background(), path, w)
	require.NoError(t, err)
	assert.Equal(t, KindVideo, res.Kind)
	assert.Zero(t, res.AudioChunks)

	v, a := readStreams(t, path)
	assert.NotNil(t, v)
	assert.Nil(t, a)
}

func TestEncodeSkipsMalformedFrame(t *testing.T) {
	requireCodecs(t)
	enc := testEncoder(t)

	video := gradientFrames(enc.Options(), 8, 0)
	video[3].Data = video[3].Data[:10]

	res, err := enc.Encode(context.Background(), filepath.Join(t.TempDir(), "m.mp4"), media.Synchronize(video, nil))
	require.NoError(t, err)
	assert.Equal(t, 7, res.VideoFrames)
	assert.Equal(t, 1, res.SkippedFrames)
}

func TestEncodeEmptyWindow(t *testing.T) {
	t.Parallel()

	enc, err := NewMP4Encoder(DefaultOptions(), logger.NewSlogLogger(nil, logger.LogLevelError, nil))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "empty.mp4")
	_, err = enc.Encode(context.Background(), path, media.Synchronize(nil, nil))
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	assert.NoFileExists(t, path+".tmp")
}

func TestEncodeUnwritableDirectory(t *testing.T) {
	t.Parallel()

	enc, err := NewMP4Encoder(DefaultOptions(), logger.NewSlogLogger(nil, logger.LogLevelError, nil))
	require.NoError(t, err)

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	path := filepath.Join(blocker, "out.mp4")
	_, err = enc.Encode(context.Background(), path, media.Synchronize(gradientFrames(enc.Options(), 2, 0), nil))
	require.ErrorIs(t, err, ErrIO)
	assert.False(t, errors.IsCategory(err, errors.CategoryCancellation))
	assert.NoFileExists(t, path)
}

func TestEncodeCancelled(t *testing.T) {
	requireCodecs(t)
	enc := testEncoder(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "c.mp4")
	_, err := enc.Encode(ctx, path, media.Synchronize(gradientFrames(enc.Options(), 5, 0), nil))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.NoFileExists(t, path)
}

// cancelAfter reports cancellation once Err has been polled n times.
type cancelAfter struct {
	context.Context
	n atomic.Int32
}

func (c *cancelAfter) Err() error {
	if c.n.Add(-1) < 0 {
		return context.Canceled
	}
	return nil
}

func TestEncodeCancelledBeforeRename(t *testing.T) {
	requireCodecs(t)
	enc := testEncoder(t)

	const frames = 5
	ctx := &cancelAfter{Context: context.Background()}
	ctx.n.Store(frames)

	path := filepath.Join(t.TempDir(), "late.mp4")
	_, err := enc.Encode(ctx, path, media.Synchronize(gradientFrames(enc.Options(), frames, 0), nil))
	require.ErrorIs(t, err, ErrCancelled)
	assert.NoFileExists(t, path)
	assert.FileExists(t, path+".tmp")
}
