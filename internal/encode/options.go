// Package encode writes captured windows to disk: MP4 files with MPEG-4
// Part 2 video and AAC audio through FFmpeg (go-astiav), and audio-only WAV
// files through go-audio.
package encode

import (
	"time"

	"github.com/DA1F/RoAnalyzer/internal/errors"
)

const componentName = "encode"

// Sentinels for errors.Is. EnhancedError matches by category, so any error
// built with the same category compares equal.
var (
	ErrCodecUnavailable = errors.New(nil).Component(componentName).Category(errors.CategoryCodecUnavailable).Build()
	ErrCodecConfig      = errors.New(nil).Component(componentName).Category(errors.CategoryCodecConfig).Build()
	ErrIO               = errors.New(nil).Component(componentName).Category(errors.CategoryFileIO).Build()
	ErrCancelled        = errors.New(nil).Component(componentName).Category(errors.CategoryCancellation).Build()
)

// Options is the encoder configuration, fixed for the lifetime of an encoder.
type Options struct {
	Width        int // pixels, even
	Height       int // pixels, even
	FPS          int
	SampleRate   int // Hz
	Channels     int // 1 or 2
	VideoBitRate int // bits/s, 0 lets the codec pick
	AudioBitRate int // bits/s, 0 lets the codec pick
	GopSize      int // frames between keyframes, 0 means one second
}

// DefaultOptions mirror the capture defaults: 30 fps, 44.1 kHz stereo.
func DefaultOptions() Options {
	return Options{
		Width:        640,
		Height:       480,
		FPS:          30,
		SampleRate:   44100,
		Channels:     2,
		VideoBitRate: 2_000_000,
		AudioBitRate: 128_000,
	}
}

// FrameBytes is the RGB24 size every video frame must have.
func (o Options) FrameBytes() int {
	return o.Width * o.Height * 3
}

// FrameInterval is the nominal spacing between frames.
func (o Options) FrameInterval() time.Duration {
	if o.FPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(o.FPS)
}

func (o Options) gopSize() int {
	if o.GopSize > 0 {
		return o.GopSize
	}
	return o.FPS
}

// Validate rejects combinations no encoder can open. It runs before any
// FFmpeg allocation.
func (o Options) Validate() error {
	invalid := func(field string, value any, reason string) error {
		return errors.Newf("invalid encoder option %s=%v: %s", field, value, reason).
			Component(componentName).
			Category(errors.CategoryCodecConfig).
			Context("field", field).
			Build()
	}

	switch {
	case o.Width <= 0 || o.Height <= 0:
		return invalid("size", [2]int{o.Width, o.Height}, "dimensions must be positive")
	case o.Width%2 != 0 || o.Height%2 != 0:
		return invalid("size", [2]int{o.Width, o.Height}, "yuv420p needs even dimensions")
	case o.FPS <= 0:
		return invalid("fps", o.FPS, "must be positive")
	case o.SampleRate <= 0:
		return invalid("sample_rate", o.SampleRate, "must be positive")
	case o.Channels != 1 && o.Channels != 2:
		return invalid("channels", o.Channels, "only mono and stereo are supported")
	case o.VideoBitRate < 0:
		return invalid("video_bitrate", o.VideoBitRate, "must not be negative")
	case o.AudioBitRate < 0:
		return invalid("audio_bitrate", o.AudioBitRate, "must not be negative")
	case o.GopSize < 0:
		return invalid("gop_size", o.GopSize, "must not be negative")
	}
	return nil
}
