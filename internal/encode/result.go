package encode

import (
	"time"

	"github.com/DA1F/RoAnalyzer/internal/media"
)

// Kind describes what a saved file contains.
type Kind string

const (
	KindAV    Kind = "av"    // video and audio tracks
	KindVideo Kind = "video" // video track only
	KindAudio Kind = "audio" // audio-only WAV
)

// KindFor maps a synchronizer window to the kind of file it produces.
func KindFor(w media.Window) Kind {
	if w.Kind() == media.Synchronized {
		return KindAV
	}
	return KindVideo
}

// Result summarizes one written file.
type Result struct {
	Path          string
	Kind          Kind
	VideoFrames   int // frames submitted to the encoder
	SkippedFrames int // frames dropped for having the wrong size
	AudioChunks   int
	AudioSamples  int64 // samples per channel submitted to the encoder
	StartMs       uint64
	EndMs         uint64
	Duration      time.Duration
	Size          int64
	Elapsed       time.Duration
}
