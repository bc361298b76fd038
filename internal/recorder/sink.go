package recorder

import (
	"github.com/DA1F/RoAnalyzer/internal/media"
	"github.com/DA1F/RoAnalyzer/internal/observability"
	"github.com/DA1F/RoAnalyzer/internal/streampuffer"
)

// PushVideo forwards a frame to the capture buffer.
func (r *Recorder) PushVideo(f media.VideoFrame) {
	r.puffer.PushVideo(f)
}

// PushAudio forwards a chunk to the capture buffer. Chunks are dropped when
// audio capture is disabled.
func (r *Recorder) PushAudio(c media.AudioChunk) {
	if !r.audioOn {
		return
	}
	r.puffer.PushAudio(c)
}

// AudioEnabled reports whether audio chunks are kept.
func (r *Recorder) AudioEnabled() bool { return r.audioOn }

type captureObserver struct {
	m *observability.Metrics
}

func (o captureObserver) ObservePush(kind streampuffer.StreamKind, evicted bool, length, payloadBytes int) {
	o.m.Capture.RecordPush(string(kind), evicted, length, payloadBytes)
}

// Stats reports the state of both rings.
func (r *Recorder) Stats() streampuffer.Stats { return r.puffer.Stats() }

// FrameBytes is the size every pushed video frame must have.
func (r *Recorder) FrameBytes() int { return r.puffer.Config().EncoderOptions().FrameBytes() }

// AudioFrameBytes is the size of one interleaved sample across all channels.
func (r *Recorder) AudioFrameBytes() int { return 2 * max(r.puffer.Config().Channels, 1) }
