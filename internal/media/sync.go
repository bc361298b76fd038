package media

// WindowKind tells which streams a Window carries.
type WindowKind int

const (
	// VideoOnly means audio was absent or did not overlap video in time.
	VideoOnly WindowKind = iota
	// Synchronized means both streams were trimmed to their common range.
	Synchronized
)

func (k WindowKind) String() string {
	switch k {
	case Synchronized:
		return "synchronized"
	case VideoOnly:
		return "video-only"
	default:
		return "unknown"
	}
}

// Overlap is the inclusive time range covered by both streams.
type Overlap struct {
	StartMs uint64
	EndMs   uint64
}

// DurationMs returns EndMs - StartMs.
func (o Overlap) DurationMs() uint64 {
	return o.EndMs - o.StartMs
}

// Window is the result of Synchronize. Audio is only reachable for a
// Synchronized window; a VideoOnly window never hands out the discarded chunks.
type Window struct {
	kind    WindowKind
	video   []VideoFrame
	audio   []AudioChunk
	overlap Overlap
}

// Kind reports whether the window carries audio.
func (w Window) Kind() WindowKind { return w.kind }

// Video returns the frames to encode.
func (w Window) Video() []VideoFrame { return w.video }

// Audio returns the chunks to encode, nil for VideoOnly windows.
func (w Window) Audio() []AudioChunk {
	if w.kind != Synchronized {
		return nil
	}
	return w.audio
}

// Overlap returns the common range. For VideoOnly windows it is the zero value.
func (w Window) Overlap() Overlap { return w.overlap }

// NewVideoOnly wraps frames in a VideoOnly window.
func NewVideoOnly(video []VideoFrame) Window {
	return Window{kind: VideoOnly, video: video}
}

// Synchronize trims video and audio to the range both streams cover.
//
// The range is [max(first timestamps), min(last timestamps)], inclusive at
// both ends. Empty audio, or a range whose end is not after its start, yields
// a VideoOnly window holding all of video. Input order is kept as is: no
// sorting or deduplication is done, so "first" and "last" are positional.
func Synchronize(video []VideoFrame, audio []AudioChunk) Window {
	if len(audio) == 0 || len(video) == 0 {
		return NewVideoOnly(video)
	}

	start := max(video[0].TimestampMs, audio[0].TimestampMs)
	end := min(video[len(video)-1].TimestampMs, audio[len(audio)-1].TimestampMs)

	if end <= start {
		return NewVideoOnly(video)
	}

	return Window{
		kind:    Synchronized,
		video:   filterRange(video, start, end),
		audio:   filterRange(audio, start, end),
		overlap: Overlap{StartMs: start, EndMs: end},
	}
}

func filterRange[T Stamped](items []T, start, end uint64) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if ts := it.Timestamp(); ts >= start && ts <= end {
			out = append(out, it)
		}
	}
	return out
}
