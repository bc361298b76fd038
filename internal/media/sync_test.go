package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func framesAt(ts ...uint64) []VideoFrame {
	out := make([]VideoFrame, len(ts))
	for i, t := range ts {
		out[i] = VideoFrame{TimestampMs: t, Data: []byte{byte(i)}}
	}
	return out
}

func chunksAt(ts ...uint64) []AudioChunk {
	out := make([]AudioChunk, len(ts))
	for i, t := range ts {
		out[i] = AudioChunk{TimestampMs: t, Data: []byte{byte(i), 0}}
	}
	return out
}

func timestamps[T Stamped](items []T) []uint64 {
	out := make([]uint64, len(items))
	for i, it := range items {
		out[i] = it.Timestamp()
	}
	return out
}

func TestSynchronize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		video     []VideoFrame
		audio     []AudioChunk
		wantKind  WindowKind
		wantVideo []uint64
		wantAudio []uint64
		overlap   Overlap
	}{
		{
			name:      "audio contained in video",
			video:     framesAt(10, 40, 50, 100, 300, 301, 500),
			audio:     chunksAt(50, 120, 300),
			wantKind:  Synchronized,
			wantVideo: []uint64{50, 100, 300},
			wantAudio: []uint64{50, 120, 300},
			overlap:   Overlap{StartMs: 50, EndMs: 300},
		},
		{
			name:      "no temporal intersection",
			video:     framesAt(0, 50, 100),
			audio:     chunksAt(200, 300),
			wantKind:  VideoOnly,
			wantVideo: []uint64{0, 50, 100},
		},
		{
			name:      "touching ranges do not overlap",
			video:     framesAt(0, 100),
			audio:     chunksAt(100, 200),
			wantKind:  VideoOnly,
			wantVideo: []uint64{0, 100},
		},
		{
			name:      "empty audio",
			video:     framesAt(5, 6),
			wantKind:  VideoOnly,
			wantVideo: []uint64{5, 6},
		},
		{
			name:      "single elements",
			video:     framesAt(42),
			audio:     chunksAt(42),
			wantKind:  VideoOnly,
			wantVideo: []uint64{42},
		},
		{
			name:      "audio leads video",
			video:     framesAt(100, 133, 166, 200),
			audio:     chunksAt(0, 90, 150, 180),
			wantKind:  Synchronized,
			wantVideo: []uint64{100, 133, 166},
			wantAudio: []uint64{150, 180},
			overlap:   Overlap{StartMs: 100, EndMs: 180},
		},
		{
			name:      "duplicates kept",
			video:     framesAt(10, 20, 20, 30),
			audio:     chunksAt(10, 30),
			wantKind:  Synchronized,
			wantVideo: []uint64{10, 20, 20, 30},
			wantAudio: []uint64{10, 30},
			overlap:   Overlap{StartMs: 10, EndMs: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := Synchronize(tt.video, tt.audio)

			assert.Equal(t, tt.wantKind, w.Kind())
			assert.Equal(t, tt.wantVideo, timestamps(w.Video()))
			if tt.wantKind == VideoOnly {
				assert.Nil(t, w.Audio())
				assert.Equal(t, Overlap{}, w.Overlap())
				assert.Zero(t, w.Overlap().DurationMs())
				return
			}
			assert.Equal(t, tt.wantAudio, timestamps(w.Audio()))
			assert.Equal(t, tt.overlap, w.Overlap())
			assert.Equal(t, tt.overlap.EndMs-tt.overlap.StartMs, w.Overlap().DurationMs())
		})
	}
}

func TestSynchronizeDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	video := framesAt(0, 10, 20)
	audio := chunksAt(10, 20)

	w := Synchronize(video, audio)
	require.Equal(t, Synchronized, w.Kind())

	w.Video()[0].TimestampMs = 999
	assert.Equal(t, uint64(10), video[1].TimestampMs)
}

func TestFromMicros(t *testing.T) {
	t.Parallel()

	f := FrameFromMicros(1_234_999, []byte{1})
	c := ChunkFromMicros(999, nil)

	assert.Equal(t, uint64(1234), f.TimestampMs)
	assert.Equal(t, uint64(0), c.TimestampMs)
}

func TestAudioChunkSamples(t *testing.T) {
	t.Parallel()

	c := AudioChunk{Data: make([]byte, 4096)}
	assert.Equal(t, 1024, c.Samples(2))
	assert.Equal(t, 2048, c.Samples(1))
	assert.Equal(t, 0, c.Samples(0))
}

func TestWindowKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "synchronized", Synchronized.String())
	assert.Equal(t, "video-only", VideoOnly.String())
	assert.Equal(t, "unknown", WindowKind(7).String())
}
