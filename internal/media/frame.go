// Package media holds the captured stream records and the window synchronizer.
package media

// VideoFrame is one raw RGB24 frame. Data is expected to be width*height*3
// bytes; the encoder checks this, push paths do not.
type VideoFrame struct {
	TimestampMs uint64
	Data        []byte
}

// AudioChunk is interleaved little-endian 16-bit PCM. Chunk boundaries are
// arbitrary and need not align to any encoder frame size.
type AudioChunk struct {
	TimestampMs uint64
	Data        []byte
}

// FrameFromMicros builds a VideoFrame from a producer record stamped in
// microseconds. Sub-millisecond precision is truncated.
func FrameFromMicros(timestampUs uint64, data []byte) VideoFrame {
	return VideoFrame{TimestampMs: timestampUs / 1000, Data: data}
}

// ChunkFromMicros is the audio counterpart of FrameFromMicros.
func ChunkFromMicros(timestampUs uint64, data []byte) AudioChunk {
	return AudioChunk{TimestampMs: timestampUs / 1000, Data: data}
}

// Timestamp returns the frame timestamp in milliseconds.
func (f VideoFrame) Timestamp() uint64 { return f.TimestampMs }

// Timestamp returns the chunk timestamp in milliseconds.
func (c AudioChunk) Timestamp() uint64 { return c.TimestampMs }

// Samples returns the number of samples per channel carried by the chunk.
func (c AudioChunk) Samples(channels int) int {
	if channels <= 0 {
		return 0
	}
	return len(c.Data) / (2 * channels)
}

// Stamped is implemented by both record types.
type Stamped interface {
	Timestamp() uint64
}
