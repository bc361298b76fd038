package encode

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/smallnest/ringbuffer"
)

const bytesPerS16 = 2

// pcmAccumulator buffers interleaved s16le samples across chunk boundaries
// and hands out fixed-size planar float32 blocks, one per encoder frame.
type pcmAccumulator struct {
	ring       *ringbuffer.RingBuffer
	channels   int
	frameSize  int
	blockBytes int
	block      []byte // interleaved s16le, one encoder frame
	planar     []byte // planar float32le, channel after channel
}

func newPCMAccumulator(frameSize, channels int) *pcmAccumulator {
	blockBytes := frameSize * channels * bytesPerS16
	return &pcmAccumulator{
		ring:       ringbuffer.New(2 * blockBytes),
		channels:   channels,
		frameSize:  frameSize,
		blockBytes: blockBytes,
		block:      make([]byte, blockBytes),
		planar:     make([]byte, frameSize*channels*4),
	}
}

// push appends one chunk and calls emit for every complete block. The planar
// slice passed to emit is reused between calls.
func (a *pcmAccumulator) push(data []byte, emit func(planar []byte) error) error {
	// a trailing odd byte is not a sample
	data = data[:len(data)&^1]

	for len(data) > 0 {
		n := min(len(data), a.ring.Free())
		if _, err := a.ring.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]

		for a.ring.Length() >= a.blockBytes {
			if _, err := io.ReadFull(a.ring, a.block); err != nil {
				return err
			}
			deinterleaveS16(a.block, a.planar, a.channels)
			if err := emit(a.planar); err != nil {
				return err
			}
		}
	}
	return nil
}

// pendingSamples reports samples per channel that do not fill a block yet.
// They are dropped when encoding ends.
func (a *pcmAccumulator) pendingSamples() int {
	return a.ring.Length() / (a.channels * bytesPerS16)
}

// deinterleaveS16 converts interleaved s16le into planar float32le in [-1, 1).
func deinterleaveS16(src, dst []byte, channels int) {
	samples := len(src) / (channels * bytesPerS16)
	for i := range samples {
		for c := range channels {
			off := (i*channels + c) * bytesPerS16
			v := int16(binary.LittleEndian.Uint16(src[off:]))
			f := float32(v) / 32768.0
			binary.LittleEndian.PutUint32(dst[(c*samples+i)*4:], math.Float32bits(f))
		}
	}
}
