package encode

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s16le(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func planarFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

func TestDeinterleaveS16(t *testing.T) {
	t.Parallel()

	src := s16le(0, -32768, 16384, 32767)
	dst := make([]byte, 4*4)
	deinterleaveS16(src, dst, 2)

	got := planarFloats(dst)
	// left: 0, 16384; right: -32768, 32767
	assert.InDelta(t, 0.0, got[0], 1e-6)
	assert.InDelta(t, 0.5, got[1], 1e-6)
	assert.InDelta(t, -1.0, got[2], 1e-6)
	assert.InDelta(t, 32767.0/32768.0, got[3], 1e-6)
}

func TestPCMAccumulatorSpansChunks(t *testing.T) {
	t.Parallel()

	const frameSize, channels = 4, 2
	acc := newPCMAccumulator(frameSize, channels)

	var blocks [][]float32
	emit := func(p []byte) error {
		blocks = append(blocks, planarFloats(p))
		return nil
	}

	// 3 stereo samples, then 6: one full block of 4 plus 1 left over
	require.NoError(t, acc.push(s16le(1, -1, 2, -2, 3, -3), emit))
	assert.Empty(t, blocks)
	assert.Equal(t, 3, acc.pendingSamples())

	require.NoError(t, acc.push(s16le(4, -4, 5, -5), emit))
	require.Len(t, blocks, 1)
	assert.Equal(t, 1, acc.pendingSamples())

	want := []float32{1, 2, 3, 4, -1, -2, -3, -4}
	for i, w := range want {
		assert.InDelta(t, w/32768.0, blocks[0][i], 1e-9)
	}
}

func TestPCMAccumulatorLargeChunk(t *testing.T) {
	t.Parallel()

	const frameSize, channels = 1024, 1
	acc := newPCMAccumulator(frameSize, channels)

	blocks := 0
	// larger than the ring: must be fed in pieces without error
	chunk := make([]byte, 5*frameSize*2+100)
	require.NoError(t, acc.push(chunk, func([]byte) error {
		blocks++
		return nil
	}))

	assert.Equal(t, 5, blocks)
	assert.Equal(t, 50, acc.pendingSamples())
}

func TestPCMAccumulatorOddByteDropped(t *testing.T) {
	t.Parallel()

	acc := newPCMAccumulator(2, 1)
	require.NoError(t, acc.push([]byte{1, 0, 2}, func([]byte) error { return nil }))
	assert.Equal(t, 1, acc.pendingSamples())
}

func TestPCMAccumulatorEmitError(t *testing.T) {
	t.Parallel()

	acc := newPCMAccumulator(1, 1)
	err := acc.push(s16le(1, 2), func([]byte) error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
}
