package encode

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DA1F/RoAnalyzer/internal/media"
)

func TestWriteWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "clip.wav")
	chunks := []media.AudioChunk{
		{TimestampMs: 100, Data: s16le(1, -1, 2, -2)},
		{TimestampMs: 150, Data: s16le(3, -3, 4, -4, 5, -5)},
	}

	res, err := WriteWAV(context.Background(), path, chunks, 8000, 2)
	require.NoError(t, err)

	assert.Equal(t, KindAudio, res.Kind)
	assert.Equal(t, int64(5), res.AudioSamples)
	assert.Equal(t, 2, res.AudioChunks)
	assert.Equal(t, uint64(100), res.StartMs)
	assert.Equal(t, uint64(150), res.EndMs)
	assert.Equal(t, 625*time.Microsecond, res.Duration)
	assert.Positive(t, res.Size)
	assert.NoFileExists(t, path+".tmp")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, 8000, buf.Format.SampleRate)
	assert.Equal(t, 2, buf.Format.NumChannels)
	assert.Equal(t, []int{1, -1, 2, -2, 3, -3, 4, -4, 5, -5}, buf.Data)
}

func TestWriteWAVErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := WriteWAV(context.Background(), filepath.Join(dir, "a.wav"), nil, 8000, 1)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "a.wav"))

	_, err = WriteWAV(context.Background(), filepath.Join(dir, "b.wav"),
		[]media.AudioChunk{{Data: s16le(1)}}, 8000, 4)
	assert.ErrorIs(t, err, ErrCodecConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = WriteWAV(ctx, filepath.Join(dir, "c.wav"), []media.AudioChunk{{Data: s16le(1)}}, 8000, 1)
	assert.ErrorIs(t, err, ErrCancelled)

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	_, err = WriteWAV(context.Background(), filepath.Join(blocker, "d.wav"), []media.AudioChunk{{Data: s16le(1)}}, 8000, 1)
	assert.ErrorIs(t, err, ErrIO)
}
