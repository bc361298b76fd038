package encode

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/media"
)

const wavBitDepth = 16

// WriteWAV writes chunks as a 16-bit PCM WAV file, concatenated in order
// with no gaps filled. Like Encode it writes path+".tmp" first.
func WriteWAV(ctx context.Context, path string, chunks []media.AudioChunk, sampleRate, channels int) (*Result, error) {
	started := time.Now()

	if len(chunks) == 0 {
		return nil, errors.Newf("no audio chunks to write").
			Component(componentName).
			Category(errors.CategoryEmptyBuffer).
			Context("path", path).
			Build()
	}
	if sampleRate <= 0 || (channels != 1 && channels != 2) {
		return nil, errors.Newf("invalid wav format: %d Hz, %d channels", sampleRate, channels).
			Component(componentName).
			Category(errors.CategoryCodecConfig).
			Build()
	}

	samples := make([]int, 0, totalSamples(chunks))
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err, "wav")
		}
		samples = appendS16(samples, c.Data)
	}
	// whole sample frames only
	samples = samples[:len(samples)-len(samples)%channels]

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fileError(err, "create_output_directory", path)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fileError(err, "create_wav_file", tmpPath)
	}

	enc := wav.NewEncoder(f, sampleRate, wavBitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return nil, fileError(err, "write_wav_samples", tmpPath)
	}
	// Close finalizes the RIFF header sizes
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return nil, fileError(err, "finalize_wav", tmpPath)
	}
	if err := f.Close(); err != nil {
		return nil, fileError(err, "close_wav_file", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fileError(err, "rename_output_file", path)
	}

	perChannel := int64(len(samples) / channels)
	res := &Result{
		Path:         path,
		Kind:         KindAudio,
		AudioChunks:  len(chunks),
		AudioSamples: perChannel,
		StartMs:      chunks[0].TimestampMs,
		EndMs:        chunks[len(chunks)-1].TimestampMs,
		Duration:     time.Duration(perChannel) * time.Second / time.Duration(sampleRate),
		Elapsed:      time.Since(started),
	}
	if info, err := os.Stat(path); err == nil {
		res.Size = info.Size()
	}
	return res, nil
}

func totalSamples(chunks []media.AudioChunk) int {
	n := 0
	for _, c := range chunks {
		n += len(c.Data) / bytesPerS16
	}
	return n
}

func appendS16(dst []int, data []byte) []int {
	for i := 0; i+1 < len(data); i += bytesPerS16 {
		dst = append(dst, int(int16(binary.LittleEndian.Uint16(data[i:]))))
	}
	return dst
}
