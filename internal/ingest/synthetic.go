package ingest

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"time"
)

const (
	toneHz        = 440.0
	toneAmplitude = 0.25
	chunkDuration = 20 * time.Millisecond
)

// SyntheticConfig shapes the generated streams.
type SyntheticConfig struct {
	Width      int
	Height     int
	FPS        int
	SampleRate int
	Channels   int
	// Realtime paces records to the wall clock; otherwise they are
	// produced as fast as they are consumed.
	Realtime bool
	// Limit ends each stream with io.EOF after this many records. 0 means
	// unbounded.
	Limit int
}

// SyntheticSource produces a moving RGB gradient and a sine tone with
// deterministic timestamps starting at zero.
type SyntheticSource struct {
	cfg SyntheticConfig
}

// NewSyntheticSource returns a source for cfg.
func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	return &SyntheticSource{cfg: cfg}
}

// Video returns a stream of frames at cfg.FPS that ends when ctx does.
func (s *SyntheticSource) Video(ctx context.Context) ImageStream {
	interval := time.Second / time.Duration(max(s.cfg.FPS, 1))
	return &syntheticVideo{ctx: ctx, cfg: s.cfg, pacer: newPacer(s.cfg.Realtime, interval)}
}

// Audio returns a stream of 20 ms chunks that ends when ctx does.
func (s *SyntheticSource) Audio(ctx context.Context) AudioStream {
	return &syntheticAudio{ctx: ctx, cfg: s.cfg, pacer: newPacer(s.cfg.Realtime, chunkDuration)}
}

type pacer struct {
	ticker *time.Ticker
}

func newPacer(realtime bool, interval time.Duration) *pacer {
	if !realtime {
		return &pacer{}
	}
	return &pacer{ticker: time.NewTicker(interval)}
}

// wait blocks until the next tick. It reports false once ctx is done.
func (p *pacer) wait(ctx context.Context) bool {
	if ctx.Err() != nil {
		p.stop()
		return false
	}
	if p.ticker == nil {
		return true
	}
	select {
	case <-ctx.Done():
		p.stop()
		return false
	case <-p.ticker.C:
		return true
	}
}

func (p *pacer) stop() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
}

type syntheticVideo struct {
	ctx   context.Context
	cfg   SyntheticConfig
	pacer *pacer
	n     int
}

func (v *syntheticVideo) Recv() (*ImageRecord, error) {
	if v.cfg.Limit > 0 && v.n >= v.cfg.Limit {
		v.pacer.stop()
		return nil, io.EOF
	}
	if !v.pacer.wait(v.ctx) {
		return nil, io.EOF
	}

	fps := uint64(max(v.cfg.FPS, 1))
	rec := &ImageRecord{
		TimestampUs: uint64(v.n) * 1_000_000 / fps,
		Width:       v.cfg.Width,
		Height:      v.cfg.Height,
		Data:        gradient(v.cfg.Width, v.cfg.Height, v.n),
	}
	v.n++
	return rec, nil
}

// gradient fills an RGB24 frame whose hue shifts with n.
func gradient(width, height, n int) []byte {
	buf := make([]byte, width*height*3)
	for y := range height {
		for x := range width {
			i := (y*width + x) * 3
			buf[i] = byte(x + n)
			buf[i+1] = byte(y + n*2)
			buf[i+2] = byte(x + y + n*3)
		}
	}
	return buf
}

type syntheticAudio struct {
	ctx     context.Context
	cfg     SyntheticConfig
	pacer   *pacer
	n       int
	samples uint64 // per channel, so far
}

func (a *syntheticAudio) Recv() (*AudioRecord, error) {
	if a.cfg.Limit > 0 && a.n >= a.cfg.Limit {
		a.pacer.stop()
		return nil, io.EOF
	}
	if !a.pacer.wait(a.ctx) {
		return nil, io.EOF
	}

	rate := max(a.cfg.SampleRate, 1)
	channels := max(a.cfg.Channels, 1)
	frames := rate * int(chunkDuration/time.Millisecond) / 1000

	rec := &AudioRecord{
		TimestampUs: a.samples * 1_000_000 / uint64(rate),
		Data:        make([]byte, frames*channels*2),
	}
	for i := range frames {
		t := float64(a.samples+uint64(i)) / float64(rate)
		v := int16(toneAmplitude * math.MaxInt16 * math.Sin(2*math.Pi*toneHz*t))
		for c := range channels {
			binary.LittleEndian.PutUint16(rec.Data[(i*channels+c)*2:], uint16(v))
		}
	}
	a.samples += uint64(frames)
	a.n++
	return rec, nil
}
