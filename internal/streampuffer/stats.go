package streampuffer

import "github.com/DA1F/RoAnalyzer/internal/media"

// StreamKind names one of the two rings.
type StreamKind string

const (
	KindVideo StreamKind = "video"
	KindAudio StreamKind = "audio"
)

// RingStats describes one ring at the moment Stats was called.
type RingStats struct {
	Len       int    `json:"len"`
	Capacity  int    `json:"capacity"`
	FirstMs   uint64 `json:"first_ms"`
	LastMs    uint64 `json:"last_ms"`
	Pushes    uint64 `json:"pushes"`
	Evictions uint64 `json:"evictions"`
}

// Stats is a point-in-time view of both rings. The two halves are read
// separately and may be from slightly different instants.
type Stats struct {
	Video RingStats `json:"video"`
	Audio RingStats `json:"audio"`
}

// Stats reports lengths, capacities, timestamp bounds and counters.
func (p *StreamPuffer) Stats() Stats {
	return Stats{
		Video: ringStats(p.video),
		Audio: ringStats(p.audio),
	}
}

func ringStats[T media.Stamped](r *Ring[T]) RingStats {
	s := RingStats{
		Len:       r.Len(),
		Capacity:  r.Cap(),
		Pushes:    r.Pushes(),
		Evictions: r.Evictions(),
	}
	if first, last, ok := r.Ends(); ok {
		s.FirstMs, s.LastMs = first.Timestamp(), last.Timestamp()
	}
	return s
}
