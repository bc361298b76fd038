package datastore

import "time"

// Recording is one saved file in the catalog.
type Recording struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Name          string    `gorm:"size:255" json:"name"`
	Session       string    `gorm:"size:255;index" json:"session"`
	Path          string    `gorm:"size:768;index" json:"path"`
	Kind          string    `gorm:"size:8;index" json:"kind"` // av, video or audio
	StartMs       uint64    `json:"start_ms"`
	EndMs         uint64    `json:"end_ms"`
	DurationMs    int64     `json:"duration_ms"`
	VideoFrames   int       `json:"video_frames"`
	SkippedFrames int       `json:"skipped_frames"`
	AudioChunks   int       `json:"audio_chunks"`
	AudioSamples  int64     `json:"audio_samples"`
	SizeBytes     int64     `json:"size_bytes"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// ListOptions filters and pages ListRecordings. Zero values mean no filter.
type ListOptions struct {
	Limit   int
	Offset  int
	Kind    string
	Session string
}

// DefaultListLimit applies when ListOptions.Limit is zero.
const DefaultListLimit = 50

// MaxListLimit caps ListOptions.Limit.
const MaxListLimit = 500
