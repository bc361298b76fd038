package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/DA1F/RoAnalyzer/internal/errors"
)

// RecordingEvent is published once per saved file. Field names are part of
// the topic contract.
type RecordingEvent struct {
	ID            string    `json:"id,omitempty"`
	Name          string    `json:"name"`
	Session       string    `json:"session,omitempty"`
	Path          string    `json:"path"`
	Kind          string    `json:"kind"`
	StartMs       uint64    `json:"startMs"`
	EndMs         uint64    `json:"endMs"`
	DurationMs    int64     `json:"durationMs"`
	VideoFrames   int       `json:"videoFrames"`
	SkippedFrames int       `json:"skippedFrames,omitempty"`
	AudioChunks   int       `json:"audioChunks"`
	SizeBytes     int64     `json:"sizeBytes"`
	SavedAt       time.Time `json:"savedAt"`
}

// Publisher sends recording events under a base topic.
type Publisher struct {
	client Client
	topic  string
}

// NewPublisher publishes to topic, or the default topic when empty.
func NewPublisher(c Client, topic string) *Publisher {
	topic = strings.Trim(topic, "/")
	if topic == "" {
		topic = DefaultConfig().Topic
	}
	return &Publisher{client: c, topic: topic}
}

// Topic returns the topic events go to.
func (p *Publisher) Topic() string { return p.topic }

// PublishRecording marshals ev and publishes it.
func (p *Publisher) PublishRecording(ctx context.Context, ev RecordingEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryMQTTPublish).
			Context("operation", "marshal_event").
			Build()
	}
	return p.client.Publish(ctx, p.topic, string(payload))
}
