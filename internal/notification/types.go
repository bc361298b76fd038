// Package notification pushes short messages about saved recordings and
// failures to external services.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const componentName = "notification"

// Type categorizes a notification.
type Type string

const (
	TypeRecording Type = "recording"
	TypeError     Type = "error"
	TypeSystem    Type = "system"
)

// Notification is one message to deliver.
type Notification struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewNotification creates a new notification with a unique ID and timestamp
func NewNotification(t Type, title, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		Type:      t,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithComponent sets the originating component.
func (n *Notification) WithComponent(c string) *Notification {
	n.Component = c
	return n
}

// WithMetadata adds one metadata entry.
func (n *Notification) WithMetadata(key string, value any) *Notification {
	if n.Metadata == nil {
		n.Metadata = make(map[string]any)
	}
	n.Metadata[key] = value
	return n
}

// Provider defines a push delivery backend.
// Implementations must be safe for concurrent use.
type Provider interface {
	GetName() string
	ValidateConfig() error
	Send(ctx context.Context, n *Notification) error
	SupportsType(t Type) bool
	IsEnabled() bool
}
