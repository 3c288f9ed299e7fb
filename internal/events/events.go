// Package events publishes document lifecycle events to NATS JetStream.
// Publishing is optional; when disabled the rest of the system uses the
// no-op publisher and never touches the wire.
package events

import (
	"context"
	"time"
)

// EventType identifies a document lifecycle transition.
type EventType string

const (
	// EventEncoded fires after Markdown is encoded to native markup.
	EventEncoded EventType = "document.encoded"
	// EventResolved fires after all placeholders reached a terminal state.
	EventResolved EventType = "document.resolved"
	// EventFailed fires when a resolution run ends with failed placeholders.
	EventFailed EventType = "document.failed"
)

// DocumentEvent is the JSON payload published per lifecycle transition.
type DocumentEvent struct {
	Type         EventType `json:"type"`
	DocumentID   string    `json:"document_id"`
	DocumentKey  string    `json:"document_key,omitempty"`
	Resolved     int       `json:"resolved"`
	LinkDegraded int       `json:"link_degraded"`
	Failed       int       `json:"failed"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher emits document lifecycle events.
type Publisher interface {
	PublishDocumentEvent(ctx context.Context, event *DocumentEvent) error
	Close() error
}

// NoopPublisher discards all events. It is the default collaborator when
// event publishing is disabled.
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that does nothing.
func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (*NoopPublisher) PublishDocumentEvent(context.Context, *DocumentEvent) error { return nil }
func (*NoopPublisher) Close() error                                               { return nil }
