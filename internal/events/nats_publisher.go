package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/notedown/internal/errors"
)

// DefaultSubject is the JetStream subject document events are published on.
const DefaultSubject = "notedown.documents"

// NATSPublisher publishes document events to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to NATS and prepares the JetStream context.
// An empty subject selects DefaultSubject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "connect to NATS").WithContext("url", url)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryNetwork, "create JetStream context")
	}

	slog.Info("event publisher initialized", "url", url, "subject", subject)

	return &NATSPublisher{conn: conn, js: js, subject: subject}, nil
}

// PublishDocumentEvent marshals and publishes one lifecycle event. The
// timestamp is stamped here so callers never have to.
func (p *NATSPublisher) PublishDocumentEvent(ctx context.Context, event *DocumentEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal document event")
	}

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "publish document event").
			WithContext("document_id", event.DocumentID)
	}

	slog.Debug("published document event",
		"type", string(event.Type),
		"document_id", event.DocumentID)

	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
