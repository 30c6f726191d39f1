package archive

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/faq-assistant-kernel/internal/jsonx"
)

// TurnSubject is the NATS subject exchange records are published on,
// for downstream consumers (analytics, catalog curation).
const TurnSubject = "assistant.turns"

// NATSSink publishes exchange records as JSON events. Delivery is
// at-most-once; consumers that need durability should use a stream.
type NATSSink struct {
	conn *nats.Conn
}

// NewNATSSink creates a NATS-backed sink over an existing connection.
func NewNATSSink(conn *nats.Conn) *NATSSink {
	return &NATSSink{conn: conn}
}

// Name returns the sink label.
func (s *NATSSink) Name() string {
	return "nats"
}

// Save publishes the record on TurnSubject.
func (s *NATSSink) Save(_ context.Context, rec Record) error {
	data, err := jsonx.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.conn.Publish(TurnSubject, data); err != nil {
		return fmt.Errorf("nats publish failed: %w", err)
	}
	return nil
}
