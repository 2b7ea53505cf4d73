// Package queue adapts Cloud Pub/Sub to the bot's delivery contract:
// publish on ingest, receive with explicit ack/nack on the worker. The
// interfaces keep the dispatcher testable without the platform.
package queue

import (
	"context"
)

// Publisher publishes one event payload and returns the platform's message ID.
type Publisher interface {
	Publish(ctx context.Context, data []byte) (string, error)
	Close() error
}

// Delivery is one received message. Exactly one of Ack or Nack must be
// called: Ack retires the message, Nack returns it for redelivery after
// the subscription's visibility window. Unhandled messages eventually land
// on the subscription's dead-letter topic.
type Delivery interface {
	ID() string
	Data() []byte
	Ack()
	Nack()
}

// Handler processes one delivery and settles it via Ack or Nack.
type Handler func(ctx context.Context, d Delivery)

// Consumer feeds deliveries to a handler until the context is canceled.
type Consumer interface {
	Receive(ctx context.Context, h Handler) error
	Close() error
}
