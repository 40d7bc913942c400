// Package messagequeue defines the port interface for the message queue.
package messagequeue

import "context"

// Handler processes a single message from a subscription.
type Handler func(subject string, data []byte) error

// Queue is the port interface for publish/subscribe messaging.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler Handler) (func(), error)
	Close() error
}
