package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
)

const eventSubjectPrefix = "arbiter.events."

// Broadcaster mirrors engine events onto the message queue so external
// consumers can follow debates without holding a websocket open. It
// implements the broadcast port; delivery failures are logged, never
// propagated.
type Broadcaster struct {
	queue messagequeue.Queue
	log   *slog.Logger
}

// NewBroadcaster wraps a queue as an event broadcaster.
func NewBroadcaster(queue messagequeue.Queue, log *slog.Logger) *Broadcaster {
	return &Broadcaster{queue: queue, log: log}
}

// BroadcastEvent implements the broadcast port. Event names become
// subjects under arbiter.events. with dots preserved, e.g.
// "debate.completed" publishes to "arbiter.events.debate.completed".
func (b *Broadcaster) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.log.ErrorContext(ctx, "marshal event payload", "type", eventType, "error", err)
		return
	}

	subject := eventSubjectPrefix + strings.TrimPrefix(eventType, eventSubjectPrefix)
	if err := b.queue.Publish(ctx, subject, data); err != nil {
		b.log.ErrorContext(ctx, "publish event", "subject", subject, "error", err)
	}
}
