// Package broadcast defines the port for publishing engine events to observers.
package broadcast

import "context"

// Engine event names. Payload shapes are defined by the emitting service.
const (
	EventDebateCompleted  = "debate.completed"
	EventHistoryPruned    = "history.pruned"
	EventCapacityReached  = "autopilot.capacity_reached"
	EventManualReview     = "autopilot.manual_review"
	EventTaskApproved     = "autopilot.task_approved"
	EventHookFailed       = "autopilot.hook_failed"
	EventAutopilotError   = "autopilot.error"
	EventAutopilotPaused  = "autopilot.paused"
	EventAutopilotResumed = "autopilot.resumed"
)

// Broadcaster delivers typed events to all subscribed observers.
// Implementations must never block the caller indefinitely and must never
// propagate delivery failures.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Multi fans one event out to several broadcasters.
type Multi []Broadcaster

// BroadcastEvent implements Broadcaster.
func (m Multi) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	for _, b := range m {
		b.BroadcastEvent(ctx, eventType, payload)
	}
}

// Nop discards all events.
type Nop struct{}

// BroadcastEvent implements Broadcaster.
func (Nop) BroadcastEvent(context.Context, string, any) {}
