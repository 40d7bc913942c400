// Package tasksource defines the port the autopilot pulls tasks from.
package tasksource

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/domain/task"
)

// Source supplies tasks awaiting deliberation.
type Source interface {
	// Next returns the next pending task, or nil when the queue is empty.
	Next(ctx context.Context) (*task.Task, error)
}

// Func adapts a plain function to the Source interface.
type Func func(ctx context.Context) (*task.Task, error)

// Next implements Source.
func (f Func) Next(ctx context.Context) (*task.Task, error) { return f(ctx) }
