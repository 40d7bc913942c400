// Package executor defines the port the autopilot uses to run approved tasks.
package executor

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/domain/task"
)

// Executor performs an approved task. Failures propagate to the caller,
// which routes them to the autopilot's error hook.
type Executor interface {
	Execute(ctx context.Context, t *task.Task) error
}

// Func adapts a plain function to the Executor interface.
type Func func(ctx context.Context, t *task.Task) error

// Execute implements Executor.
func (f Func) Execute(ctx context.Context, t *task.Task) error { return f(ctx, t) }
