package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/arbiterhq/arbiter/internal/domain/task"
	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
)

// TaskSubject is where pending tasks are published for the autopilot.
const TaskSubject = "arbiter.tasks.pending"

// TaskSource buffers tasks arriving on the queue and hands them to the
// autopilot one poll at a time. It implements the task source port.
type TaskSource struct {
	pending chan *task.Task
	stop    func()
	log     *slog.Logger
}

// NewTaskSource subscribes to the pending-task subject. buffer bounds
// how many undebated tasks are held in memory; beyond that the consumer
// naks and JetStream redelivers later.
func NewTaskSource(ctx context.Context, queue messagequeue.Queue, buffer int, log *slog.Logger) (*TaskSource, error) {
	if buffer < 1 {
		buffer = 64
	}
	s := &TaskSource{
		pending: make(chan *task.Task, buffer),
		log:     log,
	}

	stop, err := queue.Subscribe(ctx, TaskSubject, func(subject string, data []byte) error {
		var t task.Task
		if err := json.Unmarshal(data, &t); err != nil {
			// Malformed tasks are dropped, not redelivered forever.
			log.Warn("discarding malformed task", "subject", subject, "error", err)
			return nil
		}
		select {
		case s.pending <- &t:
			return nil
		default:
			return fmt.Errorf("task buffer full")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", TaskSubject, err)
	}
	s.stop = stop
	return s, nil
}

// Next implements the task source port: it returns a buffered task or
// nil when none is pending. It never blocks waiting for new tasks.
func (s *TaskSource) Next(_ context.Context) (*task.Task, error) {
	select {
	case t := <-s.pending:
		return t, nil
	default:
		return nil, nil
	}
}

// Close stops the underlying consumer.
func (s *TaskSource) Close() {
	if s.stop != nil {
		s.stop()
	}
}
