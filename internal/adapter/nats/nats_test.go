package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain/task"
	"github.com/arbiterhq/arbiter/internal/port/broadcast"
	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := q.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return q
}

func TestQueuePublishSubscribe(t *testing.T) {
	q := testConnect(t)
	subject := "arbiter.test." + t.Name()

	got := make(chan []byte, 1)
	stop, err := q.Subscribe(context.Background(), subject, func(_ string, data []byte) error {
		got <- data
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	if err := q.Publish(context.Background(), subject, []byte(`{"msg":"hello"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case data := <-got:
		if string(data) != `{"msg":"hello"}` {
			t.Fatalf("payload = %s", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

// fakeQueue records publishes and feeds subscriptions in-process.
type fakeQueue struct {
	mu       sync.Mutex
	messages map[string][][]byte
	handler  messagequeue.Handler
	pubErr   error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{messages: make(map[string][][]byte)}
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	if q.pubErr != nil {
		return q.pubErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages[subject] = append(q.messages[subject], data)
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, _ string, handler messagequeue.Handler) (func(), error) {
	q.handler = handler
	return func() {}, nil
}

func (q *fakeQueue) Close() error { return nil }

func TestBroadcasterSubjects(t *testing.T) {
	q := newFakeQueue()
	b := NewBroadcaster(q, slog.New(slog.DiscardHandler))

	b.BroadcastEvent(context.Background(), broadcast.EventDebateCompleted, map[string]string{"id": "r1"})

	msgs := q.messages["arbiter.events.debate.completed"]
	if len(msgs) != 1 {
		t.Fatalf("messages = %v", q.messages)
	}
	var payload map[string]string
	if err := json.Unmarshal(msgs[0], &payload); err != nil || payload["id"] != "r1" {
		t.Fatalf("payload = %s, err = %v", msgs[0], err)
	}
}

func TestBroadcasterSwallowsPublishFailure(t *testing.T) {
	q := newFakeQueue()
	q.pubErr = errors.New("connection lost")
	b := NewBroadcaster(q, slog.New(slog.DiscardHandler))

	// Must log, not panic or propagate.
	b.BroadcastEvent(context.Background(), broadcast.EventHistoryPruned, map[string]int{"count": 1})
}

func TestTaskSourceBuffersAndDrains(t *testing.T) {
	q := newFakeQueue()
	src, err := NewTaskSource(context.Background(), q, 4, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewTaskSource: %v", err)
	}
	defer src.Close()

	data, _ := json.Marshal(task.Task{ID: "t1", Description: "rotate keys"})
	if err := q.handler(TaskSubject, data); err != nil {
		t.Fatalf("handler: %v", err)
	}

	got, err := src.Next(context.Background())
	if err != nil || got == nil || got.ID != "t1" {
		t.Fatalf("Next = %+v, %v", got, err)
	}

	// Drained source yields nil without blocking.
	got, err = src.Next(context.Background())
	if err != nil || got != nil {
		t.Fatalf("empty Next = %+v, %v", got, err)
	}
}

func TestTaskSourceRejectsWhenFull(t *testing.T) {
	q := newFakeQueue()
	src, err := NewTaskSource(context.Background(), q, 1, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewTaskSource: %v", err)
	}
	defer src.Close()

	data, _ := json.Marshal(task.Task{ID: "t1"})
	if err := q.handler(TaskSubject, data); err != nil {
		t.Fatalf("first task: %v", err)
	}
	if err := q.handler(TaskSubject, data); err == nil {
		t.Fatal("full buffer must return an error so the message is redelivered")
	}

	// Malformed payloads are dropped silently.
	if err := q.handler(TaskSubject, []byte("{broken")); err != nil {
		t.Fatalf("malformed task should not error: %v", err)
	}
}
