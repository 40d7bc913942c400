package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Errorf("parseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestAsyncHandlerDelivers(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&syncBuffer{buf: &buf}, nil)
	h := NewAsyncHandler(inner, 16, 1)

	log := slog.New(h)
	log.Info("hello", "k", "v")

	h.Close()

	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected record to be flushed, got %q", buf.String())
	}
}

func TestAsyncHandlerDropsWhenFull(t *testing.T) {
	blocked := make(chan struct{})
	inner := &blockingHandler{release: blocked}
	h := NewAsyncHandler(inner, 1, 1)

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "m", 0)
	// First record occupies the worker, second fills the channel,
	// everything after that is dropped.
	for range 10 {
		_ = h.Handle(context.Background(), rec)
	}
	close(blocked)
	h.Close()

	if h.Dropped() == 0 {
		t.Fatal("expected drops under backpressure")
	}
}

type syncBuffer struct {
	buf *bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) { return s.buf.Write(p) }

type blockingHandler struct {
	release chan struct{}
}

func (b *blockingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (b *blockingHandler) Handle(context.Context, slog.Record) error {
	<-b.release
	return nil
}
func (b *blockingHandler) WithAttrs([]slog.Attr) slog.Handler { return b }
func (b *blockingHandler) WithGroup(string) slog.Handler      { return b }
