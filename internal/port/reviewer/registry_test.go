package reviewer_test

import (
	"context"
	"testing"

	"github.com/arbiterhq/arbiter/internal/domain/specialty"
	"github.com/arbiterhq/arbiter/internal/port/reviewer"
)

type testReviewer struct {
	name string
}

func (r *testReviewer) Name() string                          { return r.name }
func (r *testReviewer) Weight() float64                       { return 1 }
func (r *testReviewer) Specialties() []specialty.Specialty    { return []specialty.Specialty{specialty.General} }
func (r *testReviewer) IsAvailable(_ context.Context) bool    { return true }
func (r *testReviewer) Chat(_ context.Context, _ []reviewer.Message) (string, error) {
	return "ok", nil
}

func TestRegisterAndNew(t *testing.T) {
	reviewer.Register("test-backend", func(cfg reviewer.Config) (reviewer.Reviewer, error) {
		return &testReviewer{name: cfg.Name}, nil
	})

	r, err := reviewer.New("test-backend", reviewer.Config{Name: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Name() != "alice" {
		t.Fatalf("expected alice, got %s", r.Name())
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := reviewer.New("nonexistent", reviewer.Config{})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestBackends(t *testing.T) {
	found := false
	for _, n := range reviewer.Backends() {
		if n == "test-backend" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected test-backend in registered backends")
	}
}

func TestClampWeight(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-1, 0},
		{0, 0},
		{1.5, 1.5},
		{2, 2},
		{3.7, 2},
	}
	for _, c := range cases {
		if got := reviewer.ClampWeight(c.in); got != c.want {
			t.Errorf("ClampWeight(%f) = %f, want %f", c.in, got, c.want)
		}
	}
}
