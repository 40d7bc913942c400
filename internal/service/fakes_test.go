package service

import (
	"context"
	"errors"
	"sync"

	"github.com/arbiterhq/arbiter/internal/domain/specialty"
	"github.com/arbiterhq/arbiter/internal/port/reviewer"
)

// fakeReviewer is a scriptable reviewer for service tests. chatFn receives
// the 1-based call number so tests can vary replies per debate phase.
type fakeReviewer struct {
	name      string
	weight    float64
	specs     []specialty.Specialty
	available bool

	mu     sync.Mutex
	calls  int
	chatFn func(call int, msgs []reviewer.Message) (string, error)
}

func newFakeReviewer(name string, weight float64, specs ...specialty.Specialty) *fakeReviewer {
	if len(specs) == 0 {
		specs = []specialty.Specialty{specialty.General}
	}
	return &fakeReviewer{name: name, weight: weight, specs: specs, available: true}
}

func (r *fakeReviewer) Name() string                       { return r.name }
func (r *fakeReviewer) Weight() float64                    { return r.weight }
func (r *fakeReviewer) Specialties() []specialty.Specialty { return r.specs }
func (r *fakeReviewer) IsAvailable(_ context.Context) bool { return r.available }

func (r *fakeReviewer) Chat(_ context.Context, msgs []reviewer.Message) (string, error) {
	r.mu.Lock()
	r.calls++
	call := r.calls
	fn := r.chatFn
	r.mu.Unlock()

	if fn == nil {
		return "VOTE: APPROVE\nCONFIDENCE: 0.9\nLooks fine.", nil
	}
	return fn(call, msgs)
}

func (r *fakeReviewer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

var errChatDown = errors.New("reviewer backend unavailable")

// alwaysFail makes every chat call fail.
func alwaysFail(r *fakeReviewer) *fakeReviewer {
	r.chatFn = func(int, []reviewer.Message) (string, error) { return "", errChatDown }
	return r
}

// scripted replies with the given responses in call order, then repeats
// the last one.
func scripted(r *fakeReviewer, responses ...string) *fakeReviewer {
	r.chatFn = func(call int, _ []reviewer.Message) (string, error) {
		if call > len(responses) {
			call = len(responses)
		}
		return responses[call-1], nil
	}
	return r
}
