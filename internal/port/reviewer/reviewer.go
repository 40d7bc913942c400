// Package reviewer defines the reviewer capability port and its registry.
package reviewer

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/domain/specialty"
)

// Message is one turn of a reviewer conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// Reviewer is the port interface for a named, weighted capability that
// can converse and vote. Chat may fail; the council degrades that
// reviewer's contribution for the current phase rather than aborting.
type Reviewer interface {
	// Name returns the unique identifier for this reviewer.
	Name() string

	// Weight returns the reviewer's base vote weight, clamped to [0, 2].
	Weight() float64

	// Specialties returns the reviewer's declared review domains.
	Specialties() []specialty.Specialty

	// IsAvailable reports whether the reviewer can take a debate right
	// now. Queried fresh each use, never cached.
	IsAvailable(ctx context.Context) bool

	// Chat maps an ordered message history to a text reply.
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ClampWeight clamps a configured weight into the legal [0, 2] range.
func ClampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 2 {
		return 2
	}
	return w
}
