// Package history defines the snapshot persistence port for debate records.
package history

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
)

// Store persists full snapshots of the debate history.
// The history service is the single writer; implementations do not need
// to serialize concurrent callers.
type Store interface {
	// Save replaces the persisted snapshot with the given records.
	Save(ctx context.Context, records []debate.Record) error

	// Load returns the persisted snapshot. A missing snapshot is not an
	// error; it yields an empty slice.
	Load(ctx context.Context) ([]debate.Record, error)
}
