// Package jsonfile persists debate history snapshots as a JSON array on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
)

// Store writes the full history snapshot to a single JSON file. Writes
// go through a temp file plus rename so readers never observe a
// half-written snapshot.
type Store struct {
	path string
}

// NewStore creates a snapshot store at the given path. Parent
// directories are created on the first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save implements the history store port.
func (s *Store) Save(_ context.Context, records []debate.Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load implements the history store port. A missing file yields an
// empty history, not an error.
func (s *Store) Load(_ context.Context) ([]debate.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var records []debate.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return records, nil
}
