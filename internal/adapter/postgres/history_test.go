package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain/debate"
)

// testStore connects to PostgreSQL or skips if DATABASE_URL is not set.
func testStore(t *testing.T) *HistoryStore {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}
	ctx := context.Background()

	if err := RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	pool, err := NewPool(ctx, config.Postgres{DSN: dsn, MaxConns: 2})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	return NewHistoryStore(pool)
}

func TestHistoryStoreRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	records := []debate.Record{
		{
			ID:              "pg-r1",
			SessionID:       "pg-s1",
			TaskDescription: "tighten connection limits",
			TaskType:        "config",
			ConsensusMode:   debate.ModeWeighted,
			Rounds:          2,
			Team:            []string{"alice", "bob"},
			LeadReviewer:    "alice",
			Timestamp:       time.Now().UTC().Truncate(time.Microsecond),
			DurationMS:      420,
			Decision: debate.Decision{
				Approved:          true,
				Consensus:         1.0,
				WeightedConsensus: 0.92,
				Reasoning:         "weighted approval above threshold",
				Votes: []debate.Vote{
					{Reviewer: "alice", Approved: true, Confidence: 0.95, Weight: 1.2},
					{Reviewer: "bob", Approved: true, Confidence: 0.85, Weight: 1.0},
				},
			},
		},
	}
	if err := store.Save(ctx, records); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d records, want 1", len(loaded))
	}
	got := loaded[0]
	if got.ID != "pg-r1" || got.ConsensusMode != debate.ModeWeighted {
		t.Errorf("record = %+v", got)
	}
	if len(got.Team) != 2 || got.Team[0] != "alice" {
		t.Errorf("team = %v", got.Team)
	}
	if len(got.Decision.Votes) != 2 || got.Decision.WeightedConsensus != 0.92 {
		t.Errorf("decision = %+v", got.Decision)
	}

	// Save replaces, never appends.
	if err := store.Save(ctx, nil); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load after clear: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("loaded %d records after clear, want 0", len(loaded))
	}
}
