package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
)

// HistoryStore persists debate history snapshots in PostgreSQL. It
// implements the history store port; the history service remains the
// single writer.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore wraps a connection pool as a history snapshot store.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Save replaces the persisted snapshot inside a single transaction.
func (s *HistoryStore) Save(ctx context.Context, records []debate.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE debate_records`); err != nil {
		return fmt.Errorf("truncate snapshot: %w", err)
	}

	const q = `INSERT INTO debate_records
		(id, session_id, task_description, task_type, approved, consensus,
		 weighted_consensus, consensus_mode, rounds, lead_reviewer, team, decision, ts, duration_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	for i := range records {
		rec := &records[i]
		decision, err := json.Marshal(rec.Decision)
		if err != nil {
			return fmt.Errorf("marshal decision %s: %w", rec.ID, err)
		}
		if _, err := tx.Exec(ctx, q,
			rec.ID, rec.SessionID, rec.TaskDescription, rec.TaskType,
			rec.Decision.Approved, rec.Decision.Consensus, rec.Decision.WeightedConsensus,
			string(rec.ConsensusMode), rec.Rounds, rec.LeadReviewer, rec.Team,
			decision, rec.Timestamp, rec.DurationMS,
		); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load returns the persisted snapshot, oldest first.
func (s *HistoryStore) Load(ctx context.Context) ([]debate.Record, error) {
	const q = `SELECT id, session_id, task_description, task_type, consensus_mode,
		rounds, lead_reviewer, team, decision, ts, duration_ms
		FROM debate_records ORDER BY ts ASC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var records []debate.Record
	for rows.Next() {
		var rec debate.Record
		var mode string
		var decision []byte
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.TaskDescription, &rec.TaskType,
			&mode, &rec.Rounds, &rec.LeadReviewer, &rec.Team,
			&decision, &rec.Timestamp, &rec.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.ConsensusMode = debate.ConsensusMode(mode)
		if err := json.Unmarshal(decision, &rec.Decision); err != nil {
			return nil, fmt.Errorf("parse decision %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot: %w", err)
	}
	return records, nil
}

// Ping verifies the store is reachable.
func (s *HistoryStore) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("history store ping: %w", err)
	}
	return nil
}
