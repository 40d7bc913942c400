package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/debate"
	"github.com/arbiterhq/arbiter/internal/port/broadcast"
	"github.com/arbiterhq/arbiter/internal/port/cache"
	"github.com/arbiterhq/arbiter/internal/port/history"
)

const analyticsCacheKey = "history:analytics"

// csvHeader is the fixed export header. The last column name is part of
// the exchange format consumed by downstream tooling; keep it stable.
var csvHeader = []string{
	"id", "sessionId", "taskDescription", "taskType", "approved",
	"consensus", "weightedConsensus", "consensusMode", "debateRounds",
	"timestamp", "durationMs", "team", "leadSupervisor",
}

// HistoryFilter narrows a history query. Zero-valued fields match
// everything.
type HistoryFilter struct {
	SessionID string
	TaskType  string
	Mode      debate.ConsensusMode
	Since     time.Time
	Until     time.Time
	Substring string
}

// HistoryService keeps debate records in memory with bounded capacity,
// snapshots them through an optional backing store, and computes
// analytics over them on demand.
type HistoryService struct {
	mu      sync.RWMutex
	records map[string]*debate.Record
	max     int

	store    history.Store
	cache    cache.Cache
	cacheTTL time.Duration
	hub      broadcast.Broadcaster
	log      *slog.Logger

	dirty    atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewHistoryService creates a history service. store and c may be nil;
// persistence and analytics caching are then disabled.
func NewHistoryService(maxRecords int, cacheTTL time.Duration, store history.Store, c cache.Cache, hub broadcast.Broadcaster, log *slog.Logger) *HistoryService {
	if maxRecords < 1 {
		maxRecords = 1
	}
	return &HistoryService{
		records:  make(map[string]*debate.Record),
		max:      maxRecords,
		store:    store,
		cache:    c,
		cacheTTL: cacheTTL,
		hub:      hub,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Restore loads the persisted snapshot. A missing or unreadable snapshot
// is logged and ignored; the service starts empty.
func (s *HistoryService) Restore(ctx context.Context) {
	if s.store == nil {
		return
	}
	records, err := s.store.Load(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "history restore failed", "error", err)
		return
	}

	s.mu.Lock()
	for i := range records {
		rec := records[i]
		s.records[rec.ID] = &rec
	}
	for len(s.records) > s.max {
		s.evictOldestLocked()
	}
	n := len(s.records)
	s.mu.Unlock()

	s.log.InfoContext(ctx, "history restored", "records", n)
}

// Append stores a record, evicting the oldest record first when at
// capacity.
func (s *HistoryService) Append(ctx context.Context, rec *debate.Record) {
	s.mu.Lock()
	if len(s.records) >= s.max {
		s.evictOldestLocked()
	}
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.invalidate(ctx)
}

// Get returns the record with the given id.
func (s *HistoryService) Get(id string) (*debate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: debate record %q", domain.ErrNotFound, id)
	}
	return rec, nil
}

// Delete removes a record by id and emits a pruned notification.
func (s *HistoryService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: debate record %q", domain.ErrNotFound, id)
	}
	delete(s.records, id)
	s.mu.Unlock()

	s.invalidate(ctx)
	s.notifyPruned(ctx, 1)
	return nil
}

// Count returns the number of stored records.
func (s *HistoryService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Recent returns the n most recent records, newest first.
func (s *HistoryService) Recent(n int) []*debate.Record {
	all := s.sortedDesc()
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// Query returns records matching the filter, newest first.
func (s *HistoryService) Query(f HistoryFilter) []*debate.Record {
	needle := strings.ToLower(f.Substring)

	var out []*debate.Record
	for _, rec := range s.sortedDesc() {
		if f.SessionID != "" && rec.SessionID != f.SessionID {
			continue
		}
		if f.TaskType != "" && rec.TaskType != f.TaskType {
			continue
		}
		if f.Mode != "" && rec.ConsensusMode != f.Mode {
			continue
		}
		if !f.Since.IsZero() && rec.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && rec.Timestamp.After(f.Until) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(rec.TaskDescription), needle) &&
			!strings.Contains(strings.ToLower(rec.Decision.Reasoning), needle) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// PruneOldest removes the n oldest records and returns how many were
// removed.
func (s *HistoryService) PruneOldest(ctx context.Context, n int) int {
	s.mu.Lock()
	removed := 0
	for removed < n && len(s.records) > 0 {
		s.evictOldestLocked()
		removed++
	}
	s.mu.Unlock()

	if removed > 0 {
		s.invalidate(ctx)
	}
	s.notifyPruned(ctx, removed)
	return removed
}

// PruneOlderThan removes records older than maxAge and returns how many
// were removed.
func (s *HistoryService) PruneOlderThan(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	removed := 0
	for id, rec := range s.records {
		if rec.Timestamp.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.invalidate(ctx)
	}
	s.notifyPruned(ctx, removed)
	return removed
}

// Save writes the snapshot through the backing store. Unlike Restore,
// save failures are surfaced to the caller.
func (s *HistoryService) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.mu.RLock()
	records := make([]debate.Record, 0, len(s.records))
	for _, rec := range s.sortedAscLocked() {
		records = append(records, *rec)
	}
	s.mu.RUnlock()

	if err := s.store.Save(ctx, records); err != nil {
		return fmt.Errorf("save history snapshot: %w", err)
	}
	s.dirty.Store(false)
	return nil
}

// StartAutosave snapshots dirty state on the given interval until Close.
func (s *HistoryService) StartAutosave(interval time.Duration) {
	if s.store == nil || interval <= 0 {
		close(s.doneCh)
		return
	}
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				if !s.dirty.Load() {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := s.Save(ctx); err != nil {
					s.log.Warn("history autosave failed", "error", err)
				}
				cancel()
			}
		}
	}()
}

// Close stops the autosave loop and writes a final snapshot.
func (s *HistoryService) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	return s.Save(ctx)
}

// ExportCSV renders all records, oldest first. Zero records produce an
// empty string, not a bare header.
func (s *HistoryService) ExportCSV() (string, error) {
	s.mu.RLock()
	records := s.sortedAscLocked()
	s.mu.RUnlock()

	if len(records) == 0 {
		return "", nil
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.SessionID,
			rec.TaskDescription,
			rec.TaskType,
			strconv.FormatBool(rec.Decision.Approved),
			strconv.FormatFloat(rec.Decision.Consensus, 'f', 4, 64),
			strconv.FormatFloat(rec.Decision.WeightedConsensus, 'f', 4, 64),
			string(rec.ConsensusMode),
			strconv.Itoa(rec.Rounds),
			rec.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatInt(rec.DurationMS, 10),
			strings.Join(rec.Team, ";"),
			rec.LeadReviewer,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// evictOldestLocked removes the single oldest record by timestamp.
// Caller holds the write lock.
func (s *HistoryService) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, rec := range s.records {
		if oldestID == "" || rec.Timestamp.Before(oldest) {
			oldestID = id
			oldest = rec.Timestamp
		}
	}
	if oldestID != "" {
		delete(s.records, oldestID)
	}
}

func (s *HistoryService) sortedDesc() []*debate.Record {
	s.mu.RLock()
	out := s.sortedAscLocked()
	s.mu.RUnlock()

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// sortedAscLocked returns records oldest first. Caller holds a lock.
func (s *HistoryService) sortedAscLocked() []*debate.Record {
	out := make([]*debate.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *HistoryService) invalidate(ctx context.Context) {
	s.dirty.Store(true)
	if s.cache != nil {
		s.cache.Delete(ctx, analyticsCacheKey)
	}
}

func (s *HistoryService) notifyPruned(ctx context.Context, count int) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(ctx, broadcast.EventHistoryPruned, map[string]any{"count": count})
}
