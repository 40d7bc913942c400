package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/debate"
)

// fakeStore is an in-memory history snapshot backend.
type fakeStore struct {
	records []debate.Record
	saveErr error
	saves   int
}

func (s *fakeStore) Save(_ context.Context, records []debate.Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records = append([]debate.Record(nil), records...)
	s.saves++
	return nil
}

func (s *fakeStore) Load(_ context.Context) ([]debate.Record, error) {
	return append([]debate.Record(nil), s.records...), nil
}

func newTestHistory(max int) (*HistoryService, *captureHub) {
	hub := &captureHub{}
	return NewHistoryService(max, time.Minute, nil, nil, hub, discard()), hub
}

func makeRecord(id string, ts time.Time, approved bool) *debate.Record {
	return &debate.Record{
		ID:              id,
		SessionID:       "s-" + id,
		TaskDescription: "task " + id,
		TaskType:        "feature",
		ConsensusMode:   debate.ModeSimpleMajority,
		Rounds:          2,
		Timestamp:       ts,
		DurationMS:      100,
		Decision: debate.Decision{
			Approved:  approved,
			Consensus: 1.0,
			Votes: []debate.Vote{
				{Reviewer: "alice", Approved: approved, Confidence: 0.9, Weight: 1},
			},
		},
	}
}

func TestHistoryCapacityEvictsOldest(t *testing.T) {
	svc, _ := newTestHistory(3)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 4; i++ {
		svc.Append(ctx, makeRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Hour), true))
	}

	if svc.Count() != 3 {
		t.Fatalf("count = %d, want 3", svc.Count())
	}
	if _, err := svc.Get("r1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("oldest record should have been evicted")
	}
	if _, err := svc.Get("r4"); err != nil {
		t.Errorf("newest record missing: %v", err)
	}
}

func TestHistoryDelete(t *testing.T) {
	svc, hub := newTestHistory(10)
	ctx := context.Background()
	svc.Append(ctx, makeRecord("r1", time.Now(), true))

	if err := svc.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "r1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("double delete: err = %v, want ErrNotFound", err)
	}
	if got := hub.byType("history.pruned"); len(got) != 1 {
		t.Errorf("pruned events = %d, want 1", len(got))
	}
}

func TestHistoryQuery(t *testing.T) {
	svc, _ := newTestHistory(10)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	r1 := makeRecord("r1", base, true)
	r2 := makeRecord("r2", base.Add(24*time.Hour), false)
	r2.TaskType = "bugfix"
	r2.ConsensusMode = debate.ModeUnanimous
	r2.Decision.Reasoning = "rejected for missing rollback plan"
	r3 := makeRecord("r3", base.Add(48*time.Hour), true)
	for _, rec := range []*debate.Record{r1, r2, r3} {
		svc.Append(ctx, rec)
	}

	if got := svc.Query(HistoryFilter{SessionID: "s-r2"}); len(got) != 1 || got[0].ID != "r2" {
		t.Errorf("by session: %v", ids(got))
	}
	if got := svc.Query(HistoryFilter{TaskType: "bugfix"}); len(got) != 1 || got[0].ID != "r2" {
		t.Errorf("by task type: %v", ids(got))
	}
	if got := svc.Query(HistoryFilter{Mode: debate.ModeUnanimous}); len(got) != 1 {
		t.Errorf("by mode: %v", ids(got))
	}
	if got := svc.Query(HistoryFilter{Since: base.Add(12 * time.Hour), Until: base.Add(36 * time.Hour)}); len(got) != 1 || got[0].ID != "r2" {
		t.Errorf("by range: %v", ids(got))
	}
	if got := svc.Query(HistoryFilter{Substring: "ROLLBACK"}); len(got) != 1 || got[0].ID != "r2" {
		t.Errorf("substring search is case-insensitive over reasoning: %v", ids(got))
	}

	recent := svc.Recent(2)
	if len(recent) != 2 || recent[0].ID != "r3" || recent[1].ID != "r2" {
		t.Errorf("Recent(2) = %v, want [r3 r2]", ids(recent))
	}
}

func TestHistoryPrune(t *testing.T) {
	svc, hub := newTestHistory(10)
	ctx := context.Background()
	base := time.Now().Add(-96 * time.Hour)

	for i := 1; i <= 4; i++ {
		svc.Append(ctx, makeRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*24*time.Hour), true))
	}

	if removed := svc.PruneOldest(ctx, 2); removed != 2 {
		t.Fatalf("PruneOldest = %d, want 2", removed)
	}
	if _, err := svc.Get("r1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("r1 should be pruned")
	}
	if _, err := svc.Get("r3"); err != nil {
		t.Errorf("r3 should survive: %v", err)
	}

	// r3 is now ~24h old, r4 is ~0h old.
	if removed := svc.PruneOlderThan(ctx, 12*time.Hour); removed != 1 {
		t.Fatalf("PruneOlderThan = %d, want 1", removed)
	}
	if svc.Count() != 1 {
		t.Errorf("count = %d, want 1", svc.Count())
	}

	events := hub.byType("history.pruned")
	if len(events) != 2 {
		t.Fatalf("pruned events = %d, want 2", len(events))
	}
	if payload := events[0].payload.(map[string]any); payload["count"] != 2 {
		t.Errorf("first pruned count = %v, want 2", payload["count"])
	}
}

func TestHistoryCSVExport(t *testing.T) {
	svc, _ := newTestHistory(10)
	ctx := context.Background()

	out, err := svc.ExportCSV()
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if out != "" {
		t.Fatalf("empty store must export an empty string, got %q", out)
	}

	rec := makeRecord("r1", time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), true)
	rec.TaskDescription = `Add retry, backoff and "jitter" to the client`
	svc.Append(ctx, rec)
	svc.Append(ctx, makeRecord("r2", time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC), false))

	out, err = svc.ExportCSV()
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header plus 2 rows:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "id,sessionId,taskDescription") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[0], "leadSupervisor") {
		t.Errorf("last header column must stay leadSupervisor, got %q", lines[0])
	}
	if !strings.Contains(lines[1], `"Add retry, backoff and ""jitter"" to the client"`) {
		t.Errorf("description with commas and quotes must be escaped: %q", lines[1])
	}
}

func TestHistoryAnalytics(t *testing.T) {
	svc, _ := newTestHistory(10)
	ctx := context.Background()
	day1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	r1 := makeRecord("r1", day1, true)
	r2 := makeRecord("r2", day1.Add(time.Hour), false)
	r2.TaskType = "bugfix"
	r2.Decision.Votes = []debate.Vote{
		{Reviewer: "alice", Approved: false, Confidence: 0.6, Weight: 1},
		{Reviewer: "bob", Approved: false, Confidence: 0.8, Weight: 1},
	}
	r3 := makeRecord("r3", day2, true)
	for _, rec := range []*debate.Record{r1, r2, r3} {
		svc.Append(ctx, rec)
	}

	a, err := svc.Analytics(ctx)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}

	if a.TotalDebates != 3 {
		t.Errorf("TotalDebates = %d", a.TotalDebates)
	}
	if math.Abs(a.ApprovalRate-2.0/3.0) > 1e-9 {
		t.Errorf("ApprovalRate = %v", a.ApprovalRate)
	}
	if st := a.ByTaskType["bugfix"]; st.Debates != 1 || st.Approvals != 0 {
		t.Errorf("ByTaskType[bugfix] = %+v", st)
	}
	if st := a.ByTaskType["feature"]; st.Debates != 2 || math.Abs(st.ApprovalRate-1.0) > 1e-9 {
		t.Errorf("ByTaskType[feature] = %+v", st)
	}
	if st := a.ByReviewer["alice"]; st.Votes != 3 || st.Approvals != 2 {
		t.Errorf("ByReviewer[alice] = %+v", st)
	}
	if st := a.ByReviewer["bob"]; st.Votes != 1 || math.Abs(st.AvgConfidence-0.8) > 1e-9 {
		t.Errorf("ByReviewer[bob] = %+v", st)
	}
	if len(a.Daily) != 2 || a.Daily[0].Date != "2026-08-01" || a.Daily[0].Debates != 2 {
		t.Errorf("Daily = %+v", a.Daily)
	}
}

func TestHistorySaveRestore(t *testing.T) {
	store := &fakeStore{}
	hub := &captureHub{}
	ctx := context.Background()

	svc := NewHistoryService(10, time.Minute, store, nil, hub, discard())
	svc.Append(ctx, makeRecord("r1", time.Now().UTC(), true))
	svc.Append(ctx, makeRecord("r2", time.Now().UTC(), false))
	if err := svc.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := NewHistoryService(10, time.Minute, store, nil, hub, discard())
	restored.Restore(ctx)
	if restored.Count() != 2 {
		t.Fatalf("restored count = %d, want 2", restored.Count())
	}
	if _, err := restored.Get("r1"); err != nil {
		t.Errorf("restored record missing: %v", err)
	}
}

func TestHistorySaveSurfacesErrors(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	svc := NewHistoryService(10, time.Minute, store, nil, &captureHub{}, discard())
	svc.Append(context.Background(), makeRecord("r1", time.Now(), true))

	if err := svc.Save(context.Background()); err == nil {
		t.Fatal("Save must surface store errors")
	}
}

func ids(records []*debate.Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.ID
	}
	return out
}
