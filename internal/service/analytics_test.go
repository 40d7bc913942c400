package service

import (
	"math"
	"testing"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
)

func record(approved bool, votes []debate.Vote, durationMS int64) *debate.Record {
	return &debate.Record{
		Decision: debate.Decision{
			Approved:  approved,
			Consensus: debate.SimpleConsensus(votes),
			Votes:     votes,
		},
		DurationMS: durationMS,
	}
}

func TestRecordDebateCouncilStats(t *testing.T) {
	s := NewAnalyticsService()
	s.RecordDebate(record(true, []debate.Vote{v("a", true, 0.9, 1)}, 100))
	s.RecordDebate(record(false, []debate.Vote{v("a", false, 0.5, 1)}, 300))

	cs := s.Council()
	if cs.Debates != 2 || cs.Approved != 1 {
		t.Fatalf("unexpected council stats: %+v", cs)
	}
	if cs.AvgDurationMS != 200 {
		t.Fatalf("expected avg duration 200, got %f", cs.AvgDurationMS)
	}
}

func TestReviewerStatsAccumulate(t *testing.T) {
	s := NewAnalyticsService()
	s.RecordDebate(record(true, []debate.Vote{v("a", true, 0.8, 1)}, 10))
	s.RecordDebate(record(true, []debate.Vote{v("a", true, 0.6, 1)}, 10))
	s.RecordDebate(record(true, []debate.Vote{v("a", false, 1.0, 1)}, 10))

	st, ok := s.Reviewer("a")
	if !ok {
		t.Fatal("reviewer a should exist")
	}
	if st.TotalVotes != 3 || st.Approvals != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if math.Abs(st.AvgConfidence-0.8) > 1e-9 {
		t.Fatalf("expected avg confidence 0.8, got %f", st.AvgConfidence)
	}
	if math.Abs(st.AgreementRate-2.0/3.0) > 1e-9 {
		t.Fatalf("expected agreement 2/3, got %f", st.AgreementRate)
	}
}

func TestPerformanceScoreNeutralUnderThreeVotes(t *testing.T) {
	s := NewAnalyticsService()
	s.RecordDebate(record(true, []debate.Vote{v("a", true, 1, 1)}, 10))
	s.RecordDebate(record(true, []debate.Vote{v("a", true, 1, 1)}, 10))

	if got := s.PerformanceScore("a"); got != 1.0 {
		t.Fatalf("expected neutral score with <3 votes, got %f", got)
	}
	if got := s.PerformanceScore("unknown"); got != 1.0 {
		t.Fatalf("expected neutral score for unknown reviewer, got %f", got)
	}
}

func TestPerformanceScoreBonuses(t *testing.T) {
	s := NewAnalyticsService()
	for range 3 {
		s.RecordDebate(record(true, []debate.Vote{v("a", true, 1.0, 1)}, 10))
	}

	// Perfect confidence and perfect agreement: 1 + 0.3 + 0.3.
	if got := s.PerformanceScore("a"); math.Abs(got-1.6) > 1e-9 {
		t.Fatalf("expected 1.6, got %f", got)
	}
}
