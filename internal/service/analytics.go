package service

import (
	"sync"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
)

// ReviewerStats is the running record of one reviewer's debate history.
type ReviewerStats struct {
	Reviewer      string  `json:"reviewer"`
	TotalVotes    int     `json:"totalVotes"`
	Approvals     int     `json:"approvals"`
	AvgConfidence float64 `json:"avgConfidence"`
	// AgreementRate is the fraction of this reviewer's votes that matched
	// the council's final decision.
	AgreementRate float64 `json:"agreementRate"`

	confidenceSum float64
	agreements    int
}

// CouncilStats aggregates outcomes across all debates seen so far.
type CouncilStats struct {
	Debates       int     `json:"debates"`
	Approved      int     `json:"approved"`
	AvgConsensus  float64 `json:"avgConsensus"`
	AvgDurationMS float64 `json:"avgDurationMs"`

	consensusSum float64
	durationSum  float64
}

// minVotesForPerformance is how many recorded votes a reviewer needs
// before historical performance influences team selection.
const minVotesForPerformance = 3

// AnalyticsService tracks per-reviewer and per-council statistics,
// updated after every debate. Safe for concurrent use.
type AnalyticsService struct {
	mu        sync.RWMutex
	reviewers map[string]*ReviewerStats
	council   CouncilStats
}

// NewAnalyticsService creates an empty analytics tracker.
func NewAnalyticsService() *AnalyticsService {
	return &AnalyticsService{
		reviewers: make(map[string]*ReviewerStats),
	}
}

// RecordDebate folds one completed debate into the running statistics.
func (s *AnalyticsService) RecordDebate(rec *debate.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.council.Debates++
	if rec.Decision.Approved {
		s.council.Approved++
	}
	s.council.consensusSum += rec.Decision.Consensus
	s.council.AvgConsensus = s.council.consensusSum / float64(s.council.Debates)
	s.council.durationSum += float64(rec.DurationMS)
	s.council.AvgDurationMS = s.council.durationSum / float64(s.council.Debates)

	for _, vote := range rec.Decision.Votes {
		st, ok := s.reviewers[vote.Reviewer]
		if !ok {
			st = &ReviewerStats{Reviewer: vote.Reviewer}
			s.reviewers[vote.Reviewer] = st
		}
		st.TotalVotes++
		if vote.Approved {
			st.Approvals++
		}
		st.confidenceSum += vote.Confidence
		st.AvgConfidence = st.confidenceSum / float64(st.TotalVotes)
		if vote.Approved == rec.Decision.Approved {
			st.agreements++
		}
		st.AgreementRate = float64(st.agreements) / float64(st.TotalVotes)
	}
}

// Reviewer returns a copy of the named reviewer's stats.
func (s *AnalyticsService) Reviewer(name string) (ReviewerStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.reviewers[name]
	if !ok {
		return ReviewerStats{}, false
	}
	return *st, true
}

// Reviewers returns a copy of all reviewer stats.
func (s *AnalyticsService) Reviewers() []ReviewerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ReviewerStats, 0, len(s.reviewers))
	for _, st := range s.reviewers {
		out = append(out, *st)
	}
	return out
}

// Council returns a copy of the aggregate council stats.
func (s *AnalyticsService) Council() CouncilStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.council
}

// PerformanceScore converts a reviewer's history into a team-selection
// multiplier: 1.0 plus up to 0.3 for average confidence and up to 0.3 for
// agreement with past council decisions. Reviewers with fewer than three
// recorded votes score a neutral 1.0.
func (s *AnalyticsService) PerformanceScore(name string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.reviewers[name]
	if !ok || st.TotalVotes < minVotesForPerformance {
		return 1.0
	}
	return 1.0 + st.AvgConfidence*0.3 + st.AgreementRate*0.3
}
