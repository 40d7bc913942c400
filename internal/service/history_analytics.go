package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"
)

// RateStat is an approval rate over a bucket of debates.
type RateStat struct {
	Debates      int     `json:"debates"`
	Approvals    int     `json:"approvals"`
	ApprovalRate float64 `json:"approvalRate"`
}

// VoteStat aggregates one reviewer's votes across stored debates.
type VoteStat struct {
	Votes         int     `json:"votes"`
	Approvals     int     `json:"approvals"`
	AvgConfidence float64 `json:"avgConfidence"`
}

// DailyPoint is one day of debate activity, keyed by UTC date.
type DailyPoint struct {
	Date      string `json:"date"`
	Debates   int    `json:"debates"`
	Approvals int    `json:"approvals"`
}

// HistoryAnalytics summarizes the stored debate records.
type HistoryAnalytics struct {
	TotalDebates  int                 `json:"totalDebates"`
	ApprovalRate  float64             `json:"approvalRate"`
	AvgConsensus  float64             `json:"avgConsensus"`
	AvgDurationMS float64             `json:"avgDurationMs"`
	ByTaskType    map[string]RateStat `json:"byTaskType"`
	ByMode        map[string]RateStat `json:"byConsensusMode"`
	ByReviewer    map[string]VoteStat `json:"byReviewer"`
	Daily         []DailyPoint        `json:"daily"`
}

// Analytics computes the summary over all stored records, serving from
// cache when a fresh copy exists.
func (s *HistoryService) Analytics(ctx context.Context) (*HistoryAnalytics, error) {
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, analyticsCacheKey); err == nil && ok {
			var cached HistoryAnalytics
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	out := s.computeAnalytics()

	if s.cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, analyticsCacheKey, raw, s.cacheTTL); err != nil {
				s.log.WarnContext(ctx, "analytics cache write failed", "error", err)
			}
		}
	}
	return out, nil
}

func (s *HistoryService) computeAnalytics() *HistoryAnalytics {
	s.mu.RLock()
	records := s.sortedAscLocked()
	s.mu.RUnlock()

	out := &HistoryAnalytics{
		TotalDebates: len(records),
		ByTaskType:   make(map[string]RateStat),
		ByMode:       make(map[string]RateStat),
		ByReviewer:   make(map[string]VoteStat),
	}
	if len(records) == 0 {
		return out
	}

	approvals := 0
	var consensusSum, durationSum float64
	confidenceSums := make(map[string]float64)
	daily := make(map[string]*DailyPoint)

	for _, rec := range records {
		if rec.Decision.Approved {
			approvals++
		}
		consensusSum += rec.Decision.Consensus
		durationSum += float64(rec.DurationMS)

		bumpRate(out.ByTaskType, rec.TaskType, rec.Decision.Approved)
		bumpRate(out.ByMode, string(rec.ConsensusMode), rec.Decision.Approved)

		for _, vote := range rec.Decision.Votes {
			st := out.ByReviewer[vote.Reviewer]
			st.Votes++
			if vote.Approved {
				st.Approvals++
			}
			confidenceSums[vote.Reviewer] += vote.Confidence
			out.ByReviewer[vote.Reviewer] = st
		}

		date := rec.Timestamp.UTC().Format(time.DateOnly)
		point, ok := daily[date]
		if !ok {
			point = &DailyPoint{Date: date}
			daily[date] = point
		}
		point.Debates++
		if rec.Decision.Approved {
			point.Approvals++
		}
	}

	out.ApprovalRate = float64(approvals) / float64(len(records))
	out.AvgConsensus = consensusSum / float64(len(records))
	out.AvgDurationMS = durationSum / float64(len(records))

	for name, st := range out.ByReviewer {
		if st.Votes > 0 {
			st.AvgConfidence = confidenceSums[name] / float64(st.Votes)
			out.ByReviewer[name] = st
		}
	}
	finalizeRates(out.ByTaskType)
	finalizeRates(out.ByMode)

	out.Daily = make([]DailyPoint, 0, len(daily))
	for _, point := range daily {
		out.Daily = append(out.Daily, *point)
	}
	sort.Slice(out.Daily, func(i, j int) bool { return out.Daily[i].Date < out.Daily[j].Date })

	return out
}

func bumpRate(m map[string]RateStat, key string, approved bool) {
	if key == "" {
		key = "unknown"
	}
	st := m[key]
	st.Debates++
	if approved {
		st.Approvals++
	}
	m[key] = st
}

func finalizeRates(m map[string]RateStat) {
	for key, st := range m {
		if st.Debates > 0 {
			st.ApprovalRate = float64(st.Approvals) / float64(st.Debates)
			m[key] = st
		}
	}
}
