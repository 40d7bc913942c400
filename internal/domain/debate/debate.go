// Package debate defines the domain types produced by a council debate:
// votes, decisions, and the durable debate record.
package debate

import "time"

// ConsensusMode names one of the eight strategies that turn a vote set
// into an approve/reject decision.
type ConsensusMode string

const (
	ModeSimpleMajority    ConsensusMode = "simple-majority"
	ModeSupermajority     ConsensusMode = "supermajority"
	ModeUnanimous         ConsensusMode = "unanimous"
	ModeWeighted          ConsensusMode = "weighted"
	ModeCEOOverride       ConsensusMode = "ceo-override"
	ModeCEOVeto           ConsensusMode = "ceo-veto"
	ModeHybridCEOMajority ConsensusMode = "hybrid-ceo-majority"
	ModeRankedChoice      ConsensusMode = "ranked-choice"
)

// Modes lists every consensus mode in stable order.
var Modes = []ConsensusMode{
	ModeSimpleMajority, ModeSupermajority, ModeUnanimous, ModeWeighted,
	ModeCEOOverride, ModeCEOVeto, ModeHybridCEOMajority, ModeRankedChoice,
}

// ValidMode reports whether m is a known consensus mode.
func ValidMode(m ConsensusMode) bool {
	for _, v := range Modes {
		if v == m {
			return true
		}
	}
	return false
}

// DissentThreshold is the confidence above which a rejecting vote counts
// as dissent.
const DissentThreshold = 0.7

// Vote is one reviewer's final position. Produced once per reviewer per
// debate and never mutated afterwards.
type Vote struct {
	Reviewer   string  `json:"reviewer"`
	Approved   bool    `json:"approved"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
	Comment    string  `json:"comment,omitempty"`
}

// Decision is the immutable outcome of a debate.
type Decision struct {
	Approved          bool    `json:"approved"`
	Consensus         float64 `json:"consensus"`
	WeightedConsensus float64 `json:"weightedConsensus"`
	Votes             []Vote  `json:"votes"`
	Reasoning         string  `json:"reasoning"`
	Dissent           []Vote  `json:"dissent"`
}

// Record is a Decision plus its debate context, as stored in history.
// Once appended it is immutable except for deletion or pruning.
type Record struct {
	ID              string         `json:"id"`
	SessionID       string         `json:"sessionId"`
	TaskDescription string         `json:"taskDescription"`
	TaskType        string         `json:"taskType,omitempty"`
	Decision        Decision       `json:"decision"`
	Team            []string       `json:"team"`
	LeadReviewer    string         `json:"leadReviewer,omitempty"`
	ConsensusMode   ConsensusMode  `json:"consensusMode"`
	Rounds          int            `json:"debateRounds"`
	Timestamp       time.Time      `json:"timestamp"`
	DurationMS      int64          `json:"durationMs"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// SimpleConsensus is the plain approval share: approvals / total.
// Returns 0 for an empty vote set.
func SimpleConsensus(votes []Vote) float64 {
	if len(votes) == 0 {
		return 0
	}
	approvals := 0
	for _, v := range votes {
		if v.Approved {
			approvals++
		}
	}
	return float64(approvals) / float64(len(votes))
}

// WeightedConsensus is the confidence-weighted approval share:
// sum(weight*confidence) over approving votes divided by sum(weight).
// Returns 0 when the total weight is zero.
func WeightedConsensus(votes []Vote) float64 {
	var approved, total float64
	for _, v := range votes {
		total += v.Weight
		if v.Approved {
			approved += v.Weight * v.Confidence
		}
	}
	if total == 0 {
		return 0
	}
	return approved / total
}

// ComputeDissent returns the rejecting votes whose confidence exceeds
// DissentThreshold.
func ComputeDissent(votes []Vote) []Vote {
	var out []Vote
	for _, v := range votes {
		if !v.Approved && v.Confidence > DissentThreshold {
			out = append(out, v)
		}
	}
	return out
}

// Approvals counts the approving votes.
func Approvals(votes []Vote) int {
	n := 0
	for _, v := range votes {
		if v.Approved {
			n++
		}
	}
	return n
}
