package service

import (
	"fmt"
	"math"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
)

// ConsensusInput carries everything a consensus strategy may consult.
type ConsensusInput struct {
	Votes     []debate.Vote
	Threshold float64
	LeadVote  *debate.Vote // vote of the configured lead reviewer, if any
}

// ApplyConsensus converts a vote set into an approve/reject outcome under
// the named strategy, along with a one-line explanation. Dispatch is a
// compile-time switch; tie-break order within each strategy is fixed.
func ApplyConsensus(mode debate.ConsensusMode, in ConsensusInput) (bool, string) {
	switch mode {
	case debate.ModeSimpleMajority:
		return simpleMajority(in)
	case debate.ModeSupermajority:
		return supermajority(in)
	case debate.ModeUnanimous:
		return unanimous(in)
	case debate.ModeWeighted:
		return weighted(in)
	case debate.ModeCEOOverride:
		return ceoOverride(in)
	case debate.ModeCEOVeto:
		return ceoVeto(in)
	case debate.ModeHybridCEOMajority:
		return hybridCEOMajority(in)
	case debate.ModeRankedChoice:
		return rankedChoice(in)
	default:
		// Unknown modes are rejected conservatively.
		return false, fmt.Sprintf("unknown consensus mode %q: rejected", mode)
	}
}

func simpleMajority(in ConsensusInput) (bool, string) {
	ratio := debate.SimpleConsensus(in.Votes)
	approved := ratio >= in.Threshold
	return approved, fmt.Sprintf("simple majority: %d/%d approve (%.0f%%, threshold %.0f%%)",
		debate.Approvals(in.Votes), len(in.Votes), ratio*100, in.Threshold*100)
}

func supermajority(in ConsensusInput) (bool, string) {
	needed := int(math.Ceil(float64(len(in.Votes)) * 2.0 / 3.0))
	approvals := debate.Approvals(in.Votes)
	approved := approvals >= needed
	return approved, fmt.Sprintf("supermajority: %d/%d approve, %d required", approvals, len(in.Votes), needed)
}

func unanimous(in ConsensusInput) (bool, string) {
	approvals := debate.Approvals(in.Votes)
	approved := len(in.Votes) > 0 && approvals == len(in.Votes)
	return approved, fmt.Sprintf("unanimous: %d/%d approve", approvals, len(in.Votes))
}

func weighted(in ConsensusInput) (bool, string) {
	wc := debate.WeightedConsensus(in.Votes)
	approved := wc >= in.Threshold
	return approved, fmt.Sprintf("weighted: confidence-weighted approval %.0f%% (threshold %.0f%%)",
		wc*100, in.Threshold*100)
}

func ceoOverride(in ConsensusInput) (bool, string) {
	if in.LeadVote != nil {
		verdict := "rejects"
		if in.LeadVote.Approved {
			verdict = "approves"
		}
		return in.LeadVote.Approved, fmt.Sprintf("ceo-override: lead reviewer %s %s (confidence %.2f)",
			in.LeadVote.Reviewer, verdict, in.LeadVote.Confidence)
	}
	approved, line := weighted(in)
	return approved, "ceo-override: no lead vote, falling back to " + line
}

func ceoVeto(in ConsensusInput) (bool, string) {
	if in.LeadVote != nil && !in.LeadVote.Approved && in.LeadVote.Confidence >= 0.7 {
		return false, fmt.Sprintf("ceo-veto: lead reviewer %s vetoed with confidence %.2f",
			in.LeadVote.Reviewer, in.LeadVote.Confidence)
	}
	approved, line := simpleMajority(in)
	return approved, "ceo-veto: no veto, " + line
}

func hybridCEOMajority(in ConsensusInput) (bool, string) {
	approvals := debate.Approvals(in.Votes)
	rejections := len(in.Votes) - approvals
	margin := approvals - rejections

	if margin > 1 {
		return true, fmt.Sprintf("hybrid: clear majority approves (%d-%d)", approvals, rejections)
	}
	if margin < -1 {
		return false, fmt.Sprintf("hybrid: clear majority rejects (%d-%d)", approvals, rejections)
	}
	if in.LeadVote != nil {
		verdict := "rejects"
		if in.LeadVote.Approved {
			verdict = "approves"
		}
		return in.LeadVote.Approved, fmt.Sprintf("hybrid: near-tie (%d-%d) broken by lead reviewer %s who %s",
			approvals, rejections, in.LeadVote.Reviewer, verdict)
	}
	return approvals >= rejections, fmt.Sprintf("hybrid: near-tie (%d-%d) with no lead, approvals win ties",
		approvals, rejections)
}

func rankedChoice(in ConsensusInput) (bool, string) {
	var approve, reject float64
	for _, v := range in.Votes {
		score := v.Weight * v.Confidence
		if v.Approved {
			approve += score
		} else {
			reject += score
		}
	}
	approved := approve >= reject
	return approved, fmt.Sprintf("ranked-choice: approve score %.2f vs reject score %.2f", approve, reject)
}
