package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/arbiterhq/arbiter/internal/port/reviewer"
)

const (
	boostFloor = 0.5
	boostCeil  = 1.5
	boostStep  = 0.1
)

// rankingRe matches one line of a "FINAL RANKING:" list, e.g.
// "1. Response B" or "2) Response A".
var rankingRe = regexp.MustCompile(`(?mi)^\s*(\d+)[.)]\s*Response\s+([A-Z])\b`)

// runCrossReview anonymizes each reviewer's final opinion, asks every
// eligible reviewer to rank the others, and converts average ranks into
// vote weight boosts. The (de-anonymized) leaderboard is appended to the
// transcript so the final vote round can see it. Reviewers who never
// produced a usable opinion neither rank nor get ranked.
func (s *CouncilService) runCrossReview(ctx context.Context, team []reviewer.Reviewer, transcript *[]transcriptEntry) map[string]float64 {
	opinions := finalOpinions(team, *transcript)

	// Labels follow team order over reviewers with a usable opinion.
	var labeled []labeledOpinion
	labelFor := make(map[string]string)
	for _, r := range team {
		op, ok := opinions[r.Name()]
		if !ok {
			continue
		}
		label := string(rune('A' + len(labeled)))
		labelFor[r.Name()] = label
		labeled = append(labeled, labeledOpinion{Label: label, Reviewer: r.Name(), Content: op})
	}
	if len(labeled) < 2 {
		return nil
	}

	var eligible []reviewer.Reviewer
	for _, r := range team {
		if _, ok := labelFor[r.Name()]; ok {
			eligible = append(eligible, r)
		}
	}

	replies := s.fanOut(ctx, eligible, func(r reviewer.Reviewer) []reviewer.Message {
		return crossReviewMessages(labeled, labelFor[r.Name()])
	})

	// Collect every rank assigned to each label. A reviewer's own label
	// is ignored if it slips into their ranking anyway.
	rankSums := make(map[string]float64)
	rankCounts := make(map[string]int)
	for i, r := range eligible {
		if replies[i].err != nil {
			s.log.WarnContext(ctx, "cross-review failed",
				"reviewer", r.Name(), "error", replies[i].err)
			continue
		}
		for label, rank := range parseRanking(replies[i].text) {
			if label == labelFor[r.Name()] {
				continue
			}
			rankSums[label] += float64(rank)
			rankCounts[label]++
		}
	}

	// The midpoint is fixed by team size. Reviewers without a usable
	// opinion still occupy a slot, so losing one must not shift
	// everyone else's boost.
	midpoint := float64(len(team)+1) / 2.0
	boosts := make(map[string]float64, len(labeled))
	type standing struct {
		reviewer string
		avgRank  float64
		boost    float64
	}
	var board []standing
	for _, op := range labeled {
		avg := midpoint // unranked reviewers sit exactly at the midpoint
		if n := rankCounts[op.Label]; n > 0 {
			avg = rankSums[op.Label] / float64(n)
		}
		boost := clamp(1.0+(midpoint-avg)*boostStep, boostFloor, boostCeil)
		boosts[op.Reviewer] = boost
		board = append(board, standing{reviewer: op.Reviewer, avgRank: avg, boost: boost})
	}

	sort.SliceStable(board, func(i, j int) bool { return board[i].avgRank < board[j].avgRank })

	var b strings.Builder
	b.WriteString("Peer review leaderboard:\n")
	for i, st := range board {
		fmt.Fprintf(&b, "%d. %s (average rank %.2f, weight boost %.2f)\n",
			i+1, st.reviewer, st.avgRank, st.boost)
	}
	*transcript = append(*transcript, transcriptEntry{
		Round:    crossReviewRound,
		Reviewer: "cross-review",
		Content:  b.String(),
	})

	return boosts
}

type labeledOpinion struct {
	Label    string
	Reviewer string
	Content  string
}

// finalOpinions extracts each reviewer's last transcript contribution.
// A reviewer whose only contribution is the round-1 failure placeholder
// has no usable opinion.
func finalOpinions(team []reviewer.Reviewer, transcript []transcriptEntry) map[string]string {
	last := make(map[string]string, len(team))
	for _, e := range transcript {
		last[e.Reviewer] = e.Content
	}
	out := make(map[string]string, len(last))
	for _, r := range team {
		op, ok := last[r.Name()]
		if !ok || op == unableToOpine {
			continue
		}
		out[r.Name()] = op
	}
	return out
}

// parseRanking extracts label positions from a FINAL RANKING list.
// The stated position number wins over list order; a label mentioned
// twice keeps its first position.
func parseRanking(text string) map[string]int {
	ranks := make(map[string]int)
	for _, m := range rankingRe.FindAllStringSubmatch(text, -1) {
		pos, err := strconv.Atoi(m[1])
		if err != nil || pos < 1 {
			continue
		}
		label := strings.ToUpper(m[2])
		if _, seen := ranks[label]; seen {
			continue
		}
		ranks[label] = pos
	}
	return ranks
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
