package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arbiterhq/arbiter/internal/domain/task"
	"github.com/arbiterhq/arbiter/internal/port/reviewer"
)

// crossReviewRound marks the synthetic leaderboard entry appended after
// the debate rounds proper.
const crossReviewRound = 0

// defaultConfidence is assumed when a vote reply carries no CONFIDENCE line.
const defaultConfidence = 0.7

const defaultSystemPrompt = "You are a senior code reviewer sitting on a review council. " +
	"Judge the task on correctness, safety, and maintainability. Be direct and concrete."

type transcriptEntry struct {
	Round    int
	Reviewer string
	Content  string
}

// renderTranscript produces the labeled-block form shared with reviewers
// in refinement and vote prompts.
func renderTranscript(entries []transcriptEntry) string {
	var b strings.Builder
	for _, e := range entries {
		if e.Round == crossReviewRound {
			fmt.Fprintf(&b, "## %s\n%s\n\n", e.Reviewer, e.Content)
			continue
		}
		fmt.Fprintf(&b, "## Round %d — %s\n%s\n\n", e.Round, e.Reviewer, e.Content)
	}
	return b.String()
}

func systemMessage(override string) reviewer.Message {
	prompt := defaultSystemPrompt
	if override != "" {
		prompt = override
	}
	return reviewer.Message{Role: "system", Content: prompt}
}

func taskSummary(t *task.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", t.Description)
	if t.Type != "" {
		fmt.Fprintf(&b, "Type: %s\n", t.Type)
	}
	if t.Context != "" {
		fmt.Fprintf(&b, "Context:\n%s\n", t.Context)
	}
	if len(t.Files) > 0 {
		fmt.Fprintf(&b, "Files involved:\n")
		for _, f := range t.Files {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return b.String()
}

func opinionMessages(t *task.Task, systemPrompt string) []reviewer.Message {
	return []reviewer.Message{
		systemMessage(systemPrompt),
		{Role: "user", Content: taskSummary(t) +
			"\nGive your independent assessment of this task. " +
			"Cover risks, gaps, and anything that should block approval."},
	}
}

func refineMessages(t *task.Task, transcript string, round int, systemPrompt string) []reviewer.Message {
	return []reviewer.Message{
		systemMessage(systemPrompt),
		{Role: "user", Content: fmt.Sprintf(
			"%s\nThe debate so far:\n\n%s\nThis is round %d. "+
				"Refine your position in light of the other opinions. "+
				"Concede points that convinced you and defend the ones that did not.",
			taskSummary(t), transcript, round)},
	}
}

func crossReviewMessages(opinions []labeledOpinion, ownLabel string) []reviewer.Message {
	var b strings.Builder
	b.WriteString("Below are the final opinions from a review council, anonymized.\n\n")
	for _, op := range opinions {
		fmt.Fprintf(&b, "### Response %s\n%s\n\n", op.Label, op.Content)
	}
	fmt.Fprintf(&b,
		"You wrote Response %s; do not rank it. Rank the other responses from "+
			"most to least convincing. End with a list in exactly this form:\n\n"+
			"FINAL RANKING:\n1. Response X\n2. Response Y\n", ownLabel)
	return []reviewer.Message{
		systemMessage(""),
		{Role: "user", Content: b.String()},
	}
}

func voteMessages(transcript, systemPrompt string) []reviewer.Message {
	return []reviewer.Message{
		systemMessage(systemPrompt),
		{Role: "user", Content: "The debate has concluded:\n\n" + transcript +
			"\nCast your final vote. Reply with a line \"VOTE: APPROVE\" or " +
			"\"VOTE: REJECT\", a line \"CONFIDENCE: <0.0-1.0>\", and a short justification."},
	}
}

var (
	voteLineRe    = regexp.MustCompile(`(?i)VOTE:\s*(APPROVE|REJECT)`)
	approveWordRe = regexp.MustCompile(`(?i)\b(approve|approved|accept|accepted|lgtm)\b`)
	rejectWordRe  = regexp.MustCompile(`(?i)\b(reject|rejected|deny|denied|block|blocked)\b`)
	confidenceRe  = regexp.MustCompile(`(?i)CONFIDENCE:\s*([0-9]*\.?[0-9]+)`)
)

// parseVote interprets a final vote reply. An explicit VOTE: line wins;
// otherwise an unambiguous approval keyword approves. Anything ambiguous
// or unparseable is a rejection.
func parseVote(text string) bool {
	if m := voteLineRe.FindStringSubmatch(text); m != nil {
		return strings.EqualFold(m[1], "APPROVE")
	}
	if approveWordRe.MatchString(text) && !rejectWordRe.MatchString(text) {
		return true
	}
	return false
}

// parseConfidence extracts the CONFIDENCE value. Values above 1 are read
// as percentages. Missing or malformed values fall back to 0.7.
func parseConfidence(text string) float64 {
	m := confidenceRe.FindStringSubmatch(text)
	if m == nil {
		return defaultConfidence
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return defaultConfidence
	}
	if v > 1 {
		v /= 100
	}
	return clamp(v, 0, 1)
}
