package service

import (
	"math"
	"strings"
	"testing"
)

func TestParseVoteExplicitLine(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"VOTE: APPROVE\nCONFIDENCE: 0.9", true},
		{"vote: approve", true},
		{"VOTE: REJECT\nlooks risky", false},
		{"Some preamble.\nVOTE: REJECT", false},
		// Explicit line wins over surrounding keywords.
		{"I would normally approve this, but VOTE: REJECT", false},
	}
	for _, tc := range cases {
		if got := parseVote(tc.text); got != tc.want {
			t.Errorf("parseVote(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestParseVoteKeywordFallback(t *testing.T) {
	if !parseVote("LGTM, ship it") {
		t.Error("unambiguous approval keyword should approve")
	}
	if parseVote("I approve the intent but reject the implementation") {
		t.Error("mixed keywords must reject")
	}
	if parseVote("Interesting task.") {
		t.Error("no verdict at all must reject")
	}
	if parseVote("") {
		t.Error("empty reply must reject")
	}
}

func TestParseConfidence(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"CONFIDENCE: 0.85", 0.85},
		{"confidence: 1", 1},
		{"CONFIDENCE: 85", 0.85}, // percentage form
		{"CONFIDENCE: 250", 1},   // clamped after percentage conversion
		{"no confidence line here", 0.7},
		{"CONFIDENCE: banana", 0.7},
	}
	for _, tc := range cases {
		if got := parseConfidence(tc.text); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("parseConfidence(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestParseRanking(t *testing.T) {
	text := "Reasoning first.\n\nFINAL RANKING:\n1. Response B\n2) Response A\n3. Response C\n"
	ranks := parseRanking(text)
	if ranks["B"] != 1 || ranks["A"] != 2 || ranks["C"] != 3 {
		t.Fatalf("unexpected ranks: %v", ranks)
	}
}

func TestParseRankingKeepsFirstPosition(t *testing.T) {
	ranks := parseRanking("1. Response A\n2. Response A\n3. Response B")
	if ranks["A"] != 1 {
		t.Fatalf("duplicate label should keep first position, got %d", ranks["A"])
	}
	if ranks["B"] != 3 {
		t.Fatalf("ranks[B] = %d, want 3", ranks["B"])
	}
}

func TestParseRankingGarbage(t *testing.T) {
	if got := parseRanking("no ranking present"); len(got) != 0 {
		t.Fatalf("expected no ranks, got %v", got)
	}
}

func TestRenderTranscriptLabelsRounds(t *testing.T) {
	entries := []transcriptEntry{
		{Round: 1, Reviewer: "alice", Content: "fine"},
		{Round: 2, Reviewer: "bob", Content: "still fine"},
	}
	out := renderTranscript(entries)
	for _, want := range []string{"## Round 1 — alice", "## Round 2 — bob", "fine"} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
}
