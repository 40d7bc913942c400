package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
	"github.com/arbiterhq/arbiter/internal/domain/specialty"
	"github.com/arbiterhq/arbiter/internal/domain/task"
	"github.com/arbiterhq/arbiter/internal/port/reviewer"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func securityTask() *task.Task {
	return &task.Task{
		ID:          "t1",
		Description: "Fix authentication bypass vulnerability in session handling",
		Files:       []string{"internal/auth/session.go"},
	}
}

func TestSelectNeverEmptyWhenReviewersAvailable(t *testing.T) {
	sel := NewTeamSelector(NewAnalyticsService(), discard())
	available := []reviewer.Reviewer{newFakeReviewer("a", 1)}

	team := sel.Select(context.Background(), securityTask(), available, DefaultTeamOptions())
	if len(team) == 0 {
		t.Fatal("team must not be empty when a reviewer is available")
	}
}

func TestSelectEmptyAvailable(t *testing.T) {
	sel := NewTeamSelector(NewAnalyticsService(), discard())
	if team := sel.Select(context.Background(), securityTask(), nil, DefaultTeamOptions()); team != nil {
		t.Fatalf("expected nil team for no availability, got %v", team)
	}
}

func TestSelectRespectsMaxTeamSize(t *testing.T) {
	sel := NewTeamSelector(NewAnalyticsService(), discard())
	var available []reviewer.Reviewer
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		available = append(available, newFakeReviewer(n, 1, specialty.Security))
	}

	team := sel.Select(context.Background(), securityTask(), available, DefaultTeamOptions())
	if len(team) > 5 {
		t.Fatalf("team exceeds default max of 5: %d", len(team))
	}

	team = sel.Select(context.Background(), securityTask(), available, TeamOptions{MaxTeamSize: 3})
	if len(team) > 3 {
		t.Fatalf("team exceeds requested max of 3: %d", len(team))
	}
}

func TestSelectPrefersSpecialists(t *testing.T) {
	sel := NewTeamSelector(NewAnalyticsService(), discard())
	generalist := newFakeReviewer("generalist", 1, specialty.General)
	specialist := newFakeReviewer("specialist", 1, specialty.Security, specialty.Backend)

	team := sel.Select(context.Background(), securityTask(),
		[]reviewer.Reviewer{generalist, specialist},
		TeamOptions{MinTeamSize: 1, MaxTeamSize: 1})

	if len(team) != 1 || team[0].Name() != "specialist" {
		t.Fatalf("expected the specialist to be chosen, got %v", names(team))
	}
}

func TestSelectRequiredSpecialties(t *testing.T) {
	sel := NewTeamSelector(NewAnalyticsService(), discard())
	generalist := newFakeReviewer("generalist", 1.0)
	specialist := newFakeReviewer("specialist", 1.0, specialty.Security)
	available := []reviewer.Reviewer{generalist, specialist}

	// Nothing in the task hints at security.
	neutral := &task.Task{ID: "t1", Description: "Rename a local variable"}
	opts := DefaultTeamOptions()
	opts.MinTeamSize = 1
	opts.MaxTeamSize = 1

	team := sel.Select(context.Background(), neutral, available, opts)
	if len(team) != 1 || team[0].Name() != "generalist" {
		t.Fatalf("without requirements the generalist should win, got %v", teamNames(team))
	}

	opts.RequiredSpecialties = []specialty.Specialty{specialty.Security}
	team = sel.Select(context.Background(), neutral, available, opts)
	if len(team) != 1 || team[0].Name() != "specialist" {
		t.Fatalf("required specialty must pull in the specialist, got %v", teamNames(team))
	}
}

func TestSelectFallbackWhenNobodyScores(t *testing.T) {
	sel := NewTeamSelector(NewAnalyticsService(), discard())
	// Reviewers with a non-matching specialty and no general coverage
	// score zero against a frontend-free task.
	a := newFakeReviewer("a", 1, specialty.Frontend)
	b := newFakeReviewer("b", 1, specialty.Frontend)
	c := newFakeReviewer("c", 1, specialty.Frontend)

	tk := &task.Task{ID: "t2", Description: "adjust the sql schema", Files: []string{"m.sql"}}
	team := sel.Select(context.Background(), tk, []reviewer.Reviewer{a, b, c}, TeamOptions{MaxTeamSize: 2})

	if len(team) != 2 {
		t.Fatalf("fallback must return top maxTeamSize by availability order, got %v", names(team))
	}
	if team[0].Name() != "a" || team[1].Name() != "b" {
		t.Fatalf("fallback must preserve availability order, got %v", names(team))
	}
}

func TestSelectHistoricalPerformanceBreaksTies(t *testing.T) {
	analytics := NewAnalyticsService()
	// Give "veteran" three high-confidence agreeing votes.
	for range 3 {
		analytics.RecordDebate(&debate.Record{
			Decision: debate.Decision{
				Approved: true,
				Votes:    []debate.Vote{{Reviewer: "veteran", Approved: true, Confidence: 1, Weight: 1}},
			},
		})
	}
	sel := NewTeamSelector(analytics, discard())

	rookie := newFakeReviewer("rookie", 1, specialty.Security)
	veteran := newFakeReviewer("veteran", 1, specialty.Security)

	team := sel.Select(context.Background(), securityTask(),
		[]reviewer.Reviewer{rookie, veteran},
		TeamOptions{MinTeamSize: 1, MaxTeamSize: 1, IncludeHistoricalPerformance: true})

	if team[0].Name() != "veteran" {
		t.Fatalf("expected veteran to outscore rookie, got %v", names(team))
	}

	// Without historical weighting the earlier-listed reviewer wins the tie.
	team = sel.Select(context.Background(), securityTask(),
		[]reviewer.Reviewer{rookie, veteran},
		TeamOptions{MinTeamSize: 1, MaxTeamSize: 1})
	if team[0].Name() != "rookie" {
		t.Fatalf("expected availability-order tie-break, got %v", names(team))
	}
}

func TestSelectDiversityBonusAdmitsNewSpecialty(t *testing.T) {
	sel := NewTeamSelector(NewAnalyticsService(), discard())

	// Two strong security reviewers and one weaker devops reviewer.
	s1 := newFakeReviewer("sec1", 2, specialty.Security)
	s2 := newFakeReviewer("sec2", 2, specialty.Security)
	ops := newFakeReviewer("ops", 0.4, specialty.DevOps, specialty.General)

	tk := &task.Task{
		ID:          "t3",
		Description: "Harden the deploy pipeline against secret leaks",
		Files:       []string{"deploy/pipeline.yml"},
	}

	withBonus := sel.Select(context.Background(), tk,
		[]reviewer.Reviewer{s1, s2, ops},
		TeamOptions{MinTeamSize: 2, MaxTeamSize: 3, DiversityBonus: true})

	if !contains(withBonus, "ops") {
		t.Fatalf("diversity bonus should admit the devops reviewer, got %v", names(withBonus))
	}
}

func names(team []reviewer.Reviewer) []string {
	out := make([]string, len(team))
	for i, r := range team {
		out[i] = r.Name()
	}
	return out
}

func contains(team []reviewer.Reviewer, name string) bool {
	for _, r := range team {
		if r.Name() == name {
			return true
		}
	}
	return false
}
