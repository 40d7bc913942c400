package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/arbiterhq/arbiter/internal/domain/specialty"
	"github.com/arbiterhq/arbiter/internal/domain/task"
	"github.com/arbiterhq/arbiter/internal/port/reviewer"
)

// TeamOptions tune team assembly. Zero sizes fall back to the defaults
// min(2, available) and min(5, available).
type TeamOptions struct {
	MinTeamSize                  int
	MaxTeamSize                  int
	IncludeHistoricalPerformance bool
	DiversityBonus               bool

	// RequiredSpecialties are scored as if the analyzer had inferred
	// them from the task, on top of whatever it actually infers.
	// Debate templates use this to demand, say, a security reviewer.
	RequiredSpecialties []specialty.Specialty
}

// DefaultTeamOptions returns the standard selection options.
func DefaultTeamOptions() TeamOptions {
	return TeamOptions{
		IncludeHistoricalPerformance: true,
		DiversityBonus:               true,
	}
}

// performanceSource supplies a historical multiplier for a reviewer.
type performanceSource interface {
	PerformanceScore(name string) float64
}

// TeamSelector scores available reviewers against a task's inferred
// specialties and assembles a debate team.
type TeamSelector struct {
	perf performanceSource
	log  *slog.Logger
}

// NewTeamSelector creates a TeamSelector backed by the given analytics.
func NewTeamSelector(perf performanceSource, log *slog.Logger) *TeamSelector {
	return &TeamSelector{perf: perf, log: log}
}

type scoredReviewer struct {
	rev   reviewer.Reviewer
	score float64
	order int // availability order, for stable ties and the fallback path
}

// Select assembles a team for the task from the available reviewers.
// The result is never empty when available is non-empty and never exceeds
// the maximum team size.
func (s *TeamSelector) Select(ctx context.Context, t *task.Task, available []reviewer.Reviewer, opts TeamOptions) []reviewer.Reviewer {
	if len(available) == 0 {
		return nil
	}

	minSize := opts.MinTeamSize
	if minSize <= 0 {
		minSize = 2
	}
	if minSize > len(available) {
		minSize = len(available)
	}
	maxSize := opts.MaxTeamSize
	if maxSize <= 0 {
		maxSize = 5
	}
	if maxSize > len(available) {
		maxSize = len(available)
	}
	if maxSize < minSize {
		maxSize = minSize
	}

	text := t.Description + " " + t.Context
	specs := specialty.Analyze(text, t.Files)
	for _, sp := range opts.RequiredSpecialties {
		if !hasSpecialty(specs, sp) {
			specs = append(specs, sp)
		}
	}
	complexity := specialty.Complexity(text, t.Files)

	scored := make([]scoredReviewer, 0, len(available))
	for i, rev := range available {
		scored = append(scored, scoredReviewer{
			rev:   rev,
			score: s.scoreReviewer(rev, specs, complexity, opts),
			order: i,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].order < scored[j].order
	})

	// Nobody scored: fall back to the first maxSize in availability order.
	if scored[0].score <= 0 {
		s.log.DebugContext(ctx, "team selection fallback: no reviewer scored", "task_id", t.ID)
		team := make([]reviewer.Reviewer, 0, maxSize)
		for _, rev := range available[:maxSize] {
			team = append(team, rev)
		}
		return team
	}

	best := scored[0].score
	team := make([]reviewer.Reviewer, 0, maxSize)
	covered := make(map[specialty.Specialty]bool)

	for _, c := range scored {
		if len(team) >= maxSize {
			break
		}
		if len(team) >= minSize {
			bonus := 0.0
			if opts.DiversityBonus {
				for _, sp := range c.rev.Specialties() {
					if !covered[sp] {
						bonus += 0.2
					}
				}
			}
			if c.score+bonus < 0.4*best {
				continue
			}
		}
		team = append(team, c.rev)
		for _, sp := range c.rev.Specialties() {
			covered[sp] = true
		}
	}

	s.log.DebugContext(ctx, "team selected",
		"task_id", t.ID,
		"team_size", len(team),
		"specialties", specs,
		"complexity", complexity,
	)
	return team
}

func hasSpecialty(specs []specialty.Specialty, sp specialty.Specialty) bool {
	for _, have := range specs {
		if have == sp {
			return true
		}
	}
	return false
}

// scoreReviewer computes specialtyScore x weight x performance x complexityMatch.
func (s *TeamSelector) scoreReviewer(rev reviewer.Reviewer, specs []specialty.Specialty, complexity float64, opts TeamOptions) float64 {
	revSpecs := rev.Specialties()

	matches := 0.0
	for _, want := range specs {
		for _, have := range revSpecs {
			if want == have {
				matches++
				break
			}
		}
	}

	// A generalist with no exact match still gets partial credit.
	if matches == 0 {
		for _, have := range revSpecs {
			if have == specialty.General {
				matches = 0.5
				break
			}
		}
	}

	perf := 1.0
	if opts.IncludeHistoricalPerformance && s.perf != nil {
		perf = s.perf.PerformanceScore(rev.Name())
	}

	complexityMatch := 1.0
	if complexity >= 0.7 {
		for _, have := range revSpecs {
			if have == specialty.Architecture || have == specialty.Security {
				complexityMatch = 1.3
				break
			}
		}
	}

	return matches * rev.Weight() * perf * complexityMatch
}
