package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/debate"
	"github.com/arbiterhq/arbiter/internal/domain/task"
	"github.com/arbiterhq/arbiter/internal/domain/template"
	"github.com/arbiterhq/arbiter/internal/port/broadcast"
	"github.com/arbiterhq/arbiter/internal/port/reviewer"
)

// unableToOpine is recorded when a reviewer's round-1 call fails.
// Later rounds drop failed contributions instead; that asymmetry is
// deliberate and matches the documented protocol.
const unableToOpine = "[Unable to provide opinion]"

// failedVoteConfidence is recorded for a reviewer whose final vote call
// fails entirely.
const failedVoteConfidence = 0.5

// CouncilConfig is the runtime-mutable debate configuration.
type CouncilConfig struct {
	Roster         []string             `json:"roster"`
	Rounds         int                  `json:"rounds"`
	Threshold      float64              `json:"threshold"`
	Enabled        bool                 `json:"enabled"`
	WeightedVoting bool                 `json:"weightedVoting"`
	Mode           debate.ConsensusMode `json:"mode"`
	LeadReviewer   string               `json:"leadReviewer,omitempty"`
	Fallbacks      []string             `json:"fallbacks,omitempty"`
	SystemPrompt   string               `json:"systemPrompt,omitempty"`
}

// CouncilService selects a review team, runs the multi-round debate with
// anonymous cross-review, and produces a Decision under the configured
// consensus mode.
type CouncilService struct {
	mu        sync.Mutex
	cfg       CouncilConfig
	reviewers map[string]reviewer.Reviewer
	order     []string // registration order; anonymization follows it

	selector    *TeamSelector
	analytics   *AnalyticsService
	history     *HistoryService
	hub         broadcast.Broadcaster
	maxParallel int64
	teamOpts    TeamOptions
	log         *slog.Logger
}

// NewCouncilService creates a CouncilService from static configuration.
func NewCouncilService(
	cfg config.Council,
	selector *TeamSelector,
	analytics *AnalyticsService,
	history *HistoryService,
	hub broadcast.Broadcaster,
	log *slog.Logger,
) *CouncilService {
	maxParallel := int64(cfg.MaxParallel)
	if maxParallel < 1 {
		maxParallel = 1
	}
	teamOpts := DefaultTeamOptions()
	if cfg.MinTeamSize > 0 {
		teamOpts.MinTeamSize = cfg.MinTeamSize
	}
	if cfg.MaxTeamSize > 0 {
		teamOpts.MaxTeamSize = cfg.MaxTeamSize
	}
	return &CouncilService{
		cfg: CouncilConfig{
			Rounds:         cfg.Rounds,
			Threshold:      cfg.Threshold,
			Enabled:        true,
			WeightedVoting: cfg.WeightedVoting,
			Mode:           debate.ConsensusMode(cfg.Mode),
			LeadReviewer:   cfg.LeadReviewer,
			Fallbacks:      cfg.Fallbacks,
		},
		reviewers:   make(map[string]reviewer.Reviewer),
		selector:    selector,
		analytics:   analytics,
		history:     history,
		hub:         hub,
		maxParallel: maxParallel,
		teamOpts:    teamOpts,
		log:         log,
	}
}

// RegisterReviewer adds a live reviewer handle to the council.
func (s *CouncilService) RegisterReviewer(r reviewer.Reviewer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reviewers[r.Name()]; exists {
		return fmt.Errorf("%w: reviewer %q already registered", domain.ErrConflict, r.Name())
	}
	s.reviewers[r.Name()] = r
	s.order = append(s.order, r.Name())
	return nil
}

// RemoveReviewer drops a reviewer handle from the council.
func (s *CouncilService) RemoveReviewer(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reviewers[name]; !exists {
		return fmt.Errorf("%w: reviewer %q", domain.ErrNotFound, name)
	}
	delete(s.reviewers, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ReviewerInfo describes one registered reviewer for the roster endpoint.
type ReviewerInfo struct {
	Name        string   `json:"name"`
	Weight      float64  `json:"weight"`
	Specialties []string `json:"specialties"`
	Available   bool     `json:"available"`
}

// Reviewers lists registered reviewers with live availability.
func (s *CouncilService) Reviewers(ctx context.Context) []ReviewerInfo {
	s.mu.Lock()
	handles := make([]reviewer.Reviewer, 0, len(s.order))
	for _, name := range s.order {
		handles = append(handles, s.reviewers[name])
	}
	s.mu.Unlock()

	out := make([]ReviewerInfo, 0, len(handles))
	for _, r := range handles {
		specs := make([]string, 0, len(r.Specialties()))
		for _, sp := range r.Specialties() {
			specs = append(specs, string(sp))
		}
		out = append(out, ReviewerInfo{
			Name:        r.Name(),
			Weight:      r.Weight(),
			Specialties: specs,
			Available:   r.IsAvailable(ctx),
		})
	}
	return out
}

// Config returns a copy of the current council configuration.
func (s *CouncilService) Config() CouncilConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the council configuration.
func (s *CouncilService) SetConfig(cfg CouncilConfig) error {
	if cfg.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be >= 1", domain.ErrValidation)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be in [0, 1]", domain.ErrValidation)
	}
	if !debate.ValidMode(cfg.Mode) {
		return fmt.Errorf("%w: unknown consensus mode %q", domain.ErrValidation, cfg.Mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

// overrideConfig swaps in a template-derived configuration and returns a
// restore function. The override lasts for exactly one debate.
func (s *CouncilService) overrideConfig(tpl *template.Template) func() {
	s.mu.Lock()
	prevCfg := s.cfg
	prevOpts := s.teamOpts
	s.cfg.Rounds = tpl.DebateRounds
	s.cfg.Threshold = tpl.ConsensusThreshold
	s.cfg.Mode = tpl.ConsensusMode
	s.cfg.SystemPrompt = tpl.SystemPrompt
	s.teamOpts.RequiredSpecialties = tpl.RequiredSpecialties
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.cfg = prevCfg
		s.teamOpts = prevOpts
		s.mu.Unlock()
	}
}

// RunDebate deliberates over the task and returns the stored debate record.
// Reviewer failures degrade individual contributions; the debate itself
// always terminates with a Decision. Only illegal usage returns an error.
func (s *CouncilService) RunDebate(ctx context.Context, t *task.Task) (*debate.Record, error) {
	cfg := s.Config()
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: council is disabled", domain.ErrValidation)
	}

	team := s.assembleTeam(ctx, t, cfg)
	if len(team) == 0 {
		return nil, fmt.Errorf("%w: no reviewers available", domain.ErrValidation)
	}

	start := time.Now()
	sessionID := uuid.NewString()

	s.log.InfoContext(ctx, "debate started",
		"session_id", sessionID,
		"task_id", t.ID,
		"team", teamNames(team),
		"rounds", cfg.Rounds,
		"mode", cfg.Mode,
	)

	transcript := s.runRounds(ctx, t, team, cfg)

	boosts := s.runCrossReview(ctx, team, &transcript)

	votes := s.collectVotes(ctx, team, transcript, cfg, boosts)

	decision := s.decide(votes, cfg)

	rec := &debate.Record{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		TaskDescription: t.Description,
		TaskType:        t.Type,
		Decision:        decision,
		Team:            teamNames(team),
		LeadReviewer:    cfg.LeadReviewer,
		ConsensusMode:   cfg.Mode,
		Rounds:          cfg.Rounds,
		Timestamp:       time.Now().UTC(),
		DurationMS:      time.Since(start).Milliseconds(),
	}

	s.analytics.RecordDebate(rec)
	if s.history != nil {
		s.history.Append(ctx, rec)
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, broadcast.EventDebateCompleted, rec)
	}

	s.log.InfoContext(ctx, "debate completed",
		"session_id", sessionID,
		"task_id", t.ID,
		"approved", decision.Approved,
		"consensus", decision.Consensus,
		"duration_ms", rec.DurationMS,
	)
	return rec, nil
}

// assembleTeam resolves available reviewers (roster plus fallback chain)
// and delegates to the team selector.
func (s *CouncilService) assembleTeam(ctx context.Context, t *task.Task, cfg CouncilConfig) []reviewer.Reviewer {
	s.mu.Lock()
	roster := cfg.Roster
	if len(roster) == 0 {
		roster = append([]string(nil), s.order...)
	}
	handles := make(map[string]reviewer.Reviewer, len(s.reviewers))
	for name, r := range s.reviewers {
		handles[name] = r
	}
	opts := s.teamOpts
	s.mu.Unlock()

	var available []reviewer.Reviewer
	seen := make(map[string]bool)

	add := func(name string) bool {
		r, ok := handles[name]
		if !ok || seen[name] {
			return false
		}
		if !r.IsAvailable(ctx) {
			return false
		}
		seen[name] = true
		available = append(available, r)
		return true
	}

	fallbackIdx := 0
	for _, name := range roster {
		if add(name) {
			continue
		}
		// Roster member unavailable: try the next unused fallback.
		for fallbackIdx < len(cfg.Fallbacks) {
			fb := cfg.Fallbacks[fallbackIdx]
			fallbackIdx++
			if add(fb) {
				break
			}
		}
	}

	return s.selector.Select(ctx, t, available, opts)
}

// runRounds executes round 1 plus the configured refinement rounds.
// Each round is a strict barrier: the next round starts only after every
// reviewer's attempt in the current round has settled.
func (s *CouncilService) runRounds(ctx context.Context, t *task.Task, team []reviewer.Reviewer, cfg CouncilConfig) []transcriptEntry {
	var transcript []transcriptEntry

	// Round 1: independent opinions from the task alone.
	replies := s.fanOut(ctx, team, func(reviewer.Reviewer) []reviewer.Message {
		return opinionMessages(t, cfg.SystemPrompt)
	})
	for i, r := range team {
		content := unableToOpine
		if replies[i].err == nil {
			content = replies[i].text
		} else {
			s.log.WarnContext(ctx, "reviewer opinion failed",
				"reviewer", r.Name(), "round", 1, "error", replies[i].err)
		}
		transcript = append(transcript, transcriptEntry{Round: 1, Reviewer: r.Name(), Content: content})
	}

	// Rounds 2..R: every reviewer refines against the same snapshot.
	for round := 2; round <= cfg.Rounds; round++ {
		snapshot := renderTranscript(transcript)
		replies = s.fanOut(ctx, team, func(reviewer.Reviewer) []reviewer.Message {
			return refineMessages(t, snapshot, round, cfg.SystemPrompt)
		})
		for i, r := range team {
			if replies[i].err != nil {
				// Failed refinements are dropped from the transcript.
				s.log.WarnContext(ctx, "reviewer refinement failed",
					"reviewer", r.Name(), "round", round, "error", replies[i].err)
				continue
			}
			transcript = append(transcript, transcriptEntry{Round: round, Reviewer: r.Name(), Content: replies[i].text})
		}
	}

	return transcript
}

// collectVotes gathers and parses the final votes. Reviewers whose chat
// call fails are recorded with a conservative default vote so the vote
// count always equals the team size.
func (s *CouncilService) collectVotes(ctx context.Context, team []reviewer.Reviewer, transcript []transcriptEntry, cfg CouncilConfig, boosts map[string]float64) []debate.Vote {
	snapshot := renderTranscript(transcript)
	replies := s.fanOut(ctx, team, func(reviewer.Reviewer) []reviewer.Message {
		return voteMessages(snapshot, cfg.SystemPrompt)
	})

	votes := make([]debate.Vote, 0, len(team))
	for i, r := range team {
		baseWeight := reviewer.ClampWeight(r.Weight())
		if !cfg.WeightedVoting {
			baseWeight = 1.0
		}

		if replies[i].err != nil {
			s.log.WarnContext(ctx, "reviewer vote failed",
				"reviewer", r.Name(), "error", replies[i].err)
			votes = append(votes, debate.Vote{
				Reviewer:   r.Name(),
				Approved:   false,
				Confidence: failedVoteConfidence,
				Weight:     baseWeight,
				Comment:    "vote call failed; recorded as conservative rejection",
			})
			continue
		}

		boost := 1.0
		if cfg.WeightedVoting {
			if b, ok := boosts[r.Name()]; ok {
				boost = b
			}
		}
		votes = append(votes, debate.Vote{
			Reviewer:   r.Name(),
			Approved:   parseVote(replies[i].text),
			Confidence: parseConfidence(replies[i].text),
			Weight:     baseWeight * boost,
			Comment:    replies[i].text,
		})
	}
	return votes
}

// decide applies the consensus mode and assembles the decision with its
// multi-part reasoning.
func (s *CouncilService) decide(votes []debate.Vote, cfg CouncilConfig) debate.Decision {
	var leadVote *debate.Vote
	if cfg.LeadReviewer != "" {
		for i := range votes {
			if votes[i].Reviewer == cfg.LeadReviewer {
				leadVote = &votes[i]
				break
			}
		}
	}

	approved, modeLine := ApplyConsensus(cfg.Mode, ConsensusInput{
		Votes:     votes,
		Threshold: cfg.Threshold,
		LeadVote:  leadVote,
	})

	dissent := debate.ComputeDissent(votes)

	var b strings.Builder
	b.WriteString(modeLine)
	b.WriteString("\n\nVotes:\n")
	for _, vote := range votes {
		verdict := "REJECT"
		if vote.Approved {
			verdict = "APPROVE"
		}
		fmt.Fprintf(&b, "- %s: %s (confidence %.2f, weight %.2f)\n",
			vote.Reviewer, verdict, vote.Confidence, vote.Weight)
	}
	if len(dissent) > 0 {
		b.WriteString("\nDissent:\n")
		for _, d := range dissent {
			fmt.Fprintf(&b, "- %s rejected with confidence %.2f\n", d.Reviewer, d.Confidence)
		}
	}
	if leadVote != nil {
		verdict := "rejected"
		if leadVote.Approved {
			verdict = "approved"
		}
		fmt.Fprintf(&b, "\nLead reviewer %s %s with confidence %.2f\n",
			leadVote.Reviewer, verdict, leadVote.Confidence)
	}

	return debate.Decision{
		Approved:          approved,
		Consensus:         debate.SimpleConsensus(votes),
		WeightedConsensus: debate.WeightedConsensus(votes),
		Votes:             votes,
		Reasoning:         b.String(),
		Dissent:           dissent,
	}
}

// RunDebateWithTemplate applies a debate template for exactly one debate
// and restores the previous configuration afterwards, even on error.
func (s *CouncilService) RunDebateWithTemplate(ctx context.Context, t *task.Task, tpl *template.Template) (*debate.Record, error) {
	if tpl == nil {
		return nil, fmt.Errorf("%w: nil template", domain.ErrValidation)
	}
	restore := s.overrideConfig(tpl)
	defer restore()

	return s.RunDebate(ctx, t)
}

type chatReply struct {
	text string
	err  error
}

// fanOut invokes every team member concurrently, bounded by maxParallel,
// and returns one settled reply per reviewer in team order.
func (s *CouncilService) fanOut(ctx context.Context, team []reviewer.Reviewer, messages func(reviewer.Reviewer) []reviewer.Message) []chatReply {
	sem := semaphore.NewWeighted(s.maxParallel)
	replies := make([]chatReply, len(team))

	var wg sync.WaitGroup
	for i, r := range team {
		wg.Add(1)
		go func(i int, r reviewer.Reviewer) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				replies[i] = chatReply{err: err}
				return
			}
			defer sem.Release(1)

			text, err := r.Chat(ctx, messages(r))
			replies[i] = chatReply{text: text, err: err}
		}(i, r)
	}
	wg.Wait()

	return replies
}

func teamNames(team []reviewer.Reviewer) []string {
	names := make([]string, len(team))
	for i, r := range team {
		names[i] = r.Name()
	}
	return names
}
