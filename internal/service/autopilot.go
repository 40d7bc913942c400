package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/debate"
	"github.com/arbiterhq/arbiter/internal/domain/task"
	"github.com/arbiterhq/arbiter/internal/port/broadcast"
	"github.com/arbiterhq/arbiter/internal/port/executor"
	"github.com/arbiterhq/arbiter/internal/port/tasksource"
)

// AutopilotState is the lifecycle state of the polling loop.
type AutopilotState string

const (
	AutopilotStopped AutopilotState = "stopped"
	AutopilotRunning AutopilotState = "running"
	AutopilotPaused  AutopilotState = "paused"
)

// debateRunner is the slice of CouncilService the autopilot needs.
type debateRunner interface {
	RunDebate(ctx context.Context, t *task.Task) (*debate.Record, error)
}

// AutopilotHooks are optional callbacks around the poll cycle. A failing
// hook never aborts the cycle; the failure is reported as an event.
type AutopilotHooks struct {
	PreDebate    func(ctx context.Context, t *task.Task) error
	PostDebate   func(ctx context.Context, t *task.Task, rec *debate.Record) error
	PreGuidance  func(ctx context.Context, t *task.Task, rec *debate.Record) error
	PostGuidance func(ctx context.Context, t *task.Task, rec *debate.Record) error
	OnError      func(ctx context.Context, err error)
}

// AutopilotService polls a task source, routes each task through the
// council, and executes approved tasks until its approval budget runs
// out.
type AutopilotService struct {
	cfg     config.Autopilot
	council debateRunner
	source  tasksource.Source
	exec    executor.Executor
	hub     broadcast.Broadcaster
	hooks   AutopilotHooks
	log     *slog.Logger

	mu           sync.Mutex
	state        AutopilotState
	approvals    int
	lastPollAt   time.Time
	lastTask     *task.Task
	lastDecision *debate.Decision
	pauseReason  string
	stopCh       chan struct{}
	doneCh       chan struct{}

	inFlight atomic.Bool
}

// AutopilotStatus is a point-in-time snapshot of the polling loop for
// the control surface. LastTask and LastDecision are nil until the
// first debate completes.
type AutopilotStatus struct {
	State        AutopilotState
	Approvals    int
	LastPollAt   time.Time
	LastTask     *task.Task
	LastDecision *debate.Decision
	PauseReason  string
}

func NewAutopilotService(cfg config.Autopilot, council debateRunner, source tasksource.Source, exec executor.Executor, hub broadcast.Broadcaster, log *slog.Logger) *AutopilotService {
	return &AutopilotService{
		cfg:     cfg,
		council: council,
		source:  source,
		exec:    exec,
		hub:     hub,
		log:     log,
		state:   AutopilotStopped,
	}
}

// SetHooks installs the hook callbacks. Call before Start.
func (s *AutopilotService) SetHooks(h AutopilotHooks) {
	s.hooks = h
}

// State returns the current lifecycle state.
func (s *AutopilotService) State() AutopilotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a consistent snapshot of the loop state.
func (s *AutopilotService) Status() AutopilotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AutopilotStatus{
		State:        s.state,
		Approvals:    s.approvals,
		LastPollAt:   s.lastPollAt,
		LastTask:     s.lastTask,
		LastDecision: s.lastDecision,
		PauseReason:  s.pauseReason,
	}
}

// Approvals returns the auto-approval counter.
func (s *AutopilotService) Approvals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approvals
}

// ResetCounter zeroes the auto-approval counter.
func (s *AutopilotService) ResetCounter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals = 0
}

// Start begins the polling loop: one immediate poll, then one per
// interval. It fails if the autopilot is disabled, already running, or
// missing a collaborator.
func (s *AutopilotService) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("%w: autopilot is disabled", domain.ErrValidation)
	}
	if s.council == nil || s.source == nil || s.exec == nil {
		return fmt.Errorf("%w: autopilot requires a council, a task source, and an executor", domain.ErrValidation)
	}
	interval := s.cfg.PollInterval
	if interval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", domain.ErrValidation)
	}

	s.mu.Lock()
	if s.state != AutopilotStopped {
		s.mu.Unlock()
		return fmt.Errorf("%w: autopilot already started", domain.ErrConflict)
	}
	s.state = AutopilotRunning
	// The approval budget covers one start-to-stop run.
	s.approvals = 0
	s.pauseReason = ""
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	s.log.InfoContext(ctx, "autopilot started", "interval", interval)

	go func() {
		defer close(doneCh)
		s.pollSafely(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pollSafely(ctx)
			}
		}
	}()
	return nil
}

// Stop halts the loop and waits for any in-flight poll to finish.
func (s *AutopilotService) Stop() {
	s.mu.Lock()
	if s.state == AutopilotStopped {
		s.mu.Unlock()
		return
	}
	s.state = AutopilotStopped
	s.pauseReason = ""
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	s.log.Info("autopilot stopped")
}

// Pause suspends polling without tearing down the loop.
func (s *AutopilotService) Pause(ctx context.Context) {
	s.pause(ctx, "paused by operator")
}

func (s *AutopilotService) pause(ctx context.Context, reason string) {
	s.mu.Lock()
	if s.state != AutopilotRunning {
		s.mu.Unlock()
		return
	}
	s.state = AutopilotPaused
	s.pauseReason = reason
	s.mu.Unlock()

	s.hub.BroadcastEvent(ctx, broadcast.EventAutopilotPaused, nil)
	s.log.InfoContext(ctx, "autopilot paused", "reason", reason)
}

// Resume continues a paused loop.
func (s *AutopilotService) Resume(ctx context.Context) {
	s.mu.Lock()
	if s.state != AutopilotPaused {
		s.mu.Unlock()
		return
	}
	s.state = AutopilotRunning
	s.pauseReason = ""
	s.mu.Unlock()

	s.hub.BroadcastEvent(ctx, broadcast.EventAutopilotResumed, nil)
	s.log.InfoContext(ctx, "autopilot resumed")
}

// pollSafely runs one poll cycle, skipping the tick if the previous poll
// is still in flight and converting panics into error-hook calls.
func (s *AutopilotService) pollSafely(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.DebugContext(ctx, "poll skipped, previous poll in flight")
		return
	}
	defer s.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.reportError(ctx, fmt.Errorf("poll panic: %v", r))
		}
	}()

	if err := s.pollOnce(ctx); err != nil {
		s.reportError(ctx, err)
	}
}

func (s *AutopilotService) pollOnce(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	approvals := s.approvals
	if state == AutopilotRunning {
		s.lastPollAt = time.Now().UTC()
	}
	s.mu.Unlock()

	if state != AutopilotRunning {
		return nil
	}

	if s.cfg.MaxAutoApprovals > 0 && approvals >= s.cfg.MaxAutoApprovals {
		s.pause(ctx, "auto-approval capacity reached")
		s.hub.BroadcastEvent(ctx, broadcast.EventCapacityReached, map[string]any{
			"approvals": approvals,
			"max":       s.cfg.MaxAutoApprovals,
		})
		s.log.InfoContext(ctx, "autopilot capacity reached", "approvals", approvals)
		return nil
	}

	t, err := s.source.Next(ctx)
	if err != nil {
		return fmt.Errorf("next task: %w", err)
	}
	if t == nil {
		return nil
	}

	s.runHook(ctx, "preDebate", func() error {
		if s.hooks.PreDebate == nil {
			return nil
		}
		return s.hooks.PreDebate(ctx, t)
	})

	rec, err := s.council.RunDebate(ctx, t)
	if err != nil {
		return fmt.Errorf("debate for task %s: %w", t.ID, err)
	}

	s.mu.Lock()
	taskCopy := *t
	decisionCopy := rec.Decision
	s.lastTask = &taskCopy
	s.lastDecision = &decisionCopy
	s.mu.Unlock()

	s.runHook(ctx, "postDebate", func() error {
		if s.hooks.PostDebate == nil {
			return nil
		}
		return s.hooks.PostDebate(ctx, t, rec)
	})

	if reason := s.reviewReason(rec.Decision); reason != "" {
		s.hub.BroadcastEvent(ctx, broadcast.EventManualReview, map[string]any{
			"taskId":   t.ID,
			"recordId": rec.ID,
			"reason":   reason,
		})
		s.log.InfoContext(ctx, "task held for manual review", "task_id", t.ID, "reason", reason)
		return nil
	}

	s.runHook(ctx, "preGuidance", func() error {
		if s.hooks.PreGuidance == nil {
			return nil
		}
		return s.hooks.PreGuidance(ctx, t, rec)
	})

	if err := s.exec.Execute(ctx, t); err != nil {
		return fmt.Errorf("execute task %s: %w", t.ID, err)
	}

	s.runHook(ctx, "postGuidance", func() error {
		if s.hooks.PostGuidance == nil {
			return nil
		}
		return s.hooks.PostGuidance(ctx, t, rec)
	})

	s.mu.Lock()
	s.approvals++
	approvals = s.approvals
	s.mu.Unlock()

	s.hub.BroadcastEvent(ctx, broadcast.EventTaskApproved, map[string]any{
		"taskId":    t.ID,
		"recordId":  rec.ID,
		"approvals": approvals,
	})
	s.log.InfoContext(ctx, "task auto-approved", "task_id", t.ID, "approvals", approvals)
	return nil
}

// reviewReason returns the manual-review reason for a decision, or ""
// when the decision qualifies for auto-approval.
func (s *AutopilotService) reviewReason(d debate.Decision) string {
	if !d.Approved {
		return "council rejected the task"
	}

	if d.WeightedConsensus < s.cfg.AutoApproveThreshold {
		return fmt.Sprintf("consensus %.0f%% below auto-approve threshold %.0f%%",
			d.WeightedConsensus*100, s.cfg.AutoApproveThreshold*100)
	}
	if s.cfg.RequireUnanimous && d.Consensus != 1.0 {
		return "unanimity required but not reached"
	}
	if len(d.Dissent) > 0 {
		return "strong dissent present"
	}
	return ""
}

func (s *AutopilotService) runHook(ctx context.Context, name string, fn func() error) {
	if err := fn(); err != nil {
		s.hub.BroadcastEvent(ctx, broadcast.EventHookFailed, map[string]any{
			"hook":  name,
			"error": err.Error(),
		})
		s.log.WarnContext(ctx, "autopilot hook failed", "hook", name, "error", err)
	}
}

func (s *AutopilotService) reportError(ctx context.Context, err error) {
	s.hub.BroadcastEvent(ctx, broadcast.EventAutopilotError, map[string]any{"error": err.Error()})
	s.log.ErrorContext(ctx, "autopilot poll failed", "error", err)
	if s.hooks.OnError != nil {
		s.hooks.OnError(ctx, err)
	}
}
