package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
	"github.com/arbiterhq/arbiter/internal/port/broadcast"
)

const meterName = "arbiter"

// Metrics holds all Arbiter metric instruments. It implements
// broadcast.Broadcaster so it can sit next to the WebSocket hub and the
// NATS mirror in the event fan-out.
type Metrics struct {
	DebatesRun       metric.Int64Counter
	DebatesApproved  metric.Int64Counter
	ManualReviews    metric.Int64Counter
	AutoApprovals    metric.Int64Counter
	AutopilotErrors  metric.Int64Counter
	RecordsPruned    metric.Int64Counter
	DebateDuration   metric.Float64Histogram
}

var _ broadcast.Broadcaster = (*Metrics)(nil)

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DebatesRun, err = meter.Int64Counter("arbiter.debates.run",
		metric.WithDescription("Number of debates completed"))
	if err != nil {
		return nil, err
	}

	m.DebatesApproved, err = meter.Int64Counter("arbiter.debates.approved",
		metric.WithDescription("Number of debates that ended in approval"))
	if err != nil {
		return nil, err
	}

	m.ManualReviews, err = meter.Int64Counter("arbiter.autopilot.manual_reviews",
		metric.WithDescription("Number of tasks routed to manual review"))
	if err != nil {
		return nil, err
	}

	m.AutoApprovals, err = meter.Int64Counter("arbiter.autopilot.approvals",
		metric.WithDescription("Number of tasks auto-approved and executed"))
	if err != nil {
		return nil, err
	}

	m.AutopilotErrors, err = meter.Int64Counter("arbiter.autopilot.errors",
		metric.WithDescription("Number of autopilot poll failures"))
	if err != nil {
		return nil, err
	}

	m.RecordsPruned, err = meter.Int64Counter("arbiter.history.pruned",
		metric.WithDescription("Number of history records pruned"))
	if err != nil {
		return nil, err
	}

	m.DebateDuration, err = meter.Float64Histogram("arbiter.debate.duration_seconds",
		metric.WithDescription("Debate duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// BroadcastEvent maps engine events onto metric instruments.
func (m *Metrics) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	switch eventType {
	case broadcast.EventDebateCompleted:
		m.DebatesRun.Add(ctx, 1)
		if rec, ok := payload.(*debate.Record); ok {
			mode := attribute.String("consensus.mode", string(rec.ConsensusMode))
			if rec.Decision.Approved {
				m.DebatesApproved.Add(ctx, 1, metric.WithAttributes(mode))
			}
			m.DebateDuration.Record(ctx, float64(rec.DurationMS)/1000, metric.WithAttributes(mode))
		}
	case broadcast.EventManualReview:
		m.ManualReviews.Add(ctx, 1)
	case broadcast.EventTaskApproved:
		m.AutoApprovals.Add(ctx, 1)
	case broadcast.EventAutopilotError:
		m.AutopilotErrors.Add(ctx, 1)
	case broadcast.EventHistoryPruned:
		m.RecordsPruned.Add(ctx, 1)
	}
}
