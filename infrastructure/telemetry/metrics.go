package telemetry

import (
	"context"
	"time"

	"github.com/fieldteam/orchestrator/domain/telemetry"
)

// OrchestratorMetrics bundles the counters and histograms
// application.Orchestrator records against, named the way the teacher
// names its own pre-built metric bundles.
type OrchestratorMetrics struct {
	StepsDispatched telemetry.Counter
	StepDuration    telemetry.Histogram
	Replans         telemetry.Counter
	Stalls          telemetry.Counter
	SentinelTicks   telemetry.Counter
}

// NewOrchestratorMetrics builds an OrchestratorMetrics bundle from meter.
func NewOrchestratorMetrics(meter telemetry.Meter) *OrchestratorMetrics {
	return &OrchestratorMetrics{
		StepsDispatched: meter.Counter("orchestrator.steps_dispatched_total",
			telemetry.WithDescription("Total number of plan steps dispatched to agents"),
			telemetry.WithUnit("{step}"),
		),
		StepDuration: meter.Histogram("orchestrator.step.duration_seconds",
			telemetry.WithDescription("Duration of a dispatched step's agent call"),
			telemetry.WithUnit("s"),
		),
		Replans: meter.Counter("orchestrator.replans_total",
			telemetry.WithDescription("Total number of replans triggered"),
			telemetry.WithUnit("{replan}"),
		),
		Stalls: meter.Counter("orchestrator.stalls_total",
			telemetry.WithDescription("Total number of stalled step attempts"),
			telemetry.WithUnit("{attempt}"),
		),
		SentinelTicks: meter.Counter("orchestrator.sentinel_ticks_total",
			telemetry.WithDescription("Total number of sentinel scheduler ticks"),
			telemetry.WithUnit("{tick}"),
		),
	}
}

// RecordStep records a completed step dispatch.
func (m *OrchestratorMetrics) RecordStep(ctx context.Context, agentName string, succeeded bool, duration time.Duration) {
	attrs := []telemetry.Attribute{
		telemetry.String("agent", agentName),
		telemetry.Bool("succeeded", succeeded),
	}
	m.StepsDispatched.Add(ctx, 1, attrs...)
	m.StepDuration.Record(ctx, duration.Seconds(), attrs...)
}

// RecordReplan records a replan with its triggering reason.
func (m *OrchestratorMetrics) RecordReplan(ctx context.Context, reason string) {
	m.Replans.Add(ctx, 1, telemetry.String("reason", reason))
}

// RecordStall records a stalled step attempt.
func (m *OrchestratorMetrics) RecordStall(ctx context.Context, stepIndex int) {
	m.Stalls.Add(ctx, 1, telemetry.Int("step_index", stepIndex))
}

// RecordSentinelTick records one sentinel scheduler poll.
func (m *OrchestratorMetrics) RecordSentinelTick(ctx context.Context, satisfied bool) {
	m.SentinelTicks.Add(ctx, 1, telemetry.Bool("satisfied", satisfied))
}
