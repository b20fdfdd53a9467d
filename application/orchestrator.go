// Package application wires every domain and infrastructure component into
// the running Orchestrator (spec §4.3): the phase-machine driver that
// plans, dispatches, judges, replans, asks the human, and finalizes a
// single session's task to completion.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldteam/orchestrator/domain/event"
	"github.com/fieldteam/orchestrator/domain/ledger"
	"github.com/fieldteam/orchestrator/domain/memory"
	"github.com/fieldteam/orchestrator/domain/message"
	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/domain/policy"
	"github.com/fieldteam/orchestrator/domain/session"
	"github.com/fieldteam/orchestrator/domain/team"
	domaintelemetry "github.com/fieldteam/orchestrator/domain/telemetry"
	"github.com/fieldteam/orchestrator/infrastructure/dispatch"
	"github.com/fieldteam/orchestrator/infrastructure/llm"
	"github.com/fieldteam/orchestrator/infrastructure/logging"
	"github.com/fieldteam/orchestrator/infrastructure/sentinel"
	"github.com/fieldteam/orchestrator/infrastructure/statemachine"
	"github.com/fieldteam/orchestrator/infrastructure/telemetry"
)

// reuseConfidenceThreshold is the minimum memory-provider score at which
// retrieve_relevant_plans="reuse" adopts a suggested plan outright,
// skipping the planning LLM call entirely.
const reuseConfidenceThreshold = 0.75

// sessionStore is the subset of domain/session.Store the Orchestrator
// needs to checkpoint a session after every phase transition. Declared
// locally so Orchestrator depends on the narrow capability it actually
// uses, not the full repository interface (List/Count are a query-layer
// concern, not the driver's).
type sessionStore interface {
	Update(ctx context.Context, s *session.State) error
}

// loopGuardThreshold is how many consecutive identical dispatches trigger
// a replan, independent of the progress ledger's own need_to_replan judgment.
const loopGuardThreshold = 3

// Orchestrator drives one session's phase machine from AwaitingTask to a
// terminal phase, coordinating the Protocol Layer, the team dispatcher,
// the sentinel scheduler, the audit ledger, and the message bus.
type Orchestrator struct {
	session *session.State
	team    team.Team

	interp *statemachine.Interpreter
	budget *policy.Budget
	ledger *ledger.Ledger

	protocol   llm.Protocol
	dispatcher *dispatch.Dispatcher
	sentinel   *sentinel.Scheduler
	publisher  event.Publisher

	approver       policy.Approver
	approvalPolicy policy.ApprovalPolicy
	store          sessionStore

	tracer  domaintelemetry.Tracer
	metrics *telemetry.OrchestratorMetrics

	maxSteps             int
	maxStallsBeforeReplan int

	cooperativePlanning   bool
	autonomousExecution   bool
	allowFollowUpInput    bool
	allowedWebsites       []string
	memoryProvider        memory.Provider
	memoryControllerKey   string
	retrieveRelevantPlans string

	// replanJustAdopted resolves the gap between spec.md's prose, which
	// describes Replanning moving straight to Executing, and the phase
	// chart actually built (Replanning → Planning is the tested edge; see
	// infrastructure/statemachine/machine.go). handleReplanning adopts the
	// new plan and transitions to Planning with this flag set; Planning's
	// handler sees it, skips calling Protocol.Plan a second time, and
	// advances straight to Executing — preserving the spec's effective
	// behavior on the machine's real transition table.
	replanJustAdopted bool
}

// Config carries every dependency Orchestrator needs, typically built by
// infrastructure/config.Builder plus the runtime pieces it cannot itself
// construct (the protocol's Team-bound dispatcher, the publisher, the
// approver).
type Config struct {
	Session    *session.State
	Team       team.Team
	Budget     *policy.Budget
	Protocol   llm.Protocol
	Dispatcher *dispatch.Dispatcher
	Sentinel   *sentinel.Scheduler
	Publisher  event.Publisher
	Approver   policy.Approver
	Approval   policy.ApprovalPolicy

	// Store checkpoints the session after every phase transition when
	// set, letting a restarted process resume mid-session. Optional —
	// a nil Store runs the session purely in memory.
	Store sessionStore

	// Tracer and Metrics instrument step dispatch, replans, stalls, and
	// sentinel ticks. Both are optional — nil falls back to a no-op
	// tracer and a meter bundle wired to telemetry.NewNoopMeter(), so
	// Orchestrator runs unchanged with no observability backend attached.
	Tracer  domaintelemetry.Tracer
	Metrics *telemetry.OrchestratorMetrics

	Transitions *policy.PhaseTransitions
	MaxSteps    int

	// CooperativePlanning, when true and AutonomousExecution is false,
	// makes Planning pause for the user to accept or edit a proposed plan
	// before Executing begins (spec §4.3.3). AutonomousExecution set true
	// always skips this pause regardless of CooperativePlanning.
	CooperativePlanning bool
	AutonomousExecution bool

	// AllowFollowUpInput gates whether a follow-up message sent mid-sentinel
	// sleep interrupts the sentinel step at all (spec's
	// allow_follow_up_input). False leaves sentinel steps uninterruptible.
	AllowFollowUpInput bool

	// AllowedWebsites restricts web-browsing steps in generated plans
	// (spec's allowed_websites).
	AllowedWebsites []string

	// Memory, RetrieveRelevantPlans ("off"|"reuse"|"hint"), and
	// MemoryControllerKey configure the optional memory provider (spec
	// §6.4, §4.3's retrieve_relevant_plans/memory_controller_key). A nil
	// Memory or "off" RetrieveRelevantPlans disables memory consultation
	// entirely.
	Memory                memory.Provider
	RetrieveRelevantPlans string
	MemoryControllerKey   string
}

// New builds an Orchestrator ready to Run a fresh or resumed session.
func New(cfg Config) *Orchestrator {
	transitions := cfg.Transitions
	if transitions == nil {
		transitions = policy.DefaultTransitions()
	}

	approver := cfg.Approver
	if approver == nil {
		approver = policy.NewAutoApprover("system")
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 100
	}

	maxStalls := cfg.Budget.StepAttemptsRemaining()
	if maxStalls <= 0 {
		maxStalls = loopGuardThreshold
	}

	ledg := ledger.New(cfg.Session.ID)

	machine, err := statemachine.NewOrchestratorMachine()
	if err != nil {
		// The machine chart is a compile-time constant; a build failure
		// here means a programming error, not a runtime condition a
		// caller can recover from.
		panic(fmt.Sprintf("application: build orchestrator machine: %v", err))
	}
	machineCtx := statemachine.NewContext(cfg.Session, cfg.Budget, ledg)
	machineCtx.Transitions = transitions
	interp := statemachine.NewInterpreter(machine, machineCtx)

	if cfg.Sentinel != nil && cfg.AllowFollowUpInput {
		session := cfg.Session
		cfg.Sentinel.SetFollowUpCheck(func(_ context.Context, _ string) (string, bool) {
			return session.FollowUp()
		})
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewOrchestratorMetrics(telemetry.NewNoopMeter())
	}

	return &Orchestrator{
		session:               cfg.Session,
		team:                  cfg.Team,
		interp:                interp,
		budget:                cfg.Budget,
		ledger:                ledg,
		protocol:              cfg.Protocol,
		dispatcher:            cfg.Dispatcher,
		sentinel:              cfg.Sentinel,
		publisher:             cfg.Publisher,
		approver:              approver,
		approvalPolicy:        cfg.Approval,
		store:                 cfg.Store,
		tracer:                tracer,
		metrics:               metrics,
		maxSteps:              maxSteps,
		maxStallsBeforeReplan: maxStalls,
		cooperativePlanning:   cfg.CooperativePlanning,
		autonomousExecution:   cfg.AutonomousExecution,
		allowFollowUpInput:    cfg.AllowFollowUpInput,
		allowedWebsites:       cfg.AllowedWebsites,
		memoryProvider:        cfg.Memory,
		memoryControllerKey:   cfg.MemoryControllerKey,
		retrieveRelevantPlans: cfg.RetrieveRelevantPlans,
	}
}

// Ledger exposes the session's audit ledger for callers that surface it
// (e.g. the CLI's transcript view).
func (o *Orchestrator) Ledger() *ledger.Ledger {
	return o.ledger
}

// Run drives the phase machine to completion, returning the final answer
// text on success. A cancelled context returns its error directly without
// marking the session Failed — cancellation is an external event, not an
// orchestration failure, and a resumed Run can pick the session back up.
func (o *Orchestrator) Run(ctx context.Context) (string, error) {
	o.interp.Start()
	o.ledger.RecordSessionStarted(o.session.Task)
	o.publish(ctx, event.TypeSessionStarted, event.SessionStartedPayload{
		Task: o.session.Task,
		Team: teamMemberNames(o.team),
	})

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		var err error
		switch o.interp.State() {
		case session.PhaseAwaitingTask:
			err = o.handleAwaitingTask(ctx)
		case session.PhasePlanning:
			err = o.handlePlanning(ctx)
		case session.PhaseExecuting:
			err = o.handleExecuting(ctx)
		case session.PhaseReplanning:
			err = o.handleReplanning(ctx)
		case session.PhaseAwaitingHuman:
			err = o.handleAwaitingHuman(ctx)
		case session.PhaseFinalizing:
			err = o.handleFinalizing(ctx)
		case session.PhaseDone:
			return o.session.Plan.Response, nil
		case session.PhaseFailed:
			return "", errors.New(o.session.Error)
		default:
			return "", fmt.Errorf("application: unknown phase %q", o.interp.State())
		}

		if err != nil {
			if isCancellation(err) {
				return "", err
			}
			if failErr := o.fail(ctx, err.Error()); failErr != nil {
				return "", failErr
			}
		}
	}
}

func (o *Orchestrator) handleAwaitingTask(ctx context.Context) error {
	return o.transition(ctx, session.PhasePlanning, "task received")
}

func (o *Orchestrator) handlePlanning(ctx context.Context) error {
	if o.replanJustAdopted {
		o.replanJustAdopted = false
		return o.transition(ctx, session.PhaseExecuting, "replanned")
	}

	hints, reused := o.consultMemory(ctx)
	if reused != nil {
		return o.finishPlanning(ctx, *reused)
	}

	p, err := o.protocol.Plan(ctx, llm.PlanRequest{
		Task:            o.session.Task,
		Team:            o.team,
		PriorMessages:   o.session.Transcript,
		SentinelEnabled: o.sentinel != nil,
		Hints:           hints,
		AllowedWebsites: o.allowedWebsites,
	})
	if err != nil {
		if isCancellation(err) {
			return err
		}
		return fmt.Errorf("plan: %w", err)
	}

	if o.memoryProvider != nil {
		if rerr := o.memoryProvider.RecordPlan(ctx, o.memoryControllerKey, o.session.Task, p); rerr != nil {
			logging.Warn().Add(logging.ErrorField(rerr)).Msg("memory provider failed to record plan")
		}
	}

	return o.finishPlanning(ctx, p)
}

// consultMemory implements spec's retrieve_relevant_plans branching. When
// mode is "off" or no provider is configured, it returns (nil, nil) and
// Planning proceeds as if memory didn't exist. In "reuse" mode, a
// suggestion scoring at or above reuseConfidenceThreshold is adopted
// directly, skipping the planning LLM call; per the Open Question decision
// on multiple reuse candidates, lower-confidence candidates (and every
// candidate in "hint" mode, and reuse's own below-threshold top candidate)
// are instead surfaced to the planning call as hints.
func (o *Orchestrator) consultMemory(ctx context.Context) (hints []string, reused *plan.Plan) {
	if o.memoryProvider == nil || o.retrieveRelevantPlans == "" || o.retrieveRelevantPlans == memory.Off {
		return nil, nil
	}

	suggestions, err := o.memoryProvider.SuggestPlans(ctx, o.memoryControllerKey, o.session.Task)
	if err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("memory provider suggest_plans failed")
		return nil, nil
	}
	if len(suggestions) == 0 {
		return nil, nil
	}

	if o.retrieveRelevantPlans == memory.Reuse && suggestions[0].Score >= reuseConfidenceThreshold {
		best := suggestions[0].Plan
		return nil, &best
	}

	hints = make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		hints = append(hints, fmt.Sprintf("%s (score %.2f)", s.Plan.Summary, s.Score))
	}
	return hints, nil
}

// finishPlanning adopts p, announces it, and either goes straight to
// Finalizing (a direct response needing no steps) or, for a cooperative
// non-autonomous session, pauses for the user to accept or edit the plan
// before moving to Executing.
func (o *Orchestrator) finishPlanning(ctx context.Context, p plan.Plan) error {
	o.session.AdoptPlan(p)
	o.ledger.RecordPlanAnnounced(session.PhasePlanning, p.Summary, p.Len(), p.Revision)
	o.publish(ctx, event.TypePlanAnnounced, event.PlanAnnouncedPayload{
		Summary: p.Summary, NumSteps: p.Len(), Revision: p.Revision,
	})

	if !p.NeedsPlan || p.Len() == 0 {
		return o.transition(ctx, session.PhaseFinalizing, "task answered directly")
	}

	if o.cooperativePlanning && !o.autonomousExecution {
		edited, err := o.reviewPlanWithUser(ctx, p)
		if err != nil {
			if isCancellation(err) {
				return err
			}
			logging.Warn().Add(logging.ErrorField(err)).Msg("plan review dispatch failed, proceeding with the plan as proposed")
		} else {
			o.session.AdoptPlan(edited)
		}
	}

	return o.transition(ctx, session.PhaseExecuting, "plan adopted")
}

// reviewPlanWithUser implements spec §4.3.3's cooperative-planning pause:
// it dispatches the proposed plan to the human for review and, if the
// reply parses as a plan.Edit, applies it before execution begins. A reply
// that doesn't parse as an Edit (e.g. "looks good") is treated as
// acceptance of the plan as proposed.
func (o *Orchestrator) reviewPlanWithUser(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	result, err := o.dispatcher.Dispatch(ctx, team.UserProxyName, formatPlanForReview(p), o.session.Transcript)
	if err != nil {
		return p, err
	}

	answer := result.Response.Text()
	o.session.AppendMessage(message.NewText(message.KindUserText, "user", answer))

	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return p, nil
	}

	var edit plan.Edit
	if jerr := json.Unmarshal([]byte(llm.ExtractJSON(answer)), &edit); jerr != nil {
		return p, nil
	}
	return edit.Apply(p, teamAgentSet(o.team))
}

func formatPlanForReview(p plan.Plan) string {
	var sb strings.Builder
	sb.WriteString("Proposed plan: ")
	sb.WriteString(p.Summary)
	sb.WriteString("\n\n")
	for i, step := range p.Steps {
		fmt.Fprintf(&sb, "%d. [%s] %s — %s\n", i, step.AgentName, step.Title, step.Details)
	}
	sb.WriteString("\nReply \"accept\" to proceed as-is, or reply with a JSON object ")
	sb.WriteString("(insert_at, new_steps, remove_indices, summary) describing edits to make before execution begins.")
	return sb.String()
}

func teamAgentSet(t team.Team) map[string]bool {
	set := make(map[string]bool, len(t.Members))
	for _, m := range t.Members {
		set[m.Name] = true
	}
	return set
}

func (o *Orchestrator) handleExecuting(ctx context.Context) error {
	if o.session.StepIndex >= o.maxSteps {
		return fmt.Errorf("max steps (%d) exceeded", o.maxSteps)
	}

	step, ok := o.session.Plan.StepAt(o.session.StepIndex)
	if !ok {
		return o.transition(ctx, session.PhaseFinalizing, "all plan steps complete")
	}

	if step.IsSentinel() {
		return o.runSentinelStep(ctx, step)
	}
	return o.runNormalStep(ctx, step)
}

func (o *Orchestrator) runSentinelStep(ctx context.Context, step plan.Step) error {
	ctx, span := o.tracer.StartSpan(ctx, "orchestrator.sentinel_step",
		domaintelemetry.WithAttributes(domaintelemetry.Int("step_index", o.session.StepIndex)))
	defer span.End()

	state, err := o.sentinel.Run(ctx, o.session.ID, o.session.StepIndex, step)
	if err != nil {
		if errors.Is(err, sentinel.ErrFollowUpPending) {
			span.SetAttributes(domaintelemetry.Bool("follow_up_pending", true))
			followUp, ok := o.session.TakeFollowUp()
			if !ok {
				// Race between the check and the Orchestrator consuming it;
				// nothing to replan on, fall through as if satisfied so the
				// plan step is re-entered on the next Run loop iteration.
				return nil
			}
			o.session.AppendMessage(message.NewText(message.KindUserText, "user", followUp))
			return o.triggerReplan(ctx, fmt.Sprintf("user sent a follow-up message during sentinel step %d: %s", o.session.StepIndex, followUp))
		}
		span.RecordError(err)
		span.SetStatus(domaintelemetry.StatusCodeError, err.Error())
		return err
	}
	o.ledger.RecordSentinelTick(session.PhaseExecuting, o.session.StepIndex, state.ExecutionsCompleted, state.Satisfied, state.LastObservation())
	o.metrics.RecordSentinelTick(ctx, state.Satisfied)
	span.SetAttributes(domaintelemetry.Bool("satisfied", state.Satisfied))
	o.session.AdvanceStep()
	return nil
}

func (o *Orchestrator) runNormalStep(ctx context.Context, step plan.Step) error {
	if descr, ok := o.team.Get(step.AgentName); ok && o.approvalPolicy.RequiresApprovalForStep(step.AgentName, descr.RequiresApproval) {
		approved, err := o.requestApproval(ctx, step)
		if err != nil {
			return err
		}
		if !approved {
			return o.triggerReplan(ctx, fmt.Sprintf("approval denied for %s", step.AgentName))
		}
	}

	instruction := dispatch.FormatInstruction(o.session.StepIndex, step, step.Details)
	repeatCount := o.session.RecordDispatch(step.AgentName, instruction)
	o.ledger.RecordStepDispatched(session.PhaseExecuting, o.session.StepIndex, step.AgentName, instruction, step.Type)
	o.publish(ctx, event.TypeStepDispatched, event.StepDispatchedPayload{
		StepIndex: o.session.StepIndex, AgentName: step.AgentName, Instruction: instruction, StepType: step.Type,
	})

	ctx, span := o.tracer.StartSpan(ctx, "orchestrator.step",
		domaintelemetry.WithAttributes(
			domaintelemetry.Int("step_index", o.session.StepIndex),
			domaintelemetry.String("agent", step.AgentName),
		),
		domaintelemetry.WithSpanKind(domaintelemetry.SpanKindClient),
	)
	defer span.End()

	start := time.Now()
	result, derr := o.dispatcher.Dispatch(ctx, step.AgentName, instruction, o.session.Transcript)
	duration := time.Since(start)

	if derr != nil {
		if isCancellation(derr) {
			return derr
		}
		o.ledger.RecordStepResponse(session.PhaseExecuting, o.session.StepIndex, step.AgentName, duration, false, derr.Error())
		o.publish(ctx, event.TypeStepResponded, event.StepRespondedPayload{
			StepIndex: o.session.StepIndex, AgentName: step.AgentName, Duration: duration, Succeeded: false, Error: derr.Error(),
		})
		o.metrics.RecordStep(ctx, step.AgentName, false, duration)
		span.RecordError(derr)
		span.SetStatus(domaintelemetry.StatusCodeError, derr.Error())
		o.session.RecordAttempt()
		if o.session.StepAttempts >= o.maxStallsBeforeReplan {
			o.metrics.RecordStall(ctx, o.session.StepIndex)
			return o.triggerReplan(ctx, fmt.Sprintf("agent %s failed repeatedly: %v", step.AgentName, derr))
		}
		return nil
	}

	o.session.AppendMessage(result.Response)
	o.ledger.RecordStepResponse(session.PhaseExecuting, o.session.StepIndex, step.AgentName, duration, true, "")
	o.publish(ctx, event.TypeStepResponded, event.StepRespondedPayload{
		StepIndex: o.session.StepIndex, AgentName: step.AgentName, Duration: duration, Succeeded: true,
	})
	o.metrics.RecordStep(ctx, step.AgentName, true, duration)
	span.SetStatus(domaintelemetry.StatusCodeOK, "")

	pl, perr := o.protocol.Ledger(ctx, llm.LedgerRequest{
		Task: o.session.Task, Plan: *o.session.Plan, StepIndex: o.session.StepIndex,
		Team: o.team, Transcript: o.session.Transcript,
	})
	if perr != nil {
		if isCancellation(perr) {
			return perr
		}
		return o.triggerReplan(ctx, fmt.Sprintf("progress ledger call failed: %v", perr))
	}
	o.ledger.RecordLedgerJudgment(session.PhaseExecuting, o.session.StepIndex, pl)
	o.publish(ctx, event.TypeLedgerJudged, event.LedgerJudgedPayload{
		StepIndex: o.session.StepIndex, IsCurrentStepComplete: pl.IsCurrentStepComplete.Answer,
		NeedToReplan: pl.NeedToReplan.Answer, AgentName: pl.InstructionOrQuestion.AgentName,
		ProgressSummary: pl.ProgressSummary,
	})

	if pl.NeedToReplan.Answer || repeatCount >= loopGuardThreshold {
		return o.triggerReplan(ctx, replanReason(pl, repeatCount))
	}

	if pl.IsCurrentStepComplete.Answer {
		o.session.AdvanceStep()
		return nil
	}

	if pl.InstructionOrQuestion.AgentName == team.UserProxyName {
		question := pl.InstructionOrQuestion.Answer
		o.session.AskQuestion(question)
		o.ledger.RecordHumanInputRequest(session.PhaseExecuting, question, nil)
		o.publish(ctx, event.TypeHumanInputRequested, event.HumanInputRequestedPayload{Question: question})
		return o.transition(ctx, session.PhaseAwaitingHuman, "progress ledger asked the user a question")
	}

	o.session.RecordAttempt()
	if o.session.StepAttempts >= o.maxStallsBeforeReplan {
		o.metrics.RecordStall(ctx, o.session.StepIndex)
		return o.triggerReplan(ctx, fmt.Sprintf("step %d stalled after %d attempts", o.session.StepIndex, o.session.StepAttempts))
	}
	return nil
}

func (o *Orchestrator) requestApproval(ctx context.Context, step plan.Step) (bool, error) {
	o.ledger.RecordApprovalRequest(session.PhaseExecuting, step.AgentName, nil, policy.RiskDestructive)
	o.publish(ctx, event.TypeApprovalRequested, event.ApprovalRequestedPayload{AgentName: step.AgentName, RiskLevel: policy.RiskDestructive})

	resp, err := o.approver.Approve(ctx, policy.ApprovalRequest{
		SessionID: o.session.ID,
		AgentName: step.AgentName,
		Reason:    step.Details,
		RiskLevel: policy.RiskDestructive,
		Timestamp: time.Now(),
	})
	if err != nil {
		return false, err
	}

	o.ledger.RecordApprovalResult(session.PhaseExecuting, step.AgentName, resp.Approved, resp.Approver, resp.Reason)
	evType := event.TypeApprovalDenied
	if resp.Approved {
		evType = event.TypeApprovalGranted
	}
	o.publish(ctx, evType, event.ApprovalResultPayload{AgentName: step.AgentName, Approver: resp.Approver, Reason: resp.Reason})
	return resp.Approved, nil
}

// triggerReplan consumes the session's replan budget and, if it is still
// available, transitions to Replanning. Budget exhaustion is surfaced as
// an error so Run's caller marks the session Failed — per domain/session's
// PhaseFailed doc comment, budget exhaustion is one of the conditions a
// session cannot recover from on its own.
func (o *Orchestrator) triggerReplan(ctx context.Context, reason string) error {
	if err := o.budget.ConsumeReplan(); err != nil {
		o.ledger.RecordBudgetExhausted(o.session.Phase, policy.ReplanBudget)
		o.publish(ctx, event.TypeBudgetExhausted, event.BudgetExhaustedPayload{BudgetName: policy.ReplanBudget})
		return fmt.Errorf("replan budget exhausted: %s", reason)
	}

	remaining := o.budget.ReplansRemaining()
	o.ledger.RecordBudgetConsumed(o.session.Phase, policy.ReplanBudget, 1, remaining)
	o.publish(ctx, event.TypeBudgetConsumed, event.BudgetConsumedPayload{BudgetName: policy.ReplanBudget, Amount: 1, Remaining: remaining})

	previousRevision := 0
	if o.session.Plan != nil {
		previousRevision = o.session.Plan.Revision
	}
	o.session.RecordReplan()
	o.ledger.RecordReplan(o.session.Phase, reason, o.session.ReplanCount, previousRevision)
	o.metrics.RecordReplan(ctx, reason)
	return o.transition(ctx, session.PhaseReplanning, reason)
}

func (o *Orchestrator) handleReplanning(ctx context.Context) error {
	newPlan, err := o.protocol.Replan(ctx, llm.ReplanRequest{
		Task:            o.session.Task,
		PriorPlan:       *o.session.Plan,
		Transcript:      o.session.Transcript,
		Team:            o.team,
		SentinelEnabled: o.sentinel != nil,
		AllowedWebsites: o.allowedWebsites,
	})
	if err != nil {
		if isCancellation(err) {
			return err
		}
		return fmt.Errorf("replan: %w", err)
	}

	o.session.AdoptPlan(newPlan)
	o.ledger.RecordPlanAnnounced(session.PhaseReplanning, newPlan.Summary, newPlan.Len(), newPlan.Revision)
	o.publish(ctx, event.TypeReplanned, event.ReplannedPayload{
		Reason: "progress ledger requested a new plan", ReplanCount: o.session.ReplanCount, PreviousRevision: newPlan.Revision - 1,
	})

	o.replanJustAdopted = true
	return o.transition(ctx, session.PhasePlanning, "replan adopted")
}

func (o *Orchestrator) handleAwaitingHuman(ctx context.Context) error {
	question := ""
	if o.session.PendingQuestion != nil {
		question = *o.session.PendingQuestion
	}

	result, err := o.dispatcher.Dispatch(ctx, team.UserProxyName, question, o.session.Transcript)
	if err != nil {
		return err
	}

	answer := result.Response.Text()
	o.session.AppendMessage(message.NewText(message.KindUserText, "user", answer))
	q, _ := o.session.AnswerQuestion()
	o.ledger.RecordHumanInputResponse(session.PhaseAwaitingHuman, q, answer)
	o.publish(ctx, event.TypeHumanInputReceived, event.HumanInputReceivedPayload{Question: q, Response: answer})

	return o.transition(ctx, session.PhaseExecuting, "human answered")
}

func (o *Orchestrator) handleFinalizing(ctx context.Context) error {
	var answer string
	if o.session.Plan != nil && !o.session.Plan.NeedsPlan {
		answer = o.session.Plan.Response
	} else {
		var err error
		answer, err = o.protocol.FinalAnswer(ctx, llm.FinalAnswerRequest{
			Task: o.session.Task, Transcript: o.session.Transcript,
		})
		if err != nil {
			if isCancellation(err) {
				return err
			}
			return fmt.Errorf("final_answer: %w", err)
		}
	}

	if o.session.Plan != nil {
		o.session.Plan.Response = answer
	} else {
		direct := plan.NewDirectResponse(o.session.Task, answer)
		o.session.Plan = &direct
	}

	resultJSON, err := json.Marshal(map[string]string{"answer": answer})
	if err != nil {
		return fmt.Errorf("marshal final answer: %w", err)
	}

	o.session.Complete(resultJSON)
	o.ledger.RecordSessionCompleted(resultJSON)
	o.publish(ctx, event.TypeSessionCompleted, event.SessionCompletedPayload{
		Result: resultJSON, Duration: o.session.Duration(),
	})

	return o.transition(ctx, session.PhaseDone, "final answer produced")
}

// fail marks the session Failed and records why. It returns an error only
// when the FAIL transition itself is rejected by the phase chart, which
// should not happen from any non-terminal phase.
func (o *Orchestrator) fail(ctx context.Context, reason string) error {
	phase := o.session.Phase
	o.session.Fail(reason)
	o.ledger.RecordSessionFailed(phase, reason)
	o.publish(ctx, event.TypeSessionFailed, event.SessionFailedPayload{
		Error: reason, Phase: phase, Duration: o.session.Duration(),
	})
	return o.transition(ctx, session.PhaseFailed, reason)
}

// transition drives the phase machine and, on success, announces the
// change on the message bus — the statemachine package already records it
// in the audit ledger via its recordTransition action.
func (o *Orchestrator) transition(ctx context.Context, to session.Phase, reason string) error {
	from := o.session.Phase
	if err := o.interp.Transition(to, reason); err != nil {
		return err
	}
	o.publish(ctx, event.TypePhaseTransitioned, event.PhaseTransitionedPayload{FromPhase: from, ToPhase: to, Reason: reason})
	o.checkpoint(ctx)
	return nil
}

// checkpoint persists the session's current state so a restarted process
// can resume it mid-flight. Best-effort: a failed checkpoint is logged,
// not fatal to the running session, since the in-memory state remains
// authoritative for this process's lifetime.
func (o *Orchestrator) checkpoint(ctx context.Context) {
	if o.store == nil {
		return
	}
	if err := o.store.Update(ctx, o.session); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Add(logging.SessionID(o.session.ID)).Msg("failed to checkpoint session")
	}
}

func (o *Orchestrator) publish(ctx context.Context, t event.Type, payload any) {
	if o.publisher == nil {
		return
	}
	e, err := event.NewEvent(o.session.ID, t, payload)
	if err != nil {
		return
	}
	if err := o.publisher.Publish(ctx, e); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("failed to publish event")
	}
}

func replanReason(pl ledger.ProgressLedger, repeatCount int) string {
	if pl.NeedToReplan.Answer {
		return "progress ledger: " + pl.NeedToReplan.Reason
	}
	return fmt.Sprintf("loop guard: %d consecutive identical dispatches", repeatCount)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func teamMemberNames(t team.Team) []string {
	names := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		names = append(names, m.Name)
	}
	return names
}
