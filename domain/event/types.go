package event

import (
	"encoding/json"
	"time"

	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/domain/session"
)

// Type classifies domain events carried on the Message Bus (spec §4.7).
// These correspond to domain/ledger's EntryType — the bus is the
// live/subscribable face of the facts the ledger records durably — though
// not one-for-one: session paused/resumed have no ledger entry, and an
// approval outcome is split into granted/denied here.
type Type string

// Event types for the orchestrator runtime.
const (
	// Session lifecycle events
	TypeSessionStarted   Type = "session.started"
	TypeSessionCompleted Type = "session.completed"
	TypeSessionFailed    Type = "session.failed"
	TypeSessionPaused    Type = "session.paused"
	TypeSessionResumed   Type = "session.resumed"

	// Phase machine events
	TypePhaseTransitioned Type = "phase.transitioned"

	// Plan events
	TypePlanAnnounced Type = "plan.announced"
	TypeReplanned     Type = "plan.replanned"

	// Step dispatch events
	TypeStepDispatched Type = "step.dispatched"
	TypeStepResponded  Type = "step.responded"

	// Progress ledger events
	TypeLedgerJudged Type = "ledger.judged"

	// Sentinel events
	TypeSentinelTicked Type = "sentinel.ticked"
	TypeSentinelDone   Type = "sentinel.done"

	// Approval events
	TypeApprovalRequested Type = "approval.requested"
	TypeApprovalGranted   Type = "approval.granted"
	TypeApprovalDenied    Type = "approval.denied"

	// Budget events
	TypeBudgetConsumed  Type = "budget.consumed"
	TypeBudgetExhausted Type = "budget.exhausted"

	// Human-in-the-loop events
	TypeHumanInputRequested Type = "human_input.requested"
	TypeHumanInputReceived  Type = "human_input.received"
)

// Event payload structures

// SessionStartedPayload contains data for session.started events.
type SessionStartedPayload struct {
	Task string   `json:"task"`
	Team []string `json:"team,omitempty"`
}

// SessionCompletedPayload contains data for session.completed events.
type SessionCompletedPayload struct {
	Result   json.RawMessage `json:"result,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// SessionFailedPayload contains data for session.failed events.
type SessionFailedPayload struct {
	Error    string        `json:"error"`
	Phase    session.Phase `json:"phase"`
	Duration time.Duration `json:"duration"`
}

// PhaseTransitionedPayload contains data for phase.transitioned events.
type PhaseTransitionedPayload struct {
	FromPhase session.Phase `json:"from_phase"`
	ToPhase   session.Phase `json:"to_phase"`
	Reason    string        `json:"reason"`
}

// PlanAnnouncedPayload contains data for plan.announced events.
type PlanAnnouncedPayload struct {
	Summary  string `json:"summary"`
	NumSteps int    `json:"num_steps"`
	Revision int    `json:"revision"`
}

// ReplannedPayload contains data for plan.replanned events.
type ReplannedPayload struct {
	Reason           string `json:"reason"`
	ReplanCount      int    `json:"replan_count"`
	PreviousRevision int    `json:"previous_revision"`
}

// StepDispatchedPayload contains data for step.dispatched events.
type StepDispatchedPayload struct {
	StepIndex   int           `json:"step_index"`
	AgentName   string        `json:"agent_name"`
	Instruction string        `json:"instruction"`
	StepType    plan.StepType `json:"step_type"`
}

// StepRespondedPayload contains data for step.responded events.
type StepRespondedPayload struct {
	StepIndex int           `json:"step_index"`
	AgentName string        `json:"agent_name"`
	Duration  time.Duration `json:"duration"`
	Succeeded bool          `json:"succeeded"`
	Error     string        `json:"error,omitempty"`
}

// LedgerJudgedPayload contains data for ledger.judged events.
type LedgerJudgedPayload struct {
	StepIndex             int    `json:"step_index"`
	IsCurrentStepComplete bool   `json:"is_current_step_complete"`
	NeedToReplan          bool   `json:"need_to_replan"`
	AgentName             string `json:"agent_name,omitempty"`
	ProgressSummary       string `json:"progress_summary,omitempty"`
}

// SentinelTickedPayload contains data for sentinel.ticked events.
type SentinelTickedPayload struct {
	StepIndex           int    `json:"step_index"`
	ExecutionsCompleted int    `json:"executions_completed"`
	Satisfied           bool   `json:"satisfied"`
	Observation         string `json:"observation,omitempty"`
}

// ApprovalRequestedPayload contains data for approval.requested events.
type ApprovalRequestedPayload struct {
	AgentName string          `json:"agent_name"`
	Input     json.RawMessage `json:"input,omitempty"`
	RiskLevel string          `json:"risk_level"`
}

// ApprovalResultPayload contains data for approval.granted/denied events.
type ApprovalResultPayload struct {
	AgentName string `json:"agent_name"`
	Approver  string `json:"approver"`
	Reason    string `json:"reason,omitempty"`
}

// BudgetConsumedPayload contains data for budget.consumed events.
type BudgetConsumedPayload struct {
	BudgetName string `json:"budget_name"`
	Amount     int    `json:"amount"`
	Remaining  int    `json:"remaining"`
}

// BudgetExhaustedPayload contains data for budget.exhausted events.
type BudgetExhaustedPayload struct {
	BudgetName string `json:"budget_name"`
}

// HumanInputRequestedPayload contains data for human_input.requested events.
type HumanInputRequestedPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// HumanInputReceivedPayload contains data for human_input.received events.
type HumanInputReceivedPayload struct {
	Question string `json:"question"`
	Response string `json:"response"`
}
