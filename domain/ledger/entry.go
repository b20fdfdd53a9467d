// Package ledger provides two distinct models that share the spec's
// "ledger" vocabulary: an append-only audit Ledger of everything the
// Orchestrator does, and the per-turn ProgressLedger judgment the Protocol
// Layer produces to decide whether a step is complete, stuck, or needs a
// new plan.
package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/domain/session"
)

// EntryType classifies the type of audit ledger entry.
type EntryType string

const (
	EntrySessionStarted   EntryType = "session_started"
	EntrySessionCompleted EntryType = "session_completed"
	EntrySessionFailed    EntryType = "session_failed"
	EntryPhaseTransition  EntryType = "phase_transition"
	EntryPlanAnnounced    EntryType = "plan_announced"
	EntryStepDispatched   EntryType = "step_dispatched"
	EntryStepResponse     EntryType = "step_response"
	EntryLedgerJudgment   EntryType = "ledger_judgment"
	EntryReplan           EntryType = "replan"
	EntrySentinelTick     EntryType = "sentinel_tick"
	EntrySentinelDone     EntryType = "sentinel_done"
	EntryApprovalRequest  EntryType = "approval_request"
	EntryApprovalResult   EntryType = "approval_result"
	EntryHumanInputRequest  EntryType = "human_input_request"
	EntryHumanInputResponse EntryType = "human_input_response"
	EntryBudgetConsumed   EntryType = "budget_consumed"
	EntryBudgetExhausted  EntryType = "budget_exhausted"
)

// Entry represents a single record in the audit ledger.
type Entry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      EntryType       `json:"type"`
	SessionID string          `json:"session_id"`
	Phase     session.Phase   `json:"phase,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// PhaseTransitionDetails contains details for phase transition entries.
type PhaseTransitionDetails struct {
	FromPhase session.Phase `json:"from_phase"`
	ToPhase   session.Phase `json:"to_phase"`
	Reason    string        `json:"reason,omitempty"`
}

// PlanAnnouncedDetails contains details for plan announcement entries.
type PlanAnnouncedDetails struct {
	Summary  string `json:"summary"`
	NumSteps int    `json:"num_steps"`
	Revision int    `json:"revision"`
}

// StepDispatchedDetails contains details for step dispatch entries.
type StepDispatchedDetails struct {
	StepIndex   int          `json:"step_index"`
	AgentName   string       `json:"agent_name"`
	Instruction string       `json:"instruction"`
	StepType    plan.StepType `json:"step_type"`
}

// StepResponseDetails contains details for step response entries.
type StepResponseDetails struct {
	StepIndex int           `json:"step_index"`
	AgentName string        `json:"agent_name"`
	Duration  time.Duration `json:"duration"`
	Succeeded bool          `json:"succeeded"`
	Error     string        `json:"error,omitempty"`
}

// LedgerJudgmentDetails contains details for progress ledger entries.
type LedgerJudgmentDetails struct {
	StepIndex             int    `json:"step_index"`
	IsCurrentStepComplete bool   `json:"is_current_step_complete"`
	NeedToReplan          bool   `json:"need_to_replan"`
	AgentName             string `json:"agent_name,omitempty"`
	ProgressSummary       string `json:"progress_summary,omitempty"`
}

// ReplanDetails contains details for replan entries.
type ReplanDetails struct {
	Reason         string `json:"reason"`
	ReplanCount    int    `json:"replan_count"`
	PreviousRevision int  `json:"previous_revision"`
}

// SentinelTickDetails contains details for sentinel polling entries.
type SentinelTickDetails struct {
	StepIndex           int    `json:"step_index"`
	ExecutionsCompleted int    `json:"executions_completed"`
	Satisfied           bool   `json:"satisfied"`
	Observation         string `json:"observation,omitempty"`
}

// ApprovalRequestDetails contains details for approval request entries.
type ApprovalRequestDetails struct {
	AgentName string          `json:"agent_name"`
	Input     json.RawMessage `json:"input,omitempty"`
	RiskLevel string          `json:"risk_level"`
}

// ApprovalResultDetails contains details for approval result entries.
type ApprovalResultDetails struct {
	AgentName string `json:"agent_name"`
	Approved  bool   `json:"approved"`
	Approver  string `json:"approver,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// BudgetDetails contains details for budget entries.
type BudgetDetails struct {
	BudgetName string `json:"budget_name"`
	Amount     int    `json:"amount"`
	Remaining  int    `json:"remaining"`
}

// HumanInputRequestDetails contains details for human input request entries.
type HumanInputRequestDetails struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// HumanInputResponseDetails contains details for human input response entries.
type HumanInputResponseDetails struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

// NewEntry creates a new ledger entry.
func NewEntry(entryType EntryType, sessionID string, phase session.Phase, details any) Entry {
	var detailsJSON json.RawMessage
	if details != nil {
		detailsJSON, _ = json.Marshal(details)
	}

	return Entry{
		ID:        generateEntryID(),
		Timestamp: time.Now(),
		Type:      entryType,
		SessionID: sessionID,
		Phase:     phase,
		Details:   detailsJSON,
	}
}

// generateEntryID creates a unique entry ID.
func generateEntryID() string {
	return uuid.NewString()
}

// DecodeDetails unmarshals the entry details into the given struct.
func (e Entry) DecodeDetails(v any) error {
	if e.Details == nil {
		return nil
	}
	return json.Unmarshal(e.Details, v)
}
