package ledger

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/domain/session"
)

// Ledger provides an append-only record of everything the Orchestrator
// does for one session: plan announcements, dispatches, progress-ledger
// judgments, replans, sentinel ticks, approvals, and budget events.
type Ledger struct {
	sessionID string
	entries   []Entry
	mu        sync.RWMutex
}

// New creates a new ledger for the given session.
func New(sessionID string) *Ledger {
	return &Ledger{
		sessionID: sessionID,
		entries:   make([]Entry, 0),
	}
}

// Append adds an entry to the ledger.
func (l *Ledger) Append(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.SessionID = l.sessionID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		entry.ID = generateEntryID()
	}

	l.entries = append(l.entries, entry)
}

// Entries returns a copy of all entries.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// EntriesByType returns entries filtered by type.
func (l *Ledger) EntriesByType(entryType EntryType) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var filtered []Entry
	for _, e := range l.entries {
		if e.Type == entryType {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// LastEntry returns the most recent entry, or nil if empty.
func (l *Ledger) LastEntry() *Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return nil
	}
	entry := l.entries[len(l.entries)-1]
	return &entry
}

// Count returns the number of entries.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// SessionID returns the associated session ID.
func (l *Ledger) SessionID() string {
	return l.sessionID
}

// RecordSessionStarted records the start of a session.
func (l *Ledger) RecordSessionStarted(task string) {
	l.Append(NewEntry(EntrySessionStarted, l.sessionID, session.PhaseAwaitingTask, map[string]string{
		"task": task,
	}))
}

// RecordSessionCompleted records the successful completion of a session.
func (l *Ledger) RecordSessionCompleted(result json.RawMessage) {
	l.Append(NewEntry(EntrySessionCompleted, l.sessionID, session.PhaseDone, map[string]json.RawMessage{
		"result": result,
	}))
}

// RecordSessionFailed records the failure of a session.
func (l *Ledger) RecordSessionFailed(phase session.Phase, reason string) {
	l.Append(NewEntry(EntrySessionFailed, l.sessionID, phase, map[string]string{
		"reason": reason,
	}))
}

// RecordPhaseTransition records a phase transition.
func (l *Ledger) RecordPhaseTransition(from, to session.Phase, reason string) {
	l.Append(NewEntry(EntryPhaseTransition, l.sessionID, to, PhaseTransitionDetails{
		FromPhase: from,
		ToPhase:   to,
		Reason:    reason,
	}))
}

// RecordPlanAnnounced records a newly adopted plan.
func (l *Ledger) RecordPlanAnnounced(phase session.Phase, summary string, numSteps, revision int) {
	l.Append(NewEntry(EntryPlanAnnounced, l.sessionID, phase, PlanAnnouncedDetails{
		Summary:  summary,
		NumSteps: numSteps,
		Revision: revision,
	}))
}

// RecordStepDispatched records a step handed off to an agent.
func (l *Ledger) RecordStepDispatched(phase session.Phase, stepIndex int, agentName, instruction string, stepType plan.StepType) {
	l.Append(NewEntry(EntryStepDispatched, l.sessionID, phase, StepDispatchedDetails{
		StepIndex:   stepIndex,
		AgentName:   agentName,
		Instruction: instruction,
		StepType:    stepType,
	}))
}

// RecordStepResponse records an agent's response to a dispatched step.
func (l *Ledger) RecordStepResponse(phase session.Phase, stepIndex int, agentName string, duration time.Duration, succeeded bool, errMsg string) {
	l.Append(NewEntry(EntryStepResponse, l.sessionID, phase, StepResponseDetails{
		StepIndex: stepIndex,
		AgentName: agentName,
		Duration:  duration,
		Succeeded: succeeded,
		Error:     errMsg,
	}))
}

// RecordLedgerJudgment records a progress ledger turn's outcome.
func (l *Ledger) RecordLedgerJudgment(phase session.Phase, stepIndex int, pl ProgressLedger) {
	l.Append(NewEntry(EntryLedgerJudgment, l.sessionID, phase, LedgerJudgmentDetails{
		StepIndex:             stepIndex,
		IsCurrentStepComplete: pl.IsCurrentStepComplete.Answer,
		NeedToReplan:          pl.NeedToReplan.Answer,
		AgentName:             pl.InstructionOrQuestion.AgentName,
		ProgressSummary:       pl.ProgressSummary,
	}))
}

// RecordReplan records that the session replanned.
func (l *Ledger) RecordReplan(phase session.Phase, reason string, replanCount, previousRevision int) {
	l.Append(NewEntry(EntryReplan, l.sessionID, phase, ReplanDetails{
		Reason:           reason,
		ReplanCount:      replanCount,
		PreviousRevision: previousRevision,
	}))
}

// RecordSentinelTick records one sentinel polling cycle.
func (l *Ledger) RecordSentinelTick(phase session.Phase, stepIndex, executionsCompleted int, satisfied bool, observation string) {
	l.Append(NewEntry(EntrySentinelTick, l.sessionID, phase, SentinelTickDetails{
		StepIndex:           stepIndex,
		ExecutionsCompleted: executionsCompleted,
		Satisfied:           satisfied,
		Observation:         observation,
	}))
}

// RecordApprovalRequest records an approval request.
func (l *Ledger) RecordApprovalRequest(phase session.Phase, agentName string, input json.RawMessage, riskLevel string) {
	l.Append(NewEntry(EntryApprovalRequest, l.sessionID, phase, ApprovalRequestDetails{
		AgentName: agentName,
		Input:     input,
		RiskLevel: riskLevel,
	}))
}

// RecordApprovalResult records an approval result.
func (l *Ledger) RecordApprovalResult(phase session.Phase, agentName string, approved bool, approver, reason string) {
	l.Append(NewEntry(EntryApprovalResult, l.sessionID, phase, ApprovalResultDetails{
		AgentName: agentName,
		Approved:  approved,
		Approver:  approver,
		Reason:    reason,
	}))
}

// RecordBudgetConsumed records budget consumption.
func (l *Ledger) RecordBudgetConsumed(phase session.Phase, budgetName string, amount, remaining int) {
	l.Append(NewEntry(EntryBudgetConsumed, l.sessionID, phase, BudgetDetails{
		BudgetName: budgetName,
		Amount:     amount,
		Remaining:  remaining,
	}))
}

// RecordBudgetExhausted records budget exhaustion.
func (l *Ledger) RecordBudgetExhausted(phase session.Phase, budgetName string) {
	l.Append(NewEntry(EntryBudgetExhausted, l.sessionID, phase, BudgetDetails{
		BudgetName: budgetName,
		Remaining:  0,
	}))
}

// RecordHumanInputRequest records a request for human input.
func (l *Ledger) RecordHumanInputRequest(phase session.Phase, question string, options []string) {
	l.Append(NewEntry(EntryHumanInputRequest, l.sessionID, phase, HumanInputRequestDetails{
		Question: question,
		Options:  options,
	}))
}

// RecordHumanInputResponse records a human input response.
func (l *Ledger) RecordHumanInputResponse(phase session.Phase, question, response string) {
	l.Append(NewEntry(EntryHumanInputResponse, l.sessionID, phase, HumanInputResponseDetails{
		Question: question,
		Response: response,
	}))
}
