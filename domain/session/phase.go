// Package session provides the Orchestrator's top-level session
// aggregate: the task, team, current plan, phase, and transcript that
// together make up one orchestration run.
package session

// Phase is the Orchestrator's coarse-grained state, driven by
// infrastructure/statemachine.
type Phase string

const (
	// PhaseAwaitingTask is the initial state before a task has been
	// received.
	PhaseAwaitingTask Phase = "awaiting_task"

	// PhasePlanning is active while the Protocol Layer is producing or
	// revising a plan.
	PhasePlanning Phase = "planning"

	// PhaseExecuting is active while the current plan step is dispatched
	// to an agent and the progress ledger evaluates the result.
	PhaseExecuting Phase = "executing"

	// PhaseReplanning is active after the progress ledger (or a loop
	// guard) decides the current plan can no longer make progress.
	PhaseReplanning Phase = "replanning"

	// PhaseAwaitingHuman is active while a step or the ledger has asked
	// the user a question and is waiting on a response.
	PhaseAwaitingHuman Phase = "awaiting_human"

	// PhaseFinalizing is active while the Orchestrator synthesizes the
	// final answer from the transcript.
	PhaseFinalizing Phase = "finalizing"

	// PhaseDone is a terminal state: the task was answered.
	PhaseDone Phase = "done"

	// PhaseFailed is a terminal state: the task could not be completed
	// (budget exhaustion, unrecoverable protocol failure).
	PhaseFailed Phase = "failed"
)

// AllPhases returns every defined phase, in the order a well-behaved
// session progresses through them.
func AllPhases() []Phase {
	return []Phase{
		PhaseAwaitingTask,
		PhasePlanning,
		PhaseExecuting,
		PhaseReplanning,
		PhaseAwaitingHuman,
		PhaseFinalizing,
		PhaseDone,
		PhaseFailed,
	}
}

// TerminalPhases returns the phases a session does not leave once entered.
func TerminalPhases() []Phase {
	return []Phase{PhaseDone, PhaseFailed}
}

// IsTerminal reports whether the phase is terminal.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// IsValid reports whether p is one of the defined phases.
func (p Phase) IsValid() bool {
	for _, known := range AllPhases() {
		if p == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	return string(p)
}
