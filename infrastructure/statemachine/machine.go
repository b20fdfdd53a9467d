// Package statemachine provides the statekit integration for the
// Orchestrator's phase machine (spec §4.3).
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/fieldteam/orchestrator/domain/ledger"
	"github.com/fieldteam/orchestrator/domain/policy"
	"github.com/fieldteam/orchestrator/domain/session"
)

// Context carries session state through the phase machine.
type Context struct {
	Session     *session.State
	Budget      *policy.Budget
	Ledger      *ledger.Ledger
	Transitions *policy.PhaseTransitions
}

// NewContext creates a new machine context.
func NewContext(sess *session.State, budget *policy.Budget, ledg *ledger.Ledger) *Context {
	return &Context{
		Session:     sess,
		Budget:      budget,
		Ledger:      ledg,
		Transitions: policy.DefaultTransitions(),
	}
}

// Phase IDs as StateID type for statekit.
const (
	phaseAwaitingTask  statekit.StateID = statekit.StateID(session.PhaseAwaitingTask)
	phasePlanning      statekit.StateID = statekit.StateID(session.PhasePlanning)
	phaseExecuting     statekit.StateID = statekit.StateID(session.PhaseExecuting)
	phaseReplanning    statekit.StateID = statekit.StateID(session.PhaseReplanning)
	phaseAwaitingHuman statekit.StateID = statekit.StateID(session.PhaseAwaitingHuman)
	phaseFinalizing    statekit.StateID = statekit.StateID(session.PhaseFinalizing)
	phaseDone          statekit.StateID = statekit.StateID(session.PhaseDone)
	phaseFailed        statekit.StateID = statekit.StateID(session.PhaseFailed)
)

// NewOrchestratorMachine creates the canonical Orchestrator phase chart
// (spec §4.3): AwaitingTask → Planning → Executing, with Replanning and
// AwaitingHuman looping back into Executing/Planning, and Finalizing as the
// sole path to Done.
func NewOrchestratorMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("orchestrator").
		WithInitial(phaseAwaitingTask).
		WithContext(&Context{}).
		WithAction("logEntry", logPhaseEntry).
		WithAction("recordTransition", recordTransition).
		WithGuard("canTransition", guardCanTransition).
		WithGuard("budgetAvailable", guardBudgetAvailable).
		State(phaseAwaitingTask).
		OnEntry("logEntry").
		On("PLAN").Target(phasePlanning).Guard("canTransition").Do("recordTransition").
		On("FAIL").Target(phaseFailed).Do("recordTransition").
		Done().
		State(phasePlanning).
		OnEntry("logEntry").
		On("EXECUTE").Target(phaseExecuting).Guard("canTransition").Do("recordTransition").
		On("FINALIZE").Target(phaseFinalizing).Guard("canTransition").Do("recordTransition").
		On("FAIL").Target(phaseFailed).Do("recordTransition").
		Done().
		State(phaseExecuting).
		OnEntry("logEntry").
		On("REPLAN").Target(phaseReplanning).Guard("canTransition").Guard("budgetAvailable").Do("recordTransition").
		On("AWAIT_HUMAN").Target(phaseAwaitingHuman).Guard("canTransition").Do("recordTransition").
		On("FINALIZE").Target(phaseFinalizing).Guard("canTransition").Do("recordTransition").
		On("FAIL").Target(phaseFailed).Do("recordTransition").
		Done().
		State(phaseReplanning).
		OnEntry("logEntry").
		On("PLAN").Target(phasePlanning).Guard("canTransition").Do("recordTransition").
		On("FINALIZE").Target(phaseFinalizing).Guard("canTransition").Do("recordTransition").
		On("FAIL").Target(phaseFailed).Do("recordTransition").
		Done().
		State(phaseAwaitingHuman).
		OnEntry("logEntry").
		On("EXECUTE").Target(phaseExecuting).Guard("canTransition").Do("recordTransition").
		On("REPLAN").Target(phaseReplanning).Guard("canTransition").Do("recordTransition").
		On("FAIL").Target(phaseFailed).Do("recordTransition").
		Done().
		State(phaseFinalizing).
		OnEntry("logEntry").
		On("DONE").Target(phaseDone).Do("recordTransition").
		On("FAIL").Target(phaseFailed).Do("recordTransition").
		Done().
		State(phaseDone).
		Final().
		OnEntry("logEntry").
		Done().
		State(phaseFailed).
		Final().
		OnEntry("logEntry").
		Done().
		Build()
}

// EventForTransition returns the event type for a phase transition, derived
// purely from the target phase — mirrors how the original single-agent
// machine named its events.
func EventForTransition(to session.Phase) statekit.EventType {
	switch to {
	case session.PhasePlanning:
		return "PLAN"
	case session.PhaseExecuting:
		return "EXECUTE"
	case session.PhaseReplanning:
		return "REPLAN"
	case session.PhaseAwaitingHuman:
		return "AWAIT_HUMAN"
	case session.PhaseFinalizing:
		return "FINALIZE"
	case session.PhaseDone:
		return "DONE"
	case session.PhaseFailed:
		return "FAIL"
	default:
		return statekit.EventType(to)
	}
}

// PhaseFromMachine converts the machine state ID to a domain Phase.
func PhaseFromMachine(stateID statekit.StateID) session.Phase {
	return session.Phase(stateID)
}
