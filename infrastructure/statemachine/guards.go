package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/fieldteam/orchestrator/domain/session"
)

// guardCanTransition checks if the transition is valid according to policy.
// Note: In statekit, guards receive the context by value. Since our context is *Context,
// the guard receives *Context directly.
func guardCanTransition(ctx *Context, event statekit.Event) bool {
	if ctx == nil || ctx.Session == nil || ctx.Transitions == nil {
		return false
	}

	fromPhase := ctx.Session.Phase

	// Get target phase from the event payload if available
	var toPhase session.Phase
	if payload, ok := event.Payload.(TransitionPayload); ok {
		toPhase = payload.ToPhase
	} else {
		// Fall back to deriving from event type
		toPhase = phaseFromEventType(event.Type)
	}

	return ctx.Transitions.CanTransition(fromPhase, toPhase)
}

// guardBudgetAvailable checks if there is budget available.
func guardBudgetAvailable(ctx *Context, _ statekit.Event) bool {
	if ctx == nil || ctx.Budget == nil {
		return true // No budget means unlimited
	}

	return !ctx.Budget.IsExhausted()
}

// phaseFromEventType derives the target phase from an event type.
func phaseFromEventType(eventType statekit.EventType) session.Phase {
	switch eventType {
	case "PLAN":
		return session.PhasePlanning
	case "EXECUTE":
		return session.PhaseExecuting
	case "REPLAN":
		return session.PhaseReplanning
	case "AWAIT_HUMAN":
		return session.PhaseAwaitingHuman
	case "FINALIZE":
		return session.PhaseFinalizing
	case "DONE":
		return session.PhaseDone
	case "FAIL":
		return session.PhaseFailed
	default:
		return session.Phase(eventType)
	}
}
