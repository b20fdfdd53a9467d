package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/fieldteam/orchestrator/domain/session"
)

// logPhaseEntry logs when entering a phase.
// In statekit, actions receive a pointer to the context. Since our context is *Context,
// actions receive **Context.
func logPhaseEntry(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Session == nil {
		return
	}

	c := *ctx

	// Get target phase from payload if available
	var newPhase session.Phase
	if payload, ok := event.Payload.(TransitionPayload); ok {
		newPhase = payload.ToPhase
	} else {
		// Derive from event type
		newPhase = phaseFromEventType(event.Type)
	}

	if newPhase != "" {
		c.Session.Phase = newPhase
	}
}

// recordTransition records the phase transition in the ledger.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Session == nil || (*ctx).Ledger == nil {
		return
	}

	c := *ctx
	fromPhase := c.Session.Phase

	// Get target phase and reason from payload
	var toPhase session.Phase
	var reason string
	if payload, ok := event.Payload.(TransitionPayload); ok {
		toPhase = payload.ToPhase
		reason = payload.Reason
	} else {
		// Derive from event type
		toPhase = phaseFromEventType(event.Type)
	}

	c.Ledger.RecordPhaseTransition(fromPhase, toPhase, reason)

	// Update session state
	c.Session.TransitionTo(toPhase)
}

// ActionWithReason creates a payload that includes a reason in the event.
func ActionWithReason(reason string) TransitionPayload {
	return TransitionPayload{
		Reason: reason,
	}
}
