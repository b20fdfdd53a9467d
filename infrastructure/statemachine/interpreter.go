package statemachine

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/fieldteam/orchestrator/domain/session"
)

// TransitionPayload carries additional data with a transition event.
type TransitionPayload struct {
	ToPhase session.Phase
	Reason  string
}

// Interpreter wraps the statekit interpreter with orchestrator-specific
// functionality.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates a new interpreter for the orchestrator phase machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	// Update the context reference in the machine
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start initializes the interpreter and enters the machine's initial phase
// (PhaseAwaitingTask). Unlike session.State.Start, which jumps straight to
// PhasePlanning, this only marks the session running and syncs its phase
// from the machine — the first PLAN transition is what actually advances it,
// keeping the interpreter and the session aggregate in agreement.
func (i *Interpreter) Start() {
	i.interp.Start()
	state := i.interp.State()
	i.ctx.Session.Phase = session.Phase(state.Value)
	i.ctx.Session.Status = session.StatusRunning
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current phase.
func (i *Interpreter) State() session.Phase {
	state := i.interp.State()
	return session.Phase(state.Value)
}

// Transition attempts to transition to the target phase.
func (i *Interpreter) Transition(to session.Phase, reason string) error {
	// Check if transition is allowed
	if !i.CanTransition(to) {
		return fmt.Errorf("transition from %s to %s not allowed", i.ctx.Session.Phase, to)
	}

	eventType := EventForTransition(to)
	payload := TransitionPayload{
		ToPhase: to,
		Reason:  reason,
	}

	event := statekit.Event{
		Type:    eventType,
		Payload: payload,
	}

	// Send the event (doesn't return error, uses panic for invalid events)
	i.interp.Send(event)

	// Update the session's current phase
	newState := i.interp.State()
	i.ctx.Session.Phase = session.Phase(newState.Value)

	return nil
}

// CanTransition checks if a transition to the target phase is possible.
func (i *Interpreter) CanTransition(to session.Phase) bool {
	return i.ctx.Transitions.CanTransition(i.ctx.Session.Phase, to)
}

// IsTerminal returns true if the interpreter is in a terminal phase.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// Matches checks if the current phase matches the given state ID.
func (i *Interpreter) Matches(stateID string) bool {
	return i.interp.Matches(statekit.StateID(stateID))
}

// ResumeFrom restores the interpreter to a specific phase.
// This is used when resuming a paused session.
func (i *Interpreter) ResumeFrom(phase session.Phase) error {
	// Create a snapshot with the desired phase
	snapshot := statekit.Snapshot[*Context]{
		MachineID:    "orchestrator",
		CurrentState: statekit.StateID(string(phase)),
		Context:      i.ctx,
		CreatedAt:    time.Now(),
	}

	// Restore the interpreter to this phase
	if err := i.interp.Restore(snapshot); err != nil {
		return fmt.Errorf("failed to restore phase: %w", err)
	}

	// Sync session state
	i.ctx.Session.Phase = phase

	return nil
}
