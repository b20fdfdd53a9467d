package policy

import (
	"github.com/fieldteam/orchestrator/domain/session"
)

// PhaseTransitions defines allowed Orchestrator phase transitions.
//
// Thread Safety: PhaseTransitions is NOT safe for concurrent modification.
// It should be fully configured before being passed to the Orchestrator and
// treated as immutable thereafter. The read methods (CanTransition,
// AllowedTransitions) are safe for concurrent use after configuration is
// complete.
type PhaseTransitions struct {
	transitions map[session.Phase][]session.Phase
}

// TransitionRules maps phases to the phases they can transition to. This
// is the preferred way to configure phase transitions declaratively.
type TransitionRules map[session.Phase][]session.Phase

// NewPhaseTransitions creates a new empty phase transition configuration.
// Use Allow to add rules, or DefaultTransitions for the canonical
// configuration.
func NewPhaseTransitions() *PhaseTransitions {
	return &PhaseTransitions{
		transitions: make(map[session.Phase][]session.Phase),
	}
}

// NewPhaseTransitionsWith creates a phase transition configuration from a
// rules map.
func NewPhaseTransitionsWith(rules TransitionRules) *PhaseTransitions {
	t := NewPhaseTransitions()
	for from, toPhases := range rules {
		for _, to := range toPhases {
			t.Allow(from, to)
		}
	}
	return t
}

// Allow permits a transition from one phase to another.
func (t *PhaseTransitions) Allow(from, to session.Phase) *PhaseTransitions {
	t.transitions[from] = append(t.transitions[from], to)
	return t
}

// CanTransition checks if a transition is allowed.
func (t *PhaseTransitions) CanTransition(from, to session.Phase) bool {
	allowed, exists := t.transitions[from]
	if !exists {
		return false
	}
	for _, phase := range allowed {
		if phase == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns all phases reachable from the given phase.
func (t *PhaseTransitions) AllowedTransitions(from session.Phase) []session.Phase {
	return t.transitions[from]
}

// DefaultTransitions returns the canonical Orchestrator phase flow:
//
//	awaiting_task → planning → executing → finalizing → done
//	                   ↑  ↘________________↗  ↓
//	                   └──── replanning ←─────┘
//
// planning may skip straight to finalizing (a direct-response plan);
// replanning goes back to planning or on to finalizing. executing can
// also move to awaiting_human (a step or the ledger asked the user a
// question), which returns to executing or moves to replanning. Any
// non-terminal phase can move to failed.
func DefaultTransitions() *PhaseTransitions {
	return NewPhaseTransitionsWith(TransitionRules{
		session.PhaseAwaitingTask: {session.PhasePlanning, session.PhaseFailed},
		session.PhasePlanning:     {session.PhaseExecuting, session.PhaseFinalizing, session.PhaseFailed},
		session.PhaseExecuting:    {session.PhaseReplanning, session.PhaseAwaitingHuman, session.PhaseFinalizing, session.PhaseFailed},
		session.PhaseReplanning:   {session.PhasePlanning, session.PhaseFinalizing, session.PhaseFailed},
		session.PhaseAwaitingHuman: {session.PhaseExecuting, session.PhaseReplanning, session.PhaseFailed},
		session.PhaseFinalizing:   {session.PhaseDone, session.PhaseFailed},
	})
}

// Constraint is a generic policy constraint that can be evaluated.
type Constraint interface {
	// Evaluate checks if the constraint is satisfied.
	Evaluate(ctx ConstraintContext) (bool, string)
}

// ConstraintContext provides context for constraint evaluation.
type ConstraintContext struct {
	SessionID string
	Phase     session.Phase
	AgentName string
	Budget    *Budget
}
