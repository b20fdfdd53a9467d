package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldteam/orchestrator/domain/event"
	"github.com/fieldteam/orchestrator/domain/session"
)

// Replay rebuilds an orchestrator session's state from its recorded event
// history — used to recover a session after a crash and to answer
// observability queries without replaying the LLM calls that produced it.
type Replay struct {
	eventStore event.Store
}

// NewReplay creates a new replay engine.
func NewReplay(eventStore event.Store) *Replay {
	return &Replay{
		eventStore: eventStore,
	}
}

// ReconstructSession rebuilds a session's state from its event history.
func (r *Replay) ReconstructSession(ctx context.Context, sessionID string) (*session.State, error) {
	events, err := r.eventStore.LoadEvents(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	if len(events) == 0 {
		return nil, event.ErrSessionNotFound
	}

	return r.applyEvents(events)
}

// ReconstructSessionFrom rebuilds a session's state from a starting
// sequence, for incremental recovery from a checkpoint.
func (r *Replay) ReconstructSessionFrom(ctx context.Context, sessionID string, fromSeq uint64) (*session.State, error) {
	events, err := r.eventStore.LoadEventsFrom(ctx, sessionID, fromSeq)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	if len(events) == 0 {
		return nil, event.ErrSessionNotFound
	}

	return r.applyEvents(events)
}

// applyEvents applies a sequence of bus events to rebuild session state.
// It mirrors the Orchestrator's own state transitions (application/orchestrator.go)
// in reverse: given the facts the bus recorded, arrive at the same State.
func (r *Replay) applyEvents(events []event.Event) (*session.State, error) {
	if len(events) == 0 {
		return nil, event.ErrSessionNotFound
	}

	var st *session.State

	for _, e := range events {
		switch e.Type {
		case event.TypeSessionStarted:
			var payload event.SessionStartedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal session.started: %w", err)
			}
			st = session.New(e.SessionID, payload.Task, payload.Team)
			st.StartTime = e.Timestamp
			st.Start()

		case event.TypeSessionCompleted:
			if st == nil {
				continue
			}
			var payload event.SessionCompletedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal session.completed: %w", err)
			}
			st.Complete(payload.Result)
			st.EndTime = e.Timestamp

		case event.TypeSessionFailed:
			if st == nil {
				continue
			}
			var payload event.SessionFailedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal session.failed: %w", err)
			}
			st.Fail(payload.Error)
			st.EndTime = e.Timestamp

		case event.TypeSessionPaused:
			if st == nil {
				continue
			}
			st.Pause()

		case event.TypeSessionResumed:
			if st == nil {
				continue
			}
			st.Resume()

		case event.TypePhaseTransitioned:
			if st == nil {
				continue
			}
			var payload event.PhaseTransitionedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal phase.transitioned: %w", err)
			}
			st.TransitionTo(payload.ToPhase)

		case event.TypePlanAnnounced, event.TypeReplanned:
			if st == nil {
				continue
			}
			if e.Type == event.TypeReplanned {
				st.RecordReplan()
			}

		case event.TypeStepDispatched:
			if st == nil {
				continue
			}
			var payload event.StepDispatchedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal step.dispatched: %w", err)
			}
			st.RecordDispatch(payload.AgentName, payload.Instruction)

		case event.TypeLedgerJudged:
			if st == nil {
				continue
			}
			var payload event.LedgerJudgedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal ledger.judged: %w", err)
			}
			if payload.IsCurrentStepComplete {
				st.AdvanceStep()
			} else {
				st.RecordAttempt()
			}

		case event.TypeHumanInputRequested:
			if st == nil {
				continue
			}
			var payload event.HumanInputRequestedPayload
			if err := e.UnmarshalPayload(&payload); err != nil {
				return nil, fmt.Errorf("unmarshal human_input.requested: %w", err)
			}
			st.AskQuestion(payload.Question)

		case event.TypeHumanInputReceived:
			if st == nil {
				continue
			}
			st.AnswerQuestion()

		// Sentinel, approval, and budget events are audit-only; they don't
		// directly mutate session.State beyond what ledger/phase events
		// already capture.
		case event.TypeSentinelTicked, event.TypeSentinelDone,
			event.TypeApprovalRequested, event.TypeApprovalGranted, event.TypeApprovalDenied,
			event.TypeBudgetConsumed, event.TypeBudgetExhausted,
			event.TypeStepResponded:
		}
	}

	if st == nil {
		return nil, event.ErrSessionNotFound
	}

	return st, nil
}

// EventIterator allows iterating over events one at a time.
type EventIterator struct {
	events []event.Event
	index  int
}

// NewEventIterator creates an iterator over a session's events.
func (r *Replay) NewEventIterator(ctx context.Context, sessionID string) (*EventIterator, error) {
	events, err := r.eventStore.LoadEvents(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	return &EventIterator{
		events: events,
		index:  0,
	}, nil
}

// Next returns the next event, or nil if done.
func (it *EventIterator) Next() *event.Event {
	if it.index >= len(it.events) {
		return nil
	}
	e := &it.events[it.index]
	it.index++
	return e
}

// Peek returns the next event without advancing.
func (it *EventIterator) Peek() *event.Event {
	if it.index >= len(it.events) {
		return nil
	}
	return &it.events[it.index]
}

// Reset returns to the beginning.
func (it *EventIterator) Reset() {
	it.index = 0
}

// Len returns the total number of events.
func (it *EventIterator) Len() int {
	return len(it.events)
}

// Index returns the current position.
func (it *EventIterator) Index() int {
	return it.index
}

// Timeline provides a time-based view of a session's events.
type Timeline struct {
	events []event.Event
}

// NewTimeline creates a timeline from a session's events.
func (r *Replay) NewTimeline(ctx context.Context, sessionID string) (*Timeline, error) {
	events, err := r.eventStore.LoadEvents(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	return &Timeline{events: events}, nil
}

// Duration returns the total duration spanned by the timeline's events.
func (tl *Timeline) Duration() time.Duration {
	if len(tl.events) < 2 {
		return 0
	}
	first := tl.events[0].Timestamp
	last := tl.events[len(tl.events)-1].Timestamp
	return last.Sub(first)
}

// EventsInRange returns events within a time range.
func (tl *Timeline) EventsInRange(from, to time.Time) []event.Event {
	var result []event.Event
	for _, e := range tl.events {
		if (from.IsZero() || !e.Timestamp.Before(from)) &&
			(to.IsZero() || !e.Timestamp.After(to)) {
			result = append(result, e)
		}
	}
	return result
}

// EventsByType returns events of a specific type.
func (tl *Timeline) EventsByType(eventType event.Type) []event.Event {
	var result []event.Event
	for _, e := range tl.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// PhaseTransitions returns all phase transition events on the timeline.
func (tl *Timeline) PhaseTransitions() []PhaseTransition {
	var transitions []PhaseTransition
	for _, e := range tl.events {
		if e.Type == event.TypePhaseTransitioned {
			var payload event.PhaseTransitionedPayload
			if err := json.Unmarshal(e.Payload, &payload); err == nil {
				transitions = append(transitions, PhaseTransition{
					From:      payload.FromPhase,
					To:        payload.ToPhase,
					Reason:    payload.Reason,
					Timestamp: e.Timestamp,
				})
			}
		}
	}
	return transitions
}

// PhaseTransition represents a phase change.
type PhaseTransition struct {
	From      session.Phase
	To        session.Phase
	Reason    string
	Timestamp time.Time
}

// StepDispatches returns all step dispatch events with their matched
// response, joined by step index in dispatch order.
func (tl *Timeline) StepDispatches() []StepDispatch {
	dispatches := make(map[int]*StepDispatch)
	var order []int

	for _, e := range tl.events {
		switch e.Type {
		case event.TypeStepDispatched:
			var payload event.StepDispatchedPayload
			if err := json.Unmarshal(e.Payload, &payload); err == nil {
				dispatches[payload.StepIndex] = &StepDispatch{
					StepIndex:   payload.StepIndex,
					AgentName:   payload.AgentName,
					Instruction: payload.Instruction,
					StartTime:   e.Timestamp,
				}
				order = append(order, payload.StepIndex)
			}

		case event.TypeStepResponded:
			var payload event.StepRespondedPayload
			if err := json.Unmarshal(e.Payload, &payload); err == nil {
				if d, ok := dispatches[payload.StepIndex]; ok {
					d.Duration = payload.Duration
					d.Succeeded = payload.Succeeded
					d.Error = payload.Error
				}
			}
		}
	}

	result := make([]StepDispatch, 0, len(order))
	for _, idx := range order {
		result = append(result, *dispatches[idx])
	}
	return result
}

// StepDispatch represents one plan step's dispatch and its response.
type StepDispatch struct {
	StepIndex   int
	AgentName   string
	Instruction string
	StartTime   time.Time
	Duration    time.Duration
	Succeeded   bool
	Error       string
}
