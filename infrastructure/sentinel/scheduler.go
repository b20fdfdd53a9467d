// Package sentinel implements the Sentinel Scheduler (spec §4.4): the
// sequential poll loop that repeatedly dispatches a sentinel plan step
// until its condition is satisfied, sleeping an interruptible, bounded
// interval between checks. The polling state itself lives in
// domain/sentinel; this package is the loop that drives it.
package sentinel

import (
	"context"
	"errors"
	"time"

	"github.com/fieldteam/orchestrator/domain/event"
	"github.com/fieldteam/orchestrator/domain/plan"
	domainsentinel "github.com/fieldteam/orchestrator/domain/sentinel"
	"github.com/fieldteam/orchestrator/infrastructure/dispatch"
	"github.com/fieldteam/orchestrator/infrastructure/llm"
	"github.com/fieldteam/orchestrator/infrastructure/logging"
)

// ErrFollowUpPending is returned by Run when a follow-up message arrives
// while a sentinel step is sleeping (spec's Open Question on follow-up
// during sentinel sleep: "surface the message as a replan trigger at next
// scheduler checkpoint"). The returned state retains every observation
// recorded so far, mirroring the cancellation contract.
var ErrFollowUpPending = errors.New("sentinel: follow-up message pending")

// FollowUpCheckFunc reports whether a follow-up message has arrived for
// sessionID out of turn, without consuming it — the Orchestrator owns
// consuming the message via session.State.TakeFollowUp once Run returns.
type FollowUpCheckFunc func(ctx context.Context, sessionID string) (string, bool)

// Scheduler runs one sentinel step at a time to completion. Sentinel steps
// in a plan are never interleaved: the Orchestrator calls Run once per
// sentinel step, in plan order, and awaits its result before advancing.
type Scheduler struct {
	protocol      llm.Protocol
	dispatcher    *dispatch.Dispatcher
	store         domainsentinel.Store
	publisher     event.Publisher
	followUpCheck FollowUpCheckFunc
}

// NewScheduler builds a Scheduler. protocol is used for text-condition
// checks; dispatcher sends the step's instruction to its agent each tick;
// store checkpoints state after every execution so a sleeping sentinel
// survives a process restart; publisher (may be nil) emits progress ticks
// to the message bus.
func NewScheduler(protocol llm.Protocol, dispatcher *dispatch.Dispatcher, store domainsentinel.Store, publisher event.Publisher) *Scheduler {
	return &Scheduler{protocol: protocol, dispatcher: dispatcher, store: store, publisher: publisher}
}

// SetFollowUpCheck installs the hook Run polls after every tick to detect a
// user message that arrived while this sentinel step was sleeping. Optional
// — a Scheduler with no hook installed never interrupts a sentinel step for
// a follow-up, which is this type's zero-value behavior.
func (s *Scheduler) SetFollowUpCheck(fn FollowUpCheckFunc) {
	s.followUpCheck = fn
}

// Run polls step until its condition is satisfied or ctx is cancelled.
// On cancellation, the returned state retains every observation recorded
// so far and the error is ctx.Err(); the caller (the Orchestrator) treats
// this as spec §7's Cancelled outcome, not an AgentFailure.
func (s *Scheduler) Run(ctx context.Context, sessionID string, stepIndex int, step plan.Step) (domainsentinel.State, error) {
	state, found, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return domainsentinel.State{}, err
	}
	if !found || state.StepIndex != stepIndex {
		state = domainsentinel.New(stepIndex, step)
	}

	for !state.Satisfied {
		if !state.Due() {
			if err := s.sleep(ctx, state.NextCheckAt); err != nil {
				s.checkpoint(context.Background(), sessionID, state)
				return state, err
			}
		}

		result, derr := s.dispatcher.Dispatch(ctx, step.AgentName, step.Details, nil)
		if derr != nil {
			if ctx.Err() != nil {
				s.checkpoint(context.Background(), sessionID, state)
				return state, ctx.Err()
			}
			state.RecordExecution(false, derr.Error())
		} else {
			s.judge(ctx, &state, step, result.Response.Text())
		}

		if err := s.store.Save(ctx, sessionID, state); err != nil {
			return state, err
		}
		s.emit(ctx, sessionID, state)

		if ctx.Err() != nil {
			return state, ctx.Err()
		}

		if !state.Satisfied && s.followUpCheck != nil {
			if _, pending := s.followUpCheck(ctx, sessionID); pending {
				return state, ErrFollowUpPending
			}
		}
	}

	_ = s.store.Delete(ctx, sessionID)
	return state, nil
}

// sleep waits until until or ctx cancellation, whichever comes first,
// giving cancellation propagation bounded by the timer's own resolution
// rather than a polled sleep (spec §5: bounded-latency cancellation).
func (s *Scheduler) sleep(ctx context.Context, until time.Time) error {
	wait := time.Until(until)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) judge(ctx context.Context, state *domainsentinel.State, step plan.Step, observation string) {
	if step.ConditionType == plan.ConditionCount {
		state.RecordExecution(true, observation)
		if !state.Satisfied {
			state.ScheduleNext(0)
		}
		return
	}

	verdict, err := s.protocol.CheckCondition(ctx, llm.ConditionRequest{
		StepDescription: step.Details,
		ConditionText:   step.Condition,
		AgentResponse:   observation,
	})
	if err != nil {
		// Per spec §4.5/§7: a protocol failure on check_condition is
		// treated as "not satisfied", never as an incorrect success.
		state.RecordTextJudgment(false, observation)
		state.ScheduleNext(0)
		return
	}
	state.RecordTextJudgment(verdict.ConditionMet, observation)
	if !state.Satisfied {
		state.ScheduleNext(verdict.SleepDuration)
	}
}

func (s *Scheduler) checkpoint(ctx context.Context, sessionID string, state domainsentinel.State) {
	if err := s.store.Save(ctx, sessionID, state); err != nil {
		logging.Error().Add(logging.ErrorField(err)).Msg("sentinel checkpoint on cancellation failed")
	}
}

func (s *Scheduler) emit(ctx context.Context, sessionID string, state domainsentinel.State) {
	if s.publisher == nil {
		return
	}
	e, err := event.NewEvent(sessionID, event.TypeSentinelTicked, event.SentinelTickedPayload{
		StepIndex:           state.StepIndex,
		ExecutionsCompleted: state.ExecutionsCompleted,
		Satisfied:           state.Satisfied,
		Observation:         state.LastObservation(),
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("failed to publish sentinel tick")
	}
}
