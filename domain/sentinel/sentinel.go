// Package sentinel provides the domain model for long-running sentinel
// plan steps: state that tracks how many times a condition has been
// checked, whether it is satisfied, and when the next check is due.
package sentinel

import (
	"time"

	"github.com/fieldteam/orchestrator/domain/plan"
)

// DefaultSleepDuration is used when a sentinel step specifies none.
const DefaultSleepDuration = 5 * time.Minute

// MinSleepDuration floors the scheduler's interval regardless of what an
// LLM check_condition call suggests, preventing a busy-loop on a
// misconfigured or adversarial suggestion.
const MinSleepDuration = 10 * time.Second

// MaxSleepDuration ceilings the interval so a session checkpoint can never
// starve for longer than this even when a step requests a multi-day sleep.
const MaxSleepDuration = 24 * time.Hour

// State tracks one sentinel step's polling progress.
type State struct {
	StepIndex   int               `json:"step_index"`
	Condition   string            `json:"condition"`
	ConditionType plan.ConditionType `json:"condition_type"`

	// TargetCount is the number of successful executions required when
	// ConditionType is ConditionCount.
	TargetCount int `json:"target_count,omitempty"`

	ExecutionsCompleted int `json:"executions_completed"`

	SleepDuration time.Duration `json:"sleep_duration"`
	NextCheckAt   time.Time     `json:"next_check_at"`
	StartedAt     time.Time     `json:"started_at"`

	Satisfied bool `json:"satisfied"`

	// AccumulatedObservations is the ordered history of every observation
	// text recorded across this sentinel step's executions, oldest first
	// (spec's accumulated_observations). Never trimmed: a sentinel step is
	// expected to run a bounded number of ticks before its condition is
	// met or the session is cancelled.
	AccumulatedObservations []string `json:"accumulated_observations,omitempty"`
}

// LastObservation returns the most recent observation recorded, or "" if
// none have been recorded yet.
func (s *State) LastObservation() string {
	if len(s.AccumulatedObservations) == 0 {
		return ""
	}
	return s.AccumulatedObservations[len(s.AccumulatedObservations)-1]
}

// New creates sentinel state for the given plan step, defaulting the sleep
// interval and, for count conditions, parsing the target count.
func New(stepIndex int, step plan.Step) State {
	sleep := step.SleepDuration
	if sleep <= 0 {
		sleep = DefaultSleepDuration
	}
	s := State{
		StepIndex:     stepIndex,
		Condition:     step.Condition,
		ConditionType: step.ConditionType,
		SleepDuration: Clamp(sleep),
		StartedAt:     time.Now(),
	}
	if step.ConditionType == plan.ConditionCount {
		s.TargetCount = parseTargetCount(step.Condition)
	}
	s.NextCheckAt = s.StartedAt
	return s
}

// Clamp bounds d to [MinSleepDuration, MaxSleepDuration].
func Clamp(d time.Duration) time.Duration {
	if d < MinSleepDuration {
		return MinSleepDuration
	}
	if d > MaxSleepDuration {
		return MaxSleepDuration
	}
	return d
}

func parseTargetCount(condition string) int {
	n := 0
	for _, r := range condition {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// RecordExecution records one dispatch's outcome. Per design, only a
// successful execution counts toward the target — an AgentFailure does
// not consume a unit of progress, so a transient failure cannot silently
// satisfy a count-based sentinel.
func (s *State) RecordExecution(succeeded bool, observation string) {
	s.AccumulatedObservations = append(s.AccumulatedObservations, observation)
	if !succeeded {
		return
	}
	s.ExecutionsCompleted++
	if s.ConditionType == plan.ConditionCount && s.TargetCount > 0 && s.ExecutionsCompleted >= s.TargetCount {
		s.Satisfied = true
	}
}

// RecordTextJudgment applies the Protocol Layer's check_condition verdict
// for a text-based condition.
func (s *State) RecordTextJudgment(satisfied bool, observation string) {
	s.AccumulatedObservations = append(s.AccumulatedObservations, observation)
	s.Satisfied = satisfied
}

// ScheduleNext advances NextCheckAt by a (possibly updated) sleep
// duration, clamped to the configured bounds.
func (s *State) ScheduleNext(suggested time.Duration) {
	if suggested > 0 {
		s.SleepDuration = Clamp(suggested)
	}
	s.NextCheckAt = time.Now().Add(s.SleepDuration)
}

// Due reports whether it is time to check the condition again.
func (s *State) Due() bool {
	return !s.NextCheckAt.After(time.Now())
}
