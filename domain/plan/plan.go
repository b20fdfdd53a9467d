// Package plan provides the domain model for orchestrator plans: the
// ordered list of steps a team of agents executes to satisfy a task.
package plan

import (
	"encoding/json"
	"time"
)

// StepType distinguishes a normal, one-shot step from a sentinel step that
// polls a condition over an extended period.
type StepType string

const (
	// StepNormal is a step dispatched once to an agent and evaluated on the
	// next turn.
	StepNormal StepType = "normal"

	// StepSentinel is a step that repeats on a cadence until a condition is
	// satisfied or a target execution count is reached.
	StepSentinel StepType = "sentinel"
)

// ConditionType classifies how a sentinel step's condition is evaluated.
type ConditionType string

const (
	// ConditionCount is satisfied after a fixed number of successful
	// executions, regardless of their content.
	ConditionCount ConditionType = "count"

	// ConditionText is satisfied when an LLM judgment over the agent's
	// latest response decides the condition text holds.
	ConditionText ConditionType = "text"
)

// Step is a single unit of work in a plan, assigned to exactly one agent.
type Step struct {
	// Title is a short human-readable label for the step.
	Title string `json:"title"`

	// Details is the full instruction given to the assigned agent.
	Details string `json:"details"`

	// AgentName is the team member this step is dispatched to. Must match a
	// name present in the Team the plan was built against.
	AgentName string `json:"agent_name"`

	// Type distinguishes normal from sentinel steps. Defaults to
	// StepNormal when empty, for plans produced before sentinel support.
	Type StepType `json:"step_type,omitempty"`

	// Condition describes, in natural language or as an integer count
	// string, when a sentinel step is considered satisfied. Empty for
	// normal steps.
	Condition string `json:"condition,omitempty"`

	// ConditionType records how Condition should be interpreted. Derived
	// during validation if left empty: a Condition that parses as a
	// non-negative integer is ConditionCount, otherwise ConditionText.
	ConditionType ConditionType `json:"condition_type,omitempty"`

	// SleepDuration is the suggested interval between sentinel executions.
	// Zero means the scheduler's default applies.
	SleepDuration time.Duration `json:"sleep_duration,omitempty"`
}

// IsSentinel reports whether the step repeats on a cadence.
func (s Step) IsSentinel() bool {
	return s.Type == StepSentinel
}

// Plan is the ordered set of steps an Orchestrator dispatches to satisfy a
// Task. Plans are immutable once created; replanning produces a new Plan.
type Plan struct {
	// Task is the original user request this plan addresses.
	Task string `json:"task"`

	// Summary is a short natural-language description of the plan,
	// surfaced to the user before execution begins.
	Summary string `json:"plan_summary"`

	// NeedsPlan is false when the task can be answered directly without
	// dispatching to the team (e.g. a simple question).
	NeedsPlan bool `json:"needs_plan"`

	// Response is the direct answer to surface when NeedsPlan is false.
	Response string `json:"response,omitempty"`

	// Steps is the ordered list of work items. Empty when NeedsPlan is
	// false.
	Steps []Step `json:"steps,omitempty"`

	// CreatedAt records when this plan was produced, distinguishing the
	// initial plan from later replans of the same session.
	CreatedAt time.Time `json:"created_at"`

	// Revision counts replans: 0 for the initial plan, incremented once
	// per successful replan.
	Revision int `json:"revision"`
}

// NewPlan constructs a plan that requires execution.
func NewPlan(task, summary string, steps []Step) Plan {
	return Plan{
		Task:      task,
		Summary:   summary,
		NeedsPlan: true,
		Steps:     steps,
		CreatedAt: time.Now(),
	}
}

// NewDirectResponse constructs a plan that answers the task without
// dispatching to the team.
func NewDirectResponse(task, response string) Plan {
	return Plan{
		Task:      task,
		NeedsPlan: false,
		Response:  response,
		CreatedAt: time.Now(),
	}
}

// StepAt returns the step at index, or the zero Step and false if index is
// out of range.
func (p Plan) StepAt(index int) (Step, bool) {
	if index < 0 || index >= len(p.Steps) {
		return Step{}, false
	}
	return p.Steps[index], true
}

// Len returns the number of steps in the plan.
func (p Plan) Len() int {
	return len(p.Steps)
}

// Replan returns a copy of p with Revision incremented and CreatedAt reset,
// used when adopting a freshly generated plan for the same session.
func (p Plan) Replan(summary string, steps []Step) Plan {
	return Plan{
		Task:      p.Task,
		Summary:   summary,
		NeedsPlan: true,
		Steps:     steps,
		CreatedAt: time.Now(),
		Revision:  p.Revision + 1,
	}
}

// MarshalForTranscript renders the plan as the JSON shape surfaced to the
// user and recorded in the transcript.
func (p Plan) MarshalForTranscript() (json.RawMessage, error) {
	return json.Marshal(p)
}
