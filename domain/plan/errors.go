package plan

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingTask is returned when a plan has no task text.
	ErrMissingTask = errors.New("plan: task is required")

	// ErrNoSteps is returned when NeedsPlan is true but Steps is empty.
	ErrNoSteps = errors.New("plan: needs_plan is true but no steps were provided")

	// ErrMissingResponse is returned when NeedsPlan is false but Response
	// is empty.
	ErrMissingResponse = errors.New("plan: needs_plan is false but response is empty")

	// ErrStepMissingTitle is returned when a step has no title.
	ErrStepMissingTitle = errors.New("plan: step title is required")

	// ErrStepMissingDetails is returned when a step has no details.
	ErrStepMissingDetails = errors.New("plan: step details are required")

	// ErrStepMissingAgent is returned when a step names no agent.
	ErrStepMissingAgent = errors.New("plan: step agent_name is required")

	// ErrSentinelMissingCondition is returned when a sentinel step has no
	// condition.
	ErrSentinelMissingCondition = errors.New("plan: sentinel step requires a condition")

	// ErrSentinelHasCondition is returned when a normal step carries a
	// condition — the planner should have used a sentinel step instead.
	ErrSentinelHasCondition = errors.New("plan: normal step must not carry a condition; use a sentinel step")
)

// ErrUnknownAgentIn identifies the agent name and step index, used when
// validation fails because a step targets an agent outside the team.
type ErrUnknownAgentIn struct {
	AgentName string
	StepIndex int
}

func (e ErrUnknownAgentIn) Error() string {
	return fmt.Sprintf("plan: step %d targets unknown agent %q", e.StepIndex, e.AgentName)
}

// ErrUnknownAgent constructs an error for an agent name absent from the
// team, independent of step position (used by Edit.Apply).
func ErrUnknownAgent(agentName string) error {
	return fmt.Errorf("plan: unknown agent %q", agentName)
}
