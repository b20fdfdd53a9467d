// Package team provides the domain contract for the agents an Orchestrator
// dispatches work to: a uniform streaming interface plus the static
// descriptors (name, description, approval requirement) a Plan is built
// against.
package team

import (
	"context"

	"github.com/fieldteam/orchestrator/domain/message"
)

// Event is one item an Agent emits while handling a dispatched step:
// either an incremental observation (a multimodal message appended to the
// transcript as it becomes available) or the step's terminal response.
type Event struct {
	// Message is always set.
	Message message.Message

	// Final marks the terminal event for this dispatch; once received,
	// the Agent's channel is expected to close.
	Final bool
}

// Agent is the uniform contract every team member implements — whether it
// wraps a browser controller, a code runner, a file inspector, a document
// generator, or the user proxy. Concrete agents are external collaborators;
// this package defines only the shape the Orchestrator dispatches against.
type Agent interface {
	// Name returns the agent's unique identifier within its team,
	// matching PlanStep.AgentName.
	Name() string

	// Stream dispatches a step to the agent and returns a channel of
	// events. The channel is closed when the agent finishes (after
	// emitting a Final event) or ctx is cancelled. Implementations must
	// respect ctx for cancellation of in-flight work.
	Stream(ctx context.Context, instruction string, transcript []message.Message) (<-chan Event, error)
}

// Descriptor is the static metadata about a team member, independent of
// any concrete Agent implementation — what a Plan is validated against and
// what the Protocol Layer's prompts describe to the LLM.
type Descriptor struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`
}

// UserProxyName is the reserved name for the user-facing agent that
// surfaces questions to, and receives responses from, a human.
const UserProxyName = "user_proxy"
