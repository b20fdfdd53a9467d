package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAgentName is returned when a progress ledger response's
	// instruction_or_question names no agent.
	ErrMissingAgentName = errors.New("ledger: instruction_or_question.agent_name is required")

	// ErrMissingInstruction is returned when a progress ledger response
	// carries no instruction or question.
	ErrMissingInstruction = errors.New("ledger: instruction_or_question.answer is required")
)

// ErrUnknownAgent identifies an agent name the ledger named that is not a
// member of the session's team.
type ErrUnknownAgent struct {
	AgentName string
}

func (e ErrUnknownAgent) Error() string {
	return fmt.Sprintf("ledger: unknown instruction_or_question.agent_name %q", e.AgentName)
}

// ErrUnknownAgentName constructs the typed error for an unrecognized
// instruction_or_question.agent_name.
func ErrUnknownAgentName(agentName string) error {
	return ErrUnknownAgent{AgentName: agentName}
}
