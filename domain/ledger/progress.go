package ledger

import "strings"

// BoolJudgment is a boolean verdict paired with the LLM's stated reasoning,
// the shape the is_current_step_complete and need_to_replan fields of a
// ProgressLedger response take.
type BoolJudgment struct {
	Reason string `json:"reason"`
	Answer bool   `json:"answer"`
}

// InstructionOrQuestion names the team member the orchestrator should
// dispatch to next and the instruction (or, when AgentName is the user
// proxy, the question) to hand it. Unlike BoolJudgment it carries no
// reason — the Protocol Layer's wire format gives this field only answer
// and agent_name.
type InstructionOrQuestion struct {
	Answer    string `json:"answer"`
	AgentName string `json:"agent_name"`
}

// ProgressLedger is the Protocol Layer's per-turn structured judgment of
// how the current plan step is going. It is produced fresh on every
// executing-phase turn and never persisted beyond the audit ledger entry
// it is recorded as.
type ProgressLedger struct {
	// IsCurrentStepComplete judges whether the dispatched agent's response
	// satisfies the current plan step, advancing StepIndex when true.
	IsCurrentStepComplete BoolJudgment `json:"is_current_step_complete"`

	// NeedToReplan judges whether the current plan can no longer make
	// progress: new user instructions the plan can't address, or the
	// team stuck in a loop. True only rarely — most turns do not need a
	// new plan.
	NeedToReplan BoolJudgment `json:"need_to_replan"`

	// InstructionOrQuestion is the next concrete instruction to give the
	// named agent, or the question to ask the user when AgentName is the
	// user proxy.
	InstructionOrQuestion InstructionOrQuestion `json:"instruction_or_question"`

	// ProgressSummary is a one- or two-sentence account of where the task
	// stands, carried into the next turn's prompt as running context.
	ProgressSummary string `json:"progress_summary"`
}

// Validate checks that a ProgressLedger response names a real team member
// and carries a non-empty instruction or question. progress_summary is not
// required to be non-empty, matching the Protocol Layer's own validation.
func Validate(pl ProgressLedger, agentNames map[string]bool) error {
	if strings.TrimSpace(pl.InstructionOrQuestion.AgentName) == "" {
		return ErrMissingAgentName
	}
	if agentNames != nil && !agentNames[pl.InstructionOrQuestion.AgentName] {
		return ErrUnknownAgentName(pl.InstructionOrQuestion.AgentName)
	}
	if strings.TrimSpace(pl.InstructionOrQuestion.Answer) == "" {
		return ErrMissingInstruction
	}
	return nil
}
