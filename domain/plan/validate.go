package plan

import (
	"errors"
	"strconv"
	"strings"
)

// Validate checks a plan's structural invariants: exactly one of
// (NeedsPlan=false, Response) or (NeedsPlan=true, Steps) is set, every step
// carries the fields its type requires, and every step's agent is a member
// of agentNames. It mirrors the shape checks the original planner performs
// before a plan is accepted, generalized to Go's typed Step rather than raw
// JSON.
func Validate(p Plan, agentNames map[string]bool) error {
	if strings.TrimSpace(p.Task) == "" {
		return ErrMissingTask
	}

	if !p.NeedsPlan {
		if strings.TrimSpace(p.Response) == "" {
			return ErrMissingResponse
		}
		return nil
	}

	if len(p.Steps) == 0 {
		return ErrNoSteps
	}

	var errs []error
	for i, step := range p.Steps {
		if err := validateStep(step, i, agentNames); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateStep(s Step, index int, agentNames map[string]bool) error {
	if strings.TrimSpace(s.Title) == "" {
		return ErrStepMissingTitle
	}
	if strings.TrimSpace(s.Details) == "" {
		return ErrStepMissingDetails
	}
	if strings.TrimSpace(s.AgentName) == "" {
		return ErrStepMissingAgent
	}
	if agentNames != nil && !agentNames[s.AgentName] {
		return ErrUnknownAgentIn{AgentName: s.AgentName, StepIndex: index}
	}

	switch s.Type {
	case StepSentinel:
		if strings.TrimSpace(s.Condition) == "" {
			return ErrSentinelMissingCondition
		}
	case StepNormal, "":
		if s.Condition != "" {
			return ErrSentinelHasCondition
		}
	}
	return nil
}

// Normalize fills in derived fields: Type defaults to StepNormal, and a
// sentinel step's ConditionType is inferred from whether Condition parses
// as a non-negative integer (a repeat count) or not (a natural-language
// condition the Protocol Layer's check_condition call judges).
func Normalize(p Plan) Plan {
	if !p.NeedsPlan {
		return p
	}
	steps := make([]Step, len(p.Steps))
	for i, step := range p.Steps {
		if step.Type == "" {
			step.Type = StepNormal
		}
		if step.Type == StepSentinel && step.ConditionType == "" {
			if n, err := strconv.Atoi(strings.TrimSpace(step.Condition)); err == nil && n >= 0 {
				step.ConditionType = ConditionCount
			} else {
				step.ConditionType = ConditionText
			}
		}
		steps[i] = step
	}
	normalized := p
	normalized.Steps = steps
	return normalized
}
