package plan

// Edit describes a human-in-the-loop modification to a plan awaiting
// approval, applied before the Orchestrator begins dispatching steps.
type Edit struct {
	// InsertAt inserts NewSteps before the existing step at this index. A
	// value equal to len(Steps) appends to the end.
	InsertAt int `json:"insert_at,omitempty"`

	// NewSteps are steps to insert at InsertAt. Empty when only removing
	// or replacing.
	NewSteps []Step `json:"new_steps,omitempty"`

	// RemoveIndices lists step indices (into the plan as it stood before
	// this edit) to delete. Applied before insertion.
	RemoveIndices []int `json:"remove_indices,omitempty"`

	// Summary optionally replaces the plan's summary.
	Summary string `json:"summary,omitempty"`
}

// Apply produces the edited plan, clamping InsertAt and RemoveIndices to
// valid ranges and rejecting steps whose AgentName is not in team.
func (e Edit) Apply(p Plan, team map[string]bool) (Plan, error) {
	remove := make(map[int]bool, len(e.RemoveIndices))
	for _, idx := range e.RemoveIndices {
		if idx >= 0 && idx < len(p.Steps) {
			remove[idx] = true
		}
	}

	kept := make([]Step, 0, len(p.Steps))
	for i, step := range p.Steps {
		if remove[i] {
			continue
		}
		kept = append(kept, step)
	}

	for _, step := range e.NewSteps {
		if step.AgentName != "" && team != nil && !team[step.AgentName] {
			return Plan{}, ErrUnknownAgent(step.AgentName)
		}
	}

	insertAt := e.InsertAt
	if insertAt < 0 {
		insertAt = 0
	}
	if insertAt > len(kept) {
		insertAt = len(kept)
	}

	final := make([]Step, 0, len(kept)+len(e.NewSteps))
	final = append(final, kept[:insertAt]...)
	final = append(final, e.NewSteps...)
	final = append(final, kept[insertAt:]...)

	summary := p.Summary
	if e.Summary != "" {
		summary = e.Summary
	}

	edited := p
	edited.Steps = final
	edited.Summary = summary
	return edited, nil
}
