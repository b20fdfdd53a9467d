package team

import "fmt"

// Team is the ordered, validated set of agents available to a session's
// plan. Order matters only for prompt presentation; dispatch is always by
// name.
type Team struct {
	Members []Descriptor `json:"members"`
}

// New constructs a Team, returning an error if validation fails.
func New(members []Descriptor) (Team, error) {
	t := Team{Members: members}
	if err := t.Validate(); err != nil {
		return Team{}, err
	}
	return t, nil
}

// Validate checks that every member has a name, names are unique, and
// UserProxyName is present — the Orchestrator always needs a way to ask
// the human a question.
func (t Team) Validate() error {
	seen := make(map[string]bool, len(t.Members))
	hasUserProxy := false
	for _, m := range t.Members {
		if m.Name == "" {
			return fmt.Errorf("team: member with empty name")
		}
		if seen[m.Name] {
			return fmt.Errorf("team: duplicate member name %q", m.Name)
		}
		seen[m.Name] = true
		if m.Name == UserProxyName {
			hasUserProxy = true
		}
	}
	if !hasUserProxy {
		return fmt.Errorf("team: must include a %q member", UserProxyName)
	}
	return nil
}

// Names returns the set of member names, suitable for plan validation.
func (t Team) Names() map[string]bool {
	names := make(map[string]bool, len(t.Members))
	for _, m := range t.Members {
		names[m.Name] = true
	}
	return names
}

// Has reports whether name is a team member.
func (t Team) Has(name string) bool {
	for _, m := range t.Members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Get returns the descriptor for name, if present.
func (t Team) Get(name string) (Descriptor, bool) {
	for _, m := range t.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Descriptor{}, false
}
