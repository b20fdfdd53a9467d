package dispatch

import (
	"fmt"
	"sync"

	"github.com/fieldteam/orchestrator/domain/team"
)

// ErrAlreadyRegistered is returned by Register when an agent with the same
// name is already present.
var ErrAlreadyRegistered = fmt.Errorf("dispatch: agent already registered")

// Registry is an in-memory team.Registry, one per session.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]team.Agent
}

// NewRegistry creates an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]team.Agent)}
}

// Register adds agent under its Name(), failing if already registered.
func (r *Registry) Register(agent team.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := agent.Name()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.agents[name] = agent
	return nil
}

// Get retrieves an agent by name.
func (r *Registry) Get(name string) (team.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[name]
	return agent, ok
}

// List returns every registered agent, in no particular order.
func (r *Registry) List() []team.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agents := make([]team.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	return agents
}

// Names returns every registered agent's name, in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[name]
	return ok
}

// Unregister removes name, a no-op if it was not registered.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
	return nil
}

var _ team.Registry = (*Registry)(nil)
