package team

// Registry holds the live Agent implementations behind a Team's
// descriptors, looked up by name during dispatch. This is a repository
// interface; infrastructure/dispatch provides an in-memory implementation.
type Registry interface {
	// Register adds an agent to the registry.
	Register(agent Agent) error

	// Get retrieves an agent by name.
	Get(name string) (Agent, bool)

	// List returns all registered agents.
	List() []Agent

	// Names returns all registered agent names.
	Names() []string

	// Has reports whether an agent is registered.
	Has(name string) bool

	// Unregister removes an agent from the registry.
	Unregister(name string) error
}
