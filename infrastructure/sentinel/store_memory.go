package sentinel

import (
	"context"
	"sync"

	domainsentinel "github.com/fieldteam/orchestrator/domain/sentinel"
)

// MemoryStore is an in-memory domain/sentinel.Store, sufficient for a
// single-process deployment where a sentinel step's sleep never needs to
// survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	state map[string]domainsentinel.State
}

// NewMemoryStore creates an empty in-memory sentinel store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: make(map[string]domainsentinel.State)}
}

// Save persists sentinel state for a session.
func (m *MemoryStore) Save(ctx context.Context, sessionID string, s domainsentinel.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[sessionID] = s
	return nil
}

// Get retrieves sentinel state for a session.
func (m *MemoryStore) Get(ctx context.Context, sessionID string) (domainsentinel.State, bool, error) {
	if err := ctx.Err(); err != nil {
		return domainsentinel.State{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.state[sessionID]
	return s, ok, nil
}

// Delete removes sentinel state for a session.
func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, sessionID)
	return nil
}

var _ domainsentinel.Store = (*MemoryStore)(nil)
