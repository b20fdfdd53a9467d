// Package session provides in-memory and Redis-backed implementations of
// domain/session.Store, letting an orchestration session survive a
// process restart (spec §4.3, §6.6).
package session

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainsession "github.com/fieldteam/orchestrator/domain/session"
)

// MemoryStore is an in-memory domain/session.Store, sufficient for a
// single-process deployment.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domainsession.State
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domainsession.State)}
}

// Save persists a new session.
func (m *MemoryStore) Save(ctx context.Context, s *domainsession.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

// Get retrieves a session by ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*domainsession.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *s
	return &cp, nil
}

// Update updates an existing session.
func (m *MemoryStore) Update(ctx context.Context, s *domainsession.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return errNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

// Delete removes a session by ID.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// List returns sessions matching the filter, ordered by StartTime.
func (m *MemoryStore) List(ctx context.Context, filter domainsession.ListFilter) ([]*domainsession.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*domainsession.State, 0, len(m.sessions))
	for _, s := range m.sessions {
		if matches(s, filter) {
			cp := *s
			matched = append(matched, &cp)
		}
	}
	sortByStartTime(matched)

	return paginate(matched, filter), nil
}

func sortByStartTime(list []*domainsession.State) {
	sort.Slice(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
}

// Count returns the number of sessions matching the filter.
func (m *MemoryStore) Count(ctx context.Context, filter domainsession.ListFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, s := range m.sessions {
		if matches(s, filter) {
			n++
		}
	}
	return n, nil
}

func matches(s *domainsession.State, filter domainsession.ListFilter) bool {
	if len(filter.Status) > 0 && !containsStatus(filter.Status, s.Status) {
		return false
	}
	if len(filter.Phases) > 0 && !containsPhase(filter.Phases, s.Phase) {
		return false
	}
	if !filter.FromTime.IsZero() && s.StartTime.Before(filter.FromTime) {
		return false
	}
	if !filter.ToTime.IsZero() && s.StartTime.After(filter.ToTime) {
		return false
	}
	if filter.TaskPattern != "" && !strings.Contains(s.Task, filter.TaskPattern) {
		return false
	}
	return true
}

func containsStatus(list []domainsession.Status, v domainsession.Status) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsPhase(list []domainsession.Phase, v domainsession.Phase) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func paginate(list []*domainsession.State, filter domainsession.ListFilter) []*domainsession.State {
	if filter.Offset > 0 {
		if filter.Offset >= len(list) {
			return nil
		}
		list = list[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(list) {
		list = list[:filter.Limit]
	}
	return list
}

var _ domainsession.Store = (*MemoryStore)(nil)
