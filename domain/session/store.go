package session

import (
	"context"
	"time"
)

// Store defines the interface for session persistence, enabling restart
// survival: an in-memory implementation is sufficient for a single
// process, a Redis-backed one lets a session outlive a process restart
// mid-sentinel-sleep.
type Store interface {
	// Save persists a new session.
	Save(ctx context.Context, s *State) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*State, error)

	// Update updates an existing session.
	Update(ctx context.Context, s *State) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id string) error

	// List returns sessions matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*State, error)

	// Count returns the number of sessions matching the filter.
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

// ListFilter specifies criteria for listing sessions.
type ListFilter struct {
	Status      []Status
	Phases      []Phase
	FromTime    time.Time
	ToTime      time.Time
	TaskPattern string
	Limit       int
	Offset      int
}
