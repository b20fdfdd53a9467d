package sentinel

import "context"

// Store persists sentinel polling state keyed by session ID, so the
// scheduler can resume a sleeping sentinel step across a process restart.
type Store interface {
	// Save persists sentinel state for a session.
	Save(ctx context.Context, sessionID string, s State) error

	// Get retrieves sentinel state for a session.
	Get(ctx context.Context, sessionID string) (State, bool, error)

	// Delete removes sentinel state, called once the step completes.
	Delete(ctx context.Context, sessionID string) error
}
