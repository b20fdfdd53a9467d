package session

import "errors"

var (
	// ErrInvalidPhase is returned when a phase value is not one of the
	// defined constants.
	ErrInvalidPhase = errors.New("session: invalid phase")

	// ErrInvalidTransition is returned when a phase transition is not
	// permitted by the state machine.
	ErrInvalidTransition = errors.New("session: invalid phase transition")

	// ErrSessionTerminated is returned when an operation is attempted on a
	// session already in a terminal phase.
	ErrSessionTerminated = errors.New("session: already terminated")

	// ErrSessionNotStarted is returned when an operation requires a task
	// but none has been set.
	ErrSessionNotStarted = errors.New("session: task not yet set")

	// ErrNotAwaitingHuman is returned when a human response arrives but
	// the session is not waiting on one.
	ErrNotAwaitingHuman = errors.New("session: not awaiting human input")
)
