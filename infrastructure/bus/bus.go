// Package bus provides an in-memory implementation of domain/event's
// Store, Publisher and Subscriber contracts: the Orchestrator's single
// writer, multiple observer message bus (spec §4.7).
package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fieldteam/orchestrator/domain/event"
)

// Bus is an in-memory, append-only event stream keyed by session ID.
// Append assigns monotonically increasing sequence numbers per session;
// Subscribe fans out every appended event to every live subscriber for
// that session. Deliveries block on a full subscriber channel rather
// than drop events, per spec §4.7's "never drops events, backpressure
// handled by consumer."
type Bus struct {
	mu          sync.RWMutex
	events      map[string][]event.Event
	subscribers map[string][]chan event.Event
	sequences   map[string]uint64
}

// New creates an empty in-memory bus.
func New() *Bus {
	return &Bus{
		events:      make(map[string][]event.Event),
		subscribers: make(map[string][]chan event.Event),
		sequences:   make(map[string]uint64),
	}
}

// Append persists events and delivers them to the session's subscribers.
// Sequence numbers are assigned in append order, per session.
func (b *Bus) Append(ctx context.Context, events ...event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	bySession := make(map[string][]event.Event)
	for _, e := range events {
		bySession[e.SessionID] = append(bySession[e.SessionID], e)
	}

	for sessionID, sessionEvents := range bySession {
		b.mu.Lock()
		seq := b.sequences[sessionID]
		for i := range sessionEvents {
			if sessionEvents[i].ID == "" {
				sessionEvents[i].ID = uuid.New().String()
			}
			if sessionEvents[i].Type == "" {
				b.mu.Unlock()
				return event.ErrInvalidEvent
			}
			seq++
			sessionEvents[i].Sequence = seq
		}
		b.events[sessionID] = append(b.events[sessionID], sessionEvents...)
		b.sequences[sessionID] = seq
		subs := append([]chan event.Event(nil), b.subscribers[sessionID]...)
		b.mu.Unlock()

		for _, sub := range subs {
			for _, e := range sessionEvents {
				select {
				case sub <- e:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}

	return nil
}

// LoadEvents retrieves all events for a session in sequence order.
func (b *Bus) LoadEvents(ctx context.Context, sessionID string) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]event.Event(nil), b.events[sessionID]...), nil
}

// LoadEventsFrom retrieves events with sequence >= fromSeq.
func (b *Bus) LoadEventsFrom(ctx context.Context, sessionID string, fromSeq uint64) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []event.Event
	for _, e := range b.events[sessionID] {
		if e.Sequence >= fromSeq {
			result = append(result, e)
		}
	}
	return result, nil
}

// Subscribe returns a channel receiving every event appended for
// sessionID from this point forward. The channel is closed when ctx is
// cancelled.
func (b *Bus) Subscribe(ctx context.Context, sessionID string) (<-chan event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan event.Event, 64)

	b.mu.Lock()
	b.subscribers[sessionID] = append(b.subscribers[sessionID], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(sessionID, ch)
	}()

	return ch, nil
}

func (b *Bus) unsubscribe(sessionID string, ch chan event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sessionID]
	for i, sub := range subs {
		if sub == ch {
			b.subscribers[sessionID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(b.subscribers[sessionID]) == 0 {
		delete(b.subscribers, sessionID)
	}
}

// CountEvents returns the number of events recorded for a session.
func (b *Bus) CountEvents(ctx context.Context, sessionID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.events[sessionID])), nil
}

// ListSessions returns every session ID with at least one recorded event.
func (b *Bus) ListSessions(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	sessions := make([]string, 0, len(b.events))
	for sessionID := range b.events {
		sessions = append(sessions, sessionID)
	}
	return sessions, nil
}

var (
	_ event.Store     = (*Bus)(nil)
	_ event.Publisher = (*Bus)(nil)
)

// Publish is Append under the event.Publisher name: the Orchestrator's
// single writer side of the bus.
func (b *Bus) Publish(ctx context.Context, events ...event.Event) error {
	return b.Append(ctx, events...)
}

// Close is a no-op: the in-memory bus holds no external resources.
func (b *Bus) Close() error {
	return nil
}
