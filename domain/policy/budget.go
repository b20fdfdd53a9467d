// Package policy provides domain models for policy enforcement.
package policy

import (
	"sync"
)

// The orchestrator recognizes exactly two budget categories (spec §4.3):
// how many times a session may replan, and how many consecutive ledger
// turns it may spend stalled on one step before the loop guard forces a
// replan. Every other Budget method stays generic over arbitrary names so
// deployments can add their own categories, but these two are the ones
// the Orchestrator itself consumes.
const (
	// ReplanBudget caps how many times a session may replan (max_replans)
	// before the Orchestrator fails it.
	ReplanBudget = "replan_count"

	// StepAttemptBudget caps consecutive stalled attempts on one step
	// (max_stalls_before_replan) before the loop guard triggers a replan.
	StepAttemptBudget = "step_attempts"
)

// Budget tracks consumption against configured limits.
type Budget struct {
	limits   map[string]int
	consumed map[string]int
	mu       sync.RWMutex
}

// BudgetSnapshot is an immutable view of budget state.
type BudgetSnapshot struct {
	Limits    map[string]int `json:"limits"`
	Consumed  map[string]int `json:"consumed"`
	Remaining map[string]int `json:"remaining"`
}

// NewBudget creates a budget with the given limits.
func NewBudget(limits map[string]int) *Budget {
	b := &Budget{
		limits:   make(map[string]int),
		consumed: make(map[string]int),
	}
	for k, v := range limits {
		b.limits[k] = v
		b.consumed[k] = 0
	}
	return b
}

// UnlimitedBudget creates a budget with no limits.
func UnlimitedBudget() *Budget {
	return &Budget{
		limits:   make(map[string]int),
		consumed: make(map[string]int),
	}
}

// NewOrchestratorBudget builds the Budget an Orchestrator consumes from the
// two session-level limits spec §4.3 names directly: max_replans and
// max_stalls_before_replan. A non-positive limit leaves that category
// unlimited.
func NewOrchestratorBudget(maxReplans, maxStallsBeforeReplan int) *Budget {
	limits := make(map[string]int, 2)
	if maxReplans > 0 {
		limits[ReplanBudget] = maxReplans
	}
	if maxStallsBeforeReplan > 0 {
		limits[StepAttemptBudget] = maxStallsBeforeReplan
	}
	return NewBudget(limits)
}

// ConsumeReplan spends one unit of the session's replan budget, returning
// ErrBudgetExceeded once max_replans is reached.
func (b *Budget) ConsumeReplan() error {
	return b.Consume(ReplanBudget, 1)
}

// ReplansRemaining reports how many replans the session has left, or -1
// when unlimited.
func (b *Budget) ReplansRemaining() int {
	return b.Remaining(ReplanBudget)
}

// StepAttemptsRemaining reports how many more stalled attempts the
// current step may take before the loop guard forces a replan, or -1 when
// unlimited.
func (b *Budget) StepAttemptsRemaining() int {
	return b.Remaining(StepAttemptBudget)
}

// CanConsume checks if the budget allows consuming the given amount.
func (b *Budget) CanConsume(name string, amount int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit, hasLimit := b.limits[name]
	if !hasLimit {
		return true // No limit defined
	}

	consumed := b.consumed[name]
	return consumed+amount <= limit
}

// Consume deducts from the budget if allowed.
func (b *Budget) Consume(name string, amount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit, hasLimit := b.limits[name]
	if !hasLimit {
		b.consumed[name] += amount
		return nil
	}

	consumed := b.consumed[name]
	if consumed+amount > limit {
		return ErrBudgetExceeded
	}

	b.consumed[name] = consumed + amount
	return nil
}

// Remaining returns the remaining budget for a given name.
func (b *Budget) Remaining(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit, hasLimit := b.limits[name]
	if !hasLimit {
		return -1 // Unlimited
	}

	return limit - b.consumed[name]
}

// Snapshot returns an immutable view of the current budget state.
func (b *Budget) Snapshot() BudgetSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snapshot := BudgetSnapshot{
		Limits:    make(map[string]int),
		Consumed:  make(map[string]int),
		Remaining: make(map[string]int),
	}

	for k, v := range b.limits {
		snapshot.Limits[k] = v
		snapshot.Consumed[k] = b.consumed[k]
		snapshot.Remaining[k] = v - b.consumed[k]
	}

	// Include consumed items without limits
	for k, v := range b.consumed {
		if _, hasLimit := b.limits[k]; !hasLimit {
			snapshot.Consumed[k] = v
		}
	}

	return snapshot
}

// Reset resets all consumed values to zero.
func (b *Budget) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k := range b.consumed {
		b.consumed[k] = 0
	}
}

// SetLimit sets or updates a budget limit.
func (b *Budget) SetLimit(name string, limit int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.limits[name] = limit
	if _, exists := b.consumed[name]; !exists {
		b.consumed[name] = 0
	}
}

// IsExhausted returns true if any budget is fully consumed.
func (b *Budget) IsExhausted() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for name, limit := range b.limits {
		if b.consumed[name] >= limit {
			return true
		}
	}
	return false
}

// ExhaustedBudgets returns the names of all exhausted budgets.
func (b *Budget) ExhaustedBudgets() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var exhausted []string
	for name, limit := range b.limits {
		if b.consumed[name] >= limit {
			exhausted = append(exhausted, name)
		}
	}
	return exhausted
}
