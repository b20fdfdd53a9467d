// Package memory provides an in-memory implementation of
// domain/memory.Provider, grounded on the teacher's in-memory storage
// family (infrastructure/storage/memory).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fieldteam/orchestrator/domain/memory"
	"github.com/fieldteam/orchestrator/domain/plan"
)

// Store is an in-memory, process-local implementation of memory.Provider.
// It scores candidates by word overlap with the requested task — a cheap
// stand-in for the embedding-similarity search a production memory
// provider would use, sufficient to exercise retrieve_relevant_plans'
// reuse/hint branching without an external dependency.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]entry
}

type entry struct {
	task string
	plan plan.Plan
}

// NewStore creates an empty in-memory memory provider.
func NewStore() *Store {
	return &Store{entries: make(map[string][]entry)}
}

// SuggestPlans implements memory.Provider.
func (s *Store) SuggestPlans(_ context.Context, controllerKey, task string) ([]memory.ScoredPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.entries[controllerKey]
	if len(candidates) == 0 {
		return nil, nil
	}

	taskWords := wordSet(task)
	scored := make([]memory.ScoredPlan, 0, len(candidates))
	for _, c := range candidates {
		score := jaccard(taskWords, wordSet(c.task))
		if score <= 0 {
			continue
		}
		stored := c.plan
		scored = append(scored, memory.ScoredPlan{Plan: stored, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored, nil
}

// RecordPlan implements memory.Provider.
func (s *Store) RecordPlan(_ context.Context, controllerKey, task string, p plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[controllerKey] = append(s.entries[controllerKey], entry{task: task, plan: p})
	return nil
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// jaccard returns the intersection-over-union similarity of two word sets,
// 0 when either is empty.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
