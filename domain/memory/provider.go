// Package memory defines the Orchestrator's optional memory-provider
// contract (spec §6.4): a source of prior plans that can be reused or
// hinted at when planning a new task.
package memory

import (
	"context"

	"github.com/fieldteam/orchestrator/domain/plan"
)

// Off, Reuse, and Hint are the recognized values of spec's
// retrieve_relevant_plans config option.
const (
	Off   = "off"
	Reuse = "reuse"
	Hint  = "hint"
)

// ScoredPlan pairs a suggested Plan with the provider's confidence that it
// fits the requested task. Callers that care about a single best match
// should treat the first element of a SuggestPlans result as the
// highest-scoring one.
type ScoredPlan struct {
	Plan  plan.Plan
	Score float64
}

// Provider suggests prior plans relevant to a task and records newly
// adopted plans for future suggestions (spec §6.4's suggest_plans). Every
// call is scoped by a controller key (spec's memory_controller_key) so one
// provider can serve multiple tenants or teams without their plan
// histories mixing.
type Provider interface {
	// SuggestPlans returns candidate plans for task under controllerKey,
	// ordered highest-score first. An empty slice means no relevant plan
	// was found; err is only for provider-side failures.
	SuggestPlans(ctx context.Context, controllerKey, task string) ([]ScoredPlan, error)

	// RecordPlan stores p as a future suggestion candidate for task under
	// controllerKey.
	RecordPlan(ctx context.Context, controllerKey, task string, p plan.Plan) error
}
