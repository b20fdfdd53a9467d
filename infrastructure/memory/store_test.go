package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/infrastructure/memory"
)

func TestStore_SuggestPlans_ScoresByWordOverlap(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	buildPlan := plan.NewPlan("build the release artifact", "compile and package", nil)
	deployPlan := plan.NewPlan("deploy the service to staging", "push the build", nil)

	require.NoError(t, s.RecordPlan(ctx, "team-a", "build the release artifact", buildPlan))
	require.NoError(t, s.RecordPlan(ctx, "team-a", "deploy the service to staging", deployPlan))

	suggestions, err := s.SuggestPlans(ctx, "team-a", "build the release artifact now")
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "compile and package", suggestions[0].Plan.Summary)
	assert.Greater(t, suggestions[0].Score, 0.0)
}

func TestStore_SuggestPlans_ScopedByControllerKey(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	p := plan.NewPlan("build the release artifact", "compile and package", nil)
	require.NoError(t, s.RecordPlan(ctx, "team-a", "build the release artifact", p))

	suggestions, err := s.SuggestPlans(ctx, "team-b", "build the release artifact")
	require.NoError(t, err)
	assert.Empty(t, suggestions, "a different controller key must not see team-a's plans")
}

func TestStore_SuggestPlans_NoOverlapReturnsEmpty(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	p := plan.NewPlan("build the release artifact", "compile and package", nil)
	require.NoError(t, s.RecordPlan(ctx, "team-a", "build the release artifact", p))

	suggestions, err := s.SuggestPlans(ctx, "team-a", "completely unrelated request about cats")
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}
