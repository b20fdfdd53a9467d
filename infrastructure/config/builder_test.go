package config

import (
	"testing"

	domainconfig "github.com/fieldteam/orchestrator/domain/config"
	"github.com/fieldteam/orchestrator/domain/session"
	"github.com/fieldteam/orchestrator/domain/team"
)

func TestBuilder_BasicBuild(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name:    "test-orchestrator",
		Version: "1.0",
		Orchestrator: domainconfig.OrchestratorSettings{
			MaxSteps: 50,
		},
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.MaxSteps != 50 {
		t.Errorf("MaxSteps = %d, want 50", result.MaxSteps)
	}
}

func TestBuilder_DefaultMaxSteps(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name:    "test-orchestrator",
		Version: "1.0",
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.MaxSteps != 100 {
		t.Errorf("MaxSteps = %d, want 100 (default)", result.MaxSteps)
	}
}

func TestBuilder_TeamAddsUserProxyIfMissing(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name:    "test-orchestrator",
		Version: "1.0",
		Team: domainconfig.TeamConfig{
			Members: []domainconfig.TeamMemberConfig{
				{Name: "coder", Description: "writes code"},
			},
		},
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !result.Team.Has(team.UserProxyName) {
		t.Error("Team should include user_proxy even when not configured")
	}
	if !result.Team.Has("coder") {
		t.Error("Team should include the configured coder member")
	}
}

func TestBuilder_TeamHonorsExplicitUserProxy(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name:    "test-orchestrator",
		Version: "1.0",
		Team: domainconfig.TeamConfig{
			Members: []domainconfig.TeamMemberConfig{
				{Name: team.UserProxyName, Description: "custom proxy"},
			},
		},
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(result.Team.Members) != 1 {
		t.Errorf("Team.Members = %d, want 1 (no duplicate user_proxy)", len(result.Team.Members))
	}
}

func TestBuilder_TeamDuplicateNameFails(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name:    "test-orchestrator",
		Version: "1.0",
		Team: domainconfig.TeamConfig{
			Members: []domainconfig.TeamMemberConfig{
				{Name: "coder", Description: "writes code"},
				{Name: "coder", Description: "writes more code"},
			},
		},
	}

	builder := NewBuilder(cfg)
	if _, err := builder.Build(); err == nil {
		t.Error("Build() should fail on duplicate team member names")
	}
}

func TestBuilder_Budget(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name:    "test-orchestrator",
		Version: "1.0",
		Policy: domainconfig.PolicyConfig{
			Budgets:               map[string]int{"tokens": 10000},
			MaxReplans:            5,
			MaxStallsBeforeReplan: 3,
		},
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	snapshot := result.Budget.Snapshot()
	if snapshot.Limits["tokens"] != 10000 {
		t.Errorf("Budget[tokens] = %d, want 10000", snapshot.Limits["tokens"])
	}
	if snapshot.Limits["replan_count"] != 5 {
		t.Errorf("Budget[replan_count] = %d, want 5", snapshot.Limits["replan_count"])
	}
	if snapshot.Limits["step_attempts"] != 3 {
		t.Errorf("Budget[step_attempts] = %d, want 3", snapshot.Limits["step_attempts"])
	}
}

func TestBuilder_BudgetUnlimitedWhenEmpty(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{Name: "test-orchestrator", Version: "1.0"}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !result.Budget.CanConsume("anything", 1_000_000) {
		t.Error("unlimited budget should allow any consumption")
	}
}

func TestBuilder_DefaultTransitions(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{Name: "test-orchestrator", Version: "1.0"}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !result.Transitions.CanTransition(session.PhaseAwaitingTask, session.PhasePlanning) {
		t.Error("default transitions should allow awaiting_task -> planning")
	}
}

func TestBuilder_CustomTransitions(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name: "test-orchestrator", Version: "1.0",
		Policy: domainconfig.PolicyConfig{
			Transitions: []domainconfig.TransitionConfig{
				{From: "awaiting_task", To: "planning"},
			},
		},
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !result.Transitions.CanTransition(session.PhaseAwaitingTask, session.PhasePlanning) {
		t.Error("custom transitions should allow the configured transition")
	}
	if result.Transitions.CanTransition(session.PhasePlanning, session.PhaseExecuting) {
		t.Error("custom transitions should not allow transitions that weren't configured")
	}
}

func TestBuilder_InvalidTransitionPhase(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name: "test-orchestrator", Version: "1.0",
		Policy: domainconfig.PolicyConfig{
			Transitions: []domainconfig.TransitionConfig{
				{From: "bogus", To: "planning"},
			},
		},
	}

	builder := NewBuilder(cfg)
	if _, err := builder.Build(); err == nil {
		t.Error("Build() should fail on unknown phase name")
	}
}

func TestBuilder_Approval(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name: "test-orchestrator", Version: "1.0",
		Policy: domainconfig.PolicyConfig{
			Approval: domainconfig.ApprovalConfig{
				RequireForDestructive: true,
				RequireForAgents:      []string{"deployer"},
			},
		},
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !result.Approval.RequiresApproval("deployer", false, false) {
		t.Error("deployer should always require approval")
	}
	if !result.Approval.RequiresApproval("anyone", true, false) {
		t.Error("destructive agents should require approval")
	}
}

func TestBuilder_NoProtocolWithoutProvider(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{Name: "test-orchestrator", Version: "1.0"}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if result.Protocol != nil {
		t.Error("Protocol should be nil when no LLM provider is configured")
	}
}

func TestBuilder_ProtocolBuiltForKnownProviders(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic", "bedrock"} {
		t.Run(provider, func(t *testing.T) {
			cfg := &domainconfig.OrchestratorConfig{
				Name: "test-orchestrator", Version: "1.0",
				LLM: domainconfig.LLMConfig{Provider: provider, Model: "test-model", APIKey: "key"},
			}

			builder := NewBuilder(cfg)
			result, err := builder.Build()
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if result.Protocol == nil {
				t.Errorf("Protocol should be built for provider %q", provider)
			}
		})
	}
}

func TestBuilder_UnknownProviderFails(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name: "test-orchestrator", Version: "1.0",
		LLM: domainconfig.LLMConfig{Provider: "carrier-pigeon"},
	}

	builder := NewBuilder(cfg)
	if _, err := builder.Build(); err == nil {
		t.Error("Build() should fail for an unknown provider")
	}
}

func TestBuilder_MockProviderYieldsNilProtocol(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name: "test-orchestrator", Version: "1.0",
		LLM: domainconfig.LLMConfig{Provider: "mock"},
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if result.Protocol != nil {
		t.Error("mock provider should yield a nil Protocol for the caller to substitute")
	}
}

func TestBuilder_ResilienceConfig(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name: "test-orchestrator", Version: "1.0",
		Resilience: domainconfig.ResilienceConfig{
			Bulkhead: domainconfig.BulkheadConfig{Enabled: true, MaxConcurrent: 7},
			CircuitBreaker: domainconfig.CircuitBreakerConfig{
				Enabled: true, Threshold: 4,
			},
		},
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.ResilienceConfig.MaxConcurrent != 7 {
		t.Errorf("MaxConcurrent = %d, want 7", result.ResilienceConfig.MaxConcurrent)
	}
	if result.ResilienceConfig.CircuitBreakerThreshold != 4 {
		t.Errorf("CircuitBreakerThreshold = %d, want 4", result.ResilienceConfig.CircuitBreakerThreshold)
	}
}

func TestBuilder_Variables(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name: "test-orchestrator", Version: "1.0",
		Variables: map[string]any{"env": "test"},
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.Variables["env"] != "test" {
		t.Errorf("Variables[env] = %v, want test", result.Variables["env"])
	}
}

func TestBuilder_SentinelEnabled(t *testing.T) {
	cfg := &domainconfig.OrchestratorConfig{
		Name: "test-orchestrator", Version: "1.0",
		Orchestrator: domainconfig.OrchestratorSettings{SentinelEnabled: true},
	}

	builder := NewBuilder(cfg)
	result, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !result.SentinelEnabled {
		t.Error("SentinelEnabled should propagate from configuration")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	errs := domainconfig.NewValidator().Validate(cfg)
	if errs.HasErrors() {
		t.Errorf("DefaultConfig() should be valid, got errors: %v", errs)
	}

	builder := NewBuilder(cfg)
	if _, err := builder.Build(); err != nil {
		t.Errorf("DefaultConfig() should build cleanly, got error: %v", err)
	}
}
