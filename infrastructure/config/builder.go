// Package config adapts domain/config's OrchestratorConfig into the
// concrete runtime components application/orchestrator.go wires together:
// a team.Team, a policy.Budget, a policy.PhaseTransitions, a
// policy.ApprovalPolicy, and an llm.Protocol.
package config

import (
	"fmt"
	"time"

	domainconfig "github.com/fieldteam/orchestrator/domain/config"
	domainmemory "github.com/fieldteam/orchestrator/domain/memory"
	"github.com/fieldteam/orchestrator/domain/policy"
	"github.com/fieldteam/orchestrator/domain/session"
	"github.com/fieldteam/orchestrator/domain/team"
	"github.com/fieldteam/orchestrator/infrastructure/llm"
	inframemory "github.com/fieldteam/orchestrator/infrastructure/memory"
	"github.com/fieldteam/orchestrator/infrastructure/resilience"
	"github.com/fieldteam/orchestrator/infrastructure/telemetry"
)

// Builder builds orchestrator runtime components from configuration.
type Builder struct {
	config *domainconfig.OrchestratorConfig
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.OrchestratorConfig) *Builder {
	return &Builder{config: config}
}

// BuildResult contains the built components from configuration.
type BuildResult struct {
	// Team is the validated roster the Protocol Layer plans against.
	Team team.Team
	// Budget enforces policy.max_replans and policy.max_stalls_before_replan.
	Budget *policy.Budget
	// Transitions is the phase transition policy.
	Transitions *policy.PhaseTransitions
	// Approval is the approval gating policy.
	Approval policy.ApprovalPolicy
	// Protocol is the LLM-backed Protocol Layer, nil if no provider is
	// configured (callers substitute a mock/scripted Protocol).
	Protocol llm.Protocol
	// MaxSteps is the maximum plan steps dispatched in a session.
	MaxSteps int
	// SentinelEnabled advertises sentinel-step support to the Protocol
	// Layer's prompts.
	SentinelEnabled bool
	// ResilienceConfig configures the fortify executor
	// infrastructure/dispatch wraps each agent Stream call with.
	ResilienceConfig resilience.ExecutorConfig
	// Telemetry is the tracing/metrics provider built from
	// domainconfig.TelemetryConfig, never nil (degrades to no-op tracer
	// and meter when no exporter is configured).
	Telemetry *telemetry.Provider
	// Variables are the initial session variables.
	Variables map[string]any

	// CooperativePlanning and AutonomousExecution drive Planning's
	// plan-review pause (spec §4.3.3): cooperative + non-autonomous waits
	// for the user to accept or edit the plan before Executing begins.
	CooperativePlanning bool
	AutonomousExecution bool
	// AllowFollowUpInput gates whether a mid-sentinel-sleep follow-up
	// message interrupts the sentinel step.
	AllowFollowUpInput bool
	// AllowedWebsites restricts web-browsing plan steps.
	AllowedWebsites []string
	// Memory is the optional memory provider built when
	// RetrieveRelevantPlans is anything other than "off"; nil otherwise.
	Memory                domainmemory.Provider
	RetrieveRelevantPlans string
	MemoryControllerKey   string
}

// Build builds the orchestrator components from configuration.
func (b *Builder) Build() (*BuildResult, error) {
	result := &BuildResult{
		Variables: make(map[string]any),
	}

	builtTeam, err := b.buildTeam()
	if err != nil {
		return nil, fmt.Errorf("building team: %w", err)
	}
	result.Team = builtTeam

	result.Budget = b.buildBudget()

	transitions, err := b.buildTransitions()
	if err != nil {
		return nil, fmt.Errorf("building transitions: %w", err)
	}
	result.Transitions = transitions

	result.Approval = b.buildApproval()

	protocol, err := b.buildProtocol()
	if err != nil {
		return nil, fmt.Errorf("building protocol: %w", err)
	}
	result.Protocol = protocol

	result.ResilienceConfig = b.buildResilienceConfig()

	telemetryProvider, err := b.buildTelemetry()
	if err != nil {
		return nil, fmt.Errorf("building telemetry: %w", err)
	}
	result.Telemetry = telemetryProvider

	result.MaxSteps = b.config.Orchestrator.MaxSteps
	if result.MaxSteps <= 0 {
		result.MaxSteps = 100
	}
	result.SentinelEnabled = b.config.Orchestrator.SentinelEnabled

	result.CooperativePlanning = b.config.Orchestrator.CooperativePlanning
	result.AutonomousExecution = b.config.Orchestrator.AutonomousExecution
	result.AllowFollowUpInput = b.config.Orchestrator.AllowFollowUpInput
	result.AllowedWebsites = b.config.Orchestrator.AllowedWebsites
	result.RetrieveRelevantPlans = b.config.Orchestrator.RetrieveRelevantPlans
	result.MemoryControllerKey = b.config.Orchestrator.MemoryControllerKey
	if result.RetrieveRelevantPlans != "" && result.RetrieveRelevantPlans != domainmemory.Off {
		result.Memory = inframemory.NewStore()
	}

	for k, v := range b.config.Variables {
		result.Variables[k] = v
	}

	return result, nil
}

func (b *Builder) buildTeam() (team.Team, error) {
	members := make([]team.Descriptor, 0, len(b.config.Team.Members)+1)
	hasUserProxy := false
	for _, m := range b.config.Team.Members {
		members = append(members, team.Descriptor{
			Name:             m.Name,
			Description:      m.Description,
			RequiresApproval: m.RequiresApproval,
		})
		if m.Name == team.UserProxyName {
			hasUserProxy = true
		}
	}
	if !hasUserProxy {
		members = append(members, team.Descriptor{
			Name:        team.UserProxyName,
			Description: "Relays questions to, and responses from, the human operator.",
		})
	}
	return team.New(members)
}

func (b *Builder) buildBudget() *policy.Budget {
	limits := make(map[string]int, len(b.config.Policy.Budgets)+2)
	for name, limit := range b.config.Policy.Budgets {
		limits[name] = limit
	}
	if b.config.Policy.MaxReplans > 0 {
		limits[policy.ReplanBudget] = b.config.Policy.MaxReplans
	}
	if b.config.Policy.MaxStallsBeforeReplan > 0 {
		limits[policy.StepAttemptBudget] = b.config.Policy.MaxStallsBeforeReplan
	}
	if len(limits) == 0 {
		return policy.UnlimitedBudget()
	}
	return policy.NewBudget(limits)
}

func (b *Builder) buildTransitions() (*policy.PhaseTransitions, error) {
	if len(b.config.Policy.Transitions) == 0 {
		return policy.DefaultTransitions(), nil
	}

	transitions := policy.NewPhaseTransitions()
	for _, t := range b.config.Policy.Transitions {
		from, err := parsePhase(t.From)
		if err != nil {
			return nil, err
		}
		to, err := parsePhase(t.To)
		if err != nil {
			return nil, err
		}
		transitions.Allow(from, to)
	}
	return transitions, nil
}

func (b *Builder) buildApproval() policy.ApprovalPolicy {
	cfg := b.config.Policy.Approval
	return policy.ApprovalPolicy{
		RequireForDestructive: cfg.RequireForDestructive,
		RequireForHighRisk:    cfg.RequireForHighRisk,
		RequireForAgents:      cfg.RequireForAgents,
		ExemptAgents:          cfg.ExemptAgents,
	}
}

func (b *Builder) buildProtocol() (llm.Protocol, error) {
	if b.config.LLM.Provider == "" {
		return nil, nil
	}

	provider, err := b.buildProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}

	return llm.New(llm.Config{
		Provider:            provider,
		Model:               b.config.LLM.Model,
		Temperature:         b.config.LLM.Temperature,
		MaxTokens:           b.config.LLM.MaxTokens,
		MaxJSONRetries:      b.config.LLM.MaxJSONRetries,
		MaxContextTokens:    b.config.Orchestrator.ModelContextTokenLimit,
		FinalAnswerTemplate: b.config.Orchestrator.FinalAnswerPrompt,
		CallTimeout:         b.perLLMTimeout(),
		Language:            b.config.Orchestrator.Language,
	}), nil
}

func (b *Builder) buildProvider() (llm.Provider, error) {
	switch b.config.LLM.Provider {
	case "openai":
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  b.config.LLM.APIKey,
			BaseURL: b.config.LLM.BaseURL,
			Model:   b.config.LLM.Model,
		}), nil
	case "anthropic":
		return llm.NewAnthropicProvider(llm.AnthropicConfig{
			APIKey:  b.config.LLM.APIKey,
			BaseURL: b.config.LLM.BaseURL,
			Model:   b.config.LLM.Model,
		}), nil
	case "bedrock":
		return llm.NewBedrockProvider(llm.BedrockConfig{
			Region:  b.config.LLM.Region,
			ModelID: b.config.LLM.Model,
		})
	case "mock", "scripted":
		// Caller substitutes a test double; nothing to build here.
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", b.config.LLM.Provider)
	}
}

// perLLMTimeout resolves spec's per_llm_timeout, falling back to
// llm.timeout and then to the shared Resilience.Timeout when unset.
func (b *Builder) perLLMTimeout() time.Duration {
	if b.config.Resilience.PerLLMTimeout > 0 {
		return b.config.Resilience.PerLLMTimeout.Duration()
	}
	if b.config.LLM.Timeout > 0 {
		return b.config.LLM.Timeout.Duration()
	}
	return b.config.Resilience.Timeout.Duration()
}

func (b *Builder) buildResilienceConfig() resilience.ExecutorConfig {
	cfg := resilience.DefaultExecutorConfig()

	if b.config.Resilience.Timeout > 0 {
		cfg.DefaultTimeout = b.config.Resilience.Timeout.Duration()
	}
	// PerAgentTimeout is the more specific of the two timeout knobs spec
	// §6.6 names (per_agent_timeout vs per_llm_timeout); it wins over the
	// shared Timeout fallback for the dispatcher's own executor.
	if b.config.Resilience.PerAgentTimeout > 0 {
		cfg.DefaultTimeout = b.config.Resilience.PerAgentTimeout.Duration()
	}
	if b.config.Resilience.Bulkhead.Enabled && b.config.Resilience.Bulkhead.MaxConcurrent > 0 {
		cfg.MaxConcurrent = b.config.Resilience.Bulkhead.MaxConcurrent
	}
	if b.config.Resilience.CircuitBreaker.Enabled {
		if b.config.Resilience.CircuitBreaker.Threshold > 0 {
			cfg.CircuitBreakerThreshold = b.config.Resilience.CircuitBreaker.Threshold
		}
		if b.config.Resilience.CircuitBreaker.Timeout > 0 {
			cfg.CircuitBreakerTimeout = b.config.Resilience.CircuitBreaker.Timeout.Duration()
		}
	}
	if b.config.Resilience.Retry.Enabled {
		if b.config.Resilience.Retry.MaxAttempts > 0 {
			cfg.RetryMaxAttempts = b.config.Resilience.Retry.MaxAttempts
		}
		if b.config.Resilience.Retry.InitialDelay > 0 {
			cfg.RetryInitialDelay = b.config.Resilience.Retry.InitialDelay.Duration()
		}
		if b.config.Resilience.Retry.Multiplier > 0 {
			cfg.RetryBackoffMultiplier = b.config.Resilience.Retry.Multiplier
		}
	}

	return cfg
}

func (b *Builder) buildTelemetry() (*telemetry.Provider, error) {
	cfg := b.config.Telemetry
	exporter := telemetry.ExporterType(cfg.Exporter)
	if exporter == "" {
		exporter = telemetry.ExporterNoop
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return telemetry.New(telemetry.Config{
		ServiceName:        b.config.Name,
		ServiceVersion:     b.config.Version,
		Exporter:           exporter,
		Endpoint:           cfg.Endpoint,
		Insecure:           cfg.Insecure,
		SampleRate:         sampleRate,
		BatchTimeout:       5 * time.Second,
		MaxExportBatchSize: 512,
	})
}

func parsePhase(s string) (session.Phase, error) {
	switch session.Phase(s) {
	case session.PhaseAwaitingTask, session.PhasePlanning, session.PhaseExecuting,
		session.PhaseReplanning, session.PhaseAwaitingHuman, session.PhaseFinalizing,
		session.PhaseDone, session.PhaseFailed:
		return session.Phase(s), nil
	default:
		return "", fmt.Errorf("unknown phase: %s", s)
	}
}

// DefaultConfig returns a minimal default configuration.
func DefaultConfig() *domainconfig.OrchestratorConfig {
	return &domainconfig.OrchestratorConfig{
		Name:    "orchestrator",
		Version: "1.0",
		Orchestrator: domainconfig.OrchestratorSettings{
			MaxSteps: 100,
		},
		Team: domainconfig.TeamConfig{
			Members: []domainconfig.TeamMemberConfig{
				{Name: team.UserProxyName, Description: "Relays questions to, and responses from, the human operator."},
			},
		},
		Policy: domainconfig.PolicyConfig{
			MaxReplans:            5,
			MaxStallsBeforeReplan: 3,
		},
		Resilience: domainconfig.ResilienceConfig{
			Timeout: domainconfig.Duration(30 * time.Second),
			Retry: domainconfig.RetryConfig{
				Enabled:      true,
				MaxAttempts:  3,
				InitialDelay: domainconfig.Duration(1 * time.Second),
				Multiplier:   2.0,
			},
		},
		Sentinel: domainconfig.SentinelConfig{
			DefaultSleep: domainconfig.Duration(5 * time.Minute),
			MinSleep:     domainconfig.Duration(10 * time.Second),
			MaxSleep:     domainconfig.Duration(24 * time.Hour),
		},
		Persistence: domainconfig.PersistenceConfig{
			Backend: "memory",
		},
	}
}
