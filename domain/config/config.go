// Package config provides domain models for orchestrator configuration.
package config

import "time"

// OrchestratorConfig represents the complete orchestrator configuration:
// the team roster, LLM provider settings, policy/budget limits, and
// resilience/persistence settings that together shape one orchestrator
// deployment (spec §4.3, §6.6).
type OrchestratorConfig struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`
	// Description describes the deployment's purpose.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Orchestrator contains core orchestrator behavior settings.
	Orchestrator OrchestratorSettings `json:"orchestrator" yaml:"orchestrator"`
	// Team lists the agents available to every session.
	Team TeamConfig `json:"team,omitempty" yaml:"team,omitempty"`
	// LLM configures the Protocol Layer's backing provider.
	LLM LLMConfig `json:"llm,omitempty" yaml:"llm,omitempty"`
	// Policy contains policy and budget settings.
	Policy PolicyConfig `json:"policy,omitempty" yaml:"policy,omitempty"`
	// Resilience contains dispatch resilience settings.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Sentinel configures the sentinel scheduler's default cadence.
	Sentinel SentinelConfig `json:"sentinel,omitempty" yaml:"sentinel,omitempty"`
	// Persistence configures session/sentinel state durability.
	Persistence PersistenceConfig `json:"persistence,omitempty" yaml:"persistence,omitempty"`
	// Telemetry configures tracing/metrics export. Ambient observability,
	// not a product feature — an empty TelemetryConfig disables export
	// and the orchestrator runs with a no-op tracer and meter.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
	// Variables contains initial session variables.
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// OrchestratorSettings contains core orchestrator behavior settings.
type OrchestratorSettings struct {
	// MaxSteps caps the total number of plan steps dispatched in a
	// session, independent of replans.
	MaxSteps int `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	// DefaultTask is used when a session is started without an explicit
	// task (e.g. a smoke-test run).
	DefaultTask string `json:"default_task,omitempty" yaml:"default_task,omitempty"`
	// SentinelEnabled controls whether the Protocol Layer's plan/replan
	// prompts advertise sentinel-step support (spec's sentinel_tasks_enabled).
	SentinelEnabled bool `json:"sentinel_enabled,omitempty" yaml:"sentinel_enabled,omitempty"`
	// CooperativePlanning requests human sign-off on a freshly produced
	// plan before execution begins (spec §4.3 "Plan edits").
	CooperativePlanning bool `json:"cooperative_planning,omitempty" yaml:"cooperative_planning,omitempty"`
	// AutonomousExecution skips human confirmation of a freshly produced
	// plan. When it is false and CooperativePlanning is true, the plan is
	// sent to the user_proxy agent for an accept/edit reply before
	// dispatching, and any edit in the reply is applied. When
	// CooperativePlanning is false the plan is executed without review
	// whatever this flag says; the review does not enter PhaseAwaitingHuman.
	AutonomousExecution bool `json:"autonomous_execution,omitempty" yaml:"autonomous_execution,omitempty"`
	// AllowFollowUpInput controls whether a user message that arrives
	// while a session is Executing (outside the AwaitingHuman round trip)
	// is evaluated as a replan trigger. The check runs only inside a
	// sentinel step, after each sentinel tick; a message that arrives
	// during a normal step is not evaluated by the step loop.
	AllowFollowUpInput bool `json:"allow_follow_up_input,omitempty" yaml:"allow_follow_up_input,omitempty"`
	// ModelContextTokenLimit upper-bounds the transcript history passed to
	// the LLM on every Protocol Layer call; older messages are truncated
	// head-first once the limit is exceeded. Zero disables truncation.
	ModelContextTokenLimit int `json:"model_context_token_limit,omitempty" yaml:"model_context_token_limit,omitempty"`
	// FinalAnswerPrompt overrides the default Finalizing-phase prompt
	// template when non-empty.
	FinalAnswerPrompt string `json:"final_answer_prompt,omitempty" yaml:"final_answer_prompt,omitempty"`
	// Language selects the Protocol Layer's prompt language variant: "en"
	// (default) or "zh".
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	// AllowedWebsites, when non-empty, is injected into planning prompts
	// as a policy instruction constraining which sites a web-browsing
	// agent may visit (spec §6.6).
	AllowedWebsites []string `json:"allowed_websites,omitempty" yaml:"allowed_websites,omitempty"`
	// RetrieveRelevantPlans selects how the optional memory provider's
	// suggested plans are used during Planning: "off" (default), "reuse"
	// (adopt a high-confidence suggestion outright, skipping the LLM
	// call), or "hint" (pass suggestions into the planning prompt).
	RetrieveRelevantPlans string `json:"retrieve_relevant_plans,omitempty" yaml:"retrieve_relevant_plans,omitempty"`
	// MemoryControllerKey namespaces the memory provider's plan store to
	// this deployment, so unrelated orchestrator configurations sharing a
	// backing store don't suggest each other's plans.
	MemoryControllerKey string `json:"memory_controller_key,omitempty" yaml:"memory_controller_key,omitempty"`
}

// TeamConfig contains the team roster.
type TeamConfig struct {
	// Members lists the agents available to the orchestrator.
	Members []TeamMemberConfig `json:"members,omitempty" yaml:"members,omitempty"`
}

// TeamMemberConfig describes one team member.
type TeamMemberConfig struct {
	// Name is the agent's unique identifier, matching PlanStep.AgentName.
	Name string `json:"name" yaml:"name"`
	// Description is surfaced to the Protocol Layer's plan/ledger prompts.
	Description string `json:"description" yaml:"description"`
	// RequiresApproval marks this agent's dispatches as needing an
	// approval gate before the orchestrator acts on its response.
	RequiresApproval bool `json:"requires_approval,omitempty" yaml:"requires_approval,omitempty"`
}

// LLMConfig configures the Protocol Layer's backing provider.
type LLMConfig struct {
	// Provider selects the concrete backend: openai, anthropic, bedrock,
	// mock, or scripted.
	Provider string `json:"provider" yaml:"provider"`
	// Model is the model identifier passed to the provider.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// APIKey authenticates against the provider (openai/anthropic).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// BaseURL overrides the provider's default endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Region is the AWS region for the bedrock provider.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Temperature controls sampling randomness.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	// MaxJSONRetries bounds how many times a malformed structured
	// response is retried before the call fails.
	MaxJSONRetries int `json:"max_json_retries,omitempty" yaml:"max_json_retries,omitempty"`
	// Timeout bounds a single completion call when
	// Resilience.PerLLMTimeout is unset.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// PolicyConfig contains policy settings.
type PolicyConfig struct {
	// Budgets maps budget names (e.g. "replan_count", "step_attempts") to
	// limits enforced by domain/policy.Budget.
	Budgets map[string]int `json:"budgets,omitempty" yaml:"budgets,omitempty"`
	// MaxReplans caps how many times a session may replan before it is
	// failed, recorded under the "replan_count" budget.
	MaxReplans int `json:"max_replans,omitempty" yaml:"max_replans,omitempty"`
	// MaxStallsBeforeReplan caps consecutive ledger turns spent on one
	// step (the loop guard) before the orchestrator forces a replan,
	// recorded under the "step_attempts" budget.
	MaxStallsBeforeReplan int `json:"max_stalls_before_replan,omitempty" yaml:"max_stalls_before_replan,omitempty"`
	// Approval configures approval behavior.
	Approval ApprovalConfig `json:"approval,omitempty" yaml:"approval,omitempty"`
	// Transitions defines custom phase transitions, overriding
	// policy.DefaultTransitions() when non-empty.
	Transitions []TransitionConfig `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// ApprovalConfig configures approval behavior.
type ApprovalConfig struct {
	// Mode is the approval mode (auto, manual, none).
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
	// RequireForDestructive requires approval for agents flagged
	// destructive.
	RequireForDestructive bool `json:"require_for_destructive,omitempty" yaml:"require_for_destructive,omitempty"`
	// RequireForHighRisk requires approval for agents flagged high-risk.
	RequireForHighRisk bool `json:"require_for_high_risk,omitempty" yaml:"require_for_high_risk,omitempty"`
	// RequireForAgents lists specific agent names that always require
	// approval.
	RequireForAgents []string `json:"require_for_agents,omitempty" yaml:"require_for_agents,omitempty"`
	// ExemptAgents lists agent names that never require approval.
	ExemptAgents []string `json:"exempt_agents,omitempty" yaml:"exempt_agents,omitempty"`
}

// TransitionConfig defines a phase transition.
type TransitionConfig struct {
	// From is the source phase.
	From string `json:"from" yaml:"from"`
	// To is the target phase.
	To string `json:"to" yaml:"to"`
}

// ResilienceConfig contains dispatch resilience settings.
type ResilienceConfig struct {
	// Timeout is the default dispatch timeout, used whenever PerAgentTimeout
	// or PerLLMTimeout (and, for Protocol Layer calls, LLM.Timeout) is
	// unset — kept for deployments that don't need the two budgets to
	// diverge.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// PerAgentTimeout bounds a single team-member dispatch call
	// (infrastructure/dispatch.Dispatcher), overriding Timeout when set.
	PerAgentTimeout Duration `json:"per_agent_timeout,omitempty" yaml:"per_agent_timeout,omitempty"`
	// PerLLMTimeout bounds a single Protocol Layer call (plan, replan,
	// ledger, check_condition, final_answer), overriding Timeout when set.
	PerLLMTimeout Duration `json:"per_llm_timeout,omitempty" yaml:"per_llm_timeout,omitempty"`
	// Retry configures retry behavior for retryable dispatches (every
	// agent dispatch except the user_proxy ask).
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// Bulkhead configures bulkhead behavior.
	Bulkhead BulkheadConfig `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	Enabled       bool     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	MaxAttempts   int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialDelay  Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	MaxDelay      Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	Multiplier    float64  `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	Enabled   bool     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Threshold int      `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Timeout   Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// BulkheadConfig configures bulkhead behavior.
type BulkheadConfig struct {
	Enabled       bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	MaxConcurrent int  `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
}

// SentinelConfig configures the sentinel scheduler's default cadence
// (spec §4.4/§4.5), applied when a sentinel plan step carries no explicit
// sleep_duration.
type SentinelConfig struct {
	// DefaultSleep is used when a sentinel step specifies no interval.
	DefaultSleep Duration `json:"default_sleep,omitempty" yaml:"default_sleep,omitempty"`
	// MinSleep floors the scheduler's interval.
	MinSleep Duration `json:"min_sleep,omitempty" yaml:"min_sleep,omitempty"`
	// MaxSleep ceilings the scheduler's interval.
	MaxSleep Duration `json:"max_sleep,omitempty" yaml:"max_sleep,omitempty"`
}

// PersistenceConfig configures session/sentinel state durability.
type PersistenceConfig struct {
	// Backend selects the store implementation: "memory" or "redis".
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// RedisAddr is the address of the Redis server when Backend is
	// "redis".
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	// RedisDB selects the Redis logical database.
	RedisDB int `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
}

// TelemetryConfig configures tracing/metrics export (spec §1 lists
// telemetry as an external collaborator, carried here only as ambient
// observability per SPEC_FULL.md).
type TelemetryConfig struct {
	// Exporter selects the trace exporter: "otlp", "stdout", or "" / "noop"
	// to disable export entirely.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP collector address when Exporter is "otlp".
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS for the OTLP exporter connection.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is the trace sampling rate in [0,1], default 1.0.
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
