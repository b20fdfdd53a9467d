package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates orchestrator configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *OrchestratorConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateOrchestrator(config)
	v.validateTeam(config)
	v.validateLLM(config)
	v.validatePolicy(config)
	v.validateResilience(config)
	v.validateSentinel(config)
	v.validatePersistence(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *OrchestratorConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateOrchestrator(config *OrchestratorConfig) {
	if config.Orchestrator.MaxSteps < 0 {
		v.addError("orchestrator.max_steps", "max_steps must be non-negative")
	}
}

func (v *Validator) validateTeam(config *OrchestratorConfig) {
	seen := make(map[string]bool, len(config.Team.Members))
	for i, member := range config.Team.Members {
		path := fmt.Sprintf("team.members[%d]", i)
		if member.Name == "" {
			v.addError(path+".name", "member name is required")
			continue
		}
		if seen[member.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate member name: %s", member.Name))
		}
		seen[member.Name] = true
		if member.Description == "" {
			v.addError(path+".description", "member description is required")
		}
	}
}

func (v *Validator) validateLLM(config *OrchestratorConfig) {
	if config.LLM.Provider == "" {
		return
	}
	validProviders := map[string]bool{
		"openai": true, "anthropic": true, "bedrock": true, "mock": true, "scripted": true,
	}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		v.addError("llm.provider", fmt.Sprintf("unknown provider: %s", config.LLM.Provider))
	}
	if config.LLM.Temperature < 0 || config.LLM.Temperature > 2 {
		v.addError("llm.temperature", "temperature must be between 0 and 2")
	}
	if config.LLM.MaxTokens < 0 {
		v.addError("llm.max_tokens", "max_tokens must be non-negative")
	}
	if config.LLM.MaxJSONRetries < 0 {
		v.addError("llm.max_json_retries", "max_json_retries must be non-negative")
	}
}

func (v *Validator) validatePolicy(config *OrchestratorConfig) {
	for name, limit := range config.Policy.Budgets {
		if limit < 0 {
			v.addError(fmt.Sprintf("policy.budgets.%s", name), "budget limit must be non-negative")
		}
	}

	if config.Policy.MaxReplans < 0 {
		v.addError("policy.max_replans", "max_replans must be non-negative")
	}
	if config.Policy.MaxStallsBeforeReplan < 0 {
		v.addError("policy.max_stalls_before_replan", "max_stalls_before_replan must be non-negative")
	}

	if config.Policy.Approval.Mode != "" {
		validModes := map[string]bool{
			"auto": true, "manual": true, "none": true,
		}
		if !validModes[config.Policy.Approval.Mode] {
			v.addError("policy.approval.mode", fmt.Sprintf("invalid mode: %s", config.Policy.Approval.Mode))
		}
	}

	validPhases := map[string]bool{
		"awaiting_task": true, "planning": true, "executing": true,
		"replanning": true, "awaiting_human": true, "finalizing": true,
		"done": true, "failed": true,
	}
	for i, trans := range config.Policy.Transitions {
		path := fmt.Sprintf("policy.transitions[%d]", i)
		if trans.From == "" {
			v.addError(path+".from", "from phase is required")
		} else if !validPhases[trans.From] {
			v.addError(path+".from", fmt.Sprintf("invalid phase: %s", trans.From))
		}
		if trans.To == "" {
			v.addError(path+".to", "to phase is required")
		} else if !validPhases[trans.To] {
			v.addError(path+".to", fmt.Sprintf("invalid phase: %s", trans.To))
		}
	}
}

func (v *Validator) validateResilience(config *OrchestratorConfig) {
	if config.Resilience.Retry.Enabled {
		if config.Resilience.Retry.MaxAttempts <= 0 {
			v.addError("resilience.retry.max_attempts", "max_attempts must be positive when enabled")
		}
		if config.Resilience.Retry.Multiplier != 0 && config.Resilience.Retry.Multiplier < 1 {
			v.addError("resilience.retry.multiplier", "multiplier must be >= 1")
		}
	}

	if config.Resilience.CircuitBreaker.Enabled {
		if config.Resilience.CircuitBreaker.Threshold <= 0 {
			v.addError("resilience.circuit_breaker.threshold", "threshold must be positive when enabled")
		}
	}

	if config.Resilience.Bulkhead.Enabled {
		if config.Resilience.Bulkhead.MaxConcurrent <= 0 {
			v.addError("resilience.bulkhead.max_concurrent", "max_concurrent must be positive when enabled")
		}
	}
}

func (v *Validator) validateSentinel(config *OrchestratorConfig) {
	if config.Sentinel.MinSleep != 0 && config.Sentinel.MaxSleep != 0 {
		if config.Sentinel.MinSleep.Duration() > config.Sentinel.MaxSleep.Duration() {
			v.addError("sentinel.min_sleep", "min_sleep must not exceed max_sleep")
		}
	}
	if config.Sentinel.DefaultSleep < 0 {
		v.addError("sentinel.default_sleep", "default_sleep must be non-negative")
	}
}

func (v *Validator) validatePersistence(config *OrchestratorConfig) {
	if config.Persistence.Backend == "" {
		return
	}
	validBackends := map[string]bool{"memory": true, "redis": true}
	if !validBackends[config.Persistence.Backend] {
		v.addError("persistence.backend", fmt.Sprintf("unknown backend: %s", config.Persistence.Backend))
	}
	if config.Persistence.Backend == "redis" && config.Persistence.RedisAddr == "" {
		v.addError("persistence.redis_addr", "redis_addr is required when backend is redis")
	}
}
