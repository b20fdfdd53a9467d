package config

import (
	"encoding/json"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	MinLength            *int                   `json:"minLength,omitempty"`
	MaxLength            *int                   `json:"maxLength,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	Format               string                 `json:"format,omitempty"`
	Ref                  string                 `json:"$ref,omitempty"`
	Definitions          map[string]*JSONSchema `json:"$defs,omitempty"`
	OneOf                []*JSONSchema          `json:"oneOf,omitempty"`
	AnyOf                []*JSONSchema          `json:"anyOf,omitempty"`
	AllOf                []*JSONSchema          `json:"allOf,omitempty"`
}

var validPhases = []string{
	"awaiting_task", "planning", "executing", "replanning",
	"awaiting_human", "finalizing", "done", "failed",
}

// GenerateSchema generates a JSON Schema for the OrchestratorConfig.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/fieldteam/orchestrator/orchestrator-config.schema.json",
		Title:       "Orchestrator Configuration",
		Description: "Configuration schema for the multi-agent orchestrator runtime",
		Type:        "object",
		Required:    []string{"name", "version"},
		Properties: map[string]*JSONSchema{
			"name": {
				Type:        "string",
				Description: "A human-readable name for this configuration",
			},
			"version": {
				Type:        "string",
				Description: "The configuration schema version",
				Default:     "1.0",
			},
			"description": {
				Type:        "string",
				Description: "Describes the deployment's purpose",
			},
			"orchestrator": generateOrchestratorSchema(),
			"team":         generateTeamSchema(),
			"llm":          generateLLMSchema(),
			"policy":       generatePolicySchema(),
			"resilience":   generateResilienceSchema(),
			"sentinel":     generateSentinelSchema(),
			"persistence":  generatePersistenceSchema(),
			"variables": {
				Type:        "object",
				Description: "Initial variables for a session",
				AdditionalProperties: &JSONSchema{
					Description: "Variable value (any type)",
				},
			},
		},
	}
}

func generateOrchestratorSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Core orchestrator behavior settings",
		Properties: map[string]*JSONSchema{
			"max_steps": {
				Type:        "integer",
				Description: "Maximum number of plan steps dispatched in a session",
				Default:     100,
				Minimum:     floatPtr(0),
			},
			"default_task": {
				Type:        "string",
				Description: "Task used when a session starts without an explicit one",
			},
			"sentinel_enabled": {
				Type:        "boolean",
				Description: "Advertise sentinel-step support to the Protocol Layer",
				Default:     false,
			},
			"cooperative_planning": {
				Type:        "boolean",
				Description: "Request human sign-off on a freshly produced plan before execution",
				Default:     false,
			},
		},
	}
}

func generateTeamSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "The team roster available to every session",
		Properties: map[string]*JSONSchema{
			"members": {
				Type:        "array",
				Description: "Agents available to the orchestrator",
				Items: &JSONSchema{
					Type:     "object",
					Required: []string{"name", "description"},
					Properties: map[string]*JSONSchema{
						"name": {
							Type:        "string",
							Description: "Unique agent identifier, matching a plan step's agent_name",
						},
						"description": {
							Type:        "string",
							Description: "Surfaced to the Protocol Layer's plan/ledger prompts",
						},
						"requires_approval": {
							Type:        "boolean",
							Description: "Gate this agent's dispatches behind approval",
							Default:     false,
						},
					},
				},
			},
		},
	}
}

func generateLLMSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Protocol Layer provider settings",
		Properties: map[string]*JSONSchema{
			"provider": {
				Type:        "string",
				Description: "Backing provider",
				Enum:        []string{"openai", "anthropic", "bedrock", "mock", "scripted"},
			},
			"model": {
				Type:        "string",
				Description: "Model identifier passed to the provider",
			},
			"api_key": {
				Type:        "string",
				Description: "API key for openai/anthropic",
			},
			"base_url": {
				Type:        "string",
				Description: "Overrides the provider's default endpoint",
				Format:      "uri",
			},
			"region": {
				Type:        "string",
				Description: "AWS region for the bedrock provider",
			},
			"temperature": {
				Type:        "number",
				Description: "Sampling temperature",
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(2),
			},
			"max_tokens": {
				Type:        "integer",
				Description: "Caps the completion length",
				Minimum:     floatPtr(0),
			},
			"max_json_retries": {
				Type:        "integer",
				Description: "Retries for malformed structured responses",
				Minimum:     floatPtr(0),
			},
			"timeout": {
				Type:        "string",
				Description: "Bounds a single completion call",
				Format:      "duration",
				Default:     "60s",
			},
		},
	}
}

func generatePolicySchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Policy settings",
		Properties: map[string]*JSONSchema{
			"budgets": {
				Type:        "object",
				Description: "Budget limits keyed by name",
				AdditionalProperties: &JSONSchema{
					Type:    "integer",
					Minimum: floatPtr(0),
				},
			},
			"max_replans": {
				Type:        "integer",
				Description: "Caps replans before the session is failed",
				Minimum:     floatPtr(0),
			},
			"max_stalls_before_replan": {
				Type:        "integer",
				Description: "Caps consecutive ledger turns spent on one step before forcing a replan",
				Minimum:     floatPtr(0),
			},
			"approval": {
				Type:        "object",
				Description: "Approval behavior",
				Properties: map[string]*JSONSchema{
					"mode": {
						Type:        "string",
						Description: "Approval mode",
						Enum:        []string{"auto", "manual", "none"},
						Default:     "auto",
					},
					"require_for_destructive": {
						Type:        "boolean",
						Description: "Require approval for agents flagged destructive",
						Default:     true,
					},
					"require_for_high_risk": {
						Type:        "boolean",
						Description: "Require approval for agents flagged high-risk",
						Default:     true,
					},
					"require_for_agents": {
						Type:        "array",
						Description: "Agent names that always require approval",
						Items:       &JSONSchema{Type: "string"},
					},
					"exempt_agents": {
						Type:        "array",
						Description: "Agent names that never require approval",
						Items:       &JSONSchema{Type: "string"},
					},
				},
			},
			"transitions": {
				Type:        "array",
				Description: "Custom phase transitions, overriding the default phase graph",
				Items: &JSONSchema{
					Type:     "object",
					Required: []string{"from", "to"},
					Properties: map[string]*JSONSchema{
						"from": {Type: "string", Enum: validPhases},
						"to":   {Type: "string", Enum: validPhases},
					},
				},
			},
		},
	}
}

func generateResilienceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Team Dispatch resilience settings",
		Properties: map[string]*JSONSchema{
			"timeout": {
				Type:        "string",
				Description: "Default per-agent dispatch timeout (e.g., '30s', '1m')",
				Format:      "duration",
				Default:     "30s",
			},
			"retry": {
				Type:        "object",
				Description: "Retry behavior for retryable dispatches",
				Properties: map[string]*JSONSchema{
					"enabled":       {Type: "boolean", Default: true},
					"max_attempts":  {Type: "integer", Minimum: floatPtr(1), Default: 3},
					"initial_delay": {Type: "string", Format: "duration", Default: "1s"},
					"max_delay":     {Type: "string", Format: "duration"},
					"multiplier":    {Type: "number", Minimum: floatPtr(1), Default: 2.0},
				},
			},
			"circuit_breaker": {
				Type:        "object",
				Description: "Circuit breaker behavior",
				Properties: map[string]*JSONSchema{
					"enabled":   {Type: "boolean", Default: true},
					"threshold": {Type: "integer", Description: "Failures before opening", Minimum: floatPtr(1), Default: 5},
					"timeout":   {Type: "string", Description: "How long circuit stays open", Format: "duration", Default: "30s"},
				},
			},
			"bulkhead": {
				Type:        "object",
				Description: "Bulkhead behavior",
				Properties: map[string]*JSONSchema{
					"enabled":        {Type: "boolean", Default: true},
					"max_concurrent": {Type: "integer", Description: "Maximum concurrent dispatches", Minimum: floatPtr(1), Default: 10},
				},
			},
		},
	}
}

func generateSentinelSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Sentinel scheduler default cadence",
		Properties: map[string]*JSONSchema{
			"default_sleep": {
				Type:        "string",
				Description: "Used when a sentinel step specifies no interval",
				Format:      "duration",
				Default:     "5m",
			},
			"min_sleep": {
				Type:        "string",
				Description: "Floors the scheduler's interval",
				Format:      "duration",
				Default:     "10s",
			},
			"max_sleep": {
				Type:        "string",
				Description: "Ceilings the scheduler's interval",
				Format:      "duration",
				Default:     "24h",
			},
		},
	}
}

func generatePersistenceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Session and sentinel state durability",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type:        "string",
				Description: "Store implementation",
				Enum:        []string{"memory", "redis"},
				Default:     "memory",
			},
			"redis_addr": {
				Type:        "string",
				Description: "Redis server address, required when backend is redis",
			},
			"redis_db": {
				Type:        "integer",
				Description: "Redis logical database",
				Minimum:     floatPtr(0),
			},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	schema := GenerateSchema()
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
