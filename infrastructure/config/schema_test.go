package config

import (
	"encoding/json"
	"testing"
)

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema()

	if schema.Schema != "https://json-schema.org/draft/2020-12/schema" {
		t.Errorf("Schema = %s, want draft/2020-12", schema.Schema)
	}
	if schema.Type != "object" {
		t.Errorf("Type = %s, want object", schema.Type)
	}
	if schema.Title != "Orchestrator Configuration" {
		t.Errorf("Title = %s, want Orchestrator Configuration", schema.Title)
	}

	requiredSet := make(map[string]bool)
	for _, r := range schema.Required {
		requiredSet[r] = true
	}
	if !requiredSet["name"] {
		t.Error("name should be required")
	}
	if !requiredSet["version"] {
		t.Error("version should be required")
	}

	expectedProps := []string{"name", "version", "description", "orchestrator", "team", "llm", "policy", "resilience", "sentinel", "persistence", "variables"}
	for _, prop := range expectedProps {
		if _, ok := schema.Properties[prop]; !ok {
			t.Errorf("missing property: %s", prop)
		}
	}
}

func TestGenerateSchema_OrchestratorProperties(t *testing.T) {
	schema := GenerateSchema()
	orchestrator := schema.Properties["orchestrator"]

	if orchestrator.Type != "object" {
		t.Errorf("orchestrator.Type = %s, want object", orchestrator.Type)
	}

	expectedProps := []string{"max_steps", "default_task", "sentinel_enabled", "cooperative_planning"}
	for _, prop := range expectedProps {
		if _, ok := orchestrator.Properties[prop]; !ok {
			t.Errorf("orchestrator missing property: %s", prop)
		}
	}
}

func TestGenerateSchema_TeamProperties(t *testing.T) {
	schema := GenerateSchema()
	team := schema.Properties["team"]

	if team.Type != "object" {
		t.Errorf("team.Type = %s, want object", team.Type)
	}

	members := team.Properties["members"]
	if members.Type != "array" {
		t.Errorf("members.Type = %s, want array", members.Type)
	}
	if len(members.Items.Required) != 2 {
		t.Errorf("member item Required has %d entries, want 2", len(members.Items.Required))
	}
}

func TestGenerateSchema_LLMProperties(t *testing.T) {
	schema := GenerateSchema()
	llm := schema.Properties["llm"]

	if llm.Type != "object" {
		t.Errorf("llm.Type = %s, want object", llm.Type)
	}

	provider := llm.Properties["provider"]
	if len(provider.Enum) != 5 {
		t.Errorf("provider.Enum has %d values, want 5", len(provider.Enum))
	}
}

func TestGenerateSchema_PolicyProperties(t *testing.T) {
	schema := GenerateSchema()
	policy := schema.Properties["policy"]

	if policy.Type != "object" {
		t.Errorf("policy.Type = %s, want object", policy.Type)
	}

	expectedProps := []string{"budgets", "max_replans", "max_stalls_before_replan", "approval", "transitions"}
	for _, prop := range expectedProps {
		if _, ok := policy.Properties[prop]; !ok {
			t.Errorf("policy missing property: %s", prop)
		}
	}

	transitions := policy.Properties["transitions"]
	if len(transitions.Items.Properties["from"].Enum) != 8 {
		t.Errorf("transitions.from.Enum has %d values, want 8", len(transitions.Items.Properties["from"].Enum))
	}
}

func TestGenerateSchema_ResilienceProperties(t *testing.T) {
	schema := GenerateSchema()
	resilience := schema.Properties["resilience"]

	if resilience.Type != "object" {
		t.Errorf("resilience.Type = %s, want object", resilience.Type)
	}

	expectedProps := []string{"timeout", "retry", "circuit_breaker", "bulkhead"}
	for _, prop := range expectedProps {
		if _, ok := resilience.Properties[prop]; !ok {
			t.Errorf("resilience missing property: %s", prop)
		}
	}
}

func TestGenerateSchema_SentinelProperties(t *testing.T) {
	schema := GenerateSchema()
	sentinel := schema.Properties["sentinel"]

	if sentinel.Type != "object" {
		t.Errorf("sentinel.Type = %s, want object", sentinel.Type)
	}

	expectedProps := []string{"default_sleep", "min_sleep", "max_sleep"}
	for _, prop := range expectedProps {
		if _, ok := sentinel.Properties[prop]; !ok {
			t.Errorf("sentinel missing property: %s", prop)
		}
	}
}

func TestGenerateSchema_PersistenceProperties(t *testing.T) {
	schema := GenerateSchema()
	persistence := schema.Properties["persistence"]

	if persistence.Type != "object" {
		t.Errorf("persistence.Type = %s, want object", persistence.Type)
	}

	backend := persistence.Properties["backend"]
	if len(backend.Enum) != 2 {
		t.Errorf("backend.Enum has %d values, want 2", len(backend.Enum))
	}
}

func TestSchemaJSON(t *testing.T) {
	jsonStr, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		t.Fatalf("SchemaJSON() returned invalid JSON: %v", err)
	}

	if parsed["$schema"] == nil {
		t.Error("Schema missing $schema")
	}
	if parsed["title"] != "Orchestrator Configuration" {
		t.Errorf("title = %v, want Orchestrator Configuration", parsed["title"])
	}
	if parsed["type"] != "object" {
		t.Errorf("type = %v, want object", parsed["type"])
	}
}

func TestSchemaJSON_ValidFormat(t *testing.T) {
	jsonStr, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() error = %v", err)
	}

	if len(jsonStr) > 0 && jsonStr[0] != '{' {
		t.Error("SchemaJSON() should start with {")
	}

	if !contains(jsonStr, "\n") {
		t.Error("SchemaJSON() should be indented (contain newlines)")
	}
}

func contains(s, substr string) bool {
	for i := 0; i < len(s)-len(substr)+1; i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
