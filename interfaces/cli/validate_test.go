package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestApp_ValidateConfig(t *testing.T) {
	configPath := writeConfig(t, `
name: test-orchestrator
version: "1.0"
orchestrator:
  max_steps: 25
team:
  members:
    - name: user_proxy
      description: Relays questions to the human operator.
    - name: coder
      description: Writes and runs code.
policy:
  max_replans: 5
`)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	if err := app.ExecuteWithArgs(context.Background(), []string{"validate-config", "-c", configPath}); err != nil {
		t.Fatalf("validate-config failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Configuration is valid") {
		t.Errorf("output missing 'Configuration is valid', got: %s", output)
	}
	if !strings.Contains(output, "coder") {
		t.Errorf("output missing team member 'coder', got: %s", output)
	}
}

func TestApp_ValidateConfigInvalid(t *testing.T) {
	configPath := writeConfig(t, `
name: ""
version: ""
`)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"validate-config", "-c", configPath})
	if err == nil {
		t.Fatal("validate-config should fail for an invalid config")
	}
}

func TestApp_ValidateConfigMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"validate-config", "-c", "/nonexistent/config.yaml"})
	if err == nil {
		t.Fatal("validate-config should fail for a missing file")
	}
}
