package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestApp_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	if err := app.ExecuteWithArgs(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "orchestrator version") {
		t.Errorf("version output missing 'orchestrator version', got: %s", stdout.String())
	}
}

func TestApp_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	if err := app.ExecuteWithArgs(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "run") {
		t.Errorf("help output missing 'run' command, got: %s", output)
	}
	if !strings.Contains(output, "validate-config") {
		t.Errorf("help output missing 'validate-config' command, got: %s", output)
	}
}

func TestApp_RunDryRun(t *testing.T) {
	configPath := writeConfig(t, `
name: test-orchestrator
version: "1.0"
orchestrator:
  max_steps: 10
team:
  members:
    - name: user_proxy
      description: Relays questions to the human operator.
`)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"run", "-c", configPath, "--dry-run", "Test task"})
	if err != nil {
		t.Fatalf("run --dry-run failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "validated successfully") {
		t.Errorf("run --dry-run output missing 'validated successfully', got: %s", stdout.String())
	}
}

func TestApp_RunNoTask(t *testing.T) {
	configPath := writeConfig(t, `
name: test-orchestrator
version: "1.0"
team:
  members:
    - name: user_proxy
      description: Relays questions to the human operator.
`)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"run", "-c", configPath})
	if err == nil {
		t.Fatal("run without a task should fail")
	}
	if !strings.Contains(err.Error(), "no task specified") {
		t.Errorf("error should mention 'no task specified', got: %v", err)
	}
}

func TestApp_RunNoProvider(t *testing.T) {
	configPath := writeConfig(t, `
name: test-orchestrator
version: "1.0"
team:
  members:
    - name: user_proxy
      description: Relays questions to the human operator.
`)

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"run", "-c", configPath, "a task"})
	if err == nil {
		t.Fatal("run without an llm provider should fail")
	}
	if !strings.Contains(err.Error(), "no llm provider configured") {
		t.Errorf("error should mention 'no llm provider configured', got: %v", err)
	}
}
