package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldteam/orchestrator/domain/message"
	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/domain/team"
	"github.com/fieldteam/orchestrator/infrastructure/dispatch"
	"github.com/fieldteam/orchestrator/infrastructure/resilience"
)

type scriptedAgent struct {
	name   string
	events []team.Event
	err    error
	delay  time.Duration
}

func (a *scriptedAgent) Name() string { return a.name }

func (a *scriptedAgent) Stream(ctx context.Context, instruction string, transcript []message.Message) (<-chan team.Event, error) {
	if a.err != nil {
		return nil, a.err
	}
	ch := make(chan team.Event, len(a.events))
	go func() {
		defer close(ch)
		for _, e := range a.events {
			if a.delay > 0 {
				select {
				case <-time.After(a.delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case ch <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func fastConfig() resilience.ExecutorConfig {
	cfg := resilience.DefaultExecutorConfig()
	cfg.DefaultTimeout = 2 * time.Second
	cfg.RetryMaxAttempts = 1
	return cfg
}

func TestDispatcher_Dispatch_CollectsEvents(t *testing.T) {
	t.Parallel()

	registry := dispatch.NewRegistry()
	final := message.NewText(message.KindAgentResponse, "coder", "done")
	agent := &scriptedAgent{
		name: "coder",
		events: []team.Event{
			{Message: message.NewText(message.KindMultimodal, "coder", "working...")},
			{Message: final, Final: true},
		},
	}
	if err := registry.Register(agent); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	d := dispatch.New(registry, fastConfig())
	result, err := d.Dispatch(context.Background(), "coder", "do the thing", nil)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("Events len = %d, want 2", len(result.Events))
	}
	if result.Response.Text() != "done" {
		t.Errorf("Response.Text() = %q, want %q", result.Response.Text(), "done")
	}
}

func TestDispatcher_Dispatch_UnknownAgent(t *testing.T) {
	t.Parallel()

	d := dispatch.New(dispatch.NewRegistry(), fastConfig())
	_, err := d.Dispatch(context.Background(), "ghost", "do it", nil)
	if !errors.Is(err, dispatch.ErrUnknownAgent) {
		t.Errorf("Dispatch() error = %v, want ErrUnknownAgent", err)
	}
}

func TestDispatcher_Dispatch_UserProxyBypassesRetry(t *testing.T) {
	t.Parallel()

	registry := dispatch.NewRegistry()
	attempts := 0
	agent := &scriptedAgentFunc{
		name: team.UserProxyName,
		fn: func(ctx context.Context) (<-chan team.Event, error) {
			attempts++
			return nil, errors.New("boom")
		},
	}
	if err := registry.Register(agent); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	d := dispatch.New(registry, fastConfig())
	_, err := d.Dispatch(context.Background(), team.UserProxyName, "ask the user", nil)
	if err == nil {
		t.Fatal("Dispatch() expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry for user_proxy)", attempts)
	}
}

func TestDispatcher_Dispatch_TimeoutSurfacesAsCancellation(t *testing.T) {
	t.Parallel()

	registry := dispatch.NewRegistry()
	agent := &scriptedAgent{
		name:  "slow",
		delay: 200 * time.Millisecond,
		events: []team.Event{
			{Message: message.NewText(message.KindAgentResponse, "slow", "too late"), Final: true},
		},
	}
	if err := registry.Register(agent); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	cfg := fastConfig()
	cfg.DefaultTimeout = 10 * time.Millisecond
	d := dispatch.New(registry, cfg)

	_, err := d.Dispatch(context.Background(), "slow", "go", nil)
	if err == nil {
		t.Fatal("Dispatch() expected a timeout error")
	}
}

func TestFormatInstruction(t *testing.T) {
	t.Parallel()

	step := plan.Step{Title: "Research", Details: "Find pricing data", AgentName: "researcher"}
	text := dispatch.FormatInstruction(2, step, "Summarize the top three competitors.")

	if !contains(text, "Step 2") || !contains(text, "Research") || !contains(text, "Find pricing data") || !contains(text, "Summarize the top three competitors.") {
		t.Errorf("FormatInstruction() = %q, missing expected fields", text)
	}
}

type scriptedAgentFunc struct {
	name string
	fn   func(ctx context.Context) (<-chan team.Event, error)
}

func (a *scriptedAgentFunc) Name() string { return a.name }

func (a *scriptedAgentFunc) Stream(ctx context.Context, instruction string, transcript []message.Message) (<-chan team.Event, error) {
	return a.fn(ctx)
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
