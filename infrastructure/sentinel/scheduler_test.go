package sentinel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldteam/orchestrator/domain/ledger"
	"github.com/fieldteam/orchestrator/domain/message"
	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/domain/team"
	"github.com/fieldteam/orchestrator/infrastructure/dispatch"
	"github.com/fieldteam/orchestrator/infrastructure/llm"
	"github.com/fieldteam/orchestrator/infrastructure/resilience"
	"github.com/fieldteam/orchestrator/infrastructure/sentinel"
)

type countingAgent struct {
	name  string
	calls int
}

func (a *countingAgent) Name() string { return a.name }

func (a *countingAgent) Stream(ctx context.Context, instruction string, transcript []message.Message) (<-chan team.Event, error) {
	a.calls++
	ch := make(chan team.Event, 1)
	ch <- team.Event{Message: message.NewText(message.KindAgentResponse, a.name, "checked"), Final: true}
	close(ch)
	return ch, nil
}

type stubProtocol struct {
	results []llm.ConditionResult
	call    int
}

func (s *stubProtocol) Plan(ctx context.Context, req llm.PlanRequest) (plan.Plan, error) {
	return plan.Plan{}, errors.New("not implemented")
}
func (s *stubProtocol) Replan(ctx context.Context, req llm.ReplanRequest) (plan.Plan, error) {
	return plan.Plan{}, errors.New("not implemented")
}
func (s *stubProtocol) Ledger(ctx context.Context, req llm.LedgerRequest) (ledger.ProgressLedger, error) {
	return ledger.ProgressLedger{}, errors.New("not implemented")
}
func (s *stubProtocol) CheckCondition(ctx context.Context, req llm.ConditionRequest) (llm.ConditionResult, error) {
	if s.call >= len(s.results) {
		return llm.ConditionResult{}, errors.New("no more scripted results")
	}
	r := s.results[s.call]
	s.call++
	return r, nil
}
func (s *stubProtocol) FinalAnswer(ctx context.Context, req llm.FinalAnswerRequest) (string, error) {
	return "", errors.New("not implemented")
}

func fastCfg() resilience.ExecutorConfig {
	cfg := resilience.DefaultExecutorConfig()
	cfg.DefaultTimeout = time.Second
	cfg.RetryMaxAttempts = 1
	return cfg
}

func TestScheduler_Run_CountCondition(t *testing.T) {
	t.Parallel()

	registry := dispatch.NewRegistry()
	agent := &countingAgent{name: "monitor"}
	if err := registry.Register(agent); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	d := dispatch.New(registry, fastCfg())

	step := plan.Step{
		Title: "poll", Details: "check status", AgentName: "monitor",
		Type: plan.StepSentinel, Condition: "3", ConditionType: plan.ConditionCount,
		SleepDuration: 1 * time.Millisecond,
	}

	sched := sentinel.NewScheduler(&stubProtocol{}, d, sentinel.NewMemoryStore(), nil)
	state, err := sched.Run(context.Background(), "sess-1", 0, step)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !state.Satisfied {
		t.Error("state.Satisfied = false, want true")
	}
	if agent.calls != 3 {
		t.Errorf("agent.calls = %d, want 3", agent.calls)
	}
}

func TestScheduler_Run_TextCondition(t *testing.T) {
	t.Parallel()

	registry := dispatch.NewRegistry()
	agent := &countingAgent{name: "monitor"}
	if err := registry.Register(agent); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	d := dispatch.New(registry, fastCfg())

	step := plan.Step{
		Title: "poll", Details: "check status", AgentName: "monitor",
		Type: plan.StepSentinel, Condition: "the deploy finished", ConditionType: plan.ConditionText,
		SleepDuration: 1 * time.Millisecond,
	}

	protocol := &stubProtocol{results: []llm.ConditionResult{
		{ConditionMet: false, SleepDuration: time.Millisecond},
		{ConditionMet: false, SleepDuration: time.Millisecond},
		{ConditionMet: true},
	}}

	sched := sentinel.NewScheduler(protocol, d, sentinel.NewMemoryStore(), nil)
	state, err := sched.Run(context.Background(), "sess-2", 0, step)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !state.Satisfied {
		t.Error("state.Satisfied = false, want true")
	}
	if agent.calls != 3 {
		t.Errorf("agent.calls = %d, want 3", agent.calls)
	}
}

func TestScheduler_Run_CancellationPreservesObservations(t *testing.T) {
	t.Parallel()

	registry := dispatch.NewRegistry()
	agent := &countingAgent{name: "monitor"}
	if err := registry.Register(agent); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	d := dispatch.New(registry, fastCfg())

	step := plan.Step{
		Title: "poll", Details: "check status", AgentName: "monitor",
		Type: plan.StepSentinel, Condition: "5", ConditionType: plan.ConditionCount,
		SleepDuration: 50 * time.Millisecond,
	}

	sched := sentinel.NewScheduler(&stubProtocol{}, d, sentinel.NewMemoryStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	state, err := sched.Run(ctx, "sess-3", 0, step)
	if err == nil {
		t.Fatal("Run() expected a cancellation error")
	}
	if state.ExecutionsCompleted == 0 {
		t.Error("state.ExecutionsCompleted = 0, want partial progress preserved")
	}
	if state.Satisfied {
		t.Error("state.Satisfied = true, want false after cancellation")
	}
}

func TestScheduler_Run_FollowUpPendingInterruptsSleep(t *testing.T) {
	t.Parallel()

	registry := dispatch.NewRegistry()
	agent := &countingAgent{name: "monitor"}
	if err := registry.Register(agent); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	d := dispatch.New(registry, fastCfg())

	step := plan.Step{
		Title: "poll", Details: "check status", AgentName: "monitor",
		Type: plan.StepSentinel, Condition: "5", ConditionType: plan.ConditionCount,
		SleepDuration: 1 * time.Millisecond,
	}

	sched := sentinel.NewScheduler(&stubProtocol{}, d, sentinel.NewMemoryStore(), nil)
	sched.SetFollowUpCheck(func(ctx context.Context, sessionID string) (string, bool) {
		return "what about the budget?", true
	})

	state, err := sched.Run(context.Background(), "sess-4", 0, step)
	if !errors.Is(err, sentinel.ErrFollowUpPending) {
		t.Fatalf("Run() error = %v, want ErrFollowUpPending", err)
	}
	if state.Satisfied {
		t.Error("state.Satisfied = true, want false")
	}
	if agent.calls == 0 {
		t.Error("agent.calls = 0, want at least one tick before the follow-up was detected")
	}
}
