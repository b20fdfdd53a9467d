package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldteam/orchestrator/domain/ledger"
	"github.com/fieldteam/orchestrator/domain/memory"
	"github.com/fieldteam/orchestrator/domain/message"
	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/domain/policy"
	"github.com/fieldteam/orchestrator/domain/session"
	"github.com/fieldteam/orchestrator/domain/team"
	"github.com/fieldteam/orchestrator/infrastructure/bus"
	"github.com/fieldteam/orchestrator/infrastructure/dispatch"
	"github.com/fieldteam/orchestrator/infrastructure/llm"
	"github.com/fieldteam/orchestrator/infrastructure/resilience"
	"github.com/fieldteam/orchestrator/infrastructure/sentinel"
)

// scriptedAgent replies with a fixed text every time it is dispatched.
type scriptedAgent struct {
	name  string
	reply string
}

func (a *scriptedAgent) Name() string { return a.name }

func (a *scriptedAgent) Stream(ctx context.Context, instruction string, transcript []message.Message) (<-chan team.Event, error) {
	ch := make(chan team.Event, 1)
	ch <- team.Event{Message: message.NewText(message.KindAgentResponse, a.name, a.reply), Final: true}
	close(ch)
	return ch, nil
}

// scriptedProtocol is a fake llm.Protocol driven by pre-set responses, one
// queued per call so a test can script a multi-turn run.
type scriptedProtocol struct {
	plans     []plan.Plan
	planIdx   int
	ledgers   []ledger.ProgressLedger
	ledgerIdx int
	replans   []plan.Plan
	replanIdx int
	final     string
}

func (p *scriptedProtocol) Plan(ctx context.Context, req llm.PlanRequest) (plan.Plan, error) {
	out := p.plans[p.planIdx]
	if p.planIdx < len(p.plans)-1 {
		p.planIdx++
	}
	return out, nil
}

func (p *scriptedProtocol) Replan(ctx context.Context, req llm.ReplanRequest) (plan.Plan, error) {
	out := p.replans[p.replanIdx]
	if p.replanIdx < len(p.replans)-1 {
		p.replanIdx++
	}
	return out, nil
}

func (p *scriptedProtocol) Ledger(ctx context.Context, req llm.LedgerRequest) (ledger.ProgressLedger, error) {
	out := p.ledgers[p.ledgerIdx]
	if p.ledgerIdx < len(p.ledgers)-1 {
		p.ledgerIdx++
	}
	return out, nil
}

func (p *scriptedProtocol) FinalAnswer(ctx context.Context, req llm.FinalAnswerRequest) (string, error) {
	return p.final, nil
}

func (p *scriptedProtocol) CheckCondition(ctx context.Context, req llm.ConditionRequest) (llm.ConditionResult, error) {
	return llm.ConditionResult{ConditionMet: true}, nil
}

func newTestTeam(t *testing.T, names ...string) team.Team {
	t.Helper()
	members := []team.Descriptor{{Name: team.UserProxyName, Description: "relays to the human"}}
	for _, n := range names {
		members = append(members, team.Descriptor{Name: n, Description: n})
	}
	tm, err := team.New(members)
	require.NoError(t, err)
	return tm
}

func completeJudgment(nextAgent string) ledger.ProgressLedger {
	return ledger.ProgressLedger{
		IsCurrentStepComplete: ledger.BoolJudgment{Answer: true, Reason: "done"},
		InstructionOrQuestion: ledger.InstructionOrQuestion{Answer: "continue", AgentName: nextAgent},
		ProgressSummary:       "step complete, moving on",
	}
}

func TestOrchestrator_Run_SingleStepHappyPath(t *testing.T) {
	tm := newTestTeam(t, "coder")
	registry := dispatch.NewRegistry()
	require.NoError(t, registry.Register(&scriptedAgent{name: "coder", reply: "implemented the fix"}))
	require.NoError(t, registry.Register(&scriptedAgent{name: team.UserProxyName, reply: "n/a"}))
	dispatcher := dispatch.New(registry, resilience.DefaultExecutorConfig())

	protocol := &scriptedProtocol{
		plans: []plan.Plan{plan.NewPlan("fix the bug", "have coder fix it", []plan.Step{
			{Title: "fix", Details: "fix the bug", AgentName: "coder"},
		})},
		ledgers: []ledger.ProgressLedger{completeJudgment(team.UserProxyName)},
		final:   "the bug is fixed",
	}

	sess := session.New("sess-1", "fix the bug", []string{"coder", team.UserProxyName})
	orch := New(Config{
		Session:    sess,
		Team:       tm,
		Budget:     policy.UnlimitedBudget(),
		Protocol:   protocol,
		Dispatcher: dispatcher,
		Publisher:  bus.New(),
	})

	answer, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "the bug is fixed", answer)
	assert.Equal(t, session.PhaseDone, sess.Phase)
}

func TestOrchestrator_Run_DirectResponseSkipsExecution(t *testing.T) {
	tm := newTestTeam(t)
	registry := dispatch.NewRegistry()
	require.NoError(t, registry.Register(&scriptedAgent{name: team.UserProxyName, reply: "n/a"}))
	dispatcher := dispatch.New(registry, resilience.DefaultExecutorConfig())

	protocol := &scriptedProtocol{
		plans: []plan.Plan{plan.NewDirectResponse("what is 2+2", "4")},
	}

	sess := session.New("sess-2", "what is 2+2", []string{team.UserProxyName})
	orch := New(Config{
		Session:    sess,
		Team:       tm,
		Budget:     policy.UnlimitedBudget(),
		Protocol:   protocol,
		Dispatcher: dispatcher,
		Publisher:  bus.New(),
	})

	answer, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4", answer)
	assert.Equal(t, session.PhaseDone, sess.Phase)
}

func TestOrchestrator_Run_ReplanOnLedgerVerdict(t *testing.T) {
	tm := newTestTeam(t, "coder")
	registry := dispatch.NewRegistry()
	require.NoError(t, registry.Register(&scriptedAgent{name: "coder", reply: "partial attempt"}))
	require.NoError(t, registry.Register(&scriptedAgent{name: team.UserProxyName, reply: "n/a"}))
	dispatcher := dispatch.New(registry, resilience.DefaultExecutorConfig())

	firstPlan := plan.NewPlan("fix the bug", "have coder fix it", []plan.Step{
		{Title: "fix", Details: "fix the bug", AgentName: "coder"},
	})
	secondPlan := firstPlan.Replan("try a different approach", []plan.Step{
		{Title: "retry", Details: "retry the fix", AgentName: "coder"},
	})

	protocol := &scriptedProtocol{
		plans:   []plan.Plan{firstPlan},
		replans: []plan.Plan{secondPlan},
		ledgers: []ledger.ProgressLedger{
			{
				NeedToReplan:          ledger.BoolJudgment{Answer: true, Reason: "stuck"},
				InstructionOrQuestion: ledger.InstructionOrQuestion{Answer: "retry", AgentName: "coder"},
				ProgressSummary:       "coder is stuck, needs a new plan",
			},
			completeJudgment(team.UserProxyName),
		},
		final: "fixed on the second try",
	}

	sess := session.New("sess-3", "fix the bug", []string{"coder", team.UserProxyName})
	orch := New(Config{
		Session:    sess,
		Team:       tm,
		Budget:     policy.UnlimitedBudget(),
		Protocol:   protocol,
		Dispatcher: dispatcher,
		Publisher:  bus.New(),
	})

	answer, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed on the second try", answer)
	assert.Equal(t, 1, sess.ReplanCount)
}

func TestOrchestrator_Run_AwaitingHumanRoundTrip(t *testing.T) {
	tm := newTestTeam(t, "coder")
	registry := dispatch.NewRegistry()
	require.NoError(t, registry.Register(&scriptedAgent{name: "coder", reply: "I need clarification"}))
	require.NoError(t, registry.Register(&scriptedAgent{name: team.UserProxyName, reply: "use option B"}))
	dispatcher := dispatch.New(registry, resilience.DefaultExecutorConfig())

	p := plan.NewPlan("fix the bug", "have coder fix it", []plan.Step{
		{Title: "fix", Details: "fix the bug", AgentName: "coder"},
	})
	protocol := &scriptedProtocol{
		plans: []plan.Plan{p},
		ledgers: []ledger.ProgressLedger{
			{
				InstructionOrQuestion: ledger.InstructionOrQuestion{Answer: "which option?", AgentName: team.UserProxyName},
				ProgressSummary:       "coder needs clarification",
			},
			completeJudgment(team.UserProxyName),
		},
		final: "fixed using option B",
	}

	sess := session.New("sess-4", "fix the bug", []string{"coder", team.UserProxyName})
	orch := New(Config{
		Session:    sess,
		Team:       tm,
		Budget:     policy.UnlimitedBudget(),
		Protocol:   protocol,
		Dispatcher: dispatcher,
		Publisher:  bus.New(),
	})

	answer, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed using option B", answer)
}

func TestOrchestrator_Run_ReplanBudgetExhaustionFails(t *testing.T) {
	tm := newTestTeam(t, "coder")
	registry := dispatch.NewRegistry()
	require.NoError(t, registry.Register(&scriptedAgent{name: "coder", reply: "still stuck"}))
	require.NoError(t, registry.Register(&scriptedAgent{name: team.UserProxyName, reply: "n/a"}))
	dispatcher := dispatch.New(registry, resilience.DefaultExecutorConfig())

	p := plan.NewPlan("fix the bug", "have coder fix it", []plan.Step{
		{Title: "fix", Details: "fix the bug", AgentName: "coder"},
	})
	stuck := ledger.ProgressLedger{
		NeedToReplan:          ledger.BoolJudgment{Answer: true, Reason: "stuck"},
		InstructionOrQuestion: ledger.InstructionOrQuestion{Answer: "retry", AgentName: "coder"},
		ProgressSummary:       "coder is stuck",
	}
	protocol := &scriptedProtocol{
		plans:   []plan.Plan{p},
		replans: []plan.Plan{p.Replan("retry", p.Steps)},
		ledgers: []ledger.ProgressLedger{stuck},
	}

	sess := session.New("sess-5", "fix the bug", []string{"coder", team.UserProxyName})
	orch := New(Config{
		Session:    sess,
		Team:       tm,
		Budget:     policy.NewBudget(map[string]int{"replan_count": 0}),
		Protocol:   protocol,
		Dispatcher: dispatcher,
		Publisher:  bus.New(),
	})

	_, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, session.PhaseFailed, sess.Phase)
}

func TestOrchestrator_Run_SentinelFollowUpTriggersReplan(t *testing.T) {
	tm := newTestTeam(t, "monitor")
	registry := dispatch.NewRegistry()
	require.NoError(t, registry.Register(&scriptedAgent{name: "monitor", reply: "still waiting"}))
	require.NoError(t, registry.Register(&scriptedAgent{name: team.UserProxyName, reply: "n/a"}))
	dispatcher := dispatch.New(registry, resilience.DefaultExecutorConfig())

	watchPlan := plan.NewPlan("watch the build", "have monitor watch it", []plan.Step{
		{
			Title: "watch", Details: "poll the build status", AgentName: "monitor",
			Type: plan.StepSentinel, Condition: "5", ConditionType: plan.ConditionCount,
			SleepDuration: time.Millisecond,
		},
	})
	revisedPlan := plan.NewDirectResponse("watch the build", "noted the follow-up, build watch superseded")

	protocol := &scriptedProtocol{
		plans:   []plan.Plan{watchPlan},
		replans: []plan.Plan{revisedPlan},
	}

	sess := session.New("sess-6", "watch the build", []string{"monitor", team.UserProxyName})
	sess.SetFollowUp("actually, also check the staging deploy")

	sched := sentinel.NewScheduler(protocol, dispatcher, sentinel.NewMemoryStore(), bus.New())
	orch := New(Config{
		Session:            sess,
		Team:               tm,
		Budget:             policy.UnlimitedBudget(),
		Protocol:           protocol,
		Dispatcher:         dispatcher,
		Sentinel:           sched,
		Publisher:          bus.New(),
		AllowFollowUpInput: true,
	})

	answer, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "noted the follow-up, build watch superseded", answer)
	assert.Equal(t, 1, sess.ReplanCount)

	found := false
	for _, m := range sess.Transcript {
		if m.Text() == "actually, also check the staging deploy" {
			found = true
		}
	}
	assert.True(t, found, "expected the follow-up message to be recorded on the transcript")
}

func TestOrchestrator_Run_MemoryReuseSkipsPlanningCall(t *testing.T) {
	tm := newTestTeam(t, "coder")
	registry := dispatch.NewRegistry()
	require.NoError(t, registry.Register(&scriptedAgent{name: "coder", reply: "done"}))
	require.NoError(t, registry.Register(&scriptedAgent{name: team.UserProxyName, reply: "n/a"}))
	dispatcher := dispatch.New(registry, resilience.DefaultExecutorConfig())

	reusablePlan := plan.NewPlan("fix the bug", "have coder fix it", []plan.Step{
		{Title: "fix", Details: "fix the bug", AgentName: "coder"},
	})
	mem := &stubMemoryProvider{
		suggestions: []memory.ScoredPlan{{Plan: reusablePlan, Score: 0.9}},
	}

	protocol := &scriptedProtocol{
		// Deliberately left empty: Plan must never be called in reuse mode
		// when a high-confidence suggestion exists, so indexing into this
		// would panic if the code regressed to calling it anyway.
		ledgers: []ledger.ProgressLedger{completeJudgment("coder")},
		final:   "the bug is fixed",
	}

	sess := session.New("sess-7", "fix the bug", []string{"coder", team.UserProxyName})
	orch := New(Config{
		Session:               sess,
		Team:                  tm,
		Budget:                policy.UnlimitedBudget(),
		Protocol:              protocol,
		Dispatcher:            dispatcher,
		Publisher:             bus.New(),
		Memory:                mem,
		RetrieveRelevantPlans: memory.Reuse,
		MemoryControllerKey:   "team-a",
	})

	answer, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "the bug is fixed", answer)
	assert.Equal(t, "team-a", mem.suggestedKey)
	assert.False(t, mem.recordCalled, "a reused plan should not be re-recorded")
}

func TestOrchestrator_Run_CooperativePlanningAppliesUserEdit(t *testing.T) {
	tm := newTestTeam(t, "coder", "reviewer")
	registry := dispatch.NewRegistry()
	require.NoError(t, registry.Register(&scriptedAgent{name: "coder", reply: "done"}))
	require.NoError(t, registry.Register(&scriptedAgent{name: "reviewer", reply: "looks good"}))

	edit := `{"insert_at":1,"new_steps":[{"title":"review","details":"review the fix","agent_name":"reviewer"}]}`
	userProxy := &scriptedAgent{name: team.UserProxyName, reply: edit}
	require.NoError(t, registry.Register(userProxy))
	dispatcher := dispatch.New(registry, resilience.DefaultExecutorConfig())

	protocol := &scriptedProtocol{
		plans: []plan.Plan{plan.NewPlan("fix the bug", "have coder fix it", []plan.Step{
			{Title: "fix", Details: "fix the bug", AgentName: "coder"},
		})},
		ledgers: []ledger.ProgressLedger{completeJudgment("reviewer"), completeJudgment("reviewer")},
		final:   "the bug is fixed and reviewed",
	}

	sess := session.New("sess-8", "fix the bug", []string{"coder", "reviewer", team.UserProxyName})
	orch := New(Config{
		Session:             sess,
		Team:                tm,
		Budget:              policy.UnlimitedBudget(),
		Protocol:            protocol,
		Dispatcher:          dispatcher,
		Publisher:           bus.New(),
		CooperativePlanning: true,
	})

	answer, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "the bug is fixed and reviewed", answer)
	require.Len(t, sess.Plan.Steps, 2)
	assert.Equal(t, "reviewer", sess.Plan.Steps[1].AgentName)
}

// stubMemoryProvider is a fake memory.Provider driven by fixed suggestions.
type stubMemoryProvider struct {
	suggestions  []memory.ScoredPlan
	suggestedKey string
	recordCalled bool
}

func (m *stubMemoryProvider) SuggestPlans(_ context.Context, controllerKey, _ string) ([]memory.ScoredPlan, error) {
	m.suggestedKey = controllerKey
	return m.suggestions, nil
}

func (m *stubMemoryProvider) RecordPlan(_ context.Context, _, _ string, _ plan.Plan) error {
	m.recordCalled = true
	return nil
}
