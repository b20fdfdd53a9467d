// Package dispatch implements the Team Registry & Dispatch component
// (spec §4.6): it resolves a plan step's agent_name against a
// team.Registry, builds the verbatim instruction envelope described in
// spec §6.5, and invokes the agent's stream under a resilient,
// per-step-timeout-bounded executor.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldteam/orchestrator/domain/message"
	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/domain/team"
	"github.com/fieldteam/orchestrator/infrastructure/resilience"
)

// ErrUnknownAgent is returned when a step names an agent not present in
// the registry.
var ErrUnknownAgent = errors.New("dispatch: unknown agent")

// Dispatcher sends one step's instruction to its assigned agent and
// collects the resulting events.
type Dispatcher struct {
	registry team.Registry
	executor *resilience.Executor[[]team.Event]
}

// New builds a Dispatcher over registry, resilient per cfg.
func New(registry team.Registry, cfg resilience.ExecutorConfig) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		executor: resilience.NewExecutor[[]team.Event](cfg),
	}
}

// Result is the outcome of one Dispatch call.
type Result struct {
	// Events is every event the agent streamed, in order, including the
	// terminal (Final) one.
	Events []team.Event

	// Response is the terminal event's message, for convenience.
	Response message.Message
}

// Dispatch sends instruction (already formatted per FormatInstruction) to
// agentName's Stream method, collecting every streamed event into a
// Result. Respects ctx for cancellation and the executor's configured
// per-agent timeout. The user_proxy agent bypasses retry/circuit-breaker
// protection — asking a human is not a retryable operation.
func (d *Dispatcher) Dispatch(ctx context.Context, agentName, instruction string, transcript []message.Message) (Result, error) {
	agent, ok := d.registry.Get(agentName)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownAgent, agentName)
	}

	run := func(ctx context.Context) ([]team.Event, error) {
		return drain(ctx, agent, instruction, transcript)
	}

	var (
		events []team.Event
		err    error
	)
	if agentName == team.UserProxyName {
		events, err = d.executor.ExecuteSimple(ctx, run)
	} else {
		events, err = d.executor.Execute(ctx, true, run)
	}
	if err != nil {
		return Result{}, err
	}

	result := Result{Events: events}
	for _, e := range events {
		if e.Final {
			result.Response = e.Message
		}
	}
	return result, nil
}

func drain(ctx context.Context, agent team.Agent, instruction string, transcript []message.Message) ([]team.Event, error) {
	ch, err := agent.Stream(ctx, instruction, transcript)
	if err != nil {
		return nil, err
	}

	var events []team.Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return events, nil
			}
			events = append(events, e)
			if e.Final {
				return events, nil
			}
		case <-ctx.Done():
			return events, ctx.Err()
		}
	}
}

// FormatInstruction renders the plain-text instruction block spec §6.5
// requires agents accept verbatim: the step index, title, details, and
// the ledger-derived instruction text.
func FormatInstruction(stepIndex int, step plan.Step, instructionText string) string {
	return fmt.Sprintf(
		"Step %d: %s\n\n%s\n\nInstruction: %s",
		stepIndex, step.Title, step.Details, instructionText,
	)
}
