// Package llm implements the Orchestrator's LLM Protocol Layer: typed
// plan/replan/ledger/check_condition/final_answer calls, each a prompt
// template plus a tolerant JSON parser, a validator, and a bounded retry
// policy. It is the only component allowed to format prompts; callers pass
// structured requests and receive validated domain types.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fieldteam/orchestrator/domain/ledger"
	"github.com/fieldteam/orchestrator/domain/message"
	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/fieldteam/orchestrator/domain/team"
	"github.com/fieldteam/orchestrator/infrastructure/logging"
)

// DefaultMaxJSONRetries bounds how many times a malformed or invalid
// response is retried with a repair hint before ProtocolFailure is raised.
const DefaultMaxJSONRetries = 3

// ProtocolFailure is returned when a Protocol call exhausts its retries
// without producing a response that parses and validates. Callers surface
// it as a replan trigger or a terminal session failure per the
// Orchestrator's error-handling policy.
type ProtocolFailure struct {
	Call    string
	Attempts int
	Err     error
}

func (e *ProtocolFailure) Error() string {
	return fmt.Sprintf("llm: %s protocol call failed after %d attempts: %v", e.Call, e.Attempts, e.Err)
}

func (e *ProtocolFailure) Unwrap() error { return e.Err }

// PlanRequest carries the inputs to the plan call.
type PlanRequest struct {
	Task            string
	Team            team.Team
	PriorMessages   []message.Message
	SentinelEnabled bool
	// Hints are memory-provider plan suggestions rendered into the prompt
	// (spec's retrieve_relevant_plans="hint").
	Hints []string
	// AllowedWebsites restricts which sites a web-browsing step may visit
	// (spec's allowed_websites), rendered as a planning constraint.
	AllowedWebsites []string
}

// ReplanRequest carries the inputs to the replan call.
type ReplanRequest struct {
	Task            string
	PriorPlan       plan.Plan
	Transcript      []message.Message
	Team            team.Team
	SentinelEnabled bool
	AllowedWebsites []string
}

// LedgerRequest carries the inputs to the ledger call.
type LedgerRequest struct {
	Task       string
	Plan       plan.Plan
	StepIndex  int
	Team       team.Team
	Transcript []message.Message
}

// ConditionRequest carries the inputs to the check_condition call.
type ConditionRequest struct {
	StepDescription string
	ConditionText   string
	AgentResponse   string
}

// ConditionResult is the check_condition call's structured verdict.
type ConditionResult struct {
	ConditionMet        bool
	Reason              string
	SleepDuration        time.Duration
	SleepDurationReason string
}

// FinalAnswerRequest carries the inputs to the final_answer call.
type FinalAnswerRequest struct {
	Task       string
	Transcript []message.Message
}

// Protocol is the Orchestrator's LLM Protocol Layer contract: five typed
// calls, each a prompt template + parser + validator + retry policy.
type Protocol interface {
	Plan(ctx context.Context, req PlanRequest) (plan.Plan, error)
	Replan(ctx context.Context, req ReplanRequest) (plan.Plan, error)
	Ledger(ctx context.Context, req LedgerRequest) (ledger.ProgressLedger, error)
	CheckCondition(ctx context.Context, req ConditionRequest) (ConditionResult, error)
	FinalAnswer(ctx context.Context, req FinalAnswerRequest) (string, error)
}

// LLMProtocol is the Provider-backed implementation of Protocol.
type LLMProtocol struct {
	provider            Provider
	model               string
	temperature         float64
	maxTokens           int
	maxJSONRetries      int
	maxContextTokens    int
	finalAnswerTemplate string
	callTimeout         time.Duration
	language            string
}

// Config configures an LLMProtocol.
type Config struct {
	Provider       Provider
	Model          string
	Temperature    float64
	MaxTokens      int
	MaxJSONRetries int
	// MaxContextTokens upper-bounds the transcript history passed to the
	// provider on every call (spec's model_context_token_limit). Older
	// messages are dropped head-first once the estimate exceeds it. Zero
	// disables truncation.
	MaxContextTokens int
	// FinalAnswerTemplate overrides the default Finalizing-phase prompt
	// (spec's final_answer_prompt) when non-empty.
	FinalAnswerTemplate string
	// CallTimeout bounds a single provider call (spec's per_llm_timeout).
	// Zero leaves the call bounded only by ctx.
	CallTimeout time.Duration
	// Language selects the prompt-template variant (spec's language ∈
	// {en, zh}). Empty behaves as "en".
	Language string
}

// New creates a new LLM-backed Protocol Layer.
func New(config Config) *LLMProtocol {
	temperature := config.Temperature
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}
	maxRetries := config.MaxJSONRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxJSONRetries
	}
	return &LLMProtocol{
		provider:            config.Provider,
		model:               config.Model,
		temperature:         temperature,
		maxTokens:           maxTokens,
		maxJSONRetries:      maxRetries,
		maxContextTokens:    config.MaxContextTokens,
		finalAnswerTemplate: config.FinalAnswerTemplate,
		callTimeout:         config.CallTimeout,
		language:            config.Language,
	}
}

// Plan implements Protocol.
func (p *LLMProtocol) Plan(ctx context.Context, req PlanRequest) (plan.Plan, error) {
	prompt := buildPlanPrompt(req.Task, req.Team, req.SentinelEnabled, p.language, req.Hints, req.AllowedWebsites)
	agentNames := teamMembershipSet(req.Team)

	var result plan.Plan
	err := p.callWithRetry(ctx, "plan", prompt, func(content string) error {
		parsed, perr := parsePlanResponse(content, req.Task)
		if perr != nil {
			return perr
		}
		parsed = plan.Normalize(parsed)
		if verr := plan.Validate(parsed, agentNames); verr != nil {
			return verr
		}
		result = parsed
		return nil
	})
	if err != nil {
		return plan.Plan{}, err
	}
	return result, nil
}

// Replan implements Protocol.
func (p *LLMProtocol) Replan(ctx context.Context, req ReplanRequest) (plan.Plan, error) {
	prompt := buildReplanPrompt(req.Task, req.PriorPlan, req.Team, req.SentinelEnabled, p.language, req.AllowedWebsites)
	agentNames := teamMembershipSet(req.Team)

	var result plan.Plan
	err := p.callWithRetry(ctx, "replan", prompt, func(content string) error {
		parsed, perr := parsePlanResponse(content, req.Task)
		if perr != nil {
			return perr
		}
		parsed = plan.Normalize(parsed)
		if verr := plan.Validate(parsed, agentNames); verr != nil {
			return verr
		}
		result = req.PriorPlan.Replan(parsed.Summary, parsed.Steps)
		return nil
	})
	if err != nil {
		return plan.Plan{}, err
	}
	return result, nil
}

// Ledger implements Protocol.
func (p *LLMProtocol) Ledger(ctx context.Context, req LedgerRequest) (ledger.ProgressLedger, error) {
	prompt := buildLedgerPrompt(req.Task, req.Plan, req.StepIndex, req.Team)
	agentNames := teamMembershipSet(req.Team)

	var result ledger.ProgressLedger
	err := p.callWithRetry(ctx, "ledger", prompt, func(content string) error {
		var pl ledger.ProgressLedger
		if jerr := json.Unmarshal([]byte(extractJSON(content)), &pl); jerr != nil {
			return fmt.Errorf("invalid ledger JSON: %w", jerr)
		}
		if verr := ledger.Validate(pl, agentNames); verr != nil {
			return verr
		}
		result = pl
		return nil
	})
	if err != nil {
		return ledger.ProgressLedger{}, err
	}
	return result, nil
}

// CheckCondition implements Protocol.
func (p *LLMProtocol) CheckCondition(ctx context.Context, req ConditionRequest) (ConditionResult, error) {
	prompt := buildConditionPrompt(req.StepDescription, req.ConditionText, req.AgentResponse)

	type conditionResponse struct {
		ConditionMet        bool   `json:"condition_met"`
		Reason              string `json:"reason"`
		SleepDurationSeconds int   `json:"sleep_duration_seconds"`
		SleepDurationReason string `json:"sleep_duration_reason"`
	}

	var result ConditionResult
	err := p.callWithRetry(ctx, "check_condition", prompt, func(content string) error {
		var resp conditionResponse
		if jerr := json.Unmarshal([]byte(extractJSON(content)), &resp); jerr != nil {
			return fmt.Errorf("invalid condition-check JSON: %w", jerr)
		}
		if resp.SleepDurationSeconds <= 0 {
			return fmt.Errorf("condition-check response: sleep_duration_seconds must be positive")
		}
		if strings.TrimSpace(resp.Reason) == "" {
			return fmt.Errorf("condition-check response: reason is required")
		}
		result = ConditionResult{
			ConditionMet:        resp.ConditionMet,
			Reason:              resp.Reason,
			SleepDuration:        time.Duration(resp.SleepDurationSeconds) * time.Second,
			SleepDurationReason: resp.SleepDurationReason,
		}
		return nil
	})
	if err != nil {
		return ConditionResult{}, err
	}
	return result, nil
}

// FinalAnswer implements Protocol.
func (p *LLMProtocol) FinalAnswer(ctx context.Context, req FinalAnswerRequest) (string, error) {
	prompt := buildFinalAnswerPrompt(req.Task, p.finalAnswerTemplate, p.language)
	messages := p.transcriptMessages(req.Transcript)
	messages = append(messages, Message{Role: "user", Content: prompt})

	resp, err := p.complete(ctx, messages)
	if err != nil {
		return "", &ProtocolFailure{Call: "final_answer", Attempts: 1, Err: err}
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// callWithRetry submits prompt as a user message and applies parse to the
// response content, retrying with an escalating repair hint up to
// maxJSONRetries times before raising ProtocolFailure.
func (p *LLMProtocol) callWithRetry(ctx context.Context, call, prompt string, parse func(content string) error) error {
	messages := []Message{{Role: "user", Content: prompt}}

	var lastErr error
	for attempt := 1; attempt <= p.maxJSONRetries; attempt++ {
		resp, err := p.complete(ctx, messages)
		if err != nil {
			lastErr = err
			continue
		}

		if perr := parse(resp.Message.Content); perr != nil {
			lastErr = perr
			logging.Debug().
				Add(logging.Component("llm")).
				Add(logging.Operation(call)).
				Add(logging.ErrorField(perr)).
				Msg("protocol response failed validation, retrying")
			messages = append(messages,
				Message{Role: "assistant", Content: resp.Message.Content},
				Message{Role: "user", Content: repairHint(perr)},
			)
			continue
		}
		return nil
	}
	return &ProtocolFailure{Call: call, Attempts: p.maxJSONRetries, Err: lastErr}
}

func (p *LLMProtocol) complete(ctx context.Context, messages []Message) (CompletionResponse, error) {
	if p.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}

	req := CompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}
	resp, err := p.provider.Complete(ctx, req)
	if err != nil {
		return CompletionResponse{}, err
	}
	if resp.Error != nil {
		return CompletionResponse{}, resp.Error
	}
	return resp, nil
}

func (p *LLMProtocol) transcriptMessages(transcript []message.Message) []Message {
	out := make([]Message, 0, len(transcript))
	for _, m := range transcript {
		out = append(out, Message{
			Role:    transcriptRole(m),
			Content: m.ToModelText("[see attached]"),
		})
	}
	return truncateToTokenLimit(out, p.maxContextTokens)
}

// estimatedTokens approximates a message's token cost at four characters
// per token, the same rough ratio most providers' own tokenizers land
// near for English prose — good enough for a context budget, not for
// billing.
func estimatedTokens(content string) int {
	return len(content)/4 + 1
}

// truncateToTokenLimit drops the oldest messages until the remaining
// transcript's estimated token cost fits within limit (spec's
// model_context_token_limit: "older messages are ... truncated
// head-first"). limit <= 0 disables truncation.
func truncateToTokenLimit(messages []Message, limit int) []Message {
	if limit <= 0 {
		return messages
	}

	total := 0
	for _, m := range messages {
		total += estimatedTokens(m.Content)
	}
	if total <= limit {
		return messages
	}

	start := 0
	for start < len(messages) && total > limit {
		total -= estimatedTokens(messages[start].Content)
		start++
	}
	return messages[start:]
}

func transcriptRole(m message.Message) string {
	if m.Kind == message.KindUserText {
		return "user"
	}
	return "assistant"
}

func repairHint(err error) string {
	return fmt.Sprintf("Your previous response was invalid: %s\nRespond again with pure JSON matching the required schema, and nothing else.", err)
}

func teamMembershipSet(t team.Team) map[string]bool {
	names := make(map[string]bool, len(t.Members))
	for _, m := range t.Members {
		names[m.Name] = true
	}
	return names
}

// planResponse is the wire shape of a plan/replan JSON response, matching
// validate_plan_json's required keys (task, steps, needs_plan, response,
// plan_summary) plus the optional SentinelPlanStep fields.
type planResponse struct {
	Task        string             `json:"task"`
	NeedsPlan   bool               `json:"needs_plan"`
	Response    string             `json:"response"`
	PlanSummary string             `json:"plan_summary"`
	Steps       []planResponseStep `json:"steps"`
}

type planResponseStep struct {
	Title         string `json:"title"`
	Details       string `json:"details"`
	AgentName     string `json:"agent_name"`
	StepType      string `json:"step_type,omitempty"`
	Condition     string `json:"condition,omitempty"`
	SleepDuration int    `json:"sleep_duration,omitempty"`
}

func parsePlanResponse(content, task string) (plan.Plan, error) {
	var resp planResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		return plan.Plan{}, fmt.Errorf("invalid plan JSON: %w (content: %s)", err, truncate(content, 200))
	}

	if !resp.NeedsPlan {
		return plan.NewDirectResponse(task, resp.Response), nil
	}

	steps := make([]plan.Step, len(resp.Steps))
	for i, s := range resp.Steps {
		step := plan.Step{
			Title:     s.Title,
			Details:   s.Details,
			AgentName: s.AgentName,
		}
		if s.StepType == string(plan.StepSentinel) {
			step.Type = plan.StepSentinel
			step.Condition = s.Condition
			if s.SleepDuration > 0 {
				step.SleepDuration = time.Duration(s.SleepDuration) * time.Second
			}
		}
		steps[i] = step
	}

	summary := resp.PlanSummary
	p := plan.NewPlan(task, summary, steps)
	return p, nil
}

// ExtractJSON exposes the Protocol Layer's tolerant JSON-cleaning rules to
// callers outside the package that need to parse a free-text LLM or human
// reply the same way (e.g. the Orchestrator parsing a plan-edit response).
func ExtractJSON(content string) string {
	return extractJSON(content)
}

// extractJSON applies the Protocol Layer's tolerant parsing rules: strip
// leading/trailing whitespace, ```json fences, <think>...</think>
// reasoning prefixes, and trailing prose by truncating at the last
// balanced closing brace.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "</think>"); idx != -1 {
		content = strings.TrimSpace(content[idx+len("</think>"):])
	}

	content = stripCodeFence(content)
	content = strings.TrimSpace(content)

	start := strings.IndexByte(content, '{')
	if start == -1 {
		return content
	}

	depth := 0
	end := -1
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
	}
	if end == -1 {
		return content[start:]
	}
	return content[start : end+1]
}

func stripCodeFence(content string) string {
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
