package session

import (
	"encoding/json"
	"time"

	"github.com/fieldteam/orchestrator/domain/message"
	"github.com/fieldteam/orchestrator/domain/plan"
)

// Status tracks the session's lifecycle independently of Phase: a session
// can be Paused in any non-terminal phase while awaiting human input.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// State is the Orchestrator's aggregate root: one orchestration session
// from task intake through final answer.
type State struct {
	ID     string `json:"id"`
	Task   string `json:"task"`
	Team   []string `json:"team"`
	Phase  Phase  `json:"phase"`
	Status Status `json:"status"`

	Plan *plan.Plan `json:"plan,omitempty"`

	// StepIndex is the index into Plan.Steps currently being worked.
	StepIndex int `json:"step_index"`

	// StepAttempts counts consecutive ledger turns spent on the current
	// step without it completing, reset whenever StepIndex advances.
	StepAttempts int `json:"step_attempts"`

	// ReplanCount counts how many times this session has replanned.
	ReplanCount int `json:"replan_count"`

	// Transcript is the ordered message history shared across agents.
	Transcript []message.Message `json:"transcript"`

	// Vars holds session-scoped key/value state (e.g. extracted facts)
	// separate from the transcript.
	Vars map[string]any `json:"vars"`

	// PendingFollowUp holds a user message that arrived while a sentinel
	// step was sleeping, surfaced to the Orchestrator as a replan trigger
	// at the scheduler's next checkpoint.
	PendingFollowUp *string `json:"pending_follow_up,omitempty"`

	// PendingQuestion holds the question posed to user_proxy while the
	// session is parked in PhaseAwaitingHuman, cleared once answered.
	PendingQuestion *string `json:"pending_question,omitempty"`

	// LastInstruction and LastInstructionAgent record the most recent
	// dispatch instruction and its target agent, used by the loop guard
	// to detect three consecutive identical dispatches.
	LastInstruction      string `json:"last_instruction,omitempty"`
	LastInstructionAgent string `json:"last_instruction_agent,omitempty"`
	RepeatedInstructions int    `json:"repeated_instructions"`

	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// New creates a new session for the given task and team, in
// PhaseAwaitingTask.
func New(id, task string, team []string) *State {
	return &State{
		ID:        id,
		Task:      task,
		Team:      team,
		Phase:     PhaseAwaitingTask,
		Status:    StatusPending,
		Vars:      make(map[string]any),
		StartTime: time.Now(),
	}
}

// Start marks the session as running and advances it to PhasePlanning.
func (s *State) Start() {
	s.Status = StatusRunning
	s.Phase = PhasePlanning
	s.StartTime = time.Now()
}

// TransitionTo moves the session to a new phase, stamping EndTime and the
// terminal status when the new phase is terminal. Callers are expected to
// have already validated the transition against
// infrastructure/statemachine's transition table.
func (s *State) TransitionTo(phase Phase) {
	s.Phase = phase
	if phase.IsTerminal() {
		s.EndTime = time.Now()
		if phase == PhaseDone {
			s.Status = StatusCompleted
		} else {
			s.Status = StatusFailed
		}
	}
}

// AdoptPlan installs a freshly produced or revised plan and resets
// per-step counters.
func (s *State) AdoptPlan(p plan.Plan) {
	s.Plan = &p
	s.StepIndex = 0
	s.StepAttempts = 0
}

// AdvanceStep moves to the next plan step and resets the per-step attempt
// counter and loop guard.
func (s *State) AdvanceStep() {
	s.StepIndex++
	s.StepAttempts = 0
	s.RepeatedInstructions = 0
	s.LastInstruction = ""
	s.LastInstructionAgent = ""
}

// RecordAttempt increments the attempt counter for the current step.
func (s *State) RecordAttempt() {
	s.StepAttempts++
}

// RecordReplan increments the replan counter and clears per-step state.
func (s *State) RecordReplan() {
	s.ReplanCount++
	s.StepAttempts = 0
	s.RepeatedInstructions = 0
}

// RecordDispatch records the instruction just sent to an agent, tracking
// repeated identical dispatches for the Orchestrator's loop guard. Returns
// the updated repeat count.
func (s *State) RecordDispatch(agentName, instruction string) int {
	if agentName == s.LastInstructionAgent && instruction == s.LastInstruction {
		s.RepeatedInstructions++
	} else {
		s.RepeatedInstructions = 1
		s.LastInstructionAgent = agentName
		s.LastInstruction = instruction
	}
	return s.RepeatedInstructions
}

// AppendMessage appends a message to the transcript.
func (s *State) AppendMessage(m message.Message) {
	s.Transcript = append(s.Transcript, m)
}

// SetFollowUp records a user message that arrived out of turn (typically
// during a sentinel sleep).
func (s *State) SetFollowUp(text string) {
	s.PendingFollowUp = &text
}

// TakeFollowUp clears and returns any pending follow-up message.
func (s *State) TakeFollowUp() (string, bool) {
	if s.PendingFollowUp == nil {
		return "", false
	}
	text := *s.PendingFollowUp
	s.PendingFollowUp = nil
	return text, true
}

// FollowUp reports any pending follow-up message without clearing it, so a
// sentinel scheduler can poll for one mid-sleep without racing the
// Orchestrator's own consumption of it via TakeFollowUp.
func (s *State) FollowUp() (string, bool) {
	if s.PendingFollowUp == nil {
		return "", false
	}
	return *s.PendingFollowUp, true
}

// AskQuestion records the question posed to user_proxy and parks the
// session awaiting a response.
func (s *State) AskQuestion(text string) {
	s.PendingQuestion = &text
}

// AnswerQuestion clears and returns the pending question, recording the
// user's response on the transcript is the caller's responsibility.
func (s *State) AnswerQuestion() (string, bool) {
	if s.PendingQuestion == nil {
		return "", false
	}
	text := *s.PendingQuestion
	s.PendingQuestion = nil
	return text, true
}

// Pause suspends the session, typically while PhaseAwaitingHuman.
func (s *State) Pause() {
	s.Status = StatusPaused
}

// Resume continues a paused session.
func (s *State) Resume() {
	if s.Status == StatusPaused {
		s.Status = StatusRunning
	}
}

// Complete marks the session successfully finished.
func (s *State) Complete(result json.RawMessage) {
	s.Status = StatusCompleted
	s.Phase = PhaseDone
	s.EndTime = time.Now()
	s.Result = result
}

// Fail marks the session failed with an error.
func (s *State) Fail(err string) {
	s.Status = StatusFailed
	s.Phase = PhaseFailed
	s.EndTime = time.Now()
	s.Error = err
}

// SetVar sets a session-scoped variable.
func (s *State) SetVar(key string, value any) {
	s.Vars[key] = value
}

// GetVar retrieves a session-scoped variable.
func (s *State) GetVar(key string) (any, bool) {
	v, ok := s.Vars[key]
	return v, ok
}

// IsTerminal reports whether the session has reached a terminal phase.
func (s *State) IsTerminal() bool {
	return s.Phase.IsTerminal()
}

// Duration returns the session's elapsed wall-clock time.
func (s *State) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}
