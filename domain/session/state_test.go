package session

import (
	"testing"

	"github.com/fieldteam/orchestrator/domain/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StartsAwaitingTask(t *testing.T) {
	s := New("s-1", "book a flight", []string{"user_proxy", "web_surfer"})
	assert.Equal(t, PhaseAwaitingTask, s.Phase)
	assert.Equal(t, StatusPending, s.Status)
}

func TestStart_MovesToPlanning(t *testing.T) {
	s := New("s-1", "book a flight", nil)
	s.Start()
	assert.Equal(t, PhasePlanning, s.Phase)
	assert.Equal(t, StatusRunning, s.Status)
}

func TestAdoptPlan_ResetsStepCounters(t *testing.T) {
	s := New("s-1", "task", nil)
	s.StepAttempts = 3
	p := plan.NewPlan("task", "summary", []plan.Step{{Title: "a", Details: "d", AgentName: "x"}})
	s.AdoptPlan(p)
	assert.Equal(t, 0, s.StepIndex)
	assert.Equal(t, 0, s.StepAttempts)
	require.NotNil(t, s.Plan)
}

func TestRecordDispatch_TracksRepeats(t *testing.T) {
	s := New("s-1", "task", nil)
	assert.Equal(t, 1, s.RecordDispatch("coder", "run tests"))
	assert.Equal(t, 2, s.RecordDispatch("coder", "run tests"))
	assert.Equal(t, 3, s.RecordDispatch("coder", "run tests"))
	assert.Equal(t, 1, s.RecordDispatch("coder", "run tests again"))
}

func TestAdvanceStep_ClearsLoopGuard(t *testing.T) {
	s := New("s-1", "task", nil)
	s.RecordDispatch("coder", "run tests")
	s.AdvanceStep()
	assert.Equal(t, 0, s.RepeatedInstructions)
	assert.Equal(t, "", s.LastInstruction)
}

func TestFollowUp_SetAndTake(t *testing.T) {
	s := New("s-1", "task", nil)
	_, ok := s.TakeFollowUp()
	assert.False(t, ok)

	s.SetFollowUp("actually, cancel that")
	text, ok := s.TakeFollowUp()
	require.True(t, ok)
	assert.Equal(t, "actually, cancel that", text)

	_, ok = s.TakeFollowUp()
	assert.False(t, ok)
}

func TestComplete_IsTerminal(t *testing.T) {
	s := New("s-1", "task", nil)
	s.Start()
	s.Complete([]byte(`"done"`))
	assert.True(t, s.IsTerminal())
	assert.Equal(t, StatusCompleted, s.Status)
}

func TestFail_IsTerminal(t *testing.T) {
	s := New("s-1", "task", nil)
	s.Start()
	s.Fail("budget exhausted")
	assert.True(t, s.IsTerminal())
	assert.Equal(t, "budget exhausted", s.Error)
}
