package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTask_StartsPending(t *testing.T) {
	task := NewTask("a", 50, NodeEdge, at(0))
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, NodeEdge, task.Node)
	assert.Equal(t, at(0), task.StartTime)
}

func TestNewTask_InvalidNode_Panics(t *testing.T) {
	assert.Panics(t, func() { NewTask("a", 50, NodeID("gpu"), at(0)) })
}

func TestTask_Transitions_ReturnNewValue(t *testing.T) {
	// GIVEN a pending task
	pending := NewTask("a", 50, NodeEdge, at(0))

	// WHEN it is admitted
	running := pending.Admit()

	// THEN the original value is unchanged
	assert.Equal(t, StatusPending, pending.Status)
	assert.Equal(t, StatusExecuting, running.Status)
	assert.Equal(t, StatusCompleted, running.Complete().Status)
	assert.Equal(t, StatusFailed, running.Fail().Status)
	assert.Equal(t, StatusRefused, running.Refuse().Status)
	assert.Equal(t, StatusRefused, pending.Refuse().Status)
}

func TestTask_IllegalTransitions_Panic(t *testing.T) {
	pending := NewTask("a", 50, NodeEdge, at(0))
	done := pending.Admit().Complete()

	tests := []struct {
		name string
		fn   func()
	}{
		{"complete pending", func() { pending.Complete() }},
		{"fail pending", func() { pending.Fail() }},
		{"admit executing", func() { pending.Admit().Admit() }},
		{"refuse completed", func() { done.Refuse() }},
		{"admit completed", func() { done.Admit() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, tt.fn)
		})
	}
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusExecuting.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusRefused.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestTask_AgeMs(t *testing.T) {
	task := NewTask("a", 50, NodeEdge, at(0))
	assert.InDelta(t, 81.0, task.AgeMs(at(81)), 1e-9)
}
