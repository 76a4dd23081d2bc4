package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_AuditPhase_CeilingBreach_Refused(t *testing.T) {
	// GIVEN ZERO_ERROR_AUDIT with an 80ms ceiling and a task executing for 81ms
	cfg := DefaultConfig()
	cfg.LatencyHardCeilingMs = 80
	task := executing("a", 95, NodePrimary, at(0))

	// WHEN evaluated
	got := DefaultExecutionModel().Evaluate(task, at(81), &cfg, PhaseZeroErrorAudit)

	// THEN the breach is an enforced constraint, not a defect
	assert.Equal(t, StatusRefused, got.Status)
}

func TestEvaluate_BasePhase_CeilingBreach_Failed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LatencyHardCeilingMs = 500
	cfg.CPUBudget = 10 // threshold far above the ceiling
	task := executing("a", 90, NodePrimary, at(0))

	got := DefaultExecutionModel().Evaluate(task, at(501), &cfg, PhaseBase)

	assert.Equal(t, StatusFailed, got.Status)
}

func TestEvaluate_CompletesPastServiceThreshold(t *testing.T) {
	// GIVEN cpu 100 and an edge task of complexity 50 (threshold 50×0.8×1 = 40ms)
	cfg := DefaultConfig()
	task := executing("a", 50, NodeEdge, at(0))
	model := DefaultExecutionModel()
	assert.InDelta(t, 40.0, model.ServiceThresholdMs(task, cfg.CPUBudget), 1e-9)

	// THEN it is still running at 40ms and completes at 41ms
	assert.Equal(t, StatusExecuting, model.Evaluate(task, at(40), &cfg, PhaseBase).Status)
	assert.Equal(t, StatusCompleted, model.Evaluate(task, at(41), &cfg, PhaseBase).Status)
}

func TestServiceThreshold_ScalesWithNodeAndBudget(t *testing.T) {
	model := DefaultExecutionModel()
	primary := executing("p", 50, NodePrimary, at(0))
	edge := executing("e", 50, NodeEdge, at(0))

	assert.InDelta(t, 60.0, model.ServiceThresholdMs(primary, 100), 1e-9)
	assert.InDelta(t, 120.0, model.ServiceThresholdMs(primary, 50), 1e-9)
	assert.InDelta(t, 80.0, model.ServiceThresholdMs(edge, 50), 1e-9)
}

func TestEvaluate_IgnoresNonExecuting(t *testing.T) {
	cfg := DefaultConfig()
	pending := NewTask("a", 50, NodeEdge, at(0))
	got := DefaultExecutionModel().Evaluate(pending, at(10_000), &cfg, PhaseBase)
	assert.Equal(t, StatusPending, got.Status)
}

func TestExecutionRun_CountsOutcomes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LatencyHardCeilingMs = 150
	q := queueOf(t,
		executing("done", 20, NodeEdge, at(80)),   // age 20 > 16
		executing("slow", 90, NodePrimary, at(0)), // age 100 < 108
		executing("late", 90, NodePrimary, at(-60)),
		NewTask("wait", 10, NodeEdge, at(0)),
	)

	res := DefaultExecutionModel().Run(q, at(100), &cfg, PhaseCascadingFailure)

	assert.Equal(t, ExecutionResult{Completed: 1, Failed: 1}, res)
	assert.Equal(t, StatusCompleted, q.At(0).Status)
	assert.Equal(t, StatusExecuting, q.At(1).Status)
	assert.Equal(t, StatusFailed, q.At(2).Status)
	assert.Equal(t, StatusPending, q.At(3).Status)
}
