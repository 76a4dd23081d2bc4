package sim

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ExecutionModel decides, once per tick, whether an EXECUTING task has
// finished. No work is performed: completion is elapsed time crossing a
// complexity-derived service threshold.
type ExecutionModel struct {
	PrimaryMultiplier float64 // orchestration overhead on the primary node
	EdgeMultiplier    float64
}

// DefaultExecutionModel returns multipliers 1.2 (primary) and 0.8 (edge).
func DefaultExecutionModel() ExecutionModel {
	return ExecutionModel{PrimaryMultiplier: 1.2, EdgeMultiplier: 0.8}
}

func (m ExecutionModel) multiplier(node NodeID) float64 {
	if node == NodePrimary {
		return m.PrimaryMultiplier
	}
	return m.EdgeMultiplier
}

// ServiceThresholdMs is complexity × node multiplier × (100 / cpuBudget).
// A lower cpu budget inflates it.
func (m ExecutionModel) ServiceThresholdMs(task Task, cpuBudget float64) float64 {
	return task.Complexity * m.multiplier(task.Node) * (100 / cpuBudget)
}

// Evaluate returns the task after one tick of execution.
//
// Duration is measured from queue entry, so it is end-to-end latency
// (pending time included), not service time. A breach of the hard ceiling
// is REFUSED in phases that hold ceilings as invariants and FAILED in all
// others; below the ceiling the task completes once past its threshold.
func (m ExecutionModel) Evaluate(task Task, now time.Time, cfg *SimulationConfig, phase Phase) Task {
	if task.Status != StatusExecuting {
		return task
	}
	duration := task.AgeMs(now)
	if duration > cfg.LatencyHardCeilingMs {
		if phase.HoldsHardCeilings() {
			return task.Refuse()
		}
		return task.Fail()
	}
	if duration > m.ServiceThresholdMs(task, cfg.CPUBudget) {
		return task.Complete()
	}
	return task
}

// ExecutionResult counts one pass's terminal transitions.
type ExecutionResult struct {
	Completed int
	Refused   int
	Failed    int
}

// Run evaluates every EXECUTING task in the queue.
// Terminal tasks stay in place until the caller sweeps them.
func (m ExecutionModel) Run(q *TaskQueue, now time.Time, cfg *SimulationConfig, phase Phase) ExecutionResult {
	var res ExecutionResult
	for _, i := range q.Indices(StatusExecuting) {
		next := m.Evaluate(q.At(i), now, cfg, phase)
		switch next.Status {
		case StatusCompleted:
			res.Completed++
		case StatusRefused:
			res.Refused++
		case StatusFailed:
			res.Failed++
			logrus.Debugf("task %s failed: exceeded ceiling %.0fms in %s", next.ID, cfg.LatencyHardCeilingMs, phase)
		default:
			continue
		}
		q.Replace(i, next)
	}
	return res
}
