// Defines the Task record that models one unit of simulated work.
// Tasks are values: every lifecycle transition returns a new Task and the
// queue applies it by index, so a tick's pass never aliases a live record.

package sim

import (
	"fmt"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "PENDING"
	StatusExecuting TaskStatus = "EXECUTING"
	StatusCompleted TaskStatus = "COMPLETED"
	StatusRefused   TaskStatus = "REFUSED"
	StatusFailed    TaskStatus = "FAILED"
)

// IsTerminal reports whether a task in this state leaves the queue.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRefused || s == StatusFailed
}

// NodeID labels one of the two simulated execution nodes.
type NodeID string

const (
	NodePrimary NodeID = "primary" // high-fidelity path
	NodeEdge    NodeID = "edge"    // low-latency path
)

// IsValid reports whether n is one of the two known nodes.
func (n NodeID) IsValid() bool {
	return n == NodePrimary || n == NodeEdge
}

// Task is one unit of simulated work, routed to a node on arrival.
type Task struct {
	ID         string     `json:"id"`
	Complexity float64    `json:"complexity"`
	StartTime  time.Time  `json:"startTime"` // queue entry instant, not execution start
	Status     TaskStatus `json:"status"`
	Node       NodeID     `json:"assignedNode"` // fixed at arrival
}

// NewTask creates a PENDING task. Panics if node is not a known node:
// every task must be routed before it exists.
func NewTask(id string, complexity float64, node NodeID, now time.Time) Task {
	if !node.IsValid() {
		panic(fmt.Sprintf("NewTask: task %q has no valid node (%q)", id, node))
	}
	return Task{
		ID:         id,
		Complexity: complexity,
		StartTime:  now,
		Status:     StatusPending,
		Node:       node,
	}
}

// Admit moves a PENDING task to EXECUTING.
func (t Task) Admit() Task {
	t.mustBe("Admit", StatusPending)
	t.Status = StatusExecuting
	return t
}

// Refuse is a controlled rejection, legal from PENDING or EXECUTING.
func (t Task) Refuse() Task {
	t.mustBe("Refuse", StatusPending, StatusExecuting)
	t.Status = StatusRefused
	return t
}

// Complete moves an EXECUTING task to COMPLETED.
func (t Task) Complete() Task {
	t.mustBe("Complete", StatusExecuting)
	t.Status = StatusCompleted
	return t
}

// Fail marks an EXECUTING task as an uncontrolled defect.
func (t Task) Fail() Task {
	t.mustBe("Fail", StatusExecuting)
	t.Status = StatusFailed
	return t
}

// AgeMs returns the time since queue entry in milliseconds.
func (t Task) AgeMs(now time.Time) float64 {
	return float64(now.Sub(t.StartTime)) / float64(time.Millisecond)
}

func (t Task) mustBe(op string, allowed ...TaskStatus) {
	for _, s := range allowed {
		if t.Status == s {
			return
		}
	}
	panic(fmt.Sprintf("%s: task %q in state %s", op, t.ID, t.Status))
}

// String returns a human-readable representation of a Task.
func (t Task) String() string {
	return fmt.Sprintf("Task: (ID: %s, Status: %s, Node: %s, Complexity: %.1f)", t.ID, t.Status, t.Node, t.Complexity)
}
