// Implements the TaskQueue, the live set of non-terminal tasks owned by the engine.

package sim

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDuplicateTask is returned when a task id is already live in the queue.
var ErrDuplicateTask = errors.New("duplicate task id")

// TaskQueue holds every in-flight task in arrival order.
// Tasks are replaced by index (arena style); terminal tasks are swept out
// once per tick by RemoveTerminal.
// Thread-safety: NOT thread-safe. The engine serializes access.
type TaskQueue struct {
	tasks []Task
	live  map[string]struct{}
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{live: make(map[string]struct{})}
}

// Enqueue adds a task to the back of the queue.
// Ids may repeat over time but never among live tasks.
func (q *TaskQueue) Enqueue(t Task) error {
	if _, exists := q.live[t.ID]; exists {
		return fmt.Errorf("enqueue %q: %w", t.ID, ErrDuplicateTask)
	}
	q.tasks = append(q.tasks, t)
	q.live[t.ID] = struct{}{}
	return nil
}

// Len returns the number of tasks in the queue, terminal ones included
// until the next sweep.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

// At returns the task at index i.
func (q *TaskQueue) At(i int) Task {
	return q.tasks[i]
}

// Replace applies a transitioned task at index i.
// Panics if the id differs: a transition never changes identity.
func (q *TaskQueue) Replace(i int, t Task) {
	if q.tasks[i].ID != t.ID {
		panic(fmt.Sprintf("Replace: index %d holds %q, got %q", i, q.tasks[i].ID, t.ID))
	}
	q.tasks[i] = t
}

// Indices returns the positions of tasks in the given state, in queue order.
// The result is a snapshot: transitions applied afterwards do not change it.
func (q *TaskQueue) Indices(status TaskStatus) []int {
	var idx []int
	for i, t := range q.tasks {
		if t.Status == status {
			idx = append(idx, i)
		}
	}
	return idx
}

// Count returns the number of tasks in the given state.
func (q *TaskQueue) Count(status TaskStatus) int {
	n := 0
	for _, t := range q.tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

// RemoveTerminal sweeps every terminal task out of the queue and returns them.
func (q *TaskQueue) RemoveTerminal() []Task {
	var removed []Task
	kept := q.tasks[:0]
	for _, t := range q.tasks {
		if t.Status.IsTerminal() {
			removed = append(removed, t)
			delete(q.live, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	// clear the tail so swept tasks are not retained by the backing array
	for i := len(kept); i < len(q.tasks); i++ {
		q.tasks[i] = Task{}
	}
	q.tasks = kept
	return removed
}

// OldestPendingAgeMs returns the age of the oldest PENDING task, or 0 if none.
func (q *TaskQueue) OldestPendingAgeMs(now time.Time) float64 {
	oldest := 0.0
	for _, t := range q.tasks {
		if t.Status != StatusPending {
			continue
		}
		if age := t.AgeMs(now); age > oldest {
			oldest = age
		}
	}
	return oldest
}

// ExecutingComplexity sums the complexity of EXECUTING tasks.
func (q *TaskQueue) ExecutingComplexity() float64 {
	total := 0.0
	for _, t := range q.tasks {
		if t.Status == StatusExecuting {
			total += t.Complexity
		}
	}
	return total
}

// Items returns a copy of the queue contents.
func (q *TaskQueue) Items() []Task {
	out := make([]Task, len(q.tasks))
	copy(out, q.tasks)
	return out
}

// Reset drops every task.
func (q *TaskQueue) Reset() {
	q.tasks = nil
	q.live = make(map[string]struct{})
}

func (q *TaskQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, t := range q.tasks {
		sb.WriteString(t.String())
		if i < len(q.tasks)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
