package sim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phasesim/phasesim/sim/trace"
)

// t0 is the fixed wall-clock base every test measures durations from.
var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

// scriptedSource replays a fixed arrival table; unlisted ticks are empty.
type scriptedSource map[int64][]trace.Arrival

func (s scriptedSource) Arrivals(tick int64, _ Phase, _ bool) []trace.Arrival {
	return append([]trace.Arrival(nil), s[tick]...)
}

// queueOf builds a queue holding the given tasks.
func queueOf(t *testing.T, tasks ...Task) *TaskQueue {
	t.Helper()
	q := NewTaskQueue()
	for _, task := range tasks {
		require.NoError(t, q.Enqueue(task))
	}
	return q
}

// executing returns a task admitted at start.
func executing(id string, complexity float64, node NodeID, start time.Time) Task {
	return NewTask(id, complexity, node, start).Admit()
}

func newTestEngine(cfg SimulationConfig, src ArrivalSource) *Engine {
	return NewEngine(EngineConfig{Config: cfg, Source: src})
}

// fakeAdvisor returns canned results. When gate is non-nil every call
// blocks until the gate is closed.
type fakeAdvisor struct {
	mu     sync.Mutex
	audit  *AuditResult
	policy *AutopilotPolicy
	tasks  []PathologicalTask
	err    error
	gate   chan struct{}

	auditCalls     atomic.Int32
	autopilotCalls atomic.Int32
	pathoCalls     atomic.Int32
}

var errAdvisorDown = errors.New("advisor unavailable")

func (f *fakeAdvisor) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAdvisor) Audit(ctx context.Context, _ AdvisoryRequest) (*AuditResult, error) {
	f.auditCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audit, f.err
}

func (f *fakeAdvisor) Autopilot(ctx context.Context, _ AdvisoryRequest) (*AutopilotPolicy, error) {
	f.autopilotCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.policy, f.err
}

func (f *fakeAdvisor) Pathological(ctx context.Context, _ SimulationConfig) ([]PathologicalTask, error) {
	f.pathoCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks, f.err
}

// awaitInbox blocks until n advisory results are queued for the next tick.
func awaitInbox(t *testing.T, e *Engine, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(e.inbox) >= n }, time.Second, time.Millisecond)
}
