package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHistory_EvictsOldest(t *testing.T) {
	// GIVEN a history of capacity 3
	h := NewMetricsHistory(3)

	// WHEN five snapshots are appended
	for i := int64(1); i <= 5; i++ {
		h.Append(SystemMetrics{Timestamp: i})
	}

	// THEN only the newest three remain, oldest first
	got := h.Window(0)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].Timestamp)
	assert.Equal(t, int64(5), got[2].Timestamp)
	latest, ok := h.Latest()
	assert.True(t, ok)
	assert.Equal(t, int64(5), latest.Timestamp)
}

func TestMetricsHistory_Window(t *testing.T) {
	h := NewMetricsHistory(10)
	for i := int64(1); i <= 4; i++ {
		h.Append(SystemMetrics{Timestamp: i})
	}
	w := h.Window(2)
	require.Len(t, w, 2)
	assert.Equal(t, int64(3), w[0].Timestamp)
	assert.Len(t, h.Window(100), 4)

	w[0].Timestamp = 99
	assert.Equal(t, int64(3), h.Window(2)[0].Timestamp, "window must be a copy")
}

func TestMetricsHistory_EmptyAndReset(t *testing.T) {
	h := NewMetricsHistory(2)
	_, ok := h.Latest()
	assert.False(t, ok)
	h.Append(SystemMetrics{Timestamp: 1})
	h.Reset()
	assert.Equal(t, 0, h.Len())
	assert.Panics(t, func() { NewMetricsHistory(0) })
}

func TestMemoryUsage_CappedAndMonotone(t *testing.T) {
	q := queueOf(t,
		executing("a", 50, NodeEdge, at(0)),
		NewTask("b", 50, NodeEdge, at(0)),
	)
	// 64 + 4×2 + 0.5×50
	assert.Equal(t, 97.0, MemoryUsage(q, 1024))
	assert.Equal(t, 80.0, MemoryUsage(q, 80))
}

func TestCPULoad(t *testing.T) {
	assert.Equal(t, 50.0, CPULoad(5, 10))
	assert.Equal(t, 100.0, CPULoad(3, 3))
	assert.Equal(t, 0.0, CPULoad(1, 0))
}

func TestDecisionLog_CapsAtCapacity(t *testing.T) {
	var log DecisionLog
	for i := 0; i < DecisionLogCapacity+5; i++ {
		log.Append(DecisionLogEntry{Action: fmt.Sprintf("a%d", i)})
	}
	entries := log.Entries()
	require.Len(t, entries, DecisionLogCapacity)
	assert.Equal(t, "a5", entries[0].Action)
	assert.Equal(t, fmt.Sprintf("a%d", DecisionLogCapacity+4), entries[len(entries)-1].Action)
}
