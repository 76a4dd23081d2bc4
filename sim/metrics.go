// Tracks per-tick system metrics and a bounded history of them.

package sim

import "fmt"

// DefaultHistorySize is the number of snapshots kept for the dashboard window.
const DefaultHistorySize = 60

// SystemMetrics is the immutable snapshot produced by one tick.
type SystemMetrics struct {
	Timestamp       int64   `json:"timestamp"`  // tick index
	Throughput      int     `json:"throughput"` // tasks reaching a terminal state this tick
	LatencyMs       float64 `json:"latency"`    // age of the oldest PENDING task
	MemoryUsage     float64 `json:"memoryUsage"`
	CPULoad         float64 `json:"cpuLoad"` // EXECUTING / ConcurrencyLimit × 100
	RefusalCount    int     `json:"refusalCount"`
	ErrorCount      int     `json:"errorCount"`
	RoutingOverhead float64 `json:"routingOverhead"`
	Phase           string  `json:"phase"`
}

// MemoryUsage is the synthetic memory proxy: a fixed floor plus queue depth
// and in-flight complexity, capped at memoryCap.
func MemoryUsage(q *TaskQueue, memoryCap float64) float64 {
	usage := 64 + 4*float64(q.Len()) + 0.5*q.ExecutingComplexity()
	return min(usage, memoryCap)
}

// CPULoad is the percentage occupancy of the concurrency limit.
func CPULoad(executing, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(executing) / float64(limit) * 100
}

// MetricsHistory keeps the most recent snapshots; the oldest is evicted
// once capacity is reached.
type MetricsHistory struct {
	capacity int
	items    []SystemMetrics
}

// NewMetricsHistory creates a history with the given capacity.
// Panics if capacity < 1.
func NewMetricsHistory(capacity int) *MetricsHistory {
	if capacity < 1 {
		panic(fmt.Sprintf("NewMetricsHistory: capacity must be >= 1, got %d", capacity))
	}
	return &MetricsHistory{capacity: capacity, items: make([]SystemMetrics, 0, capacity)}
}

// Append adds a snapshot, evicting the oldest when full.
func (h *MetricsHistory) Append(m SystemMetrics) {
	if len(h.items) == h.capacity {
		copy(h.items, h.items[1:])
		h.items = h.items[:h.capacity-1]
	}
	h.items = append(h.items, m)
}

// Len returns the number of stored snapshots.
func (h *MetricsHistory) Len() int {
	return len(h.items)
}

// Latest returns the newest snapshot.
func (h *MetricsHistory) Latest() (SystemMetrics, bool) {
	if len(h.items) == 0 {
		return SystemMetrics{}, false
	}
	return h.items[len(h.items)-1], true
}

// Window returns a copy of the newest n snapshots (all if n <= 0 or n > Len).
func (h *MetricsHistory) Window(n int) []SystemMetrics {
	if n <= 0 || n > len(h.items) {
		n = len(h.items)
	}
	out := make([]SystemMetrics, n)
	copy(out, h.items[len(h.items)-n:])
	return out
}

// Reset drops every snapshot.
func (h *MetricsHistory) Reset() {
	h.items = h.items[:0]
}
