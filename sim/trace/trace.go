package trace

import (
	"time"

	"github.com/google/uuid"
)

// Recorder buffers the arrivals of an in-progress recording session.
// Not thread-safe: the owning engine serializes access.
type Recorder struct {
	ticks []TickTrace
}

// NewRecorder creates a Recorder with an empty buffer.
func NewRecorder() *Recorder {
	return &Recorder{ticks: make([]TickTrace, 0)}
}

// Append stores the arrivals for a tick. The slice is copied so later
// mutation by the caller cannot leak into the recording.
func (r *Recorder) Append(tick int64, arrivals []Arrival) {
	r.ticks = append(r.ticks, TickTrace{Tick: tick, Arrivals: cloneArrivals(arrivals)})
}

// Len returns the number of recorded ticks.
func (r *Recorder) Len() int {
	return len(r.ticks)
}

// Freeze produces the immutable TraceRecord for this session.
// The Recorder must not be used afterwards.
func (r *Recorder) Freeze(phase string, integrity float64, now time.Time) *TraceRecord {
	rec := &TraceRecord{
		ID:             uuid.NewString(),
		CreatedAt:      now,
		Phase:          phase,
		IntegrityScore: integrity,
		Ticks:          r.ticks,
	}
	r.ticks = nil
	return rec
}

// Replayer sources arrivals from a recorded TraceRecord by exact tick match.
type Replayer struct {
	record *TraceRecord
	byTick map[int64]int // tick -> index into record.Ticks
	last   int64
}

// NewReplayer indexes rec for lookup. Panics on a nil record.
func NewReplayer(rec *TraceRecord) *Replayer {
	if rec == nil {
		panic("NewReplayer: record must not be nil")
	}
	byTick := make(map[int64]int, len(rec.Ticks))
	for i, t := range rec.Ticks {
		byTick[t.Tick] = i
	}
	return &Replayer{record: rec, byTick: byTick, last: rec.LastTick()}
}

// Arrivals returns the recorded arrivals for tick.
// ok is false once tick exceeds the recorded range (end of replay).
// A tick inside the range with no entry yields an empty list.
// Repeated calls for the same tick return identical, independent copies.
func (r *Replayer) Arrivals(tick int64) (arrivals []Arrival, ok bool) {
	if tick > r.last {
		return nil, false
	}
	idx, found := r.byTick[tick]
	if !found {
		return []Arrival{}, true
	}
	return cloneArrivals(r.record.Ticks[idx].Arrivals), true
}

// Record returns the underlying trace.
func (r *Replayer) Record() *TraceRecord {
	return r.record
}
