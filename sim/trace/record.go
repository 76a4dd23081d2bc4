// Package trace provides record/replay of per-tick arrivals.
// This package has no dependencies on sim/; it stores pure data types.
package trace

import "time"

// Arrival is one newly arriving task as produced by a load generator.
// It is the only random input of a tick, so it is all a trace needs to keep.
type Arrival struct {
	ID         string  `yaml:"id"`
	Complexity float64 `yaml:"complexity"`
}

// TickTrace captures the exact arrival list fed to the engine on one tick.
type TickTrace struct {
	Tick     int64     `yaml:"tick"`
	Arrivals []Arrival `yaml:"arrivals"`
}

// TraceRecord is a frozen recording session.
// Once saved it is never mutated; replay reads it in place.
type TraceRecord struct {
	ID             string      `yaml:"id"`
	CreatedAt      time.Time   `yaml:"created_at"`
	Phase          string      `yaml:"phase"`
	IntegrityScore float64     `yaml:"integrity_score"`
	Ticks          []TickTrace `yaml:"ticks"`
}

// LastTick returns the highest recorded tick index, or 0 for an empty record.
func (r *TraceRecord) LastTick() int64 {
	var last int64
	for _, t := range r.Ticks {
		if t.Tick > last {
			last = t.Tick
		}
	}
	return last
}

// IntegrityScore derives session health from accumulated errors:
// 100 - totalErrors/10, floored at 0.
func IntegrityScore(totalErrors int) float64 {
	score := 100 - float64(totalErrors)/10
	if score < 0 {
		return 0
	}
	return score
}

func cloneArrivals(in []Arrival) []Arrival {
	out := make([]Arrival, len(in))
	copy(out, in)
	return out
}
