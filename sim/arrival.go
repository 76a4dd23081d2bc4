package sim

import "github.com/phasesim/phasesim/sim/trace"

// ArrivalSource produces the newly arriving tasks for a tick.
// Implementations must be deterministic given their seed and call sequence.
type ArrivalSource interface {
	Arrivals(tick int64, phase Phase, accelerated bool) []trace.Arrival
}

// NewSyntheticSourceFunc builds the default synthetic ArrivalSource.
// Set by sim/workload's init(); production code imports sim/workload
// (usually blank) before constructing an Engine without an explicit Source.
var NewSyntheticSourceFunc func(rng *PartitionedRNG) ArrivalSource
