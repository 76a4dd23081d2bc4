package workload

import (
	"fmt"

	"github.com/phasesim/phasesim/sim"
	"github.com/phasesim/phasesim/sim/trace"
)

// Synthetic arrival parameters.
const (
	MinComplexity = 20.0
	MaxComplexity = 100.0

	normalCountMax      = 5  // counts drawn from [0, 5)
	acceleratedCountMin = 5  // accelerated counts drawn from [5, 15)
	acceleratedCountMax = 15
	burstPeriod         = 5  // ADVERSARIAL_LOAD bursts every 5th tick
	burstSize           = 25
	auditFlood          = 8 // flat extra arrivals in ZERO_ERROR_AUDIT
)

// SyntheticSource generates randomized organic load.
// Deterministic given the run seed and call sequence.
// Thread-safety: NOT thread-safe (the engine serializes calls).
type SyntheticSource struct {
	rng *sim.PartitionedRNG
}

// NewSyntheticSource creates a generator drawing from rng.
// Panics on nil rng.
func NewSyntheticSource(rng *sim.PartitionedRNG) *SyntheticSource {
	if rng == nil {
		panic("NewSyntheticSource: rng must not be nil")
	}
	return &SyntheticSource{rng: rng}
}

// ArrivalCount draws the number of arrivals for a tick.
func (s *SyntheticSource) ArrivalCount(tick int64, phase sim.Phase, accelerated bool) int {
	var n int
	if accelerated {
		n = acceleratedCountMin + s.rng.Intn(sim.SubsystemArrivals, acceleratedCountMax-acceleratedCountMin)
	} else {
		n = s.rng.Intn(sim.SubsystemArrivals, normalCountMax)
	}
	if phase == sim.PhaseAdversarialLoad && tick%burstPeriod == 0 {
		n += burstSize
	}
	if phase == sim.PhaseZeroErrorAudit {
		n += auditFlood
	}
	return n
}

// Arrivals implements sim.ArrivalSource. Ids are unique per tick:
// task-<tick>-<index>.
func (s *SyntheticSource) Arrivals(tick int64, phase sim.Phase, accelerated bool) []trace.Arrival {
	n := s.ArrivalCount(tick, phase, accelerated)
	arrivals := make([]trace.Arrival, n)
	for i := range arrivals {
		arrivals[i] = trace.Arrival{
			ID:         TaskID(tick, i),
			Complexity: s.rng.Uniform(sim.SubsystemComplexity, MinComplexity, MaxComplexity),
		}
	}
	return arrivals
}

// TaskID is the deterministic id of the index-th arrival of tick.
func TaskID(tick int64, index int) string {
	return fmt.Sprintf("task-%d-%d", tick, index)
}
