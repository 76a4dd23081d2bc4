package sim

import (
	"hash/fnv"
	"math/rand"
)

// Named random streams. Draws from one stream never shift another, so adding
// complexity draws to a tick leaves the arrival-count sequence untouched.
const (
	// SubsystemArrivals drives per-tick arrival counts. Seeded with the run
	// seed itself so --seed N reproduces rand.New(rand.NewSource(N)).
	SubsystemArrivals = "arrivals"

	// SubsystemComplexity drives per-task complexity draws.
	SubsystemComplexity = "complexity"
)

// PartitionedRNG splits one run seed into independent named streams.
// Not safe for concurrent use; the engine serializes all draws.
type PartitionedRNG struct {
	seed    int64
	streams map[string]*rand.Rand
}

// NewPartitionedRNG returns a stream set for seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{seed: seed, streams: make(map[string]*rand.Rand)}
}

// Seed returns the run seed.
func (p *PartitionedRNG) Seed() int64 { return p.seed }

// ForSubsystem returns the stream for name, creating it on first use.
// Non-arrival streams are seeded with seed XOR fnv1a64(name).
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if r, ok := p.streams[name]; ok {
		return r
	}
	s := p.seed
	if name != SubsystemArrivals {
		s ^= streamHash(name)
	}
	r := rand.New(rand.NewSource(s))
	p.streams[name] = r
	return r
}

// Uniform draws from [lo, hi) on the named stream.
func (p *PartitionedRNG) Uniform(name string, lo, hi float64) float64 {
	return lo + p.ForSubsystem(name).Float64()*(hi-lo)
}

// Intn draws from [0, n) on the named stream. n must be positive.
func (p *PartitionedRNG) Intn(name string, n int) int {
	return p.ForSubsystem(name).Intn(n)
}

func streamHash(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}
