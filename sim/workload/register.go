// register.go wires the synthetic generator into the sim package's
// registration variable (NewSyntheticSourceFunc). This init() runs when any
// package imports sim/workload, breaking the import cycle between sim/
// (interface owner) and sim/workload/ (implementation).
package workload

import "github.com/phasesim/phasesim/sim"

func init() {
	sim.NewSyntheticSourceFunc = func(rng *sim.PartitionedRNG) sim.ArrivalSource {
		return NewSyntheticSource(rng)
	}
}
