package sim_test

// Blank import triggers sim/workload's init(), which registers NewSyntheticSourceFunc.
// This allows package sim's internal test files to build engines with the
// synthetic generator without importing sim/workload (an import cycle).
import _ "github.com/phasesim/phasesim/sim/workload"
