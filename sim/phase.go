package sim

import (
	"errors"
	"fmt"
)

// PhaseAdvanceThreshold is the number of ticks a phase lasts under auto-advance.
const PhaseAdvanceThreshold = 30

// ErrPhaseLocked is returned when a manual phase jump is attempted while an
// automatic phase driver owns the phase.
var ErrPhaseLocked = errors.New("phase selection locked by auto-advance or autopilot")

// Phase is an adversarial stress regime. Phases are strictly ordered.
type Phase int

const (
	PhaseBase Phase = iota
	PhaseAdversarialLoad
	PhaseConstraintCompression
	PhaseResourceStarvation
	PhaseCascadingFailure
	PhaseZeroErrorAudit
)

var phaseNames = []string{
	"BASE",
	"ADVERSARIAL_LOAD",
	"CONSTRAINT_COMPRESSION",
	"RESOURCE_STARVATION",
	"CASCADING_FAILURE",
	"ZERO_ERROR_AUDIT",
}

// Phases returns every phase in order.
func Phases() []Phase {
	out := make([]Phase, len(phaseNames))
	for i := range phaseNames {
		out[i] = Phase(i)
	}
	return out
}

func (p Phase) String() string {
	if !p.IsValid() {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// IsValid reports whether p is a known phase.
func (p Phase) IsValid() bool {
	return p >= PhaseBase && int(p) < len(phaseNames)
}

// IsTerminal reports whether p is the last phase.
func (p Phase) IsTerminal() bool {
	return int(p) == len(phaseNames)-1
}

// HoldsHardCeilings reports whether a latency-ceiling breach in this phase
// is an enforced constraint (REFUSED) rather than a defect (FAILED).
func (p Phase) HoldsHardCeilings() bool {
	return p == PhaseConstraintCompression || p == PhaseZeroErrorAudit
}

// ParsePhase converts a phase name back to a Phase.
func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return PhaseBase, fmt.Errorf("unknown phase %q", name)
}

// PhaseTable maps each phase to the configuration delta applied on entry.
type PhaseTable map[Phase]ConfigPatch

// DefaultPhaseTable returns the built-in escalation: each phase tightens the
// cpu budget and the latency ceiling and lowers concurrency; retries are
// disabled from RESOURCE_STARVATION on. BASE restores the baseline.
func DefaultPhaseTable() PhaseTable {
	return PhaseTable{
		PhaseBase: BaselineDelta(DefaultConfig()),
		PhaseAdversarialLoad: {
			CPUBudget:            Float64Ptr(90),
			LatencyHardCeilingMs: Float64Ptr(400),
			ConcurrencyLimit:     IntPtr(8),
			LoadShape:            StringPtr(LoadShapeBurst),
		},
		PhaseConstraintCompression: {
			CPUBudget:            Float64Ptr(75),
			LatencyHardCeilingMs: Float64Ptr(250),
			ConcurrencyLimit:     IntPtr(6),
		},
		PhaseResourceStarvation: {
			CPUBudget:            Float64Ptr(50),
			LatencyHardCeilingMs: Float64Ptr(200),
			ConcurrencyLimit:     IntPtr(5),
			RetriesEnabled:       BoolPtr(false),
		},
		PhaseCascadingFailure: {
			CPUBudget:            Float64Ptr(40),
			LatencyHardCeilingMs: Float64Ptr(150),
			ConcurrencyLimit:     IntPtr(4),
			RetriesEnabled:       BoolPtr(false),
		},
		PhaseZeroErrorAudit: {
			CPUBudget:            Float64Ptr(35),
			LatencyHardCeilingMs: Float64Ptr(80),
			ConcurrencyLimit:     IntPtr(3),
			RetriesEnabled:       BoolPtr(false),
			LoadShape:            StringPtr(LoadShapeFlood),
		},
	}
}

// BaselineDelta is the BASE entry delta that restores cfg's thresholds.
func BaselineDelta(cfg SimulationConfig) ConfigPatch {
	return ConfigPatch{
		CPUBudget:            Float64Ptr(cfg.CPUBudget),
		LatencyHardCeilingMs: Float64Ptr(cfg.LatencyHardCeilingMs),
		ConcurrencyLimit:     IntPtr(cfg.ConcurrencyLimit),
		RetriesEnabled:       BoolPtr(true),
		LoadShape:            StringPtr(cfg.LoadShape),
	}
}

// PhaseTransition describes what the phase machine did on one tick.
type PhaseTransition struct {
	From     Phase
	To       Phase
	Advanced bool // phase changed
	Stopped  bool // auto-advance switched itself off at the terminal phase
}

// PhaseMachine holds the current phase and applies entry deltas.
// Thread-safety: NOT thread-safe. The engine serializes access.
type PhaseMachine struct {
	current Phase
	table   PhaseTable
}

// NewPhaseMachine creates a machine in BASE. A nil table uses DefaultPhaseTable.
func NewPhaseMachine(table PhaseTable) *PhaseMachine {
	if table == nil {
		table = DefaultPhaseTable()
	}
	return &PhaseMachine{current: PhaseBase, table: table}
}

// Current returns the active phase.
func (pm *PhaseMachine) Current() Phase {
	return pm.current
}

// Enter switches to p, resets the per-phase tick counter and applies p's
// delta to cfg. Deltas are skipped while replaying: a replay reproduces
// recorded arrivals, it does not re-run phase entry logic.
func (pm *PhaseMachine) Enter(p Phase, cfg *SimulationConfig) {
	if !p.IsValid() {
		panic(fmt.Sprintf("PhaseMachine.Enter: invalid phase %d", int(p)))
	}
	pm.current = p
	cfg.PhaseTickCounter = 0
	if cfg.IsReplaying {
		return
	}
	if delta, ok := pm.table[p]; ok {
		*cfg = delta.Apply(*cfg)
	}
}

// Select is a manual jump to any phase. Rejected while auto-advance or
// autopilot drives the phase.
func (pm *PhaseMachine) Select(p Phase, cfg *SimulationConfig) error {
	if !p.IsValid() {
		return fmt.Errorf("select phase: invalid phase %d", int(p))
	}
	if cfg.IsAutoAdvancing || cfg.IsAutopilot {
		return ErrPhaseLocked
	}
	pm.Enter(p, cfg)
	return nil
}

// Advance moves one phase forward. No-op at the terminal phase.
func (pm *PhaseMachine) Advance(cfg *SimulationConfig) PhaseTransition {
	tr := PhaseTransition{From: pm.current, To: pm.current}
	if pm.current.IsTerminal() {
		return tr
	}
	pm.Enter(pm.current+1, cfg)
	tr.To = pm.current
	tr.Advanced = true
	return tr
}

// OnTick runs the counter-driven auto-advance rule. Under autopilot the
// advisory policy is the only advance source, so the counter rule is
// suppressed (the counter still counts).
func (pm *PhaseMachine) OnTick(cfg *SimulationConfig) PhaseTransition {
	cfg.PhaseTickCounter++
	tr := PhaseTransition{From: pm.current, To: pm.current}
	if !cfg.IsAutoAdvancing || cfg.IsAutopilot {
		return tr
	}
	if cfg.PhaseTickCounter < PhaseAdvanceThreshold {
		return tr
	}
	if pm.current.IsTerminal() {
		cfg.IsAutoAdvancing = false
		cfg.PhaseTickCounter = 0
		tr.Stopped = true
		return tr
	}
	return pm.Advance(cfg)
}
