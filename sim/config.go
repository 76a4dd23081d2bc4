package sim

import (
	"fmt"
	"time"
)

// Load shapes understood by the synthetic generator. Informational: the
// generator keys its burst behaviour off the phase, the shape is what the
// dashboard shows.
const (
	LoadShapeSteady = "steady"
	LoadShapeBurst  = "burst"
	LoadShapeFlood  = "flood"
)

// acceleratedDivisor is how much faster the clock fires in accelerated mode.
const acceleratedDivisor = 5

// SimulationConfig is the process-wide mutable configuration.
// It is owned by the Engine and only changed inside its critical section.
// Invariant: IsRecording and IsReplaying are never both true.
type SimulationConfig struct {
	CPUBudget            float64       `json:"cpuBudget"`          // percent, > 0
	MemoryCap            float64       `json:"memoryCap"`          // synthetic memory units
	LatencyHardCeilingMs float64       `json:"latencyHardCeiling"` // end-to-end timeout, ms
	ConcurrencyLimit     int           `json:"concurrencyLimit"`   // hard occupancy ceiling
	LoadShape            string        `json:"loadShape"`
	TickInterval         time.Duration `json:"tickInterval"`

	TelemetryEnabled bool `json:"telemetryEnabled"`
	RetriesEnabled   bool `json:"retriesEnabled"`
	IsAccelerated    bool `json:"isAccelerated"`
	IsAutoAdvancing  bool `json:"isAutoAdvancing"`
	IsRecording      bool `json:"isRecording"`
	IsReplaying      bool `json:"isReplaying"`
	IsAutopilot      bool `json:"isAutopilot"`
	IsSelfHealing    bool `json:"isSelfHealing"`

	PhaseTickCounter int    `json:"phaseTickCounter"`
	ActiveTraceID    string `json:"activeTraceId,omitempty"`
}

// DefaultConfig returns the BASE-phase baseline.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		CPUBudget:            100,
		MemoryCap:            1024,
		LatencyHardCeilingMs: 500,
		ConcurrencyLimit:     10,
		LoadShape:            LoadShapeSteady,
		TickInterval:         time.Second,
		TelemetryEnabled:     true,
		RetriesEnabled:       true,
	}
}

// EffectiveInterval returns the clock interval honouring accelerated mode.
func (c SimulationConfig) EffectiveInterval() time.Duration {
	if c.IsAccelerated {
		return c.TickInterval / acceleratedDivisor
	}
	return c.TickInterval
}

// Validate checks the numeric invariants the tick pass relies on.
func (c SimulationConfig) Validate() error {
	if c.CPUBudget <= 0 {
		return fmt.Errorf("cpu_budget must be positive, got %f", c.CPUBudget)
	}
	if c.MemoryCap <= 0 {
		return fmt.Errorf("memory_cap must be positive, got %f", c.MemoryCap)
	}
	if c.LatencyHardCeilingMs <= 0 {
		return fmt.Errorf("latency_hard_ceiling_ms must be positive, got %f", c.LatencyHardCeilingMs)
	}
	if c.ConcurrencyLimit < 1 {
		return fmt.Errorf("concurrency_limit must be >= 1, got %d", c.ConcurrencyLimit)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval)
	}
	if c.IsRecording && c.IsReplaying {
		return fmt.Errorf("recording and replaying are mutually exclusive")
	}
	return nil
}

// ConfigPatch is a partial configuration. Nil fields mean "leave unchanged".
// It is the single shape for phase deltas, advisory suggestions, the YAML
// baseline and operator updates; Apply merges all set fields at once.
// Recording/replay flags are absent: only the engine's
// record/replay operations flip them.
type ConfigPatch struct {
	CPUBudget            *float64       `yaml:"cpu_budget,omitempty" json:"cpuBudget,omitempty"`
	MemoryCap            *float64       `yaml:"memory_cap,omitempty" json:"memoryCap,omitempty"`
	LatencyHardCeilingMs *float64       `yaml:"latency_hard_ceiling_ms,omitempty" json:"latencyHardCeiling,omitempty"`
	ConcurrencyLimit     *int           `yaml:"concurrency_limit,omitempty" json:"concurrencyLimit,omitempty"`
	LoadShape            *string        `yaml:"load_shape,omitempty" json:"loadShape,omitempty"`
	TickInterval         *time.Duration `yaml:"tick_interval,omitempty" json:"tickInterval,omitempty"`

	TelemetryEnabled *bool `yaml:"telemetry_enabled,omitempty" json:"telemetryEnabled,omitempty"`
	RetriesEnabled   *bool `yaml:"retries_enabled,omitempty" json:"retriesEnabled,omitempty"`
	IsAccelerated    *bool `yaml:"accelerated,omitempty" json:"isAccelerated,omitempty"`
	IsAutoAdvancing  *bool `yaml:"auto_advance,omitempty" json:"isAutoAdvancing,omitempty"`
	IsAutopilot      *bool `yaml:"autopilot,omitempty" json:"isAutopilot,omitempty"`
	IsSelfHealing    *bool `yaml:"self_healing,omitempty" json:"isSelfHealing,omitempty"`
}

// Apply returns cfg with every set field of p replaced.
func (p ConfigPatch) Apply(cfg SimulationConfig) SimulationConfig {
	if p.CPUBudget != nil {
		cfg.CPUBudget = *p.CPUBudget
	}
	if p.MemoryCap != nil {
		cfg.MemoryCap = *p.MemoryCap
	}
	if p.LatencyHardCeilingMs != nil {
		cfg.LatencyHardCeilingMs = *p.LatencyHardCeilingMs
	}
	if p.ConcurrencyLimit != nil {
		cfg.ConcurrencyLimit = *p.ConcurrencyLimit
	}
	if p.LoadShape != nil {
		cfg.LoadShape = *p.LoadShape
	}
	if p.TickInterval != nil {
		cfg.TickInterval = *p.TickInterval
	}
	if p.TelemetryEnabled != nil {
		cfg.TelemetryEnabled = *p.TelemetryEnabled
	}
	if p.RetriesEnabled != nil {
		cfg.RetriesEnabled = *p.RetriesEnabled
	}
	if p.IsAccelerated != nil {
		cfg.IsAccelerated = *p.IsAccelerated
	}
	if p.IsAutoAdvancing != nil {
		cfg.IsAutoAdvancing = *p.IsAutoAdvancing
	}
	if p.IsAutopilot != nil {
		cfg.IsAutopilot = *p.IsAutopilot
	}
	if p.IsSelfHealing != nil {
		cfg.IsSelfHealing = *p.IsSelfHealing
	}
	return cfg
}

// ChangesMode reports whether p touches any mode flag, which invalidates
// advisory results requested under the previous mode.
func (p ConfigPatch) ChangesMode() bool {
	return p.IsAutoAdvancing != nil || p.IsAutopilot != nil || p.IsSelfHealing != nil
}

// Float64Ptr returns a pointer to v. Convenience for building patches.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
