package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigBundle is the YAML configuration file: a baseline patch over
// DefaultConfig and optional per-phase delta overrides keyed by phase name.
// Unset fields keep their defaults.
type ConfigBundle struct {
	Baseline    ConfigPatch            `yaml:"baseline"`
	Phases      map[string]ConfigPatch `yaml:"phases"`
	HistorySize int                    `yaml:"history_size"`
}

// LoadConfigBundle reads and strictly parses a YAML configuration file.
// Unknown fields are errors so typos do not silently fall back to defaults.
func LoadConfigBundle(path string) (*ConfigBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var bundle ConfigBundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Validate checks phase names, the baseline and every phase's entry config.
// Each phase is checked both as a jump straight from the baseline and as a
// step in the auto-advance walk, where deltas accumulate in order.
func (b *ConfigBundle) Validate() error {
	for name := range b.Phases {
		if _, err := ParsePhase(name); err != nil {
			return err
		}
	}
	if b.HistorySize < 0 {
		return fmt.Errorf("history_size must be non-negative, got %d", b.HistorySize)
	}
	base := b.SimulationConfig()
	if err := base.Validate(); err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	table := b.PhaseTable()
	walk := base
	for _, p := range Phases() {
		if err := table[p].Apply(base).Validate(); err != nil {
			return fmt.Errorf("phase %s: %w", p, err)
		}
		walk = table[p].Apply(walk)
		if err := walk.Validate(); err != nil {
			return fmt.Errorf("phase %s (after earlier phases): %w", p, err)
		}
	}
	return nil
}

// SimulationConfig returns DefaultConfig with the baseline applied.
func (b *ConfigBundle) SimulationConfig() SimulationConfig {
	return b.Baseline.Apply(DefaultConfig())
}

// PhaseTable returns DefaultPhaseTable with BASE restoring this file's
// baseline and the file's overrides merged field by field over each
// phase's built-in delta.
func (b *ConfigBundle) PhaseTable() PhaseTable {
	table := DefaultPhaseTable()
	table[PhaseBase] = BaselineDelta(b.SimulationConfig())
	for name, override := range b.Phases {
		p, err := ParsePhase(name)
		if err != nil {
			panic(fmt.Sprintf("ConfigBundle.PhaseTable: %v (call Validate first)", err))
		}
		table[p] = mergePatch(table[p], override)
	}
	return table
}

// mergePatch overlays every set field of top onto base.
func mergePatch(base, top ConfigPatch) ConfigPatch {
	if top.CPUBudget != nil {
		base.CPUBudget = top.CPUBudget
	}
	if top.MemoryCap != nil {
		base.MemoryCap = top.MemoryCap
	}
	if top.LatencyHardCeilingMs != nil {
		base.LatencyHardCeilingMs = top.LatencyHardCeilingMs
	}
	if top.ConcurrencyLimit != nil {
		base.ConcurrencyLimit = top.ConcurrencyLimit
	}
	if top.LoadShape != nil {
		base.LoadShape = top.LoadShape
	}
	if top.TickInterval != nil {
		base.TickInterval = top.TickInterval
	}
	if top.TelemetryEnabled != nil {
		base.TelemetryEnabled = top.TelemetryEnabled
	}
	if top.RetriesEnabled != nil {
		base.RetriesEnabled = top.RetriesEnabled
	}
	if top.IsAccelerated != nil {
		base.IsAccelerated = top.IsAccelerated
	}
	if top.IsAutoAdvancing != nil {
		base.IsAutoAdvancing = top.IsAutoAdvancing
	}
	if top.IsAutopilot != nil {
		base.IsAutopilot = top.IsAutopilot
	}
	if top.IsSelfHealing != nil {
		base.IsSelfHealing = top.IsSelfHealing
	}
	return base
}
