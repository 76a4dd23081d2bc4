package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/phasesim/phasesim/sim"
	"github.com/phasesim/phasesim/sim/advisory"
)

// Environment variables read for the advisory service.
const (
	envAdvisorURL = "PHASESIM_ADVISOR_URL"
	envAdvisorKey = "PHASESIM_ADVISOR_KEY"
)

// loadEnv loads path into the process environment without overriding
// variables that are already set. A missing file is only an error when
// the user named it explicitly.
func loadEnv(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// resolveConfig builds the starting configuration: defaults, then the YAML
// bundle (if any), then every flag the user set explicitly. The returned
// phase table's BASE entry restores that final baseline.
func resolveConfig(changed func(string) bool) (sim.SimulationConfig, sim.PhaseTable, int, error) {
	cfg := sim.DefaultConfig()
	table := sim.DefaultPhaseTable()
	historySize := 0
	if configPath != "" {
		bundle, err := sim.LoadConfigBundle(configPath)
		if err != nil {
			return cfg, nil, 0, err
		}
		cfg = bundle.SimulationConfig()
		table = bundle.PhaseTable()
		historySize = bundle.HistorySize
	}
	cfg = flagPatch(changed).Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, 0, fmt.Errorf("invalid configuration: %w", err)
	}
	table[sim.PhaseBase] = sim.BaselineDelta(cfg)
	return cfg, table, historySize, nil
}

// flagPatch collects the flags the user set explicitly. Unset flags keep
// whatever the config file (or the defaults) chose.
func flagPatch(changed func(string) bool) sim.ConfigPatch {
	var p sim.ConfigPatch
	if changed("cpu-budget") {
		p.CPUBudget = sim.Float64Ptr(cpuBudget)
	}
	if changed("memory-cap") {
		p.MemoryCap = sim.Float64Ptr(memoryCap)
	}
	if changed("latency-ceiling") {
		p.LatencyHardCeilingMs = sim.Float64Ptr(latencyCeilingMs)
	}
	if changed("concurrency") {
		p.ConcurrencyLimit = sim.IntPtr(concurrencyLimit)
	}
	if changed("interval") {
		interval := tickInterval
		p.TickInterval = &interval
	}
	if changed("accelerated") {
		p.IsAccelerated = sim.BoolPtr(accelerated)
	}
	if changed("auto-advance") {
		p.IsAutoAdvancing = sim.BoolPtr(autoAdvance)
	}
	if changed("autopilot") {
		p.IsAutopilot = sim.BoolPtr(autopilot)
	}
	if changed("self-heal") {
		p.IsSelfHealing = sim.BoolPtr(selfHeal)
	}
	if changed("retries") {
		p.RetriesEnabled = sim.BoolPtr(retries)
	}
	if changed("telemetry") {
		p.TelemetryEnabled = sim.BoolPtr(telemetryEnabled)
	}
	return p
}

// newAdvisor returns the advisory client, or nil when no endpoint is
// configured (advisory features then stay dormant).
func newAdvisor() sim.Advisor {
	url := advisorURL
	if url == "" {
		url = os.Getenv(envAdvisorURL)
	}
	if url == "" {
		return nil
	}
	return advisory.NewClient(url, os.Getenv(envAdvisorKey), advisoryTimeout)
}

// newEngine builds the engine from flags, config file and environment, and
// enters --phase if given. Automatic phase drivers are switched on only
// after the manual jump, which they would otherwise lock out.
func newEngine(changed func(string) bool) (*sim.Engine, error) {
	cfg, table, historySize, err := resolveConfig(changed)
	if err != nil {
		return nil, err
	}
	modes := sim.ConfigPatch{
		IsAutoAdvancing: sim.BoolPtr(cfg.IsAutoAdvancing),
		IsAutopilot:     sim.BoolPtr(cfg.IsAutopilot),
	}
	cfg.IsAutoAdvancing, cfg.IsAutopilot = false, false

	advisor := newAdvisor()
	if advisor == nil && (*modes.IsAutopilot || cfg.IsSelfHealing || pathologicalEvery > 0) {
		return nil, fmt.Errorf("autopilot, self-heal and pathological injection need an advisory service (--advisor-url or %s)", envAdvisorURL)
	}

	e := sim.NewEngine(sim.EngineConfig{
		Config:            cfg,
		Phases:            table,
		Seed:              seed,
		HistorySize:       historySize,
		Advisor:           advisor,
		AdvisoryTimeout:   advisoryTimeout,
		AutopilotEvery:    autopilotEvery,
		PathologicalEvery: pathologicalEvery,
	})
	if startPhase != "" {
		p, err := sim.ParsePhase(startPhase)
		if err != nil {
			return nil, err
		}
		if err := e.SelectPhase(p); err != nil {
			return nil, err
		}
	}
	if err := e.UpdateConfig(modes); err != nil {
		return nil, err
	}
	return e, nil
}
