package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/phasesim/phasesim/sim"
	_ "github.com/phasesim/phasesim/sim/workload" // registers the synthetic arrival source
)

var (
	// Global flags
	logLevel   string // Log verbosity level
	configPath string // Optional YAML config bundle (baseline + phase table)
	envFile    string // .env file holding advisory settings

	// Engine flags, shared by run and replay
	seed              int64         // Seed for synthetic arrivals
	maxTicks          int64         // Stop after this many ticks (0 = until interrupted)
	tickInterval      time.Duration // Clock interval between ticks
	cpuBudget         float64       // CPU budget percent
	memoryCap         float64       // Synthetic memory cap
	latencyCeilingMs  float64       // End-to-end latency hard ceiling
	concurrencyLimit  int           // Hard occupancy ceiling
	accelerated       bool          // Run the clock 5x faster
	autoAdvance       bool          // Advance phases every 30 ticks
	autopilot         bool          // Let the advisor drive config and phase
	selfHeal          bool          // Audit on errors and apply suggestions
	retries           bool          // Defer instead of refusing at the concurrency limit
	telemetryEnabled  bool          // Notify telemetry observers
	startPhase        string        // Phase to enter before the first tick
	advisorURL        string        // Advisory service base URL (overrides PHASESIM_ADVISOR_URL)
	advisoryTimeout   time.Duration // Per-call advisory deadline
	autopilotEvery    int           // Ticks between autopilot requests
	pathologicalEvery int           // Ticks between stress injections (0 = never)
	metricsAddr       string        // Listen address for /metrics and /ws (empty = off)

	// run flags
	record   bool   // Record arrivals into a trace
	traceOut string // Export the recorded trace to this YAML file
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "phasesim",
	Short: "Tick-driven task routing and admission-control simulator",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		if err := loadEnv(envFile, cmd.Flags().Changed("env-file")); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// runCmd runs the simulation on synthetic load
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation on synthetic load",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := newEngine(cmd.Flags().Changed)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if metricsAddr != "" {
			addr, err := startTelemetry(ctx, e, metricsAddr)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			logrus.Infof("Telemetry listening on %s (/metrics, /ws)", addr)
		}
		recording := record || traceOut != ""
		if recording {
			if err := e.StartRecording(); err != nil {
				logrus.Fatalf("%v", err)
			}
		}

		cfg := e.Config()
		logrus.Infof("Starting simulation: phase=%s cpu=%.0f ceiling=%.0fms concurrency=%d interval=%v seed=%d",
			e.Phase(), cfg.CPUBudget, cfg.LatencyHardCeilingMs, cfg.ConcurrencyLimit, cfg.EffectiveInterval(), seed)

		startTime := time.Now()
		ticks, err := drive(ctx, e, maxTicks, nil)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if recording {
			rec, err := finishRecording(e, traceOut, time.Now())
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			printTraceSummary(os.Stdout, rec)
		}
		printSummary(os.Stdout, e, ticks, time.Since(startTime))
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addEngineFlags binds the engine flags to c.
func addEngineFlags(c *cobra.Command) {
	def := sim.DefaultConfig()
	c.Flags().Int64Var(&seed, "seed", 42, "Seed for synthetic arrivals")
	c.Flags().Int64Var(&maxTicks, "ticks", 0, "Stop after this many ticks (0 = until interrupted)")
	c.Flags().DurationVar(&tickInterval, "interval", def.TickInterval, "Clock interval between ticks")
	c.Flags().Float64Var(&cpuBudget, "cpu-budget", def.CPUBudget, "CPU budget percent")
	c.Flags().Float64Var(&memoryCap, "memory-cap", def.MemoryCap, "Synthetic memory cap")
	c.Flags().Float64Var(&latencyCeilingMs, "latency-ceiling", def.LatencyHardCeilingMs, "End-to-end latency hard ceiling (ms)")
	c.Flags().IntVar(&concurrencyLimit, "concurrency", def.ConcurrencyLimit, "Maximum concurrently executing tasks")
	c.Flags().BoolVar(&accelerated, "accelerated", false, "Fire the clock 5x faster")
	c.Flags().BoolVar(&autoAdvance, "auto-advance", false, "Advance one phase every 30 ticks")
	c.Flags().BoolVar(&autopilot, "autopilot", false, "Let the advisor adjust config and advance phases")
	c.Flags().BoolVar(&selfHeal, "self-heal", false, "Audit on errors and apply the suggested config")
	c.Flags().BoolVar(&retries, "retries", def.RetriesEnabled, "Defer instead of refusing at the concurrency limit")
	c.Flags().BoolVar(&telemetryEnabled, "telemetry", def.TelemetryEnabled, "Publish tick reports to telemetry observers")
	c.Flags().StringVar(&startPhase, "phase", "", "Phase to enter before the first tick (e.g. CASCADING_FAILURE)")
	c.Flags().StringVar(&advisorURL, "advisor-url", "", "Advisory service base URL (default $PHASESIM_ADVISOR_URL)")
	c.Flags().DurationVar(&advisoryTimeout, "advisory-timeout", 10*time.Second, "Deadline for each advisory call")
	c.Flags().IntVar(&autopilotEvery, "autopilot-every", 10, "Ticks between autopilot requests")
	c.Flags().IntVar(&pathologicalEvery, "pathological-every", 0, "Ticks between stress payload injections (0 = never)")
	c.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /ws on this address (empty = off)")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file with baseline and phase overrides")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File with PHASESIM_ADVISOR_URL / PHASESIM_ADVISOR_KEY")

	addEngineFlags(runCmd)
	runCmd.Flags().BoolVar(&record, "record", false, "Record arrivals into a trace")
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "Export the recorded trace to this YAML file (implies --record)")

	addEngineFlags(replayCmd)
	replayCmd.Flags().StringVar(&tracePath, "trace", "", "Trace YAML file to replay")
	replayCmd.Flags().BoolVar(&continueAfterReplay, "continue", false, "Keep running on synthetic load after the trace ends")
	_ = replayCmd.MarkFlagRequired("trace")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(phasesCmd)
}
