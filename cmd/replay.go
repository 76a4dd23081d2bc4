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
	"github.com/phasesim/phasesim/sim/trace"
)

var (
	tracePath           string // Trace YAML file to replay
	continueAfterReplay bool   // Keep running on synthetic load after the trace ends
)

// replayCmd replays a recorded trace through the engine
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded trace",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := newEngine(cmd.Flags().Changed)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		rec, err := selectTraceFile(e, tracePath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		printTraceSummary(os.Stdout, rec)
		if metricsAddr != "" {
			addr, err := startTelemetry(ctx, e, metricsAddr)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			logrus.Infof("Telemetry listening on %s (/metrics, /ws)", addr)
		}

		startTime := time.Now()
		ticks, err := drive(ctx, e, maxTicks, stopAtReplayEnd(continueAfterReplay))
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		printSummary(os.Stdout, e, ticks, time.Since(startTime))
		logrus.Info("Replay complete.")
	},
}

// selectTraceFile loads a trace file into e's store and starts replaying it.
func selectTraceFile(e *sim.Engine, path string) (*trace.TraceRecord, error) {
	rec, err := trace.LoadTrace(path)
	if err != nil {
		return nil, err
	}
	e.Traces().Add(rec)
	if err := e.SelectTrace(rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

// stopAtReplayEnd ends the run on the tick that exhausts the trace unless
// keepGoing is set.
func stopAtReplayEnd(keepGoing bool) func(sim.TickReport) bool {
	if keepGoing {
		return nil
	}
	return func(r sim.TickReport) bool { return r.ReplayEnded }
}
