package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phasesim/phasesim/sim"
	"github.com/phasesim/phasesim/sim/trace"
)

// drive ticks e on its own clock until maxTicks ticks ran (0 = unbounded),
// stop reports true, or ctx is cancelled. Cancellation is a normal exit.
func drive(ctx context.Context, e *sim.Engine, maxTicks int64, stop func(sim.TickReport) bool) (int64, error) {
	var ticks int64
	clock := sim.NewClock(e.Interval)
	err := clock.Run(ctx, func(now time.Time) bool {
		r := e.Tick(ctx, now)
		ticks++
		if r.ReplayEnded {
			logrus.Infof("[tick %07d] replay finished", r.Metrics.Timestamp)
		}
		if stop != nil && stop(r) {
			return false
		}
		return maxTicks == 0 || ticks < maxTicks
	})
	if errors.Is(err, context.Canceled) {
		logrus.Infof("Interrupted after %d ticks", ticks)
		err = nil
	}
	return ticks, err
}

// finishRecording stops the recording session and, if path is set,
// exports the trace there.
func finishRecording(e *sim.Engine, path string, now time.Time) (*trace.TraceRecord, error) {
	rec, err := e.StopRecording(now)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := trace.ExportTrace(rec, path); err != nil {
			return rec, err
		}
		logrus.Infof("Trace %s written to %s", rec.ID, path)
	}
	return rec, nil
}

// printSummary writes the run summary and the last metrics snapshot.
func printSummary(w io.Writer, e *sim.Engine, ticks int64, elapsed time.Duration) {
	history := e.History()
	cfg := e.Config()
	_, _ = fmt.Fprintln(w, "=== Simulation Summary ===")
	_, _ = fmt.Fprintf(w, "Ticks: %d (%.2fs wall clock)\n", ticks, elapsed.Seconds())
	_, _ = fmt.Fprintf(w, "Phase: %s\n", e.Phase())
	_, _ = fmt.Fprintf(w, "Live tasks: %d\n", len(e.Tasks()))

	var refusals, errs, throughput int
	for _, m := range history {
		refusals += m.RefusalCount
		errs += m.ErrorCount
		throughput += m.Throughput
	}
	_, _ = fmt.Fprintf(w, "Window (%d ticks): throughput=%d refusals=%d errors=%d\n", len(history), throughput, refusals, errs)
	_, _ = fmt.Fprintf(w, "Config: cpu=%.0f ceiling=%.0fms concurrency=%d retries=%v\n",
		cfg.CPUBudget, cfg.LatencyHardCeilingMs, cfg.ConcurrencyLimit, cfg.RetriesEnabled)
	if len(history) > 0 {
		data, err := json.MarshalIndent(history[len(history)-1], "", "  ")
		if err == nil {
			_, _ = fmt.Fprintf(w, "Last snapshot:\n%s\n", data)
		}
	}
	if decisions := e.Decisions(); len(decisions) > 0 {
		_, _ = fmt.Fprintln(w, "Decision log:")
		for _, d := range decisions {
			_, _ = fmt.Fprintf(w, "  %s  %s: %s\n", d.Timestamp.Format(time.TimeOnly), d.Action, d.Reason)
		}
	}
}

// printTraceSummary writes a short description of a trace.
func printTraceSummary(w io.Writer, rec *trace.TraceRecord) {
	s := trace.Summarize(rec)
	_, _ = fmt.Fprintln(w, "=== Trace ===")
	_, _ = fmt.Fprintf(w, "ID: %s\n", rec.ID)
	_, _ = fmt.Fprintf(w, "Phase: %s  Integrity: %.1f\n", rec.Phase, rec.IntegrityScore)
	_, _ = fmt.Fprintf(w, "Ticks: %d  Arrivals: %d (primary %d, edge %d)  Mean complexity: %.1f  Busiest tick: %d\n",
		s.TickCount, s.ArrivalCount, s.PrimaryCount, s.EdgeCount, s.MeanComplexity, s.BusiestTick)
}
