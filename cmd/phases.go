package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/phasesim/phasesim/sim"
)

// phasesCmd prints the effective phase escalation table
var phasesCmd = &cobra.Command{
	Use:   "phases",
	Short: "Print the phase table (after --config overrides)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, table, _, err := resolveConfig(func(string) bool { return false })
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		printPhaseTable(os.Stdout, cfg, table)
	},
}

// printPhaseTable writes the configuration each phase runs with when
// entered in order from base.
func printPhaseTable(w io.Writer, base sim.SimulationConfig, table sim.PhaseTable) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PHASE\tCPU\tCEILING_MS\tCONCURRENCY\tRETRIES\tLOAD\tHARD_CEILINGS")
	cfg := base
	for _, p := range sim.Phases() {
		cfg = table[p].Apply(cfg)
		_, _ = fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t%d\t%v\t%s\t%v\n",
			p, cfg.CPUBudget, cfg.LatencyHardCeilingMs, cfg.ConcurrencyLimit, cfg.RetriesEnabled, cfg.LoadShape, p.HoldsHardCeilings())
	}
	_ = tw.Flush()
}
