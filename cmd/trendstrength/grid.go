package main

import (
	"github.com/spf13/cobra"

	"github.com/newthinker/trendstrength/internal/report"
	"github.com/newthinker/trendstrength/internal/selector"
)

var (
	gridRun       string
	gridTrend     string
	gridNumCharts int
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Lay out a market selection as a chart grid",
	RunE:  runGrid,
}

func init() {
	gridCmd.Flags().StringVar(&gridRun, "run", "", "snapshot run id (default latest)")
	gridCmd.Flags().StringVarP(&gridTrend, "trend", "t", "", "selection policy (default from config)")
	gridCmd.Flags().IntVarP(&gridNumCharts, "num-charts", "n", 0, "number of chart panels (default from config)")

	rootCmd.AddCommand(gridCmd)
}

func runGrid(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	policy, err := policyFlag(cfg, gridTrend)
	if err != nil {
		return err
	}
	n := gridNumCharts
	if n <= 0 {
		n = cfg.Selection.NumCharts
	}

	snap, err := loadSnapshot(cmd.Context(), cfg, gridRun)
	if err != nil {
		return err
	}

	g, err := selector.SelectGrid(&snap.Table, policy, n)
	if err != nil {
		return err
	}

	out := report.NewPrinter(cmd.OutOrStdout(), "")
	return out.Grid(&snap.Table, g, report.ChartTitle(policy, true, cfg.Universe.Lookback, snap.CreatedAt))
}
