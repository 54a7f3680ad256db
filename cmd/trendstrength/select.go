package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/trendstrength/internal/barometer"
	"github.com/newthinker/trendstrength/internal/config"
	"github.com/newthinker/trendstrength/internal/field"
	"github.com/newthinker/trendstrength/internal/report"
	"github.com/newthinker/trendstrength/internal/selector"
	"github.com/newthinker/trendstrength/internal/snapshot"
	"github.com/newthinker/trendstrength/internal/toptrend"
)

var (
	selectRun       string
	selectTrend     string
	selectMkts      int
	selectBars      int
	selectBreakdown string
	selectTop       bool
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select markets from a stored barometer",
	Long: `Apply a selection policy (up, down, neutral, strong, all) to a stored
barometer snapshot. The latest snapshot is used unless --run is given.`,
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().StringVar(&selectRun, "run", "", "snapshot run id (default latest)")
	selectCmd.Flags().StringVarP(&selectTrend, "trend", "t", "", "selection policy (default from config)")
	selectCmd.Flags().IntVarP(&selectMkts, "mkts", "k", -1, "number of markets (default from config)")
	selectCmd.Flags().IntVar(&selectBars, "bars", 0, "also print bar charts of this many markets")
	selectCmd.Flags().StringVar(&selectBreakdown, "breakdown", "", "print the sector split of this flag, e.g. PX_MA_50_flag")
	selectCmd.Flags().BoolVar(&selectTop, "top", false, "print the diversified top trend list")

	rootCmd.AddCommand(selectCmd)
}

// loadSnapshot reads the snapshot named by runID, or the latest one
func loadSnapshot(ctx context.Context, cfg *config.Config, runID string) (*snapshot.Snapshot, error) {
	store, err := openSnapshots(cfg)
	if err != nil {
		return nil, err
	}
	if runID != "" {
		return store.Load(ctx, runID)
	}
	return store.Latest(ctx)
}

// policyFlag resolves a --trend value against the configured default
func policyFlag(cfg *config.Config, flag string) (selector.Policy, error) {
	if flag == "" {
		flag = cfg.Selection.Trend
	}
	return selector.ParsePolicy(flag)
}

func runSelect(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	policy, err := policyFlag(cfg, selectTrend)
	if err != nil {
		return err
	}
	k := selectMkts
	if k < 0 {
		k = cfg.Selection.Mkts
	}

	snap, err := loadSnapshot(cmd.Context(), cfg, selectRun)
	if err != nil {
		return err
	}
	table := &snap.Table

	ids, err := selector.Select(table, policy, k)
	if err != nil {
		return err
	}

	out := report.NewPrinter(cmd.OutOrStdout(), cfg.TopTrend.SectorLevel)
	heading := report.ChartTitle(policy, false, cfg.Universe.Lookback, snap.CreatedAt)
	if err := out.Selection(table, heading, ids); err != nil {
		return err
	}

	if selectTop {
		top := toptrend.Filter(table, cfg.TopTrend.Params())
		if err := out.Selection(table, "Top Trends", top); err != nil {
			return err
		}
	}

	if selectBars > 0 {
		if err := out.Bars(selector.Bars(table, selectBars), 40); err != nil {
			return err
		}
	}

	if selectBreakdown != "" {
		flag, err := field.ParseFlagKey(selectBreakdown)
		if err != nil {
			return err
		}
		total, err := barometer.Breakdown(table, flag)
		if err != nil {
			return err
		}
		sectors, err := barometer.SectorSplit(table, flag, cfg.TopTrend.SectorLevel)
		if err != nil {
			return fmt.Errorf("sector split: %w", err)
		}
		if err := out.Breakdown(flag.String(), total, sectors); err != nil {
			return err
		}
	}
	return nil
}
