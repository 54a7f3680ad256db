package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/trendstrength/internal/collector/binance"
	"github.com/newthinker/trendstrength/internal/collector/csvfile"
	"github.com/newthinker/trendstrength/internal/collector/yahoo"
	"github.com/newthinker/trendstrength/internal/metrics"
	"github.com/newthinker/trendstrength/internal/pipeline"
	"github.com/newthinker/trendstrength/internal/report"
	"github.com/newthinker/trendstrength/internal/selector"
	"github.com/newthinker/trendstrength/internal/snapshot"
	"github.com/newthinker/trendstrength/internal/universe"
)

var (
	runEnd   string
	runEvery time.Duration
	runQuiet bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score the universe and store a barometer snapshot",
	Long: `Fetch price history for every instrument of the universe, build the
barometer and print it with the configured selection and the top trend list.
With --every the run repeats on a schedule until interrupted.`,
	RunE: runBarometer,
}

func init() {
	runCmd.Flags().StringVar(&runEnd, "end", "", "last price date YYYY-MM-DD (default today)")
	runCmd.Flags().DurationVar(&runEvery, "every", 0, "repeat the run at this interval")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not print the barometer")

	rootCmd.AddCommand(runCmd)
}

func runBarometer(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	u, err := universe.Load(cfg.Universe.File)
	if err != nil {
		return fmt.Errorf("loading universe: %w", err)
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, u, log)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}
	p.RegisterCollector(csvfile.New(store, cfg.Universe.PricesPath))
	p.RegisterCollector(yahoo.New(yahoo.Config{
		BaseURL:        cfg.Yahoo.BaseURL,
		Timeout:        cfg.Yahoo.Timeout,
		RequestsPerSec: cfg.Yahoo.RequestsPerSec,
		MaxElapsed:     cfg.Yahoo.MaxElapsed,
	}, log.Named("yahoo")))
	p.RegisterCollector(binance.New(binance.Config{
		BaseURL:        cfg.Binance.BaseURL,
		Timeout:        cfg.Binance.Timeout,
		RequestsPerSec: cfg.Binance.RequestsPerSec,
		MaxElapsed:     cfg.Binance.MaxElapsed,
	}, log.Named("binance")))
	p.SetSnapshotStore(snapshot.NewStore(store))

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		p.SetMetrics(reg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runEvery > 0 {
		err := p.Start(ctx, runEvery)
		writeMetrics(reg, cfg.Metrics.Textfile, log)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	end := time.Now()
	if runEnd != "" {
		end, err = time.Parse("2006-01-02", runEnd)
		if err != nil {
			return fmt.Errorf("invalid end date format (expected YYYY-MM-DD): %w", err)
		}
	}

	res, err := p.Run(ctx, end)
	writeMetrics(reg, cfg.Metrics.Textfile, log)
	if err != nil {
		return err
	}

	if runQuiet {
		fmt.Fprintln(cmd.OutOrStdout(), res.Snapshot.RunID)
		return nil
	}

	policy, _ := selector.ParsePolicy(cfg.Selection.Trend)
	out := report.NewPrinter(cmd.OutOrStdout(), cfg.TopTrend.SectorLevel)
	table := res.Table()

	if err := out.Barometer(table, end); err != nil {
		return err
	}
	if err := out.Selection(table, report.ChartTitle(policy, false, cfg.Universe.Lookback, end), res.Snapshot.Selection); err != nil {
		return err
	}
	if err := out.Selection(table, "Top Trends", res.Snapshot.TopTrend); err != nil {
		return err
	}
	if res.Path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s written to %s\n", res.Snapshot.RunID, res.Path)
	}
	return nil
}

func writeMetrics(reg *metrics.Registry, path string, log *zap.Logger) {
	if reg == nil || path == "" {
		return
	}
	if err := reg.WriteTextfile(path); err != nil {
		log.Error("writing metrics textfile", zap.String("path", path), zap.Error(err))
	}
}
