package pipeline

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/trendstrength/internal/barometer"
	"github.com/newthinker/trendstrength/internal/collector"
	"github.com/newthinker/trendstrength/internal/config"
	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/field"
	"github.com/newthinker/trendstrength/internal/metrics"
	"github.com/newthinker/trendstrength/internal/selector"
	"github.com/newthinker/trendstrength/internal/snapshot"
	"github.com/newthinker/trendstrength/internal/toptrend"
	"github.com/newthinker/trendstrength/internal/universe"
)

// Result is the outcome of one barometer run
type Result struct {
	Snapshot    *snapshot.Snapshot
	Path        string // empty when no snapshot store is set
	Start, End  time.Time
	FetchFailed []core.InstrumentID
	Dropped     []core.InstrumentID
	Diagnostics []*field.IndicatorError
	Duration    time.Duration
}

// Table returns the barometer table of the run
func (r *Result) Table() *barometer.Table {
	return &r.Snapshot.Table
}

// Pipeline runs fetch, clean, generate, aggregate, select and filter over a
// universe
type Pipeline struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	universe   *universe.Universe
	generator  *field.Generator
	aggregator *barometer.Aggregator
	policy     selector.Policy
	snapshots  *snapshot.Store
	metrics    *metrics.Registry
	now        func() time.Time

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	last    *Result
}

// New creates a pipeline for u. cfg must already be validated.
func New(cfg *config.Config, u *universe.Universe, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fc := cfg.Indicators.FieldConfig()
	gen, err := field.NewGenerator(fc, logger.Named("field"))
	if err != nil {
		return nil, err
	}

	flags, err := cfg.FlagSet()
	if err != nil {
		return nil, err
	}
	agg, err := barometer.NewAggregator(flags, fc, logger.Named("barometer"))
	if err != nil {
		return nil, err
	}

	policy, err := selector.ParsePolicy(cfg.Selection.Trend)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
		universe:   u.Limit(cfg.Universe.Limit),
		generator:  gen,
		aggregator: agg,
		policy:     policy,
		now:        time.Now,
	}, nil
}

// RegisterCollector adds a price source
func (p *Pipeline) RegisterCollector(c collector.Collector) {
	p.collectors.Register(c)
}

// SetSnapshotStore enables snapshot persistence
func (p *Pipeline) SetSnapshotStore(s *snapshot.Store) {
	p.snapshots = s
}

// SetMetrics enables metric recording
func (p *Pipeline) SetMetrics(m *metrics.Registry) {
	p.metrics = m
}

// Run scores the universe with prices up to end
func (p *Pipeline) Run(ctx context.Context, end time.Time) (res *Result, err error) {
	began := p.now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordRun(err, p.now().Sub(began), p.now())
		}
	}()

	src, err := p.collectors.Lookup(p.cfg.Universe.Source)
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		src = &timedCollector{Collector: src, metrics: p.metrics}
	}

	res = &Result{
		Start: universe.StartDate(end, p.cfg.Universe.Lookback),
		End:   end,
	}
	ids := p.universe.IDs()

	p.logger.Info("barometer run starting",
		zap.String("source", src.Name()),
		zap.Int("instruments", len(ids)),
		zap.Time("start", res.Start),
		zap.Time("end", res.End),
	)

	prices, failed, err := collector.FetchAll(ctx, src, ids, res.Start, res.End, p.logger)
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}
	res.FetchFailed = failed
	if len(prices) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no prices for %d instruments", len(ids)))
	}

	kept, dropped := universe.Clean(prices, p.cfg.Universe.Lookback, p.cfg.Universe.Window)
	res.Dropped = dropped
	for _, id := range dropped {
		p.logger.Info("instrument dropped",
			zap.String("instrument", string(id)),
			zap.String("reason", "insufficient history"),
		)
	}

	augmented, err := p.generator.GenerateAll(ctx, kept, p.cfg.Universe.Workers)
	if err != nil {
		return nil, fmt.Errorf("generating fields: %w", err)
	}
	for _, id := range slices.Sorted(maps.Keys(augmented)) {
		res.Diagnostics = append(res.Diagnostics, augmented[id].Diagnostics...)
	}

	table := p.aggregator.Build(augmented, p.universe.Metadata())
	snap := snapshot.New(table, p.now())

	snap.Selection, err = selector.Select(table, p.policy, p.cfg.Selection.Mkts)
	if err != nil {
		return nil, err
	}
	snap.TopTrend = toptrend.Filter(table, p.cfg.TopTrend.Params())
	res.Snapshot = snap

	if p.snapshots != nil {
		res.Path, err = p.snapshots.Save(ctx, snap)
		if err != nil {
			return nil, fmt.Errorf("saving snapshot: %w", err)
		}
	}

	res.Duration = p.now().Sub(began)
	p.record(res)

	p.mu.Lock()
	p.last = res
	p.mu.Unlock()

	p.logger.Info("barometer run complete",
		zap.String("run_id", snap.RunID),
		zap.Int("rows", table.Len()),
		zap.Int("fetch_failed", len(res.FetchFailed)),
		zap.Int("dropped", len(res.Dropped)),
		zap.Int("diagnostics", len(res.Diagnostics)),
		zap.Int("missing_flags", len(table.Missing)),
		zap.Duration("duration", res.Duration),
	)

	return res, nil
}

func (p *Pipeline) record(res *Result) {
	if p.metrics == nil {
		return
	}
	table := res.Table()
	p.metrics.RecordProcessed(table.Len())
	p.metrics.RecordDropped("fetch", len(res.FetchFailed))
	p.metrics.RecordDropped("clean", len(res.Dropped))
	for _, d := range res.Diagnostics {
		p.metrics.RecordIndicatorFailure(d.Indicator)
	}
	p.metrics.RecordMissingFlags(len(table.Missing))
	p.metrics.SetBarometerRows(table.Len())
	p.metrics.RecordSelection(p.policy.String())
}

// Start runs the barometer now and then every interval until ctx is done
// or Stop is called
func (p *Pipeline) Start(ctx context.Context, interval time.Duration) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pipeline already running")
	}
	p.running = true

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	p.logger.Info("scheduler starting",
		zap.Int("instruments", len(p.universe.Instruments)),
		zap.Duration("interval", interval),
	)

	p.runScheduled(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			p.runScheduled(ctx)
		}
	}
}

func (p *Pipeline) runScheduled(ctx context.Context) {
	if _, err := p.Run(ctx, p.now()); err != nil && ctx.Err() == nil {
		p.logger.Error("barometer run failed", zap.Error(err))
	}
}

// Stop stops the Start loop
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Last returns the most recent successful result, or nil
func (p *Pipeline) Last() *Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Stats returns pipeline statistics
func (p *Pipeline) Stats() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := map[string]any{
		"running":     p.running,
		"instruments": len(p.universe.Instruments),
		"collectors":  p.collectors.Names(),
		"policy":      p.policy.String(),
		"flags":       len(p.aggregator.FlagSet()),
	}
	if p.last != nil {
		stats["last_run_id"] = p.last.Snapshot.RunID
		stats["last_rows"] = p.last.Table().Len()
	}
	return stats
}

// timedCollector records fetch outcomes and latency
type timedCollector struct {
	collector.Collector
	metrics *metrics.Registry
}

func (t *timedCollector) FetchHistory(ctx context.Context, id core.InstrumentID, start, end time.Time) (core.PriceSeries, error) {
	began := time.Now()
	s, err := t.Collector.FetchHistory(ctx, id, start, end)
	t.metrics.RecordFetch(t.Name(), err, time.Since(began))
	return s, err
}
