package field

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/indicator"
)

const adxTrendThreshold = 25

// Generator derives indicator and flag columns from price history
type Generator struct {
	cfg    Config
	logger *zap.Logger
}

// NewGenerator creates a generator for cfg. The config is copied.
func NewGenerator(cfg Config, logger ...*zap.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}

	return &Generator{
		cfg:    cfg.Clone(),
		logger: l,
	}, nil
}

// Config returns a copy of the active indicator configuration
func (g *Generator) Config() Config {
	return g.cfg.Clone()
}

// Generate builds the augmented series of one instrument. It never fails:
// tenors that cannot be computed are left absent and recorded in Diagnostics.
func (g *Generator) Generate(series core.PriceSeries) *AugmentedSeries {
	aug := newAugmented(series)

	if err := series.Validate(); err != nil {
		g.fail(aug, "series", 0, 0, err)
		return aug
	}

	dates := series.Dates()
	highs, lows, closes := series.Highs(), series.Lows(), series.Closes()

	for _, t := range g.cfg.MAList {
		g.step(aug, "MA", t, 0, func() error {
			if indicator.HasConstantRun(dates, closes, t) {
				return fmt.Errorf("close unchanged for more than %d days", t)
			}
			ma := indicator.TimeWindowMean(dates, closes, t)
			if ma == nil {
				return errors.New("moving average unavailable")
			}
			if err := checkFinal(ma, 0); err != nil {
				return err
			}
			aug.Values[MAColumn(t)] = ma
			return nil
		})
	}

	for _, t := range g.cfg.PriceCrossList {
		g.step(aug, "PX_MA", t, 0, func() error {
			ma, ok := aug.Values[MAColumn(t)]
			if !ok {
				return fmt.Errorf("requires %s", MAColumn(t))
			}
			flags := make([]core.Direction, len(closes))
			for i := range closes {
				flags[i] = above(closes[i], ma[i])
			}
			aug.Flags[PriceCrossFlag(t)] = flags
			return nil
		})
	}

	p := g.cfg.MACD
	g.step(aug, "MACD", 0, 0, func() error {
		macd, sig, hist, err := indicator.MACD(closes, p.Fast, p.Slow, p.Signal)
		if err != nil {
			return err
		}
		if err := checkFinal(hist, indicator.MACDLookback(p.Fast, p.Slow, p.Signal)); err != nil {
			return err
		}
		flags := make([]core.Direction, len(hist))
		for i := range hist {
			flags[i] = core.Short
			if i > 0 && hist[i]-hist[i-1] > 0 {
				flags[i] = core.Long
			}
		}
		aug.Values[MACDColumn] = macd
		aug.Values[MACDSignalColumn] = sig
		aug.Values[MACDHistColumn] = hist
		aug.Flags[MACDFlag()] = flags
		return nil
	})

	for _, t := range g.cfg.ADXList {
		g.step(aug, "ADX", t, 0, func() error {
			adx, err := indicator.ADX(highs, lows, closes, t)
			if err != nil {
				return err
			}
			if err := checkFinal(adx, 2*t-1); err != nil {
				return err
			}
			aug.Values[ADXColumn(t)] = adx

			px, ok := aug.Flags[PriceCrossFlag(t)]
			if !ok {
				return fmt.Errorf("flag direction requires %s", PriceCrossFlag(t))
			}
			flags := make([]core.Direction, len(adx))
			for i, v := range adx {
				switch {
				case !(v > adxTrendThreshold):
					flags[i] = core.Neutral
				case px[i] == core.Long:
					flags[i] = core.Long
				default:
					flags[i] = core.Short
				}
			}
			aug.Flags[ADXFlag(t)] = flags
			return nil
		})
	}

	for _, pair := range g.cfg.MACrossList {
		g.step(aug, "MA_CROSS", pair.Fast, pair.Slow, func() error {
			fast, ok := aug.Values[MAColumn(pair.Fast)]
			if !ok {
				return fmt.Errorf("requires %s", MAColumn(pair.Fast))
			}
			slow, ok := aug.Values[MAColumn(pair.Slow)]
			if !ok {
				return fmt.Errorf("requires %s", MAColumn(pair.Slow))
			}
			flags := make([]core.Direction, len(fast))
			for i := range fast {
				flags[i] = above(fast[i], slow[i])
			}
			aug.Flags[MACrossFlag(pair.Fast, pair.Slow)] = flags
			return nil
		})
	}

	for _, t := range g.cfg.RSIList {
		g.step(aug, "RSI", t, 0, func() error {
			rsi, err := indicator.RSI(closes, t)
			if err != nil {
				return err
			}
			if err := checkFinal(rsi, t); err != nil {
				return err
			}
			flags := make([]core.Direction, len(rsi))
			for i, v := range rsi {
				switch {
				case v > 70:
					flags[i] = core.Long
				case v < 30:
					flags[i] = core.Short
				default:
					flags[i] = core.Neutral
				}
			}
			aug.Values[RSIColumn(t)] = rsi
			aug.Flags[RSIFlag(t)] = flags
			return nil
		})
	}

	for _, t := range g.cfg.BreakoutList {
		g.step(aug, "breakout", t, 0, func() error {
			lower, upper, state, err := indicator.Breakout(highs, lows, t)
			if err != nil {
				return err
			}
			aug.Values[BreakoutLowColumn(t)] = lower
			aug.Values[BreakoutHighColumn(t)] = upper
			aug.Flags[BreakoutFlag(t)] = state
			return nil
		})
	}

	for _, t := range g.cfg.ATRList {
		g.step(aug, "ATR", t, 0, func() error {
			atr, err := indicator.ATR(highs, lows, closes, t)
			if err != nil {
				return err
			}
			if err := checkFinal(atr, t); err != nil {
				return err
			}
			aug.Values[ATRColumn(t)] = atr
			return nil
		})
	}

	return aug
}

// GenerateAll runs Generate for every series on a bounded worker pool and
// returns once all of them are done. workers <= 0 uses GOMAXPROCS.
// On cancellation the instruments finished so far are returned with ctx.Err().
func (g *Generator) GenerateAll(ctx context.Context, series map[core.InstrumentID]core.PriceSeries, workers int) (map[core.InstrumentID]*AugmentedSeries, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ids := make([]core.InstrumentID, 0, len(series))
	for id := range series {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[core.InstrumentID]*AugmentedSeries, len(series))
		jobs    = make(chan core.InstrumentID)
	)

	for range min(workers, max(len(ids), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				s := series[id]
				if s.ID == "" {
					s.ID = id
				}
				aug := g.Generate(s)

				mu.Lock()
				results[id] = aug
				mu.Unlock()
			}
		}()
	}

	var err error
dispatch:
	for _, id := range ids {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	return results, err
}

// step runs one tenor computation, converting errors and panics into a
// diagnostic on aug.
func (g *Generator) step(aug *AugmentedSeries, name string, tenor, slow int, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err != nil {
		g.fail(aug, name, tenor, slow, err)
	}
}

func (g *Generator) fail(aug *AugmentedSeries, name string, tenor, slow int, err error) {
	ie := &IndicatorError{
		Instrument: aug.ID(),
		Indicator:  name,
		Tenor:      tenor,
		Slow:       slow,
		Err:        core.WrapError(core.ErrIndicatorFailed, err),
	}
	aug.Diagnostics = append(aug.Diagnostics, ie)

	fields := []zap.Field{
		zap.String("instrument", string(aug.ID())),
		zap.String("indicator", name),
		zap.Int("tenor", tenor),
		zap.Error(err),
	}
	if slow > 0 {
		fields = append(fields, zap.Int("slow", slow))
	}
	g.logger.Error("indicator failed", fields...)
}

// above compares with NaN semantics: an undefined operand yields Short.
func above(a, b float64) core.Direction {
	if a > b {
		return core.Long
	}
	return core.Short
}

// checkFinal rejects a non-finite last value once the warm-up is over
func checkFinal(values []float64, lookback int) error {
	if len(values) <= lookback {
		return nil
	}
	if v := indicator.Last(values); !indicator.IsFinite(v) {
		return fmt.Errorf("non-finite final value %v", v)
	}
	return nil
}
