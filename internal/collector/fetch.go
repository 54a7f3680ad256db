package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/trendstrength/internal/core"
)

// FetchAll loads every id from c in order. Instruments that fail are logged
// and reported in failed; only cancellation aborts the batch.
func FetchAll(ctx context.Context, c Collector, ids []core.InstrumentID, start, end time.Time, logger *zap.Logger) (series map[core.InstrumentID]core.PriceSeries, failed []core.InstrumentID, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	series = make(map[core.InstrumentID]core.PriceSeries, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return series, failed, err
		}

		s, err := c.FetchHistory(ctx, id, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return series, failed, ctx.Err()
			}
			logger.Warn("fetch history failed",
				zap.String("collector", c.Name()),
				zap.String("instrument", string(id)),
				zap.Error(err),
			)
			failed = append(failed, id)
			continue
		}
		series[id] = s
	}
	return series, failed, nil
}
