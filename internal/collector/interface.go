package collector

import (
	"context"
	"time"

	"github.com/newthinker/trendstrength/internal/core"
)

// Collector supplies daily OHLC history for an instrument
type Collector interface {
	Name() string

	// FetchHistory returns the bars dated within [start, end]. A zero start
	// or end leaves that side open.
	FetchHistory(ctx context.Context, id core.InstrumentID, start, end time.Time) (core.PriceSeries, error)
}

// InRange reports whether d falls within [start, end], zero bounds open
func InRange(d, start, end time.Time) bool {
	if !start.IsZero() && d.Before(start) {
		return false
	}
	if !end.IsZero() && d.After(end) {
		return false
	}
	return true
}
