package universe

import (
	"maps"
	"slices"
	"time"

	"github.com/newthinker/trendstrength/internal/core"
)

// Clean drops series whose history is too short or too flat to score:
// fewer than 90% of window bars, or fewer than lookback/15 distinct closes.
// window <= 0 uses the longest series. It returns the kept series and the
// dropped ids in sorted order. The input map is not modified.
func Clean(series map[core.InstrumentID]core.PriceSeries, lookback, window int) (map[core.InstrumentID]core.PriceSeries, []core.InstrumentID) {
	if window <= 0 {
		for _, s := range series {
			window = max(window, s.Len())
		}
	}

	minBars := float64(window) * 0.9
	minUnique := float64(lookback) / 15

	kept := make(map[core.InstrumentID]core.PriceSeries, len(series))
	var dropped []core.InstrumentID
	for _, id := range slices.Sorted(maps.Keys(series)) {
		s := series[id]
		if float64(s.Len()) < minBars || float64(distinctCloses(s)) < minUnique {
			dropped = append(dropped, id)
			continue
		}
		kept[id] = s
	}
	return kept, dropped
}

func distinctCloses(s core.PriceSeries) int {
	seen := make(map[float64]struct{}, len(s.Bars))
	for _, b := range s.Bars {
		seen[b.Close] = struct{}{}
	}
	return len(seen)
}

// StartDate steps back lookback weekdays from end
func StartDate(end time.Time, lookback int) time.Time {
	d := end
	for n := 0; n < lookback; {
		d = d.AddDate(0, 0, -1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return d
}
