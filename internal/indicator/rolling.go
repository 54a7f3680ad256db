package indicator

import (
	"math"
	"time"
)

// TimeWindowMean calculates a calendar-day moving average.
// out[t] is the mean of every value whose date falls in (dates[t]-days, dates[t]],
// so holiday gaps shrink the sample count instead of stretching the window.
// Returns nil when dates and values differ in length.
func TimeWindowMean(dates []time.Time, values []float64, days int) []float64 {
	if len(dates) != len(values) || days < 1 {
		return nil
	}

	result := make([]float64, len(values))

	var sum float64
	var count int
	start := 0

	for t := range values {
		sum += values[t]
		count++

		cutoff := dates[t].AddDate(0, 0, -days)
		for start < t && !dates[start].After(cutoff) {
			sum -= values[start]
			count--
			start++
		}

		result[t] = sum / float64(count)
	}

	return result
}

// LongestConstantRun returns the longest calendar span over which values stayed unchanged
func LongestConstantRun(dates []time.Time, values []float64) time.Duration {
	if len(dates) != len(values) || len(values) < 2 {
		return 0
	}

	var longest time.Duration
	runStart := 0
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			runStart = i
			continue
		}
		if span := dates[i].Sub(dates[runStart]); span > longest {
			longest = span
		}
	}
	return longest
}

// HasConstantRun reports whether values stayed unchanged for more than days calendar days
func HasConstantRun(dates []time.Time, values []float64, days int) bool {
	return LongestConstantRun(dates, values) > time.Duration(days)*24*time.Hour
}

// Last returns the final value, or NaN for an empty slice
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
