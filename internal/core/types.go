package core

import (
	"fmt"
	"strings"
	"time"
)

// InstrumentID identifies a tradable market (ticker code)
type InstrumentID string

// AssetType represents the type of instrument in the universe
type AssetType string

const (
	AssetFuture    AssetType = "future"
	AssetSpot      AssetType = "spot"
	AssetIndex     AssetType = "index"
	AssetEquity    AssetType = "equity"
	AssetRatio     AssetType = "ratio"
	AssetYield     AssetType = "yield"
	AssetUndefined AssetType = ""
)

// Direction is the directional bias carried by a trend flag
type Direction int8

const (
	Short   Direction = -1
	Neutral Direction = 0
	Long    Direction = 1
)

// IsValid reports whether d is one of Short, Neutral, Long
func (d Direction) IsValid() bool {
	return d >= Short && d <= Long
}

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	case Neutral:
		return "neutral"
	default:
		return fmt.Sprintf("direction(%d)", int8(d))
	}
}

// Bar is one daily OHLC reading
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// PriceSeries is the date-ordered OHLC history of one instrument
type PriceSeries struct {
	ID   InstrumentID
	Bars []Bar
}

// Len returns the number of bars
func (s PriceSeries) Len() int {
	return len(s.Bars)
}

// Validate checks that dates are strictly increasing
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return WrapError(ErrInvalidSeries,
				fmt.Errorf("%s: bar %d (%s) not after bar %d (%s)", s.ID, i,
					s.Bars[i].Date.Format("2006-01-02"), i-1, s.Bars[i-1].Date.Format("2006-01-02")))
		}
	}
	return nil
}

// Dates returns the bar dates
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// Opens returns the open prices
func (s PriceSeries) Opens() []float64 {
	return s.column(func(b Bar) float64 { return b.Open })
}

// Highs returns the high prices
func (s PriceSeries) Highs() []float64 {
	return s.column(func(b Bar) float64 { return b.High })
}

// Lows returns the low prices
func (s PriceSeries) Lows() []float64 {
	return s.column(func(b Bar) float64 { return b.Low })
}

// Closes returns the close prices
func (s PriceSeries) Closes() []float64 {
	return s.column(func(b Bar) float64 { return b.Close })
}

func (s PriceSeries) column(get func(Bar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = get(b)
	}
	return out
}

// SectorPath is a variable-depth sector taxonomy, broadest level first.
// e.g. Commodities / Energy / Petroleum / Petroleum / Brent Crude Oil
type SectorPath []string

// Level returns the entry at depth i, or "" when the path is shorter
func (p SectorPath) Level(i int) string {
	if i < 0 || i >= len(p) {
		return ""
	}
	return p[i]
}

func (p SectorPath) String() string {
	return strings.Join(p, " / ")
}
