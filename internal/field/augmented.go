package field

import (
	"fmt"
	"slices"

	"github.com/newthinker/trendstrength/internal/core"
)

// IndicatorError records one indicator tenor that could not be produced
// for an instrument. The column (or flag) it names is absent.
type IndicatorError struct {
	Instrument core.InstrumentID
	Indicator  string
	Tenor      int
	Slow       int
	Err        error
}

func (e *IndicatorError) Error() string {
	switch {
	case e.Slow > 0:
		return fmt.Sprintf("%s %s(%d,%d): %v", e.Instrument, e.Indicator, e.Tenor, e.Slow, e.Err)
	case e.Tenor > 0:
		return fmt.Sprintf("%s %s(%d): %v", e.Instrument, e.Indicator, e.Tenor, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Instrument, e.Indicator, e.Err)
	}
}

// Unwrap exposes the coded cause, always ErrIndicatorFailed
func (e *IndicatorError) Unwrap() error {
	return e.Err
}

// AugmentedSeries is a PriceSeries extended with indicator and flag columns.
// Columns are aligned with Series.Bars.
type AugmentedSeries struct {
	Series      core.PriceSeries
	Values      map[ColumnKey][]float64
	Flags       map[FlagKey][]core.Direction
	Diagnostics []*IndicatorError
}

func newAugmented(series core.PriceSeries) *AugmentedSeries {
	return &AugmentedSeries{
		Series: series,
		Values: make(map[ColumnKey][]float64),
		Flags:  make(map[FlagKey][]core.Direction),
	}
}

// ID returns the instrument id
func (a *AugmentedSeries) ID() core.InstrumentID {
	return a.Series.ID
}

// Len returns the number of rows
func (a *AugmentedSeries) Len() int {
	return a.Series.Len()
}

// Column returns an indicator column
func (a *AugmentedSeries) Column(k ColumnKey) ([]float64, bool) {
	v, ok := a.Values[k]
	return v, ok
}

// Flag returns a flag column
func (a *AugmentedSeries) Flag(k FlagKey) ([]core.Direction, bool) {
	v, ok := a.Flags[k]
	return v, ok
}

// LastFlag returns the as-of value of a flag. ok is false when the column is
// absent or the series has no rows.
func (a *AugmentedSeries) LastFlag(k FlagKey) (core.Direction, bool) {
	v, ok := a.Flags[k]
	if !ok || len(v) == 0 {
		return core.Neutral, false
	}
	return v[len(v)-1], true
}

// ColumnKeys returns the present indicator columns in a stable order
func (a *AugmentedSeries) ColumnKeys() []ColumnKey {
	keys := make([]ColumnKey, 0, len(a.Values))
	for k := range a.Values {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareColumns)
	return keys
}

// FlagKeys returns the present flag columns in a stable order
func (a *AugmentedSeries) FlagKeys() []FlagKey {
	keys := make([]FlagKey, 0, len(a.Flags))
	for k := range a.Flags {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareFlags)
	return keys
}
