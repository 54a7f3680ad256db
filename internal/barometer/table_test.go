package barometer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/field"
)

var fiveFlags = field.FlagSet{
	field.PriceCrossFlag(10),
	field.PriceCrossFlag(20),
	field.PriceCrossFlag(30),
	field.PriceCrossFlag(50),
	field.PriceCrossFlag(100),
}

// lastRow builds a one-bar augmented series with the given flag values
func lastRow(id string, flags field.FlagSet, values ...core.Direction) *field.AugmentedSeries {
	aug := &field.AugmentedSeries{
		Series: core.PriceSeries{
			ID:   core.InstrumentID(id),
			Bars: []core.Bar{{Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Close: 1}},
		},
		Values: map[field.ColumnKey][]float64{},
		Flags:  map[field.FlagKey][]core.Direction{},
	}
	for i, v := range values {
		aug.Flags[flags[i]] = []core.Direction{v}
	}
	return aug
}

func newTestAggregator(t *testing.T, flags field.FlagSet) *Aggregator {
	t.Helper()
	a, err := NewAggregator(flags, field.DefaultConfig())
	require.NoError(t, err)
	return a
}

func TestBuild_ScenarioA(t *testing.T) {
	a := newTestAggregator(t, fiveFlags)
	table := a.Build(map[core.InstrumentID]*field.AugmentedSeries{
		"A": lastRow("A", fiveFlags, 1, 1, 1, -1, 1),
	}, Metadata{})

	require.Equal(t, 1, table.Len())
	r := table.Rows[0]
	assert.Equal(t, 3, r.TrendStrength)
	assert.InDelta(t, 0.6, r.TrendStrengthPct, 1e-12)
	assert.InDelta(t, 0.6, r.AbsTrendStrengthPct, 1e-12)
	assert.Equal(t, 3, r.AbsTrendStrength)
	assert.Equal(t, Red, r.Color)
	assert.Empty(t, table.Missing)
}

func TestBuild_ScenarioB(t *testing.T) {
	flags := field.DefaultFlagSet()[:11]
	values := make([]core.Direction, 11)
	for i := range values {
		values[i] = core.Long
	}

	a := newTestAggregator(t, flags)
	table := a.Build(map[core.InstrumentID]*field.AugmentedSeries{
		"B": lastRow("B", flags, values...),
	}, Metadata{})

	r := table.Rows[0]
	assert.Equal(t, 11, r.TrendStrength)
	assert.Equal(t, 1.0, r.TrendStrengthPct)
	assert.Equal(t, Green, r.Color)
}

func TestBuild_ColorThresholdsIgnoreFlagSetSize(t *testing.T) {
	// every flag long on a five flag set is still only orange
	a := newTestAggregator(t, fiveFlags)
	table := a.Build(map[core.InstrumentID]*field.AugmentedSeries{
		"A": lastRow("A", fiveFlags, 1, 1, 1, 1, 1),
	}, Metadata{})

	r := table.Rows[0]
	assert.Equal(t, 1.0, r.TrendStrengthPct)
	assert.Equal(t, Orange, r.Color)
}

func TestColorFor(t *testing.T) {
	tests := []struct {
		strength int
		want     Color
	}{
		{0, Red},
		{4, Red},
		{-4, Red},
		{5, Orange},
		{9, Orange},
		{-7, Orange},
		{10, Green},
		{-22, Green},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ColorFor(tt.strength), "strength %d", tt.strength)
	}
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "S&P 500 E-mini", ShortName("S&P 500 E-mini Continuous Futures Backadjusted"))
	assert.Equal(t, "Gold", ShortName("Gold"))
	assert.Equal(t, "", ShortName(" Continuous"))
	assert.Equal(t, "Crude", ShortName("Crude Continuous Continuous"))
}

func TestBuild_MissingFlagsScoreNeutral(t *testing.T) {
	a := newTestAggregator(t, fiveFlags)
	empty := &field.AugmentedSeries{Series: core.PriceSeries{ID: "EMPTY"}}

	table := a.Build(map[core.InstrumentID]*field.AugmentedSeries{
		"PART":  lastRow("PART", fiveFlags, 1, 1),
		"EMPTY": empty,
	}, Metadata{})

	part, ok := table.Row("PART")
	require.True(t, ok)
	assert.Equal(t, []core.Direction{1, 1, 0, 0, 0}, part.Flags)
	assert.Equal(t, 2, part.TrendStrength)

	emptyRow, ok := table.Row("EMPTY")
	require.True(t, ok)
	assert.Equal(t, 0, emptyRow.TrendStrength)

	assert.Len(t, table.Missing, 5+3)
	for _, m := range table.Missing {
		assert.True(t, errors.Is(m, core.ErrMissingFlag))
	}
	assert.Equal(t, MissingFlag{ID: "EMPTY", Flag: field.PriceCrossFlag(10)}, table.Missing[0])
}

func TestBuild_MetadataJoin(t *testing.T) {
	a := newTestAggregator(t, fiveFlags)
	meta := Metadata{
		Names: map[core.InstrumentID]string{
			"ES": "S&P 500 E-mini Continuous Futures Backadjusted",
		},
		Sectors: map[core.InstrumentID]core.SectorPath{
			"ES": {"Equity", "Index", "US Large Cap", "S&P 500", "ES"},
		},
		SectorLevels: []string{"Asset Class", "Broad Sector", "Mid Sector", "Narrow Sector", "Underlying"},
	}

	table := a.Build(map[core.InstrumentID]*field.AugmentedSeries{
		"ES":  lastRow("ES", fiveFlags, 1),
		"UNK": lastRow("UNK", fiveFlags, -1),
	}, meta)

	es, _ := table.Row("ES")
	assert.Equal(t, "S&P 500 E-mini", es.ShortName)
	assert.Equal(t, "US Large Cap", table.SectorOf(es, "Mid Sector"))

	unk, ok := table.Row("UNK")
	require.True(t, ok)
	assert.Equal(t, "UNK", unk.LongName)
	assert.Equal(t, "UNK", unk.ShortName)
	assert.Empty(t, unk.Sector)
	assert.Equal(t, "", table.SectorOf(unk, "Mid Sector"))
}

func TestBuild_OrderByStrengthThenID(t *testing.T) {
	a := newTestAggregator(t, fiveFlags)
	table := a.Build(map[core.InstrumentID]*field.AugmentedSeries{
		"C": lastRow("C", fiveFlags, 1, 1),
		"A": lastRow("A", fiveFlags, 1, 1),
		"B": lastRow("B", fiveFlags, -1),
		"D": lastRow("D", fiveFlags, 1, 1, 1),
	}, Metadata{})

	assert.Equal(t, []core.InstrumentID{"D", "A", "C", "B"}, table.IDs())
}

func TestNewAggregator_InvalidFlagSet(t *testing.T) {
	_, err := NewAggregator(field.ExtendedFlagSet(), field.DefaultConfig())
	assert.True(t, errors.Is(err, core.ErrFlagSetInvalid))

	_, err = NewAggregator(nil, field.DefaultConfig())
	assert.Error(t, err)
}

func generated(t *testing.T) map[core.InstrumentID]*field.AugmentedSeries {
	t.Helper()
	g, err := field.NewGenerator(field.DefaultConfig())
	require.NoError(t, err)

	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make(map[core.InstrumentID]*field.AugmentedSeries)
	for k, slope := range map[string]float64{"UP": 0.8, "DOWN": -0.6, "WAVE": 0} {
		bars := make([]core.Bar, 260)
		for i := range bars {
			c := 200 + slope*float64(i) + 5*float64((i*7)%11-5)/5
			bars[i] = core.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1.5, Low: c - 1.5, Close: c}
		}
		id := core.InstrumentID(k)
		out[id] = g.Generate(core.PriceSeries{ID: id, Bars: bars})
	}
	return out
}

func TestBuild_NormalizationInvariant(t *testing.T) {
	a := newTestAggregator(t, field.DefaultFlagSet())
	table := a.Build(generated(t), Metadata{})

	require.Equal(t, 3, table.Len())
	for _, r := range table.Rows {
		assert.Len(t, r.Flags, 22)
		for _, f := range r.Flags {
			assert.True(t, f.IsValid())
		}
		assert.Equal(t, float64(r.TrendStrength)/22, r.TrendStrengthPct)
		assert.GreaterOrEqual(t, r.TrendStrengthPct, -1.0)
		assert.LessOrEqual(t, r.TrendStrengthPct, 1.0)
		assert.GreaterOrEqual(t, r.AbsTrendStrengthPct, 0.0)
		assert.LessOrEqual(t, r.AbsTrendStrengthPct, 1.0)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	a := newTestAggregator(t, field.DefaultFlagSet())
	first := a.Build(generated(t), Metadata{})
	second := a.Build(generated(t), Metadata{})

	assert.Equal(t, first, second)
}
