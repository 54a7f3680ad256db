package toptrend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/trendstrength/internal/barometer"
	"github.com/newthinker/trendstrength/internal/core"
)

var levels = []string{"Asset Class", "Broad Sector", "Mid Sector", "Narrow Sector", "Underlying"}

func futureRow(id string, strength int, mid, underlying string) barometer.Row {
	abs := strength
	if abs < 0 {
		abs = -abs
	}
	r := barometer.Row{
		ID:                  core.InstrumentID(id),
		TrendStrength:       strength,
		TrendStrengthPct:    float64(strength) / 22,
		AbsTrendStrength:    abs,
		AbsTrendStrengthPct: float64(abs) / 22,
	}
	if mid != "" {
		r.Sector = core.SectorPath{"Commodity", "Broad", mid, "Narrow", underlying}
	}
	return r
}

func energyHeavy() *barometer.Table {
	var rows []barometer.Row
	// ten trending energy contracts on three underlyings
	for i := range 10 {
		rows = append(rows, futureRow(fmt.Sprintf("c_cl%d_ccb", i), 20-i, "Energy", fmt.Sprintf("Crude%d", i%3)))
	}
	rows = append(rows,
		futureRow("c_gc_ccb", -9, "Metals", "Gold"),
		futureRow("c_si_ccb", 8, "Metals", "Silver"),
		futureRow("c_zc_ccb", 7, "Grains", "Corn"),
		futureRow("c_zw_ccb", -3, "Grains", "Wheat"),
		futureRow("s_spx", 21, "Equity", "SPX"),
	)
	return &barometer.Table{SectorLevels: levels, Rows: rows}
}

func TestFilterRows_SectorCap(t *testing.T) {
	p := DefaultParams()
	p.MaxPerSector = 2

	rows := FilterRows(energyHeavy(), p)

	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Sector.Level(2)]++
	}
	for sector, n := range counts {
		assert.LessOrEqual(t, n, p.MaxPerSector, sector)
	}
	assert.Equal(t, 2, counts["Energy"])
	assert.Equal(t, 2, counts["Metals"])
}

func TestFilter_DedupAndOrder(t *testing.T) {
	got := Filter(energyHeavy(), DefaultParams())

	// energy keeps one contract per underlying, the spot index is not a future
	assert.Equal(t, []core.InstrumentID{
		"c_cl0_ccb", "c_cl1_ccb", "c_cl2_ccb", "c_gc_ccb", "c_si_ccb", "c_zc_ccb", "c_zw_ccb",
	}, got)
}

func TestFilter_AllInstruments(t *testing.T) {
	p := DefaultParams()
	p.FuturesOnly = false
	p.FinalSize = 3

	got := Filter(energyHeavy(), p)
	assert.Equal(t, []core.InstrumentID{"s_spx", "c_cl0_ccb", "c_cl1_ccb"}, got)
}

func TestFilter_InitialSizeLimitsCandidates(t *testing.T) {
	p := DefaultParams()
	p.InitialSize = 4

	got := Filter(energyHeavy(), p)
	assert.Equal(t, []core.InstrumentID{"c_cl0_ccb", "c_cl1_ccb", "c_cl2_ccb"}, got)
}

func TestFilter_EmptyUnderlyingsShareOneSlot(t *testing.T) {
	tb := &barometer.Table{
		SectorLevels: levels,
		Rows: []barometer.Row{
			futureRow("a_ccb", 10, "Softs", ""),
			futureRow("b_ccb", 9, "Softs", ""),
			futureRow("d_ccb", 7, "Softs", "Cocoa"),
			futureRow("c_ccb", 8, "", ""),
			futureRow("e_ccb", 6, "", ""),
		},
	}

	got := Filter(tb, DefaultParams())
	assert.Equal(t, []core.InstrumentID{"a_ccb", "c_ccb", "d_ccb"}, got)
}

func TestFilter_NoUnderlyingLevelKeepsAll(t *testing.T) {
	tb := &barometer.Table{
		SectorLevels: levels[:3],
		Rows: []barometer.Row{
			{ID: "a_ccb", TrendStrength: 10, AbsTrendStrength: 10, Sector: core.SectorPath{"Commodity", "Broad", "Softs"}},
			{ID: "b_ccb", TrendStrength: -9, AbsTrendStrength: 9, Sector: core.SectorPath{"Commodity", "Broad", "Softs"}},
		},
	}

	got := Filter(tb, DefaultParams())
	assert.Equal(t, []core.InstrumentID{"a_ccb", "b_ccb"}, got)
}

func TestFilter_EmptyTable(t *testing.T) {
	assert.Empty(t, Filter(&barometer.Table{}, DefaultParams()))
}

func TestIsContinuousFuture(t *testing.T) {
	assert.True(t, IsContinuousFuture("c_CL_CCB", "_ccb"))
	assert.True(t, IsContinuousFuture("c_es_ccb", "_CCB"))
	assert.False(t, IsContinuousFuture("s_spx", "_ccb"))
	assert.False(t, IsContinuousFuture("c_es_ccb", ""))
}

func TestEquityParams(t *testing.T) {
	p := EquityParams()
	require.False(t, p.FuturesOnly)
	assert.Equal(t, "Sector", p.SectorLevel)
	assert.Equal(t, "Security", p.UnderlyingLevel)
	assert.Equal(t, 20, p.FinalSize)
}
