package selector

import (
	"github.com/newthinker/trendstrength/internal/barometer"
)

// BarSeries is the data behind one trend bar chart
type BarSeries struct {
	Title      string
	ShortNames []string
	Strength   []float64
	Colors     []barometer.Color
}

// BarData holds the four standard bar charts
type BarData struct {
	Up       BarSeries
	Down     BarSeries
	Neutral  BarSeries
	Strongly BarSeries
}

// Bars shapes k markets per chart. Strongly takes the k largest absolute
// strengths in ascending order.
func Bars(t *barometer.Table, k int) BarData {
	k = max(0, min(k, t.Len()))
	asc := byPct(t, false)
	desc := byPct(t, true)
	absAsc := byAbsPct(t)

	return BarData{
		Up:       barSeries("Up", asc[len(asc)-k:]),
		Down:     barSeries("Down", desc[len(desc)-k:]),
		Neutral:  barSeries("Neutral", absAsc[:k]),
		Strongly: barSeries("Strongly", absAsc[len(absAsc)-k:]),
	}
}

func barSeries(title string, rows []barometer.Row) BarSeries {
	bs := BarSeries{
		Title:      title,
		ShortNames: make([]string, len(rows)),
		Strength:   make([]float64, len(rows)),
		Colors:     make([]barometer.Color, len(rows)),
	}
	for i, r := range rows {
		bs.ShortNames[i] = r.ShortName
		bs.Strength[i] = r.TrendStrengthPct
		bs.Colors[i] = r.Color
	}
	return bs
}
