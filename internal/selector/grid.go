package selector

import (
	"github.com/newthinker/trendstrength/internal/barometer"
	"github.com/newthinker/trendstrength/internal/core"
)

// Grid is a selection laid out for a Height x Width panel of charts
type Grid struct {
	Height int
	Width  int
	IDs    []core.InstrumentID
}

// GridDims returns the height and width of a grid holding count charts.
// Widths that divide count (or count+1) evenly are preferred: 5, then 4,
// then 3 for small grids.
func GridDims(count int) (height, width int) {
	if count <= 0 {
		return 0, 0
	}

	width = 5
	switch {
	case count%5 == 0:
		width = 5
	case count%4 == 0:
		width = 4
	case count < 20 && count%3 == 0:
		width = 3
	case (count+1)%5 == 0:
		width = 5
	case (count+1)%4 == 0:
		width = 4
	case count < 20 && (count+1)%3 == 0:
		width = 3
	}

	return (count + width - 1) / width, width
}

// SelectGrid applies policy p to a grid of numCharts panels
func SelectGrid(t *barometer.Table, p Policy, numCharts int) (Grid, error) {
	selected, err := Select(t, p, numCharts)
	if err != nil {
		return Grid{}, err
	}
	h, w := GridDims(numCharts)
	return Grid{Height: h, Width: w, IDs: selected}, nil
}

// Cell returns the id at grid position (row, col), or "" for an empty panel
func (g Grid) Cell(row, col int) core.InstrumentID {
	if row < 0 || col < 0 || col >= g.Width {
		return ""
	}
	i := row*g.Width + col
	if i >= len(g.IDs) {
		return ""
	}
	return g.IDs[i]
}
