package barometer

import (
	"strings"

	"github.com/newthinker/trendstrength/internal/core"
)

// Color is the three-tier band of an instrument's trend strength
type Color string

const (
	Red    Color = "red"
	Orange Color = "orange"
	Green  Color = "green"
)

// Band thresholds apply to the raw strength and were calibrated on the
// 22 flag set. They do not follow the flag set size.
const (
	orangeThreshold = 5
	greenThreshold  = 10
)

// ColorFor classifies a raw trend strength by magnitude
func ColorFor(strength int) Color {
	if strength < 0 {
		strength = -strength
	}
	switch {
	case strength >= greenThreshold:
		return Green
	case strength >= orangeThreshold:
		return Orange
	default:
		return Red
	}
}

// ShortName drops everything from the first " Continuous" onward
func ShortName(long string) string {
	if i := strings.Index(long, " Continuous"); i >= 0 {
		return long[:i]
	}
	return long
}

// Row is one instrument of the barometer. Flags are aligned with the
// table's FlagSet.
type Row struct {
	ID                  core.InstrumentID `json:"id"`
	LongName            string            `json:"long_name"`
	ShortName           string            `json:"short_name"`
	Flags               []core.Direction  `json:"flags"`
	TrendStrength       int               `json:"trend_strength"`
	TrendStrengthPct    float64           `json:"trend_strength_pct"`
	AbsTrendStrength    int               `json:"abs_trend_strength"`
	AbsTrendStrengthPct float64           `json:"abs_trend_strength_pct"`
	Color               Color             `json:"color"`
	Sector              core.SectorPath   `json:"sector,omitempty"`
}

func newRow(id core.InstrumentID, name string, flags []core.Direction, sector core.SectorPath) Row {
	if name == "" {
		name = string(id)
	}

	sum := 0
	for _, f := range flags {
		sum += int(f)
	}

	pct := 0.0
	if len(flags) > 0 {
		pct = float64(sum) / float64(len(flags))
	}

	abs, absPct := sum, pct
	if sum < 0 {
		abs, absPct = -sum, -pct
	}

	return Row{
		ID:                  id,
		LongName:            name,
		ShortName:           ShortName(name),
		Flags:               flags,
		TrendStrength:       sum,
		TrendStrengthPct:    pct,
		AbsTrendStrength:    abs,
		AbsTrendStrengthPct: absPct,
		Color:               ColorFor(sum),
		Sector:              sector,
	}
}
