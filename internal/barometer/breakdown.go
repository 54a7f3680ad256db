package barometer

import (
	"fmt"
	"slices"

	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/field"
)

// Proportions are the long/short/neutral shares of one flag across the table
type Proportions struct {
	Long    float64 `json:"long"`
	Short   float64 `json:"short"`
	Neutral float64 `json:"neutral"`
}

// SectorCount is the directional count of one flag within a sector.
// Shares are relative to the column totals across all sectors.
type SectorCount struct {
	Sector       string  `json:"sector"`
	Long         int     `json:"long"`
	Neutral      int     `json:"neutral"`
	Short        int     `json:"short"`
	LongShare    float64 `json:"long_share"`
	NeutralShare float64 `json:"neutral_share"`
	ShortShare   float64 `json:"short_share"`
}

// Breakdown returns how the rows split on flag k
func Breakdown(t *Table, k field.FlagKey) (Proportions, error) {
	if t.FlagSet.Index(k) < 0 {
		return Proportions{}, fmt.Errorf("flag %s not in barometer", k)
	}
	if t.Len() == 0 {
		return Proportions{}, nil
	}

	var long, short, neutral int
	for _, r := range t.Rows {
		v, _ := t.Flag(r, k)
		switch v {
		case core.Long:
			long++
		case core.Short:
			short++
		default:
			neutral++
		}
	}

	n := float64(t.Len())
	return Proportions{
		Long:    float64(long) / n,
		Short:   float64(short) / n,
		Neutral: float64(neutral) / n,
	}, nil
}

// SectorSplit counts flag k per sector at the named level. Rows without a
// sector at that level are left out. Sectors are sorted by name.
func SectorSplit(t *Table, k field.FlagKey, level string) ([]SectorCount, error) {
	if t.FlagSet.Index(k) < 0 {
		return nil, fmt.Errorf("flag %s not in barometer", k)
	}
	if t.LevelIndex(level) < 0 {
		return nil, fmt.Errorf("unknown sector level %q", level)
	}

	bySector := make(map[string]*SectorCount)
	var totalLong, totalNeutral, totalShort int
	for _, r := range t.Rows {
		sector := t.SectorOf(r, level)
		if sector == "" {
			continue
		}
		sc, ok := bySector[sector]
		if !ok {
			sc = &SectorCount{Sector: sector}
			bySector[sector] = sc
		}
		v, _ := t.Flag(r, k)
		switch v {
		case core.Long:
			sc.Long++
			totalLong++
		case core.Short:
			sc.Short++
			totalShort++
		default:
			sc.Neutral++
			totalNeutral++
		}
	}

	out := make([]SectorCount, 0, len(bySector))
	for _, sc := range bySector {
		sc.LongShare = share(sc.Long, totalLong)
		sc.NeutralShare = share(sc.Neutral, totalNeutral)
		sc.ShortShare = share(sc.Short, totalShort)
		out = append(out, *sc)
	}
	slices.SortFunc(out, func(a, b SectorCount) int {
		switch {
		case a.Sector < b.Sector:
			return -1
		case a.Sector > b.Sector:
			return 1
		}
		return 0
	})
	return out, nil
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
