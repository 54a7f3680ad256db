package toptrend

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/newthinker/trendstrength/internal/barometer"
	"github.com/newthinker/trendstrength/internal/core"
)

// Params controls the diversified shortlist
type Params struct {
	InitialSize     int
	MaxPerSector    int
	FinalSize       int
	SectorLevel     string
	UnderlyingLevel string

	// FuturesOnly restricts the candidates to continuous futures, recognised
	// by FuturesSuffix anywhere in the id (case-insensitive).
	FuturesOnly   bool
	FuturesSuffix string
}

// DefaultParams returns the futures universe settings
func DefaultParams() Params {
	return Params{
		InitialSize:     50,
		MaxPerSector:    5,
		FinalSize:       20,
		SectorLevel:     "Mid Sector",
		UnderlyingLevel: "Underlying",
		FuturesOnly:     true,
		FuturesSuffix:   "_ccb",
	}
}

// EquityParams returns the settings for an equity universe
func EquityParams() Params {
	p := DefaultParams()
	p.SectorLevel = "Sector"
	p.UnderlyingLevel = "Security"
	p.FuturesOnly = false
	return p
}

// IsContinuousFuture reports whether id carries the continuous-future suffix
func IsContinuousFuture(id core.InstrumentID, suffix string) bool {
	if suffix == "" {
		return false
	}
	return strings.Contains(strings.ToLower(string(id)), strings.ToLower(suffix))
}

// Filter returns the ids of the shortlist, strongest first
func Filter(t *barometer.Table, p Params) []core.InstrumentID {
	rows := FilterRows(t, p)
	out := make([]core.InstrumentID, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

// FilterRows takes the InitialSize strongest rows by absolute trend
// strength, keeps the first row per underlying and at most MaxPerSector rows
// per sector, then returns the FinalSize strongest of what is left.
// Rows without a sector share one group. Rows without an underlying share
// one underlying too, unless the table has no UnderlyingLevel at all, in
// which case nothing is de-duplicated.
func FilterRows(t *barometer.Table, p Params) []barometer.Row {
	candidates := make([]barometer.Row, 0, t.Len())
	for _, r := range t.Rows {
		if p.FuturesOnly && !IsContinuousFuture(r.ID, p.FuturesSuffix) {
			continue
		}
		candidates = append(candidates, r)
	}

	byStrength(candidates)
	candidates = candidates[:clamp(p.InitialSize, len(candidates))]

	groups := make(map[string][]barometer.Row)
	for _, r := range candidates {
		sector := t.SectorOf(r, p.SectorLevel)
		groups[sector] = append(groups[sector], r)
	}

	dedup := t.LevelIndex(p.UnderlyingLevel) >= 0

	var out []barometer.Row
	for _, sector := range slices.Sorted(maps.Keys(groups)) {
		seen := make(map[string]struct{})
		kept := 0
		for _, r := range groups[sector] {
			if kept >= p.MaxPerSector {
				break
			}
			if dedup {
				u := t.SectorOf(r, p.UnderlyingLevel)
				if _, dup := seen[u]; dup {
					continue
				}
				seen[u] = struct{}{}
			}
			out = append(out, r)
			kept++
		}
	}

	byStrength(out)
	return out[:clamp(p.FinalSize, len(out))]
}

func byStrength(rows []barometer.Row) {
	slices.SortStableFunc(rows, func(a, b barometer.Row) int {
		if c := cmp.Compare(b.AbsTrendStrength, a.AbsTrendStrength); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func clamp(n, limit int) int {
	return max(0, min(n, limit))
}
