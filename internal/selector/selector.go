package selector

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/newthinker/trendstrength/internal/barometer"
	"github.com/newthinker/trendstrength/internal/core"
)

// Select returns the ids chosen by policy p from at most k rows.
// k beyond the table size yields every eligible row; k <= 0 yields none.
func Select(t *barometer.Table, p Policy, k int) ([]core.InstrumentID, error) {
	if !p.IsValid() {
		return nil, core.WrapError(core.ErrUnknownPolicy, fmt.Errorf("%q", p))
	}
	if k <= 0 || t.Len() == 0 {
		return []core.InstrumentID{}, nil
	}

	switch p.Canonical() {
	case Up:
		asc := byPct(t, false)
		return ids(asc[len(asc)-min(k, len(asc)):]), nil

	case Down:
		desc := byPct(t, true)
		return ids(desc[len(desc)-min(k, len(desc)):]), nil

	case Neutral:
		return ids(byAbsPct(t)[:min(k, t.Len())]), nil

	case Strong:
		half := (k + 1) / 2
		return extremes(byPct(t, true), half, k-half), nil

	default:
		// the neutral part takes the remainder so k ids come back
		third := k / 3
		out := extremes(byPct(t, true), third, third)
		return appendNeutral(out, byAbsPct(t), k-2*third), nil
	}
}

// extremes takes the first nTop rows of desc and then the last nBottom rows
// among those not already taken, keeping desc order.
func extremes(desc []barometer.Row, nTop, nBottom int) []core.InstrumentID {
	nTop = min(nTop, len(desc))
	rest := desc[nTop:]
	nBottom = min(nBottom, len(rest))

	out := ids(desc[:nTop])
	return append(out, ids(rest[len(rest)-nBottom:])...)
}

func appendNeutral(out []core.InstrumentID, absAsc []barometer.Row, n int) []core.InstrumentID {
	taken := make(map[core.InstrumentID]struct{}, len(out))
	for _, id := range out {
		taken[id] = struct{}{}
	}
	for _, r := range absAsc {
		if n == 0 {
			break
		}
		if _, ok := taken[r.ID]; ok {
			continue
		}
		out = append(out, r.ID)
		n--
	}
	return out
}

// baseOrder is the tie-break order shared by every policy
func baseOrder(t *barometer.Table) []barometer.Row {
	rows := slices.Clone(t.Rows)
	slices.SortFunc(rows, func(a, b barometer.Row) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return rows
}

func byPct(t *barometer.Table, desc bool) []barometer.Row {
	rows := baseOrder(t)
	slices.SortStableFunc(rows, func(a, b barometer.Row) int {
		if desc {
			return cmp.Compare(b.TrendStrengthPct, a.TrendStrengthPct)
		}
		return cmp.Compare(a.TrendStrengthPct, b.TrendStrengthPct)
	})
	return rows
}

func byAbsPct(t *barometer.Table) []barometer.Row {
	rows := baseOrder(t)
	slices.SortStableFunc(rows, func(a, b barometer.Row) int {
		return cmp.Compare(a.AbsTrendStrengthPct, b.AbsTrendStrengthPct)
	})
	return rows
}

func ids(rows []barometer.Row) []core.InstrumentID {
	out := make([]core.InstrumentID, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
