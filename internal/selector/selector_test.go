package selector

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/trendstrength/internal/barometer"
	"github.com/newthinker/trendstrength/internal/core"
)

const flagCount = 22

func row(id string, strength int) barometer.Row {
	pct := float64(strength) / flagCount
	return barometer.Row{
		ID:                  core.InstrumentID(id),
		LongName:            id,
		ShortName:           id,
		TrendStrength:       strength,
		TrendStrengthPct:    pct,
		AbsTrendStrength:    int(math.Abs(float64(strength))),
		AbsTrendStrengthPct: math.Abs(pct),
		Color:               barometer.ColorFor(strength),
	}
}

func table(rows ...barometer.Row) *barometer.Table {
	return &barometer.Table{Rows: rows}
}

// spread returns n rows with strengths from -n/2 upward, ids M00..
func spread(n int) *barometer.Table {
	rows := make([]barometer.Row, n)
	for i := range rows {
		rows[i] = row(fmt.Sprintf("M%02d", i), (i-n/2)%(flagCount+1))
	}
	return table(rows...)
}

func assertUnique(t *testing.T, ids []core.InstrumentID) {
	t.Helper()
	seen := make(map[core.InstrumentID]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
}

func TestSelect_ScenarioUp(t *testing.T) {
	tb := &barometer.Table{Rows: []barometer.Row{
		{ID: "A", TrendStrengthPct: 0.6, AbsTrendStrengthPct: 0.6},
		{ID: "B", TrendStrengthPct: 1.0, AbsTrendStrengthPct: 1.0},
	}}

	got, err := Select(tb, Up, 1)
	require.NoError(t, err)
	assert.Equal(t, []core.InstrumentID{"B"}, got)
}

func TestSelect_Policies(t *testing.T) {
	tb := table(row("A", 5), row("B", -8), row("C", 1), row("D", 12), row("E", -2))

	tests := []struct {
		policy Policy
		k      int
		want   []core.InstrumentID
	}{
		{Up, 3, []core.InstrumentID{"C", "A", "D"}},
		{Down, 2, []core.InstrumentID{"E", "B"}},
		{Neutral, 2, []core.InstrumentID{"C", "E"}},
		{Strong, 3, []core.InstrumentID{"D", "A", "B"}},
		{Strong, 4, []core.InstrumentID{"D", "A", "E", "B"}},
		{All, 3, []core.InstrumentID{"D", "B", "C"}},
		{All, 2, []core.InstrumentID{"C", "E"}},
		{All, 5, []core.InstrumentID{"D", "B", "C", "E", "A"}},
		{Mixed, 5, []core.InstrumentID{"D", "B", "C", "E", "A"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.policy, tt.k), func(t *testing.T) {
			got, err := Select(tb, tt.policy, tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_AllSkipsChosenForNeutral(t *testing.T) {
	// with six rows the neutral third must not repeat top or bottom picks
	tb := table(row("A", 0), row("B", 1), row("C", -1), row("D", 9), row("E", -9), row("F", 2))

	got, err := Select(tb, All, 6)
	require.NoError(t, err)
	assert.Equal(t, []core.InstrumentID{"D", "F", "C", "E", "A", "B"}, got)
	assertUnique(t, got)
}

func TestSelect_StrongCompleteness(t *testing.T) {
	tb := spread(30)

	got, err := Select(tb, Strong, 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assertUnique(t, got)

	desc := byPct(tb, true)
	top, bottom := got[:5], got[5:]
	assert.Equal(t, ids(desc[:5]), top)
	assert.Equal(t, ids(desc[len(desc)-5:]), bottom)

	for i := 1; i < len(top); i++ {
		a, _ := tb.Row(top[i-1])
		b, _ := tb.Row(top[i])
		assert.GreaterOrEqual(t, a.TrendStrengthPct, b.TrendStrengthPct)
	}
}

func TestSelect_StrongOddK(t *testing.T) {
	got, err := Select(spread(20), Strong, 7)
	require.NoError(t, err)
	assert.Len(t, got, 7)
	assertUnique(t, got)
}

func TestSelect_GracefulDegradation(t *testing.T) {
	tb := spread(50)

	for _, p := range Policies {
		t.Run(string(p), func(t *testing.T) {
			got, err := Select(tb, p, 1000)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(got), 50)
			assertUnique(t, got)
		})
	}
}

func TestSelect_SmallTableStrong(t *testing.T) {
	got, err := Select(table(row("A", 3), row("B", -3), row("C", 0)), Strong, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.InstrumentID{"A", "B", "C"}, got)
}

func TestSelect_ZeroAndEmpty(t *testing.T) {
	tb := spread(10)
	for _, p := range Policies {
		got, err := Select(tb, p, 0)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = Select(table(), p, 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestSelect_AllReturnsK(t *testing.T) {
	tb := spread(50)

	for _, k := range []int{1, 2, 10, 11, 40} {
		t.Run(fmt.Sprint(k), func(t *testing.T) {
			got, err := Select(tb, All, k)
			require.NoError(t, err)
			assert.Len(t, got, k)
			assertUnique(t, got)

			third := k / 3
			desc := byPct(tb, true)
			assert.Equal(t, ids(desc[:third]), got[:third])
			assert.Equal(t, ids(desc[len(desc)-third:]), got[third:2*third])
		})
	}
}

func TestSelect_TiesBreakByID(t *testing.T) {
	tb := table(row("C", 4), row("A", 4), row("B", 4), row("D", -1))

	got, err := Select(tb, Up, 2)
	require.NoError(t, err)
	assert.Equal(t, []core.InstrumentID{"B", "C"}, got)

	got, err = Select(tb, Neutral, 2)
	require.NoError(t, err)
	assert.Equal(t, []core.InstrumentID{"D", "A"}, got)

	again, err := Select(tb, Neutral, 2)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestSelect_UnknownPolicy(t *testing.T) {
	_, err := Select(spread(5), Policy("sideways"), 3)
	assert.True(t, errors.Is(err, core.ErrUnknownPolicy))
}

func TestSelect_MixedMatchesAll(t *testing.T) {
	tb := spread(30)

	all, err := Select(tb, All, 10)
	require.NoError(t, err)
	mixed, err := Select(tb, Mixed, 10)
	require.NoError(t, err)
	assert.Equal(t, all, mixed)
	assert.True(t, Mixed.IsValid())
	assert.Equal(t, All, Mixed.Canonical())
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{
		"up":      Up,
		" Down ":  Down,
		"NEUTRAL": Neutral,
		"strong":  Strong,
		"all":     All,
		"mixed":   All,
		"Mixed":   All,
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParsePolicy("strongest")
	assert.True(t, errors.Is(err, core.ErrUnknownPolicy))
}
