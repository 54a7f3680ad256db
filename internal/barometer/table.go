package barometer

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/field"
)

// MissingFlag records a flag that an instrument could not supply; it was
// scored as neutral.
type MissingFlag struct {
	ID   core.InstrumentID `json:"id"`
	Flag field.FlagKey     `json:"flag"`
}

func (m MissingFlag) Error() string {
	return fmt.Sprintf("%s: %s: %s", core.ErrMissingFlag.Message, m.ID, m.Flag)
}

// Unwrap lets errors.Is match ErrMissingFlag
func (m MissingFlag) Unwrap() error {
	return core.ErrMissingFlag
}

// Table is the barometer: one row per instrument, ordered by trend
// strength descending then id. Tables are rebuilt, never patched.
type Table struct {
	FlagSet      field.FlagSet `json:"flag_set"`
	SectorLevels []string      `json:"sector_levels,omitempty"`
	Rows         []Row         `json:"rows"`
	Missing      []MissingFlag `json:"missing_flags,omitempty"`
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Row looks up an instrument
func (t *Table) Row(id core.InstrumentID) (Row, bool) {
	for _, r := range t.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

// IDs returns the instrument ids in table order
func (t *Table) IDs() []core.InstrumentID {
	ids := make([]core.InstrumentID, len(t.Rows))
	for i, r := range t.Rows {
		ids[i] = r.ID
	}
	return ids
}

// LevelIndex returns the position of a named sector level, or -1
func (t *Table) LevelIndex(level string) int {
	return slices.Index(t.SectorLevels, level)
}

// SectorOf returns the row's value at a named sector level, "" when unknown
func (t *Table) SectorOf(r Row, level string) string {
	return r.Sector.Level(t.LevelIndex(level))
}

// Flag returns the value of flag k for row r
func (t *Table) Flag(r Row, k field.FlagKey) (core.Direction, bool) {
	i := t.FlagSet.Index(k)
	if i < 0 || i >= len(r.Flags) {
		return core.Neutral, false
	}
	return r.Flags[i], true
}

// Metadata is the reference data joined onto the barometer
type Metadata struct {
	Names        map[core.InstrumentID]string
	Sectors      map[core.InstrumentID]core.SectorPath
	SectorLevels []string
}

// Aggregator reduces augmented series into a barometer Table
type Aggregator struct {
	flags  field.FlagSet
	logger *zap.Logger
}

// NewAggregator checks the flag set against cfg once; Build relies on it.
func NewAggregator(flags field.FlagSet, cfg field.Config, logger ...*zap.Logger) (*Aggregator, error) {
	if err := flags.Validate(cfg); err != nil {
		return nil, err
	}

	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}

	return &Aggregator{
		flags:  slices.Clone(flags),
		logger: l,
	}, nil
}

// FlagSet returns the scored flags
func (a *Aggregator) FlagSet() field.FlagSet {
	return slices.Clone(a.flags)
}

// Build scores the last row of every series
func (a *Aggregator) Build(series map[core.InstrumentID]*field.AugmentedSeries, meta Metadata) *Table {
	table := &Table{
		FlagSet:      slices.Clone(a.flags),
		SectorLevels: slices.Clone(meta.SectorLevels),
		Rows:         make([]Row, 0, len(series)),
	}

	for _, id := range slices.Sorted(maps.Keys(series)) {
		aug := series[id]

		flags := make([]core.Direction, len(a.flags))
		for i, k := range a.flags {
			var (
				v  core.Direction
				ok bool
			)
			if aug != nil {
				v, ok = aug.LastFlag(k)
			}
			if !ok {
				table.Missing = append(table.Missing, MissingFlag{ID: id, Flag: k})
				a.logger.Warn("missing flag",
					zap.String("instrument", string(id)),
					zap.String("flag", k.String()),
				)
				continue
			}
			flags[i] = v
		}

		table.Rows = append(table.Rows, newRow(id, meta.Names[id], flags, slices.Clone(meta.Sectors[id])))
	}

	slices.SortStableFunc(table.Rows, func(x, y Row) int {
		if c := cmp.Compare(y.TrendStrength, x.TrendStrength); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})

	return table
}
