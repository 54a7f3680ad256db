package universe

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/newthinker/trendstrength/internal/barometer"
	"github.com/newthinker/trendstrength/internal/core"
)

// Standard sector taxonomies
var (
	CommodityLevels = []string{"Asset Class", "Broad Sector", "Mid Sector", "Narrow Sector", "Underlying"}
	EquityLevels    = []string{"Sector", "Industry Group", "Industry", "Sub-Industry", "Security"}
)

// Instrument is one market of the universe
type Instrument struct {
	ID     core.InstrumentID `yaml:"id"`
	Name   string            `yaml:"name"`
	Sector core.SectorPath   `yaml:"sector"`
}

// Universe is the list of instruments to score with their reference data
type Universe struct {
	SectorLevels []string     `yaml:"sector_levels"`
	Instruments  []Instrument `yaml:"instruments"`
}

// Load reads a YAML universe file
func Load(path string) (*Universe, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("read universe: %w", err))
	}
	return Parse(b)
}

// Parse decodes and validates a YAML universe document. Missing sector
// levels default to CommodityLevels.
func Parse(data []byte) (*Universe, error) {
	var u Universe
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("parse universe: %w", err))
	}
	if len(u.SectorLevels) == 0 {
		u.SectorLevels = slices.Clone(CommodityLevels)
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

// Validate checks ids are present and unique and sector paths fit the levels
func (u *Universe) Validate() error {
	if len(u.Instruments) == 0 {
		return core.WrapError(core.ErrConfigInvalid, errors.New("universe has no instruments"))
	}

	seen := make(map[core.InstrumentID]struct{}, len(u.Instruments))
	for i, inst := range u.Instruments {
		if inst.ID == "" {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("instrument %d: id is required", i))
		}
		if _, dup := seen[inst.ID]; dup {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("instrument %s listed twice", inst.ID))
		}
		seen[inst.ID] = struct{}{}

		if len(inst.Sector) > len(u.SectorLevels) {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("instrument %s: sector path has %d levels, universe defines %d",
					inst.ID, len(inst.Sector), len(u.SectorLevels)))
		}
	}
	return nil
}

// IDs returns the instrument ids in file order
func (u *Universe) IDs() []core.InstrumentID {
	ids := make([]core.InstrumentID, len(u.Instruments))
	for i, inst := range u.Instruments {
		ids[i] = inst.ID
	}
	return ids
}

// Metadata returns the names and sector paths keyed by id
func (u *Universe) Metadata() barometer.Metadata {
	meta := barometer.Metadata{
		Names:        make(map[core.InstrumentID]string, len(u.Instruments)),
		Sectors:      make(map[core.InstrumentID]core.SectorPath, len(u.Instruments)),
		SectorLevels: slices.Clone(u.SectorLevels),
	}
	for _, inst := range u.Instruments {
		if inst.Name != "" {
			meta.Names[inst.ID] = inst.Name
		}
		if len(inst.Sector) > 0 {
			meta.Sectors[inst.ID] = slices.Clone(inst.Sector)
		}
	}
	return meta
}

// Limit keeps the first n instruments; n <= 0 keeps all
func (u *Universe) Limit(n int) *Universe {
	if n <= 0 || n >= len(u.Instruments) {
		return u
	}
	return &Universe{
		SectorLevels: u.SectorLevels,
		Instruments:  u.Instruments[:n],
	}
}
