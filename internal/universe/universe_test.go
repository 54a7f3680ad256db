package universe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/trendstrength/internal/core"
)

const sampleUniverse = `
sector_levels: [Asset Class, Broad Sector, Mid Sector, Narrow Sector, Underlying]
instruments:
  - id: c_es_ccb
    name: S&P 500 E-mini Continuous Futures Backadjusted
    sector: [Equity, Index, US Large Cap, S&P 500, S&P 500]
  - id: c_cl_ccb
    name: Crude Oil WTI Continuous Futures Backadjusted
    sector: [Commodity, Energy, Crude, WTI, Crude Oil]
  - id: s_xau
`

func TestParse(t *testing.T) {
	u, err := Parse([]byte(sampleUniverse))
	require.NoError(t, err)

	assert.Equal(t, CommodityLevels, u.SectorLevels)
	assert.Equal(t, []core.InstrumentID{"c_es_ccb", "c_cl_ccb", "s_xau"}, u.IDs())

	meta := u.Metadata()
	assert.Equal(t, "Crude Oil WTI Continuous Futures Backadjusted", meta.Names["c_cl_ccb"])
	assert.Equal(t, "Crude", meta.Sectors["c_cl_ccb"].Level(2))
	_, ok := meta.Names["s_xau"]
	assert.False(t, ok)
	_, ok = meta.Sectors["s_xau"]
	assert.False(t, ok)
}

func TestParse_DefaultLevels(t *testing.T) {
	u, err := Parse([]byte("instruments:\n  - id: aapl\n"))
	require.NoError(t, err)
	assert.Equal(t, CommodityLevels, u.SectorLevels)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":     "instruments: []",
		"no id":     "instruments:\n  - name: x\n",
		"duplicate": "instruments:\n  - id: a\n  - id: a\n",
		"too deep":  "sector_levels: [Sector]\ninstruments:\n  - id: a\n    sector: [x, y]\n",
		"not yaml":  "instruments: [",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.True(t, errors.Is(err, core.ErrConfigInvalid), err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleUniverse), 0o644))

	u, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, u.Instruments, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestLimit(t *testing.T) {
	u, err := Parse([]byte(sampleUniverse))
	require.NoError(t, err)

	assert.Len(t, u.Limit(2).Instruments, 2)
	assert.Len(t, u.Limit(0).Instruments, 3)
	assert.Len(t, u.Limit(10).Instruments, 3)
}
