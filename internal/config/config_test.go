package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/field"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
indicators:
  ma_list: [10, 50]
  price_cross_list: [10, 50]
  ma_cross_list: [[10, 50]]
selection:
  mkts: 12
  trend: up
universe:
  file: "commodities.yaml"
  lookback: 300
storage:
  cold:
    type: localfs
    path: "/tmp/trendstrength"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 50}, cfg.Indicators.MAList)
	assert.Equal(t, [][]int{{10, 50}}, cfg.Indicators.MACrossList)
	assert.Equal(t, 12, cfg.Selection.Mkts)
	assert.Equal(t, "up", cfg.Selection.Trend)
	assert.Equal(t, "commodities.yaml", cfg.Universe.File)
	assert.Equal(t, 300, cfg.Universe.Lookback)
	assert.Equal(t, "/tmp/trendstrength", cfg.Storage.Cold.Path)

	// keys absent from the file keep their defaults
	assert.Equal(t, 12, cfg.Indicators.MACD.Fast)
	assert.Equal(t, 26, cfg.Indicators.MACD.Slow)
	assert.Equal(t, []int{10, 20, 30, 50, 100, 200}, cfg.Indicators.ADXList)
	assert.Equal(t, "default", cfg.TrendFlags.Preset)
	assert.Equal(t, 50, cfg.TopTrend.InitialSize)
	assert.Equal(t, "csvfile", cfg.Universe.Source)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TS_TEST_BUCKET", "barometer-archive")
	path := writeConfig(t, `
storage:
  cold:
    type: s3
    s3:
      bucket: "${TS_TEST_BUCKET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "barometer-archive", cfg.Storage.Cold.S3.Bucket)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, field.DefaultConfig(), cfg.Indicators.FieldConfig())
	assert.Equal(t, 500, cfg.Universe.Lookback)
	assert.Equal(t, "strong", cfg.Selection.Trend)

	flags, err := cfg.FlagSet()
	require.NoError(t, err)
	assert.Equal(t, field.DefaultFlagSet(), flags)

	p := cfg.TopTrend.Params()
	assert.Equal(t, 20, p.FinalSize)
	assert.Equal(t, "_ccb", p.FuturesSuffix)
}

func TestConfig_FlagSet(t *testing.T) {
	cfg := Defaults()

	cfg.TrendFlags.Preset = "basic"
	flags, err := cfg.FlagSet()
	require.NoError(t, err)
	assert.Equal(t, field.BasicFlagSet(), flags)

	cfg.TrendFlags.Flags = []string{"PX_MA_10_flag", "MACD_flag"}
	flags, err = cfg.FlagSet()
	require.NoError(t, err)
	assert.Equal(t, []string{"PX_MA_10_flag", "MACD_flag"}, flags.Strings())

	cfg.TrendFlags.Flags = []string{"BOGUS"}
	_, err = cfg.FlagSet()
	assert.True(t, errors.Is(err, core.ErrFlagSetInvalid))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "macd fast not below slow",
			mutate:  func(c *Config) { c.Indicators.MACD.Fast = 30 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "zero tenor",
			mutate:  func(c *Config) { c.Indicators.MAList = []int{0, 10} },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "cross pair wrong length",
			mutate:  func(c *Config) { c.Indicators.MACrossList = [][]int{{10}} },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "inverted cross pair",
			mutate:  func(c *Config) { c.Indicators.MACrossList = [][]int{{50, 20}} },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "flag not derivable",
			mutate:  func(c *Config) { c.Indicators.RSIList = nil },
			wantErr: core.ErrFlagSetInvalid,
		},
		{
			name:    "unknown preset",
			mutate:  func(c *Config) { c.TrendFlags.Preset = "loud" },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "unknown trend",
			mutate:  func(c *Config) { c.Selection.Trend = "sideways" },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:   "mixed trend alias",
			mutate: func(c *Config) { c.Selection.Trend = "mixed" },
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.Universe.Source = "ftp" },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name: "s3 without bucket",
			mutate: func(c *Config) {
				c.Storage.Cold.Type = "s3"
			},
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "localfs without path",
			mutate:  func(c *Config) { c.Storage.Cold.Path = "" },
			wantErr: core.ErrConfigMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestColdStorageConfig_Archive(t *testing.T) {
	c := ColdStorageConfig{Type: "s3", S3: S3Config{Bucket: "b", Region: "us-east-1", Prefix: "runs"}}
	a := c.Archive()
	assert.Equal(t, "s3", a.Type)
	assert.Equal(t, "b", a.S3.Bucket)
	assert.Equal(t, "runs", a.S3.Prefix)
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("TRENDSTRENGTH_BUCKET", "")
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	defaults := Defaults()
	assert.Equal(t, defaults.Indicators.FieldConfig(), cfg.Indicators.FieldConfig())
	assert.Equal(t, defaults.TopTrend, cfg.TopTrend)
	assert.Equal(t, "configs/universe.example.yaml", cfg.Universe.File)
}
