package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/field"
	"github.com/newthinker/trendstrength/internal/selector"
	"github.com/newthinker/trendstrength/internal/storage/archive"
	"github.com/newthinker/trendstrength/internal/toptrend"
)

type Config struct {
	Indicators IndicatorsConfig `mapstructure:"indicators"`
	TrendFlags TrendFlagsConfig `mapstructure:"trend_flags"`
	Selection  SelectionConfig  `mapstructure:"selection"`
	TopTrend   TopTrendConfig   `mapstructure:"top_trend"`
	Universe   UniverseConfig   `mapstructure:"universe"`
	Yahoo      SourceConfig     `mapstructure:"yahoo"`
	Binance    SourceConfig     `mapstructure:"binance"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

// IndicatorsConfig lists the indicator tenors
type IndicatorsConfig struct {
	MAList         []int      `mapstructure:"ma_list" validate:"dive,gte=1"`
	MACD           MACDConfig `mapstructure:"macd_params"`
	ADXList        []int      `mapstructure:"adx_list" validate:"dive,gte=1"`
	MACrossList    [][]int    `mapstructure:"ma_cross_list" validate:"dive,len=2"`
	PriceCrossList []int      `mapstructure:"price_cross_list" validate:"dive,gte=1"`
	RSIList        []int      `mapstructure:"rsi_list" validate:"dive,gte=2"`
	BreakoutList   []int      `mapstructure:"breakout_list" validate:"dive,gte=2"`
	ATRList        []int      `mapstructure:"atr_list" validate:"dive,gte=1"`
}

type MACDConfig struct {
	Fast   int `mapstructure:"fast" validate:"gte=2"`
	Slow   int `mapstructure:"slow" validate:"gtfield=Fast"`
	Signal int `mapstructure:"signal" validate:"gte=1"`
}

// TrendFlagsConfig picks the scored flags: an explicit list wins over the preset
type TrendFlagsConfig struct {
	Preset string   `mapstructure:"preset" validate:"omitempty,oneof=default basic extended"`
	Flags  []string `mapstructure:"flags"`
}

type SelectionConfig struct {
	Mkts      int    `mapstructure:"mkts" validate:"gte=0"`
	Trend     string `mapstructure:"trend" validate:"required"`
	NumCharts int    `mapstructure:"num_charts" validate:"gte=0"`
}

type TopTrendConfig struct {
	InitialSize     int    `mapstructure:"initial_size" validate:"gte=0"`
	MaxPerSector    int    `mapstructure:"max_per_sector" validate:"gte=0"`
	FinalSize       int    `mapstructure:"final_size" validate:"gte=0"`
	SectorLevel     string `mapstructure:"sector_level" validate:"required"`
	UnderlyingLevel string `mapstructure:"underlying_level"`
	FuturesOnly     bool   `mapstructure:"futures_only"`
	FuturesSuffix   string `mapstructure:"futures_suffix"`
}

type UniverseConfig struct {
	File       string `mapstructure:"file"`
	Source     string `mapstructure:"source" validate:"oneof=csvfile yahoo binance"`
	PricesPath string `mapstructure:"prices_path"`
	Lookback   int    `mapstructure:"lookback" validate:"gte=1"`
	Window     int    `mapstructure:"window" validate:"gte=0"`
	Limit      int    `mapstructure:"limit" validate:"gte=0"`
	Workers    int    `mapstructure:"workers" validate:"gte=0"`
}

// SourceConfig tunes an HTTP price source
type SourceConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec" validate:"gte=0"`
	MaxElapsed     time.Duration `mapstructure:"max_elapsed"`
}

type StorageConfig struct {
	Cold ColdStorageConfig `mapstructure:"cold"`
}

type ColdStorageConfig struct {
	Type string   `mapstructure:"type" validate:"oneof=localfs s3"`
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig controls the Prometheus textfile written after a run
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// Load reads configuration from file. Keys missing from the file keep
// their Defaults value.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("reading config: %w", err))
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	crosses := make([]any, len(d.Indicators.MACrossList))
	for i, pair := range d.Indicators.MACrossList {
		crosses[i] = []any{pair[0], pair[1]}
	}

	v.SetDefault("indicators.ma_list", d.Indicators.MAList)
	v.SetDefault("indicators.macd_params.fast", d.Indicators.MACD.Fast)
	v.SetDefault("indicators.macd_params.slow", d.Indicators.MACD.Slow)
	v.SetDefault("indicators.macd_params.signal", d.Indicators.MACD.Signal)
	v.SetDefault("indicators.adx_list", d.Indicators.ADXList)
	v.SetDefault("indicators.ma_cross_list", crosses)
	v.SetDefault("indicators.price_cross_list", d.Indicators.PriceCrossList)
	v.SetDefault("indicators.rsi_list", d.Indicators.RSIList)
	v.SetDefault("indicators.breakout_list", d.Indicators.BreakoutList)
	v.SetDefault("indicators.atr_list", d.Indicators.ATRList)

	v.SetDefault("trend_flags.preset", d.TrendFlags.Preset)

	v.SetDefault("selection.mkts", d.Selection.Mkts)
	v.SetDefault("selection.trend", d.Selection.Trend)
	v.SetDefault("selection.num_charts", d.Selection.NumCharts)

	v.SetDefault("top_trend.initial_size", d.TopTrend.InitialSize)
	v.SetDefault("top_trend.max_per_sector", d.TopTrend.MaxPerSector)
	v.SetDefault("top_trend.final_size", d.TopTrend.FinalSize)
	v.SetDefault("top_trend.sector_level", d.TopTrend.SectorLevel)
	v.SetDefault("top_trend.underlying_level", d.TopTrend.UnderlyingLevel)
	v.SetDefault("top_trend.futures_only", d.TopTrend.FuturesOnly)
	v.SetDefault("top_trend.futures_suffix", d.TopTrend.FuturesSuffix)

	v.SetDefault("universe.file", d.Universe.File)
	v.SetDefault("universe.source", d.Universe.Source)
	v.SetDefault("universe.prices_path", d.Universe.PricesPath)
	v.SetDefault("universe.lookback", d.Universe.Lookback)
	v.SetDefault("universe.window", d.Universe.Window)
	v.SetDefault("universe.limit", d.Universe.Limit)
	v.SetDefault("universe.workers", d.Universe.Workers)

	v.SetDefault("yahoo.timeout", d.Yahoo.Timeout)
	v.SetDefault("yahoo.requests_per_sec", d.Yahoo.RequestsPerSec)
	v.SetDefault("yahoo.max_elapsed", d.Yahoo.MaxElapsed)
	v.SetDefault("binance.timeout", d.Binance.Timeout)
	v.SetDefault("binance.requests_per_sec", d.Binance.RequestsPerSec)
	v.SetDefault("binance.max_elapsed", d.Binance.MaxElapsed)

	v.SetDefault("storage.cold.type", d.Storage.Cold.Type)
	v.SetDefault("storage.cold.path", d.Storage.Cold.Path)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("log.development", d.Log.Development)
}

// Defaults returns a config with the standard indicator parameters
func Defaults() *Config {
	fc := field.DefaultConfig()
	tp := toptrend.DefaultParams()

	crosses := make([][]int, len(fc.MACrossList))
	for i, p := range fc.MACrossList {
		crosses[i] = []int{p.Fast, p.Slow}
	}

	return &Config{
		Indicators: IndicatorsConfig{
			MAList:         fc.MAList,
			MACD:           MACDConfig{Fast: fc.MACD.Fast, Slow: fc.MACD.Slow, Signal: fc.MACD.Signal},
			ADXList:        fc.ADXList,
			MACrossList:    crosses,
			PriceCrossList: fc.PriceCrossList,
			RSIList:        fc.RSIList,
			BreakoutList:   fc.BreakoutList,
			ATRList:        fc.ATRList,
		},
		TrendFlags: TrendFlagsConfig{
			Preset: "default",
		},
		Selection: SelectionConfig{
			Mkts:      20,
			Trend:     string(selector.Strong),
			NumCharts: 20,
		},
		TopTrend: TopTrendConfig{
			InitialSize:     tp.InitialSize,
			MaxPerSector:    tp.MaxPerSector,
			FinalSize:       tp.FinalSize,
			SectorLevel:     tp.SectorLevel,
			UnderlyingLevel: tp.UnderlyingLevel,
			FuturesOnly:     tp.FuturesOnly,
			FuturesSuffix:   tp.FuturesSuffix,
		},
		Universe: UniverseConfig{
			File:       "universe.yaml",
			Source:     "csvfile",
			PricesPath: "prices",
			Lookback:   500,
		},
		Yahoo: SourceConfig{
			Timeout:        10 * time.Second,
			RequestsPerSec: 2,
			MaxElapsed:     30 * time.Second,
		},
		Binance: SourceConfig{
			Timeout:        10 * time.Second,
			RequestsPerSec: 5,
			MaxElapsed:     30 * time.Second,
		},
		Storage: StorageConfig{
			Cold: ColdStorageConfig{
				Type: archive.BackendLocalFS,
				Path: "./data",
			},
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	fc := c.Indicators.FieldConfig()
	if err := fc.Validate(); err != nil {
		return err
	}

	flags, err := c.FlagSet()
	if err != nil {
		return err
	}
	if err := flags.Validate(fc); err != nil {
		return err
	}

	if _, err := selector.ParsePolicy(c.Selection.Trend); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	if c.Storage.Cold.Type == archive.BackendS3 && c.Storage.Cold.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("storage.cold.s3.bucket required when type is s3"))
	}
	if c.Storage.Cold.Type == archive.BackendLocalFS && c.Storage.Cold.Path == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("storage.cold.path required when type is localfs"))
	}

	return nil
}

// FieldConfig converts the indicator section
func (c IndicatorsConfig) FieldConfig() field.Config {
	crosses := make([]field.TenorPair, 0, len(c.MACrossList))
	for _, pair := range c.MACrossList {
		if len(pair) == 2 {
			crosses = append(crosses, field.TenorPair{Fast: pair[0], Slow: pair[1]})
		}
	}
	return field.Config{
		MAList:         c.MAList,
		MACD:           field.MACDParams{Fast: c.MACD.Fast, Slow: c.MACD.Slow, Signal: c.MACD.Signal},
		ADXList:        c.ADXList,
		MACrossList:    crosses,
		PriceCrossList: c.PriceCrossList,
		RSIList:        c.RSIList,
		BreakoutList:   c.BreakoutList,
		ATRList:        c.ATRList,
	}.Clone()
}

// FlagSet resolves the scored flags
func (c *Config) FlagSet() (field.FlagSet, error) {
	if len(c.TrendFlags.Flags) > 0 {
		return field.ParseFlagSet(c.TrendFlags.Flags)
	}
	switch c.TrendFlags.Preset {
	case "", "default":
		return field.DefaultFlagSet(), nil
	case "basic":
		return field.BasicFlagSet(), nil
	case "extended":
		return field.ExtendedFlagSet(), nil
	}
	return nil, core.WrapError(core.ErrFlagSetInvalid, fmt.Errorf("unknown preset %q", c.TrendFlags.Preset))
}

// Params converts the top trend section
func (c TopTrendConfig) Params() toptrend.Params {
	return toptrend.Params{
		InitialSize:     c.InitialSize,
		MaxPerSector:    c.MaxPerSector,
		FinalSize:       c.FinalSize,
		SectorLevel:     c.SectorLevel,
		UnderlyingLevel: c.UnderlyingLevel,
		FuturesOnly:     c.FuturesOnly,
		FuturesSuffix:   c.FuturesSuffix,
	}
}

// Archive converts the cold storage section
func (c ColdStorageConfig) Archive() archive.Config {
	return archive.Config{
		Type:    c.Type,
		BaseDir: c.Path,
		S3: archive.S3Config{
			Bucket:    c.S3.Bucket,
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Prefix:    c.S3.Prefix,
		},
	}
}
