package field

import (
	"fmt"
	"slices"

	"github.com/newthinker/trendstrength/internal/core"
)

// TenorPair is a fast/slow moving average pair
type TenorPair struct {
	Fast int
	Slow int
}

// MACDParams holds the MACD fast, slow and signal periods
type MACDParams struct {
	Fast   int
	Slow   int
	Signal int
}

// Config lists the tenors of every indicator family. Treat as immutable once
// handed to a Generator; the generator keeps its own copy.
type Config struct {
	MAList         []int
	MACD           MACDParams
	ADXList        []int
	MACrossList    []TenorPair
	PriceCrossList []int
	RSIList        []int
	BreakoutList   []int
	ATRList        []int
}

var standardTenors = []int{10, 20, 30, 50, 100, 200}

// DefaultConfig returns the standard indicator parameter set
func DefaultConfig() Config {
	return Config{
		MAList:         slices.Clone(standardTenors),
		MACD:           MACDParams{Fast: 12, Slow: 26, Signal: 9},
		ADXList:        slices.Clone(standardTenors),
		MACrossList:    []TenorPair{{10, 30}, {20, 50}, {50, 200}},
		PriceCrossList: slices.Clone(standardTenors),
		RSIList:        slices.Clone(standardTenors),
		BreakoutList:   slices.Clone(standardTenors),
		ATRList:        []int{14},
	}
}

// ExtendedConfig adds the 5 day average and the extra crosses used by ExtendedFlagSet
func ExtendedConfig() Config {
	cfg := DefaultConfig()
	cfg.MAList = []int{5, 10, 20, 30, 50, 100, 200}
	cfg.MACrossList = []TenorPair{{5, 200}, {10, 30}, {10, 50}, {20, 50}, {30, 100}, {50, 200}}
	return cfg
}

// Clone returns a deep copy
func (c Config) Clone() Config {
	return Config{
		MAList:         slices.Clone(c.MAList),
		MACD:           c.MACD,
		ADXList:        slices.Clone(c.ADXList),
		MACrossList:    slices.Clone(c.MACrossList),
		PriceCrossList: slices.Clone(c.PriceCrossList),
		RSIList:        slices.Clone(c.RSIList),
		BreakoutList:   slices.Clone(c.BreakoutList),
		ATRList:        slices.Clone(c.ATRList),
	}
}

// Validate checks every tenor is usable by the indicator library
func (c Config) Validate() error {
	checks := []struct {
		name string
		list []int
		min  int
	}{
		{"ma_list", c.MAList, 1},
		{"adx_list", c.ADXList, 1},
		{"price_cross_list", c.PriceCrossList, 1},
		{"rsi_list", c.RSIList, 2},
		{"breakout_list", c.BreakoutList, 2},
		{"atr_list", c.ATRList, 1},
	}
	for _, chk := range checks {
		for _, t := range chk.list {
			if t < chk.min {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("%s: tenor %d below minimum %d", chk.name, t, chk.min))
			}
		}
	}

	if c.MACD.Fast < 2 || c.MACD.Slow < 2 || c.MACD.Signal < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("macd_params: invalid periods %+v", c.MACD))
	}
	if c.MACD.Fast >= c.MACD.Slow {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("macd_params: fast %d must be below slow %d", c.MACD.Fast, c.MACD.Slow))
	}

	for _, p := range c.MACrossList {
		if p.Fast < 1 || p.Fast >= p.Slow {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("ma_cross_list: invalid pair (%d, %d)", p.Fast, p.Slow))
		}
	}

	return nil
}

// Derivable reports whether flag k can be produced under c, and why not
func (c Config) Derivable(k FlagKey) error {
	switch k.Kind {
	case KindMACD:
		return nil
	case KindPriceCross:
		if !slices.Contains(c.PriceCrossList, k.Tenor) {
			return fmt.Errorf("%s: tenor %d not in price_cross_list", k, k.Tenor)
		}
		if !slices.Contains(c.MAList, k.Tenor) {
			return fmt.Errorf("%s: requires MA_%d in ma_list", k, k.Tenor)
		}
		return nil
	case KindADX:
		if !slices.Contains(c.ADXList, k.Tenor) {
			return fmt.Errorf("%s: tenor %d not in adx_list", k, k.Tenor)
		}
		if err := c.Derivable(PriceCrossFlag(k.Tenor)); err != nil {
			return fmt.Errorf("%s: direction requires %w", k, err)
		}
		return nil
	case KindMACross:
		if !slices.Contains(c.MACrossList, TenorPair{Fast: k.Tenor, Slow: k.Slow}) {
			return fmt.Errorf("%s: pair (%d, %d) not in ma_cross_list", k, k.Tenor, k.Slow)
		}
		for _, t := range []int{k.Tenor, k.Slow} {
			if !slices.Contains(c.MAList, t) {
				return fmt.Errorf("%s: requires MA_%d in ma_list", k, t)
			}
		}
		return nil
	case KindRSI:
		if !slices.Contains(c.RSIList, k.Tenor) {
			return fmt.Errorf("%s: tenor %d not in rsi_list", k, k.Tenor)
		}
		return nil
	case KindBreakout:
		if !slices.Contains(c.BreakoutList, k.Tenor) {
			return fmt.Errorf("%s: tenor %d not in breakout_list", k, k.Tenor)
		}
		return nil
	}
	return fmt.Errorf("%s: not a trend flag", k)
}
