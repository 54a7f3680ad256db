package field

import (
	"errors"
	"fmt"

	"github.com/newthinker/trendstrength/internal/core"
)

// FlagSet is the ordered list of flags scored into Trend Strength
type FlagSet []FlagKey

// DefaultFlagSet returns the standard 22 flag set
func DefaultFlagSet() FlagSet {
	return mustParse(
		"PX_MA_10_flag", "ADX_10_flag", "RSI_10_flag",
		"MA_10_30_flag", "MACD_flag",
		"PX_MA_20_flag", "MA_20_50_flag", "ADX_20_flag", "RSI_20_flag",
		"PX_MA_30_flag", "ADX_30_flag", "RSI_30_flag",
		"PX_MA_50_flag", "MA_50_200_flag", "ADX_50_flag", "RSI_50_flag",
		"PX_MA_100_flag", "ADX_100_flag", "RSI_100_flag",
		"PX_MA_200_flag", "ADX_200_flag", "RSI_200_flag",
	)
}

// BasicFlagSet returns the reduced 10 flag set
func BasicFlagSet() FlagSet {
	return mustParse(
		"MA_10_30_flag", "MACD_flag", "PX_MA_20_flag", "MA_20_50_flag", "ADX_20_flag",
		"PX_MA_50_flag", "MA_50_200_flag", "ADX_50_flag", "PX_MA_200_flag", "ADX_200_flag",
	)
}

// ExtendedFlagSet returns the 31 flag set including breakouts.
// It needs ExtendedConfig.
func ExtendedFlagSet() FlagSet {
	return mustParse(
		"MA_5_200_flag",
		"PX_MA_10_flag", "ADX_10_flag", "RSI_10_flag", "breakout_10_flag",
		"MA_10_30_flag", "MACD_flag", "MA_10_50_flag",
		"PX_MA_20_flag", "MA_20_50_flag", "ADX_20_flag", "RSI_20_flag", "breakout_20_flag",
		"PX_MA_30_flag", "ADX_30_flag", "RSI_30_flag", "breakout_30_flag", "MA_30_100_flag",
		"PX_MA_50_flag", "MA_50_200_flag", "ADX_50_flag", "RSI_50_flag", "breakout_50_flag",
		"PX_MA_100_flag", "ADX_100_flag", "RSI_100_flag", "breakout_100_flag",
		"PX_MA_200_flag", "ADX_200_flag", "RSI_200_flag", "breakout_200_flag",
	)
}

// ParseFlagSet parses flag names in order
func ParseFlagSet(names []string) (FlagSet, error) {
	fs := make(FlagSet, 0, len(names))
	for _, n := range names {
		k, err := ParseFlagKey(n)
		if err != nil {
			return nil, core.WrapError(core.ErrFlagSetInvalid, err)
		}
		fs = append(fs, k)
	}
	return fs, nil
}

func mustParse(names ...string) FlagSet {
	fs, err := ParseFlagSet(names)
	if err != nil {
		panic(err)
	}
	return fs
}

// Strings returns the flag column names
func (fs FlagSet) Strings() []string {
	out := make([]string, len(fs))
	for i, k := range fs {
		out[i] = k.String()
	}
	return out
}

// Index returns the position of k, or -1
func (fs FlagSet) Index(k FlagKey) int {
	for i, f := range fs {
		if f == k {
			return i
		}
	}
	return -1
}

// Validate checks fs is non-empty, duplicate free and derivable under cfg.
// Run it once per configuration, not per instrument.
func (fs FlagSet) Validate(cfg Config) error {
	if len(fs) == 0 {
		return core.WrapError(core.ErrFlagSetInvalid, errors.New("flag set is empty"))
	}

	seen := make(map[FlagKey]struct{}, len(fs))
	var errs []error
	for _, k := range fs {
		if _, dup := seen[k]; dup {
			errs = append(errs, fmt.Errorf("%s listed twice", k))
			continue
		}
		seen[k] = struct{}{}
		if err := cfg.Derivable(k); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return core.WrapError(core.ErrFlagSetInvalid, errors.Join(errs...))
	}
	return nil
}
