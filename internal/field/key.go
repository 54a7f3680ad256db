package field

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies an indicator family
type Kind int

const (
	KindMA Kind = iota + 1
	KindPriceCross
	KindMACD
	KindMACDSignal
	KindMACDHist
	KindADX
	KindMACross
	KindRSI
	KindBreakout
	KindBreakoutHigh
	KindBreakoutLow
	KindATR
)

// ColumnKey names a raw indicator column of an AugmentedSeries
type ColumnKey struct {
	Kind  Kind
	Tenor int
}

// MAColumn returns the key of the T-day moving average
func MAColumn(tenor int) ColumnKey { return ColumnKey{Kind: KindMA, Tenor: tenor} }

// ADXColumn returns the key of the T-period ADX
func ADXColumn(tenor int) ColumnKey { return ColumnKey{Kind: KindADX, Tenor: tenor} }

// RSIColumn returns the key of the T-period RSI
func RSIColumn(tenor int) ColumnKey { return ColumnKey{Kind: KindRSI, Tenor: tenor} }

// ATRColumn returns the key of the T-period ATR
func ATRColumn(tenor int) ColumnKey { return ColumnKey{Kind: KindATR, Tenor: tenor} }

// BreakoutHighColumn returns the key of the T-period channel high
func BreakoutHighColumn(tenor int) ColumnKey { return ColumnKey{Kind: KindBreakoutHigh, Tenor: tenor} }

// BreakoutLowColumn returns the key of the T-period channel low
func BreakoutLowColumn(tenor int) ColumnKey { return ColumnKey{Kind: KindBreakoutLow, Tenor: tenor} }

var (
	MACDColumn       = ColumnKey{Kind: KindMACD}
	MACDSignalColumn = ColumnKey{Kind: KindMACDSignal}
	MACDHistColumn   = ColumnKey{Kind: KindMACDHist}
)

func (k ColumnKey) String() string {
	switch k.Kind {
	case KindMA:
		return fmt.Sprintf("MA_%d", k.Tenor)
	case KindMACD:
		return "MACD"
	case KindMACDSignal:
		return "MACD_SIGNAL"
	case KindMACDHist:
		return "MACD_HIST"
	case KindADX:
		return fmt.Sprintf("ADX_%d", k.Tenor)
	case KindRSI:
		return fmt.Sprintf("RSI_%d", k.Tenor)
	case KindATR:
		return fmt.Sprintf("ATR_%d", k.Tenor)
	case KindBreakoutHigh:
		return fmt.Sprintf("high_%d", k.Tenor)
	case KindBreakoutLow:
		return fmt.Sprintf("low_%d", k.Tenor)
	default:
		return fmt.Sprintf("column(%d,%d)", k.Kind, k.Tenor)
	}
}

func compareColumns(a, b ColumnKey) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Tenor, b.Tenor)
}

// FlagKey names a directional flag column. Slow is only used by MA crosses.
type FlagKey struct {
	Kind  Kind
	Tenor int
	Slow  int
}

// PriceCrossFlag is +1 when Close is above MA_T, else -1
func PriceCrossFlag(tenor int) FlagKey { return FlagKey{Kind: KindPriceCross, Tenor: tenor} }

// MACDFlag is +1 when the MACD histogram rose on the bar, else -1
func MACDFlag() FlagKey { return FlagKey{Kind: KindMACD} }

// ADXFlag is 0 for ADX_T <= 25, otherwise the sign of the T price-cross flag
func ADXFlag(tenor int) FlagKey { return FlagKey{Kind: KindADX, Tenor: tenor} }

// MACrossFlag is +1 when MA_fast is above MA_slow, else -1
func MACrossFlag(fast, slow int) FlagKey { return FlagKey{Kind: KindMACross, Tenor: fast, Slow: slow} }

// RSIFlag is +1 above 70, -1 below 30, else 0
func RSIFlag(tenor int) FlagKey { return FlagKey{Kind: KindRSI, Tenor: tenor} }

// BreakoutFlag carries the direction of the last T-period channel break
func BreakoutFlag(tenor int) FlagKey { return FlagKey{Kind: KindBreakout, Tenor: tenor} }

func (k FlagKey) String() string {
	switch k.Kind {
	case KindPriceCross:
		return fmt.Sprintf("PX_MA_%d_flag", k.Tenor)
	case KindMACD:
		return "MACD_flag"
	case KindADX:
		return fmt.Sprintf("ADX_%d_flag", k.Tenor)
	case KindMACross:
		return fmt.Sprintf("MA_%d_%d_flag", k.Tenor, k.Slow)
	case KindRSI:
		return fmt.Sprintf("RSI_%d_flag", k.Tenor)
	case KindBreakout:
		return fmt.Sprintf("breakout_%d_flag", k.Tenor)
	default:
		return fmt.Sprintf("flag(%d,%d,%d)", k.Kind, k.Tenor, k.Slow)
	}
}

// Indicator returns the indicator family label used in diagnostics
func (k FlagKey) Indicator() string {
	switch k.Kind {
	case KindPriceCross:
		return "PX_MA"
	case KindMACD:
		return "MACD"
	case KindADX:
		return "ADX"
	case KindMACross:
		return "MA_CROSS"
	case KindRSI:
		return "RSI"
	case KindBreakout:
		return "breakout"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k FlagKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *FlagKey) UnmarshalText(text []byte) error {
	parsed, err := ParseFlagKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseFlagKey parses a flag column name such as "ADX_20_flag" or "MA_10_30".
// PX_MA and MA cross flags may omit the "_flag" suffix.
func ParseFlagKey(name string) (FlagKey, error) {
	base, suffixed := strings.CutSuffix(strings.TrimSpace(name), "_flag")

	switch {
	case base == "MACD" && suffixed:
		return MACDFlag(), nil

	case strings.HasPrefix(base, "PX_MA_"):
		t, err := parseTenor(strings.TrimPrefix(base, "PX_MA_"))
		if err != nil {
			return FlagKey{}, fmt.Errorf("flag %q: %w", name, err)
		}
		return PriceCrossFlag(t), nil

	case strings.HasPrefix(base, "MA_"):
		parts := strings.Split(strings.TrimPrefix(base, "MA_"), "_")
		if len(parts) != 2 {
			return FlagKey{}, fmt.Errorf("flag %q: expected MA_<fast>_<slow>", name)
		}
		fast, err := parseTenor(parts[0])
		if err != nil {
			return FlagKey{}, fmt.Errorf("flag %q: %w", name, err)
		}
		slow, err := parseTenor(parts[1])
		if err != nil {
			return FlagKey{}, fmt.Errorf("flag %q: %w", name, err)
		}
		return MACrossFlag(fast, slow), nil

	case strings.HasPrefix(base, "ADX_") && suffixed:
		t, err := parseTenor(strings.TrimPrefix(base, "ADX_"))
		if err != nil {
			return FlagKey{}, fmt.Errorf("flag %q: %w", name, err)
		}
		return ADXFlag(t), nil

	case strings.HasPrefix(base, "RSI_") && suffixed:
		t, err := parseTenor(strings.TrimPrefix(base, "RSI_"))
		if err != nil {
			return FlagKey{}, fmt.Errorf("flag %q: %w", name, err)
		}
		return RSIFlag(t), nil

	case strings.HasPrefix(base, "breakout_") && suffixed:
		t, err := parseTenor(strings.TrimPrefix(base, "breakout_"))
		if err != nil {
			return FlagKey{}, fmt.Errorf("flag %q: %w", name, err)
		}
		return BreakoutFlag(t), nil
	}

	return FlagKey{}, fmt.Errorf("unrecognised flag name %q", name)
}

func parseTenor(s string) (int, error) {
	t, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid tenor %q", s)
	}
	if t < 1 {
		return 0, fmt.Errorf("tenor must be positive, got %d", t)
	}
	return t, nil
}

func compareFlags(a, b FlagKey) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Tenor, b.Tenor); c != 0 {
		return c
	}
	return cmp.Compare(a.Slow, b.Slow)
}
