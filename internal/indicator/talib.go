package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/newthinker/trendstrength/internal/core"
)

// go-talib zero-fills its warm-up region. The wrappers below replace those
// entries with NaN so that downstream comparisons treat them as undefined,
// and convert library panics into errors.

// MACDLookback is the number of leading bars without a MACD value
func MACDLookback(fast, slow, signal int) int {
	if fast > slow {
		slow = fast
	}
	return (slow - 1) + (signal - 1)
}

// MACD calculates the MACD line, signal line and histogram
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist []float64, err error) {
	if fast < 2 || slow < 2 || signal < 1 {
		return nil, nil, nil, fmt.Errorf("macd: invalid periods (%d, %d, %d)", fast, slow, signal)
	}

	lookback := MACDLookback(fast, slow, signal)
	if len(closes) <= lookback {
		return nanSlice(len(closes)), nanSlice(len(closes)), nanSlice(len(closes)), nil
	}

	err = guard("macd", func() {
		macd, sig, hist = talib.Macd(closes, fast, slow, signal)
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return mask(macd, lookback), mask(sig, lookback), mask(hist, lookback), nil
}

// ADX calculates the Average Directional Index
func ADX(highs, lows, closes []float64, period int) ([]float64, error) {
	if err := checkHLC(highs, lows, closes, period, "adx"); err != nil {
		return nil, err
	}

	lookback := 2*period - 1
	if len(closes) <= lookback {
		return nanSlice(len(closes)), nil
	}

	var out []float64
	err := guard("adx", func() {
		out = talib.Adx(highs, lows, closes, period)
	})
	if err != nil {
		return nil, err
	}
	return mask(out, lookback), nil
}

// RSI calculates the Relative Strength Index
func RSI(closes []float64, period int) ([]float64, error) {
	if period < 2 {
		return nil, fmt.Errorf("rsi: invalid period %d", period)
	}

	if len(closes) <= period {
		return nanSlice(len(closes)), nil
	}

	var out []float64
	err := guard("rsi", func() {
		out = talib.Rsi(closes, period)
	})
	if err != nil {
		return nil, err
	}
	return mask(out, period), nil
}

// ATR calculates the Average True Range
func ATR(highs, lows, closes []float64, period int) ([]float64, error) {
	if err := checkHLC(highs, lows, closes, period, "atr"); err != nil {
		return nil, err
	}

	if len(closes) <= period {
		return nanSlice(len(closes)), nil
	}

	var out []float64
	err := guard("atr", func() {
		out = talib.Atr(highs, lows, closes, period)
	})
	if err != nil {
		return nil, err
	}
	return mask(out, period), nil
}

// Breakout calculates a period-bar high/low channel and the breakout state.
// The state turns Long on a bar whose high sets the channel high, Short on a
// bar whose low sets the channel low, and otherwise keeps its previous value.
func Breakout(highs, lows []float64, period int) (lower, upper []float64, state []core.Direction, err error) {
	if period < 2 {
		return nil, nil, nil, fmt.Errorf("breakout: invalid period %d", period)
	}
	if len(highs) != len(lows) {
		return nil, nil, nil, fmt.Errorf("breakout: high/low length mismatch (%d, %d)", len(highs), len(lows))
	}

	lookback := period - 1
	if len(highs) <= lookback {
		return nanSlice(len(lows)), nanSlice(len(highs)), make([]core.Direction, len(highs)), nil
	}

	err = guard("breakout", func() {
		upper = talib.Max(highs, period)
		lower = talib.Min(lows, period)
	})
	if err != nil {
		return nil, nil, nil, err
	}
	upper = mask(upper, lookback)
	lower = mask(lower, lookback)

	state = make([]core.Direction, len(highs))
	current := core.Neutral
	for i := range highs {
		if i >= lookback {
			switch {
			case highs[i] >= upper[i]:
				current = core.Long
			case lows[i] <= lower[i]:
				current = core.Short
			}
		}
		state[i] = current
	}

	return lower, upper, state, nil
}

func checkHLC(highs, lows, closes []float64, period int, name string) error {
	if period < 1 {
		return fmt.Errorf("%s: invalid period %d", name, period)
	}
	if len(highs) != len(closes) || len(lows) != len(closes) {
		return fmt.Errorf("%s: high/low/close length mismatch (%d, %d, %d)",
			name, len(highs), len(lows), len(closes))
	}
	return nil
}

func guard(name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: indicator library panic: %v", name, r)
		}
	}()
	fn()
	return nil
}

func mask(values []float64, lookback int) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
