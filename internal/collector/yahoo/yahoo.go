package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newthinker/trendstrength/internal/collector"
	"github.com/newthinker/trendstrength/internal/core"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// validSymbol matches Yahoo symbols like AAPL, ^GSPC, GC=F, BRK-B, 0700.HK
var validSymbol = regexp.MustCompile(`^[\^A-Za-z0-9][A-Za-z0-9=.\-]{0,19}$`)

func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Config tunes the Yahoo chart client
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	MaxElapsed     time.Duration
}

// Yahoo fetches daily history from the Yahoo Finance chart API
type Yahoo struct {
	client     *http.Client
	limiter    *rate.Limiter
	baseURL    string
	maxElapsed time.Duration
	logger     *zap.Logger
}

// New creates a Yahoo collector. Zero config fields take defaults.
func New(cfg Config, logger ...*zap.Logger) *Yahoo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 2
	}
	if cfg.MaxElapsed == 0 {
		cfg.MaxElapsed = 30 * time.Second
	}

	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}

	return &Yahoo{
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxElapsed: cfg.MaxElapsed,
		logger:     l,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol maps an instrument id to its Yahoo symbol
func toYahooSymbol(id core.InstrumentID) string {
	s := strings.ToUpper(string(id))
	// Shanghai listings: 600519.SH -> 600519.SS
	if strings.HasSuffix(s, ".SH") {
		return strings.TrimSuffix(s, ".SH") + ".SS"
	}
	return s
}

// statusError is a non-200 reply from the chart API
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.code)
}

func (y *Yahoo) FetchHistory(ctx context.Context, id core.InstrumentID, start, end time.Time) (core.PriceSeries, error) {
	symbol := toYahooSymbol(id)
	if err := validateSymbol(symbol); err != nil {
		return core.PriceSeries{}, core.WrapError(core.ErrSymbolNotFound, err)
	}

	if end.IsZero() {
		end = time.Now()
	}
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	endpoint := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(symbol), q.Encode())

	var result chartResponse
	operation := func() error {
		if err := y.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "trendstrength/1.0")

		resp, err := y.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := &statusError{code: resp.StatusCode}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		result = chartResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = y.maxElapsed
	notify := func(err error, wait time.Duration) {
		y.logger.Debug("retrying yahoo request",
			zap.String("symbol", symbol),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return core.PriceSeries{}, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s: %w", symbol, err))
		}
		if ctx.Err() != nil {
			return core.PriceSeries{}, core.WrapError(core.ErrCollectorTimeout, err)
		}
		return core.PriceSeries{}, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("%s: %w", symbol, err))
	}

	return toSeries(id, result, start, end)
}

func toSeries(id core.InstrumentID, result chartResponse, start, end time.Time) (core.PriceSeries, error) {
	if result.Chart.Error != nil {
		return core.PriceSeries{}, core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return core.PriceSeries{}, core.WrapError(core.ErrNoData, fmt.Errorf("no data for %s", id))
	}

	r := result.Chart.Result[0]
	quotes := r.Indicators.Quote[0]

	bars := make([]core.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		open, high, low, cl := at(quotes.Open, i), at(quotes.High, i), at(quotes.Low, i), at(quotes.Close, i)
		if open == nil || high == nil || low == nil || cl == nil {
			continue
		}

		// exchange-local calendar date
		local := time.Unix(ts+r.Meta.GMTOffset, 0).UTC()
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		if !collector.InRange(date, truncate(start), end) {
			continue
		}
		// intraday updates repeat the last session date
		if n := len(bars); n > 0 && !date.After(bars[n-1].Date) {
			bars = bars[:n-1]
		}
		bars = append(bars, core.Bar{Date: date, Open: *open, High: *high, Low: *low, Close: *cl})
	}

	if len(bars) == 0 {
		return core.PriceSeries{}, core.WrapError(core.ErrNoData, fmt.Errorf("no bars for %s", id))
	}
	return core.PriceSeries{ID: id, Bars: bars}, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func truncate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol    string `json:"symbol"`
	GMTOffset int64  `json:"gmtoffset"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open  []*float64 `json:"open"`
	High  []*float64 `json:"high"`
	Low   []*float64 `json:"low"`
	Close []*float64 `json:"close"`
}
