package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newthinker/trendstrength/internal/collector"
	"github.com/newthinker/trendstrength/internal/core"
)

const (
	defaultBaseURL = "https://api.binance.com"
	pageLimit      = 1000
	day            = 24 * time.Hour
)

// Config tunes the Binance klines client
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	MaxElapsed     time.Duration
}

// Binance fetches daily spot klines. Instrument ids are spot pairs such as
// "s_btcusdt" or "btcusdt".
type Binance struct {
	client     *http.Client
	limiter    *rate.Limiter
	baseURL    string
	maxElapsed time.Duration
	logger     *zap.Logger
}

// New creates a Binance collector. Zero config fields take defaults.
func New(cfg Config, logger ...*zap.Logger) *Binance {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.MaxElapsed == 0 {
		cfg.MaxElapsed = 30 * time.Second
	}

	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}

	return &Binance{
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxElapsed: cfg.MaxElapsed,
		logger:     l,
	}
}

func (b *Binance) Name() string {
	return "binance"
}

// toSymbol maps "s_btcusdt" to "BTCUSDT"
func toSymbol(id core.InstrumentID) string {
	s, _ := strings.CutPrefix(string(id), "s_")
	return strings.ToUpper(s)
}

// apiError is a non-200 reply; Binance reports bad symbols as 400 code -1121
type apiError struct {
	status int
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *apiError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("unexpected status: %d (%d %s)", e.status, e.Code, e.Msg)
	}
	return fmt.Sprintf("unexpected status: %d", e.status)
}

const codeInvalidSymbol = -1121

func (b *Binance) FetchHistory(ctx context.Context, id core.InstrumentID, start, end time.Time) (core.PriceSeries, error) {
	symbol := toSymbol(id)
	if symbol == "" {
		return core.PriceSeries{}, core.WrapError(core.ErrSymbolNotFound, errors.New("symbol cannot be empty"))
	}
	if end.IsZero() {
		end = time.Now()
	}

	var bars []core.Bar
	from := start
	for !from.After(end) {
		page, err := b.page(ctx, symbol, from, end)
		if err != nil {
			return core.PriceSeries{}, b.classify(ctx, symbol, err)
		}
		for _, k := range page {
			bar, ok := k.bar()
			if !ok || !collector.InRange(bar.Date, truncate(start), end) {
				continue
			}
			if n := len(bars); n > 0 && !bar.Date.After(bars[n-1].Date) {
				continue
			}
			bars = append(bars, bar)
		}
		if len(page) < pageLimit || len(bars) == 0 {
			break
		}
		from = bars[len(bars)-1].Date.Add(day)
	}

	if len(bars) == 0 {
		return core.PriceSeries{}, core.WrapError(core.ErrNoData, fmt.Errorf("no bars for %s", id))
	}
	return core.PriceSeries{ID: id, Bars: bars}, nil
}

func (b *Binance) classify(ctx context.Context, symbol string, err error) error {
	var ae *apiError
	if errors.As(err, &ae) && ae.Code == codeInvalidSymbol {
		return core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s: %w", symbol, err))
	}
	if ctx.Err() != nil {
		return core.WrapError(core.ErrCollectorTimeout, err)
	}
	return core.WrapError(core.ErrCollectorFailed, fmt.Errorf("%s: %w", symbol, err))
}

func (b *Binance) page(ctx context.Context, symbol string, from, end time.Time) ([]kline, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", "1d")
	q.Set("startTime", strconv.FormatInt(from.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(pageLimit))
	endpoint := b.baseURL + "/api/v3/klines?" + q.Encode()

	var klines []kline
	operation := func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := b.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			ae := &apiError{status: resp.StatusCode}
			_ = json.NewDecoder(resp.Body).Decode(ae)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return ae
			}
			return backoff.Permanent(ae)
		}

		klines = nil
		if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = b.maxElapsed
	notify := func(err error, wait time.Duration) {
		b.logger.Debug("retrying binance request",
			zap.String("symbol", symbol),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, err
	}
	return klines, nil
}

// kline is one row of the klines reply:
// [openTime, open, high, low, close, volume, closeTime, ...]
type kline []any

func (k kline) bar() (core.Bar, bool) {
	if len(k) < 5 {
		return core.Bar{}, false
	}
	openTime, ok := k[0].(float64)
	if !ok {
		return core.Bar{}, false
	}

	var v [4]float64
	for i := range v {
		s, ok := k[i+1].(string)
		if !ok {
			return core.Bar{}, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Bar{}, false
		}
		v[i] = f
	}

	return core.Bar{
		Date:  truncate(time.UnixMilli(int64(openTime)).UTC()),
		Open:  v[0],
		High:  v[1],
		Low:   v[2],
		Close: v[3],
	}, true
}

func truncate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
