package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/trendstrength/internal/collector"
	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/storage/archive"
)

const dateLayout = "2006-01-02"

var columns = []string{"Date", "Open", "High", "Low", "Close"}

// CSVFile reads price history from <dir>/<id>.csv files in archive storage.
// Files need a header naming Date, Open, High, Low and Close in any order;
// other columns are ignored.
type CSVFile struct {
	store archive.Storage
	dir   string
}

// New creates a collector over store
func New(store archive.Storage, dir string) *CSVFile {
	return &CSVFile{store: store, dir: dir}
}

func (c *CSVFile) Name() string {
	return "csvfile"
}

// Path returns the storage path of id's price file
func (c *CSVFile) Path(id core.InstrumentID) string {
	return path.Join(c.dir, string(id)+".csv")
}

func (c *CSVFile) FetchHistory(ctx context.Context, id core.InstrumentID, start, end time.Time) (core.PriceSeries, error) {
	data, err := c.store.Read(ctx, c.Path(id))
	if errors.Is(err, archive.ErrNotFound) {
		return core.PriceSeries{}, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s: no price file", id))
	}
	if err != nil {
		return core.PriceSeries{}, core.WrapError(core.ErrCollectorFailed, err)
	}

	bars, err := Decode(bytes.NewReader(data))
	if err != nil {
		return core.PriceSeries{}, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("%s: %w", id, err))
	}

	kept := bars[:0]
	for _, b := range bars {
		if collector.InRange(b.Date, start, end) {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		return core.PriceSeries{}, core.WrapError(core.ErrNoData, fmt.Errorf("%s: no bars in range", id))
	}

	return core.PriceSeries{ID: id, Bars: kept}, nil
}

// Save writes s as a price file, replacing any existing one
func (c *CSVFile) Save(ctx context.Context, s core.PriceSeries) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s.Bars); err != nil {
		return err
	}
	return c.store.Write(ctx, c.Path(s.ID), buf.Bytes())
}

// Decode parses a price file
func Decode(r io.Reader) ([]core.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty price file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	idx := make(map[string]int, len(columns))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	pos := make([]int, len(columns))
	for i, col := range columns {
		p, ok := idx[strings.ToLower(col)]
		if !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
		pos[i] = p
	}

	var bars []core.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(i int) string {
			if pos[i] >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[pos[i]])
		}

		date, err := time.Parse(dateLayout, field(0))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q", line, field(0))
		}

		var ohlc [4]float64
		for i := range ohlc {
			v, err := strconv.ParseFloat(field(i+1), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q", line, columns[i+1], field(i+1))
			}
			ohlc[i] = v
		}

		bars = append(bars, core.Bar{Date: date, Open: ohlc[0], High: ohlc[1], Low: ohlc[2], Close: ohlc[3]})
	}
	return bars, nil
}

// Encode writes bars in price file format
func Encode(w io.Writer, bars []core.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Date.Format(dateLayout),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
