package csvfile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/trendstrength/internal/collector"
	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/storage/archive"
)

func TestCSVFile_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*CSVFile)(nil)
}

func newTestCollector(t *testing.T) *CSVFile {
	t.Helper()
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	return New(store, "prices")
}

func TestCSVFile_SaveAndFetch(t *testing.T) {
	c := newTestCollector(t)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }
	s := core.PriceSeries{ID: "c_es_ccb", Bars: []core.Bar{
		{Date: day(3), Open: 10, High: 11, Low: 9, Close: 10.5},
		{Date: day(4), Open: 10.5, High: 12, Low: 10, Close: 11.25},
		{Date: day(5), Open: 11, High: 11.5, Low: 10, Close: 10.75},
	}}
	require.NoError(t, c.Save(ctx, s))

	got, err := c.FetchHistory(ctx, "c_es_ccb", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, s, got)

	ranged, err := c.FetchHistory(ctx, "c_es_ccb", day(4), day(4))
	require.NoError(t, err)
	require.Len(t, ranged.Bars, 1)
	assert.Equal(t, 11.25, ranged.Bars[0].Close)

	_, err = c.FetchHistory(ctx, "c_es_ccb", day(10), time.Time{})
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestCSVFile_Missing(t *testing.T) {
	_, err := newTestCollector(t).FetchHistory(context.Background(), "nope", time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, core.ErrSymbolNotFound))
}

func TestDecode_ColumnOrderAndExtras(t *testing.T) {
	doc := "close,Volume,date,low,high,open\n101.5,1000,2024-01-02,99,102,100\n"

	bars, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, core.Bar{
		Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Open: 100, High: 102, Low: 99, Close: 101.5,
	}, bars[0])
}

func TestDecode_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"missing column": "Date,Open,High,Low\n2024-01-02,1,1,1\n",
		"bad date":       "Date,Open,High,Low,Close\n02/01/2024,1,1,1,1\n",
		"bad number":     "Date,Open,High,Low,Close\n2024-01-02,1,x,1,1\n",
		"short row":      "Date,Open,High,Low,Close\n2024-01-02,1,1\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
