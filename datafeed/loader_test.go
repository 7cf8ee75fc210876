package datafeed

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtestcore/bar"
)

type memStore struct {
	rows map[string]bar.Bar // key: ticker|frequency|timestamp
}

func newMemStore() *memStore { return &memStore{rows: make(map[string]bar.Bar)} }

func key(ticker string, freq bar.Frequency, ts int64) string {
	return string(ticker) + "|" + string(freq) + "|" + time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

func (m *memStore) ExistingTimestamps(_ context.Context, ticker string, freq bar.Frequency, start, end int64) ([]int64, error) {
	var out []int64
	for _, b := range m.rows {
		if b.Ticker == ticker && b.Frequency == freq && b.Timestamp >= start && b.Timestamp <= end {
			out = append(out, b.Timestamp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memStore) Range(_ context.Context, ticker string, freq bar.Frequency, start, end int64) ([]bar.Bar, error) {
	var out []bar.Bar
	for _, b := range m.rows {
		if b.Ticker == ticker && b.Frequency == freq && b.Timestamp >= start && b.Timestamp <= end {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (m *memStore) InsertIgnore(_ context.Context, bars []bar.Bar) error {
	for _, b := range bars {
		k := key(b.Ticker, b.Frequency, b.Timestamp)
		if _, exists := m.rows[k]; exists {
			continue
		}
		m.rows[k] = b
	}
	return nil
}

type fakeStock struct {
	calls int
	bars  []bar.Bar
}

func (f *fakeStock) History(_ context.Context, ticker string, startUTC, endUTC int64, freq bar.Frequency) ([]bar.Bar, error) {
	f.calls++
	var out []bar.Bar
	for _, b := range f.bars {
		if b.Timestamp >= startUTC && b.Timestamp <= endUTC {
			out = append(out, b)
		}
	}
	return out, nil
}

func TestGapRanges_TilingScenario(t *testing.T) {
	gaps := GapRanges([]int64{100, 200, 400}, 0, 600, 100)
	require.Len(t, gaps, 3)
	assert.Equal(t, Range{0, 0}, gaps[0])
	assert.Equal(t, Range{300, 300}, gaps[1])
	assert.Equal(t, Range{500, 600}, gaps[2])
}

func TestAggregate_Correctness(t *testing.T) {
	bars := []bar.Bar{
		{Timestamp: 0, Open: 10, High: 12, Low: 9, Close: 11, Volume: 5},
		{Timestamp: 60, Open: 11, High: 13, Low: 10, Close: 12, Volume: 6},
		{Timestamp: 120, Open: 12, High: 14, Low: 11, Close: 13, Volume: 7},
	}
	agg := Aggregate(bars, 3, bar.Freq3m)
	require.Len(t, agg, 1)
	assert.Equal(t, 10.0, agg[0].Open)
	assert.Equal(t, 13.0, agg[0].Close)
	assert.Equal(t, 14.0, agg[0].High)
	assert.Equal(t, 9.0, agg[0].Low)
	assert.Equal(t, 18.0, agg[0].Volume)

	// trailing partial group is dropped
	partial := Aggregate(bars[:2], 3, bar.Freq3m)
	assert.Empty(t, partial)
}

func TestLoader_IdempotentBackfillAndFetch(t *testing.T) {
	store := newMemStore()
	stock := &fakeStock{bars: []bar.Bar{
		{Ticker: "AAPL", Timestamp: 0, Frequency: bar.Freq1d, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100, Source: "stock"},
		{Ticker: "AAPL", Timestamp: 86400, Frequency: bar.Freq1d, Open: 10.5, High: 11, Low: 10, Close: 10.8, Volume: 120, Source: "stock"},
	}}
	loader := NewLoader(store, stock, nil)
	loader.stockLimiter = NewRateLimiter(0)

	start := time.Unix(0, 0).UTC()
	end := time.Unix(86400, 0).UTC()

	got1, err := loader.GetHistoricalData(context.Background(), []string{"AAPL"}, start, end, bar.Freq1d, "UTC", SourceStock)
	require.NoError(t, err)
	assert.Len(t, got1["AAPL"], 2)
	assert.Equal(t, 1, stock.calls)

	// A second overlapping call must not duplicate rows or re-fetch.
	got2, err := loader.GetHistoricalData(context.Background(), []string{"AAPL"}, start, end, bar.Freq1d, "UTC", SourceStock)
	require.NoError(t, err)
	assert.Len(t, got2["AAPL"], 2)
	assert.Equal(t, 1, stock.calls, "no gap remained, so no second fetch should occur")
	assert.NotEmpty(t, got2["AAPL"][0].DatetimeLocal)
}

func TestLoader_InvalidRange(t *testing.T) {
	loader := NewLoader(newMemStore(), &fakeStock{}, nil)
	_, err := loader.GetHistoricalData(context.Background(), []string{"AAPL"}, time.Unix(100, 0), time.Unix(0, 0), bar.Freq1d, "UTC", SourceStock)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestLoader_UnsupportedFrequency(t *testing.T) {
	loader := NewLoader(newMemStore(), &fakeStock{}, nil)
	_, err := loader.GetHistoricalData(context.Background(), []string{"AAPL"}, time.Unix(0, 0), time.Unix(100, 0), bar.Frequency("7m"), "UTC", SourceStock)
	assert.ErrorIs(t, err, ErrUnsupportedFrequency)
}
