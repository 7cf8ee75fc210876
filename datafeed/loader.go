// Package datafeed implements C1 (DataLoader/Cache) and C2 (DataHandler)
// gap-aware fetch/aggregate/store against a persistent
// cache, and deterministic bar-by-bar replay of the result.
package datafeed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"backtestcore/bar"
)

// Errors returned at loader entry.
var (
	ErrInvalidRange        = errors.New("datafeed: start time after end time")
	ErrUnsupportedFrequency = errors.New("datafeed: frequency not served or aggregable by this source")
)

// StockProvider is the out-of-scope upstream collaborator for equities
// history. Concrete HTTP clients are external; this interface is all the
// loader depends on.
type StockProvider interface {
	History(ctx context.Context, ticker string, startUTC, endUTC int64, frequency bar.Frequency) ([]bar.Bar, error)
}

// CryptoProvider is the out-of-scope upstream collaborator for crypto
// klines.
type CryptoProvider interface {
	Klines(ctx context.Context, symbol string, interval bar.Frequency, startUTC, endUTC int64) ([]bar.Bar, error)
}

// Store is the persistent cache keyed by (ticker, frequency, timestamp).
// internal/repo provides the pgx/sqlx-backed implementation; tests can
// substitute an in-memory one.
type Store interface {
	// ExistingTimestamps returns the sorted timestamps already cached for
	// ticker/frequency within [start, end].
	ExistingTimestamps(ctx context.Context, ticker string, freq bar.Frequency, start, end int64) ([]int64, error)
	// Range reads back the closed [start, end] range for ticker/frequency,
	// ascending by timestamp.
	Range(ctx context.Context, ticker string, freq bar.Frequency, start, end int64) ([]bar.Bar, error)
	// InsertIgnore idempotently persists bars, ignoring primary-key
	// conflicts (ticker, frequency, timestamp).
	InsertIgnore(ctx context.Context, bars []bar.Bar) error
}

// Source identifies which upstream/alphabet a loader request targets.
type Source string

const (
	SourceStock  Source = "stock"
	SourceCrypto Source = "crypto"
)

// PriceJumpThreshold is the default relative-change warning threshold from
// the source system.
const PriceJumpThreshold = 0.5

// Loader implements C1: gap discovery, best-interval fetch-aggregate, OHLCV
// validation, and idempotent persistence.
type Loader struct {
	Store          Store
	Stock          StockProvider
	Crypto         CryptoProvider
	PriceJumpThreshold float64

	stockLimiter  *RateLimiter
	cryptoLimiter *RateLimiter
}

// NewLoader constructs a Loader with the source system's default rate
// limits: 200ms between stock requests, 100ms between crypto requests, each
// tracked per-instance rather than process-wide.
func NewLoader(store Store, stock StockProvider, crypto CryptoProvider) *Loader {
	return &Loader{
		Store:              store,
		Stock:              stock,
		Crypto:             crypto,
		PriceJumpThreshold: PriceJumpThreshold,
		stockLimiter:       NewRateLimiter(200 * time.Millisecond),
		cryptoLimiter:      NewRateLimiter(100 * time.Millisecond),
	}
}

// GetHistoricalData implements the full C1 algorithm for a set of tickers.
// It returns bars per ticker in ascending timestamp order, each annotated
// with DatetimeLocal.
func (l *Loader) GetHistoricalData(ctx context.Context, tickers []string, startLocal, endLocal time.Time, freq bar.Frequency, tz string, source Source) (map[string][]bar.Bar, error) {
	if startLocal.After(endLocal) {
		return nil, ErrInvalidRange
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("datafeed: load timezone %q: %w", tz, err)
	}
	if !bar.Supported(freq) {
		return nil, ErrUnsupportedFrequency
	}
	if _, _, ok := bestInterval(freq, source); !ok {
		return nil, ErrUnsupportedFrequency
	}

	startUTC := startLocal.In(loc).UTC().Unix()
	endUTC := endLocal.In(loc).UTC().Unix()

	result := make(map[string][]bar.Bar, len(tickers))
	for _, ticker := range tickers {
		if err := l.backfill(ctx, ticker, startUTC, endUTC, freq, source); err != nil {
			return nil, err
		}
		bars, err := l.Store.Range(ctx, ticker, freq, startUTC, endUTC)
		if err != nil {
			return nil, fmt.Errorf("datafeed: cache read failed for %s: %w", ticker, err)
		}
		for i := range bars {
			bars[i].DatetimeLocal = time.Unix(bars[i].Timestamp, 0).UTC().In(loc).Format("2006-01-02 15:04:05 MST")
		}
		result[ticker] = bars
	}
	return result, nil
}

func (l *Loader) backfill(ctx context.Context, ticker string, startUTC, endUTC int64, freq bar.Frequency, source Source) error {
	existing, err := l.Store.ExistingTimestamps(ctx, ticker, freq, startUTC, endUTC)
	if err != nil {
		return fmt.Errorf("datafeed: cache read failed for %s: %w", ticker, err)
	}
	gaps := GapRanges(existing, startUTC, endUTC, bar.Seconds(freq))

	for _, gap := range gaps {
		fetchInterval, aggregateCount, _ := bestInterval(freq, source)
		rawBars, err := l.fetch(ctx, ticker, gap.Start, gap.End, fetchInterval, source)
		if err != nil {
			// Upstream failures degrade to "empty fetch"; never fatal.
			logx.WithContext(ctx).Errorf("datafeed: upstream fetch failed for %s [%d,%d]: %v", ticker, gap.Start, gap.End, err)
			continue
		}
		if aggregateCount > 1 {
			rawBars = Aggregate(rawBars, aggregateCount, freq)
		}
		cleaned := l.validate(ctx, rawBars)
		if len(cleaned) == 0 {
			continue
		}
		if err := l.Store.InsertIgnore(ctx, cleaned); err != nil {
			return fmt.Errorf("datafeed: cache write failed for %s: %w", ticker, err)
		}
	}
	return nil
}

func (l *Loader) fetch(ctx context.Context, ticker string, startUTC, endUTC int64, freq bar.Frequency, source Source) ([]bar.Bar, error) {
	switch source {
	case SourceStock:
		if l.Stock == nil {
			return nil, errors.New("datafeed: no stock provider configured")
		}
		l.stockLimiter.Wait()
		return l.Stock.History(ctx, ticker, startUTC, endUTC, freq)
	case SourceCrypto:
		if l.Crypto == nil {
			return nil, errors.New("datafeed: no crypto provider configured")
		}
		l.cryptoLimiter.Wait()
		return l.Crypto.Klines(ctx, ticker, freq, startUTC, endUTC)
	default:
		return nil, fmt.Errorf("datafeed: unknown source %q", source)
	}
}

// validate enforces the OHLCV invariants,
// invalidating bars that fail and logging a price-jump warning the way
// _check_price_jump does in the source system.
func (l *Loader) validate(ctx context.Context, bars []bar.Bar) []bar.Bar {
	threshold := l.PriceJumpThreshold
	if threshold <= 0 {
		threshold = PriceJumpThreshold
	}
	var prevClose float64
	havePrevClose := false
	out := make([]bar.Bar, len(bars))
	for i, b := range bars {
		if !b.Valid() {
			b.Invalidate()
		}
		if havePrevClose && !b.Invalid && prevClose > 0 {
			change := math.Abs(b.Open-prevClose) / prevClose
			if change > threshold {
				logx.WithContext(ctx).Infof(
					"datafeed: price jump for %s at %d: prev_close=%.4f open=%.4f change=%.2f%%",
					b.Ticker, b.Timestamp, prevClose, b.Open, change*100,
				)
			}
		}
		if !b.Invalid {
			prevClose = b.Close
			havePrevClose = true
		}
		out[i] = b
	}
	return out
}

// Range is a closed [Start, End] UTC-seconds interval missing from the
// cache.
type Range struct {
	Start, End int64
}

// GapRanges computes the missing sub-ranges of [start, end] given the
// sorted existing timestamps.
func GapRanges(existing []int64, start, end, step int64) []Range {
	if len(existing) == 0 {
		return []Range{{start, end}}
	}
	var gaps []Range
	if existing[0] > start {
		gaps = append(gaps, Range{start, existing[0] - step})
	}
	for i := 0; i < len(existing)-1; i++ {
		gap := existing[i+1] - existing[i]
		if gap > step {
			gaps = append(gaps, Range{existing[i] + step, existing[i+1] - step})
		}
	}
	if last := existing[len(existing)-1]; last < end {
		gaps = append(gaps, Range{last + step, end})
	}
	return gaps
}

var stockAlphabet = []bar.Frequency{
	"1m", "5m", "15m", "30m", "1h", "1d", "1w", "1M",
}

var cryptoAlphabet = bar.All()

// bestInterval picks the upstream interval for target f: f itself when the
// source serves it directly, otherwise the largest supported interval g
// with g < f and f mod g == 0. It returns the chosen interval, the number
// of bars to aggregate (1 if g == f), and whether f can be served at all
// (directly or via aggregation).
func bestInterval(target bar.Frequency, source Source) (bar.Frequency, int, bool) {
	alphabet := cryptoAlphabet
	if source == SourceStock {
		alphabet = stockAlphabet
	}
	for _, g := range alphabet {
		if g == target {
			return g, 1, true
		}
	}
	targetSec := bar.Seconds(target)
	var best bar.Frequency
	var bestSec int64
	for _, g := range alphabet {
		gSec := bar.Seconds(g)
		if gSec < targetSec && targetSec%gSec == 0 {
			if gSec > bestSec {
				best, bestSec = g, gSec
			}
		}
	}
	if bestSec == 0 {
		return "", 0, false
	}
	return best, int(targetSec / bestSec), true
}

// Aggregate folds N adjacent bars into one at the target interval: open of
// first, close of last, max(high), min(low), sum(volume); trailing partial
// groups are discarded.
func Aggregate(bars []bar.Bar, n int, target bar.Frequency) []bar.Bar {
	if n <= 1 {
		return bars
	}
	var out []bar.Bar
	for i := 0; i+n <= len(bars); i += n {
		group := bars[i : i+n]
		agg := bar.Bar{
			Ticker:    group[0].Ticker,
			Timestamp: group[0].Timestamp,
			Frequency: target,
			Open:      group[0].Open,
			Close:     group[n-1].Close,
			Source:    group[0].Source,
		}
		agg.High = group[0].High
		agg.Low = group[0].Low
		for _, g := range group {
			if g.High > agg.High {
				agg.High = g.High
			}
			if g.Low < agg.Low {
				agg.Low = g.Low
			}
			agg.Volume += g.Volume
		}
		out = append(out, agg)
	}
	return out
}
