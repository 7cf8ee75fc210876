package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"backtestcore/bar"
	internalcache "backtestcore/internal/cache"
	"backtestcore/internal/model"
)

// BarsRepo implements datafeed.Store against the historical_data model,
// with a go-zero cache read-through layer in front of range reads for hot
// ticker/frequency windows.
type BarsRepo struct {
	model model.HistoricalDataModel
	conn  sqlx.SqlConn
	cache cache.Cache
	ttl   internalcache.TTLSet
}

func newBarsRepo(deps Dependencies) *BarsRepo {
	return &BarsRepo{
		model: deps.HistoricalDataModel,
		conn:  deps.DBConn,
		cache: deps.Cache,
		ttl:   deps.TTL,
	}
}

// ExistingTimestamps satisfies datafeed.Store.
func (r *BarsRepo) ExistingTimestamps(ctx context.Context, ticker string, freq bar.Frequency, start, end int64) ([]int64, error) {
	key := internalcache.ExistingTimestampsKey(ticker, string(freq), start, end)

	if r.cache != nil {
		var cached []int64
		if ok, err := r.getCache(ctx, key, &cached); err != nil {
			logx.WithContext(ctx).Errorf("bars cache get %s: %v", key, err)
		} else if ok {
			return cached, nil
		}
	}

	stamps, err := r.model.ExistingTimestamps(ctx, ticker, string(freq), start, end)
	if err != nil {
		return nil, fmt.Errorf("barsRepo.ExistingTimestamps: %w", err)
	}

	r.setCache(ctx, key, internalcache.ExistingTimestampsTTL(r.ttl), stamps)
	return stamps, nil
}

// Range satisfies datafeed.Store.
func (r *BarsRepo) Range(ctx context.Context, ticker string, freq bar.Frequency, start, end int64) ([]bar.Bar, error) {
	key := internalcache.BarRangeKey(ticker, string(freq), start, end)

	if r.cache != nil {
		var cached []bar.Bar
		if ok, err := r.getCache(ctx, key, &cached); err != nil {
			logx.WithContext(ctx).Errorf("bars cache get %s: %v", key, err)
		} else if ok {
			return cached, nil
		}
	}

	rows, err := r.model.Range(ctx, ticker, string(freq), start, end)
	if err != nil {
		return nil, fmt.Errorf("barsRepo.Range: %w", err)
	}

	bars := rowsToBars(rows)
	r.setCache(ctx, key, internalcache.BarRangeTTL(r.ttl), bars)
	return bars, nil
}

// InsertIgnore satisfies datafeed.Store. The cache is left to expire
// naturally rather than invalidated pointwise, since a single write can
// affect many overlapping cached ranges.
func (r *BarsRepo) InsertIgnore(ctx context.Context, bars []bar.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	rows := make([]model.HistoricalData, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, model.HistoricalData{
			Ticker:    b.Ticker,
			Timestamp: b.Timestamp,
			Frequency: string(b.Frequency),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			Source:    b.Source,
		})
	}
	if err := r.model.InsertIgnore(ctx, rows); err != nil {
		return fmt.Errorf("barsRepo.InsertIgnore: %w", err)
	}
	return nil
}

func rowsToBars(rows []model.HistoricalData) []bar.Bar {
	bars := make([]bar.Bar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, bar.Bar{
			Ticker:    row.Ticker,
			Timestamp: row.Timestamp,
			Frequency: bar.Frequency(row.Frequency),
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
			Source:    row.Source,
		})
	}
	return bars
}

func (r *BarsRepo) getCache(ctx context.Context, key string, v any) (bool, error) {
	raw, err := r.getCacheBytes(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode cache value %s: %w", key, err)
	}
	return true, nil
}

func (r *BarsRepo) getCacheBytes(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	if err := r.cache.GetCtx(ctx, key, &raw); err != nil {
		if r.cache.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

func (r *BarsRepo) setCache(ctx context.Context, key string, ttl time.Duration, v any) {
	if r.cache == nil {
		return
	}
	encoded, err := msgpack.Marshal(v)
	if err != nil {
		logx.WithContext(ctx).Errorf("encode cache value %s: %v", key, err)
		return
	}
	if err := r.cache.SetWithExpireCtx(ctx, key, encoded, ttl); err != nil {
		logx.WithContext(ctx).Errorf("set cache %s: %v", key, err)
	}
}
