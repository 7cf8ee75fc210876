package model

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// HistoricalData mirrors one row of the historical_data cache table. The
// primary key is the (ticker, frequency, timestamp) triple; there is no
// surrogate id column, so this model skips go-zero's single-key
// cache.Conn wrapper and relies on internal/repo for the read-through
// cache layer in front of range reads.
type HistoricalData struct {
	Ticker    string    `db:"ticker"`
	Timestamp int64     `db:"timestamp"`
	Frequency string    `db:"frequency"`
	Open      float64   `db:"open"`
	High      float64   `db:"high"`
	Low       float64   `db:"low"`
	Close     float64   `db:"close"`
	Volume    float64   `db:"volume"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

var _ HistoricalDataModel = (*defaultHistoricalDataModel)(nil)

// HistoricalDataModel is the persistence surface datafeed.Store is built
// on top of.
type HistoricalDataModel interface {
	// FindOne returns the row for the composite key, or sql.ErrNoRows.
	FindOne(ctx context.Context, ticker, frequency string, timestamp int64) (*HistoricalData, error)
	// ExistingTimestamps returns sorted timestamps already stored for
	// ticker/frequency within [start, end].
	ExistingTimestamps(ctx context.Context, ticker, frequency string, start, end int64) ([]int64, error)
	// Range reads the closed [start, end] window for ticker/frequency,
	// ascending by timestamp.
	Range(ctx context.Context, ticker, frequency string, start, end int64) ([]HistoricalData, error)
	// RangeMany is Range batched across tickers in a single query, grouped
	// by ticker in the returned map.
	RangeMany(ctx context.Context, tickers []string, frequency string, start, end int64) (map[string][]HistoricalData, error)
	// InsertIgnore bulk-inserts rows, skipping any whose primary key
	// already exists.
	InsertIgnore(ctx context.Context, rows []HistoricalData) error
}

type defaultHistoricalDataModel struct {
	conn  sqlx.SqlConn
	table string
}

// NewHistoricalDataModel returns a model for the historical_data table.
func NewHistoricalDataModel(conn sqlx.SqlConn) HistoricalDataModel {
	return &defaultHistoricalDataModel{conn: conn, table: "public.historical_data"}
}

func (m *defaultHistoricalDataModel) FindOne(ctx context.Context, ticker, frequency string, timestamp int64) (*HistoricalData, error) {
	query := fmt.Sprintf(`SELECT ticker, timestamp, frequency, open, high, low, close, volume, source, created_at
FROM %s WHERE ticker = $1 AND frequency = $2 AND timestamp = $3`, m.table)

	var row HistoricalData
	if err := m.conn.QueryRowCtx(ctx, &row, query, ticker, frequency, timestamp); err != nil {
		if err == sqlx.ErrNotFound {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &row, nil
}

func (m *defaultHistoricalDataModel) ExistingTimestamps(ctx context.Context, ticker, frequency string, start, end int64) ([]int64, error) {
	query := fmt.Sprintf(`SELECT timestamp FROM %s
WHERE ticker = $1 AND frequency = $2 AND timestamp BETWEEN $3 AND $4
ORDER BY timestamp ASC`, m.table)

	var stamps []int64
	if err := m.conn.QueryRowsCtx(ctx, &stamps, query, ticker, frequency, start, end); err != nil {
		return nil, fmt.Errorf("historicalData.ExistingTimestamps query: %w", err)
	}
	return stamps, nil
}

func (m *defaultHistoricalDataModel) Range(ctx context.Context, ticker, frequency string, start, end int64) ([]HistoricalData, error) {
	query := fmt.Sprintf(`SELECT ticker, timestamp, frequency, open, high, low, close, volume, source, created_at
FROM %s
WHERE ticker = $1 AND frequency = $2 AND timestamp BETWEEN $3 AND $4
ORDER BY timestamp ASC`, m.table)

	var rows []HistoricalData
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, ticker, frequency, start, end); err != nil {
		return nil, fmt.Errorf("historicalData.Range query: %w", err)
	}
	return rows, nil
}

func (m *defaultHistoricalDataModel) RangeMany(ctx context.Context, tickers []string, frequency string, start, end int64) (map[string][]HistoricalData, error) {
	if len(tickers) == 0 {
		return map[string][]HistoricalData{}, nil
	}
	query := fmt.Sprintf(`SELECT ticker, timestamp, frequency, open, high, low, close, volume, source, created_at
FROM %s
WHERE ticker = ANY($1) AND frequency = $2 AND timestamp BETWEEN $3 AND $4
ORDER BY ticker ASC, timestamp ASC`, m.table)

	var rows []HistoricalData
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, pq.Array(tickers), frequency, start, end); err != nil {
		return nil, fmt.Errorf("historicalData.RangeMany query: %w", err)
	}

	result := make(map[string][]HistoricalData, len(tickers))
	for _, row := range rows {
		result[row.Ticker] = append(result[row.Ticker], row)
	}
	return result, nil
}

func (m *defaultHistoricalDataModel) InsertIgnore(ctx context.Context, rows []HistoricalData) error {
	if len(rows) == 0 {
		return nil
	}
	query := fmt.Sprintf(`INSERT INTO %s
(ticker, timestamp, frequency, open, high, low, close, volume, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (ticker, frequency, timestamp) DO NOTHING`, m.table)

	for _, row := range rows {
		if _, err := m.conn.ExecCtx(ctx, query,
			row.Ticker, row.Timestamp, row.Frequency,
			row.Open, row.High, row.Low, row.Close, row.Volume, row.Source); err != nil {
			return fmt.Errorf("historicalData.InsertIgnore exec: %w", err)
		}
	}
	return nil
}
