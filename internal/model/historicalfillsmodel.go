package model

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// HistoricalFill is a single persisted trade record: one non-rejected Fill
// as it lands in a replay, giving the positions-history output a concrete
// table alongside the in-memory snapshot series.
type HistoricalFill struct {
	ID          int64     `db:"id"`
	RunID       string    `db:"run_id"`
	Tick        int       `db:"tick"`
	Symbol      string    `db:"symbol"`
	Direction   string    `db:"direction"`
	Quantity    float64   `db:"quantity"`
	FillPrice   float64   `db:"fill_price"`
	Commission  float64   `db:"commission"`
	RealizedPnl float64   `db:"realized_pnl"`
	Position    float64   `db:"position"`
	Timestamp   int64     `db:"timestamp"`
	CreatedAt   time.Time `db:"created_at"`
}

var _ HistoricalFillsModel = (*defaultHistoricalFillsModel)(nil)

// HistoricalFillsModel is the persistence surface for per-run trade history.
type HistoricalFillsModel interface {
	Insert(ctx context.Context, fill *HistoricalFill) error
	RecentByRun(ctx context.Context, runID string, limit int) ([]HistoricalFill, error)
}

type defaultHistoricalFillsModel struct {
	conn  sqlx.SqlConn
	table string
}

// NewHistoricalFillsModel returns a model for the historical_fills table.
func NewHistoricalFillsModel(conn sqlx.SqlConn) HistoricalFillsModel {
	return &defaultHistoricalFillsModel{conn: conn, table: "public.historical_fills"}
}

func (m *defaultHistoricalFillsModel) Insert(ctx context.Context, fill *HistoricalFill) error {
	query := fmt.Sprintf(`INSERT INTO %s
(run_id, tick, symbol, direction, quantity, fill_price, commission, realized_pnl, position, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, m.table)

	_, err := m.conn.ExecCtx(ctx, query,
		fill.RunID, fill.Tick, fill.Symbol, fill.Direction, fill.Quantity,
		fill.FillPrice, fill.Commission, fill.RealizedPnl, fill.Position, fill.Timestamp)
	if err != nil {
		return fmt.Errorf("historicalFills.Insert exec: %w", err)
	}
	return nil
}

func (m *defaultHistoricalFillsModel) RecentByRun(ctx context.Context, runID string, limit int) ([]HistoricalFill, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT id, run_id, tick, symbol, direction, quantity, fill_price, commission, realized_pnl, position, timestamp, created_at
FROM %s WHERE run_id = $1 ORDER BY tick ASC LIMIT $2`, m.table)

	var rows []HistoricalFill
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, runID, limit); err != nil {
		return nil, fmt.Errorf("historicalFills.RecentByRun query: %w", err)
	}
	return rows, nil
}
