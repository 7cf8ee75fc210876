package repo

import (
	"context"
	"fmt"

	"backtestcore/internal/model"
)

// FillsRepo persists one row per non-rejected Fill processed by a replay,
// implementing backtest.FillRecorder.
type FillsRepo struct {
	model model.HistoricalFillsModel
}

func newFillsRepo(deps Dependencies) *FillsRepo {
	return &FillsRepo{model: deps.HistoricalFillsModel}
}

// RecordFill satisfies backtest.FillRecorder.
func (r *FillsRepo) RecordFill(ctx context.Context, runID string, tick int, symbol, direction string, quantity, fillPrice, commission, realizedPnL, position float64, timestamp int64) error {
	fill := &model.HistoricalFill{
		RunID:       runID,
		Tick:        tick,
		Symbol:      symbol,
		Direction:   direction,
		Quantity:    quantity,
		FillPrice:   fillPrice,
		Commission:  commission,
		RealizedPnl: realizedPnL,
		Position:    position,
		Timestamp:   timestamp,
	}
	if err := r.model.Insert(ctx, fill); err != nil {
		return fmt.Errorf("fillsRepo.RecordFill: %w", err)
	}
	return nil
}
