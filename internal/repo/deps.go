// Package repo wires the internal/model persistence layer and the go-zero
// cache store into the concrete collaborators datafeed and backtest expect
// (datafeed.Store, backtest.FillRecorder).
package repo

import (
	"errors"

	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	internalcache "backtestcore/internal/cache"
	"backtestcore/internal/model"
)

// Dependencies bundles the models and shared infrastructure required by
// repository implementations.
type Dependencies struct {
	DBConn sqlx.SqlConn
	Cache  cache.Cache
	TTL    internalcache.TTLSet

	HistoricalDataModel  model.HistoricalDataModel
	HistoricalFillsModel model.HistoricalFillsModel
}

// Set exposes the concrete collaborators application code wires into
// datafeed and backtest.
type Set struct {
	Bars  *BarsRepo
	Fills *FillsRepo
}

// New constructs the repository set, validating required dependencies.
func New(deps Dependencies) (*Set, error) {
	if deps.DBConn == nil {
		return nil, errors.New("repo: missing DBConn dependency")
	}
	if deps.HistoricalDataModel == nil {
		deps.HistoricalDataModel = model.NewHistoricalDataModel(deps.DBConn)
	}
	if deps.HistoricalFillsModel == nil {
		deps.HistoricalFillsModel = model.NewHistoricalFillsModel(deps.DBConn)
	}

	return &Set{
		Bars:  newBarsRepo(deps),
		Fills: newFillsRepo(deps),
	}, nil
}
