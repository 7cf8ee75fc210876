// Package backtest implements C7 Engine: the single-threaded FIFO event
// loop that drives a replay from DataHandler advances through Market,
// Signal, Order, and Fill events in the fixed dispatch order set out in the
// data model.
package backtest

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"backtestcore/datafeed"
	"backtestcore/event"
	"backtestcore/execution"
	"backtestcore/instrument"
	"backtestcore/portfolio"
)

// Strategy maps a Market event into zero or more Signals, with read access
// to the DataHandler for historical windows (injected at construction by
// the caller assembling the Strategy, not by the Engine).
type Strategy interface {
	CalculateSignal(market event.Market) []event.Signal
}

// FillRecorder persists one row per non-rejected Fill. Giving the Engine,
// not the Portfolio, the DB-facing side keeps the ledger itself free of
// I/O: the cache/DB boundary stays at the loader and the Engine's own
// result-collection step, never inside Portfolio or ExecutionHandler.
type FillRecorder interface {
	RecordFill(ctx context.Context, runID string, tick int, symbol, direction string, quantity, fillPrice, commission, realizedPnL, position float64, timestamp int64) error
}

// Engine owns the event queue and the expired-symbols set. It does not own
// the Data, Execution, Portfolio, or Registry it is handed; those are
// constructed and wired by the caller.
type Engine struct {
	Data      *datafeed.Handler
	Registry  *instrument.Registry
	Execution *execution.Handler
	Portfolio *portfolio.Portfolio
	Strategy  Strategy

	// OutputPath, if set, writes a JSON Result report after Run completes.
	OutputPath string

	// RunID and Fills are optional; when Fills is set, every non-rejected
	// Fill is persisted under RunID as it is processed.
	RunID string
	Fills FillRecorder

	expired map[string]bool
}

// Result summarizes a completed replay.
type Result struct {
	MarketTicks    int
	OrdersSent     int
	FillsProcessed int
	RejectedFills  int
	RealizedPnL    float64
	InitialEquity  float64
	FinalEquity    float64
	ReturnPct      float64
	MaxDDPct       float64
	Sharpe         float64
	EquityCurve    []float64
	Details        []TradeDetail
}

// TradeDetail records one processed, non-rejected Fill for analysis.
type TradeDetail struct {
	Tick     int     `json:"tick"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Qty      float64 `json:"qty"`
	Fee      float64 `json:"fee"`
	Realized float64 `json:"realized"`
	Position float64 `json:"position"`
}

// Run drives the replay to completion: while Data.Advance() yields a new
// tick, it enqueues a Market event and drains the queue to empty before
// advancing again.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.Data == nil || e.Registry == nil || e.Execution == nil || e.Portfolio == nil || e.Strategy == nil {
		return nil, fmt.Errorf("backtest: engine not fully configured")
	}
	if e.expired == nil {
		e.expired = make(map[string]bool)
	}

	res := &Result{InitialEquity: e.Portfolio.Cash()}

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}
		if !e.Data.Advance() {
			break
		}
		res.MarketTicks++

		symbols := e.Data.SymbolsAt()
		if len(symbols) == 0 {
			continue
		}
		rep, ok := e.Data.Latest(symbols[0])
		if !ok {
			continue
		}

		queue := []event.Event{event.NewMarket(event.Market{
			DatetimeLocal: rep.DatetimeLocal,
			Timestamp:     rep.Timestamp,
			Symbols:       symbols,
		})}

		for len(queue) > 0 {
			ev := queue[0]
			queue = queue[1:]

			switch ev.Kind {
			case event.KindMarket:
				queue = append(queue, e.handleMarket(*ev.Market)...)
			case event.KindSignal:
				if order := e.Portfolio.ProcessSignalEvent(*ev.Signal); order != nil {
					queue = append(queue, event.NewOrder(*order))
				}
			case event.KindOrder:
				res.OrdersSent++
				if fill := e.Execution.ProcessOrderEvent(*ev.Order); fill != nil {
					queue = append(queue, event.NewFill(*fill))
				}
			case event.KindFill:
				e.handleFill(ctx, res, *ev.Fill)
			}
		}
	}

	res.RealizedPnL = e.Portfolio.RealizedPnL()
	for _, snap := range e.Portfolio.Snapshots() {
		res.EquityCurve = append(res.EquityCurve, snap.Total)
	}
	if len(res.EquityCurve) > 0 {
		res.FinalEquity = res.EquityCurve[len(res.EquityCurve)-1]
	} else {
		res.FinalEquity = res.InitialEquity
	}
	if res.InitialEquity != 0 {
		res.ReturnPct = (res.FinalEquity - res.InitialEquity) / res.InitialEquity * 100
	}
	res.MaxDDPct = maxDrawdownPct(append([]float64{res.InitialEquity}, res.EquityCurve...))
	res.Sharpe = sharpe(res.EquityCurve)

	if e.OutputPath != "" {
		if err := writeReport(e.OutputPath, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// handleMarket runs the fixed per-tick dispatch order: drain pending
// orders into Fills, sweep expired instruments into forced-close Orders,
// mark positions to market, then ask the Strategy for new Signals.
func (e *Engine) handleMarket(mkt event.Market) []event.Event {
	var out []event.Event

	for _, fill := range e.Execution.ProcessPendingOrders() {
		out = append(out, event.NewFill(fill))
	}

	for _, order := range e.sweepExpired(mkt.Timestamp) {
		out = append(out, event.NewOrder(order))
	}

	e.Portfolio.UpdateTimeIndex(mkt.Timestamp)

	for _, sig := range e.Strategy.CalculateSignal(mkt) {
		out = append(out, event.NewSignal(sig))
	}
	return out
}

// sweepExpired closes any instrument that has reached expiry and still
// carries a nonzero position, exactly once per symbol.
func (e *Engine) sweepExpired(currentTS int64) []event.Order {
	var orders []event.Order
	for _, inst := range e.Registry.All() {
		symbol := inst.Symbol()
		if e.expired[symbol] || !inst.IsExpired(currentTS) {
			continue
		}
		e.expired[symbol] = true

		holding, ok := e.Portfolio.GetHolding(symbol)
		if !ok || holding.Quantity == 0 {
			continue
		}
		dir := event.Sell
		if holding.Quantity < 0 {
			dir = event.Buy
		}
		orders = append(orders, event.Order{
			Symbol:      symbol,
			Quantity:    absFloat(holding.Quantity),
			Direction:   dir,
			Timestamp:   currentTS,
			ForcedClose: true,
		})
	}
	return orders
}

func (e *Engine) handleFill(ctx context.Context, res *Result, fill event.Fill) {
	before := e.Portfolio.RealizedPnL()
	e.Portfolio.ProcessFillEvent(fill)
	after := e.Portfolio.RealizedPnL()

	res.FillsProcessed++
	if fill.Rejected {
		res.RejectedFills++
		return
	}

	position := 0.0
	if h, ok := e.Portfolio.GetHolding(fill.Symbol); ok {
		position = h.Quantity
	}
	realized := after - before
	res.Details = append(res.Details, TradeDetail{
		Tick:     res.MarketTicks,
		Symbol:   fill.Symbol,
		Side:     string(fill.Direction),
		Price:    fill.FillPrice,
		Qty:      fill.Quantity,
		Fee:      fill.Commission,
		Realized: realized,
		Position: position,
	})

	if e.Fills != nil {
		if err := e.Fills.RecordFill(ctx, e.RunID, res.MarketTicks, fill.Symbol, string(fill.Direction),
			fill.Quantity, fill.FillPrice, fill.Commission, realized, position, fill.Timestamp); err != nil {
			logx.WithContext(ctx).Errorf("record fill: %v", err)
		}
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
