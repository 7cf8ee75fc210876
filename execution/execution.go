// Package execution implements C5 ExecutionHandler: the pending-order FIFO
// and the rule-driven fill pipeline (validate, price-limit, normalize,
// slippage, commission).
package execution

import (
	"backtestcore/bar"
	"backtestcore/event"
	"backtestcore/instrument"
)

// LatestBarSource is the read-only view of replayed bars the handler needs
// to price an order: the current bar and the one before it (for
// prev_close). datafeed.Handler satisfies this directly.
type LatestBarSource interface {
	Latest(symbol string) (bar.Bar, bool)
	LatestN(symbol string, n int) []bar.Bar
}

// Handler implements C5. It owns the pending-orders FIFO exclusively; no
// other component may enqueue or drain it.
type Handler struct {
	registry      *instrument.Registry
	bars          LatestBarSource
	pending       []event.Order
	fillOnNextBar bool
}

// NewHandler constructs an ExecutionHandler. fillOnNextBar selects
// next-bar mode (true, the configuration default) or same-bar mode.
func NewHandler(registry *instrument.Registry, bars LatestBarSource, fillOnNextBar bool) *Handler {
	return &Handler{registry: registry, bars: bars, fillOnNextBar: fillOnNextBar}
}

// ProcessOrderEvent handles a single Order event. In next-bar mode it
// enqueues the order and returns nothing; in same-bar mode it executes
// immediately and returns the resulting Fill, if any (an order dropped for
// lack of a latest bar yields no Fill).
func (h *Handler) ProcessOrderEvent(order event.Order) *event.Fill {
	if h.fillOnNextBar {
		h.pending = append(h.pending, order)
		return nil
	}
	fill, ok := h.Execute(order)
	if !ok {
		return nil
	}
	return &fill
}

// ProcessPendingOrders drains the FIFO queue, producing one Fill per
// executable order in enqueue order. Called at the top of each Market tick,
// before the new tick's own orders are queued, so fills never look ahead.
func (h *Handler) ProcessPendingOrders() []event.Fill {
	if len(h.pending) == 0 {
		return nil
	}
	orders := h.pending
	h.pending = nil
	fills := make([]event.Fill, 0, len(orders))
	for _, order := range orders {
		if fill, ok := h.Execute(order); ok {
			fills = append(fills, fill)
		}
	}
	return fills
}

// Execute prices and validates a single order against the latest bar for
// its symbol. ok is false when the order must be
// dropped silently: no latest bar is available for its symbol this tick,
// or the symbol is not in the instrument registry.
func (h *Handler) Execute(order event.Order) (fill event.Fill, ok bool) {
	latest, hasBar := h.bars.Latest(order.Symbol)
	if !hasBar {
		return event.Fill{}, false
	}

	base := latest.Open
	if base == 0 {
		base = latest.Close
	}

	inst, hasInst := h.registry.Get(order.Symbol)
	if !hasInst {
		return event.Fill{}, false
	}
	rule := inst.MarketRule()

	at := timeFromUnix(order.Timestamp)
	if valid, reason := rule.ValidateOrder(order.Symbol, order.Quantity, base, order.Direction, at); !valid {
		return event.Fill{
			Symbol:     order.Symbol,
			Exchange:   rule.MarketName(),
			Quantity:   order.Quantity,
			Direction:  order.Direction,
			FillPrice:  base,
			Timestamp:  order.Timestamp,
			Rejected:   true,
			Reason:     reason,
			Commission: 0,
		}, true
	}

	prevClose := base
	if prior := h.bars.LatestN(order.Symbol, 2); len(prior) == 2 {
		prevClose = prior[0].Close
	}

	price := rule.ApplyPriceLimit(order.Symbol, base, prevClose, order.Direction)
	price = rule.NormalizePrice(price)
	price = rule.CalculateSlippage(order.Symbol, order.Quantity, price, order.Direction, latest.Volume, latest.High, latest.Low)
	price = rule.NormalizePrice(price)

	commission := rule.CalculateCommission(order.Symbol, order.Quantity, price, order.Direction)

	return event.Fill{
		Symbol:     order.Symbol,
		Exchange:   rule.MarketName(),
		Quantity:   order.Quantity,
		Direction:  order.Direction,
		FillPrice:  price,
		Timestamp:  order.Timestamp,
		Rejected:   false,
		Commission: commission,
	}, true
}
