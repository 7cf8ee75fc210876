package portfolio

import (
	"backtestcore/bar"
	"backtestcore/event"
	"backtestcore/instrument"
)

// LatestBarSource is the read-only bar view the Portfolio needs: the latest
// bar per symbol, for pricing signals and marking positions. Satisfied
// directly by datafeed.Handler.
type LatestBarSource interface {
	Latest(symbol string) (bar.Bar, bool)
}

// Portfolio implements C6. It exclusively owns the holdings map, cash,
// margin-used ledger, pending settlements, and the snapshot series.
type Portfolio struct {
	registry    *instrument.Registry
	bars        LatestBarSource
	cash        float64
	holdings    map[string]*Holding
	marginUsed  map[string]float64
	pending     []PendingSettlement
	snapshots   []HoldingSnapshot
	realizedPnL float64
}

// New constructs a Portfolio seeded with initialCapital.
func New(registry *instrument.Registry, bars LatestBarSource, initialCapital float64) *Portfolio {
	return &Portfolio{
		registry:   registry,
		bars:       bars,
		cash:       initialCapital,
		holdings:   make(map[string]*Holding),
		marginUsed: make(map[string]float64),
	}
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// GetHolding returns the holding record for symbol, if any.
func (p *Portfolio) GetHolding(symbol string) (Holding, bool) {
	h, ok := p.holdings[symbol]
	if !ok {
		return Holding{}, false
	}
	return *h, true
}

// Snapshots returns the accumulated mark-to-market series.
func (p *Portfolio) Snapshots() []HoldingSnapshot { return p.snapshots }

// RealizedPnL returns the cumulative realized P&L across all reduce and
// flip fills processed so far.
func (p *Portfolio) RealizedPnL() float64 { return p.realizedPnL }

func (p *Portfolio) holdingOrZero(symbol string) Holding {
	if h, ok := p.holdings[symbol]; ok {
		return *h
	}
	return Holding{Symbol: symbol}
}

// ProcessSignalEvent converts a Signal into an Order, or drops it and
// returns nil.
func (p *Portfolio) ProcessSignalEvent(sig event.Signal) *event.Order {
	inst, ok := p.registry.Get(sig.Symbol)
	if !ok {
		return nil
	}
	rule := inst.MarketRule()
	current := p.holdingOrZero(sig.Symbol)

	var dir event.Direction
	var rawQty float64

	switch sig.SignalType {
	case event.Long:
		dir = event.Buy
		rawQty = sig.Strength
	case event.Short:
		if !rule.AllowShort() {
			return nil
		}
		dir = event.Sell
		rawQty = sig.Strength
	case event.Exit:
		if current.Quantity == 0 {
			return nil
		}
		if current.Quantity > 0 {
			dir = event.Sell
		} else {
			dir = event.Buy
		}
		rawQty = absf(current.Quantity)
	default:
		return nil
	}

	qty := rule.NormalizeQuantity(rawQty)
	if qty <= 0 {
		return nil
	}

	latest, hasBar := p.bars.Latest(sig.Symbol)
	if !hasBar {
		return nil
	}
	margin := rule.CalculateMargin(qty, latest.Close, inst.Multiplier())
	if margin > p.cash {
		return nil
	}

	if dir == event.Sell && rule.SettlementDays() > 0 {
		if current.Available < qty {
			return nil
		}
	}

	return &event.Order{
		Symbol:    sig.Symbol,
		Quantity:  qty,
		Direction: dir,
		Timestamp: sig.Timestamp,
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
