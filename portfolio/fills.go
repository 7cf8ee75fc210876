package portfolio

import (
	"backtestcore/event"
	"backtestcore/marketrule"
)

// ProcessFillEvent updates the ledger for a single Fill across the four
// open/add/reduce/flip cases. Rejected fills are ignored.
func (p *Portfolio) ProcessFillEvent(fill event.Fill) {
	if fill.Rejected {
		return
	}

	inst, ok := p.registry.Get(fill.Symbol)
	if !ok {
		return
	}
	rule := inst.MarketRule()
	multiplier := inst.Multiplier()

	h, exists := p.holdings[fill.Symbol]
	if !exists {
		h = &Holding{Symbol: fill.Symbol}
		p.holdings[fill.Symbol] = h
	}

	q := h.Quantity
	var dq float64
	if fill.Direction == event.Buy {
		dq = fill.Quantity
	} else {
		dq = -fill.Quantity
	}

	cps := 0.0
	if fill.Quantity != 0 {
		cps = fill.Commission / fill.Quantity
	}

	switch {
	case q == 0:
		openLeg(h, dq, fill.FillPrice, cps)
	case q*dq > 0:
		addLeg(h, dq, fill.FillPrice, cps)
	case absf(q) > absf(dq):
		p.realizedPnL += reduceLeg(h, q, dq, fill.FillPrice, cps, multiplier)
	default:
		// Flip: reduce the existing leg fully, realizing P&L on it, then
		// open the remainder at the fill price.
		p.realizedPnL += reduceLeg(h, q, -q, fill.FillPrice, cps, multiplier)
		remainder := dq + q
		if remainder != 0 {
			openLeg(h, remainder, fill.FillPrice, cps)
		}
	}

	p.applyCashAndMargin(h, rule, multiplier, fill, q)
}

// openLeg sets the holding to a fresh position of size dq at price, folding
// per-share commission into the cost basis.
func openLeg(h *Holding, dq, price, cps float64) {
	h.Quantity = dq
	h.AvgCost = price + signOf(dq)*cps
}

// addLeg folds an additional same-direction leg into the weighted average
// cost.
func addLeg(h *Holding, dq, price, cps float64) {
	adjPrice := price + signOf(dq)*cps
	q := h.Quantity
	h.AvgCost = (h.AvgCost*absf(q) + adjPrice*absf(dq)) / (absf(q) + absf(dq))
	h.Quantity = q + dq
}

// reduceLeg shrinks the holding toward zero by |dq| and returns the P&L
// realized on the closed portion. avg_cost is left unchanged; the caller
// handles any remaining open leg separately (the flip case).
func reduceLeg(h *Holding, q, dq, price, cps, multiplier float64) float64 {
	var realized float64
	if q > 0 {
		realized = absf(dq) * ((price - cps) - h.AvgCost) * multiplier
	} else {
		realized = absf(dq) * (h.AvgCost - (price + cps)) * multiplier
	}
	h.Quantity = q + dq
	return realized
}

func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// applyCashAndMargin performs the cash/margin bookkeeping and availability
// update for one fill, independent of how the quantity fold above
// classified it. qBefore is the holding quantity before this fill.
func (p *Portfolio) applyCashAndMargin(h *Holding, rule marketrule.Rule, multiplier float64, fill event.Fill, qBefore float64) {
	if fill.Direction == event.Buy {
		margin := rule.CalculateMargin(fill.Quantity, fill.FillPrice, multiplier)
		p.cash -= margin + fill.Commission
		p.marginUsed[fill.Symbol] += margin
		h.LastSettlePrice = fill.FillPrice
		h.HasSettlePrice = true
	} else {
		qBeforeAbs := absf(qBefore)
		releaseRatio := 0.0
		if qBeforeAbs > 0 {
			releaseRatio = fill.Quantity / qBeforeAbs
		}
		released := p.marginUsed[fill.Symbol] * releaseRatio
		p.cash += released - fill.Commission
		p.marginUsed[fill.Symbol] -= released
	}

	if rule.SettlementDays() <= 0 {
		h.Available = h.Quantity
		return
	}

	if fill.Direction == event.Buy {
		p.pending = append(p.pending, PendingSettlement{
			Symbol:         fill.Symbol,
			Quantity:       fill.Quantity,
			BuyTimestamp:   fill.Timestamp,
			SettlementDays: rule.SettlementDays(),
		})
	} else {
		h.Available -= fill.Quantity
	}
}
