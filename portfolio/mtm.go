package portfolio

import (
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"
)

const secondsPerDay = 86400

// UpdateTimeIndex performs one mark-to-market pass at currentTS (UTC
// seconds): mature pending settlements, then push a HoldingSnapshot built
// from the latest bar of every symbol with a nonzero position. Futures-like
// instruments (RequiresDailySettlement) realize their daily P&L into cash
// before the snapshot is taken.
func (p *Portfolio) UpdateTimeIndex(currentTS int64) {
	p.matureSettlements(currentTS)

	snap := HoldingSnapshot{
		Timestamp: currentTS,
		Values:    make(map[string]float64),
	}

	for symbol, h := range p.holdings {
		if h.Quantity == 0 {
			continue
		}
		inst, ok := p.registry.Get(symbol)
		if !ok {
			continue
		}
		latest, hasBar := p.bars.Latest(symbol)
		if !hasBar {
			continue
		}
		rule := inst.MarketRule()
		multiplier := inst.Multiplier()
		close := latest.Close

		baseline := h.AvgCost
		if rule.RequiresDailySettlement() {
			if h.HasSettlePrice {
				mtm := (close - h.LastSettlePrice) * h.Quantity * multiplier
				p.cash += mtm
			}
			h.LastSettlePrice = close
			h.HasSettlePrice = true
			baseline = h.LastSettlePrice
		}

		marketValue := h.Quantity * close * multiplier
		unrealized := (close - baseline) * h.Quantity * multiplier

		snap.Values[symbol+"_value"] = marketValue
		snap.Values[symbol+"_pnl"] = unrealized
		snap.Total += marketValue
	}

	snap.Cash = p.cash
	snap.Total += p.cash
	p.snapshots = append(p.snapshots, snap)
}

// matureSettlements advances available for every pending BUY leg whose
// settlement window has elapsed, and drops malformed entries rather than
// aborting the tick.
func (p *Portfolio) matureSettlements(currentTS int64) {
	var remaining []PendingSettlement
	for _, entry := range p.pending {
		if entry.SettlementDays <= 0 || entry.BuyTimestamp <= 0 {
			logx.Errorf("portfolio: skipping malformed pending settlement for %s: %s", entry.Symbol, malformedReason(entry))
			continue
		}
		maturesAt := entry.BuyTimestamp + int64(entry.SettlementDays)*secondsPerDay
		if currentTS >= maturesAt {
			if h, ok := p.holdings[entry.Symbol]; ok {
				h.Available += entry.Quantity
			}
			continue
		}
		remaining = append(remaining, entry)
	}
	p.pending = remaining
}

func malformedReason(entry PendingSettlement) string {
	if entry.SettlementDays <= 0 {
		return fmt.Sprintf("non-positive settlement_days=%d", entry.SettlementDays)
	}
	return fmt.Sprintf("non-positive buy_timestamp=%d", entry.BuyTimestamp)
}
