package marketrule

import "time"

// Futures implements a generic margined-futures rule: daily mark-to-market
// (RequiresDailySettlement), margin sized by MarginRate rather than full
// notional, and no settlement lag on the cash leg itself (settlement_days
// governs physical share delivery, which futures contracts don't have).
// This is not present as a distinct class in the source system, which only
// modeled futures via the Future instrument's multiplier; the rule-level
// split is required once margin and daily settlement are both expressed
// through MarketRule.
type Futures struct {
	Params
}

// NewFutures returns a Futures rule. marginRate is the fraction of notional
// (after the contract multiplier) held as margin, e.g. 0.1 for 10x leverage.
func NewFutures(marginRate float64) *Futures {
	if marginRate <= 0 {
		marginRate = 0.1
	}
	return &Futures{Params{
		MarketNameValue:      "FUTURES",
		Timezone:             "UTC",
		CommissionRate:       0.0002,
		LotSize:              1,
		PriceTick:            0.01,
		Short:                true,
		SettlementDaysN:      0,
		DailySettlement:      true,
		SlippageModel:        SlippageVolumeBased,
		VolumeSlippageFactor: 0.1,
		MarginRate:           marginRate,
	}}
}

// ParamsPtr exposes the embedded Params for in-place override application.
func (r *Futures) ParamsPtr() *Params { return &r.Params }

func (r *Futures) ValidateOrder(_ string, qty, _ float64, _ Direction, _ time.Time) (bool, string) {
	if r.LotSize > 0 {
		lots := qty / r.LotSize
		if lots != float64(int64(lots)) {
			return false, "quantity must be a whole number of contracts"
		}
	}
	return true, ""
}

func (r *Futures) IsTradingTime(time.Time) bool { return true }

// ApplyPriceLimit is a no-op: exchange-specific futures limit-up/limit-down
// bands are not modeled; order-book microstructure is out of scope.
func (r *Futures) ApplyPriceLimit(_ string, price, _ float64, _ Direction) float64 { return price }

func (r *Futures) CalculateCommission(_ string, qty, price float64, _ Direction) float64 {
	return qty * price * r.CommissionRate
}
