package marketrule

import "time"

// USStock implements NYSE/NASDAQ-style rules: zero commission, T+2
// settlement, no daily price limit, 9:30-16:00 ET trading hours.
type USStock struct {
	Params
	MarketOpen, MarketClose time.Duration
}

// NewUSStock returns a USStock rule with the source system's defaults.
func NewUSStock() *USStock {
	return &USStock{
		Params: Params{
			MarketNameValue:      "US_STOCK",
			Timezone:             "America/New_York",
			CommissionRate:       0.0,
			MinCommission:        0.0,
			LotSize:              1,
			PriceTick:            0.01,
			Short:                true,
			SettlementDaysN:      2,
			SlippageModel:        SlippageVolumeBased,
			VolumeSlippageFactor: 0.05,
			MarginRate:           1,
		},
		MarketOpen:  9*time.Hour + 30*time.Minute,
		MarketClose: 16 * time.Hour,
	}
}

// ParamsPtr exposes the embedded Params for in-place override application.
func (r *USStock) ParamsPtr() *Params { return &r.Params }

func (r *USStock) ValidateOrder(_ string, _, _ float64, _ Direction, at time.Time) (bool, string) {
	if !r.IsTradingTime(at) {
		return false, "outside trading hours"
	}
	return true, ""
}

func (r *USStock) IsTradingTime(at time.Time) bool {
	local, ok := toLocal(at, r.Timezone)
	if !ok {
		return false
	}
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	offset := sinceMidnight(local)
	return offset >= r.MarketOpen && offset <= r.MarketClose
}

// ApplyPriceLimit is a no-op: US equities have circuit breakers, not daily
// price limits, and the source system does not model them in backtests.
func (r *USStock) ApplyPriceLimit(_ string, price, _ float64, _ Direction) float64 {
	return price
}

func (r *USStock) CalculateCommission(_ string, qty, price float64, _ Direction) float64 {
	tradeValue := qty * price
	commission := tradeValue * r.CommissionRate
	if commission < r.MinCommission {
		commission = r.MinCommission
	}
	return commission
}
