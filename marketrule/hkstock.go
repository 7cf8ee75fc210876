package marketrule

import "time"

// HKStock implements Hong Kong Stock Exchange rules: commission + stamp
// duty + transfer fee + a small trading fee, T+2 settlement, lot-size
// trading, no daily price limit.
type HKStock struct {
	Params
	MorningStart, MorningEnd     time.Duration
	AfternoonStart, AfternoonEnd time.Duration
	TradingFeeRate               float64
}

// NewHKStock returns an HKStock rule with the source system's defaults.
func NewHKStock() *HKStock {
	return &HKStock{
		Params: Params{
			MarketNameValue:      "HK_STOCK",
			Timezone:             "Asia/Hong_Kong",
			CommissionRate:       0.0025,
			MinCommission:        100.0,
			StampDuty:            0.0013,
			TransferFee:          0.00002,
			LotSize:              100,
			PriceTick:            0.01,
			Short:                true,
			SettlementDaysN:      2,
			SlippageModel:        SlippageVolumeBased,
			VolumeSlippageFactor: 0.10,
			MarginRate:           1,
		},
		MorningStart:   9*time.Hour + 30*time.Minute,
		MorningEnd:     12 * time.Hour,
		AfternoonStart: 13 * time.Hour,
		AfternoonEnd:   16 * time.Hour,
		TradingFeeRate: 0.00005,
	}
}

// ParamsPtr exposes the embedded Params for in-place override application.
func (r *HKStock) ParamsPtr() *Params { return &r.Params }

func (r *HKStock) ValidateOrder(_ string, qty, _ float64, _ Direction, at time.Time) (bool, string) {
	if r.LotSize > 0 {
		lots := qty / r.LotSize
		if lots != float64(int64(lots)) {
			return false, "quantity must be a multiple of the lot size"
		}
	}
	if !r.IsTradingTime(at) {
		return false, "outside trading hours"
	}
	return true, ""
}

func (r *HKStock) IsTradingTime(at time.Time) bool {
	local, ok := toLocal(at, r.Timezone)
	if !ok {
		return false
	}
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	offset := sinceMidnight(local)
	morning := offset >= r.MorningStart && offset <= r.MorningEnd
	afternoon := offset >= r.AfternoonStart && offset <= r.AfternoonEnd
	return morning || afternoon
}

// ApplyPriceLimit is a no-op: HK has no daily price limit.
func (r *HKStock) ApplyPriceLimit(_ string, price, _ float64, _ Direction) float64 {
	return price
}

func (r *HKStock) CalculateCommission(_ string, qty, price float64, _ Direction) float64 {
	tradeValue := qty * price
	commission := tradeValue * r.CommissionRate
	if commission < r.MinCommission {
		commission = r.MinCommission
	}
	stampDuty := tradeValue * r.StampDuty
	transferFee := tradeValue * r.TransferFee
	tradingFee := tradeValue * r.TradingFeeRate
	return commission + stampDuty + transferFee + tradingFee
}
