package marketrule

import (
	"fmt"
	"strings"
	"time"
)

// ChinaA implements Shanghai/Shenzhen A-share rules: T+1 settlement, 10%
// daily price limit (20% for STAR/ChiNext, 5% for ST names), lot-size-100
// trading, and no short selling for regular accounts.
type ChinaA struct {
	Params
	MorningStart, MorningEnd     time.Duration // offset from local midnight
	AfternoonStart, AfternoonEnd time.Duration
}

// NewChinaA returns a ChinaA rule with the source system's defaults.
func NewChinaA() *ChinaA {
	return &ChinaA{
		Params: Params{
			MarketNameValue:      "CHINA_A",
			Timezone:             "Asia/Shanghai",
			CommissionRate:       0.0003,
			MinCommission:        5.0,
			StampDuty:            0.001,
			TransferFee:          0.00002,
			LotSize:              100,
			PriceTick:            0.01,
			Short:                false,
			SettlementDaysN:      1,
			SlippageModel:        SlippageVolumeBased,
			VolumeSlippageFactor: 0.15,
			MarginRate:           1,
		},
		MorningStart:   9*time.Hour + 30*time.Minute,
		MorningEnd:     11*time.Hour + 30*time.Minute,
		AfternoonStart: 13 * time.Hour,
		AfternoonEnd:   15 * time.Hour,
	}
}

// ParamsPtr exposes the embedded Params for in-place override application.
func (r *ChinaA) ParamsPtr() *Params { return &r.Params }

func (r *ChinaA) ValidateOrder(symbol string, qty, _ float64, dir Direction, at time.Time) (bool, string) {
	if dir == Sell && !r.AllowShort() {
		// Position sufficiency is enforced by the portfolio, not the rule.
	}
	if r.LotSize > 0 {
		lots := qty / r.LotSize
		if lots != float64(int64(lots)) {
			return false, fmt.Sprintf("quantity must be a multiple of %d shares", int64(r.LotSize))
		}
	}
	if !r.IsTradingTime(at) {
		return false, "outside trading hours"
	}
	return true, ""
}

func (r *ChinaA) IsTradingTime(at time.Time) bool {
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

func (r *ChinaA) ApplyPriceLimit(symbol string, price, prevClose float64, _ Direction) float64 {
	if prevClose <= 0 {
		return price
	}
	limit := 0.10
	switch {
	case strings.HasPrefix(symbol, "ST") || strings.HasPrefix(symbol, "*ST"):
		limit = 0.05
	case strings.HasPrefix(symbol, "688") || strings.HasPrefix(symbol, "300"):
		limit = 0.20
	}
	max := prevClose * (1 + limit)
	min := prevClose * (1 - limit)
	if price > max {
		return max
	}
	if price < min {
		return min
	}
	return price
}

func (r *ChinaA) CalculateCommission(_ string, qty, price float64, dir Direction) float64 {
	tradeValue := qty * price
	commission := tradeValue * r.CommissionRate
	if commission < r.MinCommission {
		commission = r.MinCommission
	}
	var stampDuty float64
	if dir == Sell {
		stampDuty = tradeValue * r.StampDuty
	}
	transferFee := tradeValue * r.TransferFee
	return commission + stampDuty + transferFee
}
