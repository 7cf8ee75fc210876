package marketrule

import "math"

// Params carries the common tunable fields every market variant embeds.
// Concrete variants expose these via confkit.Section overrides loaded from
// the market-rule YAML file (see internal/config).
type Params struct {
	MarketNameValue  string
	Timezone         string
	CommissionRate   float64
	MinCommission    float64
	StampDuty        float64
	TransferFee      float64
	LotSize          float64
	PriceTick        float64
	Short            bool
	SettlementDaysN  int
	DailySettlement  bool

	SlippageModel        SlippageModel
	FixedSlippageBps     float64
	VolumeSlippageFactor float64

	// MarginRate scales notional into required margin. 1.0 for cash
	// equities (margin == notional); futures set this below 1.
	MarginRate float64
}

func (p Params) MarketName() string          { return p.MarketNameValue }
func (p Params) SettlementDays() int         { return p.SettlementDaysN }
func (p Params) RequiresDailySettlement() bool { return p.DailySettlement }
func (p Params) AllowShort() bool            { return p.Short }

// NormalizeQuantity floors qty to the nearest LotSize multiple.
func (p Params) NormalizeQuantity(qty float64) float64 {
	if p.LotSize <= 0 {
		return qty
	}
	return math.Floor(qty/p.LotSize) * p.LotSize
}

// NormalizePrice rounds price to the nearest PriceTick multiple.
func (p Params) NormalizePrice(price float64) float64 {
	if p.PriceTick <= 0 {
		return price
	}
	return math.Round(price/p.PriceTick) * p.PriceTick
}

// CalculateSlippage implements the four slippage models shared by every
// market variant. Concrete Rule implementations embed Params and expose
// this method directly, matching the source's MarketRules base class where
// slippage was a concrete (non-abstract) method.
func (p Params) CalculateSlippage(_ string, qty, price float64, dir Direction, barVolume, barHigh, barLow float64) float64 {
	switch p.SlippageModel {
	case "", SlippageNone:
		return price
	case SlippageFixed:
		pct := p.FixedSlippageBps / 10000.0
		return shift(price, pct, dir)
	case SlippageVolumeBased:
		var pct float64
		if barVolume <= 0 {
			pct = 0.001
		} else {
			orderVolumePct := qty / barVolume
			var spreadPct float64
			if price > 0 {
				spreadPct = (barHigh - barLow) / price
			}
			pct = p.VolumeSlippageFactor * math.Sqrt(orderVolumePct) * spreadPct
			if pct > 0.01 {
				pct = 0.01
			}
		}
		return shift(price, pct, dir)
	case SlippageSpreadBased:
		var spreadPct float64
		if price > 0 {
			spreadPct = (barHigh - barLow) / price
		}
		return shift(price, spreadPct*0.5, dir)
	default:
		return price
	}
}

func shift(price, pct float64, dir Direction) float64 {
	if dir == Buy {
		return price * (1 + pct)
	}
	return price * (1 - pct)
}

// CalculateMargin returns |qty| * price * multiplier * MarginRate, with a
// non-positive MarginRate treated as 1. Cash equities pass multiplier=1 and
// keep MarginRate 1, so this reduces to plain notional; Futures sets
// MarginRate below 1.
func (p Params) CalculateMargin(qty, price, multiplier float64) float64 {
	rate := p.MarginRate
	if rate <= 0 {
		rate = 1
	}
	return math.Abs(qty) * price * multiplier * rate
}
