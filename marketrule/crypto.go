package marketrule

import "time"

// Crypto implements 24/7 crypto-market rules: flat taker-style commission,
// no lot size, no price limit, instant (T+0) settlement.
type Crypto struct {
	Params
}

// NewCrypto returns a Crypto rule with the source system's defaults.
func NewCrypto() *Crypto {
	return &Crypto{Params{
		MarketNameValue:      "CRYPTO",
		Timezone:             "UTC",
		CommissionRate:       0.001,
		LotSize:              0, // fractional quantities allowed
		PriceTick:            0.01,
		Short:                true,
		SettlementDaysN:      0,
		SlippageModel:        SlippageVolumeBased,
		VolumeSlippageFactor: 0.20,
		MarginRate:           1,
	}}
}

// ParamsPtr exposes the embedded Params for in-place override application.
func (r *Crypto) ParamsPtr() *Params { return &r.Params }

func (r *Crypto) ValidateOrder(_ string, _, _ float64, _ Direction, _ time.Time) (bool, string) {
	return true, ""
}

func (r *Crypto) IsTradingTime(time.Time) bool { return true }

func (r *Crypto) ApplyPriceLimit(_ string, price, _ float64, _ Direction) float64 { return price }

func (r *Crypto) CalculateCommission(_ string, qty, price float64, _ Direction) float64 {
	return qty * price * r.CommissionRate
}
