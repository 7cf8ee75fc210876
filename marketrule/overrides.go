package marketrule

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides is the shape of the per-market-rule parameter override file: a
// market-type string (matching Factory's registration keys) to a sparse set
// of Params fields. Any field left nil in the YAML is left at the variant's
// built-in default.
type Overrides struct {
	Markets map[string]Override `yaml:"markets"`
}

// Override carries optional overrides for the tunable fields of Params.
// Pointers distinguish "not set" from "set to zero".
type Override struct {
	CommissionRate       *float64 `yaml:"commission_rate"`
	MinCommission        *float64 `yaml:"min_commission"`
	StampDuty            *float64 `yaml:"stamp_duty"`
	TransferFee          *float64 `yaml:"transfer_fee"`
	LotSize              *float64 `yaml:"lot_size"`
	PriceTick            *float64 `yaml:"price_tick"`
	SlippageModel        *string  `yaml:"slippage_model"`
	FixedSlippageBps     *float64 `yaml:"fixed_slippage_bps"`
	VolumeSlippageFactor *float64 `yaml:"volume_slippage_factor"`
	MarginRate           *float64 `yaml:"margin_rate"`
}

// LoadOverridesFile reads and parses an override file from disk. It is the
// loader function passed to confkit.Section[Overrides].Hydrate.
func LoadOverridesFile(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out Overrides
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyTo mutates p in place, copying every non-nil field from o.
func (o Override) ApplyTo(p *Params) {
	if o.CommissionRate != nil {
		p.CommissionRate = *o.CommissionRate
	}
	if o.MinCommission != nil {
		p.MinCommission = *o.MinCommission
	}
	if o.StampDuty != nil {
		p.StampDuty = *o.StampDuty
	}
	if o.TransferFee != nil {
		p.TransferFee = *o.TransferFee
	}
	if o.LotSize != nil {
		p.LotSize = *o.LotSize
	}
	if o.PriceTick != nil {
		p.PriceTick = *o.PriceTick
	}
	if o.SlippageModel != nil {
		p.SlippageModel = SlippageModel(*o.SlippageModel)
	}
	if o.FixedSlippageBps != nil {
		p.FixedSlippageBps = *o.FixedSlippageBps
	}
	if o.VolumeSlippageFactor != nil {
		p.VolumeSlippageFactor = *o.VolumeSlippageFactor
	}
	if o.MarginRate != nil {
		p.MarginRate = *o.MarginRate
	}
}

// HasParams is implemented by every Rule variant that embeds Params
// directly, letting ApplyOverrides reach the shared fields without a type
// switch over every concrete variant.
type HasParams interface {
	ParamsPtr() *Params
}

// ApplyOverrides applies the override entry keyed by marketType (the same
// string passed to Factory.Create, e.g. "china_a"), if any. It reports
// whether an override was found and applied.
func (ov Overrides) ApplyOverrides(marketType string, rule Rule) bool {
	hp, ok := rule.(HasParams)
	if !ok {
		return false
	}
	override, ok := ov.Markets[marketType]
	if !ok {
		return false
	}
	override.ApplyTo(hp.ParamsPtr())
	return true
}
