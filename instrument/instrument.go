// Package instrument defines the tradable symbols known to a backtest run:
// their market rule, contract multiplier, currency, and expiry semantics.
package instrument

import "backtestcore/marketrule"

// Instrument is the closed capability set shared by every tradable symbol
// variant (Stock, Future, ...). The registry is populated before replay
// begins and is read-only thereafter.
type Instrument interface {
	Symbol() string
	MarketRule() marketrule.Rule
	Currency() string
	// Multiplier converts a per-unit price move into a cash amount
	// (1 for equities, the contract multiplier for futures).
	Multiplier() float64
	// IsExpired reports whether the instrument should be forcibly closed
	// at currentTS (UTC seconds). Stocks never expire.
	IsExpired(currentTS int64) bool
}

// Stock is a cash equity: multiplier fixed to 1, never expires.
type Stock struct {
	symbol   string
	rule     marketrule.Rule
	currency string
}

// NewStock constructs a Stock instrument.
func NewStock(symbol string, rule marketrule.Rule, currency string) *Stock {
	return &Stock{symbol: symbol, rule: rule, currency: currency}
}

func (s *Stock) Symbol() string             { return s.symbol }
func (s *Stock) MarketRule() marketrule.Rule { return s.rule }
func (s *Stock) Currency() string           { return s.currency }
func (s *Stock) Multiplier() float64        { return 1 }
func (s *Stock) IsExpired(int64) bool       { return false }

// Future is a derivatives contract with a multiplier and a hard expiry.
type Future struct {
	symbol     string
	rule       marketrule.Rule
	currency   string
	multiplier float64
	expiryTS   int64
}

// NewFuture constructs a Future instrument. expiryTS is UTC seconds.
func NewFuture(symbol string, rule marketrule.Rule, currency string, multiplier float64, expiryTS int64) *Future {
	return &Future{symbol: symbol, rule: rule, currency: currency, multiplier: multiplier, expiryTS: expiryTS}
}

func (f *Future) Symbol() string             { return f.symbol }
func (f *Future) MarketRule() marketrule.Rule { return f.rule }
func (f *Future) Currency() string           { return f.currency }
func (f *Future) Multiplier() float64        { return f.multiplier }

// IsExpired compares currentTS against the contract's expiry timestamp.
func (f *Future) IsExpired(currentTS int64) bool {
	return currentTS >= f.expiryTS
}
