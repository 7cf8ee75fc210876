// Package portfolio implements C6 Portfolio: the position ledger, cash and
// margin accounting, T+N settlement availability, and mark-to-market
// snapshotting. Portfolio is the sole owner of holdings, cash, pending
// settlements, and the snapshot series; no other component mutates them.
package portfolio

// Holding is one symbol's position record. Quantity is signed (negative for
// a short). Available equals Quantity for a T+0 market immediately after
// every fill, so it is negative for a T+0 short. For a T+N market it grows
// only as pending settlements mature and shrinks by each SELL fill.
type Holding struct {
	Symbol          string
	Quantity        float64
	AvgCost         float64
	Available       float64
	LastSettlePrice float64
	HasSettlePrice  bool
}

// PendingSettlement is a single BUY leg awaiting T+N maturation before its
// quantity becomes sellable.
type PendingSettlement struct {
	Symbol         string
	Quantity       float64
	BuyTimestamp   int64 // UTC seconds
	SettlementDays int
}

// HoldingSnapshot is one mark-to-market observation, pushed once per Market
// tick. Values is populated with "<symbol>_value" and "<symbol>_pnl" for
// every symbol held at the time of the snapshot.
type HoldingSnapshot struct {
	Timestamp     int64
	Cash          float64
	Total         float64
	UnrealizedPnL float64
	Values        map[string]float64
}
