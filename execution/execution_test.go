package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtestcore/bar"
	"backtestcore/event"
	"backtestcore/instrument"
	"backtestcore/marketrule"
)

type stubBars struct {
	latest map[string]bar.Bar
	prior  map[string][]bar.Bar
}

func (s stubBars) Latest(symbol string) (bar.Bar, bool) {
	b, ok := s.latest[symbol]
	return b, ok
}

func (s stubBars) LatestN(symbol string, n int) []bar.Bar {
	bars := s.prior[symbol]
	if len(bars) < n {
		return nil
	}
	return bars[len(bars)-n:]
}

func newRegistry(t *testing.T) *instrument.Registry {
	t.Helper()
	reg := instrument.NewRegistry()
	require.NoError(t, reg.Register(instrument.NewStock("600000", marketrule.NewChinaA(), "CNY")))
	return reg
}

func TestExecute_NoLatestBar_DropsSilently(t *testing.T) {
	reg := newRegistry(t)
	h := NewHandler(reg, stubBars{latest: map[string]bar.Bar{}}, true)
	_, ok := h.Execute(event.Order{Symbol: "600000", Quantity: 100, Direction: event.Buy})
	assert.False(t, ok)
}

func TestExecute_RejectedOrder_ZeroCommission(t *testing.T) {
	reg := instrument.NewRegistry()
	require.NoError(t, reg.Register(instrument.NewStock("600000", marketrule.NewChinaA(), "CNY")))
	bars := stubBars{latest: map[string]bar.Bar{
		"600000": {Ticker: "600000", Timestamp: 1, Open: 10, High: 10.5, Low: 9.5, Close: 10.2, Volume: 1000},
	}}
	h := NewHandler(reg, bars, true)
	fill, ok := h.Execute(event.Order{Symbol: "600000", Quantity: 150, Direction: event.Buy, Timestamp: 1})
	require.True(t, ok)
	assert.True(t, fill.Rejected)
	assert.Zero(t, fill.Commission)
}

func TestProcessPendingOrders_FIFO(t *testing.T) {
	reg := instrument.NewRegistry()
	rule := marketrule.NewCrypto()
	require.NoError(t, reg.Register(instrument.NewStock("BTC", rule, "USD")))
	bars := stubBars{latest: map[string]bar.Bar{
		"BTC": {Ticker: "BTC", Timestamp: 10, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10000},
	}}
	h := NewHandler(reg, bars, true)

	h.ProcessOrderEvent(event.Order{Symbol: "BTC", Quantity: 1, Direction: event.Buy, Timestamp: 10})
	h.ProcessOrderEvent(event.Order{Symbol: "BTC", Quantity: 2, Direction: event.Sell, Timestamp: 10})

	fills := h.ProcessPendingOrders()
	require.Len(t, fills, 2)
	assert.Equal(t, event.Buy, fills[0].Direction)
	assert.Equal(t, event.Sell, fills[1].Direction)
	assert.Empty(t, h.ProcessPendingOrders(), "queue must be empty after draining")
}
