package portfolio

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
	bars map[string]bar.Bar
}

func (s *stubBars) Latest(symbol string) (bar.Bar, bool) {
	b, ok := s.bars[symbol]
	return b, ok
}

func (s *stubBars) set(symbol string, close float64) {
	if s.bars == nil {
		s.bars = make(map[string]bar.Bar)
	}
	s.bars[symbol] = bar.Bar{Ticker: symbol, Open: close, High: close, Low: close, Close: close, Volume: 1000}
}

func chinaARegistry(t *testing.T) *instrument.Registry {
	t.Helper()
	reg := instrument.NewRegistry()
	require.NoError(t, reg.Register(instrument.NewStock("600000", marketrule.NewChinaA(), "CNY")))
	return reg
}

func TestProcessSignalEvent_LotRejection(t *testing.T) {
	reg := chinaARegistry(t)
	bars := &stubBars{}
	bars.set("600000", 10)
	p := New(reg, bars, 1_000_000)

	order := p.ProcessSignalEvent(event.Signal{Symbol: "600000", SignalType: event.Long, Strength: 150})
	require.NotNil(t, order)
	assert.Equal(t, 100.0, order.Quantity)

	dropped := p.ProcessSignalEvent(event.Signal{Symbol: "600000", SignalType: event.Long, Strength: 50})
	assert.Nil(t, dropped, "quantity normalizes to zero and must be dropped")
}

func TestProcessFillEvent_FlipScenario(t *testing.T) {
	reg := instrument.NewRegistry()
	require.NoError(t, reg.Register(instrument.NewStock("AAA", marketrule.NewUSStock(), "USD")))
	bars := &stubBars{}
	bars.set("AAA", 110)
	p := New(reg, bars, 1_000_000)

	p.ProcessFillEvent(event.Fill{Symbol: "AAA", Quantity: 10, Direction: event.Buy, FillPrice: 100})
	h, ok := p.GetHolding("AAA")
	require.True(t, ok)
	assert.Equal(t, 10.0, h.Quantity)
	assert.Equal(t, 100.0, h.AvgCost)

	p.ProcessFillEvent(event.Fill{Symbol: "AAA", Quantity: 15, Direction: event.Sell, FillPrice: 110})
	h, ok = p.GetHolding("AAA")
	require.True(t, ok)
	assert.Equal(t, -5.0, h.Quantity)
	assert.Equal(t, 110.0, h.AvgCost)
	assert.Equal(t, 100.0, p.RealizedPnL())
}

func TestProcessFillEvent_TPlusOneAvailability(t *testing.T) {
	reg := chinaARegistry(t)
	bars := &stubBars{}
	bars.set("600000", 10)
	p := New(reg, bars, 1_000_000)

	const dayStart int64 = 1_700_000_000
	p.ProcessFillEvent(event.Fill{Symbol: "600000", Quantity: 100, Direction: event.Buy, FillPrice: 10, Timestamp: dayStart})

	h, _ := p.GetHolding("600000")
	assert.Equal(t, 0.0, h.Available, "available must be zero immediately after a T+1 buy")

	p.UpdateTimeIndex(dayStart + 12*3600)
	h, _ = p.GetHolding("600000")
	assert.Equal(t, 0.0, h.Available, "settlement has not matured at +12h")

	order := p.ProcessSignalEvent(event.Signal{Symbol: "600000", SignalType: event.Exit, Timestamp: dayStart + 12*3600})
	assert.Nil(t, order, "a sell before settlement must be refused")

	p.UpdateTimeIndex(dayStart + 26*3600)
	h, _ = p.GetHolding("600000")
	assert.Equal(t, 100.0, h.Available, "settlement matures after 26h on a T+1 market")
}

func TestUpdateTimeIndex_FuturesDailySettlement(t *testing.T) {
	reg := instrument.NewRegistry()
	require.NoError(t, reg.Register(instrument.NewFuture("CU2409", marketrule.NewFutures(0.1), "CNY", 10, 9_999_999_999)))
	bars := &stubBars{}
	p := New(reg, bars, 1_000_000)

	p.ProcessFillEvent(event.Fill{Symbol: "CU2409", Quantity: 2, Direction: event.Buy, FillPrice: 50, Timestamp: 1000})
	cashAfterOpen := p.Cash()

	bars.set("CU2409", 52)
	p.UpdateTimeIndex(2000)
	assert.Equal(t, cashAfterOpen+40, p.Cash())

	bars.set("CU2409", 49)
	p.UpdateTimeIndex(3000)
	assert.Equal(t, cashAfterOpen+40-60, p.Cash())

	netDelta := (cashAfterOpen + 40 - 60) - cashAfterOpen
	assert.Equal(t, -20.0, netDelta)
}

func TestProcessSignalEvent_InsufficientCashDropsOrder(t *testing.T) {
	reg := chinaARegistry(t)
	bars := &stubBars{}
	bars.set("600000", 10_000)
	p := New(reg, bars, 1_000)

	order := p.ProcessSignalEvent(event.Signal{Symbol: "600000", SignalType: event.Long, Strength: 100})
	assert.Nil(t, order)
}
