package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtestcore/bar"
	"backtestcore/datafeed"
	"backtestcore/event"
	"backtestcore/execution"
	"backtestcore/instrument"
	"backtestcore/marketrule"
	"backtestcore/portfolio"
)

// buyOnceStrategy emits a single LONG signal the first time it sees the
// symbol and never again, so the engine test exercises exactly one
// signal -> order -> fill chain without needing a real indicator.
type buyOnceStrategy struct {
	symbol string
	fired  bool
}

func (s *buyOnceStrategy) CalculateSignal(mkt event.Market) []event.Signal {
	if s.fired {
		return nil
	}
	for _, sym := range mkt.Symbols {
		if sym == s.symbol {
			s.fired = true
			return []event.Signal{{Symbol: sym, Timestamp: mkt.Timestamp, SignalType: event.Long, Strength: 1}}
		}
	}
	return nil
}

func mkbar(ticker string, ts int64, open, close float64) bar.Bar {
	return bar.Bar{
		Ticker: ticker, Timestamp: ts, Frequency: bar.Freq1d,
		Open: open, High: open + 1, Low: open - 1, Close: close, Volume: 10000,
	}
}

func TestEngine_NoLookAhead_FillUsesNextBarOpen(t *testing.T) {
	reg := instrument.NewRegistry()
	require.NoError(t, reg.Register(instrument.NewStock("BTC", marketrule.NewCrypto(), "USD")))

	bars := map[string][]bar.Bar{
		"BTC": {
			mkbar("BTC", 0, 100, 101),
			mkbar("BTC", 86400, 105, 106),
			mkbar("BTC", 172800, 110, 111),
		},
	}
	data := datafeed.NewHandler([]string{"BTC"}, bars)
	pf := portfolio.New(reg, data, 1_000_000)
	exec := execution.NewHandler(reg, data, true)
	strat := &buyOnceStrategy{symbol: "BTC"}

	eng := &Engine{Data: data, Registry: reg, Execution: exec, Portfolio: pf, Strategy: strat}
	res, err := eng.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Details, 1)
	// The LONG signal fires while looking at tick 0's bar; in next-bar mode
	// the order executes against tick 1's open (105), never tick 0's (100).
	assert.Equal(t, 105.0, res.Details[0].Price)
	assert.Equal(t, 3, res.MarketTicks)
}

func TestEngine_ExpirationSweep_ClosesFuture(t *testing.T) {
	reg := instrument.NewRegistry()
	require.NoError(t, reg.Register(instrument.NewFuture("CU2409", marketrule.NewFutures(0.1), "CNY", 10, 172800)))

	bars := map[string][]bar.Bar{
		"CU2409": {
			mkbar("CU2409", 0, 50, 50),
			mkbar("CU2409", 86400, 52, 52),
			mkbar("CU2409", 172800, 49, 49),
		},
	}
	data := datafeed.NewHandler([]string{"CU2409"}, bars)
	pf := portfolio.New(reg, data, 1_000_000)
	// Same-bar execution so the forced-close order emitted on the last
	// available tick actually fills within this short fixture.
	exec := execution.NewHandler(reg, data, false)
	strat := &buyOnceStrategy{symbol: "CU2409"}

	eng := &Engine{Data: data, Registry: reg, Execution: exec, Portfolio: pf, Strategy: strat}
	_, err := eng.Run(context.Background())
	require.NoError(t, err)

	h, ok := pf.GetHolding("CU2409")
	require.True(t, ok)
	assert.Equal(t, 0.0, h.Quantity, "expired future must be forcibly closed")
}
