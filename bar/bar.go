// Package bar defines the OHLCV candle type and the frequency alphabet used
// throughout the backtester for gap arithmetic and aggregation.
package bar

import "fmt"

// Frequency is a symbolic bar duration (1m, 5m, 1h, 1d, ...).
type Frequency string

const (
	Freq1m  Frequency = "1m"
	Freq3m  Frequency = "3m"
	Freq5m  Frequency = "5m"
	Freq15m Frequency = "15m"
	Freq30m Frequency = "30m"
	Freq1h  Frequency = "1h"
	Freq2h  Frequency = "2h"
	Freq4h  Frequency = "4h"
	Freq6h  Frequency = "6h"
	Freq8h  Frequency = "8h"
	Freq12h Frequency = "12h"
	Freq1d  Frequency = "1d"
	Freq3d  Frequency = "3d"
	Freq1w  Frequency = "1w"
	Freq1M  Frequency = "1M"
)

// secondsTable maps the supported frequency alphabet to its seconds count.
// Month is treated as 30 days and week as 7 days for gap arithmetic.
var secondsTable = map[Frequency]int64{
	Freq1m:  60,
	Freq3m:  180,
	Freq5m:  300,
	Freq15m: 900,
	Freq30m: 1800,
	Freq1h:  3600,
	Freq2h:  7200,
	Freq4h:  14400,
	Freq6h:  21600,
	Freq8h:  28800,
	Freq12h: 43200,
	Freq1d:  86400,
	Freq3d:  259200,
	Freq1w:  604800,
	Freq1M:  2592000,
}

// Supported reports whether f is part of the known frequency alphabet.
func Supported(f Frequency) bool {
	_, ok := secondsTable[f]
	return ok
}

// Seconds returns the duration of f in seconds. It panics if f is not part
// of the supported alphabet; callers must check Supported first.
func Seconds(f Frequency) int64 {
	s, ok := secondsTable[f]
	if !ok {
		panic(fmt.Sprintf("bar: unsupported frequency %q", f))
	}
	return s
}

// All returns every frequency in the supported alphabet, ascending by
// duration. Useful for best-interval selection.
func All() []Frequency {
	ordered := []Frequency{
		Freq1m, Freq3m, Freq5m, Freq15m, Freq30m,
		Freq1h, Freq2h, Freq4h, Freq6h, Freq8h, Freq12h,
		Freq1d, Freq3d, Freq1w, Freq1M,
	}
	return ordered
}

// Bar is a single OHLCV candle. After validation either all of OHLCV are
// populated and consistent, or all five are zero-valued and Invalid is
// true: an "invalidated" bar kept as a time-index placeholder.
type Bar struct {
	Ticker    string
	Timestamp int64 // UTC seconds
	Frequency Frequency
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Source    string
	Invalid   bool

	// DatetimeLocal is attached at I/O boundaries only (e.g. DataLoader
	// responses); it is never used internally for ordering or arithmetic.
	DatetimeLocal string
}

// Valid reports whether the OHLCV invariants from the data model hold:
// low <= open <= high, low <= close <= high, low <= high, OHLC > 0,
// volume >= 0.
func (b Bar) Valid() bool {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return false
	}
	if b.Volume < 0 {
		return false
	}
	if b.High < b.Low {
		return false
	}
	if b.Open < b.Low || b.Open > b.High {
		return false
	}
	if b.Close < b.Low || b.Close > b.High {
		return false
	}
	return true
}

// Invalidate clears OHLCV, marking the bar a placeholder. Ticker, Timestamp,
// Frequency, and Source are preserved so the row still occupies its slot in
// the time index.
func (b *Bar) Invalidate() {
	b.Open, b.High, b.Low, b.Close, b.Volume = 0, 0, 0, 0, 0
	b.Invalid = true
}
