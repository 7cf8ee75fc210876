package datafeed

import "backtestcore/bar"

// Handler owns, per symbol, an immutable ordered buffer of bars and a
// monotonically advancing cursor. It implements C2 DataHandler from the
// spec: deterministic bar-by-bar replay with strict latest/latest-N
// queries.
type Handler struct {
	symbols []string
	buffers map[string][]bar.Bar // full, immutable, sorted by timestamp
	visible map[string][]bar.Bar // bars revealed so far, appended by Advance
	index   int
}

// NewHandler builds a Handler from pre-fetched bars. bars maps symbol to its
// full ascending-timestamp series (as produced by Loader.GetHistoricalData).
func NewHandler(symbols []string, bars map[string][]bar.Bar) *Handler {
	h := &Handler{
		symbols: append([]string(nil), symbols...),
		buffers: make(map[string][]bar.Bar, len(symbols)),
		visible: make(map[string][]bar.Bar, len(symbols)),
	}
	for _, sym := range symbols {
		h.buffers[sym] = bars[sym]
		h.visible[sym] = nil
	}
	return h
}

// Advance reveals the bar at the current cursor for every symbol that has
// one, then increments the cursor if at least one symbol advanced. It
// returns false once no symbol has any more bars, ending replay.
func (h *Handler) Advance() bool {
	hasData := false
	for _, sym := range h.symbols {
		buf := h.buffers[sym]
		if len(buf) > h.index {
			h.visible[sym] = append(h.visible[sym], buf[h.index])
			hasData = true
		}
	}
	if hasData {
		h.index++
	}
	return hasData
}

// SymbolsAt returns the symbols that were revealed on the most recent
// Advance call, i.e. those whose visible history is exactly as long as the
// cursor.
func (h *Handler) SymbolsAt() []string {
	var out []string
	for _, sym := range h.symbols {
		if len(h.visible[sym]) == h.index {
			out = append(out, sym)
		}
	}
	return out
}

// Latest returns the most recently revealed bar for symbol, strictly: only
// if that symbol advanced on the current tick (its visible length equals
// the cursor). Otherwise it returns false, even if older bars exist.
func (h *Handler) Latest(symbol string) (bar.Bar, bool) {
	visible, ok := h.visible[symbol]
	if !ok || len(visible) == 0 {
		return bar.Bar{}, false
	}
	if len(visible) != h.index {
		return bar.Bar{}, false
	}
	return visible[len(visible)-1], true
}

// LatestN returns the last n revealed bars for symbol, or an empty slice
// unless exactly n (or more) are visible AND the symbol advanced on the
// current tick. This returns the strict N-slice
// only when at least N bars are visible, never a shorter partial slice.
func (h *Handler) LatestN(symbol string, n int) []bar.Bar {
	if n <= 0 {
		return nil
	}
	visible, ok := h.visible[symbol]
	if !ok || len(visible) < n {
		return nil
	}
	if len(visible) != h.index {
		return nil
	}
	out := make([]bar.Bar, n)
	copy(out, visible[len(visible)-n:])
	return out
}
