package market

import "sync"

// DefaultHistorySize is the number of recent prices retained per symbol.
const DefaultHistorySize = 100

// History is a bounded per-symbol store of recent prices. Strategy
// loops append quotes each cycle; indicator and fusion code read
// copies. Safe for concurrent use.
type History struct {
	mu     sync.RWMutex
	limit  int
	prices map[string][]float64
}

// NewHistory creates a price history store retaining up to limit
// points per symbol. A non-positive limit falls back to the default.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{
		limit:  limit,
		prices: make(map[string][]float64),
	}
}

// Append records a new price for the symbol, evicting the oldest
// point once the bound is reached.
func (h *History) Append(symbol string, price float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	series := append(h.prices[symbol], price)
	if len(series) > h.limit {
		series = series[len(series)-h.limit:]
	}
	h.prices[symbol] = series
}

// Prices returns a copy of the retained series for the symbol,
// oldest first. Returns nil when the symbol has no history.
func (h *History) Prices(symbol string) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	series := h.prices[symbol]
	if len(series) == 0 {
		return nil
	}
	out := make([]float64, len(series))
	copy(out, series)
	return out
}

// Last returns the most recent price for the symbol.
func (h *History) Last(symbol string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	series := h.prices[symbol]
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// Len returns the number of retained points for the symbol.
func (h *History) Len(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.prices[symbol])
}
