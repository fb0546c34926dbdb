package indicators

import "fmt"

// Default moving-average cross periods.
const (
	DefaultMAShortPeriod = 5
	DefaultMALongPeriod  = 20
)

// MACross compares a short EMA against a long EMA and returns the
// cross state: +1 when the short average is above the long (bullish),
// -1 when below (bearish), 0 when equal.
func MACross(prices []float64, shortPeriod, longPeriod int) (float64, error) {
	if shortPeriod <= 0 {
		shortPeriod = DefaultMAShortPeriod
	}
	if longPeriod <= 0 {
		longPeriod = DefaultMALongPeriod
	}
	if shortPeriod >= longPeriod {
		return 0, fmt.Errorf("short period %d must be less than long period %d", shortPeriod, longPeriod)
	}

	shortEMA, err := EMA(prices, shortPeriod)
	if err != nil {
		return 0, err
	}
	longEMA, err := EMA(prices, longPeriod)
	if err != nil {
		return 0, err
	}

	switch {
	case shortEMA > longEMA:
		return 1, nil
	case shortEMA < longEMA:
		return -1, nil
	default:
		return 0, nil
	}
}
