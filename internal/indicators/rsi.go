package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/momentum"
)

// Default RSI period when the caller does not override it.
const DefaultRSIPeriod = 14

// RSI returns the most recent Relative Strength Index over the given
// period. A non-positive period falls back to the default.
func RSI(prices []float64, period int) (float64, error) {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if period > len(prices) {
		return 0, fmt.Errorf("invalid RSI period: %d (must be between 1 and %d)", period, len(prices))
	}

	pricesChan := make(chan float64, len(prices))
	for _, p := range prices {
		pricesChan <- p
	}
	close(pricesChan)

	rsiIndicator := momentum.NewRsiWithPeriod[float64](period)
	rsiChan := rsiIndicator.Compute(pricesChan)

	var last float64
	var got bool
	for val := range rsiChan {
		last = val
		got = true
	}
	if !got {
		return 0, fmt.Errorf("no RSI values calculated")
	}

	return last, nil
}
