// Package indicators wraps cinar/indicator's streaming calculators
// behind slice-in, latest-value-out helpers for the decision pipeline.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/trend"
)

// EMA returns the most recent Exponential Moving Average over the
// given period.
func EMA(prices []float64, period int) (float64, error) {
	if period < 1 || period > len(prices) {
		return 0, fmt.Errorf("invalid EMA period: %d (must be between 1 and %d)", period, len(prices))
	}

	pricesChan := make(chan float64, len(prices))
	for _, p := range prices {
		pricesChan <- p
	}
	close(pricesChan)

	emaIndicator := trend.NewEmaWithPeriod[float64](period)
	emaChan := emaIndicator.Compute(pricesChan)

	var last float64
	var got bool
	for val := range emaChan {
		last = val
		got = true
	}
	if !got {
		return 0, fmt.Errorf("no EMA values calculated")
	}

	return last, nil
}
