package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/volatility"
)

// Default Bollinger Bands period when the caller does not override it.
const DefaultBollingerPeriod = 20

// Bollinger returns the most recent Bollinger Bands (upper, middle,
// lower) over the given period. A non-positive period falls back to
// the default.
func Bollinger(prices []float64, period int) (upper, middle, lower float64, err error) {
	if period <= 0 {
		period = DefaultBollingerPeriod
	}
	if period < 2 || period > len(prices) {
		return 0, 0, 0, fmt.Errorf("invalid Bollinger period: %d (must be between 2 and %d)", period, len(prices))
	}

	pricesChan := make(chan float64, len(prices))
	for _, p := range prices {
		pricesChan <- p
	}
	close(pricesChan)

	bbIndicator := volatility.NewBollingerBandsWithPeriod[float64](period)
	lowerChan, middleChan, upperChan := bbIndicator.Compute(pricesChan)

	var got bool
	for {
		l, lok := <-lowerChan
		m, mok := <-middleChan
		u, uok := <-upperChan
		if !lok || !mok || !uok {
			break
		}
		lower, middle, upper = l, m, u
		got = true
	}
	if !got {
		return 0, 0, 0, fmt.Errorf("no Bollinger Bands values calculated")
	}

	return upper, middle, lower, nil
}
