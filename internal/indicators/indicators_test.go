package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func risingPrices(n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	return prices
}

func fallingPrices(n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 200 - float64(i)
	}
	return prices
}

func TestEMA(t *testing.T) {
	prices := risingPrices(30)

	ema, err := EMA(prices, 10)
	require.NoError(t, err)

	// EMA lags a rising series: below the last price, above the oldest
	assert.Less(t, ema, prices[len(prices)-1])
	assert.Greater(t, ema, prices[0])
}

func TestEMAConstantSeries(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 42
	}

	ema, err := EMA(prices, 10)
	require.NoError(t, err)
	assert.InDelta(t, 42, ema, 1e-9)
}

func TestEMAInvalidPeriod(t *testing.T) {
	prices := risingPrices(5)

	_, err := EMA(prices, 0)
	assert.Error(t, err)

	_, err = EMA(prices, 6)
	assert.Error(t, err)
}

func TestRSIExtremes(t *testing.T) {
	rsi, err := RSI(risingPrices(30), 14)
	require.NoError(t, err)
	assert.Greater(t, rsi, 70.0, "all gains should read overbought")

	rsi, err = RSI(fallingPrices(30), 14)
	require.NoError(t, err)
	assert.Less(t, rsi, 30.0, "all losses should read oversold")
}

func TestRSIDefaultPeriod(t *testing.T) {
	rsi, err := RSI(risingPrices(30), 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rsi, 0.0)
	assert.LessOrEqual(t, rsi, 100.0)
}

func TestRSIInsufficientHistory(t *testing.T) {
	_, err := RSI(risingPrices(5), 14)
	assert.Error(t, err)
}

func TestBollingerOrdering(t *testing.T) {
	prices := []float64{
		100, 102, 101, 103, 105, 104, 106, 108, 107, 109,
		111, 110, 112, 114, 113, 115, 117, 116, 118, 120,
		119, 121, 123, 122, 124,
	}

	upper, middle, lower, err := Bollinger(prices, 20)
	require.NoError(t, err)

	assert.Greater(t, upper, middle)
	assert.Greater(t, middle, lower)
}

func TestBollingerInsufficientHistory(t *testing.T) {
	_, _, _, err := Bollinger(risingPrices(10), 20)
	assert.Error(t, err)
}

func TestMACross(t *testing.T) {
	cross, err := MACross(risingPrices(40), 5, 20)
	require.NoError(t, err)
	assert.InDelta(t, 1, cross, 1e-9, "rising series should be bullish")

	cross, err = MACross(fallingPrices(40), 5, 20)
	require.NoError(t, err)
	assert.InDelta(t, -1, cross, 1e-9, "falling series should be bearish")
}

func TestMACrossInvalidPeriods(t *testing.T) {
	_, err := MACross(risingPrices(40), 20, 5)
	assert.Error(t, err)

	_, err = MACross(risingPrices(10), 5, 20)
	assert.Error(t, err)
}
