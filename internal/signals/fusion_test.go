package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinJR6/LysaraInvestments/internal/config"
	"github.com/AustinJR6/LysaraInvestments/internal/market"
)

func defaultSignalsConfig() config.SignalsConfig {
	return config.SignalsConfig{
		TechWeight:   0.5,
		SentWeight:   0.3,
		MarketWeight: 0.2,
	}
}

func defaultSentimentConfig() config.SentimentConfig {
	return config.SentimentConfig{
		SourceWeights: map[string]float64{
			"reddit": 0.2,
			"news":   0.5,
			"social": 0.3,
		},
		HalfLifeHours: 6,
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(defaultSignalsConfig(), defaultSentimentConfig())
}

func risingPrices(n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	return prices
}

func constantPrices(n int, v float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = v
	}
	return prices
}

func TestScoreShortHistoryIsNeutral(t *testing.T) {
	e := newTestEngine(t)

	result := e.Score("BTC-USD", []float64{100}, nil)

	assert.InDelta(t, 0.5, result.Technical, 1e-9)
	assert.InDelta(t, 0.5, result.Market, 1e-9)
	assert.InDelta(t, 0.0, result.Sentiment, 1e-9)
	// 0.5*0.5 + 0*0.3 + 0.5*0.2
	assert.InDelta(t, 0.35, result.Conviction, 1e-9)
}

func TestScoreRisingMarket(t *testing.T) {
	e := newTestEngine(t)
	prices := risingPrices(30)

	result := e.Score("BTC-USD", prices, nil)

	// price above EMA with RSI > 50, and price inside the bands
	assert.InDelta(t, 0.75, result.Technical, 1e-9)

	// 0.5 + (129-100)/100 - (129-100)/129
	assert.InDelta(t, 0.5+0.29-29.0/129.0, result.Market, 1e-3)

	expected := result.Technical*0.5 + result.Market*0.2
	assert.InDelta(t, expected, result.Conviction, 2e-3)
}

func TestScoreNeutralBlend(t *testing.T) {
	e := newTestEngine(t)
	e.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	prices := constantPrices(30, 100)
	sentiment := map[string]market.SourceScore{
		"news": {Score: 0.5, Count: 10, Timestamp: e.now()},
	}

	result := e.Score("BTC-USD", prices, sentiment)

	// all neutral sub-scores with weights summing to 1 blend to 0.5
	assert.InDelta(t, 0.5, result.Technical, 1e-9)
	assert.InDelta(t, 0.5, result.Sentiment, 1e-9)
	assert.InDelta(t, 0.5, result.Market, 1e-9)
	assert.InDelta(t, 0.5, result.Conviction, 1e-9)
}

func TestSentimentScoreWeightedBySourceAndVolume(t *testing.T) {
	e := newTestEngine(t)
	now := time.Unix(1_700_000_000, 0)
	e.now = func() time.Time { return now }

	sentiment := map[string]market.SourceScore{
		"reddit": {Score: 1.0, Count: 10, Timestamp: now},
		"news":   {Score: 0.0, Count: 20, Timestamp: now},
	}

	// reddit: w = 0.2, news: w = 0.5; (1.0*0.2 + 0*0.5) / 0.7
	got := e.sentimentScore(sentiment)
	assert.InDelta(t, 0.2/0.7, got, 1e-9)
}

func TestSentimentScoreVolumeAdjustment(t *testing.T) {
	e := newTestEngine(t)
	now := time.Unix(1_700_000_000, 0)
	e.now = func() time.Time { return now }

	// 5 messages scale the weight by 0.5; the single-source average is
	// unchanged, so pair it with a full-volume counterweight
	sentiment := map[string]market.SourceScore{
		"reddit": {Score: 1.0, Count: 5, Timestamp: now},
		"news":   {Score: 0.0, Count: 10, Timestamp: now},
	}

	// reddit: 0.2*0.5 = 0.1, news: 0.5; 0.1/0.6
	got := e.sentimentScore(sentiment)
	assert.InDelta(t, 0.1/0.6, got, 1e-9)
}

func TestSentimentScoreTimeDecay(t *testing.T) {
	e := newTestEngine(t)
	now := time.Unix(1_700_000_000, 0)
	e.now = func() time.Time { return now }

	// one half-life old: the score halves
	sentiment := map[string]market.SourceScore{
		"news": {Score: 1.0, Count: 10, Timestamp: now.Add(-6 * time.Hour)},
	}

	got := e.sentimentScore(sentiment)
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestSentimentScoreEmptyAndUnknownSources(t *testing.T) {
	e := newTestEngine(t)

	assert.InDelta(t, 0.0, e.sentimentScore(nil), 1e-9)

	unknown := map[string]market.SourceScore{
		"carrier-pigeon": {Score: 1.0, Count: 100, Timestamp: time.Now()},
	}
	assert.InDelta(t, 0.0, e.sentimentScore(unknown), 1e-9)
}

func TestMarketScoreClamped(t *testing.T) {
	e := newTestEngine(t)

	// collapse: momentum -0.5, range half the last price
	crash := []float64{100, 50}
	got := e.marketScore(crash)
	assert.InDelta(t, 0.0, got, 1e-9)

	// melt-up held within [0, 1]
	surge := []float64{100, 100, 100, 100, 300}
	got = e.marketScore(surge)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestConvictionNotRenormalizedForOverweightConfig(t *testing.T) {
	// weights summing above 1 are applied as configured; the resulting
	// conviction escapes [0, 1] instead of being silently rescaled
	signalsCfg := config.SignalsConfig{TechWeight: 1.0, SentWeight: 1.0, MarketWeight: 1.0}
	e := NewEngine(signalsCfg, defaultSentimentConfig())
	now := time.Unix(1_700_000_000, 0)
	e.now = func() time.Time { return now }

	sentiment := map[string]market.SourceScore{
		"news": {Score: 1.0, Count: 10, Timestamp: now},
	}

	result := e.Score("BTC-USD", risingPrices(30), sentiment)

	require.Greater(t, result.Conviction, 1.0)
}
