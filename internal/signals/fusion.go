// Package signals fuses technical, sentiment and market-structure
// readings into a single conviction score per symbol.
package signals

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/AustinJR6/LysaraInvestments/internal/config"
	"github.com/AustinJR6/LysaraInvestments/internal/indicators"
	"github.com/AustinJR6/LysaraInvestments/internal/market"
)

// minTechnicalHistory is the fewest prices the technical score needs
// before it stops returning the neutral baseline.
const minTechnicalHistory = 5

// FusionResult is the fused view of one symbol for one cycle.
type FusionResult struct {
	Symbol     string             `json:"symbol"`
	Technical  float64            `json:"technical"`
	Sentiment  float64            `json:"sentiment"`
	Market     float64            `json:"market"`
	Conviction float64            `json:"conviction"`
	Details    map[string]float64 `json:"details"`
}

// Engine computes fused conviction scores. Weights come straight from
// configuration and are applied as-is; they are not re-normalized when
// they sum above 1, so misconfigured weights surface as out-of-range
// convictions rather than being silently corrected.
type Engine struct {
	techWeight    float64
	sentWeight    float64
	marketWeight  float64
	sourceWeights map[string]float64
	halfLife      float64
	logger        zerolog.Logger
	now           func() time.Time
}

// NewEngine creates a fusion engine from the signals and sentiment
// configuration sections.
func NewEngine(signalsCfg config.SignalsConfig, sentimentCfg config.SentimentConfig) *Engine {
	return &Engine{
		techWeight:    signalsCfg.TechWeight,
		sentWeight:    signalsCfg.SentWeight,
		marketWeight:  signalsCfg.MarketWeight,
		sourceWeights: sentimentCfg.SourceWeights,
		halfLife:      sentimentCfg.HalfLifeHours,
		logger:        zerolog.Nop(),
		now:           time.Now,
	}
}

// WithLogger sets the engine's logger.
func (e *Engine) WithLogger(logger zerolog.Logger) *Engine {
	e.logger = logger
	return e
}

// Score fuses the available readings for a symbol. It never fails:
// sub-scores that cannot be computed fall back to their neutral value
// and are logged, so one bad input degrades the score rather than
// stopping the cycle.
func (e *Engine) Score(symbol string, prices []float64, sentiment map[string]market.SourceScore) FusionResult {
	tech := e.technicalScore(symbol, prices)
	sent := e.sentimentScore(sentiment)
	mkt := e.marketScore(prices)

	conviction := tech*e.techWeight + sent*e.sentWeight + mkt*e.marketWeight
	conviction = round3(conviction)

	result := FusionResult{
		Symbol:     symbol,
		Technical:  round3(tech),
		Sentiment:  round3(sent),
		Market:     round3(mkt),
		Conviction: conviction,
		Details: map[string]float64{
			"tech":   round3(tech),
			"sent":   round3(sent),
			"market": round3(mkt),
		},
	}

	e.logger.Debug().
		Str("symbol", symbol).
		Float64("tech", result.Technical).
		Float64("sent", result.Sentiment).
		Float64("market", result.Market).
		Float64("conviction", conviction).
		Msg("Fused signal scores")

	return result
}

// technicalScore reads momentum and band position off the price
// history. Baseline 0.5; each rule that cannot be evaluated on the
// available history is skipped rather than guessed.
func (e *Engine) technicalScore(symbol string, prices []float64) float64 {
	if len(prices) < minTechnicalHistory {
		return 0.5
	}

	price := prices[len(prices)-1]
	tech := 0.5

	ema, emaErr := indicators.EMA(prices, 10)
	rsi, rsiErr := indicators.RSI(prices, indicators.DefaultRSIPeriod)
	if emaErr == nil && rsiErr == nil && price > ema && rsi > 50 {
		tech += 0.25
	}
	if emaErr != nil || rsiErr != nil {
		e.logger.Debug().
			Str("symbol", symbol).
			AnErr("ema_err", emaErr).
			AnErr("rsi_err", rsiErr).
			Msg("Trend rule skipped, insufficient history")
	}

	upper, _, lower, bbErr := indicators.Bollinger(prices, indicators.DefaultBollingerPeriod)
	if bbErr == nil {
		if price > upper {
			tech += 0.25
		}
		if price < lower {
			tech -= 0.25
		}
	}

	return clamp01(tech)
}

// sentimentScore is a weighted average across sources. Each source's
// configured weight is scaled by a volume adjustment, min(1, count/10),
// and its score decays exponentially with age at the configured
// half-life. No sources, or all-zero effective weight, reads neutral 0.
func (e *Engine) sentimentScore(sentiment map[string]market.SourceScore) float64 {
	if len(sentiment) == 0 {
		return 0
	}

	now := e.now()
	var total, weightSum float64
	for source, src := range sentiment {
		w := e.sourceWeights[source]
		w *= math.Min(1.0, float64(src.Count)/10.0)
		if w == 0 {
			continue
		}
		total += e.decay(src.Score, src.Timestamp, now) * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return total / weightSum
}

// decay applies exponential time decay: half the score per half-life
// of age. A non-positive half-life disables decay.
func (e *Engine) decay(score float64, timestamp, now time.Time) float64 {
	if e.halfLife <= 0 {
		return score
	}
	ageHours := now.Sub(timestamp).Hours()
	if ageHours <= 0 {
		return score
	}
	return score * math.Pow(0.5, ageHours/e.halfLife)
}

// marketScore reads momentum against range volatility:
// 0.5 + momentum - volatility/lastPrice, clamped to [0, 1].
func (e *Engine) marketScore(prices []float64) float64 {
	if len(prices) < 2 {
		return 0.5
	}

	first := prices[0]
	last := prices[len(prices)-1]
	if first == 0 || last == 0 {
		return 0.5
	}

	momentum := (last - first) / math.Abs(first)

	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	volatility := hi - lo

	return clamp01(0.5 + momentum - volatility/last)
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
