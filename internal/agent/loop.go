// Package agent runs the per-market strategy loop: poll prices, fuse
// signals, decide, and hand the decision to the execution gatekeeper.
package agent

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/AustinJR6/LysaraInvestments/internal/decision"
	"github.com/AustinJR6/LysaraInvestments/internal/exchange"
	"github.com/AustinJR6/LysaraInvestments/internal/executor"
	"github.com/AustinJR6/LysaraInvestments/internal/indicators"
	"github.com/AustinJR6/LysaraInvestments/internal/market"
	"github.com/AustinJR6/LysaraInvestments/internal/risk"
	"github.com/AustinJR6/LysaraInvestments/internal/signals"
)

// SentimentSource supplies per-source sentiment scores for a symbol.
type SentimentSource interface {
	Get(ctx context.Context, symbol string) map[string]market.SourceScore
}

// Persister is the slice of the store the loop writes to.
type Persister interface {
	InsertDecision(ctx context.Context, d decision.Decision, details map[string]interface{}) error
	InsertEquitySnapshot(ctx context.Context, equity float64, market string) error
}

// Config carries the loop's scheduling parameters.
type Config struct {
	Market   string
	Symbols  []string
	Interval time.Duration
}

// Deps bundles the loop's collaborators. Sentiment and Store may be
// nil; the loop then runs without cached sentiment or persistence.
type Deps struct {
	Exchange  exchange.Exchange
	Limiter   *exchange.AccountLimiter
	History   *market.History
	Sentiment SentimentSource
	Fusion    *signals.Engine
	Decider   *decision.Engine
	Safety    *risk.SafetyMonitor
	Gate      *executor.Gatekeeper
	Store     Persister
}

// Loop drives one market's decision cycle on a fixed interval.
type Loop struct {
	cfg    Config
	deps   Deps
	logger zerolog.Logger
	now    func() time.Time

	// last fused sentiment per symbol, for shift detection
	lastSentiment map[string]float64
}

// NewLoop creates a strategy loop.
func NewLoop(cfg Config, deps Deps) *Loop {
	return &Loop{
		cfg:           cfg,
		deps:          deps,
		logger:        zerolog.Nop(),
		now:           time.Now,
		lastSentiment: make(map[string]float64),
	}
}

// WithLogger sets the loop's logger.
func (l *Loop) WithLogger(logger zerolog.Logger) *Loop {
	l.logger = logger
	return l
}

// Run executes decision cycles until the context is cancelled. The
// first cycle runs immediately rather than waiting out an interval.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info().
		Str("market", l.cfg.Market).
		Strs("symbols", l.cfg.Symbols).
		Dur("interval", l.cfg.Interval).
		Msg("Starting strategy loop")

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	l.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Str("market", l.cfg.Market).Msg("Strategy loop stopped")
			return ctx.Err()
		case <-ticker.C:
			l.runCycle(ctx)
		}
	}
}

// runCycle processes every symbol once. A symbol's failure is logged
// and skipped; it never takes down the cycle.
func (l *Loop) runCycle(ctx context.Context) {
	metrics := initLoopMetrics()
	metrics.cycles.WithLabelValues(l.cfg.Market).Inc()

	if l.deps.Safety.RolloverIfNeeded(l.now(), l.deps.Safety.LastEquity()) {
		l.logger.Info().
			Str("market", l.cfg.Market).
			Float64("equity", l.deps.Safety.LastEquity()).
			Msg("Trading day rolled over")
	}

	for _, symbol := range l.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		l.processSymbol(ctx, symbol)
	}

	if l.deps.Store != nil {
		if err := l.deps.Store.InsertEquitySnapshot(ctx, l.deps.Safety.LastEquity(), l.cfg.Market); err != nil {
			l.logger.Error().Err(err).Msg("Failed to persist equity snapshot")
		}
	}
}

func (l *Loop) processSymbol(ctx context.Context, symbol string) {
	metrics := initLoopMetrics()

	if l.deps.Limiter != nil {
		if err := l.deps.Limiter.Wait(ctx); err != nil {
			return
		}
	}

	price, err := l.deps.Exchange.FetchMarketPrice(ctx, symbol)
	if err != nil {
		metrics.symbolErrors.WithLabelValues(l.cfg.Market, symbol).Inc()
		l.logger.Warn().
			Err(err).
			Str("symbol", symbol).
			Msg("Price fetch failed, skipping symbol")
		return
	}

	var move float64
	last, seen := l.deps.History.Last(symbol)
	l.deps.History.Append(symbol, price)
	if seen && last > 0 {
		move = math.Abs(price-last) / last
		l.deps.Safety.NoteVolatility(move)
	}

	prices := l.deps.History.Prices(symbol)

	sentiment := map[string]market.SourceScore{}
	if l.deps.Sentiment != nil {
		sentiment = l.deps.Sentiment.Get(ctx, symbol)
	}

	fused := l.deps.Fusion.Score(symbol, prices, sentiment)
	if prev, ok := l.lastSentiment[symbol]; ok {
		l.deps.Safety.NoteSentimentShift(fused.Sentiment - prev)
	}
	l.lastSentiment[symbol] = fused.Sentiment

	snapshot := market.MarketSnapshot{
		Symbol:     symbol,
		Price:      price,
		Sentiment:  sentiment,
		Technicals: l.technicals(symbol, prices),
		Volatility: move,
		Timestamp:  l.now(),
	}

	d := l.deps.Decider.Decide(ctx, snapshot)
	metrics.decisions.WithLabelValues(l.cfg.Market, string(d.Action)).Inc()

	res := l.deps.Gate.Execute(ctx, d, prices)
	metrics.outcomes.WithLabelValues(l.cfg.Market, string(res.Status)).Inc()

	l.logger.Info().
		Str("symbol", symbol).
		Float64("price", price).
		Float64("conviction", fused.Conviction).
		Str("action", string(d.Action)).
		Str("status", string(res.Status)).
		Str("reason", res.Reason).
		Msg("Cycle complete")

	if l.deps.Store != nil {
		details := map[string]interface{}{
			"price":      price,
			"volatility": snapshot.Volatility,
			"technical":  fused.Technical,
			"sentiment":  fused.Sentiment,
			"market":     fused.Market,
			"conviction": fused.Conviction,
			"status":     string(res.Status),
		}
		if err := l.deps.Store.InsertDecision(ctx, res.Decision, details); err != nil {
			l.logger.Error().
				Err(err).
				Str("decision_id", res.Decision.ID).
				Msg("Failed to persist decision")
		}
	}
}

// technicals computes the indicator inputs the decision engine reads.
// Indicators that cannot be computed on the available history are
// left out of the map.
func (l *Loop) technicals(symbol string, prices []float64) map[string]float64 {
	tech := make(map[string]float64)

	if rsi, err := indicators.RSI(prices, 0); err == nil {
		tech["rsi"] = rsi
	} else {
		l.logger.Debug().Err(err).Str("symbol", symbol).Msg("RSI unavailable")
	}

	if cross, err := indicators.MACross(prices, 0, 0); err == nil {
		tech["ma_cross"] = cross
	} else {
		l.logger.Debug().Err(err).Str("symbol", symbol).Msg("MA cross unavailable")
	}

	return tech
}
