package decision

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/AustinJR6/LysaraInvestments/internal/config"
	"github.com/AustinJR6/LysaraInvestments/internal/market"
)

// Engine generates trade decisions from market snapshots.
type Engine struct {
	market  string
	cfg     config.SignalsConfig
	advisor Advisor
	logger  zerolog.Logger
}

// NewEngine creates a decision engine. advisor may be nil to run
// local-only.
func NewEngine(marketName string, cfg config.SignalsConfig, advisor Advisor) *Engine {
	return &Engine{
		market:  marketName,
		cfg:     cfg,
		advisor: advisor,
		logger:  zerolog.Nop(),
	}
}

// WithLogger sets the engine's logger.
func (e *Engine) WithLogger(logger zerolog.Logger) *Engine {
	e.logger = logger
	return e
}

// Decide produces a decision for the snapshot. It never fails: a
// below-threshold confidence is logged, not rejected, and advisor
// errors fall back to the local verdict.
func (e *Engine) Decide(ctx context.Context, snapshot market.MarketSnapshot) Decision {
	sentiment := snapshot.SentimentAverage()
	technical := technicalBias(snapshot.Technicals)
	composite := sentiment*e.cfg.SentimentWeight + technical*e.cfg.TechnicalWeight

	action := ActionHold
	if composite > e.cfg.BuyThreshold {
		action = ActionBuy
	} else if composite < e.cfg.SellThreshold {
		action = ActionSell
	}

	confidence := round2(math.Min(math.Abs(composite), 1.0))

	d := Decision{
		ID:         newID(),
		Symbol:     snapshot.Symbol,
		Action:     action,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("sentiment=%.2f, technical=%.2f", sentiment, technical),
		EntryPrice: snapshot.Price,
		CreatedAt:  time.Now().UTC(),
	}
	e.applyStops(&d)

	d = e.consultAdvisor(ctx, snapshot, d)

	d.Order = OrderIntent{
		Market:     e.market,
		Symbol:     snapshot.Symbol,
		Side:       d.Action.Side(),
		Qty:        0,
		Price:      snapshot.Price,
		Confidence: d.Confidence,
	}

	if d.Confidence < e.cfg.ConfidenceThreshold {
		e.logger.Info().
			Str("symbol", d.Symbol).
			Str("action", string(d.Action)).
			Float64("confidence", d.Confidence).
			Float64("threshold", e.cfg.ConfidenceThreshold).
			Msg("Decision confidence below threshold")
	}

	return d
}

// applyStops fills preliminary stop and target from the configured
// percentages. The risk sizer tightens these later; HOLD carries none.
func (e *Engine) applyStops(d *Decision) {
	switch d.Action {
	case ActionBuy:
		stop := round4(d.EntryPrice * (1 - e.cfg.StopLossPct))
		target := round4(d.EntryPrice * (1 + e.cfg.TakeProfitPct))
		d.StopLoss = &stop
		d.TakeProfit = &target
	case ActionSell:
		stop := round4(d.EntryPrice * (1 + e.cfg.StopLossPct))
		target := round4(d.EntryPrice * (1 - e.cfg.TakeProfitPct))
		d.StopLoss = &stop
		d.TakeProfit = &target
	}
}

func (e *Engine) consultAdvisor(ctx context.Context, snapshot market.MarketSnapshot, d Decision) Decision {
	if e.advisor == nil {
		return d
	}

	advice, err := e.advisor.Advise(ctx, snapshot, d)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("symbol", d.Symbol).
			Msg("Advisor unavailable, keeping local decision")
		return merge(d, LocalOnly())
	}
	return merge(d, advice)
}

// technicalBias reduces the snapshot's indicator readings to a bias
// in [-1, 1]. RSI extremes are contrarian entries: oversold leans
// long, overbought leans short. The ma_cross reading follows trend.
func technicalBias(technicals map[string]float64) float64 {
	bias := 0.0

	if rsi, ok := technicals["rsi"]; ok {
		if rsi < 30 {
			bias += 0.5
		} else if rsi > 70 {
			bias -= 0.5
		}
	}

	if cross, ok := technicals["ma_cross"]; ok {
		if cross > 0 {
			bias += 0.5
		} else if cross < 0 {
			bias -= 0.5
		}
	}

	return math.Max(math.Min(bias, 1.0), -1.0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
