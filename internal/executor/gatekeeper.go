// Package executor is the last gate between a trade decision and the
// exchange: approval, account safety, cooldown dedup, risk sizing and
// the guarded submit all live here.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/AustinJR6/LysaraInvestments/internal/decision"
	"github.com/AustinJR6/LysaraInvestments/internal/exchange"
	"github.com/AustinJR6/LysaraInvestments/internal/risk"
	"github.com/AustinJR6/LysaraInvestments/internal/store"
)

// Status is the outcome of pushing a decision through the gates.
type Status string

const (
	StatusExecuted        Status = "executed"
	StatusHold            Status = "hold"
	StatusPendingApproval Status = "pending_approval"
	StatusSafetyDisabled  Status = "safety_disabled"
	StatusCooldownBlocked Status = "cooldown_blocked"
	StatusVetoed          Status = "vetoed"
	StatusFailed          Status = "failed"
)

// Result reports what the gatekeeper did with a decision. Execution
// problems surface here as statuses, never as errors: one bad cycle
// must not take the strategy loop down.
type Result struct {
	Status   Status
	Decision decision.Decision
	Order    *exchange.OrderResponse
	Reason   string
}

// TradeLog is the slice of the store the gatekeeper writes to.
type TradeLog interface {
	InsertTrade(ctx context.Context, trade *store.TradeRecord) error
}

// TradeSettler is implemented by trade logs that can fill realized
// pnl after a position closes.
type TradeSettler interface {
	SettleTrade(ctx context.Context, id uuid.UUID, pnl float64) error
}

// Config carries the gatekeeper's thresholds.
type Config struct {
	Market           string
	Cooldown         time.Duration
	ApprovalRequired bool
	RiskPerTrade     float64
	MinRewardRisk    float64
	Retry            exchange.RetryConfig
}

type pendingEntry struct {
	d      decision.Decision
	prices []float64
}

// Gatekeeper pushes decisions through the execution gates in order:
// hold, approval, safety, cooldown, sizing, submit.
type Gatekeeper struct {
	cfg     Config
	exch    exchange.Exchange
	limiter *exchange.AccountLimiter
	safety  *risk.SafetyMonitor
	sizer   *risk.Sizer
	trades  TradeLog
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
	now     func() time.Time

	// mu guards lastTrade and pending. The cooldown check and stamp
	// happen under one hold so concurrent decisions for the same
	// symbol cannot both pass.
	mu        sync.Mutex
	lastTrade map[string]time.Time
	pending   map[string]pendingEntry
}

// New creates a gatekeeper. trades may be nil to run without
// persistence.
func New(cfg Config, exch exchange.Exchange, limiter *exchange.AccountLimiter, safety *risk.SafetyMonitor, sizer *risk.Sizer, trades TradeLog) *Gatekeeper {
	return &Gatekeeper{
		cfg:       cfg,
		exch:      exch,
		limiter:   limiter,
		safety:    safety,
		sizer:     sizer,
		trades:    trades,
		breaker:   newSubmitBreaker(cfg.Market),
		logger:    zerolog.Nop(),
		now:       time.Now,
		lastTrade: make(map[string]time.Time),
		pending:   make(map[string]pendingEntry),
	}
}

// WithLogger sets the gatekeeper's logger.
func (g *Gatekeeper) WithLogger(logger zerolog.Logger) *Gatekeeper {
	g.logger = logger
	return g
}

// Execute pushes a decision through the gates. prices is the recent
// price history backing the sizing and stop math.
func (g *Gatekeeper) Execute(ctx context.Context, d decision.Decision, prices []float64) *Result {
	// Gate 1: nothing to do
	if d.Action == decision.ActionHold {
		return &Result{Status: StatusHold, Decision: d, Reason: "hold decision"}
	}

	// Gate 2: human approval. Only the newest decision per symbol
	// stays pending; an unapproved one is stale the moment a fresh
	// cycle produces its successor, and an unbounded stash would
	// otherwise grow forever.
	if g.cfg.ApprovalRequired && !d.Approved {
		g.mu.Lock()
		for id, entry := range g.pending {
			if entry.d.Symbol == d.Symbol {
				delete(g.pending, id)
			}
		}
		g.pending[d.ID] = pendingEntry{d: d, prices: prices}
		g.mu.Unlock()

		g.logger.Info().
			Str("decision_id", d.ID).
			Str("symbol", d.Symbol).
			Str("action", string(d.Action)).
			Msg("Decision stashed pending approval")
		return &Result{Status: StatusPendingApproval, Decision: d, Reason: "awaiting approval"}
	}

	// Gate 3: refresh equity, then consult the safety monitor
	equity := g.refreshEquity(ctx)
	if g.safety.IsDisabled() {
		g.logger.Warn().
			Str("symbol", d.Symbol).
			Str("reason", g.safety.Reason()).
			Msg("Trade blocked, safety monitor disabled")
		return &Result{Status: StatusSafetyDisabled, Decision: d, Reason: g.safety.Reason()}
	}

	// Gate 4: per-symbol cooldown, check and stamp in one critical
	// section so a concurrent duplicate cannot squeeze through
	now := g.now()
	g.mu.Lock()
	last, traded := g.lastTrade[d.Symbol]
	if traded && now.Sub(last) < g.cfg.Cooldown {
		g.mu.Unlock()
		remaining := g.cfg.Cooldown - now.Sub(last)
		g.logger.Info().
			Str("symbol", d.Symbol).
			Dur("remaining", remaining).
			Msg("Trade blocked by cooldown")
		return &Result{Status: StatusCooldownBlocked, Decision: d, Reason: fmt.Sprintf("cooldown for %s", remaining)}
	}
	g.lastTrade[d.Symbol] = now
	g.mu.Unlock()

	// Gate 5: risk sizing and reward/risk
	size := g.sizer.PositionSize(equity, g.cfg.RiskPerTrade, d.EntryPrice, d.Confidence, prices)
	if size <= 0 {
		g.releaseCooldown(d.Symbol, last, traded)
		g.logger.Info().
			Str("symbol", d.Symbol).
			Float64("equity", equity).
			Msg("Trade vetoed, position sized to zero")
		return &Result{Status: StatusVetoed, Decision: d, Reason: "position size is zero"}
	}

	levels := g.sizer.StopLevels(d.EntryPrice, d.Action.Side(), prices, g.cfg.MinRewardRisk)
	if levels.RR < g.cfg.MinRewardRisk {
		g.releaseCooldown(d.Symbol, last, traded)
		g.logger.Info().
			Str("symbol", d.Symbol).
			Float64("rr", levels.RR).
			Float64("min_rr", g.cfg.MinRewardRisk).
			Msg("Trade vetoed, reward/risk too low")
		return &Result{Status: StatusVetoed, Decision: d, Reason: fmt.Sprintf("reward/risk %.2f below %.2f", levels.RR, g.cfg.MinRewardRisk)}
	}

	d.PositionSize = &size
	d.StopLoss = &levels.Stop
	d.TakeProfit = &levels.Target
	d.Order.Qty = size

	// Gate 6: guarded submit
	resp, err := g.submit(ctx, d, size)
	if err != nil {
		g.releaseCooldown(d.Symbol, last, traded)
		g.logger.Error().
			Err(err).
			Str("symbol", d.Symbol).
			Str("action", string(d.Action)).
			Msg("Order submission failed")
		return &Result{Status: StatusFailed, Decision: d, Reason: err.Error()}
	}

	g.recordTrade(ctx, d, resp)

	g.logger.Info().
		Str("decision_id", d.ID).
		Str("order_id", resp.OrderID).
		Str("symbol", d.Symbol).
		Str("action", string(d.Action)).
		Float64("qty", size).
		Float64("fill_price", resp.AvgFillPrice).
		Msg("Trade executed")

	return &Result{Status: StatusExecuted, Decision: d, Order: resp}
}

// ApprovePending re-arms a stashed decision and pushes it back through
// the gates. Returns nil when the ID is unknown.
func (g *Gatekeeper) ApprovePending(ctx context.Context, decisionID string) *Result {
	g.mu.Lock()
	entry, ok := g.pending[decisionID]
	if ok {
		delete(g.pending, decisionID)
	}
	g.mu.Unlock()
	if !ok {
		return nil
	}

	entry.d.Approved = true
	g.logger.Info().
		Str("decision_id", decisionID).
		Str("symbol", entry.d.Symbol).
		Msg("Pending decision approved")

	return g.Execute(ctx, entry.d, entry.prices)
}

// Settle records a closed position's realized pnl. The safety monitor
// sees the result (loss streaks, daily budget), a paper exchange has
// the pnl applied to its simulated balance, and the trade row is
// settled when the log supports it.
func (g *Gatekeeper) Settle(ctx context.Context, tradeID uuid.UUID, pnl float64) error {
	g.safety.RecordResult(pnl)

	if paper, ok := g.exch.(*exchange.PaperExchange); ok {
		paper.ApplyPnL(pnl)
	}

	g.logger.Info().
		Str("trade_id", tradeID.String()).
		Float64("pnl", pnl).
		Msg("Trade settled")

	if settler, ok := g.trades.(TradeSettler); ok {
		return settler.SettleTrade(ctx, tradeID, pnl)
	}
	return nil
}

// PendingIDs lists the decisions waiting for approval.
func (g *Gatekeeper) PendingIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(g.pending))
	for id := range g.pending {
		ids = append(ids, id)
	}
	return ids
}

// refreshEquity pulls the account balance through the shared limiter
// and feeds it to the safety monitor. A failed refresh keeps the last
// known equity; the cycle degrades instead of dying.
func (g *Gatekeeper) refreshEquity(ctx context.Context) float64 {
	err := exchange.WithRetry(ctx, g.cfg.Retry, func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		info, err := g.exch.FetchAccountInfo(ctx)
		if err != nil {
			return err
		}
		g.safety.RecordEquity(info.Balance)
		return nil
	})
	if err != nil {
		g.logger.Warn().
			Err(err).
			Msg("Equity refresh failed, using last known equity")
	}
	return g.safety.LastEquity()
}

// submit places the order behind the circuit breaker with retries.
func (g *Gatekeeper) submit(ctx context.Context, d decision.Decision, size float64) (*exchange.OrderResponse, error) {
	metrics := initBreakerMetrics()

	resp, err := g.breaker.Execute(func() (interface{}, error) {
		var orderResp *exchange.OrderResponse
		err := exchange.WithRetry(ctx, g.cfg.Retry, func() error {
			if g.limiter != nil {
				if err := g.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			var err error
			orderResp, err = g.exch.PlaceOrder(ctx, exchange.OrderRequest{
				Symbol:   d.Symbol,
				Side:     exchange.OrderSide(d.Action.Side()),
				Type:     exchange.OrderTypeMarket,
				Quantity: size,
			})
			return err
		})
		return orderResp, err
	})
	if err != nil {
		metrics.requests.WithLabelValues(g.cfg.Market, "failure").Inc()
		return nil, err
	}

	metrics.requests.WithLabelValues(g.cfg.Market, "success").Inc()
	return resp.(*exchange.OrderResponse), nil
}

// recordTrade appends the executed order to the trade log.
func (g *Gatekeeper) recordTrade(ctx context.Context, d decision.Decision, resp *exchange.OrderResponse) {
	if g.trades == nil {
		return
	}

	decisionID, err := uuid.Parse(d.ID)
	var decisionRef *uuid.UUID
	if err == nil {
		decisionRef = &decisionID
	}

	price := resp.AvgFillPrice
	if price == 0 {
		price = d.EntryPrice
	}

	trade := &store.TradeRecord{
		ID:         uuid.New(),
		DecisionID: decisionRef,
		Symbol:     d.Symbol,
		Market:     g.cfg.Market,
		Side:       d.Action.Side(),
		Quantity:   resp.FilledQty,
		Price:      price,
		Status:     string(resp.Status),
		ExecutedAt: g.now(),
		CreatedAt:  g.now(),
	}

	if err := g.trades.InsertTrade(ctx, trade); err != nil {
		g.logger.Error().
			Err(err).
			Str("order_id", resp.OrderID).
			Msg("Failed to record trade")
	}
}

// releaseCooldown restores the pre-gate cooldown stamp after a veto or
// failure, so an unfilled attempt does not burn the symbol's budget.
func (g *Gatekeeper) releaseCooldown(symbol string, prev time.Time, hadPrev bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if hadPrev {
		g.lastTrade[symbol] = prev
	} else {
		delete(g.lastTrade, symbol)
	}
}
