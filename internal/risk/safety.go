package risk

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/AustinJR6/LysaraInvestments/internal/config"
)

// Safety monitor states.
const (
	StateActive   = "active"
	StateDisabled = "disabled"
)

// Disable reasons, recorded on the latch and exposed in logs.
const (
	ReasonDrawdown          = "drawdown"
	ReasonLossStreak        = "loss_streak"
	ReasonDailyLoss         = "daily_loss"
	ReasonSentimentCollapse = "sentiment_collapse"
	ReasonVolatilitySpike   = "volatility_spike"
)

// SafetyMetrics holds Prometheus metrics for safety monitors
type SafetyMetrics struct {
	state *prometheus.GaugeVec
	trips *prometheus.CounterVec
}

var (
	// Global metrics instance (singleton)
	globalSafetyMetrics *SafetyMetrics
	safetyMetricsOnce   sync.Once
)

func initSafetyMetrics() *SafetyMetrics {
	safetyMetricsOnce.Do(func() {
		globalSafetyMetrics = &SafetyMetrics{
			state: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "safety_monitor_state",
					Help: "Safety monitor state (0=active, 1=disabled)",
				},
				[]string{"market"},
			),
			trips: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "safety_monitor_trips_total",
					Help: "Total number of safety monitor trips by reason",
				},
				[]string{"market", "reason"},
			),
		}
	})
	return globalSafetyMetrics
}

// SafetyMonitor is the account-level kill switch. It starts ACTIVE and
// latches DISABLED on drawdown, loss streak, daily loss budget, or a
// fast trigger; only an explicit daily reset re-arms it. Safe for
// concurrent use.
type SafetyMonitor struct {
	mu sync.Mutex

	market string
	cfg    config.RiskConfig
	tz     *time.Location

	startEquity  float64
	lastEquity   float64
	equityAtOpen float64
	dailyPnL     float64
	lossStreak   int
	dayOpen      time.Time

	disabled bool
	reason   string

	metrics *SafetyMetrics
	logger  zerolog.Logger
}

// NewSafetyMonitor creates a monitor for one market. An unknown
// timezone falls back to UTC.
func NewSafetyMonitor(market string, cfg config.RiskConfig) *SafetyMonitor {
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		tz = time.UTC
	}

	m := &SafetyMonitor{
		market:  market,
		cfg:     cfg,
		tz:      tz,
		dayOpen: dayStart(time.Now(), tz),
		metrics: initSafetyMetrics(),
		logger:  zerolog.Nop(),
	}
	m.metrics.state.WithLabelValues(market).Set(0)
	return m
}

// WithLogger sets the monitor's logger.
func (m *SafetyMonitor) WithLogger(logger zerolog.Logger) *SafetyMonitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
	return m
}

// RecordEquity feeds an equity observation. The first observation
// fixes the reference equity for drawdown tracking over the monitor's
// lifetime.
func (m *SafetyMonitor) RecordEquity(equity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startEquity == 0 {
		m.startEquity = equity
		m.equityAtOpen = equity
	}
	m.lastEquity = equity

	if m.startEquity > 0 {
		drawdown := (m.startEquity - equity) / m.startEquity
		if drawdown >= m.cfg.MaxDrawdown {
			m.disable(ReasonDrawdown, drawdown)
		}
	}
}

// LastEquity returns the most recent equity observation.
func (m *SafetyMonitor) LastEquity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastEquity
}

// RecordResult feeds one settled trade's realized pnl. Losses extend
// the streak and draw down the daily budget; wins reset the streak.
func (m *SafetyMonitor) RecordResult(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyPnL += pnl
	if pnl < 0 {
		m.lossStreak++
	} else if pnl > 0 {
		m.lossStreak = 0
	}

	if m.lossStreak >= m.cfg.MaxLossStreak {
		m.disable(ReasonLossStreak, float64(m.lossStreak))
		return
	}
	if m.dailyPnL <= m.cfg.MaxDailyLoss {
		m.disable(ReasonDailyLoss, m.dailyPnL)
	}
}

// NoteSentimentShift feeds a cycle-over-cycle sentiment delta. A drop
// at or past the collapse threshold trips the latch immediately.
func (m *SafetyMonitor) NoteSentimentShift(delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if delta <= m.cfg.SentimentCollapse {
		m.disable(ReasonSentimentCollapse, delta)
	}
}

// NoteVolatility feeds a fractional price move for the cycle. A move
// at or past the spike threshold trips the latch immediately.
func (m *SafetyMonitor) NoteVolatility(move float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if move >= m.cfg.VolatilitySpike {
		m.disable(ReasonVolatilitySpike, move)
	}
}

// IsDisabled reports whether the latch has tripped.
func (m *SafetyMonitor) IsDisabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disabled
}

// State returns the current state string.
func (m *SafetyMonitor) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return StateDisabled
	}
	return StateActive
}

// Reason returns the disable reason, empty while active.
func (m *SafetyMonitor) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// EquityAtOpen returns the equity recorded at the current trading
// day's open.
func (m *SafetyMonitor) EquityAtOpen() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.equityAtOpen
}

// DailyPnL returns the signed realized pnl accumulated today.
func (m *SafetyMonitor) DailyPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyPnL
}

// ResetDay clears the daily state and re-arms the latch. The drawdown
// reference equity is deliberately left untouched; drawdown tracks the
// monitor's lifetime, not the day.
func (m *SafetyMonitor) ResetDay(equity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDayLocked(equity)
}

// RolloverIfNeeded resets the daily state when a new trading day has
// started in the configured timezone. Call once per tick. Returns
// true when a rollover happened.
func (m *SafetyMonitor) RolloverIfNeeded(now time.Time, equity float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sameTradingDay(m.dayOpen, now, m.tz) {
		return false
	}

	m.dayOpen = dayStart(now, m.tz)
	m.resetDayLocked(equity)
	m.logger.Info().
		Str("market", m.market).
		Float64("equity_at_open", equity).
		Msg("New trading day, daily risk state reset")
	return true
}

func (m *SafetyMonitor) resetDayLocked(equity float64) {
	m.dailyPnL = 0
	m.lossStreak = 0
	m.disabled = false
	m.reason = ""
	m.equityAtOpen = equity
	m.metrics.state.WithLabelValues(m.market).Set(0)
}

func (m *SafetyMonitor) disable(reason string, value float64) {
	if m.disabled {
		return
	}
	m.disabled = true
	m.reason = reason
	m.metrics.state.WithLabelValues(m.market).Set(1)
	m.metrics.trips.WithLabelValues(m.market, reason).Inc()
	m.logger.Warn().
		Str("market", m.market).
		Str("reason", reason).
		Float64("value", value).
		Msg("Safety monitor tripped, trading disabled")
}

// dayStart returns the start of now's trading day in tz.
func dayStart(now time.Time, tz *time.Location) time.Time {
	local := now.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// sameTradingDay reports whether both instants fall on the same
// calendar day in tz.
func sameTradingDay(a, b time.Time, tz *time.Location) bool {
	al, bl := a.In(tz), b.In(tz)
	ay, am, ad := al.Date()
	by, bm, bd := bl.Date()
	return ay == by && am == bm && ad == bd
}
