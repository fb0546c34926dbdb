package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinJR6/LysaraInvestments/internal/config"
)

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		RiskPerTrade:      0.02,
		ATRPeriod:         14,
		VolMultiplier:     3.0,
		MinRewardRisk:     1.5,
		MaxDrawdown:       0.12,
		MaxDailyLoss:      -200,
		MaxLossStreak:     3,
		SentimentCollapse: -0.5,
		VolatilitySpike:   0.1,
		Timezone:          "UTC",
	}
}

func TestSafetyStartsActive(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())

	assert.Equal(t, StateActive, m.State())
	assert.False(t, m.IsDisabled())
	assert.Empty(t, m.Reason())
}

func TestSafetyDrawdownTrips(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())

	m.RecordEquity(10000)
	assert.False(t, m.IsDisabled())

	m.RecordEquity(9000)
	assert.False(t, m.IsDisabled(), "10%% drawdown is inside the 12%% limit")

	m.RecordEquity(8800)
	require.True(t, m.IsDisabled())
	assert.Equal(t, ReasonDrawdown, m.Reason())
}

func TestSafetyDrawdownReferenceIsFirstObservation(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())

	m.RecordEquity(10000)
	m.RecordEquity(12000)
	// 12% off the peak, but only the first observation anchors drawdown
	m.RecordEquity(10560)
	assert.False(t, m.IsDisabled())
}

func TestSafetyLossStreakTrips(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())

	m.RecordResult(-10)
	m.RecordResult(-10)
	assert.False(t, m.IsDisabled())

	m.RecordResult(-10)
	require.True(t, m.IsDisabled())
	assert.Equal(t, ReasonLossStreak, m.Reason())
}

func TestSafetyWinResetsStreak(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())

	m.RecordResult(-10)
	m.RecordResult(-10)
	m.RecordResult(5)
	m.RecordResult(-10)
	m.RecordResult(-10)
	assert.False(t, m.IsDisabled())
}

func TestSafetyDailyLossBudgetTrips(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())

	m.RecordResult(-150)
	m.RecordResult(100)
	m.RecordResult(-90)
	assert.False(t, m.IsDisabled(), "net -140 is inside the -200 budget")

	m.RecordResult(-60)
	require.True(t, m.IsDisabled())
	assert.Equal(t, ReasonDailyLoss, m.Reason())
	assert.InDelta(t, -200, m.DailyPnL(), 1e-9)
}

func TestSafetyLatchIsSticky(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())

	m.NoteSentimentShift(-0.6)
	require.True(t, m.IsDisabled())
	assert.Equal(t, ReasonSentimentCollapse, m.Reason())

	// recoveries do not re-arm the latch
	m.RecordResult(500)
	m.RecordEquity(20000)
	m.NoteSentimentShift(0.9)
	assert.True(t, m.IsDisabled())
	assert.Equal(t, ReasonSentimentCollapse, m.Reason(), "first trip reason wins")
}

func TestSafetyFastTriggers(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())
	m.NoteVolatility(0.05)
	assert.False(t, m.IsDisabled())
	m.NoteVolatility(0.15)
	require.True(t, m.IsDisabled())
	assert.Equal(t, ReasonVolatilitySpike, m.Reason())

	m2 := NewSafetyMonitor("forex", testRiskConfig())
	m2.NoteSentimentShift(-0.4)
	assert.False(t, m2.IsDisabled())
	m2.NoteSentimentShift(-0.5)
	assert.True(t, m2.IsDisabled())
}

func TestSafetyResetDayReArms(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())

	m.RecordResult(-300)
	require.True(t, m.IsDisabled())

	m.ResetDay(9700)
	assert.False(t, m.IsDisabled())
	assert.InDelta(t, 0.0, m.DailyPnL(), 1e-9)
	assert.InDelta(t, 9700.0, m.EquityAtOpen(), 1e-9)
}

func TestSafetyResetDayKeepsDrawdownReference(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())

	m.RecordEquity(10000)
	m.ResetDay(8800)

	// drawdown still measured from the original reference
	m.RecordEquity(8800)
	assert.True(t, m.IsDisabled())
	assert.Equal(t, ReasonDrawdown, m.Reason())
}

func TestSafetyRollover(t *testing.T) {
	m := NewSafetyMonitor("crypto", testRiskConfig())
	m.RecordResult(-300)
	require.True(t, m.IsDisabled())

	now := time.Now().UTC()
	assert.False(t, m.RolloverIfNeeded(now, 9700), "same day, no rollover")
	assert.True(t, m.IsDisabled())

	// noon of the next trading day, so the follow-up hour stays inside it
	tomorrow := dayStart(now, time.UTC).Add(36 * time.Hour)
	assert.True(t, m.RolloverIfNeeded(tomorrow, 9700))
	assert.False(t, m.IsDisabled())
	assert.InDelta(t, 0.0, m.DailyPnL(), 1e-9)

	// a second call within the new day is a no-op
	assert.False(t, m.RolloverIfNeeded(tomorrow.Add(time.Hour), 9800))
}

func TestSafetyUnknownTimezoneFallsBack(t *testing.T) {
	cfg := testRiskConfig()
	cfg.Timezone = "Mars/Olympus_Mons"

	m := NewSafetyMonitor("crypto", cfg)
	assert.Equal(t, StateActive, m.State())
}
