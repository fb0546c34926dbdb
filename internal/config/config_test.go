package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, cfg.Trading.Symbols)
	assert.Equal(t, 10, cfg.Trading.IntervalSeconds)
	assert.Equal(t, 30, cfg.Trading.CooldownSeconds)
	assert.False(t, cfg.Trading.ApprovalRequired)

	assert.InDelta(t, 0.5, cfg.Signals.TechWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Signals.SentWeight, 1e-9)
	assert.InDelta(t, 0.2, cfg.Signals.MarketWeight, 1e-9)
	assert.InDelta(t, 0.6, cfg.Signals.SentimentWeight, 1e-9)
	assert.InDelta(t, 0.4, cfg.Signals.TechnicalWeight, 1e-9)
	assert.InDelta(t, 0.2, cfg.Signals.BuyThreshold, 1e-9)
	assert.InDelta(t, -0.2, cfg.Signals.SellThreshold, 1e-9)

	assert.InDelta(t, 0.02, cfg.Risk.RiskPerTrade, 1e-9)
	assert.InDelta(t, -200.0, cfg.Risk.MaxDailyLoss, 1e-9)
	assert.Equal(t, 3, cfg.Risk.MaxLossStreak)
	assert.Equal(t, 4, cfg.Risk.RetryMaxAttempts)

	assert.InDelta(t, 0.5, cfg.Sentiment.SourceWeights["news"], 1e-9)
	assert.InDelta(t, 10000.0, cfg.Exchange.InitialEquity, 1e-9)
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Trading.Mode = "yolo"
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "trading.mode")
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Signals.BuyThreshold = -0.3
	cfg.Signals.SellThreshold = 0.3
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "buy_threshold")
}

func TestValidateLiveRequiresKeys(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Trading.Mode = "live"
	cfg.Exchange.APIKey = ""
	err = cfg.Validate()
	assert.Error(t, err)

	cfg.Exchange.APIKey = "key"
	cfg.Exchange.SecretKey = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsZeroInterval(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Trading.IntervalSeconds = 0
	assert.Error(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	tc := TradingConfig{IntervalSeconds: 15, CooldownSeconds: 45}
	assert.Equal(t, "15s", tc.Interval().String())
	assert.Equal(t, "45s", tc.Cooldown().String())
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "pw",
		Database: "lysara",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=lysara sslmode=disable",
		db.GetDSN())
}
