package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Trading    TradingConfig    `mapstructure:"trading"`
	Signals    SignalsConfig    `mapstructure:"signals"`
	Sentiment  SentimentConfig  `mapstructure:"sentiment"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Exchange   ExchangeConfig   `mapstructure:"exchange"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// TradingConfig contains trading loop settings
type TradingConfig struct {
	Mode             string   `mapstructure:"mode"`   // "paper" or "live"
	Market           string   `mapstructure:"market"` // "crypto", "forex", "stocks"
	Symbols          []string `mapstructure:"symbols"`
	IntervalSeconds  int      `mapstructure:"interval_seconds"`  // time between decision cycles
	CooldownSeconds  int      `mapstructure:"cooldown_seconds"`  // min seconds between orders per symbol
	ApprovalRequired bool     `mapstructure:"approval_required"` // human-in-the-loop gate
	HistorySize      int      `mapstructure:"history_size"`      // price points retained per symbol
}

// SignalsConfig contains fusion and decision weights/thresholds
type SignalsConfig struct {
	TechWeight          float64 `mapstructure:"tech_weight"`
	SentWeight          float64 `mapstructure:"sent_weight"`
	MarketWeight        float64 `mapstructure:"market_weight"`
	SentimentWeight     float64 `mapstructure:"sentiment_weight"` // decision composite
	TechnicalWeight     float64 `mapstructure:"technical_weight"` // decision composite
	BuyThreshold        float64 `mapstructure:"buy_threshold"`
	SellThreshold       float64 `mapstructure:"sell_threshold"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	StopLossPct         float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct       float64 `mapstructure:"take_profit_pct"`
}

// SentimentConfig contains sentiment blending settings
type SentimentConfig struct {
	SourceWeights map[string]float64 `mapstructure:"source_weights"` // reddit/news/etc.
	HalfLifeHours float64            `mapstructure:"half_life_hours"`
	CacheTTL      time.Duration      `mapstructure:"cache_ttl"`
}

// RiskConfig contains sizing and safety settings
type RiskConfig struct {
	RiskPerTrade        float64 `mapstructure:"risk_per_trade"`        // 0.02 (2% of equity)
	ATRPeriod           int     `mapstructure:"atr_period"`            // 14
	VolMultiplier       float64 `mapstructure:"vol_multiplier"`        // 3.0
	MinRewardRisk       float64 `mapstructure:"min_reward_risk"`       // 1.5
	MaxDrawdown         float64 `mapstructure:"max_drawdown"`          // 0.12 (12%)
	MaxDailyLoss        float64 `mapstructure:"max_daily_loss"`        // -200 (signed currency amount)
	MaxLossStreak       int     `mapstructure:"max_loss_streak"`       // 3
	SentimentCollapse   float64 `mapstructure:"sentiment_collapse"`    // -0.5 (delta that trips the latch)
	VolatilitySpike     float64 `mapstructure:"volatility_spike"`      // 0.1 (fractional move that trips the latch)
	Timezone            string  `mapstructure:"timezone"`              // trading-day boundary for daily reset
	RetryMaxAttempts    int     `mapstructure:"retry_max_attempts"`    // exchange retry bound
	RetryInitialSeconds int     `mapstructure:"retry_initial_seconds"` // backoff base
	RetryMaxSeconds     int     `mapstructure:"retry_max_seconds"`     // backoff cap
}

// ExchangeConfig contains exchange client settings
type ExchangeConfig struct {
	Name              string  `mapstructure:"name"` // "binance"
	APIKey            string  `mapstructure:"api_key"`
	SecretKey         string  `mapstructure:"secret_key"`
	Testnet           bool    `mapstructure:"testnet"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"` // shared account-level limit
	InitialEquity     float64 `mapstructure:"initial_equity"`      // paper-trading starting balance
}

// DatabaseConfig contains PostgreSQL settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisConfig contains Redis settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("LYSARA")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "LysaraInvestments")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Trading defaults
	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.market", "crypto")
	v.SetDefault("trading.symbols", []string{"BTC-USD", "ETH-USD"})
	v.SetDefault("trading.interval_seconds", 10)
	v.SetDefault("trading.cooldown_seconds", 30)
	v.SetDefault("trading.approval_required", false)
	v.SetDefault("trading.history_size", 100)

	// Signals defaults
	v.SetDefault("signals.tech_weight", 0.5)
	v.SetDefault("signals.sent_weight", 0.3)
	v.SetDefault("signals.market_weight", 0.2)
	v.SetDefault("signals.sentiment_weight", 0.6)
	v.SetDefault("signals.technical_weight", 0.4)
	v.SetDefault("signals.buy_threshold", 0.2)
	v.SetDefault("signals.sell_threshold", -0.2)
	v.SetDefault("signals.confidence_threshold", 0.7)
	v.SetDefault("signals.stop_loss_pct", 0.01)
	v.SetDefault("signals.take_profit_pct", 0.02)

	// Sentiment defaults
	v.SetDefault("sentiment.source_weights", map[string]float64{
		"reddit": 0.2,
		"news":   0.5,
		"social": 0.3,
	})
	v.SetDefault("sentiment.half_life_hours", 6.0)
	v.SetDefault("sentiment.cache_ttl", "5m")

	// Risk defaults
	v.SetDefault("risk.risk_per_trade", 0.02)
	v.SetDefault("risk.atr_period", 14)
	v.SetDefault("risk.vol_multiplier", 3.0)
	v.SetDefault("risk.min_reward_risk", 1.5)
	v.SetDefault("risk.max_drawdown", 0.12)
	v.SetDefault("risk.max_daily_loss", -200.0)
	v.SetDefault("risk.max_loss_streak", 3)
	v.SetDefault("risk.sentiment_collapse", -0.5)
	v.SetDefault("risk.volatility_spike", 0.1)
	v.SetDefault("risk.timezone", "UTC")
	v.SetDefault("risk.retry_max_attempts", 4)
	v.SetDefault("risk.retry_initial_seconds", 1)
	v.SetDefault("risk.retry_max_seconds", 32)

	// Exchange defaults
	v.SetDefault("exchange.name", "binance")
	v.SetDefault("exchange.testnet", true)
	v.SetDefault("exchange.requests_per_second", 5.0)
	v.SetDefault("exchange.initial_equity", 10000.0)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "lysara")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)
}

// Validate checks configuration invariants that would otherwise surface
// as silent mis-trading at runtime
func (c *Config) Validate() error {
	if c.Trading.Mode != "paper" && c.Trading.Mode != "live" {
		return fmt.Errorf("trading.mode must be \"paper\" or \"live\", got %q", c.Trading.Mode)
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols must not be empty")
	}
	if c.Trading.IntervalSeconds <= 0 {
		return fmt.Errorf("trading.interval_seconds must be positive, got %d", c.Trading.IntervalSeconds)
	}
	if c.Trading.CooldownSeconds < 0 {
		return fmt.Errorf("trading.cooldown_seconds must not be negative, got %d", c.Trading.CooldownSeconds)
	}
	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 1 {
		return fmt.Errorf("risk.risk_per_trade must be in (0, 1], got %f", c.Risk.RiskPerTrade)
	}
	if c.Risk.MaxDrawdown <= 0 || c.Risk.MaxDrawdown >= 1 {
		return fmt.Errorf("risk.max_drawdown must be in (0, 1), got %f", c.Risk.MaxDrawdown)
	}
	if c.Risk.MaxLossStreak < 1 {
		return fmt.Errorf("risk.max_loss_streak must be at least 1, got %d", c.Risk.MaxLossStreak)
	}
	if c.Risk.RetryMaxAttempts < 1 {
		return fmt.Errorf("risk.retry_max_attempts must be at least 1, got %d", c.Risk.RetryMaxAttempts)
	}
	if c.Signals.BuyThreshold <= c.Signals.SellThreshold {
		return fmt.Errorf("signals.buy_threshold (%f) must exceed signals.sell_threshold (%f)",
			c.Signals.BuyThreshold, c.Signals.SellThreshold)
	}
	if c.Trading.Mode == "live" && (c.Exchange.APIKey == "" || c.Exchange.SecretKey == "") {
		return fmt.Errorf("live trading requires exchange.api_key and exchange.secret_key")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Interval returns the decision cycle interval as a duration
func (c *TradingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Cooldown returns the per-symbol trade cooldown as a duration
func (c *TradingConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}
