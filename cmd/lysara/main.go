package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/AustinJR6/LysaraInvestments/internal/agent"
	"github.com/AustinJR6/LysaraInvestments/internal/config"
	"github.com/AustinJR6/LysaraInvestments/internal/decision"
	"github.com/AustinJR6/LysaraInvestments/internal/exchange"
	"github.com/AustinJR6/LysaraInvestments/internal/executor"
	"github.com/AustinJR6/LysaraInvestments/internal/market"
	"github.com/AustinJR6/LysaraInvestments/internal/risk"
	"github.com/AustinJR6/LysaraInvestments/internal/signals"
	"github.com/AustinJR6/LysaraInvestments/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	log.Info().
		Str("mode", cfg.Trading.Mode).
		Str("market", cfg.Trading.Market).
		Strs("symbols", cfg.Trading.Symbols).
		Dur("interval", cfg.Trading.Interval()).
		Msg("Starting Lysara trading engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence. Live trading refuses to run without it; paper mode
	// degrades to in-memory only.
	var db *store.Store
	if s, err := store.New(ctx, cfg.Database.GetDSN(), cfg.Database.PoolSize); err != nil {
		if cfg.Trading.Mode == "live" {
			log.Fatal().Err(err).Msg("Database required for live trading")
		}
		log.Warn().Err(err).Msg("Database unavailable, running without persistence")
	} else {
		db = s
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
	}

	// Sentiment cache. Collectors populate it out of band; without
	// Redis the fusion engine simply sees no sentiment.
	var sentiment agent.SentimentSource
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cache := market.NewSentimentCache(redisClient, cfg.Sentiment.CacheTTL)
	if err := cache.Health(ctx); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without sentiment")
	} else {
		sentiment = cache
	}

	exch, err := buildExchange(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exchange client")
	}

	retryCfg := exchange.RetryConfig{
		MaxAttempts:    cfg.Risk.RetryMaxAttempts,
		InitialBackoff: time.Duration(cfg.Risk.RetryInitialSeconds) * time.Second,
		MaxBackoff:     time.Duration(cfg.Risk.RetryMaxSeconds) * time.Second,
		BackoffFactor:  2.0,
	}
	limiter := exchange.NewAccountLimiter(cfg.Exchange.RequestsPerSecond)

	safety := risk.NewSafetyMonitor(cfg.Trading.Market, cfg.Risk).
		WithLogger(config.NewLogger("safety"))
	if cfg.Trading.Mode == "paper" {
		// The paper balance is known up front. In live mode the
		// drawdown baseline must be the first real balance observed,
		// so seeding with a configured constant would either trip the
		// breaker spuriously or mask real losses.
		safety.RecordEquity(cfg.Exchange.InitialEquity)
	}

	gate := executor.New(executor.Config{
		Market:           cfg.Trading.Market,
		Cooldown:         cfg.Trading.Cooldown(),
		ApprovalRequired: cfg.Trading.ApprovalRequired,
		RiskPerTrade:     cfg.Risk.RiskPerTrade,
		MinRewardRisk:    cfg.Risk.MinRewardRisk,
		Retry:            retryCfg,
	}, exch, limiter, safety,
		risk.NewSizer(cfg.Risk.ATRPeriod, cfg.Risk.VolMultiplier).WithLogger(config.NewLogger("sizer")),
		tradeLog(db),
	).WithLogger(config.NewLogger("executor"))

	loop := agent.NewLoop(agent.Config{
		Market:   cfg.Trading.Market,
		Symbols:  cfg.Trading.Symbols,
		Interval: cfg.Trading.Interval(),
	}, agent.Deps{
		Exchange:  exch,
		Limiter:   limiter,
		History:   market.NewHistory(cfg.Trading.HistorySize),
		Sentiment: sentiment,
		Fusion:    signals.NewEngine(cfg.Signals, cfg.Sentiment).WithLogger(config.NewLogger("signals")),
		Decider:   decision.NewEngine(cfg.Trading.Market, cfg.Signals, nil).WithLogger(config.NewLogger("decision")),
		Safety:    safety,
		Gate:      gate,
		Store:     persister(db),
	}).WithLogger(config.NewStrategyLogger("fusion", cfg.Trading.Market))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(ctx)
	})

	if cfg.Monitoring.EnableMetrics {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.Monitoring.PrometheusPort)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Engine stopped with error")
		os.Exit(1)
	}

	log.Info().Msg("Shutdown complete")
}

func buildExchange(cfg *config.Config) (exchange.Exchange, error) {
	if cfg.Trading.Mode == "paper" {
		return exchange.NewPaperExchange(cfg.Exchange.InitialEquity), nil
	}

	return exchange.NewBinanceExchange(exchange.BinanceConfig{
		APIKey:    cfg.Exchange.APIKey,
		SecretKey: cfg.Exchange.SecretKey,
		Testnet:   cfg.Exchange.Testnet,
		RetryConfig: exchange.RetryConfig{
			MaxAttempts:    cfg.Risk.RetryMaxAttempts,
			InitialBackoff: time.Duration(cfg.Risk.RetryInitialSeconds) * time.Second,
			MaxBackoff:     time.Duration(cfg.Risk.RetryMaxSeconds) * time.Second,
			BackoffFactor:  2.0,
		},
	})
}

// tradeLog and persister keep a nil *store.Store from becoming a
// non-nil interface.
func tradeLog(db *store.Store) executor.TradeLog {
	if db == nil {
		return nil
	}
	return db
}

func persister(db *store.Store) agent.Persister {
	if db == nil {
		return nil
	}
	return db
}

func serveMetrics(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", port).Msg("Metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
