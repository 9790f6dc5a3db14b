package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"nado-trading-bot/internal/decision"
	"nado-trading-bot/internal/decision/decisionobs"
	"nado-trading-bot/internal/executor"
	"nado-trading-bot/internal/executor/executorobs"
	"nado-trading-bot/internal/feed"
	"nado-trading-bot/internal/feed/kite"
	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/logger"
	"nado-trading-bot/internal/pricing"
	"nado-trading-bot/internal/store"
	"nado-trading-bot/internal/trace"
	"nado-trading-bot/internal/tradelog"
)

// initializeSystem loads .env and sets up logging and tracing
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", configPath)
		return nil, err
	}
	return cfg, nil
}

func initializeCalculator(cfg *store.Config) (*pricing.Calculator, error) {
	return pricing.New(
		decimal.NewFromFloat(cfg.Trading.VolumeOrder),
		cfg.Trading.MaxPercentLoss.Decimal(),
		cfg.Trading.MaxPercentProfit.Decimal(),
	)
}

// initializeEngine builds the decision engine with observability
func initializeEngine(cfg *store.Config, positions interfaces.OpenPositions) (interfaces.Engine, error) {
	calc, err := initializeCalculator(cfg)
	if err != nil {
		return nil, err
	}
	eng, err := decision.New(decision.Config{
		Threshold:   float64(cfg.Trading.Certainty),
		UniqueTrend: cfg.UniqueTrend(),
		Concurrency: cfg.Runtime.Concurrency,
	}, calc, positions)
	if err != nil {
		return nil, err
	}
	return decisionobs.Wrap(eng), nil
}

func initializeSnapshot(cfg *store.Config, path string) *feed.Snapshot {
	if path == "" {
		path = cfg.Feed.SnapshotPath
	}
	return feed.NewSnapshot(path, cfg.Trading.Pairs, cfg.Fees.Maker.Decimal(), cfg.Fees.Taker.Decimal())
}

// initializePriceFeed returns the mark price source for the monitor
func initializePriceFeed(ctx context.Context, cfg *store.Config, snapshot *feed.Snapshot) (interfaces.PriceFeed, error) {
	if cfg.Feed.Source != "KITE" {
		logger.Info(ctx, "Using snapshot mark prices", "path", cfg.Feed.SnapshotPath)
		return snapshot, nil
	}

	maxAge := 3 * time.Duration(cfg.Runtime.MonitorSeconds) * time.Second
	f := kite.New(os.Getenv("KITE_API_KEY"), os.Getenv("KITE_ACCESS_TOKEN"), cfg.Feed.KiteTokens, maxAge)
	if err := f.Start(ctx); err != nil {
		return nil, fmt.Errorf("start kite feed: %w", err)
	}
	logger.Info(ctx, "Using LIVE mark prices from Kite ticker", "tokens", len(cfg.Feed.KiteTokens))
	return f, nil
}

// initializeExecutor returns the order executor with observability
func initializeExecutor(ctx context.Context, cfg *store.Config) (interfaces.Executor, error) {
	if cfg.Mode != "DRY_RUN" {
		return nil, errors.New("LIVE mode needs an external order executor; only DRY_RUN is built in")
	}
	logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	return executorobs.Wrap(executor.NewPaper()), nil
}

func initializeJournal(ctx context.Context, cfg *store.Config) (*tradelog.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	j, err := tradelog.Open(cfg.Journal.Dir)
	if err != nil {
		return nil, fmt.Errorf("open trade journal: %w", err)
	}
	if err := j.CompressOlder(cfg.Journal.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
	return j, nil
}

// serveMetrics exposes /metrics until ctx is done
func serveMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		logger.Info(ctx, "Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "Metrics server stopped", err)
		}
	}()
}
