package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nado-trading-bot/internal/bot"
	"nado-trading-bot/internal/logger"
	"nado-trading-bot/internal/position"
	"nado-trading-bot/internal/trace"
)

func runBot(cmd *cobra.Command, _ []string) error {
	if err := initializeSystem(); err != nil {
		return err
	}
	defer trace.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	book := position.NewManager(cfg.Trading.MaxPositions)
	eng, err := initializeEngine(cfg, book)
	if err != nil {
		return err
	}
	snapshot := initializeSnapshot(cfg, "")
	prices, err := initializePriceFeed(ctx, cfg, snapshot)
	if err != nil {
		return err
	}
	ex, err := initializeExecutor(ctx, cfg)
	if err != nil {
		return err
	}
	journal, err := initializeJournal(ctx, cfg)
	if err != nil {
		return err
	}

	deps := bot.Deps{
		Collector: snapshot,
		Engine:    eng,
		Book:      book,
		Feed:      prices,
		Executor:  ex,
	}
	if journal != nil {
		defer journal.Close()
		deps.Journal = journal
	}

	b, err := bot.New(bot.Options{
		EvaluationInterval: time.Duration(cfg.Runtime.EvaluationSeconds) * time.Second,
		MonitorInterval:    time.Duration(cfg.Runtime.MonitorSeconds) * time.Second,
		MaxPositions:       cfg.Trading.MaxPositions,
	}, deps)
	if err != nil {
		return err
	}

	serveMetrics(ctx, cfg.Metrics.Addr)

	logger.Info(ctx, "Bot started",
		"mode", cfg.Mode,
		"pairs", cfg.Trading.Pairs,
		"certainty", cfg.Trading.Certainty,
		"unique_trend", cfg.UniqueTrend(),
		"max_positions", cfg.Trading.MaxPositions,
	)
	if err := b.Run(ctx); err != nil {
		return err
	}
	logger.Info(ctx, "Shutting down...")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(b.Summary())
}
