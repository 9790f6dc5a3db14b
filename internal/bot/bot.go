// Package bot runs the evaluation and monitoring loops.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/logger"
	"nado-trading-bot/internal/position"
	"nado-trading-bot/internal/types"
)

type Options struct {
	EvaluationInterval time.Duration
	MonitorInterval    time.Duration
	MaxPositions       int
}

// Deps are the collaborators a Bot drives. Journal may be nil.
type Deps struct {
	Collector interfaces.Collector
	Engine    interfaces.Engine
	Book      interfaces.PositionBook
	Feed      interfaces.PriceFeed
	Executor  interfaces.Executor
	Journal   interfaces.Journal
}

type Bot struct {
	opts    Options
	deps    Deps
	perf    *position.Performance
	monitor *position.Monitor
}

// executorCloser forwards closed positions to the executor.
type executorCloser struct{ ex interfaces.Executor }

func (c executorCloser) HandleClose(ctx context.Context, cp types.ClosedPosition) error {
	return c.ex.ClosePosition(ctx, cp)
}

func New(opts Options, deps Deps) (*Bot, error) {
	if opts.EvaluationInterval <= 0 || opts.MonitorInterval <= 0 {
		return nil, fmt.Errorf("intervals must be positive: %w", types.ErrInvalidConfiguration)
	}
	if deps.Collector == nil || deps.Engine == nil || deps.Book == nil || deps.Feed == nil || deps.Executor == nil {
		return nil, fmt.Errorf("bot is missing a collaborator: %w", types.ErrInvalidConfiguration)
	}

	perf := position.NewPerformance()
	handlers := []interfaces.CloseHandler{executorCloser{deps.Executor}, perf}
	if deps.Journal != nil {
		handlers = append(handlers, deps.Journal)
	}
	return &Bot{
		opts:    opts,
		deps:    deps,
		perf:    perf,
		monitor: position.NewMonitor(deps.Book, deps.Feed, opts.MonitorInterval, handlers...),
	}, nil
}

// Run evaluates immediately and then on every evaluation tick while the
// monitor sweeps open positions on its own cadence. It returns nil once
// ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.monitor.Run(gctx)
	})
	g.Go(func() error {
		return b.evaluateLoop(gctx)
	})

	err := g.Wait()
	b.logSummary(context.WithoutCancel(ctx))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (b *Bot) evaluateLoop(ctx context.Context) error {
	t := time.NewTicker(b.opts.EvaluationInterval)
	defer t.Stop()

	for {
		if _, err := b.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.ErrorWithErr(ctx, "Evaluation cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Cycle runs one evaluation pass: collect, evaluate, and open the
// highest-certainty decisions while slots remain.
func (b *Bot) Cycle(ctx context.Context) (types.Batch, error) {
	pcs, err := b.deps.Collector.Collect(ctx)
	if err != nil {
		return types.Batch{}, fmt.Errorf("collect pair contexts: %w", err)
	}

	batch := b.deps.Engine.EvaluateAll(ctx, pcs)
	if b.deps.Journal != nil {
		for _, res := range batch.Results {
			b.deps.Journal.Decision(res)
		}
	}

	for _, d := range batch.Actionable() {
		if b.opts.MaxPositions > 0 && b.deps.Book.Count() >= b.opts.MaxPositions {
			logger.Risk(ctx, d.Pair, "MAX_POSITIONS_REACHED",
				"open", b.deps.Book.Count(),
				"max", b.opts.MaxPositions,
			)
			break
		}
		if err := b.open(ctx, d); err != nil {
			if errors.Is(err, types.ErrMaxPositions) {
				break
			}
			logger.ErrorWithErr(ctx, "Failed to open position", err, "pair", d.Pair, "side", d.Side)
		}
	}
	return batch, nil
}

func (b *Bot) open(ctx context.Context, d types.DecisionResult) error {
	p, err := b.deps.Book.Open(ctx, d)
	if err != nil {
		return err
	}
	if err := b.deps.Executor.Submit(ctx, d); err != nil {
		// The order never reached the venue, so release the slot.
		if _, cerr := b.deps.Book.Close(ctx, d.Pair, types.CloseManual, d.Entry); cerr != nil {
			return errors.Join(err, cerr)
		}
		return fmt.Errorf("submit %s: %w", d.Pair, err)
	}
	if b.deps.Journal != nil {
		b.deps.Journal.Opened(p)
	}
	return nil
}

// Summary returns realized results since the bot started.
func (b *Bot) Summary() position.Summary {
	return b.perf.Summary()
}

func (b *Bot) logSummary(ctx context.Context) {
	s := b.perf.Summary()
	logger.Info(ctx, "Performance summary",
		"trades", s.Trades,
		"wins", s.Wins,
		"losses", s.Losses,
		"win_rate", fmt.Sprintf("%.1f%%", s.WinRate),
		"gross_profit", s.GrossProfit.StringFixed(4),
		"gross_loss", s.GrossLoss.StringFixed(4),
		"fees", s.Fees.StringFixed(4),
		"net_pnl", s.NetPnL.StringFixed(4),
		"max_drawdown", s.MaxDrawdown.StringFixed(4),
		"open_positions", b.deps.Book.Count(),
	)
}
