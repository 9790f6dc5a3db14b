// Package decision turns scored pair snapshots into priced, filtered
// trade decisions.
package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/logger"
	"nado-trading-bot/internal/metrics"
	"nado-trading-bot/internal/pricing"
	"nado-trading-bot/internal/scoring"
	"nado-trading-bot/internal/types"
)

// Config holds the acceptance policy.
type Config struct {
	// Threshold is the minimum certainty, in percent, for an actionable decision.
	Threshold float64
	// UniqueTrend restricts actionable decisions to one side. SideNone allows both.
	UniqueTrend types.Side
	// Concurrency bounds how many pairs EvaluateAll scores at once.
	Concurrency int
}

func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("certainty threshold %.2f outside 0-100: %w", c.Threshold, types.ErrInvalidConfiguration)
	}
	switch c.UniqueTrend {
	case types.SideNone, types.SideLong, types.SideShort:
	default:
		return fmt.Errorf("unique trend %q: %w", c.UniqueTrend, types.ErrInvalidConfiguration)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency %d: %w", c.Concurrency, types.ErrInvalidConfiguration)
	}
	return nil
}

type Engine struct {
	cfg       Config
	calc      *pricing.Calculator
	positions interfaces.OpenPositions
	now       func() time.Time
}

var _ interfaces.Engine = (*Engine)(nil)

// New builds an engine. positions may be nil, in which case no pair is
// treated as already open.
func New(cfg Config, calc *pricing.Calculator, positions interfaces.OpenPositions) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if calc == nil {
		return nil, fmt.Errorf("nil price calculator: %w", types.ErrInvalidConfiguration)
	}
	return &Engine{cfg: cfg, calc: calc, positions: positions, now: time.Now}, nil
}

// Evaluate scores one pair and, when the decision passes the acceptance
// policy, prices it.
func (e *Engine) Evaluate(ctx context.Context, pc types.PairContext) (types.DecisionResult, error) {
	if err := ctx.Err(); err != nil {
		return types.DecisionResult{}, err
	}

	v, err := scoring.Evaluate(pc.Indicators)
	if err != nil {
		metrics.EvaluationErrors.WithLabelValues(errorKind(err)).Inc()
		return types.DecisionResult{}, fmt.Errorf("pair %s: %w", pc.Pair, err)
	}

	res := types.DecisionResult{
		Pair:        pc.Pair,
		Side:        types.SideNone,
		LongScore:   v.Long.Percent,
		ShortScore:  v.Short.Percent,
		Certainty:   v.Certainty,
		EvaluatedAt: e.now(),
	}

	switch {
	case v.Side == types.SideNone:
		res.Reason = types.ReasonTie
	case e.positions != nil && e.positions.IsOpen(pc.Pair):
		res.Reason = types.ReasonAlreadyOpen
	case v.Certainty < e.cfg.Threshold:
		res.Reason = types.ReasonBelowThreshold
	case e.cfg.UniqueTrend != types.SideNone && v.Side != e.cfg.UniqueTrend:
		res.Reason = types.ReasonUniqueTrend
	default:
		p, err := e.calc.Calculate(pc, v.Side)
		if err != nil {
			metrics.EvaluationErrors.WithLabelValues(errorKind(err)).Inc()
			return types.DecisionResult{}, err
		}
		res.Side = p.Side
		res.Reason = types.ReasonAccepted
		res.Entry = p.Entry
		res.StopLoss = p.StopLoss
		res.TakeProfit = p.TakeProfit
		res.Quantity = p.Quantity
		res.Risk = p.Risk
		res.Reward = p.Reward
		res.RiskReward = p.RiskReward
		res.FeeOpen = p.FeeOpen
		res.FeeClose = p.FeeClose
	}

	metrics.DecisionsTotal.WithLabelValues(string(res.Side), res.Reason).Inc()
	metrics.CertaintyHistogram.WithLabelValues(string(v.Side)).Observe(res.Certainty)

	if res.Actionable() {
		logger.Decision(ctx, res.Pair, string(res.Side), res.Certainty, res.Reason,
			"long_score", res.LongScore,
			"short_score", res.ShortScore,
			"entry", res.Entry.String(),
			"stop_loss", res.StopLoss.String(),
			"take_profit", res.TakeProfit.String(),
			"quantity", res.Quantity.String(),
			"risk_reward", res.RiskReward.StringFixed(3),
			"long_hits", v.Long.Hits,
			"short_hits", v.Short.Hits,
		)
	} else {
		logger.Debug(ctx, "Pair skipped",
			"pair", res.Pair,
			"reason", res.Reason,
			"favored", v.Side,
			"certainty", res.Certainty,
		)
	}
	return res, nil
}

// EvaluateAll evaluates every pair concurrently. A failing pair never
// aborts the others. When ctx is cancelled, pairs not yet evaluated are
// reported as failures carrying the context error and finished results
// are kept.
func (e *Engine) EvaluateAll(ctx context.Context, pcs []types.PairContext) types.Batch {
	results := make([]types.DecisionResult, len(pcs))
	errs := make([]error, len(pcs))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i := range pcs {
		i := i
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			results[i], errs[i] = e.Evaluate(ctx, pcs[i])
			return nil
		})
	}
	_ = g.Wait()

	var b types.Batch
	for i := range pcs {
		if errs[i] != nil {
			b.Failures = append(b.Failures, types.PairFailure{Pair: pcs[i].Pair, Index: i, Err: errs[i]})
			continue
		}
		b.Results = append(b.Results, results[i])
	}
	return b
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, types.ErrMissingIndicatorData):
		return "missing_data"
	case errors.Is(err, types.ErrDegenerateInput):
		return "degenerate"
	case errors.Is(err, types.ErrInvalidConfiguration):
		return "invalid_config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
