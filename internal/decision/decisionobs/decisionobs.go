package decisionobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/logger"
	"nado-trading-bot/internal/trace"
	"nado-trading-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Evaluate(ctx context.Context, pc types.PairContext) (types.DecisionResult, error) {
	ctx, span := trace.StartSpan(ctx, "decision.Evaluate")
	defer span.End()

	start := time.Now()

	res, err := oe.engine.Evaluate(ctx, pc)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Pair evaluation failed", err,
			"pair", pc.Pair,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return res, err
	}

	logger.DebugSkip(ctx, 1, "Pair evaluated",
		"pair", res.Pair,
		"side", res.Side,
		"reason", res.Reason,
		"certainty", res.Certainty,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (oe *observableEngine) EvaluateAll(ctx context.Context, pcs []types.PairContext) types.Batch {
	ctx, span := trace.StartSpan(ctx, "decision.EvaluateAll")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting evaluation cycle",
		"pairs", len(pcs),
	)

	b := oe.engine.EvaluateAll(ctx, pcs)

	for _, f := range b.Failures {
		logger.ErrorWithErrSkip(ctx, 1, "Pair evaluation failed", f.Err,
			"pair", f.Pair,
			"index", f.Index,
		)
	}

	actionable := b.Actionable()
	trace.AddEvent(ctx, "evaluation.completed",
		attribute.Int("results", len(b.Results)),
		attribute.Int("actionable", len(actionable)),
		attribute.Int("failures", len(b.Failures)),
	)

	logger.InfoSkip(ctx, 1, "Evaluation cycle completed",
		"results", len(b.Results),
		"actionable", len(actionable),
		"failures", len(b.Failures),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return b
}
