package executorobs

import (
	"context"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/logger"
	"nado-trading-bot/internal/trace"
	"nado-trading-bot/internal/types"
)

// observableExecutor wraps an Executor with logging and tracing
type observableExecutor struct {
	executor interfaces.Executor
}

var _ interfaces.Executor = (*observableExecutor)(nil)

func Wrap(executor interfaces.Executor) interfaces.Executor {
	return &observableExecutor{
		executor: executor,
	}
}

func (oe *observableExecutor) Submit(ctx context.Context, d types.DecisionResult) error {
	ctx, span := trace.StartSpan(ctx, "executor.Submit")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Submitting order", "pair", d.Pair, "side", d.Side, "entry", d.Entry.String())

	if err := oe.executor.Submit(ctx, d); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to submit order", err, "pair", d.Pair, "side", d.Side)
		return err
	}

	logger.DebugSkip(ctx, 1, "Order submitted", "pair", d.Pair, "side", d.Side)
	return nil
}

func (oe *observableExecutor) ClosePosition(ctx context.Context, cp types.ClosedPosition) error {
	ctx, span := trace.StartSpan(ctx, "executor.ClosePosition")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Closing position", "pair", cp.Pair, "reason", cp.CloseReason)

	if err := oe.executor.ClosePosition(ctx, cp); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to close position", err, "pair", cp.Pair, "position_id", cp.ID)
		return err
	}

	logger.DebugSkip(ctx, 1, "Position close sent", "pair", cp.Pair, "exit", cp.ExitPrice.String())
	return nil
}
