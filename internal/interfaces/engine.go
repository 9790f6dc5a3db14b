package interfaces

import (
	"context"

	"nado-trading-bot/internal/types"
)

type Engine interface {
	Evaluate(ctx context.Context, pc types.PairContext) (types.DecisionResult, error)
	EvaluateAll(ctx context.Context, pcs []types.PairContext) types.Batch
}
