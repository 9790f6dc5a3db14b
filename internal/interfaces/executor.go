package interfaces

import (
	"context"

	"nado-trading-bot/internal/types"
)

// Executor turns accepted decisions and closed positions into orders.
type Executor interface {
	Submit(ctx context.Context, d types.DecisionResult) error
	ClosePosition(ctx context.Context, cp types.ClosedPosition) error
}
