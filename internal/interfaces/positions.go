package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"nado-trading-bot/internal/types"
)

// OpenPositions is the read-only view of the position book the decision
// engine consults before emitting a decision for a pair.
type OpenPositions interface {
	IsOpen(pair string) bool
	ListOpen() []string
}

type PositionBook interface {
	OpenPositions
	Open(ctx context.Context, d types.DecisionResult) (types.Position, error)
	Tick(ctx context.Context, pair string, price decimal.Decimal) (types.ClosedPosition, bool, error)
	Close(ctx context.Context, pair string, reason types.CloseReason, price decimal.Decimal) (types.ClosedPosition, error)
	Count() int
}

// CloseHandler receives every position that leaves the open set.
type CloseHandler interface {
	HandleClose(ctx context.Context, cp types.ClosedPosition) error
}
