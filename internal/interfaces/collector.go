package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"nado-trading-bot/internal/types"
)

// Collector supplies one PairContext per pair per evaluation cycle.
type Collector interface {
	Collect(ctx context.Context) ([]types.PairContext, error)
}

// PriceFeed supplies the current mark price per pair per monitoring tick.
type PriceFeed interface {
	MarkPrice(ctx context.Context, pair string) (decimal.Decimal, error)
}
