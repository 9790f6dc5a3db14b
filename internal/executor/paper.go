// Package executor turns accepted decisions and closed positions into
// orders. Only the simulated DRY_RUN executor lives here.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/logger"
	"nado-trading-bot/internal/metrics"
	"nado-trading-bot/internal/types"
)

type OrderKind string

const (
	OrderOpen  OrderKind = "open"
	OrderClose OrderKind = "close"
)

// Order is a simulated order.
type Order struct {
	ID         string          `json:"id"`
	Kind       OrderKind       `json:"kind"`
	Pair       string          `json:"pair"`
	Side       types.Side      `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	StopLoss   decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit decimal.Decimal `json:"take_profit,omitempty"`
	Reason     string          `json:"reason"`
	At         time.Time       `json:"at"`
}

// Paper records orders in memory and fills them at the requested price.
type Paper struct {
	mu     sync.Mutex
	orders []Order
	now    func() time.Time
}

var (
	_ interfaces.Executor     = (*Paper)(nil)
	_ interfaces.CloseHandler = (*Paper)(nil)
)

func NewPaper() *Paper {
	return &Paper{now: time.Now}
}

func (p *Paper) Submit(ctx context.Context, d types.DecisionResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o := Order{
		ID:         "SIM-" + uuid.NewString(),
		Kind:       OrderOpen,
		Pair:       d.Pair,
		Side:       d.Side,
		Price:      d.Entry,
		Quantity:   d.Quantity,
		StopLoss:   d.StopLoss,
		TakeProfit: d.TakeProfit,
		Reason:     d.Reason,
		At:         p.now(),
	}
	p.record(o)
	metrics.OrdersSubmitted.WithLabelValues(string(d.Side)).Inc()
	logger.Info(ctx, "Simulated order placed",
		"pair", o.Pair,
		"side", o.Side,
		"price", o.Price.String(),
		"quantity", o.Quantity.String(),
		"order_id", o.ID,
	)
	return nil
}

func (p *Paper) ClosePosition(ctx context.Context, cp types.ClosedPosition) error {
	o := Order{
		ID:       "SIM-" + uuid.NewString(),
		Kind:     OrderClose,
		Pair:     cp.Pair,
		Side:     opposite(cp.Side),
		Price:    cp.ExitPrice,
		Quantity: cp.Quantity,
		Reason:   string(cp.CloseReason),
		At:       p.now(),
	}
	p.record(o)
	logger.Info(ctx, "Simulated close placed",
		"pair", o.Pair,
		"side", o.Side,
		"price", o.Price.String(),
		"reason", o.Reason,
		"order_id", o.ID,
	)
	return nil
}

func (p *Paper) HandleClose(ctx context.Context, cp types.ClosedPosition) error {
	return p.ClosePosition(ctx, cp)
}

// Orders returns a copy of every order recorded so far.
func (p *Paper) Orders() []Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Order(nil), p.orders...)
}

func (p *Paper) record(o Order) {
	p.mu.Lock()
	p.orders = append(p.orders, o)
	p.mu.Unlock()
}

func opposite(s types.Side) types.Side {
	switch s {
	case types.SideLong:
		return types.SideShort
	case types.SideShort:
		return types.SideLong
	}
	return types.SideNone
}
