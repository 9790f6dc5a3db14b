// Package position tracks open positions, fires stop-loss and
// take-profit exits, and accounts realized PnL.
package position

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/logger"
	"nado-trading-bot/internal/metrics"
	"nado-trading-bot/internal/types"
)

// Manager holds at most one open position per pair.
type Manager struct {
	mu           sync.RWMutex
	open         map[string]*types.Position
	lastClosed   map[string]types.ClosedPosition
	maxPositions int
	now          func() time.Time
}

var _ interfaces.PositionBook = (*Manager)(nil)

// NewManager returns an empty book. maxPositions <= 0 means no limit.
func NewManager(maxPositions int) *Manager {
	return &Manager{
		open:         make(map[string]*types.Position),
		lastClosed:   make(map[string]types.ClosedPosition),
		maxPositions: maxPositions,
		now:          time.Now,
	}
}

// Open records a position from an actionable decision. Prices and size
// are copied verbatim.
func (m *Manager) Open(ctx context.Context, d types.DecisionResult) (types.Position, error) {
	if !d.Actionable() {
		return types.Position{}, fmt.Errorf("open %s with side %q: %w", d.Pair, d.Side, types.ErrDegenerateInput)
	}
	if !d.Quantity.IsPositive() || !d.Entry.IsPositive() {
		return types.Position{}, fmt.Errorf("open %s: quantity %s entry %s: %w", d.Pair, d.Quantity, d.Entry, types.ErrDegenerateInput)
	}

	m.mu.Lock()
	if _, ok := m.open[d.Pair]; ok {
		m.mu.Unlock()
		logger.Risk(ctx, d.Pair, "DUPLICATE_POSITION_REJECTED", "side", d.Side)
		return types.Position{}, fmt.Errorf("pair %s: %w", d.Pair, types.ErrAlreadyOpen)
	}
	if m.maxPositions > 0 && len(m.open) >= m.maxPositions {
		n := len(m.open)
		m.mu.Unlock()
		logger.Risk(ctx, d.Pair, "MAX_POSITIONS_REACHED", "open", n, "max", m.maxPositions)
		return types.Position{}, fmt.Errorf("pair %s: %d of %d open: %w", d.Pair, n, m.maxPositions, types.ErrMaxPositions)
	}

	p := &types.Position{
		ID:          uuid.NewString(),
		Pair:        d.Pair,
		Side:        d.Side,
		Entry:       d.Entry,
		StopLoss:    d.StopLoss,
		TakeProfit:  d.TakeProfit,
		Quantity:    d.Quantity,
		FeeOpen:     d.FeeOpen,
		FeeClose:    d.FeeClose,
		OpenedAt:    m.now(),
		State:       types.PositionOpen,
		CloseReason: types.CloseNone,
	}
	m.open[d.Pair] = p
	count := len(m.open)
	out := *p
	m.mu.Unlock()

	metrics.PositionsOpen.Set(float64(count))
	logger.Trade(ctx, out.Pair, string(out.Side), "OPENED", out.Entry.String(),
		"position_id", out.ID,
		"stop_loss", out.StopLoss.String(),
		"take_profit", out.TakeProfit.String(),
		"quantity", out.Quantity.String(),
	)
	return out, nil
}

// Tick checks the exit triggers for pair at price. The stop is checked
// before the target, so a price through both closes at stop_loss.
func (m *Manager) Tick(ctx context.Context, pair string, price decimal.Decimal) (types.ClosedPosition, bool, error) {
	if !price.IsPositive() {
		return types.ClosedPosition{}, false, fmt.Errorf("tick %s at %s: %w", pair, price, types.ErrDegenerateInput)
	}

	m.mu.Lock()
	p, ok := m.open[pair]
	if !ok {
		m.mu.Unlock()
		return types.ClosedPosition{}, false, fmt.Errorf("tick %s: %w", pair, types.ErrPositionNotFound)
	}
	reason := trigger(p, price)
	if reason == types.CloseNone {
		m.mu.Unlock()
		return types.ClosedPosition{}, false, nil
	}
	cp := m.closeLocked(p, reason, price)
	m.mu.Unlock()

	m.closed(ctx, cp)
	return cp, true, nil
}

// Close closes pair manually or on behalf of an external trigger.
// Closing an already closed pair returns the recorded close unchanged.
func (m *Manager) Close(ctx context.Context, pair string, reason types.CloseReason, price decimal.Decimal) (types.ClosedPosition, error) {
	if reason == types.CloseNone || reason == "" {
		return types.ClosedPosition{}, fmt.Errorf("close %s without reason: %w", pair, types.ErrDegenerateInput)
	}

	m.mu.Lock()
	p, ok := m.open[pair]
	if !ok {
		prev, seen := m.lastClosed[pair]
		m.mu.Unlock()
		if seen {
			return prev, nil
		}
		return types.ClosedPosition{}, fmt.Errorf("close %s: %w", pair, types.ErrPositionNotFound)
	}
	if !price.IsPositive() {
		m.mu.Unlock()
		return types.ClosedPosition{}, fmt.Errorf("close %s at %s: %w", pair, price, types.ErrDegenerateInput)
	}
	cp := m.closeLocked(p, reason, price)
	m.mu.Unlock()

	m.closed(ctx, cp)
	return cp, nil
}

func (m *Manager) closeLocked(p *types.Position, reason types.CloseReason, price decimal.Decimal) types.ClosedPosition {
	p.State = types.PositionClosed
	p.CloseReason = reason
	p.ClosedAt = m.now()
	p.ExitPrice = price

	cp := Realize(*p)
	delete(m.open, p.Pair)
	m.lastClosed[p.Pair] = cp
	return cp
}

func (m *Manager) closed(ctx context.Context, cp types.ClosedPosition) {
	metrics.PositionsOpen.Set(float64(m.Count()))
	metrics.PositionsClosed.WithLabelValues(string(cp.CloseReason)).Inc()
	logger.Trade(ctx, cp.Pair, string(cp.Side), "CLOSED", cp.ExitPrice.String(),
		"position_id", cp.ID,
		"close_reason", cp.CloseReason,
		"gross_pnl", cp.GrossPnL.StringFixed(4),
		"fees", cp.Fees.StringFixed(4),
		"net_pnl", cp.NetPnL.StringFixed(4),
		"held", cp.ClosedAt.Sub(cp.OpenedAt).String(),
	)
}

func trigger(p *types.Position, price decimal.Decimal) types.CloseReason {
	switch p.Side {
	case types.SideLong:
		if price.LessThanOrEqual(p.StopLoss) {
			return types.CloseStopLoss
		}
		if price.GreaterThanOrEqual(p.TakeProfit) {
			return types.CloseTakeProfit
		}
	case types.SideShort:
		if price.GreaterThanOrEqual(p.StopLoss) {
			return types.CloseStopLoss
		}
		if price.LessThanOrEqual(p.TakeProfit) {
			return types.CloseTakeProfit
		}
	}
	return types.CloseNone
}

// Realize computes PnL for a position with an exit price.
func Realize(p types.Position) types.ClosedPosition {
	gross := p.ExitPrice.Sub(p.Entry).Mul(p.Quantity)
	if p.Side == types.SideShort {
		gross = gross.Neg()
	}
	fees := p.FeeOpen.Add(p.FeeClose)
	return types.ClosedPosition{
		Position: p,
		GrossPnL: gross,
		Fees:     fees,
		NetPnL:   gross.Sub(fees),
	}
}

// ListOpen returns the open pairs in lexical order.
func (m *Manager) ListOpen() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.open))
	for pair := range m.open {
		out = append(out, pair)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) IsOpen(pair string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.open[pair]
	return ok
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.open)
}

// Get returns a copy of the open position for pair.
func (m *Manager) Get(pair string) (types.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.open[pair]
	if !ok {
		return types.Position{}, false
	}
	return *p, true
}
