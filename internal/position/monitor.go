package position

import (
	"context"
	"errors"
	"time"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/logger"
	"nado-trading-bot/internal/types"
)

// Monitor ticks every open position against the feed on a fixed interval.
type Monitor struct {
	book     interfaces.PositionBook
	feed     interfaces.PriceFeed
	handlers []interfaces.CloseHandler
	interval time.Duration
}

func NewMonitor(book interfaces.PositionBook, feed interfaces.PriceFeed, interval time.Duration, handlers ...interfaces.CloseHandler) *Monitor {
	return &Monitor{book: book, feed: feed, handlers: handlers, interval: interval}
}

// Run sweeps until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	t := time.NewTicker(m.interval)
	defer t.Stop()

	logger.Info(ctx, "Position monitor started", "interval", m.interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Position monitor stopped")
			return ctx.Err()
		case <-t.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep ticks each open pair once and returns the positions it closed.
// A pair whose price cannot be fetched is skipped until the next sweep.
func (m *Monitor) Sweep(ctx context.Context) []types.ClosedPosition {
	var closed []types.ClosedPosition
	for _, pair := range m.book.ListOpen() {
		if ctx.Err() != nil {
			break
		}
		price, err := m.feed.MarkPrice(ctx, pair)
		if err != nil {
			logger.Warn(ctx, "Mark price unavailable", "pair", pair, "error", err.Error())
			continue
		}
		cp, ok, err := m.book.Tick(ctx, pair, price)
		if err != nil {
			if !errors.Is(err, types.ErrPositionNotFound) {
				logger.ErrorWithErr(ctx, "Position tick failed", err, "pair", pair, "price", price.String())
			}
			continue
		}
		if !ok {
			continue
		}
		closed = append(closed, cp)
		m.dispatch(ctx, cp)
	}
	return closed
}

func (m *Monitor) dispatch(ctx context.Context, cp types.ClosedPosition) {
	for _, h := range m.handlers {
		if err := h.HandleClose(ctx, cp); err != nil {
			logger.ErrorWithErr(ctx, "Close handler failed", err, "pair", cp.Pair, "position_id", cp.ID)
		}
	}
}
