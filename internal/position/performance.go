package position

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"nado-trading-bot/internal/interfaces"
	"nado-trading-bot/internal/metrics"
	"nado-trading-bot/internal/types"
)

// Summary is a snapshot of realized trading results. A trade counts as
// a win when its net PnL is positive and as a loss when it is negative.
type Summary struct {
	Trades      int             `json:"trades"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	WinRate     float64         `json:"win_rate"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	GrossLoss   decimal.Decimal `json:"gross_loss"`
	Fees        decimal.Decimal `json:"fees"`
	NetPnL      decimal.Decimal `json:"net_pnl"`
	MaxDrawdown decimal.Decimal `json:"max_drawdown"`
}

// Performance tallies closed positions.
type Performance struct {
	mu   sync.Mutex
	sum  Summary
	peak decimal.Decimal
}

var _ interfaces.CloseHandler = (*Performance)(nil)

func NewPerformance() *Performance {
	return &Performance{}
}

func (p *Performance) HandleClose(_ context.Context, cp types.ClosedPosition) error {
	p.Record(cp)
	return nil
}

func (p *Performance) Record(cp types.ClosedPosition) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.sum
	s.Trades++
	switch {
	case cp.NetPnL.IsPositive():
		s.Wins++
		s.GrossProfit = s.GrossProfit.Add(cp.NetPnL)
	case cp.NetPnL.IsNegative():
		s.Losses++
		s.GrossLoss = s.GrossLoss.Add(cp.NetPnL.Abs())
	}
	s.Fees = s.Fees.Add(cp.Fees)
	s.NetPnL = s.NetPnL.Add(cp.NetPnL)
	s.WinRate = float64(s.Wins) / float64(s.Trades) * 100

	if s.NetPnL.GreaterThan(p.peak) {
		p.peak = s.NetPnL
	}
	if dd := p.peak.Sub(s.NetPnL); dd.GreaterThan(s.MaxDrawdown) {
		s.MaxDrawdown = dd
	}

	metrics.RealizedPnL.Set(s.NetPnL.InexactFloat64())
}

func (p *Performance) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sum
}
