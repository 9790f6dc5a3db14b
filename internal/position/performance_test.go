package position

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nado-trading-bot/internal/types"
)

func closedWithNet(net string) types.ClosedPosition {
	return types.ClosedPosition{NetPnL: d(net), Fees: d("0.1")}
}

func TestPerformanceSummary(t *testing.T) {
	p := NewPerformance()
	for _, n := range []string{"2", "-1", "-0.5", "3", "0"} {
		require.NoError(t, p.HandleClose(context.Background(), closedWithNet(n)))
	}

	s := p.Summary()
	assert.Equal(t, 5, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 40.0, s.WinRate, 1e-9)
	assert.True(t, d("5").Equal(s.GrossProfit))
	assert.True(t, d("1.5").Equal(s.GrossLoss))
	assert.True(t, d("3.5").Equal(s.NetPnL))
	assert.True(t, d("0.5").Equal(s.Fees))
	assert.True(t, d("1.5").Equal(s.MaxDrawdown), s.MaxDrawdown.String())
}

func TestPerformanceEmpty(t *testing.T) {
	s := NewPerformance().Summary()
	assert.Zero(t, s.Trades)
	assert.Zero(t, s.WinRate)
	assert.True(t, s.NetPnL.IsZero())
}
