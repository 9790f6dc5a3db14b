package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nado-trading-bot/internal/types"
)

const doc = `
generated_at: 2025-01-02T03:04:05Z
pairs:
  - pair: SOL_USDC
    mark_price: 178.50
    tick_size: "0.001"
    indicators:
      1m: {close: 101, bb_middle: 100, vwap: 100.5, volume_trend: increasing, price_slope: 0.4}
      5m: {close: 101, ema9: 100.8, ema21: 100.1, rsi: 60, macd: 0.5, macd_signal: 0.3}
      15m: {close: 101, ema9: 100.5, ema21: 99.7}
  - pair: BTC_USDC
    mark_price: "98250"
    tick_size: 0.1
    maker_fee: 0.0002
    taker_fee: "0.0005"
    indicators:
      1m: {close: 1}
`

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestParseSnapshot(t *testing.T) {
	pcs, err := Parse([]byte(doc), decimal.RequireFromString("0.001"), decimal.RequireFromString("0.001"))
	require.NoError(t, err)
	require.Len(t, pcs, 2)

	sol := pcs[0]
	assert.Equal(t, "SOL_USDC", sol.Pair)
	assert.True(t, decimal.RequireFromString("178.5").Equal(sol.MarkPrice))
	assert.True(t, decimal.RequireFromString("0.001").Equal(sol.TickSize))
	assert.True(t, decimal.RequireFromString("0.001").Equal(sol.MakerFee))
	assert.Len(t, sol.Indicators, 3)
	assert.Equal(t, types.TF5m, sol.Indicators[types.TF5m].Timeframe)
	assert.Equal(t, types.VolumeIncreasing, sol.Indicators[types.TF1m].VolumeTrend)
	assert.Equal(t, 60.0, sol.Indicators[types.TF5m].RSI)

	btc := pcs[1]
	assert.True(t, decimal.RequireFromString("0.0002").Equal(btc.MakerFee))
	assert.True(t, decimal.RequireFromString("0.0005").Equal(btc.TakerFee))
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse([]byte("pairs: [{mark_price: 1}]"), decimal.Zero, decimal.Zero)
	assert.Error(t, err)

	_, err = Parse([]byte("pairs: {"), decimal.Zero, decimal.Zero)
	assert.Error(t, err)
}

func TestSnapshotCollectFiltersPairs(t *testing.T) {
	p := writeSnapshot(t, doc)
	s := NewSnapshot(p, []string{"BTC_USDC", "ETH_USDC", "SOL_USDC"}, decimal.Zero, decimal.Zero)

	pcs, err := s.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, pcs, 2)
	assert.Equal(t, "BTC_USDC", pcs[0].Pair)
	assert.Equal(t, "SOL_USDC", pcs[1].Pair)
}

func TestSnapshotMarkPriceReloadsOnChange(t *testing.T) {
	p := writeSnapshot(t, doc)
	s := NewSnapshot(p, nil, decimal.Zero, decimal.Zero)

	price, err := s.MarkPrice(context.Background(), "BTC_USDC")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("98250").Equal(price))

	_, err = s.MarkPrice(context.Background(), "ETH_USDC")
	assert.ErrorIs(t, err, ErrPairNotInSnapshot)

	updated := "pairs:\n  - pair: BTC_USDC\n    mark_price: 99000\n    tick_size: 0.1\n"
	require.NoError(t, os.WriteFile(p, []byte(updated), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(p, later, later))

	price, err = s.MarkPrice(context.Background(), "BTC_USDC")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("99000").Equal(price))
}

func TestSnapshotMissingFile(t *testing.T) {
	s := NewSnapshot(filepath.Join(t.TempDir(), "absent.yaml"), nil, decimal.Zero, decimal.Zero)
	_, err := s.Collect(context.Background())
	assert.Error(t, err)
}
