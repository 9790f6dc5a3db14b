package decision

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nado-trading-bot/internal/pricing"
	"nado-trading-bot/internal/scoring"
	"nado-trading-bot/internal/types"
)

type openSet struct {
	mu    sync.RWMutex
	pairs map[string]bool
}

func (o *openSet) IsOpen(pair string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pairs[pair]
}

func (o *openSet) ListOpen() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []string
	for p := range o.pairs {
		out = append(out, p)
	}
	return out
}

func bullish() map[types.Timeframe]types.TimeframeIndicators {
	return map[types.Timeframe]types.TimeframeIndicators{
		types.TF1m: {
			Timeframe: types.TF1m, Close: 101, BollingerMid: 100, VWAP: 100.5,
			VolumeTrend: types.VolumeIncreasing, PriceSlope: 0.4,
		},
		types.TF5m: {
			Timeframe: types.TF5m, Close: 101, EMAShort: 100.8, EMALong: 100.1,
			RSI: 60, MACD: 0.5, MACDSignal: 0.3,
		},
		types.TF15m: {Timeframe: types.TF15m, Close: 101, EMAShort: 100.5, EMALong: 99.7},
	}
}

func bearish() map[types.Timeframe]types.TimeframeIndicators {
	return map[types.Timeframe]types.TimeframeIndicators{
		types.TF1m: {
			Timeframe: types.TF1m, Close: 99, BollingerMid: 100, VWAP: 99.5,
			VolumeTrend: types.VolumeDecreasing, PriceSlope: -0.2,
		},
		types.TF5m: {
			Timeframe: types.TF5m, Close: 99, EMAShort: 99.1, EMALong: 99.9,
			RSI: 38, MACD: -0.4, MACDSignal: -0.1,
		},
		types.TF15m: {Timeframe: types.TF15m, Close: 99, EMAShort: 99.2, EMALong: 100.3},
	}
}

// sixOfNine keeps the 5m and 15m trend factors bullish but turns the
// 1m price factors against the long side.
func sixOfNine() map[types.Timeframe]types.TimeframeIndicators {
	ind := bullish()
	tf1 := ind[types.TF1m]
	tf1.Close = 99
	tf1.PriceSlope = -0.1
	ind[types.TF1m] = tf1
	return ind
}

func flat() map[types.Timeframe]types.TimeframeIndicators {
	return map[types.Timeframe]types.TimeframeIndicators{
		types.TF1m:  {Close: 100, BollingerMid: 100, VWAP: 100, VolumeTrend: types.VolumeFlat},
		types.TF5m:  {EMAShort: 1, EMALong: 1, RSI: 50},
		types.TF15m: {EMAShort: 1, EMALong: 1},
	}
}

func pairCtx(pair string, ind map[types.Timeframe]types.TimeframeIndicators) types.PairContext {
	return types.PairContext{
		Pair:       pair,
		MarkPrice:  decimal.RequireFromString("178.50"),
		TickSize:   decimal.RequireFromString("0.001"),
		MakerFee:   decimal.RequireFromString("0.001"),
		TakerFee:   decimal.RequireFromString("0.001"),
		Indicators: ind,
	}
}

func newEngine(t *testing.T, cfg Config, open *openSet) *Engine {
	t.Helper()
	calc, err := pricing.New(decimal.NewFromInt(100), decimal.RequireFromString("0.01"), decimal.RequireFromString("0.02"))
	require.NoError(t, err)
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	var e *Engine
	if open != nil {
		e, err = New(cfg, calc, open)
	} else {
		e, err = New(cfg, calc, nil)
	}
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

func TestEvaluateAcceptsLong(t *testing.T) {
	e := newEngine(t, Config{Threshold: 70, UniqueTrend: types.SideNone}, nil)

	res, err := e.Evaluate(context.Background(), pairCtx("SOL_USDC", bullish()))
	require.NoError(t, err)

	assert.Equal(t, types.SideLong, res.Side)
	assert.Equal(t, types.ReasonAccepted, res.Reason)
	assert.Equal(t, 100.0, res.LongScore)
	assert.Equal(t, scoring.Percent(1), res.ShortScore)
	assert.Equal(t, 100.0, res.Certainty)
	assert.True(t, decimal.RequireFromString("178.49").Equal(res.Entry))
	assert.True(t, decimal.RequireFromString("176.524825").Equal(res.StopLoss))
	assert.True(t, decimal.RequireFromString("182.24186").Equal(res.TakeProfit))
	assert.True(t, res.Quantity.IsPositive())
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), res.EvaluatedAt)
}

func TestEvaluateAcceptsShort(t *testing.T) {
	e := newEngine(t, Config{Threshold: 70, UniqueTrend: types.SideNone}, nil)

	res, err := e.Evaluate(context.Background(), pairCtx("ETH_USDC", bearish()))
	require.NoError(t, err)
	assert.Equal(t, types.SideShort, res.Side)
	assert.True(t, decimal.RequireFromString("178.51").Equal(res.Entry))
	assert.True(t, res.TakeProfit.LessThan(res.Entry))
	assert.True(t, res.Entry.LessThan(res.StopLoss))
}

func TestEvaluateRejections(t *testing.T) {
	cases := []struct {
		name   string
		cfg    Config
		open   []string
		ind    map[types.Timeframe]types.TimeframeIndicators
		reason string
	}{
		{"tie", Config{Threshold: 0, UniqueTrend: types.SideNone}, nil, flat(), types.ReasonTie},
		{"six of nine under 70", Config{Threshold: 70, UniqueTrend: types.SideNone}, nil, sixOfNine(), types.ReasonBelowThreshold},
		{"strict threshold", Config{Threshold: 100, UniqueTrend: types.SideNone}, nil, bearish(), types.ReasonBelowThreshold},
		{"long only drops short", Config{Threshold: 10, UniqueTrend: types.SideLong}, nil, bearish(), types.ReasonUniqueTrend},
		{"short only drops long", Config{Threshold: 10, UniqueTrend: types.SideShort}, nil, bullish(), types.ReasonUniqueTrend},
		{"already open", Config{Threshold: 0, UniqueTrend: types.SideNone}, []string{"SOL_USDC"}, bullish(), types.ReasonAlreadyOpen},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			open := &openSet{pairs: map[string]bool{}}
			for _, p := range tc.open {
				open.pairs[p] = true
			}
			e := newEngine(t, tc.cfg, open)

			res, err := e.Evaluate(context.Background(), pairCtx("SOL_USDC", tc.ind))
			require.NoError(t, err)
			assert.Equal(t, types.SideNone, res.Side)
			assert.Equal(t, tc.reason, res.Reason)
			assert.True(t, res.Entry.IsZero())
			assert.True(t, res.StopLoss.IsZero())
			assert.True(t, res.TakeProfit.IsZero())
			assert.True(t, res.Quantity.IsZero())
			assert.Equal(t, max(res.LongScore, res.ShortScore), res.Certainty)
		})
	}
}

func TestEvaluateThresholdIsInclusive(t *testing.T) {
	e := newEngine(t, Config{Threshold: scoring.Percent(8), UniqueTrend: types.SideNone}, nil)
	res, err := e.Evaluate(context.Background(), pairCtx("ETH_USDC", bearish()))
	require.NoError(t, err)
	assert.Equal(t, types.SideShort, res.Side)
}

func TestEvaluateErrors(t *testing.T) {
	e := newEngine(t, Config{Threshold: 0, UniqueTrend: types.SideNone}, nil)

	ind := bullish()
	delete(ind, types.TF15m)
	_, err := e.Evaluate(context.Background(), pairCtx("SOL_USDC", ind))
	assert.ErrorIs(t, err, types.ErrMissingIndicatorData)
	assert.Contains(t, err.Error(), "SOL_USDC")

	pc := pairCtx("SOL_USDC", bullish())
	pc.MarkPrice = decimal.Zero
	_, err = e.Evaluate(context.Background(), pc)
	assert.ErrorIs(t, err, types.ErrDegenerateInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Evaluate(ctx, pairCtx("SOL_USDC", bullish()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidatesConfig(t *testing.T) {
	calc, err := pricing.New(decimal.NewFromInt(100), decimal.RequireFromString("0.01"), decimal.RequireFromString("0.02"))
	require.NoError(t, err)

	bad := []Config{
		{Threshold: -1, UniqueTrend: types.SideNone, Concurrency: 1},
		{Threshold: 101, UniqueTrend: types.SideNone, Concurrency: 1},
		{Threshold: 50, UniqueTrend: "both", Concurrency: 1},
		{Threshold: 50, UniqueTrend: types.SideNone, Concurrency: 0},
	}
	for _, cfg := range bad {
		_, err := New(cfg, calc, nil)
		assert.ErrorIs(t, err, types.ErrInvalidConfiguration, "%+v", cfg)
	}

	_, err = New(Config{Threshold: 50, UniqueTrend: types.SideNone, Concurrency: 1}, nil, nil)
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestEvaluateAllKeepsOrderAndIsolatesFailures(t *testing.T) {
	e := newEngine(t, Config{Threshold: 70, UniqueTrend: types.SideNone}, nil)

	missing := bullish()
	delete(missing, types.TF5m)
	pcs := []types.PairContext{
		pairCtx("A", sixOfNine()),
		pairCtx("B", missing),
		pairCtx("C", bearish()),
		pairCtx("D", bullish()),
		pairCtx("E", flat()),
	}

	b := e.EvaluateAll(context.Background(), pcs)

	require.Len(t, b.Failures, 1)
	assert.Equal(t, "B", b.Failures[0].Pair)
	assert.Equal(t, 1, b.Failures[0].Index)
	assert.ErrorIs(t, b.Failures[0], types.ErrMissingIndicatorData)

	require.Len(t, b.Results, 4)
	var order []string
	for _, r := range b.Results {
		order = append(order, r.Pair)
	}
	assert.Equal(t, []string{"A", "C", "D", "E"}, order)

	actionable := b.Actionable()
	require.Len(t, actionable, 2)
	assert.Equal(t, "D", actionable[0].Pair)
	assert.Equal(t, "C", actionable[1].Pair)
}

func TestEvaluateAllCancelled(t *testing.T) {
	e := newEngine(t, Config{Threshold: 70, UniqueTrend: types.SideNone}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := e.EvaluateAll(ctx, []types.PairContext{pairCtx("A", bullish()), pairCtx("B", bearish())})

	assert.Empty(t, b.Results)
	require.Len(t, b.Failures, 2)
	for _, f := range b.Failures {
		assert.ErrorIs(t, f, context.Canceled)
	}
}

func TestEvaluateAllManyPairs(t *testing.T) {
	open := &openSet{pairs: map[string]bool{"P7": true}}
	e := newEngine(t, Config{Threshold: 70, UniqueTrend: types.SideNone, Concurrency: 8}, open)

	pcs := make([]types.PairContext, 200)
	for i := range pcs {
		ind := bullish()
		if i%2 == 1 {
			ind = bearish()
		}
		pcs[i] = pairCtx(fmt.Sprintf("P%d", i), ind)
	}

	b := e.EvaluateAll(context.Background(), pcs)
	require.Empty(t, b.Failures)
	require.Len(t, b.Results, len(pcs))
	for i, r := range b.Results {
		assert.Equal(t, pcs[i].Pair, r.Pair)
	}
	assert.Equal(t, types.ReasonAlreadyOpen, b.Results[7].Reason)
	assert.Len(t, b.Actionable(), len(pcs)-1)
}
