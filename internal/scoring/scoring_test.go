package scoring

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nado-trading-bot/internal/types"
)

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
		types.TF15m: {
			Timeframe: types.TF15m, Close: 101, EMAShort: 100.5, EMALong: 99.7,
		},
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
		types.TF15m: {
			Timeframe: types.TF15m, Close: 99, EMAShort: 99.2, EMALong: 100.3,
		},
	}
}

func TestEvaluateAllLongFactors(t *testing.T) {
	v, err := Evaluate(bullish())
	require.NoError(t, err)

	assert.Equal(t, 9, v.Long.FactorsMet)
	assert.Equal(t, 100.0, v.Long.Percent)
	// Rising volume confirms either side, so short keeps that one factor.
	assert.Equal(t, 1, v.Short.FactorsMet)
	assert.Equal(t, []string{"volume"}, v.Short.Hits)
	assert.Equal(t, types.SideLong, v.Side)
	assert.Equal(t, 100.0, v.Certainty)
}

func TestEvaluateShort(t *testing.T) {
	v, err := Evaluate(bearish())
	require.NoError(t, err)

	assert.Equal(t, 0, v.Long.FactorsMet)
	assert.Equal(t, 8, v.Short.FactorsMet)
	assert.Equal(t, types.SideShort, v.Side)
	assert.Equal(t, Percent(8), v.Certainty)
}

func TestEvaluateTieIsNone(t *testing.T) {
	ind := map[types.Timeframe]types.TimeframeIndicators{
		types.TF1m:  {Close: 100, BollingerMid: 100, VWAP: 100, VolumeTrend: types.VolumeFlat},
		types.TF5m:  {EMAShort: 1, EMALong: 1, RSI: 50, MACD: 0, MACDSignal: 0},
		types.TF15m: {EMAShort: 1, EMALong: 1},
	}
	v, err := Evaluate(ind)
	require.NoError(t, err)

	assert.Equal(t, types.SideNone, v.Side)
	assert.Equal(t, 0.0, v.Long.Percent)
	assert.Equal(t, 0.0, v.Short.Percent)
	assert.Equal(t, 0.0, v.Certainty)
}

func TestConfluenceNeedsAllThree(t *testing.T) {
	ind := bullish()
	tf5 := ind[types.TF5m]
	tf5.RSI = 55 // not strictly above the threshold
	ind[types.TF5m] = tf5

	res, err := Score(ind, types.SideLong)
	require.NoError(t, err)
	assert.Equal(t, 7, res.FactorsMet)
	assert.NotContains(t, res.Hits, "rsi")
	assert.NotContains(t, res.Hits, "confluence")
}

func TestScoreMissingTimeframe(t *testing.T) {
	for _, tf := range types.RequiredTimeframes {
		ind := bullish()
		delete(ind, tf)

		_, err := Evaluate(ind)
		assert.ErrorIs(t, err, types.ErrMissingIndicatorData, "timeframe %s", tf)
		assert.Contains(t, err.Error(), string(tf))
	}
}

func TestScoreRejectsNoneSide(t *testing.T) {
	_, err := Score(bullish(), types.SideNone)
	assert.ErrorIs(t, err, types.ErrDegenerateInput)
}

func TestScoreBoundsAndGranularity(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	trends := []types.VolumeTrend{types.VolumeIncreasing, types.VolumeDecreasing, types.VolumeFlat}
	tf := func() types.TimeframeIndicators {
		return types.TimeframeIndicators{
			Close:        100 + r.NormFloat64(),
			EMAShort:     100 + r.NormFloat64(),
			EMALong:      100 + r.NormFloat64(),
			RSI:          r.Float64() * 100,
			MACD:         r.NormFloat64(),
			MACDSignal:   r.NormFloat64(),
			BollingerMid: 100 + r.NormFloat64(),
			VWAP:         100 + r.NormFloat64(),
			VolumeTrend:  trends[r.Intn(len(trends))],
			PriceSlope:   r.NormFloat64(),
		}
	}

	step := 100.0 / 9
	for i := 0; i < 500; i++ {
		ind := map[types.Timeframe]types.TimeframeIndicators{
			types.TF1m: tf(), types.TF5m: tf(), types.TF15m: tf(),
		}
		v, err := Evaluate(ind)
		require.NoError(t, err)

		for _, s := range []Result{v.Long, v.Short} {
			assert.GreaterOrEqual(t, s.Percent, 0.0)
			assert.LessOrEqual(t, s.Percent, 100.0)
			k := s.Percent / step
			assert.InDelta(t, math.Round(k), k, 1e-9)
			assert.Equal(t, Percent(s.FactorsMet), s.Percent)
		}
		assert.Equal(t, math.Max(v.Long.Percent, v.Short.Percent), v.Certainty)

		again, err := Evaluate(ind)
		require.NoError(t, err)
		assert.Equal(t, v, again)
	}
}
