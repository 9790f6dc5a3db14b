// Package scoring turns a multi-timeframe indicator snapshot into a long
// and a short score in [0,100].
package scoring

import (
	"fmt"

	"nado-trading-bot/internal/types"
)

const (
	rsiLongAbove  = 55.0
	rsiShortBelow = 45.0
)

type predicate func(ind types.TimeframeIndicators) bool

// factor is one row of the scoring table. Long and short predicates are
// mirror images except for the volume factor, which confirms either side.
type factor struct {
	name      string
	timeframe types.Timeframe
	long      predicate
	short     predicate
}

func emaUp(i types.TimeframeIndicators) bool { return i.EMAShort > i.EMALong }
func emaDown(i types.TimeframeIndicators) bool { return i.EMAShort < i.EMALong }
func rsiUp(i types.TimeframeIndicators) bool { return i.RSI > rsiLongAbove }
func rsiDown(i types.TimeframeIndicators) bool { return i.RSI < rsiShortBelow }
func macdUp(i types.TimeframeIndicators) bool { return i.MACD > i.MACDSignal }
func macdDown(i types.TimeframeIndicators) bool { return i.MACD < i.MACDSignal }
func volumeUp(i types.TimeframeIndicators) bool { return i.VolumeTrend == types.VolumeIncreasing }

var factors = []factor{
	{"trend_ema", types.TF15m, emaUp, emaDown},
	{"ema", types.TF5m, emaUp, emaDown},
	{"rsi", types.TF5m, rsiUp, rsiDown},
	{"macd", types.TF5m, macdUp, macdDown},
	{"bollinger", types.TF1m,
		func(i types.TimeframeIndicators) bool { return i.Close > i.BollingerMid },
		func(i types.TimeframeIndicators) bool { return i.Close < i.BollingerMid }},
	{"vwap", types.TF1m,
		func(i types.TimeframeIndicators) bool { return i.Close > i.VWAP },
		func(i types.TimeframeIndicators) bool { return i.Close < i.VWAP }},
	{"volume", types.TF1m, volumeUp, volumeUp},
	{"slope", types.TF1m,
		func(i types.TimeframeIndicators) bool { return i.PriceSlope > 0 },
		func(i types.TimeframeIndicators) bool { return i.PriceSlope < 0 }},
	{"confluence", types.TF5m,
		func(i types.TimeframeIndicators) bool { return rsiUp(i) && macdUp(i) && emaUp(i) },
		func(i types.TimeframeIndicators) bool { return rsiDown(i) && macdDown(i) && emaDown(i) }},
}

// FactorCount is the number of factors each side is scored on.
var FactorCount = len(factors)

// Result is one side's score.
type Result struct {
	Side       types.Side
	FactorsMet int
	Percent    float64
	Hits       []string
}

// Verdict holds both sides' scores and the side they favor.
type Verdict struct {
	Long      Result
	Short     Result
	Certainty float64
	Side      types.Side
}

// Percent converts a factor count into a score. The result is always
// an exact multiple of 100/9 computed the same way for all inputs.
func Percent(met int) float64 {
	return float64(met) * 100 / float64(FactorCount)
}

// Validate checks that every required timeframe is present.
func Validate(ind map[types.Timeframe]types.TimeframeIndicators) error {
	for _, tf := range types.RequiredTimeframes {
		if _, ok := ind[tf]; !ok {
			return fmt.Errorf("timeframe %s: %w", tf, types.ErrMissingIndicatorData)
		}
	}
	return nil
}

// Score evaluates the factor table for one side.
func Score(ind map[types.Timeframe]types.TimeframeIndicators, side types.Side) (Result, error) {
	if side != types.SideLong && side != types.SideShort {
		return Result{}, fmt.Errorf("score side %q: %w", side, types.ErrDegenerateInput)
	}
	if err := Validate(ind); err != nil {
		return Result{}, err
	}

	res := Result{Side: side}
	for _, f := range factors {
		pred := f.long
		if side == types.SideShort {
			pred = f.short
		}
		if pred(ind[f.timeframe]) {
			res.FactorsMet++
			res.Hits = append(res.Hits, f.name)
		}
	}
	res.Percent = Percent(res.FactorsMet)
	return res, nil
}

// Evaluate scores both sides and picks the favored one. Equal scores
// favor neither side.
func Evaluate(ind map[types.Timeframe]types.TimeframeIndicators) (Verdict, error) {
	long, err := Score(ind, types.SideLong)
	if err != nil {
		return Verdict{}, err
	}
	short, err := Score(ind, types.SideShort)
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{Long: long, Short: short, Side: types.SideNone}
	switch {
	case long.FactorsMet > short.FactorsMet:
		v.Side = types.SideLong
		v.Certainty = long.Percent
	case short.FactorsMet > long.FactorsMet:
		v.Side = types.SideShort
		v.Certainty = short.Percent
	default:
		v.Certainty = long.Percent
	}
	return v, nil
}
