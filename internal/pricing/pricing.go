// Package pricing derives fee- and slippage-aware entry, stop-loss and
// take-profit prices for a chosen side.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"nado-trading-bot/internal/types"
)

const (
	// SlippageTicks is how far the entry is pushed against the trader.
	SlippageTicks = 10
	// PricePrecision is the number of decimal places stop and target are rounded to.
	PricePrecision = 6
)

var slippageTicks = decimal.NewFromInt(SlippageTicks)

// Calculator holds the configured sizing and risk caps.
type Calculator struct {
	VolumeOrder decimal.Decimal
	MaxLoss     decimal.Decimal
	MaxProfit   decimal.Decimal
}

// Params is the fully priced order for one side.
type Params struct {
	Side       types.Side
	Entry      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	Quantity   decimal.Decimal
	FeeOpen    decimal.Decimal
	FeeClose   decimal.Decimal
	Risk       decimal.Decimal
	Reward     decimal.Decimal
	RiskReward decimal.Decimal
}

func New(volumeOrder, maxLoss, maxProfit decimal.Decimal) (*Calculator, error) {
	c := &Calculator{VolumeOrder: volumeOrder, MaxLoss: maxLoss, MaxProfit: maxProfit}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Calculator) Validate() error {
	one := decimal.NewFromInt(1)
	if !c.VolumeOrder.IsPositive() {
		return fmt.Errorf("volume order %s: %w", c.VolumeOrder, types.ErrInvalidConfiguration)
	}
	if !c.MaxLoss.IsPositive() || c.MaxLoss.GreaterThanOrEqual(one) {
		return fmt.Errorf("max loss fraction %s: %w", c.MaxLoss, types.ErrInvalidConfiguration)
	}
	if !c.MaxProfit.IsPositive() || c.MaxProfit.GreaterThanOrEqual(one) {
		return fmt.Errorf("max profit fraction %s: %w", c.MaxProfit, types.ErrInvalidConfiguration)
	}
	return nil
}

// Entry applies the slippage offset to the mark price.
func Entry(mark, tick decimal.Decimal, side types.Side) decimal.Decimal {
	offset := tick.Mul(slippageTicks)
	if side == types.SideLong {
		return mark.Sub(offset)
	}
	return mark.Add(offset)
}

// Calculate prices an order for pc on the given side.
func (c *Calculator) Calculate(pc types.PairContext, side types.Side) (Params, error) {
	if side != types.SideLong && side != types.SideShort {
		return Params{}, fmt.Errorf("%s: price side %q: %w", pc.Pair, side, types.ErrDegenerateInput)
	}
	if !pc.TickSize.IsPositive() {
		return Params{}, fmt.Errorf("%s: tick size %s: %w", pc.Pair, pc.TickSize, types.ErrInvalidConfiguration)
	}
	if pc.MakerFee.IsNegative() || pc.TakerFee.IsNegative() {
		return Params{}, fmt.Errorf("%s: negative fee rate: %w", pc.Pair, types.ErrInvalidConfiguration)
	}
	if !pc.MarkPrice.IsPositive() {
		return Params{}, fmt.Errorf("%s: mark price %s: %w", pc.Pair, pc.MarkPrice, types.ErrDegenerateInput)
	}

	entry := Entry(pc.MarkPrice, pc.TickSize, side)
	if !entry.IsPositive() {
		return Params{}, fmt.Errorf("%s: entry %s after slippage: %w", pc.Pair, entry, types.ErrDegenerateInput)
	}

	qty := c.VolumeOrder.Div(entry)
	if !qty.IsPositive() {
		return Params{}, fmt.Errorf("%s: quantity rounds to zero at entry %s: %w", pc.Pair, entry, types.ErrDegenerateInput)
	}

	notional := entry.Mul(qty)
	feeOpen := notional.Mul(pc.MakerFee)
	feeClose := notional.Mul(pc.TakerFee)

	// The open fee, scaled by the cap, is folded into the per-unit
	// distance so the realized loss or profit still matches the cap.
	feeLossAdj := feeOpen.Add(feeOpen.Mul(c.MaxLoss)).Div(qty)
	feeProfitAdj := feeOpen.Add(feeOpen.Mul(c.MaxProfit)).Div(qty)
	lossDist := entry.Mul(c.MaxLoss).Add(feeLossAdj)
	profitDist := entry.Mul(c.MaxProfit).Add(feeProfitAdj)

	var stop, target decimal.Decimal
	if side == types.SideLong {
		stop = entry.Sub(lossDist)
		target = entry.Add(profitDist)
	} else {
		stop = entry.Add(lossDist)
		target = entry.Sub(profitDist)
	}
	stop = stop.Round(PricePrecision)
	target = target.Round(PricePrecision)

	p := Params{
		Side:       side,
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: target,
		Quantity:   qty,
		FeeOpen:    feeOpen,
		FeeClose:   feeClose,
		Risk:       entry.Sub(stop).Abs().Mul(qty),
		Reward:     target.Sub(entry).Abs().Mul(qty),
	}
	if err := p.check(); err != nil {
		return Params{}, fmt.Errorf("%s: %w", pc.Pair, err)
	}
	p.RiskReward = p.Reward.Div(p.Risk)
	return p, nil
}

func (p Params) check() error {
	if !p.StopLoss.IsPositive() || !p.TakeProfit.IsPositive() {
		return fmt.Errorf("stop %s / target %s not positive: %w", p.StopLoss, p.TakeProfit, types.ErrDegenerateInput)
	}
	ordered := p.StopLoss.LessThan(p.Entry) && p.Entry.LessThan(p.TakeProfit)
	if p.Side == types.SideShort {
		ordered = p.TakeProfit.LessThan(p.Entry) && p.Entry.LessThan(p.StopLoss)
	}
	if !ordered {
		return fmt.Errorf("%s stop %s entry %s target %s out of order: %w",
			p.Side, p.StopLoss, p.Entry, p.TakeProfit, types.ErrDegenerateInput)
	}
	if p.Risk.IsZero() {
		return fmt.Errorf("zero risk: %w", types.ErrDegenerateInput)
	}
	return nil
}
