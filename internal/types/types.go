package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
)

// RequiredTimeframes are the timeframes the scoring rule reads.
var RequiredTimeframes = []Timeframe{TF1m, TF5m, TF15m}

type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "increasing"
	VolumeDecreasing VolumeTrend = "decreasing"
	VolumeFlat       VolumeTrend = "flat"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
	SideNone  Side = "none"
)

// TimeframeIndicators is one timeframe's computed indicator values for a pair.
type TimeframeIndicators struct {
	Timeframe      Timeframe   `yaml:"timeframe" json:"timeframe"`
	Close          float64     `yaml:"close" json:"close"`
	EMAShort       float64     `yaml:"ema9" json:"ema9"`
	EMALong        float64     `yaml:"ema21" json:"ema21"`
	RSI            float64     `yaml:"rsi" json:"rsi"`
	MACD           float64     `yaml:"macd" json:"macd"`
	MACDSignal     float64     `yaml:"macd_signal" json:"macd_signal"`
	BollingerUpper float64     `yaml:"bb_upper" json:"bb_upper"`
	BollingerMid   float64     `yaml:"bb_middle" json:"bb_middle"`
	BollingerLower float64     `yaml:"bb_lower" json:"bb_lower"`
	VWAP           float64     `yaml:"vwap" json:"vwap"`
	VolumeTrend    VolumeTrend `yaml:"volume_trend" json:"volume_trend"`
	PriceSlope     float64     `yaml:"price_slope" json:"price_slope"`
}

// PairContext is the market-level input for one pair in one evaluation cycle.
type PairContext struct {
	Pair       string                            `yaml:"pair" json:"pair"`
	MarkPrice  decimal.Decimal                   `yaml:"mark_price" json:"mark_price"`
	TickSize   decimal.Decimal                   `yaml:"tick_size" json:"tick_size"`
	MakerFee   decimal.Decimal                   `yaml:"maker_fee" json:"maker_fee"`
	TakerFee   decimal.Decimal                   `yaml:"taker_fee" json:"taker_fee"`
	Indicators map[Timeframe]TimeframeIndicators `yaml:"indicators" json:"indicators"`
}

// Reasons attached to a DecisionResult whose side is none.
const (
	ReasonAccepted       = "accepted"
	ReasonTie            = "tie"
	ReasonBelowThreshold = "below_threshold"
	ReasonUniqueTrend    = "unique_trend"
	ReasonAlreadyOpen    = "already_open"
)

// DecisionResult is the outcome of evaluating one pair. Price and size
// fields are zero when Side is SideNone.
type DecisionResult struct {
	Pair        string          `json:"pair"`
	Side        Side            `json:"side"`
	Reason      string          `json:"reason"`
	LongScore   float64         `json:"long_score"`
	ShortScore  float64         `json:"short_score"`
	Certainty   float64         `json:"certainty"`
	Entry       decimal.Decimal `json:"entry"`
	StopLoss    decimal.Decimal `json:"stop_loss"`
	TakeProfit  decimal.Decimal `json:"take_profit"`
	Quantity    decimal.Decimal `json:"quantity"`
	Risk        decimal.Decimal `json:"risk"`
	Reward      decimal.Decimal `json:"reward"`
	RiskReward  decimal.Decimal `json:"risk_reward"`
	FeeOpen     decimal.Decimal `json:"fee_open"`
	FeeClose    decimal.Decimal `json:"fee_close"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
}

func (d DecisionResult) Actionable() bool {
	return d.Side == SideLong || d.Side == SideShort
}

type PositionState string

const (
	PositionOpen   PositionState = "open"
	PositionClosed PositionState = "closed"
)

type CloseReason string

const (
	CloseNone       CloseReason = "none"
	CloseStopLoss   CloseReason = "stop_loss"
	CloseTakeProfit CloseReason = "take_profit"
	CloseManual     CloseReason = "manual"
)

// Position is a live trade owned by the position manager.
type Position struct {
	ID          string          `json:"id"`
	Pair        string          `json:"pair"`
	Side        Side            `json:"side"`
	Entry       decimal.Decimal `json:"entry"`
	StopLoss    decimal.Decimal `json:"stop_loss"`
	TakeProfit  decimal.Decimal `json:"take_profit"`
	Quantity    decimal.Decimal `json:"quantity"`
	FeeOpen     decimal.Decimal `json:"fee_open"`
	FeeClose    decimal.Decimal `json:"fee_close"`
	OpenedAt    time.Time       `json:"opened_at"`
	State       PositionState   `json:"state"`
	CloseReason CloseReason     `json:"close_reason"`
	ClosedAt    time.Time       `json:"closed_at,omitempty"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
}

// ClosedPosition is emitted once per position when it leaves the open set.
type ClosedPosition struct {
	Position
	GrossPnL decimal.Decimal `json:"gross_pnl"`
	Fees     decimal.Decimal `json:"fees"`
	NetPnL   decimal.Decimal `json:"net_pnl"`
}
