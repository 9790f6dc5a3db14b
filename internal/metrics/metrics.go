package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nado_decisions_total",
			Help: "Total number of pair evaluations (by side and reason).",
		},
		[]string{"side", "reason"},
	)

	EvaluationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nado_evaluation_errors_total",
			Help: "Total number of pair evaluations that returned an error (by kind).",
		},
		[]string{"kind"},
	)

	CertaintyHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nado_decision_certainty",
			Help:    "Certainty of evaluated decisions (by side).",
			Buckets: []float64{0, 100.0 / 9, 200.0 / 9, 300.0 / 9, 400.0 / 9, 500.0 / 9, 600.0 / 9, 700.0 / 9, 800.0 / 9, 100},
		},
		[]string{"side"},
	)

	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nado_orders_submitted_total",
			Help: "Total number of orders submitted (by side).",
		},
		[]string{"side"},
	)

	PositionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nado_positions_open",
			Help: "Current number of open positions.",
		},
	)

	PositionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nado_positions_closed_total",
			Help: "Total number of closed positions (by close reason).",
		},
		[]string{"reason"},
	)

	RealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nado_realized_pnl",
			Help: "Cumulative net realized PnL in quote currency.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		DecisionsTotal,
		EvaluationErrors,
		CertaintyHistogram,
		OrdersSubmitted,
		PositionsOpen,
		PositionsClosed,
		RealizedPnL,
	)
}
