package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the engine's Prometheus instruments. Register one per
// process and inject it; a nil *Collector is a no-op at every call site.
type Collector struct {
	AnalysesTotal    *prometheus.CounterVec
	AnalyzeDuration  prometheus.Histogram
	BacktestsTotal   prometheus.Counter
	BacktestDuration prometheus.Histogram
	TradesTotal      *prometheus.CounterVec
	TradeRejections  *prometheus.CounterVec
	ProviderFailures prometheus.Counter
}

// New registers all instruments on the given registerer.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_analyses_total",
			Help: "Consensus analyses by resulting sentiment",
		}, []string{"sentiment"}),
		AnalyzeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpulse_analyze_duration_seconds",
			Help:    "Wall time of one consensus analysis",
			Buckets: prometheus.DefBuckets,
		}),
		BacktestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_backtests_total",
			Help: "Completed backtest runs",
		}),
		BacktestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpulse_backtest_duration_seconds",
			Help:    "Wall time of one backtest run",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		TradesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_trades_total",
			Help: "Executed paper trades by side",
		}, []string{"side"}),
		TradeRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_trade_rejections_total",
			Help: "Risk-gate rejections by reason class",
		}, []string{"reason"}),
		ProviderFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_provider_failures_total",
			Help: "Market data provider failures surfaced to callers",
		}),
	}
}
