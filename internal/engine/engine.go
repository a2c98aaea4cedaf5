package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mwhitt/stockpulse/internal/backtest"
	"github.com/mwhitt/stockpulse/internal/consensus"
	"github.com/mwhitt/stockpulse/internal/ledger"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/metrics"
	"github.com/mwhitt/stockpulse/internal/sizing"
)

// Broker is the execution target. The paper ledger account is the
// in-process implementation; a live brokerage adapter must satisfy the
// same contract.
type Broker interface {
	ExecuteTrade(ctx context.Context, req ledger.TradeRequest) (ledger.TradeResult, error)
	Snapshot(ctx context.Context) ledger.Portfolio
}

// Engine is the public face of the signal and simulation core. Analyze
// and RunBacktest are pure given their inputs; ExecuteTrade is the only
// operation with side effects, on the injected broker.
type Engine struct {
	history    market.HistoryProvider
	aggregator *consensus.Aggregator
	btConfig   backtest.Config
	risk       sizing.RiskParameters
	broker     Broker
	collector  *metrics.Collector
}

// New wires the engine. broker may be nil for analysis-only use;
// collector may be nil to disable metrics.
func New(history market.HistoryProvider, aggregator *consensus.Aggregator,
	btConfig backtest.Config, risk sizing.RiskParameters,
	broker Broker, collector *metrics.Collector) *Engine {
	return &Engine{
		history:    history,
		aggregator: aggregator,
		btConfig:   btConfig,
		risk:       risk,
		broker:     broker,
		collector:  collector,
	}
}

// AnalyzeBars computes the consensus signal for an in-memory history.
func (e *Engine) AnalyzeBars(bars []market.PricePoint) consensus.Signal {
	start := time.Now()
	sig := e.aggregator.Analyze(bars)
	if e.collector != nil {
		e.collector.AnalyzeDuration.Observe(time.Since(start).Seconds())
		e.collector.AnalysesTotal.WithLabelValues(string(sig.Sentiment)).Inc()
	}
	return sig
}

// Analyze fetches a symbol's history and computes its consensus signal.
// Provider failures propagate as a distinct error kind; short histories
// degrade to a neutral signal inside AnalyzeBars.
func (e *Engine) Analyze(ctx context.Context, symbol, period string) (consensus.Signal, error) {
	bars, err := e.history.History(ctx, symbol, period)
	if err != nil {
		if e.collector != nil {
			e.collector.ProviderFailures.Inc()
		}
		return consensus.Signal{}, fmt.Errorf("history fetch for %s: %w", symbol, err)
	}
	return e.AnalyzeBars(bars), nil
}

// RunBacktestBars simulates over an in-memory history.
func (e *Engine) RunBacktestBars(ctx context.Context, symbol string, bars []market.PricePoint, initialBalance float64) (*backtest.Report, error) {
	start := time.Now()
	runner := backtest.NewRunner(e.btConfig, e.aggregator, e.risk)
	report, err := runner.Run(ctx, symbol, bars, initialBalance)
	if err != nil {
		return nil, err
	}
	if e.collector != nil {
		e.collector.BacktestDuration.Observe(time.Since(start).Seconds())
		e.collector.BacktestsTotal.Inc()
	}
	return report, nil
}

// RunBacktest fetches a history and simulates over it.
func (e *Engine) RunBacktest(ctx context.Context, symbol, period string, initialBalance float64) (*backtest.Report, error) {
	bars, err := e.history.History(ctx, symbol, period)
	if err != nil {
		if e.collector != nil {
			e.collector.ProviderFailures.Inc()
		}
		return nil, fmt.Errorf("history fetch for %s: %w", symbol, err)
	}
	return e.RunBacktestBars(ctx, symbol, bars, initialBalance)
}

// ErrNoAccount is returned when trading is attempted on an engine wired
// without a broker.
var ErrNoAccount = errors.New("no paper account configured")

// ExecuteTrade routes an order through the broker's risk gate.
func (e *Engine) ExecuteTrade(ctx context.Context, req ledger.TradeRequest) (ledger.TradeResult, error) {
	if e.broker == nil {
		return ledger.TradeResult{}, ErrNoAccount
	}
	res, err := e.broker.ExecuteTrade(ctx, req)
	if err != nil {
		return res, err
	}
	if e.collector != nil {
		if res.Success {
			e.collector.TradesTotal.WithLabelValues(strings.ToUpper(req.Side)).Inc()
		} else {
			e.collector.TradeRejections.WithLabelValues(rejectionClass(res.Message)).Inc()
		}
	}
	return res, nil
}

// Portfolio returns the broker's current account snapshot.
func (e *Engine) Portfolio(ctx context.Context) (ledger.Portfolio, error) {
	if e.broker == nil {
		return ledger.Portfolio{}, ErrNoAccount
	}
	return e.broker.Snapshot(ctx), nil
}

// rejectionClass folds free-form gate reasons into a bounded label set.
func rejectionClass(message string) string {
	switch {
	case strings.Contains(message, "cooldown"):
		return "cooldown"
	case strings.Contains(message, "insufficient holdings"):
		return "insufficient_holdings"
	case strings.Contains(message, "short cover"):
		return "short_cover"
	case strings.Contains(message, "daily loss"):
		return "daily_loss"
	default:
		return "validation"
	}
}
