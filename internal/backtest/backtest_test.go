package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitt/stockpulse/internal/agents"
	"github.com/mwhitt/stockpulse/internal/consensus"
	"github.com/mwhitt/stockpulse/internal/indicators"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/regime"
	"github.com/mwhitt/stockpulse/internal/sizing"
)

// scriptedAgent decides from the number of bars it has seen, which lets
// a test steer the simulation day by day.
type scriptedAgent struct {
	decide func(n int) (agents.Signal, float64)
}

func (s scriptedAgent) Name() string { return "scripted" }
func (s scriptedAgent) Role() string { return "scripted" }

func (s scriptedAgent) Analyze(bars []market.PricePoint, _ indicators.Snapshot, _ regime.Regime) agents.Opinion {
	sig, conf := s.decide(len(bars))
	sent := agents.Neutral
	switch sig {
	case agents.Buy:
		sent = agents.Bullish
	case agents.Sell:
		sent = agents.Bearish
	}
	return agents.Opinion{Agent: "scripted", Role: "scripted", Signal: sig, Confidence: conf, Sentiment: sent}
}

func scriptedRunner(cfg Config, decide func(n int) (agents.Signal, float64)) *Runner {
	agg := consensus.NewAggregatorWithAgents(regime.DefaultConfig(),
		[]agents.Agent{scriptedAgent{decide: decide}}, map[string]float64{})
	risk := sizing.RiskParameters{RiskPerTradePercent: 0.02, MaxPositionSizePercent: 0.10}
	return NewRunner(cfg, agg, risk)
}

func priceBars(closes []float64) []market.PricePoint {
	bars := make([]market.PricePoint, len(closes))
	t0 := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = market.PricePoint{
			Time:  t0.AddDate(0, 0, i),
			Open:  c,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
		}
	}
	return bars
}

func flatCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func alwaysHold(int) (agents.Signal, float64) { return agents.Hold, 0 }

func TestRunRejectsShortHistory(t *testing.T) {
	r := scriptedRunner(DefaultConfig(), alwaysHold)

	_, err := r.Run(context.Background(), "ACME", priceBars(flatCloses(50, 100)), 100000)

	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrDataUnavailable)
}

func TestRunRejectsNonPositiveBalance(t *testing.T) {
	r := scriptedRunner(DefaultConfig(), alwaysHold)

	_, err := r.Run(context.Background(), "ACME", priceBars(flatCloses(60, 100)), 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial balance")
}

func TestRunHonorsContextCancellation(t *testing.T) {
	r := scriptedRunner(DefaultConfig(), alwaysHold)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, "ACME", priceBars(flatCloses(60, 100)), 100000)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunNoSignalsNoTrades(t *testing.T) {
	r := scriptedRunner(DefaultConfig(), alwaysHold)
	bars := priceBars(flatCloses(60, 100))

	report, err := r.Run(context.Background(), "ACME", bars, 100000)

	require.NoError(t, err)
	assert.Zero(t, report.TradeCount)
	assert.Equal(t, 100000.0, report.FinalBalance)
	assert.Zero(t, report.Profit)
	assert.Zero(t, report.MaxDrawdown)
	assert.Len(t, report.EquityCurve, 10)
}

func TestRunLongRoundTripCashIdentity(t *testing.T) {
	// One long held to the end of the tape. Flat prices mean the only
	// losses are commission and slippage, paid on both legs.
	r := scriptedRunner(DefaultConfig(), func(int) (agents.Signal, float64) {
		return agents.Buy, 80
	})
	bars := priceBars(flatCloses(52, 100))

	report, err := r.Run(context.Background(), "ACME", bars, 100000)

	require.NoError(t, err)
	require.Equal(t, 1, report.TradeCount)

	trade := report.Trades[0]
	assert.Equal(t, "LONG", trade.Side)
	assert.Equal(t, "end of backtest", trade.ExitReason)
	assert.Equal(t, 79, trade.Quantity)
	assert.InDelta(t, 100.05, trade.EntryPrice, 0.001)
	assert.InDelta(t, 99.95, trade.ExitPrice, 0.001)
	assert.Negative(t, trade.PnL)

	assert.Less(t, report.FinalBalance, report.InitialBalance)
	assert.InDelta(t, report.FinalBalance, report.EquityCurve[len(report.EquityCurve)-1].Equity, 0.001)
	assert.InDelta(t, report.Profit, report.FinalBalance-report.InitialBalance, 0.001)
}

func TestRunStopLossFires(t *testing.T) {
	// Buy on the first eligible bar, then the tape gaps down 10%.
	r := scriptedRunner(DefaultConfig(), func(n int) (agents.Signal, float64) {
		if n <= 51 {
			return agents.Buy, 80
		}
		return agents.Hold, 0
	})
	closes := append(flatCloses(51, 100), 90)
	bars := priceBars(closes)

	report, err := r.Run(context.Background(), "ACME", bars, 100000)

	require.NoError(t, err)
	require.Equal(t, 1, report.TradeCount)
	assert.Contains(t, report.Trades[0].ExitReason, "stop loss")
	assert.Negative(t, report.Trades[0].PnL)
	assert.Zero(t, report.WinRate)
}

func TestRunTakeProfitFires(t *testing.T) {
	r := scriptedRunner(DefaultConfig(), func(n int) (agents.Signal, float64) {
		if n <= 51 {
			return agents.Buy, 80
		}
		return agents.Hold, 0
	})
	closes := append(flatCloses(51, 100), 115)
	bars := priceBars(closes)

	report, err := r.Run(context.Background(), "ACME", bars, 100000)

	require.NoError(t, err)
	require.Equal(t, 1, report.TradeCount)
	assert.Contains(t, report.Trades[0].ExitReason, "take profit")
	assert.Positive(t, report.Trades[0].PnL)
	assert.Equal(t, 100.0, report.WinRate)
	assert.Positive(t, report.Profit)
}

func TestRunSignalReversalFlipsPosition(t *testing.T) {
	// Bullish through the entry bar, bearish after. The long closes on
	// the reversal and a short opens the same day.
	r := scriptedRunner(DefaultConfig(), func(n int) (agents.Signal, float64) {
		if n <= 51 {
			return agents.Buy, 80
		}
		return agents.Sell, 80
	})
	bars := priceBars(flatCloses(53, 100))

	report, err := r.Run(context.Background(), "ACME", bars, 100000)

	require.NoError(t, err)
	require.Equal(t, 2, report.TradeCount)
	assert.Equal(t, "LONG", report.Trades[0].Side)
	assert.Contains(t, report.Trades[0].ExitReason, "signal reversal")
	assert.Equal(t, "SHORT", report.Trades[1].Side)
	assert.Equal(t, "end of backtest", report.Trades[1].ExitReason)
}

func TestRunShortProfitsInDecline(t *testing.T) {
	r := scriptedRunner(DefaultConfig(), func(n int) (agents.Signal, float64) {
		if n <= 51 {
			return agents.Sell, 80
		}
		return agents.Hold, 0
	})
	closes := append(flatCloses(51, 100), 91)
	bars := priceBars(closes)

	report, err := r.Run(context.Background(), "ACME", bars, 100000)

	require.NoError(t, err)
	require.Equal(t, 1, report.TradeCount)
	assert.Equal(t, "SHORT", report.Trades[0].Side)
	assert.Positive(t, report.Trades[0].PnL)
	assert.Positive(t, report.Profit)
}

func TestRunAllowShortDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowShort = false
	r := scriptedRunner(cfg, func(int) (agents.Signal, float64) {
		return agents.Sell, 90
	})
	bars := priceBars(flatCloses(60, 100))

	report, err := r.Run(context.Background(), "ACME", bars, 100000)

	require.NoError(t, err)
	assert.Zero(t, report.TradeCount)
	assert.Equal(t, 100000.0, report.FinalBalance)
}

func TestRunBelowThresholdStaysFlat(t *testing.T) {
	r := scriptedRunner(DefaultConfig(), func(int) (agents.Signal, float64) {
		return agents.Buy, 59
	})
	bars := priceBars(flatCloses(60, 100))

	report, err := r.Run(context.Background(), "ACME", bars, 100000)

	require.NoError(t, err)
	assert.Zero(t, report.TradeCount)
}

func TestMaxDrawdown(t *testing.T) {
	t0 := time.Now()
	curve := []EquityPoint{
		{Time: t0, Equity: 100},
		{Time: t0, Equity: 120},
		{Time: t0, Equity: 90},
		{Time: t0, Equity: 110},
	}

	assert.InDelta(t, 0.25, maxDrawdown(curve), 0.0001)
	assert.Zero(t, maxDrawdown([]EquityPoint{{Equity: 100}, {Equity: 150}}))
	assert.Zero(t, maxDrawdown(nil))
}

func TestProfitFactor(t *testing.T) {
	// Zero losses return the gross wins themselves.
	assert.Equal(t, 30.0, profitFactor([]RoundTrip{{PnL: 10}, {PnL: 20}}))

	assert.InDelta(t, 3.0, profitFactor([]RoundTrip{{PnL: 30}, {PnL: -10}}), 0.0001)
	assert.Zero(t, profitFactor(nil))
}

func TestWinRate(t *testing.T) {
	assert.Zero(t, winRate(nil))
	assert.Equal(t, 50.0, winRate([]RoundTrip{{PnL: 5}, {PnL: -5}}))
}
