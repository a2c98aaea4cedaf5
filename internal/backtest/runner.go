package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mwhitt/stockpulse/internal/agents"
	"github.com/mwhitt/stockpulse/internal/consensus"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/sizing"
)

// Runner replays a price history day by day against the consensus
// engine. Each run operates on entirely private simulated state, so
// runs are safe to execute concurrently with live paper trading.
type Runner struct {
	cfg        Config
	aggregator *consensus.Aggregator
	risk       sizing.RiskParameters
}

// NewRunner builds a runner. The risk parameters' equity field is
// ignored; sizing always uses the running simulated equity.
func NewRunner(cfg Config, aggregator *consensus.Aggregator, risk sizing.RiskParameters) *Runner {
	if cfg.WarmupBars <= 0 {
		cfg.WarmupBars = DefaultConfig().WarmupBars
	}
	return &Runner{cfg: cfg, aggregator: aggregator, risk: risk}
}

// simPosition is the open-position leg of the FLAT -> OPEN -> FLAT state
// machine. Quantity is always positive; Side carries direction.
type simPosition struct {
	symbol     string
	side       string // LONG or SHORT
	quantity   int
	entryPrice float64
	entryTime  time.Time
}

// Run executes the simulation. History shorter than the warm-up window
// aborts with an error rather than producing a meaningless report.
func (r *Runner) Run(ctx context.Context, symbol string, bars []market.PricePoint, initialBalance float64) (*Report, error) {
	if initialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive, got %.2f", initialBalance)
	}
	if len(bars) <= r.cfg.WarmupBars {
		return nil, fmt.Errorf("%w: need more than %d bars, got %d",
			market.ErrDataUnavailable, r.cfg.WarmupBars, len(bars))
	}

	cash := initialBalance
	var pos *simPosition
	trades := make([]RoundTrip, 0)
	curve := make([]EquityPoint, 0, len(bars)-r.cfg.WarmupBars)

	for i := r.cfg.WarmupBars; i < len(bars); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		price := bars[i].Close
		if price <= 0 {
			continue
		}

		// Signal sees only data up to and including this bar.
		sig := r.aggregator.Analyze(bars[:i+1])

		if pos != nil {
			if reason, exit := r.shouldExit(pos, price, sig); exit {
				cash, trades = r.close(cash, trades, pos, bars[i].Time, price, reason)
				pos = nil
			}
		}

		if pos == nil {
			pos, cash = r.maybeEnter(sig, symbol, price, cash, bars[i].Time)
		}

		curve = append(curve, EquityPoint{Time: bars[i].Time, Equity: cash + markValue(pos, price)})
	}

	// Forced exit at the final bar.
	if pos != nil {
		last := bars[len(bars)-1]
		cash, trades = r.close(cash, trades, pos, last.Time, last.Close, "end of backtest")
		curve[len(curve)-1].Equity = cash
	}

	profit := cash - initialBalance
	report := &Report{
		Symbol:         symbol,
		InitialBalance: initialBalance,
		FinalBalance:   cash,
		Profit:         profit,
		ProfitPercent:  profit / initialBalance * 100,
		TradeCount:     len(trades),
		WinRate:        winRate(trades),
		MaxDrawdown:    maxDrawdown(curve),
		ProfitFactor:   profitFactor(trades),
		Trades:         trades,
		EquityCurve:    curve,
	}

	log.Info().Str("symbol", symbol).Int("trades", report.TradeCount).
		Float64("profit_pct", report.ProfitPercent).Float64("max_dd", report.MaxDrawdown).
		Msg("backtest complete")

	return report, nil
}

// shouldExit applies the exit rules in priority order: stop-loss,
// take-profit, signal reversal. First match wins.
func (r *Runner) shouldExit(pos *simPosition, price float64, sig consensus.Signal) (string, bool) {
	pnlPct := unrealizedPercent(pos, price)
	if pnlPct < -r.cfg.StopLossPercent {
		return fmt.Sprintf("stop loss: %.2f%%", pnlPct), true
	}
	if pnlPct > r.cfg.TakeProfitPercent {
		return fmt.Sprintf("take profit: %.2f%%", pnlPct), true
	}
	if pos.side == "LONG" && sig.Sentiment == agents.Bearish {
		return "signal reversal: bearish", true
	}
	if pos.side == "SHORT" && sig.Sentiment == agents.Bullish {
		return "signal reversal: bullish", true
	}
	return "", false
}

// maybeEnter opens a position when flat and the signal clears the
// confidence threshold. Sizing uses the current simulated equity.
func (r *Runner) maybeEnter(sig consensus.Signal, symbol string, price, cash float64, at time.Time) (*simPosition, float64) {
	if sig.Confidence < r.cfg.ConfidenceThreshold {
		return nil, cash
	}
	var side string
	switch sig.Sentiment {
	case agents.Bullish:
		side = "LONG"
	case agents.Bearish:
		if !r.cfg.AllowShort {
			return nil, cash
		}
		side = "SHORT"
	default:
		return nil, cash
	}

	// Size at the slipped fill price, not the quoted close: the fill is
	// what the allocation actually buys.
	fill := r.fillPrice(price, side == "LONG")
	risk := r.risk
	risk.AccountEquity = cash
	qty := sizing.Quantity(sizing.TradeSetup{
		Symbol:     symbol,
		Price:      fill,
		Confidence: sig.Confidence,
		Sentiment:  sig.Sentiment,
	}, risk)
	if qty < 1 {
		return nil, cash
	}
	notional := fill * float64(qty)
	commission := notional * r.cfg.CommissionPercent / 100.0
	if side == "LONG" {
		cash -= notional + commission
	} else {
		cash += notional - commission
	}
	return &simPosition{symbol: symbol, side: side, quantity: qty, entryPrice: fill, entryTime: at}, cash
}

// close unwinds a position at the given price, with exit-side slippage
// and commission, and records the completed round trip.
func (r *Runner) close(cash float64, trades []RoundTrip, pos *simPosition, at time.Time, price float64, reason string) (float64, []RoundTrip) {
	// Exiting a long sells; exiting a short buys to cover.
	fill := r.fillPrice(price, pos.side == "SHORT")
	notional := fill * float64(pos.quantity)
	commission := notional * r.cfg.CommissionPercent / 100.0

	var pnl float64
	if pos.side == "LONG" {
		cash += notional - commission
		pnl = (fill - pos.entryPrice) * float64(pos.quantity)
	} else {
		cash -= notional + commission
		pnl = (pos.entryPrice - fill) * float64(pos.quantity)
	}

	pnlPct := 0.0
	if pos.entryPrice > 0 {
		pnlPct = pnl / (pos.entryPrice * float64(pos.quantity)) * 100
	}

	trades = append(trades, RoundTrip{
		Symbol:     pos.symbol,
		Side:       pos.side,
		Quantity:   pos.quantity,
		EntryTime:  pos.entryTime,
		EntryPrice: pos.entryPrice,
		ExitTime:   at,
		ExitPrice:  fill,
		PnL:        pnl,
		PnLPercent: pnlPct,
		ExitReason: reason,
	})
	return cash, trades
}

func markValue(pos *simPosition, price float64) float64 {
	if pos == nil {
		return 0
	}
	if pos.side == "LONG" {
		return float64(pos.quantity) * price
	}
	return -float64(pos.quantity) * price
}

func unrealizedPercent(pos *simPosition, price float64) float64 {
	if pos.entryPrice <= 0 {
		return 0
	}
	if pos.side == "LONG" {
		return (price - pos.entryPrice) / pos.entryPrice * 100
	}
	return (pos.entryPrice - price) / pos.entryPrice * 100
}

func (r *Runner) fillPrice(price float64, buying bool) float64 {
	slip := r.cfg.SlippagePercent / 100.0
	if buying {
		return price * (1 + slip)
	}
	return price * (1 - slip)
}
