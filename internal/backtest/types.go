package backtest

import (
	"time"

	"github.com/mwhitt/stockpulse/internal/indicators"
)

// Config controls a single backtest run.
type Config struct {
	WarmupBars          int     `yaml:"warmup_bars"`          // Default: 50 (indicator validity)
	ConfidenceThreshold float64 `yaml:"confidence_threshold"` // Default: 60
	StopLossPercent     float64 `yaml:"stop_loss_percent"`    // Default: 5 (exit below -5%)
	TakeProfitPercent   float64 `yaml:"take_profit_percent"`  // Default: 10 (exit above +10%)
	CommissionPercent   float64 `yaml:"commission_percent"`   // Default: 0.1
	SlippagePercent     float64 `yaml:"slippage_percent"`     // Default: 0.05
	AllowShort          bool    `yaml:"allow_short"`          // Default: true
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		WarmupBars:          indicators.WarmupBars,
		ConfidenceThreshold: 60,
		StopLossPercent:     5,
		TakeProfitPercent:   10,
		CommissionPercent:   0.1,
		SlippagePercent:     0.05,
		AllowShort:          true,
	}
}

// RoundTrip is one completed open-close cycle in the simulation.
type RoundTrip struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // LONG or SHORT
	Quantity   int       `json:"quantity"`
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitTime   time.Time `json:"exit_time"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	ExitReason string    `json:"exit_reason"`
}

// EquityPoint is one day's mark-to-market account value.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Report is the write-once result of one simulation run.
type Report struct {
	Symbol         string        `json:"symbol"`
	InitialBalance float64       `json:"initial_balance"`
	FinalBalance   float64       `json:"final_balance"`
	Profit         float64       `json:"profit"`
	ProfitPercent  float64       `json:"profit_percent"`
	TradeCount     int           `json:"trade_count"` // Completed round-trips only
	WinRate        float64       `json:"win_rate"`
	MaxDrawdown    float64       `json:"max_drawdown"` // Fraction of peak, 0-1
	ProfitFactor   float64       `json:"profit_factor"`
	Trades         []RoundTrip   `json:"trades"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
}
