package sizing

import (
	"math"

	"github.com/mwhitt/stockpulse/internal/agents"
)

// TradeSetup is the signal-side input to order planning.
type TradeSetup struct {
	Symbol     string           `json:"symbol"`
	Price      float64          `json:"price"`
	Confidence float64          `json:"confidence"`
	Sentiment  agents.Sentiment `json:"sentiment"`
}

// RiskParameters is the account-side risk budget.
type RiskParameters struct {
	AccountEquity          float64 `yaml:"account_equity" json:"account_equity"`
	RiskPerTradePercent    float64 `yaml:"risk_per_trade_percent" json:"risk_per_trade_percent"`
	MaxPositionSizePercent float64 `yaml:"max_position_size_percent" json:"max_position_size_percent"`
}

// OrderPlan is a concrete order: how many shares and at what limit.
type OrderPlan struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   int     `json:"quantity"`
	LimitPrice float64 `json:"limit_price"`
	Notional   float64 `json:"notional"`
}

const (
	minQuantity = 1
	maxQuantity = 10000
	baseSpread  = 0.001 // 0.1% of price
)

// Quantity sizes a position from equity and confidence: the maximum
// allocation is scaled by a confidence factor floored at 0.5 and the
// result clamped to [1, 10000] shares. Non-positive prices size to zero.
func Quantity(setup TradeSetup, risk RiskParameters) int {
	if setup.Price <= 0 || risk.AccountEquity <= 0 {
		return 0
	}
	maxAllocation := risk.AccountEquity * risk.MaxPositionSizePercent
	confidenceFactor := math.Max(0.5, setup.Confidence/100.0)
	target := maxAllocation * confidenceFactor
	qty := int(math.Floor(target / setup.Price))
	if qty < minQuantity {
		qty = minQuantity
	}
	if qty > maxQuantity {
		qty = maxQuantity
	}
	return qty
}

// LimitPrice computes the limit for a side. The base spread is 0.1% of
// price; high confidence (>80) tightens it by 20% to fill faster, low
// confidence (<60) widens it by 20% for a better price at lower fill
// probability. BUY limits sit below market, SELL limits above. Rounded
// to cents.
func LimitPrice(setup TradeSetup, buy bool) float64 {
	if setup.Price <= 0 {
		return 0
	}
	spread := setup.Price * baseSpread
	switch {
	case setup.Confidence > 80:
		spread *= 0.8
	case setup.Confidence < 60:
		spread *= 1.2
	}
	var limit float64
	if buy {
		limit = setup.Price - spread
	} else {
		limit = setup.Price + spread
	}
	return math.Round(limit*100) / 100
}

// PlanOrder turns a setup and a risk budget into a full order plan.
// Deterministic and side-effect free.
func PlanOrder(setup TradeSetup, risk RiskParameters) OrderPlan {
	buy := setup.Sentiment == agents.Bullish
	side := "SELL"
	if buy {
		side = "BUY"
	}
	qty := Quantity(setup, risk)
	limit := LimitPrice(setup, buy)
	return OrderPlan{
		Symbol:     setup.Symbol,
		Side:       side,
		Quantity:   qty,
		LimitPrice: limit,
		Notional:   float64(qty) * limit,
	}
}
