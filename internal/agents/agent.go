package agents

import (
	"math"

	"github.com/mwhitt/stockpulse/internal/indicators"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/regime"
)

// Signal is an agent's directional call.
type Signal string

const (
	Buy  Signal = "BUY"
	Sell Signal = "SELL"
	Hold Signal = "HOLD"
)

// Sentiment is the directional read behind a signal.
type Sentiment string

const (
	Bullish Sentiment = "BULLISH"
	Bearish Sentiment = "BEARISH"
	Neutral Sentiment = "NEUTRAL"
)

// Opinion is one agent's judgment of a price history. Confidence is
// 0-100. Opinions are produced fresh per call; agents never read each
// other's output.
type Opinion struct {
	Agent      string    `json:"agent"`
	Role       string    `json:"role"`
	Signal     Signal    `json:"signal"`
	Confidence float64   `json:"confidence"`
	Sentiment  Sentiment `json:"sentiment"`
	Reason     string    `json:"reason"`
}

// Agent is one specialist judge. Implementations are pure functions of
// their inputs and independently testable.
type Agent interface {
	Name() string
	Role() string
	Analyze(bars []market.PricePoint, snap indicators.Snapshot, rgm regime.Regime) Opinion
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// nearZero reports whether v is indistinguishable from zero at the
// given price scale. Long constant-slope tapes converge indicator
// differences to exact zero plus float residue; reading a direction
// out of that residue produces signals from noise.
func nearZero(v, price float64) bool {
	return math.Abs(v) <= 1e-9*math.Max(1, math.Abs(price))
}

// trendStrength scales trend-term contributions by ADX, bounded so a
// runaway ADX cannot dominate.
func trendStrength(adx float64) float64 {
	return clamp(adx/20.0, 0.5, 2.0)
}

// oscillatorStrength is deliberately inverse to ADX: oscillator reads
// count more in range-bound markets and less in strong trends.
func oscillatorStrength(adx float64) float64 {
	if adx <= 0 {
		return 2.0
	}
	return clamp(25.0/adx, 0.5, 2.0)
}

// holdOpinion is the shared insufficient-data / no-edge result.
func holdOpinion(name, role, reason string) Opinion {
	return Opinion{
		Agent:      name,
		Role:       role,
		Signal:     Hold,
		Confidence: 0,
		Sentiment:  Neutral,
		Reason:     reason,
	}
}

// scoreToOpinion converts a signed score into an Opinion using the
// shared confidence formula: |score|/35 normalized to percent, boosted
// 1.3x when trending, damped 0.85x in chop and a further 0.8x in high
// volatility, floored at +20 and capped at 98.
func scoreToOpinion(name, role string, score float64, snap indicators.Snapshot, rgm regime.Regime, reason string) Opinion {
	boost := 0.85
	if rgm.Trending() {
		boost = 1.3
	}
	volDamp := 1.0
	if snap.ATRPercent() > 0.03 {
		volDamp = 0.8
	}
	confidence := math.Min(math.Round(math.Abs(score)/35.0*100.0*boost*volDamp)+20, 98)

	sentiment := Bullish
	sig := Buy
	if score < 0 {
		sentiment = Bearish
		sig = Sell
	}
	return Opinion{
		Agent:      name,
		Role:       role,
		Signal:     sig,
		Confidence: confidence,
		Sentiment:  sentiment,
		Reason:     reason,
	}
}
