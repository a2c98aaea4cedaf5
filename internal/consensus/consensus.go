package consensus

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/mwhitt/stockpulse/internal/agents"
	"github.com/mwhitt/stockpulse/internal/indicators"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/regime"
)

// Signal is the aggregated view of every specialist agent for one
// price history.
type Signal struct {
	Sentiment  agents.Sentiment `json:"sentiment"`
	Confidence float64          `json:"confidence"`
	Regime     string           `json:"regime"`
	Signals    []string         `json:"signals"`
	Opinions   []agents.Opinion `json:"opinions"`
}

// Aggregator fans a price history out to its agents and folds the
// opinions into one weighted signal.
type Aggregator struct {
	agents    []agents.Agent
	weights   map[string]float64
	regimeCfg regime.Config
}

// DefaultWeights reflect seniority: the chairman counts double and the
// volatility desk one and a half; everyone else is even.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"chairman":   2.0,
		"volatility": 1.5,
	}
}

// NewAggregator builds the standard five-agent panel.
func NewAggregator(regimeCfg regime.Config) *Aggregator {
	return &Aggregator{
		agents: []agents.Agent{
			agents.NewChairman(),
			agents.NewTrendFollower(),
			agents.NewMeanReverter(),
			agents.NewVolatilityBreakout(),
			agents.NewMultiFrame(),
		},
		weights:   DefaultWeights(),
		regimeCfg: regimeCfg,
	}
}

// NewAggregatorWithAgents builds a panel from explicit agents, for tests
// and custom deployments.
func NewAggregatorWithAgents(regimeCfg regime.Config, panel []agents.Agent, weights map[string]float64) *Aggregator {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Aggregator{agents: panel, weights: weights, regimeCfg: regimeCfg}
}

func direction(sig agents.Signal) float64 {
	switch sig {
	case agents.Buy:
		return 1
	case agents.Sell:
		return -1
	default:
		// HOLD dilutes confidence rather than being excluded.
		return 0
	}
}

// Analyze computes the consensus signal for a price history. Histories
// shorter than the indicator warm-up return HOLD with zero confidence
// and a Sideways regime rather than an error; short data is an expected
// condition, not a failure.
func (a *Aggregator) Analyze(bars []market.PricePoint) Signal {
	if len(bars) < indicators.WarmupBars {
		return Signal{
			Sentiment:  agents.Neutral,
			Confidence: 0,
			Regime:     regime.Sideways.String(),
			Signals:    []string{fmt.Sprintf("insufficient history: %d of %d bars", len(bars), indicators.WarmupBars)},
		}
	}

	snap := indicators.Compute(bars)
	rgm := regime.Classify(snap, a.regimeCfg)

	var weightedSum, weightTotal float64
	opinions := make([]agents.Opinion, 0, len(a.agents))
	tags := make([]string, 0, len(a.agents)+1)
	tags = append(tags, "regime: "+rgm.String())

	for _, ag := range a.agents {
		op := ag.Analyze(bars, snap, rgm)
		opinions = append(opinions, op)

		w, ok := a.weights[ag.Name()]
		if !ok {
			w = 1.0
		}
		weightedSum += direction(op.Signal) * op.Confidence * w
		weightTotal += w
		tags = append(tags, fmt.Sprintf("%s: %s (%.0f) %s", op.Agent, op.Signal, op.Confidence, op.Reason))
	}

	score := 0.0
	if weightTotal > 0 {
		score = weightedSum / weightTotal
	}
	score = math.Max(-100, math.Min(100, score))

	sentiment := agents.Neutral
	if score > 0 {
		sentiment = agents.Bullish
	} else if score < 0 {
		sentiment = agents.Bearish
	}

	log.Debug().Str("regime", rgm.String()).Float64("score", score).Msg("consensus computed")

	return Signal{
		Sentiment:  sentiment,
		Confidence: math.Abs(score),
		Regime:     rgm.String(),
		Signals:    tags,
		Opinions:   opinions,
	}
}
