package agents

import (
	"fmt"
	"math"
	"strings"

	"github.com/mwhitt/stockpulse/internal/indicators"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/regime"
)

// Chairman is the senior judge: it reads every indicator family and is
// weighted heaviest in consensus.
type Chairman struct{}

func NewChairman() *Chairman { return &Chairman{} }

func (c *Chairman) Name() string { return "chairman" }
func (c *Chairman) Role() string { return "senior" }

func (c *Chairman) Analyze(bars []market.PricePoint, snap indicators.Snapshot, rgm regime.Regime) Opinion {
	if !snap.Valid {
		return holdOpinion(c.Name(), c.Role(), "insufficient history")
	}

	ts := trendStrength(snap.ADX14)
	os := oscillatorStrength(snap.ADX14)
	score := 0.0
	var notes []string

	// Trend term: full price/SMA20/SMA50 alignment.
	if snap.Price > snap.SMA20 && snap.SMA20 > snap.SMA50 {
		score += 15 * ts
		notes = append(notes, "bullish MA alignment")
	} else if snap.Price < snap.SMA20 && snap.SMA20 < snap.SMA50 {
		score -= 15 * ts
		notes = append(notes, "bearish MA alignment")
	}

	// Oscillator term: RSI extremes, weighted inversely to trend strength.
	if snap.RSI14 < 30 {
		score += 25 * os
		notes = append(notes, fmt.Sprintf("RSI oversold (%.1f)", snap.RSI14))
	} else if snap.RSI14 > 70 {
		score -= 25 * os
		notes = append(notes, fmt.Sprintf("RSI overbought (%.1f)", snap.RSI14))
	}

	// MACD term: crossover direction, stronger when the histogram is
	// still growing in that direction. A histogram within float residue
	// of zero carries no direction and is skipped.
	if snap.MACD.Valid && !nearZero(snap.MACD.Histogram, snap.Price) {
		growing := math.Abs(snap.MACD.Histogram) > math.Abs(snap.MACD.PrevHistogram)
		weight := 15.0
		if growing {
			weight = 20.0
		}
		if snap.MACD.Line > snap.MACD.Signal {
			score += weight * ts
			notes = append(notes, "MACD above signal")
		} else if snap.MACD.Line < snap.MACD.Signal {
			score -= weight * ts
			notes = append(notes, "MACD below signal")
		}
	}

	// Band term: beyond-band closes read as continuation in strong
	// trends (band walk) and as reversal setups otherwise.
	if snap.Bands.Valid {
		if snap.Price > snap.Bands.Upper {
			if snap.ADX14 > 30 {
				score += 10 * ts
				notes = append(notes, "upper band walk")
			} else {
				score -= 15 * os
				notes = append(notes, "stretched above upper band")
			}
		} else if snap.Price < snap.Bands.Lower {
			if snap.ADX14 > 30 {
				score -= 10 * ts
				notes = append(notes, "lower band walk")
			} else {
				score += 15 * os
				notes = append(notes, "stretched below lower band")
			}
		}
	}

	reason := "no directional edge"
	if len(notes) > 0 {
		reason = strings.Join(notes, "; ")
	}
	return scoreToOpinion(c.Name(), c.Role(), score, snap, rgm, reason)
}
