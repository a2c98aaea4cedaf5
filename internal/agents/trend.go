package agents

import (
	"fmt"
	"strings"

	"github.com/mwhitt/stockpulse/internal/indicators"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/regime"
)

// TrendFollower buys strength and sells weakness: MA alignment, ADX
// confirmation, MACD agreement. It abstains without a trend to follow.
type TrendFollower struct{}

func NewTrendFollower() *TrendFollower { return &TrendFollower{} }

func (t *TrendFollower) Name() string { return "trend" }
func (t *TrendFollower) Role() string { return "trend_following" }

func (t *TrendFollower) Analyze(bars []market.PricePoint, snap indicators.Snapshot, rgm regime.Regime) Opinion {
	if !snap.Valid {
		return holdOpinion(t.Name(), t.Role(), "insufficient history")
	}

	ts := trendStrength(snap.ADX14)
	score := 0.0
	var notes []string

	// Moving averages separated only by summation residue are not an
	// alignment; on a flat tape there is no trend to follow.
	maSpread := snap.SMA20 - snap.SMA50
	separated := !nearZero(maSpread, snap.Price)
	bullAligned := snap.Price > snap.SMA20 && maSpread > 0 && separated
	bearAligned := snap.Price < snap.SMA20 && maSpread < 0 && separated

	if bullAligned {
		score += 20 * ts
		notes = append(notes, "price above rising MAs")
	} else if bearAligned {
		score -= 20 * ts
		notes = append(notes, "price below falling MAs")
	}

	if snap.ADX14 > 25 {
		notes = append(notes, fmt.Sprintf("ADX %.1f confirms trend", snap.ADX14))
		if bullAligned {
			score += 10
		} else if bearAligned {
			score -= 10
		}
	}

	if snap.MACD.Valid && !nearZero(snap.MACD.Histogram, snap.Price) {
		if snap.MACD.Histogram > 0 && bullAligned {
			score += 10 * ts
			notes = append(notes, "MACD momentum positive")
		} else if snap.MACD.Histogram < 0 && bearAligned {
			score -= 10 * ts
			notes = append(notes, "MACD momentum negative")
		}
	}

	if score == 0 {
		return holdOpinion(t.Name(), t.Role(), "no trend to follow")
	}
	return scoreToOpinion(t.Name(), t.Role(), score, snap, rgm, strings.Join(notes, "; "))
}
