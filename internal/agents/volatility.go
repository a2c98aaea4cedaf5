package agents

import (
	"fmt"
	"strings"

	"github.com/mwhitt/stockpulse/internal/indicators"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/regime"
)

// VolatilityBreakout trades expansion out of compression: a squeeze
// resolving through a band is an entry, and in high-volatility tape it
// sides with the direction of the expansion bar.
type VolatilityBreakout struct{}

func NewVolatilityBreakout() *VolatilityBreakout { return &VolatilityBreakout{} }

func (v *VolatilityBreakout) Name() string { return "volatility" }
func (v *VolatilityBreakout) Role() string { return "volatility_breakout" }

func (v *VolatilityBreakout) Analyze(bars []market.PricePoint, snap indicators.Snapshot, rgm regime.Regime) Opinion {
	if !snap.Valid {
		return holdOpinion(v.Name(), v.Role(), "insufficient history")
	}

	score := 0.0
	var notes []string

	switch rgm {
	case regime.Squeeze:
		// Compression itself is directionless; lean on where price sits
		// inside the envelope for an early read.
		if snap.Bands.Valid {
			mid := snap.Bands.Middle
			if snap.Price > mid {
				score += 10
				notes = append(notes, "coiling above band midline")
			} else if snap.Price < mid {
				score -= 10
				notes = append(notes, "coiling below band midline")
			}
		}
		if score == 0 {
			return holdOpinion(v.Name(), v.Role(), "squeeze with no lean")
		}
	case regime.Volatile:
		// Expansion: side with the latest bar's thrust.
		last := bars[len(bars)-1]
		if last.Close > last.Open {
			score += 15
			notes = append(notes, "expansion bar closed strong")
		} else if last.Close < last.Open {
			score -= 15
			notes = append(notes, "expansion bar closed weak")
		}
		if snap.Bands.Valid && snap.Price > snap.Bands.Upper {
			score += 10
			notes = append(notes, "breakout through upper band")
		} else if snap.Bands.Valid && snap.Price < snap.Bands.Lower {
			score -= 10
			notes = append(notes, "breakdown through lower band")
		}
		if score == 0 {
			return holdOpinion(v.Name(), v.Role(), "volatile but directionless")
		}
	default:
		bw := snap.Bandwidth()
		if snap.Bands.Valid && snap.Price > snap.Bands.Upper && bw > 0.08 {
			score += 20
			notes = append(notes, fmt.Sprintf("band breakout, bandwidth %.1f%%", bw*100))
		} else if snap.Bands.Valid && snap.Price < snap.Bands.Lower && bw > 0.08 {
			score -= 20
			notes = append(notes, fmt.Sprintf("band breakdown, bandwidth %.1f%%", bw*100))
		} else {
			return holdOpinion(v.Name(), v.Role(), "no volatility setup")
		}
	}

	return scoreToOpinion(v.Name(), v.Role(), score, snap, rgm, strings.Join(notes, "; "))
}
