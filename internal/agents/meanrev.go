package agents

import (
	"fmt"
	"strings"

	"github.com/mwhitt/stockpulse/internal/indicators"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/regime"
)

// MeanReverter fades extremes: RSI overbought/oversold and closes
// outside the Bollinger envelope. Its conviction drops when ADX says
// the move is a real trend rather than a stretch.
type MeanReverter struct{}

func NewMeanReverter() *MeanReverter { return &MeanReverter{} }

func (m *MeanReverter) Name() string { return "meanrev" }
func (m *MeanReverter) Role() string { return "mean_reversion" }

func (m *MeanReverter) Analyze(bars []market.PricePoint, snap indicators.Snapshot, rgm regime.Regime) Opinion {
	if !snap.Valid {
		return holdOpinion(m.Name(), m.Role(), "insufficient history")
	}

	os := oscillatorStrength(snap.ADX14)
	score := 0.0
	var notes []string

	if snap.RSI14 < 30 {
		score += 20 * os
		notes = append(notes, fmt.Sprintf("RSI %.1f oversold", snap.RSI14))
	} else if snap.RSI14 > 70 {
		score -= 20 * os
		notes = append(notes, fmt.Sprintf("RSI %.1f overbought", snap.RSI14))
	}

	if snap.Bands.Valid {
		if snap.Price < snap.Bands.Lower {
			score += 15 * os
			notes = append(notes, "close below lower band")
		} else if snap.Price > snap.Bands.Upper {
			score -= 15 * os
			notes = append(notes, "close above upper band")
		}
	}

	// Fading a strong trend is how reversion traders get run over.
	if rgm.Trending() && snap.ADX14 > 30 {
		score *= 0.5
		notes = append(notes, "strong trend, conviction halved")
	}

	if score == 0 {
		return holdOpinion(m.Name(), m.Role(), "nothing stretched to fade")
	}
	return scoreToOpinion(m.Name(), m.Role(), score, snap, rgm, strings.Join(notes, "; "))
}
