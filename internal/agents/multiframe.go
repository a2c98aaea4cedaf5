package agents

import (
	"fmt"

	"github.com/mwhitt/stockpulse/internal/indicators"
	"github.com/mwhitt/stockpulse/internal/market"
	"github.com/mwhitt/stockpulse/internal/regime"
)

// MultiFrame checks short, medium, and long horizons independently and
// only commits when at least two agree. Disagreement is a HOLD outright,
// never an average of conflicting calls.
type MultiFrame struct{}

func NewMultiFrame() *MultiFrame { return &MultiFrame{} }

func (m *MultiFrame) Name() string { return "multiframe" }
func (m *MultiFrame) Role() string { return "multi_timeframe" }

// horizonRead is one horizon's directional read: +1 bullish, -1 bearish,
// 0 neutral.
func horizonRead(closes []float64, window int) int {
	if len(closes) < window || window < 2 {
		return 0
	}
	tail := closes[len(closes)-window:]
	first, last := tail[0], tail[len(tail)-1]
	if first <= 0 {
		return 0
	}
	change := (last - first) / first
	sma := indicators.SMA(tail, window)
	above := last > sma[len(sma)-1]
	switch {
	case change > 0.01 && above:
		return 1
	case change < -0.01 && !above:
		return -1
	default:
		return 0
	}
}

func (m *MultiFrame) Analyze(bars []market.PricePoint, snap indicators.Snapshot, rgm regime.Regime) Opinion {
	if !snap.Valid {
		return holdOpinion(m.Name(), m.Role(), "insufficient history")
	}

	closes := market.Closes(bars)
	reads := []struct {
		name   string
		window int
		dir    int
	}{
		{"short", 10, 0},
		{"medium", 20, 0},
		{"long", 50, 0},
	}
	bulls, bears := 0, 0
	for i := range reads {
		reads[i].dir = horizonRead(closes, reads[i].window)
		switch reads[i].dir {
		case 1:
			bulls++
		case -1:
			bears++
		}
	}

	// Conflict resolution: any split between bullish and bearish
	// horizons, or fewer than two committed horizons, is a HOLD.
	if bulls > 0 && bears > 0 {
		return holdOpinion(m.Name(), m.Role(), "horizons disagree")
	}
	agree := bulls
	dir := 1.0
	if bears > bulls {
		agree = bears
		dir = -1.0
	}
	if agree < 2 {
		return holdOpinion(m.Name(), m.Role(), "fewer than two horizons committed")
	}

	score := dir * (20.0 + 15.0*float64(agree-2))
	reason := fmt.Sprintf("%d of 3 horizons aligned", agree)
	return scoreToOpinion(m.Name(), m.Role(), score, snap, rgm, reason)
}
