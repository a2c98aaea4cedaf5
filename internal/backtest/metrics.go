package backtest

// maxDrawdown computes the largest peak-to-trough decline over an equity
// curve as a fraction of the peak. Always in [0, 1].
func maxDrawdown(curve []EquityPoint) float64 {
	peak := 0.0
	worst := 0.0
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak > 0 {
			dd := (peak - pt.Equity) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	if worst < 0 {
		return 0
	}
	if worst > 1 {
		return 1
	}
	return worst
}

// profitFactor is gross wins over gross losses. With zero losses it
// returns the gross wins themselves rather than infinity.
func profitFactor(trades []RoundTrip) float64 {
	grossWins, grossLosses := 0.0, 0.0
	for _, t := range trades {
		if t.PnL >= 0 {
			grossWins += t.PnL
		} else {
			grossLosses += -t.PnL
		}
	}
	if grossLosses == 0 {
		return grossWins
	}
	return grossWins / grossLosses
}

// winRate is the fraction of round-trips with positive PnL, in percent.
func winRate(trades []RoundTrip) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}
