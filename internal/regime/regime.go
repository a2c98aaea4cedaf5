package regime

import (
	"github.com/mwhitt/stockpulse/internal/indicators"
)

// Regime labels the current market behavior. Exactly one regime holds
// per bar; classification priority is Squeeze > Volatile > trend >
// Sideways.
type Regime int

const (
	Sideways Regime = iota
	BullTrend
	BearTrend
	Volatile
	Squeeze
)

func (r Regime) String() string {
	switch r {
	case BullTrend:
		return "bull_trend"
	case BearTrend:
		return "bear_trend"
	case Volatile:
		return "volatile"
	case Squeeze:
		return "squeeze"
	default:
		return "sideways"
	}
}

// Trending reports whether the regime is a directional trend.
func (r Regime) Trending() bool {
	return r == BullTrend || r == BearTrend
}

// Config holds classification thresholds.
type Config struct {
	SqueezeBandwidth float64 `yaml:"squeeze_bandwidth"` // Default: 0.05
	VolatileATRPct   float64 `yaml:"volatile_atr_pct"`  // Default: 0.03
	TrendADX         float64 `yaml:"trend_adx"`         // Default: 25
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SqueezeBandwidth: 0.05,
		VolatileATRPct:   0.03,
		TrendADX:         25,
	}
}

// Classify labels the latest bar from an indicator snapshot. Invalid
// snapshots (insufficient history) are Sideways.
func Classify(snap indicators.Snapshot, cfg Config) Regime {
	if !snap.Valid {
		return Sideways
	}
	if snap.Bands.Valid && snap.Bandwidth() < cfg.SqueezeBandwidth {
		return Squeeze
	}
	if snap.ATRPercent() > cfg.VolatileATRPct {
		return Volatile
	}
	if snap.ADX14 > cfg.TrendADX {
		if snap.Price > snap.SMA20 && snap.SMA20 > snap.SMA50 {
			return BullTrend
		}
		if snap.Price < snap.SMA20 && snap.SMA20 < snap.SMA50 {
			return BearTrend
		}
	}
	return Sideways
}
