package indicators

import (
	"math"

	"github.com/mwhitt/stockpulse/internal/market"
)

// WarmupBars is the minimum history length for a full Snapshot. Shorter
// inputs yield Snapshot.Valid == false and neutral values.
const WarmupBars = 50

// SMA computes the simple moving average series for the given period,
// aligned to the tail of prices (output length = len(prices)-period+1).
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	out := make([]float64, 0, len(prices)-period+1)
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMA computes the exponential moving average series seeded with an SMA
// over the first period values.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	out := make([]float64, 0, len(prices)-period+1)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += prices[i]
	}
	ema := seed / float64(period)
	out = append(out, ema)
	k := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = prices[i]*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

// RSI computes the Relative Strength Index with Wilder smoothing.
// Returns 50 (neutral) on insufficient data, 100 when there are no losses.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50.0
	}
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	alpha := 1.0 / float64(period)
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = avgGain*(1-alpha) + gain*alpha
		avgLoss = avgLoss*(1-alpha) + loss*alpha
	}

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// MACDResult holds the MACD line, its signal line, and the histogram for
// the last two bars (Histogram vs PrevHistogram drives growth checks).
type MACDResult struct {
	Line          float64 `json:"line"`
	Signal        float64 `json:"signal"`
	Histogram     float64 `json:"histogram"`
	PrevHistogram float64 `json:"prev_histogram"`
	Valid         bool    `json:"valid"`
}

// MACD computes the standard EMA-based MACD(fast, slow, signal).
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	if len(prices) < slow+signal {
		return MACDResult{}
	}
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)
	// Align the fast series to the slow series tail.
	offset := len(fastEMA) - len(slowEMA)
	macdLine := make([]float64, len(slowEMA))
	for i := range slowEMA {
		macdLine[i] = fastEMA[i+offset] - slowEMA[i]
	}
	signalLine := EMA(macdLine, signal)
	if len(signalLine) < 2 {
		return MACDResult{}
	}
	n := len(signalLine)
	m := len(macdLine)
	return MACDResult{
		Line:          macdLine[m-1],
		Signal:        signalLine[n-1],
		Histogram:     macdLine[m-1] - signalLine[n-1],
		PrevHistogram: macdLine[m-2] - signalLine[n-2],
		Valid:         true,
	}
}

// ATR computes the Average True Range with Wilder smoothing. Returns 0
// on insufficient data.
func ATR(bars []market.PricePoint, period int) float64 {
	if len(bars) < period+1 {
		return 0.0
	}
	trueRanges := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		trueRanges[i-1] = math.Max(hl, math.Max(hc, lc))
	}
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)
	alpha := 1.0 / float64(period)
	for i := period; i < len(trueRanges); i++ {
		atr = atr*(1-alpha) + trueRanges[i]*alpha
	}
	return atr
}

// ADX computes the Average Directional Index with Wilder smoothing of
// the true range and directional movements. Returns 0 on insufficient
// data or a flat market (zero smoothed true range).
func ADX(bars []market.PricePoint, period int) float64 {
	if len(bars) < period*2+1 {
		return 0.0
	}
	n := len(bars) - 1
	trueRanges := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		trueRanges[i-1] = math.Max(hl, math.Max(hc, lc))

		plusMove := bars[i].High - bars[i-1].High
		minusMove := bars[i-1].Low - bars[i].Low
		if plusMove > minusMove && plusMove > 0 {
			plusDM[i-1] = plusMove
		}
		if minusMove > plusMove && minusMove > 0 {
			minusDM[i-1] = minusMove
		}
	}

	smoothedTR, smoothedPlus, smoothedMinus := 0.0, 0.0, 0.0
	for i := 0; i < period; i++ {
		smoothedTR += trueRanges[i]
		smoothedPlus += plusDM[i]
		smoothedMinus += minusDM[i]
	}
	alpha := 1.0 / float64(period)

	// Smooth DX into ADX over the remaining bars.
	adx := 0.0
	dxCount := 0
	dx := func() float64 {
		if smoothedTR <= 0 {
			return 0
		}
		pdi := 100.0 * smoothedPlus / smoothedTR
		mdi := 100.0 * smoothedMinus / smoothedTR
		if pdi+mdi == 0 {
			return 0
		}
		return 100.0 * math.Abs(pdi-mdi) / (pdi + mdi)
	}
	adx = dx()
	dxCount = 1
	for i := period; i < n; i++ {
		smoothedTR = smoothedTR*(1-alpha) + trueRanges[i]*alpha
		smoothedPlus = smoothedPlus*(1-alpha) + plusDM[i]*alpha
		smoothedMinus = smoothedMinus*(1-alpha) + minusDM[i]*alpha
		if dxCount < period {
			adx += dx()
			dxCount++
			if dxCount == period {
				adx /= float64(period)
			}
		} else {
			adx = adx*(1-alpha) + dx()*alpha
		}
	}
	if dxCount < period {
		adx /= float64(dxCount)
	}
	return adx
}

// Bands holds Bollinger Band levels around an SMA.
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	Valid  bool    `json:"valid"`
}

// Bollinger computes bands at mult standard deviations around the
// period SMA of the latest window.
func Bollinger(prices []float64, period int, mult float64) Bands {
	if len(prices) < period {
		return Bands{}
	}
	window := prices[len(prices)-period:]
	mean := 0.0
	for _, p := range window {
		mean += p
	}
	mean /= float64(period)
	variance := 0.0
	for _, p := range window {
		variance += (p - mean) * (p - mean)
	}
	stdev := math.Sqrt(variance / float64(period))
	return Bands{
		Upper:  mean + mult*stdev,
		Middle: mean,
		Lower:  mean - mult*stdev,
		Valid:  true,
	}
}

// Snapshot aggregates the latest value of every indicator the engine
// consumes. Valid is false when the history is shorter than WarmupBars;
// consumers must treat such snapshots as neutral.
type Snapshot struct {
	Price  float64    `json:"price"`
	SMA20  float64    `json:"sma20"`
	SMA50  float64    `json:"sma50"`
	RSI14  float64    `json:"rsi14"`
	MACD   MACDResult `json:"macd"`
	ADX14  float64    `json:"adx14"`
	Bands  Bands      `json:"bands"`
	ATR14  float64    `json:"atr14"`
	Valid  bool       `json:"valid"`
	Length int        `json:"length"`
}

// Compute builds a Snapshot from an OHLC history.
func Compute(bars []market.PricePoint) Snapshot {
	snap := Snapshot{Length: len(bars)}
	if len(bars) < WarmupBars {
		snap.RSI14 = 50.0
		return snap
	}
	closes := market.Closes(bars)
	sma20 := SMA(closes, 20)
	sma50 := SMA(closes, 50)

	snap.Price = closes[len(closes)-1]
	snap.SMA20 = sma20[len(sma20)-1]
	snap.SMA50 = sma50[len(sma50)-1]
	snap.RSI14 = RSI(closes, 14)
	snap.MACD = MACD(closes, 12, 26, 9)
	snap.ADX14 = ADX(bars, 14)
	snap.Bands = Bollinger(closes, 20, 2.0)
	snap.ATR14 = ATR(bars, 14)
	snap.Valid = true
	return snap
}

// ATRPercent returns ATR as a fraction of price, guarding zero price.
func (s Snapshot) ATRPercent() float64 {
	if s.Price <= 0 {
		return 0
	}
	return s.ATR14 / s.Price
}

// Bandwidth returns Bollinger bandwidth relative to the middle band,
// guarding a zero middle.
func (s Snapshot) Bandwidth() float64 {
	if !s.Bands.Valid || s.Bands.Middle <= 0 {
		return 0
	}
	return (s.Bands.Upper - s.Bands.Lower) / s.Bands.Middle
}
