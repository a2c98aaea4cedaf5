package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitt/stockpulse/internal/market"
)

func rampBars(n int, start, step float64) []market.PricePoint {
	bars := make([]market.PricePoint, n)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		close := start + step*float64(i)
		bars[i] = market.PricePoint{
			Time:  t0.AddDate(0, 0, i),
			Open:  close - step/4,
			High:  close + step/2,
			Low:   close - step/2,
			Close: close,
		}
	}
	return bars
}

func TestSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	out := SMA(prices, 3)
	require.Len(t, out, 3)
	assert.InDelta(t, 2.0, out[0], 1e-9)
	assert.InDelta(t, 3.0, out[1], 1e-9)
	assert.InDelta(t, 4.0, out[2], 1e-9)
}

func TestSMAInsufficientData(t *testing.T) {
	assert.Nil(t, SMA([]float64{1, 2}, 3))
	assert.Nil(t, SMA(nil, 3))
	assert.Nil(t, SMA([]float64{1, 2, 3}, 0))
}

func TestEMAConvergesTowardRecentPrices(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100
	}
	prices[59] = 200
	out := EMA(prices, 10)
	require.NotEmpty(t, out)
	last := out[len(out)-1]
	assert.Greater(t, last, 100.0)
	assert.Less(t, last, 200.0)
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	assert.Equal(t, 100.0, RSI(prices, 14))
}

func TestRSIAllLossesNearZero(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 200 - float64(i)
	}
	rsi := RSI(prices, 14)
	assert.Less(t, rsi, 1.0)
	assert.GreaterOrEqual(t, rsi, 0.0)
}

func TestRSINeutralOnShortInput(t *testing.T) {
	assert.Equal(t, 50.0, RSI([]float64{1, 2, 3}, 14))
}

func TestMACDUptrendPositive(t *testing.T) {
	prices := make([]float64, 120)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	res := MACD(prices, 12, 26, 9)
	require.True(t, res.Valid)
	assert.Greater(t, res.Line, 0.0)
}

func TestMACDInsufficientData(t *testing.T) {
	res := MACD(make([]float64, 30), 12, 26, 9)
	assert.False(t, res.Valid)
}

func TestATRPositiveAndZeroGuard(t *testing.T) {
	bars := rampBars(60, 100, 1)
	atr := ATR(bars, 14)
	assert.Greater(t, atr, 0.0)
	assert.False(t, math.IsNaN(atr))

	assert.Equal(t, 0.0, ATR(bars[:10], 14))
}

func TestADXStrongInSteadyTrend(t *testing.T) {
	bars := rampBars(100, 100, 1)
	adx := ADX(bars, 14)
	assert.Greater(t, adx, 25.0)
	assert.LessOrEqual(t, adx, 100.0)
}

func TestADXInsufficientData(t *testing.T) {
	assert.Equal(t, 0.0, ADX(rampBars(20, 100, 1), 14))
}

func TestBollingerOrdering(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i%5)
	}
	b := Bollinger(prices, 20, 2)
	require.True(t, b.Valid)
	assert.Greater(t, b.Upper, b.Middle)
	assert.Greater(t, b.Middle, b.Lower)
}

func TestComputeShortHistoryInvalid(t *testing.T) {
	snap := Compute(rampBars(WarmupBars-1, 100, 1))
	assert.False(t, snap.Valid)
	assert.Equal(t, 50.0, snap.RSI14)
	assert.Equal(t, 0.0, snap.ATRPercent())
	assert.Equal(t, 0.0, snap.Bandwidth())
}

func TestComputeUptrendSnapshot(t *testing.T) {
	snap := Compute(rampBars(100, 100, 1))
	require.True(t, snap.Valid)
	assert.Greater(t, snap.Price, snap.SMA20)
	assert.Greater(t, snap.SMA20, snap.SMA50)
	assert.Greater(t, snap.ADX14, 25.0)
	assert.True(t, snap.MACD.Valid)
	assert.True(t, snap.Bands.Valid)
	assert.Greater(t, snap.ATR14, 0.0)
}
