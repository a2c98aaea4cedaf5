package market

import (
	"context"
	"errors"
	"time"
)

// PricePoint is one OHLC bar. Sequences are chronological and read-only
// once fetched; gaps in the calendar are simply absent rows.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// ErrDataUnavailable signals a provider-side failure (network, vendor
// outage, unknown symbol). Callers may retry or fall back; the engine
// never substitutes fabricated prices for it.
var ErrDataUnavailable = errors.New("market data unavailable")

// HistoryProvider fetches an ordered OHLC history for a symbol.
type HistoryProvider interface {
	History(ctx context.Context, symbol string, period string) ([]PricePoint, error)
}

// QuoteProvider fetches the latest price for a symbol, used for
// mark-to-market valuation.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}

// Closes extracts the close series from a bar sequence.
func Closes(bars []PricePoint) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
