package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	cb "github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardedProvider wraps a HistoryProvider and QuoteProvider behind a
// circuit breaker and a rate limiter. A tripped breaker surfaces as
// ErrDataUnavailable so callers see one provider-failure kind.
type GuardedProvider struct {
	history HistoryProvider
	quotes  QuoteProvider
	breaker *cb.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuardedProvider builds the wrapper. rps bounds outbound vendor
// calls; the breaker trips on 3 consecutive failures or a >5% failure
// rate over at least 20 requests.
func NewGuardedProvider(name string, history HistoryProvider, quotes QuoteProvider, rps float64) *GuardedProvider {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		total := counts.Requests
		if total < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(total) > 0.05
	}
	st.OnStateChange = func(name string, from, to cb.State) {
		log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).
			Msg("provider breaker state change")
	}

	if rps <= 0 {
		rps = 5
	}
	return &GuardedProvider{
		history: history,
		quotes:  quotes,
		breaker: cb.NewCircuitBreaker(st),
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

func (g *GuardedProvider) History(ctx context.Context, symbol string, period string) ([]PricePoint, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := g.breaker.Execute(func() (any, error) {
		return g.history.History(ctx, symbol, period)
	})
	if err != nil {
		if err == cb.ErrOpenState || err == cb.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: breaker open for %s", ErrDataUnavailable, symbol)
		}
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return v.([]PricePoint), nil
}

func (g *GuardedProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	v, err := g.breaker.Execute(func() (any, error) {
		return g.quotes.Quote(ctx, symbol)
	})
	if err != nil {
		if err == cb.ErrOpenState || err == cb.ErrTooManyRequests {
			return 0, fmt.Errorf("%w: breaker open for %s", ErrDataUnavailable, symbol)
		}
		return 0, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return v.(float64), nil
}
