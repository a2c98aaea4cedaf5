package market

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CachedQuotes fronts a QuoteProvider with a short-TTL Redis cache and an
// in-process last-known-price map. On provider failure the last known
// price is returned so mark-to-market keeps working; only symbols never
// quoted at all propagate the error.
type CachedQuotes struct {
	provider QuoteProvider
	rdb      *redis.Client
	ttl      time.Duration

	mu        sync.RWMutex
	lastKnown map[string]float64
}

// NewCachedQuotes builds the cache. rdb may be nil, in which case only
// the in-process fallback map is used.
func NewCachedQuotes(provider QuoteProvider, rdb *redis.Client, ttl time.Duration) *CachedQuotes {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &CachedQuotes{
		provider:  provider,
		rdb:       rdb,
		ttl:       ttl,
		lastKnown: make(map[string]float64),
	}
}

func quoteKey(symbol string) string { return "stockpulse:quote:" + symbol }

// Quote returns a cached price when fresh, otherwise hits the provider.
func (c *CachedQuotes) Quote(ctx context.Context, symbol string) (float64, error) {
	if c.rdb != nil {
		if s, err := c.rdb.Get(ctx, quoteKey(symbol)).Result(); err == nil {
			if px, perr := strconv.ParseFloat(s, 64); perr == nil && px > 0 {
				return px, nil
			}
		}
	}

	px, err := c.provider.Quote(ctx, symbol)
	if err != nil {
		c.mu.RLock()
		last, ok := c.lastKnown[symbol]
		c.mu.RUnlock()
		if ok {
			log.Debug().Str("symbol", symbol).Float64("last_known", last).
				Msg("quote fetch failed, using last known price")
			return last, nil
		}
		return 0, err
	}

	c.mu.Lock()
	c.lastKnown[symbol] = px
	c.mu.Unlock()

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, quoteKey(symbol), strconv.FormatFloat(px, 'f', -1, 64), c.ttl).Err(); err != nil {
			log.Debug().Err(err).Str("symbol", symbol).Msg("quote cache write failed")
		}
	}
	return px, nil
}
