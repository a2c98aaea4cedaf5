package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mwhitt/stockpulse/internal/market"
)

// Position is one open holding. Quantity is signed: positive long,
// negative short. A symbol carries at most one position; it never
// partially crosses zero (close fully, then reopen the other way).
type Position struct {
	Symbol       string  `json:"symbol"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
}

// Trade is one executed fill, priced post-slippage. The in-memory log
// keeps a bounded recent window; the full history goes to the journal.
type Trade struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	Total      float64   `json:"total"`
	Commission float64   `json:"commission"`
	Reason     string    `json:"reason"`
}

// Portfolio is a point-in-time account snapshot.
type Portfolio struct {
	Cash             float64    `json:"cash"`
	Equity           float64    `json:"equity"`
	Positions        []Position `json:"positions"`
	Trades           []Trade    `json:"trades"`
	DailyStartEquity float64    `json:"daily_start_equity"`
	DayStartDate     time.Time  `json:"day_start_date"`
}

// TradeRequest is the input to ExecuteTrade.
type TradeRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"` // BUY or SELL
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Reason   string  `json:"reason"`
}

// TradeResult is a structured execution outcome. Risk rejections come
// back as Success=false with a reason; the account is untouched.
type TradeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Trade   *Trade `json:"trade,omitempty"`
}

// Journal receives every accepted trade. A nil journal disables
// persistence; journal failures are logged, never block execution.
type Journal interface {
	Append(ctx context.Context, t Trade) error
}

// Config tunes execution costs and the risk gate.
type Config struct {
	CommissionPercent   float64 `yaml:"commission_percent"`     // Default: 0.1 (% of notional)
	SlippagePercent     float64 `yaml:"slippage_percent"`       // Default: 0.05 (% of price, always adverse)
	CooldownSeconds     int     `yaml:"cooldown_seconds"`       // Per-symbol trade spacing; 0 disables
	MaxDailyLossPercent float64 `yaml:"max_daily_loss_percent"` // Circuit breaker; 0 disables
	MaxRecentTrades     int     `yaml:"max_recent_trades"`      // Default: 200
}

// Cooldown converts the configured spacing to a duration.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// DefaultConfig returns standard paper-trading costs.
func DefaultConfig() Config {
	return Config{
		CommissionPercent:   0.1,
		SlippagePercent:     0.05,
		CooldownSeconds:     0,
		MaxDailyLossPercent: 0,
		MaxRecentTrades:     200,
	}
}

// Account is a paper-trading ledger. All mutation goes through
// ExecuteTrade under one mutex; the whole account is the unit of risk,
// so there is no per-symbol locking. Construct explicitly and inject;
// there is no package-level singleton.
type Account struct {
	mu sync.Mutex

	cash      float64
	positions map[string]*Position
	trades    []Trade

	dailyStartEquity float64
	dayStartDate     time.Time
	lastTradeAt      map[string]time.Time
	lastMark         map[string]float64

	cfg     Config
	quotes  market.QuoteProvider
	journal Journal
	now     func() time.Time
}

// NewAccount creates an account funded with initialCash. quotes is used
// for mark-to-market and may temporarily fail; journal may be nil.
func NewAccount(initialCash float64, cfg Config, quotes market.QuoteProvider, journal Journal) *Account {
	if cfg.MaxRecentTrades <= 0 {
		cfg.MaxRecentTrades = 200
	}
	now := time.Now()
	return &Account{
		cash:             initialCash,
		positions:        make(map[string]*Position),
		lastTradeAt:      make(map[string]time.Time),
		lastMark:         make(map[string]float64),
		dailyStartEquity: initialCash,
		dayStartDate:     now,
		cfg:              cfg,
		quotes:           quotes,
		journal:          journal,
		now:              time.Now,
	}
}

// SetClock overrides the time source (for tests).
func (a *Account) SetClock(now func() time.Time) {
	a.mu.Lock()
	a.now = now
	a.mu.Unlock()
}

// ExecuteTrade runs the full gate-then-mutate sequence atomically.
// Rejections are results, not errors; an error means the request never
// reached the gate (context cancelled).
func (a *Account) ExecuteTrade(ctx context.Context, req TradeRequest) (TradeResult, error) {
	if err := ctx.Err(); err != nil {
		return TradeResult{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	a.rollDay(ctx, now)

	if reason, ok := a.gate(ctx, req, now); !ok {
		log.Info().Str("symbol", req.Symbol).Str("side", req.Side).Int("qty", req.Quantity).
			Str("reason", reason).Msg("trade rejected")
		return TradeResult{Success: false, Message: reason}, nil
	}

	trade := a.fill(req, now)
	a.applyFill(req, trade)

	a.lastTradeAt[req.Symbol] = now
	a.trades = append(a.trades, trade)
	if len(a.trades) > a.cfg.MaxRecentTrades {
		a.trades = a.trades[len(a.trades)-a.cfg.MaxRecentTrades:]
	}

	if a.journal != nil {
		if err := a.journal.Append(ctx, trade); err != nil {
			log.Warn().Err(err).Str("trade_id", trade.ID).Msg("trade journal append failed")
		}
	}

	log.Info().Str("symbol", trade.Symbol).Str("side", trade.Side).Int("qty", trade.Quantity).
		Float64("price", trade.Price).Msg("trade executed")

	return TradeResult{Success: true, Message: "executed", Trade: &trade}, nil
}

// gate is the risk check. Order matters: request validation, cooldown,
// circuit breaker, holdings. Shorting is allowed: SELL with no position
// opens a short; SELL beyond an existing long (or BUY beyond an existing
// short) is rejected because a position never crosses zero partially.
func (a *Account) gate(ctx context.Context, req TradeRequest, now time.Time) (string, bool) {
	side := strings.ToUpper(req.Side)
	if side != "BUY" && side != "SELL" {
		return fmt.Sprintf("invalid side %q", req.Side), false
	}
	if req.Symbol == "" {
		return "missing symbol", false
	}
	if req.Quantity < 1 {
		return "quantity must be at least 1", false
	}
	if req.Price <= 0 {
		return "price must be positive", false
	}

	if cd := a.cfg.Cooldown(); cd > 0 {
		if last, ok := a.lastTradeAt[req.Symbol]; ok && now.Sub(last) < cd {
			return fmt.Sprintf("cooldown active for %s: %s remaining",
				req.Symbol, (cd - now.Sub(last)).Round(time.Second)), false
		}
	}

	if a.cfg.MaxDailyLossPercent > 0 && a.dailyStartEquity > 0 {
		equity := a.equityLocked(ctx)
		lossPct := (a.dailyStartEquity - equity) / a.dailyStartEquity * 100
		if lossPct >= a.cfg.MaxDailyLossPercent {
			return fmt.Sprintf("daily loss limit reached: down %.2f%%", lossPct), false
		}
	}

	pos := a.positions[req.Symbol]
	if side == "SELL" && pos != nil && pos.Quantity > 0 && req.Quantity > pos.Quantity {
		return fmt.Sprintf("insufficient holdings: have %d, sell %d", pos.Quantity, req.Quantity), false
	}
	if side == "BUY" && pos != nil && pos.Quantity < 0 && req.Quantity > -pos.Quantity {
		return fmt.Sprintf("buy exceeds short cover: short %d, buy %d", -pos.Quantity, req.Quantity), false
	}

	return "", true
}

// fill prices the trade with adverse slippage and commission on the
// post-slippage notional.
func (a *Account) fill(req TradeRequest, now time.Time) Trade {
	slip := a.cfg.SlippagePercent / 100.0
	px := req.Price
	if strings.ToUpper(req.Side) == "BUY" {
		px *= 1 + slip
	} else {
		px *= 1 - slip
	}
	total := px * float64(req.Quantity)
	commission := total * a.cfg.CommissionPercent / 100.0

	return Trade{
		ID:         uuid.NewString(),
		Timestamp:  now,
		Symbol:     req.Symbol,
		Side:       strings.ToUpper(req.Side),
		Quantity:   req.Quantity,
		Price:      px,
		Total:      total,
		Commission: commission,
		Reason:     req.Reason,
	}
}

// applyFill mutates cash and the signed position. Average price is
// volume-weighted when adding, untouched when reducing.
func (a *Account) applyFill(req TradeRequest, t Trade) {
	delta := t.Quantity
	if t.Side == "SELL" {
		delta = -delta
	}

	if t.Side == "BUY" {
		a.cash -= t.Total + t.Commission
	} else {
		a.cash += t.Total - t.Commission
	}
	a.lastMark[t.Symbol] = t.Price

	pos := a.positions[t.Symbol]
	if pos == nil {
		a.positions[t.Symbol] = &Position{Symbol: t.Symbol, Quantity: delta, AveragePrice: t.Price}
		return
	}

	sameDirection := (pos.Quantity > 0) == (delta > 0)
	if sameDirection {
		oldAbs := math.Abs(float64(pos.Quantity))
		newAbs := oldAbs + math.Abs(float64(delta))
		pos.AveragePrice = (pos.AveragePrice*oldAbs + t.Price*math.Abs(float64(delta))) / newAbs
		pos.Quantity += delta
		return
	}

	pos.Quantity += delta
	if pos.Quantity == 0 {
		delete(a.positions, t.Symbol)
	}
}

// rollDay resets the daily equity anchor when the calendar day changes.
func (a *Account) rollDay(ctx context.Context, now time.Time) {
	if now.YearDay() != a.dayStartDate.YearDay() || now.Year() != a.dayStartDate.Year() {
		a.dayStartDate = now
		a.dailyStartEquity = a.equityLocked(ctx)
	}
}

// equityLocked computes cash plus mark-to-market value of every open
// position. Quote failures fall back to the last known mark; the entry
// mark always exists, so equity stays computable.
func (a *Account) equityLocked(ctx context.Context) float64 {
	equity := a.cash
	for sym, pos := range a.positions {
		mark := a.lastMark[sym]
		if a.quotes != nil {
			if px, err := a.quotes.Quote(ctx, sym); err == nil && px > 0 {
				mark = px
				a.lastMark[sym] = px
			}
		}
		equity += float64(pos.Quantity) * mark
	}
	return equity
}

// Snapshot returns a copy of the current portfolio with fresh
// mark-to-market equity.
func (a *Account) Snapshot(ctx context.Context) Portfolio {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make([]Position, 0, len(a.positions))
	for _, p := range a.positions {
		positions = append(positions, *p)
	}
	trades := make([]Trade, len(a.trades))
	copy(trades, a.trades)

	return Portfolio{
		Cash:             a.cash,
		Equity:           a.equityLocked(ctx),
		Positions:        positions,
		Trades:           trades,
		DailyStartEquity: a.dailyStartEquity,
		DayStartDate:     a.dayStartDate,
	}
}

// Reset wipes the account back to a fresh balance. The only path that
// deletes positions outside of trading.
func (a *Account) Reset(initialCash float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cash = initialCash
	a.positions = make(map[string]*Position)
	a.trades = nil
	a.lastTradeAt = make(map[string]time.Time)
	a.lastMark = make(map[string]float64)
	a.dailyStartEquity = initialCash
	a.dayStartDate = a.now()
}
