package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mwhitt/stockpulse/internal/ledger"
)

// Schema is the trade journal DDL, applied by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
    id          UUID PRIMARY KEY,
    ts          TIMESTAMPTZ NOT NULL,
    symbol      TEXT NOT NULL,
    side        TEXT NOT NULL,
    qty         INTEGER NOT NULL,
    price       DOUBLE PRECISION NOT NULL,
    total       DOUBLE PRECISION NOT NULL,
    commission  DOUBLE PRECISION NOT NULL,
    reason      TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS trades_symbol_ts_idx ON trades (symbol, ts DESC);
`

// Journal persists accepted paper trades to Postgres. It implements
// ledger.Journal; the ledger treats journal failures as non-fatal.
type Journal struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewJournal creates a journal over an existing connection.
func NewJournal(db *sqlx.DB, timeout time.Duration) *Journal {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Journal{db: db, timeout: timeout}
}

// Connect opens a Postgres connection and applies the schema.
func Connect(dsn string, timeout time.Duration) (*Journal, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	j := NewJournal(db, timeout)
	if err := j.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// EnsureSchema creates the trades table when missing.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if _, err := j.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply journal schema: %w", err)
	}
	return nil
}

// Append inserts one trade. Duplicate IDs are reported distinctly so
// retries can tell replays from real failures.
func (j *Journal) Append(ctx context.Context, t ledger.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	query := `
		INSERT INTO trades (id, ts, symbol, side, qty, price, total, commission, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := j.db.ExecContext(ctx, query,
		t.ID, t.Timestamp, t.Symbol, t.Side, t.Quantity, t.Price, t.Total, t.Commission, t.Reason)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate trade %s: %w", t.ID, err)
		}
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// ListBySymbol returns the most recent trades for a symbol, newest first.
func (j *Journal) ListBySymbol(ctx context.Context, symbol string, limit int) ([]ledger.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, ts, symbol, side, qty, price, total, commission, reason
		FROM trades
		WHERE symbol = $1
		ORDER BY ts DESC
		LIMIT $2`

	rows, err := j.db.QueryxContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var out []ledger.Trade
	for rows.Next() {
		var t ledger.Trade
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Symbol, &t.Side, &t.Quantity,
			&t.Price, &t.Total, &t.Commission, &t.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close releases the underlying connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
