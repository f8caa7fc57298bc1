package round

import (
	"context"
	"database/sql"
	"fmt"
)

// PGResults writes round results to Postgres. The *sql.DB is expected to
// come from the pgx stdlib pool.
type PGResults struct {
	db *sql.DB
}

// NewPGResults creates the results table if needed.
func NewPGResults(ctx context.Context, db *sql.DB) (*PGResults, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS crash_round_results (
			round_id TEXT PRIMARY KEY,
			round_seq BIGINT NOT NULL,
			crash_point DOUBLE PRECISION NOT NULL,
			bet_id TEXT,
			outcome TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			cashout_multiplier DOUBLE PRECISION NOT NULL DEFAULT 0,
			balance_delta DOUBLE PRECISION NOT NULL DEFAULT 0,
			settled_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("create crash_round_results: %w", err)
	}
	return &PGResults{db: db}, nil
}

func (p *PGResults) Append(ctx context.Context, r Result) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO crash_round_results
			(round_id, round_seq, crash_point, bet_id, outcome, amount, cashout_multiplier, balance_delta, settled_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)
		ON CONFLICT (round_id) DO NOTHING`,
		r.RoundID, int64(r.Round), r.CrashPoint, r.BetID, r.Outcome, r.Amount, r.CashoutMultiplier, r.BalanceDelta, r.SettledAt)
	if err != nil {
		return fmt.Errorf("insert round %s: %w", r.RoundID, err)
	}
	return nil
}
