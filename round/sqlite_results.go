package round

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteResults is a local round journal backed by a SQLite file.
type SQLiteResults struct {
	db *sql.DB
}

// OpenSQLiteResults opens or creates the database at path and migrates it.
func OpenSQLiteResults(ctx context.Context, path string) (*SQLiteResults, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &SQLiteResults{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

func (s *SQLiteResults) Close() error { return s.db.Close() }

func (s *SQLiteResults) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS round_results (
			round_id TEXT PRIMARY KEY,
			round_seq INTEGER NOT NULL,
			crash_point REAL NOT NULL,
			bet_id TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			amount REAL NOT NULL DEFAULT 0,
			cashout_multiplier REAL NOT NULL DEFAULT 0,
			balance_delta REAL NOT NULL DEFAULT 0,
			settled_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_round_results_settled ON round_results(settled_at DESC);`,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteResults) Append(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO round_results
			(round_id, round_seq, crash_point, bet_id, outcome, amount, cashout_multiplier, balance_delta, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RoundID, int64(r.Round), r.CrashPoint, r.BetID, r.Outcome, r.Amount, r.CashoutMultiplier, r.BalanceDelta, r.SettledAt.UTC())
	if err != nil {
		return fmt.Errorf("insert round %s: %w", r.RoundID, err)
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (s *SQLiteResults) Recent(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT round_id, round_seq, crash_point, bet_id, outcome, amount, cashout_multiplier, balance_delta, settled_at
		FROM round_results ORDER BY settled_at DESC, round_seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var seq int64
		var settled time.Time
		if err := rows.Scan(&r.RoundID, &seq, &r.CrashPoint, &r.BetID, &r.Outcome, &r.Amount, &r.CashoutMultiplier, &r.BalanceDelta, &settled); err != nil {
			return nil, err
		}
		r.Round = uint64(seq)
		r.SettledAt = settled
		out = append(out, r)
	}
	return out, rows.Err()
}
