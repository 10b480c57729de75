package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"replay/internal/backtest"
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const runsSchema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy     TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	bars         INTEGER NOT NULL DEFAULT 0,
	total_return REAL NOT NULL DEFAULT 0,
	sharpe_ratio REAL NOT NULL DEFAULT 0,
	max_drawdown REAL NOT NULL DEFAULT 0,
	trades       INTEGER NOT NULL DEFAULT 0,
	output_dir   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_strategy ON backtest_runs(strategy);
CREATE INDEX IF NOT EXISTS idx_runs_created ON backtest_runs(created_at);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, ensures the
// schema exists, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(runsSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run record and returns its assigned ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec *RunRecord) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(strategy, symbol, status, error, bars, total_return, sharpe_ratio, max_drawdown, trades, output_dir, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Strategy, rec.Symbol, string(rec.Status), rec.Error, rec.Bars,
		rec.TotalReturn, rec.SharpeRatio, rec.MaxDrawdown, rec.Trades,
		rec.OutputDir, createdAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRun retrieves a single run by its ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, symbol, status, error, bars, total_return, sharpe_ratio, max_drawdown, trades, output_dir, created_at
		FROM backtest_runs WHERE id = ?`, id)

	rec, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, symbol, status, error, bars, total_return, sharpe_ratio, max_drawdown, trades, output_dir, created_at
		FROM backtest_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var status string
	if err := row.Scan(&rec.ID, &rec.Strategy, &rec.Symbol, &status, &rec.Error,
		&rec.Bars, &rec.TotalReturn, &rec.SharpeRatio, &rec.MaxDrawdown,
		&rec.Trades, &rec.OutputDir, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Status = backtest.Status(status)
	return &rec, nil
}

// RunRecordFromResult builds an index row from a completed run bundle.
func RunRecordFromResult(res *backtest.Result, symbol, outputDir string) *RunRecord {
	return &RunRecord{
		Strategy:    res.Strategy,
		Symbol:      symbol,
		Status:      res.Status,
		Error:       res.Err,
		Bars:        res.Bars,
		TotalReturn: res.PortfolioMetrics.TotalReturn,
		SharpeRatio: res.PortfolioMetrics.SharpeRatio,
		MaxDrawdown: res.PortfolioMetrics.MaxDrawdown,
		Trades:      len(res.Trades),
		OutputDir:   outputDir,
		CreatedAt:   res.StartedAt.UTC(),
	}
}
