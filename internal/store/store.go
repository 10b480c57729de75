// Package store persists price bars, backtest run artifacts, and the run
// index. Bars and tabular artifacts live in Parquet files on disk; the run
// summary index lives in SQLite.
package store

import (
	"context"
	"time"

	"replay/internal/backtest"
	"replay/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage for the given market.
	WriteBars(ctx context.Context, market domain.Market, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market domain.Market, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// RunStore indexes completed backtest runs for listing and lookup. The full
// artifact bundle lives on disk; the index carries identity and headline
// metrics only.
type RunStore interface {
	// SaveRun records a completed run and returns its assigned ID.
	SaveRun(ctx context.Context, rec *RunRecord) (int64, error)

	// GetRun retrieves a single run by its ID.
	GetRun(ctx context.Context, id int64) (*RunRecord, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// RunRecord is one row of the run index.
type RunRecord struct {
	ID          int64
	Strategy    string
	Symbol      string
	Status      backtest.Status
	Error       string
	Bars        int
	TotalReturn float64
	SharpeRatio float64
	MaxDrawdown float64
	Trades      int
	OutputDir   string
	CreatedAt   time.Time
}
