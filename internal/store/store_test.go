package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"replay/internal/backtest"
	"replay/internal/domain"
	"replay/internal/frame"
)

func utc(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func sampleBars() []domain.Bar {
	return []domain.Bar{
		{Symbol: "AAPL", Date: utc(2024, 1, 2), Open: 100, High: 105, Low: 99, Close: 104, Volume: 1000},
		{Symbol: "AAPL", Date: utc(2024, 1, 3), Open: 104, High: 108, Low: 103, Close: 107, Volume: 1200},
		{Symbol: "AAPL", Date: utc(2024, 1, 4), Open: 107, High: 110, Low: 106, Close: 109, Volume: 900},
	}
}

func TestParquetStoreRoundTrip(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if err := s.WriteBars(ctx, domain.MarketUS, sampleBars()); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	bars, err := s.ReadBars(ctx, "AAPL", domain.MarketUS, utc(2024, 1, 1), utc(2024, 12, 31))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("read %d bars, want 3", len(bars))
	}
	if bars[0].Close != 104 || bars[2].Close != 109 {
		t.Errorf("bars out of order or corrupted: %+v", bars)
	}
}

func TestParquetStoreMergesOnRewrite(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if err := s.WriteBars(ctx, domain.MarketUS, sampleBars()); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	// Rewrite one date with a corrected close plus one new date.
	update := []domain.Bar{
		{Symbol: "AAPL", Date: utc(2024, 1, 3), Open: 104, High: 108, Low: 103, Close: 106, Volume: 1200},
		{Symbol: "AAPL", Date: utc(2024, 1, 5), Open: 109, High: 112, Low: 108, Close: 111, Volume: 800},
	}
	if err := s.WriteBars(ctx, domain.MarketUS, update); err != nil {
		t.Fatalf("WriteBars update: %v", err)
	}

	bars, err := s.ReadBars(ctx, "AAPL", domain.MarketUS, utc(2024, 1, 1), utc(2024, 12, 31))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(bars) != 4 {
		t.Fatalf("read %d bars, want 4 after merge", len(bars))
	}
	if bars[1].Close != 106 {
		t.Errorf("bars[1].Close = %v, want the corrected 106", bars[1].Close)
	}
}

func TestParquetStoreDateRangeFilter(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if err := s.WriteBars(ctx, domain.MarketUS, sampleBars()); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	bars, err := s.ReadBars(ctx, "AAPL", domain.MarketUS, utc(2024, 1, 3), utc(2024, 1, 3))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(bars) != 1 || !bars[0].Date.Equal(utc(2024, 1, 3)) {
		t.Errorf("range filter returned %+v, want only 2024-01-03", bars)
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := append(sampleBars(), domain.Bar{
		Symbol: "MSFT", Date: utc(2024, 1, 2), Open: 300, High: 305, Low: 299, Close: 303, Volume: 500,
	})
	if err := s.WriteBars(ctx, domain.MarketUS, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := s.ListSymbols(ctx, domain.MarketUS)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
		t.Errorf("symbols = %v, want [AAPL MSFT]", symbols)
	}

	if other, _ := s.ListSymbols(ctx, domain.MarketCN); other != nil {
		t.Errorf("empty market should list no symbols, got %v", other)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	rec := &RunRecord{
		Strategy:    "sma-cross",
		Symbol:      "AAPL",
		Status:      backtest.StatusPassed,
		Bars:        252,
		TotalReturn: 0.12,
		SharpeRatio: 1.1,
		MaxDrawdown: -0.08,
		Trades:      9,
		OutputDir:   "/tmp/out/run1",
	}
	id, err := s.SaveRun(ctx, rec)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id == 0 {
		t.Fatal("SaveRun returned zero id")
	}

	got, err := s.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Strategy != "sma-cross" || got.Symbol != "AAPL" || got.Status != backtest.StatusPassed {
		t.Errorf("GetRun = %+v, want the saved record", got)
	}
	if got.TotalReturn != 0.12 || got.Trades != 9 {
		t.Errorf("GetRun metrics = %+v, want the saved values", got)
	}
}

func TestSQLiteStoreListRunsNewestFirst(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	base := utc(2024, 6, 1)
	for i := 0; i < 3; i++ {
		_, err := s.SaveRun(ctx, &RunRecord{
			Strategy:  "buy-hold",
			Symbol:    "AAPL",
			Status:    backtest.StatusPassed,
			CreatedAt: base.AddDate(0, 0, i),
		})
		if err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d, want 2", len(runs))
	}
	if !runs[0].CreatedAt.After(runs[1].CreatedAt) {
		t.Errorf("runs not newest first: %v then %v", runs[0].CreatedAt, runs[1].CreatedAt)
	}
}

func TestArtifactWriterWriteRun(t *testing.T) {
	signals := frame.New()
	signals.SetTimes("date", []time.Time{utc(2024, 1, 2), utc(2024, 1, 3)})
	signals.SetFloats("close", []float64{100, 101})
	signals.SetFloats("Signal", []float64{1, 0})

	res := &backtest.Result{
		Strategy:  "sma-cross",
		Status:    backtest.StatusPassed,
		StartedAt: utc(2024, 6, 1),
		Bars:      2,
		Signals:   signals,
		Events:    signals.FilterRows([]bool{true, false}),
		Curve: []backtest.EquityPoint{
			{Date: utc(2024, 1, 2), Cash: 1000, Equity: 1000},
			{Date: utc(2024, 1, 3), Cash: 899, Shares: 1, Close: 101, Equity: 1000},
		},
	}

	w := NewArtifactWriter(t.TempDir())
	dir, err := w.WriteRun(res, "AAPL")
	if err != nil {
		t.Fatalf("WriteRun: %v", err)
	}

	for _, name := range []string{
		"signals.parquet", "prepared_data.parquet", "equity_curve.parquet",
		"signals_full.csv", "signals_nonzero.csv",
		"paired_trades.csv", "trades.csv", "transactions.csv",
		"metrics.json", "portfolio_summary.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	records, err := readParquetFile[EquityRecord](filepath.Join(dir, "equity_curve.parquet"))
	if err != nil {
		t.Fatalf("reading equity_curve.parquet: %v", err)
	}
	if len(records) != 2 || records[1].Equity != 1000 {
		t.Errorf("equity records = %+v, want the written curve", records)
	}
}
