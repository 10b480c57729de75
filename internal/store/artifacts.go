package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"replay/internal/backtest"
	"replay/internal/frame"
)

// ArtifactWriter persists one backtest run as a self-contained directory:
// tabular data as Parquet and CSV, metrics as JSON. The directory is the
// durable record of the run; the SQLite index only points at it.
type ArtifactWriter struct {
	OutputDir string
}

// NewArtifactWriter creates an ArtifactWriter rooted at outputDir.
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{OutputDir: outputDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// SignalRecord is the Parquet schema for the per-bar signal series. Columns
// absent from the run's frame are stored as NaN.
type SignalRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
	Signal    int64   `parquet:"signal"`
}

// EquityRecord is the Parquet schema for the equity curve.
type EquityRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Cash      float64 `parquet:"cash"`
	Shares    int64   `parquet:"shares"`
	Close     float64 `parquet:"close"`
	Equity    float64 `parquet:"equity"`
}

// WriteRun writes the full artifact bundle for one run and returns the
// created directory. Directory layout:
//
//	<OutputDir>/<strategy>_<symbol>_<YYYYMMDD_HHMMSS>/
//	    signals.parquet        per-bar canonical columns plus the signal
//	    prepared_data.parquet  the winning preprocessed variant
//	    equity_curve.parquet   mark-to-market curve
//	    signals_full.csv       every column of the signal frame, every row
//	    signals_nonzero.csv    rows where a signal fired
//	    paired_trades.csv      signal-derived round trips
//	    trades.csv             simulated sized round trips
//	    transactions.csv       individual fills with account state
//	    metrics.json           run identity, status, and both metric sets
//	    portfolio_summary.json final account state
func (w *ArtifactWriter) WriteRun(res *backtest.Result, symbol string) (string, error) {
	name := fmt.Sprintf("%s_%s_%s", res.Strategy, symbol, res.StartedAt.Format("20060102_150405"))
	dir := filepath.Join(w.OutputDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if res.Signals != nil {
		if err := writeParquetFile(filepath.Join(dir, "signals.parquet"), signalRecords(res.Signals)); err != nil {
			return "", fmt.Errorf("writing signals.parquet: %w", err)
		}
		if err := writeParquetFile(filepath.Join(dir, "prepared_data.parquet"), signalRecords(res.Signals)); err != nil {
			return "", fmt.Errorf("writing prepared_data.parquet: %w", err)
		}
		if err := writeFrameCSV(filepath.Join(dir, "signals_full.csv"), res.Signals); err != nil {
			return "", err
		}
	}
	if res.Events != nil {
		if err := writeFrameCSV(filepath.Join(dir, "signals_nonzero.csv"), res.Events); err != nil {
			return "", err
		}
	}

	if err := writeParquetFile(filepath.Join(dir, "equity_curve.parquet"), equityRecords(res.Curve)); err != nil {
		return "", fmt.Errorf("writing equity_curve.parquet: %w", err)
	}

	if err := writePairedCSV(filepath.Join(dir, "paired_trades.csv"), res.Paired); err != nil {
		return "", err
	}
	if err := writeTradesCSV(filepath.Join(dir, "trades.csv"), res.Trades); err != nil {
		return "", err
	}
	if err := writeTransactionsCSV(filepath.Join(dir, "transactions.csv"), res.Transactions); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(dir, "metrics.json"), res); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "portfolio_summary.json"), portfolioSummary(res)); err != nil {
		return "", err
	}
	return dir, nil
}

// ---------------------------------------------------------------------------
// Record conversion
// ---------------------------------------------------------------------------

func signalRecords(f *frame.Frame) []SignalRecord {
	n := f.Len()
	records := make([]SignalRecord, n)

	dates := frameDates(f)
	cols := map[string][]float64{}
	for canon, names := range map[string][]string{
		"open":   {"open", "Open"},
		"high":   {"high", "High"},
		"low":    {"low", "Low"},
		"close":  {"close", "Close"},
		"volume": {"volume", "Volume"},
	} {
		cols[canon] = frameFloats(f, names...)
	}
	signals := frameFloats(f, "Signal", "signal")

	for i := 0; i < n; i++ {
		r := SignalRecord{
			Open:   floatAt(cols["open"], i),
			High:   floatAt(cols["high"], i),
			Low:    floatAt(cols["low"], i),
			Close:  floatAt(cols["close"], i),
			Volume: floatAt(cols["volume"], i),
		}
		if dates != nil {
			r.Timestamp = dates[i].UnixMilli()
		}
		if sig := floatAt(signals, i); !math.IsNaN(sig) {
			r.Signal = int64(sig)
		}
		records[i] = r
	}
	return records
}

func equityRecords(curve []backtest.EquityPoint) []EquityRecord {
	records := make([]EquityRecord, len(curve))
	for i, p := range curve {
		records[i] = EquityRecord{
			Timestamp: p.Date.UnixMilli(),
			Cash:      p.Cash,
			Shares:    p.Shares,
			Close:     p.Close,
			Equity:    p.Equity,
		}
	}
	return records
}

func frameDates(f *frame.Frame) []time.Time {
	for _, name := range []string{"date", "Date", "Datetime"} {
		if ts, ok := f.Times(name); ok {
			return ts
		}
	}
	return nil
}

func frameFloats(f *frame.Frame, names ...string) []float64 {
	for _, name := range names {
		if vals, ok := f.Floats(name); ok {
			return vals
		}
	}
	return nil
}

func floatAt(vals []float64, i int) float64 {
	if vals == nil || i >= len(vals) {
		return math.NaN()
	}
	return vals[i]
}

// ---------------------------------------------------------------------------
// CSV and JSON writers
// ---------------------------------------------------------------------------

// writeFrameCSV dumps every column of a frame, including strategy-attached
// indicator columns, in column order. NaN cells are written empty.
func writeFrameCSV(path string, f *frame.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(f.Columns()); err != nil {
		return err
	}

	row := make([]string, f.NumCols())
	for i := 0; i < f.Len(); i++ {
		for j, name := range f.Columns() {
			col, _ := f.Col(name)
			switch col.Kind() {
			case frame.KindFloat:
				row[j] = formatFloat(col.Floats()[i])
			case frame.KindTime:
				row[j] = col.Times()[i].Format("2006-01-02")
			default:
				row[j] = col.Strings()[i]
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writePairedCSV(path string, pairs []backtest.PairedTrade) error {
	rows := [][]string{{"buy_date", "sell_date", "buy_price", "sell_price", "pnl", "pnl_pct"}}
	for _, p := range pairs {
		rows = append(rows, []string{
			p.BuyDate.Format("2006-01-02"),
			p.SellDate.Format("2006-01-02"),
			formatFloat(p.BuyPrice),
			formatFloat(p.SellPrice),
			formatFloat(p.PnL),
			formatFloat(p.PnLPct),
		})
	}
	return writeCSV(path, rows)
}

func writeTradesCSV(path string, trades []backtest.Trade) error {
	rows := [][]string{{
		"entry_signal_date", "entry_date", "entry_price", "quantity",
		"exit_date", "exit_price", "exit_reason", "pnl", "return_pct",
	}}
	for _, t := range trades {
		rows = append(rows, []string{
			t.EntrySignalDate.Format("2006-01-02"),
			t.EntryDate.Format("2006-01-02"),
			formatFloat(t.EntryPrice),
			strconv.FormatInt(t.Quantity, 10),
			t.ExitDate.Format("2006-01-02"),
			formatFloat(t.ExitPrice),
			string(t.ExitReason),
			formatFloat(t.PnL),
			formatFloat(t.ReturnPct),
		})
	}
	return writeCSV(path, rows)
}

func writeTransactionsCSV(path string, txs []backtest.Transaction) error {
	rows := [][]string{{
		"date", "type", "price", "quantity", "amount",
		"cash_before", "cash_after", "shares_before", "shares_after",
		"equity_before", "equity_after", "pnl", "return_pct",
	}}
	for _, tx := range txs {
		rows = append(rows, []string{
			tx.Date.Format("2006-01-02"),
			string(tx.Type),
			formatFloat(tx.Price),
			strconv.FormatInt(tx.Quantity, 10),
			formatFloat(tx.Amount),
			formatFloat(tx.CashBefore),
			formatFloat(tx.CashAfter),
			strconv.FormatInt(tx.SharesBefore, 10),
			strconv.FormatInt(tx.SharesAfter, 10),
			formatFloat(tx.EquityBefore),
			formatFloat(tx.EquityAfter),
			formatFloat(tx.PnL),
			formatFloat(tx.ReturnPct),
		})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// portfolioSummary condenses the final account state for quick inspection.
func portfolioSummary(res *backtest.Result) map[string]any {
	summary := map[string]any{
		"strategy":     res.Strategy,
		"status":       res.Status,
		"bars":         res.Bars,
		"trades":       len(res.Trades),
		"transactions": len(res.Transactions),
		"total_return": res.PortfolioMetrics.TotalReturn,
	}
	if n := len(res.Curve); n > 0 {
		final := res.Curve[n-1]
		summary["final_equity"] = final.Equity
		summary["final_cash"] = final.Cash
		summary["final_shares"] = final.Shares
	}
	return summary
}
