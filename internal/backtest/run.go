// Package backtest evaluates a trading strategy over a prepared price
// series: preprocessing with a column-naming fallback chain, signal
// generation under a strict output contract, signal-level scoring, a
// whole-share next-bar-open portfolio simulation, and trade pairing. A run
// never panics out; strategy failures become FAILED result bundles.
package backtest

import (
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"time"

	"replay/internal/frame"
	"replay/internal/strategy"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusPassed Status = "PASSED"
	StatusFailed Status = "FAILED"
)

// Result is the complete output bundle of one run. On FAILED, Err and Stack
// describe the failure and whatever was produced before it is preserved; a
// failure is data, not a crash.
type Result struct {
	Strategy    string                        `json:"strategy"`
	Description string                        `json:"description,omitempty"`
	Schema      map[string]strategy.ParamSpec `json:"parameter_schema,omitempty"`
	Params      map[string]float64            `json:"params"`
	Status      Status                        `json:"status"`
	Err         string                        `json:"error,omitempty"`
	Stack       string                        `json:"stack,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Bars      int           `json:"bars"`

	SignalMetrics    SignalMetrics    `json:"signal_metrics"`
	PortfolioMetrics PortfolioMetrics `json:"portfolio_metrics"`

	// Signals is the prepared frame with the validated Signal column and any
	// strategy-attached indicator columns; Events is its non-zero-signal rows.
	Signals *frame.Frame `json:"-"`
	Events  *frame.Frame `json:"-"`

	Paired       []PairedTrade `json:"-"`
	Trades       []Trade       `json:"-"`
	Transactions []Transaction `json:"-"`
	Curve        []EquityPoint `json:"-"`
}

// Runner orchestrates backtest runs. The zero value is not usable; construct
// with NewRunner.
type Runner struct {
	initialCapital float64
	tradingDays    float64
	log            *slog.Logger
}

// NewRunner creates a Runner. tradingDays is the bar count assumed per year
// for annualization (252 for US daily bars).
func NewRunner(initialCapital, tradingDays float64, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{initialCapital: initialCapital, tradingDays: tradingDays, log: log}
}

// Run builds a fresh strategy from the factory and evaluates it over data.
// The input frame is never mutated. Failures in strategy-authored code —
// errors, panics, contract violations — are captured into a FAILED Result;
// Run itself returns an error only for empty input.
func (r *Runner) Run(name string, factory strategy.Factory, params map[string]float64, data *frame.Frame) (*Result, error) {
	if data == nil || data.Len() == 0 {
		return nil, fmt.Errorf("backtest %q: empty input data", name)
	}

	res := &Result{
		Strategy:  name,
		Params:    params,
		Status:    StatusPassed,
		StartedAt: time.Now(),
	}
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	strat, err := factory(params)
	if err != nil {
		return r.fail(res, fmt.Errorf("constructing strategy: %w", err), nil), nil
	}
	res.Description = strat.Description()
	res.Schema = strat.ParameterSchema()

	pre := strategy.DefaultPreprocess
	if p, ok := strat.(strategy.Preprocessor); ok {
		pre = p.Preprocess
	}
	prepared, err := runPreprocessChain(data, pre)
	if err != nil {
		return r.fail(res, err, nil), nil
	}
	res.Bars = prepared.Len()

	out, stack, err := callGenerate(strat, prepared)
	if err != nil {
		return r.fail(res, err, stack), nil
	}

	signals, signalFrame, err := validateSignals(out, prepared.Len())
	if err != nil {
		return r.fail(res, err, nil), nil
	}
	res.Signals = signalFrame
	res.Events = nonZeroEvents(signalFrame, signals)

	dates := seriesDates(signalFrame)
	closes := seriesFloats(signalFrame, "close", "Close")
	if closes == nil {
		// Preprocessing guaranteed a close column; the strategy dropped it.
		return r.fail(res, &ContractError{
			Reason: fmt.Sprintf("output has no close column (columns: %v)", signalFrame.Columns()),
		}, nil), nil
	}
	opens := seriesFloats(signalFrame, "open", "Open")
	if opens == nil {
		// No open column: fill at the next bar's close instead.
		opens = closes
	}

	res.SignalMetrics = ComputeSignalMetrics(signals, closes, r.tradingDays)
	res.Paired = PairTrades(dates, closes, signals)

	entries := r.entryConditions(strat, signalFrame, signals)
	exits := r.exitConditions(strat, signalFrame, signals)
	sizes := r.positionSizes(strat, signalFrame)

	sim := NewSimulator(r.initialCapital, r.log)
	simOut, simErr := sim.Run(SimInput{
		Dates: dates,
		Open:  opens,
		Close: closes,
		Entry: entries,
		Exit:  exits,
		Sizes: sizes,
	})
	res.Trades = simOut.Trades
	res.Transactions = simOut.Transactions
	res.Curve = simOut.Curve
	if simErr != nil {
		return r.fail(res, simErr, nil), nil
	}

	equity := make([]float64, len(res.Curve))
	for i, p := range res.Curve {
		equity[i] = p.Equity
	}
	res.PortfolioMetrics = ComputeEquityMetrics(equity, r.tradingDays)

	r.log.Info("backtest complete",
		"strategy", name,
		"bars", res.Bars,
		"signals", res.SignalMetrics.TotalSignals,
		"trades", len(res.Trades),
		"total_return", res.PortfolioMetrics.TotalReturn)
	return res, nil
}

func (r *Runner) fail(res *Result, err error, stack []byte) *Result {
	res.Status = StatusFailed
	res.Err = err.Error()
	res.Stack = string(stack)
	r.log.Error("backtest failed", "strategy", res.Strategy, "err", err)
	return res
}

// callGenerate invokes GenerateSignals with panic capture; the stack is
// returned alongside so the bundle records where strategy code blew up.
func callGenerate(strat strategy.Strategy, data *frame.Frame) (out *frame.Frame, stack []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			stack = debug.Stack()
			err = fmt.Errorf("GenerateSignals panicked: %v", rec)
		}
	}()
	out, err = strat.GenerateSignals(data.Clone())
	return out, nil, err
}

// validateSignals enforces the output contract: the frame must carry a
// Signal float column (a lowercase "signal" is renamed leniently) with one
// value per input row. Values are truncated to integers; NaN reads as 0.
func validateSignals(out *frame.Frame, wantRows int) ([]int64, *frame.Frame, error) {
	if out == nil {
		return nil, nil, &ContractError{Reason: "GenerateSignals returned nil"}
	}
	if !out.Has("Signal") && out.Has("signal") {
		if err := out.Rename("signal", "Signal"); err != nil {
			return nil, nil, &ContractError{Reason: err.Error()}
		}
	}
	raw, ok := out.Floats("Signal")
	if !ok {
		return nil, nil, &ContractError{Reason: fmt.Sprintf("no Signal column in output (columns: %v)", out.Columns())}
	}
	if len(raw) != wantRows {
		return nil, nil, &ContractError{Reason: fmt.Sprintf("Signal has %d rows, input has %d", len(raw), wantRows)}
	}

	signals := make([]int64, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) {
			continue
		}
		signals[i] = int64(v)
	}
	return signals, out, nil
}

// nonZeroEvents filters the signal frame down to the rows where a signal
// actually fired.
func nonZeroEvents(f *frame.Frame, signals []int64) *frame.Frame {
	keep := make([]bool, len(signals))
	for i, s := range signals {
		keep[i] = s != 0
	}
	return f.FilterRows(keep)
}

// entryConditions resolves the entry rule: the strategy's EntryRules if it
// implements one and succeeds, otherwise Signal == 1. A failing override
// falls back rather than failing the run.
func (r *Runner) entryConditions(strat strategy.Strategy, f *frame.Frame, signals []int64) []bool {
	if er, ok := strat.(strategy.EntryRuler); ok {
		if rules, err := callBools(func() ([]bool, error) { return er.EntryRules(f.Clone()) }); err == nil && len(rules) == len(signals) {
			return rules
		} else {
			r.log.Warn("entry rules override failed, using signal defaults", "strategy", strat.Name(), "err", err)
		}
	}
	rules := make([]bool, len(signals))
	for i, s := range signals {
		rules[i] = s == 1
	}
	return rules
}

// exitConditions mirrors entryConditions for the exit side (Signal == -1).
func (r *Runner) exitConditions(strat strategy.Strategy, f *frame.Frame, signals []int64) []bool {
	if xr, ok := strat.(strategy.ExitRuler); ok {
		if rules, err := callBools(func() ([]bool, error) { return xr.ExitRules(f.Clone()) }); err == nil && len(rules) == len(signals) {
			return rules
		} else {
			r.log.Warn("exit rules override failed, using signal defaults", "strategy", strat.Name(), "err", err)
		}
	}
	rules := make([]bool, len(signals))
	for i, s := range signals {
		rules[i] = s == -1
	}
	return rules
}

// positionSizes resolves per-bar intended quantities, defaulting to one
// share per bar when the strategy has no sizer or its sizer misbehaves.
func (r *Runner) positionSizes(strat strategy.Strategy, f *frame.Frame) []float64 {
	if ps, ok := strat.(strategy.PositionSizer); ok {
		sizes, err := callSizes(func() ([]float64, error) { return ps.PositionSizing(f.Clone()) })
		if err == nil && len(sizes) == f.Len() {
			return sizes
		}
		r.log.Warn("position sizing override failed, using default size", "strategy", strat.Name(), "err", err)
	}
	return strategy.DefaultSizes(f.Len())
}

func callBools(fn func() ([]bool, error)) (out []bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("capability panicked: %v", rec)
		}
	}()
	return fn()
}

func callSizes(fn func() ([]float64, error)) (out []float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("capability panicked: %v", rec)
		}
	}()
	return fn()
}

// seriesDates extracts the date column under any accepted name, or
// synthesizes a daily sequence so undated series still simulate.
func seriesDates(f *frame.Frame) []time.Time {
	for _, name := range []string{"date", "Date", "Datetime"} {
		if ts, ok := f.Times(name); ok {
			return ts
		}
	}
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, f.Len())
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
	}
	return dates
}

func seriesFloats(f *frame.Frame, names ...string) []float64 {
	for _, name := range names {
		if vals, ok := f.Floats(name); ok {
			return vals
		}
	}
	return nil
}
