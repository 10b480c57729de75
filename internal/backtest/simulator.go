package backtest

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// TxType is the direction of a transaction.
type TxType string

const (
	TxBuy  TxType = "BUY"
	TxSell TxType = "SELL"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitSignal ExitReason = "signal"
	ExitStop   ExitReason = "stop"
	ExitTime   ExitReason = "time"
)

// Transaction is an immutable record of one executed buy or sell, including
// the portfolio state on both sides of the execution. PnL and ReturnPct are
// set on sells only.
type Transaction struct {
	Date         time.Time
	Type         TxType
	Price        float64
	Quantity     int64
	Amount       float64
	CashBefore   float64
	CashAfter    float64
	SharesBefore int64
	SharesAfter  int64
	EquityBefore float64
	EquityAfter  float64
	PnL          float64
	ReturnPct    float64
}

// Trade is a completed entry/exit pair produced by the size-aware simulator.
// EntrySignalDate is the bar the entry condition fired on; EntryDate is the
// following bar, where the order filled.
type Trade struct {
	EntrySignalDate time.Time
	EntryDate       time.Time
	EntryPrice      float64
	Quantity        int64
	ExitDate        time.Time
	ExitPrice       float64
	ExitReason      ExitReason
	PnL             float64
	ReturnPct       float64
}

// EquityPoint is one row of the equity curve: the mark-to-market value of
// cash plus held shares at the bar's close.
type EquityPoint struct {
	Date   time.Time
	Cash   float64
	Shares int64
	Close  float64
	Equity float64
}

// SimInput is the per-bar view the simulator walks. All slices are
// index-aligned with the price series, ascending by date.
type SimInput struct {
	Dates []time.Time
	Open  []float64
	Close []float64
	Entry []bool    // entry condition per bar
	Exit  []bool    // exit condition per bar
	Sizes []float64 // intended share quantity per bar; truncated to whole shares
}

// SimOutput bundles the simulator's three ledgers.
type SimOutput struct {
	Trades       []Trade
	Transactions []Transaction
	Curve        []EquityPoint
}

// Simulator is the portfolio state machine. It is single-use state-free: all
// run state lives in Run's locals, so one Simulator value may serve many
// independent runs.
type Simulator struct {
	initialCapital float64
	log            *slog.Logger
}

// NewSimulator creates a Simulator starting each run with initialCapital.
func NewSimulator(initialCapital float64, log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.Default()
	}
	return &Simulator{initialCapital: initialCapital, log: log}
}

// Run walks the series bar by bar. Per bar, in fixed order: record
// mark-to-market equity at the close; then, while flat, try the entry
// condition, else, while long, try the exit condition. Orders fill at the
// NEXT bar's open, so a condition firing on the last bar is discarded — there
// is nothing to fill against. Entry quantity is the intended size capped by
// affordability and truncated to whole shares; a zero quantity or a NaN
// execution price skips the transition. Cash therefore never goes negative
// and shares are never short.
//
// A position still open when the series ends is NOT closed out; the final
// equity point simply carries its mark-to-market value. This mirrors the
// mark-to-market-only accounting choice and is intentional.
//
// If the loop panics (malformed data reaching arithmetic, a bad sizing
// value), Run recovers and returns the ledgers accumulated so far together
// with an *ExecutionError; partial results are never discarded.
func (s *Simulator) Run(in SimInput) (out SimOutput, err error) {
	n := len(in.Dates)
	bar := 0
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{Bar: bar, Err: fmt.Errorf("%v", r)}
		}
	}()

	cash := s.initialCapital
	var shares int64
	inPosition := false
	var entry Trade // entry fields populated while in position

	for ; bar < n; bar++ {
		i := bar
		closePx := in.Close[i]

		markPrice := closePx
		if math.IsNaN(markPrice) {
			markPrice = 0
		}
		out.Curve = append(out.Curve, EquityPoint{
			Date:   in.Dates[i],
			Cash:   cash,
			Shares: shares,
			Close:  closePx,
			Equity: cash + float64(shares)*markPrice,
		})

		// The last bar has no next open to fill against.
		if i == n-1 {
			if in.Entry[i] || in.Exit[i] {
				s.log.Debug("signal on final bar discarded", "date", in.Dates[i])
			}
			continue
		}

		px := in.Open[i+1]

		if !inPosition && in.Entry[i] {
			if math.IsNaN(px) {
				s.log.Debug("entry skipped: next open is NaN", "date", in.Dates[i])
				continue
			}
			intended := int64(math.Floor(math.Max(in.Sizes[i], 0)))
			if intended <= 0 {
				continue
			}
			affordable := int64(math.Floor(cash / px))
			qty := intended
			if affordable < qty {
				qty = affordable
			}
			if qty <= 0 {
				continue
			}

			cost := float64(qty) * px
			cashBefore, sharesBefore := cash, shares
			cash -= cost
			shares += qty
			inPosition = true
			entry = Trade{
				EntrySignalDate: in.Dates[i],
				EntryDate:       in.Dates[i+1],
				EntryPrice:      px,
				Quantity:        qty,
			}
			out.Transactions = append(out.Transactions, Transaction{
				Date:         in.Dates[i+1],
				Type:         TxBuy,
				Price:        px,
				Quantity:     qty,
				Amount:       cost,
				CashBefore:   cashBefore,
				CashAfter:    cash,
				SharesBefore: sharesBefore,
				SharesAfter:  shares,
				EquityBefore: cashBefore + float64(sharesBefore)*markValue(closePx, px),
				EquityAfter:  cash + float64(shares)*markValue(closePx, px),
			})
		} else if inPosition && in.Exit[i] && shares > 0 {
			if math.IsNaN(px) {
				s.log.Debug("exit skipped: next open is NaN", "date", in.Dates[i])
				continue
			}
			proceeds := float64(shares) * px
			pnl := proceeds - float64(shares)*entry.EntryPrice
			returnPct := (px/entry.EntryPrice - 1) * 100

			cashBefore, sharesBefore := cash, shares
			cash += proceeds

			entry.ExitDate = in.Dates[i+1]
			entry.ExitPrice = px
			entry.ExitReason = ExitSignal
			entry.PnL = pnl
			entry.ReturnPct = returnPct
			entry.Quantity = shares
			out.Trades = append(out.Trades, entry)

			shares = 0
			inPosition = false
			entry = Trade{}

			out.Transactions = append(out.Transactions, Transaction{
				Date:         in.Dates[i+1],
				Type:         TxSell,
				Price:        px,
				Quantity:     sharesBefore,
				Amount:       proceeds,
				CashBefore:   cashBefore,
				CashAfter:    cash,
				SharesBefore: sharesBefore,
				SharesAfter:  shares,
				EquityBefore: cashBefore + float64(sharesBefore)*markValue(closePx, px),
				EquityAfter:  cash + float64(shares)*markValue(closePx, px),
				PnL:          pnl,
				ReturnPct:    returnPct,
			})
		}
	}
	return out, nil
}

// markValue values shares at the bar's close, falling back to the execution
// price when the close is missing.
func markValue(closePx, px float64) float64 {
	if math.IsNaN(closePx) {
		return px
	}
	return closePx
}
