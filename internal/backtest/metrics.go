package backtest

import "math"

// SignalMetrics scores the raw signal series against the close-to-close
// return stream, independent of cash or sizing. A position opened by a
// signal at bar t earns the price change realized at bar t+1.
type SignalMetrics struct {
	TotalSignals         int     `json:"total_signals"`
	BuySignals           int     `json:"buy_signals"`
	SellSignals          int     `json:"sell_signals"`
	WinRate              float64 `json:"win_rate"`
	TotalReturn          float64 `json:"total_return"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	CAGR                 float64 `json:"cagr"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	AvgTradeDuration     float64 `json:"avg_trade_duration"`
}

// PortfolioMetrics scores the simulated equity curve: what the portfolio
// actually did after next-bar fills, whole-share sizing, and cash limits.
type PortfolioMetrics struct {
	TotalReturn          float64 `json:"total_return"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	CAGR                 float64 `json:"cagr"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
}

// ComputeSignalMetrics derives the strategy return series
//
//	ret[t] = signal[t-1] * pctChange(close)[t]
//
// and reports its total return, drawdown, Sharpe ratio, CAGR, and annualized
// volatility, using tradingDays bars per year. TotalReturn is the arithmetic
// sum of per-bar returns; drawdown and CAGR compound them. An all-zero
// signal series yields all-zero metrics rather than an error; undefined
// ratios (zero variance, too few bars) are reported as zero.
func ComputeSignalMetrics(signals []int64, closes []float64, tradingDays float64) SignalMetrics {
	var m SignalMetrics
	for _, s := range signals {
		switch {
		case s > 0:
			m.BuySignals++
		case s < 0:
			m.SellSignals++
		}
	}
	m.TotalSignals = m.BuySignals + m.SellSignals
	if m.TotalSignals == 0 || len(closes) < 2 {
		return m
	}

	rets := strategyReturns(signals, closes)

	wins := 0
	for _, r := range rets {
		if r > 0 {
			wins++
		}
	}
	m.WinRate = float64(wins) / float64(m.TotalSignals)

	for _, r := range rets {
		m.TotalReturn += r
	}
	cum, maxDD := compound(rets)
	m.MaxDrawdown = maxDD
	m.SharpeRatio = sharpe(rets, tradingDays)
	m.AnnualizedVolatility = sampleStd(rets) * math.Sqrt(tradingDays)
	m.CAGR = cagr(cum, float64(len(rets)), tradingDays)
	m.AvgTradeDuration = avgSignalTradeBars(signals)
	return m
}

// ComputeEquityMetrics scores a mark-to-market equity curve. Non-positive
// points are dropped before computing returns so a curve that touches zero
// does not poison the ratios.
func ComputeEquityMetrics(equity []float64, tradingDays float64) PortfolioMetrics {
	var m PortfolioMetrics

	filtered := make([]float64, 0, len(equity))
	for _, e := range equity {
		if e > 0 && !math.IsNaN(e) {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) < 2 {
		return m
	}

	rets := make([]float64, len(filtered)-1)
	for i := 1; i < len(filtered); i++ {
		rets[i-1] = filtered[i]/filtered[i-1] - 1
	}

	m.TotalReturn = filtered[len(filtered)-1]/filtered[0] - 1
	_, m.MaxDrawdown = compound(rets)
	m.SharpeRatio = sharpe(rets, tradingDays)
	m.AnnualizedVolatility = sampleStd(rets) * math.Sqrt(tradingDays)
	m.CAGR = cagr(1+m.TotalReturn, float64(len(rets)), tradingDays)
	return m
}

// strategyReturns lags the signal by one bar against close-to-close changes.
// NaN closes contribute zero return.
func strategyReturns(signals []int64, closes []float64) []float64 {
	n := len(closes)
	rets := make([]float64, 0, n-1)
	for t := 1; t < n; t++ {
		var sig int64
		if t-1 < len(signals) {
			sig = signals[t-1]
		}
		pct := 0.0
		if closes[t-1] != 0 && !math.IsNaN(closes[t-1]) && !math.IsNaN(closes[t]) {
			pct = closes[t]/closes[t-1] - 1
		}
		rets = append(rets, float64(sig)*pct)
	}
	return rets
}

// compound returns the terminal value of compounding the return series from
// 1.0 and the deepest peak-to-trough drawdown along the way (as a negative
// fraction, 0 when the curve never declines).
func compound(rets []float64) (terminal, maxDD float64) {
	cum := 1.0
	peak := 1.0
	for _, r := range rets {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if peak > 0 {
			dd := cum/peak - 1
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return cum, maxDD
}

// sharpe is the annualized mean-over-volatility ratio, zero when the series
// has no variance or fewer than two observations.
func sharpe(rets []float64, tradingDays float64) float64 {
	std := sampleStd(rets)
	if std == 0 {
		return 0
	}
	return mean(rets) * tradingDays / (std * math.Sqrt(tradingDays))
}

// cagr annualizes a terminal growth multiple over bars observations. A
// non-positive terminal value (a wiped-out account) reports zero rather than
// a complex root.
func cagr(terminal, bars, tradingDays float64) float64 {
	if terminal <= 0 || bars <= 0 {
		return 0
	}
	years := bars / tradingDays
	if years <= 0 {
		return 0
	}
	return math.Pow(terminal, 1/years) - 1
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStd is the ddof=1 standard deviation, zero for fewer than two
// observations.
func sampleStd(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}
	mu := mean(vals)
	ss := 0.0
	for _, v := range vals {
		d := v - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// avgSignalTradeBars is the mean bar count between each buy signal and the
// sell signal that closes it, first signal wins, unclosed buys excluded.
func avgSignalTradeBars(signals []int64) float64 {
	pendingBuy := -1
	total, count := 0, 0
	for i, s := range signals {
		switch {
		case s > 0:
			if pendingBuy < 0 {
				pendingBuy = i
			}
		case s < 0:
			if pendingBuy >= 0 {
				total += i - pendingBuy
				count++
				pendingBuy = -1
			}
		}
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}
