package backtest

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestComputeSignalMetricsAllZero(t *testing.T) {
	m := ComputeSignalMetrics([]int64{0, 0, 0}, []float64{100, 110, 121}, 252)
	if m != (SignalMetrics{}) {
		t.Errorf("all-zero signals must yield all-zero metrics, got %+v", m)
	}
}

func TestComputeSignalMetricsLagsSignals(t *testing.T) {
	// Signal at t earns the price change realized at t+1:
	// ret = [sig[0]*10%, sig[1]*10%] = [0.10, 0.10].
	m := ComputeSignalMetrics([]int64{1, 1, 0}, []float64{100, 110, 121}, 252)

	if m.TotalSignals != 2 || m.BuySignals != 2 || m.SellSignals != 0 {
		t.Errorf("signal counts = %d/%d/%d, want 2/2/0", m.TotalSignals, m.BuySignals, m.SellSignals)
	}
	// Total return is the arithmetic sum of per-bar returns, not their
	// compounded product.
	if !approx(m.TotalReturn, 0.2) {
		t.Errorf("total return = %v, want 0.2", m.TotalReturn)
	}
	if !approx(m.WinRate, 1) {
		t.Errorf("win rate = %v, want 1", m.WinRate)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("max drawdown = %v, want 0 for a rising curve", m.MaxDrawdown)
	}
	// Identical returns: zero variance, so the ratio is defined as zero.
	if m.SharpeRatio != 0 || m.AnnualizedVolatility != 0 {
		t.Errorf("zero-variance series: sharpe = %v vol = %v, want 0 0", m.SharpeRatio, m.AnnualizedVolatility)
	}
	if m.CAGR <= 0 {
		t.Errorf("CAGR = %v, want positive for a profitable run", m.CAGR)
	}
}

func TestComputeSignalMetricsDrawdown(t *testing.T) {
	// Long through a 10% drop then a recovery: trough at 0.9.
	m := ComputeSignalMetrics([]int64{1, 1, 0}, []float64{100, 90, 100}, 252)
	if !approx(m.MaxDrawdown, -0.1) {
		t.Errorf("max drawdown = %v, want -0.1", m.MaxDrawdown)
	}
	if m.SharpeRatio == 0 {
		t.Error("varying returns should yield a non-zero sharpe")
	}
}

func TestComputeSignalMetricsShortSide(t *testing.T) {
	// Short into a 10% drop: positive strategy return.
	m := ComputeSignalMetrics([]int64{-1, 0}, []float64{100, 90}, 252)
	if !approx(m.TotalReturn, 0.1) {
		t.Errorf("total return = %v, want 0.1 from a profitable short", m.TotalReturn)
	}
}

func TestAvgSignalTradeBars(t *testing.T) {
	if got := avgSignalTradeBars([]int64{1, 0, 0, -1}); !approx(got, 3) {
		t.Errorf("duration = %v, want 3 bars", got)
	}
	// Repeated buys: first signal wins, so duration counts from the first.
	if got := avgSignalTradeBars([]int64{1, 1, -1}); !approx(got, 2) {
		t.Errorf("duration = %v, want 2 bars", got)
	}
	if got := avgSignalTradeBars([]int64{1, 0, 0}); got != 0 {
		t.Errorf("unclosed trade should not count, got %v", got)
	}
}

func TestComputeEquityMetrics(t *testing.T) {
	m := ComputeEquityMetrics([]float64{1000, 1100, 1210}, 252)
	if !approx(m.TotalReturn, 0.21) {
		t.Errorf("total return = %v, want 0.21", m.TotalReturn)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("max drawdown = %v, want 0", m.MaxDrawdown)
	}
}

func TestComputeEquityMetricsFiltersNonPositive(t *testing.T) {
	// The zero point is dropped, not divided by.
	m := ComputeEquityMetrics([]float64{1000, 0, 1100}, 252)
	if !approx(m.TotalReturn, 0.1) {
		t.Errorf("total return = %v, want 0.1 over the surviving points", m.TotalReturn)
	}
}

func TestComputeEquityMetricsDegenerate(t *testing.T) {
	if m := ComputeEquityMetrics(nil, 252); m != (PortfolioMetrics{}) {
		t.Errorf("empty curve should yield zero metrics, got %+v", m)
	}
	if m := ComputeEquityMetrics([]float64{1000}, 252); m != (PortfolioMetrics{}) {
		t.Errorf("single-point curve should yield zero metrics, got %+v", m)
	}
}

func TestSampleStd(t *testing.T) {
	// ddof=1: var of {1,2,3} is 1.
	if got := sampleStd([]float64{1, 2, 3}); !approx(got, 1) {
		t.Errorf("sampleStd = %v, want 1", got)
	}
	if got := sampleStd([]float64{5}); got != 0 {
		t.Errorf("sampleStd of one value = %v, want 0", got)
	}
}
