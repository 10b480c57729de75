package builtins

import (
	"math"
	"testing"

	"replay/internal/frame"
	"replay/internal/strategy"
)

func closeFrame(closes []float64) *frame.Frame {
	f := frame.New()
	f.SetFloats("close", closes)
	return f
}

func TestRegisterAll(t *testing.T) {
	r := strategy.NewRegistry()
	RegisterAll(r)

	names := r.List()
	want := []string{"buy-hold", "ema-cross", "sma-cross"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestSMACrossSignals(t *testing.T) {
	s, err := NewSMACross(2, 3)
	if err != nil {
		t.Fatalf("NewSMACross: %v", err)
	}

	// Rising then falling prices: short SMA leads on the way up and down.
	closes := []float64{10, 11, 12, 13, 12, 10, 8}
	out, err := s.GenerateSignals(closeFrame(closes))
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}

	signals, ok := out.Floats("Signal")
	if !ok {
		t.Fatal("output missing Signal column")
	}
	if len(signals) != len(closes) {
		t.Fatalf("Signal length %d, want %d", len(signals), len(closes))
	}
	// Warmup rows have no signal.
	if signals[0] != 0 || signals[1] != 0 {
		t.Errorf("warmup signals = %v %v, want 0 0", signals[0], signals[1])
	}
	// Uptrend: SMA(2) > SMA(3).
	if signals[3] != 1 {
		t.Errorf("signal[3] = %v, want 1 during uptrend", signals[3])
	}
	// Downtrend: SMA(2) < SMA(3).
	if signals[6] != -1 {
		t.Errorf("signal[6] = %v, want -1 during downtrend", signals[6])
	}
	if !out.Has("sma_short") || !out.Has("sma_long") {
		t.Error("indicator columns should be attached to the output frame")
	}
}

func TestSMACrossAcceptsCapitalizedClose(t *testing.T) {
	s, _ := NewSMACross(2, 3)
	f := frame.New()
	f.SetFloats("Close", []float64{10, 11, 12, 13})

	if _, err := s.GenerateSignals(f); err != nil {
		t.Errorf("GenerateSignals with Close column: %v", err)
	}
}

func TestSMACrossRejectsBadPeriods(t *testing.T) {
	if _, err := NewSMACross(50, 20); err == nil {
		t.Error("short >= long should be rejected")
	}
	if _, err := NewSMACross(0, 20); err == nil {
		t.Error("non-positive period should be rejected")
	}
}

func TestEMACrossSignalsOnlyOnCrossovers(t *testing.T) {
	s, err := NewEMACross(2, 4)
	if err != nil {
		t.Fatalf("NewEMACross: %v", err)
	}

	// Down, then sharply up, then sharply down: two direction changes after
	// the initial side is established.
	closes := []float64{20, 19, 18, 17, 16, 22, 26, 30, 24, 18, 14, 12}
	out, err := s.GenerateSignals(closeFrame(closes))
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	signals, _ := out.Floats("Signal")

	var buys, sells, nonzero int
	for _, v := range signals {
		switch v {
		case 1:
			buys++
		case -1:
			sells++
		}
		if v != 0 {
			nonzero++
		}
	}
	if buys != 1 || sells != 1 {
		t.Errorf("signals = %v: want exactly one +1 and one -1", signals)
	}
	if nonzero != 2 {
		t.Errorf("crossover strategy should be quiet between events, got %v", signals)
	}
}

func TestBuyHold(t *testing.T) {
	s := &BuyHold{}
	out, err := s.GenerateSignals(closeFrame([]float64{10, 11, 12}))
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	signals, _ := out.Floats("Signal")
	if signals[0] != 1 || signals[1] != 0 || signals[2] != 0 {
		t.Errorf("signals = %v, want [1 0 0]", signals)
	}

	sizes, err := s.PositionSizing(closeFrame([]float64{10, 11, 12}))
	if err != nil {
		t.Fatalf("PositionSizing: %v", err)
	}
	if len(sizes) != 3 || sizes[0] < 1 {
		t.Errorf("sizes = %v, want large positive per-bar sizes", sizes)
	}
}

func TestRollingMeanWarmup(t *testing.T) {
	out := rollingMean([]float64{2, 4, 6, 8}, 2)
	if !math.IsNaN(out[0]) {
		t.Errorf("rollingMean[0] = %v, want NaN during warmup", out[0])
	}
	if out[1] != 3 || out[3] != 7 {
		t.Errorf("rollingMean = %v, want [NaN 3 5 7]", out)
	}
}
