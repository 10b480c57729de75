// Package builtins provides the strategy implementations that ship with
// replay. Each builtin registers a factory so every backtest run gets a
// fresh instance.
package builtins

import (
	"fmt"
	"math"

	"replay/internal/frame"
	"replay/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross emits a long signal while the short-period SMA is above the
// long-period SMA and an exit signal while it is below. Until both windows
// have enough data the signal is 0.
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates an SMACross with the given window lengths.
func NewSMACross(short, long int) (*SMACross, error) {
	if short <= 0 || long <= 0 {
		return nil, fmt.Errorf("sma periods must be positive, got %d/%d", short, long)
	}
	if short >= long {
		return nil, fmt.Errorf("short period %d must be less than long period %d", short, long)
	}
	return &SMACross{shortPeriod: short, longPeriod: long}, nil
}

// Name returns "sma-cross".
func (s *SMACross) Name() string { return "sma-cross" }

// Description summarizes the trading logic.
func (s *SMACross) Description() string {
	return fmt.Sprintf("Long while SMA(%d) is above SMA(%d), flat otherwise", s.shortPeriod, s.longPeriod)
}

// ParameterSchema declares the SMA window parameters.
func (s *SMACross) ParameterSchema() map[string]strategy.ParamSpec {
	return map[string]strategy.ParamSpec{
		"short": {Type: "int", Min: 2, Max: 200, Default: 20},
		"long":  {Type: "int", Min: 5, Max: 400, Default: 50},
	}
}

// GenerateSignals computes both SMAs as indicator columns and derives the
// per-bar signal from their relative position.
func (s *SMACross) GenerateSignals(data *frame.Frame) (*frame.Frame, error) {
	closes, ok := closeColumn(data)
	if !ok {
		return nil, fmt.Errorf("sma-cross: no close column in %v", data.Columns())
	}

	short := rollingMean(closes, s.shortPeriod)
	long := rollingMean(closes, s.longPeriod)

	signals := make([]float64, len(closes))
	for i := range closes {
		if math.IsNaN(short[i]) || math.IsNaN(long[i]) {
			continue
		}
		switch {
		case short[i] > long[i]:
			signals[i] = 1
		case short[i] < long[i]:
			signals[i] = -1
		}
	}

	out := data.Clone()
	out.SetFloats("sma_short", short)
	out.SetFloats("sma_long", long)
	out.SetFloats("Signal", signals)
	return out, nil
}

// closeColumn finds the close series under either naming variant.
func closeColumn(f *frame.Frame) ([]float64, bool) {
	if v, ok := f.Floats("close"); ok {
		return v, true
	}
	return f.Floats("Close")
}

// rollingMean computes a simple moving average; positions with fewer than
// window observations are NaN.
func rollingMean(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= window {
			sum -= vals[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RegisterAll wires every builtin factory into the registry.
func RegisterAll(r *strategy.Registry) {
	r.Register("sma-cross", func(params map[string]float64) (strategy.Strategy, error) {
		short, long := 20, 50
		if v, ok := params["short"]; ok {
			short = int(v)
		}
		if v, ok := params["long"]; ok {
			long = int(v)
		}
		return NewSMACross(short, long)
	})
	r.Register("ema-cross", func(params map[string]float64) (strategy.Strategy, error) {
		short, long := 5, 20
		if v, ok := params["short"]; ok {
			short = int(v)
		}
		if v, ok := params["long"]; ok {
			long = int(v)
		}
		return NewEMACross(short, long)
	})
	r.Register("buy-hold", func(_ map[string]float64) (strategy.Strategy, error) {
		return &BuyHold{}, nil
	})
}
