package builtins

import (
	"fmt"
	"math"

	"replay/internal/frame"
	"replay/internal/strategy"
)

var _ strategy.Strategy = (*EMACross)(nil)

// EMACross signals only on crossover events: +1 the bar the short EMA
// crosses above the long EMA, -1 the bar it crosses below. Between events
// the signal is 0, so repeated bars on the same side of the cross stay
// quiet.
type EMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewEMACross creates an EMACross with the given spans.
func NewEMACross(short, long int) (*EMACross, error) {
	if short <= 0 || long <= 0 {
		return nil, fmt.Errorf("ema periods must be positive, got %d/%d", short, long)
	}
	if short >= long {
		return nil, fmt.Errorf("short period %d must be less than long period %d", short, long)
	}
	return &EMACross{shortPeriod: short, longPeriod: long}, nil
}

// Name returns "ema-cross".
func (s *EMACross) Name() string { return "ema-cross" }

// Description summarizes the trading logic.
func (s *EMACross) Description() string {
	return fmt.Sprintf("Enter on EMA(%d) crossing above EMA(%d), exit on the reverse cross", s.shortPeriod, s.longPeriod)
}

// ParameterSchema declares the EMA span parameters.
func (s *EMACross) ParameterSchema() map[string]strategy.ParamSpec {
	return map[string]strategy.ParamSpec{
		"short": {Type: "int", Min: 2, Max: 100, Default: 5},
		"long":  {Type: "int", Min: 5, Max: 400, Default: 20},
	}
}

// GenerateSignals computes the EMAs and emits signals at direction changes.
func (s *EMACross) GenerateSignals(data *frame.Frame) (*frame.Frame, error) {
	closes, ok := closeColumn(data)
	if !ok {
		return nil, fmt.Errorf("ema-cross: no close column in %v", data.Columns())
	}

	short := ema(closes, s.shortPeriod)
	long := ema(closes, s.longPeriod)

	signals := make([]float64, len(closes))
	prevSide := 0 // -1 short below, +1 short above
	for i := range closes {
		if i < s.longPeriod-1 || math.IsNaN(short[i]) || math.IsNaN(long[i]) {
			continue
		}
		side := 0
		switch {
		case short[i] > long[i]:
			side = 1
		case short[i] < long[i]:
			side = -1
		}
		if side != 0 && side != prevSide {
			if prevSide != 0 {
				signals[i] = float64(side)
			}
			prevSide = side
		}
	}

	out := data.Clone()
	out.SetFloats("ema_short", short)
	out.SetFloats("ema_long", long)
	out.SetFloats("Signal", signals)
	return out, nil
}

// ema computes an exponential moving average with span smoothing
// alpha = 2/(span+1), seeded from the first value.
func ema(vals []float64, span int) []float64 {
	out := make([]float64, len(vals))
	alpha := 2.0 / (float64(span) + 1.0)
	prev := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			out[i] = prev
			continue
		}
		if math.IsNaN(prev) {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}
