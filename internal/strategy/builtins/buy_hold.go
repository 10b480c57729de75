package builtins

import (
	"fmt"

	"replay/internal/frame"
	"replay/internal/strategy"
)

var _ strategy.Strategy = (*BuyHold)(nil)
var _ strategy.PositionSizer = (*BuyHold)(nil)

// BuyHold enters on the first bar and never exits. It doubles as a sizing
// reference: it asks for as many whole shares as the first close could buy,
// leaving the affordability cap to the simulator.
type BuyHold struct{}

// Name returns "buy-hold".
func (s *BuyHold) Name() string { return "buy-hold" }

// Description summarizes the trading logic.
func (s *BuyHold) Description() string {
	return "Buy on the first bar and hold to the end of the series"
}

// ParameterSchema is empty; buy-and-hold has nothing to tune.
func (s *BuyHold) ParameterSchema() map[string]strategy.ParamSpec { return nil }

// GenerateSignals emits a single +1 on the first bar.
func (s *BuyHold) GenerateSignals(data *frame.Frame) (*frame.Frame, error) {
	if data.Len() == 0 {
		return nil, fmt.Errorf("buy-hold: empty series")
	}
	signals := make([]float64, data.Len())
	signals[0] = 1

	out := data.Clone()
	out.SetFloats("Signal", signals)
	return out, nil
}

// PositionSizing asks for an effectively unbounded quantity; the simulator
// truncates to whatever cash affords at the execution price.
func (s *BuyHold) PositionSizing(data *frame.Frame) ([]float64, error) {
	sizes := make([]float64, data.Len())
	for i := range sizes {
		sizes[i] = 1e9
	}
	return sizes, nil
}
