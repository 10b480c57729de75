package backtest

import (
	"fmt"
	"strings"
)

// The error taxonomy separates "could not run" failures, which short-circuit
// a run before or during simulation, from "ran, but metric undefined" cases,
// which surface as zero or NaN metric values and never as errors.

// PreprocessingError means every variant of the preprocessing fallback chain
// failed. Attempts holds one error per variant, in chain order.
type PreprocessingError struct {
	Attempts []error
}

func (e *PreprocessingError) Error() string {
	msgs := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("preprocessing failed under all normalization variants: [%s]", strings.Join(msgs, "; "))
}

// ContractError means the strategy violated the signal contract: no Signal
// column, wrong row count, or values that cannot be coerced.
type ContractError struct {
	Reason string
}

func (e *ContractError) Error() string {
	return "signal contract violation: " + e.Reason
}

// ExecutionError means the per-bar simulation loop failed partway through.
// Everything recorded before Bar is preserved by the simulator.
type ExecutionError struct {
	Bar int
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("simulation failed at bar %d: %v", e.Bar, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
