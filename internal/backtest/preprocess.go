package backtest

import (
	"fmt"

	"replay/internal/frame"
)

// preprocessFn is a strategy's preprocessing step (or the engine default).
type preprocessFn func(*frame.Frame) (*frame.Frame, error)

// runPreprocessChain feeds the input through the strategy's preprocessing
// under three column-naming variants, in fixed priority order:
//
//  1. the data exactly as provided,
//  2. engine-normalized to lowercase names,
//  3. engine-normalized to capitalized names.
//
// The first variant that returns without error and yields a non-empty frame
// containing a close/Close column wins. The ordering is a compatibility
// policy for strategies written against either naming convention, not an
// optimization; changing it changes which strategies run.
func runPreprocessChain(data *frame.Frame, pre preprocessFn) (*frame.Frame, error) {
	variants := []*frame.Frame{
		data.Clone(),
		frame.Normalize(data, frame.VariantLower),
		frame.Normalize(data, frame.VariantCapitalized),
	}

	var attempts []error
	for _, candidate := range variants {
		out, err := callPreprocess(pre, candidate)
		if err != nil {
			attempts = append(attempts, err)
			continue
		}
		if out == nil || out.Len() == 0 {
			attempts = append(attempts, fmt.Errorf("preprocess returned an empty table"))
			continue
		}
		if !out.Has("close") && !out.Has("Close") {
			attempts = append(attempts, fmt.Errorf("preprocess output has no close column (columns: %v)", out.Columns()))
			continue
		}
		return out, nil
	}
	return nil, &PreprocessingError{Attempts: attempts}
}

// callPreprocess invokes strategy-authored code, converting a panic into an
// error so one variant failing loudly does not abort the chain.
func callPreprocess(pre preprocessFn, data *frame.Frame) (out *frame.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("preprocess panicked: %v", r)
		}
	}()
	return pre(data)
}
