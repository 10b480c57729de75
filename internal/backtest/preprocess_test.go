package backtest

import (
	"errors"
	"fmt"
	"testing"

	"replay/internal/frame"
	"replay/internal/strategy"
)

func rawFrame() *frame.Frame {
	f := frame.New()
	f.SetFloats("Close", []float64{10, 11, 12})
	f.SetFloats("Vol", []float64{1, 2, 3})
	return f
}

func TestPreprocessChainRawFirst(t *testing.T) {
	calls := 0
	pre := func(data *frame.Frame) (*frame.Frame, error) {
		calls++
		return data, nil
	}
	out, err := runPreprocessChain(rawFrame(), pre)
	if err != nil {
		t.Fatalf("runPreprocessChain: %v", err)
	}
	if calls != 1 {
		t.Errorf("preprocess called %d times, want 1: raw data should win first", calls)
	}
	if !out.Has("Close") {
		t.Error("raw variant should keep original column names")
	}
}

func TestPreprocessChainFallsBackToLowercase(t *testing.T) {
	pre := func(data *frame.Frame) (*frame.Frame, error) {
		if !data.Has("close") {
			return nil, fmt.Errorf("need lowercase close")
		}
		return data, nil
	}
	out, err := runPreprocessChain(rawFrame(), pre)
	if err != nil {
		t.Fatalf("runPreprocessChain: %v", err)
	}
	if !out.Has("close") {
		t.Errorf("columns = %v, want normalized lowercase close", out.Columns())
	}
}

func TestPreprocessChainFallsBackToCapitalized(t *testing.T) {
	f := frame.New()
	f.SetFloats("close", []float64{10, 11, 12})

	pre := func(data *frame.Frame) (*frame.Frame, error) {
		if !data.Has("Close") {
			return nil, fmt.Errorf("need capitalized Close")
		}
		return data, nil
	}
	out, err := runPreprocessChain(f, pre)
	if err != nil {
		t.Fatalf("runPreprocessChain: %v", err)
	}
	if !out.Has("Close") {
		t.Errorf("columns = %v, want capitalized Close", out.Columns())
	}
}

func TestPreprocessChainCollectsAllFailures(t *testing.T) {
	pre := func(data *frame.Frame) (*frame.Frame, error) {
		return nil, fmt.Errorf("always broken")
	}
	_, err := runPreprocessChain(rawFrame(), pre)

	var pe *PreprocessingError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PreprocessingError", err)
	}
	if len(pe.Attempts) != 3 {
		t.Errorf("attempts = %d, want one per variant", len(pe.Attempts))
	}
}

func TestPreprocessChainRecoversPanic(t *testing.T) {
	pre := func(data *frame.Frame) (*frame.Frame, error) {
		panic("strategy bug")
	}
	_, err := runPreprocessChain(rawFrame(), pre)
	if err == nil {
		t.Fatal("panicking preprocess should surface as an error")
	}
}

func TestPreprocessChainRejectsEmptyOutput(t *testing.T) {
	pre := func(data *frame.Frame) (*frame.Frame, error) {
		return frame.New(), nil
	}
	_, err := runPreprocessChain(rawFrame(), pre)
	if err == nil {
		t.Fatal("empty output must not count as success")
	}
}

func TestPreprocessChainRejectsMissingClose(t *testing.T) {
	pre := func(data *frame.Frame) (*frame.Frame, error) {
		out := frame.New()
		out.SetFloats("price", []float64{1, 2})
		return out, nil
	}
	_, err := runPreprocessChain(rawFrame(), pre)
	if err == nil {
		t.Fatal("output without a close column must not count as success")
	}
}

func TestPreprocessChainWithDefault(t *testing.T) {
	out, err := runPreprocessChain(rawFrame(), strategy.DefaultPreprocess)
	if err != nil {
		t.Fatalf("runPreprocessChain with default: %v", err)
	}
	if out.Len() != 3 {
		t.Errorf("rows = %d, want 3", out.Len())
	}
}
