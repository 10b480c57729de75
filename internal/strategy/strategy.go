// Package strategy defines the contract a trading strategy must satisfy to
// be evaluated by the backtest engine, the optional capabilities a strategy
// may add, and a Registry of strategy factories.
package strategy

import (
	"fmt"
	"math"
	"sort"
	"time"

	"replay/internal/frame"
)

// ParamSpec describes one tunable parameter for UIs and validation.
type ParamSpec struct {
	Type    string  `json:"type"` // "int" or "float"
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Strategy is the minimal contract every strategy must implement.
//
// GenerateSignals receives the prepared price frame and must return a frame
// with a Signal column of {-1, 0, 1} values, one per input row, in the same
// date order. It may attach additional indicator columns; the engine carries
// them through to the output artifacts but never interprets them.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Description returns a human-readable summary of the trading logic.
	Description() string

	// ParameterSchema declares the strategy's tunable parameters.
	ParameterSchema() map[string]ParamSpec

	// GenerateSignals produces the per-bar signal series for the prepared
	// data. It is called exactly once per backtest run.
	GenerateSignals(data *frame.Frame) (*frame.Frame, error)
}

// ---------------------------------------------------------------------------
// Optional capabilities
// ---------------------------------------------------------------------------

// The engine discovers these by type assertion; a strategy implements only
// the ones it cares about and inherits the default behaviour for the rest.

// Preprocessor lets a strategy clean its input before signal generation.
// Implementations must not reorder rows or change the date identity of the
// series.
type Preprocessor interface {
	Preprocess(data *frame.Frame) (*frame.Frame, error)
}

// PositionSizer reports the intended share quantity per bar. Fractional
// values are truncated to whole shares by the simulator.
type PositionSizer interface {
	PositionSizing(data *frame.Frame) ([]float64, error)
}

// EntryRuler overrides the default entry condition (Signal == 1).
type EntryRuler interface {
	EntryRules(data *frame.Frame) ([]bool, error)
}

// ExitRuler overrides the default exit condition (Signal == -1).
type ExitRuler interface {
	ExitRules(data *frame.Frame) ([]bool, error)
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// DefaultPreprocess is the fallback preprocessing applied when a strategy
// does not implement Preprocessor: duplicate dates are dropped (first
// occurrence wins) and gaps in float columns are forward- then
// backward-filled. Row order is preserved.
func DefaultPreprocess(data *frame.Frame) (*frame.Frame, error) {
	out := data.Clone()

	// Drop duplicate dates if a date column is present.
	if dates, _ := findDates(out); dates != nil {
		seen := make(map[time.Time]bool, len(dates))
		keep := make([]bool, len(dates))
		dups := false
		for i, d := range dates {
			if seen[d] {
				dups = true
				continue
			}
			seen[d] = true
			keep[i] = true
		}
		if dups {
			out = out.FilterRows(keep)
		}
	}

	for _, name := range out.Columns() {
		vals, ok := out.Floats(name)
		if !ok {
			continue
		}
		fillForward(vals)
		fillBackward(vals)
	}
	return out, nil
}

func findDates(f *frame.Frame) ([]time.Time, string) {
	for _, name := range []string{"date", "Date", "Datetime"} {
		if ts, ok := f.Times(name); ok {
			return ts, name
		}
	}
	return nil, ""
}

func fillForward(vals []float64) {
	last := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = last
		} else {
			last = v
		}
	}
}

func fillBackward(vals []float64) {
	next := math.NaN()
	for i := len(vals) - 1; i >= 0; i-- {
		if math.IsNaN(vals[i]) {
			vals[i] = next
		} else {
			next = vals[i]
		}
	}
}

// DefaultSizes returns the default intended size of one share per bar.
func DefaultSizes(n int) []float64 {
	sizes := make([]float64, n)
	for i := range sizes {
		sizes[i] = 1
	}
	return sizes
}

// ValidateParams checks a parameter map against a schema: unknown names and
// out-of-range values are rejected. Parameter validation is the caller's
// responsibility, not the engine's; the orchestrator never calls this.
func ValidateParams(schema map[string]ParamSpec, params map[string]float64) error {
	for name, v := range params {
		spec, ok := schema[name]
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		if v < spec.Min || v > spec.Max {
			return fmt.Errorf("parameter %q = %v outside [%v, %v]", name, v, spec.Min, spec.Max)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Factory constructs a strategy instance from a parameter map. A fresh
// instance is built per backtest run so runs never share state.
type Factory func(params map[string]float64) (Strategy, error)

// Registry holds named strategy factories for lookup and enumeration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given name, replacing any previous
// registration.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Get retrieves a factory by name. The second return value indicates whether
// the factory was found.
func (r *Registry) Get(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
