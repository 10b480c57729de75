// Package frame provides a small ordered-column table for price series and
// strategy output. A Frame holds named series of floats, timestamps, or
// strings; strategies may attach arbitrary indicator columns that the engine
// carries through untouched.
package frame

import (
	"fmt"
	"math"
	"time"

	"replay/internal/domain"
)

// Kind identifies the element type of a Series.
type Kind int

const (
	KindFloat Kind = iota
	KindTime
	KindString
)

// Series is one named column of a Frame.
type Series struct {
	name   string
	kind   Kind
	floats []float64
	times  []time.Time
	strs   []string
}

// Name returns the column name.
func (s *Series) Name() string { return s.name }

// Kind returns the element type of the series.
func (s *Series) Kind() Kind { return s.kind }

// Len returns the number of rows in the series.
func (s *Series) Len() int {
	switch s.kind {
	case KindFloat:
		return len(s.floats)
	case KindTime:
		return len(s.times)
	default:
		return len(s.strs)
	}
}

// Floats returns the underlying float values, or nil if the series is not a
// float column.
func (s *Series) Floats() []float64 { return s.floats }

// Times returns the underlying time values, or nil if the series is not a
// time column.
func (s *Series) Times() []time.Time { return s.times }

// Strings returns the underlying string values, or nil if the series is not
// a string column.
func (s *Series) Strings() []string { return s.strs }

func (s *Series) clone() *Series {
	c := &Series{name: s.name, kind: s.kind}
	switch s.kind {
	case KindFloat:
		c.floats = append([]float64(nil), s.floats...)
	case KindTime:
		c.times = append([]time.Time(nil), s.times...)
	default:
		c.strs = append([]string(nil), s.strs...)
	}
	return c
}

// Frame is an ordered collection of equal-length named series.
type Frame struct {
	series []*Series
	index  map[string]int
}

// New creates an empty Frame.
func New() *Frame {
	return &Frame{index: make(map[string]int)}
}

// Len returns the number of rows. An empty Frame has zero rows.
func (f *Frame) Len() int {
	if len(f.series) == 0 {
		return 0
	}
	return f.series[0].Len()
}

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.series) }

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.series))
	for i, s := range f.series {
		names[i] = s.name
	}
	return names
}

// Has reports whether a column with the given name exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Col returns the series with the given name.
func (f *Frame) Col(name string) (*Series, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.series[i], true
}

// Floats returns the float values of the named column, or false if the
// column is missing or not a float column.
func (f *Frame) Floats(name string) ([]float64, bool) {
	s, ok := f.Col(name)
	if !ok || s.kind != KindFloat {
		return nil, false
	}
	return s.floats, true
}

// Times returns the time values of the named column, or false if the column
// is missing or not a time column.
func (f *Frame) Times(name string) ([]time.Time, bool) {
	s, ok := f.Col(name)
	if !ok || s.kind != KindTime {
		return nil, false
	}
	return s.times, true
}

// Strings returns the string values of the named column, or false if the
// column is missing or not a string column.
func (f *Frame) Strings(name string) ([]string, bool) {
	s, ok := f.Col(name)
	if !ok || s.kind != KindString {
		return nil, false
	}
	return s.strs, true
}

func (f *Frame) put(s *Series) error {
	if f.Len() > 0 && s.Len() != f.Len() {
		return fmt.Errorf("column %q has %d rows, frame has %d", s.name, s.Len(), f.Len())
	}
	if i, ok := f.index[s.name]; ok {
		f.series[i] = s
		return nil
	}
	f.index[s.name] = len(f.series)
	f.series = append(f.series, s)
	return nil
}

// SetFloats adds or replaces a float column. The length must match the
// frame's row count unless the frame is empty.
func (f *Frame) SetFloats(name string, vals []float64) error {
	return f.put(&Series{name: name, kind: KindFloat, floats: vals})
}

// SetTimes adds or replaces a time column.
func (f *Frame) SetTimes(name string, vals []time.Time) error {
	return f.put(&Series{name: name, kind: KindTime, times: vals})
}

// SetStrings adds or replaces a string column.
func (f *Frame) SetStrings(name string, vals []string) error {
	return f.put(&Series{name: name, kind: KindString, strs: vals})
}

// Rename changes a column's name. Renaming a missing column is a no-op;
// renaming onto an existing different column is an error, and renaming a
// column to itself succeeds unchanged.
func (f *Frame) Rename(old, new string) error {
	i, ok := f.index[old]
	if !ok {
		return nil
	}
	if old == new {
		return nil
	}
	if _, exists := f.index[new]; exists {
		return fmt.Errorf("cannot rename %q: column %q already exists", old, new)
	}
	delete(f.index, old)
	f.index[new] = i
	f.series[i].name = new
	return nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := New()
	for _, s := range f.series {
		c.index[s.name] = len(c.series)
		c.series = append(c.series, s.clone())
	}
	return c
}

// FilterRows returns a new frame containing only the rows for which keep is
// true. keep must have one entry per row.
func (f *Frame) FilterRows(keep []bool) *Frame {
	out := New()
	for _, s := range f.series {
		ns := &Series{name: s.name, kind: s.kind}
		switch s.kind {
		case KindFloat:
			for i, v := range s.floats {
				if keep[i] {
					ns.floats = append(ns.floats, v)
				}
			}
		case KindTime:
			for i, v := range s.times {
				if keep[i] {
					ns.times = append(ns.times, v)
				}
			}
		default:
			for i, v := range s.strs {
				if keep[i] {
					ns.strs = append(ns.strs, v)
				}
			}
		}
		out.index[ns.name] = len(out.series)
		out.series = append(out.series, ns)
	}
	return out
}

// Equal reports whether two frames have identical columns, order, kinds, and
// values. NaN float values compare equal to NaN.
func (f *Frame) Equal(other *Frame) bool {
	if len(f.series) != len(other.series) {
		return false
	}
	for i, a := range f.series {
		b := other.series[i]
		if a.name != b.name || a.kind != b.kind || a.Len() != b.Len() {
			return false
		}
		switch a.kind {
		case KindFloat:
			for j := range a.floats {
				x, y := a.floats[j], b.floats[j]
				if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
					return false
				}
			}
		case KindTime:
			for j := range a.times {
				if !a.times[j].Equal(b.times[j]) {
					return false
				}
			}
		default:
			for j := range a.strs {
				if a.strs[j] != b.strs[j] {
					return false
				}
			}
		}
	}
	return true
}

// FromBars builds a Frame from a bar series using the lowercase canonical
// column names. Bars are sorted ascending by date first.
func FromBars(bars []domain.Bar) *Frame {
	sorted := append([]domain.Bar(nil), bars...)
	domain.SortBars(sorted)

	n := len(sorted)
	dates := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	symbols := make([]string, n)
	for i, b := range sorted {
		dates[i] = b.Date
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		volume[i] = float64(b.Volume)
		symbols[i] = b.Symbol
	}

	f := New()
	f.SetTimes("date", dates)
	f.SetFloats("open", open)
	f.SetFloats("high", high)
	f.SetFloats("low", low)
	f.SetFloats("close", closes)
	f.SetFloats("volume", volume)
	f.SetStrings("symbol", symbols)
	return f
}
