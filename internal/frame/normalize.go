package frame

import "strings"

// Variant selects which canonical naming convention Normalize maps onto.
type Variant string

const (
	// VariantLower produces date, open, high, low, close, volume, symbol.
	VariantLower Variant = "lower"
	// VariantCapitalized produces Date, Open, High, Low, Close, Volume, Symbol.
	VariantCapitalized Variant = "capitalized"
)

// canonical column names keyed by the lowercase form of every recognized
// alias. Datetime and StockName appear as inputs only; the capitalized
// canonical forms are Date and Symbol.
var lowerCanonical = map[string]string{
	"date":      "date",
	"datetime":  "date",
	"open":      "open",
	"high":      "high",
	"low":       "low",
	"close":     "close",
	"volume":    "volume",
	"symbol":    "symbol",
	"stockname": "symbol",
}

var capitalizedCanonical = map[string]string{
	"date":      "Date",
	"datetime":  "Date",
	"open":      "Open",
	"high":      "High",
	"low":       "Low",
	"close":     "Close",
	"volume":    "Volume",
	"symbol":    "Symbol",
	"stockname": "Symbol",
}

// Normalize returns a copy of the frame with recognized column aliases
// renamed to the canonical names of the given variant. Matching is
// case-insensitive. Unrecognized columns pass through unchanged, as does a
// column whose canonical name is already taken by another column. A frame
// that is already normalized comes back identical, so Normalize is
// idempotent. Normalize never fails: if nothing matches, the copy equals
// the input and callers must check for required columns themselves.
func Normalize(f *Frame, v Variant) *Frame {
	table := lowerCanonical
	if v == VariantCapitalized {
		table = capitalizedCanonical
	}

	out := f.Clone()
	for _, name := range out.Columns() {
		canonical, ok := table[strings.ToLower(name)]
		if !ok || canonical == name {
			continue
		}
		if out.Has(canonical) {
			continue
		}
		out.Rename(name, canonical)
	}
	return out
}
