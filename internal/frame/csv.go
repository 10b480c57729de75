package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Date layouts accepted by ReadCSV, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// ReadCSV reads a headered CSV file into a Frame. Column names are taken
// from the header verbatim; normalization is a separate, later step. A
// column whose name is a recognized date alias is parsed as timestamps; any
// other column is parsed as floats when every non-empty cell is numeric, and
// kept as strings otherwise. Empty numeric cells become NaN.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readCSV(file)
}

func readCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	cells := make([][]string, len(header))
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}
		for i := range header {
			v := ""
			if i < len(record) {
				v = strings.TrimSpace(record[i])
			}
			cells[i] = append(cells[i], v)
		}
	}

	f := New()
	for i, name := range header {
		name = strings.TrimSpace(name)
		col := cells[i]

		if isDateAlias(name) {
			times, err := parseTimes(col)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			f.SetTimes(name, times)
			continue
		}

		if floats, ok := parseFloats(col); ok {
			f.SetFloats(name, floats)
		} else {
			f.SetStrings(name, col)
		}
	}
	return f, nil
}

func isDateAlias(name string) bool {
	switch strings.ToLower(name) {
	case "date", "datetime":
		return true
	}
	return false
}

func parseTimes(cells []string) ([]time.Time, error) {
	out := make([]time.Time, len(cells))
	for i, c := range cells {
		if c == "" {
			continue
		}
		var parsed bool
		for _, layout := range dateLayouts {
			t, err := time.Parse(layout, c)
			if err == nil {
				out[i] = t
				parsed = true
				break
			}
		}
		if !parsed {
			return nil, fmt.Errorf("unparseable date %q at row %d", c, i+1)
		}
	}
	return out, nil
}

// parseFloats converts cells to floats. It reports false if any non-empty
// cell is not numeric, in which case the column stays a string column.
func parseFloats(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		if c == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
