package synth

import (
	"testing"
	"time"
)

func TestGenerateDeterministic(t *testing.T) {
	p := Params{Symbol: "TEST", Bars: 100, BasePrice: 50, Seed: 42}
	a := Generate(p)
	b := Generate(p)

	if len(a) != 100 || len(b) != 100 {
		t.Fatalf("lengths = %d, %d, want 100", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs between runs with the same seed: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateSeedChangesSeries(t *testing.T) {
	a := Generate(Params{Bars: 50, Seed: 1})
	b := Generate(Params{Bars: 50, Seed: 2})
	same := true
	for i := range a {
		if a[i].Close != b[i].Close {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical series")
	}
}

func TestGenerateSkipsWeekends(t *testing.T) {
	bars := Generate(Params{Bars: 30, Seed: 7, Start: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)})
	for i, b := range bars {
		if wd := b.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("bar %d dated %v falls on a weekend", i, b.Date)
		}
		if i > 0 && !bars[i-1].Date.Before(b.Date) {
			t.Errorf("dates not ascending at bar %d", i)
		}
	}
}

func TestGenerateBarShape(t *testing.T) {
	bars := Generate(Params{Bars: 200, Seed: 11})
	for i, b := range bars {
		if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
			t.Errorf("bar %d violates low <= open,close <= high: %+v", i, b)
		}
		if b.Close <= 0 {
			t.Errorf("bar %d has non-positive close %v", i, b.Close)
		}
		if b.Volume < 50000 || b.Volume >= 500000 {
			t.Errorf("bar %d volume %d outside [50000, 500000)", i, b.Volume)
		}
	}
	if bars[0].Symbol != "SYNTH" {
		t.Errorf("default symbol = %q, want SYNTH", bars[0].Symbol)
	}
}

func TestGenerateEmpty(t *testing.T) {
	if bars := Generate(Params{Bars: 0}); bars != nil {
		t.Errorf("zero bars should return nil, got %d", len(bars))
	}
}
