// Package synth generates deterministic synthetic daily price series for
// strategy development and repeatable engine runs without market data.
package synth

import (
	"math"
	"math/rand"
	"time"

	"replay/internal/domain"
)

// Params controls the shape of a generated series. The same Params and Seed
// always produce the same bars.
type Params struct {
	Symbol    string
	Start     time.Time
	Bars      int
	BasePrice float64
	Seed      int64
}

// Regime segments split the series into an uptrend, a downtrend, and a mild
// recovery; the log-price trend interpolates linearly within each segment.
var regimes = []struct {
	frac  float64 // share of the series
	drift float64 // total log-return contributed over the segment
}{
	{0.4, 0.3},
	{0.3, -0.2},
	{0.3, 0.05},
}

// Generate produces a daily bar series: a piecewise-linear trend in log
// price, two sine cycles of different periods, and a random walk of Gaussian
// noise, exponentiated onto the base price. Dates skip weekends. Volumes are
// uniform in [50000, 500000).
func Generate(p Params) []domain.Bar {
	if p.Bars <= 0 {
		return nil
	}
	if p.BasePrice <= 0 {
		p.BasePrice = 100
	}
	if p.Symbol == "" {
		p.Symbol = "SYNTH"
	}
	if p.Start.IsZero() {
		p.Start = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	}
	rng := rand.New(rand.NewSource(p.Seed))

	trend := trendCurve(p.Bars)

	logPrice := make([]float64, p.Bars)
	walk := 0.0
	for i := 0; i < p.Bars; i++ {
		walk += rng.NormFloat64() * 0.01
		cycle := 0.1*math.Sin(2*math.Pi*float64(i)/50) + 0.05*math.Sin(2*math.Pi*float64(i)/20)
		logPrice[i] = trend[i] + cycle + walk
	}

	bars := make([]domain.Bar, p.Bars)
	date := p.Start
	for i := 0; i < p.Bars; i++ {
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}

		closePx := p.BasePrice * math.Exp(logPrice[i])
		openPx := closePx
		if i > 0 {
			openPx = p.BasePrice * math.Exp(logPrice[i-1])
		}
		spread := math.Abs(rng.NormFloat64()) * 0.005 * closePx
		high := math.Max(openPx, closePx) + spread
		low := math.Min(openPx, closePx) - spread

		bars[i] = domain.Bar{
			Symbol: p.Symbol,
			Date:   date,
			Open:   openPx,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: 50000 + rng.Int63n(450000),
		}
		date = date.AddDate(0, 0, 1)
	}
	return bars
}

// trendCurve lays the regime drifts end to end as a piecewise-linear curve
// over n points.
func trendCurve(n int) []float64 {
	curve := make([]float64, n)
	level := 0.0
	offset := 0
	for _, r := range regimes {
		length := int(math.Round(r.frac * float64(n)))
		if offset+length > n {
			length = n - offset
		}
		for i := 0; i < length; i++ {
			curve[offset+i] = level + r.drift*float64(i+1)/float64(length)
		}
		level += r.drift
		offset += length
	}
	// Rounding may leave a tail; hold the final level.
	for i := offset; i < n; i++ {
		curve[i] = level
	}
	return curve
}
