// Package domain defines the core data types shared across the replay
// engine: price bars and the constants describing markets and trade sides.
package domain

import (
	"sort"
	"time"
)

// Market identifies the exchange calendar a price series belongs to.
type Market string

const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// Side is the direction of an executed transaction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Bar is one daily OHLCV observation. Date is a calendar date (midnight UTC
// for daily data), ascending and unique within a symbol's series. The engine
// assumes low <= open,close <= high but does not enforce it; malformed input
// passes through unchanged.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// SortBars orders bars ascending by date in place. The portfolio simulator's
// next-bar execution is undefined over unordered bars, so every loader sorts
// before handing a series to the engine.
func SortBars(bars []Bar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}
