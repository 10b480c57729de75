package backtest

import "time"

// PairedTrade is a round trip derived purely from the signal series, priced
// at the signal bar's close. It is a signal-quality view and deliberately
// ignores position sizing and cash.
type PairedTrade struct {
	BuyDate   time.Time
	SellDate  time.Time
	BuyPrice  float64
	SellPrice float64
	PnL       float64
	PnLPct    float64
}

// PairTrades matches each +1 signal with the next -1 signal. While a buy is
// pending, further +1 signals are ignored: the first signal wins. A -1 with
// no pending buy is ignored, and a pending buy with no later -1 never
// becomes a trade. Pairs never overlap.
//
// PnL assumes one share; PnLPct is the percentage move from buy to sell.
func PairTrades(dates []time.Time, prices []float64, signals []int64) []PairedTrade {
	var pairs []PairedTrade
	pendingBuy := -1

	for i, sig := range signals {
		switch {
		case sig > 0:
			if pendingBuy < 0 {
				pendingBuy = i
			}
		case sig < 0:
			if pendingBuy < 0 {
				continue
			}
			buyPx := prices[pendingBuy]
			sellPx := prices[i]
			pt := PairedTrade{
				BuyDate:   dates[pendingBuy],
				SellDate:  dates[i],
				BuyPrice:  buyPx,
				SellPrice: sellPx,
				PnL:       sellPx - buyPx,
			}
			if buyPx != 0 {
				pt.PnLPct = (sellPx/buyPx - 1) * 100
			}
			pairs = append(pairs, pt)
			pendingBuy = -1
		}
	}
	return pairs
}
