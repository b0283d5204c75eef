package model

import "github.com/holiman/uint256"

// LedgerStats holds running protocol totals. Every field only grows.
type LedgerStats struct {
	TotalVolume                uint256.Int
	TotalLiquidityBootstrapped uint256.Int
	TotalAssetsCreated         uint64
	TotalAssetsGraduated       uint64
	TotalTrades                uint64
}

// Volume is currency volume folded over a set of trades.
type Volume struct {
	Buy   uint256.Int
	Sell  uint256.Int
	Total uint256.Int
	Count uint64
}

// Add folds one trade into the volume.
func (v *Volume) Add(t Trade) {
	amount := t.CurrencyAmount()
	if t.IsBuy {
		v.Buy.Add(&v.Buy, amount)
	} else {
		v.Sell.Add(&v.Sell, amount)
	}
	v.Total.Add(&v.Total, amount)
	v.Count++
}
