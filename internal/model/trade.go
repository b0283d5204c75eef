package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Trade is one executed swap. AmountIn is currency on buys and tokens on sells.
type Trade struct {
	Asset       common.Address
	Participant common.Address
	AmountIn    uint256.Int
	AmountOut   uint256.Int
	IsBuy       bool
	Timestamp   uint64
	BlockHeight uint64
}

// CurrencyAmount returns the settlement-currency leg of the trade.
func (t Trade) CurrencyAmount() *uint256.Int {
	if t.IsBuy {
		return new(uint256.Int).Set(&t.AmountIn)
	}
	return new(uint256.Int).Set(&t.AmountOut)
}

// TradeRecord is the storage representation of a Trade.
type TradeRecord struct {
	Seq         uint64 `json:"seq"`
	Asset       string `json:"asset"`
	Participant string `json:"participant"`
	AmountIn    string `json:"amount_in"`
	AmountOut   string `json:"amount_out"`
	IsBuy       bool   `json:"is_buy"`
	Timestamp   uint64 `json:"timestamp"`
	BlockHeight uint64 `json:"block_height"`
}

// Record converts the trade at ledger position seq to its storage representation.
func (t Trade) Record(seq uint64) TradeRecord {
	return TradeRecord{
		Seq:         seq,
		Asset:       t.Asset.Hex(),
		Participant: t.Participant.Hex(),
		AmountIn:    t.AmountIn.Dec(),
		AmountOut:   t.AmountOut.Dec(),
		IsBuy:       t.IsBuy,
		Timestamp:   t.Timestamp,
		BlockHeight: t.BlockHeight,
	}
}
