package model

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestTradeEventDataJSONStringFields(t *testing.T) {
	payload := TradeEventData{
		Asset:       "0x1111111111111111111111111111111111111111",
		Participant: "0x2222222222222222222222222222222222222222",
		IsBuy:       true,
		AmountIn:    "12345678901234567890",
		AmountOut:   "987654321987654321987654321",
		Fee:         "123456789012345678",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"amount_in", "amount_out", "fee"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}

func TestPoolRecordGraduationMarker(t *testing.T) {
	pool := Pool{
		Asset:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TokenReserve: *uint256.NewInt(42),
	}
	if pool.Graduated() {
		t.Fatalf("fresh pool should be trading")
	}
	rec := pool.Record()
	if rec.Headmaster != "" || rec.PoolID != "" || rec.TokenReserve != "42" {
		t.Fatalf("trading record mismatch: %+v", rec)
	}

	pool.Headmaster = common.HexToAddress("0x3333333333333333333333333333333333333333")
	pool.PoolID = common.HexToAddress("0x4444444444444444444444444444444444444444")
	if !pool.Graduated() {
		t.Fatalf("pool with headmaster should be graduated")
	}
	if pool.Record().PoolID != pool.PoolID.Hex() {
		t.Fatalf("graduated record missing pool id")
	}
}

func TestTradeCurrencyAmount(t *testing.T) {
	buy := Trade{IsBuy: true, AmountIn: *uint256.NewInt(10), AmountOut: *uint256.NewInt(500)}
	sell := Trade{IsBuy: false, AmountIn: *uint256.NewInt(500), AmountOut: *uint256.NewInt(9)}

	var v Volume
	v.Add(buy)
	v.Add(sell)
	if v.Buy.Uint64() != 10 || v.Sell.Uint64() != 9 || v.Total.Uint64() != 19 || v.Count != 2 {
		t.Fatalf("volume mismatch: buy=%s sell=%s total=%s count=%d", v.Buy.Dec(), v.Sell.Dec(), v.Total.Dec(), v.Count)
	}
}
