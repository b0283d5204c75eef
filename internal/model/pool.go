package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pool is the bonding-curve state of one asset. Reserves are in base units,
// LastPrice is WAD-scaled currency per token.
type Pool struct {
	Asset               common.Address
	Creator             common.Address
	TokenReserve        uint256.Int
	VirtualTokenReserve uint256.Int
	EthReserve          uint256.Int
	VirtualEthReserve   uint256.Int
	LastPrice           uint256.Int
	LastMcapInEth       uint256.Int
	LastTimestamp       uint64
	LastBlock           uint64
	// Headmaster and PoolID are zero while trading and set once at graduation.
	Headmaster common.Address
	PoolID     common.Address
}

// Graduated reports whether the pool has migrated to an external venue.
func (p Pool) Graduated() bool {
	return p.Headmaster != (common.Address{})
}

// PoolRecord is the storage representation of a Pool.
type PoolRecord struct {
	Asset               string `json:"asset"`
	Creator             string `json:"creator"`
	TokenReserve        string `json:"token_reserve"`
	VirtualTokenReserve string `json:"virtual_token_reserve"`
	EthReserve          string `json:"eth_reserve"`
	VirtualEthReserve   string `json:"virtual_eth_reserve"`
	LastPrice           string `json:"last_price"`
	LastMcapInEth       string `json:"last_mcap_in_eth"`
	LastTimestamp       uint64 `json:"last_timestamp"`
	LastBlock           uint64 `json:"last_block"`
	Headmaster          string `json:"headmaster,omitempty"`
	PoolID              string `json:"pool_id,omitempty"`
}

// Record converts the pool to its storage representation.
func (p Pool) Record() PoolRecord {
	rec := PoolRecord{
		Asset:               p.Asset.Hex(),
		Creator:             p.Creator.Hex(),
		TokenReserve:        p.TokenReserve.Dec(),
		VirtualTokenReserve: p.VirtualTokenReserve.Dec(),
		EthReserve:          p.EthReserve.Dec(),
		VirtualEthReserve:   p.VirtualEthReserve.Dec(),
		LastPrice:           p.LastPrice.Dec(),
		LastMcapInEth:       p.LastMcapInEth.Dec(),
		LastTimestamp:       p.LastTimestamp,
		LastBlock:           p.LastBlock,
	}
	if p.Graduated() {
		rec.Headmaster = p.Headmaster.Hex()
		rec.PoolID = p.PoolID.Hex()
	}
	return rec
}
