package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AssetInfo is the metadata listing entry of a created asset.
type AssetInfo struct {
	Asset       common.Address
	Name        string
	Symbol      string
	Description string
	Creator     common.Address
	Timestamp   uint64
	BlockHeight uint64
}

// GraduationRecord captures the liquidity migrated for an asset.
type GraduationRecord struct {
	Asset          common.Address
	CurrencyAmount uint256.Int
	TokenAmount    uint256.Int
	Headmaster     common.Address
	PoolID         common.Address
	Timestamp      uint64
	BlockHeight    uint64
}

// MigrationResult is what a migration strategy reports after depositing liquidity.
type MigrationResult struct {
	PoolID         common.Address
	TokenAmount    uint256.Int
	CurrencyAmount uint256.Int
}
