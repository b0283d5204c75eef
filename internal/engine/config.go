package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"launchpad/internal/curve"
)

// Config is the admin-mutated protocol configuration the engine reads. The
// engine holds its own copy; it changes only through the owner setters.
type Config struct {
	Owner        common.Address
	FeeRecipient common.Address
	// FeeRate and GraduationFeeRate are basis points of curve.FeeDenominator.
	FeeRate               uint64
	GraduationFeeRate     uint64
	CreationFee           uint256.Int
	InitVirtualEthReserve uint256.Int
	Paused                bool
}

// DefaultConfig returns a 1% trade fee, 1% graduation fee, no creation fee and
// 30 units of initial virtual currency.
func DefaultConfig(owner, feeRecipient common.Address) Config {
	cfg := Config{
		Owner:             owner,
		FeeRecipient:      feeRecipient,
		FeeRate:           100,
		GraduationFeeRate: 100,
	}
	cfg.InitVirtualEthReserve.Mul(uint256.NewInt(30), curve.WAD)
	return cfg
}

// Validate checks the bounds the setters enforce.
func (c Config) Validate() error {
	if c.FeeRate > curve.MaxFeeRate {
		return fmt.Errorf("%w: fee rate %d above %d", ErrInvalidInput, c.FeeRate, curve.MaxFeeRate)
	}
	if c.GraduationFeeRate > curve.MaxFeeRate {
		return fmt.Errorf("%w: graduation fee rate %d above %d", ErrInvalidInput, c.GraduationFeeRate, curve.MaxFeeRate)
	}
	if c.InitVirtualEthReserve.IsZero() {
		return fmt.Errorf("%w: zero initial virtual currency reserve", ErrInvalidInput)
	}
	if c.Owner == (common.Address{}) {
		return fmt.Errorf("%w: zero owner", ErrInvalidInput)
	}
	return nil
}
