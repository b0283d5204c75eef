package curve

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// FeeDenominator is the basis-point scale for every fee rate.
	FeeDenominator = 10_000
	// MaxFeeRate caps trade and graduation fee rates.
	MaxFeeRate = 1_000
)

var (
	// WAD is the 18-decimal fixed-point scale used for prices.
	WAD = uint256.NewInt(1_000_000_000_000_000_000)

	// ErrOverflow is returned when a curve computation leaves the uint256 domain.
	ErrOverflow = errors.New("curve arithmetic overflow")
	// ErrInvalidParams is returned when curve constants are inconsistent.
	ErrInvalidParams = errors.New("invalid curve params")
)

// Params holds the protocol-wide curve constants.
type Params struct {
	TotalSupply             uint256.Int
	InitVirtualTokenReserve uint256.Int
	InitRealTokenReserve    uint256.Int
}

// DefaultParams returns the production supply split (1B supply, 793.1M on the curve).
func DefaultParams() Params {
	return Params{
		TotalSupply:             *ether(1_000_000_000),
		InitVirtualTokenReserve: *ether(1_073_000_000),
		InitRealTokenReserve:    *ether(793_100_000),
	}
}

// Validate checks the ordering the threshold math depends on.
func (p Params) Validate() error {
	if p.TotalSupply.IsZero() || p.InitVirtualTokenReserve.IsZero() || p.InitRealTokenReserve.IsZero() {
		return fmt.Errorf("%w: zero constant", ErrInvalidParams)
	}
	if !p.InitRealTokenReserve.Lt(&p.InitVirtualTokenReserve) {
		return fmt.Errorf("%w: real token reserve must be below virtual token reserve", ErrInvalidParams)
	}
	if p.TotalSupply.Lt(&p.InitRealTokenReserve) {
		return fmt.Errorf("%w: total supply below real token reserve", ErrInvalidParams)
	}
	return nil
}

// MigrationTokenAmount is the supply share that never enters the curve and is
// handed to the migrator at graduation.
func (p Params) MigrationTokenAmount() *uint256.Int {
	return new(uint256.Int).Sub(&p.TotalSupply, &p.InitRealTokenReserve)
}

// K returns InitVirtualTokenReserve * initVirtualEth.
func (p Params) K(initVirtualEth *uint256.Int) (*uint256.Int, error) {
	k, overflow := new(uint256.Int).MulOverflow(&p.InitVirtualTokenReserve, initVirtualEth)
	if overflow {
		return nil, ErrOverflow
	}
	return k, nil
}

// GraduationThreshold returns K / (InitVirtualTokenReserve - InitRealTokenReserve) - initVirtualEth.
func (p Params) GraduationThreshold(k, initVirtualEth *uint256.Int) (*uint256.Int, error) {
	released := new(uint256.Int).Sub(&p.InitVirtualTokenReserve, &p.InitRealTokenReserve)
	if released.IsZero() {
		return nil, ErrInvalidParams
	}
	target := new(uint256.Int).Div(k, released)
	threshold, underflow := new(uint256.Int).SubOverflow(target, initVirtualEth)
	if underflow {
		return nil, ErrOverflow
	}
	return threshold, nil
}

// Fee returns amount * rate / FeeDenominator.
func Fee(amount *uint256.Int, rate uint64) (*uint256.Int, error) {
	fee, overflow := new(uint256.Int).MulOverflow(amount, uint256.NewInt(rate))
	if overflow {
		return nil, ErrOverflow
	}
	return fee.Div(fee, uint256.NewInt(FeeDenominator)), nil
}

// Price returns virtualEth * WAD / virtualToken.
func Price(virtualEth, virtualToken *uint256.Int) (*uint256.Int, error) {
	if virtualToken.IsZero() {
		return new(uint256.Int), nil
	}
	scaled, overflow := new(uint256.Int).MulOverflow(virtualEth, WAD)
	if overflow {
		return nil, ErrOverflow
	}
	return scaled.Div(scaled, virtualToken), nil
}

// MarketCap returns supply * price / WAD.
func MarketCap(supply, price *uint256.Int) (*uint256.Int, error) {
	mcap, overflow := new(uint256.Int).MulOverflow(supply, price)
	if overflow {
		return nil, ErrOverflow
	}
	return mcap.Div(mcap, WAD), nil
}

func ether(units uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(units), WAD)
}
