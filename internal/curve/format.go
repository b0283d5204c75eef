package curve

import (
	"math/big"

	"github.com/holiman/uint256"
)

// FormatUnits renders a base-unit amount with the given number of decimals.
func FormatUnits(value *uint256.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.Dec()
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(value.ToBig(), denom)
	return rat.FloatString(int(decimals))
}

// FormatWAD renders an 18-decimal fixed-point value.
func FormatWAD(value *uint256.Int) string {
	return FormatUnits(value, 18)
}
