package curve

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrEmptyReserve is returned when a quote is requested against a drained curve.
var ErrEmptyReserve = errors.New("curve reserve is empty")

// Reserves is the slice of pool state the curve reads.
type Reserves struct {
	TokenReserve        uint256.Int
	EthReserve          uint256.Int
	VirtualTokenReserve uint256.Int
	VirtualEthReserve   uint256.Int
}

// BuyQuote is the outcome of spending currency on the curve.
type BuyQuote struct {
	Fee             uint256.Int
	NetIn           uint256.Int
	RawAmountOut    uint256.Int
	AmountOut       uint256.Int
	Capped          bool
	NewVirtualEth   uint256.Int
	NewVirtualToken uint256.Int
}

// SellQuote is the outcome of selling tokens into the curve.
type SellQuote struct {
	RawAmountOut    uint256.Int
	Fee             uint256.Int
	AmountOut       uint256.Int
	NewVirtualEth   uint256.Int
	NewVirtualToken uint256.Int
}

// QuoteBuy prices amountIn of currency. The fee is taken from the input before
// it reaches the curve. When the raw output exceeds the real token reserve the
// output is capped, but the virtual reserves still advance by the uncapped
// amounts.
func QuoteBuy(r Reserves, k *uint256.Int, amountIn *uint256.Int, feeRate uint64) (BuyQuote, error) {
	var q BuyQuote

	fee, err := Fee(amountIn, feeRate)
	if err != nil {
		return q, err
	}
	q.Fee = *fee
	q.NetIn.Sub(amountIn, fee)

	if _, overflow := q.NewVirtualEth.AddOverflow(&r.VirtualEthReserve, &q.NetIn); overflow {
		return q, ErrOverflow
	}
	if q.NewVirtualEth.IsZero() {
		return q, ErrEmptyReserve
	}
	q.NewVirtualToken.Div(k, &q.NewVirtualEth)

	if _, underflow := q.RawAmountOut.SubOverflow(&r.VirtualTokenReserve, &q.NewVirtualToken); underflow {
		return q, ErrOverflow
	}
	q.AmountOut = q.RawAmountOut
	if q.RawAmountOut.Gt(&r.TokenReserve) {
		q.AmountOut = r.TokenReserve
		q.Capped = true
	}
	return q, nil
}

// QuoteSell prices amountIn of tokens. The fee is taken from the raw curve output.
func QuoteSell(r Reserves, k *uint256.Int, amountIn *uint256.Int, feeRate uint64) (SellQuote, error) {
	var q SellQuote

	if _, overflow := q.NewVirtualToken.AddOverflow(&r.VirtualTokenReserve, amountIn); overflow {
		return q, ErrOverflow
	}
	if q.NewVirtualToken.IsZero() {
		return q, ErrEmptyReserve
	}
	q.NewVirtualEth.Div(k, &q.NewVirtualToken)

	if _, underflow := q.RawAmountOut.SubOverflow(&r.VirtualEthReserve, &q.NewVirtualEth); underflow {
		return q, ErrOverflow
	}
	if q.RawAmountOut.Gt(&r.EthReserve) {
		return q, ErrOverflow
	}

	fee, err := Fee(&q.RawAmountOut, feeRate)
	if err != nil {
		return q, err
	}
	q.Fee = *fee
	q.AmountOut.Sub(&q.RawAmountOut, fee)
	return q, nil
}

// ReservesAt returns the reserves of a fresh pool once ethReserve of net
// currency has been bought into it.
func (p Params) ReservesAt(k, initVirtualEth, ethReserve *uint256.Int) (Reserves, error) {
	var r Reserves
	if _, overflow := r.VirtualEthReserve.AddOverflow(initVirtualEth, ethReserve); overflow {
		return r, ErrOverflow
	}
	if r.VirtualEthReserve.IsZero() {
		return r, ErrEmptyReserve
	}
	r.VirtualTokenReserve.Div(k, &r.VirtualEthReserve)
	sold, underflow := new(uint256.Int).SubOverflow(&p.InitVirtualTokenReserve, &r.VirtualTokenReserve)
	if underflow {
		return r, ErrOverflow
	}
	if sold.Gt(&p.InitRealTokenReserve) {
		return r, ErrEmptyReserve
	}
	r.TokenReserve.Sub(&p.InitRealTokenReserve, sold)
	r.EthReserve = *ethReserve
	return r, nil
}
