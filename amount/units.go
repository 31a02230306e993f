package amount

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Format renders x with the given number of decimals, e.g.
// Format(1500000, 6) == "1.5".
func Format(x *big.Int, decimals int32) string {
	if x == nil {
		return "0"
	}
	return decimal.NewFromBigInt(x, -decimals).String()
}

// Parse converts a human decimal string into base units. Fractions finer
// than 10^-decimals and negative values are rejected.
func Parse(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidDecimal, s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidDecimal, s)
	}
	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidDecimal, s, decimals)
	}
	v := shifted.BigInt()
	if !Valid(v) {
		return nil, fmt.Errorf("%w: %q", ErrOverflow, s)
	}
	return v, nil
}

// TokensForPayment converts a payment amount into sale-token base units at
// salePrice (payment units per whole token, scaled by 10^PriceDecimals):
//
//	floor(payment * 10^SaleDecimals / (salePrice * 10^PriceDecimals)) * 10^PriceDecimals
func TokensForPayment(payment, salePrice *big.Int) (*big.Int, error) {
	scaledPrice, err := Mul(salePrice, Pow10(PriceDecimals))
	if err != nil {
		return nil, err
	}
	q, err := MulDiv(payment, Pow10(SaleDecimals), scaledPrice)
	if err != nil {
		return nil, err
	}
	return Mul(q, Pow10(PriceDecimals))
}
