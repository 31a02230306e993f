// Package amount implements the unsigned 256-bit fixed-point arithmetic used
// for token accounting. Every operation rejects results outside
// [0, 2^256-1] instead of wrapping, and every division truncates toward zero.
package amount

import (
	"fmt"
	"math/big"
)

const (
	// SaleDecimals is the number of decimals of the sale token.
	SaleDecimals = 18

	// PaymentDecimals is the number of decimals of the payment token.
	PaymentDecimals = 6

	// PriceDecimals is the fixed-point scale of a sale price
	// (payment units per whole sale token).
	PriceDecimals = 6
)

// MaxUint256 is the largest representable amount.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Zero returns a fresh zero amount.
func Zero() *big.Int { return new(big.Int) }

// New returns v as an amount.
func New(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// Pow10 returns 10^n.
func Pow10(n uint) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Units returns whole * 10^decimals.
func Units(whole uint64, decimals uint) *big.Int {
	return new(big.Int).Mul(New(whole), Pow10(decimals))
}

// Copy returns a copy of x; nil is treated as zero.
func Copy(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

// Valid reports whether x is a non-nil value in [0, MaxUint256].
func Valid(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.Cmp(MaxUint256) <= 0
}

// IsZero reports whether x is nil or zero.
func IsZero(x *big.Int) bool {
	return x == nil || x.Sign() == 0
}

func check(op string, operands ...*big.Int) error {
	for _, x := range operands {
		if !Valid(x) {
			return fmt.Errorf("%w: %s operand %v", ErrInvalidAmount, op, x)
		}
	}
	return nil
}

// Add returns a + b.
func Add(a, b *big.Int) (*big.Int, error) {
	if err := check("add", a, b); err != nil {
		return nil, err
	}
	r := new(big.Int).Add(a, b)
	if r.Cmp(MaxUint256) > 0 {
		return nil, fmt.Errorf("%w: %v + %v", ErrOverflow, a, b)
	}
	return r, nil
}

// Sub returns a - b.
func Sub(a, b *big.Int) (*big.Int, error) {
	if err := check("sub", a, b); err != nil {
		return nil, err
	}
	if a.Cmp(b) < 0 {
		return nil, fmt.Errorf("%w: %v - %v", ErrUnderflow, a, b)
	}
	return new(big.Int).Sub(a, b), nil
}

// Mul returns a * b.
func Mul(a, b *big.Int) (*big.Int, error) {
	if err := check("mul", a, b); err != nil {
		return nil, err
	}
	r := new(big.Int).Mul(a, b)
	if r.Cmp(MaxUint256) > 0 {
		return nil, fmt.Errorf("%w: %v * %v", ErrOverflow, a, b)
	}
	return r, nil
}

// DivFloor returns floor(a / b).
func DivFloor(a, b *big.Int) (*big.Int, error) {
	if err := check("div", a, b); err != nil {
		return nil, err
	}
	if b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	return new(big.Int).Quo(a, b), nil
}

// MulDiv returns floor(a * b / d), rejecting an overflowing product.
func MulDiv(a, b, d *big.Int) (*big.Int, error) {
	p, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return DivFloor(p, d)
}

// Min returns the smaller of a and b.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
