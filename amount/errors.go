package amount

import "errors"

var (
	// ErrOverflow indicates a result does not fit in 256 unsigned bits.
	ErrOverflow = errors.New("amount: arithmetic overflow")

	// ErrUnderflow indicates a subtraction would go below zero.
	ErrUnderflow = errors.New("amount: arithmetic underflow")

	// ErrDivisionByZero indicates a zero divisor.
	ErrDivisionByZero = errors.New("amount: division by zero")

	// ErrInvalidAmount indicates a nil, negative or oversized value.
	ErrInvalidAmount = errors.New("amount: invalid amount")

	// ErrInvalidDecimal indicates a decimal string that cannot be represented
	// in the requested number of token decimals.
	ErrInvalidDecimal = errors.New("amount: invalid decimal string")
)
