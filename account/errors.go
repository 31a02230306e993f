package account

import "errors"

var (
	// ErrInvalidAddress indicates an address is not 20 bytes of hex.
	ErrInvalidAddress = errors.New("account: invalid address")

	// ErrZeroAddress indicates the all-zero address where a real one is required.
	ErrZeroAddress = errors.New("account: zero address")

	// ErrNilPublicKey indicates a nil public key.
	ErrNilPublicKey = errors.New("account: nil public key")
)
