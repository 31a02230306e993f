package token

import "errors"

var (
	// ErrInsufficientBalance indicates the holder's balance is below the transfer amount.
	ErrInsufficientBalance = errors.New("token: insufficient balance")

	// ErrInsufficientAllowance indicates the spender's allowance is below the transfer amount.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")

	// ErrTransferFailed indicates the token rejected the transfer.
	ErrTransferFailed = errors.New("token: transfer failed")

	// ErrUnknownToken indicates no token contract is deployed at the address.
	ErrUnknownToken = errors.New("token: unknown token contract")

	// ErrDuplicateToken indicates a token is already registered at the address.
	ErrDuplicateToken = errors.New("token: token already registered")
)
