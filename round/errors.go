package round

import "errors"

var (
	// ErrInvalidParams indicates round parameters outside their domain.
	ErrInvalidParams = errors.New("round: invalid parameters")

	// ErrNotContract indicates a token address with no deployed contract.
	ErrNotContract = errors.New("round: not a deployed contract")

	// ErrUnknownKind indicates a round kind with no template.
	ErrUnknownKind = errors.New("round: unknown round kind")

	// ErrNotInitialized indicates the round has not been initialized.
	ErrNotInitialized = errors.New("round: not initialized")

	// ErrAlreadyInitialized indicates a second initialization attempt.
	ErrAlreadyInitialized = errors.New("round: already initialized")

	// ErrNotOperator indicates the caller is not the round operator.
	ErrNotOperator = errors.New("round: caller is not the operator")

	// ErrZeroAmount indicates a zero amount where a positive one is required.
	ErrZeroAmount = errors.New("round: zero amount")

	// ErrAmountOutOfBounds indicates a purchase outside [minBuy, maxBuy].
	ErrAmountOutOfBounds = errors.New("round: amount outside purchase bounds")

	// ErrPurchaseWindowClosed indicates a purchase at or after the window end.
	ErrPurchaseWindowClosed = errors.New("round: purchase window closed")

	// ErrAlreadyFinalized indicates the sale has already been finalized.
	ErrAlreadyFinalized = errors.New("round: already finalized")

	// ErrNotFinalized indicates the operation requires a finalized sale.
	ErrNotFinalized = errors.New("round: sale not finalized")

	// ErrClaimAlreadyTriggered indicates the claim period was already triggered.
	ErrClaimAlreadyTriggered = errors.New("round: claim period already triggered")

	// ErrClaimNotTriggered indicates the claim period has not been triggered.
	ErrClaimNotTriggered = errors.New("round: claim period not triggered")

	// ErrClaimNotStarted indicates the claim window has not started yet.
	ErrClaimNotStarted = errors.New("round: claim window not started")

	// ErrNotWhitelisted indicates a whitelist proof that does not verify.
	ErrNotWhitelisted = errors.New("round: account not whitelisted")

	// ErrInsufficientAllowance indicates the buyer approved less than the payment.
	ErrInsufficientAllowance = errors.New("round: insufficient payment allowance")

	// ErrInsufficientInventory indicates fewer unsold tokens than requested.
	ErrInsufficientInventory = errors.New("round: insufficient unsold tokens")

	// ErrInsufficientBalance indicates the round holds fewer tokens than the claim.
	ErrInsufficientBalance = errors.New("round: insufficient token balance")

	// ErrNothingToClaim indicates a zero pending amount.
	ErrNothingToClaim = errors.New("round: nothing to claim")

	// ErrBelowMinClaim indicates a pending amount under the minimum claim.
	ErrBelowMinClaim = errors.New("round: pending amount below minimum claim")
)
