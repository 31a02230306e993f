package vesting

import "errors"

var (
	// ErrInvalidSchedule indicates schedule parameters outside their domain.
	ErrInvalidSchedule = errors.New("vesting: invalid schedule")

	// ErrClaimedExceedsPurchase indicates a ledger where claimed > purchased.
	ErrClaimedExceedsPurchase = errors.New("vesting: claimed exceeds purchase")

	// ErrBeforeStart indicates the clock is before the claim window start.
	ErrBeforeStart = errors.New("vesting: before claim window start")
)
