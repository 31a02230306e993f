package manager

import "errors"

var (
	// ErrUnknownIndex indicates a registry index with no round.
	ErrUnknownIndex = errors.New("manager: unknown round index")

	// ErrInsufficientBalance indicates the treasury cannot fund the allocation,
	// even after a top-up attempt.
	ErrInsufficientBalance = errors.New("manager: insufficient treasury balance")

	// ErrZeroAmount indicates a zero allocation.
	ErrZeroAmount = errors.New("manager: zero amount")

	// ErrNothingToWithdraw indicates an empty balance.
	ErrNothingToWithdraw = errors.New("manager: nothing to withdraw")

	// ErrNotContract indicates a token address with no deployed contract.
	ErrNotContract = errors.New("manager: not a deployed contract")

	// ErrSameToken indicates a token update to the current sale or payment token.
	ErrSameToken = errors.New("manager: token already in use")

	// ErrStoreNotEmpty indicates a registry store with entries from another
	// manager instance.
	ErrStoreNotEmpty = errors.New("manager: registry store is not empty")
)
