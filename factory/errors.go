package factory

import "errors"

var (
	// ErrUnknownRound indicates no round created by this factory at the address.
	ErrUnknownRound = errors.New("factory: unknown round")

	// ErrRelayFailed indicates a relayed call was rejected by the round.
	ErrRelayFailed = errors.New("factory: relay failed")

	// ErrNotLatest indicates Discard was called on a round other than the
	// most recently created one.
	ErrNotLatest = errors.New("factory: only the latest round can be discarded")
)
