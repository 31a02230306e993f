package store

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("store: nil parameter")

	// ErrEntryNotFound indicates no registry entry at the requested index.
	ErrEntryNotFound = errors.New("store: registry entry not found")

	// ErrEventNotFound indicates no event with the requested id.
	ErrEventNotFound = errors.New("store: event not found")
)
