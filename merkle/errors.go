package merkle

import "errors"

var (
	// ErrEmptyTree indicates a tree was requested over zero leaves.
	ErrEmptyTree = errors.New("merkle: no leaves")

	// ErrLeafIndexOutOfRange indicates a proof was requested for a missing leaf.
	ErrLeafIndexOutOfRange = errors.New("merkle: leaf index out of range")

	// ErrLeafNotFound indicates the account is not part of the tree.
	ErrLeafNotFound = errors.New("merkle: leaf not found")
)
