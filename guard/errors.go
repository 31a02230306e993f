package guard

import "errors"

var (
	// ErrNotOwner indicates the caller is not the owner.
	ErrNotOwner = errors.New("guard: caller is not the owner")

	// ErrPaused indicates the operation is blocked while paused.
	ErrPaused = errors.New("guard: paused")

	// ErrNotPaused indicates the operation requires the paused state.
	ErrNotPaused = errors.New("guard: not paused")

	// ErrReentrantCall indicates a guarded call was entered while another
	// guarded call on the same instance was still running.
	ErrReentrantCall = errors.New("guard: reentrant call")
)
