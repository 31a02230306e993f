// Package guard provides the capability modules shared by sale rounds, the
// round factory and the round manager: single-owner authorization, a pause
// flag and a non-blocking reentrancy lock. Each is a small value embedded by
// the component that needs it.
package guard

import (
	"fmt"
	"sync"

	"github.com/bitfsorg/libsale-go/account"
)

// Ownable restricts privileged calls to a single owner address.
type Ownable struct {
	mu    sync.RWMutex
	owner account.Address
}

// NewOwnable returns an Ownable held by owner.
func NewOwnable(owner account.Address) *Ownable {
	return &Ownable{owner: owner}
}

// Owner returns the current owner.
func (o *Ownable) Owner() account.Address {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.owner
}

// OnlyOwner returns ErrNotOwner unless caller is the owner.
func (o *Ownable) OnlyOwner(caller account.Address) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if caller != o.owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	return nil
}

// TransferOwnership hands ownership to next. Only the owner may call it.
func (o *Ownable) TransferOwnership(caller, next account.Address) error {
	if err := account.Require("new owner", next); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if caller != o.owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	o.owner = next
	return nil
}

// Pausable is a pause flag with state-checked transitions.
type Pausable struct {
	mu     sync.RWMutex
	paused bool
}

// Paused reports the current flag.
func (p *Pausable) Paused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// WhenNotPaused returns ErrPaused while paused.
func (p *Pausable) WhenNotPaused() error {
	if p.Paused() {
		return ErrPaused
	}
	return nil
}

// WhenPaused returns ErrNotPaused unless paused.
func (p *Pausable) WhenPaused() error {
	if !p.Paused() {
		return ErrNotPaused
	}
	return nil
}

// Pause sets the flag; it fails if already paused.
func (p *Pausable) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return ErrPaused
	}
	p.paused = true
	return nil
}

// Unpause clears the flag; it fails if not paused.
func (p *Pausable) Unpause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return ErrNotPaused
	}
	p.paused = false
	return nil
}

// ReentrancyLock is held for the duration of a fund-moving call. It never
// blocks: a second Enter while held fails with ErrReentrantCall, whether
// the second caller is a token callback on the same goroutine or another
// goroutine racing the first.
type ReentrancyLock struct {
	mu sync.Mutex
}

// Enter acquires the lock and returns its release function.
func (l *ReentrancyLock) Enter() (func(), error) {
	if !l.mu.TryLock() {
		return nil, ErrReentrantCall
	}
	return l.mu.Unlock, nil
}

// Held reports whether a guarded call is in progress.
func (l *ReentrancyLock) Held() bool {
	if l.mu.TryLock() {
		l.mu.Unlock()
		return false
	}
	return true
}
