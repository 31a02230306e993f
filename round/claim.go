package round

import (
	"fmt"
	"math/big"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/amount"
	"github.com/bitfsorg/libsale-go/event"
	"github.com/bitfsorg/libsale-go/vesting"
)

// TriggerClaimPeriod opens the claim window now; it runs for ClaimDuration.
func (r *Round) TriggerClaimPeriod(msg Msg) error {
	r.mu.Lock()
	if err := r.onlyOperator(msg.Sender); err != nil {
		r.mu.Unlock()
		return err
	}
	if !r.finalized {
		r.mu.Unlock()
		return ErrNotFinalized
	}
	if r.claimTriggered {
		r.mu.Unlock()
		return ErrClaimAlreadyTriggered
	}
	end, err := addTime(msg.Time, r.params.ClaimDuration)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.claimTriggered = true
	r.claimWindowStart = msg.Time
	r.claimWindowEnd = end
	r.mu.Unlock()

	r.events.Emit(event.New(event.ClaimPeriodTriggered, r.addr, msg.Time).
		With("claimWindowStart", fmt.Sprint(msg.Time)).
		With("claimWindowEnd", fmt.Sprint(end)))
	return nil
}

// PendingClaim returns what addr could claim at now, and whether the TGE
// portion is included. It is zero while the claim period is not active.
func (r *Round) PendingClaim(addr account.Address, now uint64) (*big.Int, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.claimTriggered || !r.finalized || now < r.claimWindowStart {
		return amount.Zero(), false, nil
	}
	pos, ok := r.positions[addr]
	if !ok {
		return amount.Zero(), false, nil
	}
	return r.pendingLocked(pos, now)
}

// pendingLocked must be called with r.mu held.
func (r *Round) pendingLocked(pos *Position, now uint64) (*big.Int, bool, error) {
	v, isTGE, err := vesting.Pending(pos.Purchased, pos.Claimed, pos.TGEClaimed, r.schedule(), now)
	if err != nil {
		return nil, false, err
	}
	// Never release past the purchase.
	owed := new(big.Int).Sub(pos.Purchased, pos.Claimed)
	return amount.Min(v, owed), isTGE, nil
}

// Claim transfers the caller's currently vested tokens and returns the
// amount released.
func (r *Round) Claim(msg Msg) (*big.Int, error) {
	release, err := r.lock.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	claimer := msg.Sender

	r.mu.Lock()
	v, isTGE, pos, err := r.checkClaim(msg)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	prev := *pos
	prevTotal := r.totalClaimed
	pos.Claimed = new(big.Int).Add(pos.Claimed, v)
	if isTGE {
		pos.TGEClaimed = true
	}
	pos.LastClaim = msg.Time
	r.totalClaimed = new(big.Int).Add(r.totalClaimed, v)
	saleToken := r.saleToken
	r.mu.Unlock()

	if err := saleToken.Transfer(r.addr, claimer, v); err != nil {
		r.mu.Lock()
		*pos = prev
		r.totalClaimed = prevTotal
		r.mu.Unlock()
		return nil, fmt.Errorf("round: transfer claim to %s: %w", claimer, err)
	}

	r.events.Emit(event.New(event.TokensClaimed, r.addr, msg.Time).
		WithAddr("claimer", claimer).
		WithAmount("amount", v).
		With("tge", fmt.Sprint(isTGE)))
	return v, nil
}

// checkClaim validates a claim and computes its amount; must be called with
// r.mu held.
func (r *Round) checkClaim(msg Msg) (*big.Int, bool, *Position, error) {
	if !r.initialized {
		return nil, false, nil, ErrNotInitialized
	}
	if !r.claimTriggered {
		return nil, false, nil, ErrClaimNotTriggered
	}
	if !r.finalized {
		return nil, false, nil, ErrNotFinalized
	}
	if msg.Time < r.claimWindowStart {
		return nil, false, nil, fmt.Errorf("%w: now=%d start=%d", ErrClaimNotStarted, msg.Time, r.claimWindowStart)
	}
	if err := r.pause.WhenNotPaused(); err != nil {
		return nil, false, nil, err
	}
	pos, ok := r.positions[msg.Sender]
	if !ok {
		return nil, false, nil, fmt.Errorf("%w: %s has no purchase", ErrNothingToClaim, msg.Sender)
	}
	v, isTGE, err := r.pendingLocked(pos, msg.Time)
	if err != nil {
		return nil, false, nil, err
	}
	if v.Sign() == 0 {
		return nil, false, nil, ErrNothingToClaim
	}
	if v.Cmp(r.minClaim) < 0 {
		return nil, false, nil, fmt.Errorf("%w: pending %v, minimum %v", ErrBelowMinClaim, v, r.minClaim)
	}
	if bal := r.saleToken.BalanceOf(r.addr); v.Cmp(bal) > 0 {
		return nil, false, nil, fmt.Errorf("%w: requested %v, available %v", ErrInsufficientBalance, v, bal)
	}
	return v, isTGE, pos, nil
}
