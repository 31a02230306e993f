// Package vesting computes how much of a purchase an account may claim at a
// point in time: an upfront TGE percentage at the start of the claim window,
// then equal installments of the remainder, and everything outstanding once
// the window ends.
package vesting

import (
	"fmt"
	"math/big"

	"github.com/bitfsorg/libsale-go/amount"
)

// MaxTGEPercent is the upper bound of Schedule.TGEPercent.
const MaxTGEPercent = 100

var hundred = big.NewInt(100)

// Schedule holds the round-level vesting parameters.
type Schedule struct {
	TGEPercent   uint64 // released at Start, 0..100
	Installments uint64 // number of post-TGE slices, >= 1
	Interval     uint64 // seconds per installment, > 0
	Start        uint64 // claim window start (unix seconds)
	End          uint64 // claim window end (unix seconds)
}

// NewSchedule derives Interval = duration / installments.
func NewSchedule(tgePercent, installments, start, duration uint64) Schedule {
	s := Schedule{
		TGEPercent:   tgePercent,
		Installments: installments,
		Start:        start,
		End:          start + duration,
	}
	if installments > 0 {
		s.Interval = duration / installments
	}
	return s
}

// Validate checks the parameter domain.
func (s Schedule) Validate() error {
	if s.Installments == 0 {
		return fmt.Errorf("%w: installments must be >= 1", ErrInvalidSchedule)
	}
	if s.TGEPercent > MaxTGEPercent {
		return fmt.Errorf("%w: tge %d%% exceeds 100%%", ErrInvalidSchedule, s.TGEPercent)
	}
	if s.Interval == 0 {
		return fmt.Errorf("%w: installment interval is zero", ErrInvalidSchedule)
	}
	if s.End < s.Start {
		return fmt.Errorf("%w: window ends before it starts", ErrInvalidSchedule)
	}
	return nil
}

// Pending returns the amount claimable now and whether the TGE portion is
// part of it.
//
// Once any amount has been claimed, a mid-window call releases at most one
// installment (plus any unclaimed TGE portion) however many installments
// have elapsed since the previous claim; the rest becomes claimable on
// later calls or in full at End.
//
// The caller must already have checked that the claim period is active.
func Pending(purchase, claimed *big.Int, tgeClaimed bool, s Schedule, now uint64) (*big.Int, bool, error) {
	if err := s.Validate(); err != nil {
		return nil, false, err
	}
	if !amount.Valid(purchase) || !amount.Valid(claimed) {
		return nil, false, amount.ErrInvalidAmount
	}
	if claimed.Cmp(purchase) > 0 {
		return nil, false, fmt.Errorf("%w: claimed %v, purchased %v", ErrClaimedExceedsPurchase, claimed, purchase)
	}

	if purchase.Cmp(claimed) == 0 {
		return amount.Zero(), true, nil
	}

	if now >= s.End {
		return new(big.Int).Sub(purchase, claimed), !tgeClaimed, nil
	}

	if now < s.Start {
		return nil, false, fmt.Errorf("%w: now=%d start=%d", ErrBeforeStart, now, s.Start)
	}

	tge := new(big.Int).SetUint64(s.TGEPercent)
	initial := amount.Zero()
	if !tgeClaimed {
		v, err := amount.MulDiv(purchase, tge, hundred)
		if err != nil {
			return nil, false, err
		}
		initial = v
	}
	isTGE := !tgeClaimed

	elapsed := (now - s.Start) / s.Interval
	if elapsed == 0 && !tgeClaimed {
		return initial, true, nil
	}

	remainder, err := amount.MulDiv(purchase, new(big.Int).Sub(hundred, tge), hundred)
	if err != nil {
		return nil, false, err
	}
	perInstallment, err := amount.DivFloor(remainder, new(big.Int).SetUint64(s.Installments))
	if err != nil {
		return nil, false, err
	}
	vested, err := amount.Mul(perInstallment, new(big.Int).SetUint64(elapsed))
	if err != nil {
		return nil, false, err
	}
	totalClaimable, err := amount.Add(vested, initial)
	if err != nil {
		return nil, false, err
	}

	if claimed.Sign() == 0 {
		return totalClaimable, isTGE, nil
	}
	if totalClaimable.Cmp(claimed) > 0 {
		capped, err := amount.Add(perInstallment, initial)
		if err != nil {
			return nil, false, err
		}
		return capped, isTGE, nil
	}
	return amount.Zero(), isTGE, nil
}
