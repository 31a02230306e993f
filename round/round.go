// Package round implements a sale round: a purchase window priced at a fixed
// rate, followed by finalization and a vested claim period.
package round

import (
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/amount"
	"github.com/bitfsorg/libsale-go/event"
	"github.com/bitfsorg/libsale-go/guard"
	"github.com/bitfsorg/libsale-go/token"
	"github.com/bitfsorg/libsale-go/vesting"
)

// Round is one sale instance. Fund-moving calls (BuyTokens, FinalizeSale,
// Claim) hold the instance's reentrancy lock for their whole duration and
// apply ledger effects before calling out to a token.
type Round struct {
	addr   account.Address
	logic  Logic
	tokens token.Registry
	events event.Sink

	lock  guard.ReentrancyLock
	pause guard.Pausable

	mu          sync.RWMutex
	initialized bool
	operator    *guard.Ownable
	params      Params

	saleToken    token.Token
	paymentToken token.Token

	purchaseWindowEnd   uint64
	claimWindowStart    uint64
	claimWindowEnd      uint64
	installmentInterval uint64

	minClaim       *big.Int
	totalPurchased *big.Int
	totalRaised    *big.Int
	totalClaimed   *big.Int

	finalized      bool
	claimTriggered bool

	positions map[account.Address]*Position
}

// New returns an uninitialized round at addr running logic. Token
// references are resolved through tokens at initialization.
func New(addr account.Address, logic Logic, tokens token.Registry, sink event.Sink) *Round {
	return &Round{
		addr:           addr,
		logic:          logic,
		tokens:         tokens,
		events:         event.OrNop(sink),
		minClaim:       amount.Zero(),
		totalPurchased: amount.Zero(),
		totalRaised:    amount.Zero(),
		totalClaimed:   amount.Zero(),
		positions:      make(map[account.Address]*Position),
	}
}

// Address returns the round's own address, which holds its token balances.
func (r *Round) Address() account.Address { return r.addr }

// Kind returns the template kind.
func (r *Round) Kind() Kind { return r.logic.Kind() }

func addTime(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, fmt.Errorf("%w: time overflow %d + %d", ErrInvalidParams, a, b)
	}
	return a + b, nil
}

// Initialize configures the round once. The caller becomes the operator.
func (r *Round) Initialize(msg Msg, p Params) error {
	r.mu.RLock()
	done := r.initialized
	r.mu.RUnlock()
	if done {
		return ErrAlreadyInitialized
	}
	if err := account.Require("operator", msg.Sender); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := r.logic.validate(p); err != nil {
		return err
	}
	if !r.tokens.IsContract(p.SaleToken) {
		return fmt.Errorf("%w: sale token %s", ErrNotContract, p.SaleToken)
	}
	if !r.tokens.IsContract(p.PaymentToken) {
		return fmt.Errorf("%w: payment token %s", ErrNotContract, p.PaymentToken)
	}
	saleToken, err := token.Resolve(r.tokens, p.SaleToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotContract, err)
	}
	paymentToken, err := token.Resolve(r.tokens, p.PaymentToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotContract, err)
	}

	purchaseEnd, err := addTime(msg.Time, p.BuyOffset)
	if err != nil {
		return err
	}
	claimStart, err := addTime(purchaseEnd, p.LockDuration)
	if err != nil {
		return err
	}
	if claimStart, err = addTime(claimStart, p.ClaimDuration); err != nil {
		return err
	}
	claimEnd, err := addTime(claimStart, p.ClaimDuration)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return ErrAlreadyInitialized
	}
	r.initialized = true
	r.operator = guard.NewOwnable(msg.Sender)
	r.params = p.Copy()
	r.saleToken = saleToken
	r.paymentToken = paymentToken
	r.purchaseWindowEnd = purchaseEnd
	r.claimWindowStart = claimStart
	r.claimWindowEnd = claimEnd
	r.installmentInterval = p.ClaimDuration / p.Installments
	r.mu.Unlock()

	r.events.Emit(event.New(event.RoundInitialized, r.addr, msg.Time).
		With("kind", r.Kind().String()).
		WithAddr("operator", msg.Sender).
		WithAddr("saleToken", p.SaleToken).
		WithAddr("paymentToken", p.PaymentToken).
		With("purchaseWindowEnd", fmt.Sprint(purchaseEnd)))
	return nil
}

// onlyOperator must be called with r.mu held.
func (r *Round) onlyOperator(caller account.Address) error {
	if !r.initialized {
		return ErrNotInitialized
	}
	if err := r.operator.OnlyOwner(caller); err != nil {
		return fmt.Errorf("%w: %w", ErrNotOperator, err)
	}
	return nil
}

// SetMinClaim sets the smallest amount a single claim may release.
func (r *Round) SetMinClaim(msg Msg, v *big.Int) error {
	if !amount.Valid(v) {
		return fmt.Errorf("%w: min claim %v", ErrInvalidParams, v)
	}
	r.mu.Lock()
	if err := r.onlyOperator(msg.Sender); err != nil {
		r.mu.Unlock()
		return err
	}
	r.minClaim = amount.Copy(v)
	r.mu.Unlock()

	r.events.Emit(event.New(event.MinClaimUpdated, r.addr, msg.Time).WithAmount("minClaim", v))
	return nil
}

// SetWallet replaces the payment-fund destination.
func (r *Round) SetWallet(msg Msg, wallet account.Address) error {
	if err := account.Require("wallet", wallet); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	r.mu.Lock()
	if err := r.onlyOperator(msg.Sender); err != nil {
		r.mu.Unlock()
		return err
	}
	r.params.Wallet = wallet
	r.mu.Unlock()

	r.events.Emit(event.New(event.WalletUpdated, r.addr, msg.Time).WithAddr("wallet", wallet))
	return nil
}

// Pause blocks purchases and claims.
func (r *Round) Pause(msg Msg) error {
	r.mu.RLock()
	err := r.onlyOperator(msg.Sender)
	r.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := r.pause.Pause(); err != nil {
		return err
	}
	r.events.Emit(event.New(event.Paused, r.addr, msg.Time))
	return nil
}

// Unpause lifts Pause.
func (r *Round) Unpause(msg Msg) error {
	r.mu.RLock()
	err := r.onlyOperator(msg.Sender)
	r.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := r.pause.Unpause(); err != nil {
		return err
	}
	r.events.Emit(event.New(event.Unpaused, r.addr, msg.Time))
	return nil
}

// Paused reports the pause flag.
func (r *Round) Paused() bool { return r.pause.Paused() }

// Operator returns the operator, or the zero address before initialization.
func (r *Round) Operator() account.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.operator == nil {
		return account.Zero
	}
	return r.operator.Owner()
}

// Params returns a copy of the round parameters.
func (r *Round) Params() Params {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params.Copy()
}

// State returns the lifecycle state.
func (r *Round) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stateLocked()
}

func (r *Round) stateLocked() State {
	switch {
	case !r.initialized:
		return StateCreated
	case r.claimTriggered:
		return StateClaimTriggered
	case r.finalized:
		return StateFinalized
	default:
		return StateOpen
	}
}

// Position returns a copy of addr's ledger; unknown accounts are all zero.
func (r *Round) Position(addr account.Address) Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.positions[addr]
	if !ok {
		return Position{Purchased: amount.Zero(), Claimed: amount.Zero()}
	}
	return pos.copy()
}

// Buyers returns the number of accounts with a position.
func (r *Round) Buyers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions)
}

// Info returns the read model.
func (r *Round) Info() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := Info{
		Address:             r.addr,
		Kind:                r.Kind().String(),
		State:               r.stateLocked().String(),
		Manager:             r.params.Manager,
		Wallet:              r.params.Wallet,
		SaleToken:           r.params.SaleToken,
		PaymentToken:        r.params.PaymentToken,
		MinBuy:              amount.Copy(r.params.MinBuy),
		MaxBuy:              amount.Copy(r.params.MaxBuy),
		SalePrice:           amount.Copy(r.params.SalePrice),
		MinClaim:            amount.Copy(r.minClaim),
		PurchaseWindowEnd:   r.purchaseWindowEnd,
		ClaimWindowStart:    r.claimWindowStart,
		ClaimWindowEnd:      r.claimWindowEnd,
		InstallmentInterval: r.installmentInterval,
		TokenBalance:        amount.Zero(),
		TotalPurchased:      amount.Copy(r.totalPurchased),
		TotalRaised:         amount.Copy(r.totalRaised),
		TotalClaimed:        amount.Copy(r.totalClaimed),
		Finalized:           r.finalized,
		ClaimTriggered:      r.claimTriggered,
		Paused:              r.pause.Paused(),
	}
	if r.operator != nil {
		info.Operator = r.operator.Owner()
	}
	if r.saleToken != nil {
		info.TokenBalance = r.saleToken.BalanceOf(r.addr)
	}
	return info
}

// schedule must be called with r.mu held.
func (r *Round) schedule() vesting.Schedule {
	return vesting.Schedule{
		TGEPercent:   r.params.TGEPercent,
		Installments: r.params.Installments,
		Interval:     r.installmentInterval,
		Start:        r.claimWindowStart,
		End:          r.claimWindowEnd,
	}
}

// outstanding is what buyers are still owed; must be called with r.mu held.
func (r *Round) outstanding() *big.Int {
	return new(big.Int).Sub(r.totalPurchased, r.totalClaimed)
}

// unsold is the sale-token balance not owed to any buyer; must be called
// with r.mu held.
func (r *Round) unsold() *big.Int {
	bal := r.saleToken.BalanceOf(r.addr)
	owed := r.outstanding()
	if bal.Cmp(owed) <= 0 {
		return amount.Zero()
	}
	return bal.Sub(bal, owed)
}
