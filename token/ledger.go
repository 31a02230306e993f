package token

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/amount"
)

// TransferHook runs after a ledger transfer has moved the funds and before
// the call returns. It sees the same view a receiving contract callback
// would. A non-nil error reverts the transfer and is returned to the caller.
type TransferHook func(from, to account.Address, value *big.Int) error

// Ledger is an in-memory Token.
type Ledger struct {
	addr     account.Address
	symbol   string
	decimals int32

	mu         sync.Mutex
	balances   map[account.Address]*big.Int
	allowances map[account.Address]map[account.Address]*big.Int
	supply     *big.Int
	hook       TransferHook
}

// Compile-time interface check.
var _ Token = (*Ledger)(nil)

// NewLedger creates an empty ledger deployed at addr.
func NewLedger(addr account.Address, symbol string, decimals int32) *Ledger {
	return &Ledger{
		addr:       addr,
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[account.Address]*big.Int),
		allowances: make(map[account.Address]map[account.Address]*big.Int),
		supply:     new(big.Int),
	}
}

// Address returns the token contract address.
func (l *Ledger) Address() account.Address { return l.addr }

// Symbol returns the ticker.
func (l *Ledger) Symbol() string { return l.symbol }

// Decimals returns the number of display decimals.
func (l *Ledger) Decimals() int32 { return l.decimals }

// SetHook installs h; nil removes it.
func (l *Ledger) SetHook(h TransferHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hook = h
}

// TotalSupply returns the minted supply.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return amount.Copy(l.supply)
}

// Mint credits value to to.
func (l *Ledger) Mint(to account.Address, value *big.Int) error {
	if err := account.Require("mint recipient", to); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	supply, err := amount.Add(l.supply, value)
	if err != nil {
		return err
	}
	bal, err := amount.Add(l.balanceLocked(to), value)
	if err != nil {
		return err
	}
	l.supply = supply
	l.balances[to] = bal
	return nil
}

// Approve sets spender's allowance over owner's balance.
func (l *Ledger) Approve(owner, spender account.Address, value *big.Int) error {
	if !amount.Valid(value) {
		return fmt.Errorf("%w: approve %v", amount.ErrInvalidAmount, value)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[account.Address]*big.Int)
		l.allowances[owner] = m
	}
	m[spender] = amount.Copy(value)
	return nil
}

// BalanceOf returns holder's balance.
func (l *Ledger) BalanceOf(holder account.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return amount.Copy(l.balanceLocked(holder))
}

// Allowance returns spender's allowance over owner's balance.
func (l *Ledger) Allowance(owner, spender account.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return amount.Copy(l.allowanceLocked(owner, spender))
}

// Transfer moves value from from to to.
func (l *Ledger) Transfer(from, to account.Address, value *big.Int) error {
	if err := l.move(nil, from, to, value); err != nil {
		return err
	}
	return l.runHook(nil, from, to, value)
}

// TransferFrom moves value from from to to, spending spender's allowance.
func (l *Ledger) TransferFrom(spender, from, to account.Address, value *big.Int) error {
	if err := l.move(&spender, from, to, value); err != nil {
		return err
	}
	return l.runHook(&spender, from, to, value)
}

// Refund moves value back from to to from without running the hook.
func (l *Ledger) Refund(from, to account.Address, value *big.Int) error {
	if !amount.Valid(value) {
		return fmt.Errorf("%w: %w", ErrTransferFailed, amount.ErrInvalidAmount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	toBal := l.balanceLocked(to)
	if toBal.Cmp(value) < 0 {
		return fmt.Errorf("%w: refund %v from %s, which has %v", ErrInsufficientBalance, value, to, toBal)
	}
	l.balances[to] = new(big.Int).Sub(toBal, value)
	l.balances[from] = new(big.Int).Add(l.balanceLocked(from), value)
	return nil
}

func (l *Ledger) balanceLocked(holder account.Address) *big.Int {
	if b, ok := l.balances[holder]; ok {
		return b
	}
	return new(big.Int)
}

func (l *Ledger) allowanceLocked(owner, spender account.Address) *big.Int {
	if m, ok := l.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return new(big.Int)
}

// move applies a transfer under the ledger lock. With a non-nil spender the
// allowance is consumed.
func (l *Ledger) move(spender *account.Address, from, to account.Address, value *big.Int) error {
	if err := account.Require("transfer recipient", to); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if !amount.Valid(value) {
		return fmt.Errorf("%w: %w", ErrTransferFailed, amount.ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBal := l.balanceLocked(from)
	if fromBal.Cmp(value) < 0 {
		return fmt.Errorf("%w: %s has %v, needs %v", ErrInsufficientBalance, from, fromBal, value)
	}
	var allowance *big.Int
	if spender != nil {
		allowance = l.allowanceLocked(from, *spender)
		if allowance.Cmp(value) < 0 {
			return fmt.Errorf("%w: %s may spend %v of %s, needs %v", ErrInsufficientAllowance, *spender, allowance, from, value)
		}
	}

	l.balances[from] = new(big.Int).Sub(fromBal, value)
	l.balances[to] = new(big.Int).Add(l.balanceLocked(to), value)
	if spender != nil {
		l.allowances[from][*spender] = new(big.Int).Sub(allowance, value)
	}
	return nil
}

// runHook invokes the transfer hook outside the lock and reverts the
// transfer when the hook fails.
func (l *Ledger) runHook(spender *account.Address, from, to account.Address, value *big.Int) error {
	l.mu.Lock()
	hook := l.hook
	l.mu.Unlock()
	if hook == nil {
		return nil
	}
	hookErr := hook(from, to, value)
	if hookErr == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] = new(big.Int).Sub(l.balanceLocked(to), value)
	l.balances[from] = new(big.Int).Add(l.balanceLocked(from), value)
	if spender != nil {
		l.allowances[from][*spender] = new(big.Int).Add(l.allowanceLocked(from, *spender), value)
	}
	return fmt.Errorf("%w: %w", ErrTransferFailed, hookErr)
}
