// Package token defines the fungible-token collaborator used by sale rounds
// and the round manager, a registry of deployed contracts, and an in-memory
// ledger implementation.
package token

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/bitfsorg/libsale-go/account"
)

// Token is a fungible token contract. The caller identity is explicit:
// Transfer moves from's balance and must only be invoked by code acting for
// from; TransferFrom spends spender's allowance over from's balance.
// Any error aborts the caller's operation.
type Token interface {
	// Address returns the token contract address.
	Address() account.Address

	// BalanceOf returns holder's balance.
	BalanceOf(holder account.Address) *big.Int

	// Allowance returns how much spender may move out of owner's balance.
	Allowance(owner, spender account.Address) *big.Int

	// Transfer moves amount from from to to.
	Transfer(from, to account.Address, amount *big.Int) error

	// TransferFrom moves amount from from to to using spender's allowance.
	TransferFrom(spender, from, to account.Address, amount *big.Int) error

	// Refund reverses a Transfer of amount from from to to made earlier in
	// the same operation. The token authorizes it without running receiver
	// callbacks, so the caller can undo a step when a later one fails.
	Refund(from, to account.Address, amount *big.Int) error
}

// Registry resolves contract addresses.
type Registry interface {
	// Lookup returns the token deployed at addr.
	Lookup(addr account.Address) (Token, bool)

	// IsContract reports whether any contract is deployed at addr.
	IsContract(addr account.Address) bool
}

// MemRegistry is an in-memory Registry. It also records non-token contracts
// (sale rounds, the factory) so IsContract reflects every deployment.
type MemRegistry struct {
	mu        sync.RWMutex
	tokens    map[account.Address]Token
	contracts map[account.Address]bool
}

// NewMemRegistry creates an empty registry.
func NewMemRegistry() *MemRegistry {
	return &MemRegistry{
		tokens:    make(map[account.Address]Token),
		contracts: make(map[account.Address]bool),
	}
}

// Register deploys t at its address.
func (r *MemRegistry) Register(t Token) error {
	addr := t.Address()
	if err := account.Require("token", addr); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tokens[addr]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateToken, addr)
	}
	r.tokens[addr] = t
	r.contracts[addr] = true
	return nil
}

// MarkContract records a non-token deployment at addr.
func (r *MemRegistry) MarkContract(addr account.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[addr] = true
}

// Forget removes a non-token deployment recorded by MarkContract.
func (r *MemRegistry) Forget(addr account.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, isToken := r.tokens[addr]; isToken {
		return
	}
	delete(r.contracts, addr)
}

// Lookup returns the token deployed at addr.
func (r *MemRegistry) Lookup(addr account.Address) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[addr]
	return t, ok
}

// IsContract reports whether any contract is deployed at addr.
func (r *MemRegistry) IsContract(addr account.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contracts[addr]
}

// Resolve looks up addr and fails with ErrUnknownToken when nothing is deployed.
func Resolve(r Registry, addr account.Address) (Token, error) {
	t, ok := r.Lookup(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr)
	}
	return t, nil
}
