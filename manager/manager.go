// Package manager is the custodian of the sale-token treasury. It creates
// rounds through its factory, funds them, keeps the round registry and is the
// single entry point for round administration.
package manager

import (
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/amount"
	"github.com/bitfsorg/libsale-go/event"
	"github.com/bitfsorg/libsale-go/factory"
	"github.com/bitfsorg/libsale-go/guard"
	"github.com/bitfsorg/libsale-go/round"
	"github.com/bitfsorg/libsale-go/store"
	"github.com/bitfsorg/libsale-go/token"
)

// Manager holds the treasury at its own address.
type Manager struct {
	addr    account.Address
	owner   *guard.Ownable
	pause   guard.Pausable
	lock    guard.ReentrancyLock
	tokens  factory.Registry
	factory *factory.Factory
	topUp   TopUpSource
	store   store.RegistryStore
	events  event.Sink
	log     *zap.Logger

	minClaim *big.Int

	mu           sync.RWMutex
	saleToken    token.Token
	paymentToken token.Token
	entries      []*store.Entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithTopUp sets the treasury top-up source.
func WithTopUp(s TopUpSource) Option {
	return func(m *Manager) { m.topUp = s }
}

// WithStore sets the registry store. It must be empty.
func WithStore(s store.RegistryStore) Option {
	return func(m *Manager) {
		if s != nil {
			m.store = s
		}
	}
}

// WithDefaultMinClaim sets the minimum claim applied to every new round.
// Zero leaves rounds without one.
func WithDefaultMinClaim(v *big.Int) Option {
	return func(m *Manager) { m.minClaim = amount.Copy(v) }
}

// WithEventSink sets the sink shared by the manager, its factory and rounds.
func WithEventSink(s event.Sink) Option {
	return func(m *Manager) { m.events = event.OrNop(s) }
}

// WithLogger sets the operational logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// New deploys a manager at addr owned by owner, trading saleToken for
// paymentToken. Its factory is deployed at the first address derived from addr.
func New(addr, owner account.Address, tokens factory.Registry, saleToken, paymentToken account.Address, opts ...Option) (*Manager, error) {
	if err := account.Require("manager", addr); err != nil {
		return nil, err
	}
	if err := account.Require("owner", owner); err != nil {
		return nil, err
	}
	m := &Manager{
		addr:   addr,
		owner:  guard.NewOwnable(owner),
		tokens: tokens,
		store:  store.NewMemRegistryStore(),
		events: event.Nop{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.minClaim != nil && !amount.Valid(m.minClaim) {
		return nil, fmt.Errorf("%w: default min claim %v", amount.ErrInvalidAmount, m.minClaim)
	}
	if saleToken == paymentToken {
		return nil, fmt.Errorf("%w: sale and payment token are both %s", ErrSameToken, saleToken)
	}
	var err error
	if m.saleToken, err = m.resolve(saleToken); err != nil {
		return nil, err
	}
	if m.paymentToken, err = m.resolve(paymentToken); err != nil {
		return nil, err
	}

	n, err := m.store.CountEntries()
	if err != nil {
		return nil, fmt.Errorf("manager: count registry entries: %w", err)
	}
	if n != 0 {
		return nil, fmt.Errorf("%w: %d entries", ErrStoreNotEmpty, n)
	}

	m.factory, err = factory.New(account.Derive(addr, 0), addr, tokens,
		factory.WithEventSink(m.events),
		factory.WithLogger(m.log.Named("factory")))
	if err != nil {
		return nil, err
	}
	tokens.MarkContract(addr)
	return m, nil
}

func (m *Manager) resolve(addr account.Address) (token.Token, error) {
	if err := account.Require("token", addr); err != nil {
		return nil, err
	}
	if !m.tokens.IsContract(addr) {
		return nil, fmt.Errorf("%w: %s", ErrNotContract, addr)
	}
	t, err := token.Resolve(m.tokens, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotContract, err)
	}
	return t, nil
}

// Address returns the manager (treasury) address.
func (m *Manager) Address() account.Address { return m.addr }

// Owner returns the administrator.
func (m *Manager) Owner() account.Address { return m.owner.Owner() }

// Factory returns the manager's round factory.
func (m *Manager) Factory() *factory.Factory { return m.factory }

// Paused reports the global pause flag.
func (m *Manager) Paused() bool { return m.pause.Paused() }

// SaleToken returns the current sale token address.
func (m *Manager) SaleToken() account.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saleToken.Address()
}

// PaymentToken returns the current payment token address.
func (m *Manager) PaymentToken() account.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paymentToken.Address()
}

// Treasury returns the manager's sale and payment token balances.
func (m *Manager) Treasury() (sale, payment *big.Int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saleToken.BalanceOf(m.addr), m.paymentToken.BalanceOf(m.addr)
}

// Count returns the number of registered rounds.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Entry returns a copy of the registry entry at index.
func (m *Manager) Entry(index uint64) (store.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, err := m.entryLocked(index)
	if err != nil {
		return store.Entry{}, err
	}
	return *e.Copy(), nil
}

// Entries returns copies of all registry entries in index order.
func (m *Manager) Entries() []store.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = *e.Copy()
	}
	return out
}

// Round returns the round registered at index.
func (m *Manager) Round(index uint64) (*round.Round, error) {
	m.mu.RLock()
	e, err := m.entryLocked(index)
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	r, ok := m.factory.Round(e.Round)
	if !ok {
		return nil, fmt.Errorf("%w: %s", factory.ErrUnknownRound, e.Round)
	}
	return r, nil
}

// RoundInfo returns the read model of the round at index.
func (m *Manager) RoundInfo(index uint64) (round.Info, error) {
	r, err := m.Round(index)
	if err != nil {
		return round.Info{}, err
	}
	return r.Info(), nil
}

// entryLocked must be called with m.mu held.
func (m *Manager) entryLocked(index uint64) (*store.Entry, error) {
	if index >= uint64(len(m.entries)) {
		return nil, fmt.Errorf("%w: %d of %d", ErrUnknownIndex, index, len(m.entries))
	}
	return m.entries[index], nil
}

// self is the calling context of the manager's own calls to its factory.
func (m *Manager) self(msg round.Msg) round.Msg {
	return round.Msg{Sender: m.addr, Time: msg.Time}
}
