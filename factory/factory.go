// Package factory creates sale rounds from the shared public and whitelisted
// templates and relays administrative calls to them. The factory is the
// operator of every round it creates; its owner (the manager) is the only
// caller allowed to create rounds or relay.
package factory

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/event"
	"github.com/bitfsorg/libsale-go/guard"
	"github.com/bitfsorg/libsale-go/round"
	"github.com/bitfsorg/libsale-go/token"
)

// Registry resolves tokens and records round deployments.
type Registry interface {
	token.Registry
	MarkContract(addr account.Address)
	Forget(addr account.Address)
}

// Factory instantiates rounds. Each round gets its own state; the logic is
// one of the two shared templates.
type Factory struct {
	addr   account.Address
	owner  *guard.Ownable
	tokens Registry
	events event.Sink
	log    *zap.Logger

	mu     sync.RWMutex
	nonce  uint64
	rounds  map[account.Address]*round.Round
	order   []account.Address
	pending map[account.Address]*event.Buffer
}

// Option configures a Factory.
type Option func(*Factory)

// WithEventSink sets the sink shared by the factory and its rounds.
func WithEventSink(s event.Sink) Option {
	return func(f *Factory) { f.events = event.OrNop(s) }
}

// WithLogger sets the operational logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

// New creates a factory deployed at addr and owned by owner.
func New(addr, owner account.Address, tokens Registry, opts ...Option) (*Factory, error) {
	if err := account.Require("factory", addr); err != nil {
		return nil, err
	}
	if err := account.Require("factory owner", owner); err != nil {
		return nil, err
	}
	f := &Factory{
		addr:   addr,
		owner:  guard.NewOwnable(owner),
		tokens: tokens,
		events: event.Nop{},
		log:    zap.NewNop(),
		rounds:  make(map[account.Address]*round.Round),
		pending: make(map[account.Address]*event.Buffer),
	}
	for _, opt := range opts {
		opt(f)
	}
	tokens.MarkContract(addr)
	return f, nil
}

// Address returns the factory address, which operates every round.
func (f *Factory) Address() account.Address { return f.addr }

// Owner returns the address allowed to create and relay.
func (f *Factory) Owner() account.Address { return f.owner.Owner() }

// Create instantiates a round of kind and initializes it with p. Either the
// round is created and initialized, or nothing changes.
func (f *Factory) Create(msg round.Msg, kind round.Kind, p round.Params) (account.Address, error) {
	addr, err := f.Prepare(msg, kind, p)
	if err != nil {
		return account.Zero, err
	}
	return addr, f.Commit(msg, addr)
}

// Prepare creates and initializes a round like Create but holds back every
// event it produces until Commit. Discard drops a prepared round without a
// trace in the event stream.
func (f *Factory) Prepare(msg round.Msg, kind round.Kind, p round.Params) (account.Address, error) {
	if err := f.owner.OnlyOwner(msg.Sender); err != nil {
		return account.Zero, err
	}
	logic, err := round.TemplateFor(kind)
	if err != nil {
		return account.Zero, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	addr := account.Derive(f.addr, f.nonce)
	held := event.NewBuffer(f.events)
	r := round.New(addr, logic, f.tokens, held)
	if err := r.Initialize(round.Msg{Sender: f.addr, Time: msg.Time}, p); err != nil {
		return account.Zero, fmt.Errorf("factory: initialize %s round: %w", kind, err)
	}
	f.nonce++
	f.rounds[addr] = r
	f.order = append(f.order, addr)
	f.pending[addr] = held
	f.tokens.MarkContract(addr)

	held.Emit(event.New(event.RoundCreated, f.addr, msg.Time).
		WithAddr("round", addr).
		With("kind", kind.String()))
	return addr, nil
}

// Commit releases the held events of a prepared round.
func (f *Factory) Commit(msg round.Msg, addr account.Address) error {
	if err := f.owner.OnlyOwner(msg.Sender); err != nil {
		return err
	}
	f.mu.Lock()
	held, ok := f.pending[addr]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s not pending", ErrUnknownRound, addr)
	}
	delete(f.pending, addr)
	r := f.rounds[addr]
	count := len(f.order)
	f.mu.Unlock()

	held.Flush()
	f.log.Info("round created",
		zap.Stringer("round", addr),
		zap.Stringer("kind", r.Kind()),
		zap.Int("count", count))
	return nil
}

// Discard removes the most recently created round and frees its address.
// The owner uses it when its own follow-up to Create fails. A prepared round
// leaves no events; a committed one is closed by a RoundDiscarded event.
func (f *Factory) Discard(msg round.Msg, addr account.Address) error {
	if err := f.owner.OnlyOwner(msg.Sender); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rounds[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRound, addr)
	}
	if f.order[len(f.order)-1] != addr {
		return fmt.Errorf("%w: %s", ErrNotLatest, addr)
	}
	delete(f.rounds, addr)
	f.order = f.order[:len(f.order)-1]
	f.nonce--
	f.tokens.Forget(addr)

	if held, ok := f.pending[addr]; ok {
		held.Drop()
		delete(f.pending, addr)
	} else {
		f.events.Emit(event.New(event.RoundDiscarded, f.addr, msg.Time).
			WithAddr("round", addr))
	}
	f.log.Warn("round discarded", zap.Stringer("round", addr))
	return nil
}

// Round returns the round at addr.
func (f *Factory) Round(addr account.Address) (*round.Round, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.rounds[addr]
	return r, ok
}

// Rounds returns the created round addresses in creation order.
func (f *Factory) Rounds() []account.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]account.Address, len(f.order))
	copy(out, f.order)
	return out
}

// Count returns the number of live rounds.
func (f *Factory) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.order)
}
