package manager

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/amount"
	"github.com/bitfsorg/libsale-go/event"
	"github.com/bitfsorg/libsale-go/round"
	"github.com/bitfsorg/libsale-go/store"
	"github.com/bitfsorg/libsale-go/token"
)

// CreateRound creates a round of kind, registers it and funds it with
// allocated sale tokens from the treasury. The sale token, payment token and
// manager fields of p are set by the manager, and the default minimum claim,
// if any, is applied before the round is funded.
//
// When the treasury is short, one top-up is requested before giving up.
// On any failure no round, registry entry or transfer remains.
func (m *Manager) CreateRound(ctx context.Context, msg round.Msg, kind round.Kind, p round.Params, allocated *big.Int) (store.Entry, error) {
	release, err := m.lock.Enter()
	if err != nil {
		return store.Entry{}, err
	}
	defer release()

	if err := m.owner.OnlyOwner(msg.Sender); err != nil {
		return store.Entry{}, err
	}
	if err := m.pause.WhenNotPaused(); err != nil {
		return store.Entry{}, err
	}
	if !amount.Valid(allocated) || allocated.Sign() == 0 {
		return store.Entry{}, fmt.Errorf("%w: allocation %v", ErrZeroAmount, allocated)
	}

	m.mu.RLock()
	sale, payment := m.saleToken, m.paymentToken
	index := uint64(len(m.entries))
	m.mu.RUnlock()

	p = p.Copy()
	p.SaleToken = sale.Address()
	p.PaymentToken = payment.Address()
	p.Manager = m.addr

	if err := m.ensureFunded(ctx, msg, sale, allocated); err != nil {
		return store.Entry{}, err
	}

	addr, err := m.factory.Prepare(m.self(msg), kind, p)
	if err != nil {
		return store.Entry{}, err
	}
	if m.minClaim != nil && m.minClaim.Sign() > 0 {
		if err := m.factory.SetMinClaim(m.self(msg), addr, m.minClaim); err != nil {
			m.discard(msg, addr)
			return store.Entry{}, err
		}
	}

	entry := &store.Entry{
		Index:     index,
		Round:     addr,
		Kind:      kind.String(),
		Allocated: amount.Copy(allocated),
		CreatedAt: msg.Time,
	}
	if err := m.store.PutEntry(entry); err != nil {
		m.discard(msg, addr)
		return store.Entry{}, fmt.Errorf("manager: persist registry entry %d: %w", index, err)
	}
	if err := sale.Transfer(m.addr, addr, allocated); err != nil {
		if delErr := m.store.DeleteEntry(index); delErr != nil {
			m.log.Error("registry rollback failed", zap.Uint64("index", index), zap.Error(delErr))
		}
		m.discard(msg, addr)
		return store.Entry{}, fmt.Errorf("manager: fund round %s: %w", addr, err)
	}

	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()

	if err := m.factory.Commit(m.self(msg), addr); err != nil {
		m.log.Error("round commit failed", zap.Stringer("round", addr), zap.Error(err))
	}

	m.events.Emit(event.New(event.RoundFunded, m.addr, msg.Time).
		With("index", fmt.Sprint(index)).
		WithAddr("round", addr).
		WithAmount("allocated", allocated))
	m.log.Info("round created",
		zap.Uint64("index", index),
		zap.Stringer("round", addr),
		zap.Stringer("kind", kind),
		zap.String("allocated", amount.Format(allocated, amount.SaleDecimals)))
	return *entry.Copy(), nil
}

// ensureFunded checks the treasury covers allocated, requesting one top-up
// when it does not.
func (m *Manager) ensureFunded(ctx context.Context, msg round.Msg, sale token.Token, allocated *big.Int) error {
	bal := sale.BalanceOf(m.addr)
	if bal.Cmp(allocated) >= 0 {
		return nil
	}
	m.events.Emit(event.New(event.TopUpRequested, m.addr, msg.Time).
		WithAmount("requested", allocated).
		WithAmount("available", bal))
	if m.topUp == nil {
		return fmt.Errorf("%w: requested %v, available %v", ErrInsufficientBalance, allocated, bal)
	}
	if err := m.topUp.RequestTopUp(ctx); err != nil {
		m.log.Warn("treasury top-up failed", zap.Error(err))
	}

	bal = sale.BalanceOf(m.addr)
	if bal.Cmp(allocated) < 0 {
		return fmt.Errorf("%w: requested %v, available %v after top-up", ErrInsufficientBalance, allocated, bal)
	}
	return nil
}

func (m *Manager) discard(msg round.Msg, addr account.Address) {
	if err := m.factory.Discard(m.self(msg), addr); err != nil {
		m.log.Error("round rollback failed", zap.Stringer("round", addr), zap.Error(err))
	}
}
