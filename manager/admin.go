package manager

import (
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/event"
	"github.com/bitfsorg/libsale-go/factory"
	"github.com/bitfsorg/libsale-go/round"
	"github.com/bitfsorg/libsale-go/token"
)

// target authorizes msg and returns the registry entry at index.
func (m *Manager) target(msg round.Msg, index uint64) (account.Address, error) {
	if err := m.owner.OnlyOwner(msg.Sender); err != nil {
		return account.Zero, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, err := m.entryLocked(index)
	if err != nil {
		return account.Zero, err
	}
	return e.Round, nil
}

// FinalizeRound finalizes the round at index. Its unsold tokens return to
// the treasury.
func (m *Manager) FinalizeRound(msg round.Msg, index uint64) error {
	release, err := m.lock.Enter()
	if err != nil {
		return err
	}
	defer release()

	addr, err := m.target(msg, index)
	if err != nil {
		return err
	}
	m.mu.RLock()
	e := m.entries[index]
	snapshot := e.Copy()
	m.mu.RUnlock()

	// A round finalized by an earlier call whose entry write failed only
	// needs the entry persisted.
	if err := m.factory.Finalize(m.self(msg), addr); err != nil {
		if snapshot.Finalized || !errors.Is(err, round.ErrAlreadyFinalized) {
			return err
		}
	}
	snapshot.Finalized = true

	if err := m.store.PutEntry(snapshot); err != nil {
		m.log.Error("persist finalized entry failed", zap.Uint64("index", index), zap.Error(err))
		return fmt.Errorf("manager: persist finalized entry %d: %w", index, err)
	}
	m.mu.Lock()
	e.Finalized = true
	m.mu.Unlock()
	return nil
}

// SetMinClaimForRound sets the minimum claim of the round at index.
func (m *Manager) SetMinClaimForRound(msg round.Msg, index uint64, v *big.Int) error {
	addr, err := m.target(msg, index)
	if err != nil {
		return err
	}
	return m.factory.SetMinClaim(m.self(msg), addr, v)
}

// SetWalletForRound replaces the payment wallet of the round at index.
func (m *Manager) SetWalletForRound(msg round.Msg, index uint64, wallet account.Address) error {
	addr, err := m.target(msg, index)
	if err != nil {
		return err
	}
	return m.factory.SetWallet(m.self(msg), addr, wallet)
}

// TriggerClaimPeriod opens the claim window of the round at index.
func (m *Manager) TriggerClaimPeriod(msg round.Msg, index uint64) error {
	addr, err := m.target(msg, index)
	if err != nil {
		return err
	}
	return m.factory.TriggerClaimPeriod(m.self(msg), addr)
}

// PauseRound pauses the round at index. A rejection by the round is
// reported in the result, not as an error.
func (m *Manager) PauseRound(msg round.Msg, index uint64) (factory.RelayResult, error) {
	addr, err := m.target(msg, index)
	if err != nil {
		return factory.RelayResult{}, err
	}
	return m.factory.PauseRound(m.self(msg), addr)
}

// UnpauseRound is PauseRound for unpausing.
func (m *Manager) UnpauseRound(msg round.Msg, index uint64) (factory.RelayResult, error) {
	addr, err := m.target(msg, index)
	if err != nil {
		return factory.RelayResult{}, err
	}
	return m.factory.UnpauseRound(m.self(msg), addr)
}

// ---------------------------------------------------------------------------
// Global administration
// ---------------------------------------------------------------------------

// Pause blocks round creation and treasury withdrawals.
func (m *Manager) Pause(msg round.Msg) error {
	if err := m.owner.OnlyOwner(msg.Sender); err != nil {
		return err
	}
	if err := m.pause.Pause(); err != nil {
		return err
	}
	m.events.Emit(event.New(event.Paused, m.addr, msg.Time))
	return nil
}

// Unpause lifts Pause.
func (m *Manager) Unpause(msg round.Msg) error {
	if err := m.owner.OnlyOwner(msg.Sender); err != nil {
		return err
	}
	if err := m.pause.Unpause(); err != nil {
		return err
	}
	m.events.Emit(event.New(event.Unpaused, m.addr, msg.Time))
	return nil
}

// TransferOwnership hands administration to next.
func (m *Manager) TransferOwnership(msg round.Msg, next account.Address) error {
	return m.owner.TransferOwnership(msg.Sender, next)
}

// SetSaleToken switches the sale token used by future rounds. The manager
// must be paused. Existing rounds keep their token.
func (m *Manager) SetSaleToken(msg round.Msg, addr account.Address) error {
	return m.setToken(msg, "sale", addr, func(t token.Token) { m.saleToken = t })
}

// SetPaymentToken is SetSaleToken for the payment token.
func (m *Manager) SetPaymentToken(msg round.Msg, addr account.Address) error {
	return m.setToken(msg, "payment", addr, func(t token.Token) { m.paymentToken = t })
}

func (m *Manager) setToken(msg round.Msg, role string, addr account.Address, set func(token.Token)) error {
	if err := m.owner.OnlyOwner(msg.Sender); err != nil {
		return err
	}
	if err := m.pause.WhenPaused(); err != nil {
		return err
	}
	t, err := m.resolve(addr)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if addr == m.saleToken.Address() || addr == m.paymentToken.Address() {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSameToken, addr)
	}
	set(t)
	m.mu.Unlock()

	m.events.Emit(event.New(event.TokenUpdated, m.addr, msg.Time).
		With("role", role).
		WithAddr("token", addr))
	return nil
}

// WithdrawPayment sends the treasury's whole payment-token balance to to
// and returns the amount.
func (m *Manager) WithdrawPayment(msg round.Msg, to account.Address) (*big.Int, error) {
	m.mu.RLock()
	t := m.paymentToken
	m.mu.RUnlock()
	return m.withdraw(msg, t, to, true)
}

// WithdrawSaleToken sends the treasury's whole sale-token balance to to and
// returns the amount.
func (m *Manager) WithdrawSaleToken(msg round.Msg, to account.Address) (*big.Int, error) {
	m.mu.RLock()
	t := m.saleToken
	m.mu.RUnlock()
	return m.withdraw(msg, t, to, true)
}

// RescueToken sends the treasury's whole balance of any registered token to
// to. It works while paused.
func (m *Manager) RescueToken(msg round.Msg, addr, to account.Address) (*big.Int, error) {
	t, err := m.resolve(addr)
	if err != nil {
		return nil, err
	}
	return m.withdraw(msg, t, to, false)
}

func (m *Manager) withdraw(msg round.Msg, t token.Token, to account.Address, gated bool) (*big.Int, error) {
	release, err := m.lock.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := m.owner.OnlyOwner(msg.Sender); err != nil {
		return nil, err
	}
	if gated {
		if err := m.pause.WhenNotPaused(); err != nil {
			return nil, err
		}
	}
	if err := account.Require("destination", to); err != nil {
		return nil, err
	}
	bal := t.BalanceOf(m.addr)
	if bal.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNothingToWithdraw, t.Address())
	}
	if err := t.Transfer(m.addr, to, bal); err != nil {
		return nil, fmt.Errorf("manager: withdraw %s: %w", t.Address(), err)
	}

	name := event.TreasuryWithdrawn
	if !gated {
		name = event.TokenRescued
	}
	m.events.Emit(event.New(name, m.addr, msg.Time).
		WithAddr("token", t.Address()).
		WithAddr("to", to).
		WithAmount("amount", bal))
	m.log.Info("treasury withdrawal",
		zap.String("event", name),
		zap.Stringer("token", t.Address()),
		zap.String("amount", bal.String()))
	return bal, nil
}
