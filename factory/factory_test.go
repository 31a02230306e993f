package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/amount"
	"github.com/bitfsorg/libsale-go/event"
	"github.com/bitfsorg/libsale-go/guard"
	"github.com/bitfsorg/libsale-go/merkle"
	"github.com/bitfsorg/libsale-go/round"
	"github.com/bitfsorg/libsale-go/token"
)

const now = uint64(1_700_000_000)

var (
	factoryAddr = account.FromLabel("factory")
	managerAddr = account.FromLabel("manager")
	stranger    = account.FromLabel("stranger")
)

type fixture struct {
	factory  *Factory
	registry *token.MemRegistry
	sale     *token.Ledger
	payment  *token.Ledger
	events   *event.Recorder
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry: token.NewMemRegistry(),
		sale:     token.NewLedger(account.FromLabel("SALE"), "SALE", amount.SaleDecimals),
		payment:  token.NewLedger(account.FromLabel("USDC"), "USDC", amount.PaymentDecimals),
		events:   &event.Recorder{},
	}
	require.NoError(t, f.registry.Register(f.sale))
	require.NoError(t, f.registry.Register(f.payment))

	core, logs := observer.New(zapcore.InfoLevel)
	f.logs = logs
	fac, err := New(factoryAddr, managerAddr, f.registry,
		WithEventSink(f.events), WithLogger(zap.New(core)))
	require.NoError(t, err)
	f.factory = fac
	return f
}

func (f *fixture) params() round.Params {
	return round.Params{
		Wallet:        account.FromLabel("wallet"),
		Manager:       managerAddr,
		SaleToken:     f.sale.Address(),
		PaymentToken:  f.payment.Address(),
		MinBuy:        amount.Units(1, amount.PaymentDecimals),
		MaxBuy:        amount.Units(1000, amount.PaymentDecimals),
		SalePrice:     amount.New(500_000),
		TGEPercent:    20,
		Installments:  4,
		BuyOffset:     3600,
		ClaimDuration: 4 * 86400,
	}
}

func mgr() round.Msg { return round.Msg{Sender: managerAddr, Time: now} }

func (f *fixture) create(t *testing.T) account.Address {
	t.Helper()
	addr, err := f.factory.Create(mgr(), round.KindPublic, f.params())
	require.NoError(t, err)
	return addr
}

func TestNew_Errors(t *testing.T) {
	reg := token.NewMemRegistry()
	_, err := New(account.Zero, managerAddr, reg)
	assert.ErrorIs(t, err, account.ErrZeroAddress)
	_, err = New(factoryAddr, account.Zero, reg)
	assert.ErrorIs(t, err, account.ErrZeroAddress)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	a := f.create(t)
	b, err := f.factory.Create(mgr(), round.KindWhitelisted, func() round.Params {
		p := f.params()
		p.MerkleRoot = merkle.LeafHash(stranger)
		return p
	}())
	require.NoError(t, err)

	assert.Equal(t, account.Derive(factoryAddr, 0), a)
	assert.Equal(t, account.Derive(factoryAddr, 1), b)
	assert.Equal(t, []account.Address{a, b}, f.factory.Rounds())
	assert.Equal(t, 2, f.factory.Count())
	assert.True(t, f.registry.IsContract(a))

	r, ok := f.factory.Round(b)
	require.True(t, ok)
	assert.Equal(t, round.KindWhitelisted, r.Kind())
	assert.Equal(t, factoryAddr, r.Operator())
	assert.Equal(t, round.StateOpen, r.State())

	created := f.events.Named(event.RoundCreated)
	require.Len(t, created, 2)
	assert.Equal(t, b.String(), created[1].Get("round"))
	assert.Equal(t, "whitelisted", created[1].Get("kind"))
	assert.Equal(t, 2, f.logs.FilterMessage("round created").Len())
}

func TestCreate_FailureLeavesNothing(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		sender  account.Address
		kind    round.Kind
		modify  func(*round.Params)
		wantErr error
	}{
		{"not owner", stranger, round.KindPublic, func(*round.Params) {}, guard.ErrNotOwner},
		{"unknown kind", managerAddr, round.Kind(7), func(*round.Params) {}, round.ErrUnknownKind},
		{"invalid params", managerAddr, round.KindPublic, func(p *round.Params) { p.TGEPercent = 150 }, round.ErrInvalidParams},
		{"whitelist without root", managerAddr, round.KindWhitelisted, func(*round.Params) {}, round.ErrInvalidParams},
		{"token not deployed", managerAddr, round.KindPublic, func(p *round.Params) { p.SaleToken = stranger }, round.ErrNotContract},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := f.params()
			tt.modify(&p)
			_, err := f.factory.Create(round.Msg{Sender: tt.sender, Time: now}, tt.kind, p)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.factory.Count())
			assert.False(t, f.registry.IsContract(account.Derive(factoryAddr, 0)))
		})
	}
	assert.Empty(t, f.events.Named(event.RoundCreated))

	// The nonce did not advance.
	assert.Equal(t, account.Derive(factoryAddr, 0), f.create(t))
}

func TestDiscard(t *testing.T) {
	f := newFixture(t)
	a := f.create(t)
	b := f.create(t)

	assert.ErrorIs(t, f.factory.Discard(round.Msg{Sender: stranger}, b), guard.ErrNotOwner)
	assert.ErrorIs(t, f.factory.Discard(mgr(), a), ErrNotLatest)
	assert.ErrorIs(t, f.factory.Discard(mgr(), stranger), ErrUnknownRound)

	require.NoError(t, f.factory.Discard(mgr(), b))
	assert.Equal(t, []account.Address{a}, f.factory.Rounds())
	assert.False(t, f.registry.IsContract(b))
	_, ok := f.factory.Round(b)
	assert.False(t, ok)

	discarded, ok := f.events.Last(event.RoundDiscarded)
	require.True(t, ok)
	assert.Equal(t, b.String(), discarded.Get("round"))

	// The freed address is reused by the next round.
	assert.Equal(t, b, f.create(t))
}

func TestPrepare_HoldsEventsUntilCommit(t *testing.T) {
	f := newFixture(t)

	_, err := f.factory.Prepare(round.Msg{Sender: stranger, Time: now}, round.KindPublic, f.params())
	assert.ErrorIs(t, err, guard.ErrNotOwner)

	addr, err := f.factory.Prepare(mgr(), round.KindPublic, f.params())
	require.NoError(t, err)
	assert.True(t, f.registry.IsContract(addr))
	assert.Empty(t, f.events.Events())

	// A discarded preparation leaves nothing behind.
	require.NoError(t, f.factory.Discard(mgr(), addr))
	assert.Empty(t, f.events.Events())
	assert.Zero(t, f.logs.FilterMessage("round created").Len())

	again, err := f.factory.Prepare(mgr(), round.KindPublic, f.params())
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.ErrorIs(t, f.factory.Commit(round.Msg{Sender: stranger}, again), guard.ErrNotOwner)
	require.NoError(t, f.factory.Commit(mgr(), again))
	assert.ErrorIs(t, f.factory.Commit(mgr(), again), ErrUnknownRound)

	var names []string
	for _, e := range f.events.Events() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{event.RoundInitialized, event.RoundCreated}, names)
	assert.Equal(t, 1, f.logs.FilterMessage("round created").Len())

	// Events after commit reach the sink directly.
	r, _ := f.factory.Round(again)
	require.NoError(t, r.Pause(round.Msg{Sender: factoryAddr, Time: now + 1}))
	assert.Len(t, f.events.Named(event.Paused), 1)
}

func TestHardRelays(t *testing.T) {
	f := newFixture(t)
	addr := f.create(t)
	r, _ := f.factory.Round(addr)

	newWallet := account.FromLabel("new-wallet")
	require.NoError(t, f.factory.SetWallet(mgr(), addr, newWallet))
	assert.Equal(t, newWallet, r.Info().Wallet)

	require.NoError(t, f.factory.SetMinClaim(mgr(), addr, amount.New(42)))
	assert.Equal(t, "42", r.Info().MinClaim.String())

	err := f.factory.TriggerClaimPeriod(mgr(), addr)
	assert.ErrorIs(t, err, ErrRelayFailed)
	assert.ErrorIs(t, err, round.ErrNotFinalized)

	require.NoError(t, f.factory.Finalize(mgr(), addr))
	err = f.factory.Finalize(mgr(), addr)
	assert.ErrorIs(t, err, ErrRelayFailed)
	assert.ErrorIs(t, err, round.ErrAlreadyFinalized)

	require.NoError(t, f.factory.TriggerClaimPeriod(round.Msg{Sender: managerAddr, Time: now + 10}, addr))
	assert.Equal(t, now+10, r.Info().ClaimWindowStart)

	assert.ErrorIs(t, f.factory.Finalize(round.Msg{Sender: stranger}, addr), guard.ErrNotOwner)
	assert.ErrorIs(t, f.factory.Finalize(mgr(), stranger), ErrUnknownRound)
}

func TestSoftRelays(t *testing.T) {
	f := newFixture(t)
	addr := f.create(t)
	r, _ := f.factory.Round(addr)

	res, err := f.factory.PauseRound(mgr(), addr)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, OpPause, res.Op)
	assert.True(t, r.Paused())

	// Pausing twice is rejected by the round but does not fail the relay.
	res, err = f.factory.PauseRound(mgr(), addr)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, guard.ErrPaused)
	failed, ok := f.events.Last(event.RoundPauseFailed)
	require.True(t, ok)
	assert.Equal(t, addr.String(), failed.Get("round"))
	assert.Equal(t, 1, f.logs.FilterMessage("relay rejected by round").Len())

	res, err = f.factory.UnpauseRound(mgr(), addr)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.False(t, r.Paused())

	res, err = f.factory.UnpauseRound(mgr(), addr)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, guard.ErrNotPaused)
	assert.Len(t, f.events.Named(event.RoundUnpauseFailed), 1)

	_, err = f.factory.PauseRound(round.Msg{Sender: stranger}, addr)
	assert.ErrorIs(t, err, guard.ErrNotOwner)
	_, err = f.factory.UnpauseRound(mgr(), stranger)
	assert.ErrorIs(t, err, ErrUnknownRound)
}
