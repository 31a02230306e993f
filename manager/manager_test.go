package manager

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/amount"
	"github.com/bitfsorg/libsale-go/config"
	"github.com/bitfsorg/libsale-go/event"
	"github.com/bitfsorg/libsale-go/factory"
	"github.com/bitfsorg/libsale-go/guard"
	"github.com/bitfsorg/libsale-go/merkle"
	"github.com/bitfsorg/libsale-go/round"
	"github.com/bitfsorg/libsale-go/store"
	"github.com/bitfsorg/libsale-go/token"
)

const (
	now      = uint64(1_700_000_000)
	buyOff   = uint64(7200)
	interval = uint64(86400)
)

var (
	managerAddr = account.FromLabel("manager")
	admin       = account.FromLabel("admin")
	stranger    = account.FromLabel("stranger")
	wallet      = account.FromLabel("wallet")
	alice       = account.FromLabel("alice")
	minter      = account.FromLabel("minter")
)

type fixture struct {
	mgr      *Manager
	registry *token.MemRegistry
	sale     *token.Ledger
	payment  *token.Ledger
	events   *event.Recorder
	logs     *observer.ObservedLogs
	topUp    *MockTopUp
}

func sale(n uint64) *big.Int { return amount.Units(n, amount.SaleDecimals) }
func usdc(n uint64) *big.Int { return amount.Units(n, amount.PaymentDecimals) }

func adminMsg() round.Msg { return round.Msg{Sender: admin, Time: now} }

func newFixture(t *testing.T, treasury *big.Int, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		registry: token.NewMemRegistry(),
		sale:     token.NewLedger(account.FromLabel("SALE"), "SALE", amount.SaleDecimals),
		payment:  token.NewLedger(account.FromLabel("USDC"), "USDC", amount.PaymentDecimals),
		events:   &event.Recorder{},
		topUp: &MockTopUp{RequestTopUpFn: func(context.Context) error {
			return errors.New("no top-up configured")
		}},
	}
	require.NoError(t, f.registry.Register(f.sale))
	require.NoError(t, f.registry.Register(f.payment))
	require.NoError(t, f.sale.Mint(managerAddr, treasury))

	core, logs := observer.New(zapcore.DebugLevel)
	f.logs = logs
	opts = append([]Option{
		WithEventSink(f.events),
		WithLogger(zap.New(core)),
		WithTopUp(f.topUp),
	}, opts...)
	m, err := New(managerAddr, admin, f.registry, f.sale.Address(), f.payment.Address(), opts...)
	require.NoError(t, err)
	f.mgr = m
	return f
}

func params() round.Params {
	return round.Params{
		Wallet:        wallet,
		MinBuy:        usdc(1),
		MaxBuy:        usdc(10_000),
		SalePrice:     amount.New(2_000_000), // 2 USDC per token
		TGEPercent:    25,
		Installments:  3,
		BuyOffset:     buyOff,
		ClaimDuration: 3 * interval,
	}
}

func (f *fixture) create(t *testing.T, allocated *big.Int) store.Entry {
	t.Helper()
	e, err := f.mgr.CreateRound(context.Background(), adminMsg(), round.KindPublic, params(), allocated)
	require.NoError(t, err)
	return e
}

func TestNew_Errors(t *testing.T) {
	reg := token.NewMemRegistry()
	s := token.NewLedger(account.FromLabel("S"), "S", 18)
	p := token.NewLedger(account.FromLabel("P"), "P", 6)
	require.NoError(t, reg.Register(s))
	require.NoError(t, reg.Register(p))

	_, err := New(managerAddr, admin, reg, s.Address(), s.Address())
	assert.ErrorIs(t, err, ErrSameToken)

	_, err = New(managerAddr, admin, reg, s.Address(), stranger)
	assert.ErrorIs(t, err, ErrNotContract)

	_, err = New(managerAddr, account.Zero, reg, s.Address(), p.Address())
	assert.ErrorIs(t, err, account.ErrZeroAddress)

	used := store.NewMemRegistryStore()
	require.NoError(t, used.PutEntry(&store.Entry{Index: 0, Allocated: sale(1)}))
	_, err = New(managerAddr, admin, reg, s.Address(), p.Address(), WithStore(used))
	assert.ErrorIs(t, err, ErrStoreNotEmpty)
}

func TestCreateRound(t *testing.T) {
	f := newFixture(t, sale(10_000))

	e := f.create(t, sale(4000))
	assert.Equal(t, uint64(0), e.Index)
	assert.Equal(t, "public", e.Kind)
	assert.Equal(t, sale(4000).String(), e.Allocated.String())
	assert.Equal(t, now, e.CreatedAt)
	assert.Equal(t, account.Derive(f.mgr.Factory().Address(), 0), e.Round)

	saleBal, _ := f.mgr.Treasury()
	assert.Equal(t, sale(6000).String(), saleBal.String())
	assert.Equal(t, sale(4000).String(), f.sale.BalanceOf(e.Round).String())

	info, err := f.mgr.RoundInfo(0)
	require.NoError(t, err)
	assert.Equal(t, managerAddr, info.Manager)
	assert.Equal(t, f.sale.Address(), info.SaleToken)
	assert.Equal(t, f.payment.Address(), info.PaymentToken)
	assert.Equal(t, f.mgr.Factory().Address(), info.Operator)
	assert.Equal(t, now+buyOff, info.PurchaseWindowEnd)

	wl := params()
	wl.MerkleRoot = merkle.LeafHash(alice)
	e2, err := f.mgr.CreateRound(context.Background(), adminMsg(), round.KindWhitelisted, wl, sale(1000))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e2.Index)
	assert.Equal(t, 2, f.mgr.Count())
	assert.Len(t, f.mgr.Entries(), 2)

	funded := f.events.Named(event.RoundFunded)
	require.Len(t, funded, 2)
	assert.Equal(t, e2.Round.String(), funded[1].Get("round"))
	assert.Zero(t, f.topUp.Calls)
}

func TestCreateRound_Rejects(t *testing.T) {
	f := newFixture(t, sale(100))

	tests := []struct {
		name      string
		sender    account.Address
		kind      round.Kind
		allocated *big.Int
		wantErr   error
	}{
		{"not owner", stranger, round.KindPublic, sale(1), guard.ErrNotOwner},
		{"zero allocation", admin, round.KindPublic, amount.Zero(), ErrZeroAmount},
		{"unknown kind", admin, round.Kind(5), sale(1), round.ErrUnknownKind},
		{"whitelist without root", admin, round.KindWhitelisted, sale(1), round.ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.mgr.CreateRound(context.Background(), round.Msg{Sender: tt.sender, Time: now}, tt.kind, params(), tt.allocated)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	require.NoError(t, f.mgr.Pause(adminMsg()))
	_, err := f.mgr.CreateRound(context.Background(), adminMsg(), round.KindPublic, params(), sale(1))
	assert.ErrorIs(t, err, guard.ErrPaused)

	assert.Zero(t, f.mgr.Count())
	assert.Zero(t, f.mgr.Factory().Count())
	saleBal, _ := f.mgr.Treasury()
	assert.Equal(t, sale(100).String(), saleBal.String())
}

func TestCreateRound_TopUp(t *testing.T) {
	t.Run("top-up covers the shortfall", func(t *testing.T) {
		f := newFixture(t, sale(100))
		f.topUp.RequestTopUpFn = func(ctx context.Context) error {
			return f.sale.Mint(managerAddr, sale(900))
		}
		e := f.create(t, sale(1000))
		assert.Equal(t, 1, f.topUp.Calls)
		assert.Equal(t, sale(1000).String(), f.sale.BalanceOf(e.Round).String())

		req, ok := f.events.Last(event.TopUpRequested)
		require.True(t, ok)
		assert.Equal(t, sale(100).String(), req.Get("available"))
	})

	t.Run("top-up still short", func(t *testing.T) {
		f := newFixture(t, sale(100))
		f.topUp.RequestTopUpFn = func(ctx context.Context) error {
			return f.sale.Mint(managerAddr, sale(500))
		}
		_, err := f.mgr.CreateRound(context.Background(), adminMsg(), round.KindPublic, params(), sale(1000))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Contains(t, err.Error(), "available "+sale(600).String())
		assert.Equal(t, 1, f.topUp.Calls)
		assert.Zero(t, f.mgr.Factory().Count())
	})

	t.Run("top-up error is logged and tolerated", func(t *testing.T) {
		f := newFixture(t, sale(100))
		_, err := f.mgr.CreateRound(context.Background(), adminMsg(), round.KindPublic, params(), sale(1000))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, 1, f.topUp.Calls)
		assert.Equal(t, 1, f.logs.FilterMessage("treasury top-up failed").Len())
	})

	t.Run("no top-up source", func(t *testing.T) {
		f := newFixture(t, sale(100), WithTopUp(nil))
		_, err := f.mgr.CreateRound(context.Background(), adminMsg(), round.KindPublic, params(), sale(1000))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Zero(t, f.topUp.Calls)
	})
}

func TestCreateRound_FundingFailureRollsBack(t *testing.T) {
	f := newFixture(t, sale(1000))
	f.sale.SetHook(func(from, to account.Address, v *big.Int) error {
		return errors.New("sale token frozen")
	})

	_, err := f.mgr.CreateRound(context.Background(), adminMsg(), round.KindPublic, params(), sale(500))
	assert.ErrorIs(t, err, token.ErrTransferFailed)
	assert.Zero(t, f.mgr.Count())
	assert.Zero(t, f.mgr.Factory().Count())
	assert.False(t, f.registry.IsContract(account.Derive(f.mgr.Factory().Address(), 0)))
	assert.Empty(t, f.events.Named(event.RoundFunded))
	assert.Empty(t, f.events.Named(event.RoundCreated))
	assert.Empty(t, f.events.Named(event.RoundInitialized))
	assert.Empty(t, f.events.Named(event.RoundDiscarded))

	f.sale.SetHook(nil)
	e := f.create(t, sale(500))
	assert.Equal(t, uint64(0), e.Index)
	assert.Equal(t, account.Derive(f.mgr.Factory().Address(), 0), e.Round)

	// The address appears in exactly one creation.
	require.Len(t, f.events.Named(event.RoundCreated), 1)
	require.Len(t, f.events.Named(event.RoundInitialized), 1)
	var names []string
	for _, ev := range f.events.Events() {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{event.RoundInitialized, event.RoundCreated, event.RoundFunded}, names)
}

func TestCreateRound_DefaultMinClaim(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MinClaim = "2.5"
	minClaim, err := cfg.MinClaimAmount()
	require.NoError(t, err)

	f := newFixture(t, sale(1000), WithDefaultMinClaim(minClaim))
	f.create(t, sale(500))
	info, err := f.mgr.RoundInfo(0)
	require.NoError(t, err)
	assert.Equal(t, amount.Units(25, amount.SaleDecimals-1).String(), info.MinClaim.String())

	updated, ok := f.events.Last(event.MinClaimUpdated)
	require.True(t, ok)
	assert.Equal(t, minClaim.String(), updated.Get("minClaim"))

	// A failed creation does not leak the held update.
	f.sale.SetHook(func(from, to account.Address, v *big.Int) error {
		return errors.New("sale token frozen")
	})
	_, err = f.mgr.CreateRound(context.Background(), adminMsg(), round.KindPublic, params(), sale(100))
	assert.ErrorIs(t, err, token.ErrTransferFailed)
	assert.Len(t, f.events.Named(event.MinClaimUpdated), 1)

	_, err = New(account.FromLabel("manager-2"), admin, f.registry, f.sale.Address(), f.payment.Address(),
		WithDefaultMinClaim(big.NewInt(-1)))
	assert.ErrorIs(t, err, amount.ErrInvalidAmount)
}

// flakyStore fails PutEntry while failPut is set.
type flakyStore struct {
	store.RegistryStore
	failPut bool
}

func (s *flakyStore) PutEntry(e *store.Entry) error {
	if s.failPut {
		return errors.New("disk full")
	}
	return s.RegistryStore.PutEntry(e)
}

func TestFinalizeRound_StoreFailure(t *testing.T) {
	fs := &flakyStore{RegistryStore: store.NewMemRegistryStore()}
	f := newFixture(t, sale(1000), WithStore(fs))
	f.create(t, sale(500))

	fs.failPut = true
	err := f.mgr.FinalizeRound(adminMsg(), 0)
	require.Error(t, err)
	entry, err := f.mgr.Entry(0)
	require.NoError(t, err)
	assert.False(t, entry.Finalized)
	stored, err := fs.GetEntry(0)
	require.NoError(t, err)
	assert.False(t, stored.Finalized)
	assert.Equal(t, 1, f.logs.FilterMessage("persist finalized entry failed").Len())

	// The round itself is finalized; a retry persists the entry.
	r, err := f.mgr.Round(0)
	require.NoError(t, err)
	assert.Equal(t, round.StateFinalized, r.State())

	fs.failPut = false
	require.NoError(t, f.mgr.FinalizeRound(adminMsg(), 0))
	entry, err = f.mgr.Entry(0)
	require.NoError(t, err)
	assert.True(t, entry.Finalized)
	stored, err = fs.GetEntry(0)
	require.NoError(t, err)
	assert.True(t, stored.Finalized)

	err = f.mgr.FinalizeRound(adminMsg(), 0)
	assert.ErrorIs(t, err, round.ErrAlreadyFinalized)
}

func TestCreateRound_ReentrancyRejected(t *testing.T) {
	f := newFixture(t, sale(1000))
	var inner error
	f.sale.SetHook(func(from, to account.Address, v *big.Int) error {
		_, inner = f.mgr.WithdrawSaleToken(adminMsg(), admin)
		return nil
	})
	f.create(t, sale(500))
	assert.ErrorIs(t, inner, guard.ErrReentrantCall)
	saleBal, _ := f.mgr.Treasury()
	assert.Equal(t, sale(500).String(), saleBal.String())
}

func TestRoundLifecycle(t *testing.T) {
	f := newFixture(t, sale(1000))
	e := f.create(t, sale(1000))
	r, err := f.mgr.Round(0)
	require.NoError(t, err)

	require.NoError(t, f.payment.Mint(alice, usdc(600)))
	require.NoError(t, f.payment.Approve(alice, e.Round, usdc(600)))
	bought, err := r.BuyTokens(round.Msg{Sender: alice, Time: now + 1}, usdc(600), nil)
	require.NoError(t, err)
	assert.Equal(t, sale(300).String(), bought.String())

	require.NoError(t, f.mgr.SetMinClaimForRound(adminMsg(), 0, sale(1)))
	newWallet := account.FromLabel("new-wallet")
	require.NoError(t, f.mgr.SetWalletForRound(adminMsg(), 0, newWallet))

	end := now + buyOff
	require.NoError(t, f.mgr.FinalizeRound(round.Msg{Sender: admin, Time: end}, 0))
	entry, err := f.mgr.Entry(0)
	require.NoError(t, err)
	assert.True(t, entry.Finalized)
	assert.Equal(t, usdc(600).String(), f.payment.BalanceOf(newWallet).String())
	saleBal, _ := f.mgr.Treasury()
	assert.Equal(t, sale(700).String(), saleBal.String())

	err = f.mgr.FinalizeRound(round.Msg{Sender: admin, Time: end}, 0)
	assert.ErrorIs(t, err, factory.ErrRelayFailed)
	assert.ErrorIs(t, err, round.ErrAlreadyFinalized)

	require.NoError(t, f.mgr.TriggerClaimPeriod(round.Msg{Sender: admin, Time: end}, 0))
	got, err := r.Claim(round.Msg{Sender: alice, Time: end})
	require.NoError(t, err)
	assert.Equal(t, sale(75).String(), got.String())

	res, err := f.mgr.PauseRound(adminMsg(), 0)
	require.NoError(t, err)
	assert.True(t, res.OK())
	res, err = f.mgr.PauseRound(adminMsg(), 0)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, guard.ErrPaused)
	assert.Len(t, f.events.Named(event.RoundPauseFailed), 1)

	res, err = f.mgr.UnpauseRound(adminMsg(), 0)
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestRoundAdmin_Rejects(t *testing.T) {
	f := newFixture(t, sale(1000))
	f.create(t, sale(100))

	assert.ErrorIs(t, f.mgr.FinalizeRound(round.Msg{Sender: stranger}, 0), guard.ErrNotOwner)
	assert.ErrorIs(t, f.mgr.TriggerClaimPeriod(adminMsg(), 3), ErrUnknownIndex)
	assert.ErrorIs(t, f.mgr.SetWalletForRound(adminMsg(), 1, wallet), ErrUnknownIndex)
	_, err := f.mgr.PauseRound(round.Msg{Sender: stranger}, 0)
	assert.ErrorIs(t, err, guard.ErrNotOwner)
	_, err = f.mgr.Entry(7)
	assert.ErrorIs(t, err, ErrUnknownIndex)
	_, err = f.mgr.RoundInfo(7)
	assert.ErrorIs(t, err, ErrUnknownIndex)

	err = f.mgr.TriggerClaimPeriod(adminMsg(), 0)
	assert.ErrorIs(t, err, factory.ErrRelayFailed)
	assert.ErrorIs(t, err, round.ErrNotFinalized)
}

func TestSetTokens(t *testing.T) {
	f := newFixture(t, sale(1000))
	next := token.NewLedger(account.FromLabel("SALE2"), "SALE2", amount.SaleDecimals)
	require.NoError(t, f.registry.Register(next))

	assert.ErrorIs(t, f.mgr.SetSaleToken(adminMsg(), next.Address()), guard.ErrNotPaused)
	require.NoError(t, f.mgr.Pause(adminMsg()))

	tests := []struct {
		name    string
		sender  account.Address
		addr    account.Address
		wantErr error
	}{
		{"not owner", stranger, next.Address(), guard.ErrNotOwner},
		{"zero", admin, account.Zero, account.ErrZeroAddress},
		{"not deployed", admin, stranger, ErrNotContract},
		{"current sale token", admin, f.sale.Address(), ErrSameToken},
		{"current payment token", admin, f.payment.Address(), ErrSameToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.mgr.SetSaleToken(round.Msg{Sender: tt.sender, Time: now}, tt.addr)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, f.sale.Address(), f.mgr.SaleToken())
		})
	}

	require.NoError(t, f.mgr.SetSaleToken(adminMsg(), next.Address()))
	assert.Equal(t, next.Address(), f.mgr.SaleToken())
	assert.ErrorIs(t, f.mgr.SetPaymentToken(adminMsg(), next.Address()), ErrSameToken)

	updated, ok := f.events.Last(event.TokenUpdated)
	require.True(t, ok)
	assert.Equal(t, "sale", updated.Get("role"))

	// New rounds use the new token.
	require.NoError(t, f.mgr.Unpause(adminMsg()))
	require.NoError(t, next.Mint(managerAddr, sale(50)))
	e := f.create(t, sale(50))
	info, err := f.mgr.RoundInfo(e.Index)
	require.NoError(t, err)
	assert.Equal(t, next.Address(), info.SaleToken)
}

func TestWithdrawAndRescue(t *testing.T) {
	f := newFixture(t, sale(1000))
	require.NoError(t, f.payment.Mint(managerAddr, usdc(40)))
	other := token.NewLedger(account.FromLabel("DUST"), "DUST", 8)
	require.NoError(t, f.registry.Register(other))
	require.NoError(t, other.Mint(managerAddr, amount.New(12345)))

	_, err := f.mgr.WithdrawPayment(round.Msg{Sender: stranger}, stranger)
	assert.ErrorIs(t, err, guard.ErrNotOwner)
	_, err = f.mgr.WithdrawPayment(adminMsg(), account.Zero)
	assert.ErrorIs(t, err, account.ErrZeroAddress)

	require.NoError(t, f.mgr.Pause(adminMsg()))
	_, err = f.mgr.WithdrawPayment(adminMsg(), admin)
	assert.ErrorIs(t, err, guard.ErrPaused)
	_, err = f.mgr.WithdrawSaleToken(adminMsg(), admin)
	assert.ErrorIs(t, err, guard.ErrPaused)

	// Rescue works while paused.
	vault := account.FromLabel("vault")
	got, err := f.mgr.RescueToken(adminMsg(), other.Address(), vault)
	require.NoError(t, err)
	assert.Equal(t, "12345", got.String())
	assert.Equal(t, "12345", other.BalanceOf(vault).String())
	_, err = f.mgr.RescueToken(adminMsg(), other.Address(), vault)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
	_, err = f.mgr.RescueToken(adminMsg(), stranger, vault)
	assert.ErrorIs(t, err, ErrNotContract)
	require.NoError(t, f.mgr.Unpause(adminMsg()))

	got, err = f.mgr.WithdrawPayment(adminMsg(), admin)
	require.NoError(t, err)
	assert.Equal(t, usdc(40).String(), got.String())
	got, err = f.mgr.WithdrawSaleToken(adminMsg(), vault)
	require.NoError(t, err)
	assert.Equal(t, sale(1000).String(), got.String())

	saleBal, payBal := f.mgr.Treasury()
	assert.Equal(t, "0", saleBal.String())
	assert.Equal(t, "0", payBal.String())
	assert.Equal(t, usdc(40).String(), f.payment.BalanceOf(admin).String())
	assert.Equal(t, sale(1000).String(), f.sale.BalanceOf(vault).String())

	_, err = f.mgr.WithdrawPayment(adminMsg(), admin)
	assert.ErrorIs(t, err, ErrNothingToWithdraw)
	assert.Len(t, f.events.Named(event.TreasuryWithdrawn), 2)
	assert.Len(t, f.events.Named(event.TokenRescued), 1)
}

func TestOwnershipAndPause(t *testing.T) {
	f := newFixture(t, sale(10))
	assert.ErrorIs(t, f.mgr.Pause(round.Msg{Sender: stranger}), guard.ErrNotOwner)
	require.NoError(t, f.mgr.Pause(adminMsg()))
	assert.True(t, f.mgr.Paused())
	assert.ErrorIs(t, f.mgr.Pause(adminMsg()), guard.ErrPaused)
	require.NoError(t, f.mgr.Unpause(adminMsg()))
	assert.ErrorIs(t, f.mgr.Unpause(adminMsg()), guard.ErrNotPaused)

	require.NoError(t, f.mgr.TransferOwnership(adminMsg(), stranger))
	assert.Equal(t, stranger, f.mgr.Owner())
	assert.ErrorIs(t, f.mgr.Pause(adminMsg()), guard.ErrNotOwner)
}

func TestBoltPersistence(t *testing.T) {
	db, err := store.OpenBoltStore(filepath.Join(t.TempDir(), "sale.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	f := newFixture(t, sale(1000),
		WithStore(db.Registry()),
		WithEventSink(event.Multi{db.Events(), &event.Recorder{}}))
	f.create(t, sale(400))
	require.NoError(t, f.mgr.FinalizeRound(round.Msg{Sender: admin, Time: now + buyOff}, 0))

	stored, err := db.Registry().GetEntry(0)
	require.NoError(t, err)
	assert.True(t, stored.Finalized)
	assert.Equal(t, sale(400).String(), stored.Allocated.String())

	logged, err := db.Events().ListEvents()
	require.NoError(t, err)
	names := make([]string, len(logged))
	for i, e := range logged {
		names[i] = e.Name
	}
	assert.Contains(t, names, event.RoundCreated)
	assert.Contains(t, names, event.RoundFunded)
	assert.Contains(t, names, event.SaleFinalized)
}

func TestRescueToken_TransferFailure(t *testing.T) {
	f := newFixture(t, sale(10))
	stuck := &token.MockToken{
		Addr:        account.FromLabel("STUCK"),
		BalanceOfFn: func(account.Address) *big.Int { return amount.New(77) },
		TransferFn: func(from, to account.Address, v *big.Int) error {
			return token.ErrTransferFailed
		},
	}
	require.NoError(t, f.registry.Register(stuck))

	_, err := f.mgr.RescueToken(adminMsg(), stuck.Addr, admin)
	assert.ErrorIs(t, err, token.ErrTransferFailed)
	assert.Empty(t, f.events.Named(event.TokenRescued))
}
