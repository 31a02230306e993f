package factory

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/event"
	"github.com/bitfsorg/libsale-go/round"
)

// Relay operation names.
const (
	OpSetMinClaim        = "setMinClaim"
	OpSetWallet          = "setWallet"
	OpFinalize           = "finalizeSale"
	OpTriggerClaimPeriod = "triggerClaimPeriod"
	OpPause              = "pause"
	OpUnpause            = "unpause"
)

// RelayResult reports the outcome of a soft-fail relay. Err is the round's
// error when the round rejected the call.
type RelayResult struct {
	Op    string
	Round account.Address
	Err   error
}

// OK reports whether the round accepted the call.
func (r RelayResult) OK() bool { return r.Err == nil }

// target authorizes msg and resolves the round at addr.
func (f *Factory) target(msg round.Msg, addr account.Address) (*round.Round, error) {
	if err := f.owner.OnlyOwner(msg.Sender); err != nil {
		return nil, err
	}
	r, ok := f.Round(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRound, addr)
	}
	return r, nil
}

// relay forwards a hard-fail call: any round error aborts with ErrRelayFailed.
func (f *Factory) relay(msg round.Msg, addr account.Address, op string, call func(*round.Round, round.Msg) error) error {
	r, err := f.target(msg, addr)
	if err != nil {
		return err
	}
	if err := call(r, round.Msg{Sender: f.addr, Time: msg.Time}); err != nil {
		return fmt.Errorf("%w: %s on %s: %w", ErrRelayFailed, op, addr, err)
	}
	return nil
}

// SetMinClaim relays round.SetMinClaim.
func (f *Factory) SetMinClaim(msg round.Msg, addr account.Address, v *big.Int) error {
	return f.relay(msg, addr, OpSetMinClaim, func(r *round.Round, m round.Msg) error {
		return r.SetMinClaim(m, v)
	})
}

// SetWallet relays round.SetWallet.
func (f *Factory) SetWallet(msg round.Msg, addr, wallet account.Address) error {
	return f.relay(msg, addr, OpSetWallet, func(r *round.Round, m round.Msg) error {
		return r.SetWallet(m, wallet)
	})
}

// Finalize relays round.FinalizeSale.
func (f *Factory) Finalize(msg round.Msg, addr account.Address) error {
	return f.relay(msg, addr, OpFinalize, (*round.Round).FinalizeSale)
}

// TriggerClaimPeriod relays round.TriggerClaimPeriod.
func (f *Factory) TriggerClaimPeriod(msg round.Msg, addr account.Address) error {
	return f.relay(msg, addr, OpTriggerClaimPeriod, (*round.Round).TriggerClaimPeriod)
}

// PauseRound relays round.Pause. A rejection by the round does not fail the
// call: it is reported in the result and as a RoundPauseFailed event.
// Authorization and lookup errors are still returned.
func (f *Factory) PauseRound(msg round.Msg, addr account.Address) (RelayResult, error) {
	return f.softRelay(msg, addr, OpPause, event.RoundPauseFailed, (*round.Round).Pause)
}

// UnpauseRound is PauseRound for round.Unpause.
func (f *Factory) UnpauseRound(msg round.Msg, addr account.Address) (RelayResult, error) {
	return f.softRelay(msg, addr, OpUnpause, event.RoundUnpauseFailed, (*round.Round).Unpause)
}

func (f *Factory) softRelay(msg round.Msg, addr account.Address, op, failure string, call func(*round.Round, round.Msg) error) (RelayResult, error) {
	r, err := f.target(msg, addr)
	if err != nil {
		return RelayResult{}, err
	}
	res := RelayResult{Op: op, Round: addr}
	if res.Err = call(r, round.Msg{Sender: f.addr, Time: msg.Time}); res.Err != nil {
		f.events.Emit(event.New(failure, f.addr, msg.Time).
			WithAddr("round", addr).
			With("reason", res.Err.Error()))
		f.log.Warn("relay rejected by round",
			zap.String("op", op),
			zap.Stringer("round", addr),
			zap.Error(res.Err))
	}
	return res, nil
}
