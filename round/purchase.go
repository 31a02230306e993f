package round

import (
	"fmt"
	"math/big"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/amount"
	"github.com/bitfsorg/libsale-go/event"
	"github.com/bitfsorg/libsale-go/merkle"
	"github.com/bitfsorg/libsale-go/token"
)

// BuyTokens spends payment of the caller's approved payment tokens and
// credits the corresponding sale tokens to the caller's position. proof is
// ignored by public rounds. It returns the sale-token amount bought.
func (r *Round) BuyTokens(msg Msg, payment *big.Int, proof []merkle.Hash) (*big.Int, error) {
	release, err := r.lock.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	buyer := msg.Sender
	if !amount.Valid(payment) || payment.Sign() == 0 {
		return nil, ErrZeroAmount
	}

	r.mu.Lock()
	tokens, err := r.checkPurchase(msg, payment, proof)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	pos, existed := r.positions[buyer]
	if !existed {
		pos = &Position{Purchased: amount.Zero(), Claimed: amount.Zero()}
		r.positions[buyer] = pos
	}
	prevPurchased, prevTotal, prevRaised := pos.Purchased, r.totalPurchased, r.totalRaised
	pos.Purchased = new(big.Int).Add(pos.Purchased, tokens)
	r.totalPurchased = new(big.Int).Add(r.totalPurchased, tokens)
	r.totalRaised = new(big.Int).Add(r.totalRaised, payment)
	paymentToken := r.paymentToken
	r.mu.Unlock()

	if err := paymentToken.TransferFrom(r.addr, buyer, r.addr, payment); err != nil {
		r.mu.Lock()
		pos.Purchased, r.totalPurchased, r.totalRaised = prevPurchased, prevTotal, prevRaised
		if !existed {
			delete(r.positions, buyer)
		}
		r.mu.Unlock()
		return nil, fmt.Errorf("round: collect payment from %s: %w", buyer, err)
	}

	r.events.Emit(event.New(event.TokensPurchased, r.addr, msg.Time).
		WithAddr("buyer", buyer).
		WithAmount("payment", payment).
		WithAmount("tokens", tokens))
	return tokens, nil
}

// checkPurchase validates a purchase and prices it; must be called with
// r.mu held.
func (r *Round) checkPurchase(msg Msg, payment *big.Int, proof []merkle.Hash) (*big.Int, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	if msg.Time >= r.purchaseWindowEnd {
		return nil, fmt.Errorf("%w: now=%d end=%d", ErrPurchaseWindowClosed, msg.Time, r.purchaseWindowEnd)
	}
	if r.finalized {
		return nil, ErrAlreadyFinalized
	}
	if err := r.pause.WhenNotPaused(); err != nil {
		return nil, err
	}
	if payment.Cmp(r.params.MinBuy) < 0 || payment.Cmp(r.params.MaxBuy) > 0 {
		return nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrAmountOutOfBounds, payment, r.params.MinBuy, r.params.MaxBuy)
	}
	if allowance := r.paymentToken.Allowance(msg.Sender, r.addr); allowance.Cmp(payment) < 0 {
		return nil, fmt.Errorf("%w: requested %v, approved %v", ErrInsufficientAllowance, payment, allowance)
	}
	if err := r.logic.authorize(r.params.MerkleRoot, msg.Sender, proof); err != nil {
		return nil, err
	}

	tokens, err := amount.TokensForPayment(payment, r.params.SalePrice)
	if err != nil {
		return nil, err
	}
	if tokens.Sign() == 0 {
		return nil, fmt.Errorf("%w: payment %v buys no tokens", ErrZeroAmount, payment)
	}
	if available := r.unsold(); tokens.Cmp(available) > 0 {
		return nil, fmt.Errorf("%w: requested %v, available %v", ErrInsufficientInventory, tokens, available)
	}
	if _, err := amount.Add(r.totalPurchased, tokens); err != nil {
		return nil, err
	}
	if _, err := amount.Add(r.totalRaised, payment); err != nil {
		return nil, err
	}
	return tokens, nil
}

// FinalizeSale closes the sale: collected payment funds go to the wallet and
// sale tokens not owed to any buyer go back to the manager.
func (r *Round) FinalizeSale(msg Msg) error {
	release, err := r.lock.Enter()
	if err != nil {
		return err
	}
	defer release()

	r.mu.Lock()
	if err := r.onlyOperator(msg.Sender); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.finalized {
		r.mu.Unlock()
		return ErrAlreadyFinalized
	}
	r.finalized = true
	wallet, manager := r.params.Wallet, r.params.Manager
	paymentToken, saleToken := r.paymentToken, r.saleToken
	raised := paymentToken.BalanceOf(r.addr)
	unsold := r.unsold()
	r.mu.Unlock()

	if err := sweep(paymentToken, r.addr, wallet, raised); err != nil {
		r.unfinalize()
		return fmt.Errorf("round: sweep payment to wallet %s: %w", wallet, err)
	}
	if err := sweep(saleToken, r.addr, manager, unsold); err != nil {
		if raised.Sign() > 0 {
			if refundErr := paymentToken.Refund(r.addr, wallet, raised); refundErr != nil {
				// Payment is already in the wallet; the sale stays finalized.
				return fmt.Errorf("round: sweep unsold tokens to manager %s: %w (payment refund failed: %w)", manager, err, refundErr)
			}
		}
		r.unfinalize()
		return fmt.Errorf("round: sweep unsold tokens to manager %s: %w", manager, err)
	}

	r.events.Emit(event.New(event.SaleFinalized, r.addr, msg.Time).
		WithAddr("wallet", wallet).
		WithAmount("raised", raised).
		WithAddr("manager", manager).
		WithAmount("unsold", unsold))
	return nil
}

func (r *Round) unfinalize() {
	r.mu.Lock()
	r.finalized = false
	r.mu.Unlock()
}

func sweep(t token.Token, from, to account.Address, v *big.Int) error {
	if v.Sign() == 0 {
		return nil
	}
	return t.Transfer(from, to, v)
}
