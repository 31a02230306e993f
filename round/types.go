package round

import (
	"fmt"
	"math/big"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/amount"
	"github.com/bitfsorg/libsale-go/merkle"
	"github.com/bitfsorg/libsale-go/vesting"
)

// Kind selects the round template.
type Kind uint8

const (
	// KindPublic accepts any buyer.
	KindPublic Kind = iota
	// KindWhitelisted accepts buyers with a valid merkle proof.
	KindWhitelisted
)

func (k Kind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindWhitelisted:
		return "whitelisted"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps "public" / "whitelisted" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "public":
		return KindPublic, nil
	case "whitelisted":
		return KindWhitelisted, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Msg is the calling context of one operation: who calls, and the clock
// reading every time check in that call is evaluated against.
type Msg struct {
	Sender account.Address
	Time   uint64
}

// Params are the creation parameters of a round. They are fixed at
// initialization except for Wallet, which the operator may replace.
type Params struct {
	Wallet       account.Address // receives collected payment funds
	Manager      account.Address // receives unsold sale tokens
	SaleToken    account.Address
	PaymentToken account.Address

	MinBuy    *big.Int // payment units, inclusive
	MaxBuy    *big.Int // payment units, inclusive
	SalePrice *big.Int // payment units per whole token, scaled by 10^6

	TGEPercent   uint64
	Installments uint64

	BuyOffset     uint64 // seconds from initialization to purchase window end
	LockDuration  uint64 // seconds
	ClaimDuration uint64 // seconds

	MerkleRoot merkle.Hash // whitelisted rounds only
}

// Copy returns p with its amounts deep-copied.
func (p Params) Copy() Params {
	p.MinBuy = amount.Copy(p.MinBuy)
	p.MaxBuy = amount.Copy(p.MaxBuy)
	p.SalePrice = amount.Copy(p.SalePrice)
	return p
}

// Validate checks everything that does not need the token registry.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		addr account.Address
	}{
		{"wallet", p.Wallet},
		{"manager", p.Manager},
		{"sale token", p.SaleToken},
		{"payment token", p.PaymentToken},
	} {
		if err := account.Require(f.name, f.addr); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
	}
	if !amount.Valid(p.MinBuy) || !amount.Valid(p.MaxBuy) {
		return fmt.Errorf("%w: purchase bounds must be set", ErrInvalidParams)
	}
	if p.MinBuy.Cmp(p.MaxBuy) > 0 {
		return fmt.Errorf("%w: minBuy %v exceeds maxBuy %v", ErrInvalidParams, p.MinBuy, p.MaxBuy)
	}
	if !amount.Valid(p.SalePrice) || p.SalePrice.Sign() == 0 {
		return fmt.Errorf("%w: sale price must be positive", ErrInvalidParams)
	}
	sched := vesting.NewSchedule(p.TGEPercent, p.Installments, 0, p.ClaimDuration)
	if err := sched.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// State is the lifecycle position of a round. Paused is reported separately.
type State uint8

const (
	StateCreated State = iota
	StateOpen
	StateFinalized
	StateClaimTriggered
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpen:
		return "open"
	case StateFinalized:
		return "finalized"
	case StateClaimTriggered:
		return "claim-triggered"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Position is one account's ledger inside a round.
type Position struct {
	Purchased  *big.Int `json:"purchased"`
	Claimed    *big.Int `json:"claimed"`
	TGEClaimed bool     `json:"tgeClaimed"`
	LastClaim  uint64   `json:"lastClaimTimestamp"`
}

func (p *Position) copy() Position {
	return Position{
		Purchased:  amount.Copy(p.Purchased),
		Claimed:    amount.Copy(p.Claimed),
		TGEClaimed: p.TGEClaimed,
		LastClaim:  p.LastClaim,
	}
}

// Info is the read model of a round.
type Info struct {
	Address             account.Address `json:"address"`
	Kind                string          `json:"kind"`
	State               string          `json:"state"`
	Operator            account.Address `json:"operator"`
	Manager             account.Address `json:"manager"`
	Wallet              account.Address `json:"wallet"`
	SaleToken           account.Address `json:"saleToken"`
	PaymentToken        account.Address `json:"paymentToken"`
	MinBuy              *big.Int        `json:"minBuy"`
	MaxBuy              *big.Int        `json:"maxBuy"`
	SalePrice           *big.Int        `json:"salePrice"`
	MinClaim            *big.Int        `json:"minClaim"`
	PurchaseWindowEnd   uint64          `json:"purchaseWindowEnd"`
	ClaimWindowStart    uint64          `json:"claimWindowStart"`
	ClaimWindowEnd      uint64          `json:"claimWindowEnd"`
	InstallmentInterval uint64          `json:"installmentInterval"`
	TokenBalance        *big.Int        `json:"tokenBalance"`
	TotalPurchased      *big.Int        `json:"totalPurchased"`
	TotalRaised         *big.Int        `json:"totalRaised"`
	TotalClaimed        *big.Int        `json:"totalClaimed"`
	Finalized           bool            `json:"isFinalized"`
	ClaimTriggered      bool            `json:"claimPeriodTriggered"`
	Paused              bool            `json:"paused"`
}
