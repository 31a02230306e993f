package round

import (
	"fmt"

	"github.com/bitfsorg/libsale-go/account"
	"github.com/bitfsorg/libsale-go/merkle"
)

// Logic is the behavior shared by every round of one kind. The two
// templates are immutable singletons; a Round holds its own state and a
// reference to one of them.
type Logic interface {
	Kind() Kind

	// validate checks kind-specific parameters.
	validate(p Params) error

	// authorize gates a purchase by buyer.
	authorize(root merkle.Hash, buyer account.Address, proof []merkle.Hash) error
}

var (
	// PublicTemplate is the logic of public rounds.
	PublicTemplate Logic = publicLogic{}

	// WhitelistTemplate is the logic of merkle-whitelisted rounds.
	WhitelistTemplate Logic = whitelistLogic{}
)

// TemplateFor returns the template of kind.
func TemplateFor(kind Kind) (Logic, error) {
	switch kind {
	case KindPublic:
		return PublicTemplate, nil
	case KindWhitelisted:
		return WhitelistTemplate, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

type publicLogic struct{}

func (publicLogic) Kind() Kind { return KindPublic }

func (publicLogic) validate(Params) error { return nil }

func (publicLogic) authorize(merkle.Hash, account.Address, []merkle.Hash) error { return nil }

type whitelistLogic struct{}

func (whitelistLogic) Kind() Kind { return KindWhitelisted }

func (whitelistLogic) validate(p Params) error {
	if p.MerkleRoot.IsZero() {
		return fmt.Errorf("%w: whitelisted round needs a merkle root", ErrInvalidParams)
	}
	return nil
}

func (whitelistLogic) authorize(root merkle.Hash, buyer account.Address, proof []merkle.Hash) error {
	if !merkle.VerifyAccount(proof, root, buyer) {
		return fmt.Errorf("%w: %s", ErrNotWhitelisted, buyer)
	}
	return nil
}
