package account

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

// AddressLen is the byte length of an account address.
const AddressLen = 20

// Address identifies an account, a token contract or a round instance.
type Address [AddressLen]byte

// Zero is the all-zero address.
var Zero Address

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool { return a == Zero }

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLen)
	copy(b, a[:])
	return b
}

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a hex address with or without the 0x prefix.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return a, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	if len(b) != AddressLen {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressLen, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is ParseAddress for constants; it panics on bad input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic("account: " + err.Error())
	}
	return a
}

// FromPublicKey returns HASH160(compressed pubkey), the address that owns
// the key.
func FromPublicKey(pub *ec.PublicKey) (Address, error) {
	var a Address
	if pub == nil {
		return a, ErrNilPublicKey
	}
	copy(a[:], bsvhash.Hash160(pub.Compressed()))
	return a, nil
}

// Derive returns the deterministic address of the nonce-th instance created
// by creator: HASH160(creator || be64(nonce)).
func Derive(creator Address, nonce uint64) Address {
	buf := make([]byte, AddressLen+8)
	copy(buf, creator[:])
	binary.BigEndian.PutUint64(buf[AddressLen:], nonce)
	var a Address
	copy(a[:], bsvhash.Hash160(buf))
	return a
}

// FromLabel derives a stable address from a human label. It is meant for
// fixtures and local deployments, never for key-owned accounts.
func FromLabel(label string) Address {
	var a Address
	copy(a[:], bsvhash.Hash160([]byte(label)))
	return a
}

// Require returns ErrZeroAddress (naming the field) when a is zero.
func Require(field string, a Address) error {
	if a.IsZero() {
		return fmt.Errorf("%w: %s", ErrZeroAddress, field)
	}
	return nil
}
