// Package merkle implements the whitelist membership proofs used by
// whitelisted sale rounds. Leaves are keccak256(account) and interior nodes
// hash their two children in ascending byte order, so a proof is just the
// list of sibling hashes from leaf to root.
package merkle

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/bitfsorg/libsale-go/account"
)

// HashSize is the size of every leaf, node and root.
const HashSize = 32

// Hash is a keccak256 digest.
type Hash [HashSize]byte

// IsZero reports whether h is unset.
func (h Hash) IsZero() bool { return h == Hash{} }

// Keccak256 returns the legacy (pre-NIST) keccak256 digest of data.
func Keccak256(data ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var h Hash
	copy(h[:], d.Sum(nil))
	return h
}

// LeafHash returns the whitelist leaf for an account.
func LeafHash(addr account.Address) Hash {
	return Keccak256(addr[:])
}

// hashPair hashes two nodes in ascending order.
func hashPair(a, b Hash) Hash {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return Keccak256(a[:], b[:])
	}
	return Keccak256(b[:], a[:])
}

// ComputeRoot folds a proof over a leaf and returns the implied root.
func ComputeRoot(proof []Hash, leaf Hash) Hash {
	h := leaf
	for _, sibling := range proof {
		h = hashPair(h, sibling)
	}
	return h
}

// Verify reports whether proof links leaf to root.
func Verify(proof []Hash, root, leaf Hash) bool {
	return ComputeRoot(proof, leaf) == root
}

// VerifyAccount reports whether proof shows addr is whitelisted under root.
func VerifyAccount(proof []Hash, root Hash, addr account.Address) bool {
	return Verify(proof, root, LeafHash(addr))
}

// Tree is a whitelist tree built by an operator to publish a root and hand
// out proofs. Level 0 holds the leaves; the last level holds the root.
type Tree struct {
	levels [][]Hash
	index  map[account.Address]int
	n      int
}

// NewTree builds a tree over the given accounts, in order.
// Odd levels are padded by duplicating the last node.
func NewTree(accounts []account.Address) (*Tree, error) {
	if len(accounts) == 0 {
		return nil, ErrEmptyTree
	}

	leaves := make([]Hash, len(accounts))
	index := make(map[account.Address]int, len(accounts))
	for i, a := range accounts {
		leaves[i] = LeafHash(a)
		if _, dup := index[a]; !dup {
			index[a] = i
		}
	}

	levels := [][]Hash{leaves}
	level := leaves
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level[:len(level):len(level)], level[len(level)-1])
			levels[len(levels)-1] = level
		}
		next := make([]Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = hashPair(level[i], level[i+1])
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels: levels, index: index, n: len(accounts)}, nil
}

// Root returns the tree root.
func (t *Tree) Root() Hash {
	return t.levels[len(t.levels)-1][0]
}

// Proof returns the sibling path for the leaf at position i.
func (t *Tree) Proof(i int) ([]Hash, error) {
	if i < 0 || i >= t.n {
		return nil, fmt.Errorf("%w: %d", ErrLeafIndexOutOfRange, i)
	}
	var proof []Hash
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := i ^ 1
		proof = append(proof, level[sibling])
		i /= 2
	}
	return proof, nil
}

// ProofFor returns the sibling path for an account.
func (t *Tree) ProofFor(addr account.Address) ([]Hash, error) {
	i, ok := t.index[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeafNotFound, addr)
	}
	return t.Proof(i)
}
