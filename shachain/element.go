package shachain

import (
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// maxHeight is the depth of the shachain tree, and therefore the
	// number of bits in an element index. It bounds both the maximum
	// commitment index (2^48 - 1) and the number of buckets a store
	// needs to retain every previous secret.
	maxHeight uint8 = 48

	// rootIndex is the index of the element the whole chain is derived
	// from. Every other index has it as a prefix.
	rootIndex index = 0
)

// startIndex is the index of the first element produced by the chain.
// Indices count down from here with every successive commitment.
var startIndex index = (1 << maxHeight) - 1

// ErrIndexOutOfRange is returned when a caller asks for a commitment index
// at or beyond 2^48, outside the chain's domain.
var ErrIndexOutOfRange = errors.New("commitment index must be below 2^48")

// ErrNotDerivable is returned when one element cannot be computed from
// another. Derivability is one directional: an element is reachable only
// from ancestors whose index is a zero-padded prefix of its own, which is
// exactly the property that keeps disclosed secrets from revealing future
// ones.
var ErrNotDerivable = errors.New("prefixes are different - indexes aren't " +
	"derivable")

// index identifies one element of the shachain and encodes, through its bit
// pattern, the hashing operations required to derive descendants from it.
type index uint64

// newIndex maps a commitment number, which counts up from zero, onto the
// internal index space, which counts down from startIndex.
func newIndex(v uint64) (index, error) {
	if v > uint64(startIndex) {
		return 0, ErrIndexOutOfRange
	}

	return startIndex - index(v), nil
}

// getBit returns the index bit at the given position.
func (i index) getBit(position uint8) uint8 {
	return uint8((uint64(i) >> position) & 1)
}

// getPrefix zeroes every index bit below the given position.
func (i index) getPrefix(position uint8) uint64 {
	mask := ^uint64(0) << position
	return uint64(i) & mask
}

// trailingZeros counts the number of trailing zero bits, capped at the tree
// height. It names the bucket an element belongs to in a store.
func (i index) trailingZeros() uint8 {
	var zeros uint8
	for ; zeros < maxHeight; zeros++ {
		if i.getBit(zeros) != 0 {
			break
		}
	}

	return zeros
}

// bitTransformations checks that 'to' is derivable from the receiver, which
// holds iff the receiver's non-zero bits are a prefix of 'to', and returns
// the positions of the bits that must be flipped, most significant first,
// to walk from one to the other.
func (from index) bitTransformations(to index) ([]uint8, error) {
	if from == to {
		return nil, nil
	}

	zeros := from.trailingZeros()
	if uint64(from) != to.getPrefix(zeros) {
		return nil, ErrNotDerivable
	}

	// The low bits of 'to' below the receiver's first set bit spell out
	// the derivation steps.
	var positions []uint8
	for position := zeros - 1; ; position-- {
		if to.getBit(position) == 1 {
			positions = append(positions, position)
		}

		if position == 0 {
			break
		}
	}

	return positions, nil
}

// element is one output of the shachain PRF: a hash paired with the index
// that locates it in the tree.
type element struct {
	index index
	hash  chainhash.Hash
}

// derive computes the element at toIndex from the receiver by flipping one
// bit of the running hash per derivation step and re-hashing. The result
// depends only on the two indexes and the receiver's hash, never on call
// order.
func (e *element) derive(toIndex index) (*element, error) {
	positions, err := e.index.bitTransformations(toIndex)
	if err != nil {
		return nil, err
	}

	buf := e.hash.CloneBytes()
	for _, position := range positions {
		byteNumber := position / 8
		bitNumber := position % 8

		buf[byteNumber] ^= 1 << bitNumber

		h := sha256.Sum256(buf)
		buf = h[:]
	}

	hash, err := chainhash.NewHash(buf)
	if err != nil {
		return nil, err
	}

	return &element{
		index: toIndex,
		hash:  *hash,
	}, nil
}

// isEqual returns true if two elements are identical and false otherwise.
func (e *element) isEqual(other *element) bool {
	return e.index == other.index && e.hash.IsEqual(&other.hash)
}
