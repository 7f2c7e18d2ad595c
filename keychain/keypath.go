package keychain

import (
	"fmt"
	"strings"
)

// HardenedKeyStart is the index at which hardened derivation begins. Indices
// with this bit set require the parent private key and cannot be derived
// from an extended public key.
const HardenedKeyStart uint32 = 0x80000000

// KeyPath is an ordered sequence of BIP-0032 derivation indices. Two paths
// are equal iff their indices are equal elementwise and in order. A KeyPath
// is a plain value; provenance (funder outpoint vs fundee script) is
// documentation only and never participates in derivation.
type KeyPath []uint32

// HardenedKey returns the given index with the hardened bit set.
func HardenedKey(index uint32) uint32 {
	return index | HardenedKeyStart
}

// IsHardened reports whether the given index selects hardened derivation.
func IsHardened(index uint32) bool {
	return index&HardenedKeyStart != 0
}

// Extend returns a new path with the given indices appended. The receiver is
// never mutated, so derived paths can be shared freely across goroutines.
func (p KeyPath) Extend(indices ...uint32) KeyPath {
	path := make(KeyPath, 0, len(p)+len(indices))
	path = append(path, p...)
	return append(path, indices...)
}

// Equal reports elementwise equality of the two paths.
func (p KeyPath) Equal(other KeyPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i, index := range p {
		if other[i] != index {
			return false
		}
	}

	return true
}

// String renders the path in the conventional m/i/i'/... notation, with an
// apostrophe marking hardened indices.
func (p KeyPath) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, index := range p {
		if IsHardened(index) {
			fmt.Fprintf(&b, "/%d'", index&^HardenedKeyStart)
		} else {
			fmt.Fprintf(&b, "/%d", index)
		}
	}

	return b.String()
}
