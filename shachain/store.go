package shachain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Store is an interface which serves as an abstraction over the data
// structure responsible for efficiently storing and restoring the secrets
// a channel counterparty discloses, one per revoked commitment. A remote
// node hands us a chain of unguessable 256 bit values one at a time; we
// keep only the handful of elements everything older is derivable from
// instead of storing the full chain.
type Store interface {
	// LookUp restores/fetches the previously disclosed secret by its
	// commitment index.
	LookUp(uint64) (*chainhash.Hash, error)

	// AddNextEntry attempts to store the given secret.
	//
	// NOTE: The secrets produced by a shachain Producer MUST be inserted
	// in the order they were produced.
	AddNextEntry(*chainhash.Hash) error

	// Encode writes a binary serialization of the store's current state
	// to the passed io.Writer.
	Encode(io.Writer) error
}

// ErrUnderivableSecret is returned when an inserted secret fails the
// consistency check against the elements already retained, meaning the
// counterparty handed us a chain that contradicts itself.
var ErrUnderivableSecret = errors.New("secret isn't derivable from " +
	"previous ones")

// RevocationStore is a concrete implementation of the Store interface. It
// retains at most one element per bucket, where an element's bucket is the
// number of trailing zeros in its index, giving O(log N) space for N
// inserted secrets while still being able to rederive every older one.
type RevocationStore struct {
	// lenBuckets is the number of currently active buckets.
	lenBuckets uint8

	// buckets holds the retained elements, bucket i carrying the most
	// recent element whose index has exactly i trailing zeros.
	buckets [maxHeight]element

	// index is the internal index the next inserted secret must carry.
	index index
}

// A compile time check to ensure RevocationStore implements the Store
// interface.
var _ Store = (*RevocationStore)(nil)

// NewRevocationStore creates a new shachain store.
func NewRevocationStore() *RevocationStore {
	return &RevocationStore{
		lenBuckets: 0,
		index:      startIndex,
	}
}

// NewRevocationStoreFromBytes recreates a store from the binary
// serialization produced by Encode.
func NewRevocationStoreFromBytes(r io.Reader) (*RevocationStore, error) {
	store := &RevocationStore{}

	err := binary.Read(r, binary.BigEndian, &store.lenBuckets)
	if err != nil {
		return nil, err
	}

	for i := uint8(0); i < store.lenBuckets; i++ {
		var hashIndex index
		err := binary.Read(r, binary.BigEndian, &hashIndex)
		if err != nil {
			return nil, err
		}

		var nextHash chainhash.Hash
		if _, err := io.ReadFull(r, nextHash[:]); err != nil {
			return nil, err
		}

		store.buckets[i] = element{
			index: hashIndex,
			hash:  nextHash,
		}
	}

	if err := binary.Read(r, binary.BigEndian, &store.index); err != nil {
		return nil, err
	}

	return store, nil
}

// LookUp restores/fetches the previously disclosed secret by its commitment
// index. If the secret at the given index was never inserted, it cannot be
// derived and the lookup fails.
//
// NOTE: This function is part of the Store interface.
func (store *RevocationStore) LookUp(v uint64) (*chainhash.Hash, error) {
	ind, err := newIndex(v)
	if err != nil {
		return nil, err
	}

	// Walk the buckets until we find an element the requested index is
	// derivable from.
	for i := uint8(0); i < store.lenBuckets; i++ {
		e, err := store.buckets[i].derive(ind)
		if err != nil {
			continue
		}

		return &e.hash, nil
	}

	return nil, fmt.Errorf("unable to derive secret #%v", v)
}

// AddNextEntry attempts to store the given secret, after verifying that
// every element it supersedes is derivable from it. A failed check leaves
// the store unchanged.
//
// NOTE: The secrets produced by a shachain Producer MUST be inserted in the
// order they were produced.
//
// NOTE: This function is part of the Store interface.
func (store *RevocationStore) AddNextEntry(hash *chainhash.Hash) error {
	newElement := &element{
		index: store.index,
		hash:  *hash,
	}

	bucket := newElement.index.trailingZeros()

	// The new element replaces every lower bucket, so each of them must
	// be rederivable from it, otherwise the chain is corrupt.
	for i := uint8(0); i < bucket; i++ {
		e, err := newElement.derive(store.buckets[i].index)
		if err != nil {
			return err
		}

		if !e.isEqual(&store.buckets[i]) {
			return ErrUnderivableSecret
		}
	}

	store.buckets[bucket] = *newElement
	if bucket+1 > store.lenBuckets {
		store.lenBuckets = bucket + 1
	}

	store.index--
	return nil
}

// Encode writes a binary serialization of the store's current state to the
// passed io.Writer.
//
// NOTE: This function is part of the Store interface.
func (store *RevocationStore) Encode(w io.Writer) error {
	err := binary.Write(w, binary.BigEndian, store.lenBuckets)
	if err != nil {
		return err
	}

	for i := uint8(0); i < store.lenBuckets; i++ {
		e := store.buckets[i]

		if err := binary.Write(w, binary.BigEndian, e.index); err != nil {
			return err
		}

		if _, err := w.Write(e.hash[:]); err != nil {
			return err
		}
	}

	return binary.Write(w, binary.BigEndian, store.index)
}
