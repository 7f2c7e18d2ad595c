package shachain

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Producer is an interface which serves as an abstraction over the data
// structure responsible for the efficient generation of the secrets a
// channel discloses, one per commitment, as part of the revocation
// protocol. The secret for commitment n must never be computable from the
// secrets of commitments below n; only the holder of the chain root can
// reach every index directly.
type Producer interface {
	// AtIndex produces the secret for the given commitment index.
	AtIndex(uint64) (*chainhash.Hash, error)

	// Encode writes a binary serialization of the producer to the passed
	// io.Writer, sufficient to reconstruct it with
	// NewRevocationProducerFromBytes.
	Encode(io.Writer) error
}

// RevocationProducer is a concrete implementation of the Producer
// interface: a deterministic function from (root, commitment index) to
// secret, carrying no mutable state. The secret for commitment n is the
// element at internal index 2^48-1-n, reached from the root by one
// flip-and-hash step per set bit of that index, most significant bit first.
type RevocationProducer struct {
	// root is the element from which every secret of the chain is
	// derived.
	root element
}

// A compile time check to ensure RevocationProducer implements the Producer
// interface.
var _ Producer = (*RevocationProducer)(nil)

// NewRevocationProducer creates a new shachain producer from the given
// 32 byte chain root.
func NewRevocationProducer(root chainhash.Hash) *RevocationProducer {
	return &RevocationProducer{
		root: element{
			index: rootIndex,
			hash:  root,
		},
	}
}

// NewRevocationProducerFromBytes deserializes a producer previously written
// with Encode.
func NewRevocationProducerFromBytes(r io.Reader) (*RevocationProducer, error) {
	var root chainhash.Hash
	if _, err := io.ReadFull(r, root[:]); err != nil {
		return nil, err
	}

	return NewRevocationProducer(root), nil
}

// AtIndex produces the secret for the given commitment index. Computation
// is O(log index) hash operations, and the result for a fixed index is
// independent of any other call made before or after.
//
// NOTE: This is part of the Producer interface.
func (p *RevocationProducer) AtIndex(v uint64) (*chainhash.Hash, error) {
	ind, err := newIndex(v)
	if err != nil {
		return nil, err
	}

	secret, err := p.root.derive(ind)
	if err != nil {
		return nil, err
	}

	return &secret.hash, nil
}

// Encode writes the chain root to the passed io.Writer.
//
// NOTE: This is part of the Producer interface.
func (p *RevocationProducer) Encode(w io.Writer) error {
	_, err := w.Write(p.root.hash[:])
	return err
}
