package keychain

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"errors"
	"math"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// MinSeedBytes is the smallest seed we'll accept when initializing a
	// master extended key, per BIP-0032 (128 bits).
	MinSeedBytes = 16

	// MaxSeedBytes is the largest seed we'll accept when initializing a
	// master extended key, per BIP-0032 (512 bits).
	MaxSeedBytes = 64
)

// masterHMACKey is the HMAC key used to expand a raw seed into the master
// private key and chain code. This value is fixed by BIP-0032 and must never
// change, otherwise all previously derived keys become unreachable.
var masterHMACKey = []byte("Bitcoin seed")

var (
	// ErrInvalidSeedLen is returned when the seed handed to NewMaster
	// falls outside the [MinSeedBytes, MaxSeedBytes] range.
	ErrInvalidSeedLen = errors.New("seed length must be between 128 and " +
		"512 bits")

	// ErrUnusableSeed is returned when the master key expansion of a seed
	// produces a scalar of zero or one that overflows the curve order.
	// The caller must supply a different seed, there is no way to proceed
	// with this one.
	ErrUnusableSeed = errors.New("unusable seed")

	// ErrInvalidChild is returned when a child derivation produces a
	// degenerate scalar (zero, or an intermediate that overflows the
	// curve order). The probability of hitting this case is negligible
	// (~1 in 2^127), and since all of our derivation paths are fixed by
	// channel metadata, we treat it as a hard failure for the derivation
	// attempt rather than skipping to a neighboring index.
	ErrInvalidChild = errors.New("the extended key at this index is " +
		"invalid")

	// ErrDeriveBeyondMaxDepth is returned when a caller attempts to
	// derive past the 255 level limit imposed by the one byte depth
	// counter in the extended key format.
	ErrDeriveBeyondMaxDepth = errors.New("cannot derive a key with more " +
		"than 255 indices in its path")
)

// ExtendedKey is a node in a BIP-0032 derivation tree, pairing a private key
// with the chain code that seeds the derivation of its children. Values are
// immutable once created and are recomputed on demand from the seed plus a
// KeyPath, never persisted.
type ExtendedKey struct {
	privKey    *btcec.PrivateKey
	chainCode  [32]byte
	depth      uint8
	parentFP   [4]byte
	childIndex uint32
}

// NewMaster expands the given seed into the root extended private key using
// the HMAC-SHA512 construction mandated by BIP-0032. The seed itself is not
// retained; the returned key and chain code are the only secrets carried
// forward.
func NewMaster(seed []byte) (*ExtendedKey, error) {
	if len(seed) < MinSeedBytes || len(seed) > MaxSeedBytes {
		return nil, ErrInvalidSeedLen
	}

	hm := hmac.New(sha512.New, masterHMACKey)
	hm.Write(seed)
	ilr := hm.Sum(nil)

	// Left half becomes the master scalar, right half the chain code.
	var masterScalar btcec.ModNScalar
	if overflow := masterScalar.SetByteSlice(ilr[:32]); overflow {
		return nil, ErrUnusableSeed
	}
	if masterScalar.IsZero() {
		return nil, ErrUnusableSeed
	}

	master := &ExtendedKey{
		privKey: &btcec.PrivateKey{Key: masterScalar},
	}
	copy(master.chainCode[:], ilr[32:])

	return master, nil
}

// Child derives the extended key at the given index. An index with the top
// bit set selects hardened derivation, which mixes the parent private key
// into the HMAC input and therefore cannot be replicated from the parent
// public key alone. All other indices use the parent's public point.
//
// The returned key is a pure function of the receiver and the index. The
// only failure modes are exceeding the depth limit and the negligible
// degenerate scalar case surfaced as ErrInvalidChild.
func (k *ExtendedKey) Child(index uint32) (*ExtendedKey, error) {
	if k.depth == math.MaxUint8 {
		return nil, ErrDeriveBeyondMaxDepth
	}

	// Assemble the 37 byte HMAC input: either 0x00 || ser256(k) or
	// serP(K), followed by ser32(index).
	var data [37]byte
	if index&HardenedKeyStart != 0 {
		k.privKey.Key.PutBytesUnchecked(data[1:33])
	} else {
		copy(data[:33], k.privKey.PubKey().SerializeCompressed())
	}
	data[33] = byte(index >> 24)
	data[34] = byte(index >> 16)
	data[35] = byte(index >> 8)
	data[36] = byte(index)

	hm := hmac.New(sha512.New, k.chainCode[:])
	hm.Write(data[:])
	ilr := hm.Sum(nil)

	// The child scalar is IL + parent mod N. Reject the degenerate
	// outcomes outright instead of producing a weak key.
	var childScalar btcec.ModNScalar
	if overflow := childScalar.SetByteSlice(ilr[:32]); overflow {
		return nil, ErrInvalidChild
	}
	childScalar.Add(&k.privKey.Key)
	if childScalar.IsZero() {
		return nil, ErrInvalidChild
	}

	child := &ExtendedKey{
		privKey:    &btcec.PrivateKey{Key: childScalar},
		depth:      k.depth + 1,
		childIndex: index,
	}
	copy(child.chainCode[:], ilr[32:])
	copy(
		child.parentFP[:],
		btcutil.Hash160(k.privKey.PubKey().SerializeCompressed())[:4],
	)

	return child, nil
}

// Derive folds Child over every index of the given path, starting at the
// receiver. The empty path returns the receiver itself.
func (k *ExtendedKey) Derive(path KeyPath) (*ExtendedKey, error) {
	key := k
	for _, index := range path {
		var err error
		key, err = key.Child(index)
		if err != nil {
			return nil, err
		}
	}

	return key, nil
}

// PrivKey returns the private key carried by this node of the derivation
// tree. Callers must not let the returned scalar escape into logs or any
// serialization path.
func (k *ExtendedKey) PrivKey() *btcec.PrivateKey {
	return k.privKey
}

// PubKey returns the public point of this node, the scalar-to-point mapping
// on secp256k1.
func (k *ExtendedKey) PubKey() *btcec.PublicKey {
	return k.privKey.PubKey()
}

// ChainCode returns the chain code of this node.
func (k *ExtendedKey) ChainCode() [32]byte {
	return k.chainCode
}

// Depth returns the number of derivations between the master key and this
// node.
func (k *ExtendedKey) Depth() uint8 {
	return k.depth
}

// ChildIndex returns the index that produced this node from its parent, zero
// for the master key.
func (k *ExtendedKey) ChildIndex() uint32 {
	return k.childIndex
}

// XPriv encodes the extended private key in the versioned base58check format
// of BIP-0032, using the HD version bytes of the given network so encoded
// keys cannot silently cross networks. This is a display/persistence surface
// for callers only, the core never round trips through it.
func (k *ExtendedKey) XPriv(net *chaincfg.Params) string {
	payload := make([]byte, 0, 78)
	payload = append(payload, net.HDPrivateKeyID[:]...)
	payload = k.appendBody(payload)
	payload = append(payload, 0x00)
	payload = append(payload, k.privKey.Serialize()...)

	return base58CheckEncode(payload)
}

// XPub encodes the extended public key for this node, analogous to XPriv but
// carrying the compressed public point instead of the private scalar.
func (k *ExtendedKey) XPub(net *chaincfg.Params) string {
	payload := make([]byte, 0, 78)
	payload = append(payload, net.HDPublicKeyID[:]...)
	payload = k.appendBody(payload)
	payload = append(payload, k.privKey.PubKey().SerializeCompressed()...)

	return base58CheckEncode(payload)
}

// appendBody appends the common middle section of the BIP-0032 extended key
// serialization: depth, parent fingerprint, child number and chain code.
func (k *ExtendedKey) appendBody(payload []byte) []byte {
	payload = append(payload, k.depth)
	payload = append(payload, k.parentFP[:]...)
	payload = append(payload,
		byte(k.childIndex>>24), byte(k.childIndex>>16),
		byte(k.childIndex>>8), byte(k.childIndex),
	)
	return append(payload, k.chainCode[:]...)
}

// base58CheckEncode appends the standard 4 byte double-SHA256 checksum and
// encodes the result with base58.
func base58CheckEncode(payload []byte) string {
	checksum := chainhash.DoubleHashB(payload)[:4]

	var buf bytes.Buffer
	buf.Write(payload)
	buf.Write(checksum)

	return base58.Encode(buf.Bytes())
}
