package keychain

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/aymericcousaert/eclair/shachain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChannelKeyPathLen is the number of hardened indices in a resolved channel
// key path.
const ChannelKeyPathLen = 4

// ErrMalformedKeyPath is returned when a caller hands the key manager a
// channel key path that is not exactly four hardened indices. This is a
// programming error class failure: resolved paths always satisfy the shape,
// so a malformed one means the caller bypassed the resolver.
var ErrMalformedKeyPath = errors.New("channel key path must consist of " +
	"four hardened indices")

// KeyRing is the interface the channel state machine programs against to
// obtain channel key material. All methods are pure functions of the seed,
// the chain hash and their explicit arguments; implementations must be
// safely callable from concurrent goroutines without locking.
type KeyRing interface {
	// NodeID returns the node's persistent advertised identity key. It
	// is stable for the lifetime of the seed.
	NodeID() *btcec.PublicKey

	// DeriveBaseKey derives the per-channel base key of the given family
	// underneath the channel key path.
	DeriveBaseKey(path KeyPath, family KeyFamily) (*ExtendedKey, error)

	// CommitmentSecret returns the per-commitment secret for the channel
	// rooted at path at the given commitment index.
	CommitmentSecret(path KeyPath, index uint64) (*chainhash.Hash, error)

	// CommitmentPoint returns the public point of CommitmentSecret.
	CommitmentPoint(path KeyPath, index uint64) (*btcec.PublicKey, error)
}

// LocalKeyManager derives every key a channel participant needs from a
// single master seed and a chain hash. It holds no mutable state after
// construction, so a single instance can be shared read-only by every
// component that needs derivation; per the design there are no ambient
// singletons, callers receive the manager by explicit injection.
//
// Only the two chain-offset subtree roots are retained, not the seed
// itself: everything the manager hands out is reconstructible from those
// roots plus public channel metadata.
type LocalKeyManager struct {
	chain   chainhash.Hash
	account uint32

	// nodeKey is the identity subtree leaf at account'/0'.
	nodeKey *ExtendedKey

	// channelRoot is the subtree root at account'/1' underneath which
	// every channel key path is grafted.
	channelRoot *ExtendedKey
}

// A compile time check to ensure LocalKeyManager implements the KeyRing
// interface.
var _ KeyRing = (*LocalKeyManager)(nil)

// NewLocalKeyManager expands the seed into the chain-specific key subtrees
// for the network identified by the given genesis hash. The seed is not
// retained. Construction is the only operation that can observe the raw
// seed, and it never copies it into errors or log output.
func NewLocalKeyManager(seed []byte,
	chain chainhash.Hash) (*LocalKeyManager, error) {

	account, err := keyAccount(chain)
	if err != nil {
		return nil, fmt.Errorf("unsupported chain %v: %w", chain, err)
	}

	master, err := NewMaster(seed)
	if err != nil {
		return nil, err
	}

	nodeKey, err := master.Derive(nodeKeyPath(account))
	if err != nil {
		return nil, err
	}
	channelRoot, err := master.Derive(channelKeyBasePath(account))
	if err != nil {
		return nil, err
	}

	log.Debugf("Local key manager initialized: chain=%v, account=%d'",
		chain, account)

	return &LocalKeyManager{
		chain:       chain,
		account:     account,
		nodeKey:     nodeKey,
		channelRoot: channelRoot,
	}, nil
}

// ChainHash returns the genesis hash of the network this manager derives
// keys for.
func (m *LocalKeyManager) ChainHash() chainhash.Hash {
	return m.chain
}

// NodeID returns the node's long-term identity public key at the fixed,
// chain-offset identity path. Repeated calls return bit-identical values.
//
// NOTE: This is part of the KeyRing interface.
func (m *LocalKeyManager) NodeID() *btcec.PublicKey {
	return m.nodeKey.PubKey()
}

// DeriveBaseKey derives the channel base key of the given family at
// path ++ family', underneath the chain's channel subtree. The call is
// idempotent and chain-hash-sensitive: the same path under a different
// chain hash yields an unrelated key.
//
// NOTE: This is part of the KeyRing interface.
func (m *LocalKeyManager) DeriveBaseKey(path KeyPath,
	family KeyFamily) (*ExtendedKey, error) {

	if err := validateChannelKeyPath(path); err != nil {
		return nil, err
	}

	log.Tracef("Deriving family %d base key at %v", family, path)

	return m.channelRoot.Derive(
		path.Extend(HardenedKey(uint32(family))),
	)
}

// FundingKey derives the channel's funding base key, the one that goes into
// the 2-of-2 funding output.
func (m *LocalKeyManager) FundingKey(path KeyPath) (*ExtendedKey, error) {
	return m.DeriveBaseKey(path, KeyFamilyFunding)
}

// RevocationBasePoint derives the channel's revocation basepoint key.
func (m *LocalKeyManager) RevocationBasePoint(
	path KeyPath) (*ExtendedKey, error) {

	return m.DeriveBaseKey(path, KeyFamilyRevocationBase)
}

// PaymentBasePoint derives the channel's payment basepoint key.
func (m *LocalKeyManager) PaymentBasePoint(
	path KeyPath) (*ExtendedKey, error) {

	return m.DeriveBaseKey(path, KeyFamilyPaymentBase)
}

// DelayBasePoint derives the channel's delayed payment basepoint key.
func (m *LocalKeyManager) DelayBasePoint(path KeyPath) (*ExtendedKey, error) {
	return m.DeriveBaseKey(path, KeyFamilyDelayBase)
}

// HtlcBasePoint derives the channel's HTLC basepoint key.
func (m *LocalKeyManager) HtlcBasePoint(path KeyPath) (*ExtendedKey, error) {
	return m.DeriveBaseKey(path, KeyFamilyHtlcBase)
}

// RevocationRoot derives the channel key whose hash seeds the channel's
// per-commitment secret chain.
func (m *LocalKeyManager) RevocationRoot(path KeyPath) (*ExtendedKey, error) {
	return m.DeriveBaseKey(path, KeyFamilyRevocationRoot)
}

// shaChainRoot reduces the revocation root key to the 32 byte root of the
// channel's secret chain.
func (m *LocalKeyManager) shaChainRoot(path KeyPath) (*chainhash.Hash, error) {
	root, err := m.RevocationRoot(path)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(root.PrivKey().Serialize())
	return chainhash.NewHash(digest[:])
}

// RevocationProducer returns the per-commitment secret producer for the
// channel rooted at path. The producer is stateless, callers may create as
// many as they like.
func (m *LocalKeyManager) RevocationProducer(
	path KeyPath) (shachain.Producer, error) {

	root, err := m.shaChainRoot(path)
	if err != nil {
		return nil, err
	}

	return shachain.NewRevocationProducer(*root), nil
}

// CommitmentSecret returns the secret the channel discloses when revoking
// the commitment at the given index. Secrets are computed on demand and
// safe to discard: the holder of the seed can always recompute any index,
// while a counterparty holding the secret for index n can never compute the
// secret for any index above n.
//
// NOTE: This is part of the KeyRing interface.
func (m *LocalKeyManager) CommitmentSecret(path KeyPath,
	index uint64) (*chainhash.Hash, error) {

	producer, err := m.RevocationProducer(path)
	if err != nil {
		return nil, err
	}

	return producer.AtIndex(index)
}

// CommitmentPoint returns the public point of the per-commitment secret at
// the given index, the value exchanged with the counterparty while the
// secret itself stays private.
//
// NOTE: This is part of the KeyRing interface.
func (m *LocalKeyManager) CommitmentPoint(path KeyPath,
	index uint64) (*btcec.PublicKey, error) {

	secret, err := m.CommitmentSecret(path, index)
	if err != nil {
		return nil, err
	}

	_, pubKey := btcec.PrivKeyFromBytes(secret[:])
	return pubKey, nil
}

// validateChannelKeyPath enforces the shape every resolved channel key path
// has: exactly four indices, all hardened. Anything else indicates the
// caller constructed a path by hand instead of going through the resolver.
func validateChannelKeyPath(path KeyPath) error {
	if len(path) != ChannelKeyPathLen {
		return ErrMalformedKeyPath
	}
	for _, index := range path {
		if !IsHardened(index) {
			return ErrMalformedKeyPath
		}
	}

	return nil
}
