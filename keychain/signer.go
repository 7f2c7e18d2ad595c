package keychain

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MessageSigner is an interface that abstracts away basic low-level ECDSA
// signing with a single key, used for node announcements and other gossip
// messages authenticated by the node identity key.
type MessageSigner interface {
	// PubKey returns the public key of the wrapped private key.
	PubKey() *btcec.PublicKey

	// SignMessage signs the given message, single or double SHA256
	// hashing it first, with the wrapped private key.
	SignMessage(msg []byte, doubleHash bool) (*ecdsa.Signature, error)

	// SignMessageCompact signs the given message, single or double
	// SHA256 hashing it first, with the wrapped private key, and returns
	// the signature in the compact, public key recoverable format.
	SignMessageCompact(msg []byte, doubleHash bool) ([]byte, error)
}

// NodeSigner is a MessageSigner backed by the manager's node identity key.
type NodeSigner struct {
	privKey *btcec.PrivateKey
}

// NodeSigner returns a signer bound to the manager's identity key.
func (m *LocalKeyManager) NodeSigner() *NodeSigner {
	return &NodeSigner{privKey: m.nodeKey.PrivKey()}
}

// PubKey returns the node identity public key the produced signatures
// verify under.
//
// NOTE: This is part of the MessageSigner interface.
func (s *NodeSigner) PubKey() *btcec.PublicKey {
	return s.privKey.PubKey()
}

// SignMessage signs the given message, single or double SHA256 hashing it
// first, with the node identity key.
//
// NOTE: This is part of the MessageSigner interface.
func (s *NodeSigner) SignMessage(msg []byte,
	doubleHash bool) (*ecdsa.Signature, error) {

	return ecdsa.Sign(s.privKey, messageDigest(msg, doubleHash)), nil
}

// SignMessageCompact signs the given message, single or double SHA256
// hashing it first, with the node identity key, and returns the signature
// in the compact, public key recoverable format.
//
// NOTE: This is part of the MessageSigner interface.
func (s *NodeSigner) SignMessageCompact(msg []byte,
	doubleHash bool) ([]byte, error) {

	return ecdsa.SignCompact(
		s.privKey, messageDigest(msg, doubleHash), true,
	), nil
}

func messageDigest(msg []byte, doubleHash bool) []byte {
	if doubleHash {
		return chainhash.DoubleHashB(msg)
	}
	return chainhash.HashB(msg)
}

var _ MessageSigner = (*NodeSigner)(nil)
