package keychain

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// mainnetKeyAccount is the hardened top-level account under which all
	// mainnet key material lives.
	mainnetKeyAccount uint32 = 47

	// testnetKeyAccount is the hardened top-level account used by every
	// test network (testnet, regtest, simnet). Keeping the account
	// distinct from mainnet means the same seed produces unrelated node
	// identities and channel keys across networks.
	testnetKeyAccount uint32 = 46

	// nodeKeyBranch and channelKeyBranch split the chain account into the
	// subtree holding the node's long-term identity key and the subtree
	// rooting all per-channel keys.
	nodeKeyBranch    uint32 = 0
	channelKeyBranch uint32 = 1
)

// KeyFamily is the fixed relative child index reserved for one of the six
// per-channel base keys underneath a channel key path. These values are
// frozen: reassigning any of them would change the keys of every previously
// funded channel and is a protocol-breaking change requiring an explicit
// migration plan, never a silent update.
type KeyFamily uint32

const (
	// KeyFamilyFunding is the base key that goes into the 2-of-2 funding
	// output script.
	KeyFamilyFunding KeyFamily = 0

	// KeyFamilyRevocationBase is the basepoint the remote party combines
	// with per-commitment randomness to build revocation keys for us.
	KeyFamilyRevocationBase KeyFamily = 1

	// KeyFamilyPaymentBase is the basepoint behind outputs that pay to us
	// without any delay.
	KeyFamilyPaymentBase KeyFamily = 2

	// KeyFamilyDelayBase is the basepoint behind outputs that pay to us
	// after a CSV delay.
	KeyFamilyDelayBase KeyFamily = 3

	// KeyFamilyHtlcBase is the basepoint used within HTLC scripts.
	KeyFamilyHtlcBase KeyFamily = 4

	// KeyFamilyRevocationRoot is the key whose hash seeds the channel's
	// per-commitment secret chain.
	KeyFamilyRevocationRoot KeyFamily = 5
)

// BaseKeyFamilies lists every reserved per-channel family, in leaf index
// order.
var BaseKeyFamilies = []KeyFamily{
	KeyFamilyFunding,
	KeyFamilyRevocationBase,
	KeyFamilyPaymentBase,
	KeyFamilyDelayBase,
	KeyFamilyHtlcBase,
	KeyFamilyRevocationRoot,
}

// ErrUnknownChain is returned when a key manager is constructed for a chain
// hash that doesn't belong to any supported network.
var ErrUnknownChain = errors.New("unknown chain hash")

// keyAccount maps a chain genesis hash to the hardened top-level account
// reserved for that network's key material.
func keyAccount(chain chainhash.Hash) (uint32, error) {
	switch {
	case chain.IsEqual(chaincfg.MainNetParams.GenesisHash):
		return mainnetKeyAccount, nil

	case chain.IsEqual(chaincfg.TestNet3Params.GenesisHash),
		chain.IsEqual(chaincfg.RegressionNetParams.GenesisHash),
		chain.IsEqual(chaincfg.SimNetParams.GenesisHash):

		return testnetKeyAccount, nil

	default:
		return 0, ErrUnknownChain
	}
}

// nodeKeyPath is the fixed, chain-offset path of the node's identity key,
// independent of any channel.
func nodeKeyPath(account uint32) KeyPath {
	return KeyPath{HardenedKey(account), HardenedKey(nodeKeyBranch)}
}

// channelKeyBasePath is the chain-offset root underneath which every channel
// key path is grafted.
func channelKeyBasePath(account uint32) KeyPath {
	return KeyPath{HardenedKey(account), HardenedKey(channelKeyBranch)}
}
