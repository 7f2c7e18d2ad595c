package keychain

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

// TestNodeSigner asserts that signatures produced by the node signer verify
// under the advertised node identity key, for both hashing modes and both
// signature encodings.
func TestNodeSigner(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, testSeed1, &chaincfg.TestNet3Params)
	signer := manager.NodeSigner()

	require.True(t, manager.NodeID().IsEqual(signer.PubKey()))

	msg := []byte("channel_announcement")

	for _, doubleHash := range []bool{false, true} {
		digest := chainhash.HashB(msg)
		if doubleHash {
			digest = chainhash.DoubleHashB(msg)
		}

		sig, err := signer.SignMessage(msg, doubleHash)
		require.NoError(t, err)
		require.True(t, sig.Verify(digest, manager.NodeID()))

		compactSig, err := signer.SignMessageCompact(msg, doubleHash)
		require.NoError(t, err)

		recoveredKey, _, err := ecdsa.RecoverCompact(
			compactSig, digest,
		)
		require.NoError(t, err)
		require.True(t, recoveredKey.IsEqual(manager.NodeID()))
	}
}
