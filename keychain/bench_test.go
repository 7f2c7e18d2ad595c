package keychain

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func BenchmarkDeriveBaseKey(b *testing.B) {
	manager, err := NewLocalKeyManager(
		testSeed1, *chaincfg.TestNet3Params.GenesisHash,
	)
	require.NoError(b, err, "unable to create key manager")

	path := PathFromFundeePubkeyIndex(1, 7)

	var key *ExtendedKey

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		key, err = manager.DeriveBaseKey(path, KeyFamilyPaymentBase)
	}
	require.NoError(b, err)
	require.NotNil(b, key)
}

func BenchmarkCommitmentSecret(b *testing.B) {
	manager, err := NewLocalKeyManager(
		testSeed1, *chaincfg.TestNet3Params.GenesisHash,
	)
	require.NoError(b, err, "unable to create key manager")

	path := PathFromFundeePubkeyIndex(1, 7)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err = manager.CommitmentSecret(path, uint64(i)%1000)
	}
	require.NoError(b, err)
}
