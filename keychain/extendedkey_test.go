package keychain

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

// TestBIP32Vector1 pins the engine to the first published BIP-0032 test
// vector. Any drift here silently breaks every previously derived key, so
// the expected values are byte-exact hex anchors.
func TestBIP32Vector1(t *testing.T) {
	t.Parallel()

	seed, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)

	master, err := NewMaster(seed)
	require.NoError(t, err)

	require.Equal(t,
		"e8f32e723decf4051aefac8e2c93c9c5b214313817cdb01a1494b917c8436b35",
		hex.EncodeToString(master.PrivKey().Serialize()),
	)
	chainCode := master.ChainCode()
	require.Equal(t,
		"873dff81c02f525623fd1fe5167eac3a55a049de3d314bb42ee227ffed37d508",
		hex.EncodeToString(chainCode[:]),
	)
	require.Equal(t,
		"0339a36013301597daef41fbe593a02cc513d0b55527ec2df1050e2e8ff49c85c2",
		hex.EncodeToString(master.PubKey().SerializeCompressed()),
	)
	require.Equal(t,
		"xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbPy6cq3jPPqji"+
			"ChkVvvNKmPGJxWUtg6LnF5kejMRNNU3TGtRBeJgk33yuGBxrMPHi",
		master.XPriv(&chaincfg.MainNetParams),
	)
	require.Equal(t,
		"xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2"+
			"gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8",
		master.XPub(&chaincfg.MainNetParams),
	)

	// Hardened first child, m/0'.
	child, err := master.Child(HardenedKey(0))
	require.NoError(t, err)
	require.Equal(t,
		"edb2e14f9ee77d26dd93b4ecede8d16ed408ce149b6cd80b0715a2d911a0afea",
		hex.EncodeToString(child.PrivKey().Serialize()),
	)
	require.Equal(t,
		"035a784662a4a20a65bf6aab9ae98a6c068a81c52e4b032c0fb5400c706cfccc56",
		hex.EncodeToString(child.PubKey().SerializeCompressed()),
	)
	require.Equal(t, uint8(1), child.Depth())
	require.Equal(t, HardenedKey(0), child.ChildIndex())

	// Deep mixed hardened/non-hardened chain, m/0'/1/2'/2/1000000000.
	deep, err := master.Derive(KeyPath{
		HardenedKey(0), 1, HardenedKey(2), 2, 1000000000,
	})
	require.NoError(t, err)
	require.Equal(t,
		"471b76e389e528d6de6d816857e012c5455051cad6660850e58372a6c3e6e7c8",
		hex.EncodeToString(deep.PrivKey().Serialize()),
	)
	deepChainCode := deep.ChainCode()
	require.Equal(t,
		"c783e67b921d2beb8f6b389cc646d7263b4145701dadd2161548a8b078e65e9e",
		hex.EncodeToString(deepChainCode[:]),
	)
	require.Equal(t,
		"022a471424da5e657499d1ff51cb43c47481a03b1e77f951fe64cec9f5a48f7011",
		hex.EncodeToString(deep.PubKey().SerializeCompressed()),
	)
	require.Equal(t, uint8(5), deep.Depth())
}

// TestNewMasterSeedBounds asserts that seeds outside the BIP-0032 length
// range are rejected outright.
func TestNewMasterSeedBounds(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		seedLen int
		valid   bool
	}{
		{name: "empty", seedLen: 0, valid: false},
		{name: "below minimum", seedLen: MinSeedBytes - 1, valid: false},
		{name: "minimum", seedLen: MinSeedBytes, valid: true},
		{name: "typical", seedLen: 32, valid: true},
		{name: "maximum", seedLen: MaxSeedBytes, valid: true},
		{name: "above maximum", seedLen: MaxSeedBytes + 1, valid: false},
	}

	for _, testCase := range testCases {
		seed := make([]byte, testCase.seedLen)
		for i := range seed {
			seed[i] = byte(i + 1)
		}

		_, err := NewMaster(seed)
		if testCase.valid {
			require.NoError(t, err, testCase.name)
		} else {
			require.ErrorIs(
				t, err, ErrInvalidSeedLen, testCase.name,
			)
		}
	}
}

// TestDeriveBeyondMaxDepth asserts that the one byte depth counter bounds
// derivation at 255 levels.
func TestDeriveBeyondMaxDepth(t *testing.T) {
	t.Parallel()

	key, err := NewMaster(testSeed(32))
	require.NoError(t, err)

	for i := 0; i < 255; i++ {
		key, err = key.Child(HardenedKey(uint32(i)))
		require.NoError(t, err)
	}
	require.Equal(t, uint8(255), key.Depth())

	_, err = key.Child(HardenedKey(0))
	require.ErrorIs(t, err, ErrDeriveBeyondMaxDepth)
}

// TestDerivationDeterminism asserts that deriving the same path twice from
// the same seed yields bit-identical results.
func TestDerivationDeterminism(t *testing.T) {
	t.Parallel()

	path := KeyPath{HardenedKey(46), HardenedKey(1), 7, HardenedKey(9)}

	first, err := NewMaster(testSeed(32))
	require.NoError(t, err)
	second, err := NewMaster(testSeed(32))
	require.NoError(t, err)

	keyA, err := first.Derive(path)
	require.NoError(t, err)
	keyB, err := second.Derive(path)
	require.NoError(t, err)

	require.Equal(
		t, keyA.PrivKey().Serialize(), keyB.PrivKey().Serialize(),
	)
	require.Equal(t, keyA.ChainCode(), keyB.ChainCode())
}

// testSeed returns a fixed n byte seed for tests that only need
// determinism, not a published vector.
func testSeed(n int) []byte {
	seed := make([]byte, n)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}
