package shachain

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

// generateTests encodes the generation test vectors of BOLT-03, Appendix D.
// The published vectors address secrets by raw tree index; the producer
// counts commitments upward from zero, so each case carries the equivalent
// commitment index 2^48 - 1 - treeIndex.
var generateTests = []struct {
	name   string
	root   string
	index  uint64
	secret string
}{
	{
		name: "generate_from_seed 0 final node",
		root: "00000000000000000000000000000000" +
			"00000000000000000000000000000000",
		index: 0,
		secret: "02a40c85b6f28da08dfdbe0926c53fab" +
			"2de6d28c10301f8f7c4073d5e42e3148",
	},
	{
		name: "generate_from_seed FF final node",
		root: "ffffffffffffffffffffffffffffffff" +
			"ffffffffffffffffffffffffffffffff",
		index: 0,
		secret: "7cc854b54e3e0dcdb010d7a3fee464a9" +
			"687be6e8db3be6854c475621e007a5dc",
	},
	{
		name: "generate_from_seed FF alternate bits 1",
		root: "ffffffffffffffffffffffffffffffff" +
			"ffffffffffffffffffffffffffffffff",
		index: 269746852681045,
		secret: "56f4008fb007ca9acf0e15b054d5c9fd" +
			"12ee06cea347914ddbaed70d1c13a528",
	},
	{
		name: "generate_from_seed FF alternate bits 2",
		root: "ffffffffffffffffffffffffffffffff" +
			"ffffffffffffffffffffffffffffffff",
		index: 187649984473770,
		secret: "9015daaeb06dba4ccc05b91b2f73bd54" +
			"405f2be9f217fbacd3c5ac2e62327d31",
	},
	{
		name: "generate_from_seed 01 last nontrivial node",
		root: "01010101010101010101010101010101" +
			"01010101010101010101010101010101",
		index: 281474976710654,
		secret: "915c75942a26bb3a433a8ce2cb0427c2" +
			"9ec6c1775cfc78328b57f6ba7bfeaa9c",
	},
}

// TestProducerGenerateVectors checks secret generation against the standard
// generation test sequences.
func TestProducerGenerateVectors(t *testing.T) {
	t.Parallel()

	for _, test := range generateTests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			producer := NewRevocationProducer(
				*hashFromHex(t, test.root),
			)

			secret, err := producer.AtIndex(test.index)
			require.NoError(t, err)
			require.Equal(t, hashFromHex(t, test.secret), secret)
		})
	}
}

// TestProducerIndexBounds asserts the producer's index domain: the maximum
// commitment index is accepted, anything above is rejected.
func TestProducerIndexBounds(t *testing.T) {
	t.Parallel()

	root := chainhash.DoubleHashH([]byte("producer bounds test"))
	producer := NewRevocationProducer(root)

	_, err := producer.AtIndex(uint64(startIndex))
	require.NoError(t, err)

	_, err = producer.AtIndex(uint64(startIndex) + 1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

// TestProducerEncodeDecode checks that a producer restored from its
// serialization generates the same chain as the original.
func TestProducerEncodeDecode(t *testing.T) {
	t.Parallel()

	root := chainhash.DoubleHashH([]byte("producer serialization test"))
	producer := NewRevocationProducer(root)

	var b bytes.Buffer
	require.NoError(t, producer.Encode(&b))

	restored, err := NewRevocationProducerFromBytes(&b)
	require.NoError(t, err)

	for _, index := range []uint64{0, 1, 42, uint64(startIndex)} {
		expected, err := producer.AtIndex(index)
		require.NoError(t, err)

		got, err := restored.AtIndex(index)
		require.NoError(t, err)
		require.Equal(t, expected, got)
	}
}
