package keychain

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// The channel key path is the four hardened indices that root a channel's
// key subtree underneath the chain-specific channel account. Both resolver
// functions below are total: a SHA-256 digest always yields exactly four
// 4 byte words, so there is no failure path.

// PathFromFunderOutpoint resolves the channel key path for the channel
// funder from the first outpoint it consumes in the funding transaction.
// The outpoint is serialized in on-chain byte order (32 byte txid followed
// by the little endian output index), hashed once with SHA-256, and the
// first four big endian words of the digest become the hardened path.
//
// Outpoints are unique by consensus, so distinct channels always land on
// distinct pseudo-random subtrees, and the funder can compute this path as
// soon as it selects the input to spend, before the funding transaction is
// even signed.
func PathFromFunderOutpoint(op *wire.OutPoint) KeyPath {
	var buf bytes.Buffer
	buf.Write(op.Hash[:])

	var index [4]byte
	binary.LittleEndian.PutUint32(index[:], op.Index)
	buf.Write(index[:])

	digest := sha256.Sum256(buf.Bytes())
	return pathFromDigest(digest)
}

// PathFromFundingScript resolves the channel key path for the fundee once
// the 2-of-2 funding witness script, built from both parties' funding
// public keys, is known. The script is hashed once with SHA-256 and
// partitioned identically to the funder case. Every subsequent fundee
// derivation for the channel (payment, revocation, delay, HTLC, revocation
// root) uses this path; the pubkey-index path below is only for handing out
// the funding key beforehand.
func PathFromFundingScript(script []byte) KeyPath {
	digest := sha256.Sum256(script)
	return pathFromDigest(digest)
}

// PathFromFundeePubkeyIndex resolves the temporary path the fundee uses to
// select a funding public key before any outpoint or script exists. The
// caller supplies a per-peer account number and a counter it increments for
// every newly negotiated channel, which guarantees a funding key is never
// reused across concurrent negotiations.
func PathFromFundeePubkeyIndex(account uint32, index uint64) KeyPath {
	return KeyPath{
		HardenedKey(account),
		HardenedKey(uint32(index >> 32)),
		HardenedKey(uint32(index)),
		HardenedKey(0),
	}
}

// pathFromDigest partitions the first 16 bytes of the digest into four big
// endian words and marks each hardened. ORing the hardened bit is
// idempotent for words that already carry it.
func pathFromDigest(digest [sha256.Size]byte) KeyPath {
	return KeyPath{
		HardenedKey(binary.BigEndian.Uint32(digest[0:4])),
		HardenedKey(binary.BigEndian.Uint32(digest[4:8])),
		HardenedKey(binary.BigEndian.Uint32(digest[8:12])),
		HardenedKey(binary.BigEndian.Uint32(digest[12:16])),
	}
}

// GenMultiSigScript generates the non-p2sh'd 2-of-2 multisig witness script
// for the funding output. The pubkeys are sorted in lexicographical order so
// both participants construct bit-identical scripts, and therefore resolve
// identical fundee channel key paths, without coordinating.
func GenMultiSigScript(aPub, bPub []byte) ([]byte, error) {
	if len(aPub) != 33 || len(bPub) != 33 {
		return nil, fmt.Errorf("pubkey size error: compressed " +
			"pubkeys only")
	}

	if bytes.Compare(aPub, bPub) == 1 {
		aPub, bPub = bPub, aPub
	}

	bldr := txscript.NewScriptBuilder()
	bldr.AddOp(txscript.OP_2)
	bldr.AddData(aPub)
	bldr.AddData(bPub)
	bldr.AddOp(txscript.OP_2)
	bldr.AddOp(txscript.OP_CHECKMULTISIG)
	return bldr.Script()
}

// GenFundingPkScript creates the funding witness script from both parties'
// funding public keys along with the matching p2wsh output script. The
// witness script is what PathFromFundingScript consumes.
func GenFundingPkScript(aPub, bPub []byte) ([]byte, []byte, error) {
	witnessScript, err := GenMultiSigScript(aPub, bPub)
	if err != nil {
		return nil, nil, err
	}

	bldr := txscript.NewScriptBuilder()
	bldr.AddOp(txscript.OP_0)
	scriptHash := sha256.Sum256(witnessScript)
	bldr.AddData(scriptHash[:])
	pkScript, err := bldr.Script()
	if err != nil {
		return nil, nil, err
	}

	return witnessScript, pkScript, nil
}
