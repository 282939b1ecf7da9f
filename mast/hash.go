package mast

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/taproot-threshold/codec"
)

// LeafVersion is the leaf version byte committed to by every leaf hash.
const LeafVersion byte = 0xc0

// TapLeafHash computes the leaf node for a script key:
// TaggedHash("TapLeaf", 0xc0 || varint(32) || key).
func TapLeafHash(key XOnly) chainhash.Hash {
	var b bytes.Buffer
	b.WriteByte(LeafVersion)

	// Writes to a bytes.Buffer never fail.
	_ = codec.WriteVarBytes(&b, key[:])

	return *chainhash.TaggedHash(chainhash.TagTapLeaf, b.Bytes())
}

// TapBranchHash computes the parent of two nodes. The children are ordered so
// the lexicographically smaller one comes first, which makes the result
// independent of the side each child sits on. Two identical children collapse
// into the child itself.
func TapBranchHash(a, b chainhash.Hash) chainhash.Hash {
	if a == b {
		return a
	}

	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}

	return *chainhash.TaggedHash(chainhash.TagTapBranch, a[:], b[:])
}

// TapTweakHash computes the tweak committing an internal key to a script root:
// TaggedHash("TapTweak", internal || root).
func TapTweakHash(internal XOnly, root chainhash.Hash) chainhash.Hash {
	return *chainhash.TaggedHash(chainhash.TagTapTweak, internal[:], root[:])
}

// FoldProof walks a sibling path from the given leaf node up to the root.
func FoldProof(leaf chainhash.Hash, siblings []chainhash.Hash) chainhash.Hash {
	node := leaf
	for _, sibling := range siblings {
		node = TapBranchHash(node, sibling)
	}

	return node
}

// VerifyMerkleProof returns the root implied by the inclusion proof of key.
func VerifyMerkleProof(key XOnly, siblings []chainhash.Hash) chainhash.Hash {
	return FoldProof(TapLeafHash(key), siblings)
}
