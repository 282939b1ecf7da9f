package threshold

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/taproot-threshold/mast"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestParseControlBlock checks the accepted control block lengths.
func TestParseControlBlock(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 1, 31, 33, 63, 65} {
		_, err := ParseControlBlock(make([]byte, size))
		require.ErrorIs(t, err, ErrMalformedControlBlock, "size %d", size)
	}

	// A bare internal key is a tree with a single script.
	cb, err := ParseControlBlock(make([]byte, 32))
	require.NoError(t, err)
	require.Empty(t, cb.Siblings)
}

// TestControlBlockRoundTrip encodes and decodes random control blocks.
func TestControlBlockRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		var cb ControlBlock
		copy(cb.InternalKey[:], rapid.SliceOfN(
			rapid.Byte(), 32, 32,
		).Draw(t, "internal_key"))

		numSiblings := rapid.IntRange(0, 16).Draw(t, "num_siblings")
		for i := 0; i < numSiblings; i++ {
			var sibling chainhash.Hash
			copy(sibling[:], rapid.SliceOfN(
				rapid.Byte(), 32, 32,
			).Draw(t, "sibling"))
			cb.Siblings = append(cb.Siblings, sibling)
		}

		b := cb.Bytes()
		require.Len(t, b, 32*(numSiblings+1))

		parsed, err := ParseControlBlock(b)
		require.NoError(t, err)
		require.Equal(t, cb.InternalKey, parsed.InternalKey)
		require.Equal(t, len(cb.Siblings), len(parsed.Siblings))
		for i := range cb.Siblings {
			require.Equal(t, cb.Siblings[i], parsed.Siblings[i])
		}
	})
}

// TestNewControlBlock checks that the generated sibling path folds into the
// tree root.
func TestNewControlBlock(t *testing.T) {
	t.Parallel()

	keys := []mast.XOnly{{1}, {2}, {3}, {4}, {5}}
	root, err := mast.New(keys).CalcRoot()
	require.NoError(t, err)

	for _, key := range keys {
		cb, err := NewControlBlock(mast.XOnly{9}, keys, key)
		require.NoError(t, err)
		require.Equal(t, root, mast.VerifyMerkleProof(key, cb.Siblings))
	}

	_, err = NewControlBlock(mast.XOnly{9}, keys, mast.XOnly{6})
	require.ErrorIs(t, err, mast.ErrKeyNotFound)
}
