package mast

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/exp/slices"
)

// Tweaker commits an internal key to a script root, producing the output key
// that serves as the threshold address.
type Tweaker interface {
	// TweakPubKey returns internal + TapTweak(internal || root) * G on the
	// curve the implementation works with.
	TweakPubKey(internal [32]byte, root chainhash.Hash) ([32]byte, error)
}

// Mast is a merkelized alternative script tree over an ordered list of script
// keys. The internal key is not part of the tree.
type Mast struct {
	keys []XOnly
}

// New creates a script tree over the given keys. The order of the keys
// determines the shape of the tree.
func New(keys []XOnly) *Mast {
	return &Mast{
		keys: slices.Clone(keys),
	}
}

// Keys returns a copy of the script keys of the tree.
func (m *Mast) Keys() []XOnly {
	return slices.Clone(m.keys)
}

// leaves returns the leaf nodes of the tree in key order.
func (m *Mast) leaves() []chainhash.Hash {
	return fn.Map(m.keys, TapLeafHash)
}

// CalcRoot computes the merkle root of the tree. At least two script keys are
// required.
func (m *Mast) CalcRoot() (chainhash.Hash, error) {
	if len(m.keys) < 2 {
		return chainhash.Hash{}, fmt.Errorf("%w: got %d", ErrTooFewKeys,
			len(m.keys))
	}

	matches := make([]bool, len(m.keys))
	matches[0] = true

	tree, err := NewPartialMerkleTree(m.leaves(), matches)
	if err != nil {
		return chainhash.Hash{}, err
	}

	extraction, err := tree.ExtractMatches()
	if err != nil {
		return chainhash.Hash{}, err
	}

	return extraction.Root, nil
}

// GenerateMerkleProof returns the sibling path proving that key is a leaf of
// the tree, ordered from the leaf level up to the root.
func (m *Mast) GenerateMerkleProof(key XOnly) ([]chainhash.Hash, error) {
	matches := fn.Map(m.keys, func(k XOnly) bool {
		return k == key
	})
	if !fn.Any(matches, func(match bool) bool { return match }) {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}

	tree, err := NewPartialMerkleTree(m.leaves(), matches)
	if err != nil {
		return nil, err
	}

	// Walking the tree validates it and rejects duplicate subtrees.
	if _, err := tree.ExtractMatches(); err != nil {
		return nil, err
	}

	return tree.CollectedHashes(TapLeafHash(key)), nil
}

// GenerateTweakPubKey computes the root of the tree and commits the internal
// key to it using the given tweaker.
func (m *Mast) GenerateTweakPubKey(internal XOnly,
	tweaker Tweaker) ([32]byte, error) {

	root, err := m.CalcRoot()
	if err != nil {
		return [32]byte{}, err
	}

	tweaked, err := tweaker.TweakPubKey(internal, root)
	if err != nil {
		return [32]byte{}, fmt.Errorf("unable to tweak internal "+
			"key: %w", err)
	}

	log.Debugf("Tweaked internal key %v with root %v over %d keys",
		internal, root, len(m.keys))

	return tweaked, nil
}
