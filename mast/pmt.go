package mast

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// PartialMerkleTree is a compact representation of a script tree that commits
// to the full set of leaves while only carrying the hashes needed to rebuild
// the root and the matched leaves.
//
// The tree is walked depth first. Every visited node contributes one flag bit
// telling whether it is an ancestor of (or is) a matched leaf. Nodes that are
// leaves or don't lead to a match contribute their hash instead of being
// descended into.
type PartialMerkleTree struct {
	// numLeaves is the total number of leaves in the full tree.
	numLeaves uint32

	// bits holds one flag per visited node in depth first order.
	bits []bool

	// hashes holds the cached node hashes in depth first order.
	hashes []chainhash.Hash

	// heights holds the height of each entry in hashes, leaves being at
	// height zero.
	heights []uint32
}

// NewPartialMerkleTree builds a partial merkle tree over the given leaves,
// keeping enough information to prove the leaves flagged in matches.
func NewPartialMerkleTree(leaves []chainhash.Hash,
	matches []bool) (*PartialMerkleTree, error) {

	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	if len(leaves) != len(matches) {
		return nil, fmt.Errorf("%w: %d leaves, %d matches",
			ErrMatchesMismatch, len(leaves), len(matches))
	}

	b := &treeBuilder{
		tree: &PartialMerkleTree{
			numLeaves: uint32(len(leaves)),
		},
		leaves:  leaves,
		matches: matches,
	}

	b.traverseAndBuild(b.tree.height(), 0)

	return b.tree, nil
}

// NumLeaves returns the number of leaves committed to by the tree.
func (p *PartialMerkleTree) NumLeaves() uint32 {
	return p.numLeaves
}

// calcTreeWidth calculates and returns the number of nodes (width) of the
// tree at the given depth-first height.
func (p *PartialMerkleTree) calcTreeWidth(height uint32) uint32 {
	return (p.numLeaves + (1 << height) - 1) >> height
}

// height returns the number of branch levels above the leaves.
func (p *PartialMerkleTree) height() uint32 {
	var height uint32
	for p.calcTreeWidth(height) > 1 {
		height++
	}

	return height
}

// treeBuilder houses the intermediate state needed while building a partial
// merkle tree.
type treeBuilder struct {
	tree    *PartialMerkleTree
	leaves  []chainhash.Hash
	matches []bool
}

// calcHash returns the hash for a sub-tree given a depth-first height and
// node position. A missing right child reuses the left one, which collapses in
// TapBranchHash.
func (b *treeBuilder) calcHash(height, pos uint32) chainhash.Hash {
	if height == 0 {
		return b.leaves[pos]
	}

	left := b.calcHash(height-1, pos*2)
	right := left
	if pos*2+1 < b.tree.calcTreeWidth(height-1) {
		right = b.calcHash(height-1, pos*2+1)
	}

	return TapBranchHash(left, right)
}

// traverseAndBuild builds the partial merkle tree using a recursive
// depth-first approach.
func (b *treeBuilder) traverseAndBuild(height, pos uint32) {
	// Determine whether this node is a parent of a matched leaf.
	var isParent bool
	for i := pos << height; i < (pos+1)<<height &&
		i < b.tree.numLeaves; i++ {

		isParent = isParent || b.matches[i]
	}
	b.tree.bits = append(b.tree.bits, isParent)

	if height == 0 || !isParent {
		b.tree.hashes = append(b.tree.hashes, b.calcHash(height, pos))
		b.tree.heights = append(b.tree.heights, height)
		return
	}

	b.traverseAndBuild(height-1, pos*2)
	if pos*2+1 < b.tree.calcTreeWidth(height-1) {
		b.traverseAndBuild(height-1, pos*2+1)
	}
}

// Extraction is the result of walking a partial merkle tree.
type Extraction struct {
	// Root is the merkle root the tree commits to.
	Root chainhash.Hash

	// Matches are the matched leaves, in tree order.
	Matches []chainhash.Hash

	// Indexes are the positions of the matched leaves.
	Indexes []uint32
}

// treeExtractor keeps the read cursors while walking a partial merkle tree.
type treeExtractor struct {
	tree     *PartialMerkleTree
	bitsUsed int
	hashUsed int
	result   Extraction
}

// traverseAndExtract is the inverse of traverseAndBuild: it consumes flag bits
// and hashes and recomputes the node at the given position.
func (e *treeExtractor) traverseAndExtract(height,
	pos uint32) (chainhash.Hash, error) {

	if e.bitsUsed >= len(e.tree.bits) {
		return chainhash.Hash{}, fmt.Errorf("%w: overflowed the bits "+
			"array", ErrInvalidProof)
	}
	isParent := e.tree.bits[e.bitsUsed]
	e.bitsUsed++

	if height == 0 || !isParent {
		if e.hashUsed >= len(e.tree.hashes) {
			return chainhash.Hash{}, fmt.Errorf("%w: overflowed "+
				"the hash array", ErrInvalidProof)
		}
		if e.tree.heights[e.hashUsed] != height {
			return chainhash.Hash{}, fmt.Errorf("%w: hash %d "+
				"recorded at height %d, found at height %d",
				ErrInvalidProof, e.hashUsed,
				e.tree.heights[e.hashUsed], height)
		}
		hash := e.tree.hashes[e.hashUsed]
		e.hashUsed++

		if height == 0 && isParent {
			e.result.Matches = append(e.result.Matches, hash)
			e.result.Indexes = append(e.result.Indexes, pos)
		}

		return hash, nil
	}

	left, err := e.traverseAndExtract(height-1, pos*2)
	if err != nil {
		return chainhash.Hash{}, err
	}

	right := left
	if pos*2+1 < e.tree.calcTreeWidth(height-1) {
		right, err = e.traverseAndExtract(height-1, pos*2+1)
		if err != nil {
			return chainhash.Hash{}, err
		}

		// A right branch equal to the left one would let two trees
		// with different leaf counts share a root.
		if right == left {
			return chainhash.Hash{}, fmt.Errorf("%w: identical "+
				"left and right branches at height %d",
				ErrInvalidProof, height)
		}
	}

	return TapBranchHash(left, right), nil
}

// ExtractMatches walks the tree and returns the committed root along with the
// matched leaves and their positions. Every flag bit (up to byte padding) and
// every hash must be consumed, each hash at its recorded height, for the tree
// to be valid.
func (p *PartialMerkleTree) ExtractMatches() (*Extraction, error) {
	switch {
	case p.numLeaves == 0:
		return nil, fmt.Errorf("%w: no leaves", ErrInvalidProof)

	case uint64(len(p.hashes)) > uint64(p.numLeaves):
		return nil, fmt.Errorf("%w: %d hashes for %d leaves",
			ErrInvalidProof, len(p.hashes), p.numLeaves)

	case len(p.bits) < len(p.hashes):
		return nil, fmt.Errorf("%w: fewer bits than hashes",
			ErrInvalidProof)

	case len(p.heights) != len(p.hashes):
		return nil, fmt.Errorf("%w: %d heights for %d hashes",
			ErrInvalidProof, len(p.heights), len(p.hashes))
	}

	e := &treeExtractor{tree: p}
	root, err := e.traverseAndExtract(p.height(), 0)
	if err != nil {
		return nil, err
	}

	if (e.bitsUsed+7)/8 != (len(p.bits)+7)/8 {
		return nil, fmt.Errorf("%w: not all bits consumed",
			ErrInvalidProof)
	}
	if e.hashUsed != len(p.hashes) {
		return nil, fmt.Errorf("%w: not all hashes consumed",
			ErrInvalidProof)
	}

	e.result.Root = root

	log.Tracef("Extracted root=%v with %d matches from %d leaves", root,
		len(e.result.Matches), p.numLeaves)

	return &e.result, nil
}

// CollectedHashes returns the cached hashes ordered by height, lowest first,
// with the given leaf removed. For a tree with a single match this is the
// sibling path from that leaf up to the root.
func (p *PartialMerkleTree) CollectedHashes(
	leaf chainhash.Hash) []chainhash.Hash {

	type heightHash struct {
		hash   chainhash.Hash
		height uint32
	}

	entries := make([]heightHash, 0, len(p.hashes))
	for i, h := range p.hashes {
		entries = append(entries, heightHash{
			hash:   h,
			height: p.heights[i],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].height < entries[j].height
	})

	collected := make([]chainhash.Hash, 0, len(entries))
	skipped := false
	for _, entry := range entries {
		if !skipped && entry.height == 0 && entry.hash == leaf {
			skipped = true
			continue
		}
		collected = append(collected, entry.hash)
	}

	return collected
}
