package mast

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/taproot-threshold/codec"
)

const (
	// maxTreeLeaves bounds the number of leaves accepted when decoding a
	// tree, preventing large allocations from untrusted input.
	maxTreeLeaves = 1 << 16
)

// PackBits packs a bit vector into a byte slice, least significant bit first.
func PackBits(bits []bool) []byte {
	bytes := make([]byte, (len(bits)+8-1)/8) // Round up to nearest byte.
	for i, isBitSet := range bits {
		if !isBitSet {
			continue
		}
		bytes[i/8] |= byte(1 << (i % 8))
	}
	return bytes
}

// UnpackBits unpacks a byte slice into a bit vector.
func UnpackBits(bytes []byte) []bool {
	bits := make([]bool, len(bytes)*8)
	for i := range bits {
		bits[i] = (bytes[i/8]>>(i%8))&1 == 1
	}
	return bits
}

// Encode serializes the tree as:
//
//	numLeaves (u32) || varint(len(hashes)) || hashes ||
//	varint(len(flags)) || flags || varint(len(heights)) || heights (u32)
func (p *PartialMerkleTree) Encode(w io.Writer) error {
	if err := codec.WriteUint32(w, p.numLeaves); err != nil {
		return err
	}

	if err := codec.WriteVarInt(w, uint64(len(p.hashes))); err != nil {
		return err
	}
	for _, h := range p.hashes {
		if _, err := w.Write(h[:]); err != nil {
			return err
		}
	}

	if err := codec.WriteVarBytes(w, PackBits(p.bits)); err != nil {
		return err
	}

	if err := codec.WriteVarInt(w, uint64(len(p.heights))); err != nil {
		return err
	}
	for _, height := range p.heights {
		if err := codec.WriteUint32(w, height); err != nil {
			return err
		}
	}

	return nil
}

// Decode reads a tree previously written by Encode and rejects it unless it
// is structurally valid.
func (p *PartialMerkleTree) Decode(r io.Reader) error {
	numLeaves, err := codec.ReadUint32(r)
	if err != nil {
		return err
	}
	if numLeaves > maxTreeLeaves {
		return fmt.Errorf("%w: %d leaves exceeds maximum of %d",
			ErrInvalidProof, numLeaves, maxTreeLeaves)
	}

	numHashes, err := codec.ReadVarInt(r)
	if err != nil {
		return err
	}
	if numHashes > uint64(numLeaves) {
		return fmt.Errorf("%w: %d hashes for %d leaves",
			ErrInvalidProof, numHashes, numLeaves)
	}
	hashes := make([]chainhash.Hash, numHashes)
	for i := range hashes {
		if _, err := io.ReadFull(r, hashes[i][:]); err != nil {
			return err
		}
	}

	numFlagBytes, err := codec.ReadVarInt(r)
	if err != nil {
		return err
	}
	if numFlagBytes > (2*maxTreeLeaves+7)/8 {
		return fmt.Errorf("%w: %d flag bytes is too many",
			ErrInvalidProof, numFlagBytes)
	}
	flags := make([]byte, numFlagBytes)
	if _, err := io.ReadFull(r, flags); err != nil {
		return err
	}

	numHeights, err := codec.ReadVarInt(r)
	if err != nil {
		return err
	}
	if numHeights != numHashes {
		return fmt.Errorf("%w: %d heights for %d hashes",
			ErrInvalidProof, numHeights, numHashes)
	}
	heights := make([]uint32, numHeights)
	for i := range heights {
		heights[i], err = codec.ReadUint32(r)
		if err != nil {
			return err
		}
	}

	tree := PartialMerkleTree{
		numLeaves: numLeaves,
		bits:      UnpackBits(flags),
		hashes:    hashes,
		heights:   heights,
	}

	// The heights order the sibling path of CollectedHashes, so they must
	// agree with the walk.
	if _, err := tree.ExtractMatches(); err != nil {
		return err
	}
	*p = tree

	return nil
}
