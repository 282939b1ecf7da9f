package threshold

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/taproot-threshold/mast"
)

// ControlBlock is the proof disclosed when spending through a script key: the
// internal key of the address followed by the sibling path of the script leaf.
//
// On the wire it is the plain concatenation of 32 byte chunks:
//
//	internal_key || sibling_1 || ... || sibling_n
type ControlBlock struct {
	// InternalKey is the untweaked key of the threshold address.
	InternalKey mast.XOnly

	// Siblings is the merkle path from the script leaf up to the root.
	Siblings []chainhash.Hash
}

// ParseControlBlock decodes a control block. The length must be a non-zero
// multiple of 32 bytes.
func ParseControlBlock(b []byte) (*ControlBlock, error) {
	if len(b) == 0 || len(b)%mast.XOnlySize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a positive "+
			"multiple of %d", ErrMalformedControlBlock, len(b),
			mast.XOnlySize)
	}

	internalKey, err := mast.NewXOnly(b[:mast.XOnlySize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedControlBlock, err)
	}

	rest := b[mast.XOnlySize:]
	siblings := make([]chainhash.Hash, 0, len(rest)/chainhash.HashSize)
	for len(rest) > 0 {
		var sibling chainhash.Hash
		copy(sibling[:], rest[:chainhash.HashSize])
		siblings = append(siblings, sibling)
		rest = rest[chainhash.HashSize:]
	}

	return &ControlBlock{
		InternalKey: internalKey,
		Siblings:    siblings,
	}, nil
}

// NewControlBlock builds the control block of a script key within the tree
// spanned by scriptKeys.
func NewControlBlock(internalKey mast.XOnly, scriptKeys []mast.XOnly,
	scriptKey mast.XOnly) (*ControlBlock, error) {

	siblings, err := mast.New(scriptKeys).GenerateMerkleProof(scriptKey)
	if err != nil {
		return nil, err
	}

	return &ControlBlock{
		InternalKey: internalKey,
		Siblings:    siblings,
	}, nil
}

// Bytes serializes the control block.
func (c *ControlBlock) Bytes() []byte {
	var b bytes.Buffer
	b.Grow(mast.XOnlySize + len(c.Siblings)*chainhash.HashSize)
	b.Write(c.InternalKey[:])
	for _, sibling := range c.Siblings {
		b.Write(sibling[:])
	}

	return b.Bytes()
}

// TweakedKey recomputes the output key committed to by the control block for
// the given script key.
func (c *ControlBlock) TweakedKey(scriptKey mast.XOnly,
	tweaker mast.Tweaker) ([32]byte, error) {

	root := mast.VerifyMerkleProof(scriptKey, c.Siblings)
	return tweaker.TweakPubKey(c.InternalKey, root)
}
