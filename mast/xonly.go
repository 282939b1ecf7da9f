package mast

import (
	"encoding/hex"
	"fmt"
)

// XOnlySize is the serialized size of a script key.
const XOnlySize = 32

// XOnly is a 32 byte x-only (or compressed point) public key used as a leaf
// of the script tree. The bytes are opaque to this package, the curve they
// live on is decided by the scheme used to tweak and verify them.
type XOnly [XOnlySize]byte

// NewXOnly creates a script key from the given bytes, which must be exactly 32
// bytes long.
func NewXOnly(b []byte) (XOnly, error) {
	var key XOnly
	if len(b) != XOnlySize {
		return key, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyLength,
			len(b))
	}

	copy(key[:], b)
	return key, nil
}

// ParseXOnlyHex decodes a hex encoded script key.
func ParseXOnlyHex(s string) (XOnly, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return XOnly{}, fmt.Errorf("unable to decode script key: %w",
			err)
	}

	return NewXOnly(b)
}

// NewXOnlyKeys converts a list of raw keys into script keys, failing on the
// first one that has the wrong length.
func NewXOnlyKeys(keys [][]byte) ([]XOnly, error) {
	xOnlyKeys := make([]XOnly, 0, len(keys))
	for i, k := range keys {
		key, err := NewXOnly(k)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		xOnlyKeys = append(xOnlyKeys, key)
	}

	return xOnlyKeys, nil
}

// String returns the hex encoding of the key.
func (x XOnly) String() string {
	return hex.EncodeToString(x[:])
}
