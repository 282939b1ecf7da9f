package threshold

import (
	"fmt"

	"github.com/lightninglabs/taproot-threshold/codec"
)

// MessagePolicy interprets the message signed to authorize a script.
type MessagePolicy interface {
	// CheckMessage validates msg for the given script hash and returns
	// the last block height at which it may be used.
	CheckMessage(msg []byte, hash ScriptHash) (uint64, error)
}

// OpaqueMessages accepts any message and never expires it. Replays are still
// refused through the used signature registry.
type OpaqueMessages struct{}

// CheckMessage accepts every message.
func (OpaqueMessages) CheckMessage([]byte, ScriptHash) (uint64, error) {
	return NoExpiry, nil
}

// HeightMessages expects the message to be the 8 byte little endian expiry
// height of the authorization.
type HeightMessages struct{}

// HeightMessage returns the message expiring at the given height.
func HeightMessage(expiry uint64) []byte {
	return codec.Uint64Bytes(expiry)
}

// CheckMessage decodes the expiry height.
func (HeightMessages) CheckMessage(msg []byte, _ ScriptHash) (uint64, error) {
	if len(msg) != 8 {
		return 0, fmt.Errorf("%w: expected 8 byte height, got %d bytes",
			ErrMalformedMessage, len(msg))
	}

	return codec.Uint64FromBytes(msg), nil
}

// BoundMessages expects the message to commit to the script hash followed by
// the 8 byte little endian expiry height, so a signature can only authorize
// the script it was made for.
type BoundMessages struct{}

// BoundMessage returns the message authorizing hash until the given height.
func BoundMessage(hash ScriptHash, expiry uint64) []byte {
	msg := make([]byte, 0, len(hash)+8)
	msg = append(msg, hash[:]...)
	return append(msg, codec.Uint64Bytes(expiry)...)
}

// CheckMessage checks the script commitment and decodes the expiry height.
func (BoundMessages) CheckMessage(msg []byte, hash ScriptHash) (uint64, error) {
	if len(msg) != len(hash)+8 {
		return 0, fmt.Errorf("%w: expected %d bytes, got %d",
			ErrMalformedMessage, len(hash)+8, len(msg))
	}

	var bound ScriptHash
	copy(bound[:], msg[:len(hash)])
	if bound != hash {
		return 0, fmt.Errorf("%w: message commits to %v, request "+
			"is for %v", ErrMessageMismatch, bound, hash)
	}

	return codec.Uint64FromBytes(msg[len(hash):]), nil
}

// MessagePolicyByName maps a configuration value to a policy.
func MessagePolicyByName(name string) (MessagePolicy, error) {
	switch name {
	case "", "opaque":
		return OpaqueMessages{}, nil
	case "height":
		return HeightMessages{}, nil
	case "bound":
		return BoundMessages{}, nil
	default:
		return nil, fmt.Errorf("unknown message policy %q", name)
	}
}
