package threshold

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// NoExpiry marks a used signature that never becomes prunable.
const NoExpiry = uint64(math.MaxInt64)

// AccountID is the host's handle for an account. Threshold addresses are
// accounts derived from a tweaked key.
type AccountID [32]byte

// String returns the hex encoding of the account.
func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

// ParseAccountID decodes a hex encoded account.
func ParseAccountID(s string) (AccountID, error) {
	var a AccountID
	if err := decodeHex32(s, a[:]); err != nil {
		return a, fmt.Errorf("%w: %v", ErrAccountDecode, err)
	}

	return a, nil
}

// ScriptHash identifies an authorized script.
type ScriptHash [32]byte

// String returns the hex encoding of the script hash.
func (s ScriptHash) String() string {
	return hex.EncodeToString(s[:])
}

// ParseScriptHash decodes a hex encoded script hash.
func ParseScriptHash(s string) (ScriptHash, error) {
	var h ScriptHash
	if err := decodeHex32(s, h[:]); err != nil {
		return h, fmt.Errorf("invalid script hash: %w", err)
	}

	return h, nil
}

// SigID identifies a signature that was used to authorize a script.
type SigID [32]byte

// NewSigID returns the identifier of a signature.
func NewSigID(sig []byte) SigID {
	return SigID(chainhash.HashH(sig))
}

// String returns the hex encoding of the signature identifier.
func (s SigID) String() string {
	return hex.EncodeToString(s[:])
}

func decodeHex32(s string, out []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(out, b)

	return nil
}

// OpCode is the action an authorized script performs.
type OpCode uint8

const (
	// OpTransfer moves funds from the threshold address to the target.
	OpTransfer OpCode = 0
)

// String returns the name of the opcode.
func (o OpCode) String() string {
	switch o {
	case OpTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("OpCode(%d)", uint8(o))
	}
}

// Validate returns an error for opcodes outside the supported set.
func (o OpCode) Validate() error {
	switch o {
	case OpTransfer:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownOpCode, uint8(o))
	}
}

// ParseOpCode maps an opcode name to its value.
func ParseOpCode(s string) (OpCode, error) {
	switch strings.ToLower(s) {
	case "transfer":
		return OpTransfer, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOpCode, s)
	}
}

// TimeLock is a closed interval of block heights.
type TimeLock struct {
	// Lo is the first height at which the script may execute.
	Lo uint64

	// Hi is the last height at which the script may execute.
	Hi uint64
}

// Contains returns true if height lies within [Lo, Hi].
func (t TimeLock) Contains(height uint64) bool {
	return t.Lo <= height && height <= t.Hi
}

// String returns the interval as [lo, hi].
func (t TimeLock) String() string {
	return fmt.Sprintf("[%d, %d]", t.Lo, t.Hi)
}
