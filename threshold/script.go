package threshold

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/taproot-threshold/codec"
)

// TagThresholdScript is the tag of the tagged hash committing to a script.
var TagThresholdScript = []byte("ThresholdScript")

// ComputeScriptHash derives the identifier of the script that sends amount to
// target within the given time lock:
//
//	TaggedHash("ThresholdScript", target || op || amount || lo || hi)
//
// with all integers as fixed width little endian values.
func ComputeScriptHash(target AccountID, op OpCode, amount uint64,
	lock TimeLock) ScriptHash {

	// Writes to an in-memory buffer can't fail.
	preimage, _ := codec.Serialize(func(w io.Writer) error {
		if _, err := w.Write(target[:]); err != nil {
			return err
		}
		if err := codec.WriteUint8(w, uint8(op)); err != nil {
			return err
		}
		if err := codec.WriteUint64(w, amount); err != nil {
			return err
		}
		if err := codec.WriteUint64(w, lock.Lo); err != nil {
			return err
		}
		return codec.WriteUint64(w, lock.Hi)
	})

	return ScriptHash(*chainhash.TaggedHash(TagThresholdScript, preimage))
}
