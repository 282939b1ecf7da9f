package threshold

import (
	"errors"
	"fmt"

	"github.com/lightninglabs/taproot-threshold/mast"
)

// Malformed input errors. The caller may retry with corrected input.
var (
	// ErrMalformedControlBlock is returned when a control block isn't a
	// non-empty sequence of 32 byte chunks.
	ErrMalformedControlBlock = errors.New("malformed control block")

	// ErrMalformedKey is returned when a script or internal key can't be
	// parsed.
	ErrMalformedKey = errors.New("malformed key")

	// ErrMalformedMessage is returned when a signed message doesn't follow
	// the configured message policy.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownOpCode is returned for an opcode outside the supported set.
	ErrUnknownOpCode = errors.New("unknown opcode")

	// ErrAccountDecode is returned when the host can't map a tweaked key to
	// an account.
	ErrAccountDecode = errors.New("unable to decode account")
)

// Proof errors. The disclosed key and control block don't commit to the
// claimed address.
var (
	// ErrProofMismatch is returned when the recomputed address differs
	// from the claimed one.
	ErrProofMismatch = errors.New("proof does not match address")
)

// Authorization errors. The proof was well formed but the operation isn't
// allowed.
var (
	// ErrInvalidSignature is returned when the threshold signature doesn't
	// verify under the disclosed key.
	ErrInvalidSignature = errors.New("invalid threshold signature")

	// ErrNotAuthorized is returned when executing a script that was never
	// authorized or was already consumed.
	ErrNotAuthorized = errors.New("script not authorized")

	// ErrTimeLockMismatch is returned when executing a script outside of
	// its time lock window.
	ErrTimeLockMismatch = errors.New("current height outside time lock")

	// ErrAlreadyAuthorized is returned when a script hash is already
	// authorized or a signature is replayed.
	ErrAlreadyAuthorized = errors.New("script already authorized")

	// ErrExpired is returned when the signed message is past its expiry
	// height.
	ErrExpired = errors.New("signature expired")

	// ErrUnknownAddress is returned when no script keys are stored for a
	// threshold address.
	ErrUnknownAddress = errors.New("no scripts stored for address")

	// ErrMessageMismatch is returned when a bound message commits to a
	// different script hash.
	ErrMessageMismatch = errors.New("message bound to another script")
)

var (
	// ErrRecordNotFound is returned by a Store when a record doesn't
	// exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrReadOnlyTx is returned when writing within a read only store
	// transaction.
	ErrReadOnlyTx = errors.New("write in read only transaction")
)

var (
	malformedErrors = []error{
		ErrMalformedControlBlock, ErrMalformedKey, ErrMalformedMessage,
		ErrUnknownOpCode, ErrAccountDecode, mast.ErrInvalidKeyLength,
		mast.ErrTooFewKeys,
	}

	proofErrors = []error{
		ErrProofMismatch, mast.ErrInvalidProof, mast.ErrKeyNotFound,
	}

	authorizationErrors = []error{
		ErrInvalidSignature, ErrNotAuthorized, ErrTimeLockMismatch,
		ErrAlreadyAuthorized, ErrExpired, ErrUnknownAddress,
		ErrMessageMismatch,
	}
)

// CapabilityError wraps a failure of a host capability, such as the balance
// transfer, that was invoked after all checks passed.
type CapabilityError struct {
	// Op names the capability that failed.
	Op string

	// Err is the error returned by the host.
	Err error
}

// Error returns the error message.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error.
func (e *CapabilityError) Unwrap() error {
	return e.Err
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// IsMalformed returns true if err was caused by unparsable input.
func IsMalformed(err error) bool {
	return isAny(err, malformedErrors)
}

// IsProofError returns true if err was caused by a proof that doesn't commit
// to the claimed address or a tree that can't be walked.
func IsProofError(err error) bool {
	return isAny(err, proofErrors)
}

// IsAuthorizationError returns true if err was caused by a failed signature,
// replay, expiry or time lock check.
func IsAuthorizationError(err error) bool {
	return isAny(err, authorizationErrors)
}

// IsCapabilityError returns true if err was returned by a host capability.
func IsCapabilityError(err error) bool {
	var capErr *CapabilityError
	return errors.As(err, &capErr)
}
