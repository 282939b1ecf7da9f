package threshold

import (
	"context"

	"github.com/lightninglabs/taproot-threshold/mast"
)

// StoreTx is the set of reads and writes the engine performs within a single
// store transaction.
type StoreTx interface {
	// FetchAuthorization returns the address that authorized the script
	// hash, or ErrRecordNotFound.
	FetchAuthorization(ctx context.Context,
		hash ScriptHash) (AccountID, error)

	// InsertAuthorization records that addr authorized the script hash.
	InsertAuthorization(ctx context.Context, hash ScriptHash,
		addr AccountID) error

	// DeleteAuthorization removes an authorization record.
	DeleteAuthorization(ctx context.Context, hash ScriptHash) error

	// FetchScriptKeys returns the keys an address was generated from,
	// internal key first, or ErrRecordNotFound.
	FetchScriptKeys(ctx context.Context,
		addr AccountID) ([]mast.XOnly, error)

	// UpsertScriptKeys stores the keys an address was generated from,
	// replacing any previous list.
	UpsertScriptKeys(ctx context.Context, addr AccountID,
		keys []mast.XOnly) error

	// DeleteScriptKeys removes the keys stored for an address.
	DeleteScriptKeys(ctx context.Context, addr AccountID) error

	// FetchUsedSignature returns the expiry height recorded for a used
	// signature, or ErrRecordNotFound.
	FetchUsedSignature(ctx context.Context, id SigID) (uint64, error)

	// InsertUsedSignature records a signature as used until the given
	// expiry height.
	InsertUsedSignature(ctx context.Context, id SigID, expiry uint64) error

	// PruneUsedSignatures removes all used signatures that expired before
	// the given height and returns how many were removed.
	PruneUsedSignatures(ctx context.Context, height uint64) (int64, error)
}

// Store provides atomic access to the engine state. A failed body leaves the
// state untouched.
type Store interface {
	// Update runs f within a read-write transaction.
	Update(ctx context.Context, f func(tx StoreTx) error) error

	// View runs f within a read only transaction.
	View(ctx context.Context, f func(tx StoreTx) error) error
}

// ChainHeight reports the current block height of the host chain.
type ChainHeight interface {
	// CurrentHeight returns the height of the current block.
	CurrentHeight(ctx context.Context) (uint64, error)
}

// ChainHeightFunc adapts a function to the ChainHeight interface.
type ChainHeightFunc func(ctx context.Context) (uint64, error)

// CurrentHeight calls f.
func (f ChainHeightFunc) CurrentHeight(ctx context.Context) (uint64, error) {
	return f(ctx)
}

// Ledger is the host's balance transfer capability.
type Ledger interface {
	// Transfer moves amount from one account to another.
	Transfer(ctx context.Context, from, to AccountID, amount uint64) error
}

// LedgerFunc adapts a function to the Ledger interface.
type LedgerFunc func(ctx context.Context, from, to AccountID,
	amount uint64) error

// Transfer calls f.
func (f LedgerFunc) Transfer(ctx context.Context, from, to AccountID,
	amount uint64) error {

	return f(ctx, from, to, amount)
}

// AccountCodec maps a tweaked key to a host account.
type AccountCodec interface {
	// DecodeAccount returns the account for the tweaked key, failing
	// rather than falling back to a default account.
	DecodeAccount(tweaked [32]byte) (AccountID, error)
}

// StrictAccountCodec maps a tweaked key to the account with the same bytes
// and refuses the all zero key.
type StrictAccountCodec struct{}

// DecodeAccount returns the account for the tweaked key.
func (StrictAccountCodec) DecodeAccount(tweaked [32]byte) (AccountID, error) {
	if tweaked == ([32]byte{}) {
		return AccountID{}, ErrAccountDecode
	}

	return AccountID(tweaked), nil
}

// Call is an action dispatched on behalf of a threshold address once its
// signature has been verified.
type Call func(ctx context.Context, principal AccountID) error
