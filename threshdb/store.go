package threshdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lightninglabs/taproot-threshold/mast"
	"github.com/lightninglabs/taproot-threshold/threshdb/sqlc"
	"github.com/lightninglabs/taproot-threshold/threshold"
	"github.com/lightningnetwork/lnd/clock"
	"golang.org/x/exp/slices"
)

type (
	// InsertAuthorization is the params for inserting an authorization.
	InsertAuthorization = sqlc.InsertAuthorizationParams

	// UpsertThresholdAddress is the params for storing an address.
	UpsertThresholdAddress = sqlc.UpsertThresholdAddressParams

	// InsertScriptKey is the params for storing one key of an address.
	InsertScriptKey = sqlc.InsertScriptKeyParams

	// InsertUsedSignature is the params for recording a used signature.
	InsertUsedSignature = sqlc.InsertUsedSignatureParams
)

// ThresholdQueries is the set of queries the threshold store needs.
type ThresholdQueries interface {
	InsertAuthorization(ctx context.Context, arg InsertAuthorization) error

	FetchAuthorization(ctx context.Context, scriptHash []byte) ([]byte,
		error)

	DeleteAuthorization(ctx context.Context, scriptHash []byte) (int64,
		error)

	UpsertThresholdAddress(ctx context.Context,
		arg UpsertThresholdAddress) (int64, error)

	DeleteThresholdAddress(ctx context.Context, addr []byte) (int64, error)

	InsertScriptKey(ctx context.Context, arg InsertScriptKey) error

	DeleteScriptKeys(ctx context.Context, addressID int64) error

	FetchScriptKeys(ctx context.Context, addr []byte) ([][]byte, error)

	InsertUsedSignature(ctx context.Context, arg InsertUsedSignature) error

	FetchUsedSignature(ctx context.Context, sigID []byte) (int64, error)

	PruneUsedSignatures(ctx context.Context, expiryHeight int64) (int64,
		error)
}

// BatchedThresholdQueries is a version of ThresholdQueries that's capable of
// batched database operations.
type BatchedThresholdQueries interface {
	ThresholdQueries

	BatchedTx[ThresholdQueries]
}

// ThresholdStore is a SQL backed threshold.Store.
type ThresholdStore struct {
	db BatchedThresholdQueries

	clock clock.Clock
}

// A compile time assertion to ensure ThresholdStore meets the threshold.Store
// interface.
var _ threshold.Store = (*ThresholdStore)(nil)

// NewThresholdStore creates a new store from the given database.
func NewThresholdStore(db BatchedThresholdQueries,
	clock clock.Clock) *ThresholdStore {

	return &ThresholdStore{
		db:    db,
		clock: clock,
	}
}

// NewThresholdStoreFromDB wraps the base database into a threshold store.
func NewThresholdStoreFromDB(db *BaseDB, clock clock.Clock) *ThresholdStore {
	txCreator := func(tx *sql.Tx) ThresholdQueries {
		return db.WithTx(tx)
	}

	return NewThresholdStore(
		NewTransactionExecutor(db, txCreator), clock,
	)
}

// Update runs f within a read-write database transaction.
func (s *ThresholdStore) Update(ctx context.Context,
	f func(tx threshold.StoreTx) error) error {

	return s.db.ExecTx(ctx, WriteTxOpt(), func(q ThresholdQueries) error {
		return f(&thresholdTx{
			q:     q,
			clock: s.clock,
		})
	})
}

// View runs f within a read only database transaction.
func (s *ThresholdStore) View(ctx context.Context,
	f func(tx threshold.StoreTx) error) error {

	return s.db.ExecTx(ctx, ReadTxOpt(), func(q ThresholdQueries) error {
		return f(&thresholdTx{
			q:        q,
			clock:    s.clock,
			readOnly: true,
		})
	})
}

// thresholdTx implements threshold.StoreTx on top of a database transaction.
type thresholdTx struct {
	q        ThresholdQueries
	clock    clock.Clock
	readOnly bool
}

// A compile time assertion to ensure thresholdTx meets the threshold.StoreTx
// interface.
var _ threshold.StoreTx = (*thresholdTx)(nil)

func (t *thresholdTx) checkWrite() error {
	if t.readOnly {
		return threshold.ErrReadOnlyTx
	}

	return nil
}

// FetchAuthorization returns the address that authorized the script hash.
func (t *thresholdTx) FetchAuthorization(ctx context.Context,
	hash threshold.ScriptHash) (threshold.AccountID, error) {

	addr, err := t.q.FetchAuthorization(ctx, hash[:])
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return threshold.AccountID{}, threshold.ErrRecordNotFound

	case err != nil:
		return threshold.AccountID{}, fmt.Errorf("unable to fetch "+
			"authorization: %w", err)
	}

	if len(addr) != len(threshold.AccountID{}) {
		return threshold.AccountID{}, fmt.Errorf("invalid stored "+
			"address length %d", len(addr))
	}

	return threshold.AccountID(addr), nil
}

// InsertAuthorization records that addr authorized the script hash.
func (t *thresholdTx) InsertAuthorization(ctx context.Context,
	hash threshold.ScriptHash, addr threshold.AccountID) error {

	if err := t.checkWrite(); err != nil {
		return err
	}

	err := t.q.InsertAuthorization(ctx, InsertAuthorization{
		ScriptHash: hash[:],
		Addr:       addr[:],
		CreatedAt:  t.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("unable to insert authorization: %w", err)
	}

	return nil
}

// DeleteAuthorization removes an authorization record.
func (t *thresholdTx) DeleteAuthorization(ctx context.Context,
	hash threshold.ScriptHash) error {

	if err := t.checkWrite(); err != nil {
		return err
	}

	_, err := t.q.DeleteAuthorization(ctx, hash[:])
	if err != nil {
		return fmt.Errorf("unable to delete authorization: %w", err)
	}

	return nil
}

// FetchScriptKeys returns the keys an address was generated from.
func (t *thresholdTx) FetchScriptKeys(ctx context.Context,
	addr threshold.AccountID) ([]mast.XOnly, error) {

	rawKeys, err := t.q.FetchScriptKeys(ctx, addr[:])
	if err != nil {
		return nil, fmt.Errorf("unable to fetch script keys: %w", err)
	}
	if len(rawKeys) == 0 {
		return nil, threshold.ErrRecordNotFound
	}

	return parseScriptKeys(rawKeys)
}

// UpsertScriptKeys stores the keys an address was generated from.
func (t *thresholdTx) UpsertScriptKeys(ctx context.Context,
	addr threshold.AccountID, keys []mast.XOnly) error {

	if err := t.checkWrite(); err != nil {
		return err
	}

	addrID, err := t.q.UpsertThresholdAddress(ctx, UpsertThresholdAddress{
		Addr:      addr[:],
		CreatedAt: t.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("unable to upsert address: %w", err)
	}

	// Replace any keys stored by an earlier generation.
	if err := t.q.DeleteScriptKeys(ctx, addrID); err != nil {
		return fmt.Errorf("unable to delete script keys: %w", err)
	}

	for i, key := range keys {
		err := t.q.InsertScriptKey(ctx, InsertScriptKey{
			AddressID: addrID,
			KeyIndex:  int32(i),
			ScriptKey: slices.Clone(key[:]),
		})
		if err != nil {
			return fmt.Errorf("unable to insert script key %d: %w",
				i, err)
		}
	}

	return nil
}

// DeleteScriptKeys removes the keys stored for an address.
func (t *thresholdTx) DeleteScriptKeys(ctx context.Context,
	addr threshold.AccountID) error {

	if err := t.checkWrite(); err != nil {
		return err
	}

	// The script keys are removed through the cascading foreign key.
	_, err := t.q.DeleteThresholdAddress(ctx, addr[:])
	if err != nil {
		return fmt.Errorf("unable to delete address: %w", err)
	}

	return nil
}

// FetchUsedSignature returns the expiry height recorded for a signature.
func (t *thresholdTx) FetchUsedSignature(ctx context.Context,
	id threshold.SigID) (uint64, error) {

	expiry, err := t.q.FetchUsedSignature(ctx, id[:])
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, threshold.ErrRecordNotFound

	case err != nil:
		return 0, fmt.Errorf("unable to fetch used signature: %w", err)
	}

	return extractHeight[uint64](expiry), nil
}

// InsertUsedSignature records a signature as used.
func (t *thresholdTx) InsertUsedSignature(ctx context.Context,
	id threshold.SigID, expiry uint64) error {

	if err := t.checkWrite(); err != nil {
		return err
	}

	err := t.q.InsertUsedSignature(ctx, InsertUsedSignature{
		SigID:        id[:],
		ExpiryHeight: sqlHeight(expiry),
	})
	if err != nil {
		return fmt.Errorf("unable to insert used signature: %w", err)
	}

	return nil
}

// PruneUsedSignatures removes all used signatures that expired before height.
func (t *thresholdTx) PruneUsedSignatures(ctx context.Context,
	height uint64) (int64, error) {

	if err := t.checkWrite(); err != nil {
		return 0, err
	}

	pruned, err := t.q.PruneUsedSignatures(ctx, sqlHeight(height))
	if err != nil {
		return 0, fmt.Errorf("unable to prune used signatures: %w", err)
	}

	return pruned, nil
}
