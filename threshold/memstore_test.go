package threshold

import (
	"context"
	"errors"
	"testing"

	"github.com/lightninglabs/taproot-threshold/mast"
	"github.com/stretchr/testify/require"
)

// TestMemStoreRollback makes sure a failed update leaves no trace.
func TestMemStoreRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemStore()

	hash := ScriptHash{1}
	addr := AccountID{2}
	keys := []mast.XOnly{{3}, {4}, {5}}

	errAbort := errors.New("abort")
	err := store.Update(ctx, func(tx StoreTx) error {
		require.NoError(t, tx.InsertAuthorization(ctx, hash, addr))
		require.NoError(t, tx.UpsertScriptKeys(ctx, addr, keys))
		require.NoError(t, tx.InsertUsedSignature(ctx, SigID{6}, 10))

		// Reads within the transaction see the pending writes.
		stored, err := tx.FetchAuthorization(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, addr, stored)

		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	err = store.View(ctx, func(tx StoreTx) error {
		_, err := tx.FetchAuthorization(ctx, hash)
		require.ErrorIs(t, err, ErrRecordNotFound)

		_, err = tx.FetchScriptKeys(ctx, addr)
		require.ErrorIs(t, err, ErrRecordNotFound)

		_, err = tx.FetchUsedSignature(ctx, SigID{6})
		require.ErrorIs(t, err, ErrRecordNotFound)

		return nil
	})
	require.NoError(t, err)
}

// TestMemStoreCommit checks committed writes and read only transactions.
func TestMemStoreCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemStore()

	addr := AccountID{2}
	keys := []mast.XOnly{{3}, {4}, {5}}

	err := store.Update(ctx, func(tx StoreTx) error {
		if err := tx.UpsertScriptKeys(ctx, addr, keys); err != nil {
			return err
		}
		if err := tx.InsertUsedSignature(ctx, SigID{1}, 5); err != nil {
			return err
		}
		return tx.InsertUsedSignature(ctx, SigID{2}, NoExpiry)
	})
	require.NoError(t, err)

	// Modifying the caller's slice doesn't change the stored keys.
	keys[0] = mast.XOnly{9}

	err = store.View(ctx, func(tx StoreTx) error {
		stored, err := tx.FetchScriptKeys(ctx, addr)
		require.NoError(t, err)
		require.Equal(t, mast.XOnly{3}, stored[0])

		expiry, err := tx.FetchUsedSignature(ctx, SigID{1})
		require.NoError(t, err)
		require.EqualValues(t, 5, expiry)

		require.ErrorIs(
			t, tx.DeleteScriptKeys(ctx, addr), ErrReadOnlyTx,
		)
		_, err = tx.PruneUsedSignatures(ctx, 100)
		require.ErrorIs(t, err, ErrReadOnlyTx)

		return nil
	})
	require.NoError(t, err)

	var pruned int64
	err = store.Update(ctx, func(tx StoreTx) error {
		var err error
		pruned, err = tx.PruneUsedSignatures(ctx, 100)
		return err
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)
}

// TestMemStoreRollbackRestores makes sure a failed update restores entries it
// overwrote or deleted, including after a panic.
func TestMemStoreRollbackRestores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemStore()

	hash := ScriptHash{1}
	addr := AccountID{2}
	keys := []mast.XOnly{{3}, {4}, {5}}

	err := store.Update(ctx, func(tx StoreTx) error {
		if err := tx.InsertAuthorization(ctx, hash, addr); err != nil {
			return err
		}
		if err := tx.UpsertScriptKeys(ctx, addr, keys); err != nil {
			return err
		}
		if err := tx.InsertUsedSignature(ctx, SigID{1}, 5); err != nil {
			return err
		}
		return tx.InsertUsedSignature(ctx, SigID{2}, NoExpiry)
	})
	require.NoError(t, err)

	assertUnchanged := func() {
		err := store.View(ctx, func(tx StoreTx) error {
			stored, err := tx.FetchAuthorization(ctx, hash)
			require.NoError(t, err)
			require.Equal(t, addr, stored)

			storedKeys, err := tx.FetchScriptKeys(ctx, addr)
			require.NoError(t, err)
			require.Equal(t, keys, storedKeys)

			expiry, err := tx.FetchUsedSignature(ctx, SigID{1})
			require.NoError(t, err)
			require.EqualValues(t, 5, expiry)

			_, err = tx.FetchUsedSignature(ctx, SigID{3})
			require.ErrorIs(t, err, ErrRecordNotFound)

			return nil
		})
		require.NoError(t, err)
	}

	// Every entry is written more than once so the undo log has to be
	// replayed in reverse.
	mutate := func(tx StoreTx) {
		require.NoError(t, tx.DeleteAuthorization(ctx, hash))
		require.NoError(t, tx.InsertAuthorization(
			ctx, hash, AccountID{7},
		))
		require.NoError(t, tx.UpsertScriptKeys(
			ctx, addr, []mast.XOnly{{8}, {9}, {10}},
		))
		require.NoError(t, tx.DeleteScriptKeys(ctx, addr))

		pruned, err := tx.PruneUsedSignatures(ctx, 10)
		require.NoError(t, err)
		require.EqualValues(t, 1, pruned)
		require.NoError(t, tx.InsertUsedSignature(ctx, SigID{1}, 50))
		require.NoError(t, tx.InsertUsedSignature(ctx, SigID{3}, 50))
	}

	errAbort := errors.New("abort")
	err = store.Update(ctx, func(tx StoreTx) error {
		mutate(tx)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	assertUnchanged()

	require.Panics(t, func() {
		_ = store.Update(ctx, func(tx StoreTx) error {
			mutate(tx)
			panic("abort")
		})
	})
	assertUnchanged()
}
