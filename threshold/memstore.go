package threshold

import (
	"context"
	"sync"

	"github.com/lightninglabs/taproot-threshold/mast"
	"golang.org/x/exp/slices"
)

// memState is the full engine state held by a MemStore.
type memState struct {
	authorizations map[ScriptHash]AccountID
	scriptKeys     map[AccountID][]mast.XOnly
	usedSigs       map[SigID]uint64
}

func newMemState() *memState {
	return &memState{
		authorizations: make(map[ScriptHash]AccountID),
		scriptKeys:     make(map[AccountID][]mast.XOnly),
		usedSigs:       make(map[SigID]uint64),
	}
}

// MemStore is an in-memory Store. Read-write transactions modify the state in
// place and keep an undo log of the touched entries that is replayed if the
// body fails.
type MemStore struct {
	mu    sync.RWMutex
	state *memState
}

// A compile time assertion to ensure MemStore meets the Store interface.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		state: newMemState(),
	}
}

// Update runs f within a read-write transaction.
func (m *MemStore) Update(ctx context.Context,
	f func(tx StoreTx) error) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{state: m.state}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()

	if err := f(tx); err != nil {
		return err
	}
	committed = true

	return nil
}

// View runs f within a read only transaction.
func (m *MemStore) View(ctx context.Context, f func(tx StoreTx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return f(&memTx{state: m.state, readOnly: true})
}

// memTx is a transaction against a memState.
type memTx struct {
	state    *memState
	readOnly bool

	// undo restores the entries written so far, in reverse order.
	undo []func()
}

// journal records the current entry of key in m so rollback can restore it.
func journal[K comparable, V any](t *memTx, m map[K]V, key K) {
	old, ok := m[key]
	t.undo = append(t.undo, func() {
		if ok {
			m[key] = old
		} else {
			delete(m, key)
		}
	})
}

// rollback undoes all writes of the transaction.
func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// A compile time assertion to ensure memTx meets the StoreTx interface.
var _ StoreTx = (*memTx)(nil)

func (t *memTx) checkWrite() error {
	if t.readOnly {
		return ErrReadOnlyTx
	}

	return nil
}

// FetchAuthorization returns the address that authorized the script hash.
func (t *memTx) FetchAuthorization(_ context.Context,
	hash ScriptHash) (AccountID, error) {

	addr, ok := t.state.authorizations[hash]
	if !ok {
		return AccountID{}, ErrRecordNotFound
	}

	return addr, nil
}

// InsertAuthorization records that addr authorized the script hash.
func (t *memTx) InsertAuthorization(_ context.Context, hash ScriptHash,
	addr AccountID) error {

	if err := t.checkWrite(); err != nil {
		return err
	}

	journal(t, t.state.authorizations, hash)
	t.state.authorizations[hash] = addr

	return nil
}

// DeleteAuthorization removes an authorization record.
func (t *memTx) DeleteAuthorization(_ context.Context, hash ScriptHash) error {
	if err := t.checkWrite(); err != nil {
		return err
	}

	journal(t, t.state.authorizations, hash)
	delete(t.state.authorizations, hash)

	return nil
}

// FetchScriptKeys returns the keys an address was generated from.
func (t *memTx) FetchScriptKeys(_ context.Context,
	addr AccountID) ([]mast.XOnly, error) {

	keys, ok := t.state.scriptKeys[addr]
	if !ok {
		return nil, ErrRecordNotFound
	}

	return slices.Clone(keys), nil
}

// UpsertScriptKeys stores the keys an address was generated from.
func (t *memTx) UpsertScriptKeys(_ context.Context, addr AccountID,
	keys []mast.XOnly) error {

	if err := t.checkWrite(); err != nil {
		return err
	}

	journal(t, t.state.scriptKeys, addr)
	t.state.scriptKeys[addr] = slices.Clone(keys)

	return nil
}

// DeleteScriptKeys removes the keys stored for an address.
func (t *memTx) DeleteScriptKeys(_ context.Context, addr AccountID) error {
	if err := t.checkWrite(); err != nil {
		return err
	}

	journal(t, t.state.scriptKeys, addr)
	delete(t.state.scriptKeys, addr)

	return nil
}

// FetchUsedSignature returns the expiry height recorded for a signature.
func (t *memTx) FetchUsedSignature(_ context.Context,
	id SigID) (uint64, error) {

	expiry, ok := t.state.usedSigs[id]
	if !ok {
		return 0, ErrRecordNotFound
	}

	return expiry, nil
}

// InsertUsedSignature records a signature as used.
func (t *memTx) InsertUsedSignature(_ context.Context, id SigID,
	expiry uint64) error {

	if err := t.checkWrite(); err != nil {
		return err
	}

	journal(t, t.state.usedSigs, id)
	t.state.usedSigs[id] = expiry

	return nil
}

// PruneUsedSignatures removes all used signatures that expired before height.
func (t *memTx) PruneUsedSignatures(_ context.Context,
	height uint64) (int64, error) {

	if err := t.checkWrite(); err != nil {
		return 0, err
	}

	var pruned int64
	for id, expiry := range t.state.usedSigs {
		if expiry < height {
			journal(t, t.state.usedSigs, id)
			delete(t.state.usedSigs, id)
			pruned++
		}
	}

	return pruned, nil
}
