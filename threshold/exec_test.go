package threshold

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightninglabs/taproot-threshold/internal/test"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

var (
	errCommit        = errors.New("commit failed")
	errSerialization = errors.New("serialization failure")
)

// flakyStore wraps a MemStore. It can fail the commit of a transaction whose
// body succeeded, or run a body again the way a retrying SQL executor does.
type flakyStore struct {
	*MemStore

	failCommits int
	retries     int
}

// Update runs f within a read-write transaction.
func (s *flakyStore) Update(ctx context.Context,
	f func(tx StoreTx) error) error {

	for s.retries > 0 {
		s.retries--

		err := s.MemStore.Update(ctx, func(tx StoreTx) error {
			if err := f(tx); err != nil {
				return err
			}

			return errSerialization
		})
		if !errors.Is(err, errSerialization) {
			return err
		}
	}

	if s.failCommits > 0 {
		s.failCommits--

		return s.MemStore.Update(ctx, func(tx StoreTx) error {
			if err := f(tx); err != nil {
				return err
			}

			return errCommit
		})
	}

	return s.MemStore.Update(ctx, f)
}

// countingLedger counts the transfers it is asked to perform.
type countingLedger struct {
	*MockLedger

	calls int
}

// Transfer moves amount between two accounts.
func (l *countingLedger) Transfer(ctx context.Context, from, to AccountID,
	amount uint64) error {

	l.calls++
	return l.MockLedger.Transfer(ctx, from, to, amount)
}

// TestExecScriptCommitFailure makes sure a transaction that fails to commit
// never moves funds and a retried transaction transfers once.
func TestExecScriptCommitFailure(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	ctx := context.Background()

	store := &flakyStore{MemStore: h.store}
	ledger := &countingLedger{MockLedger: h.ledger}
	h.engine.cfg.Store = store
	h.engine.cfg.Ledger = ledger

	a := h.generateAddress(2)
	target := AccountID{4}
	lock := TimeLock{Lo: 0, Hi: 10}
	hash := ComputeScriptHash(target, OpTransfer, 10, lock)
	require.NoError(t, h.engine.PassScript(
		ctx, a.passRequest(t, 0, hash, []byte("m")),
	))
	h.nextEvent()
	h.ledger.Credit(a.addr, 30)

	store.failCommits = 1
	err := h.engine.ExecScript(ctx, target, OpTransfer, 10, lock)
	require.ErrorIs(t, err, errCommit)
	require.Zero(t, ledger.calls)
	require.Zero(t, h.ledger.Balance(target))
	h.assertNoEvent()

	_, err = h.engine.Authorization(ctx, hash)
	require.NoError(t, err)

	store.retries = 2
	require.NoError(t, h.engine.ExecScript(ctx, target, OpTransfer, 10, lock))
	require.Equal(t, 1, ledger.calls)
	require.EqualValues(t, 10, h.ledger.Balance(target))
	require.IsType(t, &ScriptExecuted{}, h.nextEvent())

	err = h.engine.ExecScript(ctx, target, OpTransfer, 10, lock)
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.Equal(t, 1, ledger.calls)
	require.EqualValues(t, 10, h.ledger.Balance(target))
}

// TestExecScriptRestoreFailure checks the error returned when a failed
// transfer can't put the authorization back.
func TestExecScriptRestoreFailure(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	ctx := context.Background()

	store := &flakyStore{MemStore: h.store}
	h.engine.cfg.Store = store

	addr := AccountID{1}
	target := AccountID{2}
	lock := TimeLock{Lo: 0, Hi: 10}
	hash := ComputeScriptHash(target, OpTransfer, 10, lock)
	require.NoError(t, h.store.Update(ctx, func(tx StoreTx) error {
		return tx.InsertAuthorization(ctx, hash, addr)
	}))

	// The ledger fails for lack of funds, then the restore can't commit.
	h.engine.cfg.Ledger = LedgerFunc(func(context.Context, AccountID,
		AccountID, uint64) error {

		store.failCommits = 1
		return ErrInsufficientBalance
	})

	err := h.engine.ExecScript(ctx, target, OpTransfer, 10, lock)
	require.True(t, IsCapabilityError(err))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.ErrorContains(t, err, errCommit.Error())
}

// reentrantSink calls back into the engine from every delivery.
type reentrantSink struct {
	engine *Engine
	errs   chan error
}

// NotifyEvent prunes signatures and reports the result.
func (s *reentrantSink) NotifyEvent(Event) {
	_, err := s.engine.PruneSignatures(context.Background())
	s.errs <- err
}

// withinTimeout runs f and fails the test if it doesn't return in time.
func withinTimeout(t *testing.T, f func() error) {
	t.Helper()

	done := make(chan error, 1)
	go func() {
		done <- f()
	}()

	select {
	case err := <-done:
		require.NoError(t, err)

	case <-time.After(testTimeout):
		t.Fatalf("engine blocked while delivering an event")
	}
}

func randomKeys(t *testing.T, num int) [][]byte {
	keys := make([][]byte, num)
	for i := range keys {
		key := test.NewSr25519Signer(t).Key
		keys[i] = key[:]
	}

	return keys
}

// TestEventsOutsideEngineLock makes sure a sink may call back into the engine.
func TestEventsOutsideEngineLock(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	sink := &reentrantSink{
		engine: h.engine,
		errs:   make(chan error, 1),
	}
	h.engine.cfg.Events = sink

	keys := randomKeys(t, 3)
	withinTimeout(t, func() error {
		_, err := h.engine.GenerateAddress(context.Background(), keys)
		return err
	})
	require.NoError(t, <-sink.errs)
}

// TestEventChanNoReader makes sure an unread sink never stalls the engine.
func TestEventChanNoReader(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	events := NewEventChan(0)
	t.Cleanup(events.Stop)
	h.engine.cfg.Events = events

	keys := randomKeys(t, 3)
	withinTimeout(t, func() error {
		_, err := h.engine.GenerateAddress(context.Background(), keys)
		return err
	})
	withinTimeout(t, func() error {
		_, err := h.engine.PruneSignatures(context.Background())
		return err
	})

	// A stopped sink drops events even with room in its buffer.
	buffered := NewEventChan(1)
	buffered.Stop()
	buffered.NotifyEvent(&AddressRevoked{})
	require.Empty(t, buffered.Events)
}
