package threshold

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightninglabs/taproot-threshold/internal/test"
	"github.com/lightninglabs/taproot-threshold/mast"
	"github.com/lightninglabs/taproot-threshold/scheme"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	testTime = time.Unix(1_700_000_000, 0)
)

func mustHex(t testing.TB, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func mustAccount(t testing.TB, s string) AccountID {
	a, err := ParseAccountID(s)
	require.NoError(t, err)
	return a
}

// testHarness bundles an engine with its mocked collaborators.
type testHarness struct {
	t *testing.T

	engine *Engine
	store  *MemStore
	chain  *MockChain
	ledger *MockLedger
	events *EventChan
}

func newTestHarness(t *testing.T, messages MessagePolicy) *testHarness {
	h := &testHarness{
		t:      t,
		store:  NewMemStore(),
		chain:  NewMockChain(0),
		ledger: NewMockLedger(),
		events: NewEventChan(32),
	}
	t.Cleanup(h.events.Stop)

	var err error
	h.engine, err = NewEngine(&Config{
		Store:    h.store,
		Scheme:   &scheme.Sr25519{},
		Chain:    h.chain,
		Ledger:   h.ledger,
		Events:   h.events,
		Messages: messages,
		Clock:    clock.NewTestClock(testTime),
	})
	require.NoError(t, err)

	return h
}

// nextEvent returns the next delivered event, failing if none is pending.
func (h *testHarness) nextEvent() Event {
	select {
	case event := <-h.events.Events:
		require.Equal(h.t, testTime, event.Timestamp())
		return event

	default:
		h.t.Fatalf("no event pending")
		return nil
	}
}

func (h *testHarness) assertNoEvent() {
	select {
	case event := <-h.events.Events:
		h.t.Fatalf("unexpected event %T", event)

	default:
	}
}

// thresholdAddr is a generated address with the signers of its keys.
type thresholdAddr struct {
	addr     AccountID
	internal *test.Sr25519Signer
	scripts  []*test.Sr25519Signer
}

func (a *thresholdAddr) scriptKeys() []mast.XOnly {
	keys := make([]mast.XOnly, len(a.scripts))
	for i, s := range a.scripts {
		keys[i] = s.Key
	}

	return keys
}

func (a *thresholdAddr) controlBlock(t testing.TB, idx int) []byte {
	cb, err := NewControlBlock(
		a.internal.Key, a.scriptKeys(), a.scripts[idx].Key,
	)
	require.NoError(t, err)

	return cb.Bytes()
}

// passRequest builds a request in which script idx authorizes hash by
// signing msg.
func (a *thresholdAddr) passRequest(t testing.TB, idx int, hash ScriptHash,
	msg []byte) *PassScriptRequest {

	return &PassScriptRequest{
		Addr:         a.addr,
		Signature:    a.scripts[idx].Sign(t, msg),
		PubKey:       a.scripts[idx].Key[:],
		ControlBlock: a.controlBlock(t, idx),
		Message:      msg,
		ScriptHash:   hash,
	}
}

func (h *testHarness) generateAddress(numScripts int) *thresholdAddr {
	a := &thresholdAddr{
		internal: test.NewSr25519Signer(h.t),
	}
	keys := [][]byte{a.internal.Key[:]}
	for i := 0; i < numScripts; i++ {
		s := test.NewSr25519Signer(h.t)
		a.scripts = append(a.scripts, s)
		keys = append(keys, s.Key[:])
	}

	var err error
	a.addr, err = h.engine.GenerateAddress(context.Background(), keys)
	require.NoError(h.t, err)

	event := h.nextEvent()
	require.IsType(h.t, &AddressGenerated{}, event)
	require.Equal(h.t, a.addr, event.(*AddressGenerated).Addr)

	return a
}

// TestNewEngineConfig checks the mandatory collaborators.
func TestNewEngineConfig(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(&Config{})
	require.Error(t, err)

	cfg := &Config{
		Store:  NewMemStore(),
		Scheme: &scheme.Sr25519{},
		Chain:  NewMockChain(0),
		Ledger: NewMockLedger(),
	}
	_, err = NewEngine(cfg)
	require.NoError(t, err)
	require.Equal(t, StrictAccountCodec{}, cfg.Accounts)
	require.Equal(t, OpaqueMessages{}, cfg.Messages)
	require.NotNil(t, cfg.Clock)
}

// TestGenerateAddressVector derives the reference address and checks the
// stored key list.
func TestGenerateAddressVector(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	ctx := context.Background()

	keys := [][]byte{
		mustHex(t, test.InternalKeyABC), mustHex(t, test.ScriptKeyAB), mustHex(t, test.ScriptKeyAC),
		mustHex(t, test.ScriptKeyBC),
	}
	addr, err := h.engine.GenerateAddress(ctx, keys)
	require.NoError(t, err)
	require.Equal(t, test.AddrABC, addr.String())

	stored, err := h.engine.ScriptKeys(ctx, addr)
	require.NoError(t, err)
	require.Len(t, stored, 4)
	for i, key := range stored {
		require.Equal(t, keys[i], key[:])
	}

	event := h.nextEvent().(*AddressGenerated)
	require.Equal(t, 3, event.NumScripts)
}

// TestGenerateAddressErrors covers key lists that can't form an address.
func TestGenerateAddressErrors(t *testing.T) {
	t.Parallel()

	ones := make([]byte, 32)
	for i := range ones {
		ones[i] = 1
	}

	testCases := []struct {
		// name describes the key list.
		name string

		// keys is the input of GenerateAddress.
		keys [][]byte

		// expectedErr is the error the call fails with.
		expectedErr error

		// malformed is true if the error is a malformed input error.
		malformed bool
	}{{
		name:        "single key",
		keys:        [][]byte{ones},
		expectedErr: mast.ErrTooFewKeys,
		malformed:   true,
	}, {
		name:        "one script key",
		keys:        [][]byte{mustHex(t, test.InternalKeyABC), ones},
		expectedErr: mast.ErrTooFewKeys,
		malformed:   true,
	}, {
		name:        "short key",
		keys:        [][]byte{ones, ones[:31], ones},
		expectedErr: ErrMalformedKey,
		malformed:   true,
	}, {
		name:        "identical script keys",
		keys:        [][]byte{ones, ones, ones, ones},
		expectedErr: mast.ErrInvalidProof,
	}, {
		name: "internal key not a point",
		keys: [][]byte{
			mustHex(t, "ff"+hex.EncodeToString(ones[1:])),
			mustHex(t, test.ScriptKeyAB), mustHex(t, test.ScriptKeyAC),
		},
		expectedErr: ErrMalformedKey,
		malformed:   true,
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHarness(t, nil)
			_, err := h.engine.GenerateAddress(
				context.Background(), tc.keys,
			)
			require.ErrorIs(t, err, tc.expectedErr)
			require.Equal(t, tc.malformed, IsMalformed(err))
			h.assertNoEvent()
		})
	}
}

// TestPassScriptVector authorizes a script with the reference signature and
// executes it.
func TestPassScriptVector(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	ctx := context.Background()

	cb, err := NewControlBlock(
		mustKeyHex(t, test.InternalKeyABC),
		[]mast.XOnly{
			mustKeyHex(t, test.ScriptKeyAB), mustKeyHex(t, test.ScriptKeyAC),
			mustKeyHex(t, test.ScriptKeyBC),
		},
		mustKeyHex(t, test.ScriptKeyAB),
	)
	require.NoError(t, err)
	require.Equal(t, test.ControlBlockAB, hex.EncodeToString(cb.Bytes()))

	addr := mustAccount(t, test.AddrABC)
	target := AccountID{1}
	lock := TimeLock{Lo: 0, Hi: 10}
	hash := ComputeScriptHash(target, OpTransfer, 10, lock)

	req := &PassScriptRequest{
		Addr:         addr,
		Signature:    mustHex(t, test.SigAB),
		PubKey:       mustHex(t, test.ScriptKeyAB),
		ControlBlock: mustHex(t, test.ControlBlockAB),
		Message:      test.LegionMsg,
		ScriptHash:   hash,
	}
	require.NoError(t, h.engine.PassScript(ctx, req))

	stored, err := h.engine.Authorization(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, addr, stored)

	authorized := h.nextEvent().(*ScriptAuthorized)
	require.Equal(t, hash, authorized.ScriptHash)
	require.Equal(t, NoExpiry, authorized.Expiry)

	// A signature of ones never verifies.
	badSig := *req
	badSig.Signature = make([]byte, 64)
	for i := range badSig.Signature {
		badSig.Signature[i] = 1
	}
	badSig.ScriptHash = ComputeScriptHash(target, OpTransfer, 11, lock)
	err = h.engine.PassScript(ctx, &badSig)
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.True(t, IsAuthorizationError(err))

	h.ledger.Credit(addr, 10)
	h.chain.SetHeight(5)
	require.NoError(t, h.engine.ExecScript(ctx, target, OpTransfer, 10, lock))
	require.EqualValues(t, 10, h.ledger.Balance(target))
	require.Zero(t, h.ledger.Balance(addr))

	executed := h.nextEvent().(*ScriptExecuted)
	require.Equal(t, addr, executed.Addr)
	require.EqualValues(t, 5, executed.Height)
}

func mustKeyHex(t testing.TB, s string) mast.XOnly {
	key, err := mast.ParseXOnlyHex(s)
	require.NoError(t, err)
	return key
}

// TestVerifyControlBlockVector checks a control block disclosed for a one
// sibling tree.
func TestVerifyControlBlockVector(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)

	addr := mustAccount(
		t, "3ee8244d248f1e06f72ab7d38ee7f25024d33f555eb585e167816f03c7"+
			"cde719",
	)
	pubKey := mustHex(
		t, "744ffca9bc5f2fa2373823c5510cf757fbbcda8e257eb0c7142edfda693"+
			"b2f7b",
	)
	cb := mustHex(
		t, "fa87fe21ee5bd74aa18a83b3c182f021f3154f93dbb41f238b8c4e540c6"+
			"26140461222205b7b12a3ab413e75d91d4c385c1f018c9fb77c342409a"+
			"85f50b27634",
	)

	require.NoError(t, h.engine.VerifyControlBlock(addr, pubKey, cb))

	err := h.engine.VerifyControlBlock(AccountID{1}, pubKey, cb)
	require.ErrorIs(t, err, ErrProofMismatch)
	require.True(t, IsProofError(err))

	err = h.engine.VerifyControlBlock(addr, pubKey, cb[:40])
	require.ErrorIs(t, err, ErrMalformedControlBlock)

	err = h.engine.VerifyControlBlock(addr, pubKey[:31], cb)
	require.ErrorIs(t, err, ErrMalformedKey)
}

// TestEndToEnd generates a four key address, authorizes a transfer and
// executes it exactly once.
func TestEndToEnd(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	ctx := context.Background()

	a := h.generateAddress(3)
	h.ledger.Credit(a.addr, 100)

	target := AccountID{7}
	lock := TimeLock{Lo: 10, Hi: 20}
	hash := ComputeScriptHash(target, OpTransfer, 40, lock)

	req := a.passRequest(t, 1, hash, []byte("transfer 40"))
	require.NoError(t, h.engine.PassScript(ctx, req))
	h.nextEvent()

	stored, err := h.engine.Authorization(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, a.addr, stored)

	// Replaying the identical request fails while it is still pending.
	err = h.engine.PassScript(ctx, req)
	require.ErrorIs(t, err, ErrAlreadyAuthorized)
	h.assertNoEvent()

	h.chain.SetHeight(15)
	err = h.engine.ExecScript(ctx, target, OpTransfer, 40, lock)
	require.NoError(t, err)
	require.EqualValues(t, 60, h.ledger.Balance(a.addr))
	require.EqualValues(t, 40, h.ledger.Balance(target))
	h.nextEvent()

	// The authorization is consumed.
	err = h.engine.ExecScript(ctx, target, OpTransfer, 40, lock)
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.EqualValues(t, 60, h.ledger.Balance(a.addr))

	_, err = h.engine.Authorization(ctx, hash)
	require.ErrorIs(t, err, ErrNotAuthorized)

	// The signature stays used after the script was consumed.
	err = h.engine.PassScript(ctx, req)
	require.ErrorIs(t, err, ErrAlreadyAuthorized)

	// Every script key of the address can authorize.
	for i := range a.scripts {
		hash := ComputeScriptHash(target, OpTransfer, uint64(i), lock)
		req := a.passRequest(t, i, hash, []byte{byte(i)})
		require.NoError(t, h.engine.PassScript(ctx, req))
		h.nextEvent()
	}
}

// TestPassScriptRejections covers requests failing before any state change.
func TestPassScriptRejections(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	ctx := context.Background()

	a := h.generateAddress(4)
	other := h.generateAddress(2)
	hash := ComputeScriptHash(AccountID{1}, OpTransfer, 1, TimeLock{0, 9})
	msg := []byte("msg")

	testCases := []struct {
		// name describes the broken request.
		name string

		// mutate breaks a valid request.
		mutate func(req *PassScriptRequest)

		// expectedErr is the error PassScript fails with.
		expectedErr error
	}{{
		name: "empty control block",
		mutate: func(req *PassScriptRequest) {
			req.ControlBlock = nil
		},
		expectedErr: ErrMalformedControlBlock,
	}, {
		name: "truncated control block",
		mutate: func(req *PassScriptRequest) {
			req.ControlBlock = req.ControlBlock[:33]
		},
		expectedErr: ErrMalformedControlBlock,
	}, {
		name: "short key",
		mutate: func(req *PassScriptRequest) {
			req.PubKey = req.PubKey[:31]
		},
		expectedErr: ErrMalformedKey,
	}, {
		name: "claimed address of another tree",
		mutate: func(req *PassScriptRequest) {
			req.Addr = other.addr
		},
		expectedErr: ErrProofMismatch,
	}, {
		name: "key of another tree",
		mutate: func(req *PassScriptRequest) {
			req.PubKey = other.scripts[0].Key[:]
			req.Signature = other.scripts[0].Sign(t, msg)
		},
		expectedErr: ErrProofMismatch,
	}, {
		name: "sibling missing",
		mutate: func(req *PassScriptRequest) {
			req.ControlBlock = req.ControlBlock[:len(
				req.ControlBlock,
			)-chainhash.HashSize]
		},
		expectedErr: ErrProofMismatch,
	}, {
		name: "modified message",
		mutate: func(req *PassScriptRequest) {
			req.Message = []byte("msh")
		},
		expectedErr: ErrInvalidSignature,
	}, {
		name: "signature of another key",
		mutate: func(req *PassScriptRequest) {
			req.Signature = a.scripts[1].Sign(t, msg)
		},
		expectedErr: ErrInvalidSignature,
	}}

	for _, tc := range testCases {
		req := a.passRequest(t, 2, hash, msg)
		tc.mutate(req)

		err := h.engine.PassScript(ctx, req)
		require.ErrorIs(t, err, tc.expectedErr, tc.name)
	}

	h.assertNoEvent()
	_, err := h.engine.Authorization(ctx, hash)
	require.ErrorIs(t, err, ErrNotAuthorized)

	// The untouched request still goes through.
	require.NoError(t, h.engine.PassScript(ctx, a.passRequest(t, 2, hash, msg)))
}

// TestPassScriptTamperedProof flips every byte of the control block and makes
// sure no variant is accepted.
func TestPassScriptTamperedProof(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	ctx := context.Background()

	a := h.generateAddress(5)
	hash := ComputeScriptHash(AccountID{1}, OpTransfer, 1, TimeLock{0, 9})
	req := a.passRequest(t, 3, hash, []byte("msg"))

	for i := mast.XOnlySize; i < len(req.ControlBlock); i++ {
		tampered := *req
		tampered.ControlBlock = append([]byte(nil), req.ControlBlock...)
		tampered.ControlBlock[i] ^= 0x80

		err := h.engine.PassScript(ctx, &tampered)
		require.ErrorIs(t, err, ErrProofMismatch)
	}

	require.NoError(t, h.engine.PassScript(ctx, req))
}

// TestPassScriptReplayAfterExpiry authorizes with height messages and checks
// that replays fail as duplicates until expiry and as expired afterwards.
func TestPassScriptReplayAfterExpiry(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, HeightMessages{})
	ctx := context.Background()

	a := h.generateAddress(3)
	h.ledger.Credit(a.addr, 10)

	target := AccountID{1}
	lock := TimeLock{Lo: 0, Hi: 10_000_000}
	hash := ComputeScriptHash(target, OpTransfer, 10, lock)
	msg := HeightMessage(666_666)

	req := a.passRequest(t, 0, hash, msg)
	require.NoError(t, h.engine.PassScript(ctx, req))
	require.Equal(
		t, uint64(666_666), h.nextEvent().(*ScriptAuthorized).Expiry,
	)

	err := h.engine.PassScript(ctx, req)
	require.ErrorIs(t, err, ErrAlreadyAuthorized)

	require.NoError(t, h.engine.ExecScript(ctx, target, OpTransfer, 10, lock))

	// Once consumed, the same signature is still refused.
	err = h.engine.PassScript(ctx, req)
	require.ErrorIs(t, err, ErrAlreadyAuthorized)

	h.chain.SetHeight(666_667)
	err = h.engine.PassScript(ctx, req)
	require.ErrorIs(t, err, ErrExpired)
	require.True(t, IsAuthorizationError(err))

	// A message that wasn't signed fails the signature check.
	modified := *req
	modified.Message = HeightMessage(666_667)
	err = h.engine.PassScript(ctx, &modified)
	require.ErrorIs(t, err, ErrInvalidSignature)

	short := *req
	short.Message = []byte{1, 2, 3}
	err = h.engine.PassScript(ctx, &short)
	require.ErrorIs(t, err, ErrMalformedMessage)
	require.True(t, IsMalformed(err))

	require.EqualValues(t, 10, h.ledger.Balance(target))
}

// TestPassScriptBoundMessages checks that a bound message only authorizes
// the script it commits to.
func TestPassScriptBoundMessages(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, BoundMessages{})
	ctx := context.Background()

	a := h.generateAddress(3)
	lock := TimeLock{Lo: 0, Hi: 100}
	hash := ComputeScriptHash(AccountID{1}, OpTransfer, 10, lock)
	otherHash := ComputeScriptHash(AccountID{2}, OpTransfer, 10, lock)

	msg := BoundMessage(hash, 50)
	stolen := a.passRequest(t, 1, otherHash, msg)
	err := h.engine.PassScript(ctx, stolen)
	require.ErrorIs(t, err, ErrMessageMismatch)

	require.NoError(t, h.engine.PassScript(ctx, a.passRequest(t, 1, hash, msg)))
	_, err = h.engine.Authorization(ctx, otherHash)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

// TestExecScriptTimeLock checks the closed time lock interval.
func TestExecScriptTimeLock(t *testing.T) {
	t.Parallel()

	lock := TimeLock{Lo: 2, Hi: 10}

	testCases := []struct {
		height  uint64
		success bool
	}{
		{height: 0, success: false},
		{height: 1, success: false},
		{height: 2, success: true},
		{height: 6, success: true},
		{height: 10, success: true},
		{height: 11, success: false},
	}

	for _, tc := range testCases {
		h := newTestHarness(t, nil)
		ctx := context.Background()

		a := h.generateAddress(2)
		h.ledger.Credit(a.addr, 10)

		target := AccountID{9}
		hash := ComputeScriptHash(target, OpTransfer, 10, lock)
		require.NoError(t, h.engine.PassScript(
			ctx, a.passRequest(t, 0, hash, []byte("m")),
		))

		h.chain.SetHeight(tc.height)
		err := h.engine.ExecScript(ctx, target, OpTransfer, 10, lock)
		if tc.success {
			require.NoError(t, err, "height %d", tc.height)
			require.EqualValues(t, 10, h.ledger.Balance(target))
			continue
		}

		require.ErrorIs(t, err, ErrTimeLockMismatch, "height %d",
			tc.height)
		require.Zero(t, h.ledger.Balance(target))

		// The authorization survives a failed attempt.
		stored, err := h.engine.Authorization(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, a.addr, stored)
	}
}

// TestExecScriptCapabilityFailure makes sure a failed transfer leaves the
// authorization in place.
func TestExecScriptCapabilityFailure(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	ctx := context.Background()

	a := h.generateAddress(2)
	target := AccountID{3}
	lock := TimeLock{Lo: 0, Hi: 10}
	hash := ComputeScriptHash(target, OpTransfer, 10, lock)
	require.NoError(t, h.engine.PassScript(
		ctx, a.passRequest(t, 1, hash, []byte("m")),
	))
	h.nextEvent()

	err := h.engine.ExecScript(ctx, target, OpTransfer, 10, lock)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.True(t, IsCapabilityError(err))
	require.False(t, IsAuthorizationError(err))
	h.assertNoEvent()

	_, err = h.engine.Authorization(ctx, hash)
	require.NoError(t, err)

	h.ledger.Credit(a.addr, 10)
	require.NoError(t, h.engine.ExecScript(ctx, target, OpTransfer, 10, lock))

	err = h.engine.ExecScript(ctx, target, OpTransfer, 10, lock)
	require.ErrorIs(t, err, ErrNotAuthorized)

	err = h.engine.ExecScript(ctx, target, OpCode(7), 10, lock)
	require.ErrorIs(t, err, ErrUnknownOpCode)
}

// TestVerifyThresholdSignatureVector checks the reference signature against
// the stored scripts of the reference address.
func TestVerifyThresholdSignatureVector(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	ctx := context.Background()

	addr := mustAccount(t, test.AddrABC)
	sig := mustHex(t, test.SigAB)
	script := mustHex(t, test.ScriptKeyAB)

	_, err := h.engine.VerifyThresholdSignature(
		ctx, addr, sig, script, test.LegionMsg,
	)
	require.ErrorIs(t, err, ErrUnknownAddress)

	_, err = h.engine.GenerateAddress(ctx, [][]byte{
		mustHex(t, test.InternalKeyABC), script, mustHex(t, test.ScriptKeyAC),
		mustHex(t, test.ScriptKeyBC),
	})
	require.NoError(t, err)

	ok, err := h.engine.VerifyThresholdSignature(
		ctx, addr, sig, script, test.LegionMsg,
	)
	require.NoError(t, err)
	require.True(t, ok)

	ones := make([]byte, 64)
	for i := range ones {
		ones[i] = 1
	}
	_, err = h.engine.VerifyThresholdSignature(
		ctx, addr, ones, script, test.LegionMsg,
	)
	require.ErrorIs(t, err, ErrInvalidSignature)

	// A key outside the tree has no proof.
	_, err = h.engine.VerifyThresholdSignature(
		ctx, addr, sig, mustHex(t, test.InternalKeyABC), test.LegionMsg,
	)
	require.ErrorIs(t, err, mast.ErrKeyNotFound)
	require.True(t, IsProofError(err))

	var principal AccountID
	err = h.engine.DispatchThresholdCall(
		ctx, addr, sig, script, test.LegionMsg,
		func(_ context.Context, p AccountID) error {
			principal = p
			return nil
		},
	)
	require.NoError(t, err)
	require.Equal(t, addr, principal)

	errCall := errors.New("call failed")
	err = h.engine.DispatchThresholdCall(
		ctx, addr, sig, script, test.LegionMsg,
		func(context.Context, AccountID) error {
			return errCall
		},
	)
	require.ErrorIs(t, err, errCall)
	require.True(t, IsCapabilityError(err))

	// A call with an invalid signature is never run.
	err = h.engine.DispatchThresholdCall(
		ctx, addr, ones, script, test.LegionMsg,
		func(context.Context, AccountID) error {
			t.Fatalf("call dispatched")
			return nil
		},
	)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

// TestRevokeAddress removes stored keys and refuses later verification.
func TestRevokeAddress(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	ctx := context.Background()

	a := h.generateAddress(3)
	msg := []byte("revoke me")
	sig := a.scripts[0].Sign(t, msg)

	ok, err := h.engine.VerifyThresholdSignature(
		ctx, a.addr, sig, a.scripts[0].Key[:], msg,
	)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, h.engine.RevokeAddress(ctx, a.addr))
	require.Equal(t, a.addr, h.nextEvent().(*AddressRevoked).Addr)

	_, err = h.engine.VerifyThresholdSignature(
		ctx, a.addr, sig, a.scripts[0].Key[:], msg,
	)
	require.ErrorIs(t, err, ErrUnknownAddress)

	err = h.engine.RevokeAddress(ctx, a.addr)
	require.ErrorIs(t, err, ErrUnknownAddress)
}

// TestPruneSignatures forgets expired signatures only.
func TestPruneSignatures(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, HeightMessages{})
	ctx := context.Background()

	a := h.generateAddress(2)
	lock := TimeLock{Lo: 0, Hi: 100}
	for i, expiry := range []uint64{5, 10, 20} {
		hash := ComputeScriptHash(AccountID{1}, OpTransfer, uint64(i), lock)
		require.NoError(t, h.engine.PassScript(
			ctx, a.passRequest(t, 0, hash, HeightMessage(expiry)),
		))
	}

	h.chain.SetHeight(11)
	pruned, err := h.engine.PruneSignatures(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, pruned)

	pruned, err = h.engine.PruneSignatures(ctx)
	require.NoError(t, err)
	require.Zero(t, pruned)

	h.chain.SetHeight(21)
	pruned, err = h.engine.PruneSignatures(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)
}

// TestOneShotProperty executes random transfers and checks every script can
// run once only.
func TestOneShotProperty(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, nil)
	a := h.generateAddress(3)

	// Nobody drains the events of the generated runs.
	h.engine.cfg.Events = noopEventSink{}

	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()

		amount := rapid.Uint64Range(1, 1000).Draw(rt, "amount")
		lo := rapid.Uint64Range(0, 100).Draw(rt, "lo")
		hi := rapid.Uint64Range(lo, lo+100).Draw(rt, "hi")
		height := rapid.Uint64Range(lo, hi).Draw(rt, "height")
		idx := rapid.IntRange(0, 2).Draw(rt, "script")
		var target AccountID
		copy(target[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(
			rt, "target",
		))

		lock := TimeLock{Lo: lo, Hi: hi}
		hash := ComputeScriptHash(target, OpTransfer, amount, lock)
		h.ledger.Credit(a.addr, amount)
		before := h.ledger.Balance(target)

		// Signatures are randomized, so a script drawn twice is
		// authorized again with a fresh signature.
		err := h.engine.PassScript(
			ctx, a.passRequest(t, idx, hash, hash[:]),
		)
		require.NoError(rt, err)

		h.chain.SetHeight(height)
		err = h.engine.ExecScript(ctx, target, OpTransfer, amount, lock)
		require.NoError(rt, err)
		require.Equal(rt, before+amount, h.ledger.Balance(target))

		err = h.engine.ExecScript(ctx, target, OpTransfer, amount, lock)
		require.ErrorIs(rt, err, ErrNotAuthorized)
	})
}
