package threshold

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btclog/v2"
	"github.com/lightninglabs/taproot-threshold/mast"
	"github.com/lightninglabs/taproot-threshold/scheme"
	"github.com/lightningnetwork/lnd/clock"
)

// Config holds the collaborators of the engine.
type Config struct {
	// Store persists authorizations, script keys and used signatures.
	Store Store

	// Scheme is the signature scheme keys and signatures belong to.
	Scheme scheme.Scheme

	// Chain reports the current block height.
	Chain ChainHeight

	// Ledger moves funds when a transfer script is executed.
	Ledger Ledger

	// Accounts maps tweaked keys to host accounts. Defaults to
	// StrictAccountCodec.
	Accounts AccountCodec

	// Events receives engine events. Defaults to dropping them.
	Events EventSink

	// Messages interprets the signed messages of PassScript. Defaults to
	// OpaqueMessages.
	Messages MessagePolicy

	// Clock timestamps events. Defaults to the system clock.
	Clock clock.Clock
}

// validate checks the mandatory fields and fills in defaults.
func (c *Config) validate() error {
	switch {
	case c.Store == nil:
		return fmt.Errorf("store must be set")
	case c.Scheme == nil:
		return fmt.Errorf("scheme must be set")
	case c.Chain == nil:
		return fmt.Errorf("chain height source must be set")
	case c.Ledger == nil:
		return fmt.Errorf("ledger must be set")
	}

	if c.Accounts == nil {
		c.Accounts = StrictAccountCodec{}
	}
	if c.Events == nil {
		c.Events = noopEventSink{}
	}
	if c.Messages == nil {
		c.Messages = OpaqueMessages{}
	}
	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}

	return nil
}

// Engine is the threshold signature authorization state machine. Every
// mutating operation is serialized with all other mutating operations of the
// engine. Events are emitted once the engine mutex is released.
type Engine struct {
	cfg *Config

	// mu serializes the read-modify-write operations.
	mu sync.Mutex
}

// NewEngine creates a new engine from the given config.
func NewEngine(cfg *Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Engine{
		cfg: cfg,
	}, nil
}

// Scheme returns the signature scheme of the engine.
func (e *Engine) Scheme() scheme.Scheme {
	return e.cfg.Scheme
}

// GenerateAddress derives the threshold address of the given keys and stores
// the keys for later signature verification. The first key is the internal
// key, the remaining ones (at least two) are the script keys of the tree.
func (e *Engine) GenerateAddress(ctx context.Context,
	keys [][]byte) (AccountID, error) {

	xOnlyKeys, err := mast.NewXOnlyKeys(keys)
	if err != nil {
		return AccountID{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(xOnlyKeys) < 3 {
		return AccountID{}, fmt.Errorf("%w: need an internal key and "+
			"at least 2 script keys, got %d keys", mast.ErrTooFewKeys,
			len(xOnlyKeys))
	}

	internalKey, scriptKeys := xOnlyKeys[0], xOnlyKeys[1:]
	tweaked, err := mast.New(scriptKeys).GenerateTweakPubKey(
		internalKey, e.cfg.Scheme,
	)
	if err != nil {
		return AccountID{}, mapSchemeError(err)
	}

	addr, err := e.cfg.Accounts.DecodeAccount(tweaked)
	if err != nil {
		return AccountID{}, fmt.Errorf("%w: %v", ErrAccountDecode, err)
	}

	err = e.update(ctx, func(tx StoreTx) error {
		return tx.UpsertScriptKeys(ctx, addr, xOnlyKeys)
	})
	if err != nil {
		return AccountID{}, fmt.Errorf("unable to store script keys: %w",
			err)
	}

	log.InfoS(ctx, "Generated threshold address",
		btclog.Hex("addr", addr[:]), "num_scripts", len(scriptKeys))

	e.cfg.Events.NotifyEvent(&AddressGenerated{
		Addr:       addr,
		NumScripts: len(scriptKeys),
		Time:       e.cfg.Clock.Now(),
	})

	return addr, nil
}

// PassScriptRequest carries a threshold signature authorizing a script.
type PassScriptRequest struct {
	// Addr is the threshold address claimed to authorize the script.
	Addr AccountID

	// Signature is the aggregate signature over Message.
	Signature []byte

	// PubKey is the disclosed script key that produced the signature.
	PubKey []byte

	// ControlBlock proves that PubKey is a script of Addr.
	ControlBlock []byte

	// Message is the signed message.
	Message []byte

	// ScriptHash is the script to authorize.
	ScriptHash ScriptHash
}

// PassScript verifies that a script key of Addr signed the request and records
// the script hash as authorized by Addr.
func (e *Engine) PassScript(ctx context.Context, req *PassScriptRequest) error {
	log.TraceS(ctx, "Passing script", "req", limitSpewer.Sdump(req))

	controlBlock, err := ParseControlBlock(req.ControlBlock)
	if err != nil {
		return err
	}
	pubKey, err := mast.NewXOnly(req.PubKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	expiry, err := e.cfg.Messages.CheckMessage(req.Message, req.ScriptHash)
	if err != nil {
		return err
	}
	height, err := e.cfg.Chain.CurrentHeight(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch chain height: %w", err)
	}
	if height > expiry {
		return fmt.Errorf("%w: valid until %d, current height %d",
			ErrExpired, expiry, height)
	}

	if err := e.verifyControlBlock(
		req.Addr, pubKey, controlBlock,
	); err != nil {
		return err
	}

	err = e.cfg.Scheme.Verify(pubKey, req.Message, req.Signature)
	if err != nil {
		return mapSchemeError(err)
	}

	sigID := NewSigID(req.Signature)

	err = e.update(ctx, func(tx StoreTx) error {
		_, err := tx.FetchAuthorization(ctx, req.ScriptHash)
		switch {
		case err == nil:
			return fmt.Errorf("%w: script %v", ErrAlreadyAuthorized,
				req.ScriptHash)

		case !errors.Is(err, ErrRecordNotFound):
			return err
		}

		_, err = tx.FetchUsedSignature(ctx, sigID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: signature %v already used",
				ErrAlreadyAuthorized, sigID)

		case !errors.Is(err, ErrRecordNotFound):
			return err
		}

		err = tx.InsertAuthorization(ctx, req.ScriptHash, req.Addr)
		if err != nil {
			return err
		}

		return tx.InsertUsedSignature(ctx, sigID, expiry)
	})
	if err != nil {
		return err
	}

	log.InfoS(ctx, "Script authorized",
		btclog.Hex("script_hash", req.ScriptHash[:]),
		btclog.Hex("addr", req.Addr[:]), "expiry", expiry)

	e.cfg.Events.NotifyEvent(&ScriptAuthorized{
		ScriptHash: req.ScriptHash,
		Addr:       req.Addr,
		Expiry:     expiry,
		Time:       e.cfg.Clock.Now(),
	})

	return nil
}

// ExecScript executes the script moving amount to target, consuming its
// authorization. The current height must lie within the time lock.
func (e *Engine) ExecScript(ctx context.Context, target AccountID, op OpCode,
	amount uint64, lock TimeLock) error {

	if err := op.Validate(); err != nil {
		return err
	}

	hash := ComputeScriptHash(target, op, amount, lock)

	height, err := e.cfg.Chain.CurrentHeight(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch chain height: %w", err)
	}

	addr, err := e.consumeAndTransfer(ctx, hash, target, amount, lock,
		height)
	if err != nil {
		return err
	}

	log.InfoS(ctx, "Script executed", btclog.Hex("script_hash", hash[:]),
		btclog.Hex("addr", addr[:]), btclog.Hex("target", target[:]),
		"op", op, "amount", amount, "height", height)

	e.cfg.Events.NotifyEvent(&ScriptExecuted{
		Target:   target,
		Addr:     addr,
		Op:       op,
		Amount:   amount,
		TimeLock: lock,
		Height:   height,
		Time:     e.cfg.Clock.Now(),
	})

	return nil
}

// consumeAndTransfer deletes the authorization of hash in its own transaction
// and only then moves the funds. A transfer is therefore never repeated by a
// retried or failed commit. A failed transfer puts the authorization back.
func (e *Engine) consumeAndTransfer(ctx context.Context, hash ScriptHash,
	target AccountID, amount uint64, lock TimeLock,
	height uint64) (AccountID, error) {

	e.mu.Lock()
	defer e.mu.Unlock()

	var addr AccountID
	err := e.cfg.Store.Update(ctx, func(tx StoreTx) error {
		var err error
		addr, err = tx.FetchAuthorization(ctx, hash)
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return fmt.Errorf("%w: script %v", ErrNotAuthorized, hash)

		case err != nil:
			return err
		}

		if !lock.Contains(height) {
			return fmt.Errorf("%w: height %d, time lock %v",
				ErrTimeLockMismatch, height, lock)
		}

		return tx.DeleteAuthorization(ctx, hash)
	})
	if err != nil {
		return AccountID{}, err
	}

	err = e.cfg.Ledger.Transfer(ctx, addr, target, amount)
	if err == nil {
		return addr, nil
	}
	capErr := &CapabilityError{
		Op:  "transfer",
		Err: err,
	}

	// The caller's context may be the reason the transfer failed.
	restoreCtx := context.WithoutCancel(ctx)
	restoreErr := e.cfg.Store.Update(restoreCtx, func(tx StoreTx) error {
		return tx.InsertAuthorization(restoreCtx, hash, addr)
	})
	if restoreErr != nil {
		log.ErrorS(ctx, "Unable to restore authorization after failed "+
			"transfer", restoreErr,
			btclog.Hex("script_hash", hash[:]))

		return AccountID{}, fmt.Errorf("%w (restoring authorization: "+
			"%v)", capErr, restoreErr)
	}

	return AccountID{}, capErr
}

// VerifyThresholdSignature checks that script is one of the stored script
// keys of addr and that it signed msg.
func (e *Engine) VerifyThresholdSignature(ctx context.Context, addr AccountID,
	sig, script, msg []byte) (bool, error) {

	keys, err := e.ScriptKeys(ctx, addr)
	if err != nil {
		return false, err
	}
	if len(keys) < 3 {
		return false, fmt.Errorf("%w: address %v has %d stored keys",
			mast.ErrTooFewKeys, addr, len(keys))
	}

	scriptKey, err := mast.NewXOnly(script)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	controlBlock, err := NewControlBlock(keys[0], keys[1:], scriptKey)
	if err != nil {
		return false, err
	}
	if err := e.verifyControlBlock(
		addr, scriptKey, controlBlock,
	); err != nil {
		return false, err
	}

	if err := e.cfg.Scheme.Verify(scriptKey, msg, sig); err != nil {
		return false, mapSchemeError(err)
	}

	return true, nil
}

// DispatchThresholdCall verifies the threshold signature and then runs call
// with addr as the acting principal.
func (e *Engine) DispatchThresholdCall(ctx context.Context, addr AccountID,
	sig, script, msg []byte, call Call) error {

	ok, err := e.VerifyThresholdSignature(ctx, addr, sig, script, msg)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSignature
	}

	if err := call(ctx, addr); err != nil {
		return &CapabilityError{
			Op:  "dispatch",
			Err: err,
		}
	}

	log.DebugS(ctx, "Dispatched threshold call",
		btclog.Hex("addr", addr[:]))

	return nil
}

// VerifyControlBlock checks that the control block proves pubKey to be a
// script key of addr.
func (e *Engine) VerifyControlBlock(addr AccountID, pubKey []byte,
	controlBlock []byte) error {

	cb, err := ParseControlBlock(controlBlock)
	if err != nil {
		return err
	}
	key, err := mast.NewXOnly(pubKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	return e.verifyControlBlock(addr, key, cb)
}

func (e *Engine) verifyControlBlock(addr AccountID, pubKey mast.XOnly,
	cb *ControlBlock) error {

	tweaked, err := cb.TweakedKey(pubKey, e.cfg.Scheme)
	if err != nil {
		return mapSchemeError(err)
	}

	derived, err := e.cfg.Accounts.DecodeAccount(tweaked)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountDecode, err)
	}

	if derived != addr {
		return fmt.Errorf("%w: proof commits to %v, claimed %v",
			ErrProofMismatch, derived, addr)
	}

	return nil
}

// RevokeAddress removes the stored script keys of addr. Signatures for the
// address can't be verified afterwards.
func (e *Engine) RevokeAddress(ctx context.Context, addr AccountID) error {
	err := e.update(ctx, func(tx StoreTx) error {
		_, err := tx.FetchScriptKeys(ctx, addr)
		switch {
		case errors.Is(err, ErrRecordNotFound):
			return fmt.Errorf("%w: %v", ErrUnknownAddress, addr)

		case err != nil:
			return err
		}

		return tx.DeleteScriptKeys(ctx, addr)
	})
	if err != nil {
		return err
	}

	log.InfoS(ctx, "Revoked threshold address",
		btclog.Hex("addr", addr[:]))

	e.cfg.Events.NotifyEvent(&AddressRevoked{
		Addr: addr,
		Time: e.cfg.Clock.Now(),
	})

	return nil
}

// PruneSignatures forgets used signatures whose messages expired before the
// current height. They can't be replayed anymore since PassScript refuses
// expired messages.
func (e *Engine) PruneSignatures(ctx context.Context) (int64, error) {
	height, err := e.cfg.Chain.CurrentHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("unable to fetch chain height: %w", err)
	}

	var pruned int64
	err = e.update(ctx, func(tx StoreTx) error {
		var err error
		pruned, err = tx.PruneUsedSignatures(ctx, height)
		return err
	})
	if err != nil {
		return 0, err
	}

	log.DebugS(ctx, "Pruned used signatures", "height", height,
		"num_pruned", pruned)

	return pruned, nil
}

// Authorization returns the address that authorized the script hash.
func (e *Engine) Authorization(ctx context.Context,
	hash ScriptHash) (AccountID, error) {

	var addr AccountID
	err := e.cfg.Store.View(ctx, func(tx StoreTx) error {
		var err error
		addr, err = tx.FetchAuthorization(ctx, hash)
		if errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("%w: script %v", ErrNotAuthorized, hash)
		}

		return err
	})

	return addr, err
}

// ScriptKeys returns the keys addr was generated from, internal key first.
func (e *Engine) ScriptKeys(ctx context.Context,
	addr AccountID) ([]mast.XOnly, error) {

	var keys []mast.XOnly
	err := e.cfg.Store.View(ctx, func(tx StoreTx) error {
		var err error
		keys, err = tx.FetchScriptKeys(ctx, addr)
		if errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("%w: %v", ErrUnknownAddress, addr)
		}

		return err
	})

	return keys, err
}

// update runs f in a store transaction while holding the engine mutex. The
// mutex is released before the caller emits events.
func (e *Engine) update(ctx context.Context, f func(tx StoreTx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cfg.Store.Update(ctx, f)
}

// mapSchemeError translates the errors of a signature scheme into engine
// errors.
func mapSchemeError(err error) error {
	switch {
	case errors.Is(err, scheme.ErrInvalidPubKey):
		return fmt.Errorf("%w: %v", ErrMalformedKey, err)

	case errors.Is(err, scheme.ErrInvalidSignature):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)

	default:
		return err
	}
}
