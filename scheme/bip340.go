package scheme

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// Bip340Name is the registry name of the BIP-340 scheme.
const Bip340Name = "bip340"

// Bip340 is the Schnorr scheme over secp256k1 as specified by BIP-340. Script
// keys and addresses are x-only public keys and the tweak is the regular
// taproot output key derivation.
type Bip340 struct{}

// A compile time assertion to ensure Bip340 meets the Scheme interface.
var _ Scheme = (*Bip340)(nil)

// Name returns the identifier the scheme is registered under.
func (b *Bip340) Name() string {
	return Bip340Name
}

// TweakPubKey computes the taproot output key of the internal key committing
// to the given script root.
func (b *Bip340) TweakPubKey(internal [32]byte,
	root chainhash.Hash) ([32]byte, error) {

	var tweaked [32]byte

	internalKey, err := schnorr.ParsePubKey(internal[:])
	if err != nil {
		return tweaked, fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}

	outputKey := txscript.ComputeTaprootOutputKey(internalKey, root[:])
	copy(tweaked[:], schnorr.SerializePubKey(outputKey))

	return tweaked, nil
}

// Verify checks a BIP-340 signature over the sha256 digest of msg.
func (b *Bip340) Verify(pubKey [32]byte, msg, sig []byte) error {
	key, err := schnorr.ParsePubKey(pubKey[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}

	signature, err := schnorr.ParseSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if !signature.Verify(chainhash.HashB(msg), key) {
		return ErrInvalidSignature
	}

	return nil
}

// ValidatePubKey checks that the key is a valid x-only secp256k1 point.
func (b *Bip340) ValidatePubKey(pubKey [32]byte) error {
	if _, err := schnorr.ParsePubKey(pubKey[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}

	return nil
}
