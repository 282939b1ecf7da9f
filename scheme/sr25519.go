package scheme

import (
	"fmt"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gtank/ristretto255"
	"github.com/lightninglabs/taproot-threshold/mast"
)

const (
	// Sr25519Name is the registry name of the sr25519 scheme.
	Sr25519Name = "sr25519"

	// SigningContext is the schnorrkel signing context every threshold
	// signature is bound to.
	SigningContext = "multi-sig"
)

// Sr25519 is the Schnorr scheme over the ristretto255 group used by
// schnorrkel. Script keys and addresses are compressed ristretto points.
type Sr25519 struct{}

// A compile time assertion to ensure Sr25519 meets the Scheme interface.
var _ Scheme = (*Sr25519)(nil)

// Name returns the identifier the scheme is registered under.
func (s *Sr25519) Name() string {
	return Sr25519Name
}

// decodePoint decodes a compressed ristretto point.
func decodePoint(b [32]byte) (*ristretto255.Element, error) {
	p := ristretto255.NewElement()
	if err := p.Decode(b[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}

	return p, nil
}

// TweakPubKey returns P + (TapTweak(P || root) mod l) * B where B is the
// ristretto base point.
func (s *Sr25519) TweakPubKey(internal [32]byte,
	root chainhash.Hash) ([32]byte, error) {

	var tweaked [32]byte

	p, err := decodePoint(internal)
	if err != nil {
		return tweaked, err
	}

	// The tweak hash is read as a little endian integer and reduced
	// modulo the group order. Zero extending it to 64 bytes lets the wide
	// reduction do exactly that.
	tweak := mast.TapTweakHash(internal, root)
	var wide [64]byte
	copy(wide[:32], tweak[:])
	scalar := ristretto255.NewScalar().FromUniformBytes(wide[:])

	q := ristretto255.NewElement().ScalarBaseMult(scalar)
	q.Add(q, p)

	copy(tweaked[:], q.Encode(nil))

	return tweaked, nil
}

// Verify checks a schnorrkel signature of msg under the "multi-sig" signing
// context.
func (s *Sr25519) Verify(pubKey [32]byte, msg, sig []byte) error {
	if len(sig) != schnorrkel.SignatureSize {
		return fmt.Errorf("%w: expected %d bytes, got %d",
			ErrInvalidSignature, schnorrkel.SignatureSize, len(sig))
	}

	pk := &schnorrkel.PublicKey{}
	if err := pk.Decode(pubKey); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}

	var sigBytes [schnorrkel.SignatureSize]byte
	copy(sigBytes[:], sig)
	signature := &schnorrkel.Signature{}
	if err := signature.Decode(sigBytes); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	transcript := schnorrkel.NewSigningContext([]byte(SigningContext), msg)
	ok, err := pk.Verify(signature, transcript)
	switch {
	case err != nil:
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)

	case !ok:
		return ErrInvalidSignature
	}

	return nil
}

// ValidatePubKey checks that the key is a canonical ristretto encoding.
func (s *Sr25519) ValidatePubKey(pubKey [32]byte) error {
	_, err := decodePoint(pubKey)
	return err
}
