package test

import (
	"testing"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

// Sr25519SigningContext is the signing context of aggregate sr25519
// signatures over threshold messages.
const Sr25519SigningContext = "multi-sig"

// RandBool rolls a random boolean.
func RandBool() bool {
	return rand.Int()%2 == 0
}

// RandBytes returns num random bytes.
func RandBytes(num int) []byte {
	randBytes := make([]byte, num)
	_, _ = rand.Read(randBytes)
	return randBytes
}

// RandHash returns a random hash.
func RandHash() chainhash.Hash {
	var h chainhash.Hash
	copy(h[:], RandBytes(chainhash.HashSize))
	return h
}

// Rand32 returns 32 random bytes. The result isn't necessarily a valid point
// on any curve.
func Rand32() [32]byte {
	var b [32]byte
	copy(b[:], RandBytes(32))
	return b
}

// RandPrivKey returns a new secp256k1 private key.
func RandPrivKey(t testing.TB) *btcec.PrivateKey {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return privKey
}

// SchnorrKeyBytes returns the x-only encoding of the public key of privKey.
func SchnorrKeyBytes(privKey *btcec.PrivateKey) [32]byte {
	var key [32]byte
	copy(key[:], schnorr.SerializePubKey(privKey.PubKey()))
	return key
}

// Sr25519Signer is an sr25519 key pair standing in for the aggregate key of
// a group of signers.
type Sr25519Signer struct {
	Secret *schnorrkel.SecretKey
	Key    [32]byte
}

// NewSr25519Signer creates a signer with a fresh random key.
func NewSr25519Signer(t require.TestingT) *Sr25519Signer {
	sk, pk, err := schnorrkel.GenerateKeypair()
	require.NoError(t, err)

	return &Sr25519Signer{
		Secret: sk,
		Key:    pk.Encode(),
	}
}

// Sign signs msg under the threshold signing context.
func (s *Sr25519Signer) Sign(t require.TestingT, msg []byte) []byte {
	return s.SignWithContext(t, Sr25519SigningContext, msg)
}

// SignWithContext signs msg under an arbitrary signing context.
func (s *Sr25519Signer) SignWithContext(t require.TestingT, signingCtx string,
	msg []byte) []byte {

	sig, err := s.Secret.Sign(schnorrkel.NewSigningContext(
		[]byte(signingCtx), msg,
	))
	require.NoError(t, err)

	b := sig.Encode()
	return b[:]
}
