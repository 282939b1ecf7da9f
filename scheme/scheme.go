// Package scheme binds the script tree to a concrete curve and Schnorr
// signature scheme. A scheme knows how to commit an internal key to a script
// root and how to check a signature against a disclosed script key.
package scheme

import (
	"errors"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

var (
	// ErrInvalidPubKey is returned when a key isn't a valid point for the
	// scheme.
	ErrInvalidPubKey = errors.New("scheme: invalid public key")

	// ErrInvalidSignature is returned when a signature is malformed or
	// doesn't verify.
	ErrInvalidSignature = errors.New("scheme: invalid signature")

	// ErrUnknownScheme is returned when looking up a scheme that isn't
	// registered.
	ErrUnknownScheme = errors.New("scheme: unknown scheme")
)

// Scheme is a Schnorr signature scheme together with the key tweak used to
// derive threshold addresses.
type Scheme interface {
	// Name returns the identifier the scheme is registered under.
	Name() string

	// TweakPubKey returns internal + TapTweak(internal || root) * G,
	// serialized as 32 bytes.
	TweakPubKey(internal [32]byte, root chainhash.Hash) ([32]byte, error)

	// Verify checks that sig is a valid signature of msg under pubKey.
	Verify(pubKey [32]byte, msg, sig []byte) error

	// ValidatePubKey checks that the given bytes decode to a point of the
	// scheme.
	ValidatePubKey(pubKey [32]byte) error
}

var (
	// registry holds every known scheme keyed by name.
	registry = map[string]Scheme{
		Sr25519Name: &Sr25519{},
		Bip340Name:  &Bip340{},
	}
)

// DefaultName is the scheme used when none is configured.
const DefaultName = Sr25519Name

// ByName returns the scheme registered under the given name.
func ByName(name string) (Scheme, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q, supported: %v",
			ErrUnknownScheme, name, Names())
	}

	return s, nil
}

// Names returns the names of all registered schemes in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
