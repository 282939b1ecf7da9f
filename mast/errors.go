package mast

import (
	"errors"
)

var (
	// ErrInvalidKeyLength is returned when a script key isn't exactly 32
	// bytes long.
	ErrInvalidKeyLength = errors.New("mast: script key must be 32 bytes")

	// ErrTooFewKeys is returned when a MAST is built from fewer than two
	// script keys.
	ErrTooFewKeys = errors.New("mast: at least two script keys required")

	// ErrKeyNotFound is returned when a proof is requested for a key that
	// isn't part of the tree.
	ErrKeyNotFound = errors.New("mast: script key not in tree")

	// ErrEmptyTree is returned when a partial merkle tree is built without
	// any leaves.
	ErrEmptyTree = errors.New("mast: no leaves in tree")

	// ErrMatchesMismatch is returned when the number of match flags
	// doesn't line up with the number of leaves.
	ErrMatchesMismatch = errors.New("mast: leaves and matches differ " +
		"in length")

	// ErrInvalidProof is the base error for any structural problem found
	// while walking a partial merkle tree.
	ErrInvalidProof = errors.New("mast: invalid partial merkle tree")
)
