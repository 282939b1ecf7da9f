// Package codec holds the byte level encoders used to build the deterministic
// preimages that are fed into the tagged hashes of the mast and threshold
// packages.
package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// pver is the protocol version handed to the wire encoders. The compact size
// encoding is identical across all versions.
const pver = 0

var (
	// byteOrder is the byte order used for all fixed width integers.
	byteOrder = binary.LittleEndian
)

// WriteVarInt serializes val to w using the classical Bitcoin compact size
// encoding: a single byte for values up to 0xfc, otherwise a 0xfd, 0xfe or 0xff
// marker followed by a 2, 4 or 8 byte little endian integer.
func WriteVarInt(w io.Writer, val uint64) error {
	return wire.WriteVarInt(w, pver, val)
}

// ReadVarInt reads a compact size integer from r. Non canonical encodings are
// rejected.
func ReadVarInt(r io.Reader) (uint64, error) {
	return wire.ReadVarInt(r, pver)
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a compact size integer.
func VarIntSerializeSize(val uint64) int {
	return wire.VarIntSerializeSize(val)
}

// WriteVarBytes writes a compact size length prefix followed by b.
func WriteVarBytes(w io.Writer, b []byte) error {
	return wire.WriteVarBytes(w, pver, b)
}

// WriteUint8 writes a single byte.
func WriteUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

// WriteUint16 writes v as a 2 byte little endian integer.
func WriteUint16(w io.Writer, v uint16) error {
	var b [2]byte
	byteOrder.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteUint32 writes v as a 4 byte little endian integer.
func WriteUint32(w io.Writer, v uint32) error {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteUint64 writes v as an 8 byte little endian integer.
func WriteUint64(w io.Writer, v uint64) error {
	var b [8]byte
	byteOrder.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteInt16 writes v as a 2 byte little endian two's complement integer.
func WriteInt16(w io.Writer, v int16) error {
	return WriteUint16(w, uint16(v))
}

// WriteInt32 writes v as a 4 byte little endian two's complement integer.
func WriteInt32(w io.Writer, v int32) error {
	return WriteUint32(w, uint32(v))
}

// WriteInt64 writes v as an 8 byte little endian two's complement integer.
func WriteInt64(w io.Writer, v int64) error {
	return WriteUint64(w, uint64(v))
}

// ReadUint32 reads a 4 byte little endian integer.
func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}

	return byteOrder.Uint32(b[:]), nil
}

// ReadUint64 reads an 8 byte little endian integer.
func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}

	return byteOrder.Uint64(b[:]), nil
}

// Uint64Bytes returns the 8 byte little endian encoding of v.
func Uint64Bytes(v uint64) []byte {
	var b [8]byte
	byteOrder.PutUint64(b[:], v)
	return b[:]
}

// Uint64FromBytes decodes the first 8 bytes of b as a little endian integer.
func Uint64FromBytes(b []byte) uint64 {
	return byteOrder.Uint64(b)
}

// Serialize runs encode against an in-memory buffer and returns the bytes it
// produced.
func Serialize(encode func(w io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
