package test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The reference sr25519 key set: an internal key and the aggregate keys of
// the signer pairs AB, AC and BC of a two of three group.
const (
	InternalKeyABC = "881102cd9cf2ee389137a99a2ad88447b9e8b60c350cda71af" +
		"f049233574c768"
	ScriptKeyAB = "7c9a72882718402bf909b3c1693af60501c7243d79ecc8cf030fa" +
		"253eb136861"
	ScriptKeyAC = "b69af178463918a181a8549d2cfbe77884852ace9d8b299bddf69" +
		"bedc33f6356"
	ScriptKeyBC = "a20c839d955cb10e58c6cbc75812684ad3a1a8f24a503e1c07f5e" +
		"4944d974d3b"

	// AddrABC is the threshold address of the reference key set.
	AddrABC = "001604bef08d1fe4cefb2e75a2b786287821546f6acbe89570acc5d5a9" +
		"bd5049"

	// SigAB is an aggregate signature of AB over LegionMsg.
	SigAB = "7227f84f853853527488ba5b9939c56dd4ecd0ae96687e0d8d4d5da10cb4e" +
		"6651cb2aca89236f3c3766d80e3b2ab37c74abb91ad6bb66677a0f1e3bd7e6811" +
		"8f"

	// ControlBlockAB is the control block of AB within the ABC tree.
	ControlBlockAB = InternalKeyABC +
		"e17a23050f6f6db2f4218ce9f7c14edd21c5f24818157103c5a8524d7014c0dd" +
		"0bac21362eecf9223bc477d6dfbbe02066a911eba752faedb26d881c466ea80f"
)

// LegionMsg is the message signed by SigAB.
var LegionMsg = []byte("We are legion!")

// ScriptKeysABC returns the script keys of the reference set in tree order.
func ScriptKeysABC() []string {
	return []string{ScriptKeyAB, ScriptKeyAC, ScriptKeyBC}
}

// AccountHex returns the hex encoding of an account whose bytes are all zero
// except for the first one.
func AccountHex(first byte) string {
	return hex.EncodeToString([]byte{first}) + strings.Repeat("00", 31)
}

// ParseHex decodes s, failing the test on malformed input.
func ParseHex(t testing.TB, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}
