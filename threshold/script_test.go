package threshold

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestComputeScriptHash makes sure every field of the script changes its
// hash.
func TestComputeScriptHash(t *testing.T) {
	t.Parallel()

	target := AccountID{1}
	lock := TimeLock{Lo: 0, Hi: 10}
	base := ComputeScriptHash(target, OpTransfer, 10, lock)

	require.Equal(t, base, ComputeScriptHash(target, OpTransfer, 10, lock))

	variants := []ScriptHash{
		ComputeScriptHash(AccountID{2}, OpTransfer, 10, lock),
		ComputeScriptHash(target, OpCode(1), 10, lock),
		ComputeScriptHash(target, OpTransfer, 11, lock),
		ComputeScriptHash(target, OpTransfer, 10, TimeLock{1, 10}),
		ComputeScriptHash(target, OpTransfer, 10, TimeLock{0, 11}),
	}
	for i, variant := range variants {
		require.NotEqual(t, base, variant, "variant %d", i)
	}

	// Swapping the window bounds is a different script.
	require.NotEqual(
		t, ComputeScriptHash(target, OpTransfer, 10, TimeLock{3, 4}),
		ComputeScriptHash(target, OpTransfer, 10, TimeLock{4, 3}),
	)
}

// TestTimeLockContains checks the closed interval against random heights.
func TestTimeLockContains(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.Uint64().Draw(t, "lo")
		hi := rapid.Uint64Min(lo).Draw(t, "hi")
		lock := TimeLock{Lo: lo, Hi: hi}

		require.True(t, lock.Contains(lo))
		require.True(t, lock.Contains(hi))
		if lo > 0 {
			require.False(t, lock.Contains(lo-1))
		}
		if hi < ^uint64(0) {
			require.False(t, lock.Contains(hi+1))
		}
	})
}

// TestOpCode checks opcode parsing and validation.
func TestOpCode(t *testing.T) {
	t.Parallel()

	op, err := ParseOpCode("Transfer")
	require.NoError(t, err)
	require.Equal(t, OpTransfer, op)
	require.Equal(t, "transfer", op.String())
	require.NoError(t, op.Validate())

	_, err = ParseOpCode("burn")
	require.ErrorIs(t, err, ErrUnknownOpCode)
	require.ErrorIs(t, OpCode(1).Validate(), ErrUnknownOpCode)
	require.Equal(t, "OpCode(1)", OpCode(1).String())
}

// TestMessagePolicies covers the message formats.
func TestMessagePolicies(t *testing.T) {
	t.Parallel()

	hash := ScriptHash{1}

	expiry, err := OpaqueMessages{}.CheckMessage([]byte("any"), hash)
	require.NoError(t, err)
	require.Equal(t, NoExpiry, expiry)

	expiry, err = HeightMessages{}.CheckMessage(HeightMessage(42), hash)
	require.NoError(t, err)
	require.EqualValues(t, 42, expiry)

	_, err = HeightMessages{}.CheckMessage([]byte{1}, hash)
	require.ErrorIs(t, err, ErrMalformedMessage)

	expiry, err = BoundMessages{}.CheckMessage(BoundMessage(hash, 7), hash)
	require.NoError(t, err)
	require.EqualValues(t, 7, expiry)

	_, err = BoundMessages{}.CheckMessage(
		BoundMessage(ScriptHash{2}, 7), hash,
	)
	require.ErrorIs(t, err, ErrMessageMismatch)

	_, err = BoundMessages{}.CheckMessage(HeightMessage(7), hash)
	require.ErrorIs(t, err, ErrMalformedMessage)

	for _, name := range []string{"", "opaque", "height", "bound"} {
		_, err := MessagePolicyByName(name)
		require.NoError(t, err)
	}
	_, err = MessagePolicyByName("unix")
	require.Error(t, err)
}

// TestEventChanStop makes sure a stopped sink never blocks.
func TestEventChanStop(t *testing.T) {
	t.Parallel()

	events := NewEventChan(1)
	events.NotifyEvent(&AddressRevoked{})
	require.Len(t, events.Events, 1)

	events.Stop()
	events.Stop()

	// The buffer is full, delivery gives up instead of blocking.
	events.NotifyEvent(&AddressRevoked{})
	require.Len(t, events.Events, 1)
}
