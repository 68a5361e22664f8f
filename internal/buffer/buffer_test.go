package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripUint32(t *testing.T) {
	b := New()
	b.AppendUint32(0x01020304)
	require.Equal(t, 4, b.ReadableBytes())

	v, err := b.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), v)
	require.Equal(t, 0, b.ReadableBytes())
}

func TestZeroLengthAppend(t *testing.T) {
	b := New()
	before := b.WritableBytes()
	b.Append(nil)
	require.Equal(t, before, b.WritableBytes())
	require.Equal(t, 0, b.ReadableBytes())
}

func TestAppendExactlyRemainingSpace(t *testing.T) {
	b := NewSize(16)
	n := b.WritableBytes()
	b.Append(make([]byte, n))
	require.Equal(t, 0, b.WritableBytes())
	require.Equal(t, n, b.ReadableBytes())
}

func TestAppendOneByteLargerThanRemaining(t *testing.T) {
	b := NewSize(16)
	n := b.WritableBytes()
	b.Append(make([]byte, n+1))
	require.GreaterOrEqual(t, b.WritableBytes(), 0)
	require.Equal(t, n+1, b.ReadableBytes())
}

func TestCompactionReusesPrefix(t *testing.T) {
	b := NewSize(64)
	b.Append([]byte("0123456789"))
	b.Retrieve(5)
	require.Equal(t, DefaultPrependSize+5, b.readIndex)

	capBefore := cap(b.buf)

	// Force compaction: writable span alone is insufficient, but writable +
	// (read-prependIndex) is, so this must reuse the existing array rather
	// than reallocate.
	remaining := b.WritableBytes()
	b.EnsureWritable(remaining + 4)
	require.Equal(t, DefaultPrependSize, b.readIndex)
	require.Equal(t, DefaultPrependSize+5, b.writeIndex)
	require.Equal(t, capBefore, cap(b.buf), "compaction must not reallocate the backing array")
}

func TestMakeSpaceGrowsWhenCompactionIsInsufficient(t *testing.T) {
	b := NewSize(64)
	b.Append([]byte("0123456789"))
	b.Retrieve(5)

	capBefore := cap(b.buf)

	// writable + (read-prependIndex) = 54 + 5 = 59, so asking for 60 bytes
	// cannot be satisfied by compaction alone and must grow instead.
	b.EnsureWritable(60)
	require.Greater(t, cap(b.buf), capBefore, "growth required when compaction can't free enough room")
	require.Equal(t, DefaultPrependSize, b.readIndex)
	require.Equal(t, DefaultPrependSize+5, b.writeIndex)
	require.GreaterOrEqual(t, b.WritableBytes(), 60)
}

func TestPrependRoundTrip(t *testing.T) {
	b := New()
	b.AppendString("payload")
	b.AppendUint32ToFront(uint32(len("payload")))

	n, err := b.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(7), n)
	require.Equal(t, "payload", string(b.Peek()))
}

func TestPeekUint32NotEnoughData(t *testing.T) {
	b := New()
	b.AppendUint16(1)
	_, err := b.PeekUint32()
	require.ErrorIs(t, err, ErrNotEnoughData)
}

func TestInvariantsHoldAfterOps(t *testing.T) {
	b := New()
	for i := 0; i < 100; i++ {
		b.AppendUint64(uint64(i))
		if i%3 == 0 {
			_, _ = b.ReadUint64()
		}
		requireInvariants(t, b)
	}
}

func requireInvariants(t *testing.T, b *Buffer) {
	t.Helper()
	require.GreaterOrEqual(t, b.prependIndex, 0)
	require.LessOrEqual(t, b.prependIndex, b.readIndex)
	require.LessOrEqual(t, b.readIndex, b.writeIndex)
	require.LessOrEqual(t, b.writeIndex, len(b.buf))
}
