// Package buffer implements a growable byte buffer with cheap prepend space
// and network-endian integer accessors, used throughout internal/reactor as
// the per-connection read/write buffer.
package buffer

import (
	"encoding/binary"
	"errors"
)

// DefaultPrependSize reserves room at the front of the buffer so headers can
// be written without shifting the payload.
const DefaultPrependSize = 8

// initialSize is the default allocation for a freshly constructed Buffer.
const initialSize = 1024

// ErrNotEnoughData is returned by the Peek/Read accessors when the readable
// span is shorter than the requested integer width.
var ErrNotEnoughData = errors.New("buffer: not enough data")

// Buffer is a contiguous byte region with three offsets:
//
//	0 <= prependIndex <= readIndex <= writeIndex <= cap(buf)
//
// The readable span is buf[readIndex:writeIndex]; the writable span is
// buf[writeIndex:]; buf[:prependIndex] is reserved for cheap prepend.
type Buffer struct {
	buf          []byte
	readIndex    int
	writeIndex   int
	prependIndex int
}

// New returns a Buffer with the default prepend reservation.
func New() *Buffer {
	return NewSize(initialSize)
}

// NewSize returns a Buffer with an initial capacity of size bytes, in
// addition to the default prepend reservation.
func NewSize(size int) *Buffer {
	b := &Buffer{
		buf:          make([]byte, DefaultPrependSize+size),
		prependIndex: DefaultPrependSize,
	}
	b.readIndex = DefaultPrependSize
	b.writeIndex = DefaultPrependSize
	return b
}

// ReadableBytes returns the number of bytes available to read.
func (b *Buffer) ReadableBytes() int { return b.writeIndex - b.readIndex }

// WritableBytes returns the number of bytes that can be appended without
// growing the underlying array.
func (b *Buffer) WritableBytes() int { return len(b.buf) - b.writeIndex }

// PrependableBytes returns the number of bytes currently reserved for
// prepending (may shrink to zero once consumed).
func (b *Buffer) PrependableBytes() int { return b.readIndex }

// Peek returns the readable span without consuming it. The returned slice
// aliases the buffer and is only valid until the next mutating call.
func (b *Buffer) Peek() []byte { return b.buf[b.readIndex:b.writeIndex] }

// Retrieve advances the read cursor by n bytes, discarding them. n is
// clamped to ReadableBytes.
func (b *Buffer) Retrieve(n int) {
	if n >= b.ReadableBytes() {
		b.RetrieveAll()
		return
	}
	b.readIndex += n
}

// RetrieveAll discards the entire readable span, resetting both cursors to
// the prepend floor so future writes reuse the whole buffer.
func (b *Buffer) RetrieveAll() {
	b.readIndex = b.prependIndex
	b.writeIndex = b.prependIndex
}

// RetrieveAllString is equivalent to RetrieveAll but returns the consumed
// bytes as a string first.
func (b *Buffer) RetrieveAllString() string {
	s := string(b.Peek())
	b.RetrieveAll()
	return s
}

// RetrieveBytes consumes and returns the first n readable bytes as a new
// slice (copied, so it survives future buffer mutation).
func (b *Buffer) RetrieveBytes(n int) []byte {
	if n > b.ReadableBytes() {
		n = b.ReadableBytes()
	}
	out := make([]byte, n)
	copy(out, b.buf[b.readIndex:b.readIndex+n])
	b.Retrieve(n)
	return out
}

// EnsureWritable guarantees WritableBytes() >= n, growing or compacting the
// buffer as needed (§3/§9 growth policy).
func (b *Buffer) EnsureWritable(n int) {
	if b.WritableBytes() >= n {
		return
	}
	b.makeSpace(n)
}

// Append copies data into the writable span, growing first if required.
func (b *Buffer) Append(data []byte) {
	b.EnsureWritable(len(data))
	copy(b.buf[b.writeIndex:], data)
	b.writeIndex += len(data)
}

// AppendString is a convenience wrapper over Append.
func (b *Buffer) AppendString(s string) { b.Append([]byte(s)) }

// Prepend writes data immediately before the current readable span, using
// the reserved prepend region. It panics if PrependableBytes() < len(data);
// callers are expected to size DefaultPrependSize to their header formats.
func (b *Buffer) Prepend(data []byte) {
	if len(data) > b.PrependableBytes() {
		panic("buffer: not enough prependable space")
	}
	b.readIndex -= len(data)
	copy(b.buf[b.readIndex:], data)
}

// makeSpace implements the §3/§9 compaction-vs-grow decision: compact the
// readable span down to the prepend floor when doing so frees enough room;
// otherwise grow the underlying array.
func (b *Buffer) makeSpace(n int) {
	if b.WritableBytes()+(b.readIndex-b.prependIndex) < n {
		newCap := len(b.buf) + n
		if newCap < 2*len(b.buf) {
			newCap = 2 * len(b.buf)
		}
		newBuf := make([]byte, newCap)
		readable := b.ReadableBytes()
		copy(newBuf[b.prependIndex:], b.buf[b.readIndex:b.writeIndex])
		b.buf = newBuf
		b.readIndex = b.prependIndex
		b.writeIndex = b.prependIndex + readable
		return
	}

	readable := b.ReadableBytes()
	copy(b.buf[b.prependIndex:], b.buf[b.readIndex:b.writeIndex])
	b.readIndex = b.prependIndex
	b.writeIndex = b.prependIndex + readable
}

// --- network-endian integer accessors (§3) ---

// AppendUint64 appends a big-endian uint64.
func (b *Buffer) AppendUint64(v uint64) {
	b.EnsureWritable(8)
	binary.BigEndian.PutUint64(b.buf[b.writeIndex:], v)
	b.writeIndex += 8
}

// AppendUint32 appends a big-endian uint32.
func (b *Buffer) AppendUint32(v uint32) {
	b.EnsureWritable(4)
	binary.BigEndian.PutUint32(b.buf[b.writeIndex:], v)
	b.writeIndex += 4
}

// AppendUint16 appends a big-endian uint16.
func (b *Buffer) AppendUint16(v uint16) {
	b.EnsureWritable(2)
	binary.BigEndian.PutUint16(b.buf[b.writeIndex:], v)
	b.writeIndex += 2
}

// AppendUint8 appends a single byte.
func (b *Buffer) AppendUint8(v uint8) {
	b.EnsureWritable(1)
	b.buf[b.writeIndex] = v
	b.writeIndex++
}

// PeekUint64 reads, without consuming, a big-endian uint64 from the front of
// the readable span.
func (b *Buffer) PeekUint64() (uint64, error) {
	if b.ReadableBytes() < 8 {
		return 0, ErrNotEnoughData
	}
	return binary.BigEndian.Uint64(b.buf[b.readIndex:]), nil
}

// PeekUint32 reads, without consuming, a big-endian uint32.
func (b *Buffer) PeekUint32() (uint32, error) {
	if b.ReadableBytes() < 4 {
		return 0, ErrNotEnoughData
	}
	return binary.BigEndian.Uint32(b.buf[b.readIndex:]), nil
}

// PeekUint16 reads, without consuming, a big-endian uint16.
func (b *Buffer) PeekUint16() (uint16, error) {
	if b.ReadableBytes() < 2 {
		return 0, ErrNotEnoughData
	}
	return binary.BigEndian.Uint16(b.buf[b.readIndex:]), nil
}

// ReadUint64 reads and consumes a big-endian uint64.
func (b *Buffer) ReadUint64() (uint64, error) {
	v, err := b.PeekUint64()
	if err != nil {
		return 0, err
	}
	b.Retrieve(8)
	return v, nil
}

// ReadUint32 reads and consumes a big-endian uint32.
func (b *Buffer) ReadUint32() (uint32, error) {
	v, err := b.PeekUint32()
	if err != nil {
		return 0, err
	}
	b.Retrieve(4)
	return v, nil
}

// ReadUint16 reads and consumes a big-endian uint16.
func (b *Buffer) ReadUint16() (uint16, error) {
	v, err := b.PeekUint16()
	if err != nil {
		return 0, err
	}
	b.Retrieve(2)
	return v, nil
}

// AppendUint32ToFront prepends a big-endian uint32 length header, the common
// framing idiom built on top of Prepend.
func (b *Buffer) AppendUint32ToFront(v uint32) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], v)
	b.Prepend(hdr[:])
}
