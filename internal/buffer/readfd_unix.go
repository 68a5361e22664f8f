//go:build linux || darwin

package buffer

import (
	"golang.org/x/sys/unix"
)

// extraScratchSize is the size of the stack-resident scratch region used to
// absorb reads that overflow the buffer's current writable span in a single
// syscall (§4.5 read path).
const extraScratchSize = 65536

// ReadFD performs a single vectored read from fd into the buffer's writable
// span plus a stack-allocated scratch region, appending any scratch overflow
// to the buffer afterwards. It returns the number of bytes read (0 means the
// peer closed its write side) and any syscall error.
func (b *Buffer) ReadFD(fd int) (int, error) {
	var scratch [extraScratchSize]byte

	writable := b.WritableBytes()
	iov := make([][]byte, 0, 2)
	iov = append(iov, b.buf[b.writeIndex:len(b.buf)])
	iov = append(iov, scratch[:])

	n, err := unix.Readv(fd, iov)
	if err != nil || n <= 0 {
		return n, err
	}

	if n <= writable {
		b.writeIndex += n
	} else {
		b.writeIndex = len(b.buf)
		b.Append(scratch[:n-writable])
	}
	return n, nil
}
