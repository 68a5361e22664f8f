//go:build linux

package reactor

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// newEventFD creates the cross-goroutine wake-up descriptor. Linux has a
// single eventfd serving as both the read and write end: any goroutine may
// add 1 to its 8-byte counter (writeEventFD) to interrupt a blocked Poll
// call (§4.1). Grounded on the teacher's wakeup_linux.go createWakeFd.
func newEventFD() (read, write int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}

func closeEventFD(read, write int) error {
	if read >= 0 {
		_ = unix.Close(read)
	}
	return nil
}

func writeEventFD(fd int) error {
	one := uint64(1)
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]
	_, err := unix.Write(fd, buf)
	if err == unix.EAGAIN {
		// Counter already non-zero: a wake is already pending, nothing to do.
		return nil
	}
	return err
}

func drainEventFD(fd int) {
	var buf [8]byte
	for {
		_, err := unix.Read(fd, buf[:])
		if err != nil {
			return
		}
	}
}

// wake interrupts a blocked Poll call from any goroutine (§4.1, §5).
func (l *Loop) wake() {
	_ = writeEventFD(l.wakeupW)
}

func (l *Loop) handleWakeup() {
	drainEventFD(l.wakeupR)
}
