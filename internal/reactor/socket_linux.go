//go:build linux

package reactor

import (
	"os"

	"golang.org/x/sys/unix"
)

// newListenSocket creates a nonblocking, close-on-exec TCP listening socket
// bound to addr and backed by backlog, per §4.4. reuseAddr/reusePort mirror
// the SO_REUSEADDR/SO_REUSEPORT knobs the rest of the ecosystem (e.g. the
// govoltron/layer4 TCPServer config) exposes under those exact names.
func newListenSocket(addr unix.Sockaddr, backlog int, reuseAddr, reusePort bool) (int, error) {
	domain := unix.AF_INET
	if _, ok := addr.(*unix.SockaddrInet6); ok {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, os.NewSyscallError("socket", err)
	}

	if reuseAddr {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			_ = unix.Close(fd)
			return -1, os.NewSyscallError("setsockopt(SO_REUSEADDR)", err)
		}
	}
	if reusePort {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			_ = unix.Close(fd)
			return -1, os.NewSyscallError("setsockopt(SO_REUSEPORT)", err)
		}
	}

	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return -1, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return -1, os.NewSyscallError("listen", err)
	}
	return fd, nil
}

// newConnectSocket creates a nonblocking TCP socket and starts an async
// connect(2) to addr. A return of unix.EINPROGRESS is the expected case: the
// caller must wait for the socket to become writable (§4.4 Connector).
func newConnectSocket(addr unix.Sockaddr) (int, error) {
	domain := unix.AF_INET
	if _, ok := addr.(*unix.SockaddrInet6); ok {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, os.NewSyscallError("socket", err)
	}

	if err := unix.Connect(fd, addr); err != nil && err != unix.EINPROGRESS {
		_ = unix.Close(fd)
		return -1, os.NewSyscallError("connect", err)
	}
	return fd, nil
}

// socketError returns the pending SO_ERROR on fd, i.e. the deferred error of
// a nonblocking connect(2) once the socket becomes writable.
func socketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt(SO_ERROR)", err)
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

func setTCPNoDelay(fd int, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

func setKeepAlive(fd int, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, v)
}

func shutdownWrite(fd int) error {
	return unix.Shutdown(fd, unix.SHUT_WR)
}

func localAddr(fd int) (unix.Sockaddr, error) { return unix.Getsockname(fd) }
func peerAddr(fd int) (unix.Sockaddr, error)  { return unix.Getpeername(fd) }
