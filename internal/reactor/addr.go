package reactor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// ResolveTCPAddr resolves a "host:port" string (or ":port" for all
// interfaces) to a unix.Sockaddr suitable for NewAcceptor/NewConnector/
// NewServer/NewClient. It mirrors the Listen/connect surface §6 describes:
// bind to (host, port, v4|v6).
func ResolveTCPAddr(address string) (unix.Sockaddr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("reactor: resolve %q: %w", address, err)
	}

	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}

	sa := &unix.SockaddrInet6{Port: tcpAddr.Port}
	if tcpAddr.IP != nil {
		copy(sa.Addr[:], tcpAddr.IP.To16())
	}
	return sa, nil
}
