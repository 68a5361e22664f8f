package reactor

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// NewConnectionCallback receives a freshly accept(2)-ed descriptor and the
// peer address; it is invoked on the Acceptor's loop (§4.4, §4.6).
type NewConnectionCallback func(fd int, peer unix.Sockaddr)

// Acceptor listens on one address and accepts connections in a tight loop
// whenever the listening descriptor is readable. Grounded on the
// placeholder-descriptor idiom described for §4.4 ("a specific error kind"
// = EMFILE/ENFILE), which the teacher pack has no direct equivalent for —
// this is the classic muduo trick, re-expressed with a Channel/Loop already
// built to the same contract the teacher's eventloop package exposes.
type Acceptor struct {
	loop        *Loop
	listenFD    int
	channel     *Channel
	reusePort   bool
	listening   bool
	placeholder int

	NewConnectionCallback NewConnectionCallback
}

// NewAcceptor creates (but does not yet start) an Acceptor bound to addr.
func NewAcceptor(loop *Loop, addr unix.Sockaddr, reusePort bool) (*Acceptor, error) {
	fd, err := newListenSocket(addr, 1024, true, reusePort)
	if err != nil {
		return nil, err
	}

	placeholder, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("open(/dev/null)", err)
	}

	a := &Acceptor{
		loop:        loop,
		listenFD:    fd,
		reusePort:   reusePort,
		placeholder: placeholder,
	}
	a.channel = NewChannel(loop, fd)
	a.channel.SetReadCallback(func(_ time.Time) { a.handleRead() })
	return a, nil
}

// Listen starts accepting. Must be called from the owning loop's goroutine.
func (a *Acceptor) Listen() {
	a.loop.assertInLoopThread()
	a.listening = true
	a.channel.EnableReading()
}

func (a *Acceptor) handleRead() {
	a.loop.assertInLoopThread()
	for {
		peer, nfd, err := accept4(a.listenFD)
		if err == nil {
			if a.NewConnectionCallback != nil {
				a.NewConnectionCallback(nfd, peer)
			} else {
				_ = unix.Close(nfd)
			}
			continue
		}

		switch err {
		case unix.EAGAIN:
			return
		case unix.EMFILE, unix.ENFILE:
			// Out of descriptors: free the placeholder, drain one pending
			// connection by accepting and immediately closing it, then
			// reopen the placeholder so the trick is available again.
			_ = unix.Close(a.placeholder)
			if fd, _, acceptErr := unix.Accept(a.listenFD); acceptErr == nil {
				_ = unix.Close(fd)
			}
			if fd, openErr := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0); openErr == nil {
				a.placeholder = fd
			}
			return
		default:
			return
		}
	}
}

// Close stops accepting and releases the listening and placeholder
// descriptors. Must be called from the owning loop's goroutine.
func (a *Acceptor) Close() {
	a.loop.assertInLoopThread()
	a.channel.DisableAll()
	a.channel.Remove()
	_ = unix.Close(a.listenFD)
	_ = unix.Close(a.placeholder)
}

func accept4(listenFD int) (unix.Sockaddr, int, error) {
	nfd, sa, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return nil, -1, err
	}
	return sa, nfd, nil
}
