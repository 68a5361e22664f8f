package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

type connectorState uint8

const (
	connectorDisconnected connectorState = iota
	connectorConnecting
	connectorConnected
)

const (
	connectorInitialRetryDelay = 500 * time.Millisecond
	connectorMaxRetryDelay     = 30 * time.Second
)

// NewConnectCallback receives a successfully-connected descriptor on the
// owning loop (§4.4, §4.6 Client).
type NewConnectCallback func(fd int)

// Connector drives an async connect(2) with write-readiness polling and
// exponential-backoff retry, per §4.4. It is stoppable before success and
// `restart` is idempotent from the loop thread.
type Connector struct {
	loop    *Loop
	addr    unix.Sockaddr
	state   connectorState
	stopped bool

	channel    *Channel
	retryDelay time.Duration
	retryTimer TimerID

	NewConnectCallback NewConnectCallback
}

// NewConnector creates a Connector targeting addr. Call Start to begin
// connecting.
func NewConnector(loop *Loop, addr unix.Sockaddr) *Connector {
	return &Connector{
		loop:       loop,
		addr:       addr,
		state:      connectorDisconnected,
		retryDelay: connectorInitialRetryDelay,
	}
}

// Start begins connecting. Safe from any goroutine.
func (c *Connector) Start() {
	c.stopped = false
	c.loop.RunInLoop(c.startInLoop)
}

func (c *Connector) startInLoop() {
	c.loop.assertInLoopThread()
	if c.stopped {
		return
	}
	c.connect()
}

func (c *Connector) connect() {
	fd, err := newConnectSocket(c.addr)
	if err != nil {
		c.retry()
		return
	}

	c.state = connectorConnecting
	c.channel = NewChannel(c.loop, fd)
	c.channel.SetWriteCallback(c.handleWrite)
	c.channel.SetErrorCallback(c.handleError)
	c.channel.EnableWriting()
}

func (c *Connector) handleWrite() {
	c.loop.assertInLoopThread()
	if c.state != connectorConnecting {
		return
	}

	fd := c.removeAndResetChannel()
	if err := socketError(fd); err != nil {
		_ = unix.Close(fd)
		c.retry()
		return
	}

	// A socket that is writable but self-connected (peer == local, e.g. a
	// connect(2) to 0.0.0.0 resolving back to the same ephemeral port) is
	// not a real connection; treat it the same as a connect error.
	if peer, perr := peerAddr(fd); perr != nil || sockaddrEqual(peer, localMustGet(fd)) {
		_ = unix.Close(fd)
		c.retry()
		return
	}

	c.state = connectorConnected
	if c.NewConnectCallback != nil {
		c.NewConnectCallback(fd)
	} else {
		_ = unix.Close(fd)
	}
}

func (c *Connector) handleError() {
	c.loop.assertInLoopThread()
	fd := c.removeAndResetChannel()
	_ = unix.Close(fd)
	c.retry()
}

func (c *Connector) removeAndResetChannel() int {
	fd := c.channel.FD()
	c.channel.DisableAll()
	c.channel.Remove()
	c.channel = nil
	return fd
}

func (c *Connector) retry() {
	c.state = connectorDisconnected
	if c.stopped {
		return
	}
	delay := c.retryDelay
	c.retryDelay *= 2
	if c.retryDelay > connectorMaxRetryDelay {
		c.retryDelay = connectorMaxRetryDelay
	}
	c.retryTimer = c.loop.RunAfter(delay, func() {
		if !c.stopped {
			c.connect()
		}
	})
}

// Stop aborts any in-flight connect attempt and future retries. Safe from
// any goroutine.
func (c *Connector) Stop() {
	c.stopped = true
	c.loop.RunInLoop(func() {
		c.loop.Cancel(c.retryTimer)
		if c.channel != nil {
			fd := c.removeAndResetChannel()
			_ = unix.Close(fd)
		}
	})
}

// Restart resets backoff and state, then connects again. Must be called
// from the owning loop's goroutine; idempotent: while a connect attempt is
// in flight a further Restart does nothing, and a pending retry timer is
// cancelled so it cannot start a second attempt.
func (c *Connector) Restart() {
	c.loop.assertInLoopThread()
	if c.state == connectorConnecting {
		return
	}
	c.loop.Cancel(c.retryTimer)
	c.state = connectorDisconnected
	c.retryDelay = connectorInitialRetryDelay
	c.stopped = false
	c.startInLoop()
}

func localMustGet(fd int) unix.Sockaddr {
	a, _ := localAddr(fd)
	return a
}

func sockaddrEqual(a, b unix.Sockaddr) bool {
	ai, ok1 := a.(*unix.SockaddrInet4)
	bi, ok2 := b.(*unix.SockaddrInet4)
	if ok1 && ok2 {
		return ai.Port == bi.Port && ai.Addr == bi.Addr
	}
	a6, ok1 := a.(*unix.SockaddrInet6)
	b6, ok2 := b.(*unix.SockaddrInet6)
	if ok1 && ok2 {
		return a6.Port == b6.Port && a6.Addr == b6.Addr
	}
	return false
}
