package reactor

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/lutianen/lux/internal/buffer"
)

// ConnState is the TCP Connection lifecycle (§3, §4.5).
type ConnState uint8

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnecting
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// DefaultHighWaterMark is the output-buffer size, in bytes, at or past which
// the callback set with SetHighWaterMarkCallback fires (§4.5 Backpressure).
const DefaultHighWaterMark = 64 * 1024 * 1024

// Connection callback types (§4.5, §4.6).
type (
	ConnectionCallback  func(conn *Connection)
	MessageCallback     func(conn *Connection, input *buffer.Buffer, receiveTime time.Time)
	WriteCompleteCallback func(conn *Connection)
	HighWaterMarkCallback func(conn *Connection, outstanding int)
	CloseCallback       func(conn *Connection)
)

// Connection is a state machine over one accepted or connected descriptor
// (§3, §4.5). Its ownership is shared: the Channel ties to it with a weak
// reference so an in-flight dispatch cannot be invalidated by the owner
// being destroyed concurrently.
type Connection struct {
	loop *Loop
	name string
	fd   int

	channel *Channel

	local unix.Sockaddr
	peer  unix.Sockaddr

	mu    sync.Mutex
	state ConnState

	input  *buffer.Buffer
	output *buffer.Buffer

	highWaterMark    int
	highWaterReached bool

	context any

	connectionCallback    ConnectionCallback
	messageCallback       MessageCallback
	writeCompleteCallback WriteCompleteCallback
	highWaterMarkCallback HighWaterMarkCallback
	closeCallback         CloseCallback

	logger Logger
}

// NewConnection wraps fd (already nonblocking, already accept4/connect'd)
// in a Connection bound to loop. The connection starts in StateConnecting;
// the server/client calls connectEstablished once it has finished wiring
// callbacks and registered the connection in its map (§4.5, §4.6).
func NewConnection(loop *Loop, name string, fd int, local, peer unix.Sockaddr, logger Logger) *Connection {
	if logger == nil {
		logger = NopLogger{}
	}
	c := &Connection{
		loop:          loop,
		name:          name,
		fd:            fd,
		local:         local,
		peer:          peer,
		state:         StateConnecting,
		input:         buffer.New(),
		output:        buffer.New(),
		highWaterMark: DefaultHighWaterMark,
		logger:        logger.WithField("conn", name),
	}
	c.channel = NewChannel(loop, fd)
	c.channel.SetReadCallback(c.handleRead)
	c.channel.SetWriteCallback(c.handleWrite)
	c.channel.SetCloseCallback(c.handleClose)
	c.channel.SetErrorCallback(c.handleError)
	c.channel.Tie(c)
	return c
}

func (c *Connection) Name() string          { return c.name }
func (c *Connection) Loop() *Loop           { return c.loop }
func (c *Connection) LocalAddr() unix.Sockaddr { return c.local }
func (c *Connection) PeerAddr() unix.Sockaddr  { return c.peer }
func (c *Connection) Connected() bool       { return c.State() == StateConnected }

func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) SetContext(ctx any) { c.context = ctx }
func (c *Connection) Context() any       { return c.context }

func (c *Connection) SetConnectionCallback(fn ConnectionCallback)       { c.connectionCallback = fn }
func (c *Connection) SetMessageCallback(fn MessageCallback)             { c.messageCallback = fn }
func (c *Connection) SetWriteCompleteCallback(fn WriteCompleteCallback) { c.writeCompleteCallback = fn }
func (c *Connection) SetHighWaterMarkCallback(fn HighWaterMarkCallback, mark int) {
	c.highWaterMarkCallback = fn
	c.highWaterMark = mark
}
func (c *Connection) SetCloseCallback(fn CloseCallback) { c.closeCallback = fn }

// connectEstablished transitions Connecting -> Connected, enables reading,
// and invokes the user connection callback. Invoked once by the
// server/client after registering the connection (§4.5).
func (c *Connection) connectEstablished() {
	c.loop.assertInLoopThread()
	c.mu.Lock()
	c.state = StateConnected
	c.mu.Unlock()

	c.channel.EnableReading()
	if c.connectionCallback != nil {
		c.connectionCallback(c)
	}
}

// connectDestroyed transitions to Disconnected, disables all interest,
// deregisters the channel, invokes the user connection callback with "down"
// semantics, and releases resources (§4.5).
func (c *Connection) connectDestroyed() {
	c.loop.assertInLoopThread()

	c.mu.Lock()
	already := c.state == StateDisconnected
	c.state = StateDisconnected
	c.mu.Unlock()
	if already {
		return
	}

	c.channel.DisableAll()
	if c.connectionCallback != nil {
		c.connectionCallback(c)
	}
	c.channel.Remove()
	_ = unix.Close(c.fd)
}

func (c *Connection) handleRead(receiveTime time.Time) {
	c.loop.assertInLoopThread()

	n, err := c.input.ReadFD(c.fd)
	switch {
	case n > 0:
		if c.messageCallback != nil {
			c.messageCallback(c, c.input, receiveTime)
		}
	case n == 0:
		c.handleClose()
	default:
		c.logger.WithError(err).Error("reactor: read error")
		c.handleError()
	}
}

func (c *Connection) handleWrite() {
	c.loop.assertInLoopThread()
	if !c.channel.IsWriting() {
		return
	}

	n, err := unix.Write(c.fd, c.output.Peek())
	if err != nil {
		if err != unix.EAGAIN {
			c.logger.WithError(err).Error("reactor: write error")
		}
		return
	}
	c.output.Retrieve(n)

	if c.output.ReadableBytes() == 0 {
		c.channel.DisableWriting()
		if c.writeCompleteCallback != nil {
			wcc := c.writeCompleteCallback
			c.loop.QueueInLoop(func() { wcc(c) })
		}
		c.mu.Lock()
		disconnecting := c.state == StateDisconnecting
		c.mu.Unlock()
		if disconnecting {
			c.shutdownWrite()
		}
	}
}

func (c *Connection) handleClose() {
	c.loop.assertInLoopThread()
	c.mu.Lock()
	c.state = StateDisconnecting
	c.mu.Unlock()

	c.channel.DisableAll()
	if c.closeCallback != nil {
		c.closeCallback(c)
	}
}

func (c *Connection) handleError() {
	if err := socketError(c.fd); err != nil {
		c.logger.WithError(err).Warn("reactor: socket error")
	}
}

// Send is safe from any goroutine (§4.5). If called on the owning loop's
// goroutine it writes directly; otherwise the payload is copied and
// marshalled via RunInLoop.
func (c *Connection) Send(data []byte) {
	if c.loop.isInLoopThread() {
		c.sendInLoop(data)
		return
	}
	cp := append([]byte(nil), data...)
	c.loop.QueueInLoop(func() { c.sendInLoop(cp) })
}

func (c *Connection) sendInLoop(data []byte) {
	if c.State() != StateConnected {
		c.logger.Warn("reactor: send on a non-connected connection, dropped")
		return
	}

	var written int
	if !c.channel.IsWriting() && c.output.ReadableBytes() == 0 {
		n, err := unix.Write(c.fd, data)
		if err != nil && err != unix.EAGAIN {
			c.logger.WithError(err).Error("reactor: write error")
			return
		}
		written = n
		if written == len(data) {
			if c.writeCompleteCallback != nil {
				wcc := c.writeCompleteCallback
				c.loop.QueueInLoop(func() { wcc(c) })
			}
			return
		}
	}

	remaining := data[written:]
	newOutstanding := c.output.ReadableBytes() + len(remaining)
	if newOutstanding >= c.highWaterMark && !c.highWaterReached && c.highWaterMarkCallback != nil {
		c.highWaterReached = true
		hwm := c.highWaterMarkCallback
		c.loop.QueueInLoop(func() { hwm(c, newOutstanding) })
	}
	c.output.Append(remaining)
	if !c.channel.IsWriting() {
		c.channel.EnableWriting()
	}
}

// Shutdown half-closes the write side once the output buffer drains. Safe
// from any goroutine (§4.5).
func (c *Connection) Shutdown() {
	c.loop.RunInLoop(func() {
		c.mu.Lock()
		if c.state != StateConnected {
			c.mu.Unlock()
			return
		}
		c.state = StateDisconnecting
		c.mu.Unlock()

		if !c.channel.IsWriting() {
			c.shutdownWrite()
		}
	})
}

func (c *Connection) shutdownWrite() {
	if err := shutdownWrite(c.fd); err != nil {
		c.logger.WithError(err).Warn("reactor: shutdown(SHUT_WR) failed")
	}
}

// ForceClose marshals an immediate close into the owning loop, safe from
// any goroutine (§4.5).
func (c *Connection) ForceClose() {
	c.mu.Lock()
	already := c.state == StateDisconnecting || c.state == StateDisconnected
	if !already {
		c.state = StateDisconnecting
	}
	c.mu.Unlock()
	if already {
		return
	}
	c.loop.QueueInLoop(c.forceCloseInLoop)
}

func (c *Connection) forceCloseInLoop() {
	c.loop.assertInLoopThread()
	if c.State() == StateConnected || c.State() == StateDisconnecting {
		c.handleClose()
	}
}

// ForceCloseWithDelay schedules ForceClose after delay, guarded by a
// re-check of the connection state: if the connection has reached
// StateDisconnected by then, the delayed callback does nothing (§4.5 "weak
// callback").
func (c *Connection) ForceCloseWithDelay(delay time.Duration) {
	gen := c
	c.loop.RunAfter(delay, func() {
		if gen.State() != StateDisconnected {
			gen.ForceClose()
		}
	})
}

func (c *Connection) String() string {
	return fmt.Sprintf("Connection{name=%s fd=%d state=%s}", c.name, c.fd, c.State())
}
