package reactor

import (
	"time"
	"weak"
)

// events, matching the Poller's readiness vocabulary (§4.2). The bit values
// are this package's own; each poller translates them bit by bit to and
// from its EPOLL*/POLL* flags (eventsToEpoll/epollToEvents,
// eventsToPoll/pollToEvents).
type events uint32

const (
	eventRead        events = 1 << iota // readable, including priority data
	eventWrite                          // writable
	eventError                          // error condition
	eventHangup                         // full hang-up (POLLHUP/EPOLLHUP): peer gone, no data pending
	eventReadHangup                     // half-close with data pending (POLLRDHUP/EPOLLRDHUP): routed like a read
)

func (e events) has(bit events) bool { return e&bit != 0 }

// channelState is the three-state Poller-registration marker described in
// §4.2: a channel may be new (never registered), added (currently
// registered) or deleted (previously registered, currently not, but still
// tracked so the state-diagram update rules stay idempotent).
type channelState uint8

const (
	channelNew channelState = iota
	channelAdded
	channelDeleted
)

// Channel binds one file descriptor to an interest mask and a set of
// per-event callbacks within a single owning Loop (§3, §4.2). A Channel may
// only be mutated from its owning loop's goroutine; it does not own the
// descriptor's lifetime.
type Channel struct {
	loop  *Loop
	fd    int
	index channelState

	interest events
	revents  events

	// tie is a weak reference to the owning Connection, used so an in-flight
	// dispatch cannot be invalidated by the owner being destroyed
	// concurrently (§4.2 "tie").
	tie  weak.Pointer[Connection]
	tied bool

	readCallback  func(receiveTime time.Time)
	writeCallback func()
	closeCallback func()
	errorCallback func()

	eventHandling   bool
	addedToLoop     bool
}

// NewChannel creates a Channel for fd, owned by loop. The channel starts
// with zero interest and must be wired up via SetReadCallback etc. before
// EnableReading/EnableWriting are called.
func NewChannel(loop *Loop, fd int) *Channel {
	return &Channel{loop: loop, fd: fd, index: channelNew}
}

// FD returns the underlying file descriptor. The Channel does not own it.
func (c *Channel) FD() int { return c.fd }

func (c *Channel) SetReadCallback(fn func(receiveTime time.Time)) { c.readCallback = fn }
func (c *Channel) SetWriteCallback(fn func())                    { c.writeCallback = fn }
func (c *Channel) SetCloseCallback(fn func())                     { c.closeCallback = fn }
func (c *Channel) SetErrorCallback(fn func())                     { c.errorCallback = fn }

// Tie associates the channel with a shared owner via a weak pointer so that
// HandleEvent can detect, mid-dispatch, whether the owner has already been
// collected/destroyed (§4.2 "tie", §9 owning-cycle note).
func (c *Channel) Tie(owner *Connection) {
	c.tie = weak.Make(owner)
	c.tied = true
}

func (c *Channel) EnableReading() {
	c.interest |= eventRead
	c.update()
}

func (c *Channel) DisableReading() {
	c.interest &^= eventRead
	c.update()
}

func (c *Channel) EnableWriting() {
	c.interest |= eventWrite
	c.update()
}

func (c *Channel) DisableWriting() {
	c.interest &^= eventWrite
	c.update()
}

func (c *Channel) DisableAll() {
	c.interest = 0
	c.update()
}

func (c *Channel) IsWriting() bool { return c.interest.has(eventWrite) }
func (c *Channel) IsReading() bool { return c.interest.has(eventRead) }
func (c *Channel) IsNoneEvent() bool { return c.interest == 0 }

func (c *Channel) update() {
	c.addedToLoop = true
	c.loop.updateChannel(c)
}

// Remove deregisters the channel from its loop. Must be called from the
// owning loop's goroutine, and only once the channel is IsNoneEvent().
func (c *Channel) Remove() {
	c.addedToLoop = false
	c.loop.removeChannel(c)
}

// setRevents stashes the poller-reported readiness mask ahead of HandleEvent.
func (c *Channel) setRevents(r events) { c.revents = r }

// HandleEvent runs the per-event callbacks in the fixed order from §4.2:
// close, error, read, write. If the channel was tied to an owner, dispatch
// is skipped once that owner has been released.
func (c *Channel) HandleEvent(receiveTime time.Time) {
	if c.tied {
		if c.tie.Value() == nil {
			return
		}
	}
	c.handleEventGuarded(receiveTime)
}

func (c *Channel) handleEventGuarded(receiveTime time.Time) {
	c.eventHandling = true
	defer func() { c.eventHandling = false }()

	if c.revents.has(eventHangup) && !c.revents.has(eventRead) {
		if c.closeCallback != nil {
			c.closeCallback()
		}
	}
	if c.revents.has(eventError) {
		if c.errorCallback != nil {
			c.errorCallback()
		}
	}
	if c.revents.has(eventRead) || c.revents.has(eventReadHangup) {
		if c.readCallback != nil {
			c.readCallback(receiveTime)
		}
	}
	if c.revents.has(eventWrite) {
		if c.writeCallback != nil {
			c.writeCallback()
		}
	}
}
