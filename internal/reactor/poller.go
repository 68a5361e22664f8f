package reactor

import "time"

// Poller is the event-demultiplexer contract consumed by Loop (§4.2). Two
// concrete implementations exist on Linux: an epoll-backed poller (default)
// and a poll(2)-backed fallback selected when LUX_USE_POLL is set in the
// environment, mirroring the original project's EPollPoller/PollPoller
// split (§REDESIGN FLAGS, §6).
type Poller interface {
	// Poll blocks for up to timeout, returning the channels that became
	// ready and the time the wait returned.
	Poll(timeout time.Duration) (ready []*Channel, receiveTime time.Time, err error)
	// UpdateChannel registers or re-registers a channel's interest mask,
	// per the state-diagram update rules in §4.2.
	UpdateChannel(c *Channel) error
	// RemoveChannel deregisters a channel entirely.
	RemoveChannel(c *Channel) error
	// HasChannel reports whether the channel is currently tracked.
	HasChannel(c *Channel) bool
	// Close releases the poller's own file descriptor(s).
	Close() error
}
