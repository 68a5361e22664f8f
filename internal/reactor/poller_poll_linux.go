//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollPoller is the poll(2)-backed fallback selected when LUX_USE_POLL is
// set (§6 external interfaces, §REDESIGN FLAGS). It trades epoll's O(1)
// readiness reporting for a simpler, linear-scan implementation — adequate
// for the low connection counts the fallback is meant to debug.
type pollPoller struct {
	channels map[int]*Channel
	fds      []unix.PollFd
}

func newPollPoller() *pollPoller {
	return &pollPoller{channels: make(map[int]*Channel)}
}

func (p *pollPoller) Poll(timeout time.Duration) ([]*Channel, time.Time, error) {
	ms := int(timeout / time.Millisecond)
	if timeout > 0 && ms == 0 {
		ms = 1
	}

	p.fds = p.fds[:0]
	for fd, ch := range p.channels {
		p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: eventsToPoll(ch.interest)})
	}

	n, err := unix.Poll(p.fds, ms)
	receiveTime := time.Now()
	if err != nil {
		if err == unix.EINTR {
			return nil, receiveTime, nil
		}
		return nil, receiveTime, err
	}

	ready := make([]*Channel, 0, n)
	if n == 0 {
		return ready, receiveTime, nil
	}
	for _, pfd := range p.fds {
		if pfd.Revents == 0 {
			continue
		}
		ch, ok := p.channels[int(pfd.Fd)]
		if !ok {
			continue
		}
		ch.setRevents(pollToEvents(pfd.Revents))
		ready = append(ready, ch)
	}
	return ready, receiveTime, nil
}

func (p *pollPoller) UpdateChannel(c *Channel) error {
	if c.IsNoneEvent() {
		delete(p.channels, c.fd)
		c.index = channelDeleted
		return nil
	}
	p.channels[c.fd] = c
	c.index = channelAdded
	return nil
}

func (p *pollPoller) RemoveChannel(c *Channel) error {
	delete(p.channels, c.fd)
	c.index = channelNew
	return nil
}

func (p *pollPoller) HasChannel(c *Channel) bool {
	ch, ok := p.channels[c.fd]
	return ok && ch == c
}

func (p *pollPoller) Close() error { return nil }

func eventsToPoll(e events) int16 {
	var out int16
	if e.has(eventRead) {
		out |= unix.POLLIN | unix.POLLPRI
	}
	if e.has(eventWrite) {
		out |= unix.POLLOUT
	}
	return out
}

func pollToEvents(e int16) events {
	var out events
	if e&(unix.POLLIN|unix.POLLPRI) != 0 {
		out |= eventRead
	}
	if e&unix.POLLOUT != 0 {
		out |= eventWrite
	}
	if e&unix.POLLERR != 0 {
		out |= eventError
	}
	if e&unix.POLLHUP != 0 {
		out |= eventHangup
	}
	if e&unix.POLLRDHUP != 0 {
		out |= eventReadHangup
	}
	return out
}
