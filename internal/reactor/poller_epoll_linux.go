//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller wraps epoll(7), keyed by a fd->*Channel map as described in
// §4.2. Grounded on the teacher's eventloop/poller_linux.go, simplified from
// direct-array indexing (that file's maxFDs optimization) back to a map,
// since the spec's Poller contract is defined in terms of "maps descriptor
// -> channel" rather than a fixed-size array.
type epollPoller struct {
	epfd     int
	channels map[int]*Channel
	eventBuf []unix.EpollEvent
}

func newEpollPoller() (*epollPoller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{
		epfd:     epfd,
		channels: make(map[int]*Channel),
		eventBuf: make([]unix.EpollEvent, 128),
	}, nil
}

func (p *epollPoller) Poll(timeout time.Duration) ([]*Channel, time.Time, error) {
	ms := int(timeout / time.Millisecond)
	if timeout > 0 && ms == 0 {
		ms = 1
	}

	n, err := unix.EpollWait(p.epfd, p.eventBuf, ms)
	receiveTime := time.Now()
	if err != nil {
		if err == unix.EINTR {
			return nil, receiveTime, nil
		}
		return nil, receiveTime, err
	}

	ready := make([]*Channel, 0, n)
	for i := 0; i < n; i++ {
		ev := p.eventBuf[i]
		ch, ok := p.channels[int(ev.Fd)]
		if !ok {
			continue
		}
		ch.setRevents(epollToEvents(ev.Events))
		ready = append(ready, ch)
	}

	if n == len(p.eventBuf) {
		p.eventBuf = make([]unix.EpollEvent, len(p.eventBuf)*2)
	}

	return ready, receiveTime, nil
}

func (p *epollPoller) UpdateChannel(c *Channel) error {
	switch c.index {
	case channelNew, channelDeleted:
		if c.IsNoneEvent() {
			if c.index == channelDeleted {
				return nil
			}
			c.index = channelDeleted
			return nil
		}
		p.channels[c.fd] = c
		c.index = channelAdded
		return p.ctl(unix.EPOLL_CTL_ADD, c)
	case channelAdded:
		if c.IsNoneEvent() {
			if err := p.ctl(unix.EPOLL_CTL_DEL, c); err != nil {
				return err
			}
			c.index = channelDeleted
			return nil
		}
		return p.ctl(unix.EPOLL_CTL_MOD, c)
	}
	return nil
}

func (p *epollPoller) RemoveChannel(c *Channel) error {
	delete(p.channels, c.fd)
	if c.index == channelAdded {
		if err := p.ctl(unix.EPOLL_CTL_DEL, c); err != nil {
			return err
		}
	}
	c.index = channelNew
	return nil
}

func (p *epollPoller) HasChannel(c *Channel) bool {
	ch, ok := p.channels[c.fd]
	return ok && ch == c
}

func (p *epollPoller) Close() error { return unix.Close(p.epfd) }

func (p *epollPoller) ctl(op int, c *Channel) error {
	ev := &unix.EpollEvent{Fd: int32(c.fd), Events: eventsToEpoll(c.interest)}
	return unix.EpollCtl(p.epfd, op, c.fd, ev)
}

func eventsToEpoll(e events) uint32 {
	var out uint32
	if e.has(eventRead) {
		out |= unix.EPOLLIN | unix.EPOLLPRI | unix.EPOLLRDHUP
	}
	if e.has(eventWrite) {
		out |= unix.EPOLLOUT
	}
	return out
}

func epollToEvents(e uint32) events {
	var out events
	if e&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		out |= eventRead
	}
	if e&unix.EPOLLOUT != 0 {
		out |= eventWrite
	}
	if e&unix.EPOLLERR != 0 {
		out |= eventError
	}
	if e&unix.EPOLLHUP != 0 {
		out |= eventHangup
	}
	if e&unix.EPOLLRDHUP != 0 {
		out |= eventReadHangup
	}
	return out
}
