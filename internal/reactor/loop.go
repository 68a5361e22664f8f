// Package reactor implements the parallel-threads/one-reactor-per-thread
// networking core described in spec §§2,4-5: a Poller-backed EventLoop, its
// Channel/Timer building blocks, Acceptor/Connector, a TCP Connection state
// machine, and TCP Server/Client wrappers. Grounded on
// github.com/joeycumines/go-eventloop's loop.go/poller.go/state.go/
// wakeup_linux.go, adapted from a JS-style task/microtask/promise loop to a
// muduo-style networking reactor: one Poller, one Timer queue, one
// cross-thread wake-up descriptor, one pending-functor queue.
package reactor

import (
	"runtime"
	"sync"
	"time"
)

// Functor is a unit of work queued for execution on a Loop's own goroutine.
type Functor func()

// Loop is the single serialization point for all channel mutations, timer
// mutations and pending functors belonging to one goroutine (§4.1, §5).
type Loop struct {
	poller Poller
	timers *timerQueue

	state *atomicState

	wakeupR, wakeupW int
	wakeupChannel    *Channel

	mu                    sync.Mutex
	pendingFunctors       []Functor
	callingPendingFunctors bool

	threadID atomicThreadID

	doneCh chan struct{}

	logger Logger
}

// NewLoop constructs a Loop with its own Poller and wake-up descriptor. The
// loop is not running until Loop() is called, and Loop() must be invoked
// from the goroutine that is meant to own it.
func NewLoop(logger Logger) (*Loop, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}

	r, w, err := newEventFD()
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	if logger == nil {
		logger = NopLogger{}
	}

	l := &Loop{
		poller:  p,
		timers:  newTimerQueue(),
		state:   newAtomicState(loopAwake),
		wakeupR: r,
		wakeupW: w,
		doneCh:  make(chan struct{}),
		logger:  logger,
	}

	l.wakeupChannel = NewChannel(l, r)
	l.wakeupChannel.SetReadCallback(func(time.Time) { l.handleWakeup() })
	l.wakeupChannel.EnableReading()

	return l, nil
}

// assertInLoopThread aborts the process if called from a goroutine other
// than the one currently running Loop() (§4.1, §7 "precondition
// violation"). It is a no-op before the loop has started.
func (l *Loop) assertInLoopThread() {
	if !l.isInLoopThread() {
		panic(ErrNotInLoopThread)
	}
}

func (l *Loop) isInLoopThread() bool {
	owner, ok := l.threadID.Load()
	if !ok {
		return true
	}
	return owner == currentThreadID()
}

// Loop runs the reactor until Quit is called. It may only be invoked once,
// from the goroutine meant to own it.
func (l *Loop) Loop() {
	if !l.state.CAS(loopAwake, loopRunning) {
		return
	}
	l.threadID.Store(currentThreadID())
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.doneCh)

	l.logger.Debug("reactor: loop started")

	for l.state.Load() == loopRunning {
		timeout := l.nextTimeout()

		ready, receiveTime, err := l.poller.Poll(timeout)
		if err != nil {
			l.logger.WithError(err).Error("reactor: poller wait failed")
			continue
		}

		for _, ch := range ready {
			ch.HandleEvent(receiveTime)
		}

		l.runExpiredTimers(time.Now())
		l.doPendingFunctors()
	}

	l.state.Store(loopStopped)
	l.logger.Debug("reactor: loop stopped")
}

func (l *Loop) nextTimeout() time.Duration {
	const maxWait = 10 * time.Second
	when, ok := l.timers.nextExpiration()
	if !ok {
		return maxWait
	}
	d := time.Until(when)
	if d < 0 {
		d = 0
	}
	if d > maxWait {
		d = maxWait
	}
	return d
}

func (l *Loop) runExpiredTimers(now time.Time) {
	due := l.timers.expired(now)
	for _, e := range due {
		l.safeRun(e.fn)
		if e.repeat {
			l.timers.rearm(e, time.Now())
		}
	}
}

// Quit signals the loop to exit after its current iteration. Safe to call
// from any goroutine (§4.1).
func (l *Loop) Quit() {
	if !l.state.CAS(loopRunning, loopQuitting) {
		// Not yet started: nothing is signalled and the request is not
		// remembered. Already quitting/stopped: wake the poller anyway so a
		// loop still blocked in its final Poll returns promptly.
		if l.state.Load() != loopAwake {
			l.wake()
		}
		return
	}
	if !l.isInLoopThread() {
		l.wake()
	}
}

// RunInLoop executes fn on the loop's own goroutine: inline if called from
// that goroutine already, otherwise queued and the loop is woken (§4.1).
func (l *Loop) RunInLoop(fn Functor) {
	if l.isInLoopThread() {
		fn()
		return
	}
	l.QueueInLoop(fn)
}

// QueueInLoop always queues fn, waking the loop if it is currently draining
// functors (so fn is picked up by the next wake, not lost) or if called
// cross-thread (§4.1).
func (l *Loop) QueueInLoop(fn Functor) {
	l.mu.Lock()
	l.pendingFunctors = append(l.pendingFunctors, fn)
	shouldWake := !l.isInLoopThread() || l.callingPendingFunctors
	l.mu.Unlock()

	if shouldWake {
		l.wake()
	}
}

func (l *Loop) doPendingFunctors() {
	l.mu.Lock()
	functors := l.pendingFunctors
	l.pendingFunctors = nil
	l.callingPendingFunctors = true
	l.mu.Unlock()

	for _, fn := range functors {
		l.safeRun(fn)
	}

	l.mu.Lock()
	l.callingPendingFunctors = false
	l.mu.Unlock()
}

func (l *Loop) safeRun(fn Functor) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			// §7: a callback that panics aborts the process, matching the
			// fatal-log policy; the panic is logged before it is re-raised.
			l.logger.WithField("panic", r).Error("reactor: callback panicked")
			panic(r)
		}
	}()
	fn()
}

// RunAt schedules fn to run once at `when`. The returned TimerID is valid
// for Cancel immediately, even when called from a goroutine other than the
// loop's own (§4.1: runInLoop queues cross-thread calls, it doesn't reject
// them, so the id can't wait on the queued functor to actually run).
func (l *Loop) RunAt(when time.Time, fn Functor) TimerID {
	id := l.timers.allocateID()
	l.RunInLoop(func() { l.timers.addWithID(id, when, 0, fn) })
	return id
}

// RunAfter schedules fn to run once after delay.
func (l *Loop) RunAfter(delay time.Duration, fn Functor) TimerID {
	return l.RunAt(time.Now().Add(delay), fn)
}

// RunEvery schedules fn to run every interval, starting after one interval.
func (l *Loop) RunEvery(interval time.Duration, fn Functor) TimerID {
	id := l.timers.allocateID()
	l.RunInLoop(func() { l.timers.addWithID(id, time.Now().Add(interval), interval, fn) })
	return id
}

// Cancel cancels a previously scheduled timer. Safe from any goroutine
// (§4.3, §5).
func (l *Loop) Cancel(id TimerID) {
	l.RunInLoop(func() { l.timers.cancel(id) })
}

// updateChannel/removeChannel delegate to the Poller; callable only from
// the owning loop's goroutine (§4.1).
func (l *Loop) updateChannel(c *Channel) {
	l.assertInLoopThread()
	if err := l.poller.UpdateChannel(c); err != nil {
		l.logger.WithError(err).Error("reactor: poller update failed")
	}
}

func (l *Loop) removeChannel(c *Channel) {
	l.assertInLoopThread()
	if err := l.poller.RemoveChannel(c); err != nil {
		l.logger.WithError(err).Error("reactor: poller remove failed")
	}
}

// Done returns a channel closed once Loop() has returned.
func (l *Loop) Done() <-chan struct{} { return l.doneCh }

// Close releases the loop's own file descriptors. Call only after Loop()
// has returned.
func (l *Loop) Close() error {
	_ = closeEventFD(l.wakeupR, l.wakeupW)
	return l.poller.Close()
}
