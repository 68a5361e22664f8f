package reactor

import "sync/atomic"

// LoopState is the EventLoop's lifecycle state (§4.1).
type LoopState uint32

const (
	// loopAwake: the loop has been constructed but Loop() has not been
	// called yet.
	loopAwake LoopState = iota
	// loopRunning: the loop is actively dispatching channels/timers/functors.
	loopRunning
	// loopQuitting: Quit() has been requested; the loop will exit after the
	// current iteration drains.
	loopQuitting
	// loopStopped: Loop() has returned.
	loopStopped
)

func (s LoopState) String() string {
	switch s {
	case loopAwake:
		return "awake"
	case loopRunning:
		return "running"
	case loopQuitting:
		return "quitting"
	case loopStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// atomicState is a small CAS-based state holder, mirroring the teacher's
// FastState: no mutex, just atomic loads/CAS, since the loop's hot path
// checks state on every iteration.
type atomicState struct {
	v atomic.Uint32
}

func newAtomicState(initial LoopState) *atomicState {
	s := &atomicState{}
	s.v.Store(uint32(initial))
	return s
}

func (s *atomicState) Load() LoopState { return LoopState(s.v.Load()) }

func (s *atomicState) Store(v LoopState) { s.v.Store(uint32(v)) }

func (s *atomicState) CAS(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
