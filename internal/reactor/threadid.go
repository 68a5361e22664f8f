package reactor

import (
	"runtime"
	"sync/atomic"
)

// atomicThreadID records which goroutine currently owns a Loop, so cross-
// thread callers can tell whether they need to queue instead of running
// inline (§4.1). Grounded on the teacher's loop.go loopGoroutineID +
// getGoroutineID combination, generalized into its own small type used by
// Loop's run-thread check.
type atomicThreadID struct {
	v atomic.Uint64
}

func (a *atomicThreadID) Store(id uint64) { a.v.Store(id) }

// Load reports the owning goroutine id and whether one has been set.
func (a *atomicThreadID) Load() (id uint64, ok bool) {
	id = a.v.Load()
	return id, id != 0
}

// currentThreadID parses the current goroutine's numeric id out of
// runtime.Stack's header line. There is no supported API for this in Go;
// it is used here purely as a same-goroutine identity check, never for
// scheduling decisions.
func currentThreadID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
