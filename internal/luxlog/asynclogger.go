package luxlog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// logBufferSize is the default per-buffer capacity (§3 Log buffer: "large,
// ~4 MiB default").
const logBufferSize = 4 << 20

// defaultDropThreshold and defaultDropKeep implement §4.7 step 3: if the
// drainer finds more than dropThreshold filled buffers waiting, it logs one
// line citing the overflow and keeps only the first dropKeep. Spec §9 Open
// Questions calls these figures heuristics to be treated as configurable
// defaults, not constants — see WithDropThreshold/WithDropKeep.
const (
	defaultDropThreshold = 25
	defaultDropKeep      = 2
)

// defaultFlushInterval bounds how long the drainer waits for a filled
// buffer before flushing on an empty queue (§4.7 step 2).
const defaultFlushInterval = 3 * time.Second

// logBuffer is a fixed-capacity append-only byte region (§3 Log buffer).
type logBuffer struct {
	buf    []byte
	cursor int
}

func newLogBuffer() *logBuffer {
	return &logBuffer{buf: make([]byte, logBufferSize)}
}

func (b *logBuffer) available() int { return len(b.buf) - b.cursor }

func (b *logBuffer) append(data []byte) {
	copy(b.buf[b.cursor:], data)
	b.cursor += len(data)
}

func (b *logBuffer) reset() { b.cursor = 0 }

func (b *logBuffer) bytes() []byte { return b.buf[:b.cursor] }

// AsyncLogger is the double-buffered front end described in §4.7: many
// producer goroutines call Append; one drainer goroutine batches filled
// buffers out to an AppendFile. The hand-off uses a mutex-guarded trio
// (current/spare/filled) exactly as §4.7 specifies; the wake signal is a
// size-1 channel rather than a condition variable, since the drainer also
// needs to wake on a flush-interval timeout and Go's sync.Cond has no
// timed-wait primitive.
type AsyncLogger struct {
	mu      sync.Mutex
	current *logBuffer
	spare   *logBuffer
	filled  []*logBuffer

	notify chan struct{}

	flushInterval time.Duration
	dropThreshold int
	dropKeep      int

	file *AppendFile

	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Option configures an AsyncLogger constructed by NewAsyncLogger.
type Option func(*AsyncLogger)

// WithFlushInterval overrides defaultFlushInterval, the longest the drainer
// waits on an empty queue before flushing (§4.7 step 2).
func WithFlushInterval(d time.Duration) Option {
	return func(l *AsyncLogger) { l.flushInterval = d }
}

// WithDropThreshold overrides defaultDropThreshold, the number of
// outstanding filled buffers past which the drainer starts shedding load
// (§4.7 step 3, §9 Open Questions).
func WithDropThreshold(n int) Option {
	return func(l *AsyncLogger) { l.dropThreshold = n }
}

// WithDropKeep overrides defaultDropKeep, the number of buffers retained
// out of an overflowing batch (§4.7 step 3, §9 Open Questions).
func WithDropKeep(n int) Option {
	return func(l *AsyncLogger) { l.dropKeep = n }
}

// NewAsyncLogger creates an AsyncLogger writing through file. Call Start to
// spin up the drainer goroutine.
func NewAsyncLogger(file *AppendFile, opts ...Option) *AsyncLogger {
	l := &AsyncLogger{
		current:       newLogBuffer(),
		spare:         newLogBuffer(),
		notify:        make(chan struct{}, 1),
		flushInterval: defaultFlushInterval,
		dropThreshold: defaultDropThreshold,
		dropKeep:      defaultDropKeep,
		file:          file,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the drainer goroutine. Safe to call once.
func (l *AsyncLogger) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	go l.drainLoop()
}

// Stop signals the drainer to do one final flush and exit, then waits for
// it to finish.
func (l *AsyncLogger) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	close(l.stop)
	<-l.done
}

// Append copies line into the current buffer, rotating to the spare (or a
// fresh allocation) if it doesn't fit, and signals the drainer (§4.7
// producer algorithm).
func (l *AsyncLogger) Append(line []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current.available() >= len(line) {
		l.current.append(line)
		return
	}

	l.filled = append(l.filled, l.current)
	if l.spare != nil {
		l.current = l.spare
		l.spare = nil
	} else {
		l.current = newLogBuffer()
	}
	l.current.append(line)

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// drainLoop is the single background drainer (§4.7). Each iteration: wait
// for a signal or the flush interval, swap the filled vector and current
// buffer out under the lock, write everything to the file sink, and retain
// up to two drained buffers as the next iteration's new1/new2 so the hot
// path avoids allocation.
func (l *AsyncLogger) drainLoop() {
	defer close(l.done)

	new1 := newLogBuffer()
	new2 := newLogBuffer()

	for {
		stopping := false

		l.mu.Lock()
		if len(l.filled) == 0 {
			l.mu.Unlock()
			select {
			case <-l.notify:
			case <-time.After(l.flushInterval):
			case <-l.stop:
				stopping = true
			}
			l.mu.Lock()
		}

		l.filled = append(l.filled, l.current)
		l.current = new1
		toWrite := l.filled
		l.filled = nil
		if l.spare == nil {
			l.spare = new2
		}
		l.mu.Unlock()

		if len(toWrite) > l.dropThreshold {
			dropped := len(toWrite) - l.dropKeep
			fmt.Fprintf(os.Stderr, "luxlog: dropped %d buffers, log queue overflow\n", dropped)
			toWrite = toWrite[:l.dropKeep]
		}

		for _, b := range toWrite {
			if b.cursor > 0 {
				_ = l.file.Append(b.bytes())
			}
		}
		_ = l.file.Flush()

		new1 = newLogBuffer()
		if len(toWrite) >= 1 {
			toWrite[0].reset()
			new1 = toWrite[0]
		}
		new2 = newLogBuffer()
		if len(toWrite) >= 2 {
			toWrite[1].reset()
			new2 = toWrite[1]
		}

		if stopping {
			l.mu.Lock()
			final := l.filled
			l.filled = nil
			remaining := l.current
			l.mu.Unlock()
			for _, b := range final {
				if b.cursor > 0 {
					_ = l.file.Append(b.bytes())
				}
			}
			if remaining.cursor > 0 {
				_ = l.file.Append(remaining.bytes())
			}
			_ = l.file.Flush()
			return
		}
	}
}
