// Package luxlog implements the asynchronous, double-buffered logger
// described in spec components C11 (AsyncLogger) and C12 (AppendFile): many
// producer goroutines hand lines off to one drainer goroutine, which rolls
// files by size and by day boundary. No teacher or pack file implements
// this exact double-buffer hand-off; the design follows spec §4.7's
// algorithm directly, using sync.Mutex and a wake-up channel from the
// standard library.
package luxlog

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

// DefaultRollSize is the byte threshold past which AppendFile rolls to a
// fresh file (§3 Log file set).
const DefaultRollSize = 1 << 30 // 1 GiB

// defaultCheckEveryN is the append-count interval at which AppendFile checks
// whether a roll or flush is due (§4.7 "every checkEveryN appends"). Spec §9
// Open Questions calls this a configurable heuristic, matching the original
// LuxLog::LogFile constructor's checkEveryN parameter.
const defaultCheckEveryN = 1024

// rollPeriodSeconds aligns the day-boundary roll check to a coarse period
// (§4.7 "period seconds").
const rollPeriodSeconds = 60 * 60 * 24

// AppendFile wraps a single on-disk log file, tracking bytes written since
// open and rolling by size or day boundary (C12).
type AppendFile struct {
	basename    string
	rollSize    int64
	checkEveryN int

	file          *os.File
	writer        *bufio.Writer
	writtenBytes  int64
	appendCount   int
	startOfPeriod int64
	lastRoll      int64
	lastFlush     int64
}

// FileOption configures an AppendFile constructed by NewAppendFile.
type FileOption func(*AppendFile)

// WithCheckEveryN overrides defaultCheckEveryN, the append-count interval at
// which a roll/flush decision is made (§4.7, §9 Open Questions).
func WithCheckEveryN(n int) FileOption {
	return func(f *AppendFile) { f.checkEveryN = n }
}

// NewAppendFile opens (or creates) the first log file for basename.
func NewAppendFile(basename string, rollSize int64, opts ...FileOption) (*AppendFile, error) {
	if rollSize <= 0 {
		rollSize = DefaultRollSize
	}
	f := &AppendFile{basename: basename, rollSize: rollSize, checkEveryN: defaultCheckEveryN}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.rollFile(time.Now()); err != nil {
		return nil, err
	}
	return f, nil
}

// Append writes data to the current file, then rolls or flushes if the
// periodic check (every checkEveryN appends) says one is due.
func (f *AppendFile) Append(data []byte) error {
	if _, err := f.writer.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "luxlog: write error: %v\n", err)
		return err
	}
	f.writtenBytes += int64(len(data))
	f.appendCount++

	if f.appendCount >= f.checkEveryN {
		f.appendCount = 0
		now := time.Now()
		thisPeriod := now.Unix() / rollPeriodSeconds * rollPeriodSeconds
		switch {
		case f.writtenBytes > f.rollSize:
			return f.rollFile(now)
		case thisPeriod != f.startOfPeriod:
			return f.rollFile(now)
		case now.Unix() != f.lastFlush:
			f.lastFlush = now.Unix()
			return f.Flush()
		}
	}
	return nil
}

// Flush flushes any buffered bytes to the underlying file.
func (f *AppendFile) Flush() error {
	return f.writer.Flush()
}

// Close flushes and closes the current file.
func (f *AppendFile) Close() error {
	if err := f.Flush(); err != nil {
		_ = f.file.Close()
		return err
	}
	return f.file.Close()
}

// rollFile opens a fresh file named <basename>.<YYYYmmdd-HHMMSS>.<hostname>.
// <pid>.log. Opening a file with the same name within one second is a
// no-op, per §4.7 ("rollFile is a no-op if now <= lastRoll").
func (f *AppendFile) rollFile(now time.Time) error {
	if f.lastRoll != 0 && now.Unix() <= f.lastRoll {
		return nil
	}

	name := logFileName(f.basename, now)

	file, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "luxlog: open error: %v\n", err)
		return err
	}

	if f.file != nil {
		_ = f.Flush()
		_ = f.file.Close()
	}

	f.file = file
	f.writer = bufio.NewWriterSize(file, 64*1024)
	f.writtenBytes = 0
	f.lastRoll = now.Unix()
	f.lastFlush = now.Unix()
	f.startOfPeriod = now.Unix() / rollPeriodSeconds * rollPeriodSeconds
	return nil
}

func logFileName(basename string, now time.Time) string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknownhost"
	}
	return fmt.Sprintf("%s.%s.%s.%d.log",
		basename,
		now.Format("20060102-150405"),
		hostname,
		os.Getpid(),
	)
}
