package luxlog

import (
	"fmt"
	"io"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Level aliases logiface's syslog-style severity scale, reusing its
// Enabled()-gated Builder construction (§9 "builder-style facade" redesign
// note) rather than a hand-rolled one: Logger.Build returns nil for a
// disabled level, so a dropped Debug() line never touches stumpy's pooled
// *Event at all.
type Level = logiface.Level

const (
	LevelDebug = logiface.LevelDebug
	LevelInfo  = logiface.LevelInformational
	LevelWarn  = logiface.LevelWarning
	LevelError = logiface.LevelError
	// LevelFatal maps to LevelAlert, the severity logiface's own doc comment
	// recommends for a "fatal" mapping.
	LevelFatal = logiface.LevelAlert
)

// asyncWriter adapts AsyncLogger.Append to the io.Writer stumpy.WithWriter
// expects. stumpy.Logger.Write hands over one complete JSON line per call,
// synchronously, before the pooled *Event is reset and returned to its pool
// (logiface/stumpy/logger.go), so the copy AsyncLogger.Append makes into its
// current buffer is always of live data.
type asyncWriter struct{ async *AsyncLogger }

func (w asyncWriter) Write(p []byte) (int, error) {
	w.async.Append(p)
	return len(p), nil
}

var _ io.Writer = asyncWriter{}

// Facade is a leveled-logging front end over an AsyncLogger, built directly
// on logiface+stumpy instead of a hand-rolled pooled builder (§4.7, §9):
// stumpy supplies the narrow, single-sink JSON *Event implementation, and
// the AsyncLogger supplies the double-buffered hand-off to disk.
type Facade struct {
	logger  *logiface.Logger[*stumpy.Event]
	async   *AsyncLogger
	onFatal func()
}

// NewFacade wraps async with a minimum enabled level. onFatal, if non-nil,
// is called after a Fatal line is flushed (ordinarily os.Exit or panic);
// Fatal lines always flush the logger synchronously before it runs (§4.7
// "fatal log lines flush then abort the process").
func NewFacade(async *AsyncLogger, minLevel Level, onFatal func()) *Facade {
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(asyncWriter{async: async})),
		stumpy.L.WithLevel(minLevel),
	)
	return &Facade{logger: logger, async: async, onFatal: onFatal}
}

// Enabled reports whether lvl would produce output, letting callers skip
// expensive argument construction entirely — the same guard logiface.Build
// applies internally before allocating a Builder.
func (f *Facade) Enabled(lvl Level) bool {
	return lvl.Enabled() && lvl <= f.logger.Level()
}

func (f *Facade) Debug(msg string, fields ...any) { f.log(LevelDebug, msg, fields) }
func (f *Facade) Info(msg string, fields ...any)  { f.log(LevelInfo, msg, fields) }
func (f *Facade) Warn(msg string, fields ...any)  { f.log(LevelWarn, msg, fields) }
func (f *Facade) Error(msg string, fields ...any) { f.log(LevelError, msg, fields) }

// Fatal logs at LevelFatal, flushes the underlying AsyncLogger synchronously,
// then invokes onFatal (§4.7 "fatal log lines flush then abort the
// process"). It deliberately doesn't use logiface's own Logger.Fatal, which
// calls OsExit itself before the AsyncLogger can be drained.
func (f *Facade) Fatal(msg string, fields ...any) {
	f.log(LevelFatal, msg, fields)
	f.async.Stop()
	if f.onFatal != nil {
		f.onFatal()
	}
}

func (f *Facade) log(lvl Level, msg string, fields []any) {
	b := f.logger.Build(lvl)
	if b == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprint(fields[i])
		}
		b = b.Field(key, fields[i+1])
	}
	b.Log(msg)
}
