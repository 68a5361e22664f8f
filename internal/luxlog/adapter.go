package luxlog

import (
	"fmt"

	"github.com/lutianen/lux/internal/reactor"
)

// reactorLogger adapts a Facade to reactor.Logger, the logrus.FieldLogger
// subset every internal/reactor, internal/luxsql and internal/luxkv
// component logs diagnostics through. It accumulates fields the way
// logrus.Entry.WithField does (returning a new value rather than mutating
// the receiver), so a WithField chain is safe to share across goroutines.
type reactorLogger struct {
	facade *Facade
	fields []any
}

// NewReactorLogger wraps facade so it can be passed anywhere a
// reactor.Logger is expected, letting the demo binaries route reactor-core
// diagnostics through the same asynchronous, rolling log sink as their own
// application lines.
func NewReactorLogger(facade *Facade) reactor.Logger {
	return reactorLogger{facade: facade}
}

var _ reactor.Logger = reactorLogger{}

func (l reactorLogger) WithField(key string, value any) reactor.Logger {
	return reactorLogger{facade: l.facade, fields: append(append([]any(nil), l.fields...), key, value)}
}

func (l reactorLogger) WithFields(fields map[string]any) reactor.Logger {
	out := append([]any(nil), l.fields...)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return reactorLogger{facade: l.facade, fields: out}
}

func (l reactorLogger) WithError(err error) reactor.Logger {
	return l.WithField("error", err)
}

func (l reactorLogger) Debug(args ...any) { l.facade.Debug(fmt.Sprint(args...), l.fields...) }
func (l reactorLogger) Info(args ...any)  { l.facade.Info(fmt.Sprint(args...), l.fields...) }
func (l reactorLogger) Warn(args ...any)  { l.facade.Warn(fmt.Sprint(args...), l.fields...) }
func (l reactorLogger) Error(args ...any) { l.facade.Error(fmt.Sprint(args...), l.fields...) }
