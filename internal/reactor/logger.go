package reactor

import "github.com/sirupsen/logrus"

// Logger is the diagnostics sink used by the reactor: a subset of
// logrus.FieldLogger, so callers can plug in a *logrus.Logger/Entry
// directly. Grounded on the teacher's sql/log package (core.go, logrus.go).
type Logger interface {
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	WithError(err error) Logger
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
}

// NopLogger discards everything. It is the default when NewLoop is given a
// nil Logger.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) WithField(string, any) Logger     { return NopLogger{} }
func (NopLogger) WithFields(map[string]any) Logger { return NopLogger{} }
func (NopLogger) WithError(error) Logger           { return NopLogger{} }
func (NopLogger) Debug(...any)                     {}
func (NopLogger) Info(...any)                      {}
func (NopLogger) Warn(...any)                      {}
func (NopLogger) Error(...any)                     {}

// LogrusLogger adapts logrus.FieldLogger (e.g. *logrus.Logger or
// *logrus.Entry) to Logger.
type LogrusLogger struct{ logrus.FieldLogger }

var _ Logger = LogrusLogger{}

func (x LogrusLogger) WithField(key string, value any) Logger {
	return LogrusLogger{FieldLogger: x.FieldLogger.WithField(key, value)}
}

func (x LogrusLogger) WithFields(fields map[string]any) Logger {
	return LogrusLogger{FieldLogger: x.FieldLogger.WithFields(fields)}
}

func (x LogrusLogger) WithError(err error) Logger {
	return LogrusLogger{FieldLogger: x.FieldLogger.WithError(err)}
}
