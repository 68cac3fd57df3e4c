// Package ftplog provides the structured logging interface used by the
// FTP client. It mirrors fclairamb-ftpserverlib's log package: a small
// Debug/Info/Warn/Error/With contract backed by go-kit's leveled logger,
// so callers can plug in their own go-kit logger (or use the bundled
// no-op default) without the client depending on a concrete logging
// framework.
package ftplog

import (
	"fmt"

	gklog "github.com/go-kit/kit/log"
	gklevel "github.com/go-kit/kit/log/level"
)

// Logger is the event sink the client reports to. event is a short,
// machine-readable name ("connected", "send-command", "transfer-begin", ...);
// keyvals are alternating key/value pairs in the go-kit convention.
type Logger interface {
	Debug(event string, keyvals ...interface{})
	Info(event string, keyvals ...interface{})
	Warn(event string, keyvals ...interface{})
	Error(event string, keyvals ...interface{})
	With(keyvals ...interface{}) Logger
}

type gkLogger struct {
	logger gklog.Logger
}

// New wraps a go-kit logger as a Logger.
func New(logger gklog.Logger) Logger {
	return &gkLogger{logger: logger}
}

// NewNop returns a Logger that discards everything, the client's default.
func NewNop() Logger {
	return New(gklog.NewNopLogger())
}

func (l *gkLogger) log(level gklog.Logger, event string, keyvals ...interface{}) {
	kv := make([]interface{}, 0, len(keyvals)+2)
	kv = append(kv, "event", event)
	kv = append(kv, keyvals...)
	if err := level.Log(kv...); err != nil {
		fmt.Println("ftplog: logging error:", err)
	}
}

func (l *gkLogger) Debug(event string, keyvals ...interface{}) {
	l.log(gklevel.Debug(l.logger), event, keyvals...)
}

func (l *gkLogger) Info(event string, keyvals ...interface{}) {
	l.log(gklevel.Info(l.logger), event, keyvals...)
}

func (l *gkLogger) Warn(event string, keyvals ...interface{}) {
	l.log(gklevel.Warn(l.logger), event, keyvals...)
}

func (l *gkLogger) Error(event string, keyvals ...interface{}) {
	l.log(gklevel.Error(l.logger), event, keyvals...)
}

func (l *gkLogger) With(keyvals ...interface{}) Logger {
	return New(gklog.With(l.logger, keyvals...))
}
