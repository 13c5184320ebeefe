// Package logrus adapts a logrus entry to the mongocache logging contract.
package logrus

import (
	"github.com/sirupsen/logrus"

	mclog "github.com/unkn0wn-root/mongocache/log"
)

var _ mclog.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New wraps l with component=mongocache. A nil logger yields a no-op.
func New(l *logrus.Logger) mclog.Logger {
	if l == nil {
		return mclog.Nop{}
	}
	return LogrusLogger{E: l.WithField("component", "mongocache")}
}

func (l LogrusLogger) Debug(msg string, f mclog.Fields) { l.log(logrus.DebugLevel, msg, f) }
func (l LogrusLogger) Info(msg string, f mclog.Fields)  { l.log(logrus.InfoLevel, msg, f) }
func (l LogrusLogger) Warn(msg string, f mclog.Fields)  { l.log(logrus.WarnLevel, msg, f) }
func (l LogrusLogger) Error(msg string, f mclog.Fields) { l.log(logrus.ErrorLevel, msg, f) }

func (l LogrusLogger) log(lvl logrus.Level, msg string, f mclog.Fields) {
	if !l.E.Logger.IsLevelEnabled(lvl) {
		return
	}
	e := l.E
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		e = e.WithField(k, v)
	}
	e.Log(lvl, msg)
}
