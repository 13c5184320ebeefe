// Package zap adapts a *zap.Logger to the mongocache logging contract.
package zap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	mclog "github.com/unkn0wn-root/mongocache/log"
)

var _ mclog.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New tags every entry with component=mongocache. A nil logger yields a
// no-op.
func New(l *zap.Logger) mclog.Logger {
	if l == nil {
		return mclog.Nop{}
	}
	return ZapLogger{L: l.With(zap.String("component", "mongocache"))}
}

func (z ZapLogger) Debug(msg string, f mclog.Fields) { z.log(zapcore.DebugLevel, msg, f) }
func (z ZapLogger) Info(msg string, f mclog.Fields)  { z.log(zapcore.InfoLevel, msg, f) }
func (z ZapLogger) Warn(msg string, f mclog.Fields)  { z.log(zapcore.WarnLevel, msg, f) }
func (z ZapLogger) Error(msg string, f mclog.Fields) { z.log(zapcore.ErrorLevel, msg, f) }

// log skips field conversion when the level is disabled.
func (z ZapLogger) log(lvl zapcore.Level, msg string, f mclog.Fields) {
	if ce := z.L.Check(lvl, msg); ce != nil {
		ce.Write(zf(f)...)
	}
}

func zf(f mclog.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
