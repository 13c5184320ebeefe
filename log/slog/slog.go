//go:build go1.21

// Package slog adapts a *slog.Logger to the mongocache logging contract.
package slog

import (
	"context"
	stdslog "log/slog"
	"sort"

	mclog "github.com/unkn0wn-root/mongocache/log"
)

var _ mclog.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

// New adds component=mongocache to every record. A nil logger yields a
// no-op.
func New(l *stdslog.Logger) mclog.Logger {
	if l == nil {
		return mclog.Nop{}
	}
	return Logger{L: l.With("component", "mongocache")}
}

func (s Logger) Debug(msg string, f mclog.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f mclog.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f mclog.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f mclog.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(lvl stdslog.Level, msg string, f mclog.Fields) {
	ctx := context.Background()
	if !s.L.Enabled(ctx, lvl) {
		return
	}
	s.L.LogAttrs(ctx, lvl, msg, attrs(f)...)
}

// attrs emits fields in key order so log lines are stable.
func attrs(f mclog.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]stdslog.Attr, 0, len(f))
	for _, k := range keys {
		out = append(out, stdslog.Any(k, f[k]))
	}
	return out
}
