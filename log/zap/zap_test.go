package zap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	mclog "github.com/unkn0wn-root/mongocache/log"
)

func TestFieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(zap.New(core))

	l.Debug("hidden", mclog.Fields{"k": 1})
	l.Info("resource connection built", mclog.Fields{"resource": "main", "servers": 2})
	l.Warn("backend failed", mclog.Fields{"err": errors.New("timeout")})

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	info := entries[0].ContextMap()
	require.Equal(t, "resource connection built", entries[0].Message)
	require.Equal(t, "mongocache", info["component"])
	require.Equal(t, "main", info["resource"])
	require.EqualValues(t, 2, info["servers"])

	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "timeout", entries[1].ContextMap()["err"])
}

func TestNilLoggerIsNop(t *testing.T) {
	require.Equal(t, mclog.Nop{}, New(nil))
}
