package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	mclog "github.com/unkn0wn-root/mongocache/log"
)

func TestFieldsAndLevels(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.InfoLevel)
	l := New(base)

	l.Debug("hidden", nil)
	l.Warn("backend failed", mclog.Fields{"op": "set", "err": errors.New("timeout")})

	require.Len(t, hook.AllEntries(), 1)
	e := hook.LastEntry()
	require.Equal(t, logrus.WarnLevel, e.Level)
	require.Equal(t, "backend failed", e.Message)
	require.Equal(t, "mongocache", e.Data["component"])
	require.Equal(t, "set", e.Data["op"])
	require.EqualError(t, e.Data[logrus.ErrorKey].(error), "timeout")
}

func TestNilLoggerIsNop(t *testing.T) {
	require.Equal(t, mclog.Nop{}, New(nil))
}
