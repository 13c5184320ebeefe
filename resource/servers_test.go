package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/mongocache/provider"
)

func TestNormalizeServersMixedShapes(t *testing.T) {
	got, err := NormalizeServers([]any{"host1", []any{"host2", 1234}})
	require.NoError(t, err)
	require.Equal(t, []provider.Server{
		{Host: "host1", Port: 27017},
		{Host: "host2", Port: 1234},
	}, got)
}

func TestNormalizeServersAccepts(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want []provider.Server
	}{
		{"single", "db1", []provider.Server{{Host: "db1", Port: 27017}}},
		{"host port", "db1:27018", []provider.Server{{Host: "db1", Port: 27018}}},
		{"comma list", "a:1, b ,c:3", []provider.Server{{Host: "a", Port: 1}, {Host: "b", Port: 27017}, {Host: "c", Port: 3}}},
		{"string slice", []string{"a", "b:2"}, []provider.Server{{Host: "a", Port: 27017}, {Host: "b", Port: 2}}},
		{"maps", []map[string]any{{"host": "a", "port": 1}, {"port": float64(2)}}, []provider.Server{{Host: "a", Port: 1}, {Host: "localhost", Port: 2}}},
		{"map in any slice", []any{map[string]any{"host": "m"}}, []provider.Server{{Host: "m", Port: 27017}}},
		{"single map", map[string]any{}, []provider.Server{{Host: "localhost", Port: 27017}}},
		{"one-element pair", []any{[]any{"solo"}}, []provider.Server{{Host: "solo", Port: 27017}}},
		{"string port", []any{[]any{"a", "99"}}, []provider.Server{{Host: "a", Port: 99}}},
		{"ipv6", "[::1]:27018", []provider.Server{{Host: "::1", Port: 27018}}},
		{"ipv6 no port", "[::1]", []provider.Server{{Host: "::1", Port: 27017}}},
		{"typed", []provider.Server{{Host: "t"}}, []provider.Server{{Host: "t", Port: 27017}}},
		{"socket", "/tmp/mongodb-27017.sock", []provider.Server{{Host: "/tmp/mongodb-27017.sock"}}},
		{"socket in list", []any{"/var/run/mongo.sock", "h"}, []provider.Server{{Host: "/var/run/mongo.sock"}, {Host: "h", Port: 27017}}},
		{"string pair in list", []any{"host1", []string{"host2", "1234"}}, []provider.Server{{Host: "host1", Port: 27017}, {Host: "host2", Port: 1234}}},
		{"host list in list", []any{[]string{"a", "b:2"}}, []provider.Server{{Host: "a", Port: 27017}, {Host: "b", Port: 2}}},
		{"typed pairs", [][]any{{"host2", 1234}, {"host3"}}, []provider.Server{{Host: "host2", Port: 1234}, {Host: "host3", Port: 27017}}},
		{"typed socket", provider.Server{Host: "/run/m.sock"}, []provider.Server{{Host: "/run/m.sock"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeServers(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeServersDedupesInOrder(t *testing.T) {
	got, err := NormalizeServers([]any{"b", "a:27017", []any{"b", 27017}, "a", "c"})
	require.NoError(t, err)
	require.Equal(t, []provider.Server{
		{Host: "b", Port: 27017},
		{Host: "a", Port: 27017},
		{Host: "c", Port: 27017},
	}, got)
}

func TestNormalizeServersRejects(t *testing.T) {
	bad := map[string]any{
		"nil":          nil,
		"empty string": "",
		"empty list":   []string{},
		"bad port":     "h:port",
		"port range":   []any{[]any{"h", 70000}},
		"fraction":     []any{[]any{"h", 1.5}},
		"long pair":    []any{[]any{"h", 1, 2}},
		"host type":    []any{[]any{1, 2}},
		"wrong type":   42,
	}
	for name, in := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeServers(in)
			var inv *InvalidOptionError
			require.True(t, errors.As(err, &inv), "got %v", err)
			require.Equal(t, OptServers, inv.Option)
		})
	}
}
