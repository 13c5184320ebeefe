package resource

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/unkn0wn-root/mongocache/provider"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 27017
)

// NormalizeServers turns any accepted server-list shape into an ordered,
// deduplicated list:
//
//	"host"                       single host, default port
//	"h1:27018,h2"                comma-joined list
//	[]string{"h1", "h2:1"}
//	[]any{"h1", []any{"h2", 1234}, map[string]any{"host": "h3", "port": 1}}
//	provider.Server / []provider.Server
//
// Hosts that look like unix socket paths keep the path as host and port 0.
func NormalizeServers(in any) ([]provider.Server, error) {
	var raw []provider.Server
	if err := collectServers(in, &raw); err != nil {
		return nil, err
	}
	out := make([]provider.Server, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		k := s.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, invalid(OptServers, in, "empty server list")
	}
	return out, nil
}

func collectServers(in any, out *[]provider.Server) error {
	switch v := in.(type) {
	case nil:
		return invalid(OptServers, in, "empty server list")
	case string:
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			s, err := parseHostPort(part)
			if err != nil {
				return err
			}
			*out = append(*out, s)
		}
	case provider.Server:
		*out = append(*out, withDefaults(v.Host, v.Port, v.Port == 0))
	case []provider.Server:
		for _, s := range v {
			*out = append(*out, withDefaults(s.Host, s.Port, s.Port == 0))
		}
	case []string:
		for _, s := range v {
			if err := collectServers(s, out); err != nil {
				return err
			}
		}
	case map[string]any:
		s, err := serverFromMap(v)
		if err != nil {
			return err
		}
		*out = append(*out, s)
	case []map[string]any:
		for _, m := range v {
			s, err := serverFromMap(m)
			if err != nil {
				return err
			}
			*out = append(*out, s)
		}
	case [][]any:
		for _, pair := range v {
			s, err := serverFromPair(pair)
			if err != nil {
				return err
			}
			*out = append(*out, s)
		}
	case []any:
		for _, item := range v {
			switch it := item.(type) {
			case []any:
				s, err := serverFromPair(it)
				if err != nil {
					return err
				}
				*out = append(*out, s)
			case []string:
				if !isStringPair(it) {
					if err := collectServers(it, out); err != nil {
						return err
					}
					continue
				}
				s, err := serverFromPair([]any{it[0], it[1]})
				if err != nil {
					return err
				}
				*out = append(*out, s)
			default:
				if err := collectServers(it, out); err != nil {
					return err
				}
			}
		}
	default:
		return invalid(OptServers, in, fmt.Sprintf("unsupported server list type %T", in))
	}
	return nil
}

// isStringPair reports whether a nested []string is a positional
// [host, port] entry rather than a list of hosts.
func isStringPair(p []string) bool {
	if len(p) != 2 {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(p[1]))
	return err == nil && n >= 0 && n <= 65535
}

// serverFromPair handles positional [host] and [host, port] entries.
func serverFromPair(p []any) (provider.Server, error) {
	if len(p) == 0 || len(p) > 2 {
		return provider.Server{}, invalid(OptServers, p, "server pair must be [host] or [host, port]")
	}
	host, ok := p[0].(string)
	if !ok {
		return provider.Server{}, invalid(OptServers, p, "host must be a string")
	}
	if len(p) == 1 {
		return parseHostPort(host)
	}
	port, err := toPort(p[1])
	if err != nil {
		return provider.Server{}, err
	}
	return withDefaults(host, port, false), nil
}

func serverFromMap(m map[string]any) (provider.Server, error) {
	var host string
	if h, ok := m["host"]; ok && h != nil {
		s, ok := h.(string)
		if !ok {
			return provider.Server{}, invalid(OptServers, m, "host must be a string")
		}
		host = s
	}
	p, hasPort := m["port"]
	if !hasPort || p == nil {
		if host == "" {
			return withDefaults("", 0, false), nil
		}
		return parseHostPort(host)
	}
	port, err := toPort(p)
	if err != nil {
		return provider.Server{}, err
	}
	return withDefaults(host, port, false), nil
}

func parseHostPort(s string) (provider.Server, error) {
	s = strings.TrimSpace(s)
	if isSocketPath(s) {
		return provider.Server{Host: s}, nil
	}
	var host, port string
	switch {
	case strings.HasPrefix(s, "["):
		if !strings.Contains(s, "]:") {
			return withDefaults(strings.Trim(s, "[]"), 0, false), nil
		}
		h, p, err := net.SplitHostPort(s)
		if err != nil {
			return provider.Server{}, invalid(OptServers, s, err.Error())
		}
		host, port = h, p
	case strings.Count(s, ":") == 1:
		i := strings.LastIndexByte(s, ':')
		host, port = s[:i], s[i+1:]
	default:
		host = s
	}
	if port == "" {
		return withDefaults(host, 0, false), nil
	}
	n, err := toPort(port)
	if err != nil {
		return provider.Server{}, err
	}
	return withDefaults(host, n, false), nil
}

func withDefaults(host string, port int, allowSocket bool) provider.Server {
	if allowSocket && isSocketPath(host) {
		return provider.Server{Host: host}
	}
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	return provider.Server{Host: host, Port: port}
}

func isSocketPath(h string) bool {
	return strings.HasPrefix(h, "/") || strings.HasSuffix(h, ".sock")
}

func toPort(v any) (int, error) {
	var n int
	switch p := v.(type) {
	case int:
		n = p
	case int32:
		n = int(p)
	case int64:
		n = int(p)
	case uint16:
		n = int(p)
	case float64:
		if p != float64(int(p)) {
			return 0, invalid(OptServers, v, "port must be an integer")
		}
		n = int(p)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, invalid(OptServers, v, "port must be an integer")
		}
		n = i
	default:
		return 0, invalid(OptServers, v, fmt.Sprintf("unsupported port type %T", v))
	}
	if n < 0 || n > 65535 {
		return 0, invalid(OptServers, v, "port out of range")
	}
	return n, nil
}
