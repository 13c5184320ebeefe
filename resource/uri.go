package resource

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/unkn0wn-root/mongocache/provider"
)

// connConfig resolves an entry into the typed configuration handed to the
// dialer, including the canonical connection string.
func connConfig(id string, e *entry) provider.ConnConfig {
	cfg := provider.ConnConfig{
		ResourceID:         id,
		Servers:            append([]provider.Server(nil), e.servers...),
		ReplicaSet:         e.str(OptReplicaSet),
		Username:           e.str(OptUsername),
		Password:           e.str(OptPassword),
		ConnectTimeout:     e.millis(OptConnectTimeout),
		SocketTimeout:      e.millis(OptSocketTimeout),
		WriteTimeout:       e.millis(OptWriteTimeout),
		TLS:                e.bool(OptTLS),
		Journal:            e.bool(OptJournal),
		FSync:              e.bool(OptFSync),
		ReadPreference:     e.str(OptReadPreference),
		ReadPreferenceTags: e.strs(OptReadPreferenceTags),
		Connect:            e.bool(OptConnect),
	}
	if wc, ok := e.options[OptWriteConcern].(provider.WriteConcern); ok {
		cfg.WriteConcern = wc
	}
	cfg.URI = BuildURI(cfg)
	return cfg
}

// BuildURI renders cfg as a mongodb:// connection string. Credentials are
// embedded in the authority, socket paths are percent-encoded and query
// parameters are emitted in sorted order.
func BuildURI(cfg provider.ConnConfig) string {
	var b strings.Builder
	b.WriteString("mongodb://")
	if cfg.Username != "" {
		if cfg.Password != "" {
			b.WriteString(url.UserPassword(cfg.Username, cfg.Password).String())
		} else {
			b.WriteString(url.User(cfg.Username).String())
		}
		b.WriteByte('@')
	}
	hosts := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		if s.IsSocket() {
			hosts = append(hosts, url.PathEscape(s.Host))
			continue
		}
		hosts = append(hosts, s.String())
	}
	b.WriteString(strings.Join(hosts, ","))
	b.WriteByte('/')

	q := url.Values{}
	if cfg.ReplicaSet != "" {
		q.Set("replicaSet", cfg.ReplicaSet)
	}
	if cfg.TLS {
		q.Set("tls", "true")
	}
	setMillis(q, "connectTimeoutMS", cfg.ConnectTimeout)
	setMillis(q, "socketTimeoutMS", cfg.SocketTimeout)
	setMillis(q, "wtimeoutMS", cfg.WriteTimeout)
	if !cfg.WriteConcern.IsZero() {
		q.Set("w", cfg.WriteConcern.String())
	}
	if cfg.Journal {
		q.Set("journal", "true")
	}
	if cfg.ReadPreference != "" {
		q.Set("readPreference", cfg.ReadPreference)
	}
	for _, tag := range cfg.ReadPreferenceTags {
		q.Add("readPreferenceTags", tag)
	}
	if len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}
	return b.String()
}

func setMillis(q url.Values, key string, d time.Duration) {
	if d > 0 {
		q.Set(key, strconv.FormatInt(d.Milliseconds(), 10))
	}
}
