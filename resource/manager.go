// Package resource implements the registry of named backend resources.
//
// Each resource id maps to a server list, a set of validated client options
// and a lazily dialed connection. The connection is memoized until any
// option of the entry changes; the change drops the handle (it is closed on
// the next GetResource for that id, not eagerly) and bumps the id's
// generation so that holders of derived handles can notice.
//
// Options are addressed through a static option table: every name has one
// validator that also normalizes the value. Unknown names fail with
// UnknownOptionError, rejected values with InvalidOptionError, and a failed
// set never alters the previously stored value.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/unkn0wn-root/mongocache/genstore"
	mclog "github.com/unkn0wn-root/mongocache/log"
	"github.com/unkn0wn-root/mongocache/provider"
	"github.com/unkn0wn-root/mongocache/provider/mongo"
)

type entry struct {
	servers     []provider.Server
	options     map[string]any
	conn        provider.Conn
	stale       []provider.Conn
	initialized bool
}

func newEntry() *entry {
	return &entry{
		servers: []provider.Server{{Host: DefaultHost, Port: DefaultPort}},
		options: map[string]any{
			OptDatabase:     DefaultDatabase,
			OptCollection:   DefaultCollection,
			OptWriteConcern: provider.WriteConcern{N: 1},
			OptConnect:      true,
		},
	}
}

func (e *entry) store(name string, v any) {
	if name == OptServers {
		e.servers = v.([]provider.Server)
		return
	}
	e.options[name] = v
}

// invalidate drops the memoized connection. The handle is parked in stale
// and closed by the next GetResource.
func (e *entry) invalidate() {
	if e.conn != nil {
		e.stale = append(e.stale, e.conn)
		e.conn = nil
	}
	e.initialized = false
}

func (e *entry) str(name string) string {
	s, _ := e.options[name].(string)
	return s
}

func (e *entry) bool(name string) bool {
	b, _ := e.options[name].(bool)
	return b
}

func (e *entry) millis(name string) time.Duration {
	n, _ := e.options[name].(int)
	return time.Duration(n) * time.Millisecond
}

func (e *entry) strs(name string) []string {
	s, _ := e.options[name].([]string)
	return append([]string(nil), s...)
}

// Manager is the resource registry. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
	gens    *genstore.Local
	dialer  provider.Dialer
	log     mclog.Logger
}

type ManagerOption func(*Manager)

// WithDialer replaces the default MongoDB dialer.
func WithDialer(d provider.Dialer) ManagerOption {
	return func(m *Manager) { m.dialer = d }
}

func WithLogger(l mclog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		entries: make(map[string]*entry),
		gens:    genstore.NewLocal(),
	}
	for _, o := range opts {
		o(m)
	}
	if m.dialer == nil {
		m.dialer = mongo.Dialer{}
	}
	if m.log == nil {
		m.log = mclog.Nop{}
	}
	return m
}

// Dialer returns the dialer used to build connections.
func (m *Manager) Dialer() provider.Dialer { return m.dialer }

func (m *Manager) HasResource(id string) bool {
	m.mu.RLock()
	_, ok := m.entries[id]
	m.mu.RUnlock()
	return ok
}

// Version returns the generation of id. It changes on every mutation of the
// entry, including removal; 0 means the id was never touched.
func (m *Manager) Version(id string) uint64 {
	return m.gens.Snapshot(id)
}

// SetResource registers or updates id from a configuration mapping.
// A new id starts from the documented defaults; an existing id only has the
// supplied keys overwritten. All values are validated before any is stored.
func (m *Manager) SetResource(id string, cfg map[string]any) error {
	normalized, err := normalizeAll(cfg)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entryLocked(id)
	for name, v := range normalized {
		e.store(name, v)
	}
	e.invalidate()
	m.gens.Bump(id)
	return nil
}

// SetConn registers a ready-made connection for id. The handle is used as
// is and the entry is marked initialized.
func (m *Manager) SetConn(id string, conn provider.Conn) error {
	if conn == nil {
		return errors.New("resource: nil connection")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entryLocked(id)
	if e.conn != conn {
		e.invalidate()
	}
	e.conn = conn
	e.initialized = true
	m.gens.Bump(id)
	return nil
}

// GetResource returns the connection for id, dialing it on first use or
// after any option change.
func (m *Manager) GetResource(ctx context.Context, id string) (provider.Conn, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	if ok && e.initialized && e.conn != nil {
		conn := e.conn
		m.mu.RUnlock()
		return conn, nil
	}
	m.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{ID: id}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok = m.entries[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if e.initialized && e.conn != nil {
		return e.conn, nil
	}

	m.closeStaleLocked(ctx, id, e)

	cfg := connConfig(id, e)
	conn, err := m.dialer.Dial(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("resource %q: dial: %w", id, err)
	}
	e.conn = conn
	e.initialized = true
	m.log.Info("resource connection built", mclog.Fields{"resource": id, "servers": len(cfg.Servers)})
	return conn, nil
}

// RemoveResource forgets id. Its connection is not closed here; callers that
// still hold it keep a working handle until they drop it.
func (m *Manager) RemoveResource(id string) {
	m.mu.Lock()
	if _, ok := m.entries[id]; ok {
		delete(m.entries, id)
		m.gens.Bump(id)
	}
	m.mu.Unlock()
}

// Close closes every connection still owned by the registry.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for id, e := range m.entries {
		m.closeStaleLocked(ctx, id, e)
		if e.conn != nil {
			if err := e.conn.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("resource %q: %w", id, err))
			}
			e.conn = nil
			e.initialized = false
		}
	}
	return errors.Join(errs...)
}

// ConnConfig returns the configuration GetResource would dial with.
func (m *Manager) ConnConfig(id string) (provider.ConnConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return provider.ConnConfig{}, &NotFoundError{ID: id}
	}
	return connConfig(id, e), nil
}

// SetOption validates and stores a single option by name. Setting an option
// on an unknown id registers it with defaults first.
func (m *Manager) SetOption(id, name string, value any) error {
	rule, err := lookupOption(name)
	if err != nil {
		return err
	}
	v, err := rule.normalize(rule.name, value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entryLocked(id)
	e.store(rule.name, v)
	e.invalidate()
	m.gens.Bump(id)
	return nil
}

// Option returns the stored value of name for id, or nil when unset.
func (m *Manager) Option(id, name string) (any, error) {
	rule, err := lookupOption(name)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if rule.name == OptServers {
		return append([]provider.Server(nil), e.servers...), nil
	}
	return e.options[rule.name], nil
}

func (m *Manager) entryLocked(id string) *entry {
	e, ok := m.entries[id]
	if !ok {
		e = newEntry()
		m.entries[id] = e
	}
	return e
}

func (m *Manager) closeStaleLocked(ctx context.Context, id string, e *entry) {
	for _, c := range e.stale {
		if err := c.Close(ctx); err != nil {
			m.log.Warn("closing stale connection failed", mclog.Fields{"resource": id, "err": err})
		}
	}
	e.stale = nil
}

func normalizeAll(cfg map[string]any) (map[string]any, error) {
	names := make([]string, 0, len(cfg))
	for k := range cfg {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make(map[string]any, len(cfg))
	for _, name := range names {
		rule, err := lookupOption(name)
		if err != nil {
			return nil, err
		}
		v, err := rule.normalize(rule.name, cfg[name])
		if err != nil {
			return nil, err
		}
		out[rule.name] = v
	}
	return out, nil
}
