// Package ristretto is an in-process mongocache backend over
// dgraph-io/ristretto.
//
// Ristretto is lossy: a write may be dropped by the admission policy, in
// which case the collection reports provider.ErrRejected. Writes are flushed
// with Wait so a successful write is visible to the next read.
package ristretto

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/mongocache/internal/kv"
	pr "github.com/unkn0wn-root/mongocache/provider"
)

const modulePath = "github.com/dgraph-io/ristretto"

type Provider struct {
	c  *rc.Cache
	mu sync.Mutex
	ix *index
}

var (
	_ pr.Dialer = (*Provider)(nil)
	_ pr.Prober = (*Provider)(nil)
)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, ix: &index{keys: make(map[string]struct{})}}, nil
}

// Dial ignores the connection settings; all resources dialed through one
// Provider share its store.
func (p *Provider) Dial(context.Context, pr.ConnConfig) (pr.Conn, error) {
	return &kv.SharedConn{Store: store{c: p.c, ix: p.ix}, Mu: &p.mu}, nil
}

func (p *Provider) Probe() (string, string, error) {
	return "ristretto", pr.ModuleVersion(modulePath), nil
}

// Metrics exposes ristretto's counters; nil unless Config.Metrics was set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }

func (p *Provider) Close(context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

type store struct {
	c  *rc.Cache
	ix *index
}

func (s store) Get(key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		s.ix.prune(key, s.present)
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s store) Set(key string, b []byte, ttl time.Duration) error {
	if !s.c.SetWithTTL(key, b, int64(len(b)), ttl) {
		return pr.ErrRejected
	}
	s.c.Wait()
	s.ix.add(key)
	return nil
}

func (s store) Del(key string) error {
	s.c.Del(key)
	s.c.Wait()
	s.ix.remove(key)
	return nil
}

func (s store) Keys(prefix string) ([]string, error) {
	return s.ix.withPrefix(prefix, s.present), nil
}

func (s store) present(k string) bool {
	_, ok := s.c.Get(k)
	return ok
}

// index tracks stored keys; ristretto hashes keys and cannot enumerate them.
// Keys evicted or expired inside ristretto are dropped the next time a Get
// misses them or a Keys scan passes over them, so the index stays bounded by
// the keys written since the last scan.
type index struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (ix *index) add(k string) {
	ix.mu.Lock()
	ix.keys[k] = struct{}{}
	ix.mu.Unlock()
}

func (ix *index) remove(k string) {
	ix.mu.Lock()
	delete(ix.keys, k)
	ix.mu.Unlock()
}

// prune drops k unless present still reports it under the index lock. A
// concurrent Set re-adds its key after the value is visible.
func (ix *index) prune(k string, present func(string) bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.keys[k]; ok && !present(k) {
		delete(ix.keys, k)
	}
}

// withPrefix lists the indexed keys under prefix. When present is non-nil,
// keys it rejects are dropped instead of listed.
func (ix *index) withPrefix(prefix string, present func(string) bool) []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	var out []string
	for k := range ix.keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if present != nil && !present(k) {
			delete(ix.keys, k)
			continue
		}
		out = append(out, k)
	}
	return out
}

// size reports how many keys the index tracks.
func (ix *index) size() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.keys)
}
