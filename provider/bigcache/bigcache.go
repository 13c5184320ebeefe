// Package bigcache is an in-process mongocache backend over allegro/bigcache.
//
// One Provider is one shared store: every Conn it dials sees the same data,
// so a resource that is re-dialed after an option change keeps its records.
// BigCache has a single global LifeWindow; per-record expiry is enforced on
// read.
package bigcache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/mongocache/internal/kv"
	pr "github.com/unkn0wn-root/mongocache/provider"
)

const modulePath = "github.com/allegro/bigcache/v3"

type Provider struct {
	c  *bc.BigCache
	mu sync.Mutex
}

var (
	_ pr.Dialer = (*Provider)(nil)
	_ pr.Prober = (*Provider)(nil)
)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

// Dial ignores the connection settings; all resources dialed through one
// Provider share its store.
func (p *Provider) Dial(context.Context, pr.ConnConfig) (pr.Conn, error) {
	return &kv.SharedConn{Store: store{p.c}, Mu: &p.mu}, nil
}

func (p *Provider) Probe() (string, string, error) {
	return "bigcache", pr.ModuleVersion(modulePath), nil
}

// Len reports the number of entries, expired ones included.
func (p *Provider) Len() int { return p.c.Len() }

func (p *Provider) Close(context.Context) error {
	return p.c.Close()
}

type store struct {
	c *bc.BigCache
}

func (s store) Get(key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	return b, err == nil, err
}

// Set relies on the global LifeWindow for eviction.
func (s store) Set(key string, b []byte, _ time.Duration) error {
	return s.c.Set(key, b)
}

func (s store) Del(key string) error {
	if err := s.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

func (s store) Keys(prefix string) ([]string, error) {
	var keys []string
	it := s.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			continue // evicted while iterating
		}
		if strings.HasPrefix(e.Key(), prefix) {
			keys = append(keys, e.Key())
		}
	}
	return keys, nil
}
