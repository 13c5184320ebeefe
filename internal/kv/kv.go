// Package kv implements provider.Collection over a flat in-process byte
// store. It backs the bigcache and ristretto providers.
//
// Records are wire-framed and stored under util.ScopeKey. Compound writes
// (insert, replace, compare-and-swap) are serialized by a mutex shared by
// every scope of one store.
package kv

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/unkn0wn-root/mongocache/internal/util"
	"github.com/unkn0wn-root/mongocache/internal/wire"
	pr "github.com/unkn0wn-root/mongocache/provider"
)

// Store is the minimal byte store a Collection needs.
type Store interface {
	Get(key string) ([]byte, bool, error)
	// Set writes b. ttl is the record's lifetime, 0 for none.
	Set(key string, b []byte, ttl time.Duration) error
	Del(key string) error
	// Keys returns the keys currently stored under prefix.
	Keys(prefix string) ([]string, error)
}

// Collection is one scope of a Store.
type Collection struct {
	store  Store
	mu     *sync.Mutex
	prefix string
}

var _ pr.Collection = (*Collection)(nil)

// New returns the (database, name) scope of store. mu must be shared by all
// scopes of the same store.
func New(store Store, mu *sync.Mutex, database, name string) *Collection {
	return &Collection{
		store:  store,
		mu:     mu,
		prefix: util.ScopePrefix(database, name),
	}
}

func (c *Collection) key(uid string) string { return c.prefix + uid }

// load returns the stored record for uid. Undecodable entries read as
// absent.
func (c *Collection) load(uid string) (pr.Record, bool, error) {
	b, ok, err := c.store.Get(c.key(uid))
	if err != nil || !ok {
		return pr.Record{}, false, err
	}
	rec, err := wire.DecodeRecord(b)
	if err != nil {
		return pr.Record{}, false, nil
	}
	return rec, true, nil
}

func (c *Collection) put(rec pr.Record) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	return c.store.Set(c.key(rec.UID), wire.EncodeRecord(rec), rec.Lifetime())
}

func (c *Collection) Find(_ context.Context, uids []string, withValue bool) ([]pr.Record, error) {
	out := make([]pr.Record, 0, len(uids))
	for _, uid := range uids {
		rec, ok, err := c.load(uid)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if !withValue {
			rec.Value = nil
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Collection) Upsert(_ context.Context, rec pr.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok, err := c.load(rec.UID)
	if err != nil {
		return err
	}
	if ok {
		rec.ID = old.ID
	}
	return c.put(rec)
}

func (c *Collection) Insert(_ context.Context, rec pr.Record) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok, err := c.load(rec.UID)
	if err != nil {
		return false, err
	}
	if ok && !old.Expired(rec.MTime) {
		return false, nil
	}
	rec.ID = primitive.NilObjectID
	return true, c.put(rec)
}

func (c *Collection) Replace(_ context.Context, rec pr.Record) (bool, error) {
	return c.swap(rec, func(old pr.Record) bool { return !old.Expired(rec.MTime) })
}

func (c *Collection) CompareAndSwap(_ context.Context, rec pr.Record, expected []byte) (bool, error) {
	return c.swap(rec, func(old pr.Record) bool { return string(old.Value) == string(expected) })
}

func (c *Collection) swap(rec pr.Record, match func(pr.Record) bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok, err := c.load(rec.UID)
	if err != nil || !ok {
		return false, err
	}
	if !match(old) {
		return false, nil
	}
	rec.ID = old.ID
	return true, c.put(rec)
}

func (c *Collection) Delete(_ context.Context, uid string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok, err := c.load(uid)
	if err != nil {
		return false, err
	}
	if err := c.store.Del(c.key(uid)); err != nil {
		return false, err
	}
	return ok, nil
}

func (c *Collection) DeleteAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, err := c.store.Keys(c.prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := c.store.Del(k); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) EnsureIndexes(context.Context) error { return nil }

// SharedConn adapts a process-wide store to provider.Conn. Close is a no-op:
// the store outlives every connection dialed from it and is released by its
// owner.
type SharedConn struct {
	Store Store
	Mu    *sync.Mutex
}

var _ pr.Conn = (*SharedConn)(nil)

func (s *SharedConn) Collection(database, name string) pr.Collection {
	return New(s.Store, s.Mu, database, name)
}

func (s *SharedConn) Ping(context.Context) error  { return nil }
func (s *SharedConn) Close(context.Context) error { return nil }
