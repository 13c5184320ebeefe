package ristretto

import (
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/mongocache/internal/util"
	pr "github.com/unkn0wn-root/mongocache/provider"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("zero config must be rejected")
	}
}

func TestWriteIsVisibleImmediately(t *testing.T) {
	ctx := context.Background()
	conn, _ := newProvider(t).Dial(ctx, pr.ConnConfig{})
	c := conn.Collection("db", "c")

	exp := time.Now().Add(time.Minute)
	if ok, err := c.Insert(ctx, pr.Record{UID: "k", Value: []byte("v"), TTL: 60, Expire: &exp}); !ok || err != nil {
		t.Fatalf("Insert: ok=%v err=%v", ok, err)
	}
	got, err := c.Find(ctx, []string{"k"}, true)
	if err != nil || len(got) != 1 || string(got[0].Value) != "v" || got[0].TTL != 60 {
		t.Fatalf("Find = %+v, %v", got, err)
	}
}

func TestDeleteAllUsesIndex(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	conn, _ := p.Dial(ctx, pr.ConnConfig{})
	a, b := conn.Collection("db", "a"), conn.Collection("db", "b")

	_ = a.Upsert(ctx, pr.Record{UID: "1", Value: []byte("a")})
	_ = b.Upsert(ctx, pr.Record{UID: "1", Value: []byte("b")})

	if err := a.DeleteAll(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := a.Find(ctx, []string{"1"}, true); len(got) != 0 {
		t.Fatalf("scope a still has %v", got)
	}
	if got, _ := b.Find(ctx, []string{"1"}, true); len(got) != 1 {
		t.Fatalf("scope b lost its record")
	}
	if keys := p.ix.withPrefix("", nil); len(keys) != 1 {
		t.Fatalf("index not pruned: %v", keys)
	}
}

func TestForeignValueSelfHeals(t *testing.T) {
	p := newProvider(t)
	p.c.Set("junk", 42, 1)
	p.c.Wait()

	s := store{c: p.c, ix: p.ix}
	if _, ok, _ := s.Get("junk"); ok {
		t.Fatalf("non-[]byte value should read as miss")
	}
	p.c.Wait()
	if _, ok := p.c.Get("junk"); ok {
		t.Fatalf("non-[]byte value should be dropped")
	}
}

func TestIndexDropsKeysRistrettoLost(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	conn, _ := p.Dial(ctx, pr.ConnConfig{})
	c := conn.Collection("db", "c")

	for _, uid := range []string{"1", "2", "3"} {
		if err := c.Upsert(ctx, pr.Record{UID: uid, Value: []byte(uid)}); err != nil {
			t.Fatalf("Upsert(%s): %v", uid, err)
		}
	}
	if n := p.ix.size(); n != 3 {
		t.Fatalf("index size = %d", n)
	}

	// evictions bypass the store
	p.c.Del(util.ScopeKey("db", "c", "1"))
	p.c.Del(util.ScopeKey("db", "c", "2"))
	p.c.Wait()

	if got, _ := c.Find(ctx, []string{"1"}, true); len(got) != 0 {
		t.Fatalf("evicted key still readable: %v", got)
	}
	if n := p.ix.size(); n != 2 {
		t.Fatalf("miss did not prune index: size=%d", n)
	}

	keys, _ := store{c: p.c, ix: p.ix}.Keys(util.ScopePrefix("db", "c"))
	if len(keys) != 1 || keys[0] != util.ScopeKey("db", "c", "3") {
		t.Fatalf("Keys = %v", keys)
	}
	if n := p.ix.size(); n != 1 {
		t.Fatalf("scan did not prune index: size=%d", n)
	}
}

func TestLifetimeIsMeasuredFromMTime(t *testing.T) {
	ctx := context.Background()
	conn, _ := newProvider(t).Dial(ctx, pr.ConnConfig{})
	c := conn.Collection("db", "c")

	// an injected clock two hours behind the wall clock
	mtime := time.Now().Add(-2 * time.Hour)
	exp := mtime.Add(time.Hour)
	if err := c.Upsert(ctx, pr.Record{UID: "k", Value: []byte("v"), MTime: mtime, TTL: 3600, Expire: &exp}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	got, err := c.Find(ctx, []string{"k"}, true)
	if err != nil || len(got) != 1 {
		t.Fatalf("record dropped by ristretto TTL: %v %v", got, err)
	}
}
