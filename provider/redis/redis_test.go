package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/mongocache/internal/util"
	pr "github.com/unkn0wn-root/mongocache/provider"
)

func newTestConn(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	conn, err := Dialer{}.Dial(context.Background(), pr.ConnConfig{
		Servers: []pr.Server{{Host: mr.Host(), Port: atoi(t, mr.Port())}},
		Connect: true,
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	p := conn.(*Redis)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return mr, p
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			t.Fatalf("bad port %q", s)
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func rec(uid, v string) pr.Record {
	return pr.Record{UID: uid, Value: []byte(v), MTime: time.Now()}
}

func TestRedisUpsertFindKeepsID(t *testing.T) {
	ctx := context.Background()
	_, p := newTestConn(t)
	c := p.Collection("cache", "cache")

	if err := c.Upsert(ctx, rec("a", "1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := c.Find(ctx, []string{"a", "missing"}, true)
	if err != nil || len(got) != 1 {
		t.Fatalf("Find: n=%d err=%v", len(got), err)
	}
	firstID := got[0].ID
	if firstID.IsZero() {
		t.Fatalf("upsert must assign an id")
	}

	if err := c.Upsert(ctx, rec("a", "2")); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	got, _ = c.Find(ctx, []string{"a"}, true)
	if string(got[0].Value) != "2" {
		t.Fatalf("value=%q want 2", got[0].Value)
	}
	if got[0].ID != firstID {
		t.Fatalf("overwrite changed id %v -> %v", firstID, got[0].ID)
	}
}

func TestRedisInsertReplaceCAS(t *testing.T) {
	ctx := context.Background()
	_, p := newTestConn(t)
	c := p.Collection("cache", "cache")

	if ok, err := c.Replace(ctx, rec("k", "x")); err != nil || ok {
		t.Fatalf("Replace on missing: ok=%v err=%v", ok, err)
	}
	if ok, err := c.Insert(ctx, rec("k", "v1")); err != nil || !ok {
		t.Fatalf("Insert: ok=%v err=%v", ok, err)
	}
	if ok, err := c.Insert(ctx, rec("k", "v2")); err != nil || ok {
		t.Fatalf("second Insert should be refused: ok=%v err=%v", ok, err)
	}
	if ok, err := c.CompareAndSwap(ctx, rec("k", "v3"), []byte("stale")); err != nil || ok {
		t.Fatalf("CAS with stale token: ok=%v err=%v", ok, err)
	}
	if ok, err := c.CompareAndSwap(ctx, rec("k", "v3"), []byte("v1")); err != nil || !ok {
		t.Fatalf("CAS with current token: ok=%v err=%v", ok, err)
	}
	if ok, err := c.Replace(ctx, rec("k", "v4")); err != nil || !ok {
		t.Fatalf("Replace on present: ok=%v err=%v", ok, err)
	}
	got, _ := c.Find(ctx, []string{"k"}, true)
	if len(got) != 1 || string(got[0].Value) != "v4" {
		t.Fatalf("got %+v want v4", got)
	}
}

func TestRedisDeleteAndDeleteAllScoped(t *testing.T) {
	ctx := context.Background()
	mr, p := newTestConn(t)
	a := p.Collection("db", "a")
	b := p.Collection("db", "b")

	for _, k := range []string{"1", "2", "3"} {
		if err := a.Upsert(ctx, rec(k, k)); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Upsert(ctx, rec("1", "b")); err != nil {
		t.Fatal(err)
	}

	if ok, err := a.Delete(ctx, "1"); err != nil || !ok {
		t.Fatalf("Delete present: ok=%v err=%v", ok, err)
	}
	if ok, err := a.Delete(ctx, "1"); err != nil || ok {
		t.Fatalf("Delete absent: ok=%v err=%v", ok, err)
	}

	if err := a.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if got, _ := a.Find(ctx, []string{"2", "3"}, true); len(got) != 0 {
		t.Fatalf("scope a not emptied: %v", got)
	}
	if !mr.Exists(util.ScopeKey("db", "b", "1")) {
		t.Fatalf("DeleteAll leaked into scope b")
	}
}

func TestRedisExpiryUsesPX(t *testing.T) {
	ctx := context.Background()
	mr, p := newTestConn(t)
	c := p.Collection("cache", "cache")

	exp := time.Now().Add(2 * time.Second)
	r := rec("ttl", "v")
	r.TTL = 2
	r.Expire = &exp
	if err := c.Upsert(ctx, r); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(util.ScopeKey("cache", "cache", "ttl")); ttl <= 0 {
		t.Fatalf("expected PX on key, got ttl=%v", ttl)
	}
	mr.FastForward(3 * time.Second)
	if got, _ := c.Find(ctx, []string{"ttl"}, true); len(got) != 0 {
		t.Fatalf("expected key swept by redis, got %v", got)
	}
}

func TestRedisPXIsMeasuredFromMTime(t *testing.T) {
	ctx := context.Background()
	mr, p := newTestConn(t)
	c := p.Collection("cache", "cache")

	// MTime comes from an injected clock that lags the wall clock
	mtime := time.Now().Add(-time.Hour)
	exp := mtime.Add(90 * time.Second)
	r := pr.Record{UID: "lag", Value: []byte("v"), MTime: mtime, TTL: 90, Expire: &exp}
	if ok, err := c.Insert(ctx, r); err != nil || !ok {
		t.Fatalf("Insert: ok=%v err=%v", ok, err)
	}
	if ttl := mr.TTL(util.ScopeKey("cache", "cache", "lag")); ttl != 90*time.Second {
		t.Fatalf("PX = %v, want 90s", ttl)
	}
	if err := c.Upsert(ctx, r); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(util.ScopeKey("cache", "cache", "lag")); ttl != 90*time.Second {
		t.Fatalf("PX after upsert = %v, want 90s", ttl)
	}
}

func TestRedisFindSelfHealsForeignValue(t *testing.T) {
	ctx := context.Background()
	mr, p := newTestConn(t)
	c := p.Collection("cache", "cache")

	k := util.ScopeKey("cache", "cache", "junk")
	if err := mr.Set(k, "not-a-record"); err != nil {
		t.Fatal(err)
	}
	if got, err := c.Find(ctx, []string{"junk"}, true); err != nil || len(got) != 0 {
		t.Fatalf("foreign value must read as miss: %v %v", got, err)
	}
	if mr.Exists(k) {
		t.Fatalf("foreign value should be deleted")
	}
}

func TestNewRejectsNilClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("err=%v want ErrNilClient", err)
	}
}

func TestDialRejectsSocket(t *testing.T) {
	_, err := Dialer{}.Dial(context.Background(), pr.ConnConfig{
		Servers: []pr.Server{{Host: "/tmp/redis.sock"}},
	})
	if err != ErrSocket {
		t.Fatalf("err=%v want ErrSocket", err)
	}
}

func TestUniversalOptions(t *testing.T) {
	opts := UniversalOptions(pr.ConnConfig{
		Servers:        []pr.Server{{Host: "r1", Port: 6379}, {Host: "r2", Port: 6380}},
		ReplicaSet:     "mymaster",
		Username:       "u",
		Password:       "p",
		ConnectTimeout: time.Second,
		TLS:            true,
	})
	if len(opts.Addrs) != 2 || opts.Addrs[1] != "r2:6380" {
		t.Fatalf("addrs=%v", opts.Addrs)
	}
	if opts.MasterName != "mymaster" || opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("credentials/master not mapped: %+v", opts)
	}
	if opts.DialTimeout != time.Second || opts.TLSConfig == nil {
		t.Fatalf("timeouts/tls not mapped: %+v", opts)
	}
	var _ goredis.UniversalClient = goredis.NewUniversalClient(opts)
}
