// Package redis is a mongocache backend over Redis.
//
// Each (database, collection) scope owns a key prefix; every record is one
// string key holding a wire-framed provider.Record. Records with an expire
// time are written with a matching PX so Redis sweeps them itself.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/unkn0wn-root/mongocache/internal/util"
	"github.com/unkn0wn-root/mongocache/internal/wire"
	pr "github.com/unkn0wn-root/mongocache/provider"
)

var (
	ErrNilClient = errors.New("redis provider: nil client")
	ErrSocket    = errors.New("redis provider: unix socket servers are not supported")
)

const (
	txRetries = 3
	scanBatch = 256
)

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ pr.Conn = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// Dialer builds a UniversalClient from the resource configuration. The
// replica set name is used as the sentinel master name.
type Dialer struct{}

var (
	_ pr.Dialer = Dialer{}
	_ pr.Prober = Dialer{}
)

func (Dialer) Dial(ctx context.Context, cfg pr.ConnConfig) (pr.Conn, error) {
	for _, s := range cfg.Servers {
		if s.IsSocket() {
			return nil, ErrSocket
		}
	}
	rdb := goredis.NewUniversalClient(UniversalOptions(cfg))
	p := &Redis{rdb: rdb, closeClient: true}
	if cfg.Connect {
		if err := p.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, err
		}
	}
	return p, nil
}

func (Dialer) Probe() (string, string, error) { return "go-redis", goredis.Version(), nil }

// UniversalOptions maps a resource configuration onto go-redis options.
func UniversalOptions(cfg pr.ConnConfig) *goredis.UniversalOptions {
	addrs := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		addrs = append(addrs, s.String())
	}
	opts := &goredis.UniversalOptions{
		Addrs:        addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		MasterName:   cfg.ReplicaSet,
		DialTimeout:  cfg.ConnectTimeout,
		ReadTimeout:  cfg.SocketTimeout,
		WriteTimeout: cfg.SocketTimeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

func (p *Redis) Collection(database, name string) pr.Collection {
	return &scope{rdb: p.rdb, prefix: util.ScopePrefix(database, name)}
}

func (p *Redis) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

type scope struct {
	rdb    goredis.UniversalClient
	prefix string
}

var _ pr.Collection = (*scope)(nil)

func (s *scope) key(uid string) string { return s.prefix + uid }

// Find ignores withValue: values travel with the record frame.
func (s *scope) Find(ctx context.Context, uids []string, _ bool) ([]pr.Record, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(uids))
	for i, u := range uids {
		keys[i] = s.key(u)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]pr.Record, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // miss
		}
		rec, err := wire.DecodeRecord([]byte(str))
		if err != nil {
			_ = s.rdb.Del(ctx, keys[i]).Err() // self-heal foreign/corrupt value
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *scope) Upsert(ctx context.Context, rec pr.Record) error {
	k := s.key(rec.UID)
	return s.watch(ctx, k, func(tx *goredis.Tx) error {
		old, found, err := s.get(ctx, tx, k)
		if err != nil {
			return err
		}
		rec.ID = keepID(old, found, rec.ID)
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, k, wire.EncodeRecord(rec), rec.Lifetime())
			return nil
		})
		return err
	})
}

func (s *scope) Insert(ctx context.Context, rec pr.Record) (bool, error) {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	return s.rdb.SetNX(ctx, s.key(rec.UID), wire.EncodeRecord(rec), rec.Lifetime()).Result()
}

func (s *scope) Replace(ctx context.Context, rec pr.Record) (bool, error) {
	return s.swap(ctx, rec, func(old pr.Record) bool { return !old.Expired(rec.MTime) })
}

func (s *scope) CompareAndSwap(ctx context.Context, rec pr.Record, expected []byte) (bool, error) {
	return s.swap(ctx, rec, func(old pr.Record) bool { return string(old.Value) == string(expected) })
}

// swap overwrites an existing record under WATCH when match accepts it.
func (s *scope) swap(ctx context.Context, rec pr.Record, match func(pr.Record) bool) (bool, error) {
	k := s.key(rec.UID)
	var ok bool
	err := s.watch(ctx, k, func(tx *goredis.Tx) error {
		ok = false
		old, found, err := s.get(ctx, tx, k)
		if err != nil || !found {
			return err
		}
		if !match(old) {
			return nil
		}
		rec.ID = keepID(old, true, rec.ID)
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, k, wire.EncodeRecord(rec), rec.Lifetime())
			return nil
		})
		if err == nil {
			ok = true
		}
		return err
	})
	return ok, err
}

func (s *scope) Delete(ctx context.Context, uid string) (bool, error) {
	n, err := s.rdb.Del(ctx, s.key(uid)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *scope) DeleteAll(ctx context.Context) error {
	match := util.GlobEscape(s.prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// EnsureIndexes is a no-op: keys are unique by construction and expiry is
// carried by PX.
func (s *scope) EnsureIndexes(context.Context) error { return nil }

func (s *scope) get(ctx context.Context, tx *goredis.Tx, k string) (pr.Record, bool, error) {
	b, err := tx.Get(ctx, k).Bytes()
	if err == goredis.Nil {
		return pr.Record{}, false, nil
	}
	if err != nil {
		return pr.Record{}, false, err
	}
	rec, err := wire.DecodeRecord(b)
	if err != nil {
		return pr.Record{}, false, nil // corrupt counts as absent; overwritten below
	}
	return rec, true, nil
}

func (s *scope) watch(ctx context.Context, k string, fn func(*goredis.Tx) error) error {
	for i := 0; i < txRetries; i++ {
		err := s.rdb.Watch(ctx, fn, k)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("redis provider: %q changed concurrently %d times", k, txRetries)
}

func keepID(old pr.Record, found bool, id primitive.ObjectID) primitive.ObjectID {
	if found && !old.ID.IsZero() {
		return old.ID
	}
	if id.IsZero() {
		return primitive.NewObjectID()
	}
	return id
}
