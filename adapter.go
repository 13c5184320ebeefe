package mongocache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	c "github.com/unkn0wn-root/mongocache/codec"
	pr "github.com/unkn0wn-root/mongocache/provider"
	"github.com/unkn0wn-root/mongocache/resource"
)

// CASToken is the stored payload observed by GetWithToken. CheckAndSet
// writes only while the stored payload still equals it.
type CASToken []byte

// Metadata describes one stored record.
type Metadata struct {
	ID       string        // backend identifier, hex ObjectID
	Created  time.Time     // from the identifier's embedded timestamp
	Modified time.Time     // last write
	TTL      time.Duration // TTL in effect when the record was written; 0 = none
}

// snapshot is the resolved collection handle and the stamps it was resolved
// under. Any stamp moving invalidates it.
type snapshot struct {
	opts     *Options
	optsGen  uint64
	manager  *resource.Manager
	id       string
	version  uint64
	database string
	coll     pr.Collection
}

// Adapter is the cache API over one resource's (database, collection) scope.
// It is safe for concurrent use.
type Adapter[V any] struct {
	codec c.Codec[V]
	log   Logger
	hooks Hooks
	now   func() time.Time
	probe Probe

	mu   sync.Mutex
	opts *Options
	snap *snapshot

	capsOpts *Options
	capsGen  uint64
	caps     Capabilities
}

func newAdapter[V any](cfg Config[V]) (*Adapter[V], error) {
	if cfg.Probe == nil {
		return nil, &ExtensionUnavailableError{Reason: "backend was not probed; call ProbeDialer at startup"}
	}
	if cfg.Codec == nil {
		return nil, fmt.Errorf("mongocache: codec is required")
	}
	cfg = cfg.withDefaults()
	return &Adapter[V]{
		codec: cfg.Codec,
		log:   cfg.Logger,
		hooks: cfg.Hooks,
		now:   cfg.Now,
		probe: *cfg.Probe,
		opts:  cfg.Options,
	}, nil
}

// Options returns the options in effect.
func (a *Adapter[V]) Options() *Options {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opts
}

// SetOptions swaps the options; the next operation re-resolves its handle.
func (a *Adapter[V]) SetOptions(o *Options) {
	if o == nil {
		o = NewOptions()
	}
	a.mu.Lock()
	a.opts = o
	a.snap = nil
	a.mu.Unlock()
}

// Probe returns the backend probe the adapter was built with.
func (a *Adapter[V]) Probe() Probe { return a.probe }

// Close drops the resolved handle. Connections belong to the resource
// manager and stay open.
func (a *Adapter[V]) Close(context.Context) error {
	a.mu.Lock()
	a.snap = nil
	a.mu.Unlock()
	return nil
}

// collection returns the handle for the current options, re-resolving it
// when the options generation or the resource version has moved.
func (a *Adapter[V]) collection(ctx context.Context) (pr.Collection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	o := a.opts
	m := o.ResourceManager()
	id := o.ResourceID()
	gen := o.Generation()
	version := m.Version(id)

	if s := a.snap; s != nil && s.opts == o && s.optsGen == gen && s.manager == m && s.id == id && s.version == version {
		return s.coll, nil
	}

	conn, err := m.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	db, err := m.Database(id)
	if err != nil {
		return nil, err
	}
	name, err := m.Collection(id)
	if err != nil {
		return nil, err
	}
	coll := conn.Collection(db, name)
	if err := coll.EnsureIndexes(ctx); err != nil {
		return nil, a.fail("ensure_indexes", "", err)
	}

	a.snap = &snapshot{opts: o, optsGen: gen, manager: m, id: id, version: version, database: db, coll: coll}
	a.log.Debug("collection resolved", Fields{"resource": id, "version": version, "database": db, "collection": name})
	a.hooks.Resolved(id, version)
	return coll, nil
}

// storageKey applies the namespace and validates the result.
func (a *Adapter[V]) storageKey(key string) (string, error) {
	if key == "" {
		return "", &InvalidKeyError{Key: key, Reason: "empty key"}
	}
	ns, sep := a.Options().keyScope()
	if ns != "" {
		key = ns + sep + key
	}
	if len(key) > MaxKeyLength {
		return "", &InvalidKeyError{Key: key, Reason: fmt.Sprintf("longer than %d bytes", MaxKeyLength)}
	}
	return key, nil
}

func (a *Adapter[V]) storageKeys(keys []string) ([]string, map[string]string, error) {
	uids := make([]string, 0, len(keys))
	back := make(map[string]string, len(keys))
	for _, k := range keys {
		uid, err := a.storageKey(k)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := back[uid]; !dup {
			uids = append(uids, uid)
		}
		back[uid] = k
	}
	return uids, back, nil
}

func (a *Adapter[V]) fail(op, key string, err error) error {
	a.hooks.BackendError(op, err)
	a.log.Warn("backend operation failed", Fields{"op": op, "key": key, "err": err})
	return wrapBackend(op, key, err)
}

// record builds the record written for uid at the current time and TTL.
func (a *Adapter[V]) record(uid string, v V) (pr.Record, error) {
	payload, err := a.codec.Encode(v)
	if err != nil {
		return pr.Record{}, fmt.Errorf("mongocache: encode %q: %w", uid, err)
	}
	now := a.now().UTC().Truncate(time.Millisecond)
	ttl := a.Options().TTL()
	rec := pr.Record{UID: uid, Value: payload, MTime: now, TTL: int64(ttl / time.Second)}
	if ttl > 0 {
		exp := now.Add(ttl)
		rec.Expire = &exp
	}
	return rec, nil
}

// live returns the unexpired record for uid.
func (a *Adapter[V]) live(ctx context.Context, op, uid string, withValue bool) (pr.Record, bool, error) {
	coll, err := a.collection(ctx)
	if err != nil {
		return pr.Record{}, false, err
	}
	recs, err := coll.Find(ctx, []string{uid}, withValue)
	if err != nil {
		return pr.Record{}, false, a.fail(op, uid, err)
	}
	for _, r := range recs {
		if r.UID != uid {
			continue
		}
		if r.Expired(a.now()) {
			a.hooks.ExpiredRead(uid)
			return pr.Record{}, false, nil
		}
		return r, true, nil
	}
	return pr.Record{}, false, nil
}

func (a *Adapter[V]) decode(uid string, b []byte) (V, error) {
	v, err := a.codec.Decode(b)
	if err != nil {
		var zero V
		return zero, fmt.Errorf("mongocache: decode %q: %w", uid, err)
	}
	return v, nil
}

// Get returns the value stored under key. Expired records read as absent
// and are left for the backend sweep.
func (a *Adapter[V]) Get(ctx context.Context, key string) (V, bool, error) {
	v, _, ok, err := a.GetWithToken(ctx, key)
	return v, ok, err
}

// GetWithToken is Get plus a token for CheckAndSet.
func (a *Adapter[V]) GetWithToken(ctx context.Context, key string) (V, CASToken, bool, error) {
	var zero V
	uid, err := a.storageKey(key)
	if err != nil {
		return zero, nil, false, err
	}
	rec, ok, err := a.live(ctx, "get", uid, true)
	if err != nil || !ok {
		return zero, nil, false, err
	}
	v, err := a.decode(uid, rec.Value)
	if err != nil {
		return zero, nil, false, err
	}
	return v, CASToken(rec.Value), true, nil
}

// GetMany looks up keys in one backend round trip. Absent and expired keys
// are omitted from the result.
func (a *Adapter[V]) GetMany(ctx context.Context, keys []string) (map[string]V, error) {
	recs, back, err := a.findLive(ctx, "get_many", keys, true)
	if err != nil {
		return nil, err
	}
	out := make(map[string]V, len(recs))
	for _, r := range recs {
		v, err := a.decode(r.UID, r.Value)
		if err != nil {
			return nil, err
		}
		out[back[r.UID]] = v
	}
	return out, nil
}

// Has reports whether key holds a live record, without fetching the value.
func (a *Adapter[V]) Has(ctx context.Context, key string) (bool, error) {
	uid, err := a.storageKey(key)
	if err != nil {
		return false, err
	}
	_, ok, err := a.live(ctx, "has", uid, false)
	return ok, err
}

// HasMany returns the keys holding live records, in input order.
func (a *Adapter[V]) HasMany(ctx context.Context, keys []string) ([]string, error) {
	recs, back, err := a.findLive(ctx, "has_many", keys, false)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(recs))
	for _, r := range recs {
		present[back[r.UID]] = true
	}
	out := make([]string, 0, len(present))
	for _, k := range keys {
		if present[k] {
			out = append(out, k)
			delete(present, k)
		}
	}
	return out, nil
}

func (a *Adapter[V]) findLive(ctx context.Context, op string, keys []string, withValue bool) ([]pr.Record, map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil, nil
	}
	uids, back, err := a.storageKeys(keys)
	if err != nil {
		return nil, nil, err
	}
	coll, err := a.collection(ctx)
	if err != nil {
		return nil, nil, err
	}
	recs, err := coll.Find(ctx, uids, withValue)
	if err != nil {
		return nil, nil, a.fail(op, "", err)
	}
	now := a.now()
	live := recs[:0]
	for _, r := range recs {
		if _, ok := back[r.UID]; !ok {
			continue
		}
		if r.Expired(now) {
			a.hooks.ExpiredRead(r.UID)
			continue
		}
		live = append(live, r)
	}
	return live, back, nil
}

// Set creates or overwrites key. Expiry is computed from the current TTL.
func (a *Adapter[V]) Set(ctx context.Context, key string, v V) error {
	uid, err := a.storageKey(key)
	if err != nil {
		return err
	}
	rec, err := a.record(uid, v)
	if err != nil {
		return err
	}
	coll, err := a.collection(ctx)
	if err != nil {
		return err
	}
	if err := coll.Upsert(ctx, rec); err != nil {
		return a.fail("set", uid, err)
	}
	return nil
}

// SetMany writes every item independently. Failures are joined; items that
// succeeded stay written.
func (a *Adapter[V]) SetMany(ctx context.Context, items map[string]V) error {
	var errs []error
	for k, v := range items {
		if err := a.Set(ctx, k, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Add writes key only if it holds no live record. A record that has expired
// but not yet been swept is taken over.
func (a *Adapter[V]) Add(ctx context.Context, key string, v V) (bool, error) {
	uid, err := a.storageKey(key)
	if err != nil {
		return false, err
	}
	rec, err := a.record(uid, v)
	if err != nil {
		return false, err
	}
	coll, err := a.collection(ctx)
	if err != nil {
		return false, err
	}
	ok, err := coll.Insert(ctx, rec)
	if err != nil {
		return false, a.fail("add", uid, err)
	}
	if ok {
		return true, nil
	}

	recs, err := coll.Find(ctx, []string{uid}, true)
	if err != nil {
		return false, a.fail("add", uid, err)
	}
	found := false
	for _, old := range recs {
		if old.UID != uid {
			continue
		}
		found = true
		if !old.Expired(rec.MTime) {
			continue
		}
		ok, err := coll.CompareAndSwap(ctx, rec, old.Value)
		if err != nil {
			return false, a.fail("add", uid, err)
		}
		if ok {
			return true, nil
		}
	}
	if !found {
		// deleted or swept between the insert and the read
		ok, err := coll.Insert(ctx, rec)
		if err != nil {
			return false, a.fail("add", uid, err)
		}
		if ok {
			return true, nil
		}
	}
	a.hooks.AddConflict(uid)
	a.log.Debug("add skipped (key exists)", Fields{"key": uid})
	return false, nil
}

// Replace overwrites key only if it holds a live record.
func (a *Adapter[V]) Replace(ctx context.Context, key string, v V) (bool, error) {
	uid, err := a.storageKey(key)
	if err != nil {
		return false, err
	}
	rec, err := a.record(uid, v)
	if err != nil {
		return false, err
	}
	coll, err := a.collection(ctx)
	if err != nil {
		return false, err
	}
	ok, err := coll.Replace(ctx, rec)
	if err != nil {
		return false, a.fail("replace", uid, err)
	}
	return ok, nil
}

// CheckAndSet writes key only while its stored payload still equals token.
func (a *Adapter[V]) CheckAndSet(ctx context.Context, token CASToken, key string, v V) (bool, error) {
	uid, err := a.storageKey(key)
	if err != nil {
		return false, err
	}
	rec, err := a.record(uid, v)
	if err != nil {
		return false, err
	}
	coll, err := a.collection(ctx)
	if err != nil {
		return false, err
	}
	ok, err := coll.CompareAndSwap(ctx, rec, token)
	if err != nil {
		return false, a.fail("check_and_set", uid, err)
	}
	return ok, nil
}

// Remove deletes key; false when nothing was stored under it.
func (a *Adapter[V]) Remove(ctx context.Context, key string) (bool, error) {
	uid, err := a.storageKey(key)
	if err != nil {
		return false, err
	}
	coll, err := a.collection(ctx)
	if err != nil {
		return false, err
	}
	ok, err := coll.Delete(ctx, uid)
	if err != nil {
		return false, a.fail("remove", uid, err)
	}
	return ok, nil
}

// RemoveMany removes each key and returns the ones that were not removed.
func (a *Adapter[V]) RemoveMany(ctx context.Context, keys []string) ([]string, error) {
	var missed []string
	for _, k := range keys {
		ok, err := a.Remove(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			missed = append(missed, k)
		}
	}
	return missed, nil
}

// Flush deletes every record in the resource's (database, collection).
func (a *Adapter[V]) Flush(ctx context.Context) error {
	coll, err := a.collection(ctx)
	if err != nil {
		return err
	}
	if err := coll.DeleteAll(ctx); err != nil {
		return a.fail("flush", "", err)
	}
	return nil
}

// Metadata describes the live record under key.
func (a *Adapter[V]) Metadata(ctx context.Context, key string) (Metadata, bool, error) {
	uid, err := a.storageKey(key)
	if err != nil {
		return Metadata{}, false, err
	}
	rec, ok, err := a.live(ctx, "metadata", uid, false)
	if err != nil || !ok {
		return Metadata{}, false, err
	}
	md := Metadata{Modified: rec.MTime, TTL: time.Duration(rec.TTL) * time.Second}
	if !rec.ID.IsZero() {
		md.ID = rec.ID.Hex()
		md.Created = rec.ID.Timestamp()
	}
	return md, true, nil
}

// Capabilities is memoized until the options change.
func (a *Adapter[V]) Capabilities() Capabilities {
	a.mu.Lock()
	defer a.mu.Unlock()
	gen := a.opts.Generation()
	if a.capsOpts != a.opts || a.capsGen != gen {
		a.caps = newCapabilities(a.opts.NamespaceSeparator())
		a.capsOpts, a.capsGen = a.opts, gen
	}
	return a.caps
}
