package mongocache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/mongocache/provider"
	"github.com/unkn0wn-root/mongocache/resource"
)

const (
	DefaultResourceID         = "default"
	DefaultNamespaceSeparator = ":"
)

// Options is the adapter's view of one resource entry. Resource settings are
// never cached here: every accessor round-trips through the manager for the
// current resource id, so changes made directly on the manager are visible
// at once.
//
// TTL, Namespace and NamespaceSeparator are adapter-local.
type Options struct {
	mu         sync.Mutex
	manager    *resource.Manager
	resourceID string
	namespace  string
	separator  string
	ttl        time.Duration

	gen atomic.Uint64
}

func NewOptions() *Options {
	return &Options{resourceID: DefaultResourceID, separator: DefaultNamespaceSeparator}
}

// Generation changes whenever the manager, the resource id, the namespace
// or the separator changes. Adapters compare it against their snapshot.
func (o *Options) Generation() uint64 { return o.gen.Load() }

// ResourceManager returns the registry, creating a private one on first use.
func (o *Options) ResourceManager() *resource.Manager {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.manager == nil {
		o.manager = resource.NewManager()
	}
	return o.manager
}

// SetResourceManager substitutes the registry, e.g. to share one across
// adapters. nil reverts to a lazily created private one.
func (o *Options) SetResourceManager(m *resource.Manager) {
	o.mu.Lock()
	if o.manager != m {
		o.manager = m
		o.gen.Add(1)
	}
	o.mu.Unlock()
}

func (o *Options) ResourceID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resourceID
}

// SetResourceID selects the entry later calls address. The registry itself
// is not touched.
func (o *Options) SetResourceID(id string) error {
	if id == "" {
		return &resource.InvalidOptionError{Option: "resource_id", Value: id, Reason: "must not be empty"}
	}
	o.mu.Lock()
	if o.resourceID != id {
		o.resourceID = id
		o.gen.Add(1)
	}
	o.mu.Unlock()
	return nil
}

func (o *Options) TTL() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ttl
}

// SetTTL sets the lifetime applied to subsequent writes. 0 disables expiry.
// Sub-second remainders round up to the next whole second.
func (o *Options) SetTTL(d time.Duration) error {
	if d < 0 {
		return &resource.InvalidOptionError{Option: "ttl", Value: d, Reason: "must be >= 0"}
	}
	if r := d % time.Second; r != 0 {
		d += time.Second - r
	}
	o.mu.Lock()
	o.ttl = d
	o.mu.Unlock()
	return nil
}

func (o *Options) Namespace() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.namespace
}

// SetNamespace scopes keys as namespace+separator+key. Empty disables it.
func (o *Options) SetNamespace(ns string) {
	o.mu.Lock()
	if o.namespace != ns {
		o.namespace = ns
		o.gen.Add(1)
	}
	o.mu.Unlock()
}

func (o *Options) NamespaceSeparator() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.separator
}

func (o *Options) SetNamespaceSeparator(sep string) error {
	if sep == "" {
		return &resource.InvalidOptionError{Option: "namespace_separator", Value: sep, Reason: "must not be empty"}
	}
	o.mu.Lock()
	if o.separator != sep {
		o.separator = sep
		o.gen.Add(1)
	}
	o.mu.Unlock()
	return nil
}

// keyScope returns the namespace and separator under one lock.
func (o *Options) keyScope() (string, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.namespace, o.separator
}

// SetResource registers or updates the current entry from a mapping of
// option names to values.
func (o *Options) SetResource(cfg map[string]any) error {
	return o.ResourceManager().SetResource(o.ResourceID(), cfg)
}

func (o *Options) SetOption(name string, v any) error {
	return o.ResourceManager().SetOption(o.ResourceID(), name, v)
}

func (o *Options) Option(name string) (any, error) {
	return o.ResourceManager().Option(o.ResourceID(), name)
}

func (o *Options) SetServers(servers any) error {
	return o.ResourceManager().SetServers(o.ResourceID(), servers)
}

func (o *Options) Servers() ([]provider.Server, error) {
	return o.ResourceManager().Servers(o.ResourceID())
}

func (o *Options) SetDatabase(name string) error {
	return o.ResourceManager().SetDatabase(o.ResourceID(), name)
}

func (o *Options) Database() (string, error) {
	return o.ResourceManager().Database(o.ResourceID())
}

func (o *Options) SetCollection(name string) error {
	return o.ResourceManager().SetCollection(o.ResourceID(), name)
}

func (o *Options) Collection() (string, error) {
	return o.ResourceManager().Collection(o.ResourceID())
}

func (o *Options) SetReplicaSet(name string) error {
	return o.ResourceManager().SetReplicaSet(o.ResourceID(), name)
}

func (o *Options) ReplicaSet() (string, error) {
	return o.ResourceManager().ReplicaSet(o.ResourceID())
}

func (o *Options) SetUsername(user string) error {
	return o.ResourceManager().SetUsername(o.ResourceID(), user)
}

func (o *Options) Username() (string, error) {
	return o.ResourceManager().Username(o.ResourceID())
}

func (o *Options) SetPassword(pass string) error {
	return o.ResourceManager().SetPassword(o.ResourceID(), pass)
}

func (o *Options) Password() (string, error) {
	return o.ResourceManager().Password(o.ResourceID())
}

func (o *Options) SetReadPreference(mode string) error {
	return o.ResourceManager().SetReadPreference(o.ResourceID(), mode)
}

func (o *Options) ReadPreference() (string, error) {
	return o.ResourceManager().ReadPreference(o.ResourceID())
}

func (o *Options) SetReadPreferenceTags(tags []string) error {
	return o.ResourceManager().SetReadPreferenceTags(o.ResourceID(), tags)
}

func (o *Options) ReadPreferenceTags() ([]string, error) {
	return o.ResourceManager().ReadPreferenceTags(o.ResourceID())
}

func (o *Options) SetConnectTimeout(d time.Duration) error {
	return o.ResourceManager().SetConnectTimeout(o.ResourceID(), d)
}

func (o *Options) ConnectTimeout() (time.Duration, error) {
	return o.ResourceManager().ConnectTimeout(o.ResourceID())
}

func (o *Options) SetSocketTimeout(d time.Duration) error {
	return o.ResourceManager().SetSocketTimeout(o.ResourceID(), d)
}

func (o *Options) SocketTimeout() (time.Duration, error) {
	return o.ResourceManager().SocketTimeout(o.ResourceID())
}

func (o *Options) SetWriteTimeout(d time.Duration) error {
	return o.ResourceManager().SetWriteTimeout(o.ResourceID(), d)
}

func (o *Options) WriteTimeout() (time.Duration, error) {
	return o.ResourceManager().WriteTimeout(o.ResourceID())
}

func (o *Options) SetTLS(on bool) error { return o.ResourceManager().SetTLS(o.ResourceID(), on) }
func (o *Options) TLS() (bool, error)   { return o.ResourceManager().TLS(o.ResourceID()) }

func (o *Options) SetJournal(on bool) error { return o.ResourceManager().SetJournal(o.ResourceID(), on) }
func (o *Options) Journal() (bool, error)   { return o.ResourceManager().Journal(o.ResourceID()) }

func (o *Options) SetFSync(on bool) error { return o.ResourceManager().SetFSync(o.ResourceID(), on) }
func (o *Options) FSync() (bool, error)   { return o.ResourceManager().FSync(o.ResourceID()) }

func (o *Options) SetConnect(on bool) error { return o.ResourceManager().SetConnect(o.ResourceID(), on) }
func (o *Options) Connect() (bool, error)   { return o.ResourceManager().Connect(o.ResourceID()) }

func (o *Options) SetWriteConcern(w any) error {
	return o.ResourceManager().SetWriteConcern(o.ResourceID(), w)
}

func (o *Options) WriteConcern() (provider.WriteConcern, error) {
	return o.ResourceManager().WriteConcern(o.ResourceID())
}
