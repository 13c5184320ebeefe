// Package provider defines the backend contract used by mongocache.
//
// A Dialer turns a resolved ConnConfig into a live Conn. A Conn hands out
// Collection handles scoped to one (database, collection) pair; every cache
// record lives in exactly one such scope and its uid is unique within it.
//
// Implementations MUST store Record.Value byte-for-byte: Find must return the
// exact payload previously written. Expiry is advisory at this layer; a
// backend may sweep expired records on its own schedule but is not required
// to, and callers treat records past Expire as absent regardless.
package provider

import (
	"context"
	"errors"
	"runtime/debug"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrRejected is returned by lossy in-process stores that refused a write
// under memory pressure.
var ErrRejected = errors.New("provider: write rejected")

// Record is the persisted shape of one cache entry.
type Record struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	UID    string             `bson:"uid"`
	Value  []byte             `bson:"value"`
	MTime  time.Time          `bson:"mtime"`
	TTL    int64              `bson:"ttl"`
	Expire *time.Time         `bson:"expire,omitempty"`
}

// Expired reports whether r is logically absent at now.
func (r Record) Expired(now time.Time) bool {
	return r.Expire != nil && !now.Before(*r.Expire)
}

// Lifetime is the relative TTL a store should apply when writing r,
// measured from r.MTime rather than the wall clock. 0 means no expiry; a
// positive result is at least one millisecond.
func (r Record) Lifetime() time.Duration {
	if r.Expire == nil {
		return 0
	}
	d := r.Expire.Sub(r.MTime)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// Collection is one (database, collection) scope of a backend.
type Collection interface {
	// Find returns the records whose uid is in uids, in no particular order.
	// Missing uids are simply absent from the result. When withValue is false
	// implementations may leave Value empty.
	Find(ctx context.Context, uids []string, withValue bool) ([]Record, error)

	// Upsert creates or overwrites the record for rec.UID.
	Upsert(ctx context.Context, rec Record) error

	// Insert creates rec only if no record with rec.UID exists. A record
	// already expired at rec.MTime may be treated as absent.
	// ok=false (and nil error) means the uid was taken.
	Insert(ctx context.Context, rec Record) (ok bool, err error)

	// Replace overwrites an existing record that has not expired at
	// rec.MTime. ok=false means nothing matched.
	Replace(ctx context.Context, rec Record) (ok bool, err error)

	// CompareAndSwap overwrites the record only if its stored value equals
	// expected, regardless of expiry. ok=false means the uid is missing or
	// the value moved.
	CompareAndSwap(ctx context.Context, rec Record, expected []byte) (ok bool, err error)

	// Delete removes the record; ok=false when nothing matched.
	Delete(ctx context.Context, uid string) (ok bool, err error)

	// DeleteAll removes every record in the scope.
	DeleteAll(ctx context.Context) error

	// EnsureIndexes creates the uid uniqueness and expire indexes when the
	// backend supports them. Must be idempotent.
	EnsureIndexes(ctx context.Context) error
}

// Conn is a live connection handle owned by one resource entry.
type Conn interface {
	Collection(database, name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Dialer builds connections from a resolved configuration.
type Dialer interface {
	Dial(ctx context.Context, cfg ConnConfig) (Conn, error)
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context, cfg ConnConfig) (Conn, error)

func (f DialFunc) Dial(ctx context.Context, cfg ConnConfig) (Conn, error) { return f(ctx, cfg) }

// Prober is implemented by dialers whose client library has a minimum
// supported version. Probe reports the library name and version and returns
// an error when the library cannot be used.
type Prober interface {
	Probe() (library, version string, err error)
}

// ModuleVersion returns the version of module path linked into the running
// binary, or "unknown" when build info is unavailable.
func ModuleVersion(path string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, d := range bi.Deps {
		if d.Path == path {
			if d.Replace != nil {
				return d.Replace.Version
			}
			return d.Version
		}
	}
	return "unknown"
}

// Server is one normalized host entry. Port is 0 for unix socket paths.
type Server struct {
	Host string
	Port int
}

// IsSocket reports whether s addresses a filesystem socket.
func (s Server) IsSocket() bool { return s.Port == 0 }

// String returns the dedupe key: "host:port", or the bare path for sockets.
func (s Server) String() string {
	if s.IsSocket() {
		return s.Host
	}
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// WriteConcern is the acknowledgement requirement for writes.
// Exactly one of N, Majority or Tags is set.
type WriteConcern struct {
	N        int
	Majority bool
	Tags     []string
}

// IsZero reports whether no write concern was configured.
func (w WriteConcern) IsZero() bool { return w.N == 0 && !w.Majority && len(w.Tags) == 0 }

// String renders the concern as a connection-string "w" value.
// Tag sets render as the first tag-set name.
func (w WriteConcern) String() string {
	switch {
	case w.Majority:
		return "majority"
	case len(w.Tags) > 0:
		return w.Tags[0]
	case w.N > 0:
		return strconv.Itoa(w.N)
	default:
		return ""
	}
}

// ConnConfig is everything a Dialer needs. URI is the canonical connection
// string; the typed fields mirror it for backends that do not speak URIs.
type ConnConfig struct {
	ResourceID string
	URI        string

	Servers    []Server
	ReplicaSet string
	Username   string
	Password   string

	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
	WriteTimeout   time.Duration

	TLS          bool
	WriteConcern WriteConcern
	Journal      bool
	FSync        bool

	ReadPreference     string
	ReadPreferenceTags []string

	// Connect asks the dialer to verify reachability before returning.
	Connect bool
}
