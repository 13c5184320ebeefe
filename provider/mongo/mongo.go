// Package mongo is the MongoDB backend for mongocache, built on the official
// go.mongodb.org/mongo-driver client.
//
// Records are stored one document per cache key:
//
//	{_id: ObjectId, uid: string, value: BinData, mtime: Date, ttl: int64, expire?: Date}
//
// EnsureIndexes creates a unique index on uid and a sparse TTL index on
// expire so the server sweeps expired records on its own.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	gomongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/version"

	pr "github.com/unkn0wn-root/mongocache/provider"
)

// MinDriverVersion is the oldest driver release whose API this package uses.
const MinDriverVersion = "1.11.0"

var ErrNilClient = errors.New("mongo provider: nil client")

// Dialer connects to MongoDB using the resolved connection string.
type Dialer struct{}

var (
	_ pr.Dialer = Dialer{}
	_ pr.Prober = Dialer{}
)

func (Dialer) Dial(ctx context.Context, cfg pr.ConnConfig) (pr.Conn, error) {
	client, err := gomongo.Connect(ctx, ClientOptions(cfg))
	if err != nil {
		return nil, err
	}
	conn := &Conn{client: client, closeClient: true}
	if cfg.Connect {
		if err := conn.Ping(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
	}
	return conn, nil
}

// Probe reports the linked driver version and fails when it is older than
// MinDriverVersion.
func (Dialer) Probe() (string, string, error) {
	v := version.Driver
	if !atLeast(v, MinDriverVersion) {
		return "mongo-driver", v, fmt.Errorf("mongo-driver %s is older than required %s", v, MinDriverVersion)
	}
	return "mongo-driver", v, nil
}

// ClientOptions applies the connection string and the settings that have no
// connection-string form. fsync has been folded into journaled writes by the
// server, so it is mapped onto the journal flag.
func ClientOptions(cfg pr.ConnConfig) *options.ClientOptions {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.FSync && !cfg.Journal {
		wc := &writeconcern.WriteConcern{Journal: boolPtr(true), WTimeout: cfg.WriteTimeout}
		switch {
		case cfg.WriteConcern.Majority:
			wc.W = "majority"
		case len(cfg.WriteConcern.Tags) > 0:
			wc.W = cfg.WriteConcern.Tags[0]
		case cfg.WriteConcern.N > 0:
			wc.W = cfg.WriteConcern.N
		}
		opts.SetWriteConcern(wc)
	}
	return opts
}

// Conn wraps a *mongo.Client.
type Conn struct {
	client      *gomongo.Client
	closeClient bool
}

var _ pr.Conn = (*Conn)(nil)

type Config struct {
	Client      *gomongo.Client
	CloseClient bool // set true only if this conn exclusively owns the client
}

// New wraps an existing client, e.g. one shared with the rest of the
// application, for use with resource.Manager.SetConn.
func New(cfg Config) (*Conn, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Conn{client: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (c *Conn) Client() *gomongo.Client { return c.client }

func (c *Conn) Collection(database, name string) pr.Collection {
	return &Collection{coll: c.client.Database(database).Collection(name)}
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// Close disconnects the client only when this conn owns it.
func (c *Conn) Close(ctx context.Context) error {
	if !c.closeClient {
		return nil
	}
	if err := c.client.Disconnect(ctx); err != nil && !errors.Is(err, gomongo.ErrClientDisconnected) {
		return err
	}
	return nil
}

// Collection is one MongoDB collection used as a cache scope.
type Collection struct {
	coll *gomongo.Collection
}

var _ pr.Collection = (*Collection)(nil)

func (c *Collection) Find(ctx context.Context, uids []string, withValue bool) ([]pr.Record, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	opts := options.Find()
	if !withValue {
		opts.SetProjection(bson.D{{Key: "value", Value: 0}})
	}
	cur, err := c.coll.Find(ctx, uidFilter(uids), opts)
	if err != nil {
		return nil, err
	}
	var out []pr.Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collection) Upsert(ctx context.Context, rec pr.Record) error {
	_, err := c.coll.ReplaceOne(ctx, bson.D{{Key: "uid", Value: rec.UID}}, replacement(rec),
		options.Replace().SetUpsert(true))
	return err
}

func (c *Collection) Insert(ctx context.Context, rec pr.Record) (bool, error) {
	_, err := c.coll.InsertOne(ctx, replacement(rec))
	if gomongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Collection) Replace(ctx context.Context, rec pr.Record) (bool, error) {
	res, err := c.coll.ReplaceOne(ctx, liveFilter(rec.UID, rec.MTime), replacement(rec))
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (c *Collection) CompareAndSwap(ctx context.Context, rec pr.Record, expected []byte) (bool, error) {
	filter := bson.D{{Key: "uid", Value: rec.UID}, {Key: "value", Value: expected}}
	res, err := c.coll.ReplaceOne(ctx, filter, replacement(rec))
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (c *Collection) Delete(ctx context.Context, uid string) (bool, error) {
	res, err := c.coll.DeleteOne(ctx, bson.D{{Key: "uid", Value: uid}})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (c *Collection) DeleteAll(ctx context.Context) error {
	_, err := c.coll.DeleteMany(ctx, bson.D{})
	return err
}

func (c *Collection) EnsureIndexes(ctx context.Context) error {
	_, err := c.coll.Indexes().CreateMany(ctx, IndexModels())
	return err
}

// IndexModels returns the unique uid index and the sparse TTL index on expire.
func IndexModels() []gomongo.IndexModel {
	return []gomongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetName("uid_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expire", Value: 1}},
			Options: options.Index().SetName("expire_ttl").SetSparse(true).SetExpireAfterSeconds(0),
		},
	}
}

func uidFilter(uids []string) bson.D {
	if len(uids) == 1 {
		return bson.D{{Key: "uid", Value: uids[0]}}
	}
	return bson.D{{Key: "uid", Value: bson.D{{Key: "$in", Value: uids}}}}
}

// liveFilter matches uid only while its record has no expiry or expires
// after at.
func liveFilter(uid string, at time.Time) bson.D {
	return bson.D{
		{Key: "uid", Value: uid},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "expire", Value: bson.D{{Key: "$exists", Value: false}}}},
			bson.D{{Key: "expire", Value: bson.D{{Key: "$gt", Value: at}}}},
		}},
	}
}

// replacement strips _id so replace-style writes keep the server-assigned id
// and inserts get a fresh one.
func replacement(rec pr.Record) pr.Record {
	rec.ID = primitive.NilObjectID
	return rec
}

func boolPtr(b bool) *bool { return &b }

// atLeast compares dotted numeric versions, ignoring a leading "v" and any
// pre-release suffix.
func atLeast(have, want string) bool {
	h, w := versionParts(have), versionParts(want)
	for i := 0; i < 3; i++ {
		if h[i] != w[i] {
			return h[i] > w[i]
		}
	}
	return true
}

func versionParts(v string) [3]int {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		out[i] = n
	}
	return out
}
