// Package mongocache implements a key/value cache stored in MongoDB (or any
// provider.Dialer backend), with per-resource connection management.
//
// Components:
//   - resource.Manager: registry of named resources (servers, database,
//     collection, credentials, client options). Connections are dialed
//     lazily, memoized per id, and dropped whenever an option changes.
//   - Options: the adapter's facade over one resource id plus the
//     adapter-local TTL and namespace.
//   - Adapter[V]: get/set/add/replace/check-and-set/remove/flush, batch
//     variants and metadata over the resource's (database, collection).
//   - Codec[V]: (de)serializes V <-> []byte.
//
// Records:
//
//	{_id, uid, value, mtime, ttl, expire?}
//
// uid is the namespaced key (namespace + separator + key) and is unique per
// collection. expire is set only when the TTL was non-zero at write time; a
// record past expire reads as absent even before the backend sweeps it.
//
// Startup:
//
//	probe, err := mongocache.ProbeDialer(mongo.Dialer{}) // once; fails if the driver is too old
//	opts := mongocache.NewOptions()
//	_ = opts.SetServers("db1:27017,db2:27017")
//	_ = opts.SetDatabase("app")
//	cache, err := mongocache.New[User](mongocache.Config[User]{
//	    Codec:   codec.JSON[User]{},
//	    Probe:   probe,
//	    Options: opts,
//	})
//
// The adapter re-resolves its collection whenever Options.Generation or the
// resource's version in the manager moves, so changing e.g. the database
// takes effect on the next operation.
package mongocache
