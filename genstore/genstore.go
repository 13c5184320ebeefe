// Package genstore keeps monotonically increasing generation counters per key.
//
// The resource manager bumps the generation of a resource id on every
// mutation; readers compare a previously observed generation against the
// current one to decide whether anything derived from that resource must be
// rebuilt.
package genstore

// GenStore abstracts where generations live.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(key string) uint64
	// SnapshotMany returns gens for many keys; missing => 0.
	SnapshotMany(keys []string) map[string]uint64
	// Bump atomically increments and returns the new generation.
	Bump(key string) uint64
}
