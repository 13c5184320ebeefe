package mongocache

import (
	"fmt"
)

// BackendOperationError is a failure reported by the backend for op.
// Key is empty for scope-wide operations such as flush.
type BackendOperationError struct {
	Op  string
	Key string
	Err error
}

func (e *BackendOperationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("mongocache: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("mongocache: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendOperationError) Unwrap() error { return e.Err }

// ExtensionUnavailableError means the backend client library is missing or
// too old. It is returned by ProbeDialer and by New, never by operations.
type ExtensionUnavailableError struct {
	Backend string
	Version string
	Reason  string
}

func (e *ExtensionUnavailableError) Error() string {
	switch {
	case e.Backend == "":
		return fmt.Sprintf("mongocache: backend unavailable: %s", e.Reason)
	case e.Version == "":
		return fmt.Sprintf("mongocache: %s unavailable: %s", e.Backend, e.Reason)
	default:
		return fmt.Sprintf("mongocache: %s %s unavailable: %s", e.Backend, e.Version, e.Reason)
	}
}

// InvalidKeyError rejects a cache key before any backend call.
type InvalidKeyError struct {
	Key    string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("mongocache: invalid key %q: %s", e.Key, e.Reason)
}

// wrapBackend converts a backend failure into a BackendOperationError.
// A nil err is a caller bug: success is never wrapped.
func wrapBackend(op, key string, err error) error {
	if err == nil {
		panic("mongocache: wrapBackend called with a nil error for " + op)
	}
	return &BackendOperationError{Op: op, Key: key, Err: err}
}
