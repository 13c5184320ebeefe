package mongocache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The adapter calls them on hot paths.
type Hooks interface {
	// A read found a record past its expire time and reported it absent.
	// The record is left in place for the backend sweep.
	ExpiredRead(key string)

	// Add found a live record under key and did not write.
	AddConflict(key string)

	// A backend call failed; op is the adapter operation ("get", "set", ...).
	BackendError(op string, err error)

	// The adapter (re)resolved its collection handle for resourceID at the
	// given resource version.
	Resolved(resourceID string, version uint64)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ExpiredRead(string)         {}
func (NopHooks) AddConflict(string)         {}
func (NopHooks) BackendError(string, error) {}
func (NopHooks) Resolved(string, uint64)    {}
