// Package asynchook moves hook delivery off the cache hot path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    ExpiredReadEvery: 10, // sample logs: ~every 10th expired read
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := mongocache.New[User](mongocache.Config[User]{
//	    Codec:   codec.JSON[User]{},
//	    Probe:   probe,
//	    Options: opts,
//	    Hooks:   hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/mongocache"
)

// Hooks forwards events to inner from a fixed worker pool. Events are
// dropped when the queue is full or after Close.
type Hooks struct {
	inner   mongocache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ mongocache.Hooks = (*Hooks)(nil)

func New(inner mongocache.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = mongocache.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. It is idempotent.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) ExpiredRead(k string)              { h.try(func() { h.inner.ExpiredRead(k) }) }
func (h *Hooks) AddConflict(k string)              { h.try(func() { h.inner.AddConflict(k) }) }
func (h *Hooks) BackendError(op string, err error) { h.try(func() { h.inner.BackendError(op, err) }) }
func (h *Hooks) Resolved(id string, v uint64)      { h.try(func() { h.inner.Resolved(id, v) }) }
