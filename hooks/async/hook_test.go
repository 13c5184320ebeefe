package asynchook

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (r *recorder) add(s string) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

func (r *recorder) ExpiredRead(k string)              { r.add("expired:" + k) }
func (r *recorder) AddConflict(k string)              { r.add("conflict:" + k) }
func (r *recorder) BackendError(op string, err error) { r.add("error:" + op + ":" + err.Error()) }
func (r *recorder) Resolved(id string, _ uint64)      { r.add("resolved:" + id) }

func TestDeliversInOrderWithOneWorker(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 1, 16)
	h.ExpiredRead("a")
	h.AddConflict("b")
	h.BackendError("get", errors.New("down"))
	h.Resolved("default", 3)
	h.Close()

	require.Equal(t, []string{"expired:a", "conflict:b", "error:get:down", "resolved:default"}, rec.events)
	require.Zero(t, h.Dropped())
}

func TestDropsWhenQueueIsFull(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	h := New(rec, 1, 1)

	// One event is held by the worker, one sits in the queue; the rest
	// may be dropped depending on when the worker picks up the first.
	for i := 0; i < 10; i++ {
		h.ExpiredRead("k")
	}
	require.NotZero(t, h.Dropped())

	close(rec.block)
	h.Close()
	require.Equal(t, uint64(10), h.Dropped()+uint64(len(rec.events)))
}

func TestCloseIsIdempotentAndDropsLateEvents(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 2, 4)
	h.Close()
	h.Close()

	h.AddConflict("late")
	require.Equal(t, uint64(1), h.Dropped())
	require.Empty(t, rec.events)
}
