package mongocache

import (
	"time"

	c "github.com/unkn0wn-root/mongocache/codec"
)

// Config wires an Adapter. Codec and Probe are required; others have
// sensible defaults.
type Config[V any] struct {
	// Required
	Codec c.Codec[V]
	Probe *Probe // result of ProbeDialer at startup

	Options *Options         // nil => NewOptions()
	Logger  Logger           // if nil, NopLogger is used
	Hooks   Hooks            // if nil, NopHooks is used
	Now     func() time.Time // clock for mtime and expiry; nil => time.Now
}

func New[V any](cfg Config[V]) (*Adapter[V], error) {
	return newAdapter(cfg)
}
