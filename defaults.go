package mongocache

import "time"

// withDefaults fills every optional Config field left unset.
func (cfg Config[V]) withDefaults() Config[V] {
	cfg.Logger = coalesce[Logger](cfg.Logger, NopLogger{})
	cfg.Hooks = coalesce[Hooks](cfg.Hooks, NopHooks{})
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Options == nil {
		cfg.Options = NewOptions()
	}
	return cfg
}

// coalesce returns def when v is the zero value of T.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
