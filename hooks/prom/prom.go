// Package promhooks counts adapter events with Prometheus counters.
//
//	reg := prometheus.NewRegistry()
//	hooks, err := promhooks.New(reg, promhooks.Opts{Namespace: "app"})
//	if err != nil {
//	    return err
//	}
//	cache, _ := mongocache.New[User](mongocache.Config[User]{..., Hooks: hooks})
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/mongocache"
)

// Opts names the metric family. Subsystem defaults to "mongocache".
type Opts struct {
	Namespace string
	Subsystem string
}

// Hooks increments one counter per event kind. Keys are never used as label
// values; only bounded dimensions (operation, resource id) are.
type Hooks struct {
	expired   prometheus.Counter
	conflicts prometheus.Counter
	errors    *prometheus.CounterVec
	resolved  *prometheus.CounterVec
	version   *prometheus.GaugeVec
}

var _ mongocache.Hooks = (*Hooks)(nil)

// New builds the collectors and registers them on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, o Opts) (*Hooks, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if o.Subsystem == "" {
		o.Subsystem = "mongocache"
	}
	h := &Hooks{
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.Namespace,
			Subsystem: o.Subsystem,
			Name:      "expired_reads_total",
			Help:      "Reads that found a record past its expire time.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.Namespace,
			Subsystem: o.Subsystem,
			Name:      "add_conflicts_total",
			Help:      "Add calls refused because a live record existed.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.Namespace,
			Subsystem: o.Subsystem,
			Name:      "backend_errors_total",
			Help:      "Failed backend calls by adapter operation.",
		}, []string{"op"}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.Namespace,
			Subsystem: o.Subsystem,
			Name:      "resolutions_total",
			Help:      "Collection handle resolutions by resource id.",
		}, []string{"resource"}),
		version: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: o.Namespace,
			Subsystem: o.Subsystem,
			Name:      "resource_version",
			Help:      "Resource version of the last resolution.",
		}, []string{"resource"}),
	}
	for _, c := range []prometheus.Collector{h.expired, h.conflicts, h.errors, h.resolved, h.version} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// MustNew is New that panics on registration failure.
func MustNew(reg prometheus.Registerer, o Opts) *Hooks {
	h, err := New(reg, o)
	if err != nil {
		panic("promhooks: " + err.Error())
	}
	return h
}

func (h *Hooks) ExpiredRead(string)              { h.expired.Inc() }
func (h *Hooks) AddConflict(string)              { h.conflicts.Inc() }
func (h *Hooks) BackendError(op string, _ error) { h.errors.WithLabelValues(op).Inc() }

func (h *Hooks) Resolved(resourceID string, version uint64) {
	h.resolved.WithLabelValues(resourceID).Inc()
	h.version.WithLabelValues(resourceID).Set(float64(version))
}
