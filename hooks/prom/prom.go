// Package prom exports revcache events as Prometheus metrics, labeled by
// engine name.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/unkn0wn-root/revcache"
)

type Hooks struct {
	hits       *prometheus.CounterVec
	recomputes *prometheus.CounterVec
	failures   *prometheus.CounterVec
	reentrant  *prometheus.CounterVec
	stampErrs  *prometheus.CounterVec
	evictions  *prometheus.CounterVec
	took       *prometheus.HistogramVec
}

var _ revcache.Hooks = (*Hooks)(nil)

// New registers the collectors with reg. Use a dedicated registry per
// process or pass prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) (*Hooks, error) {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "revcache",
			Name:      name,
			Help:      help,
		}, []string{"name"})
	}
	h := &Hooks{
		hits:       counter("hits_total", "Reads served from an up-to-date slot."),
		recomputes: counter("recomputes_total", "Provider runs whose result was published."),
		failures:   counter("provider_failures_total", "Provider runs that returned an error."),
		reentrant:  counter("reentrant_total", "Providers that requested the value they were computing."),
		stampErrs:  counter("stamp_errors_total", "Failed dependency stamp reads."),
		evictions:  counter("evictions_total", "Keyed entries dropped by the table bound."),
		took: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "revcache",
			Name:      "recompute_seconds",
			Help:      "Provider run time for published results.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"name"}),
	}
	for _, c := range []prometheus.Collector{h.hits, h.recomputes, h.failures, h.reentrant, h.stampErrs, h.evictions, h.took} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) Hit(name string) { h.hits.WithLabelValues(name).Inc() }

func (h *Hooks) Recomputed(name string, _ any, _ int, took time.Duration) {
	h.recomputes.WithLabelValues(name).Inc()
	h.took.WithLabelValues(name).Observe(took.Seconds())
}

func (h *Hooks) ProviderFailed(name string, _ any, _ error) { h.failures.WithLabelValues(name).Inc() }
func (h *Hooks) Reentrant(name string, _ any)              { h.reentrant.WithLabelValues(name).Inc() }
func (h *Hooks) StampError(name string, _ error)           { h.stampErrs.WithLabelValues(name).Inc() }
func (h *Hooks) Evicted(name string, _ any)                { h.evictions.WithLabelValues(name).Inc() }
